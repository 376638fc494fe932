// Package controller 面向NovaStar控制器的命令客户端
// 负责调节亮度、切换测试画面，并将构造好的帧交给串口写出
package controller

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/taoyao-code/novastar-ctl/internal/metrics"
	"github.com/taoyao-code/novastar-ctl/internal/protocol/novastar"
	"github.com/taoyao-code/novastar-ctl/internal/throttle"
)

// 命令名称
const (
	CommandBrightness  = "brightness"
	CommandTestPattern = "test_pattern"
)

// ErrThrottled 等待限速器时 ctx 被取消或超时，帧未写出
var ErrThrottled = errors.New("command throttled")

// Command 单寄存器单字节写命令
type Command struct {
	Name     string
	Register uint32
	Value    int
}

// Brightness 全局亮度命令，level 0-255
func Brightness(level int) Command {
	return Command{Name: CommandBrightness, Register: novastar.RegisterBrightness, Value: level}
}

// TestPattern 测试画面命令，PatternNormal 表示关闭测试画面
func TestPattern(p novastar.Pattern) Command {
	return Command{Name: CommandTestPattern, Register: novastar.RegisterTestPattern, Value: int(p)}
}

// Validate 检查命令取值
func (c Command) Validate() error {
	switch c.Name {
	case CommandBrightness:
		return novastar.CheckRange("brightness", c.Value, 0, 0xFF)
	case CommandTestPattern:
		return novastar.CheckRange("pattern", c.Value, int(novastar.PatternNormal), int(novastar.PatternGrayscale))
	default:
		return &novastar.ValidationError{Field: "command", Value: c.Name, Reason: "unsupported command"}
	}
}

// Result 一次已构帧命令的结果
type Result struct {
	CommandID string
	Sequence  uint8
	Frame     []byte
}

// CommandRecord 命令审计记录，每次尝试写出后生成
type CommandRecord struct {
	ID       string
	Port     int
	Command  string
	Register uint32
	Value    int
	Sequence uint8
	Frame    []byte
	Err      error
	SentAt   time.Time
}

// Success 写出是否成功
func (r CommandRecord) Success() bool { return r.Err == nil }

// Recorder 命令记录器（数据库日志、状态缓存等）
type Recorder interface {
	Name() string
	Record(ctx context.Context, rec CommandRecord) error
}

// Client NovaStar 控制器客户端
// mu 只覆盖构帧与写出，保证并发调用时帧不会在串口上交错；
// 限速等待与记录器都在锁外执行
type Client struct {
	mu  sync.Mutex
	seq uint8
	// prevRecorded 上一条命令记录完成时关闭，保证记录器按线上顺序收到记录
	prevRecorded chan struct{}

	port         int
	w            io.Writer
	incrementSeq bool
	lengthEnc    novastar.LengthEncoding
	limiter      *throttle.RateLimiter
	recorders    []Recorder
	logger       *zap.Logger
	metrics      *metrics.AppMetrics
}

// Option 客户端可选配置
type Option func(*Client)

func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

func WithMetrics(m *metrics.AppMetrics) Option {
	return func(c *Client) { c.metrics = m }
}

// WithThrottle 写出前等待限速器
func WithThrottle(l *throttle.RateLimiter) Option {
	return func(c *Client) { c.limiter = l }
}

// WithRecorder 追加命令记录器
func WithRecorder(r Recorder) Option {
	return func(c *Client) {
		if r != nil {
			c.recorders = append(c.recorders, r)
		}
	}
}

// WithIncrementingSequence 每次成功写出后流水号加1（模256）
// 默认流水号固定为0，与现网行为一致
func WithIncrementingSequence() Option {
	return func(c *Client) { c.incrementSeq = true }
}

func WithLengthEncoding(e novastar.LengthEncoding) Option {
	return func(c *Client) { c.lengthEnc = e }
}

// New 创建客户端
// port: 从1开始的输出口编号；w: 已配置好的串口连接
func New(port int, w io.Writer, opts ...Option) (*Client, error) {
	if err := novastar.CheckRange("port", port, 1, novastar.MaxPort); err != nil {
		return nil, err
	}
	if w == nil {
		return nil, errors.New("controller: nil transport")
	}

	c := &Client{
		port:   port,
		w:      w,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Port 输出口编号（从1开始）
func (c *Client) Port() int { return c.port }

// Sequence 下一帧将使用的流水号
func (c *Client) Sequence() uint8 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seq
}

// SetBrightness 设置全局亮度 0-255
func (c *Client) SetBrightness(ctx context.Context, level int) error {
	_, err := c.Apply(ctx, Brightness(level))
	return err
}

// ShowPattern 切换测试画面，PatternNormal 恢复正常显示
func (c *Client) ShowPattern(ctx context.Context, p novastar.Pattern) error {
	_, err := c.Apply(ctx, TestPattern(p))
	return err
}

// Apply 校验、构帧并写出命令
// 校验失败或限速等待失败时不写出任何字节，返回的 Result 为 nil；
// 串口写失败时原样返回串口错误，Result 仍包含已构造的帧
func (c *Client) Apply(ctx context.Context, cmd Command) (*Result, error) {
	if err := cmd.Validate(); err != nil {
		c.observeInvalid(err)
		return nil, err
	}

	// 限速等待不占用串口锁
	if c.limiter != nil {
		waited, err := c.limiter.Wait(ctx)
		if c.metrics != nil {
			c.metrics.ThrottleWait.Observe(waited.Seconds())
		}
		if err != nil {
			if c.metrics != nil {
				c.metrics.ThrottleRejected.Inc()
			}
			return nil, fmt.Errorf("%w: %v", ErrThrottled, err)
		}
	}

	rec, turn, err := c.send(cmd)
	if err != nil && rec == nil {
		c.observeInvalid(err)
		return nil, err
	}

	// 记录器在锁外执行，存储慢不阻塞后续帧
	c.record(ctx, *rec, turn)

	return &Result{CommandID: rec.ID, Sequence: rec.Sequence, Frame: rec.Frame}, rec.Err
}

// recordTurn 记录器排队：等 prev 关闭后记录，完成后关闭 done
type recordTurn struct {
	prev <-chan struct{}
	done chan struct{}
}

// send 持锁完成 取流水号、构帧、写出、推进流水号，并领取记录顺序
// 构帧失败时返回 nil 记录；写出失败时记录携带串口错误
func (c *Client) send(cmd Command) (*CommandRecord, recordTurn, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	seq := c.seq
	frame, err := novastar.BuildFrame(novastar.FrameRequest{
		Sequence:       int(seq),
		Register:       cmd.Register,
		DeclaredLength: 1,
		Payload:        []byte{byte(cmd.Value)},
		Port:           c.port,
		LengthEncoding: c.lengthEnc,
	})
	if err != nil {
		return nil, recordTurn{}, err
	}

	rec := &CommandRecord{
		ID:       uuid.New().String(),
		Port:     c.port,
		Command:  cmd.Name,
		Register: cmd.Register,
		Value:    cmd.Value,
		Sequence: seq,
		Frame:    frame,
	}
	rec.Err = c.write(frame)
	rec.SentAt = time.Now()

	c.logger.Debug("frame written",
		zap.String("command_id", rec.ID),
		zap.String("command", cmd.Name),
		zap.Int("value", cmd.Value),
		zap.Int("output", c.port),
		zap.Uint8("seq", seq),
		zap.String("frame", hex.EncodeToString(frame)),
		zap.Error(rec.Err),
	)
	c.observeWrite(cmd, len(frame), rec.Err)

	if rec.Err == nil && c.incrementSeq {
		c.seq++
	}

	var turn recordTurn
	if len(c.recorders) > 0 {
		turn = recordTurn{prev: c.prevRecorded, done: make(chan struct{})}
		c.prevRecorded = turn.done
	}
	return rec, turn, rec.Err
}

func (c *Client) write(frame []byte) error {
	n, err := c.w.Write(frame)
	if err != nil {
		return err
	}
	if n < len(frame) {
		return io.ErrShortWrite
	}
	return nil
}

func (c *Client) record(ctx context.Context, rec CommandRecord, turn recordTurn) {
	if turn.done == nil {
		return
	}
	defer close(turn.done)
	if turn.prev != nil {
		<-turn.prev
	}

	for _, r := range c.recorders {
		if err := r.Record(ctx, rec); err != nil {
			c.logger.Warn("record command failed",
				zap.String("recorder", r.Name()),
				zap.String("command_id", rec.ID),
				zap.Error(err),
			)
			if c.metrics != nil {
				c.metrics.RecorderErrors.WithLabelValues(r.Name()).Inc()
			}
		}
	}
}

func (c *Client) observeInvalid(err error) {
	if c.metrics == nil {
		return
	}
	field := "unknown"
	var verr *novastar.ValidationError
	if errors.As(err, &verr) {
		field = verr.Field
	}
	c.metrics.ValidationErrors.WithLabelValues(field).Inc()
}

func (c *Client) observeWrite(cmd Command, n int, err error) {
	if c.metrics == nil {
		return
	}
	if err != nil {
		c.metrics.FramesTotal.WithLabelValues(cmd.Name, "error").Inc()
		return
	}
	c.metrics.FramesTotal.WithLabelValues(cmd.Name, "ok").Inc()
	c.metrics.BytesWritten.Add(float64(n))
	switch cmd.Name {
	case CommandBrightness:
		c.metrics.LastBrightness.Set(float64(cmd.Value))
	case CommandTestPattern:
		c.metrics.LastPattern.Set(float64(cmd.Value))
	}
}
