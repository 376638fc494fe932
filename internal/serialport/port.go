// Package serialport 打开连接控制器的串口（8N1），作为命令帧的写出通道
package serialport

import (
	"fmt"
	"io"
	"sync"
	"time"

	"go.bug.st/serial"

	cfgpkg "github.com/taoyao-code/novastar-ctl/internal/config"
)

// DefaultBaudRate 控制器串口默认波特率
const DefaultBaudRate = 115200

// device 串口最小能力集
type device interface {
	io.WriteCloser
	SetReadTimeout(t time.Duration) error
}

// openDevice 打开底层串口，测试中替换
var openDevice = func(name string, mode *serial.Mode) (device, error) {
	return serial.Open(name, mode)
}

// Port 已打开的控制器串口
type Port struct {
	name string

	mu      sync.Mutex
	dev     device
	closed  bool
	lastErr error
	written int64
}

// Open 按配置打开串口：8位数据位、无校验、1位停止位
func Open(cfg cfgpkg.SerialConfig) (*Port, error) {
	baud := cfg.BaudRate
	if baud <= 0 {
		baud = DefaultBaudRate
	}
	mode := &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	dev, err := openDevice(cfg.Device, mode)
	if err != nil {
		return nil, fmt.Errorf("serial: open %s: %w", cfg.Device, err)
	}
	if cfg.Timeout > 0 {
		if err := dev.SetReadTimeout(cfg.Timeout); err != nil {
			_ = dev.Close()
			return nil, fmt.Errorf("serial: set timeout on %s: %w", cfg.Device, err)
		}
	}
	return &Port{name: cfg.Device, dev: dev}, nil
}

// Name 串口设备路径
func (p *Port) Name() string { return p.name }

// Write 写出一帧，串口错误原样返回
func (p *Port) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return 0, io.ErrClosedPipe
	}
	n, err := p.dev.Write(b)
	p.written += int64(n)
	p.lastErr = err
	return n, err
}

// Close 关闭串口，重复调用无副作用
func (p *Port) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true
	return p.dev.Close()
}

// Status 串口状态快照（供健康检查）
type Status struct {
	Name         string
	Open         bool
	BytesWritten int64
	LastError    error
}

func (p *Port) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Status{Name: p.name, Open: !p.closed, BytesWritten: p.written, LastError: p.lastErr}
}
