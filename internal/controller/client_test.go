package controller

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taoyao-code/novastar-ctl/internal/metrics"
	"github.com/taoyao-code/novastar-ctl/internal/protocol/novastar"
	"github.com/taoyao-code/novastar-ctl/internal/throttle"
)

// frameSink 按帧记录写入内容
type frameSink struct {
	mu     sync.Mutex
	frames [][]byte
}

func (s *frameSink) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frames = append(s.frames, append([]byte(nil), p...))
	return len(p), nil
}

func (s *frameSink) all() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frames
}

type failingWriter struct{ err error }

func (w failingWriter) Write(p []byte) (int, error) { return 0, w.err }

type shortWriter struct{}

func (shortWriter) Write(p []byte) (int, error) { return len(p) - 1, nil }

type memRecorder struct {
	mu   sync.Mutex
	recs []CommandRecord
	err  error
}

func (r *memRecorder) Name() string { return "mem" }

func (r *memRecorder) Record(_ context.Context, rec CommandRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.recs = append(r.recs, rec)
	return r.err
}

func TestNew_Validation(t *testing.T) {
	_, err := New(0, &bytes.Buffer{})
	assert.ErrorIs(t, err, novastar.ErrInvalidArgument)

	_, err = New(257, &bytes.Buffer{})
	assert.ErrorIs(t, err, novastar.ErrInvalidArgument)

	_, err = New(1, nil)
	assert.Error(t, err)

	c, err := New(256, &bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, 256, c.Port())
}

func TestSetBrightness_Frame(t *testing.T) {
	sink := &frameSink{}
	c, err := New(1, sink)
	require.NoError(t, err)

	require.NoError(t, c.SetBrightness(context.Background(), 0))

	frames := sink.all()
	require.Len(t, frames, 1)
	frame := frames[0]
	assert.Len(t, frame, novastar.FrameLength(1))
	assert.Equal(t, byte(0x00), frame[3])                         // seq
	assert.Equal(t, byte(0x00), frame[7])                         // port index
	assert.Equal(t, []byte{0x01, 0x00, 0x00, 0x02}, frame[12:16]) // reg
	assert.Equal(t, []byte{0x01, 0x00}, frame[16:18])             // len
	assert.Equal(t, byte(0x00), frame[18])                        // payload
	assert.NoError(t, novastar.VerifyChecksum(frame))
}

func TestShowPattern_Frame(t *testing.T) {
	sink := &frameSink{}
	c, err := New(3, sink)
	require.NoError(t, err)

	require.NoError(t, c.ShowPattern(context.Background(), novastar.PatternRed))

	frame := sink.all()[0]
	assert.Equal(t, byte(0x02), frame[7])
	assert.Equal(t, []byte{0x01, 0x01, 0x00, 0x02}, frame[12:16])
	assert.Equal(t, byte(0x02), frame[18])
}

func TestSetBrightness_Boundaries(t *testing.T) {
	sink := &frameSink{}
	c, err := New(1, sink)
	require.NoError(t, err)
	ctx := context.Background()

	assert.NoError(t, c.SetBrightness(ctx, 0))
	assert.NoError(t, c.SetBrightness(ctx, 255))

	for _, bad := range []int{256, -1} {
		err := c.SetBrightness(ctx, bad)
		require.Error(t, err)
		var verr *novastar.ValidationError
		require.True(t, errors.As(err, &verr))
		assert.Equal(t, "brightness", verr.Field)
	}

	for _, bad := range []novastar.Pattern{0, 10} {
		err := c.ShowPattern(ctx, bad)
		assert.ErrorIs(t, err, novastar.ErrInvalidArgument)
	}

	// 校验失败不写出任何字节
	assert.Len(t, sink.all(), 2)
}

func TestApply_UnknownCommand(t *testing.T) {
	c, err := New(1, &frameSink{})
	require.NoError(t, err)

	_, err = c.Apply(context.Background(), Command{Name: "gamma", Register: 0x1, Value: 1})
	assert.ErrorIs(t, err, novastar.ErrInvalidArgument)
}

func TestSequence(t *testing.T) {
	t.Run("默认流水号固定为0", func(t *testing.T) {
		sink := &frameSink{}
		c, err := New(1, sink)
		require.NoError(t, err)

		for i := 0; i < 3; i++ {
			require.NoError(t, c.SetBrightness(context.Background(), 10))
		}
		for _, f := range sink.all() {
			assert.Equal(t, byte(0), f[3])
		}
		assert.Equal(t, uint8(0), c.Sequence())
	})

	t.Run("递增并在256处回绕", func(t *testing.T) {
		sink := &frameSink{}
		c, err := New(1, sink, WithIncrementingSequence())
		require.NoError(t, err)

		for i := 0; i < 257; i++ {
			require.NoError(t, c.SetBrightness(context.Background(), 10))
		}
		frames := sink.all()
		assert.Equal(t, byte(0), frames[0][3])
		assert.Equal(t, byte(255), frames[255][3])
		assert.Equal(t, byte(0), frames[256][3])
		assert.Equal(t, uint8(1), c.Sequence())
	})

	t.Run("写失败不递增", func(t *testing.T) {
		c, err := New(1, failingWriter{err: io.ErrClosedPipe}, WithIncrementingSequence())
		require.NoError(t, err)

		_ = c.SetBrightness(context.Background(), 10)
		assert.Equal(t, uint8(0), c.Sequence())
	})
}

func TestTransportErrorPropagatesUnchanged(t *testing.T) {
	wantErr := errors.New("serial: device disconnected")
	c, err := New(1, failingWriter{err: wantErr})
	require.NoError(t, err)

	res, err := c.Apply(context.Background(), Brightness(50))
	assert.Same(t, wantErr, err)
	require.NotNil(t, res)
	assert.Len(t, res.Frame, novastar.FrameLength(1))
}

func TestShortWrite(t *testing.T) {
	c, err := New(1, shortWriter{})
	require.NoError(t, err)

	err = c.SetBrightness(context.Background(), 1)
	assert.ErrorIs(t, err, io.ErrShortWrite)
}

func TestLengthEncodingOption(t *testing.T) {
	sink := &frameSink{}
	c, err := New(1, sink, WithLengthEncoding(novastar.LengthLittleEndian))
	require.NoError(t, err)

	require.NoError(t, c.SetBrightness(context.Background(), 1))
	// 长度为1时两种编码一致
	assert.Equal(t, []byte{0x01, 0x00}, sink.all()[0][16:18])
}

func TestRecorder(t *testing.T) {
	rec := &memRecorder{}
	c, err := New(2, &frameSink{}, WithRecorder(rec))
	require.NoError(t, err)

	res, err := c.Apply(context.Background(), TestPattern(novastar.PatternBlue))
	require.NoError(t, err)

	require.Len(t, rec.recs, 1)
	got := rec.recs[0]
	assert.Equal(t, res.CommandID, got.ID)
	assert.Equal(t, 2, got.Port)
	assert.Equal(t, CommandTestPattern, got.Command)
	assert.Equal(t, novastar.RegisterTestPattern, got.Register)
	assert.Equal(t, int(novastar.PatternBlue), got.Value)
	assert.Equal(t, res.Frame, got.Frame)
	assert.True(t, got.Success())
	assert.False(t, got.SentAt.IsZero())
}

// blockingRecorder 在 release 关闭前阻塞 Record
type blockingRecorder struct {
	entered chan string
	release chan struct{}

	mu  sync.Mutex
	ids []string
}

func (r *blockingRecorder) Name() string { return "blocking" }

func (r *blockingRecorder) Record(_ context.Context, rec CommandRecord) error {
	r.entered <- rec.ID
	<-r.release
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ids = append(r.ids, rec.ID)
	return nil
}

func TestSlowRecorderDoesNotBlockTransport(t *testing.T) {
	sink := &frameSink{}
	rec := &blockingRecorder{entered: make(chan string, 2), release: make(chan struct{})}
	c, err := New(1, sink, WithRecorder(rec), WithIncrementingSequence())
	require.NoError(t, err)

	results := make(chan *Result, 2)
	apply := func(level int) {
		res, err := c.Apply(context.Background(), Brightness(level))
		assert.NoError(t, err)
		results <- res
	}

	go apply(1)
	firstID := <-rec.entered // 第一条命令卡在记录器里

	go apply(2)
	require.Eventually(t, func() bool { return len(sink.all()) == 2 }, time.Second, 5*time.Millisecond,
		"记录器阻塞时后续帧仍应写出")

	frames := sink.all()
	assert.Equal(t, byte(0), frames[0][3])
	assert.Equal(t, byte(1), frames[1][3])

	// 第二条记录须等第一条记录完成
	select {
	case id := <-rec.entered:
		t.Fatalf("记录乱序: %s 先于 %s 进入记录器", id, firstID)
	case <-time.After(50 * time.Millisecond):
	}

	close(rec.release)
	<-results
	<-results

	rec.mu.Lock()
	defer rec.mu.Unlock()
	require.Len(t, rec.ids, 2)
	assert.Equal(t, firstID, rec.ids[0])
}

func TestRecorderFailureDoesNotFailCommand(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewAppMetrics(reg)
	rec := &memRecorder{err: errors.New("db down")}
	c, err := New(1, &frameSink{}, WithRecorder(rec), WithMetrics(m))
	require.NoError(t, err)

	assert.NoError(t, c.SetBrightness(context.Background(), 9))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.RecorderErrors.WithLabelValues("mem")))
}

func TestRecorderSeesTransportFailure(t *testing.T) {
	rec := &memRecorder{}
	c, err := New(1, failingWriter{err: io.ErrClosedPipe}, WithRecorder(rec))
	require.NoError(t, err)

	_ = c.SetBrightness(context.Background(), 9)
	require.Len(t, rec.recs, 1)
	assert.False(t, rec.recs[0].Success())
	assert.ErrorIs(t, rec.recs[0].Err, io.ErrClosedPipe)
}

func TestThrottle(t *testing.T) {
	sink := &frameSink{}
	limiter := throttle.NewRateLimiter(1, 1)
	c, err := New(1, sink, WithThrottle(limiter))
	require.NoError(t, err)

	require.NoError(t, c.SetBrightness(context.Background(), 1))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := c.Apply(ctx, Brightness(2))
	assert.ErrorIs(t, err, ErrThrottled)
	assert.Nil(t, res)
	assert.Len(t, sink.all(), 1, "限速失败时不应写出帧")
}

func TestThrottleWaitDoesNotHoldWriteLock(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewAppMetrics(reg)
	sink := &frameSink{}
	c, err := New(1, sink, WithThrottle(throttle.NewRateLimiter(5, 1)), WithMetrics(m))
	require.NoError(t, err)
	require.NoError(t, c.SetBrightness(context.Background(), 1))

	// 第二帧需等待约200ms令牌
	done := make(chan error, 1)
	go func() { done <- c.SetBrightness(context.Background(), 2) }()

	seqRead := make(chan uint8, 1)
	go func() { seqRead <- c.Sequence() }()
	select {
	case <-seqRead:
	case <-time.After(100 * time.Millisecond):
		t.Fatal("限速等待不应占用客户端锁")
	}

	require.NoError(t, <-done)
	assert.Len(t, sink.all(), 2)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, c.SetBrightness(ctx, 3), ErrThrottled)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.ThrottleRejected))
}
