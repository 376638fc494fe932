package serialport

import (
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.bug.st/serial"

	cfgpkg "github.com/taoyao-code/novastar-ctl/internal/config"
)

type fakeDevice struct {
	written    []byte
	timeout    time.Duration
	timeoutErr error
	writeErr   error
	closed     int
}

func (d *fakeDevice) Write(p []byte) (int, error) {
	if d.writeErr != nil {
		return 0, d.writeErr
	}
	d.written = append(d.written, p...)
	return len(p), nil
}

func (d *fakeDevice) Close() error { d.closed++; return nil }

func (d *fakeDevice) SetReadTimeout(t time.Duration) error {
	d.timeout = t
	return d.timeoutErr
}

// stubOpen 替换 openDevice 并记录打开参数
func stubOpen(t *testing.T, dev *fakeDevice, openErr error) (*string, **serial.Mode) {
	t.Helper()
	var gotName string
	var gotMode *serial.Mode
	orig := openDevice
	openDevice = func(name string, mode *serial.Mode) (device, error) {
		gotName, gotMode = name, mode
		if openErr != nil {
			return nil, openErr
		}
		return dev, nil
	}
	t.Cleanup(func() { openDevice = orig })
	return &gotName, &gotMode
}

func TestOpen_Mode(t *testing.T) {
	dev := &fakeDevice{}
	name, mode := stubOpen(t, dev, nil)

	p, err := Open(cfgpkg.SerialConfig{Device: "/dev/ttyUSB0", Timeout: 4 * time.Second})
	require.NoError(t, err)

	assert.Equal(t, "/dev/ttyUSB0", *name)
	require.NotNil(t, *mode)
	assert.Equal(t, DefaultBaudRate, (*mode).BaudRate)
	assert.Equal(t, 8, (*mode).DataBits)
	assert.Equal(t, serial.NoParity, (*mode).Parity)
	assert.Equal(t, serial.OneStopBit, (*mode).StopBits)
	assert.Equal(t, 4*time.Second, dev.timeout)
	assert.Equal(t, "/dev/ttyUSB0", p.Name())
}

func TestOpen_Errors(t *testing.T) {
	t.Run("打开失败", func(t *testing.T) {
		openErr := errors.New("no such device")
		stubOpen(t, nil, openErr)

		_, err := Open(cfgpkg.SerialConfig{Device: "/dev/ttyX"})
		require.Error(t, err)
		assert.ErrorIs(t, err, openErr)
		assert.Contains(t, err.Error(), "/dev/ttyX")
	})

	t.Run("设置超时失败时关闭串口", func(t *testing.T) {
		dev := &fakeDevice{timeoutErr: errors.New("ioctl")}
		stubOpen(t, dev, nil)

		_, err := Open(cfgpkg.SerialConfig{Device: "/dev/ttyUSB0", BaudRate: 9600, Timeout: time.Second})
		require.Error(t, err)
		assert.Equal(t, 1, dev.closed)
	})
}

func TestPort_WriteAndClose(t *testing.T) {
	dev := &fakeDevice{}
	stubOpen(t, dev, nil)

	p, err := Open(cfgpkg.SerialConfig{Device: "/dev/ttyUSB0"})
	require.NoError(t, err)

	n, err := p.Write([]byte{0x55, 0xAA})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []byte{0x55, 0xAA}, dev.written)

	st := p.Status()
	assert.True(t, st.Open)
	assert.Equal(t, int64(2), st.BytesWritten)
	assert.NoError(t, st.LastError)

	require.NoError(t, p.Close())
	require.NoError(t, p.Close())
	assert.Equal(t, 1, dev.closed)

	_, err = p.Write([]byte{0x00})
	assert.ErrorIs(t, err, io.ErrClosedPipe)
	assert.False(t, p.Status().Open)
}

func TestPort_WriteErrorUnchanged(t *testing.T) {
	writeErr := errors.New("write timeout")
	dev := &fakeDevice{writeErr: writeErr}
	stubOpen(t, dev, nil)

	p, err := Open(cfgpkg.SerialConfig{Device: "/dev/ttyUSB0"})
	require.NoError(t, err)

	_, err = p.Write([]byte{0x01})
	assert.Same(t, writeErr, err)
	assert.Same(t, writeErr, p.Status().LastError)
}
