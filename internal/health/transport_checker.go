package health

import (
	"context"
	"time"

	"github.com/taoyao-code/novastar-ctl/internal/serialport"
)

// StatusSource 串口状态来源
type StatusSource interface {
	Status() serialport.Status
}

// TransportChecker 串口链路健康检查器
// 串口关闭视为不健康；最近一次写失败视为降级
type TransportChecker struct {
	port StatusSource
}

// NewTransportChecker 创建串口健康检查器
func NewTransportChecker(port StatusSource) *TransportChecker {
	return &TransportChecker{port: port}
}

// Name 返回检查器名称
func (c *TransportChecker) Name() string {
	return "transport"
}

// Check 执行健康检查（只读取状态快照，不向控制器写任何字节）
func (c *TransportChecker) Check(ctx context.Context) CheckResult {
	start := time.Now()
	st := c.port.Status()

	details := map[string]interface{}{
		"device":        st.Name,
		"open":          st.Open,
		"bytes_written": st.BytesWritten,
	}

	if !st.Open {
		return finish(start, StatusUnhealthy, "serial port closed", details)
	}

	if st.LastError != nil {
		details["last_error"] = st.LastError.Error()
		return finish(start, StatusDegraded, "last write failed", details)
	}

	return finish(start, StatusHealthy, "ok", details)
}
