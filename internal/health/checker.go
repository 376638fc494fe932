package health

import (
	"context"
	"time"
)

// Status 健康状态
type Status string

const (
	StatusHealthy   Status = "healthy"   // 控制器链路与存储均正常
	StatusDegraded  Status = "degraded"  // 仍可下发命令，但审计或状态缓存受损
	StatusUnhealthy Status = "unhealthy" // 无法向控制器下发命令
)

// severity 越大越严重，未知状态按不健康处理
func (s Status) severity() int {
	switch s {
	case StatusHealthy:
		return 0
	case StatusDegraded:
		return 1
	default:
		return 2
	}
}

// Worse 返回两者中更严重的状态
func Worse(a, b Status) Status {
	if b.severity() > a.severity() {
		return b
	}
	return a
}

// CheckResult 健康检查结果
type CheckResult struct {
	Status  Status                 `json:"status"`
	Message string                 `json:"message,omitempty"`
	Details map[string]interface{} `json:"details,omitempty"`
	Latency time.Duration          `json:"latency"`
}

// finish 以 start 计算耗时生成检查结果
func finish(start time.Time, status Status, message string, details map[string]interface{}) CheckResult {
	return CheckResult{
		Status:  status,
		Message: message,
		Details: details,
		Latency: time.Since(start),
	}
}

// Checker 健康检查器接口
type Checker interface {
	Name() string
	Check(ctx context.Context) CheckResult
}
