package health

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// StateKeySpace 显示状态缓存的键空间（*redisstorage.StateStore 实现）
type StateKeySpace interface {
	Ports(ctx context.Context) ([]int, error)
	PoolStats() *goredis.PoolStats
}

// RedisChecker 显示状态缓存健康检查器
// 通过遍历状态键空间检查缓存可读
type RedisChecker struct {
	states StateKeySpace
}

// NewRedisChecker 创建Redis健康检查器
func NewRedisChecker(states StateKeySpace) *RedisChecker {
	return &RedisChecker{states: states}
}

// Name 返回检查器名称
func (c *RedisChecker) Name() string {
	return "redis"
}

// Check 执行健康检查
// 状态缓存只是下发命令的旁路，读失败记为降级而非不健康
func (c *RedisChecker) Check(ctx context.Context) CheckResult {
	start := time.Now()

	ports, err := c.states.Ports(ctx)
	if err != nil {
		return finish(start, StatusDegraded, fmt.Sprintf("state key space unreadable: %v", err), nil)
	}

	details := map[string]interface{}{
		"cached_ports": len(ports),
	}
	if len(ports) > 0 {
		details["ports"] = ports
	}

	status, message := StatusHealthy, "ok"
	if stats := c.states.PoolStats(); stats != nil {
		utilization := 0.0
		if stats.TotalConns > 0 {
			utilization = float64(stats.TotalConns-stats.IdleConns) / float64(stats.TotalConns)
		}
		details["total_conns"] = stats.TotalConns
		details["idle_conns"] = stats.IdleConns
		details["timeouts"] = stats.Timeouts
		details["utilization"] = fmt.Sprintf("%.1f%%", utilization*100)

		if utilization > 0.9 {
			status, message = StatusDegraded, "connection pool near limit"
		}
	}

	return finish(start, status, message, details)
}
