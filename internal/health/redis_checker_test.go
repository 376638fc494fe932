package health

import (
	"context"
	"errors"
	"testing"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

type fakeStates struct {
	ports []int
	err   error
	stats *goredis.PoolStats
}

func (f *fakeStates) Ports(ctx context.Context) ([]int, error) { return f.ports, f.err }
func (f *fakeStates) PoolStats() *goredis.PoolStats            { return f.stats }

func TestRedisChecker(t *testing.T) {
	tests := []struct {
		name   string
		states *fakeStates
		want   Status
		cached int
	}{
		{"键空间可读", &fakeStates{ports: []int{1, 3}, stats: &goredis.PoolStats{TotalConns: 4, IdleConns: 3}}, StatusHealthy, 2},
		{"尚无缓存", &fakeStates{stats: &goredis.PoolStats{}}, StatusHealthy, 0},
		{"连接池将满", &fakeStates{ports: []int{1}, stats: &goredis.PoolStats{TotalConns: 10}}, StatusDegraded, 1},
		{"无连接池统计", &fakeStates{ports: []int{2}}, StatusHealthy, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := NewRedisChecker(tt.states).Check(context.Background())
			assert.Equal(t, tt.want, res.Status)
			assert.Equal(t, tt.cached, res.Details["cached_ports"])
		})
	}

	t.Run("键空间不可读", func(t *testing.T) {
		res := NewRedisChecker(&fakeStates{err: errors.New("connection refused")}).Check(context.Background())
		assert.Equal(t, StatusDegraded, res.Status)
		assert.Contains(t, res.Message, "state key space unreadable")
		assert.Contains(t, res.Message, "connection refused")
	})

	assert.Equal(t, "redis", NewRedisChecker(&fakeStates{}).Name())
}

func TestWorse(t *testing.T) {
	assert.Equal(t, StatusDegraded, Worse(StatusHealthy, StatusDegraded))
	assert.Equal(t, StatusUnhealthy, Worse(StatusUnhealthy, StatusDegraded))
	assert.Equal(t, StatusHealthy, Worse(StatusHealthy, StatusHealthy))
	assert.Equal(t, Status("unknown"), Worse(StatusDegraded, Status("unknown")))
}
