package app

import (
	"go.uber.org/zap"

	cfgpkg "github.com/taoyao-code/novastar-ctl/internal/config"
	"github.com/taoyao-code/novastar-ctl/internal/health"
	redisstorage "github.com/taoyao-code/novastar-ctl/internal/storage/redis"
)

// NewRedisClient 创建Redis客户端，未启用时返回 nil, nil
func NewRedisClient(cfg cfgpkg.RedisConfig, logger *zap.Logger) (*redisstorage.Client, error) {
	if !cfg.Enabled {
		logger.Info("redis is disabled, skipping initialization")
		return nil, nil
	}

	client, err := redisstorage.NewClient(cfg)
	if err != nil {
		return nil, err
	}

	logger.Info("redis client initialized",
		zap.String("addr", cfg.Addr),
		zap.Int("pool_size", cfg.PoolSize))

	return client, nil
}

// NewStateStore 创建显示状态缓存
func NewStateStore(client *redisstorage.Client, cfg cfgpkg.RedisConfig) *redisstorage.StateStore {
	return redisstorage.NewStateStore(client, cfg.StateTTL)
}

// AddRedisChecker 添加状态缓存检查器到聚合器
func AddRedisChecker(aggregator *health.Aggregator, states *redisstorage.StateStore) {
	if states != nil {
		aggregator.AddChecker(health.NewRedisChecker(states))
	}
}
