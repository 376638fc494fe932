package app

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	cfgpkg "github.com/taoyao-code/novastar-ctl/internal/config"
	pgstorage "github.com/taoyao-code/novastar-ctl/internal/storage/pg"
)

// ConnectDBAndMigrate 建立数据库连接并按需执行迁移
// DSN 为空时不启用命令日志，返回 nil, nil
func ConnectDBAndMigrate(ctx context.Context, cfg cfgpkg.DatabaseConfig, log *zap.Logger) (*pgxpool.Pool, error) {
	if cfg.DSN == "" {
		log.Info("database dsn empty, command log disabled")
		return nil, nil
	}

	dbpool, err := pgstorage.NewPool(ctx, cfg, log)
	if err != nil {
		log.Error("db connect error", zap.Error(err))
		return nil, err
	}
	if cfg.AutoMigrate {
		applied, err := pgstorage.Migrate(ctx, dbpool)
		if err != nil {
			log.Error("db migrate error", zap.Error(err))
			return dbpool, err
		}
		log.Info("db migrations applied", zap.Int64s("versions", applied))
	}
	return dbpool, nil
}

// NewCommandLog 命令审计日志
func NewCommandLog(dbpool *pgxpool.Pool, instanceID string) *pgstorage.CommandLog {
	return &pgstorage.CommandLog{Pool: dbpool, InstanceID: instanceID}
}
