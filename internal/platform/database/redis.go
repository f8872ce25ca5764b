package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/SlpAus/campus-election-backend/internal/platform/config"
	"github.com/redis/go-redis/v9"
)

const connectTimeout = 5 * time.Second

// NewRedis 根据配置创建Redis客户端，并用Ping命令确认连接可用。
// URL 优先于 Address/Password/DB。
func NewRedis(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	var opts *redis.Options
	if cfg.URL != "" {
		parsed, err := redis.ParseURL(cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("无法解析Redis URL: %w", err)
		}
		opts = parsed
	} else {
		opts = &redis.Options{
			Addr:     cfg.Address,
			Password: cfg.Password,
			DB:       cfg.DB,
		}
	}

	rdb := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("无法连接到Redis: %w", err)
	}

	slog.Info("Redis 连接成功", "addr", opts.Addr, "db", opts.DB)
	return rdb, nil
}
