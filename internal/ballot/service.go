package ballot

import (
	"time"

	"github.com/SlpAus/campus-election-backend/internal/code"
	"github.com/redis/go-redis/v9"
)

// maxTxRetries 是 WATCH 事务被并发修改打断后的最大重试次数
const maxTxRetries = 5

// Service 实现投票、计票、撤销与重置。
// 所有状态都在Redis中，Service 本身不缓存任何数据。
type Service struct {
	rdb   *redis.Client
	codes *code.Registry
	now   func() time.Time
}

// NewService 创建投票服务
func NewService(rdb *redis.Client, codes *code.Registry) *Service {
	return &Service{
		rdb:   rdb,
		codes: codes,
		now:   func() time.Time { return time.Now().UTC() },
	}
}
