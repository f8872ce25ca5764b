package code

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// Status 是一次投票码检查的结果
type Status int

const (
	StatusValid Status = iota
	StatusNotFound
	StatusAlreadyUsed
)

func (s Status) String() string {
	switch s {
	case StatusValid:
		return "valid"
	case StatusNotFound:
		return "not_found"
	case StatusAlreadyUsed:
		return "already_used"
	default:
		return "unknown"
	}
}

var (
	ErrNotFound    = errors.New("code does not exist")
	ErrAlreadyUsed = errors.New("code already used")
)

// Err 把非Valid的检查结果转换为对应的哨兵错误
func (s Status) Err() error {
	switch s {
	case StatusNotFound:
		return ErrNotFound
	case StatusAlreadyUsed:
		return ErrAlreadyUsed
	default:
		return nil
	}
}

// Getter 是检查投票码所需的最小Redis能力，*redis.Client 和 *redis.Tx 都满足它。
type Getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

// Registry 管理固定的投票码池及其 unused/used 状态
type Registry struct {
	rdb   *redis.Client
	codes []string
}

// NewRegistry 创建投票码注册表。codes 为空时使用 DefaultCodes。
func NewRegistry(rdb *redis.Client, codes []string) *Registry {
	if len(codes) == 0 {
		codes = DefaultCodes
	}
	pool := make([]string, len(codes))
	copy(pool, codes)
	return &Registry{rdb: rdb, codes: pool}
}

// Codes 返回投票码池的副本
func (r *Registry) Codes() []string {
	out := make([]string, len(r.codes))
	copy(out, r.codes)
	return out
}

// Seed 为池中每个投票码写入 unused，但只在该码尚不存在时写入 (SETNX)。
// 进程每次启动都可以安全调用，不会重置已使用的码。返回新建的数量。
func (r *Registry) Seed(ctx context.Context) (int, error) {
	pipe := r.rdb.Pipeline()
	cmds := make([]*redis.BoolCmd, len(r.codes))
	for i, c := range r.codes {
		cmds[i] = pipe.SetNX(ctx, Key(c), StateUnused, 0)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("写入投票码池失败: %w", err)
	}

	created := 0
	for _, cmd := range cmds {
		if cmd.Val() {
			created++
		}
	}
	slog.Info("投票码池已就绪", "total", len(r.codes), "created", created)
	return created, nil
}

// Check 查询投票码状态
func (r *Registry) Check(ctx context.Context, code string) (Status, error) {
	return CheckWith(ctx, r.rdb, code)
}

// CheckWith 使用给定的连接查询投票码状态，供 WATCH 事务内部使用
func CheckWith(ctx context.Context, g Getter, code string) (Status, error) {
	state, err := g.Get(ctx, Key(code)).Result()
	if err == redis.Nil {
		return StatusNotFound, nil
	}
	if err != nil {
		return StatusNotFound, fmt.Errorf("无法读取投票码 %s: %w", code, err)
	}
	if state == StateUsed {
		return StatusAlreadyUsed, nil
	}
	return StatusValid, nil
}

// MarkUsed 把投票码标记为已使用。重复标记的检查由调用方负责。
func (r *Registry) MarkUsed(ctx context.Context, code string) error {
	if err := r.rdb.Set(ctx, Key(code), StateUsed, 0).Err(); err != nil {
		return fmt.Errorf("无法标记投票码 %s: %w", code, err)
	}
	return nil
}

// Restore 把投票码恢复为未使用
func (r *Registry) Restore(ctx context.Context, code string) error {
	if err := r.rdb.Set(ctx, Key(code), StateUnused, 0).Err(); err != nil {
		return fmt.Errorf("无法恢复投票码 %s: %w", code, err)
	}
	return nil
}

// QueueMarkUsed 在调用方的 pipeline/事务中排入“标记已使用”
func QueueMarkUsed(ctx context.Context, pipe redis.Pipeliner, code string) {
	pipe.Set(ctx, Key(code), StateUsed, 0)
}

// QueueRestore 在调用方的 pipeline/事务中排入“恢复未使用”
func QueueRestore(ctx context.Context, pipe redis.Pipeliner, code string) {
	pipe.Set(ctx, Key(code), StateUnused, 0)
}
