package student

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/SlpAus/campus-election-backend/internal/platform/database"
	"github.com/redis/go-redis/v9"
)

var (
	ErrInvalidInput = errors.New("student id and name are required")
	ErrNotFound     = errors.New("student not found")
)

// Repository 是基于Redis Hash的学生档案仓库
type Repository struct {
	rdb *redis.Client
}

// NewRepository 创建学生档案仓库
func NewRepository(rdb *redis.Client) *Repository {
	return &Repository{rdb: rdb}
}

// Save 创建或覆盖一条学生档案
func (r *Repository) Save(ctx context.Context, s Student) error {
	if s.ID == "" || s.Name == "" {
		return ErrInvalidInput
	}
	if err := r.rdb.HSet(ctx, Key(s.ID), s.hashFields()).Err(); err != nil {
		return fmt.Errorf("无法保存学生 %s: %w", s.ID, err)
	}
	return nil
}

// Get 读取一条学生档案
func (r *Repository) Get(ctx context.Context, id string) (*Student, error) {
	h, err := r.rdb.HGetAll(ctx, Key(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("无法读取学生 %s: %w", id, err)
	}
	if len(h) == 0 {
		return nil, ErrNotFound
	}
	s := fromHash(id, h)
	return &s, nil
}

// List 返回所有学生档案，按ID排序
func (r *Repository) List(ctx context.Context) ([]Student, error) {
	keys, err := database.ScanKeys(ctx, r.rdb, keyPattern)
	if err != nil {
		return nil, fmt.Errorf("无法遍历学生档案: %w", err)
	}

	students := make([]Student, 0, len(keys))
	if len(keys) == 0 {
		return students, nil
	}

	pipe := r.rdb.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(keys))
	for i, key := range keys {
		cmds[i] = pipe.HGetAll(ctx, key)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("无法读取学生档案: %w", err)
	}

	for i, key := range keys {
		if h := cmds[i].Val(); len(h) > 0 {
			students = append(students, fromHash(idFromKey(key), h))
		}
	}
	sort.Slice(students, func(i, j int) bool { return students[i].ID < students[j].ID })
	return students, nil
}

// Update 只写入 patch 中的非空字段。档案不存在时返回 ErrNotFound。
func (r *Repository) Update(ctx context.Context, id string, patch Student) error {
	n, err := r.rdb.Exists(ctx, Key(id)).Result()
	if err != nil {
		return fmt.Errorf("无法检查学生 %s: %w", id, err)
	}
	if n == 0 {
		return ErrNotFound
	}

	fields := patch.hashFields()
	if len(fields) == 0 {
		return nil
	}
	if err := r.rdb.HSet(ctx, Key(id), fields).Err(); err != nil {
		return fmt.Errorf("无法更新学生 %s: %w", id, err)
	}
	return nil
}

// Delete 删除一条学生档案
func (r *Repository) Delete(ctx context.Context, id string) error {
	n, err := r.rdb.Del(ctx, Key(id)).Result()
	if err != nil {
		return fmt.Errorf("无法删除学生 %s: %w", id, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
