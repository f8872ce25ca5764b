package candidate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// ListKey 是一个Redis字符串，保存候选人数组的JSON
const ListKey = "candidates"

const maxTxRetries = 5

var (
	ErrIndexOutOfRange = errors.New("candidate index out of range")
	ErrConflict        = errors.New("candidate list changed concurrently")
)

// Candidate 是一名候选人
type Candidate struct {
	Name     string `json:"name" binding:"required"`
	Position string `json:"position" binding:"required"`
	Party    string `json:"party,omitempty"`
	Photo    string `json:"photo,omitempty"`
	Platform string `json:"platform,omitempty"`
}

// Repository 管理候选人列表
type Repository struct {
	rdb *redis.Client
}

// NewRepository 创建候选人仓库
func NewRepository(rdb *redis.Client) *Repository {
	return &Repository{rdb: rdb}
}

func load(ctx context.Context, g interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}) ([]Candidate, error) {
	raw, err := g.Get(ctx, ListKey).Result()
	if err == redis.Nil {
		return []Candidate{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("无法读取候选人列表: %w", err)
	}
	var list []Candidate
	if err := json.Unmarshal([]byte(raw), &list); err != nil {
		return nil, fmt.Errorf("无法解析候选人列表: %w", err)
	}
	if list == nil {
		list = []Candidate{}
	}
	return list, nil
}

// List 返回所有候选人
func (r *Repository) List(ctx context.Context) ([]Candidate, error) {
	return load(ctx, r.rdb)
}

// Upsert 在 index 有效时替换该位置的候选人，否则追加到末尾
func (r *Repository) Upsert(ctx context.Context, index *int, c Candidate) error {
	return r.modify(ctx, func(list []Candidate) ([]Candidate, error) {
		if index != nil && *index >= 0 && *index < len(list) {
			list[*index] = c
			return list, nil
		}
		return append(list, c), nil
	})
}

// Delete 删除指定位置的候选人
func (r *Repository) Delete(ctx context.Context, index int) error {
	return r.modify(ctx, func(list []Candidate) ([]Candidate, error) {
		if index < 0 || index >= len(list) {
			return nil, ErrIndexOutOfRange
		}
		return append(list[:index], list[index+1:]...), nil
	})
}

// modify 在 WATCH 之下对整个列表做读-改-写
func (r *Repository) modify(ctx context.Context, fn func([]Candidate) ([]Candidate, error)) error {
	txf := func(tx *redis.Tx) error {
		list, err := load(ctx, tx)
		if err != nil {
			return err
		}
		list, err = fn(list)
		if err != nil {
			return err
		}
		payload, err := json.Marshal(list)
		if err != nil {
			return fmt.Errorf("无法序列化候选人列表: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, ListKey, payload, 0)
			return nil
		})
		return err
	}

	for i := 0; i < maxTxRetries; i++ {
		err := r.rdb.Watch(ctx, txf, ListKey)
		if !errors.Is(err, redis.TxFailedErr) {
			return err
		}
	}
	return ErrConflict
}
