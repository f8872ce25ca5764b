package database

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// ScanBatchSize 是每次SCAN请求的COUNT提示值
const ScanBatchSize = 100

// ScanKeys 使用游标式的SCAN遍历所有匹配pattern的键。
// 与KEYS不同，它不会在键空间较大时阻塞Redis。
func ScanKeys(ctx context.Context, rdb redis.Cmdable, pattern string) ([]string, error) {
	var keys []string
	var cursor uint64
	for {
		batch, next, err := rdb.Scan(ctx, cursor, pattern, ScanBatchSize).Result()
		if err != nil {
			return nil, err
		}
		keys = append(keys, batch...)
		cursor = next
		if cursor == 0 {
			break
		}
	}
	return dedupe(keys), nil
}

// SCAN 可能重复返回同一个键
func dedupe(keys []string) []string {
	seen := make(map[string]struct{}, len(keys))
	out := keys[:0]
	for _, k := range keys {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}
