package ballot

import (
	"context"
	"fmt"

	"github.com/SlpAus/campus-election-backend/internal/code"
	"github.com/SlpAus/campus-election-backend/internal/platform/database"
)

// ResetAll 清空所有计票、选票、已投票标记，并把每个投票码设回 unused。
// 这是不可逆的管理操作，各步骤之间不是原子的。
func (s *Service) ResetAll(ctx context.Context) error {
	tallyKeys, err := database.ScanKeys(ctx, s.rdb, tallyPattern)
	if err != nil {
		return fmt.Errorf("无法遍历计票键: %w", err)
	}
	flagKeys, err := database.ScanKeys(ctx, s.rdb, votedFlagPattern)
	if err != nil {
		return fmt.Errorf("无法遍历已投票标记: %w", err)
	}
	codeKeys, err := database.ScanKeys(ctx, s.rdb, code.KeyPattern)
	if err != nil {
		return fmt.Errorf("无法遍历投票码: %w", err)
	}

	// 池中的码即使缺失也要以 unused 结束
	codeSet := make(map[string]struct{}, len(codeKeys))
	for _, k := range codeKeys {
		codeSet[k] = struct{}{}
	}
	for _, c := range s.codes.Codes() {
		codeSet[code.Key(c)] = struct{}{}
	}

	pipe := s.rdb.Pipeline()
	for start := 0; start < len(tallyKeys); start += database.ScanBatchSize {
		pipe.Del(ctx, tallyKeys[start:min(start+database.ScanBatchSize, len(tallyKeys))]...)
	}
	pipe.Del(ctx, RecordsKey)
	for start := 0; start < len(flagKeys); start += database.ScanBatchSize {
		pipe.Del(ctx, flagKeys[start:min(start+database.ScanBatchSize, len(flagKeys))]...)
	}
	for k := range codeSet {
		pipe.Set(ctx, k, code.StateUnused, 0)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("重置投票数据失败: %w", err)
	}
	return nil
}
