package ballot

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/SlpAus/campus-election-backend/internal/platform/database"
	"github.com/redis/go-redis/v9"
)

// ComputeResults 读取所有职位的计票和全部选票。纯读操作。
func (s *Service) ComputeResults(ctx context.Context) (*Results, error) {
	tallies, err := s.readTallies(ctx)
	if err != nil {
		return nil, err
	}

	raw, err := s.rdb.LRange(ctx, RecordsKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("无法读取选票列表: %w", err)
	}

	ballots := make([]Ballot, 0, len(raw))
	for _, entry := range raw {
		var b Ballot
		if err := json.Unmarshal([]byte(entry), &b); err != nil {
			slog.Warn("跳过无法解析的选票记录", "error", err)
			continue
		}
		if b.Name == "" {
			b.Name = UnknownVoter
		}
		ballots = append(ballots, b)
	}

	return &Results{Tallies: tallies, Ballots: ballots}, nil
}

func (s *Service) readTallies(ctx context.Context) (map[TallyKey]int, error) {
	keys, err := database.ScanKeys(ctx, s.rdb, tallyPattern)
	if err != nil {
		return nil, fmt.Errorf("无法遍历计票键: %w", err)
	}

	tallies := make(map[TallyKey]int)
	if len(keys) == 0 {
		return tallies, nil
	}

	pipe := s.rdb.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(keys))
	for i, key := range keys {
		cmds[i] = pipe.HGetAll(ctx, key)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("无法读取计票数据: %w", err)
	}

	for i, key := range keys {
		position := positionFromKey(key)
		for candidate, value := range cmds[i].Val() {
			count, err := strconv.Atoi(value)
			if err != nil {
				slog.Warn("跳过非整数的计票值", "key", key, "candidate", candidate, "value", value)
				continue
			}
			tallies[TallyKey{Position: position, Candidate: candidate}] = count
		}
	}
	return tallies, nil
}

// Flatten 把计票转换为 "<position>_<candidate>" -> count 的形式
func (r *Results) Flatten() map[string]int {
	out := make(map[string]int, len(r.Tallies))
	for k, v := range r.Tallies {
		out[k.String()] = v
	}
	return out
}
