package ballot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/SlpAus/campus-election-backend/internal/code"
	"github.com/redis/go-redis/v9"
)

// RemoveBallot 撤销某个学生最新的一张选票：从列表中移除、恢复投票码、回退计票，
// 并清除已投票标记与认证记录。列表中仍有该学生的其他选票时，保留已投票标记。
//
// 选票列表没有按键更新的原语，因此需要整表读取再重写。列表键与受影响的
// 计票键都处于 WATCH 之下，并发修改会使事务失败并重试。
func (s *Service) RemoveBallot(ctx context.Context, studentID string) (*Ballot, error) {
	var removed Ballot

	txf := func(tx *redis.Tx) error {
		removed = Ballot{}
		raw, err := tx.LRange(ctx, RecordsKey, 0, -1).Result()
		if err != nil {
			return fmt.Errorf("无法读取选票列表: %w", err)
		}

		index := -1
		for i, entry := range raw {
			var b Ballot
			if err := json.Unmarshal([]byte(entry), &b); err != nil {
				continue
			}
			if b.StudentID == studentID {
				index = i
				removed = b
				break
			}
		}
		if index == -1 {
			return ErrNotFound
		}

		// 同一学生可能还有更早的选票，此时标记和认证记录改为指向其中最新的一张
		var survivor *Ballot
		remaining := make([]interface{}, 0, len(raw)-1)
		for i, entry := range raw {
			if i == index {
				continue
			}
			remaining = append(remaining, entry)
			if survivor != nil || i < index {
				continue
			}
			var b Ballot
			if err := json.Unmarshal([]byte(entry), &b); err == nil && b.StudentID == studentID {
				survivor = &b
			}
		}

		decrements, err := readDecrements(ctx, tx, removed.Votes)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, RecordsKey)
			if len(remaining) > 0 {
				pipe.RPush(ctx, RecordsKey, remaining...)
			}
			if removed.Code != "" {
				code.QueueRestore(ctx, pipe, removed.Code)
			}
			for _, d := range decrements {
				if d.current == 1 {
					pipe.HDel(ctx, tallyKey(d.key.Position), d.key.Candidate)
				} else {
					pipe.HIncrBy(ctx, tallyKey(d.key.Position), d.key.Candidate, -1)
				}
			}
			if survivor != nil {
				pipe.Set(ctx, VotedFlagKey(studentID), "1", 0)
				pipe.Del(ctx, VoterAuthKey(studentID))
				pipe.HSet(ctx, VoterAuthKey(studentID), "name", survivor.Name, "code", survivor.Code)
			} else {
				pipe.Del(ctx, VotedFlagKey(studentID), VoterAuthKey(studentID))
			}
			return nil
		})
		return err
	}

	for i := 0; i < maxTxRetries; i++ {
		err := s.rdb.Watch(ctx, txf, RecordsKey)
		if err == nil {
			return &removed, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("撤销选票失败: %w", err)
	}
	return nil, ErrConflict
}

type decrement struct {
	key     TallyKey
	current int64
}

// readDecrements 在 WATCH 下读取选票涉及的计票值，并过滤掉缺失或非正的计数
func readDecrements(ctx context.Context, tx *redis.Tx, votes map[string]string) ([]decrement, error) {
	if len(votes) == 0 {
		return nil, nil
	}

	keys := make([]string, 0, len(votes))
	for position := range votes {
		keys = append(keys, tallyKey(position))
	}
	if err := tx.Watch(ctx, keys...).Err(); err != nil {
		return nil, fmt.Errorf("无法监视计票键: %w", err)
	}

	var out []decrement
	for position, candidate := range votes {
		k := TallyKey{Position: position, Candidate: candidateOrDefault(candidate)}
		value, err := tx.HGet(ctx, tallyKey(k.Position), k.Candidate).Result()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("无法读取计票 %s: %w", k, err)
		}
		current, err := strconv.ParseInt(value, 10, 64)
		if err != nil || current <= 0 {
			continue
		}
		out = append(out, decrement{key: k, current: current})
	}
	return out, nil
}
