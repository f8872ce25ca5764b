package ballot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/SlpAus/campus-election-backend/internal/code"
	"github.com/redis/go-redis/v9"
)

// RecordBallot 校验投票码并记录一张选票。
//
// 投票码键在 WATCH 之下读取，计票、写入选票、已投票标记、投票码状态与认证记录
// 在同一个 MULTI 中提交。投票码在此期间被修改时事务失败，重新读取后再试。
func (s *Service) RecordBallot(ctx context.Context, studentID string, votes map[string]string, voterName, voteCode string) error {
	if studentID == "" || len(votes) == 0 || voteCode == "" {
		return ErrInvalidInput
	}

	ballot := Ballot{
		StudentID: studentID,
		Name:      voterName,
		Code:      voteCode,
		Votes:     votes,
		Time:      formatTime(s.now()),
	}
	payload, err := json.Marshal(ballot)
	if err != nil {
		return fmt.Errorf("无法序列化选票: %w", err)
	}

	txf := func(tx *redis.Tx) error {
		status, err := code.CheckWith(ctx, tx, voteCode)
		if err != nil {
			return err
		}
		switch status {
		case code.StatusNotFound:
			return ErrCodeNotFound
		case code.StatusAlreadyUsed:
			return ErrCodeAlreadyUsed
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			for position, candidate := range votes {
				pipe.HIncrBy(ctx, tallyKey(position), candidateOrDefault(candidate), 1)
			}
			pipe.LPush(ctx, RecordsKey, payload)
			pipe.Set(ctx, VotedFlagKey(studentID), "1", 0)
			code.QueueMarkUsed(ctx, pipe, voteCode)
			pipe.HSet(ctx, VoterAuthKey(studentID), "name", voterName, "code", voteCode)
			return nil
		})
		return err
	}

	for i := 0; i < maxTxRetries; i++ {
		err := s.rdb.Watch(ctx, txf, code.Key(voteCode))
		if err == nil {
			return nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if errors.Is(err, ErrCodeNotFound) || errors.Is(err, ErrCodeAlreadyUsed) {
			return err
		}
		return fmt.Errorf("记录选票失败: %w", err)
	}
	return ErrConflict
}
