package voter

import (
	"context"
	"errors"
	"fmt"

	"github.com/SlpAus/campus-election-backend/internal/ballot"
	"github.com/SlpAus/campus-election-backend/internal/code"
	"github.com/redis/go-redis/v9"
)

var (
	ErrInvalidInput = errors.New("studentID, name and code are required")
	ErrNotFound     = errors.New("voter not found")
)

// AuthRecord 是学生最近一次认证时的身份信息
type AuthRecord struct {
	Name string `json:"name" redis:"name"`
	Code string `json:"code" redis:"code"`
}

// Session 是登录查询的结果
type Session struct {
	Voter        AuthRecord `json:"voter"`
	AlreadyVoted bool       `json:"alreadyVoted"`
}

// Service 管理投票人认证记录
type Service struct {
	rdb   *redis.Client
	codes *code.Registry
}

// NewService 创建投票人服务
func NewService(rdb *redis.Client, codes *code.Registry) *Service {
	return &Service{rdb: rdb, codes: codes}
}

// MarkCodeUsed 把投票码标记为已使用，并更新该学生的认证记录。两者在同一个 MULTI 中提交。
func (s *Service) MarkCodeUsed(ctx context.Context, voteCode, studentID, name string) error {
	if voteCode == "" || studentID == "" || name == "" {
		return ErrInvalidInput
	}

	status, err := s.codes.Check(ctx, voteCode)
	if err != nil {
		return err
	}
	if status == code.StatusNotFound {
		return code.ErrNotFound
	}

	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		code.QueueMarkUsed(ctx, pipe, voteCode)
		pipe.HSet(ctx, ballot.VoterAuthKey(studentID), "name", name, "code", voteCode)
		return nil
	})
	if err != nil {
		return fmt.Errorf("无法标记投票码: %w", err)
	}
	return nil
}

// Login 返回学生的认证记录以及是否已经投票
func (s *Service) Login(ctx context.Context, studentID string) (*Session, error) {
	if studentID == "" {
		return nil, ErrNotFound
	}

	pipe := s.rdb.Pipeline()
	authCmd := pipe.HGetAll(ctx, ballot.VoterAuthKey(studentID))
	votedCmd := pipe.Exists(ctx, ballot.VotedFlagKey(studentID))
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("无法读取投票人 %s: %w", studentID, err)
	}

	if len(authCmd.Val()) == 0 {
		return nil, ErrNotFound
	}
	var record AuthRecord
	if err := authCmd.Scan(&record); err != nil {
		return nil, fmt.Errorf("无法解析投票人 %s: %w", studentID, err)
	}

	return &Session{Voter: record, AlreadyVoted: votedCmd.Val() > 0}, nil
}
