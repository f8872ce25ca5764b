package audit

import (
	"context"
	"fmt"
	"log/slog"

	"gorm.io/gorm"
)

// MaxListLimit 是单次查询返回的最大事件数
const MaxListLimit = 500

// Log 是基于gorm的审计日志仓库
type Log struct {
	db *gorm.DB
}

// NewLog 创建审计日志仓库
func NewLog(db *gorm.DB) *Log {
	return &Log{db: db}
}

// Migrate 负责自动迁移审计表结构
func (l *Log) Migrate() error {
	if err := l.db.AutoMigrate(&Event{}); err != nil {
		return fmt.Errorf("无法迁移audit表: %w", err)
	}
	slog.Info("Audit数据库表迁移成功")
	return nil
}

// Record 写入一条审计事件
func (l *Log) Record(ctx context.Context, ev *Event) error {
	if err := l.db.WithContext(ctx).Create(ev).Error; err != nil {
		return fmt.Errorf("无法写入审计事件: %w", err)
	}
	return nil
}

// Note 尽力写入一条审计事件，失败只记录日志，不影响调用方
func (l *Log) Note(ctx context.Context, kind Kind, studentID, code, detail string) {
	ev := &Event{Kind: kind, StudentID: studentID, Code: code, Detail: detail}
	if err := l.Record(ctx, ev); err != nil {
		slog.Warn("审计事件写入失败", "kind", kind, "studentID", studentID, "error", err)
	}
}

// Recent 按时间倒序返回最近 limit 条事件，可按学生过滤
func (l *Log) Recent(ctx context.Context, limit int, studentID string) ([]Event, error) {
	if limit <= 0 || limit > MaxListLimit {
		limit = MaxListLimit
	}
	query := l.db.WithContext(ctx).Order("id desc").Limit(limit)
	if studentID != "" {
		query = query.Where("student_id = ?", studentID)
	}

	var events []Event
	if err := query.Find(&events).Error; err != nil {
		return nil, fmt.Errorf("无法查询审计事件: %w", err)
	}
	return events, nil
}
