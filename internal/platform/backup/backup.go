package backup

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/SlpAus/campus-election-backend/internal/ballot"
	"github.com/SlpAus/campus-election-backend/pkg/lifecycle"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const backupInterval = 10 * time.Minute // 定时备份频率

// TallySnapshot 是某一时刻 (职位, 候选人) 票数在SQLite中的镜像
type TallySnapshot struct {
	Position  string `gorm:"primaryKey;type:varchar(128)" json:"position"`
	Candidate string `gorm:"primaryKey;type:varchar(128)" json:"candidate"`
	Count     int    `json:"count"`
	UpdatedAt time.Time
}

// ResultsSource 提供当前的计票结果
type ResultsSource interface {
	ComputeResults(ctx context.Context) (*ballot.Results, error)
}

// Scheduler 定期把Redis中的计票结果写入SQLite，避免Redis数据丢失后无据可查
type Scheduler struct {
	mu       sync.Mutex
	db       *gorm.DB
	source   ResultsSource
	healthy  func() bool
	interval time.Duration
}

// NewScheduler 创建备份调度器。healthy 为nil时总是执行备份。
func NewScheduler(db *gorm.DB, source ResultsSource, healthy func() bool) *Scheduler {
	return &Scheduler{db: db, source: source, healthy: healthy, interval: backupInterval}
}

// Migrate 负责自动迁移快照表结构
func (s *Scheduler) Migrate() error {
	if err := s.db.AutoMigrate(&TallySnapshot{}); err != nil {
		return fmt.Errorf("无法迁移tally_snapshots表: %w", err)
	}
	return nil
}

// Run 按固定间隔执行备份，直到收到停机信号
func (s *Scheduler) Run(h *lifecycle.Handle) {
	slog.Info("计票备份调度器已启动", "interval", s.interval)
	for {
		if err := h.Sleep(s.interval); err != nil {
			slog.Info("计票备份调度器已停止")
			return
		}
		if s.healthy != nil && !s.healthy() {
			slog.Warn("备份调度器: 检测到Redis不可用，跳过本次备份")
			continue
		}
		if err := s.CreateSnapshot(h.Ctx()); err != nil {
			if h.Ctx().Err() == nil {
				slog.Error("备份调度器: 执行快照备份失败", "error", err)
			}
			continue
		}
		slog.Info("备份调度器: 快照备份成功")
	}
}

// CreateSnapshot 读取一次计票结果，并在一个SQLite事务中替换快照。
// Redis中已不存在的计数 (例如重置之后) 会从快照中删除。
func (s *Scheduler) CreateSnapshot(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	results, err := s.source.ComputeResults(ctx)
	if err != nil {
		return fmt.Errorf("无法读取计票结果: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	takenAt := time.Now().UTC()
	rows := make([]TallySnapshot, 0, len(results.Tallies))
	for k, n := range results.Tallies {
		rows = append(rows, TallySnapshot{Position: k.Position, Candidate: k.Candidate, Count: n, UpdatedAt: takenAt})
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(rows) > 0 {
			err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "position"}, {Name: "candidate"}},
				DoUpdates: clause.AssignmentColumns([]string{"count", "updated_at"}),
			}).Create(&rows).Error
			if err != nil {
				return fmt.Errorf("批量更新计票快照失败: %w", err)
			}
		}
		if err := tx.Where("updated_at < ?", takenAt).Delete(&TallySnapshot{}).Error; err != nil {
			return fmt.Errorf("清理过期计票快照失败: %w", err)
		}
		return nil
	})
}

// Latest 返回当前快照，按职位和候选人排序
func (s *Scheduler) Latest(ctx context.Context) ([]TallySnapshot, error) {
	var rows []TallySnapshot
	err := s.db.WithContext(ctx).Order("position").Order("candidate").Find(&rows).Error
	return rows, err
}

// GetSnapshot GET /results/snapshot
func (s *Scheduler) GetSnapshot(c *gin.Context) {
	rows, err := s.Latest(c.Request.Context())
	if err != nil {
		slog.Error("读取计票快照失败", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to fetch snapshot"})
		return
	}
	c.JSON(http.StatusOK, rows)
}
