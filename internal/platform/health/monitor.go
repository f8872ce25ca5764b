package health

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"regexp"
	"time"

	"github.com/SlpAus/campus-election-backend/pkg/lifecycle"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

const (
	checkInterval = 5 * time.Second
	probeTimeout  = 2 * time.Second
)

var runIDPattern = regexp.MustCompile(`run_id:([a-f0-9]+)`)

// RunIDFunc 返回 Redis 实例当前的 run_id。出错即视为连接不可用。
type RunIDFunc func(ctx context.Context) (string, error)

// Seeder 在 Redis 重启后把投票码池写回存储。必须是幂等的。
type Seeder interface {
	Seed(ctx context.Context) (int, error)
}

func parseRunID(info string) (string, error) {
	m := runIDPattern.FindStringSubmatch(info)
	if len(m) < 2 {
		return "", errors.New("无法在Redis INFO中找到run_id")
	}
	return m[1], nil
}

// RedisRunID 通过 INFO server 读取 run_id
func RedisRunID(rdb *redis.Client) RunIDFunc {
	return func(ctx context.Context) (string, error) {
		info, err := rdb.Info(ctx, "server").Result()
		if err != nil {
			return "", err
		}
		return parseRunID(info)
	}
}

// Monitor 周期性检查 Redis 的可用性，并在检测到重启后重建投票码池。
type Monitor struct {
	status   status
	runID    RunIDFunc
	seeder   Seeder
	interval time.Duration
}

// NewMonitor 创建健康监视器，初始状态为健康
func NewMonitor(runID RunIDFunc, seeder Seeder) *Monitor {
	return &Monitor{runID: runID, seeder: seeder, interval: checkInterval}
}

func (m *Monitor) probe(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	return m.runID(ctx)
}

// Initialize 在启动时记录初始 run_id
func (m *Monitor) Initialize(ctx context.Context) error {
	runID, err := m.probe(ctx)
	if err != nil {
		return err
	}
	m.status.setInitialRunID(runID)
	slog.Info("获取初始Redis Run ID成功", "run_id", runID)
	return nil
}

// State 返回当前状态
func (m *Monitor) State() State {
	return m.status.get()
}

// Healthy 报告存储当前是否可以接受写入
func (m *Monitor) Healthy() bool {
	return m.status.get() == StateHealthy
}

// Check 执行一次探测，必要时重建投票码池
func (m *Monitor) Check(ctx context.Context) {
	runID, err := m.probe(ctx)
	if !m.status.assess(err == nil, runID) {
		return
	}

	created, seedErr := m.seeder.Seed(ctx)
	if seedErr != nil {
		slog.Error("健康检查: 重建投票码池失败", "error", seedErr)
	} else {
		slog.Info("健康检查: 投票码池已重建", "created", created)
	}

	after, err := m.probe(ctx)
	m.status.markRebuildComplete(seedErr == nil && err == nil, after)
}

// Run 按固定间隔执行检查，直到收到停机信号
func (m *Monitor) Run(h *lifecycle.Handle) {
	slog.Info("Redis健康检查器已启动", "interval", m.interval)
	for {
		if err := h.Sleep(m.interval); err != nil {
			slog.Info("Redis健康检查器已停止")
			return
		}
		m.Check(h.Ctx())
	}
}

// RequireHealthyStore 在存储不可用时以 503 拒绝请求
func (m *Monitor) RequireHealthyStore() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !m.Healthy() {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"message": "Service temporarily unavailable"})
			return
		}
		c.Next()
	}
}
