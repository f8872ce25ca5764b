package health

import (
	"log/slog"
	"sync"
)

// State 定义了存储健康状态的枚举类型
type State int

const (
	StateHealthy State = iota
	StateDegraded
	StateRebuilding
)

func (s State) String() string {
	switch s {
	case StateHealthy:
		return "healthy"
	case StateDegraded:
		return "degraded"
	case StateRebuilding:
		return "rebuilding"
	default:
		return "unknown"
	}
}

// status 线程安全地维护当前状态和最近一次看到的 Redis run_id
type status struct {
	mu             sync.RWMutex
	current        State
	lastKnownRunID string
}

func (s *status) get() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

func (s *status) setInitialRunID(runID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastKnownRunID = runID
}

// assess 根据一次探测结果推进状态，并返回是否需要重新写入投票码池。
func (s *status) assess(connected bool, runID string) (needsRebuild bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	restarted := s.lastKnownRunID != "" && s.lastKnownRunID != runID

	switch s.current {
	case StateHealthy:
		if !connected {
			s.current = StateDegraded
			slog.Warn("健康检查: Redis连接丢失，状态 -> [降级]")
		} else if restarted {
			s.current = StateRebuilding
			needsRebuild = true
			slog.Warn("健康检查: 检测到Redis重启，状态 -> [重建中]", "from", s.lastKnownRunID, "to", runID)
		}
	case StateDegraded:
		if connected {
			if restarted {
				s.current = StateRebuilding
				needsRebuild = true
				slog.Warn("健康检查: Redis已恢复但检测到重启，状态 -> [重建中]", "from", s.lastKnownRunID, "to", runID)
			} else {
				s.current = StateHealthy
				slog.Info("健康检查: Redis连接已恢复，状态 -> [健康]")
			}
		}
	case StateRebuilding:
		if !connected {
			s.current = StateDegraded
			slog.Warn("健康检查: 重建期间Redis连接再次丢失，状态 -> [降级]")
		} else {
			// 仍处于重建状态说明上次重建失败
			needsRebuild = true
			slog.Info("健康检查: 再次尝试重建投票码池")
		}
	}

	if connected {
		s.lastKnownRunID = runID
	}
	return needsRebuild
}

// markRebuildComplete 在一次重建尝试结束后调用。
// 重建期间 run_id 再次变化时视为无效，保持 [重建中]。
func (s *status) markRebuildComplete(success bool, runIDAfter string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current != StateRebuilding {
		return
	}
	if success && s.lastKnownRunID != runIDAfter {
		slog.Error("健康检查: 重建期间Redis再次重启，重建无效", "from", s.lastKnownRunID, "to", runIDAfter)
		s.lastKnownRunID = runIDAfter
		return
	}
	if success {
		s.current = StateHealthy
		slog.Info("健康检查: 投票码池重建成功，状态 -> [健康]")
		return
	}
	slog.Error("健康检查: 投票码池重建失败，保持 [重建中] 以待重试")
}
