package shutdown

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SlpAus/campus-election-backend/pkg/lifecycle"
)

const (
	httpTimeout       = 15 * time.Second
	backgroundTimeout = 10 * time.Second
)

// Closer 是停机最后一步需要释放的资源，例如数据库连接
type Closer struct {
	Name  string
	Close func() error
}

// Coordinator 负责编排应用程序的优雅停机流程
type Coordinator struct {
	manager *lifecycle.Manager
	closers []Closer
}

// NewCoordinator 创建一个新的停机协调器。closers 按给定顺序执行。
func NewCoordinator(manager *lifecycle.Manager, closers ...Closer) *Coordinator {
	return &Coordinator{manager: manager, closers: closers}
}

// ListenForSignalsAndShutdown 阻塞直到收到 SIGINT/SIGTERM，然后执行停机
func (c *Coordinator) ListenForSignalsAndShutdown(server *http.Server) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()
	slog.Info("收到关闭信号，开始优雅停机")
	c.Shutdown(server)
}

// Shutdown 依次关闭HTTP服务器、后台服务和持久化资源
func (c *Coordinator) Shutdown(server *http.Server) {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), httpTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP服务器关闭错误", "error", err)
	} else {
		slog.Info("HTTP服务器已关闭")
	}

	c.manager.Shutdown()
	if remaining := c.manager.WaitWithTimeout(backgroundTimeout); len(remaining) > 0 {
		slog.Warn("部分后台服务未能按时退出", "services", remaining)
	} else {
		slog.Info("所有后台服务已关闭")
	}

	for _, cl := range c.closers {
		if err := cl.Close(); err != nil {
			slog.Error("资源关闭失败", "resource", cl.Name, "error", err)
		}
	}
	slog.Info("优雅停机完成")
}
