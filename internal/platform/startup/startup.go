package startup

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"
)

// Migrator 创建或升级持久化表结构
type Migrator interface {
	Migrate() error
}

// Seeder 幂等地写入投票码池
type Seeder interface {
	Seed(ctx context.Context) (int, error)
}

// Probe 描述一个外部依赖的启动检查。Required 为 false 时失败只记录警告。
type Probe struct {
	Name     string
	Required bool
	Check    func(ctx context.Context) error
}

// InitializeApplication 是应用启动时执行的总入口：
// 先迁移SQLite表并写入投票码池，再并发检查各外部依赖。
func InitializeApplication(ctx context.Context, seeder Seeder, migrators []Migrator, probes ...Probe) error {
	slog.Info("开始应用初始化")

	for _, m := range migrators {
		if err := m.Migrate(); err != nil {
			return fmt.Errorf("数据库迁移失败: %w", err)
		}
	}

	created, err := seeder.Seed(ctx)
	if err != nil {
		return fmt.Errorf("写入投票码池失败: %w", err)
	}
	slog.Info("投票码池已就绪", "created", created)

	g, gctx := errgroup.WithContext(ctx)
	for _, p := range probes {
		p := p
		g.Go(func() error {
			if err := p.Check(gctx); err != nil {
				if p.Required {
					return fmt.Errorf("依赖 %s 不可用: %w", p.Name, err)
				}
				slog.Warn("依赖检查失败，相关功能可能不可用", "dependency", p.Name, "error", err)
				return nil
			}
			slog.Info("依赖检查通过", "dependency", p.Name)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	slog.Info("应用初始化完成")
	return nil
}
