package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/SlpAus/campus-election-backend/api"
	"github.com/SlpAus/campus-election-backend/internal/audit"
	"github.com/SlpAus/campus-election-backend/internal/ballot"
	"github.com/SlpAus/campus-election-backend/internal/candidate"
	"github.com/SlpAus/campus-election-backend/internal/code"
	"github.com/SlpAus/campus-election-backend/internal/idcheck"
	"github.com/SlpAus/campus-election-backend/internal/media"
	"github.com/SlpAus/campus-election-backend/internal/platform/backup"
	"github.com/SlpAus/campus-election-backend/internal/platform/config"
	"github.com/SlpAus/campus-election-backend/internal/platform/database"
	"github.com/SlpAus/campus-election-backend/internal/platform/health"
	"github.com/SlpAus/campus-election-backend/internal/platform/shutdown"
	"github.com/SlpAus/campus-election-backend/internal/platform/startup"
	"github.com/SlpAus/campus-election-backend/internal/student"
	"github.com/SlpAus/campus-election-backend/internal/voter"
	"github.com/SlpAus/campus-election-backend/pkg/lifecycle"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func fatal(msg string, err error) {
	slog.Error(msg, "error", err)
	os.Exit(1)
}

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("读取 .env 失败", "error", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		fatal("无法加载配置", err)
	}
	gin.SetMode(cfg.Server.Mode)

	ctx := context.Background()
	rdb, err := database.NewRedis(ctx, cfg.Database.Redis)
	if err != nil {
		fatal("无法连接Redis", err)
	}
	db, err := database.OpenSQLite(cfg.Database.Sqlite)
	if err != nil {
		fatal("无法打开审计数据库", err)
	}

	registry := code.NewRegistry(rdb, cfg.Election.Codes)
	events := audit.NewLog(db)
	ballots := ballot.NewService(rdb, registry)
	store := media.NewSupabaseStore(cfg.Storage)
	ocr := idcheck.NewTesseractCLI(cfg.OCR)

	monitor := health.NewMonitor(health.RedisRunID(rdb), registry)
	snapshots := backup.NewScheduler(db, ballots, monitor.Healthy)

	err = startup.InitializeApplication(ctx, registry, []startup.Migrator{events, snapshots},
		startup.Probe{Name: "redis", Required: true, Check: func(ctx context.Context) error { return rdb.Ping(ctx).Err() }},
		startup.Probe{Name: "storage", Check: store.Probe},
		startup.Probe{Name: "ocr", Check: ocr.Probe},
	)
	if err != nil {
		fatal("应用初始化失败，无法启动", err)
	}

	if err := monitor.Initialize(ctx); err != nil {
		fatal("无法在启动时获取Redis Run ID", err)
	}
	manager := lifecycle.NewManager()
	if err := manager.Go("redis-health", monitor.Run); err != nil {
		fatal("无法启动健康检查", err)
	}
	if err := manager.Go("tally-backup", snapshots.Run); err != nil {
		fatal("无法启动计票备份", err)
	}

	r := gin.Default()
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.Cors.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))
	r.Use(api.LimitBody(cfg.Server.MaxBodyBytes))

	api.SetupRoutes(r, api.Handlers{
		Ballot:       ballot.NewHandler(ballots, registry, events),
		Voter:        voter.NewHandler(voter.NewService(rdb, registry), events),
		Student:      student.NewHandler(student.NewRepository(rdb)),
		Candidate:    candidate.NewHandler(candidate.NewRepository(rdb)),
		Media:        media.NewHandler(store),
		IDCheck:      idcheck.NewHandler(idcheck.NewVerifier(ocr, cfg.OCR.Keywords)),
		Audit:        audit.NewHandler(events),
		Snapshot:     snapshots.GetSnapshot,
		RequireStore: monitor.RequireHealthyStore(),
	})

	server := &http.Server{
		Addr:    cfg.Server.ListenAddress(),
		Handler: r,
	}

	coordinator := shutdown.NewCoordinator(manager,
		shutdown.Closer{Name: "final-snapshot", Close: func() error { return snapshots.CreateSnapshot(context.Background()) }},
		shutdown.Closer{Name: "sqlite", Close: func() error { return database.CloseSQLite(db) }},
		shutdown.Closer{Name: "redis", Close: rdb.Close},
	)

	go func() {
		slog.Info("服务器已准备就绪", "address", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fatal("服务器启动失败", err)
		}
	}()

	coordinator.ListenForSignalsAndShutdown(server)
}
