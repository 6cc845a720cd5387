package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"

	"leadinbox/internal/ailog"
	"leadinbox/internal/auth"
	"leadinbox/internal/config"
	"leadinbox/internal/conversation"
	"leadinbox/internal/httpapi"
	"leadinbox/internal/jobs"
	"leadinbox/internal/outbound"
	"leadinbox/internal/reporting"
	"leadinbox/internal/signature"
	"leadinbox/internal/tenant"
	"leadinbox/pkg/logger"
	"leadinbox/pkg/utils"
)

func main() {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env)
	slog.SetDefault(log)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	webhookVerifier := signature.NewVerifier(cfg.Trust.WebhookSecret)
	internalVerifier := signature.NewVerifier(cfg.Trust.InternalSecret)
	if webhookVerifier.Open() {
		log.Warn("webhook signature verification disabled (no META_APP_SECRET)")
	}
	if internalVerifier.Open() {
		log.Warn("internal signature verification disabled (no INTERNAL_SECRET)")
	}

	authManager := auth.NewManager(cfg.Auth)
	if authManager.Open() {
		log.Warn("operator auth disabled (no JWT_SECRET)")
	}

	var repo conversation.Repository
	if cfg.UseDB() {
		db, err := utils.OpenPostgres(rootCtx, "pgx", cfg.PostgresDSN(), utils.PostgresPoolConfig{})
		if err != nil {
			log.Error("postgres init failed", "err", err)
			os.Exit(1)
		}
		defer db.Close()
		repo = conversation.NewPostgresRepo(db)
	} else {
		log.Info("running on in-memory conversation store")
		repo = conversation.NewMemoryRepo()
	}

	rdb, err := utils.OpenRedis(rootCtx, utils.RedisConfig{Addr: cfg.RedisAddr()})
	if err != nil {
		log.Error("redis init failed", "err", err)
		os.Exit(1)
	}
	defer rdb.Close()

	scheduler := jobs.NewScheduler(asynq.RedisClientOpt{Addr: cfg.RedisAddr()}, log)
	defer scheduler.Close()

	tenants := tenant.SeedFromEnv(cfg.IsProduction())
	log.Info("tenants seeded", "count", tenants.Count())

	sender := outbound.NewGraphSender(cfg.Graph, log)
	convSvc := conversation.NewService(repo, tenants, scheduler, sender, cfg.Followup, log)
	aiLog := ailog.NewService(ailog.NewMemoryRepo())
	reports := reporting.NewService(repo, reporting.NewMemoryRepo(), log)

	if cfg.Report.SnapshotInterval > 0 {
		go reports.Run(rootCtx, cfg.Report.SnapshotInterval)
		log.Info("report snapshot loop started", "interval", cfg.Report.SnapshotInterval.String())
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))

	h := httpapi.Handlers{
		Conversations: convSvc,
		AILog:         aiLog,
		Reports:       reports,
		Clock:         time.Now,
	}
	registerRoutes(r, h,
		signature.RequireWebhook(webhookVerifier),
		signature.RequireInternal(internalVerifier),
		auth.RequireAccessToken(authManager),
	)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("api listening", "addr", srv.Addr, "env", cfg.App.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "err", err)
	}
}
