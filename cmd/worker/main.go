package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"

	"leadinbox/internal/config"
	"leadinbox/internal/draft"
	"leadinbox/internal/ingress"
	"leadinbox/internal/intent"
	"leadinbox/internal/jobs"
	"leadinbox/internal/llm"
	"leadinbox/internal/signature"
	"leadinbox/internal/workers"
	"leadinbox/pkg/logger"
)

func main() {
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

	model := llm.NewClient(cfg.Model)
	if !model.Enabled() {
		log.Info("no model endpoint configured, running heuristic-only")
	}

	ing := ingress.NewClient(cfg.InternalURL(), signature.NewVerifier(cfg.Trust.InternalSecret))

	h := workers.NewHandlers(
		intent.NewClassifier(model, log),
		draft.NewGenerator(model, log),
		ing,
	)

	srv := asynq.NewServer(
		asynq.RedisClientOpt{Addr: cfg.RedisAddr()},
		asynq.Config{
			Concurrency: 10,
			Queues:      map[string]int{jobs.Queue: 1},
		},
	)

	mux := asynq.NewServeMux()
	mux.Use(workers.TaskLogging(log))
	h.Register(mux)

	if err := srv.Start(mux); err != nil {
		log.Error("worker start failed", "err", err)
		os.Exit(1)
	}
	log.Info("worker started", "redis", cfg.RedisAddr(), "ingress", cfg.InternalURL())

	<-rootCtx.Done()
	log.Info("shutdown initiated")
	srv.Shutdown()
}
