package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/alphapulse/internal/analysis"
	"github.com/wonny/alphapulse/internal/api"
	"github.com/wonny/alphapulse/internal/api/handlers"
	"github.com/wonny/alphapulse/internal/contracts"
	"github.com/wonny/alphapulse/internal/ingest"
	"github.com/wonny/alphapulse/internal/scheduler"
	"github.com/wonny/alphapulse/internal/scheduler/jobs"
	"github.com/wonny/alphapulse/internal/store"
	"github.com/wonny/alphapulse/pkg/database"
	"github.com/wonny/alphapulse/pkg/httputil"
	"github.com/wonny/alphapulse/pkg/logger"
	"github.com/wonny/alphapulse/pkg/redis"
)

func newServeCmd(global *globalOptions) *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "API 서버 + 스케줄러 시작",
		Long: `REST/WebSocket API 서버와 리포트 보존 스케줄러를 시작합니다.

DATABASE_URL 미설정 시 리포트는 메모리에만 저장됩니다.
REDIS_ENABLED=true 이면 지표 캐시와 업로드 rate limit에 Redis를 사용합니다.

Endpoints:
  GET  /health
  POST /api/analyze?capital=&format=
  POST /api/analyze/remote
  GET  /api/reports
  GET  /api/reports/{id}
  GET  /api/reports/{id}/filter?start=&end=
  GET  /api/reports/{id}/drawdowns?limit=
  GET  /api/reports/{id}/projection?simulations=&seed=
  GET  /api/stream (WebSocket)

Example:
  go run ./cmd/pulse serve
  go run ./cmd/pulse serve --port 8080`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), global, port)
		},
	}

	cmd.Flags().StringVar(&port, "port", "", "API 서버 포트 (default: PORT)")

	return cmd
}

func runServe(ctx context.Context, global *globalOptions, port string) error {
	a, err := newApp(global)
	if err != nil {
		return err
	}
	if port != "" {
		a.cfg.Port = port
	}

	// 서버 로그는 설정된 포맷으로 stdout
	log := logger.New(a.cfg)
	if global.verbose {
		log = logger.NewWithWriter(os.Stdout, "debug")
	}

	log.WithFields(map[string]interface{}{
		"port": a.cfg.Port,
		"env":  a.cfg.Env,
	}).Info("Initializing API server")

	// 1. Report store
	var repo contracts.ReportRepository
	db, err := database.New(ctx, a.cfg)
	switch {
	case errors.Is(err, database.ErrNotConfigured):
		log.Warn("DATABASE_URL not set, reports are kept in memory")
		repo = store.NewMemory()
	case err != nil:
		return fmt.Errorf("connect to database: %w", err)
	default:
		defer db.Close()
		pgRepo := store.NewRepository(db.Pool)
		if err := pgRepo.EnsureSchema(ctx); err != nil {
			return err
		}
		repo = pgRepo
		log.Info("Connected to database")
	}

	// 2. Redis (cache + rate limit)
	rdb, err := redis.New(ctx, a.cfg)
	if err != nil {
		return err
	}
	defer rdb.Close()

	// 3. Service + handlers
	svc := analysis.NewService(a.settings, rdb, repo, log)

	httpClient := httputil.New(a.cfg, log)
	if rdb.Enabled() {
		httpClient.WithRateLimiter(redis.NewRateLimiter(rdb, "alphapulse"), redis.FetchRateLimit)
	}
	fetcher := ingest.NewFetcher(httpClient, a.cfg.Upload.MaxBytes)

	stream := handlers.NewStreamHandler(svc, a.cfg.Upload.MaxBytes, log)
	router := api.NewRouter(
		handlers.NewAnalysisHandler(svc, fetcher, a.cfg.Analytics.InitialCapital, a.cfg.Upload.MaxBytes, log),
		stream,
		api.NewLimiter(rdb, a.cfg.Upload.RatePerMin),
		log,
	)
	server := api.New(a.cfg, log, router)
	server.OnShutdown(stream.Shutdown)

	// 4. Scheduler
	sched := scheduler.New(log)
	retention := jobs.NewReportRetentionJob(repo, a.cfg.Analytics.ReportRetention, a.cfg.Analytics.RetentionCron, log)
	if err := sched.AddJob(retention); err != nil {
		return err
	}
	sched.Start()
	defer sched.Stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	log.Info("API server started successfully")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-errCh:
		return err
	case <-quit:
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Info("Server stopped")
	return nil
}
