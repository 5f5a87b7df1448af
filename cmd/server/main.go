package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jengzang/railsim-backend-go/internal/api"
	"github.com/jengzang/railsim-backend-go/internal/config"
	"github.com/jengzang/railsim-backend-go/internal/database"
	"github.com/jengzang/railsim-backend-go/internal/driver"
	"github.com/jengzang/railsim-backend-go/internal/logging"
	"github.com/jengzang/railsim-backend-go/internal/middleware"
	"github.com/jengzang/railsim-backend-go/internal/observability"
	"github.com/jengzang/railsim-backend-go/internal/simulation"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	// 加载配置
	cfg := config.Load()
	if cfg.GinMode != "" {
		gin.SetMode(cfg.GinMode)
	}

	log := logging.New(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, cfg, log)
	stop()
	if err != nil {
		log.Error(context.Background(), "server exited", logging.Err(err))
		os.Exit(1)
	}
}

// run wires the server and blocks until ctx is done or serving fails.
func run(ctx context.Context, cfg *config.Config, log logging.Logger) error {
	ctx, cancelRun := context.WithCancel(ctx)
	defer cancelRun()

	// 初始化数据库
	if err := database.Init(database.Config{Path: cfg.DBPath}); err != nil {
		return fmt.Errorf("initialize database: %w", err)
	}
	defer database.Close()
	db := database.GetDB()

	if err := database.Migrate(ctx, db, log); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	shutdownTracing, err := observability.InitTracing(ctx, cfg.Tracing, log)
	if err != nil {
		return fmt.Errorf("initialize tracing: %w", err)
	}
	defer observability.ShutdownWithTimeout(context.Background(), shutdownTracing, log)

	metrics, err := observability.NewSimulationCollector(prometheus.DefaultRegisterer)
	if err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}

	engine := simulation.NewEngine(db,
		simulation.WithLogger(log),
		simulation.WithMetrics(metrics),
		simulation.WithTracer(observability.Tracer()),
	)

	driverDone := make(chan struct{})
	go func() {
		defer close(driverDone)
		driver.New(engine, cfg.AutoStepInterval, cfg.AutoStepMinutes, log).Run(ctx)
	}()

	// 初始化路由
	router := api.SetupRouter(api.Dependencies{
		Config:      cfg,
		DB:          db,
		Engine:      engine,
		Metrics:     metrics,
		Logger:      log,
		RateLimiter: middleware.NewRateLimiter(ctx, cfg.RateLimitPerMinute, time.Minute),
	})

	srv := &http.Server{
		Addr:              cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info(ctx, "server starting", logging.String("addr", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn(shutdownCtx, "graceful shutdown failed", logging.Err(err))
	}
	// The driver stops with ctx; wait for it before the database closes.
	cancelRun()
	<-driverDone
	log.Info(shutdownCtx, "server stopped")
	return serveErr
}
