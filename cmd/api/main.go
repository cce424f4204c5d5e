package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/ngaultier/quotalyze/internal/application"
	appquotes "github.com/ngaultier/quotalyze/internal/application/quotes"
	"github.com/ngaultier/quotalyze/internal/config"
	"github.com/ngaultier/quotalyze/internal/infra/analyzer"
	"github.com/ngaultier/quotalyze/internal/infra/httpserver"
)

func main() {
	// path config.yaml
	path := "config.yaml"
	if v := os.Getenv(config.EnvConfigPath); v != "" {
		path = v
	}

	cfg, err := config.Load(path)
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer logger.Sync()

	// init analyzer client
	client := analyzer.NewClient(
		cfg.Analyzer.BaseURL,
		cfg.Analyzer.AnalyzeTimeout,
		cfg.Analyzer.HealthTimeout,
		logger,
	)

	// init service
	clock := application.SystemClock{}
	stats := appquotes.NewStatsCollector(clock.Now())
	svc := appquotes.NewService(client, clock, stats, logger)

	// init router
	handler := httpserver.NewRouter(svc, cfg.Server.CORSOrigins, logger)

	// WriteTimeout has to outlive a full analyzer round trip, the analyze
	// handler blocks for up to that long before it can respond.
	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.Analyzer.AnalyzeTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// run server
	go func() {
		logger.Info("server listening",
			zap.String("addr", srv.Addr),
			zap.String("analyzer_url", cfg.Analyzer.BaseURL),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	// graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	logger.Info("shutting down server")

	// Leave room for an in-flight analysis to finish before forcing the exit.
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Analyzer.AnalyzeTimeout+5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Warn("shutdown error", zap.Error(err))
	}
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return nil, err
	}

	var zcfg zap.Config
	if cfg.Logging.Format == "console" {
		zcfg = zap.NewDevelopmentConfig()
	} else {
		zcfg = zap.NewProductionConfig()
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)
	return zcfg.Build()
}
