// cmd/pipeline-server/main.go
package main

import (
	"context"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"careerhunt-pipeline/internal/common/config"
	"careerhunt-pipeline/internal/common/database"
	"careerhunt-pipeline/internal/common/genai"
	"careerhunt-pipeline/internal/common/knowledge"
	"careerhunt-pipeline/internal/common/logger"
	"careerhunt-pipeline/internal/common/observability"
	"careerhunt-pipeline/internal/common/taskpool"
	"careerhunt-pipeline/internal/store"

	linkskills "careerhunt-pipeline/internal/workers/ingestion/link-skills"
	processsubmission "careerhunt-pipeline/internal/workers/ingestion/process-submission"

	evaluatecandidate "careerhunt-pipeline/internal/workers/evaluation/evaluate-candidate"
	resolvejobs "careerhunt-pipeline/internal/workers/recommendation/resolve-jobs"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2 // Exponential backoff
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting pipeline server...")

	obs := observability.New(cfg.App.Name)
	defer obs.Shutdown()

	tracing, err := observability.NewTracing(cfg.App.Name, cfg.Tracing.JaegerEndpoint)
	if err != nil {
		zapLog.Warn("tracing disabled", zap.Error(err))
	} else {
		defer tracing.Shutdown()
	}

	ctx := context.Background()

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")

	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	// --- Init Redis with retry ---
	var rdb *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		rdb, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return rdb.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")

	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer rdb.Close()
	zapLog.Info("Redis connected successfully")

	// --- Init external service clients ---
	// The knowledge store is not pinged at startup on purpose: the server
	// must come up and serve degraded answers even while that service is down.
	graph, err := knowledge.NewClient(cfg.KnowledgeStore, log)
	if err != nil {
		zapLog.Fatal("knowledge client init failed", zap.Error(err))
	}

	extractor := genai.NewClient(cfg.Extraction, log)
	st := store.NewPostgresStore(pg.DB, log)

	// --- Background task pool ---
	pool := taskpool.New(taskpool.Config{
		Workers:       cfg.Pipeline.Workers,
		QueueSize:     cfg.Pipeline.QueueSize,
		MaxRetries:    cfg.Pipeline.MaxRetries,
		RetryBackoff:  time.Duration(cfg.Pipeline.RetryBackoff) * time.Millisecond,
		DeadLetterKey: cfg.Pipeline.DeadLetterKey,
	}, rdb.Client, log, obs)
	pool.Start(ctx)

	// --- Workers ---
	linker := linkskills.NewHandler(st.Skills, log)
	ingestion := processsubmission.NewHandler(extractor, linker, graph, st, obs, log)
	resolver := resolvejobs.NewHandler(graph, st, rdb.Client, cfg.Recommendation, obs, log)
	evaluator := evaluatecandidate.NewHandler(graph, obs, log)

	srv := newServer(serverDeps{
		cfg:       cfg,
		logger:    log,
		graph:     graph,
		store:     st,
		pool:      pool,
		ingestion: ingestion,
		resolver:  resolver,
		evaluator: evaluator,
	})

	httpServer := &http.Server{
		Addr:    cfg.App.ListenAddr,
		Handler: srv.routes(),
	}

	go func() {
		zapLog.Info("HTTP server listening", zap.String("addr", cfg.App.ListenAddr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLog.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, draining...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("HTTP server shutdown failed", zap.Error(err))
	}
	pool.Shutdown()

	zapLog.Info("Pipeline server stopped gracefully")
}
