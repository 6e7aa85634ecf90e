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

	"github.com/99designs/gqlgen/graphql/playground"
	"github.com/couchcryptid/crudgen-api/internal/config"
	"github.com/couchcryptid/crudgen-api/internal/database"
	"github.com/couchcryptid/crudgen-api/internal/entityconfig"
	"github.com/couchcryptid/crudgen-api/internal/generator"
	"github.com/couchcryptid/crudgen-api/internal/graph"
	"github.com/couchcryptid/crudgen-api/internal/kafka"
	"github.com/couchcryptid/crudgen-api/internal/model"
	"github.com/couchcryptid/crudgen-api/internal/observability"
	"github.com/couchcryptid/crudgen-api/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
)

const reloadDebounce = 500 * time.Millisecond

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg, logger, metrics); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
	logger.Info("shutdown complete")
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) error {
	// Schema
	src, err := generator.FromConfig(cfg)
	if err != nil {
		return err
	}
	gen := generator.New(src, logger, metrics)
	build, err := gen.Build()
	if err != nil {
		return err
	}

	// Data access
	var data model.DataAccess
	var readiness observability.ReadinessChecker
	if cfg.DatabaseURL == "" {
		logger.Warn("DATABASE_URL not set, using in-memory store")
		data = store.NewMemory()
	} else {
		if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
			return err
		}
		pool, err := database.NewPool(ctx, cfg.DatabaseURL, cfg.MaxConcurrentRequests+1)
		if err != nil {
			return err
		}
		defer pool.Close()
		go database.ObservePool(ctx, pool, metrics, 10*time.Second)
		data = store.New(pool, metrics)
		readiness = database.NewPoolReadiness(pool)
	}

	runtimeOpts := graph.Options{
		MaxPageSize:    cfg.MaxPageSize,
		MaxNestedItems: cfg.MaxNestedItems,
		Logger:         logger,
		Metrics:        metrics,
	}
	exe, err := graph.NewExecutable(build, data, runtimeOpts)
	if err != nil {
		return err
	}
	gql := graph.NewHandler(exe, graph.HandlerOptions{
		MaxDepth:       cfg.MaxQueryDepth,
		MaxComplexity:  cfg.MaxQueryComplexity,
		MaxNestedItems: cfg.MaxNestedItems,
		Logger:         logger,
		Metrics:        metrics,
	})

	g, ctx := errgroup.WithContext(ctx)

	// Configuration reload
	if cfg.ConfigWatch {
		dirs, err := gen.WatchDirs()
		if err != nil {
			return err
		}
		g.Go(func() error {
			return entityconfig.Watch(ctx, dirs, reloadDebounce, logger, func() {
				reload(gen, gql, data, runtimeOpts, logger)
			})
		})
	}

	// Kafka consumer
	if cfg.KafkaEnabled() {
		consumer := newConsumer(cfg, gql, metrics, logger)
		defer func() {
			if err := consumer.Close(); err != nil {
				logger.Error("kafka consumer close", "error", err)
			}
		}()
		g.Go(func() error { return consumer.Run(ctx) })
	}

	// GraphQL server
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.AllowAll().Handler)
	r.Use(observability.MetricsMiddleware(metrics))
	r.Get("/", playground.Handler("crudgen", "/query"))
	r.With(graph.ConcurrencyLimit(cfg.MaxConcurrentRequests, func() {
		metrics.RequestsRejected.WithLabelValues("busy").Inc()
	})).Handle("/query", gql)
	r.Get("/healthz", observability.LivenessHandler())
	r.Get("/readyz", observability.ReadinessHandler(readiness))
	r.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           http.TimeoutHandler(r, cfg.RequestTimeout, `{"errors":[{"message":"request timeout"}]}`),
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:       120 * time.Second,
	}

	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer shutdownCancel()
		return server.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		logger.Info("server started", "port", cfg.Port, "entities", len(build.Entities))
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	return g.Wait()
}

// reload regenerates the schema and swaps it in. A failed build keeps the current one.
func reload(gen *generator.Generator, gql *graph.Handler, data model.DataAccess, opts graph.Options, logger *slog.Logger) {
	build, err := gen.Build()
	if err != nil {
		logger.Error("reload schema, keeping current", "error", err)
		return
	}
	exe, err := graph.NewExecutable(build, data, opts)
	if err != nil {
		logger.Error("assemble reloaded schema, keeping current", "error", err)
		return
	}
	gql.Swap(exe)
	logger.Info("schema reloaded", "entities", len(build.Entities), "problems", len(build.Problems))
}

type runner interface {
	Run(ctx context.Context) error
	Close() error
}

func newConsumer(cfg *config.Config, w kafka.RecordWriter, m *observability.Metrics, logger *slog.Logger) runner {
	if cfg.KafkaBatch {
		return kafka.NewBatchConsumer(cfg.KafkaBrokers, cfg.KafkaTopic, cfg.KafkaGroupID,
			cfg.BatchSize, cfg.BatchFlushInterval, w, m, logger)
	}
	return kafka.NewConsumer(cfg.KafkaBrokers, cfg.KafkaTopic, cfg.KafkaGroupID, w, m, logger)
}
