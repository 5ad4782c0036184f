package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/cuongbtq/lead-generator/internal/aggregator"
	"github.com/cuongbtq/lead-generator/internal/api/handler"
	"github.com/cuongbtq/lead-generator/internal/api/router"
	"github.com/cuongbtq/lead-generator/internal/artifact"
	"github.com/cuongbtq/lead-generator/internal/artifact/storage"
	"github.com/cuongbtq/lead-generator/internal/config"
	"github.com/cuongbtq/lead-generator/internal/domain"
	"github.com/cuongbtq/lead-generator/internal/events"
	"github.com/cuongbtq/lead-generator/internal/jobstore"
	"github.com/cuongbtq/lead-generator/internal/llm"
	"github.com/cuongbtq/lead-generator/internal/metrics"
	"github.com/cuongbtq/lead-generator/internal/reclaimer"
	"github.com/cuongbtq/lead-generator/internal/search/serper"
	"github.com/cuongbtq/lead-generator/internal/service"
	"github.com/cuongbtq/lead-generator/internal/worker"
	"github.com/cuongbtq/lead-generator/shared/logger"
	"github.com/cuongbtq/lead-generator/shared/postgresql"
	"github.com/cuongbtq/lead-generator/shared/rabbitmq"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables or flags")
	}

	configPath := flag.String("config", config.DefaultConfigPath(), "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	appLogger, err := initLogger(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer appLogger.Close()

	appLogger.Info("Starting lead generation service",
		slog.String("app", cfg.App.Name),
		slog.String("version", cfg.App.Version),
		slog.String("environment", cfg.App.Environment),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.NewCollector(reg)

	clock := domain.SystemClock{}
	store := jobstore.New(clock, appLogger.Logger)

	agg, llmClient, err := initAggregator(cfg, appLogger)
	if err != nil {
		return err
	}

	var closers []func() error
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil {
				appLogger.Error("Failed to release resource", slog.Any("error", err))
			}
		}
	}()

	healthChecks := make(map[string]handler.HealthCheck)

	artifactStorage, closeStorage, err := initArtifactStorage(ctx, cfg, appLogger, healthChecks)
	if err != nil {
		return fmt.Errorf("failed to initialize artifact storage: %w", err)
	}
	if closeStorage != nil {
		closers = append(closers, closeStorage)
	}

	publisher, closePublisher, err := initPublisher(cfg, appLogger, healthChecks)
	if err != nil {
		return fmt.Errorf("failed to initialize event publisher: %w", err)
	}
	if closePublisher != nil {
		closers = append(closers, closePublisher)
	}

	cache, err := artifact.NewCache(artifact.Options{
		Storage: artifactStorage,
		Clock:   clock,
		Logger:  appLogger.Logger,
		TTL:     cfg.Artifacts.TTL,
	})
	if err != nil {
		return fmt.Errorf("failed to create artifact cache: %w", err)
	}

	jobWorker, err := worker.NewWorker(&worker.Config{
		Logger:            appLogger.Logger,
		Store:             store,
		Aggregator:        agg,
		Publisher:         publisher,
		Metrics:           collector,
		Clock:             clock,
		MaxConcurrentJobs: cfg.Worker.MaxConcurrentJobs,
		PublishTimeout:    cfg.Worker.PublishTimeout,
	})
	if err != nil {
		return fmt.Errorf("failed to create worker: %w", err)
	}

	sweeper, err := reclaimer.New(reclaimer.Options{
		Artifacts:    cache,
		Jobs:         store,
		Clock:        clock,
		Logger:       appLogger.Logger,
		Metrics:      collector,
		Interval:     cfg.Reclaimer.Interval,
		JobRetention: cfg.Reclaimer.JobRetention,
	})
	if err != nil {
		return fmt.Errorf("failed to create reclaimer: %w", err)
	}

	svc, err := service.New(service.Options{
		Store:             store,
		Runner:            jobWorker,
		Artifacts:         cache,
		Extractor:         llmClient,
		Metrics:           collector,
		Clock:             clock,
		Logger:            appLogger.Logger,
		DefaultMaxResults: cfg.Jobs.DefaultMaxResults,
	})
	if err != nil {
		return fmt.Errorf("failed to create lead service: %w", err)
	}

	r := initRouter(cfg, appLogger.Logger, svc, collector, healthChecks)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		appLogger.Info("Starting HTTP server",
			slog.String("address", addr),
			slog.Duration("read_timeout", cfg.Server.ReadTimeout),
			slog.Duration("write_timeout", cfg.Server.WriteTimeout),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		return sweeper.Run(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()
		appLogger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		var errs []error
		if err := srv.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("server forced to shutdown: %w", err))
		}

		if err := stopWorker(jobWorker, cfg.Worker.ShutdownTimeout); err != nil {
			errs = append(errs, err)
		}

		return errors.Join(errs...)
	})

	if err := g.Wait(); err != nil {
		appLogger.Error("Service stopped with error", slog.Any("error", err))
		return err
	}

	appLogger.Info("Server shutdown complete")
	return nil
}

// initLogger initializes and configures the application logger
func initLogger(cfg *config.Config) (*logger.Logger, error) {
	return logger.New(&logger.Config{
		Level:        cfg.Logging.Level,
		Format:       cfg.Logging.Format,
		Output:       cfg.Logging.Output,
		EnableSource: cfg.Logging.EnableCaller,
		TimeFormat:   time.RFC3339,
		Service:      cfg.App.Name,
	})
}

// initAggregator wires the search and LLM clients into the per-job aggregator
func initAggregator(cfg *config.Config, appLogger *logger.Logger) (*aggregator.Aggregator, *llm.Client, error) {
	searchClient, err := serper.NewClient(&serper.Config{
		APIKey:   cfg.Search.APIKey,
		BaseURL:  cfg.Search.BaseURL,
		Timeout:  cfg.Search.Timeout,
		Country:  cfg.Search.Country,
		Language: cfg.Search.Language,
	}, appLogger.Component("serper"))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create search client: %w", err)
	}

	llmClient, err := llm.NewClient(llm.Config{
		APIKey:      cfg.LLM.APIKey,
		Model:       cfg.LLM.Model,
		BaseURL:     cfg.LLM.BaseURL,
		Timeout:     cfg.LLM.Timeout,
		MaxRetries:  cfg.LLM.MaxRetries,
		Temperature: cfg.LLM.Temperature,
	}, appLogger.Logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create llm client: %w", err)
	}

	agg, err := aggregator.New(aggregator.Options{
		Generator:    llmClient,
		Search:       searchClient,
		Logger:       appLogger.Logger,
		OrganicLimit: cfg.Search.OrganicLimit,
		PlacesLimit:  cfg.Search.PlacesLimit,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create aggregator: %w", err)
	}

	return agg, llmClient, nil
}

// initArtifactStorage opens the configured backend for CSV content. The
// PostgreSQL backend registers a "database" health check.
func initArtifactStorage(ctx context.Context, cfg *config.Config, appLogger *logger.Logger, checks map[string]handler.HealthCheck) (artifact.Storage, func() error, error) {
	if cfg.Artifacts.Storage != config.StoragePostgres {
		fs, err := storage.NewFileStore(cfg.Artifacts.Dir)
		if err != nil {
			return nil, nil, err
		}
		appLogger.Info("Using file artifact storage", slog.String("dir", fs.Dir()))
		return fs, nil, nil
	}

	dbClient, err := postgresql.NewClient(ctx, &postgresql.Config{
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		Database:        cfg.Database.Database,
		SSLMode:         cfg.Database.SSLMode,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,
	}, appLogger.Component("postgres"))
	if err != nil {
		return nil, nil, err
	}

	pg := storage.NewPostgresStore(dbClient.GetDB())
	if err := pg.EnsureSchema(ctx); err != nil {
		dbClient.Close()
		return nil, nil, err
	}

	checks["database"] = dbClient.HealthCheck
	appLogger.Info("Using PostgreSQL artifact storage")
	return pg, dbClient.Close, nil
}

// initPublisher returns a RabbitMQ-backed publisher when events are enabled
// and registers a "rabbitmq" health check for it
func initPublisher(cfg *config.Config, appLogger *logger.Logger, checks map[string]handler.HealthCheck) (events.Publisher, func() error, error) {
	if !cfg.Events.Enabled {
		return events.NoopPublisher{}, nil, nil
	}

	mq := cfg.RabbitMQ
	client, err := rabbitmq.NewClient(&rabbitmq.Config{
		Host:               mq.Host,
		Port:               mq.Port,
		User:               mq.User,
		Password:           mq.Password,
		VHost:              mq.VHost,
		ExchangeName:       mq.Exchange.Name,
		ExchangeType:       mq.Exchange.Type,
		ExchangeDurable:    mq.Exchange.Durable,
		ExchangeAutoDelete: mq.Exchange.AutoDelete,
		QueueName:          mq.Queue.Name,
		QueueDurable:       mq.Queue.Durable,
		QueueAutoDelete:    mq.Queue.AutoDelete,
		QueueExclusive:     mq.Queue.Exclusive,
		RoutingKey:         mq.RoutingKey,
		RetryAttempts:      mq.Connection.RetryAttempts,
		RetryInterval:      mq.Connection.RetryInterval,
		Heartbeat:          mq.Connection.Heartbeat,
		ConnectionTimeout:  mq.Connection.ConnectionTimeout,
		PublishRetries:     mq.Publish.RetryAttempts,
		PublishRetryDelay:  mq.Publish.RetryInterval,
		PublishBackoffMult: mq.Publish.BackoffMultiplier,
	}, appLogger.Component("rabbitmq"))
	if err != nil {
		return nil, nil, err
	}

	checks["rabbitmq"] = func(context.Context) error {
		if !client.IsConnected() {
			return rabbitmq.ErrNotConnected
		}
		return nil
	}

	return events.NewBrokerPublisher(client, appLogger.Component("events")), client.Close, nil
}

// initRouter sets the Gin mode and builds the HTTP routes
func initRouter(cfg *config.Config, baseLogger *slog.Logger, svc *service.LeadService, collector *metrics.Collector, checks map[string]handler.HealthCheck) *gin.Engine {
	if cfg.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	if !cfg.Metrics.Enabled {
		collector = nil
	}

	return router.SetupRouter(&handler.Dependencies{
		Logger:       baseLogger,
		Service:      svc,
		HealthChecks: checks,
	}, collector)
}

// stopWorker waits for in-flight jobs up to timeout
func stopWorker(w *worker.Worker, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := w.Stop(ctx); err != nil {
		return fmt.Errorf("worker stop: %w", err)
	}
	return nil
}
