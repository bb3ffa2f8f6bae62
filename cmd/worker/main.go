package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/alvesdmateus/slotship/internal/environment"
	"github.com/alvesdmateus/slotship/internal/hosting"
	"github.com/alvesdmateus/slotship/internal/mailmerge"
	"github.com/alvesdmateus/slotship/internal/orchestrator"
	"github.com/alvesdmateus/slotship/internal/pipeline"
	"github.com/alvesdmateus/slotship/internal/queue"
	"github.com/alvesdmateus/slotship/internal/secrets"
	"github.com/alvesdmateus/slotship/internal/state"
	"github.com/alvesdmateus/slotship/internal/workflow"
	"github.com/alvesdmateus/slotship/pkg/config"
	"github.com/alvesdmateus/slotship/pkg/database"
)

func main() {
	// Initialize logger
	zlog := zerolog.New(os.Stdout).With().Timestamp().Logger()
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	zlog.Info().Msg("Starting slotship pipeline worker")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		zlog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	zlog.Info().
		Str("environment_provider", cfg.Environment.Provider).
		Int("worker_concurrency", cfg.Worker.Concurrency).
		Msg("Configuration loaded")

	// Connect to database
	zlog.Info().Msg("Connecting to database...")
	dbConfig := database.Config{
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		DBName:          cfg.Database.DBName,
		SSLMode:         cfg.Database.SSLMode,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}
	db, err := database.New(dbConfig)
	if err != nil {
		zlog.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer database.Close(db)

	zlog.Info().Msg("Database connected successfully")

	// Run migrations
	if err := state.AutoMigrate(db); err != nil {
		zlog.Fatal().Err(err).Msg("Failed to run database migrations")
	}

	repo := state.NewRepository(db)

	// Load the workflow definition the service deploys
	wf, err := workflow.Load(cfg.Pipeline.WorkflowPath)
	if err != nil {
		zlog.Fatal().
			Err(err).
			Str("path", cfg.Pipeline.WorkflowPath).
			Msg("Failed to load workflow definition")
	}

	zlog.Info().
		Str("workflow", wf.Name).
		Str("app", wf.Deploy.App).
		Str("slot", wf.SlotName()).
		Msg("Workflow loaded")

	// Connect to Redis queue
	zlog.Info().
		Str("redis_url", cfg.Redis.URL).
		Int("redis_db", cfg.Redis.DB).
		Msg("Connecting to Redis...")

	redisQueue, err := queue.NewRedisQueue(cfg.Redis.URL, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		zlog.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer redisQueue.Close()

	ctx := context.Background()
	if err := redisQueue.Ping(ctx); err != nil {
		zlog.Fatal().Err(err).Msg("Redis ping failed")
	}

	zlog.Info().Msg("Redis connected successfully")

	// Initialize the execution environment provider
	provider, err := environment.NewProvider(environment.ProviderType(cfg.Environment.Provider))
	if err != nil {
		zlog.Fatal().Err(err).Msg("Failed to create environment provider")
	}

	zlog.Info().Str("provider", provider.Name()).Msg("Environment provider initialized")

	// The publish credential is required on the worker, it is the only
	// process that talks to the hosting platform
	if cfg.Hosting.PublishPassword == "" {
		zlog.Fatal().Msg("hosting.publish_password must be configured (PUBLISH_PASSWORD)")
	}

	redactor := secrets.NewRedactor(cfg.Hosting.PublishPassword)

	hostingClient := hosting.NewClient(hosting.Config{
		SCMSuffix:    cfg.Hosting.SCMSuffix,
		SiteSuffix:   cfg.Hosting.SiteSuffix,
		PollInterval: cfg.Hosting.PollInterval,
		Timeout:      cfg.Hosting.DeployTimeout,
	}, zlog)
	cred := hosting.Credential{
		User:     cfg.Hosting.PublishUser,
		Password: cfg.Hosting.PublishPassword,
	}

	verifier := mailmerge.NewVerifier(zlog)

	// Assemble the pipeline engine
	pipelineEngine := pipeline.NewEngine(
		pipeline.Stages(provider, hostingClient, cred, verifier),
		pipeline.NewTracker(repo),
		redactor,
		cfg.Pipeline.StageTimeout,
		zlog,
	)

	// Create orchestrator engine and worker
	engine := orchestrator.NewEngine(redisQueue, repo, wf, redactor, zlog)
	worker := orchestrator.NewWorker(engine, pipelineEngine, cfg.Pipeline.WorkspaceDir, cfg.Worker.Concurrency, zlog)

	// Create context that listens for interrupt signals
	workerCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	zlog.Info().
		Int("concurrency", cfg.Worker.Concurrency).
		Msg("Starting pipeline worker...")

	// Start worker in goroutine
	workerErrChan := make(chan error, 1)
	go func() {
		if err := worker.Start(workerCtx); err != nil {
			workerErrChan <- err
		}
	}()

	zlog.Info().Msg("Pipeline worker started successfully, processing jobs...")

	// Wait for interrupt signal or worker error
	select {
	case <-workerCtx.Done():
		zlog.Info().Msg("Received shutdown signal, stopping worker gracefully...")
	case err := <-workerErrChan:
		zlog.Error().Err(err).Msg("Worker encountered an error")
	}

	zlog.Info().Msg("Pipeline worker shutdown complete")
}
