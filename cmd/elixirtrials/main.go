// ElixirTrials server - ingests clinical trial protocol PDFs, extracts and
// grounds eligibility criteria against OMOP/terminology vocabularies, and
// exposes the review queue, integrity checks, and downstream exporters
// over HTTP.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/gin-gonic/gin"

	"github.com/elixirtrials/elixirtrials/pkg/api"
	"github.com/elixirtrials/elixirtrials/pkg/config"
	"github.com/elixirtrials/elixirtrials/pkg/database"
	"github.com/elixirtrials/elixirtrials/pkg/events"
	"github.com/elixirtrials/elixirtrials/pkg/export"
	"github.com/elixirtrials/elixirtrials/pkg/integrity"
	"github.com/elixirtrials/elixirtrials/pkg/llmgateway"
	"github.com/elixirtrials/elixirtrials/pkg/metrics"
	"github.com/elixirtrials/elixirtrials/pkg/omop"
	"github.com/elixirtrials/elixirtrials/pkg/outbox"
	"github.com/elixirtrials/elixirtrials/pkg/pipeline"
	"github.com/elixirtrials/elixirtrials/pkg/reextract"
	"github.com/elixirtrials/elixirtrials/pkg/review"
	"github.com/elixirtrials/elixirtrials/pkg/router"
	"github.com/elixirtrials/elixirtrials/pkg/storage"
	"github.com/elixirtrials/elixirtrials/pkg/terminology"
)

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	configDir := flag.String("config-dir", getEnv("CONFIG_DIR", "./deploy/config"), "Path to configuration directory")
	promptsDir := flag.String("prompts-dir", getEnv("PROMPTS_DIR", "./deploy/prompts"), "Path to LLM prompt templates")
	flag.Parse()

	envPath := filepath.Join(*configDir, ".env")
	if err := godotenv.Load(envPath); err != nil {
		log.Printf("warning: could not load %s: %v", envPath, err)
		log.Print("continuing with existing environment variables")
	}

	httpPort := getEnv("HTTP_PORT", "8080")
	ginMode := getEnv("GIN_MODE", "debug")
	gin.SetMode(ginMode)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger := slog.Default()

	cfg, err := config.Initialize(ctx, *configDir)
	if err != nil {
		log.Fatalf("failed to initialize configuration: %v", err)
	}

	envCfg, err := config.LoadEnv()
	if err != nil {
		log.Fatalf("failed to load environment configuration: %v", err)
	}

	dbConfig, err := database.LoadConfigFromEnv()
	if err != nil {
		log.Fatalf("failed to load database config: %v", err)
	}
	dbClient, err := database.NewClient(ctx, dbConfig)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			log.Printf("error closing database client: %v", err)
		}
	}()
	log.Println("connected to PostgreSQL")

	omopPool, err := database.NewOMOPPool(ctx, envCfg.OMOPVocabURL)
	if err != nil {
		log.Fatalf("failed to connect to OMOP vocabulary database: %v", err)
	}
	defer func() {
		if err := omopPool.Close(); err != nil {
			log.Printf("error closing OMOP pool: %v", err)
		}
	}()

	templates, err := llmgateway.NewTemplateStore(*promptsDir)
	if err != nil {
		log.Fatalf("failed to load prompt templates: %v", err)
	}
	gateway := llmgateway.New(cfg.LLMProviderRegistry, templates)

	terminologyClient := terminology.NewClient()
	termRouter := router.New(cfg.TerminologyRoutingRegistry, terminologyClient)
	omopMapper := omop.NewMapper(omopPool)

	storageAdapter := storage.New(envCfg.UseLocalStorage, envCfg.LocalUploadDir)

	eventPublisher := events.NewEventPublisher(dbClient.DB())

	eventStore := events.NewEventStore(dbClient.DB())
	connManager := events.NewConnectionManager(eventStore, 10*time.Second)
	listenerDSN := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		dbConfig.Host, dbConfig.Port, dbConfig.User, dbConfig.Password, dbConfig.Database, dbConfig.SSLMode,
	)
	notifyListener := events.NewNotifyListener(listenerDSN, connManager)
	if err := notifyListener.Start(ctx); err != nil {
		log.Fatalf("failed to start NOTIFY listener: %v", err)
	}
	connManager.SetListener(notifyListener)
	defer notifyListener.Stop(context.Background())

	registry := prometheus.NewRegistry()
	recorder := metrics.NewRecorder(registry)

	deps := &pipeline.Deps{
		Client:        dbClient,
		Storage:       storageAdapter,
		Gateway:       gateway,
		Router:        termRouter,
		OMOP:          omopMapper,
		OrdinalScales: cfg.OrdinalScaleRegistry,
		UnitMappings:  cfg.UnitMappingRegistry,
		Events:        eventPublisher,
		Logger:        logger,
		Metrics:       recorder,
	}
	runner := pipeline.NewRunner(deps)

	reviewSvc := review.NewService(dbClient.Client, eventPublisher, recorder)
	reextractSvc := reextract.NewService(dbClient.Client, runner, logger)
	exporter := export.NewExporter(dbClient.Client)
	checker := integrity.NewChecker(dbClient.DB())
	agreement := metrics.NewAgreementCalculator(dbClient.DB())

	redisOpts, err := redis.ParseURL(envCfg.RedisURL)
	if err != nil {
		log.Fatalf("invalid REDIS_URL: %v", err)
	}
	redisClient := redis.NewClient(redisOpts)
	defer func() {
		if err := redisClient.Close(); err != nil {
			log.Printf("error closing redis client: %v", err)
		}
	}()

	outboxPool := outbox.NewWorkerPool(dbClient.Client, outbox.DefaultConfig(), redisClient)
	outboxPool.RegisterHandler(outbox.EventProtocolUploaded, outbox.HandlerFunc(
		func(ctx context.Context, event outbox.Event) error {
			return runner.Run(ctx, event.ProtocolID)
		}))
	outboxPool.RegisterHandler(outbox.EventReextractionRequested, outbox.HandlerFunc(
		func(ctx context.Context, event outbox.Event) error {
			_, err := reextractSvc.Trigger(ctx, event.ProtocolID)
			return err
		}))
	outboxPool.Start(ctx)
	defer outboxPool.Stop()

	server := api.NewServer(
		cfg, dbClient, storageAdapter, envCfg.UseLocalStorage,
		reviewSvc, reextractSvc, exporter, checker, agreement, gateway, outboxPool,
		connManager, logger,
	)

	go func() {
		log.Printf("HTTP server listening on :%s", httpPort)
		if err := server.Start(":" + httpPort); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server failed: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("error during HTTP server shutdown: %v", err)
	}
}
