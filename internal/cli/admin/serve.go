package admin

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/rateboard-io/corpus/internal/api/handlers"
	"github.com/rateboard-io/corpus/internal/config"
	"github.com/rateboard-io/corpus/internal/database"
	"github.com/rateboard-io/corpus/internal/domain"
	"github.com/rateboard-io/corpus/internal/jobs"
	"github.com/rateboard-io/corpus/internal/repository"
	"github.com/rateboard-io/corpus/internal/server"
	"github.com/rateboard-io/corpus/internal/service"
	"github.com/rateboard-io/corpus/internal/telemetry"
	"github.com/spf13/cobra"
)

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long:  "Start the corpus API server on the specified port",
		RunE:  runServe,
	}

	cmd.Flags().StringP("port", "p", "8080", "Port to listen on")
	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations on startup")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize Sentry with tracing if SENTRY_DSN is set
	if dsn := os.Getenv("SENTRY_DSN"); dsn != "" {
		environment := os.Getenv("ENVIRONMENT")
		if environment == "" {
			environment = "development"
		}

		// Default to 10% sampling in production, 100% in development
		sampleRate := 0.1
		if environment == "development" {
			sampleRate = 1.0
		}

		shutdownTelemetry, err := telemetry.Init(telemetry.Config{
			DSN:              dsn,
			Environment:      environment,
			TracesSampleRate: sampleRate,
		})
		if err != nil {
			log.Printf("telemetry init failed (continuing without tracing): %v", err)
		} else {
			defer shutdownTelemetry()
		}
	}

	portFlag, _ := cmd.Flags().GetString("port")
	if portFlag != "" && portFlag != "8080" {
		cfg.Port = portFlag
	}

	pool, err := database.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()
	log.Println("connected to database")

	// Run migrations unless --no-migrate flag is set
	noMigrate, _ := cmd.Flags().GetBool("no-migrate")
	if !noMigrate {
		if err := runMigrations(cfg.DatabaseURL); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	store, err := buildFileStore(ctx, cfg)
	if err != nil {
		return err
	}
	if cfg.HasS3() {
		log.Printf("S3 bucket '%s' ready", cfg.S3Bucket)
	} else {
		log.Printf("storing documents under %s", cfg.UploadDir)
	}

	embedder := buildEmbedder(cfg)

	var repairWorker *jobs.Worker
	if cfg.HasOpenAI() {
		if cfg.RepairEnabled {
			processor := jobs.NewEmbeddingRepairWorker(repository.NewChunkRepository(pool), embedder, cfg.RepairBatchSize)
			repairWorker = jobs.NewWorker(processor, cfg.RepairPollInterval)
			go repairWorker.Start(ctx)
			log.Println("embedding repair worker started")
		}
	} else {
		log.Println("no OpenAI API key configured, documents will be chunked without embeddings")
	}

	ingestSvc := buildIngestService(cfg, pool, store, embedder)
	docSvc := service.NewDocumentService(repository.NewDocumentRepository(pool), store)
	retrievalSvc := buildRetrievalService(pool, embedder)

	routerCfg := server.RouterConfig{
		DocumentsHandler: handlers.NewDocumentsHandler(ingestSvc, docSvc, retrievalSvc),
		SearchHandler:    handlers.NewSearchHandler(retrievalSvc),
	}

	router := server.NewRouter(routerCfg)

	// Read/write deadlines stay unset: ingestion responses are legitimately
	// long-running (paced embedding batches).
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("starting server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down...")

	if repairWorker != nil {
		repairWorker.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Println("server exited")
	return nil
}

// disabledEmbedder stands in when no OpenAI API key is configured. Ingestion
// still chunks documents, and the rows are picked up by the repair worker
// once a key is provided.
type disabledEmbedder struct{}

func (disabledEmbedder) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	return nil, domain.ErrEmbeddingDisabled
}

func (disabledEmbedder) Model() string {
	return ""
}

func runMigrations(databaseURL string) error {
	// Create a sql.DB connection for golang-migrate
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database for migrations: %w", err)
	}
	defer db.Close()

	// Create postgres driver instance
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	// Create migrate instance with file source
	m, err := migrate.NewWithDatabaseInstance(
		"file://migrations",
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	// Run migrations
	err = m.Up()
	if err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	// Get migration version and status
	version, dirty, err := m.Version()
	if err != nil && err != migrate.ErrNilVersion {
		return fmt.Errorf("failed to get migration version: %w", err)
	}

	if err == migrate.ErrNilVersion {
		log.Println("migrations: database is up to date (no migrations applied)")
	} else if dirty {
		return fmt.Errorf("migration version %d is dirty - manual intervention required", version)
	} else if err == migrate.ErrNoChange {
		log.Printf("migrations: database is up to date (version %d)", version)
	} else {
		log.Printf("migrations: applied successfully (version %d)", version)
	}

	return nil
}
