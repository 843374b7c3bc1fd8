package admin

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sattva-labs/sattva/internal/api/handlers"
	"github.com/sattva-labs/sattva/internal/artifact"
	"github.com/sattva-labs/sattva/internal/config"
	"github.com/sattva-labs/sattva/internal/index"
	"github.com/sattva-labs/sattva/internal/jobs"
	"github.com/sattva-labs/sattva/internal/memory"
	"github.com/sattva-labs/sattva/internal/openai"
	"github.com/sattva-labs/sattva/internal/server"
	"github.com/sattva-labs/sattva/internal/service"
	"github.com/sattva-labs/sattva/internal/telemetry"
	"github.com/spf13/cobra"
)

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long:  "Start the sattva API server on the specified port",
		RunE:  runServe,
	}

	cmd.Flags().StringP("port", "p", "8080", "Port to listen on")
	cmd.Flags().Bool("no-index", false, "Skip loading the index on startup (retrieval runs degraded)")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if cfg.SentryDSN != "" {
		// Default to 10% sampling in production, 100% in development
		sampleRate := 0.1
		if cfg.SentryEnvironment == "development" {
			sampleRate = 1.0
		}

		shutdownTelemetry, err := telemetry.Init(telemetry.Config{
			DSN:              cfg.SentryDSN,
			Environment:      cfg.SentryEnvironment,
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

	embeddingClient := openai.NewEmbeddingClient(openai.EmbeddingConfig{
		APIKey:     cfg.EmbeddingKey(),
		BaseURL:    cfg.EmbeddingBaseURL,
		Model:      cfg.EmbeddingModel,
		Dimensions: cfg.EmbeddingDimensions,
	})
	completionClient := openai.NewCompletionClient(openai.CompletionConfig{
		APIKey:      cfg.CompletionAPIKey,
		BaseURL:     cfg.CompletionBaseURL,
		Model:       cfg.CompletionModel,
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
	})

	idx := index.New(embeddingClient)

	noIndex, _ := cmd.Flags().GetBool("no-index")
	if !noIndex {
		// A failed load is not fatal; the server starts with retrieval
		// degraded and /health reports the index state.
		if err := loadIndex(ctx, cfg, idx); err != nil {
			log.Printf("index load failed (retrieval degraded): %v", err)
			telemetry.CaptureError(ctx, err)
		} else {
			dim, count := idx.Stats()
			log.Printf("index loaded: %d vectors, %d dimensions", count, dim)
		}
	}

	store := memory.NewStore(cfg.MaxHistory)
	store.Ensure(handlers.DefaultSessionID)

	chatSvc := service.NewChatService(idx, completionClient, store, service.ChatConfig{
		TopK:                cfg.TopK,
		SimilarityThreshold: cfg.SimilarityThreshold,
		SystemPrompt:        cfg.SystemPrompt,
	})
	sessionMgr := service.NewSessionManager(store)

	var reaperWorker *jobs.Worker
	if cfg.HasReaper() {
		reaperWorker = jobs.NewWorker(jobs.NewSessionReaper(store, cfg.SessionTTL), cfg.SweepInterval)
		go reaperWorker.Start(ctx)
		log.Printf("session reaper started (ttl: %v, sweep: %v)", cfg.SessionTTL, cfg.SweepInterval)
	}

	router := server.NewRouter(server.RouterConfig{
		ChatHandler:    handlers.NewChatHandler(chatSvc),
		SessionHandler: handlers.NewSessionHandler(sessionMgr),
		Index:          idx,
		CORSOrigin:     cfg.CORSOrigin,
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
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

	if reaperWorker != nil {
		reaperWorker.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Println("server exited")
	return nil
}

// loadIndex fetches both artifacts and loads them into the index. With S3
// configured the artifacts come from the bucket, otherwise from local
// files.
func loadIndex(ctx context.Context, cfg *config.Config, idx *index.Index) error {
	var (
		fetcher             artifact.Fetcher
		indexName, metaName string
	)

	if cfg.HasS3() {
		s3Fetcher, err := artifact.NewS3Fetcher(ctx, artifact.S3FetcherConfig{
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.S3AccessKey,
			SecretAccessKey: cfg.S3SecretKey,
			Bucket:          cfg.S3Bucket,
			UsePathStyle:    true,
			CacheDir:        cfg.S3CacheDir,
		})
		if err != nil {
			return fmt.Errorf("failed to create S3 fetcher: %w", err)
		}
		fetcher = s3Fetcher
		indexName, metaName = cfg.S3IndexKey, cfg.S3MetadataKey
		log.Printf("fetching index artifacts from bucket '%s'", cfg.S3Bucket)
	} else {
		fetcher = artifact.NewFileFetcher()
		indexName, metaName = cfg.IndexPath, cfg.MetadataPath
	}

	indexBytes, err := fetcher.Fetch(ctx, indexName)
	if err != nil {
		return err
	}
	metaBytes, err := fetcher.Fetch(ctx, metaName)
	if err != nil {
		return err
	}

	return idx.Load(indexBytes, metaBytes)
}
