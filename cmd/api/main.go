package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/vpenkov/finclean/internal/api/handlers"
	"github.com/vpenkov/finclean/internal/api/middleware"
	"github.com/vpenkov/finclean/internal/config"
	"github.com/vpenkov/finclean/internal/gcs"
	infraBQ "github.com/vpenkov/finclean/internal/infra/bigquery"
	"github.com/vpenkov/finclean/internal/jobs"
	"github.com/vpenkov/finclean/internal/jobs/inmemory"
	"github.com/vpenkov/finclean/internal/logger"
	"github.com/vpenkov/finclean/internal/service"
)

func main() {
	// Initialize logger
	log := logger.New()

	// Load service configuration from FINCLEAN_* environment variables
	cfg, err := config.LoadService()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load service configuration")
	}

	if cfg.Bucket == "" {
		log.Warn().Msg("No GCS bucket configured - dataset uploads will be disabled")
	}

	pipelineCfg := config.DefaultPipeline()
	if path := os.Getenv("FINCLEAN_PIPELINE_CONFIG"); path != "" {
		pipelineCfg, err = config.LoadPipeline(path)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to load pipeline configuration")
		}
	}

	ctx := context.Background()

	// Initialize repositories
	repo, err := infraBQ.NewBigQueryResultRepository(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create result repository")
	}
	defer repo.Close()

	storage := gcs.NewGCSStorageService()
	cleaner := service.NewCleaner(repo, storage, pipelineCfg)

	// Initialize job infrastructure
	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(cfg.QueueSize, cfg.WorkerCount, jobStore)

	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()

	// Job handler for processing cleaning jobs
	jobHandler := func(ctx context.Context, job jobs.Job) error {
		cleanJob, ok := job.(*jobs.CleanDatasetJob)
		if !ok {
			return fmt.Errorf("unexpected job type: %T", job)
		}

		log.Info().
			Str("job_id", cleanJob.JobID).
			Str("gcs_uri", cleanJob.GCSURI).
			Msg("Processing cleaning job")

		ctx = logger.WithContext(ctx, log)
		result, err := cleaner.CleanFromGCS(ctx, cleanJob.GCSURI)
		if err != nil {
			log.Error().
				Err(err).
				Str("job_id", cleanJob.JobID).
				Str("gcs_uri", cleanJob.GCSURI).
				Msg("Cleaning run failed")
			return err
		}
		cleanJob.RunID = result.RunID

		log.Info().
			Str("job_id", cleanJob.JobID).
			Str("run_id", result.RunID).
			Int("final_records", result.FinalRecords).
			Msg("Cleaning run completed")

		return nil
	}

	// Start job consumer in background
	go func() {
		log.Info().Msg("Starting job worker")
		if err := jobQueue.Start(workerCtx, jobHandler); err != nil {
			log.Error().Err(err).Msg("Job worker stopped with error")
		}
	}()

	// Initialize handlers
	datasetsHandler := handlers.NewDatasetsHandler(storage, jobQueue, cfg.Bucket, log)
	runsHandler := handlers.NewRunsHandler(repo, log)
	jobsHandler := handlers.NewJobsHandler(jobStore, log)

	// Create router
	mux := http.NewServeMux()

	mux.HandleFunc("/api/datasets/upload", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost || r.Method == http.MethodPut {
			datasetsHandler.UploadDataset(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/datasets/clean", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			datasetsHandler.EnqueueCleaning(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/runs", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			runsHandler.ListRuns(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/jobs", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			jobsHandler.ListJobs(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/jobs/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			jobID := strings.TrimPrefix(r.URL.Path, "/api/jobs/")
			if jobID == "" {
				middleware.WriteError(w, http.StatusBadRequest, "Job ID is required")
				return
			}
			jobsHandler.GetJob(w, r, jobID)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	// Health check endpoint, exposed bare for load balancers too
	mux.HandleFunc("/api/health", handlers.Health)
	mux.HandleFunc("/health", handlers.Health)

	// Apply middleware
	handler := middleware.Recovery(log)(
		middleware.Logger(log)(
			middleware.RequestID(
				middleware.CORS(mux),
			),
		),
	)

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info().Str("port", cfg.Port).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	cancelWorker()

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	// Stop job queue and wait for in-flight jobs
	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping job queue")
	}

	log.Info().Msg("Server exited")
}
