package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/vpenkov/finclean/internal/config"
	"github.com/vpenkov/finclean/internal/gcs"
	infraBQ "github.com/vpenkov/finclean/internal/infra/bigquery"
	"github.com/vpenkov/finclean/internal/logger"
	"github.com/vpenkov/finclean/internal/service"
)

func main() {
	log := logger.New()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "clean":
		runClean(log)
	case "upload":
		runUpload(log)
	case "runs":
		runListRuns(log)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("finclean CLI")
	fmt.Println("\nUsage:")
	fmt.Println("  cli <command> [options]")
	fmt.Println("\nCommands:")
	fmt.Println("  clean     Clean a dataset stored in GCS")
	fmt.Println("  upload    Upload a CSV dataset to GCS")
	fmt.Println("  runs      List recent cleaning runs")
	fmt.Println("  help      Show this help message")
	fmt.Println("\nRun 'cli <command> -h' for more information on a command.")
}

func runClean(log zerolog.Logger) {
	fs := flag.NewFlagSet("clean", flag.ExitOnError)
	gcsURI := fs.String("gcs-uri", "", "GCS URI of the dirty CSV dataset")
	configPath := fs.String("config", "", "Optional YAML pipeline configuration")
	fs.Parse(os.Args[2:])

	if *gcsURI == "" {
		log.Fatal().Msg("Error: --gcs-uri is required")
	}

	cfg := config.DefaultPipeline()
	if *configPath != "" {
		loaded, err := config.LoadPipeline(*configPath)
		if err != nil {
			log.Fatal().Err(err).Msg("Loading configuration failed")
		}
		cfg = loaded
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	log.Info().Str("gcs_uri", *gcsURI).Msg("Starting cleaning run")

	result, err := service.CleanFromGCS(ctx, cfg, *gcsURI)
	if err != nil {
		log.Fatal().Err(err).Msg("Cleaning run failed")
	}

	fmt.Printf("Run %s completed: %d of %d records kept (%.2f%% quality rate).\n",
		result.RunID, result.Report.FinalRecords, result.Report.TotalRecords,
		result.Report.QualityRate*100)
	fmt.Printf("Cleaned data: %s\nQuality report: %s\n", result.CleanedURI, result.ReportURI)
}

func runUpload(log zerolog.Logger) {
	fs := flag.NewFlagSet("upload", flag.ExitOnError)
	bucketName := fs.String("bucket", "", "GCS bucket name")
	objectName := fs.String("object", "", "GCS object name (defaults to filename)")
	filePath := fs.String("file", "", "Path to local CSV file")
	fs.Parse(os.Args[2:])

	if *bucketName == "" || *filePath == "" {
		log.Fatal().Msg("Usage: cli upload -bucket NAME -file PATH")
	}

	if *objectName == "" {
		*objectName = filepath.Base(*filePath)
	}

	ctx := context.Background()
	ctx = logger.WithContext(ctx, log)

	data, err := os.ReadFile(*filePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Reading file failed")
	}

	log.Info().
		Str("bucket", *bucketName).
		Str("object", *objectName).
		Str("file", *filePath).
		Msg("Uploading dataset to GCS")

	storage := gcs.NewGCSStorageService()
	if err := storage.UploadBytes(ctx, *bucketName, *objectName, data, "text/csv"); err != nil {
		log.Fatal().Err(err).Msg("Upload failed")
	}

	fmt.Printf("Uploaded %s to %s\n", *filePath, gcs.JoinURI(*bucketName, *objectName))
}

func runListRuns(log zerolog.Logger) {
	fs := flag.NewFlagSet("runs", flag.ExitOnError)
	limit := fs.Int("limit", 20, "Maximum number of runs to list")
	fs.Parse(os.Args[2:])

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	repo, err := infraBQ.NewBigQueryResultRepository(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Creating repository failed")
	}
	defer repo.Close()

	runs, err := repo.ListCleaningRuns(ctx, *limit)
	if err != nil {
		log.Fatal().Err(err).Msg("Listing runs failed")
	}

	if len(runs) == 0 {
		fmt.Println("No cleaning runs found.")
		return
	}

	for _, run := range runs {
		line := fmt.Sprintf("%s  %-8s  %s  started %s",
			run.RunID, run.Status, run.SourceURI,
			run.StartedTS.Format(time.RFC3339))
		if run.QualityRate.Valid {
			line += fmt.Sprintf("  quality %.2f%%", run.QualityRate.Float64*100)
		}
		fmt.Println(line)
	}
}
