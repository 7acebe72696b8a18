package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/vpenkov/finclean/internal/config"
	"github.com/vpenkov/finclean/internal/logger"
	"github.com/vpenkov/finclean/internal/service"
)

func main() {
	// Initialize structured logger
	log := logger.New()

	// Parse CLI flags
	input := flag.String("input", "", "Path to the dirty CSV dataset")
	output := flag.String("output", "cleaned_financial_data.json", "Path for the cleaned JSON output")
	reportPath := flag.String("report", "data_quality_report.txt", "Path for the quality report")
	configPath := flag.String("config", "", "Optional YAML pipeline configuration")
	flag.Parse()

	if *input == "" {
		log.Fatal().Msg("Error: --input is required")
	}

	cfg := config.DefaultPipeline()
	if *configPath != "" {
		loaded, err := config.LoadPipeline(*configPath)
		if err != nil {
			log.Fatal().Err(err).Msg("Loading configuration failed")
		}
		cfg = loaded
	}

	// Create context with timeout so CLI doesn't hang
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	// Add logger to context
	ctx = logger.WithContext(ctx, log)

	log.Info().Str("input", *input).Msg("Starting cleaning")

	report, err := service.CleanFile(ctx, cfg, *input, *output, *reportPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Cleaning failed")
	}

	fmt.Printf("Cleaning completed: %d of %d records kept (%.2f%% quality rate).\n",
		report.FinalRecords, report.TotalRecords, report.QualityRate*100)
	fmt.Printf("Output: %s\nReport: %s\n", *output, *reportPath)
}
