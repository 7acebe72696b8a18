// Package service orchestrates complete cleaning runs: fetching a source
// dataset, running the cleaning pipeline, and publishing the results to the
// warehouse and storage.
package service

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/vpenkov/finclean/internal/bigquery"
	"github.com/vpenkov/finclean/internal/config"
	"github.com/vpenkov/finclean/internal/extract"
	"github.com/vpenkov/finclean/internal/gcs"
	infrabq "github.com/vpenkov/finclean/internal/infra/bigquery"
	"github.com/vpenkov/finclean/internal/load"
	"github.com/vpenkov/finclean/internal/logger"
	"github.com/vpenkov/finclean/internal/pipeline"
)

// CleanResult summarizes a finished cleaning run.
type CleanResult struct {
	RunID        string
	Report       *pipeline.QualityReport
	CleanedURI   string
	ReportURI    string
	FinalRecords int
}

// Cleaner runs cleaning jobs against injected dependencies.
type Cleaner struct {
	repo    bigquery.ResultRepository
	storage gcs.StorageService
	cfg     *config.Pipeline
}

// NewCleaner creates a Cleaner with the given dependencies.
func NewCleaner(repo bigquery.ResultRepository, storage gcs.StorageService, cfg *config.Pipeline) *Cleaner {
	return &Cleaner{
		repo:    repo,
		storage: storage,
		cfg:     cfg,
	}
}

// CleanFromGCS runs the full cleaning flow for a dataset stored in GCS using
// the default BigQuery repository and storage service.
func CleanFromGCS(ctx context.Context, cfg *config.Pipeline, gcsURI string) (*CleanResult, error) {
	repo, err := infrabq.NewBigQueryResultRepository(ctx)
	if err != nil {
		return nil, fmt.Errorf("CleanFromGCS: %w", err)
	}
	defer repo.Close()

	cleaner := NewCleaner(repo, gcs.NewGCSStorageService(), cfg)
	return cleaner.CleanFromGCS(ctx, gcsURI)
}

// CleanFromGCS fetches a CSV dataset by URI, cleans it, inserts the cleaned
// records into the warehouse, and uploads the JSON output and quality report
// next to the source object. The run row tracks the outcome throughout.
func (c *Cleaner) CleanFromGCS(ctx context.Context, gcsURI string) (*CleanResult, error) {
	log := logger.FromContext(ctx)

	// 1. Register the run (status=RUNNING).
	runID, err := c.repo.StartCleaningRun(ctx, gcsURI)
	if err != nil {
		return nil, err
	}
	log.Info().Str("run_id", runID).Str("gcs_uri", gcsURI).Msg("Cleaning run started")

	// 2. Fetch the raw dataset bytes from GCS.
	data, err := c.storage.FetchObject(ctx, gcsURI)
	if err != nil {
		c.repo.MarkCleaningRunFailed(ctx, runID, err)
		return nil, err
	}

	// 3. Extract rows from the CSV.
	columns, records, err := extract.FromReader(bytes.NewReader(data))
	if err != nil {
		c.repo.MarkCleaningRunFailed(ctx, runID, err)
		return nil, err
	}

	// 4. Run the cleaning pipeline.
	state := &pipeline.PipelineState{
		Columns: columns,
		Records: records,
		Tracker: pipeline.NewQualityTracker(len(records)),
	}
	if err := pipeline.NewCleaningPipeline(c.cfg, log).Execute(ctx, state); err != nil {
		c.repo.MarkCleaningRunFailed(ctx, runID, err)
		return nil, err
	}
	report := state.Tracker.Report(len(state.Records), c.cfg.MaxSampleCorrections)

	// 5. Insert the cleaned records into the warehouse.
	rows, err := infrabq.RowsFromRecords(runID, state.Records)
	if err != nil {
		c.repo.MarkCleaningRunFailed(ctx, runID, err)
		return nil, err
	}
	if err := c.repo.InsertCleanRecords(ctx, rows); err != nil {
		c.repo.MarkCleaningRunFailed(ctx, runID, err)
		return nil, err
	}

	// 6. Publish the output artifacts next to the source object. Each
	// artifact is attempted even if the other fails.
	cleanedURI, reportURI, err := c.uploadArtifacts(ctx, gcsURI, state.Records, report)
	if err != nil {
		c.repo.MarkCleaningRunFailed(ctx, runID, err)
		return nil, err
	}

	// 7. Mark the run as SUCCESS with its quality counters.
	if err := c.repo.MarkCleaningRunSucceeded(ctx, runID, report); err != nil {
		return nil, err
	}

	log.Info().
		Str("run_id", runID).
		Int("final_records", report.FinalRecords).
		Float64("quality_rate", report.QualityRate).
		Msg("Cleaning run completed")

	return &CleanResult{
		RunID:        runID,
		Report:       report,
		CleanedURI:   cleanedURI,
		ReportURI:    reportURI,
		FinalRecords: report.FinalRecords,
	}, nil
}

func (c *Cleaner) uploadArtifacts(ctx context.Context, sourceURI string, records []*pipeline.Record, report *pipeline.QualityReport) (cleanedURI, reportURI string, err error) {
	log := logger.FromContext(ctx)

	bucket, object, err := gcs.SplitURI(sourceURI)
	if err != nil {
		return "", "", err
	}

	var failures []string

	jsonData, err := load.MarshalJSON(records)
	if err != nil {
		return "", "", err
	}
	cleanedObject := gcs.SiblingObject(object, "_cleaned.json")
	if err := c.storage.UploadBytes(ctx, bucket, cleanedObject, jsonData, "application/json"); err != nil {
		log.Error().Err(err).Str("object", cleanedObject).Msg("Uploading cleaned dataset failed")
		failures = append(failures, err.Error())
	} else {
		cleanedURI = gcs.JoinURI(bucket, cleanedObject)
	}

	var reportBuf bytes.Buffer
	if err := load.RenderReport(&reportBuf, report); err != nil {
		return "", "", err
	}
	reportObject := gcs.SiblingObject(object, "_quality_report.txt")
	if err := c.storage.UploadBytes(ctx, bucket, reportObject, reportBuf.Bytes(), "text/plain; charset=utf-8"); err != nil {
		log.Error().Err(err).Str("object", reportObject).Msg("Uploading quality report failed")
		failures = append(failures, err.Error())
	} else {
		reportURI = gcs.JoinURI(bucket, reportObject)
	}

	if len(failures) > 0 {
		return cleanedURI, reportURI, fmt.Errorf("uploading artifacts: %s", strings.Join(failures, "; "))
	}
	return cleanedURI, reportURI, nil
}

// CleanFile runs the cleaning pipeline on a local CSV file and writes the
// JSON output and quality report to local paths. A failure writing one
// artifact does not prevent writing the other.
func CleanFile(ctx context.Context, cfg *config.Pipeline, inputPath, outputPath, reportPath string) (*pipeline.QualityReport, error) {
	log := logger.FromContext(ctx)

	columns, records, err := extract.FromFile(inputPath)
	if err != nil {
		return nil, err
	}
	log.Info().Int("records", len(records)).Str("input", inputPath).Msg("Dataset extracted")

	state := &pipeline.PipelineState{
		Columns: columns,
		Records: records,
		Tracker: pipeline.NewQualityTracker(len(records)),
	}
	if err := pipeline.NewCleaningPipeline(cfg, log).Execute(ctx, state); err != nil {
		return nil, err
	}
	report := state.Tracker.Report(len(state.Records), cfg.MaxSampleCorrections)

	var failures []string
	if err := load.WriteJSON(outputPath, state.Records); err != nil {
		log.Error().Err(err).Str("path", outputPath).Msg("Writing cleaned dataset failed")
		failures = append(failures, err.Error())
	}
	if err := load.WriteReport(reportPath, report); err != nil {
		log.Error().Err(err).Str("path", reportPath).Msg("Writing quality report failed")
		failures = append(failures, err.Error())
	}
	if len(failures) > 0 {
		return report, fmt.Errorf("writing artifacts: %s", strings.Join(failures, "; "))
	}

	log.Info().
		Int("final_records", report.FinalRecords).
		Float64("quality_rate", report.QualityRate).
		Msg("Cleaning completed")
	return report, nil
}
