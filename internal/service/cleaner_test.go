package service_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	bq "github.com/vpenkov/finclean/internal/bigquery"
	"github.com/vpenkov/finclean/internal/config"
	"github.com/vpenkov/finclean/internal/gcs"
	"github.com/vpenkov/finclean/internal/pipeline"
	"github.com/vpenkov/finclean/internal/service"
)

// MockResultRepository is a mock implementation of ResultRepository for testing.
type MockResultRepository struct {
	StartCleaningRunFunc func(ctx context.Context, sourceURI string) (string, error)

	FailedRunID  string
	FailedErr    error
	SucceededID  string
	Inserted     []*bq.CleanRecordRow
	InsertErr    error
	FinalReport  *pipeline.QualityReport
	SucceededErr error
}

func (m *MockResultRepository) StartCleaningRun(ctx context.Context, sourceURI string) (string, error) {
	if m.StartCleaningRunFunc != nil {
		return m.StartCleaningRunFunc(ctx, sourceURI)
	}
	return "run-test", nil
}

func (m *MockResultRepository) MarkCleaningRunFailed(ctx context.Context, runID string, runErr error) {
	m.FailedRunID = runID
	m.FailedErr = runErr
}

func (m *MockResultRepository) MarkCleaningRunSucceeded(ctx context.Context, runID string, report *pipeline.QualityReport) error {
	m.SucceededID = runID
	m.FinalReport = report
	return m.SucceededErr
}

func (m *MockResultRepository) InsertCleanRecords(ctx context.Context, rows []*bq.CleanRecordRow) error {
	if m.InsertErr != nil {
		return m.InsertErr
	}
	m.Inserted = append(m.Inserted, rows...)
	return nil
}

func (m *MockResultRepository) ListCleaningRuns(ctx context.Context, limit int) ([]*bq.CleaningRunRow, error) {
	return nil, nil
}

// MockStorageService is a mock implementation of StorageService backed by an
// in-memory object map.
type MockStorageService struct {
	Objects   map[string][]byte
	Uploaded  map[string][]byte
	UploadErr error
}

func NewMockStorageService() *MockStorageService {
	return &MockStorageService{
		Objects:  make(map[string][]byte),
		Uploaded: make(map[string][]byte),
	}
}

func (m *MockStorageService) FetchObject(ctx context.Context, gcsURI string) ([]byte, error) {
	data, ok := m.Objects[gcsURI]
	if !ok {
		return nil, fmt.Errorf("object not found: %s", gcsURI)
	}
	return data, nil
}

func (m *MockStorageService) UploadBytes(ctx context.Context, bucketName, objectName string, data []byte, contentType string) error {
	if m.UploadErr != nil {
		return m.UploadErr
	}
	m.Uploaded[gcs.JoinURI(bucketName, objectName)] = data
	return nil
}

const sourceURI = "gs://test-bucket/incoming/data.csv"

const sampleCSV = `date,company_id,revenue,expenses,currency,category
1/15/2024,C001,100000,50000,USD,Sales
,C002,100,50,EUR,Sales
`

func newTestCleaner() (*service.Cleaner, *MockResultRepository, *MockStorageService) {
	repo := &MockResultRepository{}
	storage := NewMockStorageService()
	storage.Objects[sourceURI] = []byte(sampleCSV)
	return service.NewCleaner(repo, storage, config.DefaultPipeline()), repo, storage
}

func TestCleaner_CleanFromGCS(t *testing.T) {
	cleaner, repo, storage := newTestCleaner()
	ctx := context.Background()

	result, err := cleaner.CleanFromGCS(ctx, sourceURI)
	if err != nil {
		t.Fatalf("CleanFromGCS: %v", err)
	}

	if result.RunID != "run-test" {
		t.Errorf("RunID = %q, want run-test", result.RunID)
	}
	if repo.SucceededID != "run-test" {
		t.Errorf("run %q marked succeeded, want run-test", repo.SucceededID)
	}
	if repo.FailedRunID != "" {
		t.Errorf("run %q marked failed: %v", repo.FailedRunID, repo.FailedErr)
	}

	// One valid row survives, the dateless row is removed.
	if len(repo.Inserted) != 1 {
		t.Fatalf("inserted %d rows, want 1", len(repo.Inserted))
	}
	row := repo.Inserted[0]
	if row.RunID != "run-test" || row.CompanyID != "C001" {
		t.Errorf("inserted row = %+v", row)
	}
	if !row.RevenueBGN.Valid || row.RevenueBGN.Float64 != 180000 {
		t.Errorf("RevenueBGN = %+v, want 180000", row.RevenueBGN)
	}

	if result.Report.TotalRecords != 2 || result.Report.FinalRecords != 1 {
		t.Errorf("report total=%d final=%d, want 2 and 1",
			result.Report.TotalRecords, result.Report.FinalRecords)
	}

	// Artifacts land next to the source object.
	wantCleaned := "gs://test-bucket/incoming/data_cleaned.json"
	wantReport := "gs://test-bucket/incoming/data_quality_report.txt"
	if result.CleanedURI != wantCleaned {
		t.Errorf("CleanedURI = %q, want %q", result.CleanedURI, wantCleaned)
	}
	if result.ReportURI != wantReport {
		t.Errorf("ReportURI = %q, want %q", result.ReportURI, wantReport)
	}
	if _, ok := storage.Uploaded[wantCleaned]; !ok {
		t.Error("cleaned dataset was not uploaded")
	}
	if data, ok := storage.Uploaded[wantReport]; !ok || !strings.Contains(string(data), "DATA QUALITY REPORT") {
		t.Error("quality report was not uploaded or is incomplete")
	}
}

func TestCleaner_CleanFromGCS_FetchFailureMarksRunFailed(t *testing.T) {
	cleaner, repo, _ := newTestCleaner()

	_, err := cleaner.CleanFromGCS(context.Background(), "gs://test-bucket/missing.csv")
	if err == nil {
		t.Fatal("expected error for missing object")
	}
	if repo.FailedRunID != "run-test" {
		t.Errorf("failed run = %q, want run-test", repo.FailedRunID)
	}
	if repo.SucceededID != "" {
		t.Error("run must not be marked succeeded after a fetch failure")
	}
}

func TestCleaner_CleanFromGCS_SchemaFailureMarksRunFailed(t *testing.T) {
	cleaner, repo, storage := newTestCleaner()
	storage.Objects[sourceURI] = []byte("date,revenue\n2024-01-01,100\n")

	_, err := cleaner.CleanFromGCS(context.Background(), sourceURI)
	if err == nil {
		t.Fatal("expected schema error")
	}
	if repo.FailedErr == nil || !strings.Contains(repo.FailedErr.Error(), "missing required columns") {
		t.Errorf("failure reason = %v, want schema error", repo.FailedErr)
	}
}

func TestCleaner_CleanFromGCS_InsertFailureMarksRunFailed(t *testing.T) {
	cleaner, repo, _ := newTestCleaner()
	repo.InsertErr = errors.New("insert exploded")

	_, err := cleaner.CleanFromGCS(context.Background(), sourceURI)
	if err == nil {
		t.Fatal("expected insert error")
	}
	if !errors.Is(repo.FailedErr, repo.InsertErr) {
		t.Errorf("failure reason = %v, want insert error", repo.FailedErr)
	}
}

func TestCleaner_CleanFromGCS_UploadFailureMarksRunFailed(t *testing.T) {
	cleaner, repo, storage := newTestCleaner()
	storage.UploadErr = errors.New("bucket unavailable")

	_, err := cleaner.CleanFromGCS(context.Background(), sourceURI)
	if err == nil {
		t.Fatal("expected upload error")
	}
	if repo.FailedRunID != "run-test" {
		t.Errorf("failed run = %q, want run-test", repo.FailedRunID)
	}
	// Records were already inserted before the artifact uploads.
	if len(repo.Inserted) != 1 {
		t.Errorf("inserted %d rows, want 1", len(repo.Inserted))
	}
}
