package handlers_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/vpenkov/finclean/internal/api/handlers"
	"github.com/vpenkov/finclean/internal/jobs"
	"github.com/vpenkov/finclean/internal/jobs/inmemory"
	"github.com/vpenkov/finclean/internal/logger"
)

// mockStorage collects uploads in memory.
type mockStorage struct {
	uploaded  map[string][]byte
	uploadErr error
}

func newMockStorage() *mockStorage {
	return &mockStorage{uploaded: make(map[string][]byte)}
}

func (m *mockStorage) FetchObject(ctx context.Context, gcsURI string) ([]byte, error) {
	return nil, fmt.Errorf("object not found: %s", gcsURI)
}

func (m *mockStorage) UploadBytes(ctx context.Context, bucketName, objectName string, data []byte, contentType string) error {
	if m.uploadErr != nil {
		return m.uploadErr
	}
	m.uploaded[bucketName+"/"+objectName] = data
	return nil
}

// mockPublisher records published jobs.
type mockPublisher struct {
	jobs       []*jobs.CleanDatasetJob
	publishErr error
}

func (m *mockPublisher) PublishCleanDataset(ctx context.Context, job *jobs.CleanDatasetJob) error {
	if m.publishErr != nil {
		return m.publishErr
	}
	if job.JobID == "" {
		job.JobID = "job-1"
	}
	job.Status = jobs.JobStatusPending
	m.jobs = append(m.jobs, job)
	return nil
}

func (m *mockPublisher) Close() error { return nil }

func TestDatasetsHandler_UploadDataset(t *testing.T) {
	storage := newMockStorage()
	h := handlers.NewDatasetsHandler(storage, &mockPublisher{}, "test-bucket", logger.Nop())

	body := strings.NewReader("date,revenue,expenses,currency,category\n")
	req := httptest.NewRequest(http.MethodPost, "/api/datasets/upload?filename=data.csv", body)
	rec := httptest.NewRecorder()

	h.UploadDataset(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body: %s", rec.Code, rec.Body.String())
	}

	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("response is not JSON: %v", err)
	}
	if !strings.HasPrefix(resp["gcs_uri"], "gs://test-bucket/datasets/") {
		t.Errorf("gcs_uri = %q", resp["gcs_uri"])
	}
	if !strings.HasSuffix(resp["gcs_uri"], "-data.csv") {
		t.Errorf("gcs_uri = %q, want original filename suffix", resp["gcs_uri"])
	}
	if len(storage.uploaded) != 1 {
		t.Errorf("uploaded %d objects, want 1", len(storage.uploaded))
	}
}

func TestDatasetsHandler_UploadDataset_EmptyBody(t *testing.T) {
	h := handlers.NewDatasetsHandler(newMockStorage(), &mockPublisher{}, "test-bucket", logger.Nop())

	req := httptest.NewRequest(http.MethodPost, "/api/datasets/upload", strings.NewReader(""))
	rec := httptest.NewRecorder()

	h.UploadDataset(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestDatasetsHandler_UploadDataset_NoBucket(t *testing.T) {
	h := handlers.NewDatasetsHandler(newMockStorage(), &mockPublisher{}, "", logger.Nop())

	req := httptest.NewRequest(http.MethodPost, "/api/datasets/upload", strings.NewReader("x"))
	rec := httptest.NewRecorder()

	h.UploadDataset(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

func TestDatasetsHandler_EnqueueCleaning(t *testing.T) {
	publisher := &mockPublisher{}
	h := handlers.NewDatasetsHandler(newMockStorage(), publisher, "test-bucket", logger.Nop())

	body := strings.NewReader(`{"gcs_uri": "gs://test-bucket/datasets/data.csv"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/datasets/clean", body)
	rec := httptest.NewRecorder()

	h.EnqueueCleaning(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202; body: %s", rec.Code, rec.Body.String())
	}
	if len(publisher.jobs) != 1 || publisher.jobs[0].GCSURI != "gs://test-bucket/datasets/data.csv" {
		t.Errorf("published jobs = %+v", publisher.jobs)
	}

	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("response is not JSON: %v", err)
	}
	if resp["job_id"] == "" || resp["status"] != "pending" {
		t.Errorf("response = %v", resp)
	}
}

func TestDatasetsHandler_EnqueueCleaning_BadURI(t *testing.T) {
	h := handlers.NewDatasetsHandler(newMockStorage(), &mockPublisher{}, "test-bucket", logger.Nop())

	for _, body := range []string{
		`{}`,
		`{"gcs_uri": "not-a-uri"}`,
		`not json`,
	} {
		req := httptest.NewRequest(http.MethodPost, "/api/datasets/clean", strings.NewReader(body))
		rec := httptest.NewRecorder()

		h.EnqueueCleaning(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("body %q: status = %d, want 400", body, rec.Code)
		}
	}
}

func TestJobsHandler_GetAndList(t *testing.T) {
	store := inmemory.NewStore()
	ctx := context.Background()
	_ = store.SaveJob(ctx, &jobs.CleanDatasetJob{
		JobID:  "job-1",
		GCSURI: "gs://b/data.csv",
		Status: jobs.JobStatusCompleted,
	})

	h := handlers.NewJobsHandler(store, logger.Nop())

	rec := httptest.NewRecorder()
	h.GetJob(rec, httptest.NewRequest(http.MethodGet, "/api/jobs/job-1", nil), "job-1")
	if rec.Code != http.StatusOK {
		t.Fatalf("GetJob status = %d, want 200", rec.Code)
	}
	var job jobs.CleanDatasetJob
	if err := json.Unmarshal(rec.Body.Bytes(), &job); err != nil {
		t.Fatalf("GetJob response: %v", err)
	}
	if job.GCSURI != "gs://b/data.csv" {
		t.Errorf("job = %+v", job)
	}

	rec = httptest.NewRecorder()
	h.GetJob(rec, httptest.NewRequest(http.MethodGet, "/api/jobs/nope", nil), "nope")
	if rec.Code != http.StatusNotFound {
		t.Errorf("GetJob unknown status = %d, want 404", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.ListJobs(rec, httptest.NewRequest(http.MethodGet, "/api/jobs?status=completed", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("ListJobs status = %d, want 200", rec.Code)
	}
	var listResp struct {
		Jobs  []*jobs.CleanDatasetJob `json:"jobs"`
		Count int                     `json:"count"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &listResp); err != nil {
		t.Fatalf("ListJobs response: %v", err)
	}
	if listResp.Count != 1 || len(listResp.Jobs) != 1 {
		t.Errorf("list = %+v", listResp)
	}
}

func TestHealth(t *testing.T) {
	rec := httptest.NewRecorder()
	handlers.Health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "healthy") {
		t.Errorf("body = %s", rec.Body.String())
	}
}
