package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vpenkov/finclean/internal/api/middleware"
	"github.com/vpenkov/finclean/internal/bigquery"
	"github.com/vpenkov/finclean/internal/gcs"
	"github.com/vpenkov/finclean/internal/jobs"
)

// DatasetsHandler handles dataset-related endpoints.
type DatasetsHandler struct {
	storage   gcs.StorageService
	publisher jobs.Publisher
	bucket    string
	log       zerolog.Logger
}

// NewDatasetsHandler creates a new datasets handler.
func NewDatasetsHandler(storage gcs.StorageService, publisher jobs.Publisher, bucket string, log zerolog.Logger) *DatasetsHandler {
	return &DatasetsHandler{
		storage:   storage,
		publisher: publisher,
		bucket:    bucket,
		log:       log,
	}
}

// maxUploadBytes caps dataset uploads at 100 MiB.
const maxUploadBytes = 100 << 20

// UploadDataset handles POST /api/datasets/upload.
// The request body is the raw CSV; the filename query parameter names it.
func (h *DatasetsHandler) UploadDataset(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.bucket == "" {
		middleware.WriteError(w, http.StatusServiceUnavailable, "No storage bucket configured")
		return
	}

	filename := r.URL.Query().Get("filename")
	if filename == "" {
		filename = "dataset.csv"
	}
	filename = filepath.Base(filename)

	data, err := io.ReadAll(io.LimitReader(r.Body, maxUploadBytes+1))
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to read upload body")
		middleware.WriteError(w, http.StatusBadRequest, "Failed to read request body")
		return
	}
	if len(data) == 0 {
		middleware.WriteError(w, http.StatusBadRequest, "Request body is empty")
		return
	}
	if len(data) > maxUploadBytes {
		middleware.WriteError(w, http.StatusRequestEntityTooLarge, "Dataset exceeds the upload size limit")
		return
	}

	objectName := fmt.Sprintf("datasets/%s/%s", time.Now().Format("2006/01/02"), uuid.New().String()+"-"+filename)
	gcsURI := gcs.JoinURI(h.bucket, objectName)

	contentType := r.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "text/csv"
	}

	if err := h.storage.UploadBytes(ctx, h.bucket, objectName, data, contentType); err != nil {
		h.log.Error().Err(err).Str("object", objectName).Msg("Failed to upload dataset")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to upload dataset")
		return
	}

	h.log.Info().
		Str("gcs_uri", gcsURI).
		Int("bytes", len(data)).
		Msg("Dataset uploaded")

	middleware.WriteJSON(w, http.StatusOK, map[string]string{
		"gcs_uri":     gcsURI,
		"object_name": objectName,
		"status":      "uploaded",
	})
}

// EnqueueCleaning handles POST /api/datasets/clean.
func (h *DatasetsHandler) EnqueueCleaning(w http.ResponseWriter, r *http.Request) {
	var req struct {
		GCSURI string `json:"gcs_uri"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.GCSURI == "" {
		middleware.WriteError(w, http.StatusBadRequest, "gcs_uri is required")
		return
	}
	if _, _, err := gcs.SplitURI(req.GCSURI); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "gcs_uri is not a valid gs:// URI")
		return
	}

	ctx := r.Context()

	job := &jobs.CleanDatasetJob{
		GCSURI: req.GCSURI,
	}

	if err := h.publisher.PublishCleanDataset(ctx, job); err != nil {
		h.log.Error().Err(err).Msg("Failed to enqueue cleaning job")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to enqueue cleaning job")
		return
	}

	h.log.Info().Str("job_id", job.JobID).Str("gcs_uri", req.GCSURI).Msg("Cleaning job enqueued")

	middleware.WriteJSON(w, http.StatusAccepted, map[string]string{
		"job_id":  job.JobID,
		"gcs_uri": req.GCSURI,
		"status":  string(job.Status),
	})
}

// RunsHandler handles cleaning-run endpoints.
type RunsHandler struct {
	repo bigquery.ResultRepository
	log  zerolog.Logger
}

// NewRunsHandler creates a new runs handler.
func NewRunsHandler(repo bigquery.ResultRepository, log zerolog.Logger) *RunsHandler {
	return &RunsHandler{
		repo: repo,
		log:  log,
	}
}

// ListRuns handles GET /api/runs
func (h *RunsHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	limit := 0
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil {
			middleware.WriteError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		limit = parsed
	}

	runs, err := h.repo.ListCleaningRuns(ctx, limit)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list cleaning runs")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list cleaning runs")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"runs":  runs,
		"count": len(runs),
	})
}

// JobsHandler handles job-related endpoints.
type JobsHandler struct {
	store jobs.JobStore
	log   zerolog.Logger
}

// NewJobsHandler creates a new jobs handler.
func NewJobsHandler(store jobs.JobStore, log zerolog.Logger) *JobsHandler {
	return &JobsHandler{
		store: store,
		log:   log,
	}
}

// GetJob handles GET /api/jobs/{id}
func (h *JobsHandler) GetJob(w http.ResponseWriter, r *http.Request, jobID string) {
	ctx := r.Context()

	job, err := h.store.GetJob(ctx, jobID)
	if err != nil {
		h.log.Error().Err(err).Str("job_id", jobID).Msg("Failed to get job")
		middleware.WriteError(w, http.StatusNotFound, "Job not found")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, job)
}

// ListJobs handles GET /api/jobs
func (h *JobsHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	query := r.URL.Query()
	filter := jobs.JobFilter{
		GCSURI: query.Get("gcs_uri"),
		Status: jobs.JobStatus(query.Get("status")),
	}

	if limitStr := query.Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil {
			filter.Limit = limit
		}
	}

	if offsetStr := query.Get("offset"); offsetStr != "" {
		if offset, err := strconv.Atoi(offsetStr); err == nil {
			filter.Offset = offset
		}
	}

	jobsList, err := h.store.ListJobs(ctx, filter)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list jobs")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list jobs")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  jobsList,
		"count": len(jobsList),
	})
}

// Health handles GET /health.
func Health(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}
