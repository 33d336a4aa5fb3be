package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/coldstore-ai/product-expert/cmd/product-expert-api/middleware"
	"github.com/coldstore-ai/product-expert/internal/ingest"
	"github.com/coldstore-ai/product-expert/internal/observability"
	"github.com/coldstore-ai/product-expert/internal/storage"
)

// IngestionHandler accepts document uploads and reports job progress.
type IngestionHandler struct {
	logger       *observability.Logger
	orchestrator *ingest.Orchestrator
	jobs         *storage.JobRepository
	documents    *storage.DocumentRepository
	maxUploadMB  int
}

// NewIngestionHandler creates an ingestion handler.
func NewIngestionHandler(logger *observability.Logger, orch *ingest.Orchestrator, jobs *storage.JobRepository, documents *storage.DocumentRepository, maxUploadMB int) *IngestionHandler {
	if maxUploadMB <= 0 {
		maxUploadMB = 50
	}
	return &IngestionHandler{
		logger:       logger,
		orchestrator: orch,
		jobs:         jobs,
		documents:    documents,
		maxUploadMB:  maxUploadMB,
	}
}

// Upload handles POST /api/v1/ingest: a multipart form with one or more
// "files" parts. Responds 202 with the queued job.
func (h *IngestionHandler) Upload(w http.ResponseWriter, r *http.Request) {
	limit := int64(h.maxUploadMB) << 20
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := r.ParseMultipartForm(limit); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form", err.Error())
		return
	}
	parts := r.MultipartForm.File["files"]
	if len(parts) == 0 {
		writeError(w, http.StatusBadRequest, "no files supplied", `use multipart field "files"`)
		return
	}

	var files []ingest.FileInput
	for _, part := range parts {
		f, err := part.Open()
		if err != nil {
			writeError(w, http.StatusBadRequest, "unreadable file part", part.Filename)
			return
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			writeError(w, http.StatusBadRequest, "unreadable file part", part.Filename)
			return
		}
		files = append(files, ingest.FileInput{Filename: part.Filename, Data: data})
	}

	job, err := h.orchestrator.Submit(r.Context(), files, middleware.ActorFromContext(r.Context()))
	if err != nil {
		if errors.Is(err, ingest.ErrShuttingDown) {
			writeError(w, http.StatusServiceUnavailable, "ingestion shutting down", "")
			return
		}
		writeStorageError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, job)
}

// GetJob handles GET /api/v1/ingest/jobs/{jobID}.
func (h *IngestionHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "jobID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid job ID", err.Error())
		return
	}
	job, err := h.jobs.GetByID(r.Context(), id)
	if err != nil {
		writeStorageError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

// ListJobs handles GET /api/v1/ingest/jobs.
func (h *IngestionHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	jobs, err := h.jobs.List(r.Context(), 50)
	if err != nil {
		writeStorageError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"jobs": jobs})
}

// GetDocument handles GET /api/v1/documents/{documentID}: metadata and the
// processing log, without the extracted text.
func (h *IngestionHandler) GetDocument(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "documentID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid document ID", err.Error())
		return
	}
	doc, err := h.documents.GetByID(r.Context(), id)
	if err != nil {
		writeStorageError(w, err)
		return
	}
	doc.ExtractedText = ""
	writeJSON(w, http.StatusOK, doc)
}
