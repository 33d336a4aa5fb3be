package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/coldstore-ai/product-expert/cmd/product-expert-api/middleware"
	"github.com/coldstore-ai/product-expert/internal/conflicts"
	"github.com/coldstore-ai/product-expert/internal/observability"
	"github.com/coldstore-ai/product-expert/internal/registry"
	"github.com/coldstore-ai/product-expert/internal/storage"
)

// AdminHandler serves conflict review, registry approval, and stats.
type AdminHandler struct {
	logger   *observability.Logger
	resolver *conflicts.Resolver
	registry *registry.Registry
	repos    *storage.Repositories
	stats    *StatsSource
}

// StatsSource aggregates the counts the stats endpoint reports.
type StatsSource struct {
	Store    *storage.Store
	Repos    *storage.Repositories
	Lexical  interface{ DocCount() uint64 }
	Embedder interface{ Model() string }
}

// NewAdminHandler creates an admin handler.
func NewAdminHandler(logger *observability.Logger, resolver *conflicts.Resolver, reg *registry.Registry, repos *storage.Repositories, stats *StatsSource) *AdminHandler {
	return &AdminHandler{logger: logger, resolver: resolver, registry: reg, repos: repos, stats: stats}
}

// ListConflicts handles GET /api/v1/conflicts with severity, resolution,
// and product query filters.
func (h *AdminHandler) ListConflicts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := storage.ConflictFilter{
		Severity:   storage.ConflictSeverity(q.Get("severity")),
		Resolution: storage.ConflictResolution(q.Get("resolution")),
		Limit:      queryInt(q.Get("limit"), 100),
	}
	if pid := q.Get("product"); pid != "" {
		id, err := uuid.Parse(pid)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid product ID", err.Error())
			return
		}
		filter.ProductID = id
	}
	list, err := h.repos.Conflicts.List(r.Context(), filter)
	if err != nil {
		writeStorageError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"conflicts": list})
}

type resolveRequest struct {
	Resolution    string `json:"resolution"` // keep_existing, accept_new, manual_override, dismissed
	ResolvedValue string `json:"resolved_value,omitempty"`
}

// ResolveConflict handles POST /api/v1/conflicts/{conflictID}/resolve.
func (h *AdminHandler) ResolveConflict(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "conflictID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid conflict ID", err.Error())
		return
	}
	var req resolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	resolution := storage.ConflictResolution(req.Resolution)
	if !resolution.Terminal() {
		writeError(w, http.StatusBadRequest, "invalid resolution", req.Resolution)
		return
	}

	actor := middleware.ActorFromContext(r.Context())
	conflict, err := h.resolver.Resolve(r.Context(), id, resolution, req.ResolvedValue, actor)
	if err != nil {
		writeStorageError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, conflict)
}

// PendingSpecs handles GET /api/v1/registry/pending.
func (h *AdminHandler) PendingSpecs(w http.ResponseWriter, r *http.Request) {
	entries, err := h.registry.PendingApproval(r.Context())
	if err != nil {
		writeStorageError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"pending": entries})
}

// ApproveSpec handles POST /api/v1/registry/{canonicalName}/approve.
func (h *AdminHandler) ApproveSpec(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "canonicalName")
	if err := h.registry.Approve(r.Context(), name); err != nil {
		writeStorageError(w, err)
		return
	}
	h.logger.Info().
		Str("canonical_name", name).
		Str("actor", middleware.ActorFromContext(r.Context())).
		Msg("spec approved")
	writeJSON(w, http.StatusOK, map[string]string{"status": "approved", "canonical_name": name})
}

// Stats handles GET /api/v1/stats.
func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	productCount, err := h.stats.Repos.Products.Count(ctx)
	if err != nil {
		writeStorageError(w, err)
		return
	}
	docCount, err := h.stats.Repos.Documents.Count(ctx, "")
	if err != nil {
		writeStorageError(w, err)
		return
	}
	totalChunks, embedded, err := h.stats.Repos.Chunks.Count(ctx)
	if err != nil {
		writeStorageError(w, err)
		return
	}
	openConflicts, err := h.stats.Repos.Conflicts.CountOpen(ctx)
	if err != nil {
		writeStorageError(w, err)
		return
	}

	out := map[string]interface{}{
		"products":        productCount,
		"documents":       docCount,
		"chunks":          totalChunks,
		"chunks_embedded": embedded,
		"open_conflicts":  openConflicts,
		"driver":          h.stats.Store.Driver(),
	}
	if h.stats.Lexical != nil {
		out["lexical_docs"] = h.stats.Lexical.DocCount()
	}
	if h.stats.Embedder != nil {
		out["embedding_model"] = h.stats.Embedder.Model()
	}
	writeJSON(w, http.StatusOK, out)
}

// Audit handles GET /api/v1/audit/{resourceType}/{resourceID}.
func (h *AdminHandler) Audit(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "resourceID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid resource ID", err.Error())
		return
	}
	entries, err := h.repos.Audit.ListByResource(r.Context(), chi.URLParam(r, "resourceType"), id, 200)
	if err != nil {
		writeStorageError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"entries": entries})
}
