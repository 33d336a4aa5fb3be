package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/coldstore-ai/product-expert/internal/observability"
	"github.com/coldstore-ai/product-expert/internal/recommend"
)

// RecommendHandler serves recommendations and comparisons.
type RecommendHandler struct {
	logger   *observability.Logger
	engine   *recommend.Engine
	comparer *recommend.Comparer
}

// NewRecommendHandler creates a recommendation handler.
func NewRecommendHandler(logger *observability.Logger, engine *recommend.Engine, comparer *recommend.Comparer) *RecommendHandler {
	return &RecommendHandler{logger: logger, engine: engine, comparer: comparer}
}

// Recommend handles POST /api/v1/recommend.
func (h *RecommendHandler) Recommend(w http.ResponseWriter, r *http.Request) {
	var req recommend.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	resp, err := h.engine.Recommend(r.Context(), req)
	switch {
	case errors.Is(err, recommend.ErrUnknownUseCase):
		writeError(w, http.StatusBadRequest, "unknown use case", err.Error())
	case errors.Is(err, recommend.ErrNoCandidates):
		// The exclusions explain why nothing qualified.
		writeJSON(w, http.StatusOK, resp)
	case err != nil:
		writeStorageError(w, err)
	default:
		writeJSON(w, http.StatusOK, resp)
	}
}

// UseCases handles GET /api/v1/recommend/use-cases.
func (h *RecommendHandler) UseCases(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"use_cases": recommend.UseCases()})
}

type compareRequest struct {
	ProductIDs           []string `json:"product_ids"`
	HighlightDifferences bool     `json:"highlight_differences"`
}

// Compare handles POST /api/v1/compare with 2..4 product IDs.
func (h *RecommendHandler) Compare(w http.ResponseWriter, r *http.Request) {
	var req compareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	ids := make([]uuid.UUID, 0, len(req.ProductIDs))
	for _, s := range req.ProductIDs {
		id, err := uuid.Parse(s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid product ID", s)
			return
		}
		ids = append(ids, id)
	}
	cmp, err := h.comparer.Compare(r.Context(), ids, req.HighlightDifferences)
	if err != nil {
		if errors.Is(err, recommend.ErrCompareArity) {
			writeError(w, http.StatusBadRequest, "invalid comparison", err.Error())
			return
		}
		writeStorageError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cmp)
}
