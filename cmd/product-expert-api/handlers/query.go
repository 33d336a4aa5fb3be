package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/coldstore-ai/product-expert/internal/generate"
	"github.com/coldstore-ai/product-expert/internal/observability"
	"github.com/coldstore-ai/product-expert/internal/retrieval"
)

// QueryHandler serves search and question answering.
type QueryHandler struct {
	logger    *observability.Logger
	engine    *retrieval.Engine
	generator generate.Generator
	maxTokens int
}

// NewQueryHandler creates a query handler. generator may be nil; ask then
// returns the context pack without a generated answer.
func NewQueryHandler(logger *observability.Logger, engine *retrieval.Engine, generator generate.Generator, maxTokens int) *QueryHandler {
	return &QueryHandler{logger: logger, engine: engine, generator: generator, maxTokens: maxTokens}
}

type queryRequest struct {
	Question string `json:"question"`
}

// Search handles POST /api/v1/search: retrieval only, no generation.
func (h *QueryHandler) Search(w http.ResponseWriter, r *http.Request) {
	pack, ok := h.retrieve(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, pack)
}

type askResponse struct {
	Answer    string                     `json:"answer,omitempty"`
	Degraded  bool                       `json:"degraded"`
	Grounding *retrieval.GroundingReport `json:"grounding,omitempty"`
	Context   *retrieval.ContextPack     `json:"context"`
}

// Ask handles POST /api/v1/ask: retrieval plus generation plus the
// grounding check on the generated answer.
func (h *QueryHandler) Ask(w http.ResponseWriter, r *http.Request) {
	pack, ok := h.retrieve(w, r)
	if !ok {
		return
	}
	resp := askResponse{Context: pack, Degraded: pack.Degraded}

	if h.generator != nil && len(pack.Chunks) > 0 {
		prompt := retrieval.BuildPrompt(pack, pack.Query.Raw)
		answer, err := h.generator.Generate(r.Context(), prompt, generate.Params{MaxTokens: h.maxTokens})
		switch {
		case errors.Is(err, generate.ErrGeneratorUnavailable):
			h.logger.Warn().Err(err).Msg("generator unavailable, returning context only")
			resp.Degraded = true
		case err != nil:
			writeError(w, http.StatusBadGateway, "generation failed", err.Error())
			return
		default:
			resp.Answer = answer
			resp.Grounding = retrieval.CheckGrounding(answer, pack)
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *QueryHandler) retrieve(w http.ResponseWriter, r *http.Request) (*retrieval.ContextPack, bool) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return nil, false
	}
	if req.Question == "" {
		writeError(w, http.StatusBadRequest, "question is required", "")
		return nil, false
	}
	pack, err := h.engine.Retrieve(r.Context(), req.Question)
	if err != nil {
		if errors.Is(err, retrieval.ErrRetrievalUnavailable) {
			writeError(w, http.StatusServiceUnavailable, "retrieval unavailable", err.Error())
			return nil, false
		}
		writeStorageError(w, err)
		return nil, false
	}
	return pack, true
}
