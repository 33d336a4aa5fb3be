package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/coldstore-ai/product-expert/internal/observability"
	"github.com/coldstore-ai/product-expert/internal/recommend"
	"github.com/coldstore-ai/product-expert/internal/storage"
)

// ProductHandler serves catalog reads.
type ProductHandler struct {
	logger        *observability.Logger
	products      *storage.ProductRepository
	versions      *storage.VersionRepository
	relationships *storage.RelationshipRepository
	links         *storage.LinkRepository
	equivalents   *recommend.EquivalenceFinder
}

// NewProductHandler creates a product handler.
func NewProductHandler(
	logger *observability.Logger,
	products *storage.ProductRepository,
	versions *storage.VersionRepository,
	relationships *storage.RelationshipRepository,
	links *storage.LinkRepository,
	equivalents *recommend.EquivalenceFinder,
) *ProductHandler {
	return &ProductHandler{
		logger:        logger,
		products:      products,
		versions:      versions,
		relationships: relationships,
		links:         links,
		equivalents:   equivalents,
	}
}

// List handles GET /api/v1/products. Besides family, brand, status, and
// prefix, it takes capacity_min/capacity_max, temp_min/temp_max,
// door_type, repeated certifications params (contains-all), and q for
// free-text search.
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := storage.ProductFilter{
		FamilyCode:     q.Get("family"),
		BrandCode:      q.Get("brand"),
		Status:         storage.ProductStatus(q.Get("status")),
		ModelPrefix:    q.Get("prefix"),
		CapacityMin:    queryFloat(q.Get("capacity_min")),
		CapacityMax:    queryFloat(q.Get("capacity_max")),
		TempMin:        queryFloat(q.Get("temp_min")),
		TempMax:        queryFloat(q.Get("temp_max")),
		DoorType:       q.Get("door_type"),
		Certifications: q["certifications"],
		FreeText:       q.Get("q"),
		Limit:          queryInt(q.Get("limit"), 50),
		Offset:         queryInt(q.Get("offset"), 0),
	}
	products, err := h.products.List(r.Context(), filter)
	if err != nil {
		writeStorageError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"products": products,
		"count":    len(products),
	})
}

// Get handles GET /api/v1/products/{idOrModel}. The path segment is a
// product UUID or a model number.
func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, ok := h.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// Versions handles GET /api/v1/products/{idOrModel}/versions.
func (h *ProductHandler) Versions(w http.ResponseWriter, r *http.Request) {
	p, ok := h.lookup(w, r)
	if !ok {
		return
	}
	versions, err := h.versions.ListByProduct(r.Context(), p.ID)
	if err != nil {
		writeStorageError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"versions": versions})
}

// Relationships handles GET /api/v1/products/{idOrModel}/relationships.
func (h *ProductHandler) Relationships(w http.ResponseWriter, r *http.Request) {
	p, ok := h.lookup(w, r)
	if !ok {
		return
	}
	rels, err := h.relationships.ListByProduct(r.Context(), p.ID)
	if err != nil {
		writeStorageError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"relationships": rels})
}

// Documents handles GET /api/v1/products/{idOrModel}/documents: the
// provenance links for a product.
func (h *ProductHandler) Documents(w http.ResponseWriter, r *http.Request) {
	p, ok := h.lookup(w, r)
	if !ok {
		return
	}
	links, err := h.links.ListByProduct(r.Context(), p.ID)
	if err != nil {
		writeStorageError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"documents": links})
}

// Equivalents handles GET /api/v1/products/{idOrModel}/equivalents.
func (h *ProductHandler) Equivalents(w http.ResponseWriter, r *http.Request) {
	p, ok := h.lookup(w, r)
	if !ok {
		return
	}
	matches, err := h.equivalents.Find(r.Context(), p.ID)
	if err != nil {
		writeStorageError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"product":     p.ModelNumber,
		"equivalents": matches,
	})
}

func (h *ProductHandler) lookup(w http.ResponseWriter, r *http.Request) (*storage.Product, bool) {
	key := chi.URLParam(r, "idOrModel")
	var (
		p   *storage.Product
		err error
	)
	if id, parseErr := uuid.Parse(key); parseErr == nil {
		p, err = h.products.GetByID(r.Context(), id)
	} else {
		p, err = h.products.GetByModelNumber(r.Context(), key)
	}
	if err != nil {
		writeStorageError(w, err)
		return nil, false
	}
	return p, true
}

func queryInt(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return def
	}
	return n
}

func queryFloat(s string) *float64 {
	if s == "" {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &f
}
