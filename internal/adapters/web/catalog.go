package web

import (
	"encoding/json"
	"net/http"
	"strconv"

	"cenaculo-pos/internal/core"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

func pathID(r *http.Request, name string) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, name))
	return id, err == nil && id > 0
}

// listStations handles GET /api/stations.
func (h *Handler) listStations(w http.ResponseWriter, r *http.Request) {
	stations, err := h.svc.Catalog.ListStations(r.Context())
	if err != nil {
		serviceError(w, r, err)
		return
	}
	writeJSON(w, stations)
}

// listCategories handles GET /api/categories.
func (h *Handler) listCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.svc.Catalog.ListCategories(r.Context())
	if err != nil {
		serviceError(w, r, err)
		return
	}
	writeJSON(w, categories)
}

// listProducts handles GET /api/products. ?all=true includes deactivated
// products for catalog administration screens.
func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	activeOnly := r.URL.Query().Get("all") != "true"
	products, err := h.svc.Catalog.ListProducts(r.Context(), activeOnly)
	if err != nil {
		serviceError(w, r, err)
		return
	}
	writeJSON(w, products)
}

// listStationProducts handles GET /api/stations/{id}/products.
func (h *Handler) listStationProducts(w http.ResponseWriter, r *http.Request) {
	stationID, ok := pathID(r, "id")
	if !ok {
		writeError(w, r, "invalid station id", "INVALID_ID", http.StatusBadRequest)
		return
	}
	products, err := h.svc.Catalog.ListProductsByStation(r.Context(), stationID)
	if err != nil {
		serviceError(w, r, err)
		return
	}
	writeJSON(w, products)
}

type productRequest struct {
	Name          string           `json:"name"`
	Description   string           `json:"description"`
	Price         decimal.Decimal  `json:"price"`
	Stock         decimal.Decimal  `json:"stock"`
	SaleUnit      core.SaleUnit    `json:"sale_unit"`
	StationID     int              `json:"station_id"`
	CategoryID    *int             `json:"category_id"`
	BaseProductID *int             `json:"base_product_id"`
}

// createProduct handles POST /api/products.
func (h *Handler) createProduct(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, "invalid JSON body", "INVALID_BODY", http.StatusBadRequest)
		return
	}
	if req.SaleUnit == "" {
		req.SaleUnit = core.SaleUnitUnit
	}

	product, err := h.svc.Catalog.CreateProduct(r.Context(), core.ProductInput{
		Name:          req.Name,
		Description:   req.Description,
		Price:         req.Price,
		Stock:         req.Stock,
		SaleUnit:      req.SaleUnit,
		StationID:     req.StationID,
		CategoryID:    req.CategoryID,
		BaseProductID: req.BaseProductID,
	}, actingRole(r))
	if err != nil {
		serviceError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(product)
}

// getProduct handles GET /api/products/{id}.
func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	productID, ok := pathID(r, "id")
	if !ok {
		writeError(w, r, "invalid product id", "INVALID_ID", http.StatusBadRequest)
		return
	}
	product, err := h.svc.Catalog.GetProduct(r.Context(), productID)
	if err != nil {
		serviceError(w, r, err)
		return
	}
	writeJSON(w, product)
}

type productUpdateRequest struct {
	Name          *string          `json:"name"`
	Description   *string          `json:"description"`
	Price         *decimal.Decimal `json:"price"`
	Stock         *decimal.Decimal `json:"stock"`
	SaleUnit      *core.SaleUnit   `json:"sale_unit"`
	StationID     *int             `json:"station_id"`
	CategoryID    *int             `json:"category_id"`
	BaseProductID *int             `json:"base_product_id"`
	Active        *bool            `json:"active"`
}

// updateProduct handles PATCH /api/products/{id}. Absent fields are left
// unchanged.
func (h *Handler) updateProduct(w http.ResponseWriter, r *http.Request) {
	productID, ok := pathID(r, "id")
	if !ok {
		writeError(w, r, "invalid product id", "INVALID_ID", http.StatusBadRequest)
		return
	}

	var req productUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, "invalid JSON body", "INVALID_BODY", http.StatusBadRequest)
		return
	}

	product, err := h.svc.Catalog.UpdateProduct(r.Context(), productID, core.ProductUpdate{
		Name:          req.Name,
		Description:   req.Description,
		Price:         req.Price,
		Stock:         req.Stock,
		SaleUnit:      req.SaleUnit,
		StationID:     req.StationID,
		CategoryID:    req.CategoryID,
		BaseProductID: req.BaseProductID,
		Active:        req.Active,
	}, actingRole(r))
	if err != nil {
		serviceError(w, r, err)
		return
	}
	writeJSON(w, product)
}

// deactivateProduct handles DELETE /api/products/{id}. Products are soft
// deleted so order history keeps resolving.
func (h *Handler) deactivateProduct(w http.ResponseWriter, r *http.Request) {
	productID, ok := pathID(r, "id")
	if !ok {
		writeError(w, r, "invalid product id", "INVALID_ID", http.StatusBadRequest)
		return
	}
	if err := h.svc.Catalog.DeactivateProduct(r.Context(), productID, actingRole(r)); err != nil {
		serviceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
