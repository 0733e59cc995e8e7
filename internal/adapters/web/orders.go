package web

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"

	"cenaculo-pos/internal/core"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const maxProofUploadBytes = 10 << 20 // 10 MB

type orderItemRequest struct {
	ProductID int             `json:"product_id"`
	Quantity  decimal.Decimal `json:"quantity"`
}

type orderBundleRequest struct {
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity"`
}

type orderRequest struct {
	CustomerName  string               `json:"customer_name"`
	PaymentMethod core.PaymentMethod   `json:"payment_method"`
	Items         []orderItemRequest   `json:"items"`
	Bundles       []orderBundleRequest `json:"bundles"`
}

func (req *orderRequest) toInput(role string, proofURL *string) core.CreateOrderInput {
	input := core.CreateOrderInput{
		CustomerName:  req.CustomerName,
		AttendingRole: role,
		PaymentMethod: req.PaymentMethod,
		ProofURL:      proofURL,
	}
	for _, it := range req.Items {
		input.Items = append(input.Items, core.ItemInput{ProductID: it.ProductID, Quantity: it.Quantity})
	}
	for _, b := range req.Bundles {
		input.Bundles = append(input.Bundles, core.BundleInput{Name: b.Name, Price: b.Price, Quantity: b.Quantity})
	}
	return input
}

// createOrder handles POST /api/orders. Plain JSON bodies create the order
// directly; multipart bodies carry the order JSON in the "order" field plus a
// "proof" file for transfer payments. The proof is uploaded before the order
// is created, and an upload failure aborts the whole request: a transfer
// order without its receipt must never reach the kitchen.
func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	var req orderRequest
	var proofURL *string

	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "multipart/form-data") {
		r.Body = http.MaxBytesReader(w, r.Body, maxProofUploadBytes)
		if err := r.ParseMultipartForm(maxProofUploadBytes); err != nil {
			writeError(w, r, "invalid multipart body", "INVALID_BODY", http.StatusBadRequest)
			return
		}
		if err := json.Unmarshal([]byte(r.FormValue("order")), &req); err != nil {
			writeError(w, r, "invalid order JSON in multipart field", "INVALID_BODY", http.StatusBadRequest)
			return
		}

		file, header, err := r.FormFile("proof")
		if err == nil {
			defer file.Close()
			data, err := io.ReadAll(file)
			if err != nil {
				writeError(w, r, "failed to read proof file", "INVALID_BODY", http.StatusBadRequest)
				return
			}
			mime := header.Header.Get("Content-Type")
			if mime == "" {
				mime = "application/octet-stream"
			}
			url, err := h.svc.Uploader.Upload(r.Context(), data, header.Filename, mime)
			if err != nil {
				h.log.Error("payment proof upload failed", zap.Error(err))
				serviceError(w, r, core.ErrProofUploadFailed)
				return
			}
			proofURL = &url
		}
	} else {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, r, "invalid JSON body", "INVALID_BODY", http.StatusBadRequest)
			return
		}
	}

	if strings.TrimSpace(req.CustomerName) == "" {
		writeError(w, r, "customer_name is required", "INVALID_BODY", http.StatusBadRequest)
		return
	}
	if len(req.Items) == 0 {
		writeError(w, r, "order must have at least one item", "INVALID_BODY", http.StatusBadRequest)
		return
	}

	order, err := h.svc.Orders.CreateOrder(r.Context(), req.toInput(actingRole(r), proofURL))
	if err != nil {
		serviceError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(order)
}

// getOrder handles GET /api/orders/{id}.
func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	orderID, ok := pathID(r, "id")
	if !ok {
		writeError(w, r, "invalid order id", "INVALID_ID", http.StatusBadRequest)
		return
	}
	order, err := h.svc.Orders.GetOrder(r.Context(), orderID)
	if err != nil {
		serviceError(w, r, err)
		return
	}
	writeJSON(w, order)
}

// listStationOrders handles GET /api/stations/{id}/orders: the station
// screen's pending queue.
func (h *Handler) listStationOrders(w http.ResponseWriter, r *http.Request) {
	stationID, ok := pathID(r, "id")
	if !ok {
		writeError(w, r, "invalid station id", "INVALID_ID", http.StatusBadRequest)
		return
	}
	orders, err := h.svc.Orders.ListPendingByStation(r.Context(), stationID)
	if err != nil {
		serviceError(w, r, err)
		return
	}
	writeJSON(w, orders)
}

// listReadyOrders handles GET /api/orders/ready: the dispatch queue.
func (h *Handler) listReadyOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.svc.Orders.ListReadyForDispatch(r.Context())
	if err != nil {
		serviceError(w, r, err)
		return
	}
	writeJSON(w, orders)
}

// listDeliveredOrders handles GET /api/orders/delivered?limit=N.
func (h *Handler) listDeliveredOrders(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	orders, err := h.svc.Orders.ListDeliveredHistory(r.Context(), limit)
	if err != nil {
		serviceError(w, r, err)
		return
	}
	writeJSON(w, orders)
}

// advanceOrderState handles PATCH /api/orders/{id}/state.
func (h *Handler) advanceOrderState(w http.ResponseWriter, r *http.Request) {
	orderID, ok := pathID(r, "id")
	if !ok {
		writeError(w, r, "invalid order id", "INVALID_ID", http.StatusBadRequest)
		return
	}

	var req struct {
		State string `json:"state"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, "invalid JSON body", "INVALID_BODY", http.StatusBadRequest)
		return
	}

	if err := h.svc.Orders.AdvanceState(r.Context(), orderID, req.State, actingRole(r)); err != nil {
		serviceError(w, r, err)
		return
	}
	writeJSON(w, map[string]string{"state": req.State})
}

// deliverOrder handles POST /api/orders/{id}/deliver: the dispatch shortcut.
func (h *Handler) deliverOrder(w http.ResponseWriter, r *http.Request) {
	orderID, ok := pathID(r, "id")
	if !ok {
		writeError(w, r, "invalid order id", "INVALID_ID", http.StatusBadRequest)
		return
	}
	if err := h.svc.Orders.MarkDelivered(r.Context(), orderID, actingRole(r)); err != nil {
		serviceError(w, r, err)
		return
	}
	writeJSON(w, map[string]string{"state": core.StateDelivered})
}

// drawBottle handles POST /api/orders/{id}/draw-bottle: the drinks station
// serving glass lines out of bottle stock.
func (h *Handler) drawBottle(w http.ResponseWriter, r *http.Request) {
	orderID, ok := pathID(r, "id")
	if !ok {
		writeError(w, r, "invalid order id", "INVALID_ID", http.StatusBadRequest)
		return
	}

	var req struct {
		ProductID int `json:"product_id"`
		Glasses   int `json:"glasses"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, "invalid JSON body", "INVALID_BODY", http.StatusBadRequest)
		return
	}
	if req.ProductID <= 0 || req.Glasses <= 0 {
		writeError(w, r, "product_id and glasses must be positive", "INVALID_BODY", http.StatusBadRequest)
		return
	}

	draw, err := h.svc.Orders.DrawBottleForGlassLine(r.Context(), orderID, req.ProductID, req.Glasses, actingRole(r))
	if err != nil {
		serviceError(w, r, err)
		return
	}
	writeJSON(w, draw)
}
