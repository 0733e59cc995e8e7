package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"cenaculo-pos/internal/core"
)

type errorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	RequestID string `json:"request_id,omitempty"`
}

// writeError writes a structured JSON error response.
func writeError(w http.ResponseWriter, r *http.Request, message, code string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	resp := errorResponse{
		Error:     message,
		Code:      code,
		RequestID: requestIDFromContext(r.Context()),
	}
	_ = json.NewEncoder(w).Encode(resp)
}

// writeJSON writes a JSON response with status 200.
func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// serviceError maps domain sentinel errors onto HTTP responses. Anything not
// recognized becomes a 500 with a generic message so internal details never
// leak to clients.
func serviceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, core.ErrProductNotFound):
		writeError(w, r, err.Error(), "PRODUCT_NOT_FOUND", http.StatusNotFound)
	case errors.Is(err, core.ErrOrderNotFound):
		writeError(w, r, err.Error(), "ORDER_NOT_FOUND", http.StatusNotFound)
	case errors.Is(err, core.ErrStationNotFound):
		writeError(w, r, err.Error(), "STATION_NOT_FOUND", http.StatusNotFound)
	case errors.Is(err, core.ErrInsufficientStock):
		writeError(w, r, err.Error(), "INSUFFICIENT_STOCK", http.StatusConflict)
	case errors.Is(err, core.ErrMissingBaseProduct):
		writeError(w, r, err.Error(), "MISSING_BASE_PRODUCT", http.StatusConflict)
	case errors.Is(err, core.ErrInvalidState):
		writeError(w, r, err.Error(), "INVALID_STATE", http.StatusBadRequest)
	case errors.Is(err, core.ErrAlreadyClosed):
		writeError(w, r, err.Error(), "DAY_ALREADY_CLOSED", http.StatusConflict)
	case errors.Is(err, core.ErrBadClosePhrase):
		writeError(w, r, "close phrase does not match", "BAD_CLOSE_PHRASE", http.StatusForbidden)
	case errors.Is(err, core.ErrProofUploadFailed):
		writeError(w, r, err.Error(), "PROOF_UPLOAD_FAILED", http.StatusBadGateway)
	default:
		writeError(w, r, "internal server error", "INTERNAL_ERROR", http.StatusInternalServerError)
	}
}
