package web

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"cenaculo-pos/internal/core"

	"github.com/go-chi/chi/v5"
)

// parseWindow reads ?from= and ?to= (YYYY-MM-DD). Absent bounds default to
// today's window.
func parseWindow(r *http.Request) (time.Time, time.Time, error) {
	now := time.Now()
	from := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	to := from.AddDate(0, 0, 1)

	if v := r.URL.Query().Get("from"); v != "" {
		t, err := time.ParseInLocation("2006-01-02", v, now.Location())
		if err != nil {
			return from, to, err
		}
		from = t
	}
	if v := r.URL.Query().Get("to"); v != "" {
		t, err := time.ParseInLocation("2006-01-02", v, now.Location())
		if err != nil {
			return from, to, err
		}
		// Inclusive end date.
		to = t.AddDate(0, 0, 1)
	}
	return from, to, nil
}

// listSales handles GET /api/sales?from=&to=.
func (h *Handler) listSales(w http.ResponseWriter, r *http.Request) {
	from, to, err := parseWindow(r)
	if err != nil {
		writeError(w, r, "from/to must be YYYY-MM-DD", "INVALID_DATE", http.StatusBadRequest)
		return
	}
	sales, err := h.svc.Reporting.ListSales(r.Context(), from, to)
	if err != nil {
		serviceError(w, r, err)
		return
	}
	writeJSON(w, sales)
}

// salesSummary handles GET /api/sales/summary?from=&to=.
func (h *Handler) salesSummary(w http.ResponseWriter, r *http.Request) {
	from, to, err := parseWindow(r)
	if err != nil {
		writeError(w, r, "from/to must be YYYY-MM-DD", "INVALID_DATE", http.StatusBadRequest)
		return
	}
	summary, err := h.svc.Reporting.Summarize(r.Context(), from, to)
	if err != nil {
		serviceError(w, r, err)
		return
	}
	writeJSON(w, summary)
}

// topProducts handles GET /api/sales/top-products?from=&to=&limit=.
func (h *Handler) topProducts(w http.ResponseWriter, r *http.Request) {
	from, to, err := parseWindow(r)
	if err != nil {
		writeError(w, r, "from/to must be YYYY-MM-DD", "INVALID_DATE", http.StatusBadRequest)
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	ranking, err := h.svc.Reporting.TopProducts(r.Context(), from, to, limit)
	if err != nil {
		serviceError(w, r, err)
		return
	}
	writeJSON(w, ranking)
}

// closeDay handles POST /api/day-close.
func (h *Handler) closeDay(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Date   string `json:"date"` // YYYY-MM-DD, defaults to today
		Phrase string `json:"phrase"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, "invalid JSON body", "INVALID_BODY", http.StatusBadRequest)
		return
	}

	date := time.Now()
	if req.Date != "" {
		t, err := time.Parse("2006-01-02", req.Date)
		if err != nil {
			writeError(w, r, "date must be YYYY-MM-DD", "INVALID_DATE", http.StatusBadRequest)
			return
		}
		date = t
	}

	snapshot, err := h.svc.Reporting.CloseDay(r.Context(), date, req.Phrase, actingRole(r))
	if err != nil {
		serviceError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(snapshot)
}

// getDayClose handles GET /api/day-close/{date}.
func (h *Handler) getDayClose(w http.ResponseWriter, r *http.Request) {
	date, err := time.Parse("2006-01-02", chi.URLParam(r, "date"))
	if err != nil {
		writeError(w, r, "date must be YYYY-MM-DD", "INVALID_DATE", http.StatusBadRequest)
		return
	}
	snapshot, err := h.svc.Reporting.GetDayClose(r.Context(), date)
	if err != nil {
		writeError(w, r, err.Error(), "DAY_CLOSE_NOT_FOUND", http.StatusNotFound)
		return
	}
	writeJSON(w, snapshot)
}

// listNotifications handles GET /api/notifications?role=. Defaults to the
// caller's X-Role.
func (h *Handler) listNotifications(w http.ResponseWriter, r *http.Request) {
	role := r.URL.Query().Get("role")
	if role == "" {
		role = actingRole(r)
	}
	notifications, err := h.svc.Notifications.ListUnread(r.Context(), role)
	if err != nil {
		serviceError(w, r, err)
		return
	}
	writeJSON(w, notifications)
}

// markNotificationRead handles POST /api/notifications/{id}/read.
func (h *Handler) markNotificationRead(w http.ResponseWriter, r *http.Request) {
	notificationID, ok := pathID(r, "id")
	if !ok {
		writeError(w, r, "invalid notification id", "INVALID_ID", http.StatusBadRequest)
		return
	}
	if err := h.svc.Notifications.MarkRead(r.Context(), notificationID); err != nil {
		serviceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// listAudit handles GET /api/audit?role=&table=&from=&to=&limit=.
func (h *Handler) listAudit(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	entries, err := h.svc.Audit.Recent(r.Context(), core.AuditFilter{
		Role:     r.URL.Query().Get("role"),
		Table:    r.URL.Query().Get("table"),
		FromDate: r.URL.Query().Get("from"),
		ToDate:   r.URL.Query().Get("to"),
		Limit:    limit,
	})
	if err != nil {
		serviceError(w, r, err)
		return
	}
	writeJSON(w, entries)
}

// systemReset handles POST /api/system/reset: wipes order, sale, and
// notification history and zeroes stock. Guarded by the close phrase.
func (h *Handler) systemReset(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Phrase string `json:"phrase"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, "invalid JSON body", "INVALID_BODY", http.StatusBadRequest)
		return
	}
	if err := h.svc.Orders.Reset(r.Context(), req.Phrase, actingRole(r)); err != nil {
		serviceError(w, r, err)
		return
	}
	writeJSON(w, map[string]string{"status": "reset"})
}
