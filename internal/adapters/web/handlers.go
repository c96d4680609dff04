package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"retail-backoffice/internal/app"

	"github.com/go-chi/chi/v5"
)

// Handler serves the HTTP routes on top of the ApplicationService.
type Handler struct {
	svc app.ApplicationService
}

// NewHandler creates and wires the chi router with all routes.
func NewHandler(svc app.ApplicationService, allowedOrigins string, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handler{svc: svc}

	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(Logger(logger))
	r.Use(Recoverer(logger))
	r.Use(CORS(allowedOrigins))

	// ── Health (public) ───────────────────────────────────────────────────────
	r.Get("/api/health", h.health)

	r.Group(func(r chi.Router) {
		r.Use(RequestBodyLimit(1 << 20)) // 1 MB

		// ── Read-only ─────────────────────────────────────────────────────────
		r.Get("/api/orders/{orderID}/amendments", h.apiListAmendments)
		r.Get("/api/amendments/pending", h.apiListPendingAmendments)
		r.Get("/api/amendments/{id}", h.apiGetAmendment)
		r.Get("/api/orders/{orderID}/versions", h.apiListVersions)
		r.Get("/api/orders/{orderID}/versions/compare", h.apiCompareVersions)
		r.Get("/api/orders/{orderID}/versions/{version}", h.apiGetVersion)
		r.Get("/api/orders/{orderID}/shipments", h.apiListShipments)
		r.Get("/api/orders/{orderID}/fulfillment", h.apiFulfillmentSummary)

		// Preview writes nothing but is attributed like a create.
		r.Group(func(r chi.Router) {
			r.Use(UserID)

			// ── Amendments ────────────────────────────────────────────────────
			r.Post("/api/orders/{orderID}/amendments/preview", h.apiPreviewAmendment)
			r.Post("/api/orders/{orderID}/amendments", h.apiCreateAmendment)
			r.Post("/api/amendments/{id}/approve", h.apiApproveAmendment)
			r.Post("/api/amendments/{id}/reject", h.apiRejectAmendment)
			r.Post("/api/amendments/{id}/apply", h.apiApplyAmendment)

			// ── Fulfillment ───────────────────────────────────────────────────
			r.Post("/api/orders/{orderID}/shipments", h.apiCreateShipment)
			r.Post("/api/shipments/{id}/status", h.apiUpdateShipmentStatus)
			r.Post("/api/orders/{orderID}/backorders", h.apiMarkBackordered)
		})
	})

	return r
}

// health returns service status.
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	type response struct {
		Status string `json:"status"`
	}
	writeJSON(w, response{Status: "ok"})
}

// pathInt parses a positive integer URL parameter, writing a 400 on failure.
func pathInt(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	raw := chi.URLParam(r, name)
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		writeError(w, r, fmt.Sprintf("invalid %s %q", name, raw), "BAD_REQUEST", http.StatusBadRequest)
		return 0, false
	}
	return n, true
}

// queryInt parses a required positive integer query parameter, writing a 400 on failure.
func queryInt(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	raw := r.URL.Query().Get(name)
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		writeError(w, r, fmt.Sprintf("query parameter %s must be a positive integer", name), "BAD_REQUEST", http.StatusBadRequest)
		return 0, false
	}
	return n, true
}

// decodeJSON decodes the request body into v and returns false + writes an appropriate
// error response on failure. Returns HTTP 413 when the body exceeds the size limit set
// by RequestBodyLimit middleware; HTTP 400 for all other decode errors.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeDecodeError(w, r, err)
		return false
	}
	return true
}

func writeDecodeError(w http.ResponseWriter, r *http.Request, err error) {
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		writeError(w, r, "request body too large", "REQUEST_TOO_LARGE", http.StatusRequestEntityTooLarge)
		return
	}
	writeError(w, r, "invalid JSON body: "+err.Error(), "BAD_REQUEST", http.StatusBadRequest)
}
