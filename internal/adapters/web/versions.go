package web

import (
	"net/http"
)

// apiListVersions handles GET /api/orders/{orderID}/versions.
func (h *Handler) apiListVersions(w http.ResponseWriter, r *http.Request) {
	orderID, ok := pathInt(w, r, "orderID")
	if !ok {
		return
	}
	result, err := h.svc.ListVersions(r.Context(), orderID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// apiGetVersion handles GET /api/orders/{orderID}/versions/{version}.
func (h *Handler) apiGetVersion(w http.ResponseWriter, r *http.Request) {
	orderID, ok := pathInt(w, r, "orderID")
	if !ok {
		return
	}
	version, ok := pathInt(w, r, "version")
	if !ok {
		return
	}
	result, err := h.svc.GetVersion(r.Context(), orderID, version)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// apiCompareVersions handles GET /api/orders/{orderID}/versions/compare?from=1&to=2.
func (h *Handler) apiCompareVersions(w http.ResponseWriter, r *http.Request) {
	orderID, ok := pathInt(w, r, "orderID")
	if !ok {
		return
	}
	from, ok := queryInt(w, r, "from")
	if !ok {
		return
	}
	to, ok := queryInt(w, r, "to")
	if !ok {
		return
	}
	result, err := h.svc.CompareVersions(r.Context(), orderID, from, to)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}
