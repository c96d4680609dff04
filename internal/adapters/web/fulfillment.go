package web

import (
	"net/http"

	"retail-backoffice/internal/app"
)

type shipmentLineBody struct {
	OrderItemID int `json:"order_item_id"`
	Quantity    int `json:"quantity"`
}

func shipmentLines(body []shipmentLineBody) []app.ShipmentLine {
	lines := make([]app.ShipmentLine, len(body))
	for i, l := range body {
		lines[i] = app.ShipmentLine{OrderItemID: l.OrderItemID, Quantity: l.Quantity}
	}
	return lines
}

// apiCreateShipment handles POST /api/orders/{orderID}/shipments.
func (h *Handler) apiCreateShipment(w http.ResponseWriter, r *http.Request) {
	orderID, ok := pathInt(w, r, "orderID")
	if !ok {
		return
	}
	var body struct {
		Carrier        string             `json:"carrier"`
		TrackingNumber string             `json:"tracking_number"`
		Status         string             `json:"status"`
		Notes          string             `json:"notes"`
		Items          []shipmentLineBody `json:"items"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	if len(body.Items) == 0 {
		writeError(w, r, "at least one item is required", "BAD_REQUEST", http.StatusBadRequest)
		return
	}

	result, err := h.svc.CreateShipment(r.Context(), app.ShipmentRequest{
		OrderID:        orderID,
		Carrier:        body.Carrier,
		TrackingNumber: body.TrackingNumber,
		Status:         body.Status,
		Notes:          body.Notes,
		UserID:         userIDFromContext(r.Context()),
		Lines:          shipmentLines(body.Items),
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, result)
}

// apiListShipments handles GET /api/orders/{orderID}/shipments.
func (h *Handler) apiListShipments(w http.ResponseWriter, r *http.Request) {
	orderID, ok := pathInt(w, r, "orderID")
	if !ok {
		return
	}
	result, err := h.svc.ListShipments(r.Context(), orderID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// apiUpdateShipmentStatus handles POST /api/shipments/{id}/status.
func (h *Handler) apiUpdateShipmentStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInt(w, r, "id")
	if !ok {
		return
	}
	var body struct {
		Status string `json:"status"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	if body.Status == "" {
		writeError(w, r, "status is required", "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	result, err := h.svc.UpdateShipmentStatus(r.Context(), id, body.Status)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// apiMarkBackordered handles POST /api/orders/{orderID}/backorders.
func (h *Handler) apiMarkBackordered(w http.ResponseWriter, r *http.Request) {
	orderID, ok := pathInt(w, r, "orderID")
	if !ok {
		return
	}
	var body struct {
		Items []shipmentLineBody `json:"items"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	result, err := h.svc.MarkBackordered(r.Context(), app.BackorderRequest{
		OrderID: orderID,
		UserID:  userIDFromContext(r.Context()),
		Lines:   shipmentLines(body.Items),
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// apiFulfillmentSummary handles GET /api/orders/{orderID}/fulfillment.
func (h *Handler) apiFulfillmentSummary(w http.ResponseWriter, r *http.Request) {
	orderID, ok := pathInt(w, r, "orderID")
	if !ok {
		return
	}
	result, err := h.svc.GetFulfillmentSummary(r.Context(), orderID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}
