package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"retail-backoffice/internal/app"

	"github.com/shopspring/decimal"
)

type amendmentLineBody struct {
	ProductID     int    `json:"product_id"`
	Quantity      int    `json:"quantity"`
	PriceOverride string `json:"price_override"`
}

type amendmentBody struct {
	Add            []amendmentLineBody `json:"add"`
	Remove         []int               `json:"remove"`
	Modify         []amendmentLineBody `json:"modify"`
	UseQuotePrices bool                `json:"use_quote_prices"`
	Reason         string              `json:"reason"`
}

// amendmentRequest decodes the change batch shared by preview and create.
func amendmentRequest(w http.ResponseWriter, r *http.Request) (app.AmendmentRequest, bool) {
	orderID, ok := pathInt(w, r, "orderID")
	if !ok {
		return app.AmendmentRequest{}, false
	}
	var body amendmentBody
	if !decodeJSON(w, r, &body) {
		return app.AmendmentRequest{}, false
	}

	req := app.AmendmentRequest{
		OrderID:        orderID,
		Remove:         body.Remove,
		UseQuotePrices: body.UseQuotePrices,
		Reason:         body.Reason,
		UserID:         userIDFromContext(r.Context()),
	}
	for i, l := range body.Add {
		price, err := parseOverride(l.PriceOverride)
		if err != nil {
			writeError(w, r, fmt.Sprintf("add line %d: invalid price_override", i+1), "BAD_REQUEST", http.StatusBadRequest)
			return req, false
		}
		req.Add = append(req.Add, app.AddLine{ProductID: l.ProductID, Quantity: l.Quantity, PriceOverride: price})
	}
	for i, l := range body.Modify {
		price, err := parseOverride(l.PriceOverride)
		if err != nil {
			writeError(w, r, fmt.Sprintf("modify line %d: invalid price_override", i+1), "BAD_REQUEST", http.StatusBadRequest)
			return req, false
		}
		req.Modify = append(req.Modify, app.ModifyLine{ProductID: l.ProductID, Quantity: l.Quantity, PriceOverride: price})
	}
	return req, true
}

// parseOverride reads an optional decimal price. Empty means no override.
func parseOverride(s string) (*decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// apiPreviewAmendment handles POST /api/orders/{orderID}/amendments/preview.
func (h *Handler) apiPreviewAmendment(w http.ResponseWriter, r *http.Request) {
	req, ok := amendmentRequest(w, r)
	if !ok {
		return
	}
	result, err := h.svc.PreviewAmendment(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// apiCreateAmendment handles POST /api/orders/{orderID}/amendments.
func (h *Handler) apiCreateAmendment(w http.ResponseWriter, r *http.Request) {
	req, ok := amendmentRequest(w, r)
	if !ok {
		return
	}
	result, err := h.svc.CreateAmendment(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, result)
}

// apiListAmendments handles GET /api/orders/{orderID}/amendments.
func (h *Handler) apiListAmendments(w http.ResponseWriter, r *http.Request) {
	orderID, ok := pathInt(w, r, "orderID")
	if !ok {
		return
	}
	result, err := h.svc.ListAmendments(r.Context(), orderID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// apiListPendingAmendments handles GET /api/amendments/pending.
func (h *Handler) apiListPendingAmendments(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.ListPendingAmendments(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// apiGetAmendment handles GET /api/amendments/{id}.
func (h *Handler) apiGetAmendment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInt(w, r, "id")
	if !ok {
		return
	}
	result, err := h.svc.GetAmendment(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// apiApproveAmendment handles POST /api/amendments/{id}/approve.
func (h *Handler) apiApproveAmendment(w http.ResponseWriter, r *http.Request) {
	req, ok := decisionRequest(w, r)
	if !ok {
		return
	}
	result, err := h.svc.ApproveAmendment(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// apiRejectAmendment handles POST /api/amendments/{id}/reject.
func (h *Handler) apiRejectAmendment(w http.ResponseWriter, r *http.Request) {
	req, ok := decisionRequest(w, r)
	if !ok {
		return
	}
	result, err := h.svc.RejectAmendment(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// apiApplyAmendment handles POST /api/amendments/{id}/apply.
func (h *Handler) apiApplyAmendment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInt(w, r, "id")
	if !ok {
		return
	}
	result, err := h.svc.ApplyAmendment(r.Context(), id, userIDFromContext(r.Context()))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// decisionRequest reads an approve or reject body. The body is optional for
// approvals; the service decides whether an empty reason is acceptable.
func decisionRequest(w http.ResponseWriter, r *http.Request) (app.DecisionRequest, bool) {
	id, ok := pathInt(w, r, "id")
	if !ok {
		return app.DecisionRequest{}, false
	}
	var body struct {
		Notes  string `json:"notes"`
		Reason string `json:"reason"`
	}
	if !decodeOptionalJSON(w, r, &body) {
		return app.DecisionRequest{}, false
	}
	text := body.Notes
	if body.Reason != "" {
		text = body.Reason
	}
	return app.DecisionRequest{
		AmendmentID: id,
		ApproverID:  userIDFromContext(r.Context()),
		Text:        text,
	}, true
}

// decodeOptionalJSON is decodeJSON that accepts an empty body.
func decodeOptionalJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil || errors.Is(err, io.EOF) {
		return true
	}
	writeDecodeError(w, r, err)
	return false
}
