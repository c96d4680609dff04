package web

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"retail-backoffice/internal/app"
	"retail-backoffice/internal/core"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type appServiceMock struct{ mock.Mock }

func (m *appServiceMock) PreviewAmendment(ctx context.Context, req app.AmendmentRequest) (*app.PreviewResult, error) {
	args := m.Called(ctx, req)
	res, _ := args.Get(0).(*app.PreviewResult)
	return res, args.Error(1)
}

func (m *appServiceMock) CreateAmendment(ctx context.Context, req app.AmendmentRequest) (*app.AmendmentResult, error) {
	args := m.Called(ctx, req)
	res, _ := args.Get(0).(*app.AmendmentResult)
	return res, args.Error(1)
}

func (m *appServiceMock) ApproveAmendment(ctx context.Context, req app.DecisionRequest) (*app.AmendmentResult, error) {
	args := m.Called(ctx, req)
	res, _ := args.Get(0).(*app.AmendmentResult)
	return res, args.Error(1)
}

func (m *appServiceMock) RejectAmendment(ctx context.Context, req app.DecisionRequest) (*app.AmendmentResult, error) {
	args := m.Called(ctx, req)
	res, _ := args.Get(0).(*app.AmendmentResult)
	return res, args.Error(1)
}

func (m *appServiceMock) ApplyAmendment(ctx context.Context, amendmentID, userID int) (*app.ApplyResult, error) {
	args := m.Called(ctx, amendmentID, userID)
	res, _ := args.Get(0).(*app.ApplyResult)
	return res, args.Error(1)
}

func (m *appServiceMock) GetAmendment(ctx context.Context, amendmentID int) (*app.AmendmentResult, error) {
	args := m.Called(ctx, amendmentID)
	res, _ := args.Get(0).(*app.AmendmentResult)
	return res, args.Error(1)
}

func (m *appServiceMock) ListAmendments(ctx context.Context, orderID int) (*app.AmendmentListResult, error) {
	args := m.Called(ctx, orderID)
	res, _ := args.Get(0).(*app.AmendmentListResult)
	return res, args.Error(1)
}

func (m *appServiceMock) ListPendingAmendments(ctx context.Context) (*app.AmendmentListResult, error) {
	args := m.Called(ctx)
	res, _ := args.Get(0).(*app.AmendmentListResult)
	return res, args.Error(1)
}

func (m *appServiceMock) ListVersions(ctx context.Context, orderID int) (*app.VersionListResult, error) {
	args := m.Called(ctx, orderID)
	res, _ := args.Get(0).(*app.VersionListResult)
	return res, args.Error(1)
}

func (m *appServiceMock) GetVersion(ctx context.Context, orderID, versionNumber int) (*app.VersionResult, error) {
	args := m.Called(ctx, orderID, versionNumber)
	res, _ := args.Get(0).(*app.VersionResult)
	return res, args.Error(1)
}

func (m *appServiceMock) CompareVersions(ctx context.Context, orderID, fromVersion, toVersion int) (*app.VersionDiffResult, error) {
	args := m.Called(ctx, orderID, fromVersion, toVersion)
	res, _ := args.Get(0).(*app.VersionDiffResult)
	return res, args.Error(1)
}

func (m *appServiceMock) CreateShipment(ctx context.Context, req app.ShipmentRequest) (*app.ShipmentResult, error) {
	args := m.Called(ctx, req)
	res, _ := args.Get(0).(*app.ShipmentResult)
	return res, args.Error(1)
}

func (m *appServiceMock) UpdateShipmentStatus(ctx context.Context, shipmentID int, status string) (*app.ShipmentResult, error) {
	args := m.Called(ctx, shipmentID, status)
	res, _ := args.Get(0).(*app.ShipmentResult)
	return res, args.Error(1)
}

func (m *appServiceMock) ListShipments(ctx context.Context, orderID int) (*app.ShipmentListResult, error) {
	args := m.Called(ctx, orderID)
	res, _ := args.Get(0).(*app.ShipmentListResult)
	return res, args.Error(1)
}

func (m *appServiceMock) MarkBackordered(ctx context.Context, req app.BackorderRequest) (*app.BackorderResult, error) {
	args := m.Called(ctx, req)
	res, _ := args.Get(0).(*app.BackorderResult)
	return res, args.Error(1)
}

func (m *appServiceMock) GetFulfillmentSummary(ctx context.Context, orderID int) (*app.FulfillmentSummaryResult, error) {
	args := m.Called(ctx, orderID)
	res, _ := args.Get(0).(*app.FulfillmentSummaryResult)
	return res, args.Error(1)
}

func newTestHandler(svc app.ApplicationService) http.Handler {
	return NewHandler(svc, "", slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func do(t *testing.T, h http.Handler, method, path, userID, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rdr io.Reader
	if body != "" {
		rdr = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rdr)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorResponse {
	t.Helper()
	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestHealth(t *testing.T) {
	rec := do(t, newTestHandler(&appServiceMock{}), http.MethodGet, "/api/health", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestCreateAmendment_ConvertsBody(t *testing.T) {
	svc := &appServiceMock{}
	price := decimal.RequireFromString("319.00")
	want := app.AmendmentRequest{
		OrderID:        42,
		Add:            []app.AddLine{{ProductID: 3, Quantity: 1}},
		Remove:         []int{2},
		Modify:         []app.ModifyLine{{ProductID: 1, Quantity: 3, PriceOverride: &price}},
		UseQuotePrices: true,
		Reason:         "customer call",
		UserID:         501,
	}
	svc.On("CreateAmendment", mock.Anything, mock.MatchedBy(func(req app.AmendmentRequest) bool {
		return req.OrderID == want.OrderID &&
			assert.ObjectsAreEqual(want.Add, req.Add) &&
			assert.ObjectsAreEqual(want.Remove, req.Remove) &&
			len(req.Modify) == 1 && req.Modify[0].PriceOverride != nil &&
			req.Modify[0].PriceOverride.Equal(price) &&
			req.UseQuotePrices && req.Reason == want.Reason && req.UserID == want.UserID
	})).Return(&app.AmendmentResult{
		Amendment: &core.Amendment{ID: 9, AmendmentNumber: "AMD-42-1", Status: core.AmendmentDraft},
	}, nil)

	body := `{
		"add": [{"product_id": 3, "quantity": 1}],
		"remove": [2],
		"modify": [{"product_id": 1, "quantity": 3, "price_override": "319.00"}],
		"use_quote_prices": true,
		"reason": "customer call"
	}`
	rec := do(t, newTestHandler(svc), http.MethodPost, "/api/orders/42/amendments", "501", body)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var got app.AmendmentResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "AMD-42-1", got.Amendment.AmendmentNumber)
	assert.Equal(t, core.AmendmentDraft, got.Amendment.Status)
	svc.AssertExpectations(t)
}

func TestCreateAmendment_RequiresUser(t *testing.T) {
	svc := &appServiceMock{}
	rec := do(t, newTestHandler(svc), http.MethodPost, "/api/orders/42/amendments", "", `{"remove":[1]}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "UNAUTHORIZED", decodeError(t, rec).Code)

	rec = do(t, newTestHandler(svc), http.MethodPost, "/api/orders/42/amendments", "abc", `{"remove":[1]}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	svc.AssertNotCalled(t, "CreateAmendment", mock.Anything, mock.Anything)
}

func TestCreateAmendment_BadInput(t *testing.T) {
	svc := &appServiceMock{}
	h := newTestHandler(svc)

	cases := []struct {
		name string
		path string
		body string
	}{
		{"bad order id", "/api/orders/x/amendments", `{}`},
		{"malformed json", "/api/orders/1/amendments", `{"add":`},
		{"bad override", "/api/orders/1/amendments", `{"add":[{"product_id":1,"quantity":1,"price_override":"cheap"}]}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := do(t, h, http.MethodPost, tc.path, "1", tc.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, "BAD_REQUEST", decodeError(t, rec).Code)
		})
	}
	svc.AssertNotCalled(t, "CreateAmendment", mock.Anything, mock.Anything)
}

func TestServiceErrorsMapToStatus(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"not found", &core.NotFoundError{Entity: "amendment", ID: 5}, http.StatusNotFound, "NOT_FOUND"},
		{"invalid input", &core.ValidationError{Field: "reason", Detail: "required"}, http.StatusBadRequest, "BAD_REQUEST"},
		{"approval", &core.ApprovalRequiredError{AmendmentID: 5, Status: core.AmendmentPendingApproval}, http.StatusConflict, "APPROVAL_REQUIRED"},
		{"state", &core.StateTransitionError{AmendmentID: 5, Current: core.AmendmentApplied, Attempted: "apply"}, http.StatusConflict, "INVALID_STATE_TRANSITION"},
		{"consistency", &core.ConsistencyError{Entity: "order item", ID: 3, Detail: "over-shipped"}, http.StatusUnprocessableEntity, "CONSISTENCY_VIOLATION"},
		{"transaction", &core.TransactionError{Op: "apply amendment", Err: io.ErrUnexpectedEOF}, http.StatusInternalServerError, "INTERNAL_ERROR"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &appServiceMock{}
			svc.On("ApplyAmendment", mock.Anything, 5, 900).Return(nil, tc.err)

			rec := do(t, newTestHandler(svc), http.MethodPost, "/api/amendments/5/apply", "900", "")

			assert.Equal(t, tc.status, rec.Code)
			resp := decodeError(t, rec)
			assert.Equal(t, tc.code, resp.Code)
			assert.NotEmpty(t, resp.RequestID)
			if tc.status == http.StatusInternalServerError {
				assert.NotContains(t, resp.Error, "unexpected EOF")
			}
		})
	}
}

func TestApproveAndReject(t *testing.T) {
	svc := &appServiceMock{}
	svc.On("ApproveAmendment", mock.Anything, app.DecisionRequest{AmendmentID: 5, ApproverID: 900}).
		Return(&app.AmendmentResult{Amendment: &core.Amendment{ID: 5, Status: core.AmendmentApproved}}, nil)
	svc.On("RejectAmendment", mock.Anything, app.DecisionRequest{AmendmentID: 6, ApproverID: 900, Text: "too expensive"}).
		Return(&app.AmendmentResult{Amendment: &core.Amendment{ID: 6, Status: core.AmendmentRejected}}, nil)
	h := newTestHandler(svc)

	rec := do(t, h, http.MethodPost, "/api/amendments/5/approve", "900", "")
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, h, http.MethodPost, "/api/amendments/6/reject", "900", `{"reason":"too expensive"}`)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	svc.AssertExpectations(t)
}

func TestCompareVersions(t *testing.T) {
	svc := &appServiceMock{}
	svc.On("CompareVersions", mock.Anything, 42, 1, 3).
		Return(&app.VersionDiffResult{Diff: &core.VersionDiff{OrderID: 42}}, nil)
	h := newTestHandler(svc)

	rec := do(t, h, http.MethodGet, "/api/orders/42/versions/compare?from=1&to=3", "", "")
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, h, http.MethodGet, "/api/orders/42/versions/compare?from=1", "", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	svc.AssertNumberOfCalls(t, "CompareVersions", 1)
}

func TestGetVersion(t *testing.T) {
	svc := &appServiceMock{}
	svc.On("GetVersion", mock.Anything, 42, 2).
		Return(nil, &core.NotFoundError{Entity: "order version", ID: 2})

	rec := do(t, newTestHandler(svc), http.MethodGet, "/api/orders/42/versions/2", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	svc.AssertExpectations(t)
}

func TestCreateShipment(t *testing.T) {
	svc := &appServiceMock{}
	svc.On("CreateShipment", mock.Anything, app.ShipmentRequest{
		OrderID:        42,
		Carrier:        "UPS",
		TrackingNumber: "1Z999",
		UserID:         501,
		Lines:          []app.ShipmentLine{{OrderItemID: 10, Quantity: 1}},
	}).Return(&app.ShipmentResult{Shipment: &core.Shipment{ID: 3, OrderID: 42}}, nil)
	h := newTestHandler(svc)

	rec := do(t, h, http.MethodPost, "/api/orders/42/shipments", "501",
		`{"carrier":"UPS","tracking_number":"1Z999","items":[{"order_item_id":10,"quantity":1}]}`)
	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = do(t, h, http.MethodPost, "/api/orders/42/shipments", "501", `{"carrier":"UPS","items":[]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	svc.AssertNumberOfCalls(t, "CreateShipment", 1)
}

func TestUpdateShipmentStatus(t *testing.T) {
	svc := &appServiceMock{}
	svc.On("UpdateShipmentStatus", mock.Anything, 3, "delivered").
		Return(&app.ShipmentResult{Shipment: &core.Shipment{ID: 3, Status: core.ShipmentDelivered}}, nil)
	h := newTestHandler(svc)

	rec := do(t, h, http.MethodPost, "/api/shipments/3/status", "501", `{"status":"delivered"}`)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, h, http.MethodPost, "/api/shipments/3/status", "501", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	svc.AssertExpectations(t)
}

func TestBodyLimit(t *testing.T) {
	svc := &appServiceMock{}
	big := `{"reason":"` + strings.Repeat("x", 2<<20) + `"}`
	rec := do(t, newTestHandler(svc), http.MethodPost, "/api/orders/1/amendments", "1", big)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestCORS(t *testing.T) {
	h := NewHandler(&appServiceMock{}, "https://backoffice.example.com", slog.New(slog.NewTextHandler(io.Discard, nil)))

	req := httptest.NewRequest(http.MethodOptions, "/api/health", nil)
	req.Header.Set("Origin", "https://backoffice.example.com")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://backoffice.example.com", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}
