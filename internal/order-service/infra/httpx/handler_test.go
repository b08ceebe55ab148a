package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcmexdev/food-orders/internal/coordinator/sagalog"
	"github.com/jcmexdev/food-orders/internal/order-service/app"
	"github.com/jcmexdev/food-orders/internal/order-service/core/domain"
	"github.com/jcmexdev/food-orders/internal/order-service/infra/httpx/middlewares"
)

const testSecret = "test-secret"

type fakeService struct {
	placed   *app.PlaceOrderInput
	placeErr error
	verified []string
	query    *app.OrderQuery
	orders   map[string]*domain.Order
	cancel   error
	from, to *time.Time
}

func (f *fakeService) PlaceOrder(_ context.Context, in app.PlaceOrderInput) (*app.PlaceOrderResult, error) {
	f.placed = &in
	if f.placeErr != nil {
		return nil, f.placeErr
	}
	return &app.PlaceOrderResult{OrderID: "o1", SessionURL: "https://pay.test/cs_1", SagaID: "saga-1"}, nil
}

func (f *fakeService) VerifyOrder(_ context.Context, orderID, success string) (*app.VerifyResult, error) {
	f.verified = []string{orderID, success}
	if success == "true" {
		return &app.VerifyResult{Paid: true, Message: app.MsgPaid}, nil
	}
	return &app.VerifyResult{Message: app.MsgNotPaid}, nil
}

func (f *fakeService) GetOrder(_ context.Context, id string) (*domain.Order, error) {
	if o, ok := f.orders[id]; ok {
		return o, nil
	}
	return nil, domain.ErrOrderNotFound
}

func (f *fakeService) UserOrders(_ context.Context, userID string, page domain.PageRequest) (*domain.OrderPage, error) {
	return &domain.OrderPage{Orders: []domain.Order{{ID: "o1", UserID: userID}}, Total: 1, Page: page.Page, Pages: 1}, nil
}

func (f *fakeService) UserHistory(_ context.Context, _ string, _ domain.PageRequest) (*domain.UserOrderHistory, error) {
	return &domain.UserOrderHistory{Completed: 2}, nil
}

func (f *fakeService) ListOrders(_ context.Context, q app.OrderQuery) (*domain.OrderPage, error) {
	f.query = &q
	return &domain.OrderPage{Orders: []domain.Order{}, Page: q.Page.Page}, nil
}

func (f *fakeService) UpdateStatus(_ context.Context, orderID, _ string) (*domain.Order, error) {
	if _, ok := f.orders[orderID]; !ok {
		return nil, domain.ErrOrderNotFound
	}
	return f.orders[orderID], nil
}

func (f *fakeService) CancelOrder(_ context.Context, _ string) (*domain.Order, error) {
	return &domain.Order{}, f.cancel
}

func (f *fakeService) RestaurantItems(_ context.Context, restaurantID string) ([]domain.OrderItem, error) {
	return []domain.OrderItem{{ID: "i1", RestaurantID: restaurantID}}, nil
}

func (f *fakeService) RestaurantRevenue(_ context.Context, _ string, from, to *time.Time) (domain.RestaurantRevenue, error) {
	f.from, f.to = from, to
	return domain.RestaurantRevenue{TotalRevenue: 820, TotalItems: 10}, nil
}

func (f *fakeService) ListItems(_ context.Context, _ domain.ItemFilter, _ domain.PageRequest) (*domain.ItemPage, error) {
	return &domain.ItemPage{Items: []domain.OrderItem{}}, nil
}

func (f *fakeService) UpdateItemsStatus(_ context.Context, orderID, _ string) (int64, error) {
	if orderID == "missing" {
		return 0, domain.ErrItemNotFound
	}
	return 3, nil
}

func (f *fakeService) ItemQuantity(_ context.Context, _ string) (int64, error) {
	return 7, nil
}

func (f *fakeService) Statistics(_ context.Context) (*domain.Statistics, error) {
	return &domain.Statistics{Total: 4}, nil
}

func (f *fakeService) Revenue(_ context.Context, from, to *time.Time) (domain.Revenue, error) {
	f.from, f.to = from, to
	return domain.Revenue{TotalRevenue: 350, TotalOrders: 2}, nil
}

func (f *fakeService) PlacementTrail(_ context.Context, sagaID string) (*sagalog.Trail, error) {
	switch sagaID {
	case "saga-1":
		return sagalog.NewTrail([]sagalog.SagaLog{{SagaID: "saga-1", Status: sagalog.StatusCompleted}}), nil
	case "off":
		return nil, app.ErrSagaLogUnavailable
	}
	return nil, fmt.Errorf("sqlite: saga %q: %w", sagaID, sagalog.ErrNotFound)
}

func newTestRouter(svc *fakeService) http.Handler {
	return NewRouter(NewHandler(svc), RouterOptions{
		Auth: middlewares.NewAuthenticator(testSecret, "admin"),
	})
}

func signToken(t *testing.T, id, role string) string {
	t.Helper()
	claims := jwt.MapClaims{"id": id}
	if role != "" {
		claims["role"] = role
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return s
}

type response struct {
	Success    bool            `json:"success"`
	Data       json.RawMessage `json:"data"`
	Message    string          `json:"message"`
	SessionURL string          `json:"session_url"`
}

func do(t *testing.T, h http.Handler, method, path, token, body string) (int, response) {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if token != "" {
		req.Header.Set(middlewares.TokenHeader, token)
	}
	req.Header.Set("x-idempotency-key", "idem-1")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var res response
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	}
	return rec.Code, res
}

const placeBody = `{
  "userId": "u1",
  "customerName": "Asha",
  "amount": 600,
  "items": [{"_id": "food-1", "name": "Thali", "price": 250, "quantity": 2, "restaurantId": "r1"}],
  "address": {"line1": "12 MG Road", "city": "Pune", "state": "MH", "postal_code": "411001", "country": "IN"}
}`

func TestBanner(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestRouter(&fakeService{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/order/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, bannerText, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("x-request-id"))
}

func TestPlaceOrder(t *testing.T) {
	svc := &fakeService{}
	h := newTestRouter(svc)

	code, res := do(t, h, http.MethodPost, "/api/order/place", signToken(t, "u1", "user"), placeBody)
	require.Equal(t, http.StatusOK, code)
	assert.True(t, res.Success)
	assert.Equal(t, "https://pay.test/cs_1", res.SessionURL)

	require.NotNil(t, svc.placed)
	assert.Equal(t, "u1", svc.placed.UserID)
	assert.Equal(t, "food-1", svc.placed.Items[0].ItemID)
	assert.Equal(t, "411001", svc.placed.Address.PostalCode)
	assert.Equal(t, "idem-1", svc.placed.IdempotencyKey)
	assert.NotEmpty(t, svc.placed.Token)
}

func TestPlaceOrderRejections(t *testing.T) {
	tests := []struct {
		name     string
		token    func(t *testing.T) string
		body     string
		svcErr   error
		wantCode int
		wantMsg  string
	}{
		{
			name:     "missing token",
			token:    func(*testing.T) string { return "" },
			body:     placeBody,
			wantCode: http.StatusUnauthorized,
			wantMsg:  "Not Authorized Login Again",
		},
		{
			name: "token signed with another secret",
			token: func(t *testing.T) string {
				s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"id": "u1"}).SignedString([]byte("other"))
				require.NoError(t, err)
				return s
			},
			body:     placeBody,
			wantCode: http.StatusUnauthorized,
			wantMsg:  "Not Authorized Login Again",
		},
		{
			name:     "placing for someone else",
			token:    func(t *testing.T) string { return signToken(t, "u2", "user") },
			body:     placeBody,
			wantCode: http.StatusOK,
			wantMsg:  "Not Authorized",
		},
		{
			name:     "empty items fail the schema",
			token:    func(t *testing.T) string { return signToken(t, "u1", "") },
			body:     `{"amount": 0, "items": [], "address": {"line1": "a", "city": "b", "state": "c", "postal_code": "d", "country": "e"}}`,
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "malformed JSON",
			token:    func(t *testing.T) string { return signToken(t, "u1", "") },
			body:     `{"items":`,
			wantCode: http.StatusBadRequest,
			wantMsg:  "invalid JSON body",
		},
		{
			name:     "saga failure hides the cause",
			token:    func(t *testing.T) string { return signToken(t, "u1", "") },
			body:     placeBody,
			svcErr:   errors.New("mongo: connection reset"),
			wantCode: http.StatusOK,
			wantMsg:  "Error while placing order",
		},
		{
			name:     "duplicate in flight",
			token:    func(t *testing.T) string { return signToken(t, "u1", "") },
			body:     placeBody,
			svcErr:   app.ErrPlacementInProgress,
			wantCode: http.StatusOK,
			wantMsg:  "order placement already in progress",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestRouter(&fakeService{placeErr: tt.svcErr})
			code, res := do(t, h, http.MethodPost, "/api/order/place", tt.token(t), tt.body)
			assert.Equal(t, tt.wantCode, code)
			assert.False(t, res.Success)
			if tt.wantMsg != "" {
				assert.Equal(t, tt.wantMsg, res.Message)
			} else {
				assert.NotEmpty(t, res.Message)
			}
		})
	}
}

func TestAdminMayPlaceForAnotherUser(t *testing.T) {
	svc := &fakeService{}
	code, res := do(t, newTestRouter(svc), http.MethodPost, "/api/order/place", signToken(t, "boss", "admin"), placeBody)
	require.Equal(t, http.StatusOK, code)
	assert.True(t, res.Success)
	assert.Equal(t, "u1", svc.placed.UserID)
}

func TestVerifyOrder(t *testing.T) {
	tests := []struct {
		body      string
		wantFlag  string
		wantOK    bool
		wantMsg   string
		wantCode  int
		wantCalls bool
	}{
		{`{"orderId":"o1","success":"true"}`, "true", true, "Paid", http.StatusOK, true},
		{`{"orderId":"o1","success":true}`, "true", true, "Paid", http.StatusOK, true},
		{`{"orderId":"o1","success":"false"}`, "false", false, "Not Paid", http.StatusOK, true},
		{`{"orderId":"o1","success":false}`, "false", false, "Not Paid", http.StatusOK, true},
		{`{"orderId":"o1","success":1}`, "", false, "", http.StatusBadRequest, false},
		{`{"success":"true"}`, "", false, "", http.StatusBadRequest, false},
	}
	for _, tt := range tests {
		t.Run(tt.body, func(t *testing.T) {
			svc := &fakeService{}
			code, res := do(t, newTestRouter(svc), http.MethodPost, "/api/order/verify", "", tt.body)
			assert.Equal(t, tt.wantCode, code)
			assert.Equal(t, tt.wantOK, res.Success)
			if !tt.wantCalls {
				assert.Nil(t, svc.verified)
				return
			}
			assert.Equal(t, []string{"o1", tt.wantFlag}, svc.verified)
			assert.Equal(t, tt.wantMsg, res.Message)
		})
	}
}

func TestUserRoutesEnforceOwnership(t *testing.T) {
	h := newTestRouter(&fakeService{})
	user := signToken(t, "u1", "user")

	code, res := do(t, h, http.MethodGet, "/api/order/userorders/u1?page=2", user, "")
	require.Equal(t, http.StatusOK, code)
	assert.True(t, res.Success)
	var page domain.OrderPage
	require.NoError(t, json.Unmarshal(res.Data, &page))
	assert.Equal(t, 2, page.Page)

	_, res = do(t, h, http.MethodGet, "/api/order/userorders/u2", user, "")
	assert.False(t, res.Success)
	assert.Equal(t, "Not Authorized", res.Message)

	_, res = do(t, h, http.MethodGet, "/api/order/history/u2", signToken(t, "root", "admin"), "")
	assert.True(t, res.Success)

	_, res = do(t, h, http.MethodGet, "/api/order/userorders/u1?limit=abc", user, "")
	assert.False(t, res.Success)
	assert.Contains(t, res.Message, "limit must be an integer")
}

func TestGetOrderByID(t *testing.T) {
	svc := &fakeService{orders: map[string]*domain.Order{"o1": {ID: "o1", UserID: "u1"}}}
	h := newTestRouter(svc)

	_, res := do(t, h, http.MethodGet, "/api/order/o1", signToken(t, "u1", ""), "")
	assert.True(t, res.Success)

	_, res = do(t, h, http.MethodGet, "/api/order/o1", signToken(t, "u2", ""), "")
	assert.False(t, res.Success)
	assert.Equal(t, "order not found", res.Message)

	_, res = do(t, h, http.MethodGet, "/api/order/o1", signToken(t, "admin-1", "admin"), "")
	assert.True(t, res.Success)

	_, res = do(t, h, http.MethodGet, "/api/order/nope", signToken(t, "u1", ""), "")
	assert.Equal(t, "order not found", res.Message)
}

func TestAdminRoutes(t *testing.T) {
	svc := &fakeService{orders: map[string]*domain.Order{"o1": {ID: "o1"}}}
	h := newTestRouter(svc)
	admin := signToken(t, "root", "admin")

	code, res := do(t, h, http.MethodGet, "/api/order/list", signToken(t, "u1", "user"), "")
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "Admin access required", res.Message)

	_, res = do(t, h, http.MethodGet, "/api/order/list?state=completed&payment=true&page=3", admin, "")
	require.True(t, res.Success)
	assert.Equal(t, domain.StateCompleted, svc.query.State)
	assert.Equal(t, 3, svc.query.Page.Page)
	require.NotNil(t, svc.query.Filter.Payment)
	assert.True(t, *svc.query.Filter.Payment)

	_, res = do(t, h, http.MethodGet, "/api/order/list?state=lost", admin, "")
	assert.False(t, res.Success)
	assert.Contains(t, res.Message, "unknown order state")

	_, res = do(t, h, http.MethodPost, "/api/order/status", admin, `{"orderId":"o1","status":"Out for delivery"}`)
	assert.True(t, res.Success)
	assert.Equal(t, "Status Updated", res.Message)

	_, res = do(t, h, http.MethodPost, "/api/order/status", admin, `{"orderId":"o9","status":"Delivered"}`)
	assert.False(t, res.Success)
	assert.Equal(t, "order not found", res.Message)

	code, _ = do(t, h, http.MethodPost, "/api/order/status", admin, `{"orderId":"o1"}`)
	assert.Equal(t, http.StatusBadRequest, code)

	svc.cancel = domain.ErrOrderAlreadyPaid
	_, res = do(t, h, http.MethodPost, "/api/order/cancel/o1", admin, "")
	assert.False(t, res.Success)
	assert.Equal(t, "order already paid, cannot cancel", res.Message)

	_, res = do(t, h, http.MethodPost, "/api/order/admin/items/status", admin, `{"orderId":"o1","status":"Ready"}`)
	assert.True(t, res.Success)
	assert.JSONEq(t, `{"orderId":"o1","updated":3}`, string(res.Data))

	_, res = do(t, h, http.MethodPost, "/api/order/admin/items/status", admin, `{"orderId":"missing","status":"Ready"}`)
	assert.Equal(t, "order items not found", res.Message)

	_, res = do(t, h, http.MethodGet, "/api/order/admin/items/food-1/quantity", admin, "")
	assert.JSONEq(t, `{"itemId":"food-1","totalQuantity":7}`, string(res.Data))

	_, res = do(t, h, http.MethodGet, "/api/order/admin/restaurant/r1/revenue?from=2024-01-01&to=2024-01-31", admin, "")
	require.True(t, res.Success)
	require.NotNil(t, svc.to)
	assert.Equal(t, time.Date(2024, 1, 31, 23, 59, 59, 999999999, time.UTC), *svc.to)

	_, res = do(t, h, http.MethodGet, "/api/order/admin/revenue?from=yesterday", admin, "")
	assert.False(t, res.Success)

	_, res = do(t, h, http.MethodGet, "/api/order/admin/revenue", admin, "")
	assert.JSONEq(t, `{"totalRevenue":350,"totalOrders":2}`, string(res.Data))
	assert.Nil(t, svc.from)

	_, res = do(t, h, http.MethodGet, "/api/order/admin/statistics", admin, "")
	assert.True(t, res.Success)
}

func TestPlacementTrail(t *testing.T) {
	h := newTestRouter(&fakeService{})
	admin := signToken(t, "root", "admin")

	_, res := do(t, h, http.MethodGet, "/api/order/admin/sagas/saga-1", admin, "")
	require.True(t, res.Success)
	var trail sagalog.Trail
	require.NoError(t, json.Unmarshal(res.Data, &trail))
	assert.Equal(t, sagalog.StatusCompleted, trail.Status)

	_, res = do(t, h, http.MethodGet, "/api/order/admin/sagas/nope", admin, "")
	assert.Equal(t, "saga not found", res.Message)

	_, res = do(t, h, http.MethodGet, "/api/order/admin/sagas/off", admin, "")
	assert.Equal(t, "saga log is disabled", res.Message)
}

func TestPlaceOrderExposesSagaID(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/order/place", strings.NewReader(placeBody))
	req.Header.Set(middlewares.TokenHeader, signToken(t, "u1", ""))
	rec := httptest.NewRecorder()
	newTestRouter(&fakeService{}).ServeHTTP(rec, req)
	assert.Equal(t, "saga-1", rec.Header().Get("x-saga-id"))
}

func TestBearerTokenAccepted(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/order/admin/statistics", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, "root", "admin"))
	rec := httptest.NewRecorder()
	newTestRouter(&fakeService{}).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestDecodeFailureUsesEnvelope(t *testing.T) {
	h := NewHandler(&fakeService{})

	tests := []struct {
		name    string
		handler http.HandlerFunc
		body    string
	}{
		{"verify truncated", h.VerifyOrder, `{"orderId":"o1"`},
		{"status wrong type", h.UpdateStatus, `{"orderId":7,"status":"Ready"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			tt.handler(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body)))

			assert.Equal(t, http.StatusOK, rec.Code)
			var res response
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
			assert.False(t, res.Success)
			assert.Equal(t, "invalid JSON body", res.Message)
		})
	}
}
