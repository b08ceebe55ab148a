package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/jcmexdev/food-orders/internal/coordinator/sagalog"
	"github.com/jcmexdev/food-orders/internal/order-service/app"
	"github.com/jcmexdev/food-orders/internal/order-service/core/domain"
	"github.com/jcmexdev/food-orders/internal/order-service/infra/httpx/middlewares"
	"github.com/jcmexdev/food-orders/internal/pkg/interceptors/constants"
)

const (
	bannerText   = "order service API is Working"
	sagaIDHeader = "x-saga-id"
)

// OrderService is what the HTTP layer needs from the application.
type OrderService interface {
	PlaceOrder(ctx context.Context, in app.PlaceOrderInput) (*app.PlaceOrderResult, error)
	VerifyOrder(ctx context.Context, orderID, success string) (*app.VerifyResult, error)
	GetOrder(ctx context.Context, id string) (*domain.Order, error)
	UserOrders(ctx context.Context, userID string, page domain.PageRequest) (*domain.OrderPage, error)
	UserHistory(ctx context.Context, userID string, page domain.PageRequest) (*domain.UserOrderHistory, error)
	ListOrders(ctx context.Context, q app.OrderQuery) (*domain.OrderPage, error)
	UpdateStatus(ctx context.Context, orderID, status string) (*domain.Order, error)
	CancelOrder(ctx context.Context, orderID string) (*domain.Order, error)
	RestaurantItems(ctx context.Context, restaurantID string) ([]domain.OrderItem, error)
	RestaurantRevenue(ctx context.Context, restaurantID string, from, to *time.Time) (domain.RestaurantRevenue, error)
	ListItems(ctx context.Context, f domain.ItemFilter, page domain.PageRequest) (*domain.ItemPage, error)
	UpdateItemsStatus(ctx context.Context, orderID, status string) (int64, error)
	ItemQuantity(ctx context.Context, itemID string) (int64, error)
	Statistics(ctx context.Context) (*domain.Statistics, error)
	Revenue(ctx context.Context, from, to *time.Time) (domain.Revenue, error)
	PlacementTrail(ctx context.Context, sagaID string) (*sagalog.Trail, error)
}

// Handler serves the /api/order routes.
type Handler struct {
	svc OrderService
}

func NewHandler(svc OrderService) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Banner(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(bannerText))
}

// PlaceOrder runs the placement saga for the caller and returns the hosted
// checkout URL. Admins may place on behalf of another user.
func (h *Handler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req PlaceOrderRequest
	if !decode(w, r, &req) {
		return
	}
	claims, _ := middlewares.ClaimsFromContext(r.Context())
	userID := req.UserID
	if userID == "" {
		userID = claims.UserID
	}
	if userID != claims.UserID && !claims.Admin {
		writeFail(w, r, domain.ErrForbidden, "")
		return
	}

	slog.InfoContext(r.Context(), "placing order", "user_id", userID, "items", len(req.Items))
	in := req.toInput(userID, claims.Token, constants.IdempotencyKey(r.Context()))
	res, err := h.svc.PlaceOrder(r.Context(), in)
	if err != nil {
		writeFail(w, r, err, "Error while placing order")
		return
	}
	if res.SagaID != "" {
		w.Header().Set(sagaIDHeader, res.SagaID)
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, SessionURL: res.SessionURL})
}

func (h *Handler) VerifyOrder(w http.ResponseWriter, r *http.Request) {
	var req VerifyRequest
	if !decode(w, r, &req) {
		return
	}
	res, err := h.svc.VerifyOrder(r.Context(), req.OrderID, req.flag())
	if err != nil {
		writeFail(w, r, err, "Error verifying order")
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: res.Paid, Message: res.Message})
}

func (h *Handler) UserOrders(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")
	if !ownerOrAdmin(w, r, userID) {
		return
	}
	page, err := parsePage(r.URL.Query())
	if err != nil {
		writeFail(w, r, err, "")
		return
	}
	orders, err := h.svc.UserOrders(r.Context(), userID, page)
	if err != nil {
		writeFail(w, r, err, "Error getting user orders")
		return
	}
	writeData(w, orders)
}

func (h *Handler) UserHistory(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")
	if !ownerOrAdmin(w, r, userID) {
		return
	}
	page, err := parsePage(r.URL.Query())
	if err != nil {
		writeFail(w, r, err, "")
		return
	}
	history, err := h.svc.UserHistory(r.Context(), userID, page)
	if err != nil {
		writeFail(w, r, err, "Error getting order history")
		return
	}
	writeData(w, history)
}

// GetOrderByID returns one order to its owner or an admin. Other callers get
// the same answer as for a missing order.
func (h *Handler) GetOrderByID(w http.ResponseWriter, r *http.Request) {
	order, err := h.svc.GetOrder(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeFail(w, r, err, "Error getting order")
		return
	}
	if claims, _ := middlewares.ClaimsFromContext(r.Context()); !claims.Admin && claims.UserID != order.UserID {
		writeFail(w, r, domain.ErrOrderNotFound, "")
		return
	}
	writeData(w, order)
}

func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f, state, err := parseOrderFilter(q)
	if err != nil {
		writeFail(w, r, err, "")
		return
	}
	page, err := parsePage(q)
	if err != nil {
		writeFail(w, r, err, "")
		return
	}
	orders, err := h.svc.ListOrders(r.Context(), app.OrderQuery{Filter: f, State: state, Page: page})
	if err != nil {
		writeFail(w, r, err, "Error listing all orders")
		return
	}
	writeData(w, orders)
}

func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req StatusRequest
	if !decode(w, r, &req) {
		return
	}
	if _, err := h.svc.UpdateStatus(r.Context(), req.OrderID, req.Status); err != nil {
		writeFail(w, r, err, "Error updating status")
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Message: "Status Updated"})
}

func (h *Handler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	if _, err := h.svc.CancelOrder(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeFail(w, r, err, "Error cancelling order")
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Message: "order cancelled"})
}

func (h *Handler) RestaurantItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.RestaurantItems(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeFail(w, r, err, "Error getting restaurant orders")
		return
	}
	writeData(w, items)
}

func (h *Handler) RestaurantRevenue(w http.ResponseWriter, r *http.Request) {
	from, to, err := parseRange(r.URL.Query())
	if err != nil {
		writeFail(w, r, err, "")
		return
	}
	rev, err := h.svc.RestaurantRevenue(r.Context(), chi.URLParam(r, "id"), from, to)
	if err != nil {
		writeFail(w, r, err, "Error getting restaurant revenue")
		return
	}
	writeData(w, rev)
}

func (h *Handler) ListItems(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f, err := parseItemFilter(q)
	if err != nil {
		writeFail(w, r, err, "")
		return
	}
	page, err := parsePage(q)
	if err != nil {
		writeFail(w, r, err, "")
		return
	}
	items, err := h.svc.ListItems(r.Context(), f, page)
	if err != nil {
		writeFail(w, r, err, "Error listing order items")
		return
	}
	writeData(w, items)
}

func (h *Handler) UpdateItemsStatus(w http.ResponseWriter, r *http.Request) {
	var req StatusRequest
	if !decode(w, r, &req) {
		return
	}
	n, err := h.svc.UpdateItemsStatus(r.Context(), req.OrderID, req.Status)
	if err != nil {
		writeFail(w, r, err, "Error updating item status")
		return
	}
	writeJSON(w, http.StatusOK, envelope{
		Success: true,
		Message: "Items status updated",
		Data:    ItemsStatusResponse{OrderID: req.OrderID, Updated: n},
	})
}

func (h *Handler) ItemQuantity(w http.ResponseWriter, r *http.Request) {
	itemID := chi.URLParam(r, "itemId")
	n, err := h.svc.ItemQuantity(r.Context(), itemID)
	if err != nil {
		writeFail(w, r, err, "Error getting item quantity")
		return
	}
	writeData(w, ItemQuantityResponse{ItemID: itemID, TotalQuantity: n})
}

func (h *Handler) Statistics(w http.ResponseWriter, r *http.Request) {
	st, err := h.svc.Statistics(r.Context())
	if err != nil {
		writeFail(w, r, err, "Error getting statistics")
		return
	}
	writeData(w, st)
}

func (h *Handler) Revenue(w http.ResponseWriter, r *http.Request) {
	from, to, err := parseRange(r.URL.Query())
	if err != nil {
		writeFail(w, r, err, "")
		return
	}
	rev, err := h.svc.Revenue(r.Context(), from, to)
	if err != nil {
		writeFail(w, r, err, "Error getting revenue")
		return
	}
	writeData(w, rev)
}

// PlacementTrail shows where a placement got to, for support staff chasing a
// failed checkout.
func (h *Handler) PlacementTrail(w http.ResponseWriter, r *http.Request) {
	trail, err := h.svc.PlacementTrail(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeFail(w, r, err, "Error reading saga log")
		return
	}
	writeData(w, trail)
}

func ownerOrAdmin(w http.ResponseWriter, r *http.Request, userID string) bool {
	claims, _ := middlewares.ClaimsFromContext(r.Context())
	if claims.Admin || (userID != "" && claims.UserID == userID) {
		return true
	}
	writeFail(w, r, domain.ErrForbidden, "")
	return false
}

// decode reports a body it cannot read as a domain failure. Malformed JSON
// is already rejected with 400 by ValidateBody on validated routes.
func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		slog.WarnContext(r.Context(), "undecodable request body", "path", r.URL.Path, "error", err)
		writeJSON(w, http.StatusOK, envelope{Message: "invalid JSON body"})
		return false
	}
	return true
}

func writeData(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: data})
}

// writeFail maps err to a client message. Errors without a domain meaning
// are logged and replaced by fallback.
func writeFail(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	var msg string
	switch {
	case errors.Is(err, domain.ErrValidation):
		msg = err.Error()
	case errors.Is(err, domain.ErrEmptyOrder):
		msg = "order must contain at least one item"
	case errors.Is(err, domain.ErrOrderNotFound):
		msg = "order not found"
	case errors.Is(err, domain.ErrItemNotFound):
		msg = "order items not found"
	case errors.Is(err, domain.ErrOrderAlreadyPaid):
		msg = "order already paid, cannot cancel"
	case errors.Is(err, domain.ErrForbidden):
		msg = "Not Authorized"
	case errors.Is(err, app.ErrPlacementInProgress):
		msg = "order placement already in progress"
	case errors.Is(err, sagalog.ErrNotFound):
		msg = "saga not found"
	case errors.Is(err, app.ErrSagaLogUnavailable):
		msg = "saga log is disabled"
	default:
		slog.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "error", err)
		msg = fallback
		if msg == "" {
			msg = "internal error"
		}
	}
	writeJSON(w, http.StatusOK, envelope{Message: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
