package httpx

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/jcmexdev/food-orders/internal/order-service/infra/httpx/middlewares"
)

type RouterOptions struct {
	Auth        *middlewares.Authenticator
	Limiter     *middlewares.RateLimiter
	CORSOrigins []string
}

// NewRouter mounts the order API under /api/order.
func NewRouter(h *Handler, opts RouterOptions) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middlewares.AttachTracingMetadata)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewares.CORS(opts.CORSOrigins))
	if opts.Limiter != nil {
		r.Use(opts.Limiter.Middleware)
	}

	auth := opts.Auth
	r.Route("/api/order", func(r chi.Router) {
		r.Get("/", h.Banner)
		r.With(ValidateBody(verifyBody)).Post("/verify", h.VerifyOrder)

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireUser)
			r.With(ValidateBody(placeOrderBody)).Post("/place", h.PlaceOrder)
			r.Get("/userorders/{id}", h.UserOrders)
			r.Get("/history/{id}", h.UserHistory)
		})

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAdmin)
			r.Get("/list", h.ListOrders)
			r.With(ValidateBody(statusBody)).Post("/status", h.UpdateStatus)
			r.Post("/cancel/{id}", h.CancelOrder)
			r.Route("/admin", func(r chi.Router) {
				r.Get("/restaurant/{id}", h.RestaurantItems)
				r.Get("/restaurant/{id}/revenue", h.RestaurantRevenue)
				r.Get("/items", h.ListItems)
				r.With(ValidateBody(statusBody)).Post("/items/status", h.UpdateItemsStatus)
				r.Get("/items/{itemId}/quantity", h.ItemQuantity)
				r.Get("/statistics", h.Statistics)
				r.Get("/revenue", h.Revenue)
				r.Get("/sagas/{id}", h.PlacementTrail)
			})
		})

		r.With(auth.RequireUser).Get("/{id}", h.GetOrderByID)
	})

	return otelhttp.NewHandler(r, "order-api",
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}))
}
