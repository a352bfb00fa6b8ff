package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/middleware"
	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/session"
)

type RouterOptions struct {
	CORSAllowOrigins []string
	Logger           zerolog.Logger
}

func NewRouter(h *Handler, opts RouterOptions) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.CorrelationID)
	r.Use(middleware.AccessLog(opts.Logger))
	r.Use(middleware.Recover(opts.Logger))
	r.Use(middleware.CORS(opts.CORSAllowOrigins))

	r.Get("/health", h.Health)

	r.Route("/api", func(r chi.Router) {
		r.Route("/session", func(r chi.Router) {
			r.Post("/google", h.SignInGoogle)
			r.Post("/admin", h.SignInAdmin)
			r.With(h.RequireSession).Get("/", h.GetSession)
			r.With(h.RequireSession).Delete("/", h.SignOut)
		})

		r.Route("/products", func(r chi.Router) {
			r.Get("/", h.ListProducts)
			r.Get("/suggestions", h.Suggestions)
			r.Get("/{productId}", h.GetProduct)
			r.Get("/{productId}/reviews", h.ListReviews)
			r.With(h.RequireSession).Post("/{productId}/reviews", h.AddReview)
		})

		r.Group(func(r chi.Router) {
			r.Use(h.RequireSession)
			r.Use(RequireRole(session.RoleCustomer))

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", h.GetCart)
				r.Post("/items", h.AddItem)
				r.Patch("/items/{productId}", h.UpdateItem)
				r.Delete("/items/{productId}", h.RemoveItem)
			})

			r.Route("/checkout", func(r chi.Router) {
				r.Get("/", h.GetCheckout)
				r.Delete("/", h.CloseCheckout)
				r.Put("/info", h.SetCheckoutInfo)
				r.Post("/proceed", h.ProceedToPayment)
				r.Post("/proof", h.AttachProof)
				r.Post("/submit", h.Submit)
			})
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(h.RequireSession)
			r.Use(RequireRole(session.RoleAdmin))

			r.Get("/orders", h.ListOrders)
			r.Get("/orders/stream", h.StreamOrders)
			r.Patch("/orders/{orderId}", h.SetOrderStatus)
			r.Post("/products", h.CreateProduct)
			r.Put("/products/{productId}", h.UpdateProduct)
			r.Delete("/products/{productId}", h.DeleteProduct)
		})
	})

	return r
}
