package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/cart"
	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/catalog"
	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/checkout"
	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/middleware"
	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/order"
	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/review"
	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/session"
	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/storefront"
)

// Storefront is the use-case surface served over HTTP. *storefront.Service implements it.
type Storefront interface {
	SignIn(ctx context.Context, credential string) (session.Session, error)
	SignInAdmin(ctx context.Context, email, password string) (session.Session, error)
	Session(ctx context.Context, sessionID string) (session.Session, error)
	SignOut(ctx context.Context, sessionID string) error

	Products(ctx context.Context, query string) ([]catalog.Product, error)
	Suggestions(ctx context.Context, query string) ([]catalog.Product, error)
	Product(ctx context.Context, id string) (catalog.Product, error)
	Reviews(ctx context.Context, productID string) (storefront.ProductReviews, error)
	AddReview(ctx context.Context, sessionID, productID string, rating int, comment string) (review.Review, error)

	AddToCart(ctx context.Context, sessionID, productID string) (cart.Cart, error)
	RemoveFromCart(ctx context.Context, sessionID, productID string) (cart.Cart, error)
	UpdateQuantity(ctx context.Context, sessionID, productID string, delta int) (cart.Cart, error)

	Checkout(ctx context.Context, sessionID string) (checkout.Pipeline, error)
	SetCheckoutInfo(ctx context.Context, sessionID string, info checkout.Info) (checkout.Pipeline, bool, error)
	ProceedToPayment(ctx context.Context, sessionID string) (checkout.Pipeline, bool, error)
	AttachProof(ctx context.Context, sessionID, proof string) (checkout.Pipeline, bool, error)
	Submit(ctx context.Context, sessionID string) (storefront.SubmitResult, error)
	CloseCheckout(ctx context.Context, sessionID string) (checkout.Pipeline, error)

	Orders(ctx context.Context, sessionID string) ([]order.Order, error)
	WatchOrders(ctx context.Context, sessionID string, fn func([]order.Order)) (func(), error)
	SetOrderStatus(ctx context.Context, sessionID, orderID string, status order.Status) (order.Order, error)
	CreateProduct(ctx context.Context, sessionID string, p catalog.Product) (catalog.Product, error)
	UpdateProduct(ctx context.Context, sessionID string, p catalog.Product) (catalog.Product, error)
	DeleteProduct(ctx context.Context, sessionID, productID string) error
}

var _ Storefront = (*storefront.Service)(nil)

type Options struct {
	MaxProofBytes int64
	Logger        zerolog.Logger
}

type Handler struct {
	svc           Storefront
	maxProofBytes int64
	logger        zerolog.Logger
}

func NewHandler(svc Storefront, opts Options) *Handler {
	if opts.MaxProofBytes <= 0 {
		opts.MaxProofBytes = 5 << 20
	}
	return &Handler{svc: svc, maxProofBytes: opts.MaxProofBytes, logger: opts.Logger}
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, status, middleware.ErrorResponse{
		Error:         msg,
		CorrelationID: middleware.GetCorrelationID(r.Context()),
	})
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// fail maps domain errors to a status code. Anything unrecognised is logged and
// answered with 500.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, session.ErrNotFound):
		writeError(w, r, http.StatusUnauthorized, "session expired or unknown")
	case errors.Is(err, session.ErrInvalidCredential):
		writeError(w, r, http.StatusUnauthorized, "invalid credentials")
	case errors.Is(err, session.ErrAdminDisabled):
		writeError(w, r, http.StatusForbidden, "admin sign-in is disabled")
	case errors.Is(err, storefront.ErrForbidden):
		writeError(w, r, http.StatusForbidden, "forbidden")
	case errors.Is(err, catalog.ErrNotFound):
		writeError(w, r, http.StatusNotFound, "product not found")
	case errors.Is(err, order.ErrNotFound):
		writeError(w, r, http.StatusNotFound, "order not found")
	case errors.Is(err, catalog.ErrInvalidProduct),
		errors.Is(err, review.ErrInvalidReview),
		errors.Is(err, order.ErrInvalidStatus):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, order.ErrTerminal):
		writeError(w, r, http.StatusConflict, err.Error())
	case errors.Is(err, session.ErrConflict):
		writeError(w, r, http.StatusConflict, "session changed, retry")
	default:
		h.logger.Error().Err(err).
			Str("path", r.URL.Path).
			Str("correlation_id", middleware.GetCorrelationID(r.Context())).
			Msg("request failed")
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}
