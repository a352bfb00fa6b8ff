package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/catalog"
	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/order"
)

const HeaderConfirmDelete = "X-Confirm-Delete"

func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	sess, _ := sessionFrom(r)
	orders, err := h.svc.Orders(r.Context(), sess.ID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, orders)
}

// StreamOrders pushes the full order list as server-sent events whenever it changes.
func (h *Handler) StreamOrders(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, r, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	// holds only the latest snapshot; a slow client skips intermediate ones
	updates := make(chan []order.Order, 1)
	push := func(orders []order.Order) { offerLatest(updates, orders) }

	sess, _ := sessionFrom(r)
	unsubscribe, err := h.svc.WatchOrders(r.Context(), sess.ID, push)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	defer unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case orders := <-updates:
			if orders == nil {
				orders = []order.Order{}
			}
			body, err := json.Marshal(orders)
			if err != nil {
				h.logger.Error().Err(err).Msg("encode orders event")
				return
			}
			if _, err := fmt.Fprintf(w, "event: orders\ndata: %s\n\n", body); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

// offerLatest leaves orders as the single pending value in updates without ever
// blocking, replacing whatever was pending. Concurrent callers may race for the slot.
func offerLatest(updates chan []order.Order, orders []order.Order) {
	for {
		select {
		case updates <- orders:
			return
		default:
			select {
			case <-updates:
			default:
			}
		}
	}
}

type setStatusRequest struct {
	Status string `json:"status"`
}

func (h *Handler) SetOrderStatus(w http.ResponseWriter, r *http.Request) {
	var req setStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "bad request")
		return
	}
	status, err := order.ParseStatus(req.Status)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	sess, _ := sessionFrom(r)
	o, err := h.svc.SetOrderStatus(r.Context(), sess.ID, chi.URLParam(r, "orderId"), status)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var p catalog.Product
	if err := decodeJSON(r, &p); err != nil {
		writeError(w, r, http.StatusBadRequest, "bad request")
		return
	}
	sess, _ := sessionFrom(r)
	created, err := h.svc.CreateProduct(r.Context(), sess.ID, p)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	var p catalog.Product
	if err := decodeJSON(r, &p); err != nil {
		writeError(w, r, http.StatusBadRequest, "bad request")
		return
	}
	p.ID = chi.URLParam(r, "productId")

	sess, _ := sessionFrom(r)
	updated, err := h.svc.UpdateProduct(r.Context(), sess.ID, p)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// DeleteProduct requires X-Confirm-Delete to repeat the product id.
func (h *Handler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productId")
	if r.Header.Get(HeaderConfirmDelete) != productID {
		writeError(w, r, http.StatusPreconditionRequired, "confirm deletion with "+HeaderConfirmDelete)
		return
	}

	sess, _ := sessionFrom(r)
	if err := h.svc.DeleteProduct(r.Context(), sess.ID, productID); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
