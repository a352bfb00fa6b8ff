package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/cart"
)

type cartView struct {
	Lines   []cart.Line     `json:"lines"`
	Visible bool            `json:"visible"`
	Count   int             `json:"count"`
	Total   decimal.Decimal `json:"total"`
}

func newCartView(c cart.Cart) cartView {
	lines := c.Snapshot()
	if lines == nil {
		lines = []cart.Line{}
	}
	return cartView{Lines: lines, Visible: c.Visible, Count: c.Count(), Total: c.Total()}
}

func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	sess, _ := sessionFrom(r)
	writeJSON(w, http.StatusOK, newCartView(sess.Cart))
}

type addItemRequest struct {
	ProductID string `json:"productId"`
}

func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req addItemRequest
	if err := decodeJSON(r, &req); err != nil || req.ProductID == "" {
		writeError(w, r, http.StatusBadRequest, "productId is required")
		return
	}
	sess, _ := sessionFrom(r)
	c, err := h.svc.AddToCart(r.Context(), sess.ID, req.ProductID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newCartView(c))
}

type updateItemRequest struct {
	Delta int `json:"delta"`
}

func (h *Handler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	var req updateItemRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "bad request")
		return
	}
	sess, _ := sessionFrom(r)
	c, err := h.svc.UpdateQuantity(r.Context(), sess.ID, chi.URLParam(r, "productId"), req.Delta)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newCartView(c))
}

func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	sess, _ := sessionFrom(r)
	c, err := h.svc.RemoveFromCart(r.Context(), sess.ID, chi.URLParam(r, "productId"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newCartView(c))
}
