package httpapi

import (
	"encoding/base64"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/checkout"
	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/order"
	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/session"
)

type pipelineView struct {
	State         checkout.State `json:"state"`
	Info          checkout.Info  `json:"info"`
	ProofAttached bool           `json:"proofAttached"`
	Ready         bool           `json:"ready"`
	OrderID       string         `json:"orderId,omitempty"`
}

func newPipelineView(p checkout.Pipeline) pipelineView {
	return pipelineView{
		State:         p.Current(),
		Info:          p.Info,
		ProofAttached: p.Proof != "",
		Ready:         p.Ready(),
		OrderID:       p.OrderID,
	}
}

// writeStep answers 200 with the pipeline, or 409 with the unchanged pipeline when
// the step was refused.
func writeStep(w http.ResponseWriter, p checkout.Pipeline, ok bool) {
	status := http.StatusOK
	if !ok {
		status = http.StatusConflict
	}
	writeJSON(w, status, newPipelineView(p))
}

func (h *Handler) GetCheckout(w http.ResponseWriter, r *http.Request) {
	sess, _ := sessionFrom(r)
	writeJSON(w, http.StatusOK, newPipelineView(sess.Checkout))
}

func (h *Handler) SetCheckoutInfo(w http.ResponseWriter, r *http.Request) {
	var info checkout.Info
	if err := decodeJSON(r, &info); err != nil {
		writeError(w, r, http.StatusBadRequest, "bad request")
		return
	}
	sess, _ := sessionFrom(r)
	p, ok, err := h.svc.SetCheckoutInfo(r.Context(), sess.ID, info)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeStep(w, p, ok)
}

func (h *Handler) ProceedToPayment(w http.ResponseWriter, r *http.Request) {
	sess, _ := sessionFrom(r)
	p, ok, err := h.svc.ProceedToPayment(r.Context(), sess.ID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeStep(w, p, ok)
}

type proofRequest struct {
	Proof string `json:"proof"`
}

// AttachProof accepts either a multipart upload in the "screenshot" field, stored as a
// data URL, or a JSON body carrying an already encoded reference.
func (h *Handler) AttachProof(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxProofBytes+(64<<10))

	var proof string
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		p, err := h.readScreenshot(r)
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) || errors.Is(err, errProofTooLarge) {
				writeError(w, r, http.StatusRequestEntityTooLarge, "screenshot is too large")
				return
			}
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		proof = p
	} else {
		var req proofRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, "bad request")
			return
		}
		proof = strings.TrimSpace(req.Proof)
	}

	sess, _ := sessionFrom(r)
	p, ok, err := h.svc.AttachProof(r.Context(), sess.ID, proof)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeStep(w, p, ok)
}

var errProofTooLarge = errors.New("screenshot is too large")

func (h *Handler) readScreenshot(r *http.Request) (string, error) {
	if err := r.ParseMultipartForm(h.maxProofBytes); err != nil {
		return "", err
	}
	file, _, err := r.FormFile("screenshot")
	if err != nil {
		return "", errors.New("screenshot file is required")
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, h.maxProofBytes+1))
	if err != nil {
		return "", err
	}
	if int64(len(data)) > h.maxProofBytes {
		return "", errProofTooLarge
	}
	if len(data) == 0 {
		return "", errors.New("screenshot is empty")
	}

	contentType := http.DetectContentType(data)
	if !strings.HasPrefix(contentType, "image/") {
		return "", errors.New("screenshot must be an image")
	}
	return "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}

type submitResponse struct {
	Order    *order.Order `json:"order"`
	Checkout pipelineView `json:"checkout"`
	Cart     cartView     `json:"cart"`
}

// Submit answers 201 with the order, 409 when the pipeline is not ready or the cart is
// empty, and 503 when the order could not be stored.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	sess, _ := sessionFrom(r)
	res, err := h.svc.Submit(r.Context(), sess.ID)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) || errors.Is(err, session.ErrConflict) {
			h.fail(w, r, err)
			return
		}
		h.logger.Error().Err(err).Str("email", sess.Email).Msg("order submission failed")
		writeError(w, r, http.StatusServiceUnavailable, "order could not be saved, please try again")
		return
	}
	if res.Order == nil {
		writeJSON(w, http.StatusConflict, submitResponse{
			Checkout: newPipelineView(res.Pipeline),
			Cart:     newCartView(res.Cart),
		})
		return
	}
	writeJSON(w, http.StatusCreated, submitResponse{
		Order:    res.Order,
		Checkout: newPipelineView(res.Pipeline),
		Cart:     newCartView(res.Cart),
	})
}

func (h *Handler) CloseCheckout(w http.ResponseWriter, r *http.Request) {
	sess, _ := sessionFrom(r)
	p, err := h.svc.CloseCheckout(r.Context(), sess.ID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newPipelineView(p))
}
