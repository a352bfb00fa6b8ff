package httpapi

import (
	"context"
	"net/http"
	"strings"

	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/session"
)

type ctxKey string

const ctxSession ctxKey = "session"

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(auth) <= len(prefix) || !strings.EqualFold(auth[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(auth[len(prefix):])
}

// RequireSession resolves the bearer token to a session and answers 401 when there is none.
func (h *Handler) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			writeError(w, r, http.StatusUnauthorized, "sign in required")
			return
		}
		sess, err := h.svc.Session(r.Context(), token)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxSession, sess)))
	})
}

// RequireRole must run after RequireSession.
func RequireRole(role session.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess, ok := sessionFrom(r)
			if !ok {
				writeError(w, r, http.StatusUnauthorized, "sign in required")
				return
			}
			if !sess.Allows(role) {
				writeError(w, r, http.StatusForbidden, "forbidden")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func sessionFrom(r *http.Request) (session.Session, bool) {
	sess, ok := r.Context().Value(ctxSession).(session.Session)
	return sess, ok
}

type sessionResponse struct {
	Token       string       `json:"token"`
	Role        session.Role `json:"role"`
	Email       string       `json:"email"`
	DisplayName string       `json:"displayName"`
}

type sessionView struct {
	Role        session.Role `json:"role"`
	Email       string       `json:"email"`
	DisplayName string       `json:"displayName"`
	Cart        cartView     `json:"cart"`
	Checkout    pipelineView `json:"checkout"`
}

type googleSignInRequest struct {
	Credential string `json:"credential"`
}

func (h *Handler) SignInGoogle(w http.ResponseWriter, r *http.Request) {
	var req googleSignInRequest
	if err := decodeJSON(r, &req); err != nil || strings.TrimSpace(req.Credential) == "" {
		writeError(w, r, http.StatusBadRequest, "credential is required")
		return
	}
	sess, err := h.svc.SignIn(r.Context(), req.Credential)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newSessionResponse(sess))
}

type adminSignInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) SignInAdmin(w http.ResponseWriter, r *http.Request) {
	var req adminSignInRequest
	if err := decodeJSON(r, &req); err != nil || req.Email == "" || req.Password == "" {
		writeError(w, r, http.StatusBadRequest, "email and password are required")
		return
	}
	sess, err := h.svc.SignInAdmin(r.Context(), req.Email, req.Password)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newSessionResponse(sess))
}

func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	sess, _ := sessionFrom(r)
	writeJSON(w, http.StatusOK, sessionView{
		Role:        sess.Role,
		Email:       sess.Email,
		DisplayName: sess.DisplayName,
		Cart:        newCartView(sess.Cart),
		Checkout:    newPipelineView(sess.Checkout),
	})
}

func (h *Handler) SignOut(w http.ResponseWriter, r *http.Request) {
	sess, _ := sessionFrom(r)
	if err := h.svc.SignOut(r.Context(), sess.ID); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func newSessionResponse(s session.Session) sessionResponse {
	return sessionResponse{Token: s.ID, Role: s.Role, Email: s.Email, DisplayName: s.DisplayName}
}
