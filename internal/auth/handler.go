package auth

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/eisengrid/service-api-go/internal/session"
	"github.com/eisengrid/service-api-go/pkg/httperr"
)

// Handler exposes the /auth endpoints.
type Handler struct {
	svc     *Service
	cookies *session.CookieStore
	logger  *zap.SugaredLogger
}

func NewHandler(svc *Service, cookies *session.CookieStore, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, cookies: cookies, logger: logger}
}

type requestBody struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

// Request handles POST /auth/request: mail a login code.
func (h *Handler) Request(w http.ResponseWriter, r *http.Request) {
	var body requestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		httperr.Write(w, r, httperr.BadRequest(""))
		return
	}
	if err := h.svc.RequestCode(r.Context(), body.Email); err != nil {
		httperr.Write(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Verify handles POST /auth/verify: exchange a code for a session cookie
// and a bearer token.
func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	var body requestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		httperr.Write(w, r, httperr.BadRequest(""))
		return
	}
	token, err := h.svc.VerifyCode(r.Context(), body.Email, body.Code)
	if err != nil {
		httperr.Write(w, r, err)
		return
	}
	if err := h.cookies.SetEmail(w, body.Email); err != nil {
		h.logger.Errorw("session cookie encode failed", "err", err)
		httperr.Write(w, r, httperr.Internal(""))
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"access_token": token})
}

// Logout handles POST /auth/logout.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	h.cookies.Clear(w)
	w.WriteHeader(http.StatusNoContent)
}

// Whoami handles GET /auth/whoami: echo the resolved session user. An
// anonymous session gets an empty object, not an error.
func (h *Handler) Whoami(w http.ResponseWriter, r *http.Request) {
	sc := session.FromRequest(r)
	if sc.User == nil {
		h.writeJSON(w, http.StatusOK, map[string]any{})
		return
	}
	h.writeJSON(w, http.StatusOK, sc.User)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Warnw("response encode failed", "err", err)
	}
}
