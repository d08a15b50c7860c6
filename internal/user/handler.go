package user

import (
	"encoding/json"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/eisengrid/service-api-go/internal/session"
	"github.com/eisengrid/service-api-go/pkg/httperr"
)

// Handler exposes the /api/users endpoints.
type Handler struct {
	svc    *Service
	logger *zap.SugaredLogger
}

func NewHandler(svc *Service, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// payload is the request body for create and update. Strict types: the
// administrator flag must be a JSON boolean, never a truthy string.
type payload struct {
	Name                *string `json:"name"`
	Email               *string `json:"email"`
	IsAdmin             *bool   `json:"isAdmin"`
	SendNotifications   *bool   `json:"sendNotifications"`
	ResearchParticipant *bool   `json:"researchParticipant"`
}

func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func idParam(r *http.Request) (int64, error) {
	return strconv.ParseInt(r.PathValue("id"), 10, 64)
}

// Create handles POST /api/users. Anonymous-capable.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var p payload
	if err := decode(r, &p); err != nil {
		httperr.Write(w, r, httperr.BadRequest(""))
		return
	}
	params := CreateParams{
		IsAdmin:             p.IsAdmin,
		SendNotifications:   p.SendNotifications,
		ResearchParticipant: p.ResearchParticipant,
	}
	if p.Name != nil {
		params.Name = *p.Name
	}
	if p.Email != nil {
		params.Email = *p.Email
	}
	u, err := h.svc.Create(r.Context(), session.FromRequest(r), params)
	if err != nil {
		httperr.Write(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, u)
}

// Get handles GET /api/users/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		httperr.Write(w, r, httperr.BadRequest(""))
		return
	}
	u, err := h.svc.Get(r.Context(), session.FromRequest(r), id)
	if err != nil {
		httperr.Write(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, u)
}

// List handles GET /api/users. Administrators only.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.svc.List(r.Context(), session.FromRequest(r))
	if err != nil {
		httperr.Write(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, users)
}

// Update handles PUT /api/users/{id}.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		httperr.Write(w, r, httperr.BadRequest(""))
		return
	}
	var p payload
	if err := decode(r, &p); err != nil {
		httperr.Write(w, r, httperr.BadRequest(""))
		return
	}
	u, err := h.svc.Update(r.Context(), session.FromRequest(r), id, UpdateParams{
		Name:                p.Name,
		Email:               p.Email,
		IsAdmin:             p.IsAdmin,
		SendNotifications:   p.SendNotifications,
		ResearchParticipant: p.ResearchParticipant,
	})
	if err != nil {
		httperr.Write(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, u)
}

// Delete handles DELETE /api/users/{id}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		httperr.Write(w, r, httperr.BadRequest(""))
		return
	}
	if err := h.svc.Delete(r.Context(), session.FromRequest(r), id); err != nil {
		httperr.Write(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Warnw("response encode failed", "err", err)
	}
}
