package topic

import (
	"encoding/json"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/eisengrid/service-api-go/internal/session"
	"github.com/eisengrid/service-api-go/pkg/httperr"
)

// Handler exposes the /api/topics endpoints.
type Handler struct {
	svc    *Service
	logger *zap.SugaredLogger
}

func NewHandler(svc *Service, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

type payload struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

func idParam(r *http.Request) (int64, error) {
	return strconv.ParseInt(r.PathValue("id"), 10, 64)
}

// Create handles POST /api/topics.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var p payload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		httperr.Write(w, r, httperr.BadRequest(""))
		return
	}
	t, err := h.svc.Create(r.Context(), session.FromRequest(r), Params(p))
	if err != nil {
		httperr.Write(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, t)
}

// List handles GET /api/topics; always refused, matching the task listing
// placeholder.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	httperr.Write(w, r, httperr.Forbidden(""))
}

// Get handles GET /api/topics/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		httperr.Write(w, r, httperr.BadRequest(""))
		return
	}
	t, err := h.svc.Get(r.Context(), session.FromRequest(r), id)
	if err != nil {
		httperr.Write(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, t)
}

// Tasks handles GET /api/topics/{id}/tasks.
func (h *Handler) Tasks(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		httperr.Write(w, r, httperr.BadRequest(""))
		return
	}
	tasks, err := h.svc.Tasks(r.Context(), session.FromRequest(r), id)
	if err != nil {
		httperr.Write(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, tasks)
}

// Update handles PUT /api/topics/{id}.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		httperr.Write(w, r, httperr.BadRequest(""))
		return
	}
	var p payload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		httperr.Write(w, r, httperr.BadRequest(""))
		return
	}
	t, err := h.svc.Update(r.Context(), session.FromRequest(r), id, Params(p))
	if err != nil {
		httperr.Write(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, t)
}

// Delete handles DELETE /api/topics/{id}.
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

// Trash handles GET /api/topics/trash.
func (h *Handler) Trash(w http.ResponseWriter, r *http.Request) {
	topics, err := h.svc.Trash(r.Context(), session.FromRequest(r))
	if err != nil {
		httperr.Write(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, topics)
}

// ListForUser handles GET /api/users/{id}/topics.
func (h *Handler) ListForUser(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		httperr.Write(w, r, httperr.BadRequest(""))
		return
	}
	topics, err := h.svc.ListForUser(r.Context(), session.FromRequest(r), id)
	if err != nil {
		httperr.Write(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, topics)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Warnw("response encode failed", "err", err)
	}
}
