package task

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/eisengrid/service-api-go/internal/session"
	"github.com/eisengrid/service-api-go/pkg/httperr"
)

// Handler exposes the /api/tasks endpoints.
type Handler struct {
	svc    *Service
	logger *zap.SugaredLogger
}

func NewHandler(svc *Service, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

type payload struct {
	Description *string    `json:"description"`
	State       *string    `json:"state"`
	CoordX      *float64   `json:"coordX"`
	CoordY      *float64   `json:"coordY"`
	DueDate     *time.Time `json:"dueDate"`
	TopicID     *int64     `json:"topicId"`
}

func (p payload) params() Params {
	return Params{
		Description: p.Description,
		State:       p.State,
		CoordX:      p.CoordX,
		CoordY:      p.CoordY,
		DueDate:     p.DueDate,
		TopicID:     p.TopicID,
	}
}

func idParam(r *http.Request) (int64, error) {
	return strconv.ParseInt(r.PathValue("id"), 10, 64)
}

// Create handles POST /api/tasks.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var p payload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		httperr.Write(w, r, httperr.BadRequest(""))
		return
	}
	t, err := h.svc.Create(r.Context(), session.FromRequest(r), p.params())
	if err != nil {
		httperr.Write(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, t)
}

// List handles GET /api/tasks. There is deliberately no cross-user task
// listing; the route exists for API-shape consistency and always refuses.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	httperr.Write(w, r, httperr.Forbidden(""))
}

// Get handles GET /api/tasks/{id}.
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

// Update handles PUT /api/tasks/{id}.
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
	t, err := h.svc.Update(r.Context(), session.FromRequest(r), id, p.params())
	if err != nil {
		httperr.Write(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, t)
}

// Delete handles DELETE /api/tasks/{id}.
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

// Trash handles GET /api/tasks/trash[?topic=N].
func (h *Handler) Trash(w http.ResponseWriter, r *http.Request) {
	var topicID *int64
	if v := r.URL.Query().Get("topic"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			httperr.Write(w, r, httperr.BadRequest(""))
			return
		}
		topicID = &id
	}
	tasks, err := h.svc.Trash(r.Context(), session.FromRequest(r), topicID)
	if err != nil {
		httperr.Write(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, tasks)
}

// ListForUser handles GET /api/users/{id}/tasks.
func (h *Handler) ListForUser(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		httperr.Write(w, r, httperr.BadRequest(""))
		return
	}
	tasks, err := h.svc.ListForUser(r.Context(), session.FromRequest(r), id)
	if err != nil {
		httperr.Write(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, tasks)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Warnw("response encode failed", "err", err)
	}
}
