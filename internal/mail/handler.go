package mail

import (
	"context"
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/eisengrid/service-api-go/internal/session"
	"github.com/eisengrid/service-api-go/internal/user/entity"
	"github.com/eisengrid/service-api-go/pkg/httperr"
	"github.com/eisengrid/service-api-go/pkg/utilities"
)

// Roster lists the users who opted in to notifications.
type Roster interface {
	ListNotifiable(ctx context.Context) ([]entity.User, error)
}

// Handler exposes the administrator broadcast endpoint.
type Handler struct {
	sender *Sender
	roster Roster
	logger *zap.SugaredLogger
}

func NewHandler(sender *Sender, roster Roster, logger *zap.SugaredLogger) *Handler {
	return &Handler{sender: sender, roster: roster, logger: logger}
}

type broadcastBody struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

type broadcastResult struct {
	// BatchID correlates the broadcast's log lines with the response.
	BatchID string   `json:"batchId"`
	Sent    []int64  `json:"sent"`
	Errors  []string `json:"errors"`
}

// Broadcast handles POST /api/admin/email: fan a message out to every
// opted-in user. Administrators only. Partial failure is reported, not
// treated as an error status.
func (h *Handler) Broadcast(w http.ResponseWriter, r *http.Request) {
	sc := session.FromRequest(r)
	if e := session.RequireAuthenticated(sc); e != nil {
		httperr.Write(w, r, e)
		return
	}
	if e := session.RequireAdministrator(sc); e != nil {
		httperr.Write(w, r, e)
		return
	}

	var body broadcastBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		httperr.Write(w, r, httperr.BadRequest(""))
		return
	}
	if body.Subject == "" || body.Body == "" {
		httperr.Write(w, r, httperr.BadRequest("A subject and a body are required."))
		return
	}

	users, err := h.roster.ListNotifiable(r.Context())
	if err != nil {
		httperr.Write(w, r, err)
		return
	}
	ids := make([]int64, 0, len(users))
	for _, u := range users {
		ids = append(ids, u.ID)
	}

	batchID := utilities.NewSnowflakeID()
	sent, errs := h.sender.SendBulk(r.Context(), ids, TemplateBroadcast, map[string]string{
		"subject": body.Subject,
		"body":    body.Body,
	})
	h.logger.Infow("broadcast finished", "batch", batchID, "recipients", len(ids), "sent", len(sent), "failed", len(errs))
	result := broadcastResult{BatchID: batchID, Sent: sent, Errors: make([]string, 0, len(errs))}
	if result.Sent == nil {
		result.Sent = []int64{}
	}
	for _, e := range errs {
		result.Errors = append(result.Errors, e.Error())
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(result); err != nil {
		h.logger.Warnw("response encode failed", "err", err)
	}
}
