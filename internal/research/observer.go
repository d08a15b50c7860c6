// Package research records anonymised write events for users who opted in
// as research participants. It hangs off an observer interface the services
// call after successful writes; recording is best-effort and never fails
// the triggering request.
package research

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/eisengrid/service-api-go/internal/research/repo"
	"github.com/eisengrid/service-api-go/internal/user/entity"
	"github.com/eisengrid/service-api-go/pkg/utilities"
)

type Action string

const (
	ActionCreate  Action = "Create"
	ActionUpdate  Action = "Update"
	ActionDestroy Action = "Destroy"
)

// Observer receives a notification after every persisted write.
type Observer interface {
	OnAfterWrite(ctx context.Context, model string, action Action, actor *entity.User, snapshot any)
}

// Nop ignores everything; the default when research recording is disabled.
type Nop struct{}

func (Nop) OnAfterWrite(context.Context, string, Action, *entity.User, any) {}

// Recorder persists events for research participants.
type Recorder struct {
	repo   *repo.ResearchRepo
	logger *zap.SugaredLogger
}

func NewRecorder(r *repo.ResearchRepo, logger *zap.SugaredLogger) *Recorder {
	return &Recorder{repo: r, logger: logger}
}

func (rec *Recorder) OnAfterWrite(ctx context.Context, model string, action Action, actor *entity.User, snapshot any) {
	if actor == nil || !actor.ResearchParticipant {
		return
	}
	payload, err := json.Marshal(snapshot)
	if err != nil {
		rec.logger.Warnw("research snapshot marshal failed", "model", model, "err", err)
		return
	}
	row := repo.Record{
		ID:       utilities.NewKSUID(),
		Model:    model,
		Action:   string(action),
		UserHash: actor.EmailHash(),
		Payload:  payload,
	}
	if err := rec.repo.Insert(ctx, &row); err != nil {
		rec.logger.Warnw("research record insert failed", "model", model, "err", err)
	}
}
