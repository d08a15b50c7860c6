package task

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/eisengrid/service-api-go/internal/research"
	"github.com/eisengrid/service-api-go/internal/session"
	"github.com/eisengrid/service-api-go/internal/task/entity"
	"github.com/eisengrid/service-api-go/pkg/httperr"
)

// Store is the persistence surface the service needs.
type Store interface {
	Create(ctx context.Context, t *entity.Task) (int64, error)
	GetByID(ctx context.Context, id int64) (*entity.Task, error)
	ListByUser(ctx context.Context, userID int64) ([]entity.Task, error)
	ListTrashByUser(ctx context.Context, userID int64, topicID *int64) ([]entity.Task, error)
	Update(ctx context.Context, t *entity.Task) error
	SoftDelete(ctx context.Context, id int64) error
}

// Service enforces ownership and coordinate bounds on tasks. Task access
// never has an administrator bypass: per-user isolation holds even for
// admins.
type Service struct {
	store    Store
	observer research.Observer
	logger   *zap.SugaredLogger
}

func NewService(store Store, observer research.Observer, logger *zap.SugaredLogger) *Service {
	if observer == nil {
		observer = research.Nop{}
	}
	return &Service{store: store, observer: observer, logger: logger}
}

// Params carries the writable task fields; nil means absent.
type Params struct {
	Description *string
	State       *string
	CoordX      *float64
	CoordY      *float64
	DueDate     *time.Time
	TopicID     *int64
	// ClearTopic detaches the task from its topic on update.
	ClearTopic bool
}

// validate rejects out-of-bounds coordinates and unknown states. Values are
// never clamped; display-side clamping is the renderer's own business.
func validate(t *entity.Task) *httperr.Error {
	if t.Description == "" {
		return httperr.BadRequest("A task description is required.")
	}
	if !entity.ValidState(t.State) {
		return httperr.BadRequest("Task state must be incomplete or complete.")
	}
	if t.CoordX != nil && !entity.InBounds(*t.CoordX) {
		return httperr.BadRequest("coordX must be within [-100, 100].")
	}
	if t.CoordY != nil && !entity.InBounds(*t.CoordY) {
		return httperr.BadRequest("coordY must be within [-100, 100].")
	}
	return nil
}

// Create plots a new task for the acting user.
func (s *Service) Create(ctx context.Context, sc session.Context, p Params) (*entity.Task, error) {
	if e := session.RequireAuthenticated(sc); e != nil {
		return nil, e
	}
	t := &entity.Task{
		State:   entity.StateIncomplete,
		UserID:  sc.User.ID,
		CoordX:  p.CoordX,
		CoordY:  p.CoordY,
		DueDate: p.DueDate,
		TopicID: p.TopicID,
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.State != nil {
		t.State = *p.State
	}
	if e := validate(t); e != nil {
		return nil, e
	}
	if _, err := s.store.Create(ctx, t); err != nil {
		return nil, err
	}
	created, err := s.store.GetByID(ctx, t.ID)
	if err != nil {
		return nil, err
	}
	s.observer.OnAfterWrite(ctx, "Task", research.ActionCreate, sc.User, created)
	return created, nil
}

// Get returns a task to its owner. A task that exists but belongs to
// someone else is Forbidden, never NotFound.
func (s *Service) Get(ctx context.Context, sc session.Context, id int64) (*entity.Task, error) {
	if e := session.RequireAuthenticated(sc); e != nil {
		return nil, e
	}
	t, err := s.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, httperr.NotFound("")
		}
		return nil, err
	}
	if e := session.AuthorizeOwnership(sc, t.UserID, false); e != nil {
		return nil, e
	}
	return t, nil
}

// ListForUser lists a user's live tasks; owner only, no admin bypass.
func (s *Service) ListForUser(ctx context.Context, sc session.Context, userID int64) ([]entity.Task, error) {
	if e := session.RequireAuthenticated(sc); e != nil {
		return nil, e
	}
	if e := session.AuthorizeOwnership(sc, userID, false); e != nil {
		return nil, e
	}
	return s.store.ListByUser(ctx, userID)
}

// Trash lists the acting user's tombstoned tasks, optionally filtered by
// topic.
func (s *Service) Trash(ctx context.Context, sc session.Context, topicID *int64) ([]entity.Task, error) {
	if e := session.RequireAuthenticated(sc); e != nil {
		return nil, e
	}
	return s.store.ListTrashByUser(ctx, sc.User.ID, topicID)
}

// Update applies a partial update to an owned task.
func (s *Service) Update(ctx context.Context, sc session.Context, id int64, p Params) (*entity.Task, error) {
	t, err := s.Get(ctx, sc, id)
	if err != nil {
		return nil, err
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.State != nil {
		t.State = *p.State
	}
	if p.CoordX != nil {
		t.CoordX = p.CoordX
	}
	if p.CoordY != nil {
		t.CoordY = p.CoordY
	}
	if p.DueDate != nil {
		t.DueDate = p.DueDate
	}
	if p.TopicID != nil {
		t.TopicID = p.TopicID
	}
	if p.ClearTopic {
		t.TopicID = nil
	}
	if e := validate(t); e != nil {
		return nil, e
	}
	if err := s.store.Update(ctx, t); err != nil {
		return nil, err
	}
	s.observer.OnAfterWrite(ctx, "Task", research.ActionUpdate, sc.User, t)
	return t, nil
}

// Delete tombstones an owned task.
func (s *Service) Delete(ctx context.Context, sc session.Context, id int64) error {
	t, err := s.Get(ctx, sc, id)
	if err != nil {
		return err
	}
	if err := s.store.SoftDelete(ctx, t.ID); err != nil {
		return err
	}
	s.observer.OnAfterWrite(ctx, "Task", research.ActionDestroy, sc.User, t)
	return nil
}
