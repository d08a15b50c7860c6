package topic

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/eisengrid/service-api-go/internal/research"
	"github.com/eisengrid/service-api-go/internal/session"
	taskentity "github.com/eisengrid/service-api-go/internal/task/entity"
	"github.com/eisengrid/service-api-go/internal/topic/entity"
	"github.com/eisengrid/service-api-go/pkg/httperr"
)

// Store is the persistence surface the service needs.
type Store interface {
	Create(ctx context.Context, t *entity.Topic) (int64, error)
	GetByID(ctx context.Context, id int64) (*entity.Topic, error)
	ListByUser(ctx context.Context, userID int64) ([]entity.Topic, error)
	ListTrashByUser(ctx context.Context, userID int64) ([]entity.Topic, error)
	Update(ctx context.Context, t *entity.Topic) error
	SoftDelete(ctx context.Context, id int64) error
}

// TaskLister is the slice of the task store used for the topic task
// listing.
type TaskLister interface {
	ListByTopic(ctx context.Context, topicID int64) ([]taskentity.Task, error)
}

// Service enforces ownership on topics. Like tasks, topic access has no
// administrator bypass.
type Service struct {
	store    Store
	tasks    TaskLister
	observer research.Observer
	logger   *zap.SugaredLogger
}

func NewService(store Store, tasks TaskLister, observer research.Observer, logger *zap.SugaredLogger) *Service {
	if observer == nil {
		observer = research.Nop{}
	}
	return &Service{store: store, tasks: tasks, observer: observer, logger: logger}
}

// Params carries the writable topic fields; nil means absent.
type Params struct {
	Name        *string
	Description *string
}

const maxNameLen = 70

func validateName(name *string) *httperr.Error {
	if name != nil && len(*name) > maxNameLen {
		return httperr.BadRequest("Name must be 70 characters or fewer.")
	}
	return nil
}

// Create makes a topic owned by the acting user.
func (s *Service) Create(ctx context.Context, sc session.Context, p Params) (*entity.Topic, error) {
	if e := session.RequireAuthenticated(sc); e != nil {
		return nil, e
	}
	if e := validateName(p.Name); e != nil {
		return nil, e
	}
	t := &entity.Topic{
		Name:        p.Name,
		Description: p.Description,
		UserID:      sc.User.ID,
	}
	if _, err := s.store.Create(ctx, t); err != nil {
		return nil, err
	}
	created, err := s.store.GetByID(ctx, t.ID)
	if err != nil {
		return nil, err
	}
	s.observer.OnAfterWrite(ctx, "Topic", research.ActionCreate, sc.User, created)
	return created, nil
}

// Get returns a topic to its owner; exists-but-not-yours is Forbidden.
func (s *Service) Get(ctx context.Context, sc session.Context, id int64) (*entity.Topic, error) {
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

// ListForUser lists a user's live topics; owner only.
func (s *Service) ListForUser(ctx context.Context, sc session.Context, userID int64) ([]entity.Topic, error) {
	if e := session.RequireAuthenticated(sc); e != nil {
		return nil, e
	}
	if e := session.AuthorizeOwnership(sc, userID, false); e != nil {
		return nil, e
	}
	return s.store.ListByUser(ctx, userID)
}

// Trash lists the acting user's tombstoned topics.
func (s *Service) Trash(ctx context.Context, sc session.Context) ([]entity.Topic, error) {
	if e := session.RequireAuthenticated(sc); e != nil {
		return nil, e
	}
	return s.store.ListTrashByUser(ctx, sc.User.ID)
}

// Tasks lists a topic's live tasks. Owner only: even administrators cannot
// read another user's topic tasks.
func (s *Service) Tasks(ctx context.Context, sc session.Context, id int64) ([]taskentity.Task, error) {
	t, err := s.Get(ctx, sc, id)
	if err != nil {
		return nil, err
	}
	return s.tasks.ListByTopic(ctx, t.ID)
}

// Update applies a partial update to an owned topic.
func (s *Service) Update(ctx context.Context, sc session.Context, id int64, p Params) (*entity.Topic, error) {
	t, err := s.Get(ctx, sc, id)
	if err != nil {
		return nil, err
	}
	if e := validateName(p.Name); e != nil {
		return nil, e
	}
	if p.Name != nil {
		t.Name = p.Name
	}
	if p.Description != nil {
		t.Description = p.Description
	}
	if err := s.store.Update(ctx, t); err != nil {
		return nil, err
	}
	s.observer.OnAfterWrite(ctx, "Topic", research.ActionUpdate, sc.User, t)
	return t, nil
}

// Delete tombstones an owned topic together with its tasks.
func (s *Service) Delete(ctx context.Context, sc session.Context, id int64) error {
	t, err := s.Get(ctx, sc, id)
	if err != nil {
		return err
	}
	if err := s.store.SoftDelete(ctx, t.ID); err != nil {
		return err
	}
	s.observer.OnAfterWrite(ctx, "Topic", research.ActionDestroy, sc.User, t)
	return nil
}
