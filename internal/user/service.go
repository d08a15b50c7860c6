package user

import (
	"context"
	"database/sql"
	"errors"
	"net/mail"
	"strings"

	"github.com/lib/pq"
	"go.uber.org/zap"

	mailer "github.com/eisengrid/service-api-go/internal/mail"
	"github.com/eisengrid/service-api-go/internal/research"
	"github.com/eisengrid/service-api-go/internal/session"
	"github.com/eisengrid/service-api-go/internal/user/entity"
	"github.com/eisengrid/service-api-go/pkg/httperr"
)

// Store is the persistence surface the service needs; *repo.UserRepo
// implements it, tests inject fakes.
type Store interface {
	Create(ctx context.Context, u *entity.User) (int64, error)
	GetByID(ctx context.Context, id int64) (*entity.User, error)
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
	List(ctx context.Context) ([]entity.User, error)
	Update(ctx context.Context, u *entity.User) error
	Delete(ctx context.Context, id int64) error
}

// Notifier is the slice of the mail sender the service uses.
type Notifier interface {
	Send(ctx context.Context, userID int64, t mailer.Template, data map[string]string) error
}

const maxNameLen = 70

// Service owns user lifecycle rules: who may see, change and remove whom.
type Service struct {
	store    Store
	notify   Notifier
	observer research.Observer
	logger   *zap.SugaredLogger
}

func NewService(store Store, notify Notifier, observer research.Observer, logger *zap.SugaredLogger) *Service {
	if observer == nil {
		observer = research.Nop{}
	}
	return &Service{store: store, notify: notify, observer: observer, logger: logger}
}

// CreateParams carries the user-settable fields. Pointer fields distinguish
// "absent" from zero values; IsAdmin presence alone is enough to trip the
// escalation guard.
type CreateParams struct {
	Name                string
	Email               string
	IsAdmin             *bool
	SendNotifications   *bool
	ResearchParticipant *bool
}

// Create registers an account. Anonymous callers are allowed; only the
// administrator flag is restricted, and that guard runs before anything
// touches the data layer.
func (s *Service) Create(ctx context.Context, sc session.Context, p CreateParams) (*entity.User, error) {
	if e := session.GuardRoleEscalation(sc, p.IsAdmin != nil && *p.IsAdmin); e != nil {
		return nil, e
	}

	email := strings.ToLower(strings.TrimSpace(p.Email))
	if email == "" {
		return nil, httperr.BadRequest("An email address is required.")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, httperr.BadRequest("A valid email address is required.")
	}
	if len(p.Name) > maxNameLen {
		return nil, httperr.BadRequest("Name must be 70 characters or fewer.")
	}

	u := &entity.User{
		Name:                strings.TrimSpace(p.Name),
		Email:               email,
		SendNotifications:   true,
		ResearchParticipant: true,
	}
	if p.IsAdmin != nil {
		u.IsAdmin = *p.IsAdmin
	}
	if p.SendNotifications != nil {
		u.SendNotifications = *p.SendNotifications
	}
	if p.ResearchParticipant != nil {
		u.ResearchParticipant = *p.ResearchParticipant
	}

	if _, err := s.store.Create(ctx, u); err != nil {
		if isUniqueViolation(err) {
			return nil, httperr.Conflict("User account already exists.")
		}
		return nil, err
	}

	created, err := s.store.GetByID(ctx, u.ID)
	if err != nil {
		return nil, err
	}

	// welcome mail is best-effort and preference-gated by the sender
	if err := s.notify.Send(ctx, created.ID, mailer.TemplateWelcome, nil); err != nil {
		s.logger.Warnw("welcome mail failed", "user", created.ID, "err", err)
	}
	s.observer.OnAfterWrite(ctx, "User", research.ActionCreate, created, created)
	return created, nil
}

// Get returns a user record to themselves or to an administrator.
// Anonymous callers are Unauthorized, never Forbidden.
func (s *Service) Get(ctx context.Context, sc session.Context, id int64) (*entity.User, error) {
	if e := session.RequireAuthenticated(sc); e != nil {
		return nil, e
	}
	if e := session.AuthorizeOwnership(sc, id, true); e != nil {
		return nil, e
	}
	u, err := s.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, httperr.NotFound("")
		}
		return nil, err
	}
	return u, nil
}

// List returns every account; administrators only. Anonymous callers are
// Unauthorized, authenticated non-administrators Forbidden.
func (s *Service) List(ctx context.Context, sc session.Context) ([]entity.User, error) {
	if e := session.RequireAuthenticated(sc); e != nil {
		return nil, e
	}
	if e := session.RequireAdministrator(sc); e != nil {
		return nil, e
	}
	return s.store.List(ctx)
}

// UpdateParams carries a partial update; nil means leave unchanged.
type UpdateParams struct {
	Name                *string
	Email               *string
	IsAdmin             *bool
	SendNotifications   *bool
	ResearchParticipant *bool
}

// Update applies a partial update. A user may change all their own fields
// except the administrator flag; an administrator editing someone else may
// change only the email and administrator flag. The escalation guard runs
// before the target lookup.
func (s *Service) Update(ctx context.Context, sc session.Context, id int64, p UpdateParams) (*entity.User, error) {
	if e := session.GuardRoleEscalation(sc, p.IsAdmin != nil); e != nil {
		return nil, e
	}
	if e := session.RequireAuthenticated(sc); e != nil {
		return nil, e
	}

	self := sc.User != nil && sc.User.ID == id
	if !self {
		if e := session.AuthorizeOwnership(sc, id, true); e != nil {
			return nil, e
		}
	}

	u, err := s.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, httperr.NotFound("")
		}
		return nil, err
	}

	if p.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*p.Email))
		if _, err := mail.ParseAddress(email); err != nil {
			return nil, httperr.BadRequest("A valid email address is required.")
		}
		u.Email = email
	}
	if p.IsAdmin != nil {
		u.IsAdmin = *p.IsAdmin
	}
	if self {
		// profile fields only the owner may touch
		if p.Name != nil {
			if len(*p.Name) > maxNameLen {
				return nil, httperr.BadRequest("Name must be 70 characters or fewer.")
			}
			u.Name = strings.TrimSpace(*p.Name)
		}
		if p.SendNotifications != nil {
			u.SendNotifications = *p.SendNotifications
		}
		if p.ResearchParticipant != nil {
			u.ResearchParticipant = *p.ResearchParticipant
		}
	}

	if err := s.store.Update(ctx, u); err != nil {
		if isUniqueViolation(err) {
			return nil, httperr.Conflict("User account already exists.")
		}
		return nil, err
	}
	s.observer.OnAfterWrite(ctx, "User", research.ActionUpdate, sc.User, u)
	return u, nil
}

// Delete removes an account permanently, cascading to owned topics and
// tasks. Self or administrator.
func (s *Service) Delete(ctx context.Context, sc session.Context, id int64) error {
	if e := session.RequireAuthenticated(sc); e != nil {
		return e
	}
	if e := session.AuthorizeOwnership(sc, id, true); e != nil {
		return e
	}
	u, err := s.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return httperr.NotFound("")
		}
		return err
	}
	if err := s.store.Delete(ctx, u.ID); err != nil {
		return err
	}
	s.observer.OnAfterWrite(ctx, "User", research.ActionDestroy, sc.User, u)
	return nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
