// Package auth proves email ownership. It replaces an external identity
// provider with emailed one-time codes: request a code, present it back,
// receive a session cookie and a bearer token.
package auth

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/eisengrid/service-api-go/internal/auth/repo"
	mailer "github.com/eisengrid/service-api-go/internal/mail"
	"github.com/eisengrid/service-api-go/internal/session"
	"github.com/eisengrid/service-api-go/internal/user/entity"
	"github.com/eisengrid/service-api-go/pkg/httperr"
)

const (
	codeDigits = 6
	codeTTL    = 15 * time.Minute
)

// CodeStore is the persistence surface for pending codes.
type CodeStore interface {
	Save(ctx context.Context, c *repo.LoginCode) error
	Get(ctx context.Context, email string) (*repo.LoginCode, error)
	Delete(ctx context.Context, email string) error
}

// UserFinder locates the account behind an address.
type UserFinder interface {
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
}

// Notifier delivers the code.
type Notifier interface {
	Send(ctx context.Context, userID int64, t mailer.Template, data map[string]string) error
}

type Service struct {
	codes  CodeStore
	users  UserFinder
	notify Notifier
	tokens *session.TokenCodec
	logger *zap.SugaredLogger
}

func NewService(codes CodeStore, users UserFinder, notify Notifier, tokens *session.TokenCodec, logger *zap.SugaredLogger) *Service {
	return &Service{codes: codes, users: users, notify: notify, tokens: tokens, logger: logger}
}

// newCode returns a zero-padded numeric code from crypto/rand.
func newCode() (string, error) {
	max := big.NewInt(1)
	for i := 0; i < codeDigits; i++ {
		max.Mul(max, big.NewInt(10))
	}
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", codeDigits, n), nil
}

// RequestCode issues and mails a login code for an existing account. The
// outcome is deliberately indistinguishable for unknown addresses, so the
// endpoint cannot be used to probe for accounts.
func (s *Service) RequestCode(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return httperr.BadRequest("An email address is required.")
	}

	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.logger.Debugw("login code requested for unknown address")
			return nil
		}
		return err
	}

	code, err := newCode()
	if err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	if err := s.codes.Save(ctx, &repo.LoginCode{
		Email:     email,
		CodeHash:  string(hash),
		ExpiresAt: time.Now().Add(codeTTL),
	}); err != nil {
		return err
	}

	if err := s.notify.Send(ctx, u.ID, mailer.TemplateLoginCode, map[string]string{"code": code}); err != nil {
		s.logger.Warnw("login code mail failed", "user", u.ID, "err", err)
	}
	return nil
}

// VerifyCode checks a presented code and, on success, consumes it and
// returns a bearer token asserting the address. Wrong, expired, and absent
// codes are indistinguishable to the caller.
func (s *Service) VerifyCode(ctx context.Context, email, code string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || code == "" {
		return "", httperr.Unauthorized("Invalid login code.")
	}

	pending, err := s.codes.Get(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", httperr.Unauthorized("Invalid login code.")
		}
		return "", err
	}
	if time.Now().After(pending.ExpiresAt) {
		_ = s.codes.Delete(ctx, email)
		return "", httperr.Unauthorized("Invalid login code.")
	}
	if bcrypt.CompareHashAndPassword([]byte(pending.CodeHash), []byte(code)) != nil {
		return "", httperr.Unauthorized("Invalid login code.")
	}

	if err := s.codes.Delete(ctx, email); err != nil {
		return "", err
	}
	return s.tokens.Issue(email)
}
