package session

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/eisengrid/service-api-go/internal/user/entity"
	"github.com/eisengrid/service-api-go/pkg/httperr"
)

// UserStore is the slice of the user repository the resolver needs.
type UserStore interface {
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
	TouchLastLogin(ctx context.Context, id int64) error
}

// Resolver is the identity-resolution middleware. It runs on every route,
// including anonymous-capable ones.
type Resolver struct {
	users   UserStore
	tokens  *TokenCodec
	cookies *CookieStore
	logger  *zap.SugaredLogger
}

func NewResolver(users UserStore, tokens *TokenCodec, cookies *CookieStore, logger *zap.SugaredLogger) *Resolver {
	return &Resolver{users: users, tokens: tokens, cookies: cookies, logger: logger}
}

// bearerToken extracts the raw token from the places clients put it.
func bearerToken(r *http.Request) string {
	if t := r.Header.Get("X-Access-Token"); t != "" {
		return t
	}
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(strings.ToLower(auth), "bearer ") {
		return strings.TrimSpace(auth[len("bearer "):])
	}
	if t := r.URL.Query().Get("access_token"); t != "" {
		return t
	}
	// form bodies only; JSON bodies are left untouched for the handlers
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/x-www-form-urlencoded") {
		return r.PostFormValue("access_token")
	}
	return ""
}

// Middleware resolves the request's identity and attaches the session
// context. Failure to prove identity is not an error: the request proceeds
// anonymously and guards reject it later where needed. Only a broken data
// layer aborts here.
func (rs *Resolver) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		email := ""

		// bearer token wins over the session cookie
		if raw := bearerToken(r); raw != "" {
			verified, err := rs.tokens.VerifiedEmail(raw)
			if err != nil {
				// invalid or expired token: log and fall through
				rs.logger.Debugw("bearer token rejected", "err", err)
			} else {
				email = verified
			}
		}
		if email == "" {
			email = rs.cookies.Email(r)
		}

		if email == "" {
			next.ServeHTTP(w, r.WithContext(WithContext(r.Context(), Context{})))
			return
		}

		u, err := rs.users.GetByEmail(r.Context(), strings.ToLower(email))
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				// proved an email with no account behind it: continue with
				// the claim attached so account creation can proceed
				next.ServeHTTP(w, r.WithContext(WithContext(r.Context(), Context{Email: email})))
				return
			}
			rs.logger.Errorw("session user lookup failed", "err", err)
			httperr.Write(w, r, httperr.Internal(""))
			return
		}

		if err := rs.users.TouchLastLogin(r.Context(), u.ID); err != nil {
			rs.logger.Errorw("last login update failed", "err", err, "user", u.ID)
			httperr.Write(w, r, httperr.Internal(""))
			return
		}

		next.ServeHTTP(w, r.WithContext(WithContext(r.Context(), Context{Email: email, User: u})))
	})
}
