// Package session resolves an inbound request's identity assertion into a
// request-scoped context and provides the guards route handlers compose.
//
// Resolution order is bearer token first, then the signed session cookie.
// A request that proves nothing proceeds anonymously; guards decide later
// whether anonymity is acceptable for a given route.
package session

import (
	"context"
	"net/http"

	"github.com/eisengrid/service-api-go/internal/user/entity"
)

// Context is the resolved identity for one request. Email is the verified
// claim (empty when nothing was proven); User is the matching account record
// (nil when the claim matched no account, or nothing was proven).
type Context struct {
	Email string
	User  *entity.User
}

// Authenticated reports whether a full account was resolved.
func (c Context) Authenticated() bool { return c.User != nil }

// Admin reports whether the resolved account has the administrator flag.
func (c Context) Admin() bool { return c.User != nil && c.User.IsAdmin }

type ctxKey struct{}

// WithContext attaches the session context to a request context.
func WithContext(ctx context.Context, sc Context) context.Context {
	return context.WithValue(ctx, ctxKey{}, sc)
}

// FromRequest returns the session context resolved for this request, or the
// anonymous context when the resolver did not run.
func FromRequest(r *http.Request) Context {
	if sc, ok := r.Context().Value(ctxKey{}).(Context); ok {
		return sc
	}
	return Context{}
}
