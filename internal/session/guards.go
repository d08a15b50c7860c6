package session

import (
	"net/http"

	"github.com/eisengrid/service-api-go/pkg/httperr"
)

// Guards are pure functions of the resolved context. They compose in
// sequence and short-circuit on the first failure; none of them touch the
// data layer.

// RequireAuthenticated fails when no identity was proven, before any
// account lookup is considered, and again when the proven identity has no
// account behind it.
func RequireAuthenticated(c Context) *httperr.Error {
	if c.Email == "" {
		return httperr.Unauthorized("")
	}
	if c.User == nil {
		return httperr.Unauthorized("No account exists for the verified address.")
	}
	return nil
}

// RequireAdministrator fails unless the resolved account is an
// administrator. Callers run RequireAuthenticated first.
func RequireAdministrator(c Context) *httperr.Error {
	if !c.Admin() {
		return httperr.Forbidden("")
	}
	return nil
}

// AuthorizeOwnership fails unless the acting account owns the resource.
// Administrator bypass is opt-in per operation: routes that preserve
// per-user isolation (topic task listings, task reads) pass allowAdmin
// false.
func AuthorizeOwnership(c Context, ownerID int64, allowAdmin bool) *httperr.Error {
	if c.User == nil {
		return httperr.Forbidden("")
	}
	if c.User.ID == ownerID {
		return nil
	}
	if allowAdmin && c.User.IsAdmin {
		return nil
	}
	return httperr.Forbidden("")
}

// GuardRoleEscalation fails when a non-administrator's payload carries the
// administrator flag. The taxonomy deliberately treats this as Unauthorized
// rather than Forbidden, and the guard runs before any target lookup.
func GuardRoleEscalation(c Context, payloadHasAdminField bool) *httperr.Error {
	if payloadHasAdminField && !c.Admin() {
		return httperr.Unauthorized("You are not permitted to set administrator status.")
	}
	return nil
}

// Authenticated wraps a handler with RequireAuthenticated.
func Authenticated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if e := RequireAuthenticated(FromRequest(r)); e != nil {
			httperr.Write(w, r, e)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Administrator wraps a handler with RequireAuthenticated then
// RequireAdministrator.
func Administrator(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sc := FromRequest(r)
		if e := RequireAuthenticated(sc); e != nil {
			httperr.Write(w, r, e)
			return
		}
		if e := RequireAdministrator(sc); e != nil {
			httperr.Write(w, r, e)
			return
		}
		next.ServeHTTP(w, r)
	})
}
