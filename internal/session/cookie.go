package session

import (
	"crypto/sha256"
	"net/http"

	"github.com/gorilla/securecookie"
)

const cookieName = "eisengrid_session"

// CookieStore keeps the verified email in a signed, encrypted cookie. It is
// the second identity source after bearer tokens, and what browser clients
// use between logins.
type CookieStore struct {
	codec  *securecookie.SecureCookie
	secure bool
}

// NewCookieStore derives fixed-length hash and block keys from the shared
// session secret.
func NewCookieStore(secret []byte, secure bool) *CookieStore {
	hashKey := sha256.Sum256(append([]byte("hash:"), secret...))
	blockKey := sha256.Sum256(append([]byte("block:"), secret...))
	return &CookieStore{
		codec:  securecookie.New(hashKey[:], blockKey[:]),
		secure: secure,
	}
}

// Email returns the verified email stored in the request's session cookie,
// or "" when absent or tampered with.
func (s *CookieStore) Email(r *http.Request) string {
	c, err := r.Cookie(cookieName)
	if err != nil {
		return ""
	}
	var email string
	if err := s.codec.Decode(cookieName, c.Value, &email); err != nil {
		return ""
	}
	return email
}

// SetEmail establishes a session for the verified email.
func (s *CookieStore) SetEmail(w http.ResponseWriter, email string) error {
	encoded, err := s.codec.Encode(cookieName, email)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    encoded,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   14 * 24 * 60 * 60,
	})
	return nil
}

// Clear removes the session cookie.
func (s *CookieStore) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}
