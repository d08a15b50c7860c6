package session

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenCodec issues and verifies bearer tokens. The verified email travels
// as the `iss` claim; expiry as the standard `exp` claim.
type TokenCodec struct {
	secret []byte
	ttl    time.Duration
}

func NewTokenCodec(secret []byte, ttl time.Duration) *TokenCodec {
	if ttl <= 0 {
		ttl = 14 * 24 * time.Hour
	}
	return &TokenCodec{secret: secret, ttl: ttl}
}

// Issue signs a token asserting ownership of email.
func (t *TokenCodec) Issue(email string) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"iss": email,
		"iat": now.Unix(),
		"exp": now.Add(t.ttl).Unix(),
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tok.SignedString(t.secret)
}

var errNoIssuer = errors.New("token has no issuer claim")

// VerifiedEmail parses and validates a token, returning the email it
// asserts. Expired or malformed tokens return an error; callers treat that
// as "this source proved nothing" and move on to the next identity source.
func (t *TokenCodec) VerifiedEmail(raw string) (string, error) {
	tok, err := jwt.Parse(raw, func(*jwt.Token) (any, error) {
		return t.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return "", err
	}
	iss, err := tok.Claims.GetIssuer()
	if err != nil || iss == "" {
		return "", errNoIssuer
	}
	return iss, nil
}
