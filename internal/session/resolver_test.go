package session

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/eisengrid/service-api-go/internal/user/entity"
)

type fakeUserStore struct {
	users     map[string]*entity.User
	lookupErr error
	touchErr  error
	touched   []int64
}

func (f *fakeUserStore) GetByEmail(_ context.Context, email string) (*entity.User, error) {
	if f.lookupErr != nil {
		return nil, f.lookupErr
	}
	u, ok := f.users[email]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return u, nil
}

func (f *fakeUserStore) TouchLastLogin(_ context.Context, id int64) error {
	if f.touchErr != nil {
		return f.touchErr
	}
	f.touched = append(f.touched, id)
	return nil
}

func newTestResolver(store *fakeUserStore) (*Resolver, *TokenCodec, *CookieStore) {
	tokens := NewTokenCodec([]byte("secret"), time.Hour)
	cookies := NewCookieStore([]byte("secret"), false)
	return NewResolver(store, tokens, cookies, zap.NewNop().Sugar()), tokens, cookies
}

// capture runs a request through the resolver and returns the context the
// inner handler saw.
func capture(t *testing.T, rs *Resolver, r *http.Request) (Context, *httptest.ResponseRecorder) {
	t.Helper()
	var got Context
	rec := httptest.NewRecorder()
	rs.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = FromRequest(r)
	})).ServeHTTP(rec, r)
	return got, rec
}

func sessionCookie(t *testing.T, cookies *CookieStore, email string) *http.Cookie {
	t.Helper()
	rec := httptest.NewRecorder()
	require.NoError(t, cookies.SetEmail(rec, email))
	cs := rec.Result().Cookies()
	require.Len(t, cs, 1)
	return cs[0]
}

func TestResolveAnonymous(t *testing.T) {
	rs, _, _ := newTestResolver(&fakeUserStore{})
	got, rec := capture(t, rs, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, got.Email)
	assert.Nil(t, got.User)
}

func TestResolveFromToken(t *testing.T) {
	store := &fakeUserStore{users: map[string]*entity.User{
		"alice@example.com": {ID: 1, Email: "alice@example.com"},
	}}
	rs, tokens, _ := newTestResolver(store)
	raw, err := tokens.Issue("alice@example.com")
	require.NoError(t, err)

	for _, attach := range []func(*http.Request){
		func(r *http.Request) { r.Header.Set("X-Access-Token", raw) },
		func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+raw) },
	} {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		attach(r)
		got, rec := capture(t, rs, r)
		assert.Equal(t, http.StatusOK, rec.Code)
		require.NotNil(t, got.User)
		assert.Equal(t, int64(1), got.User.ID)
	}

	// query parameter source
	raw2, err := tokens.Issue("alice@example.com")
	require.NoError(t, err)
	r := httptest.NewRequest(http.MethodGet, "/?access_token="+raw2, nil)
	got, _ := capture(t, rs, r)
	require.NotNil(t, got.User)

	assert.Len(t, store.touched, 3)
}

func TestTokenWinsOverCookie(t *testing.T) {
	store := &fakeUserStore{users: map[string]*entity.User{
		"alice@example.com": {ID: 1, Email: "alice@example.com"},
		"bob@example.com":   {ID: 2, Email: "bob@example.com"},
	}}
	rs, tokens, cookies := newTestResolver(store)
	raw, err := tokens.Issue("alice@example.com")
	require.NoError(t, err)

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("X-Access-Token", raw)
	r.AddCookie(sessionCookie(t, cookies, "bob@example.com"))

	got, _ := capture(t, rs, r)
	require.NotNil(t, got.User)
	assert.Equal(t, int64(1), got.User.ID)
}

func TestBadTokenFallsThroughToCookie(t *testing.T) {
	store := &fakeUserStore{users: map[string]*entity.User{
		"bob@example.com": {ID: 2, Email: "bob@example.com"},
	}}
	rs, _, cookies := newTestResolver(store)

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("X-Access-Token", "garbage")
	r.AddCookie(sessionCookie(t, cookies, "bob@example.com"))

	got, rec := capture(t, rs, r)
	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, got.User)
	assert.Equal(t, int64(2), got.User.ID)
}

func TestVerifiedEmailWithoutAccount(t *testing.T) {
	rs, tokens, _ := newTestResolver(&fakeUserStore{})
	raw, err := tokens.Issue("ghost@example.com")
	require.NoError(t, err)

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("X-Access-Token", raw)

	got, rec := capture(t, rs, r)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ghost@example.com", got.Email)
	assert.Nil(t, got.User)
}

func TestLookupFailureAborts(t *testing.T) {
	rs, tokens, _ := newTestResolver(&fakeUserStore{lookupErr: errors.New("db down")})
	raw, err := tokens.Issue("alice@example.com")
	require.NoError(t, err)

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("X-Access-Token", raw)

	rec := httptest.NewRecorder()
	rs.Middleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatal("handler must not run")
	})).ServeHTTP(rec, r)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestLastLoginFailureAborts(t *testing.T) {
	store := &fakeUserStore{
		users:    map[string]*entity.User{"alice@example.com": {ID: 1, Email: "alice@example.com"}},
		touchErr: errors.New("db down"),
	}
	rs, tokens, _ := newTestResolver(store)
	raw, err := tokens.Issue("alice@example.com")
	require.NoError(t, err)

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("X-Access-Token", raw)

	rec := httptest.NewRecorder()
	rs.Middleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatal("handler must not run")
	})).ServeHTTP(rec, r)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestCookieTamperingYieldsAnonymous(t *testing.T) {
	rs, _, cookies := newTestResolver(&fakeUserStore{})

	c := sessionCookie(t, cookies, "bob@example.com")
	c.Value = "tampered" + c.Value

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(c)

	got, rec := capture(t, rs, r)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, got.Email)
}
