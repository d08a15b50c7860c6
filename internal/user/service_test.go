package user

import (
	"context"
	"database/sql"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	mailer "github.com/eisengrid/service-api-go/internal/mail"
	"github.com/eisengrid/service-api-go/internal/session"
	"github.com/eisengrid/service-api-go/internal/user/entity"
	"github.com/eisengrid/service-api-go/pkg/httperr"
)

type fakeStore struct {
	users  map[int64]*entity.User
	nextID int64
	// dupEmail makes writes fail with a unique-violation for this address
	dupEmail string
	gets     int
}

func newFakeStore(users ...*entity.User) *fakeStore {
	f := &fakeStore{users: map[int64]*entity.User{}, nextID: 1}
	for _, u := range users {
		f.users[u.ID] = u
		if u.ID >= f.nextID {
			f.nextID = u.ID + 1
		}
	}
	return f
}

func (f *fakeStore) Create(_ context.Context, u *entity.User) (int64, error) {
	if u.Email == f.dupEmail {
		return 0, &pq.Error{Code: "23505"}
	}
	u.ID = f.nextID
	f.nextID++
	cp := *u
	f.users[u.ID] = &cp
	return u.ID, nil
}

func (f *fakeStore) GetByID(_ context.Context, id int64) (*entity.User, error) {
	f.gets++
	u, ok := f.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *u
	return &cp, nil
}

func (f *fakeStore) GetByEmail(_ context.Context, email string) (*entity.User, error) {
	for _, u := range f.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeStore) List(_ context.Context) ([]entity.User, error) {
	out := make([]entity.User, 0, len(f.users))
	for _, u := range f.users {
		out = append(out, *u)
	}
	return out, nil
}

func (f *fakeStore) Update(_ context.Context, u *entity.User) error {
	if u.Email == f.dupEmail {
		return &pq.Error{Code: "23505"}
	}
	cp := *u
	f.users[u.ID] = &cp
	return nil
}

func (f *fakeStore) Delete(_ context.Context, id int64) error {
	delete(f.users, id)
	return nil
}

type fakeNotifier struct {
	sent []mailer.Template
	err  error
}

func (f *fakeNotifier) Send(_ context.Context, _ int64, t mailer.Template, _ map[string]string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, t)
	return nil
}

func asMember(u *entity.User) session.Context {
	return session.Context{Email: u.Email, User: u}
}

func boolPtr(b bool) *bool    { return &b }
func strPtr(s string) *string { return &s }

func newTestService(store *fakeStore) (*Service, *fakeNotifier) {
	notify := &fakeNotifier{}
	return NewService(store, notify, nil, zap.NewNop().Sugar()), notify
}

func TestCreateDefaults(t *testing.T) {
	store := newFakeStore()
	svc, notify := newTestService(store)

	u, err := svc.Create(context.Background(), session.Context{}, CreateParams{
		Name:  "Alice",
		Email: "Alice@Example.COM",
	})
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", u.Email)
	assert.False(t, u.IsAdmin)
	assert.True(t, u.SendNotifications)
	assert.True(t, u.ResearchParticipant)
	assert.Equal(t, []mailer.Template{mailer.TemplateWelcome}, notify.sent)
}

func TestCreateEscalationRejected(t *testing.T) {
	store := newFakeStore()
	svc, _ := newTestService(store)

	// anonymous
	_, err := svc.Create(context.Background(), session.Context{}, CreateParams{
		Email:   "alice@example.com",
		IsAdmin: boolPtr(true),
	})
	var te *httperr.Error
	require.ErrorAs(t, err, &te)
	assert.Equal(t, httperr.KindUnauthorized, te.Kind)
	assert.Empty(t, store.users)

	// authenticated non-administrator
	member := &entity.User{ID: 1, Email: "m@example.com"}
	store = newFakeStore(member)
	svc, _ = newTestService(store)
	_, err = svc.Create(context.Background(), asMember(member), CreateParams{
		Email:   "other@example.com",
		IsAdmin: boolPtr(true),
	})
	require.ErrorAs(t, err, &te)
	assert.Equal(t, httperr.KindUnauthorized, te.Kind)
}

func TestCreateByAdministrator(t *testing.T) {
	admin := &entity.User{ID: 1, Email: "a@example.com", IsAdmin: true}
	store := newFakeStore(admin)
	svc, _ := newTestService(store)

	u, err := svc.Create(context.Background(), asMember(admin), CreateParams{
		Email:   "new-admin@example.com",
		IsAdmin: boolPtr(true),
	})
	require.NoError(t, err)
	assert.True(t, u.IsAdmin)
}

func TestCreateDuplicateEmail(t *testing.T) {
	store := newFakeStore()
	store.dupEmail = "taken@example.com"
	svc, _ := newTestService(store)

	_, err := svc.Create(context.Background(), session.Context{}, CreateParams{
		Email: "taken@example.com",
	})
	var te *httperr.Error
	require.ErrorAs(t, err, &te)
	assert.Equal(t, httperr.KindConflict, te.Kind)
}

func TestCreateInvalidEmail(t *testing.T) {
	svc, _ := newTestService(newFakeStore())

	for _, email := range []string{"", "not-an-address", "a b@example.com"} {
		_, err := svc.Create(context.Background(), session.Context{}, CreateParams{Email: email})
		var te *httperr.Error
		require.ErrorAs(t, err, &te, "email %q", email)
		assert.Equal(t, httperr.KindBadRequest, te.Kind)
	}
}

func TestCreateMailFailureIsNotFatal(t *testing.T) {
	store := newFakeStore()
	svc, notify := newTestService(store)
	notify.err = assert.AnError

	_, err := svc.Create(context.Background(), session.Context{}, CreateParams{Email: "alice@example.com"})
	assert.NoError(t, err)
}

func TestAnonymousAccessIsUnauthorized(t *testing.T) {
	alice := &entity.User{ID: 1, Email: "alice@example.com"}
	svc, _ := newTestService(newFakeStore(alice))

	// no proven identity is Unauthorized, never Forbidden
	var te *httperr.Error
	_, err := svc.Get(context.Background(), session.Context{}, 1)
	require.ErrorAs(t, err, &te)
	assert.Equal(t, httperr.KindUnauthorized, te.Kind)

	_, err = svc.Update(context.Background(), session.Context{}, 1, UpdateParams{Name: strPtr("X")})
	require.ErrorAs(t, err, &te)
	assert.Equal(t, httperr.KindUnauthorized, te.Kind)

	err = svc.Delete(context.Background(), session.Context{}, 1)
	require.ErrorAs(t, err, &te)
	assert.Equal(t, httperr.KindUnauthorized, te.Kind)

	// same for a verified address with no account behind it
	_, err = svc.Get(context.Background(), session.Context{Email: "ghost@example.com"}, 1)
	require.ErrorAs(t, err, &te)
	assert.Equal(t, httperr.KindUnauthorized, te.Kind)
}

func TestGetOwnershipMatrix(t *testing.T) {
	alice := &entity.User{ID: 1, Email: "alice@example.com"}
	bob := &entity.User{ID: 2, Email: "bob@example.com"}
	admin := &entity.User{ID: 3, Email: "admin@example.com", IsAdmin: true}
	svc, _ := newTestService(newFakeStore(alice, bob, admin))

	// self
	u, err := svc.Get(context.Background(), asMember(alice), 1)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", u.Email)

	// someone else's record
	_, err = svc.Get(context.Background(), asMember(alice), 2)
	var te *httperr.Error
	require.ErrorAs(t, err, &te)
	assert.Equal(t, httperr.KindForbidden, te.Kind)

	// administrator bypass applies to user records
	_, err = svc.Get(context.Background(), asMember(admin), 2)
	assert.NoError(t, err)

	// missing record for an administrator
	_, err = svc.Get(context.Background(), asMember(admin), 99)
	require.ErrorAs(t, err, &te)
	assert.Equal(t, httperr.KindNotFound, te.Kind)
}

func TestListAccessMatrix(t *testing.T) {
	member := &entity.User{ID: 1, Email: "m@example.com"}
	admin := &entity.User{ID: 2, Email: "a@example.com", IsAdmin: true}
	svc, _ := newTestService(newFakeStore(member, admin))

	_, err := svc.List(context.Background(), session.Context{})
	var te *httperr.Error
	require.ErrorAs(t, err, &te)
	assert.Equal(t, httperr.KindUnauthorized, te.Kind)

	_, err = svc.List(context.Background(), asMember(member))
	require.ErrorAs(t, err, &te)
	assert.Equal(t, httperr.KindForbidden, te.Kind)

	users, err := svc.List(context.Background(), asMember(admin))
	require.NoError(t, err)
	assert.Len(t, users, 2)
}

func TestUpdateEscalationRunsBeforeLookup(t *testing.T) {
	member := &entity.User{ID: 1, Email: "m@example.com"}
	store := newFakeStore(member)
	svc, _ := newTestService(store)

	// even an explicit false trips the guard, and a missing target still
	// yields Unauthorized, never NotFound
	_, err := svc.Update(context.Background(), asMember(member), 99, UpdateParams{
		IsAdmin: boolPtr(false),
	})
	var te *httperr.Error
	require.ErrorAs(t, err, &te)
	assert.Equal(t, httperr.KindUnauthorized, te.Kind)
	assert.Zero(t, store.gets)
	assert.False(t, store.users[1].IsAdmin)
}

func TestUpdateSelf(t *testing.T) {
	member := &entity.User{ID: 1, Email: "m@example.com", SendNotifications: true}
	store := newFakeStore(member)
	svc, _ := newTestService(store)

	u, err := svc.Update(context.Background(), asMember(member), 1, UpdateParams{
		Name:              strPtr("Maya"),
		SendNotifications: boolPtr(false),
	})
	require.NoError(t, err)
	assert.Equal(t, "Maya", u.Name)
	assert.False(t, u.SendNotifications)
}

func TestUpdateOtherByAdministrator(t *testing.T) {
	member := &entity.User{ID: 1, Name: "Maya", Email: "m@example.com", SendNotifications: true}
	admin := &entity.User{ID: 2, Email: "a@example.com", IsAdmin: true}
	store := newFakeStore(member, admin)
	svc, _ := newTestService(store)

	u, err := svc.Update(context.Background(), asMember(admin), 1, UpdateParams{
		Name:              strPtr("Renamed"),
		Email:             strPtr("new@example.com"),
		IsAdmin:           boolPtr(true),
		SendNotifications: boolPtr(false),
	})
	require.NoError(t, err)
	// only email and the administrator flag apply to someone else's record
	assert.Equal(t, "Maya", u.Name)
	assert.True(t, u.SendNotifications)
	assert.Equal(t, "new@example.com", u.Email)
	assert.True(t, u.IsAdmin)
}

func TestUpdateOtherByMemberForbidden(t *testing.T) {
	alice := &entity.User{ID: 1, Email: "alice@example.com"}
	bob := &entity.User{ID: 2, Email: "bob@example.com"}
	svc, _ := newTestService(newFakeStore(alice, bob))

	_, err := svc.Update(context.Background(), asMember(alice), 2, UpdateParams{
		Name: strPtr("Hijacked"),
	})
	var te *httperr.Error
	require.ErrorAs(t, err, &te)
	assert.Equal(t, httperr.KindForbidden, te.Kind)
}

func TestUpdateDuplicateEmail(t *testing.T) {
	member := &entity.User{ID: 1, Email: "m@example.com"}
	store := newFakeStore(member)
	store.dupEmail = "taken@example.com"
	svc, _ := newTestService(store)

	_, err := svc.Update(context.Background(), asMember(member), 1, UpdateParams{
		Email: strPtr("taken@example.com"),
	})
	var te *httperr.Error
	require.ErrorAs(t, err, &te)
	assert.Equal(t, httperr.KindConflict, te.Kind)
}

func TestDelete(t *testing.T) {
	alice := &entity.User{ID: 1, Email: "alice@example.com"}
	bob := &entity.User{ID: 2, Email: "bob@example.com"}
	admin := &entity.User{ID: 3, Email: "admin@example.com", IsAdmin: true}
	store := newFakeStore(alice, bob, admin)
	svc, _ := newTestService(store)

	var te *httperr.Error
	err := svc.Delete(context.Background(), asMember(alice), 2)
	require.ErrorAs(t, err, &te)
	assert.Equal(t, httperr.KindForbidden, te.Kind)

	require.NoError(t, svc.Delete(context.Background(), asMember(alice), 1))
	assert.NotContains(t, store.users, int64(1))

	require.NoError(t, svc.Delete(context.Background(), asMember(admin), 2))
	assert.NotContains(t, store.users, int64(2))

	err = svc.Delete(context.Background(), asMember(admin), 99)
	require.ErrorAs(t, err, &te)
	assert.Equal(t, httperr.KindNotFound, te.Kind)
}
