package repo

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/eisengrid/service-api-go/internal/user/entity"
)

// UserRepo provides data access for the users table using sqlx.
type UserRepo struct {
	db *sqlx.DB
}

func NewUserRepo(db *sqlx.DB) *UserRepo { return &UserRepo{db: db} }

// EnsureTable creates the users table if not exists (idempotent).
// Prefer migrations in production; this mirrors the original sync-on-boot.
func (r *UserRepo) EnsureTable(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS users (
  id BIGSERIAL PRIMARY KEY,
  name VARCHAR(70) NOT NULL DEFAULT '',
  email TEXT NOT NULL,
  is_admin BOOLEAN NOT NULL DEFAULT false,
  send_notifications BOOLEAN NOT NULL DEFAULT true,
  research_participant BOOLEAN NOT NULL DEFAULT true,
  last_login TIMESTAMPTZ,
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_users_email_lower ON users (LOWER(email));
`
	_, err := r.db.ExecContext(ctx, ddl)
	return err
}

const userColumns = `id, name, email, is_admin, send_notifications, research_participant,
	last_login, created_at, updated_at`

// Create inserts a new user row and returns its id. A duplicate email
// surfaces as a pq unique violation for the service to map.
func (r *UserRepo) Create(ctx context.Context, u *entity.User) (int64, error) {
	const q = `INSERT INTO users (name, email, is_admin, send_notifications, research_participant)
		VALUES ($1, $2, $3, $4, $5) RETURNING id`
	var id int64
	if err := r.db.QueryRowxContext(ctx, q, u.Name, u.Email, u.IsAdmin, u.SendNotifications, u.ResearchParticipant).Scan(&id); err != nil {
		return 0, err
	}
	u.ID = id
	return id, nil
}

// GetByID fetches a full user row or sql.ErrNoRows.
func (r *UserRepo) GetByID(ctx context.Context, id int64) (*entity.User, error) {
	const q = `SELECT ` + userColumns + ` FROM users WHERE id=$1`
	var row entity.User
	if err := r.db.GetContext(ctx, &row, q, id); err != nil {
		return nil, err
	}
	return &row, nil
}

// GetByEmail matches case-insensitively, or returns sql.ErrNoRows.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	const q = `SELECT ` + userColumns + ` FROM users WHERE LOWER(email)=LOWER($1)`
	var row entity.User
	if err := r.db.GetContext(ctx, &row, q, email); err != nil {
		return nil, err
	}
	return &row, nil
}

// List returns every user, oldest first.
func (r *UserRepo) List(ctx context.Context) ([]entity.User, error) {
	const q = `SELECT ` + userColumns + ` FROM users ORDER BY id`
	users := []entity.User{}
	if err := r.db.SelectContext(ctx, &users, q); err != nil {
		return nil, err
	}
	return users, nil
}

// ListNotifiable returns users who opted in to notifications.
func (r *UserRepo) ListNotifiable(ctx context.Context) ([]entity.User, error) {
	const q = `SELECT ` + userColumns + ` FROM users WHERE send_notifications ORDER BY id`
	users := []entity.User{}
	if err := r.db.SelectContext(ctx, &users, q); err != nil {
		return nil, err
	}
	return users, nil
}

// Update writes the mutable profile fields.
func (r *UserRepo) Update(ctx context.Context, u *entity.User) error {
	const q = `UPDATE users SET name=$2, email=$3, is_admin=$4, send_notifications=$5,
		research_participant=$6, updated_at=NOW() WHERE id=$1`
	_, err := r.db.ExecContext(ctx, q, u.ID, u.Name, u.Email, u.IsAdmin, u.SendNotifications, u.ResearchParticipant)
	return err
}

// TouchLastLogin stamps last_login on every resolved request.
func (r *UserRepo) TouchLastLogin(ctx context.Context, id int64) error {
	const q = `UPDATE users SET last_login=NOW() WHERE id=$1`
	_, err := r.db.ExecContext(ctx, q, id)
	return err
}

// Delete physically removes the user; owned topics and tasks cascade via
// their foreign keys.
func (r *UserRepo) Delete(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id=$1`, id)
	return err
}
