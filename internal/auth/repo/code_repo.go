package repo

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
)

// LoginCode is a pending email-ownership proof. Only the bcrypt hash of
// the code is stored; one pending code per address.
type LoginCode struct {
	Email     string    `db:"email"`
	CodeHash  string    `db:"code_hash"`
	ExpiresAt time.Time `db:"expires_at"`
}

type CodeRepo struct {
	db *sqlx.DB
}

func NewCodeRepo(db *sqlx.DB) *CodeRepo { return &CodeRepo{db: db} }

func (r *CodeRepo) EnsureTable(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS login_codes (
  email TEXT PRIMARY KEY,
  code_hash TEXT NOT NULL,
  expires_at TIMESTAMPTZ NOT NULL
);
`
	_, err := r.db.ExecContext(ctx, ddl)
	return err
}

// Save upserts the pending code for an address, replacing any prior one.
func (r *CodeRepo) Save(ctx context.Context, c *LoginCode) error {
	const q = `INSERT INTO login_codes (email, code_hash, expires_at) VALUES ($1, $2, $3)
		ON CONFLICT (email) DO UPDATE SET code_hash=EXCLUDED.code_hash, expires_at=EXCLUDED.expires_at`
	_, err := r.db.ExecContext(ctx, q, c.Email, c.CodeHash, c.ExpiresAt)
	return err
}

// Get returns the pending code for an address or sql.ErrNoRows.
func (r *CodeRepo) Get(ctx context.Context, email string) (*LoginCode, error) {
	const q = `SELECT email, code_hash, expires_at FROM login_codes WHERE email=$1`
	var row LoginCode
	if err := r.db.GetContext(ctx, &row, q, email); err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *CodeRepo) Delete(ctx context.Context, email string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM login_codes WHERE email=$1`, email)
	return err
}
