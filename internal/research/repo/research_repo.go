package repo

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx"
)

// Record is one observed write, keyed by a sortable KSUID. The user is
// stored as an email hash, never the address itself.
type Record struct {
	ID        string          `db:"id"`
	Model     string          `db:"model"`
	Action    string          `db:"action"`
	UserHash  string          `db:"user_hash"`
	Payload   json.RawMessage `db:"payload"`
	CreatedAt time.Time       `db:"created_at"`
}

type ResearchRepo struct {
	db *sqlx.DB
}

func NewResearchRepo(db *sqlx.DB) *ResearchRepo { return &ResearchRepo{db: db} }

func (r *ResearchRepo) EnsureTable(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS research_data (
  id VARCHAR(27) PRIMARY KEY,
  model TEXT NOT NULL,
  action TEXT NOT NULL,
  user_hash TEXT NOT NULL,
  payload JSONB NOT NULL DEFAULT '{}'::jsonb,
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_research_data_model ON research_data (model);
`
	_, err := r.db.ExecContext(ctx, ddl)
	return err
}

func (r *ResearchRepo) Insert(ctx context.Context, rec *Record) error {
	const q = `INSERT INTO research_data (id, model, action, user_hash, payload)
		VALUES ($1, $2, $3, $4, $5)`
	_, err := r.db.ExecContext(ctx, q, rec.ID, rec.Model, rec.Action, rec.UserHash, rec.Payload)
	return err
}
