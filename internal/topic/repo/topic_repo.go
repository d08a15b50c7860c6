package repo

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/eisengrid/service-api-go/internal/topic/entity"
)

// TopicRepo provides data access for the topics table. Reads exclude
// tombstoned rows unless the method says otherwise.
type TopicRepo struct {
	db *sqlx.DB
}

func NewTopicRepo(db *sqlx.DB) *TopicRepo { return &TopicRepo{db: db} }

func (r *TopicRepo) EnsureTable(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS topics (
  id BIGSERIAL PRIMARY KEY,
  name VARCHAR(70),
  description TEXT,
  user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  deleted_at TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS idx_topics_user_id ON topics (user_id);
`
	_, err := r.db.ExecContext(ctx, ddl)
	return err
}

const topicColumns = `id, name, description, user_id, created_at, updated_at, deleted_at`

func (r *TopicRepo) Create(ctx context.Context, t *entity.Topic) (int64, error) {
	const q = `INSERT INTO topics (name, description, user_id) VALUES ($1, $2, $3) RETURNING id`
	var id int64
	if err := r.db.QueryRowxContext(ctx, q, t.Name, t.Description, t.UserID).Scan(&id); err != nil {
		return 0, err
	}
	t.ID = id
	return id, nil
}

// GetByID returns a live topic or sql.ErrNoRows.
func (r *TopicRepo) GetByID(ctx context.Context, id int64) (*entity.Topic, error) {
	const q = `SELECT ` + topicColumns + ` FROM topics WHERE id=$1 AND deleted_at IS NULL`
	var row entity.Topic
	if err := r.db.GetContext(ctx, &row, q, id); err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *TopicRepo) ListByUser(ctx context.Context, userID int64) ([]entity.Topic, error) {
	const q = `SELECT ` + topicColumns + ` FROM topics WHERE user_id=$1 AND deleted_at IS NULL ORDER BY id`
	topics := []entity.Topic{}
	if err := r.db.SelectContext(ctx, &topics, q, userID); err != nil {
		return nil, err
	}
	return topics, nil
}

// ListTrashByUser returns only tombstoned topics.
func (r *TopicRepo) ListTrashByUser(ctx context.Context, userID int64) ([]entity.Topic, error) {
	const q = `SELECT ` + topicColumns + ` FROM topics WHERE user_id=$1 AND deleted_at IS NOT NULL ORDER BY id`
	topics := []entity.Topic{}
	if err := r.db.SelectContext(ctx, &topics, q, userID); err != nil {
		return nil, err
	}
	return topics, nil
}

func (r *TopicRepo) Update(ctx context.Context, t *entity.Topic) error {
	const q = `UPDATE topics SET name=$2, description=$3, updated_at=NOW() WHERE id=$1 AND deleted_at IS NULL`
	_, err := r.db.ExecContext(ctx, q, t.ID, t.Name, t.Description)
	return err
}

// SoftDelete tombstones the topic and its live tasks together.
func (r *TopicRepo) SoftDelete(ctx context.Context, id int64) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := tx.ExecContext(ctx, `UPDATE topics SET deleted_at=NOW(), updated_at=NOW() WHERE id=$1 AND deleted_at IS NULL`, id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `UPDATE tasks SET deleted_at=NOW(), updated_at=NOW() WHERE topic_id=$1 AND deleted_at IS NULL`, id); err != nil {
		return err
	}
	return tx.Commit()
}
