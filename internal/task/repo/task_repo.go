package repo

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/eisengrid/service-api-go/internal/task/entity"
)

// TaskRepo provides data access for the tasks table. Reads exclude
// tombstoned rows unless the method says otherwise.
type TaskRepo struct {
	db *sqlx.DB
}

func NewTaskRepo(db *sqlx.DB) *TaskRepo { return &TaskRepo{db: db} }

func (r *TaskRepo) EnsureTable(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS tasks (
  id BIGSERIAL PRIMARY KEY,
  description TEXT NOT NULL,
  state TEXT NOT NULL DEFAULT 'incomplete',
  coord_x DOUBLE PRECISION,
  coord_y DOUBLE PRECISION,
  due_date TIMESTAMPTZ,
  user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
  topic_id BIGINT REFERENCES topics(id) ON DELETE CASCADE,
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  deleted_at TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS idx_tasks_user_id ON tasks (user_id);
CREATE INDEX IF NOT EXISTS idx_tasks_topic_id ON tasks (topic_id);
`
	_, err := r.db.ExecContext(ctx, ddl)
	return err
}

const taskColumns = `id, description, state, coord_x, coord_y, due_date,
	user_id, topic_id, created_at, updated_at, deleted_at`

func (r *TaskRepo) Create(ctx context.Context, t *entity.Task) (int64, error) {
	const q = `INSERT INTO tasks (description, state, coord_x, coord_y, due_date, user_id, topic_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`
	var id int64
	if err := r.db.QueryRowxContext(ctx, q, t.Description, t.State, t.CoordX, t.CoordY, t.DueDate, t.UserID, t.TopicID).Scan(&id); err != nil {
		return 0, err
	}
	t.ID = id
	return id, nil
}

// GetByID returns a live task or sql.ErrNoRows.
func (r *TaskRepo) GetByID(ctx context.Context, id int64) (*entity.Task, error) {
	const q = `SELECT ` + taskColumns + ` FROM tasks WHERE id=$1 AND deleted_at IS NULL`
	var row entity.Task
	if err := r.db.GetContext(ctx, &row, q, id); err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *TaskRepo) ListByUser(ctx context.Context, userID int64) ([]entity.Task, error) {
	const q = `SELECT ` + taskColumns + ` FROM tasks WHERE user_id=$1 AND deleted_at IS NULL ORDER BY id`
	tasks := []entity.Task{}
	if err := r.db.SelectContext(ctx, &tasks, q, userID); err != nil {
		return nil, err
	}
	return tasks, nil
}

func (r *TaskRepo) ListByTopic(ctx context.Context, topicID int64) ([]entity.Task, error) {
	const q = `SELECT ` + taskColumns + ` FROM tasks WHERE topic_id=$1 AND deleted_at IS NULL ORDER BY id`
	tasks := []entity.Task{}
	if err := r.db.SelectContext(ctx, &tasks, q, topicID); err != nil {
		return nil, err
	}
	return tasks, nil
}

// ListTrashByUser returns only tombstoned tasks, optionally filtered by
// topic. The trash view intentionally shows historical data unclamped.
func (r *TaskRepo) ListTrashByUser(ctx context.Context, userID int64, topicID *int64) ([]entity.Task, error) {
	tasks := []entity.Task{}
	if topicID != nil {
		const q = `SELECT ` + taskColumns + ` FROM tasks
			WHERE user_id=$1 AND topic_id=$2 AND deleted_at IS NOT NULL ORDER BY id`
		if err := r.db.SelectContext(ctx, &tasks, q, userID, *topicID); err != nil {
			return nil, err
		}
		return tasks, nil
	}
	const q = `SELECT ` + taskColumns + ` FROM tasks WHERE user_id=$1 AND deleted_at IS NOT NULL ORDER BY id`
	if err := r.db.SelectContext(ctx, &tasks, q, userID); err != nil {
		return nil, err
	}
	return tasks, nil
}

func (r *TaskRepo) Update(ctx context.Context, t *entity.Task) error {
	const q = `UPDATE tasks SET description=$2, state=$3, coord_x=$4, coord_y=$5,
		due_date=$6, topic_id=$7, updated_at=NOW() WHERE id=$1 AND deleted_at IS NULL`
	_, err := r.db.ExecContext(ctx, q, t.ID, t.Description, t.State, t.CoordX, t.CoordY, t.DueDate, t.TopicID)
	return err
}

// SoftDelete sets the tombstone rather than removing the row.
func (r *TaskRepo) SoftDelete(ctx context.Context, id int64) error {
	const q = `UPDATE tasks SET deleted_at=NOW(), updated_at=NOW() WHERE id=$1 AND deleted_at IS NULL`
	_, err := r.db.ExecContext(ctx, q, id)
	return err
}
