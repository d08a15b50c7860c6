package entity

import "time"

// Lifecycle states for a task.
const (
	StateIncomplete = "incomplete"
	StateComplete   = "complete"
)

// Bounds of the priority plane on both axes.
const (
	CoordMin = -100.0
	CoordMax = 100.0
)

// Task is a unit of work positioned on the priority plane. Coordinates are
// optional: an unplotted task has nil CoordX/CoordY. Deletes are tombstones.
type Task struct {
	ID          int64      `db:"id" json:"id"`
	Description string     `db:"description" json:"description"`
	State       string     `db:"state" json:"state"`
	CoordX      *float64   `db:"coord_x" json:"coordX"`
	CoordY      *float64   `db:"coord_y" json:"coordY"`
	DueDate     *time.Time `db:"due_date" json:"dueDate"`
	UserID      int64      `db:"user_id" json:"userId"`
	TopicID     *int64     `db:"topic_id" json:"topicId"`
	CreatedAt   time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updatedAt"`
	DeletedAt   *time.Time `db:"deleted_at" json:"deletedAt,omitempty"`
}

// ValidState reports whether s is a recognised lifecycle state.
func ValidState(s string) bool {
	return s == StateIncomplete || s == StateComplete
}

// InBounds reports whether a coordinate value lies on the plane.
func InBounds(v float64) bool {
	return v >= CoordMin && v <= CoordMax
}
