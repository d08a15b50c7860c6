package entity

import "time"

// Topic is a named or unnamed grouping of tasks owned by one user. Deletes
// are tombstones: DeletedAt is set instead of removing the row.
type Topic struct {
	ID          int64      `db:"id" json:"id"`
	Name        *string    `db:"name" json:"name"`
	Description *string    `db:"description" json:"description"`
	UserID      int64      `db:"user_id" json:"userId"`
	CreatedAt   time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updatedAt"`
	DeletedAt   *time.Time `db:"deleted_at" json:"deletedAt,omitempty"`
}
