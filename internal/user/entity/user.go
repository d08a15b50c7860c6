package entity

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"
)

// User represents an account row in the `users` table. Identity is proven
// externally (verified email); there is no password column.
type User struct {
	ID                  int64      `db:"id"`
	Name                string     `db:"name"`
	Email               string     `db:"email"`
	IsAdmin             bool       `db:"is_admin"`
	SendNotifications   bool       `db:"send_notifications"`
	ResearchParticipant bool       `db:"research_participant"`
	LastLogin           *time.Time `db:"last_login"`
	CreatedAt           time.Time  `db:"created_at"`
	UpdatedAt           time.Time  `db:"updated_at"`
}

// EmailHash returns the md5 hex digest of the lowercased email, suitable
// for gravatar-style avatar lookups without exposing the address.
func (u *User) EmailHash() string {
	sum := md5.Sum([]byte(strings.ToLower(u.Email)))
	return hex.EncodeToString(sum[:])
}

func (u *User) MarshalJSON() ([]byte, error) {
	type alias struct {
		ID                  int64      `json:"id"`
		Name                string     `json:"name"`
		Email               string     `json:"email"`
		EmailHash           string     `json:"emailHash"`
		IsAdmin             bool       `json:"isAdmin"`
		SendNotifications   bool       `json:"sendNotifications"`
		ResearchParticipant bool       `json:"researchParticipant"`
		LastLogin           *time.Time `json:"lastLogin"`
		CreatedAt           time.Time  `json:"createdAt"`
		UpdatedAt           time.Time  `json:"updatedAt"`
	}
	return json.Marshal(alias{
		ID:                  u.ID,
		Name:                u.Name,
		Email:               u.Email,
		EmailHash:           u.EmailHash(),
		IsAdmin:             u.IsAdmin,
		SendNotifications:   u.SendNotifications,
		ResearchParticipant: u.ResearchParticipant,
		LastLogin:           u.LastLogin,
		CreatedAt:           u.CreatedAt,
		UpdatedAt:           u.UpdatedAt,
	})
}
