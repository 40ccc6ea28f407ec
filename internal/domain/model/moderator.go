package model

import "time"

// Moderator is a capability record, not a user: a phone is a moderator iff an
// active record matches it by phone or by bound session identifier.
type Moderator struct {
	ID        int64     `json:"id"`
	Phone     string    `json:"phone"`
	SessionID *string   `json:"session_id"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}
