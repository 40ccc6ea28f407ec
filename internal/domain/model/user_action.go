package model

import (
	"time"

	"github.com/ojodaltonico/bot-moderador/internal/domain/enums"
)

// UserAction is an append-only audit entry. Rows are never updated or
// deleted; the log is the sole source of truth for a user's history.
type UserAction struct {
	ID          int64            `json:"id"`
	UserID      int64            `json:"user_id"`
	CaseID      *int64           `json:"case_id"`
	Kind        enums.ActionKind `json:"kind"`
	Note        string           `json:"note"`
	ModeratorID string           `json:"moderator_id"`
	CreatedAt   time.Time        `json:"created_at"`
}
