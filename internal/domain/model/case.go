package model

import (
	"time"

	"github.com/ojodaltonico/bot-moderador/internal/domain/enums"
)

type Case struct {
	ID       int64            `json:"id"`
	Type     enums.CaseType   `json:"type"`
	Status   enums.CaseStatus `json:"status"`
	Priority int              `json:"priority"`

	MessageID  int64   `json:"message_id"`
	AssignedTo *string `json:"assigned_to"`

	Resolution *string `json:"resolution"`
	ResolvedBy *string `json:"resolved_by"`

	// Note is the moderator's resolution note, except on appeal cases where
	// it holds the user's written appeal text. A pending appeal with a nil
	// note has not received its explanation yet and stays out of the queue.
	Note *string `json:"note"`

	CreatedAt  time.Time  `json:"created_at"`
	ResolvedAt *time.Time `json:"resolved_at"`
}
