package model

import (
	"time"

	"github.com/ojodaltonico/bot-moderador/internal/domain/enums"
)

type Message struct {
	ID      int64             `json:"id"`
	UserID  int64             `json:"user_id"`
	ChatID  string            `json:"chat_id"`
	IsGroup bool              `json:"is_group"`
	Type    enums.MessageType `json:"type"`

	// Content holds text for text messages; MediaKey holds the stored object
	// key for image messages. The two are mutually exclusive by type.
	Content  string `json:"content"`
	MediaKey string `json:"media_key"`

	// PlatformKey and SenderSession are opaque platform identifiers kept so a
	// later decision can delete the message or remove the member.
	PlatformKey   string `json:"platform_key"`
	SenderSession string `json:"sender_session"`

	Flagged   bool      `json:"flagged"`
	Deleted   bool      `json:"deleted"`
	CreatedAt time.Time `json:"created_at"`
}
