package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ojodaltonico/bot-moderador/internal/domain/enums"
	"github.com/ojodaltonico/bot-moderador/internal/domain/faults"
	"github.com/ojodaltonico/bot-moderador/internal/domain/model"
)

type MessageRepo struct {
	pool *pgxpool.Pool
}

type CreateMessageParams struct {
	UserID        int64
	ChatID        string
	IsGroup       bool
	Type          enums.MessageType
	Content       string
	MediaKey      string
	PlatformKey   string
	SenderSession string
}

func NewMessageRepo(pool *pgxpool.Pool) *MessageRepo {
	return &MessageRepo{pool: pool}
}

const messageColumns = `id, user_id, chat_id, is_group, type, COALESCE(content, ''), COALESCE(media_key, ''),
	COALESCE(platform_key, ''), COALESCE(sender_session, ''), flagged, deleted, created_at`

func scanMessage(row pgx.Row) (model.Message, error) {
	var m model.Message
	err := row.Scan(
		&m.ID, &m.UserID, &m.ChatID, &m.IsGroup, &m.Type, &m.Content, &m.MediaKey,
		&m.PlatformKey, &m.SenderSession, &m.Flagged, &m.Deleted, &m.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Message{}, faults.ErrNotFound
		}
		return model.Message{}, fmt.Errorf("scan message: %w", err)
	}
	return m, nil
}

func (r *MessageRepo) Create(ctx context.Context, p CreateMessageParams) (model.Message, error) {
	if r.pool == nil {
		return model.Message{}, fmt.Errorf("postgres pool is nil")
	}
	if p.UserID <= 0 {
		return model.Message{}, fmt.Errorf("invalid message payload")
	}

	return scanMessage(r.pool.QueryRow(ctx, `
INSERT INTO messages (
	user_id, chat_id, is_group, type, content, media_key,
	platform_key, sender_session, flagged, deleted, created_at
) VALUES ($1, $2, $3, $4, NULLIF($5, ''), NULLIF($6, ''), NULLIF($7, ''), NULLIF($8, ''), FALSE, FALSE, NOW())
RETURNING `+messageColumns,
		p.UserID, strings.TrimSpace(p.ChatID), p.IsGroup, p.Type,
		p.Content, strings.TrimSpace(p.MediaKey),
		strings.TrimSpace(p.PlatformKey), strings.TrimSpace(p.SenderSession)))
}

func (r *MessageRepo) GetByID(ctx context.Context, messageID int64) (model.Message, error) {
	if r.pool == nil {
		return model.Message{}, fmt.Errorf("postgres pool is nil")
	}
	if messageID <= 0 {
		return model.Message{}, faults.ErrNotFound
	}

	return scanMessage(r.pool.QueryRow(ctx, `
SELECT `+messageColumns+`
FROM messages
WHERE id = $1
`, messageID))
}

func (r *MessageRepo) MarkFlagged(ctx context.Context, messageID int64) error {
	return r.setFlag(ctx, messageID, "flagged")
}

func (r *MessageRepo) MarkDeleted(ctx context.Context, messageID int64) error {
	return r.setFlag(ctx, messageID, "deleted")
}

func (r *MessageRepo) setFlag(ctx context.Context, messageID int64, column string) error {
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}
	if messageID <= 0 {
		return faults.ErrNotFound
	}

	tag, err := r.pool.Exec(ctx, `
UPDATE messages
SET `+column+` = TRUE
WHERE id = $1
`, messageID)
	if err != nil {
		return fmt.Errorf("mark message %s: %w", column, err)
	}
	if tag.RowsAffected() == 0 {
		return faults.ErrNotFound
	}
	return nil
}
