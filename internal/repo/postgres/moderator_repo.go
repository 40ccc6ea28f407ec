package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ojodaltonico/bot-moderador/internal/domain/faults"
	"github.com/ojodaltonico/bot-moderador/internal/domain/model"
)

type ModeratorRepo struct {
	pool *pgxpool.Pool
}

func NewModeratorRepo(pool *pgxpool.Pool) *ModeratorRepo {
	return &ModeratorRepo{pool: pool}
}

const moderatorColumns = `id, phone, session_id, active, created_at`

func scanModerator(row pgx.Row) (model.Moderator, error) {
	var m model.Moderator
	err := row.Scan(&m.ID, &m.Phone, &m.SessionID, &m.Active, &m.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Moderator{}, faults.ErrNotFound
		}
		return model.Moderator{}, fmt.Errorf("scan moderator: %w", err)
	}
	return m, nil
}

// FindActiveByHandle resolves any of the caller's equivalent handles (raw
// identifier, normalized phone, bound session id) in a single lookup. Any
// match wins; there is no precedence between handles.
func (r *ModeratorRepo) FindActiveByHandle(ctx context.Context, handles ...string) (model.Moderator, error) {
	if r.pool == nil {
		return model.Moderator{}, fmt.Errorf("postgres pool is nil")
	}

	cleaned := make([]string, 0, len(handles))
	for _, h := range handles {
		if h = strings.TrimSpace(h); h != "" {
			cleaned = append(cleaned, h)
		}
	}
	if len(cleaned) == 0 {
		return model.Moderator{}, faults.ErrNotFound
	}

	return scanModerator(r.pool.QueryRow(ctx, `
SELECT `+moderatorColumns+`
FROM moderators
WHERE active AND (phone = ANY($1) OR session_id = ANY($1))
LIMIT 1
`, cleaned))
}

func (r *ModeratorRepo) GetByPhone(ctx context.Context, phoneNumber string) (model.Moderator, error) {
	if r.pool == nil {
		return model.Moderator{}, fmt.Errorf("postgres pool is nil")
	}

	return scanModerator(r.pool.QueryRow(ctx, `
SELECT `+moderatorColumns+`
FROM moderators
WHERE phone = $1
`, strings.TrimSpace(phoneNumber)))
}

// Upsert creates a moderator or reactivates a soft-deleted one. Reactivation
// keeps a previously bound session id. The second return value reports
// whether a new record was created.
func (r *ModeratorRepo) Upsert(ctx context.Context, phoneNumber string) (model.Moderator, bool, error) {
	if r.pool == nil {
		return model.Moderator{}, false, fmt.Errorf("postgres pool is nil")
	}
	phoneNumber = strings.TrimSpace(phoneNumber)
	if phoneNumber == "" {
		return model.Moderator{}, false, fmt.Errorf("moderator phone is required")
	}

	var m model.Moderator
	var created bool
	err := r.pool.QueryRow(ctx, `
INSERT INTO moderators (phone, active, created_at)
VALUES ($1, TRUE, NOW())
ON CONFLICT (phone) DO UPDATE SET active = TRUE
RETURNING `+moderatorColumns+`, (xmax = 0)
`, phoneNumber).Scan(&m.ID, &m.Phone, &m.SessionID, &m.Active, &m.CreatedAt, &created)
	if err != nil {
		return model.Moderator{}, false, fmt.Errorf("upsert moderator: %w", err)
	}

	return m, created, nil
}

// Deactivate soft-deletes: the row and its history stay.
func (r *ModeratorRepo) Deactivate(ctx context.Context, phoneNumber string) error {
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}

	tag, err := r.pool.Exec(ctx, `
UPDATE moderators
SET active = FALSE
WHERE phone = $1
`, strings.TrimSpace(phoneNumber))
	if err != nil {
		return fmt.Errorf("deactivate moderator: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return faults.ErrNotFound
	}
	return nil
}

// BindSession sets the session id only when none is bound yet. First writer
// wins; a later call with a different value is a silent no-op.
func (r *ModeratorRepo) BindSession(ctx context.Context, phoneNumber, sessionID string) (bool, error) {
	if r.pool == nil {
		return false, fmt.Errorf("postgres pool is nil")
	}
	phoneNumber = strings.TrimSpace(phoneNumber)
	sessionID = strings.TrimSpace(sessionID)
	if phoneNumber == "" || sessionID == "" {
		return false, fmt.Errorf("phone and session id are required")
	}

	tag, err := r.pool.Exec(ctx, `
UPDATE moderators
SET session_id = $2
WHERE phone = $1 AND session_id IS NULL
`, phoneNumber, sessionID)
	if err != nil {
		return false, fmt.Errorf("bind moderator session: %w", err)
	}

	return tag.RowsAffected() == 1, nil
}

func (r *ModeratorRepo) List(ctx context.Context) ([]model.Moderator, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}

	rows, err := r.pool.Query(ctx, `
SELECT `+moderatorColumns+`
FROM moderators
ORDER BY id ASC
`)
	if err != nil {
		return nil, fmt.Errorf("list moderators: %w", err)
	}
	defer rows.Close()

	var mods []model.Moderator
	for rows.Next() {
		m, err := scanModerator(rows)
		if err != nil {
			return nil, err
		}
		mods = append(mods, m)
	}
	return mods, rows.Err()
}
