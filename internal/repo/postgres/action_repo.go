package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ojodaltonico/bot-moderador/internal/domain/model"
)

// ActionRepo is the read side of the audit log. Writes only happen inside
// ledger transactions; nothing ever updates or deletes a row here.
type ActionRepo struct {
	pool *pgxpool.Pool
}

func NewActionRepo(pool *pgxpool.Pool) *ActionRepo {
	return &ActionRepo{pool: pool}
}

const actionColumns = `id, user_id, case_id, kind, COALESCE(note, ''), moderator_id, created_at`

func scanAction(row pgx.Row) (model.UserAction, error) {
	var a model.UserAction
	err := row.Scan(&a.ID, &a.UserID, &a.CaseID, &a.Kind, &a.Note, &a.ModeratorID, &a.CreatedAt)
	if err != nil {
		return model.UserAction{}, fmt.Errorf("scan user action: %w", err)
	}
	return a, nil
}

func (r *ActionRepo) ListByUser(ctx context.Context, userID int64) ([]model.UserAction, error) {
	return r.list(ctx, `
SELECT `+actionColumns+`
FROM user_actions
WHERE user_id = $1
ORDER BY created_at DESC, id DESC
`, userID)
}

func (r *ActionRepo) ListByCase(ctx context.Context, caseID int64) ([]model.UserAction, error) {
	return r.list(ctx, `
SELECT `+actionColumns+`
FROM user_actions
WHERE case_id = $1
ORDER BY created_at ASC, id ASC
`, caseID)
}

// ListDisciplinaryByUser feeds the strike history shown when an appeal
// opens: warnings, strikes and bans only, newest first.
func (r *ActionRepo) ListDisciplinaryByUser(ctx context.Context, userID int64, limit int) ([]model.UserAction, error) {
	if limit <= 0 {
		limit = 5
	}
	return r.list(ctx, `
SELECT `+actionColumns+`
FROM user_actions
WHERE user_id = $1 AND kind IN ('warn', 'strike', 'ban')
ORDER BY created_at DESC, id DESC
LIMIT $2
`, userID, limit)
}

func (r *ActionRepo) list(ctx context.Context, query string, args ...any) ([]model.UserAction, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list user actions: %w", err)
	}
	defer rows.Close()

	var actions []model.UserAction
	for rows.Next() {
		a, err := scanAction(rows)
		if err != nil {
			return nil, err
		}
		actions = append(actions, a)
	}
	return actions, rows.Err()
}
