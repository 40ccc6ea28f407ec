package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ojodaltonico/bot-moderador/internal/domain/enums"
	"github.com/ojodaltonico/bot-moderador/internal/domain/faults"
	"github.com/ojodaltonico/bot-moderador/internal/domain/model"
	"github.com/ojodaltonico/bot-moderador/internal/services/strikes"
)

// LedgerStore backs the strike ledger. Discipline mutations and their audit
// entries commit in one transaction; a strike without its log entry (or the
// reverse) can never be observed.
type LedgerStore struct {
	pool *pgxpool.Pool
}

func NewLedgerStore(pool *pgxpool.Pool) *LedgerStore {
	return &LedgerStore{pool: pool}
}

func (s *LedgerStore) WithinTx(ctx context.Context, fn func(strikes.LedgerTx) error) error {
	if s.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}
	return withTx(ctx, s.pool, func(ctx context.Context, tx pgx.Tx) error {
		return fn(&ledgerTx{tx: tx})
	})
}

type ledgerTx struct {
	tx pgx.Tx
}

// UserForUpdate locks the user row for the duration of the transaction so
// concurrent discipline mutations serialize.
func (t *ledgerTx) UserForUpdate(ctx context.Context, userID int64) (model.User, error) {
	u, err := scanUser(t.tx.QueryRow(ctx, `
SELECT `+userColumns+`
FROM users
WHERE id = $1
FOR UPDATE
`, userID))
	if err != nil {
		if errors.Is(err, faults.ErrNotFound) {
			return model.User{}, faults.ErrNotFound
		}
		return model.User{}, fmt.Errorf("lock user row: %w", err)
	}
	return u, nil
}

func (t *ledgerTx) SetDiscipline(ctx context.Context, userID int64, strikesCount int, status enums.UserStatus) error {
	tag, err := t.tx.Exec(ctx, `
UPDATE users
SET strikes = $2, status = $3
WHERE id = $1
`, userID, strikesCount, status)
	if err != nil {
		return fmt.Errorf("update user discipline: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return faults.ErrNotFound
	}
	return nil
}

func (t *ledgerTx) AppendAction(ctx context.Context, p strikes.ActionParams) (model.UserAction, error) {
	var a model.UserAction
	err := t.tx.QueryRow(ctx, `
INSERT INTO user_actions (user_id, case_id, kind, note, moderator_id, created_at)
VALUES ($1, $2, $3, $4, $5, NOW())
RETURNING id, user_id, case_id, kind, COALESCE(note, ''), moderator_id, created_at
`, p.UserID, p.CaseID, p.Kind, p.Note, p.ModeratorID).Scan(
		&a.ID, &a.UserID, &a.CaseID, &a.Kind, &a.Note, &a.ModeratorID, &a.CreatedAt,
	)
	if err != nil {
		return model.UserAction{}, fmt.Errorf("append user action: %w", err)
	}
	return a, nil
}
