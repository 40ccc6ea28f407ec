package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ojodaltonico/bot-moderador/internal/domain/enums"
	"github.com/ojodaltonico/bot-moderador/internal/domain/faults"
	"github.com/ojodaltonico/bot-moderador/internal/domain/model"
)

type CaseRepo struct {
	pool *pgxpool.Pool
}

type CreateCaseParams struct {
	Type      enums.CaseType
	Priority  int
	MessageID int64
	// Note pre-fills the appeal text on direct appeals; nil for everything else.
	Note *string
}

type ExpiredAppeal struct {
	CaseID int64
	UserID int64
	Phone  string
}

func NewCaseRepo(pool *pgxpool.Pool) *CaseRepo {
	return &CaseRepo{pool: pool}
}

const caseColumns = `id, type, status, priority, message_id, assigned_to, resolution, resolved_by, note, created_at, resolved_at`

// queueOrder collapses the queue's partial order into a total one: appeals
// before anything else, then ascending priority, then creation time, with id
// as the deterministic last key.
const queueOrder = `ORDER BY (type = 'appeal') DESC, priority ASC, created_at ASC, id ASC`

// queueEligible excludes appeal cases still waiting for the user's text.
const queueEligible = `status = 'pending' AND NOT (type = 'appeal' AND note IS NULL)`

func scanCase(row pgx.Row) (model.Case, error) {
	var c model.Case
	err := row.Scan(
		&c.ID, &c.Type, &c.Status, &c.Priority, &c.MessageID,
		&c.AssignedTo, &c.Resolution, &c.ResolvedBy, &c.Note,
		&c.CreatedAt, &c.ResolvedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Case{}, faults.ErrNotFound
		}
		return model.Case{}, fmt.Errorf("scan case: %w", err)
	}
	return c, nil
}

func (r *CaseRepo) Create(ctx context.Context, p CreateCaseParams) (model.Case, error) {
	if r.pool == nil {
		return model.Case{}, fmt.Errorf("postgres pool is nil")
	}
	if p.MessageID <= 0 {
		return model.Case{}, fmt.Errorf("invalid case payload")
	}

	return scanCase(r.pool.QueryRow(ctx, `
INSERT INTO cases (type, status, priority, message_id, note, created_at)
VALUES ($1, 'pending', $2, $3, $4, NOW())
RETURNING `+caseColumns, p.Type, p.Priority, p.MessageID, p.Note))
}

func (r *CaseRepo) GetByID(ctx context.Context, caseID int64) (model.Case, error) {
	if r.pool == nil {
		return model.Case{}, fmt.Errorf("postgres pool is nil")
	}
	if caseID <= 0 {
		return model.Case{}, faults.ErrNotFound
	}

	return scanCase(r.pool.QueryRow(ctx, `
SELECT `+caseColumns+`
FROM cases
WHERE id = $1
`, caseID))
}

// NextPending peeks at the head of the queue without claiming it.
func (r *CaseRepo) NextPending(ctx context.Context) (model.Case, error) {
	if r.pool == nil {
		return model.Case{}, fmt.Errorf("postgres pool is nil")
	}

	return scanCase(r.pool.QueryRow(ctx, `
SELECT `+caseColumns+`
FROM cases
WHERE `+queueEligible+`
`+queueOrder+`
LIMIT 1
`))
}

// Assign claims a pending case for a moderator with an optimistic update.
// When the affected-row count is zero the case either vanished, was already
// claimed by a faster moderator, or is not claimable in its current status.
func (r *CaseRepo) Assign(ctx context.Context, caseID int64, moderatorID string) (model.Case, error) {
	if r.pool == nil {
		return model.Case{}, fmt.Errorf("postgres pool is nil")
	}
	moderatorID = strings.TrimSpace(moderatorID)
	if caseID <= 0 || moderatorID == "" {
		return model.Case{}, fmt.Errorf("invalid assign payload")
	}

	c, err := scanCase(r.pool.QueryRow(ctx, `
UPDATE cases
SET status = 'in_review', assigned_to = $2
WHERE id = $1 AND status = 'pending'
RETURNING `+caseColumns, caseID, moderatorID))
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, faults.ErrNotFound) {
		return model.Case{}, err
	}

	current, getErr := r.GetByID(ctx, caseID)
	if getErr != nil {
		return model.Case{}, getErr
	}
	if current.Status == enums.CaseStatusInReview {
		return model.Case{}, faults.ErrConflict
	}
	return model.Case{}, faults.ErrInvalidState
}

// Resolve finalizes an in-review case held by the given moderator. The
// status and assignee predicates repeat the caller's guard so a racing
// mutation between check and update surfaces as ErrConflict.
func (r *CaseRepo) Resolve(ctx context.Context, caseID int64, resolution, resolverID string, note *string) (model.Case, error) {
	if r.pool == nil {
		return model.Case{}, fmt.Errorf("postgres pool is nil")
	}
	resolverID = strings.TrimSpace(resolverID)
	if caseID <= 0 || strings.TrimSpace(resolution) == "" || resolverID == "" {
		return model.Case{}, fmt.Errorf("invalid resolve payload")
	}

	c, err := scanCase(r.pool.QueryRow(ctx, `
UPDATE cases
SET status = 'resolved', resolution = $2, resolved_by = $3, note = COALESCE($4, note), resolved_at = NOW()
WHERE id = $1 AND status = 'in_review' AND assigned_to = $3
RETURNING `+caseColumns, caseID, resolution, resolverID, note))
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, faults.ErrNotFound) {
		return model.Case{}, err
	}

	if _, getErr := r.GetByID(ctx, caseID); getErr != nil {
		return model.Case{}, getErr
	}
	return model.Case{}, faults.ErrConflict
}

func (r *CaseRepo) FindInReviewByModerator(ctx context.Context, moderatorID string) (model.Case, error) {
	if r.pool == nil {
		return model.Case{}, fmt.Errorf("postgres pool is nil")
	}

	return scanCase(r.pool.QueryRow(ctx, `
SELECT `+caseColumns+`
FROM cases
WHERE status = 'in_review' AND assigned_to = $1
ORDER BY id DESC
LIMIT 1
`, strings.TrimSpace(moderatorID)))
}

// FindOpenAppealByUser returns the most recent pending appeal still waiting
// for the user's explanation.
func (r *CaseRepo) FindOpenAppealByUser(ctx context.Context, userID int64) (model.Case, error) {
	if r.pool == nil {
		return model.Case{}, fmt.Errorf("postgres pool is nil")
	}

	return scanCase(r.pool.QueryRow(ctx, `
SELECT `+caseColumnsPrefixed("c")+`
FROM cases c
JOIN messages m ON m.id = c.message_id
WHERE m.user_id = $1 AND c.type = 'appeal' AND c.status = 'pending' AND c.note IS NULL
ORDER BY c.created_at DESC, c.id DESC
LIMIT 1
`, userID))
}

// SetAppealText attaches the submitted explanation to a waiting appeal case,
// making it queue-eligible. Fails when the case already has text or left the
// pending status.
func (r *CaseRepo) SetAppealText(ctx context.Context, caseID int64, text string) (model.Case, error) {
	if r.pool == nil {
		return model.Case{}, fmt.Errorf("postgres pool is nil")
	}
	text = strings.TrimSpace(text)
	if caseID <= 0 || text == "" {
		return model.Case{}, fmt.Errorf("invalid appeal text payload")
	}

	c, err := scanCase(r.pool.QueryRow(ctx, `
UPDATE cases
SET note = $2
WHERE id = $1 AND type = 'appeal' AND status = 'pending' AND note IS NULL
RETURNING `+caseColumns, caseID, text))
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, faults.ErrNotFound) {
		return model.Case{}, err
	}

	if _, getErr := r.GetByID(ctx, caseID); getErr != nil {
		return model.Case{}, getErr
	}
	return model.Case{}, faults.ErrInvalidState
}

// ExpireStaleAppeals closes note-less pending appeals older than the cutoff
// and reports who to notify.
func (r *CaseRepo) ExpireStaleAppeals(ctx context.Context, cutoff time.Time) ([]ExpiredAppeal, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}

	rows, err := r.pool.Query(ctx, `
UPDATE cases c
SET status = 'resolved', resolution = $2, resolved_by = 'system', resolved_at = NOW()
FROM messages m
JOIN users u ON u.id = m.user_id
WHERE c.message_id = m.id
  AND c.type = 'appeal' AND c.status = 'pending' AND c.note IS NULL
  AND c.created_at < $1
RETURNING c.id, u.id, u.phone
`, cutoff, enums.ResolutionExpired)
	if err != nil {
		return nil, fmt.Errorf("expire stale appeals: %w", err)
	}
	defer rows.Close()

	var expired []ExpiredAppeal
	for rows.Next() {
		var e ExpiredAppeal
		if err := rows.Scan(&e.CaseID, &e.UserID, &e.Phone); err != nil {
			return nil, fmt.Errorf("scan expired appeal: %w", err)
		}
		expired = append(expired, e)
	}
	return expired, rows.Err()
}

func (r *CaseRepo) CountPending(ctx context.Context) (int, error) {
	if r.pool == nil {
		return 0, fmt.Errorf("postgres pool is nil")
	}

	var count int
	if err := r.pool.QueryRow(ctx, `
SELECT COUNT(*)
FROM cases
WHERE `+queueEligible+`
`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count pending cases: %w", err)
	}
	return count, nil
}

// ListResolvedByUser returns a user's resolved cases, newest first, for the
// strike-history view presented when an appeal opens.
func (r *CaseRepo) ListResolvedByUser(ctx context.Context, userID int64, limit int) ([]model.Case, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}
	if limit <= 0 {
		limit = 5
	}

	rows, err := r.pool.Query(ctx, `
SELECT `+caseColumnsPrefixed("c")+`
FROM cases c
JOIN messages m ON m.id = c.message_id
WHERE m.user_id = $1 AND c.status = 'resolved' AND c.type <> 'appeal'
ORDER BY c.resolved_at DESC, c.id DESC
LIMIT $2
`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list resolved cases: %w", err)
	}
	defer rows.Close()

	var cases []model.Case
	for rows.Next() {
		c, err := scanCase(rows)
		if err != nil {
			return nil, err
		}
		cases = append(cases, c)
	}
	return cases, rows.Err()
}

func caseColumnsPrefixed(alias string) string {
	cols := strings.Split(caseColumns, ", ")
	for i, col := range cols {
		cols[i] = alias + "." + col
	}
	return strings.Join(cols, ", ")
}
