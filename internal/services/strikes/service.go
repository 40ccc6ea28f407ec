// Package strikes owns the per-user strike counter, the active/warned/banned
// status, and the append-only disciplinary log. Every mutation commits with
// its audit entry in one transaction.
package strikes

import (
	"context"
	"fmt"
	"strings"

	"github.com/ojodaltonico/bot-moderador/internal/domain/enums"
	"github.com/ojodaltonico/bot-moderador/internal/domain/model"
)

// Store opens a ledger transaction. The postgres implementation locks the
// user row, so concurrent mutations against one user serialize.
type Store interface {
	WithinTx(ctx context.Context, fn func(LedgerTx) error) error
}

type LedgerTx interface {
	UserForUpdate(ctx context.Context, userID int64) (model.User, error)
	SetDiscipline(ctx context.Context, userID int64, strikes int, status enums.UserStatus) error
	AppendAction(ctx context.Context, p ActionParams) (model.UserAction, error)
}

type ActionParams struct {
	UserID      int64
	CaseID      *int64
	Kind        enums.ActionKind
	Note        string
	ModeratorID string
}

// Result reports the user's discipline state after a mutation, for the
// caller to relay to the user.
type Result struct {
	Strikes int
	Status  enums.UserStatus
}

type Service struct {
	store        Store
	banThreshold int
}

func NewService(store Store, banThreshold int) *Service {
	if banThreshold <= 0 {
		banThreshold = 3
	}
	return &Service{store: store, banThreshold: banThreshold}
}

// RecordAction appends an audit entry with no discipline change.
func (s *Service) RecordAction(ctx context.Context, p ActionParams) (model.UserAction, error) {
	if err := s.check(p); err != nil {
		return model.UserAction{}, err
	}

	var action model.UserAction
	err := s.store.WithinTx(ctx, func(tx LedgerTx) error {
		if _, err := tx.UserForUpdate(ctx, p.UserID); err != nil {
			return err
		}
		var err error
		action, err = tx.AppendAction(ctx, p)
		return err
	})
	return action, err
}

// ApplyStrike increments the counter by one. The user becomes banned exactly
// when the count reaches the threshold; a later strike keeps the counter
// moving but leaves the status alone.
func (s *Service) ApplyStrike(ctx context.Context, p ActionParams) (Result, error) {
	p.Kind = enums.ActionStrike
	return s.mutate(ctx, p, func(u model.User) (int, enums.UserStatus) {
		count := u.Strikes + 1
		status := u.Status
		if count >= s.banThreshold {
			status = enums.UserStatusBanned
		}
		return count, status
	})
}

// ApplyWarn marks the user warned without touching the counter.
func (s *Service) ApplyWarn(ctx context.Context, p ActionParams) (Result, error) {
	p.Kind = enums.ActionWarn
	return s.mutate(ctx, p, func(u model.User) (int, enums.UserStatus) {
		return u.Strikes, enums.UserStatusWarned
	})
}

// ApplyBan bans unconditionally, independent of the threshold.
func (s *Service) ApplyBan(ctx context.Context, p ActionParams) (Result, error) {
	p.Kind = enums.ActionBan
	return s.mutate(ctx, p, func(u model.User) (int, enums.UserStatus) {
		return u.Strikes, enums.UserStatusBanned
	})
}

// RemoveStrike decrements the counter, floored at zero, and reinstates a
// banned user once they drop below the threshold.
func (s *Service) RemoveStrike(ctx context.Context, p ActionParams) (Result, error) {
	p.Kind = enums.ActionStrikeRemoved
	return s.mutate(ctx, p, func(u model.User) (int, enums.UserStatus) {
		count := u.Strikes - 1
		if count < 0 {
			count = 0
		}
		status := u.Status
		if status == enums.UserStatusBanned && count < s.banThreshold {
			status = enums.UserStatusActive
		}
		return count, status
	})
}

func (s *Service) mutate(ctx context.Context, p ActionParams, next func(model.User) (int, enums.UserStatus)) (Result, error) {
	if err := s.check(p); err != nil {
		return Result{}, err
	}

	var result Result
	err := s.store.WithinTx(ctx, func(tx LedgerTx) error {
		user, err := tx.UserForUpdate(ctx, p.UserID)
		if err != nil {
			return err
		}

		count, status := next(user)
		if count != user.Strikes || status != user.Status {
			if err := tx.SetDiscipline(ctx, p.UserID, count, status); err != nil {
				return err
			}
		}

		if _, err := tx.AppendAction(ctx, p); err != nil {
			return err
		}

		result = Result{Strikes: count, Status: status}
		return nil
	})
	return result, err
}

func (s *Service) check(p ActionParams) error {
	if s.store == nil {
		return fmt.Errorf("strike ledger store is not configured")
	}
	if p.UserID <= 0 {
		return fmt.Errorf("invalid user id")
	}
	if strings.TrimSpace(p.ModeratorID) == "" {
		return fmt.Errorf("acting moderator is required")
	}
	return nil
}
