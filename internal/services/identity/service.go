// Package identity resolves inbound identifiers (stable phone or ephemeral
// session id) to a role and a canonical user record, and manages the
// moderator roster.
package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ojodaltonico/bot-moderador/internal/domain/enums"
	"github.com/ojodaltonico/bot-moderador/internal/domain/faults"
	"github.com/ojodaltonico/bot-moderador/internal/domain/model"
	"github.com/ojodaltonico/bot-moderador/internal/pkg/phone"
)

type ModeratorStore interface {
	FindActiveByHandle(ctx context.Context, handles ...string) (model.Moderator, error)
	Upsert(ctx context.Context, phoneNumber string) (model.Moderator, bool, error)
	Deactivate(ctx context.Context, phoneNumber string) error
	BindSession(ctx context.Context, phoneNumber, sessionID string) (bool, error)
}

type UserStore interface {
	GetOrCreateByPhone(ctx context.Context, phoneNumber, name string) (model.User, error)
}

type Service struct {
	moderators ModeratorStore
	users      UserStore

	adminPhone           string
	adminPhoneNormalized string
}

// Identity is a resolved caller: the lazily created user record plus the
// effective role for this request.
type Identity struct {
	User model.User
	Role enums.Role
}

func NewService(moderators ModeratorStore, users UserStore, adminPhone string) *Service {
	adminPhone = strings.TrimSpace(adminPhone)
	return &Service{
		moderators:           moderators,
		users:                users,
		adminPhone:           adminPhone,
		adminPhoneNormalized: phone.Normalize(adminPhone),
	}
}

// IsAdmin checks the identifier against the single configured admin phone,
// in both raw and digit-normalized form.
func (s *Service) IsAdmin(identifier string) bool {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || s.adminPhone == "" {
		return false
	}
	return identifier == s.adminPhone || phone.Normalize(identifier) == s.adminPhoneNormalized
}

// IsModerator reports whether any active moderator record matches the
// identifier by phone, normalized phone, or bound session id.
func (s *Service) IsModerator(ctx context.Context, identifier string) (bool, error) {
	_, err := s.Moderator(ctx, identifier)
	if errors.Is(err, faults.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *Service) Moderator(ctx context.Context, identifier string) (model.Moderator, error) {
	if s.moderators == nil {
		return model.Moderator{}, fmt.Errorf("moderator store is not configured")
	}
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return model.Moderator{}, faults.ErrNotFound
	}
	return s.moderators.FindActiveByHandle(ctx, identifier, phone.Normalize(identifier))
}

// Resolve maps an inbound identifier to a role and its user record, creating
// the user lazily on first contact.
func (s *Service) Resolve(ctx context.Context, identifier, name string) (Identity, error) {
	if s.users == nil {
		return Identity{}, fmt.Errorf("user store is not configured")
	}

	normalized := phone.Normalize(identifier)
	if normalized == "" {
		return Identity{}, fmt.Errorf("identifier is required")
	}

	role := enums.RoleUser
	switch {
	case s.IsAdmin(identifier):
		role = enums.RoleAdmin
	default:
		isMod, err := s.IsModerator(ctx, identifier)
		if err != nil {
			return Identity{}, err
		}
		if isMod {
			role = enums.RoleModerator
		}
	}

	user, err := s.users.GetOrCreateByPhone(ctx, normalized, name)
	if err != nil {
		return Identity{}, err
	}

	return Identity{User: user, Role: role}, nil
}

// BindSession attaches a session id to the moderator record for the given
// phone. First writer wins; a session id bound earlier is never overwritten.
// Binding against an already bound record is a silent no-op.
func (s *Service) BindSession(ctx context.Context, phoneNumber, sessionID string) error {
	if s.moderators == nil {
		return fmt.Errorf("moderator store is not configured")
	}
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil
	}

	_, err := s.moderators.BindSession(ctx, phone.Normalize(phoneNumber), sessionID)
	return err
}

// AddModerator creates or reactivates a moderator. Admin only. The returned
// flag reports whether a new record was created rather than reactivated.
func (s *Service) AddModerator(ctx context.Context, actor, phoneNumber string) (model.Moderator, bool, error) {
	if !s.IsAdmin(actor) {
		return model.Moderator{}, false, faults.ErrForbidden
	}
	if s.moderators == nil {
		return model.Moderator{}, false, fmt.Errorf("moderator store is not configured")
	}

	normalized := phone.Normalize(phoneNumber)
	if normalized == "" {
		return model.Moderator{}, false, fmt.Errorf("moderator phone is required")
	}

	return s.moderators.Upsert(ctx, normalized)
}

// RemoveModerator soft-deactivates; the record and any bound session id stay.
func (s *Service) RemoveModerator(ctx context.Context, actor, phoneNumber string) error {
	if !s.IsAdmin(actor) {
		return faults.ErrForbidden
	}
	if s.moderators == nil {
		return fmt.Errorf("moderator store is not configured")
	}

	normalized := phone.Normalize(phoneNumber)
	if normalized == "" {
		return fmt.Errorf("moderator phone is required")
	}

	return s.moderators.Deactivate(ctx, normalized)
}
