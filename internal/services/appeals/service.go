// Package appeals implements the appeal lifecycle: opening a timed session,
// capturing the user's text, and expiring sessions that never received one.
package appeals

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ojodaltonico/bot-moderador/internal/domain/enums"
	"github.com/ojodaltonico/bot-moderador/internal/domain/faults"
	"github.com/ojodaltonico/bot-moderador/internal/domain/model"
	"github.com/ojodaltonico/bot-moderador/internal/repo/postgres"
)

// Session marks a user as "awaiting appeal text". It lives in redis under
// the user's phone with the configured TTL; expiry is owned by the store,
// never inferred from case rows.
type Session struct {
	CaseID   int64
	OpenedAt time.Time
}

type SessionStore interface {
	Open(ctx context.Context, phone string, session Session, ttl time.Duration) error
	Get(ctx context.Context, phone string) (Session, error)
	Delete(ctx context.Context, phone string) error
}

type CaseStore interface {
	Create(ctx context.Context, p postgres.CreateCaseParams) (model.Case, error)
	GetByID(ctx context.Context, caseID int64) (model.Case, error)
	SetAppealText(ctx context.Context, caseID int64, text string) (model.Case, error)
	FindOpenAppealByUser(ctx context.Context, userID int64) (model.Case, error)
	ExpireStaleAppeals(ctx context.Context, cutoff time.Time) ([]postgres.ExpiredAppeal, error)
}

type MessageStore interface {
	Create(ctx context.Context, p postgres.CreateMessageParams) (model.Message, error)
	GetByID(ctx context.Context, messageID int64) (model.Message, error)
}

type HistoryStore interface {
	ListDisciplinaryByUser(ctx context.Context, userID int64, limit int) ([]model.UserAction, error)
}

type Service struct {
	sessions SessionStore
	cases    CaseStore
	messages MessageStore
	history  HistoryStore

	sessionTTL   time.Duration
	historyLimit int

	now func() time.Time
}

// OpenResult is what the user sees right after opening an appeal: the case
// that will carry their text plus their recent disciplinary history.
type OpenResult struct {
	Case    model.Case
	History []model.UserAction
}

func NewService(sessions SessionStore, cases CaseStore, messages MessageStore, history HistoryStore, sessionTTL time.Duration, historyLimit int) *Service {
	if sessionTTL <= 0 {
		sessionTTL = 5 * time.Minute
	}
	if historyLimit <= 0 {
		historyLimit = 5
	}
	return &Service{
		sessions:     sessions,
		cases:        cases,
		messages:     messages,
		history:      history,
		sessionTTL:   sessionTTL,
		historyLimit: historyLimit,
		now:          time.Now,
	}
}

// Open starts an appeal for the user. Users with a clean record have nothing
// to appeal; users with an appeal already in flight cannot stack another one.
// The created case is invisible to the queue until text arrives.
func (s *Service) Open(ctx context.Context, user model.User) (OpenResult, error) {
	if user.ID <= 0 {
		return OpenResult{}, fmt.Errorf("user is required")
	}
	if user.Strikes <= 0 {
		return OpenResult{}, fmt.Errorf("user %d has no strikes to appeal: %w", user.ID, faults.ErrPolicyViolation)
	}

	if _, err := s.cases.FindOpenAppealByUser(ctx, user.ID); err == nil {
		return OpenResult{}, fmt.Errorf("user %d already has an open appeal: %w", user.ID, faults.ErrConflict)
	} else if !errors.Is(err, faults.ErrNotFound) {
		return OpenResult{}, err
	}

	// The case needs a message row to hang off; appeals have no real inbound
	// message, so a synthetic one carries the user linkage.
	msg, err := s.messages.Create(ctx, postgres.CreateMessageParams{
		UserID:      user.ID,
		ChatID:      user.Phone,
		IsGroup:     false,
		Type:        enums.MessageTypeText,
		Content:     "",
		PlatformKey: "appeal-" + uuid.NewString(),
	})
	if err != nil {
		return OpenResult{}, fmt.Errorf("create appeal placeholder message: %w", err)
	}

	c, err := s.cases.Create(ctx, postgres.CreateCaseParams{
		Type:      enums.CaseTypeAppeal,
		Priority:  0,
		MessageID: msg.ID,
	})
	if err != nil {
		return OpenResult{}, fmt.Errorf("create appeal case: %w", err)
	}

	if err := s.sessions.Open(ctx, user.Phone, Session{CaseID: c.ID, OpenedAt: s.now().UTC()}, s.sessionTTL); err != nil {
		if errors.Is(err, faults.ErrConflict) {
			return OpenResult{}, fmt.Errorf("appeal session already open for %s: %w", user.Phone, faults.ErrConflict)
		}
		return OpenResult{}, err
	}

	history, err := s.history.ListDisciplinaryByUser(ctx, user.ID, s.historyLimit)
	if err != nil {
		return OpenResult{}, err
	}

	return OpenResult{Case: c, History: history}, nil
}

// OpenSession returns the live appeal session for a phone, or ErrNotFound.
func (s *Service) OpenSession(ctx context.Context, phone string) (Session, error) {
	return s.sessions.Get(ctx, phone)
}

// Submit attaches the user's free text to the appeal opened by their session
// and closes the session. From this point the case is visible to the queue.
func (s *Service) Submit(ctx context.Context, phone, text string) (model.Case, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return model.Case{}, fmt.Errorf("appeal text is required: %w", faults.ErrInvalidState)
	}

	session, err := s.sessions.Get(ctx, phone)
	if err != nil {
		return model.Case{}, err
	}

	c, err := s.cases.SetAppealText(ctx, session.CaseID, text)
	if err != nil {
		return model.Case{}, err
	}

	if err := s.sessions.Delete(ctx, phone); err != nil {
		return model.Case{}, err
	}
	return c, nil
}

// CreateDirect files an appeal with its text in one step, bypassing the
// session flow. The appeal attaches to the sanctioned case's message, so the
// moderator reviewing it sees exactly what was punished. Used by the HTTP
// appeals endpoint.
func (s *Service) CreateDirect(ctx context.Context, user model.User, caseID int64, text string) (model.Case, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return model.Case{}, fmt.Errorf("appeal text is required: %w", faults.ErrInvalidState)
	}
	if user.Strikes <= 0 {
		return model.Case{}, fmt.Errorf("user %d has no strikes to appeal: %w", user.ID, faults.ErrPolicyViolation)
	}

	sanction, err := s.cases.GetByID(ctx, caseID)
	if err != nil {
		return model.Case{}, err
	}
	if sanction.Type == enums.CaseTypeAppeal {
		return model.Case{}, fmt.Errorf("case %d is itself an appeal: %w", caseID, faults.ErrInvalidState)
	}
	msg, err := s.messages.GetByID(ctx, sanction.MessageID)
	if err != nil {
		return model.Case{}, err
	}
	if msg.UserID != user.ID {
		return model.Case{}, fmt.Errorf("case %d does not belong to user %d: %w", caseID, user.ID, faults.ErrNotFound)
	}

	if _, err := s.cases.FindOpenAppealByUser(ctx, user.ID); err == nil {
		return model.Case{}, fmt.Errorf("user %d already has an open appeal: %w", user.ID, faults.ErrConflict)
	} else if !errors.Is(err, faults.ErrNotFound) {
		return model.Case{}, err
	}

	return s.cases.Create(ctx, postgres.CreateCaseParams{
		Type:      enums.CaseTypeAppeal,
		Priority:  0,
		MessageID: sanction.MessageID,
		Note:      &text,
	})
}

// ExpireStale resolves appeal cases whose session lapsed without text and
// returns the notifications to send. The cutoff mirrors the session TTL so
// the sweep agrees with redis about what "expired" means.
func (s *Service) ExpireStale(ctx context.Context, now time.Time) ([]model.Instruction, error) {
	expired, err := s.cases.ExpireStaleAppeals(ctx, now.Add(-s.sessionTTL))
	if err != nil {
		return nil, err
	}

	instructions := make([]model.Instruction, 0, len(expired))
	for _, e := range expired {
		// Best effort: the redis key normally expired on its own already.
		_ = s.sessions.Delete(ctx, e.Phone)
		instructions = append(instructions, model.SendMessage(e.Phone, appealExpiredText))
	}
	return instructions, nil
}

const appealExpiredText = "Tu sesión de apelación expiró sin recibir el texto. Enviá /apelar para iniciar una nueva."
