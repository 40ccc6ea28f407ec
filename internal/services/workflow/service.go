// Package workflow drives the moderation case state machine: claiming the
// next case for a moderator and applying decisions with their side effects.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ojodaltonico/bot-moderador/internal/domain/enums"
	"github.com/ojodaltonico/bot-moderador/internal/domain/faults"
	"github.com/ojodaltonico/bot-moderador/internal/domain/model"
	"github.com/ojodaltonico/bot-moderador/internal/services/strikes"
)

type CaseStore interface {
	GetByID(ctx context.Context, caseID int64) (model.Case, error)
	NextPending(ctx context.Context) (model.Case, error)
	Assign(ctx context.Context, caseID int64, moderatorID string) (model.Case, error)
	Resolve(ctx context.Context, caseID int64, resolution, resolverID string, note *string) (model.Case, error)
	FindInReviewByModerator(ctx context.Context, moderatorID string) (model.Case, error)
	CountPending(ctx context.Context) (int, error)
}

type MessageStore interface {
	GetByID(ctx context.Context, messageID int64) (model.Message, error)
	MarkDeleted(ctx context.Context, messageID int64) error
}

type UserStore interface {
	GetByID(ctx context.Context, userID int64) (model.User, error)
}

// MediaSigner presigns flagged image objects for moderator review.
type MediaSigner interface {
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error)
}

type Service struct {
	cases    CaseStore
	messages MessageStore
	users    UserStore
	ledger   *strikes.Service
	signer   MediaSigner

	assignRetries int
	mediaTTL      time.Duration
	banThreshold  int
}

// CaseView is everything a moderator needs to judge a case: the case itself,
// the offending message, its author, a presigned URL for image evidence, and
// how deep the queue currently is.
type CaseView struct {
	Case      model.Case
	Message   model.Message
	User      model.User
	MediaURL  string
	QueueSize int
}

// Outcome is the result of a decision: the resolved case, the user's strike
// state afterwards, and the ordered instructions for the messaging layer.
type Outcome struct {
	Case         model.Case
	Strikes      int
	UserStatus   enums.UserStatus
	Instructions []model.Instruction
}

type Config struct {
	AssignRetries int
	MediaURLTTL   time.Duration
	BanThreshold  int
}

func NewService(cases CaseStore, messages MessageStore, users UserStore, ledger *strikes.Service, signer MediaSigner, cfg Config) *Service {
	if cfg.AssignRetries <= 0 {
		cfg.AssignRetries = 3
	}
	if cfg.MediaURLTTL <= 0 {
		cfg.MediaURLTTL = 5 * time.Minute
	}
	if cfg.BanThreshold <= 0 {
		cfg.BanThreshold = 3
	}
	return &Service{
		cases:         cases,
		messages:      messages,
		users:         users,
		ledger:        ledger,
		signer:        signer,
		assignRetries: cfg.AssignRetries,
		mediaTTL:      cfg.MediaURLTTL,
		banThreshold:  cfg.BanThreshold,
	}
}

// NextCase claims the highest-priority eligible case for the moderator. A
// moderator already holding a case in review gets that case back instead of
// claiming a second one. Claiming is optimistic: on a lost race the candidate
// selection is retried a bounded number of times.
func (s *Service) NextCase(ctx context.Context, moderatorID string) (CaseView, error) {
	if moderatorID == "" {
		return CaseView{}, fmt.Errorf("moderator id is required")
	}

	if held, err := s.cases.FindInReviewByModerator(ctx, moderatorID); err == nil {
		return s.buildView(ctx, held)
	} else if !errors.Is(err, faults.ErrNotFound) {
		return CaseView{}, err
	}

	for attempt := 0; attempt <= s.assignRetries; attempt++ {
		candidate, err := s.cases.NextPending(ctx)
		if err != nil {
			return CaseView{}, err
		}

		claimed, err := s.cases.Assign(ctx, candidate.ID, moderatorID)
		if errors.Is(err, faults.ErrConflict) || errors.Is(err, faults.ErrInvalidState) {
			continue
		}
		if err != nil {
			return CaseView{}, err
		}
		return s.buildView(ctx, claimed)
	}

	return CaseView{}, fmt.Errorf("queue contention, no case claimed after %d attempts: %w", s.assignRetries+1, faults.ErrConflict)
}

// Case looks a case up by id.
func (s *Service) Case(ctx context.Context, caseID int64) (model.Case, error) {
	return s.cases.GetByID(ctx, caseID)
}

// HeldCase returns the case the moderator currently has in review, without
// claiming anything new.
func (s *Service) HeldCase(ctx context.Context, moderatorID string) (model.Case, error) {
	if moderatorID == "" {
		return model.Case{}, fmt.Errorf("moderator id is required")
	}
	return s.cases.FindInReviewByModerator(ctx, moderatorID)
}

func (s *Service) buildView(ctx context.Context, c model.Case) (CaseView, error) {
	msg, err := s.messages.GetByID(ctx, c.MessageID)
	if err != nil {
		return CaseView{}, err
	}
	user, err := s.users.GetByID(ctx, msg.UserID)
	if err != nil {
		return CaseView{}, err
	}

	view := CaseView{Case: c, Message: msg, User: user}

	if msg.Type == enums.MessageTypeImage && msg.MediaKey != "" && s.signer != nil {
		url, err := s.signer.PresignGet(ctx, msg.MediaKey, s.mediaTTL)
		if err != nil {
			return CaseView{}, fmt.Errorf("presign case media: %w", err)
		}
		view.MediaURL = url
	}

	size, err := s.cases.CountPending(ctx)
	if err != nil {
		return CaseView{}, err
	}
	view.QueueSize = size

	return view, nil
}

// Decide applies a moderator verdict to the case they hold in review. The
// case resolves first; strike effects and instructions follow. Decisions are
// final — there is no undo, only a fresh appeal.
func (s *Service) Decide(ctx context.Context, moderatorID string, caseID int64, decision enums.Decision, note string) (Outcome, error) {
	if moderatorID == "" {
		return Outcome{}, fmt.Errorf("moderator id is required")
	}

	c, err := s.cases.GetByID(ctx, caseID)
	if err != nil {
		return Outcome{}, err
	}
	if c.Status != enums.CaseStatusInReview {
		return Outcome{}, fmt.Errorf("case %d is %s, not in review: %w", caseID, c.Status, faults.ErrInvalidState)
	}
	if c.AssignedTo == nil || *c.AssignedTo != moderatorID {
		return Outcome{}, fmt.Errorf("case %d is not assigned to %s: %w", caseID, moderatorID, faults.ErrPolicyViolation)
	}
	if !decision.AppliesTo(c.Type) {
		return Outcome{}, fmt.Errorf("decision %s does not apply to %s cases: %w", decision, c.Type, faults.ErrInvalidState)
	}

	msg, err := s.messages.GetByID(ctx, c.MessageID)
	if err != nil {
		return Outcome{}, err
	}
	user, err := s.users.GetByID(ctx, msg.UserID)
	if err != nil {
		return Outcome{}, err
	}

	// Expel is only ever the strike that bans: it needs two priors.
	if decision == enums.DecisionExpel && user.Strikes < s.banThreshold-1 {
		return Outcome{}, fmt.Errorf("expel requires %d prior strikes, user %d has %d: %w",
			s.banThreshold-1, user.ID, user.Strikes, faults.ErrPolicyViolation)
	}

	var notePtr *string
	if note != "" {
		notePtr = &note
	}
	resolved, err := s.cases.Resolve(ctx, caseID, string(decision), moderatorID, notePtr)
	if err != nil {
		return Outcome{}, err
	}

	out := Outcome{Case: resolved, Strikes: user.Strikes, UserStatus: user.Status}
	if err := s.applyEffects(ctx, &out, decision, resolved, msg, user, moderatorID); err != nil {
		return Outcome{}, err
	}
	return out, nil
}

func (s *Service) applyEffects(ctx context.Context, out *Outcome, decision enums.Decision, c model.Case, msg model.Message, user model.User, moderatorID string) error {
	params := strikes.ActionParams{UserID: user.ID, CaseID: &c.ID, ModeratorID: moderatorID}

	switch decision {
	case enums.DecisionIgnore:
		return nil

	case enums.DecisionWarn:
		params.Note = "advertencia por caso"
		res, err := s.ledger.ApplyWarn(ctx, params)
		if err != nil {
			return err
		}
		out.Strikes, out.UserStatus = res.Strikes, res.Status
		out.Instructions = append(out.Instructions,
			model.SendMessage(user.Phone, warnText()),
			model.SendMessage(moderatorID, moderatorConfirmText(c.ID, decision)),
		)
		return nil

	case enums.DecisionDeleteStrike:
		if err := s.messages.MarkDeleted(ctx, msg.ID); err != nil {
			return err
		}
		params.Note = "strike por contenido eliminado"
		res, err := s.ledger.ApplyStrike(ctx, params)
		if err != nil {
			return err
		}
		out.Strikes, out.UserStatus = res.Strikes, res.Status

		out.Instructions = append(out.Instructions,
			model.DeleteMessage(msg.PlatformKey),
			model.SendMessage(moderatorID, moderatorConfirmText(c.ID, decision)),
		)
		if res.Status == enums.UserStatusBanned {
			out.Instructions = append(out.Instructions,
				model.SendMessage(user.Phone, bannedText(res.Strikes)),
				model.RemoveMember(msg.ChatID, user.Phone),
			)
		} else {
			out.Instructions = append(out.Instructions,
				model.SendMessage(user.Phone, strikeText(res.Strikes, s.banThreshold)),
			)
		}
		return nil

	case enums.DecisionExpel:
		params.Note = "expulsión"
		res, err := s.ledger.ApplyStrike(ctx, params)
		if err != nil {
			return err
		}
		if res.Status != enums.UserStatusBanned {
			banParams := params
			banParams.Note = "expulsión forzada"
			if res, err = s.ledger.ApplyBan(ctx, banParams); err != nil {
				return err
			}
		}
		out.Strikes, out.UserStatus = res.Strikes, res.Status

		if err := s.messages.MarkDeleted(ctx, msg.ID); err != nil {
			return err
		}

		// Delete before removal: once the member is gone the message key may
		// not be actionable.
		out.Instructions = append(out.Instructions,
			model.DeleteMessage(msg.PlatformKey),
			model.RemoveMember(msg.ChatID, user.Phone),
			model.SendMessage(msg.ChatID, expelBroadcastText(user.Name, user.Phone)),
		)
		return nil

	case enums.DecisionReject:
		out.Instructions = append(out.Instructions,
			model.SendMessage(user.Phone, appealRejectedText()),
			model.SendMessage(moderatorID, moderatorConfirmText(c.ID, decision)),
		)
		return nil

	case enums.DecisionAccept:
		params.Note = "apelación aceptada"
		res, err := s.ledger.RemoveStrike(ctx, params)
		if err != nil {
			return err
		}
		out.Strikes, out.UserStatus = res.Strikes, res.Status
		out.Instructions = append(out.Instructions,
			model.SendMessage(user.Phone, appealAcceptedText(res.Strikes)),
			model.SendMessage(moderatorID, moderatorConfirmText(c.ID, decision)),
		)
		return nil
	}

	return fmt.Errorf("decision %s has no effect handler: %w", decision, faults.ErrInvalidState)
}
