// Package ingest persists inbound platform messages and runs the fixed
// moderation policy that turns some of them into cases.
package ingest

import (
	"context"
	"fmt"
	"strings"

	"github.com/ojodaltonico/bot-moderador/internal/domain/enums"
	"github.com/ojodaltonico/bot-moderador/internal/domain/faults"
	"github.com/ojodaltonico/bot-moderador/internal/domain/model"
	"github.com/ojodaltonico/bot-moderador/internal/pkg/phone"
	"github.com/ojodaltonico/bot-moderador/internal/repo/postgres"
)

type UserStore interface {
	GetOrCreateByPhone(ctx context.Context, phoneNumber, name string) (model.User, error)
}

type MessageStore interface {
	Create(ctx context.Context, p postgres.CreateMessageParams) (model.Message, error)
	MarkFlagged(ctx context.Context, messageID int64) error
}

type CaseStore interface {
	Create(ctx context.Context, p postgres.CreateCaseParams) (model.Case, error)
}

// Inbound is a raw platform message as the bridge delivers it.
type Inbound struct {
	Phone         string
	Name          string
	ChatID        string
	IsGroup       bool
	Type          string
	Content       string
	MediaKey      string
	PlatformKey   string
	SenderSession string
}

// Result reports what ingest did with the message. Case is non-nil only when
// the classifier opened one.
type Result struct {
	User    model.User
	Message model.Message
	Case    *model.Case
}

type Config struct {
	ModeratedChatID      string
	Keywords             []string
	InfringementPriority int
	ImageReviewPriority  int
}

type Service struct {
	users    UserStore
	messages MessageStore
	cases    CaseStore

	moderatedChatID      string
	keywords             []string
	infringementPriority int
	imageReviewPriority  int
}

func NewService(users UserStore, messages MessageStore, cases CaseStore, cfg Config) *Service {
	if cfg.InfringementPriority <= 0 {
		cfg.InfringementPriority = 1
	}
	if cfg.ImageReviewPriority <= 0 {
		cfg.ImageReviewPriority = 2
	}
	keywords := make([]string, 0, len(cfg.Keywords))
	for _, k := range cfg.Keywords {
		k = strings.ToLower(strings.TrimSpace(k))
		if k != "" {
			keywords = append(keywords, k)
		}
	}
	return &Service{
		users:                users,
		messages:             messages,
		cases:                cases,
		moderatedChatID:      cfg.ModeratedChatID,
		keywords:             keywords,
		infringementPriority: cfg.InfringementPriority,
		imageReviewPriority:  cfg.ImageReviewPriority,
	}
}

// Ingest stores the message under its (lazily created) author and opens a
// case when the policy flags it. Audio and video are rejected before anything
// is persisted.
func (s *Service) Ingest(ctx context.Context, in Inbound) (Result, error) {
	msgType, ok := enums.ParseMessageType(in.Type)
	if !ok {
		return Result{}, fmt.Errorf("unsupported message type %q: %w", in.Type, faults.ErrInvalidState)
	}

	normalized := phone.Normalize(in.Phone)
	if normalized == "" {
		return Result{}, fmt.Errorf("sender phone is required")
	}

	user, err := s.users.GetOrCreateByPhone(ctx, normalized, in.Name)
	if err != nil {
		return Result{}, err
	}

	msg, err := s.messages.Create(ctx, postgres.CreateMessageParams{
		UserID:        user.ID,
		ChatID:        in.ChatID,
		IsGroup:       in.IsGroup,
		Type:          msgType,
		Content:       in.Content,
		MediaKey:      in.MediaKey,
		PlatformKey:   in.PlatformKey,
		SenderSession: in.SenderSession,
	})
	if err != nil {
		return Result{}, err
	}

	res := Result{User: user, Message: msg}

	caseType, priority, flagged := s.classify(msg)
	if !flagged {
		return res, nil
	}

	if err := s.messages.MarkFlagged(ctx, msg.ID); err != nil {
		return Result{}, err
	}
	c, err := s.cases.Create(ctx, postgres.CreateCaseParams{
		Type:      caseType,
		Priority:  priority,
		MessageID: msg.ID,
	})
	if err != nil {
		return Result{}, err
	}

	res.Message.Flagged = true
	res.Case = &c
	return res, nil
}

// classify applies the fixed policy. Messages outside the moderated group
// chat never reach it.
func (s *Service) classify(msg model.Message) (enums.CaseType, int, bool) {
	if !msg.IsGroup || msg.ChatID != s.moderatedChatID {
		return "", 0, false
	}

	switch msg.Type {
	case enums.MessageTypeText:
		content := strings.ToLower(msg.Content)
		for _, k := range s.keywords {
			if strings.Contains(content, k) {
				return enums.CaseTypeInfringement, s.infringementPriority, true
			}
		}
	case enums.MessageTypeImage:
		return enums.CaseTypeImageReview, s.imageReviewPriority, true
	}

	return "", 0, false
}
