// Package chat routes inbound conversational commands from the group's
// members, moderators and the admin into the underlying services, answering
// with ordered instructions for the messaging layer.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ojodaltonico/bot-moderador/internal/domain/enums"
	"github.com/ojodaltonico/bot-moderador/internal/domain/faults"
	"github.com/ojodaltonico/bot-moderador/internal/domain/model"
	"github.com/ojodaltonico/bot-moderador/internal/services/appeals"
	"github.com/ojodaltonico/bot-moderador/internal/services/identity"
	"github.com/ojodaltonico/bot-moderador/internal/services/workflow"
)

type Service struct {
	identity *identity.Service
	appeals  *appeals.Service
	workflow *workflow.Service
	log      *zap.Logger
}

// Inbound is a direct (non-group) message to the bot.
type Inbound struct {
	Phone     string
	SessionID string
	Name      string
	Text      string
	// ReplyTo is the platform identifier replies should be addressed to;
	// preferred over the bare phone when present.
	ReplyTo string
}

func NewService(ids *identity.Service, ap *appeals.Service, wf *workflow.Service, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{identity: ids, appeals: ap, workflow: wf, log: log}
}

// HandleInbound interprets one direct message and returns the replies (and
// any other side effects) to deliver, in order.
func (s *Service) HandleInbound(ctx context.Context, in Inbound) ([]model.Instruction, error) {
	text := strings.TrimSpace(in.Text)
	if text == "" {
		return nil, nil
	}

	reply := in.ReplyTo
	if reply == "" {
		reply = in.Phone
	}

	id, err := s.identity.Resolve(ctx, in.Phone, in.Name)
	if err != nil {
		return nil, err
	}

	lower := strings.ToLower(text)

	// While an appeal session waits for its text, the next message IS the
	// appeal, even when it reads like a command. Only /apelar keeps its
	// meaning, so the user hears the appeal is already in flight instead of
	// filing the word "apelar" as their explanation.
	if lower != "/apelar" && lower != "apelar" {
		if _, err := s.appeals.OpenSession(ctx, id.User.Phone); err == nil {
			if _, err := s.appeals.Submit(ctx, id.User.Phone, text); err != nil {
				return nil, err
			}
			return []model.Instruction{model.SendMessage(reply, appealReceivedText)}, nil
		} else if !errors.Is(err, faults.ErrNotFound) {
			return nil, err
		}
	}

	if id.Role == enums.RoleAdmin {
		if out, handled, err := s.handleAdmin(ctx, in.Phone, reply, lower); handled {
			return out, err
		}
	}

	switch lower {
	case "strikes":
		return []model.Instruction{model.SendMessage(reply, strikesText(id.User))}, nil
	case "reglas":
		return []model.Instruction{model.SendMessage(reply, rulesText)}, nil
	case "/apelar", "apelar":
		return s.handleAppealOpen(ctx, id.User, reply)
	}

	if id.Role == enums.RoleModerator || id.Role == enums.RoleAdmin {
		if out, handled, err := s.handleModerator(ctx, id.User, in.SessionID, reply, lower); handled {
			return out, err
		}
	}

	return []model.Instruction{model.SendMessage(reply, s.menuFor(id.Role))}, nil
}

func (s *Service) menuFor(role enums.Role) string {
	switch role {
	case enums.RoleAdmin:
		return adminMenuText
	case enums.RoleModerator:
		return moderatorMenuText
	}
	return userMenuText
}

func (s *Service) handleAdmin(ctx context.Context, actor, reply, lower string) ([]model.Instruction, bool, error) {
	var add bool
	var target string
	switch {
	case strings.HasPrefix(lower, "agregar mod "):
		add, target = true, strings.TrimSpace(strings.TrimPrefix(lower, "agregar mod "))
	case strings.HasPrefix(lower, "quitar mod "):
		add, target = false, strings.TrimSpace(strings.TrimPrefix(lower, "quitar mod "))
	default:
		return nil, false, nil
	}

	if add {
		mod, created, err := s.identity.AddModerator(ctx, actor, target)
		if err != nil {
			return nil, true, err
		}
		verb := "reactivado"
		if created {
			verb = "dado de alta"
		}
		return []model.Instruction{model.SendMessage(reply, fmt.Sprintf("Moderador %s %s.", mod.Phone, verb))}, true, nil
	}

	if err := s.identity.RemoveModerator(ctx, actor, target); err != nil {
		if errors.Is(err, faults.ErrNotFound) {
			return []model.Instruction{model.SendMessage(reply, "Ese número no es un moderador activo.")}, true, nil
		}
		return nil, true, err
	}
	return []model.Instruction{model.SendMessage(reply, "Moderador dado de baja.")}, true, nil
}

func (s *Service) handleAppealOpen(ctx context.Context, user model.User, reply string) ([]model.Instruction, error) {
	// Lazy sweep: stale sessions are resolved before opening a fresh one.
	out, err := s.appeals.ExpireStale(ctx, time.Now())
	if err != nil {
		s.log.Warn("appeal expiry sweep failed", zap.Error(err))
		out = nil
	}

	res, err := s.appeals.Open(ctx, user)
	switch {
	case errors.Is(err, faults.ErrPolicyViolation):
		return append(out, model.SendMessage(reply, "No tenés strikes para apelar.")), nil
	case errors.Is(err, faults.ErrConflict):
		return append(out, model.SendMessage(reply, "Ya tenés una apelación en curso.")), nil
	case err != nil:
		return nil, err
	}

	return append(out, model.SendMessage(reply, appealPromptText+historyLines(res.History))), nil
}

func (s *Service) handleModerator(ctx context.Context, mod model.User, sessionID, reply, lower string) ([]model.Instruction, bool, error) {
	switch lower {
	case "estoy":
		if err := s.identity.BindSession(ctx, mod.Phone, sessionID); err != nil {
			return nil, true, err
		}
		return s.presentNextCase(ctx, mod.Phone, reply)
	case "1", "2", "3", "advertir":
		return s.applyChatDecision(ctx, mod.Phone, reply, lower)
	}
	return nil, false, nil
}

func (s *Service) presentNextCase(ctx context.Context, moderatorID, reply string) ([]model.Instruction, bool, error) {
	view, err := s.workflow.NextCase(ctx, moderatorID)
	switch {
	case errors.Is(err, faults.ErrNotFound):
		return []model.Instruction{model.SendMessage(reply, emptyQueueText)}, true, nil
	case errors.Is(err, faults.ErrConflict):
		return []model.Instruction{model.SendMessage(reply, "La cola está ocupada, probá de nuevo en un momento.")}, true, nil
	case err != nil:
		return nil, true, err
	}
	return []model.Instruction{model.SendMessage(reply, caseViewText(view))}, true, nil
}

func (s *Service) applyChatDecision(ctx context.Context, moderatorID, reply, lower string) ([]model.Instruction, bool, error) {
	held, err := s.workflow.HeldCase(ctx, moderatorID)
	if errors.Is(err, faults.ErrNotFound) {
		// A bare digit from a moderator with no case is just noise.
		if lower == "advertir" {
			return []model.Instruction{model.SendMessage(reply, noHeldCaseText)}, true, nil
		}
		return nil, false, nil
	}
	if err != nil {
		return nil, true, err
	}

	decision, ok := mapDecision(held.Type, lower)
	if !ok {
		return []model.Instruction{model.SendMessage(reply, caseDecisionHelp(held.Type))}, true, nil
	}

	out, err := s.workflow.Decide(ctx, moderatorID, held.ID, decision, "")
	if errors.Is(err, faults.ErrPolicyViolation) {
		return []model.Instruction{model.SendMessage(reply, "No se puede expulsar: el usuario no llega a los strikes previos requeridos.")}, true, nil
	}
	if err != nil {
		return nil, true, err
	}

	// The engine addresses the moderator by stable phone; replies go to the
	// platform identifier when one is present.
	instructions := out.Instructions
	for i := range instructions {
		if instructions[i].Kind == enums.InstructionSendMessage && instructions[i].To == moderatorID {
			instructions[i].To = reply
		}
	}
	return instructions, true, nil
}

func mapDecision(caseType enums.CaseType, lower string) (enums.Decision, bool) {
	if caseType == enums.CaseTypeAppeal {
		switch lower {
		case "1":
			return enums.DecisionAccept, true
		case "2":
			return enums.DecisionReject, true
		}
		return "", false
	}

	switch lower {
	case "1":
		return enums.DecisionIgnore, true
	case "2":
		return enums.DecisionDeleteStrike, true
	case "3":
		return enums.DecisionExpel, true
	case "advertir":
		return enums.DecisionWarn, true
	}
	return "", false
}

func caseDecisionHelp(caseType enums.CaseType) string {
	if caseType == enums.CaseTypeAppeal {
		return "Respondé *1* para aceptar la apelación o *2* para rechazarla."
	}
	return "Respondé *1* Ignorar, *2* Eliminar y strike, *3* Expulsar o *advertir*."
}
