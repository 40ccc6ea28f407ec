package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/ojodaltonico/bot-moderador/internal/domain/enums"
	"github.com/ojodaltonico/bot-moderador/internal/domain/faults"
	"github.com/ojodaltonico/bot-moderador/internal/domain/model"
	"github.com/ojodaltonico/bot-moderador/internal/pkg/phone"
	"github.com/ojodaltonico/bot-moderador/internal/pkg/validate"
	identitysvc "github.com/ojodaltonico/bot-moderador/internal/services/identity"
	workflowsvc "github.com/ojodaltonico/bot-moderador/internal/services/workflow"
	"github.com/ojodaltonico/bot-moderador/internal/transport/http/dto"
	httperrors "github.com/ojodaltonico/bot-moderador/internal/transport/http/errors"
)

type caseHistorySource interface {
	ListByCase(ctx context.Context, caseID int64) ([]model.UserAction, error)
}

type CasesHandler struct {
	workflow *workflowsvc.Service
	identity *identitysvc.Service
	history  caseHistorySource
}

func NewCasesHandler(workflow *workflowsvc.Service, identity *identitysvc.Service, history caseHistorySource) *CasesHandler {
	return &CasesHandler{workflow: workflow, identity: identity, history: history}
}

// resolveModeratorID maps an inbound identifier (phone or session id) to the
// stable phone used as the assignment key. Non-moderators are rejected.
func (h *CasesHandler) resolveModeratorID(ctx context.Context, identifier string) (string, error) {
	if h.identity.IsAdmin(identifier) {
		return phone.Normalize(identifier), nil
	}
	mod, err := h.identity.Moderator(ctx, identifier)
	if errors.Is(err, faults.ErrNotFound) {
		return "", faults.ErrForbidden
	}
	if err != nil {
		return "", err
	}
	return mod.Phone, nil
}

func (h *CasesHandler) Next(w http.ResponseWriter, r *http.Request) {
	if h.workflow == nil || h.identity == nil {
		writeInternal(w, "WORKFLOW_SERVICE_UNAVAILABLE", "workflow service is unavailable")
		return
	}

	var req dto.NextCaseRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid request body")
		return
	}
	if !validate.Required(req.ModeratorID) {
		writeBadRequest(w, "VALIDATION_ERROR", "moderator_id is required")
		return
	}

	moderatorID, err := h.resolveModeratorID(r.Context(), req.ModeratorID)
	if err != nil {
		httperrors.WriteFault(w, err)
		return
	}

	view, err := h.workflow.NextCase(r.Context(), moderatorID)
	if err != nil {
		httperrors.WriteFault(w, err)
		return
	}

	httperrors.Write(w, http.StatusOK, dto.CaseViewResponse{
		Case:      view.Case,
		Message:   view.Message,
		User:      view.User,
		MediaURL:  view.MediaURL,
		QueueSize: view.QueueSize,
	})
}

func (h *CasesHandler) Decide(w http.ResponseWriter, r *http.Request) {
	if h.workflow == nil || h.identity == nil {
		writeInternal(w, "WORKFLOW_SERVICE_UNAVAILABLE", "workflow service is unavailable")
		return
	}

	caseID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || caseID <= 0 {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid case id")
		return
	}

	var req dto.DecisionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid request body")
		return
	}
	if !validate.Required(req.ModeratorID) || !validate.Required(req.Decision) {
		writeBadRequest(w, "VALIDATION_ERROR", "moderator_id and decision are required")
		return
	}
	decision, ok := parseDecision(req.Decision)
	if !ok {
		writeBadRequest(w, "VALIDATION_ERROR", "unknown decision")
		return
	}

	moderatorID, err := h.resolveModeratorID(r.Context(), req.ModeratorID)
	if err != nil {
		httperrors.WriteFault(w, err)
		return
	}

	out, err := h.workflow.Decide(r.Context(), moderatorID, caseID, decision, req.Note)
	if err != nil {
		httperrors.WriteFault(w, err)
		return
	}

	instructions := out.Instructions
	if instructions == nil {
		instructions = []model.Instruction{}
	}
	httperrors.Write(w, http.StatusOK, dto.DecisionResponse{
		Case:         out.Case,
		Strikes:      out.Strikes,
		UserStatus:   string(out.UserStatus),
		Instructions: instructions,
	})
}

func (h *CasesHandler) History(w http.ResponseWriter, r *http.Request) {
	if h.workflow == nil || h.history == nil {
		writeInternal(w, "WORKFLOW_SERVICE_UNAVAILABLE", "workflow service is unavailable")
		return
	}

	caseID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || caseID <= 0 {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid case id")
		return
	}

	c, err := h.workflow.Case(r.Context(), caseID)
	if err != nil {
		httperrors.WriteFault(w, err)
		return
	}
	actions, err := h.history.ListByCase(r.Context(), caseID)
	if err != nil {
		httperrors.WriteFault(w, err)
		return
	}
	if actions == nil {
		actions = []model.UserAction{}
	}

	httperrors.Write(w, http.StatusOK, dto.CaseHistoryResponse{Case: c, Actions: actions})
}

func parseDecision(raw string) (enums.Decision, bool) {
	switch enums.Decision(raw) {
	case enums.DecisionIgnore, enums.DecisionWarn, enums.DecisionDeleteStrike,
		enums.DecisionExpel, enums.DecisionAccept, enums.DecisionReject:
		return enums.Decision(raw), true
	}
	return "", false
}
