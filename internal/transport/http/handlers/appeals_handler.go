package handlers

import (
	"context"
	"net/http"

	"github.com/ojodaltonico/bot-moderador/internal/domain/model"
	phonepkg "github.com/ojodaltonico/bot-moderador/internal/pkg/phone"
	"github.com/ojodaltonico/bot-moderador/internal/pkg/validate"
	appealsvc "github.com/ojodaltonico/bot-moderador/internal/services/appeals"
	"github.com/ojodaltonico/bot-moderador/internal/transport/http/dto"
	httperrors "github.com/ojodaltonico/bot-moderador/internal/transport/http/errors"
)

type appealUserSource interface {
	GetByPhone(ctx context.Context, phone string) (model.User, error)
}

type AppealsHandler struct {
	service *appealsvc.Service
	users   appealUserSource
}

func NewAppealsHandler(service *appealsvc.Service, users appealUserSource) *AppealsHandler {
	return &AppealsHandler{service: service, users: users}
}

// Create files an already-texted appeal in one call; the conversational
// two-phase flow lives on the chat hook instead.
func (h *AppealsHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h.service == nil || h.users == nil {
		writeInternal(w, "APPEAL_SERVICE_UNAVAILABLE", "appeal service is unavailable")
		return
	}

	var req dto.AppealRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid request body")
		return
	}
	if !validate.Required(req.Phone) || !validate.Required(req.Text) || req.CaseID <= 0 {
		writeBadRequest(w, "VALIDATION_ERROR", "phone, case_id and text are required")
		return
	}

	user, err := h.users.GetByPhone(r.Context(), phonepkg.Normalize(req.Phone))
	if err != nil {
		httperrors.WriteFault(w, err)
		return
	}

	c, err := h.service.CreateDirect(r.Context(), user, req.CaseID, req.Text)
	if err != nil {
		httperrors.WriteFault(w, err)
		return
	}

	httperrors.Write(w, http.StatusCreated, dto.AppealResponse{OK: true, Case: c})
}
