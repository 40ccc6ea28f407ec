package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ojodaltonico/bot-moderador/internal/domain/model"
	phonepkg "github.com/ojodaltonico/bot-moderador/internal/pkg/phone"
	"github.com/ojodaltonico/bot-moderador/internal/pkg/validate"
	"github.com/ojodaltonico/bot-moderador/internal/transport/http/dto"
	httperrors "github.com/ojodaltonico/bot-moderador/internal/transport/http/errors"
)

type userSource interface {
	GetByPhone(ctx context.Context, phone string) (model.User, error)
}

type userHistorySource interface {
	ListByUser(ctx context.Context, userID int64) ([]model.UserAction, error)
}

type UsersHandler struct {
	users   userSource
	actions userHistorySource
}

func NewUsersHandler(users userSource, actions userHistorySource) *UsersHandler {
	return &UsersHandler{users: users, actions: actions}
}

func (h *UsersHandler) Strikes(w http.ResponseWriter, r *http.Request) {
	user, ok := h.lookup(w, r)
	if !ok {
		return
	}
	httperrors.Write(w, http.StatusOK, dto.UserStrikesResponse{
		Phone:   user.Phone,
		Name:    user.Name,
		Status:  string(user.Status),
		Strikes: user.Strikes,
	})
}

func (h *UsersHandler) History(w http.ResponseWriter, r *http.Request) {
	if h.actions == nil {
		writeInternal(w, "USER_SERVICE_UNAVAILABLE", "user history is unavailable")
		return
	}
	user, ok := h.lookup(w, r)
	if !ok {
		return
	}
	actions, err := h.actions.ListByUser(r.Context(), user.ID)
	if err != nil {
		httperrors.WriteFault(w, err)
		return
	}
	if actions == nil {
		actions = []model.UserAction{}
	}
	httperrors.Write(w, http.StatusOK, dto.UserHistoryResponse{User: user, Actions: actions})
}

func (h *UsersHandler) lookup(w http.ResponseWriter, r *http.Request) (model.User, bool) {
	if h.users == nil {
		writeInternal(w, "USER_SERVICE_UNAVAILABLE", "user service is unavailable")
		return model.User{}, false
	}

	raw := chi.URLParam(r, "phone")
	if !validate.Required(raw) {
		writeBadRequest(w, "VALIDATION_ERROR", "phone is required")
		return model.User{}, false
	}

	user, err := h.users.GetByPhone(r.Context(), phonepkg.Normalize(raw))
	if err != nil {
		httperrors.WriteFault(w, err)
		return model.User{}, false
	}
	return user, true
}
