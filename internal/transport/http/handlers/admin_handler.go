package handlers

import (
	"context"
	"net/http"

	"github.com/ojodaltonico/bot-moderador/internal/domain/model"
	"github.com/ojodaltonico/bot-moderador/internal/pkg/validate"
	identitysvc "github.com/ojodaltonico/bot-moderador/internal/services/identity"
	"github.com/ojodaltonico/bot-moderador/internal/transport/http/dto"
	httperrors "github.com/ojodaltonico/bot-moderador/internal/transport/http/errors"
)

// actorHeader carries the caller's phone for admin endpoints; the identity
// resolver decides whether that phone is the admin.
const actorHeader = "X-Actor-Phone"

type moderatorLister interface {
	List(ctx context.Context) ([]model.Moderator, error)
}

type AdminHandler struct {
	identity   *identitysvc.Service
	moderators moderatorLister
}

func NewAdminHandler(identity *identitysvc.Service, moderators moderatorLister) *AdminHandler {
	return &AdminHandler{identity: identity, moderators: moderators}
}

// SetModerator creates/reactivates (active=true) or soft-deactivates
// (active=false) a moderator.
func (h *AdminHandler) SetModerator(w http.ResponseWriter, r *http.Request) {
	if h.identity == nil {
		writeInternal(w, "IDENTITY_SERVICE_UNAVAILABLE", "identity service is unavailable")
		return
	}

	actor := r.Header.Get(actorHeader)
	if !validate.Required(actor) {
		writeForbidden(w, "FORBIDDEN", "missing "+actorHeader+" header")
		return
	}

	var req dto.SetModeratorRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid request body")
		return
	}
	if !validate.Required(req.Phone) {
		writeBadRequest(w, "VALIDATION_ERROR", "phone is required")
		return
	}

	if req.Active {
		mod, _, err := h.identity.AddModerator(r.Context(), actor, req.Phone)
		if err != nil {
			httperrors.WriteFault(w, err)
			return
		}
		httperrors.Write(w, http.StatusOK, dto.SetModeratorResponse{OK: true, Moderator: &mod})
		return
	}

	if err := h.identity.RemoveModerator(r.Context(), actor, req.Phone); err != nil {
		httperrors.WriteFault(w, err)
		return
	}
	httperrors.Write(w, http.StatusOK, dto.SetModeratorResponse{OK: true})
}

func (h *AdminHandler) ListModerators(w http.ResponseWriter, r *http.Request) {
	if h.identity == nil || h.moderators == nil {
		writeInternal(w, "IDENTITY_SERVICE_UNAVAILABLE", "identity service is unavailable")
		return
	}

	if !h.identity.IsAdmin(r.Header.Get(actorHeader)) {
		writeForbidden(w, "FORBIDDEN", "caller is not the admin")
		return
	}

	mods, err := h.moderators.List(r.Context())
	if err != nil {
		httperrors.WriteFault(w, err)
		return
	}
	if mods == nil {
		mods = []model.Moderator{}
	}
	httperrors.Write(w, http.StatusOK, dto.ModeratorListResponse{Moderators: mods})
}
