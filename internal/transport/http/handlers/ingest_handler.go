package handlers

import (
	"net/http"

	"github.com/ojodaltonico/bot-moderador/internal/pkg/validate"
	ingestsvc "github.com/ojodaltonico/bot-moderador/internal/services/ingest"
	"github.com/ojodaltonico/bot-moderador/internal/transport/http/dto"
	httperrors "github.com/ojodaltonico/bot-moderador/internal/transport/http/errors"
)

type IngestHandler struct {
	service *ingestsvc.Service
}

func NewIngestHandler(service *ingestsvc.Service) *IngestHandler {
	return &IngestHandler{service: service}
}

func (h *IngestHandler) Handle(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "INGEST_SERVICE_UNAVAILABLE", "ingest service is unavailable")
		return
	}

	var req dto.IngestRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid request body")
		return
	}
	if !validate.Required(req.Phone) || !validate.Required(req.Type) || !validate.Required(req.ChatID) {
		writeBadRequest(w, "VALIDATION_ERROR", "phone, chat_id and type are required")
		return
	}

	res, err := h.service.Ingest(r.Context(), ingestsvc.Inbound{
		Phone:         req.Phone,
		Name:          req.Name,
		ChatID:        req.ChatID,
		IsGroup:       req.IsGroup,
		Type:          req.Type,
		Content:       req.Content,
		MediaKey:      req.MediaKey,
		PlatformKey:   req.PlatformKey,
		SenderSession: req.SenderSession,
	})
	if err != nil {
		httperrors.WriteFault(w, err)
		return
	}

	resp := dto.IngestResponse{
		OK:        true,
		UserID:    res.User.ID,
		MessageID: res.Message.ID,
		Flagged:   res.Message.Flagged,
	}
	if res.Case != nil {
		resp.CaseID = &res.Case.ID
	}
	httperrors.Write(w, http.StatusOK, resp)
}
