package handlers

import (
	"net/http"

	"github.com/ojodaltonico/bot-moderador/internal/domain/model"
	"github.com/ojodaltonico/bot-moderador/internal/pkg/validate"
	chatsvc "github.com/ojodaltonico/bot-moderador/internal/services/chat"
	"github.com/ojodaltonico/bot-moderador/internal/transport/http/dto"
	httperrors "github.com/ojodaltonico/bot-moderador/internal/transport/http/errors"
)

// ChatHandler is the conversational hook the messaging bridge posts direct
// messages to. The response carries the instructions to execute in order.
type ChatHandler struct {
	service *chatsvc.Service
}

func NewChatHandler(service *chatsvc.Service) *ChatHandler {
	return &ChatHandler{service: service}
}

func (h *ChatHandler) Inbound(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "CHAT_SERVICE_UNAVAILABLE", "chat service is unavailable")
		return
	}

	var req dto.ChatInboundRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid request body")
		return
	}
	if !validate.Required(req.Phone) {
		writeBadRequest(w, "VALIDATION_ERROR", "phone is required")
		return
	}

	instructions, err := h.service.HandleInbound(r.Context(), chatsvc.Inbound{
		Phone:     req.Phone,
		SessionID: req.SessionID,
		Name:      req.Name,
		Text:      req.Text,
		ReplyTo:   req.ReplyTo,
	})
	if err != nil {
		httperrors.WriteFault(w, err)
		return
	}

	if instructions == nil {
		instructions = []model.Instruction{}
	}
	httperrors.Write(w, http.StatusOK, dto.ChatInboundResponse{Instructions: instructions})
}
