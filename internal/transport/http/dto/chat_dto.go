package dto

import "github.com/ojodaltonico/bot-moderador/internal/domain/model"

type ChatInboundRequest struct {
	Phone     string `json:"phone"`
	SessionID string `json:"session_id"`
	Name      string `json:"name"`
	Text      string `json:"text"`
	ReplyTo   string `json:"reply_to"`
}

type ChatInboundResponse struct {
	Instructions []model.Instruction `json:"instructions"`
}
