package dto

import "github.com/ojodaltonico/bot-moderador/internal/domain/model"

type AppealRequest struct {
	Phone  string `json:"phone"`
	CaseID int64  `json:"case_id"`
	Text   string `json:"text"`
}

type AppealResponse struct {
	OK   bool       `json:"ok"`
	Case model.Case `json:"case"`
}
