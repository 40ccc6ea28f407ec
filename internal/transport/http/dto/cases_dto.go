package dto

import "github.com/ojodaltonico/bot-moderador/internal/domain/model"

type NextCaseRequest struct {
	ModeratorID string `json:"moderator_id"`
}

type CaseViewResponse struct {
	Case      model.Case    `json:"case"`
	Message   model.Message `json:"message"`
	User      model.User    `json:"user"`
	MediaURL  string        `json:"media_url,omitempty"`
	QueueSize int           `json:"queue_size"`
}

type DecisionRequest struct {
	ModeratorID string `json:"moderator_id"`
	Decision    string `json:"decision"`
	Note        string `json:"note"`
}

type DecisionResponse struct {
	Case         model.Case          `json:"case"`
	Strikes      int                 `json:"strikes"`
	UserStatus   string              `json:"user_status"`
	Instructions []model.Instruction `json:"instructions"`
}

type CaseHistoryResponse struct {
	Case    model.Case         `json:"case"`
	Actions []model.UserAction `json:"actions"`
}
