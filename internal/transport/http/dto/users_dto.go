package dto

import "github.com/ojodaltonico/bot-moderador/internal/domain/model"

type UserStrikesResponse struct {
	Phone   string `json:"phone"`
	Name    string `json:"name"`
	Status  string `json:"status"`
	Strikes int    `json:"strikes"`
}

type UserHistoryResponse struct {
	User    model.User         `json:"user"`
	Actions []model.UserAction `json:"actions"`
}
