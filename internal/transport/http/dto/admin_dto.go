package dto

import "github.com/ojodaltonico/bot-moderador/internal/domain/model"

type SetModeratorRequest struct {
	Phone  string `json:"phone"`
	Active bool   `json:"active"`
}

type SetModeratorResponse struct {
	OK        bool             `json:"ok"`
	Moderator *model.Moderator `json:"moderator,omitempty"`
}

type ModeratorListResponse struct {
	Moderators []model.Moderator `json:"moderators"`
}
