package model

import (
	"time"

	"github.com/ojodaltonico/bot-moderador/internal/domain/enums"
)

type User struct {
	ID        int64            `json:"id"`
	Phone     string           `json:"phone"`
	Name      string           `json:"name"`
	Status    enums.UserStatus `json:"status"`
	Strikes   int              `json:"strikes"`
	CreatedAt time.Time        `json:"created_at"`
}
