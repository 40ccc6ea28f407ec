package enums

type UserStatus string

const (
	UserStatusActive UserStatus = "active"
	UserStatusWarned UserStatus = "warned"
	UserStatusBanned UserStatus = "banned"
)
