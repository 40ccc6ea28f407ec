package dto

type IngestRequest struct {
	Phone         string `json:"phone"`
	Name          string `json:"name"`
	ChatID        string `json:"chat_id"`
	IsGroup       bool   `json:"is_group"`
	Type          string `json:"type"`
	Content       string `json:"content"`
	MediaKey      string `json:"media_key"`
	PlatformKey   string `json:"platform_key"`
	SenderSession string `json:"sender_session"`
}

type IngestResponse struct {
	OK        bool   `json:"ok"`
	UserID    int64  `json:"user_id"`
	MessageID int64  `json:"message_id"`
	Flagged   bool   `json:"flagged"`
	CaseID    *int64 `json:"case_id,omitempty"`
}
