package enums

type MessageType string

const (
	MessageTypeText  MessageType = "text"
	MessageTypeImage MessageType = "image"
)

func ParseMessageType(raw string) (MessageType, bool) {
	switch MessageType(raw) {
	case MessageTypeText, MessageTypeImage:
		return MessageType(raw), true
	}
	return "", false
}
