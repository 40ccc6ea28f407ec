package enums

type InstructionKind string

const (
	InstructionSendMessage   InstructionKind = "send_message"
	InstructionDeleteMessage InstructionKind = "delete_message"
	InstructionRemoveMember  InstructionKind = "remove_member"
)
