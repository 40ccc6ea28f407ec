package model

import "github.com/ojodaltonico/bot-moderador/internal/domain/enums"

// Instruction is an abstract side-effect request for the external messaging
// layer. The engine emits ordered instruction lists and never observes
// whether delivery succeeded.
type Instruction struct {
	Kind enums.InstructionKind `json:"kind"`

	// send_message
	To   string `json:"to,omitempty"`
	Text string `json:"text,omitempty"`

	// delete_message
	MessageKey string `json:"message_key,omitempty"`

	// remove_member
	ChatID      string `json:"chat_id,omitempty"`
	Participant string `json:"participant,omitempty"`
}

func SendMessage(to, text string) Instruction {
	return Instruction{Kind: enums.InstructionSendMessage, To: to, Text: text}
}

func DeleteMessage(messageKey string) Instruction {
	return Instruction{Kind: enums.InstructionDeleteMessage, MessageKey: messageKey}
}

func RemoveMember(chatID, participant string) Instruction {
	return Instruction{Kind: enums.InstructionRemoveMember, ChatID: chatID, Participant: participant}
}
