package model

import "time"

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// ConversationMessage is one turn of a sender's conversation with the bot.
// Append-only; read back oldest-first for model context.
type ConversationMessage struct {
	ID        int64
	Sender    string
	Role      Role
	Content   string
	CreatedAt time.Time
}
