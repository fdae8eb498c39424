package groq

import (
	"github.com/voicewire/duplex-core/core/llms"
)

type message struct {
	Role    messageRole `json:"role"`
	Content string      `json:"content"`
}

type messageRole string

const (
	messageRoleSystem    messageRole = "system"
	messageRoleUser      messageRole = "user"
	messageRoleAssistant messageRole = "assistant"
)

func toMessages(instructions string, history []llms.Msg) []message {
	messages := []message{}
	if instructions != "" {
		messages = append(messages, message{
			Role:    messageRoleSystem,
			Content: instructions,
		})
	}
	for _, msg := range history {
		role := messageRoleUser
		switch msg.Role {
		case llms.RoleAssistant:
			role = messageRoleAssistant
		case llms.RoleSystem:
			role = messageRoleSystem
		}
		messages = append(messages, message{Role: role, Content: msg.Text})
	}
	return messages
}
