package memoryx

import "github.com/relay-labs/chatrelay/pkg/ai/llm"

// Memory stores the message history of a conversation
type Memory interface {
	// Messages returns the conversation so far
	Messages() ([]llm.Message, error)

	// Add appends a message to the conversation
	Add(message llm.Message) error

	// Clear resets the conversation, preserving the system prompt if present
	Clear() error
}
