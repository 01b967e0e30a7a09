package chat

import (
	"github.com/relay-labs/chatrelay/pkg/ai/llm"
	"github.com/relay-labs/chatrelay/pkg/errx"
)

const (
	// DefaultMaxHistoryMessages bounds how much conversation history is
	// forwarded to the model per turn
	DefaultMaxHistoryMessages = 20

	// DefaultSystemPrompt is used when the request carries none
	DefaultSystemPrompt = "You are a helpful assistant. Answer concisely and use the " +
		"available tools when a question needs fresh or external information."
)

// IncomingMessage is one conversation entry from the client
type IncomingMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is the body of both chat endpoints. When a session_id is set
// and the server has session memory configured, history lives server-side
// and only the newest user message is taken from Messages.
type Request struct {
	Messages           []IncomingMessage `json:"messages"`
	SystemPrompt       string            `json:"system_prompt,omitempty"`
	SessionID          string            `json:"session_id,omitempty"`
	MaxHistoryMessages int               `json:"max_history_messages,omitempty"`
	UseTools           *bool             `json:"use_tools,omitempty"`
}

// Response is the body of the non-streaming chat endpoint
type Response struct {
	Reply string `json:"reply"`
}

// UploadResponse is the body of the file upload endpoint
type UploadResponse struct {
	FileName   string `json:"file_name"`
	StoredPath string `json:"stored_path"`
	DocumentID string `json:"document_id,omitempty"`
	ChunkCount int    `json:"chunk_count,omitempty"`
}

// Validate checks the request shape before any model call
func (r *Request) Validate() *errx.Error {
	if len(r.Messages) == 0 {
		return errorRegistry.New(ErrEmptyMessages)
	}
	for i, msg := range r.Messages {
		switch msg.Role {
		case string(llm.RoleSystem), string(llm.RoleUser), string(llm.RoleAssistant):
		default:
			return errorRegistry.New(ErrUnsupportedRole).WithDetail("index", i).WithDetail("role", msg.Role)
		}
		if msg.Content == "" {
			return errorRegistry.NewWithMessage(ErrInvalidRequest, "message content must not be empty").WithDetail("index", i)
		}
	}
	if r.Messages[len(r.Messages)-1].Role != string(llm.RoleUser) {
		return errorRegistry.New(ErrLastNotUser)
	}
	return nil
}

func (r *Request) useTools() bool {
	if r.UseTools == nil {
		return true
	}
	return *r.UseTools
}

func (r *Request) historyLimit() int {
	if r.MaxHistoryMessages <= 0 {
		return DefaultMaxHistoryMessages
	}
	return r.MaxHistoryMessages
}

// systemPrompt resolves the turn's system prompt. The explicit
// system_prompt field wins over a system message carried in Messages,
// which wins over the server-side fallback.
func (r *Request) systemPrompt(fallback string) string {
	if r.SystemPrompt != "" {
		return r.SystemPrompt
	}
	for _, msg := range r.Messages {
		if msg.Role == string(llm.RoleSystem) {
			return msg.Content
		}
	}
	if fallback != "" {
		return fallback
	}
	return DefaultSystemPrompt
}

// userQuery returns the text of the newest user message
func (r *Request) userQuery() string {
	for i := len(r.Messages) - 1; i >= 0; i-- {
		if r.Messages[i].Role == string(llm.RoleUser) {
			return r.Messages[i].Content
		}
	}
	return ""
}

// history converts the trimmed message window to LLM messages. System
// messages are folded into the turn's system prompt, not the window.
func (r *Request) history() []llm.Message {
	window := make([]IncomingMessage, 0, len(r.Messages))
	for _, msg := range r.Messages {
		if msg.Role == string(llm.RoleSystem) {
			continue
		}
		window = append(window, msg)
	}
	if limit := r.historyLimit(); len(window) > limit {
		window = window[len(window)-limit:]
	}

	messages := make([]llm.Message, 0, len(window))
	for _, msg := range window {
		switch msg.Role {
		case string(llm.RoleAssistant):
			messages = append(messages, llm.NewAssistantMessage(msg.Content))
		default:
			messages = append(messages, llm.NewUserMessage(msg.Content))
		}
	}
	return messages
}
