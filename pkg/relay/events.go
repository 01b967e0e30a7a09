package relay

import "encoding/json"

// EventType tags a wire stream event
type EventType string

const (
	// EventMeta carries the request id; at most once, first in the sequence
	EventMeta EventType = "meta"

	// EventDelta is an incremental fragment of assistant text
	EventDelta EventType = "delta"

	// EventToolStart opens one tracked tool invocation
	EventToolStart EventType = "tool_start"

	// EventToolResult closes the oldest open invocation for the tool
	EventToolResult EventType = "tool_result"

	// EventDone terminates the turn successfully; exactly one terminal
	// frame per turn, Done or Error
	EventDone EventType = "done"

	// EventError terminates the turn on failure; nothing follows it
	EventError EventType = "error"
)

// StreamEvent is the frame payload sent to the client. Only the fields of
// the tagged variant are populated; everything else is omitted on the wire.
type StreamEvent struct {
	Type      EventType       `json:"type"`
	RequestID string          `json:"request_id,omitempty"`
	Content   string          `json:"content,omitempty"`
	Tool      string          `json:"tool,omitempty"`
	Input     json.RawMessage `json:"input,omitempty"`
	Output    json.RawMessage `json:"output,omitempty"`
	Message   string          `json:"message,omitempty"`
}

// Meta builds the turn-opening frame
func Meta(requestID string) StreamEvent {
	return StreamEvent{Type: EventMeta, RequestID: requestID}
}

// Delta builds a text fragment frame
func Delta(content string) StreamEvent {
	return StreamEvent{Type: EventDelta, Content: content}
}

// ToolStart builds a tool invocation frame
func ToolStart(tool string, input json.RawMessage) StreamEvent {
	return StreamEvent{Type: EventToolStart, Tool: tool, Input: input}
}

// ToolResult builds a tool completion frame
func ToolResult(tool string, output json.RawMessage) StreamEvent {
	return StreamEvent{Type: EventToolResult, Tool: tool, Output: output}
}

// Done builds the terminal success frame
func Done() StreamEvent {
	return StreamEvent{Type: EventDone}
}

// Error builds the terminal failure frame
func Error(message string) StreamEvent {
	return StreamEvent{Type: EventError, Message: message}
}
