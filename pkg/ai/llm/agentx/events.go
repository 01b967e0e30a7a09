package agentx

// EventType identifies what kind of event is being emitted
type EventType string

const (
	// EventText is a chunk of LLM response text
	EventText EventType = "text"

	// EventToolCall fires when the agent decides to call a tool (before execution)
	EventToolCall EventType = "tool_call"

	// EventToolResult fires after a tool has executed and returned a result
	EventToolResult EventType = "tool_result"

	// EventError fires when the loop cannot continue
	EventError EventType = "error"
)

// Event is the structured payload emitted on every loop tick
type Event struct {
	Type EventType

	// EventText: the incremental text chunk from the LLM
	Content string

	// EventToolCall / EventToolResult
	ToolCallID string
	ToolName   string

	// EventToolCall: raw JSON arguments the LLM sent to the tool
	ToolInput string

	// EventToolResult: serialised result returned by the tool. When Failed
	// is true the output is an error-shaped JSON object and the loop keeps
	// going; the model sees the failure and can react to it.
	ToolOutput string
	Failed     bool

	// EventError
	Err error
}
