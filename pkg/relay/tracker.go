package relay

import (
	"encoding/json"

	"github.com/relay-labs/chatrelay/pkg/errx"
)

// InvocationStatus is the lifecycle state of one tracked tool call
type InvocationStatus string

const (
	StatusPending InvocationStatus = "pending"
	StatusDone    InvocationStatus = "done"
	StatusFailed  InvocationStatus = "failed"
)

// ToolInvocation is one tracked tool call within a turn. Identity is
// (tool name, registration order); the agent layer carries no correlation id.
type ToolInvocation struct {
	Tool   string
	Input  json.RawMessage
	Status InvocationStatus
	Output json.RawMessage
}

// Tracker tracks tool invocation lifecycles for exactly one turn. It is
// owned by the orchestrator driving that turn and is not safe for
// concurrent use; turns share no state.
type Tracker struct {
	invocations []*ToolInvocation
}

// NewTracker creates an empty tracker for one turn
func NewTracker() *Tracker {
	return &Tracker{}
}

// Register opens a pending invocation. Registering while an earlier call
// for the same tool is still pending queues this one after it (FIFO);
// results are matched oldest-first.
func (t *Tracker) Register(tool string, input json.RawMessage) *ToolInvocation {
	inv := &ToolInvocation{
		Tool:   tool,
		Input:  input,
		Status: StatusPending,
	}
	t.invocations = append(t.invocations, inv)
	return inv
}

// OldestPending returns the oldest pending invocation for tool
func (t *Tracker) OldestPending(tool string) (*ToolInvocation, bool) {
	for _, inv := range t.invocations {
		if inv.Tool == tool && inv.Status == StatusPending {
			return inv, true
		}
	}
	return nil, false
}

// Complete transitions the oldest pending invocation for tool to done and
// attaches the output. An unmatched result is a protocol violation, fatal
// to the turn.
func (t *Tracker) Complete(tool string, output json.RawMessage) *errx.Error {
	return t.close(tool, output, StatusDone)
}

// Fail transitions the oldest pending invocation for tool to failed. The
// turn keeps going; the failure travels to the client as a tool_result.
func (t *Tracker) Fail(tool string, output json.RawMessage) *errx.Error {
	return t.close(tool, output, StatusFailed)
}

func (t *Tracker) close(tool string, output json.RawMessage, status InvocationStatus) *errx.Error {
	inv, ok := t.OldestPending(tool)
	if !ok {
		return errorRegistry.New(ErrUnmatchedResult).WithDetail("tool", tool)
	}
	inv.Status = status
	inv.Output = output
	return nil
}

// Pending reports how many invocations are still open
func (t *Tracker) Pending() int {
	n := 0
	for _, inv := range t.invocations {
		if inv.Status == StatusPending {
			n++
		}
	}
	return n
}

// Released reports whether the tracker holds no turn state
func (t *Tracker) Released() bool {
	return t.invocations == nil
}

// Release drops all state for the turn
func (t *Tracker) Release() {
	t.invocations = nil
}
