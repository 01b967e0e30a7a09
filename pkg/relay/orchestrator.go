package relay

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/google/uuid"

	"github.com/relay-labs/chatrelay/pkg/ai/evalx"
	"github.com/relay-labs/chatrelay/pkg/ai/llm/agentx"
	"github.com/relay-labs/chatrelay/pkg/errx"
	"github.com/relay-labs/chatrelay/pkg/logx"
)

// FrameWriter delivers one encoded frame to the client. A returned error
// means the client is gone; the turn stops silently.
type FrameWriter func(frame []byte) error

// Orchestrator drives generation turns: it consumes the agent's internal
// event sequence and emits the framed wire sequence in order. One Run call
// handles exactly one turn; turns share nothing but the scorer, which is
// read-only.
type Orchestrator struct {
	scorer *evalx.Evaluator
}

// NewOrchestrator creates an orchestrator. A nil scorer gets the default
// heuristic evaluator.
func NewOrchestrator(scorer *evalx.Evaluator) *Orchestrator {
	if scorer == nil {
		scorer = evalx.NewEvaluator()
	}
	return &Orchestrator{scorer: scorer}
}

// Run streams one turn. The meta frame goes out before any agent event is
// consumed; exactly one terminal frame (done or error) ends the sequence
// unless the client disconnects first, in which case emission stops with
// no terminal frame and all turn state is released.
func (o *Orchestrator) Run(ctx context.Context, userQuery string, events <-chan agentx.Event, write FrameWriter) {
	tracker := NewTracker()
	defer tracker.Release()

	o.runTurn(ctx, userQuery, tracker, events, write)
}

func (o *Orchestrator) runTurn(ctx context.Context, userQuery string, tracker *Tracker, events <-chan agentx.Event, write FrameWriter) {
	requestID := uuid.NewString()
	log := logx.WithField("request_id", requestID)

	emit := func(event StreamEvent) bool {
		if err := write(Encode(event)); err != nil {
			// Client disconnect is not an error condition; just stop
			log.WithError(err).Debug("write failed, stopping emission")
			return false
		}
		return true
	}

	if !emit(Meta(requestID)) {
		return
	}

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-events:
			if !ok {
				emit(Done())
				return
			}

			switch event.Type {
			case agentx.EventText:
				if event.Content == "" {
					continue
				}
				if !emit(Delta(event.Content)) {
					return
				}

			case agentx.EventToolCall:
				input := normalizePayload(event.ToolInput)
				tracker.Register(event.ToolName, input)
				if !emit(ToolStart(event.ToolName, input)) {
					return
				}

			case agentx.EventToolResult:
				output := normalizePayload(event.ToolOutput)

				var closeErr *errx.Error
				if event.Failed {
					// Tool failure is non-fatal: the error-shaped output
					// reaches the client as a regular tool_result
					closeErr = tracker.Fail(event.ToolName, output)
				} else {
					output = o.scoreOutput(ctx, searchQuery(tracker, event.ToolName, userQuery), output)
					closeErr = tracker.Complete(event.ToolName, output)
				}
				if closeErr != nil {
					log.WithError(closeErr).WithField("tool", event.ToolName).
						Error("relay protocol violation")
					emit(Error(closeErr.Message))
					return
				}

				if !emit(ToolResult(event.ToolName, output)) {
					return
				}

			case agentx.EventError:
				upstreamErr := errorRegistry.NewWithCause(ErrUpstreamFailure, event.Err)
				log.WithError(upstreamErr).Error("turn failed")
				emit(Error(errorMessage(event.Err)))
				return
			}
		}
	}
}

// Collect runs a turn to completion and returns the concatenated assistant
// text. Tool events are discarded in this mode; only deltas and the
// terminal condition matter.
func (o *Orchestrator) Collect(ctx context.Context, events <-chan agentx.Event) (string, error) {
	var reply strings.Builder

	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()

		case event, ok := <-events:
			if !ok {
				return reply.String(), nil
			}

			switch event.Type {
			case agentx.EventText:
				reply.WriteString(event.Content)
			case agentx.EventError:
				return "", errorRegistry.NewWithCause(ErrUpstreamFailure, event.Err)
			}
		}
	}
}

// scoreOutput attaches quality scores to search-shaped tool outputs and
// returns everything else untouched
func (o *Orchestrator) scoreOutput(ctx context.Context, query string, output json.RawMessage) json.RawMessage {
	var payload map[string]json.RawMessage
	if err := json.Unmarshal(output, &payload); err != nil {
		return output
	}

	raw, ok := payload["organic_results"]
	if !ok {
		return output
	}

	var items []evalx.Item
	if err := json.Unmarshal(raw, &items); err != nil {
		return output
	}
	if len(items) == 0 {
		return output
	}

	scored, err := json.Marshal(o.scorer.ScoreAll(ctx, query, items))
	if err != nil {
		return output
	}
	payload["organic_results"] = scored

	merged, err := json.Marshal(payload)
	if err != nil {
		return output
	}
	return merged
}

// searchQuery extracts the query the tool was invoked with, falling back to
// the user's message text
func searchQuery(tracker *Tracker, tool, fallback string) string {
	inv, ok := tracker.OldestPending(tool)
	if !ok {
		return fallback
	}

	var input struct {
		Q     string `json:"q"`
		Query string `json:"query"`
	}
	_ = json.Unmarshal(inv.Input, &input)

	if input.Q != "" {
		return input.Q
	}
	if input.Query != "" {
		return input.Query
	}
	return fallback
}

// normalizePayload ensures opaque tool payloads are valid JSON on the wire
func normalizePayload(s string) json.RawMessage {
	if s == "" {
		return json.RawMessage("{}")
	}
	if json.Valid([]byte(s)) {
		return json.RawMessage(s)
	}
	quoted, _ := json.Marshal(s)
	return quoted
}

func errorMessage(err error) string {
	if err == nil {
		return "internal error"
	}
	var customErr *errx.Error
	if errx.As(err, &customErr) {
		return customErr.Message
	}
	return err.Error()
}
