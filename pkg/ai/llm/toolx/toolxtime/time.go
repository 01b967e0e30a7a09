package toolxtime

import (
	"context"
	"encoding/json"
	"time"
)

const timeLayout = "2006-01-02 15:04:05 (Monday)"

// TimeTool reports the current date and time. It lets the model answer
// "what day is it" style questions and date-anchor its search queries.
type TimeTool struct {
	now func() time.Time
}

// NewTimeTool creates the tool using the system clock
func NewTimeTool() *TimeTool {
	return &TimeTool{now: time.Now}
}

// NewTimeToolWithClock creates the tool with an injected clock
func NewTimeToolWithClock(now func() time.Time) *TimeTool {
	return &TimeTool{now: now}
}

// Name implements toolx.Tool
func (t *TimeTool) Name() string { return "current_time" }

// Description implements toolx.Tool
func (t *TimeTool) Description() string {
	return "Get the current local date and time, including the weekday. " +
		"Takes no arguments."
}

// Parameters implements toolx.Tool
func (t *TimeTool) Parameters() any {
	return map[string]any{
		"type":       "object",
		"properties": map[string]any{},
	}
}

// Call implements toolx.Tool
func (t *TimeTool) Call(ctx context.Context, args json.RawMessage) (any, error) {
	return map[string]string{
		"current_time": t.now().Format(timeLayout),
	}, nil
}
