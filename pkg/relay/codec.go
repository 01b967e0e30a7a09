package relay

import (
	"bytes"
	"encoding/json"
)

var (
	eventLabel     = []byte("event: message\n")
	dataPrefix     = []byte("data: ")
	frameDelimiter = []byte("\n\n")
)

// Encode serializes one event into an SSE frame:
//
//	event: message
//	data: <json>
//	<blank line>
//
// Encoding is total: StreamEvent always marshals.
func Encode(event StreamEvent) []byte {
	data, _ := json.Marshal(event)

	frame := make([]byte, 0, len(eventLabel)+len(dataPrefix)+len(data)+len(frameDelimiter))
	frame = append(frame, eventLabel...)
	frame = append(frame, dataPrefix...)
	frame = append(frame, data...)
	frame = append(frame, frameDelimiter...)
	return frame
}

// Decoder reassembles events from a byte stream split at arbitrary chunk
// boundaries. Records whose data payload does not parse are dropped
// silently.
type Decoder struct {
	carry []byte
}

// NewDecoder creates an empty decoder
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Feed appends a chunk and returns every event completed by it, in order.
// Feeding the same byte stream under any chunking yields the same events.
func (d *Decoder) Feed(chunk []byte) []StreamEvent {
	d.carry = append(d.carry, chunk...)

	var events []StreamEvent
	for {
		idx := bytes.Index(d.carry, frameDelimiter)
		if idx < 0 {
			return events
		}

		record := d.carry[:idx]
		d.carry = d.carry[idx+len(frameDelimiter):]

		if event, ok := decodeRecord(record); ok {
			events = append(events, event)
		}
	}
}

// decodeRecord extracts the data line of one record and parses it
func decodeRecord(record []byte) (StreamEvent, bool) {
	for _, line := range bytes.Split(record, []byte("\n")) {
		data, ok := bytes.CutPrefix(line, dataPrefix)
		if !ok {
			continue
		}

		var event StreamEvent
		if err := json.Unmarshal(data, &event); err != nil {
			return StreamEvent{}, false
		}
		if event.Type == "" {
			return StreamEvent{}, false
		}
		return event, true
	}
	return StreamEvent{}, false
}
