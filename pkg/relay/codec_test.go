package relay

import (
	"bytes"
	"encoding/json"
	"testing"
)

func sampleSequence() []StreamEvent {
	return []StreamEvent{
		Meta("req-123"),
		Delta("hello "),
		ToolStart("search", json.RawMessage(`{"q":"go tutorial"}`)),
		ToolResult("search", json.RawMessage(`{"total_results":2}`)),
		Delta("world"),
		Done(),
	}
}

func marshalAll(t *testing.T, events []StreamEvent) []string {
	t.Helper()
	out := make([]string, len(events))
	for i, event := range events {
		data, err := json.Marshal(event)
		if err != nil {
			t.Fatalf("marshal event %d: %v", i, err)
		}
		out[i] = string(data)
	}
	return out
}

func TestEncodeDecode_RoundTripUnderAnyChunking(t *testing.T) {
	sequence := sampleSequence()

	var wire bytes.Buffer
	for _, event := range sequence {
		wire.Write(Encode(event))
	}
	raw := wire.Bytes()

	want := marshalAll(t, sequence)

	for _, chunkSize := range []int{1, 2, 3, 5, 7, 16, len(raw)} {
		decoder := NewDecoder()
		var decoded []StreamEvent

		for start := 0; start < len(raw); start += chunkSize {
			end := start + chunkSize
			if end > len(raw) {
				end = len(raw)
			}
			decoded = append(decoded, decoder.Feed(raw[start:end])...)
		}

		got := marshalAll(t, decoded)
		if len(got) != len(want) {
			t.Fatalf("chunk size %d: expected %d events, got %d", chunkSize, len(want), len(got))
		}
		for i := range want {
			if got[i] != want[i] {
				t.Fatalf("chunk size %d: event %d differs:\n got %s\nwant %s",
					chunkSize, i, got[i], want[i])
			}
		}
	}
}

func TestEncode_FrameShape(t *testing.T) {
	frame := Encode(Delta("hi"))

	if !bytes.HasPrefix(frame, []byte("event: message\ndata: ")) {
		t.Fatalf("unexpected frame prefix: %q", frame)
	}
	if !bytes.HasSuffix(frame, []byte("\n\n")) {
		t.Fatalf("frame must end with a blank line: %q", frame)
	}

	payload := bytes.TrimSuffix(bytes.TrimPrefix(frame, []byte("event: message\ndata: ")), []byte("\n\n"))
	if string(payload) != `{"type":"delta","content":"hi"}` {
		t.Fatalf("unexpected payload: %s", payload)
	}
}

func TestDecoder_MalformedRecordDroppedSilently(t *testing.T) {
	decoder := NewDecoder()

	var wire bytes.Buffer
	wire.Write(Encode(Delta("ok")))
	wire.WriteString("event: message\ndata: not json at all\n\n")
	wire.WriteString("event: message\nretry: 3000\n\n") // no data line
	wire.Write(Encode(Done()))

	events := decoder.Feed(wire.Bytes())
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d: %+v", len(events), events)
	}
	if events[0].Type != EventDelta || events[1].Type != EventDone {
		t.Fatalf("unexpected events: %+v", events)
	}
}

func TestDecoder_CarriesPartialFrameAcrossFeeds(t *testing.T) {
	decoder := NewDecoder()
	frame := Encode(Delta("split"))

	if events := decoder.Feed(frame[:len(frame)-3]); len(events) != 0 {
		t.Fatalf("incomplete frame must not decode, got %+v", events)
	}

	events := decoder.Feed(frame[len(frame)-3:])
	if len(events) != 1 || events[0].Content != "split" {
		t.Fatalf("expected the completed delta, got %+v", events)
	}
}
