package relay

import (
	"encoding/json"
	"testing"
)

func TestTracker_Lifecycle(t *testing.T) {
	tracker := NewTracker()

	inv := tracker.Register("search", json.RawMessage(`{"q":"golang"}`))
	if inv.Status != StatusPending {
		t.Fatalf("expected pending, got %s", inv.Status)
	}
	if tracker.Pending() != 1 {
		t.Fatalf("expected 1 pending, got %d", tracker.Pending())
	}

	if err := tracker.Complete("search", json.RawMessage(`{"ok":true}`)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inv.Status != StatusDone {
		t.Fatalf("expected done, got %s", inv.Status)
	}
	if tracker.Pending() != 0 {
		t.Fatalf("expected 0 pending, got %d", tracker.Pending())
	}
}

func TestTracker_SameToolMatchesOldestFirst(t *testing.T) {
	tracker := NewTracker()

	first := tracker.Register("search", json.RawMessage(`{"q":"first"}`))
	second := tracker.Register("search", json.RawMessage(`{"q":"second"}`))

	if err := tracker.Complete("search", json.RawMessage(`{"n":1}`)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if first.Status != StatusDone {
		t.Fatalf("oldest invocation should close first, got %s", first.Status)
	}
	if second.Status != StatusPending {
		t.Fatalf("newer invocation should still be pending, got %s", second.Status)
	}

	if err := tracker.Fail("search", json.RawMessage(`{"error":"timeout"}`)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if second.Status != StatusFailed {
		t.Fatalf("expected failed, got %s", second.Status)
	}
}

func TestTracker_UnmatchedResult(t *testing.T) {
	tracker := NewTracker()

	err := tracker.Complete("search", json.RawMessage(`{}`))
	if err == nil {
		t.Fatal("expected an error for an unmatched result")
	}
	if err.Code != ErrUnmatchedResult.Code {
		t.Fatalf("expected code %s, got %s", ErrUnmatchedResult.Code, err.Code)
	}

	// A closed invocation must not be matched again
	tracker.Register("time", nil)
	if err := tracker.Complete("time", nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := tracker.Complete("time", nil); err == nil {
		t.Fatal("expected an error for a second result on a closed invocation")
	}
}

func TestTracker_Release(t *testing.T) {
	tracker := NewTracker()
	tracker.Register("search", nil)

	if tracker.Released() {
		t.Fatal("tracker with live invocations must not report released")
	}

	tracker.Release()
	if !tracker.Released() {
		t.Fatal("expected released tracker")
	}
	if tracker.Pending() != 0 {
		t.Fatalf("released tracker must hold no state, got %d pending", tracker.Pending())
	}
}
