package pending

import (
	"testing"
	"time"
)

func TestTable_InsertRemove(t *testing.T) {
	tb := New()
	now := time.Now()
	tb.Insert("r1", "BRB", now.Add(time.Second))
	if tb.Len() != 1 {
		t.Fatalf("expected 1 entry, got %d", tb.Len())
	}
	sw, ok := tb.Remove("r1")
	if !ok || sw.SceneName != "BRB" {
		t.Fatalf("unexpected remove result: %+v ok=%v", sw, ok)
	}
	if tb.Len() != 0 {
		t.Fatalf("expected table empty after remove, got %d", tb.Len())
	}
}

func TestTable_RemoveUnknown(t *testing.T) {
	tb := New()
	_, ok := tb.Remove("missing")
	if ok {
		t.Fatalf("expected ok=false for unknown request id")
	}
}

func TestTable_SweepExpired(t *testing.T) {
	tb := New()
	now := time.Now()
	tb.Insert("expired", "BRB", now.Add(-time.Millisecond))
	tb.Insert("future", "Starting", now.Add(time.Hour))

	expired := tb.SweepExpired(now)
	if len(expired) != 1 || expired[0].RequestID != "expired" {
		t.Fatalf("unexpected sweep result: %+v", expired)
	}
	if tb.Len() != 1 {
		t.Fatalf("expected one entry left, got %d", tb.Len())
	}
}

func TestTable_SweepExpired_DeadlineEqualsNowExpires(t *testing.T) {
	tb := New()
	now := time.Now()
	tb.Insert("r1", "BRB", now)
	expired := tb.SweepExpired(now)
	if len(expired) != 1 {
		t.Fatalf("expected deadline == now to count as expired, got %d", len(expired))
	}
}

func TestTable_AckBeforeSweepWins(t *testing.T) {
	tb := New()
	now := time.Now()
	tb.Insert("r1", "BRB", now.Add(50*time.Millisecond))

	// Ack arrives first.
	sw, ok := tb.Remove("r1")
	if !ok || sw.SceneName != "BRB" {
		t.Fatalf("expected ack to find the pending entry")
	}

	// A subsequent sweep, even past the deadline, finds nothing left to expire.
	expired := tb.SweepExpired(now.Add(time.Second))
	if len(expired) != 0 {
		t.Fatalf("expected no expiries after the entry was already acked, got %d", len(expired))
	}
}
