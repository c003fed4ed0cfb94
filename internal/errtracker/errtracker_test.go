package errtracker

import (
	"testing"
	"time"
)

func TestTracker_ResetsAtThreshold(t *testing.T) {
	tr := New()
	base := time.Now()
	var reset bool
	for i := 0; i < 5; i++ {
		reset = tr.Note(base.Add(time.Duration(i) * time.Millisecond))
		if reset {
			t.Fatalf("expected no reset before count exceeds threshold, failed at note %d", i)
		}
	}
	// The 6th error pushes the count to 6, which exceeds the threshold of 5.
	reset = tr.Note(base.Add(5 * time.Millisecond))
	if !reset {
		t.Fatalf("expected reset on the 6th error within the window")
	}
}

func TestTracker_TrimsOldEntries(t *testing.T) {
	tr := New()
	base := time.Now()
	for i := 0; i < 6; i++ {
		tr.Note(base.Add(time.Duration(i) * time.Millisecond))
	}
	// All entries age out after the window passes.
	reset := tr.Note(base.Add(Window + time.Second))
	if reset {
		t.Fatalf("expected old entries trimmed, no reset")
	}
	if tr.Count() != 1 {
		t.Fatalf("expected only the fresh entry to remain, got %d", tr.Count())
	}
}
