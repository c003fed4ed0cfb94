package bus

import "testing"

func TestBus_SendWithNoSubscriberIsNoop(t *testing.T) {
	b := New(MinBuffer)
	if n := b.Send(SwitchScene{SceneName: "BRB"}); n != 0 {
		t.Fatalf("expected 0 deliveries with no subscriber, got %d", n)
	}
}

func TestBus_AttachDeliversAndDetachStops(t *testing.T) {
	b := New(MinBuffer)
	sub := b.Attach()
	if n := b.Send(SwitchScene{SceneName: "BRB"}); n != 1 {
		t.Fatalf("expected 1 delivery, got %d", n)
	}
	select {
	case cmd := <-sub.Out:
		if cmd.SceneName != "BRB" {
			t.Fatalf("unexpected command: %+v", cmd)
		}
	default:
		t.Fatalf("expected a queued command")
	}

	b.Detach(sub)
	if n := b.Send(SwitchScene{SceneName: "Starting"}); n != 0 {
		t.Fatalf("expected no deliveries after detach, got %d", n)
	}
}

func TestBus_DropDoesNotBlockProducer(t *testing.T) {
	b := New(MinBuffer)
	sub := b.Attach()
	for i := 0; i < MinBuffer; i++ {
		b.Send(SwitchScene{SceneName: "BRB"})
	}
	// Queue is now full; this send must drop rather than block.
	if n := b.Send(SwitchScene{SceneName: "Overflow"}); n != 0 {
		t.Fatalf("expected drop once queue is full, got %d", n)
	}
	if len(sub.Out) != cap(sub.Out) {
		t.Fatalf("expected full buffer, len=%d cap=%d", len(sub.Out), cap(sub.Out))
	}
}

func TestBus_AttachReplacesPriorSubscriber(t *testing.T) {
	b := New(MinBuffer)
	first := b.Attach()
	second := b.Attach()
	b.Send(SwitchScene{SceneName: "BRB"})
	select {
	case <-first.Out:
		t.Fatalf("did not expect the replaced subscriber to receive anything")
	default:
	}
	select {
	case <-second.Out:
	default:
		t.Fatalf("expected the current subscriber to receive the command")
	}
}
