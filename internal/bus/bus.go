// Package bus implements the command fan-in bus described in §4.9: a
// multi-producer, single-consumer-per-session broadcast that never blocks
// its producers. Modeled on the teacher's internal/hub broadcast pattern,
// narrowed from "many simultaneous clients" to "at most one attached
// session at a time" per this module's one-plugin-at-a-time constraint.
package bus

import (
	"sync"

	"github.com/driftwoodav/obsbridge/internal/logging"
	"github.com/driftwoodav/obsbridge/internal/metrics"
)

// MinBuffer is the minimum buffered capacity a Subscriber channel must have
// (§4.9: "bounded buffering (≥64)").
const MinBuffer = 64

// SwitchScene is the one imperative command surface into the bus (§6).
// Callers are expected to clamp DeadlineMs to [50, 5000]; the bus and the
// session loop do not re-clamp it.
type SwitchScene struct {
	SceneName  string
	Reason     string
	DeadlineMs uint32
}

// Subscriber is the receive side a session loop attaches for its lifetime.
type Subscriber struct {
	Out chan SwitchScene
}

// Bus holds at most one active Subscriber, matching the one-session-at-a-
// time model; Attach replaces whatever was attached before.
type Bus struct {
	mu         sync.RWMutex
	subscriber *Subscriber
	bufSize    int
}

// New returns a Bus whose Subscriber channels are sized bufSize (at least
// MinBuffer).
func New(bufSize int) *Bus {
	if bufSize < MinBuffer {
		bufSize = MinBuffer
	}
	return &Bus{bufSize: bufSize}
}

// Attach creates and installs a fresh Subscriber, discarding any prior one.
func (b *Bus) Attach() *Subscriber {
	sub := &Subscriber{Out: make(chan SwitchScene, b.bufSize)}
	b.mu.Lock()
	b.subscriber = sub
	b.mu.Unlock()
	return sub
}

// Detach removes sub if it is still the active subscriber (a no-op if a
// later session has already replaced it).
func (b *Bus) Detach(sub *Subscriber) {
	b.mu.Lock()
	if b.subscriber == sub {
		b.subscriber = nil
	}
	b.mu.Unlock()
}

// Send delivers cmd to the attached subscriber, if any, without blocking.
// It returns the number of subscribers the command was delivered to: 0 if
// no session is attached (a pure no-op, per §4.9) or if the attached
// session's queue is full (dropped, logged as a warning), 1 otherwise.
func (b *Bus) Send(cmd SwitchScene) int {
	b.mu.RLock()
	sub := b.subscriber
	b.mu.RUnlock()
	if sub == nil {
		return 0
	}
	select {
	case sub.Out <- cmd:
		return 1
	default:
		logging.L().Warn("bus_drop_slow_consumer", "scene_name", cmd.SceneName)
		metrics.IncBusCommandDrop()
		return 0
	}
}
