// Package debugmirror implements the lock-protected operator-visible
// session state described in §4.10. Modeled on the teacher's
// metrics.Snap() copy-under-lock pattern, narrowed to the fields this
// module names.
package debugmirror

import "sync"

// SwitchRequest describes the most recently emitted switch_scene command.
type SwitchRequest struct {
	RequestID string
	SceneName string
}

// SwitchResult describes the terminal outcome of a pending switch: "ok",
// "error", "timeout", or "unknown_request".
type SwitchResult struct {
	RequestID string
	Status    string
	Error     string
}

// State is the cloned-under-lock snapshot returned by Mirror.Snapshot.
type State struct {
	SessionConnected  bool
	PendingSwitchCount int
	LastSwitchRequest *SwitchRequest
	LastSwitchResult  *SwitchResult
	LastNotice        string
	UpdatedAtUnixMs   uint64
}

// Mirror is updated by the session loop only; readers (an HTTP introspection
// endpoint) clone it under the lock.
type Mirror struct {
	mu    sync.Mutex
	state State
	now   func() uint64
}

// New returns an empty Mirror. now supplies the updated_ts_unix_ms stamp
// (injectable for tests); nil uses wall-clock milliseconds.
func New(now func() uint64) *Mirror {
	if now == nil {
		now = defaultNow
	}
	return &Mirror{now: now}
}

func (m *Mirror) update(fn func(*State)) {
	m.mu.Lock()
	fn(&m.state)
	m.state.UpdatedAtUnixMs = m.now()
	m.mu.Unlock()
}

// SetConnected marks the session as attached or cleared. Clearing resets
// PendingSwitchCount to zero per §4.8.
func (m *Mirror) SetConnected(connected bool) {
	m.update(func(s *State) {
		s.SessionConnected = connected
		if !connected {
			s.PendingSwitchCount = 0
		}
	})
}

// SetPendingSwitchCount records the current size of the pending table.
func (m *Mirror) SetPendingSwitchCount(n int) {
	m.update(func(s *State) { s.PendingSwitchCount = n })
}

// SetLastSwitchRequest records the most recently emitted switch_scene.
func (m *Mirror) SetLastSwitchRequest(requestID, sceneName string) {
	m.update(func(s *State) {
		s.LastSwitchRequest = &SwitchRequest{RequestID: requestID, SceneName: sceneName}
	})
}

// SetLastSwitchResult records the terminal outcome of a pending switch.
func (m *Mirror) SetLastSwitchResult(requestID, status, errText string) {
	m.update(func(s *State) {
		s.LastSwitchResult = &SwitchResult{RequestID: requestID, Status: status, Error: errText}
	})
}

// SetLastNotice records a human-readable note (e.g. an unknown-request
// warning) for operators.
func (m *Mirror) SetLastNotice(notice string) {
	m.update(func(s *State) { s.LastNotice = notice })
}

// Snapshot returns a copy of the current state.
func (m *Mirror) Snapshot() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}
