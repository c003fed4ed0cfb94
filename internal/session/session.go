// Package session implements the per-connection state machine described in
// §4.7 and §5: handshake, cooperative multiplexing of five event sources,
// heartbeat watchdog, and graceful or fault-driven termination. It is the
// largest single component of this module, modeled on the teacher's
// accept/handshake/IO loop shape (internal/server/server.go, reader.go,
// writer.go) collapsed from two goroutines per connection into the single
// cooperative task this specification requires (§9).
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"time"

	"github.com/google/uuid"

	"github.com/driftwoodav/obsbridge/internal/bus"
	"github.com/driftwoodav/obsbridge/internal/debugmirror"
	"github.com/driftwoodav/obsbridge/internal/errtracker"
	"github.com/driftwoodav/obsbridge/internal/logging"
	"github.com/driftwoodav/obsbridge/internal/metrics"
	"github.com/driftwoodav/obsbridge/internal/overrides"
	"github.com/driftwoodav/obsbridge/internal/pending"
	"github.com/driftwoodav/obsbridge/internal/relay"
	"github.com/driftwoodav/obsbridge/internal/snapshot"
	"github.com/driftwoodav/obsbridge/internal/telemetry"
	"github.com/driftwoodav/obsbridge/internal/wire"
)

// Core capabilities advertised in hello_ack. Fixed per §4.7 / §9 Open
// Questions: the source does not describe a negotiation protocol.
var Capabilities = []string{"state_machine", "aegis", "ipc_stub"}

// Production timeouts (§5). Callers building a test harness use the
// corresponding *Test constants instead.
const (
	ProdReadPollTimeout   = 250 * time.Millisecond
	ProdPushInterval      = 1000 * time.Millisecond
	ProdHeartbeatTimeout  = 3500 * time.Millisecond
	TestReadPollTimeout   = 25 * time.Millisecond
	TestPushInterval      = 100 * time.Millisecond
	TestHeartbeatTimeout  = 350 * time.Millisecond
)

type state int

const (
	stateAwaitHello state = iota
	stateRunning
	stateTerminated
)

// deadlineReader is the read half of the cmd channel: an io.Reader that
// also supports a rolling read deadline, the poll mechanism §5 describes as
// "the only suspension points inside the loop". net.Conn (TCP, unix
// sockets, net.Pipe) satisfies this; so would a Windows named-pipe handle
// wrapped accordingly.
type deadlineReader interface {
	io.Reader
	SetReadDeadline(t time.Time) error
}

// Config wires a Session to its collaborators and timing.
type Config struct {
	CmdReader deadlineReader // plugin -> core
	EvtWriter io.Writer      // core -> plugin

	Bus       *bus.Bus
	Mirror    *debugmirror.Mirror
	Telemetry *telemetry.Cell
	Relay     *relay.Mirror

	CoreVersion string
	Logger      *slog.Logger

	ReadPollTimeout  time.Duration
	PushInterval     time.Duration
	HeartbeatTimeout time.Duration
	HandshakeTimeout time.Duration // 0 disables the handshake deadline

	// now and newID are overridable for deterministic tests; nil uses
	// time.Now and a random UUID respectively.
	now   func() time.Time
	newID func() string
}

func (c *Config) resolve() {
	if c.ReadPollTimeout <= 0 {
		c.ReadPollTimeout = ProdReadPollTimeout
	}
	if c.PushInterval <= 0 {
		c.PushInterval = ProdPushInterval
	}
	if c.HeartbeatTimeout <= 0 {
		c.HeartbeatTimeout = ProdHeartbeatTimeout
	}
	if c.Logger == nil {
		c.Logger = logging.L()
	}
	if c.now == nil {
		c.now = time.Now
	}
	if c.newID == nil {
		c.newID = func() string { return uuid.New().String() }
	}
	if c.CoreVersion == "" {
		c.CoreVersion = "0.0.0"
	}
}

// Session runs one accept-to-close lifetime, per the Session glossary entry.
type Session struct {
	cfg    Config
	codec  wire.Codec
	sub    *bus.Subscriber
	pend   *pending.Table
	ovr    *overrides.Overrides
	track  *errtracker.Tracker
	state  state
	lastPing time.Time
	lastPush time.Time
	started  time.Time
	log      *slog.Logger
}

// New constructs a Session ready to Run. Session-scoped entities (pending
// table, overrides, heartbeat timers, error tracker) are created here and
// discarded when Run returns, per §3 "Lifecycles".
func New(cfg Config) *Session {
	cfg.resolve()
	return &Session{
		cfg:   cfg,
		pend:  pending.New(),
		ovr:   overrides.New(),
		track: errtracker.New(),
		log:   cfg.Logger,
	}
}

// Run drives the session to completion: AwaitHello -> Running ->
// Terminated. It returns nil on any clean or policy-driven termination
// (peer close, heartbeat timeout, protocol reset, obs_shutdown_notice,
// version mismatch) and a non-nil error only for unexpected write-side
// transport failures worth logging upstream.
func (s *Session) Run(ctx context.Context) error {
	s.sub = s.cfg.Bus.Attach()
	defer s.cfg.Bus.Detach(s.sub)
	s.cfg.Mirror.SetConnected(true)
	defer s.cfg.Mirror.SetConnected(false)
	metrics.IncSessionAccepted()
	metrics.SetSessionActive(true)
	defer metrics.SetSessionActive(false)

	s.state = stateAwaitHello
	s.started = s.cfg.now()

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		if terminate, err := s.drainCommands(); terminate {
			return err
		}

		s.sweepTimeouts()
		if s.state == stateTerminated {
			return nil
		}

		if s.state == stateRunning {
			if err := s.maybePushStatus(); err != nil {
				return err
			}
			if s.state == stateTerminated {
				return nil
			}
		}

		if s.state == stateRunning && s.checkHeartbeat() {
			return nil
		}

		if s.state == stateAwaitHello && s.cfg.HandshakeTimeout > 0 &&
			s.cfg.now().Sub(s.started) >= s.cfg.HandshakeTimeout {
			return nil
		}

		terminate, err := s.readOnce()
		if terminate {
			return err
		}
	}
}

// drainCommands services event source 1 (§4.7): a non-blocking sweep of the
// fan-in bus. Commands arriving while AwaitHello are discarded, never
// buffered across the handshake.
func (s *Session) drainCommands() (terminate bool, err error) {
	for {
		select {
		case cmd := <-s.sub.Out:
			if s.state != stateRunning {
				continue
			}
			if werr := s.handleSwitchScene(cmd); werr != nil {
				return true, werr
			}
		default:
			return false, nil
		}
	}
}

func (s *Session) handleSwitchScene(cmd bus.SwitchScene) error {
	reqID := s.cfg.newID()
	env := s.makeEnvelope(wire.TypeSwitchScene, wire.PriorityCritical, wire.SwitchScenePayload{
		RequestID:  reqID,
		SceneName:  cmd.SceneName,
		Reason:     cmd.Reason,
		DeadlineMs: cmd.DeadlineMs,
	})
	if err := s.writeEnvelope(env); err != nil {
		return err
	}
	s.pend.Insert(reqID, cmd.SceneName, s.cfg.now().Add(time.Duration(cmd.DeadlineMs)*time.Millisecond))
	s.cfg.Mirror.SetPendingSwitchCount(s.pend.Len())
	s.cfg.Mirror.SetLastSwitchRequest(reqID, cmd.SceneName)
	return nil
}

// sweepTimeouts services event source 2 (§4.7): expired pending switches are
// removed and reported before the next inbound read attempt, so a
// concurrently arriving ack cannot match an already-removed entry.
func (s *Session) sweepTimeouts() {
	if s.state != stateRunning {
		return
	}
	for _, expired := range s.pend.SweepExpired(s.cfg.now()) {
		msg := fmt.Sprintf("switch_scene to %q timed out (request %s)", expired.Switch.SceneName, expired.RequestID)
		env := s.makeEnvelope(wire.TypeUserNotice, wire.PriorityHigh, wire.UserNoticePayload{Level: "warn", Message: msg})
		if err := s.writeEnvelope(env); err != nil {
			s.state = stateTerminated
			return
		}
		s.cfg.Mirror.SetPendingSwitchCount(s.pend.Len())
		s.cfg.Mirror.SetLastSwitchResult(expired.RequestID, "timeout", "")
		metrics.IncSwitchSceneTimeout()
	}
}

// maybePushStatus services event source 3 (§4.7).
func (s *Session) maybePushStatus() error {
	if s.cfg.now().Sub(s.lastPush) < s.cfg.PushInterval {
		return nil
	}
	env := s.makeEnvelope(wire.TypeStatusSnapshot, wire.PriorityNormal, s.buildSnapshot())
	if err := s.writeEnvelope(env); err != nil {
		s.state = stateTerminated
		return err
	}
	s.lastPush = s.cfg.now()
	return nil
}

// checkHeartbeat services event source 4 (§4.7).
func (s *Session) checkHeartbeat() bool {
	if s.cfg.now().Sub(s.lastPing) < s.cfg.HeartbeatTimeout {
		return false
	}
	env := s.makeEnvelope(wire.TypeProtocolError, wire.PriorityHigh, wire.ProtocolErrorPayload{
		Code: wire.CodeTimeout, Message: "heartbeat timeout",
	})
	metrics.IncProtocolError(wire.CodeTimeout)
	_ = s.writeEnvelope(env) // best effort; we are terminating regardless
	metrics.IncHeartbeatTimeout()
	s.state = stateTerminated
	return true
}

func (s *Session) buildSnapshot() wire.StatusSnapshotPayload {
	frame, _ := s.cfg.Telemetry.Load()
	var rs *relay.Session
	if s.cfg.Relay != nil {
		rs = s.cfg.Relay.Get()
	}
	return snapshot.Build(frame, rs, s.ovr)
}

func (s *Session) makeEnvelope(msgType string, priority wire.Priority, payload interface{}) *wire.Envelope {
	return &wire.Envelope{
		Version:     wire.ProtocolVersion,
		ID:          s.cfg.newID(),
		TimestampMs: uint64(s.cfg.now().UnixMilli()),
		Type:        msgType,
		Priority:    priority,
		Payload:     payload,
	}
}

func (s *Session) writeEnvelope(env *wire.Envelope) error {
	if err := s.codec.WriteEnvelope(s.cfg.EvtWriter, env); err != nil {
		s.log.Warn("evt_write_failed", "type", env.Type, "error", err)
		metrics.IncError(metrics.ErrEvtWrite)
		return err
	}
	metrics.IncEvtSent()
	return nil
}

// isTimeout reports whether err is a read-deadline expiry rather than a
// genuine transport fault: any error whose chain holds a net.Error reporting
// Timeout() (os.ErrDeadlineExceeded is one), or context.DeadlineExceeded.
func isTimeout(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}
