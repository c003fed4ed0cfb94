// Package listener implements the accept loop described in §4.8: one
// bi-simplex plugin session served at a time, each session running to
// completion before the next accept cycle begins. Modeled on the
// teacher's internal/server.Serve/acceptOnce shape, narrowed from "many
// concurrent TCP clients" to "exactly one session at a time" and from two
// long-lived reader/writer goroutines per connection to the single
// cooperative session.Run loop this module's protocol requires.
package listener

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/driftwoodav/obsbridge/internal/bus"
	"github.com/driftwoodav/obsbridge/internal/debugmirror"
	"github.com/driftwoodav/obsbridge/internal/localsock"
	"github.com/driftwoodav/obsbridge/internal/logging"
	"github.com/driftwoodav/obsbridge/internal/metrics"
	"github.com/driftwoodav/obsbridge/internal/relay"
	"github.com/driftwoodav/obsbridge/internal/session"
	"github.com/driftwoodav/obsbridge/internal/telemetry"
)

// Config wires a Serve loop to its socket names and collaborators.
type Config struct {
	CmdSocketPath string // plugin -> core
	EvtSocketPath string // core -> plugin

	Bus       *bus.Bus
	Mirror    *debugmirror.Mirror
	Telemetry *telemetry.Cell
	Relay     *relay.Mirror

	CoreVersion      string
	ReadPollTimeout  time.Duration
	PushInterval     time.Duration
	HeartbeatTimeout time.Duration
	HandshakeTimeout time.Duration

	Logger *slog.Logger
}

// Serve accepts connections on both sockets, pairs them, and runs sessions
// to completion one at a time until ctx is cancelled.
func Serve(ctx context.Context, cfg Config) error {
	log := cfg.Logger
	if log == nil {
		log = logging.L()
	}

	cmdLn, err := localsock.Listen(cfg.CmdSocketPath)
	if err != nil {
		return fmt.Errorf("listener: cmd socket: %w", err)
	}
	defer cmdLn.Close()

	evtLn, err := localsock.Listen(cfg.EvtSocketPath)
	if err != nil {
		return fmt.Errorf("listener: evt socket: %w", err)
	}
	defer evtLn.Close()

	go func() {
		<-ctx.Done()
		_ = cmdLn.Close()
		_ = evtLn.Close()
	}()

	log.Info("listener_ready", "cmd", cfg.CmdSocketPath, "evt", cfg.EvtSocketPath)

	for {
		if ctx.Err() != nil {
			return nil
		}
		cmdConn, evtConn, err := acceptPair(cmdLn, evtLn)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			log.Warn("accept_failed", "error", err)
			metrics.IncError(metrics.ErrAccept)
			continue
		}

		log.Info("session_accepted")
		sess := session.New(session.Config{
			CmdReader:        cmdConn,
			EvtWriter:        evtConn,
			Bus:              cfg.Bus,
			Mirror:           cfg.Mirror,
			Telemetry:        cfg.Telemetry,
			Relay:            cfg.Relay,
			CoreVersion:      cfg.CoreVersion,
			Logger:           log,
			ReadPollTimeout:  cfg.ReadPollTimeout,
			PushInterval:     cfg.PushInterval,
			HeartbeatTimeout: cfg.HeartbeatTimeout,
			HandshakeTimeout: cfg.HandshakeTimeout,
		})
		if runErr := sess.Run(ctx); runErr != nil {
			log.Warn("session_error", "error", runErr)
		}
		_ = cmdConn.Close()
		_ = evtConn.Close()
		log.Info("session_ended")
	}
}

// acceptPair waits for a connection on both listeners before returning,
// per §4.8 ("wait for the peer to connect both"). Either accept failing
// aborts the pairing.
func acceptPair(cmdLn, evtLn *localsock.Listener) (net.Conn, net.Conn, error) {
	type result struct {
		conn net.Conn
		err  error
	}
	cmdCh := make(chan result, 1)
	evtCh := make(chan result, 1)
	go func() { c, e := cmdLn.Accept(); cmdCh <- result{c, e} }()
	go func() { c, e := evtLn.Accept(); evtCh <- result{c, e} }()

	var cmdConn, evtConn net.Conn
	for cmdConn == nil || evtConn == nil {
		select {
		case r := <-cmdCh:
			if r.err != nil {
				return nil, nil, r.err
			}
			cmdConn = r.conn
		case r := <-evtCh:
			if r.err != nil {
				return nil, nil, r.err
			}
			evtConn = r.conn
		}
	}
	return cmdConn, evtConn, nil
}
