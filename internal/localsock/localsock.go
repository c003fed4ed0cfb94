// Package localsock implements the Unix-domain-socket half of the local
// transport described in §6/§4.15: a listener whose socket file is created
// with mode 0600 and whose accepted connections are rejected unless the
// connecting peer's effective UID matches this process's own, mirroring
// the build-tag split internal/socketcan/device.go uses for its
// Linux-specific syscalls.
package localsock

import (
	"fmt"
	"net"
	"os"

	"github.com/driftwoodav/obsbridge/internal/logging"
	"github.com/driftwoodav/obsbridge/internal/metrics"
)

// ErrPeerRejected names the refusal of a peer whose UID does not match this
// process's UID. Accept does not return it: a rejected connection is closed
// and Accept keeps waiting for the next one.
var ErrPeerRejected = fmt.Errorf("localsock: peer rejected by ACL")

// Listener wraps a Unix domain socket listener and enforces the peer-UID
// check on every accepted connection before handing it back to the caller.
type Listener struct {
	ln   *net.UnixListener
	path string
}

// Listen creates (or replaces) a Unix domain socket at path with mode 0600.
// A stale socket file left behind by a prior crashed process is removed
// first so re-binding doesn't fail with "address already in use".
func Listen(path string) (*Listener, error) {
	_ = os.Remove(path)
	addr, err := net.ResolveUnixAddr("unix", path)
	if err != nil {
		return nil, fmt.Errorf("localsock: resolve %q: %w", path, err)
	}
	ln, err := net.ListenUnix("unix", addr)
	if err != nil {
		return nil, fmt.Errorf("localsock: listen %q: %w", path, err)
	}
	if err := os.Chmod(path, 0o600); err != nil {
		_ = ln.Close()
		return nil, fmt.Errorf("localsock: chmod %q: %w", path, err)
	}
	return &Listener{ln: ln, path: path}, nil
}

// Accept blocks for the next connection, rejecting (closing, without
// handshake) any peer whose UID doesn't match ours.
func (l *Listener) Accept() (net.Conn, error) {
	for {
		conn, err := l.ln.AcceptUnix()
		if err != nil {
			return nil, err
		}
		uid, err := peerUID(conn)
		if err != nil || uid != uint32(os.Getuid()) {
			logging.L().Warn("peer_rejected", "path", l.path, "uid", uid, "error", err)
			metrics.IncError(metrics.ErrPeerReject)
			_ = conn.Close()
			continue
		}
		return conn, nil
	}
}

// Close closes the listener and removes the socket file.
func (l *Listener) Close() error {
	err := l.ln.Close()
	_ = os.Remove(l.path)
	return err
}

// Addr returns the socket path being listened on.
func (l *Listener) Addr() string { return l.path }
