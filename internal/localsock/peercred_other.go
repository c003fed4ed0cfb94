//go:build !linux

package localsock

import (
	"errors"
	"net"
)

// errNoPeerCred is returned on platforms where SO_PEERCRED has no
// equivalent in the retrieved example pack's dependency set (BSD/darwin
// use LOCAL_PEERCRED, not reachable from golang.org/x/sys/unix the same
// way; left unimplemented rather than faked).
var errNoPeerCred = errors.New("localsock: peer credential check unsupported on this platform")

func peerUID(conn *net.UnixConn) (uint32, error) {
	return 0, errNoPeerCred
}
