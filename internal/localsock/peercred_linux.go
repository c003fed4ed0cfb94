//go:build linux

package localsock

import (
	"fmt"
	"net"

	"golang.org/x/sys/unix"
)

// peerUID reads the connecting peer's effective UID via SO_PEERCRED.
func peerUID(conn *net.UnixConn) (uint32, error) {
	raw, err := conn.SyscallConn()
	if err != nil {
		return 0, fmt.Errorf("localsock: syscall conn: %w", err)
	}
	var ucred *unix.Ucred
	var sockErr error
	ctrlErr := raw.Control(func(fd uintptr) {
		ucred, sockErr = unix.GetsockoptUcred(int(fd), unix.SOL_SOCKET, unix.SO_PEERCRED)
	})
	if ctrlErr != nil {
		return 0, fmt.Errorf("localsock: control: %w", ctrlErr)
	}
	if sockErr != nil {
		return 0, fmt.Errorf("localsock: getsockopt(SO_PEERCRED): %w", sockErr)
	}
	return ucred.Uid, nil
}
