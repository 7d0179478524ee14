//go:build !(linux || darwin || freebsd || netbsd || openbsd || dragonfly)

package discovery

import "syscall"

// reuseAddr is a no-op where SO_REUSEPORT is unavailable; only one client
// per host can listen for announcements.
func reuseAddr(_, _ string, _ syscall.RawConn) error {
	return nil
}
