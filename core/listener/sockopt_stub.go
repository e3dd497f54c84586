//go:build !unix

package listener

import "syscall"

// SO_REUSEADDR tuning is unix-only; elsewhere the default socket options apply.
func controlReuseAddr(network, address string, c syscall.RawConn) error {
	return nil
}
