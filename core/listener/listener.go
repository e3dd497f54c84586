// Package listener owns the bound server socket.
//
// The TCP implementation can be woken out of a blocked Accept without
// closing the socket, which is what lets the server interrupt and later
// resume on the same bound address.
package listener

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"golang.org/x/net/netutil"
)

var (
	// ErrBind reports that the address is invalid or already in use
	ErrBind = errors.New("bind failed")

	// ErrNotOpen reports an Accept on a listener that was never opened
	ErrNotOpen = errors.New("listener not open")
)

// Listener is the bound-socket capability the server runs on. Implementations
// other than TCP (unix sockets, in-memory test listeners) can be substituted
// without touching the rest of the engine.
type Listener interface {
	// Open binds and starts listening. Opening an already-open listener is a
	// no-op that also clears any pending wake deadline.
	Open() error

	// Accept blocks until a connection arrives or the listener is woken,
	// closed, or fails.
	Accept() (net.Conn, error)

	// Wake unblocks a pending Accept without closing the socket. The woken
	// Accept returns a timeout error recognized by IsWake.
	Wake()

	// Close releases the socket. Idempotent.
	Close() error

	// Addr returns the bound address, or nil before Open.
	Addr() net.Addr
}

// TCP listens on a TCP address. The socket is opened with SO_REUSEADDR so a
// restarted process can rebind immediately, and accepted connections can be
// capped so a flood cannot exhaust descriptors.
type TCP struct {
	address  string
	maxConns int

	mu  sync.Mutex
	tcp *net.TCPListener // deadline control
	ln  net.Listener     // accept path, possibly connection-capped
}

// NewTCP creates an unbound TCP listener for the given address. An empty host
// ("" or ":8080") binds all interfaces. maxConns <= 0 means uncapped.
func NewTCP(address string, maxConns int) *TCP {
	return &TCP{
		address:  address,
		maxConns: maxConns,
	}
}

// Open binds the socket and begins listening
func (l *TCP) Open() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.ln != nil {
		// Already bound: a previous Wake may have left a deadline behind
		l.tcp.SetDeadline(time.Time{})
		return nil
	}

	lc := net.ListenConfig{Control: controlReuseAddr}
	ln, err := lc.Listen(context.Background(), "tcp", l.address)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrBind, l.address, err)
	}

	l.tcp = ln.(*net.TCPListener)
	if l.maxConns > 0 {
		l.ln = netutil.LimitListener(ln, l.maxConns)
	} else {
		l.ln = ln
	}
	return nil
}

// Accept blocks until a connection arrives
func (l *TCP) Accept() (net.Conn, error) {
	l.mu.Lock()
	ln := l.ln
	l.mu.Unlock()

	if ln == nil {
		return nil, ErrNotOpen
	}
	return ln.Accept()
}

// Wake unblocks a pending Accept by expiring its deadline
func (l *TCP) Wake() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.tcp != nil {
		l.tcp.SetDeadline(time.Now())
	}
}

// Close releases the socket. Safe to call more than once.
func (l *TCP) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.ln == nil {
		return nil
	}
	err := l.ln.Close()
	l.ln = nil
	l.tcp = nil
	return err
}

// Addr returns the bound address, or nil before Open
func (l *TCP) Addr() net.Addr {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.tcp == nil {
		return nil
	}
	return l.tcp.Addr()
}

// IsWake reports whether an Accept error came from Wake expiring the
// deadline rather than from a real failure.
func IsWake(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// IsClosed reports whether an Accept error came from the socket being closed
func IsClosed(err error) bool {
	return errors.Is(err, net.ErrClosed)
}
