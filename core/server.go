// Package core implements the server lifecycle and dispatch engine: the
// accept loop, the state machine governing run/interrupt/terminate, and the
// per-connection decode → dispatch → respond cycle.
package core

import (
	"errors"
	"io"
	"log"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/lightningtools/lightning/core/http"
	"github.com/lightningtools/lightning/core/listener"
	"github.com/lightningtools/lightning/core/observability"
	"github.com/lightningtools/lightning/core/pools"
	"github.com/lightningtools/lightning/core/router"
)

// State is the lifecycle state of a Server.
type State int32

const (
	StateCreated State = iota
	StateRunning
	StateInterrupted
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateRunning:
		return "running"
	case StateInterrupted:
		return "interrupted"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// Config carries server tunables. Zero values take the defaults below.
type Config struct {
	Addr           string // bind address; empty host binds all interfaces
	MaxConnections int    // cap on concurrently accepted connections, 0 = uncapped
	Workers        int    // worker pool size, 0 = NumCPU
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	DrainTimeout   time.Duration // how long interrupt/terminate wait for in-flight connections
	MaxHeaderBytes int
	MaxBodyBytes   int
}

// Defaults
const (
	DefaultReadTimeout  = 10 * time.Second
	DefaultWriteTimeout = 10 * time.Second
	DefaultDrainTimeout = 30 * time.Second
)

func (c Config) withDefaults() Config {
	if c.ReadTimeout == 0 {
		c.ReadTimeout = DefaultReadTimeout
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = DefaultWriteTimeout
	}
	if c.DrainTimeout == 0 {
		c.DrainTimeout = DefaultDrainTimeout
	}
	if c.MaxHeaderBytes == 0 {
		c.MaxHeaderBytes = http.DefaultMaxHeaderBytes
	}
	if c.MaxBodyBytes == 0 {
		c.MaxBodyBytes = http.DefaultMaxBodyBytes
	}
	return c
}

// Server composes the listener, decoder, router, dispatcher and encoder and
// owns the lifecycle state machine:
//
//	created --Run--> running <--Run/Interrupt--> interrupted
//	running|interrupted --Terminate--> terminated (no way out)
//
// Interrupt stops the accept loop but keeps the address bound, so a later Run
// resumes without re-binding. Terminate closes the socket for good; Run on a
// terminated server always fails with ErrTerminated.
type Server struct {
	// Decoder and Encoder are swappable before the first Run; afterwards they
	// belong to the accept loop.
	Decoder http.Decoder
	Encoder http.Encoder

	cfg        Config
	ln         listener.Listener
	router     *router.Router
	dispatcher *Dispatcher
	workers    *pools.WorkerPool
	metrics    *observability.Metrics

	mu       sync.Mutex
	state    State
	loopDone chan struct{}

	stop     atomic.Bool
	inflight sync.WaitGroup
}

// NewServer creates a server in the created state. Nothing is bound yet;
// Run opens the listener.
func NewServer(cfg Config) *Server {
	cfg = cfg.withDefaults()

	decoder := http.NewTextDecoder()
	decoder.MaxHeaderBytes = cfg.MaxHeaderBytes
	decoder.MaxBodyBytes = cfg.MaxBodyBytes

	rt := router.New()
	return &Server{
		Decoder:    decoder,
		Encoder:    http.TextEncoder{},
		cfg:        cfg,
		ln:         listener.NewTCP(cfg.Addr, cfg.MaxConnections),
		router:     rt,
		dispatcher: NewDispatcher(rt),
		workers:    pools.NewWorkerPool(cfg.Workers),
		metrics:    observability.New(),
	}
}

// Register binds a handler to the exact path. Last registration wins.
func (s *Server) Register(path string, handler http.Handler) {
	s.router.Register(path, handler)
}

// Router returns the routing table for direct registration
func (s *Server) Router() *router.Router {
	return s.router
}

// Metrics returns the server's metric set
func (s *Server) Metrics() *observability.Metrics {
	return s.metrics
}

// State returns the current lifecycle state
func (s *Server) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Addr returns the bound address, or nil before the first Run
func (s *Server) Addr() net.Addr {
	return s.ln.Addr()
}

// Run starts (or resumes) the accept loop. With block=true the caller is
// occupied until Interrupt or Terminate stops the loop; with block=false the
// loop runs on its own goroutine and Run returns immediately, leaving the
// caller responsible for keeping the process alive.
//
// Run fails with ErrTerminated after Terminate, ErrAlreadyRunning while the
// loop is active, and a listener.ErrBind wrap when the address cannot be
// bound on first start.
func (s *Server) Run(block bool) error {
	s.mu.Lock()
	switch s.state {
	case StateTerminated:
		s.mu.Unlock()
		return ErrTerminated
	case StateRunning:
		s.mu.Unlock()
		return ErrAlreadyRunning
	}

	// First Run binds; a resume reuses the already-open socket.
	if err := s.ln.Open(); err != nil {
		s.mu.Unlock()
		return err
	}

	s.stop.Store(false)
	s.state = StateRunning
	done := make(chan struct{})
	s.loopDone = done
	s.mu.Unlock()

	log.Printf("⚡ Lightning listening on %s", s.ln.Addr())
	go s.acceptLoop(done)

	if block {
		<-done
	}
	return nil
}

// Interrupt stops accepting new connections, drains the in-flight ones and
// leaves the address bound so Run can resume. No-op unless running.
func (s *Server) Interrupt() {
	s.mu.Lock()
	if s.state != StateRunning {
		s.mu.Unlock()
		return
	}
	s.state = StateInterrupted
	done := s.loopDone
	s.mu.Unlock()

	s.stop.Store(true)
	s.ln.Wake()
	<-done

	s.drain()
	log.Printf("server interrupted, %s stays bound", s.ln.Addr())
}

// Terminate drains like Interrupt, then closes the listener and the worker
// pool. Terminal and idempotent: the released address is never re-bound and
// every later Run fails with ErrTerminated.
func (s *Server) Terminate() {
	s.mu.Lock()
	if s.state == StateTerminated {
		s.mu.Unlock()
		return
	}
	wasRunning := s.state == StateRunning
	s.state = StateTerminated
	done := s.loopDone
	s.mu.Unlock()

	s.stop.Store(true)
	addr := s.ln.Addr()
	s.ln.Close()
	if wasRunning && done != nil {
		<-done
	}

	s.drain()
	s.workers.Close()
	if addr != nil {
		log.Printf("server terminated, %s released", addr)
	}
}

// acceptLoop accepts until a stop is requested. A single failed accept is
// logged and tolerated; it never brings the loop down.
func (s *Server) acceptLoop(done chan struct{}) {
	defer close(done)

	for {
		conn, err := s.ln.Accept()
		if err != nil {
			if s.stop.Load() {
				return
			}
			if listener.IsWake(err) {
				continue
			}
			if listener.IsClosed(err) || errors.Is(err, listener.ErrNotOpen) {
				return
			}
			log.Printf("accept error: %v", err)
			s.metrics.AcceptError()
			continue
		}

		if s.stop.Load() {
			// Raced a stop request; this connection was never handled.
			conn.Close()
			return
		}

		id := uuid.NewString()
		s.metrics.ConnAccepted()
		s.inflight.Add(1)
		s.workers.Submit(func() {
			s.handleConn(conn, id)
		})
	}
}

// handleConn runs one connection to completion: decode, dispatch, respond,
// close. Decode failures answer on this connection only.
func (s *Server) handleConn(conn net.Conn, id string) {
	defer s.inflight.Done()
	defer s.metrics.ConnClosed()
	defer conn.Close()

	start := time.Now()
	if s.cfg.ReadTimeout > 0 {
		conn.SetReadDeadline(start.Add(s.cfg.ReadTimeout))
	}

	req, err := s.Decoder.Decode(conn)
	if err != nil {
		if err == io.EOF {
			return // peer connected and left without sending anything
		}
		resp := decodeErrorResponse(err)
		s.write(conn, resp)
		s.metrics.Request(resp.Code, time.Since(start))
		log.Printf("conn %s: decode failed: %v", id, err)
		return
	}
	defer http.ReleaseRequest(req)

	resp := s.dispatcher.Handle(req)
	s.write(conn, resp)
	s.metrics.Request(resp.Code, time.Since(start))
	log.Printf("conn %s: %s %s %d %s", id, req.Method, req.Path, resp.Code, time.Since(start).Round(time.Microsecond))
}

// write encodes and flushes the response
func (s *Server) write(conn net.Conn, resp *http.Response) {
	if s.cfg.WriteTimeout > 0 {
		conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
	}
	if _, err := conn.Write(s.Encoder.Encode(resp)); err != nil {
		log.Printf("write response: %v", err)
	}
}

// decodeErrorResponse maps a decode failure to its response
func decodeErrorResponse(err error) *http.Response {
	if errors.Is(err, http.ErrPayloadTooLarge) {
		return &http.Response{Code: 413, Body: []byte("payload too large")}
	}
	return &http.Response{Code: 400, Body: []byte("bad request")}
}

// drain waits for in-flight connections to finish their exchange, bounded by
// the configured drain timeout.
func (s *Server) drain() {
	finished := make(chan struct{})
	go func() {
		s.inflight.Wait()
		close(finished)
	}()

	select {
	case <-finished:
	case <-time.After(s.cfg.DrainTimeout):
		log.Printf("drain timed out after %s", s.cfg.DrainTimeout)
	}
}
