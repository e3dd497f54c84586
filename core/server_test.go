package core

import (
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lightningtools/lightning/core/http"
	"github.com/lightningtools/lightning/core/listener"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	srv := NewServer(Config{
		Addr:         "127.0.0.1:0",
		DrainTimeout: 2 * time.Second,
	})
	t.Cleanup(srv.Terminate)
	return srv
}

// rawRequest performs one request/response exchange over a fresh connection
// and returns the status code and body.
func rawRequest(t *testing.T, addr, path string) (int, string) {
	t.Helper()

	conn, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("dial %s: %v", addr, err)
	}
	defer conn.Close()

	fmt.Fprintf(conn, "GET %s HTTP/1.1\r\nHost: test\r\n\r\n", path)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	data, err := io.ReadAll(conn) // server closes after one exchange
	if err != nil {
		t.Fatalf("read response: %v", err)
	}

	raw := string(data)
	head, body, ok := strings.Cut(raw, "\r\n\r\n")
	if !ok {
		t.Fatalf("no header terminator in response %q", raw)
	}
	fields := strings.SplitN(strings.SplitN(head, "\r\n", 2)[0], " ", 3)
	if len(fields) < 2 {
		t.Fatalf("bad status line in %q", raw)
	}
	code, err := strconv.Atoi(fields[1])
	if err != nil {
		t.Fatalf("bad status code in %q", raw)
	}
	return code, body
}

func TestHelloWorldScenario(t *testing.T) {
	srv := newTestServer(t)
	srv.Register("/", func(req *http.Request) (*http.Response, error) {
		return http.Text("Hello World!"), nil
	})

	if err := srv.Run(false); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	addr := srv.Addr().String()

	code, body := rawRequest(t, addr, "/")
	if code != 200 || body != "Hello World!" {
		t.Errorf("GET /: expected 200 %q, got %d %q", "Hello World!", code, body)
	}

	code, _ = rawRequest(t, addr, "/missing")
	if code != 404 {
		t.Errorf("GET /missing: expected 404, got %d", code)
	}
}

func TestHandlerInvokedExactlyOnce(t *testing.T) {
	srv := newTestServer(t)

	var root, other atomic.Int64
	srv.Register("/counted", func(req *http.Request) (*http.Response, error) {
		root.Add(1)
		return nil, nil
	})
	srv.Register("/other", func(req *http.Request) (*http.Response, error) {
		other.Add(1)
		return nil, nil
	})

	if err := srv.Run(false); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	code, _ := rawRequest(t, srv.Addr().String(), "/counted")
	if code != 200 {
		t.Fatalf("Expected 200, got %d", code)
	}
	if root.Load() != 1 {
		t.Errorf("Expected exactly one invocation, got %d", root.Load())
	}
	if other.Load() != 0 {
		t.Errorf("Unrelated handler invoked %d times", other.Load())
	}
}

// TestNotFoundInvokesNothing verifies an unregistered path never reaches a handler
func TestNotFoundInvokesNothing(t *testing.T) {
	srv := newTestServer(t)

	var calls atomic.Int64
	srv.Register("/present", func(req *http.Request) (*http.Response, error) {
		calls.Add(1)
		return nil, nil
	})

	if err := srv.Run(false); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	code, body := rawRequest(t, srv.Addr().String(), "/absent")
	if code != 404 {
		t.Errorf("Expected 404, got %d", code)
	}
	if body != "not found" {
		t.Errorf("Expected not-found body, got %q", body)
	}
	if calls.Load() != 0 {
		t.Errorf("Handler invoked %d times for unregistered path", calls.Load())
	}
}

// TestHandlerFailure verifies error and panic outcomes stay generic on the wire
func TestHandlerFailure(t *testing.T) {
	srv := newTestServer(t)
	srv.Register("/err", func(req *http.Request) (*http.Response, error) {
		return nil, errors.New("database exploded: secret dsn")
	})
	srv.Register("/panic", func(req *http.Request) (*http.Response, error) {
		panic("boom")
	})

	if err := srv.Run(false); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	addr := srv.Addr().String()

	for _, path := range []string{"/err", "/panic"} {
		code, body := rawRequest(t, addr, path)
		if code != 500 {
			t.Errorf("%s: expected 500, got %d", path, code)
		}
		if body != "internal server error" {
			t.Errorf("%s: handler detail leaked to peer: %q", path, body)
		}
	}
}

func TestRunWhileRunning(t *testing.T) {
	srv := newTestServer(t)

	if err := srv.Run(false); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if err := srv.Run(false); !errors.Is(err, ErrAlreadyRunning) {
		t.Errorf("Expected ErrAlreadyRunning, got %v", err)
	}
	if srv.State() != StateRunning {
		t.Errorf("Expected running state, got %s", srv.State())
	}
}

func TestTerminateThenRun(t *testing.T) {
	srv := newTestServer(t)
	if err := srv.Run(false); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	srv.Terminate()

	if err := srv.Run(false); !errors.Is(err, ErrTerminated) {
		t.Errorf("Expected ErrTerminated, got %v", err)
	}
	if srv.State() != StateTerminated {
		t.Errorf("Expected terminated state, got %s", srv.State())
	}
}

func TestTerminateIdempotent(t *testing.T) {
	srv := newTestServer(t)
	if err := srv.Run(false); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	srv.Terminate()
	srv.Terminate()

	if srv.State() != StateTerminated {
		t.Errorf("Expected terminated state after double terminate, got %s", srv.State())
	}
}

// TestTerminateBeforeRun covers terminating a server that never served
func TestTerminateBeforeRun(t *testing.T) {
	srv := NewServer(Config{Addr: "127.0.0.1:0", DrainTimeout: time.Second})
	srv.Terminate()

	if err := srv.Run(false); !errors.Is(err, ErrTerminated) {
		t.Errorf("Expected ErrTerminated, got %v", err)
	}
}

func TestInterruptResume(t *testing.T) {
	srv := newTestServer(t)
	srv.Register("/", func(req *http.Request) (*http.Response, error) {
		return http.Text("alive"), nil
	})

	if err := srv.Run(false); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	addr := srv.Addr().String()

	srv.Interrupt()
	if srv.State() != StateInterrupted {
		t.Fatalf("Expected interrupted state, got %s", srv.State())
	}

	// The address stays bound but nothing answers while interrupted.
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("dial while interrupted: %v (address should stay bound)", err)
	}
	fmt.Fprintf(conn, "GET / HTTP/1.1\r\n\r\n")
	conn.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	if _, err := conn.Read(make([]byte, 1)); err == nil {
		t.Error("Got a response while interrupted")
	} else {
		var ne net.Error
		if !errors.As(err, &ne) || !ne.Timeout() {
			t.Errorf("Expected read timeout while interrupted, got %v", err)
		}
	}
	conn.Close()

	// Resume on the same bound address, no re-bind.
	if err := srv.Run(false); err != nil {
		t.Fatalf("Resume failed: %v", err)
	}
	if got := srv.Addr().String(); got != addr {
		t.Errorf("Address changed across resume: %s -> %s", addr, got)
	}

	code, body := rawRequest(t, addr, "/")
	if code != 200 || body != "alive" {
		t.Errorf("After resume: expected 200 %q, got %d %q", "alive", code, body)
	}
}

// TestInterruptDrainsInFlight verifies a connection mid-dispatch at interrupt
// time still receives its response.
func TestInterruptDrainsInFlight(t *testing.T) {
	srv := newTestServer(t)
	srv.Register("/slow", func(req *http.Request) (*http.Response, error) {
		time.Sleep(300 * time.Millisecond)
		return http.Text("done"), nil
	})

	if err := srv.Run(false); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	conn, err := net.Dial("tcp", srv.Addr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	fmt.Fprintf(conn, "GET /slow HTTP/1.1\r\n\r\n")

	time.Sleep(100 * time.Millisecond) // let the request reach the handler
	srv.Interrupt()                    // blocks until the in-flight exchange drains

	conn.SetReadDeadline(time.Now().Add(time.Second))
	data, err := io.ReadAll(conn)
	if err != nil {
		t.Fatalf("read drained response: %v", err)
	}
	if !strings.HasSuffix(string(data), "done") {
		t.Errorf("In-flight connection lost its response: %q", data)
	}
}

func TestBindError(t *testing.T) {
	occupied, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer occupied.Close()

	srv := NewServer(Config{Addr: occupied.Addr().String(), DrainTimeout: time.Second})
	t.Cleanup(srv.Terminate)

	if err := srv.Run(false); !errors.Is(err, listener.ErrBind) {
		t.Errorf("Expected ErrBind, got %v", err)
	}
	if srv.State() != StateCreated {
		t.Errorf("Expected created state after failed bind, got %s", srv.State())
	}
}

// TestPayloadLimits verifies oversized input is rejected per-connection
func TestPayloadLimits(t *testing.T) {
	srv := NewServer(Config{
		Addr:         "127.0.0.1:0",
		DrainTimeout: time.Second,
		MaxBodyBytes: 16,
	})
	t.Cleanup(srv.Terminate)
	srv.Register("/upload", func(req *http.Request) (*http.Response, error) {
		return nil, nil
	})

	if err := srv.Run(false); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	addr := srv.Addr().String()

	conn, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()
	fmt.Fprintf(conn, "POST /upload HTTP/1.1\r\nContent-Length: 64\r\n\r\n%s", strings.Repeat("x", 64))
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	data, _ := io.ReadAll(conn)
	if !strings.HasPrefix(string(data), "HTTP/1.1 413 ") {
		t.Errorf("Expected 413 response, got %q", data)
	}

	// The loop survived; the next connection is served normally.
	code, _ := rawRequest(t, addr, "/upload")
	if code != 200 {
		t.Errorf("Loop did not survive oversized payload: got %d", code)
	}
}

func TestStateString(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateCreated, "created"},
		{StateRunning, "running"},
		{StateInterrupted, "interrupted"},
		{StateTerminated, "terminated"},
		{State(42), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("State(%d).String() = %q, want %q", tt.state, got, tt.want)
		}
	}
}
