package http

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"

	"github.com/lightningtools/lightning/core/pools"
)

// Decode failure classes. Both are contained to the connection that caused
// them: the server answers with an error response instead of dropping the
// accept loop.
var (
	ErrMalformedRequest = errors.New("malformed request")
	ErrPayloadTooLarge  = errors.New("request payload too large")
)

// Decoder frames and parses one request from an accepted connection.
type Decoder interface {
	Decode(conn net.Conn) (*Request, error)
}

// Default framing limits.
const (
	DefaultMaxHeaderBytes = 8 << 10
	DefaultMaxBodyBytes   = 1 << 20
)

// TextDecoder reads the text wire format: request line, header lines, blank
// line, then a Content-Length delimited body. Header block and body sizes are
// bounded so a single connection cannot exhaust memory.
type TextDecoder struct {
	MaxHeaderBytes int
	MaxBodyBytes   int

	bufs *pools.BytePool
}

// NewTextDecoder creates a decoder with default limits.
func NewTextDecoder() *TextDecoder {
	return &TextDecoder{
		MaxHeaderBytes: DefaultMaxHeaderBytes,
		MaxBodyBytes:   DefaultMaxBodyBytes,
		bufs:           pools.NewBytePool(),
	}
}

var (
	crlfcrlf = []byte("\r\n\r\n")
	lflf     = []byte("\n\n")
)

// Decode blocks until a complete request is framed, then parses it.
// The returned request must be released with ReleaseRequest.
func (d *TextDecoder) Decode(conn net.Conn) (*Request, error) {
	buf := d.bufs.Get(d.MaxHeaderBytes)
	defer d.bufs.Put(buf)

	// Read until the end-of-headers marker shows up or the budget is spent.
	total := 0
	headerEnd, markerLen := -1, 0
	for headerEnd == -1 {
		if total == len(buf) {
			return nil, fmt.Errorf("%w: header block exceeds %d bytes", ErrPayloadTooLarge, d.MaxHeaderBytes)
		}
		n, err := conn.Read(buf[total:])
		if n > 0 {
			total += n
			if i := bytes.Index(buf[:total], crlfcrlf); i != -1 {
				headerEnd, markerLen = i, len(crlfcrlf)
			} else if i := bytes.Index(buf[:total], lflf); i != -1 {
				headerEnd, markerLen = i, len(lflf)
			}
		}
		if err != nil && headerEnd == -1 {
			if err == io.EOF && total == 0 {
				return nil, io.EOF
			}
			return nil, fmt.Errorf("%w: %v", ErrMalformedRequest, err)
		}
	}

	req := AcquireRequest()
	if err := parseRequestLine(req, buf[:headerEnd]); err != nil {
		ReleaseRequest(req)
		return nil, err
	}
	req.RemoteAddr = conn.RemoteAddr()

	// Body, if the headers declared one.
	if err := d.readBody(req, conn, buf[headerEnd+markerLen:total]); err != nil {
		ReleaseRequest(req)
		return nil, err
	}
	return req, nil
}

// parseRequestLine parses the request line and header lines.
func parseRequestLine(req *Request, data []byte) error {
	lineEnd := bytes.IndexByte(data, '\n')
	if lineEnd == -1 {
		lineEnd = len(data)
	}
	line := data[:lineEnd]
	if len(line) > 0 && line[len(line)-1] == '\r' {
		line = line[:len(line)-1]
	}

	// METHOD PATH PROTO (index-based: avoid SplitN)
	sp1 := bytes.IndexByte(line, ' ')
	if sp1 <= 0 {
		return fmt.Errorf("%w: bad request line %q", ErrMalformedRequest, line)
	}
	sp2 := bytes.IndexByte(line[sp1+1:], ' ')
	if sp2 == -1 {
		return fmt.Errorf("%w: bad request line %q", ErrMalformedRequest, line)
	}
	sp2 += sp1 + 1
	if sp2 == sp1+1 {
		return fmt.Errorf("%w: empty path", ErrMalformedRequest)
	}

	req.Method = string(line[:sp1])
	req.Path = string(line[sp1+1 : sp2])
	req.Proto = string(line[sp2+1:])

	if idx := strings.IndexByte(req.Path, '?'); idx != -1 {
		parseQuery(req, idx)
	}

	if lineEnd < len(data) {
		parseHeaders(req, data[lineEnd+1:])
	}
	return nil
}

// parseHeaders parses header lines into the request
func parseHeaders(req *Request, data []byte) {
	for len(data) > 0 {
		lineEnd := bytes.IndexByte(data, '\n')
		if lineEnd == -1 {
			lineEnd = len(data)
		}

		line := data[:lineEnd]
		if len(line) > 0 && line[len(line)-1] == '\r' {
			line = line[:len(line)-1]
		}

		if len(line) == 0 {
			break
		}

		colon := bytes.IndexByte(line, ':')
		if colon > 0 {
			key := string(bytes.TrimSpace(line[:colon]))
			value := string(bytes.TrimSpace(line[colon+1:]))
			req.SetHeader(key, value)
		}

		if lineEnd == len(data) {
			break
		}
		data = data[lineEnd+1:]
	}
}

// parseQuery splits the query string off the path into the Query map
func parseQuery(req *Request, idx int) {
	queryStr := req.Path[idx+1:]
	req.Path = req.Path[:idx]

	if req.Query == nil {
		req.Query = make(map[string]string)
	}

	for _, pair := range strings.Split(queryStr, "&") {
		if pair == "" {
			continue
		}
		if eq := strings.IndexByte(pair, '='); eq != -1 {
			req.Query[pair[:eq]] = pair[eq+1:]
		} else {
			req.Query[pair] = ""
		}
	}
}

// readBody reads the declared body. prefix holds bytes already read past the
// header block.
func (d *TextDecoder) readBody(req *Request, conn net.Conn, prefix []byte) error {
	if req.ContentLength == "" {
		return nil
	}
	length, err := strconv.Atoi(req.ContentLength)
	if err != nil || length < 0 {
		return fmt.Errorf("%w: bad Content-Length %q", ErrMalformedRequest, req.ContentLength)
	}
	if length == 0 {
		return nil
	}
	if length > d.MaxBodyBytes {
		return fmt.Errorf("%w: declared body of %d bytes exceeds %d", ErrPayloadTooLarge, length, d.MaxBodyBytes)
	}

	if cap(req.Body) < length {
		req.Body = make([]byte, length)
	} else {
		req.Body = req.Body[:length]
	}

	if len(prefix) > length {
		prefix = prefix[:length]
	}
	n := copy(req.Body, prefix)
	if n < length {
		if _, err := io.ReadFull(conn, req.Body[n:]); err != nil {
			return fmt.Errorf("%w: short body: %v", ErrMalformedRequest, err)
		}
	}
	return nil
}
