package http

import "sort"

// Response is the outcome of dispatching one request, prior to encoding.
type Response struct {
	Code   int
	Header map[string]string
	Body   []byte
}

// NewResponse creates an empty response with the given status code.
func NewResponse(code int) *Response {
	return &Response{Code: code}
}

// Text creates a 200 response with a plain-text body.
func Text(body string) *Response {
	return &Response{Code: 200, Body: []byte(body)}
}

// SetHeader sets a response header, replacing any previous value.
func (r *Response) SetHeader(key, value string) *Response {
	if r.Header == nil {
		r.Header = make(map[string]string)
	}
	r.Header[key] = value
	return r
}

// Encoder serializes responses to wire bytes.
type Encoder interface {
	Encode(resp *Response) []byte
}

// TextEncoder writes the minimal text wire format: status line, headers,
// blank line, body. Encoding is deterministic: header keys are emitted in
// sorted order and no time-dependent fields are added, so identical responses
// always produce byte-identical output.
type TextEncoder struct{}

// Default header values applied when the response does not set them.
const (
	serverName         = "Lightning"
	defaultContentType = "text/plain; charset=utf-8"
)

// Encode serializes a response.
func (e TextEncoder) Encode(resp *Response) []byte {
	return AppendResponse(make([]byte, 0, 256+len(resp.Body)), resp)
}

// AppendResponse appends the encoded response to buf and returns the
// extended slice.
func AppendResponse(buf []byte, resp *Response) []byte {
	buf = append(buf, "HTTP/1.1 "...)
	buf = appendInt(buf, resp.Code)
	buf = append(buf, ' ')
	buf = append(buf, StatusText(resp.Code)...)
	buf = append(buf, "\r\n"...)

	buf = appendHeader(buf, "Content-Length", "")
	buf = appendInt(buf, len(resp.Body))
	buf = append(buf, "\r\n"...)

	if _, ok := resp.Header["Content-Type"]; !ok {
		buf = appendHeader(buf, "Content-Type", defaultContentType)
		buf = append(buf, "\r\n"...)
	}
	if _, ok := resp.Header["Server"]; !ok {
		buf = appendHeader(buf, "Server", serverName)
		buf = append(buf, "\r\n"...)
	}

	if len(resp.Header) > 0 {
		keys := make([]string, 0, len(resp.Header))
		for k := range resp.Header {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			buf = appendHeader(buf, k, resp.Header[k])
			buf = append(buf, "\r\n"...)
		}
	}

	buf = append(buf, "\r\n"...)
	buf = append(buf, resp.Body...)
	return buf
}

func appendHeader(buf []byte, key, value string) []byte {
	buf = append(buf, key...)
	buf = append(buf, ": "...)
	buf = append(buf, value...)
	return buf
}

// StatusText returns the status text for the given code.
func StatusText(code int) string {
	switch code {
	case 200:
		return "OK"
	case 201:
		return "Created"
	case 204:
		return "No Content"
	case 400:
		return "Bad Request"
	case 404:
		return "Not Found"
	case 405:
		return "Method Not Allowed"
	case 413:
		return "Payload Too Large"
	case 429:
		return "Too Many Requests"
	case 500:
		return "Internal Server Error"
	default:
		return "Unknown"
	}
}

// appendInt appends a non-negative integer to a byte slice
func appendInt(b []byte, i int) []byte {
	if i == 0 {
		return append(b, '0')
	}

	if i < 0 {
		b = append(b, '-')
		i = -i
	}

	var digits [20]byte
	n := 0
	for i > 0 {
		digits[n] = byte('0' + i%10)
		i /= 10
		n++
	}

	for n > 0 {
		n--
		b = append(b, digits[n])
	}

	return b
}
