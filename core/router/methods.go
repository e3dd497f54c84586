package router

import "github.com/lightningtools/lightning/core/http"

// Methods builds a handler that selects by request method. A bound path with
// an unbound method answers 405; a method token that is not a known method at
// all answers 400.
type Methods struct {
	Get     http.Handler
	Head    http.Handler
	Post    http.Handler
	Put     http.Handler
	Delete  http.Handler
	Connect http.Handler
	Options http.Handler
	Trace   http.Handler
	Patch   http.Handler
}

// Handler returns the selecting handler
func (m Methods) Handler() http.Handler {
	table := map[string]http.Handler{
		"GET":     m.Get,
		"HEAD":    m.Head,
		"POST":    m.Post,
		"PUT":     m.Put,
		"DELETE":  m.Delete,
		"CONNECT": m.Connect,
		"OPTIONS": m.Options,
		"TRACE":   m.Trace,
		"PATCH":   m.Patch,
	}

	return func(req *http.Request) (*http.Response, error) {
		h, known := table[req.Method]
		if !known {
			return http.NewResponse(400), nil
		}
		if h == nil {
			return http.NewResponse(405), nil
		}
		return h(req)
	}
}
