package core

import (
	"fmt"
	"log"

	"github.com/lightningtools/lightning/core/http"
	"github.com/lightningtools/lightning/core/router"
)

// Dispatcher resolves a decoded request against the routing table and turns
// the handler result, or its failure, into a response.
type Dispatcher struct {
	router *router.Router
}

// NewDispatcher creates a dispatcher over the given routing table
func NewDispatcher(r *router.Router) *Dispatcher {
	return &Dispatcher{router: r}
}

// Handle produces the response for one request. A lookup miss answers 404
// without invoking anything. A handler error or panic answers a generic 500;
// the detail is logged locally and never sent to the peer.
func (d *Dispatcher) Handle(req *http.Request) *http.Response {
	h, ok := d.router.Lookup(req.Path)
	if !ok {
		return &http.Response{Code: 404, Body: []byte("not found")}
	}

	resp, err := invoke(h, req)
	if err != nil {
		log.Printf("handler %s %s failed: %v", req.Method, req.Path, err)
		return &http.Response{Code: 500, Body: []byte("internal server error")}
	}
	if resp == nil {
		resp = http.NewResponse(200)
	}
	return resp
}

// invoke calls the handler, converting a panic into a handler error
func invoke(h http.Handler, req *http.Request) (resp *http.Response, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return h(req)
}
