/*
Package lightning provides a minimal process-resident TCP request server.

Lightning listens on a TCP address, accepts connections, decodes text
requests, dispatches them to handlers registered by exact path, and writes the
encoded response back before closing the connection. The engine is built
around an explicit lifecycle state machine:

	created --Run--> running <--Run/Interrupt--> interrupted
	running|interrupted --Terminate--> terminated

Interrupt stops the accept loop but keeps the address bound so Run can resume
without re-binding. Terminate drains in-flight connections, releases the
address and permanently rejects further runs.

Quick Start

	package main

	import (
	    "github.com/lightningtools/lightning/core"
	    "github.com/lightningtools/lightning/core/http"
	)

	func main() {
	    srv := core.NewServer(core.Config{Addr: ":8080"})

	    srv.Register("/", func(req *http.Request) (*http.Response, error) {
	        return http.Text("Hello World!"), nil
	    })

	    srv.Run(true)
	}

Modules

  - app: application lifecycle, signal handling
  - config: flag + environment configuration
  - core: server state machine, accept loop, dispatch
  - core/http: request decoding, response encoding, handler contract
  - core/router: exact-match routing table
  - core/listener: bound socket (open/accept/wake/close)
  - core/pools: connection worker pool, decode buffer pool
  - core/observability: prometheus metrics and /metrics handler
  - cmd/lightning: CLI

Scope

Deliberately out of scope: chunked transfer, compression, keep-alive pooling,
TLS, middleware chains, and multi-protocol support. Each connection carries
exactly one request/response exchange.
*/
package lightning
