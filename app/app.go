// Package app wires configuration into a server and ties its lifecycle to
// process signals.
package app

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/lightningtools/lightning/config"
	"github.com/lightningtools/lightning/core"
	"github.com/lightningtools/lightning/core/pools"
)

// App is the application instance: one configured server plus signal handling.
type App struct {
	cfg    *config.Config
	server *core.Server
}

// New creates an application instance
func New(cfg *config.Config) *App {
	server := core.NewServer(core.Config{
		Addr:           cfg.Addr(),
		MaxConnections: cfg.MaxConnections,
		Workers:        cfg.Workers,
		ReadTimeout:    cfg.ReadTimeout,
		WriteTimeout:   cfg.WriteTimeout,
		DrainTimeout:   cfg.DrainTimeout,
		MaxHeaderBytes: cfg.MaxHeaderBytes,
		MaxBodyBytes:   cfg.MaxBodyBytes,
	})

	if cfg.Metrics {
		server.Register("/metrics", server.Metrics().Handler())
	}

	return &App{
		cfg:    cfg,
		server: server,
	}
}

// Server returns the underlying server for route registration
func (a *App) Server() *core.Server {
	return a.server
}

// Run starts the server and blocks until a signal terminates it
func (a *App) Run() {
	pools.OptimizeForThroughput()

	go a.awaitSignal()

	log.Printf("🚀 Lightning starting on %s", a.cfg.Addr())
	if err := a.server.Run(true); err != nil {
		log.Fatalf("server startup failed: %v", err)
	}
}

// awaitSignal terminates the server on SIGINT/SIGTERM. Terminate drains
// in-flight connections before Run returns.
func (a *App) awaitSignal() {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	sig := <-quit
	log.Printf("signal received: %v, shutting down", sig)
	a.server.Terminate()
}
