// Package config loads server configuration from flags with environment
// overrides (LIGHTNING_* variables win over flag defaults).
package config

import (
	"flag"
	"net"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Host           string
	Port           int
	MaxConnections int
	Workers        int
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	DrainTimeout   time.Duration
	MaxHeaderBytes int
	MaxBodyBytes   int
	Metrics        bool
}

// New loads configuration from command-line flags and the environment.
func New() *Config {
	return parse(os.Args[1:])
}

func parse(args []string) *Config {
	cfg := &Config{}

	fs := flag.NewFlagSet("lightning", flag.ExitOnError)
	fs.StringVar(&cfg.Host, "host", "", "bind host (empty = all interfaces)")
	fs.IntVar(&cfg.Port, "port", 8080, "bind port")
	fs.IntVar(&cfg.MaxConnections, "max-connections", 1024, "cap on concurrently accepted connections (0 = uncapped)")
	fs.IntVar(&cfg.Workers, "workers", 0, "connection worker count (0 = NumCPU)")
	fs.DurationVar(&cfg.ReadTimeout, "read-timeout", 10*time.Second, "per-connection read deadline")
	fs.DurationVar(&cfg.WriteTimeout, "write-timeout", 10*time.Second, "per-connection write deadline")
	fs.DurationVar(&cfg.DrainTimeout, "drain-timeout", 30*time.Second, "how long interrupt/terminate wait for in-flight connections")
	fs.IntVar(&cfg.MaxHeaderBytes, "max-header-bytes", 8<<10, "request header budget")
	fs.IntVar(&cfg.MaxBodyBytes, "max-body-bytes", 1<<20, "request body budget")
	fs.BoolVar(&cfg.Metrics, "metrics", false, "serve prometheus metrics on /metrics")
	fs.Parse(args)

	cfg.loadEnv()
	return cfg
}

// loadEnv applies LIGHTNING_* environment overrides
func (c *Config) loadEnv() {
	if host, ok := os.LookupEnv("LIGHTNING_HOST"); ok {
		c.Host = host
	}
	if port := os.Getenv("LIGHTNING_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.Port = p
		}
	}
	if workers := os.Getenv("LIGHTNING_WORKERS"); workers != "" {
		if w, err := strconv.Atoi(workers); err == nil {
			c.Workers = w
		}
	}
	if metrics := os.Getenv("LIGHTNING_METRICS"); metrics != "" {
		c.Metrics = metrics == "true" || metrics == "yes" || metrics == "1"
	}
}

// Addr returns the bind address. An empty host means all interfaces,
// conventional socket semantics.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}
