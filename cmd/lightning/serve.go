package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/lightningtools/lightning/app"
	"github.com/lightningtools/lightning/config"
	"github.com/lightningtools/lightning/core/http"
)

func serveCmd() *cobra.Command {
	cfg := &config.Config{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the server until a signal terminates it",
		Run: func(cmd *cobra.Command, args []string) {
			application := app.New(cfg)

			// Default index route so a fresh install answers something.
			application.Server().Register("/", func(req *http.Request) (*http.Response, error) {
				return http.Text(fmt.Sprintf("Lightning %s serving %s", version, req.Host)), nil
			})

			application.Run()
		},
	}

	cmd.Flags().StringVar(&cfg.Host, "host", "", "bind host (empty = all interfaces)")
	cmd.Flags().IntVar(&cfg.Port, "port", 8080, "bind port")
	cmd.Flags().IntVar(&cfg.MaxConnections, "max-connections", 1024, "cap on concurrently accepted connections (0 = uncapped)")
	cmd.Flags().IntVar(&cfg.Workers, "workers", 0, "connection worker count (0 = NumCPU)")
	cmd.Flags().DurationVar(&cfg.ReadTimeout, "read-timeout", 10*time.Second, "per-connection read deadline")
	cmd.Flags().DurationVar(&cfg.WriteTimeout, "write-timeout", 10*time.Second, "per-connection write deadline")
	cmd.Flags().DurationVar(&cfg.DrainTimeout, "drain-timeout", 30*time.Second, "in-flight drain budget on shutdown")
	cmd.Flags().IntVar(&cfg.MaxHeaderBytes, "max-header-bytes", 8<<10, "request header budget")
	cmd.Flags().IntVar(&cfg.MaxBodyBytes, "max-body-bytes", 1<<20, "request body budget")
	cmd.Flags().BoolVar(&cfg.Metrics, "metrics", false, "serve prometheus metrics on /metrics")

	return cmd
}
