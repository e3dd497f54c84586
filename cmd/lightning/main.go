package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "lightning",
		Short: "A minimal TCP request server",
		Long: `Lightning is a minimal process-resident TCP request server.

It accepts connections, decodes text requests, dispatches them to handlers
registered by exact path, and writes back the result. The server can be
interrupted (address stays bound, resumable) or terminated (address released,
final).`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		serveCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}
