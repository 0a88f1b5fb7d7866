// Command perpintel is the CLI and HTTP entrypoint for the market
// intelligence engine: direct `analyze`, historical `replay`, `config`
// management, and `serve` for the long-running HTTP surface (§6.2).
// Grounded on cmd/cryptorun/main.go's cobra root + zerolog bootstrap.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	applog "github.com/perpintel/engine/internal/log"
)

const (
	appName = "perpintel"
	version = "v0.1.0"
)

func main() {
	var debug bool

	rootCmd := &cobra.Command{
		Use:     appName,
		Short:   "Real-time market intelligence engine for perpetual-futures markets",
		Version: version,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			plain := !term.IsTerminal(int(os.Stderr.Fd()))
			applog.Configure(debug, plain)
		},
	}
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	rootCmd.AddCommand(newAnalyzeCmd())
	rootCmd.AddCommand(newReplayCmd())
	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newServeCmd())

	zerolog.TimeFieldFormat = time.RFC3339
	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("command failed")
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
