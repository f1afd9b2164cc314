// Package cli implements the cdpdriver command line, a thin driver around
// the devtools client for poking a live DevTools endpoint.
package cli

import (
	"errors"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"cdpdriver/internal/devtools"
)

// Version is set at build time.
var Version = "dev"

// Debug enables verbose debug output.
var Debug bool

// SocketURL is the DevTools WebSocket endpoint commands talk to.
var SocketURL string

var rootCmd = &cobra.Command{
	Use:           "cdpdriver",
	Short:         "Synchronous Chrome DevTools Protocol client",
	Long:          "cdpdriver sends DevTools commands and tails DevTools events over a single persistent WebSocket connection to a browser.",
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&Debug, "debug", false, "Enable verbose debug output")
	rootCmd.PersistentFlags().StringVar(&SocketURL, "url", "", "DevTools WebSocket URL (ws://host:port/devtools/page/<id>)")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// newLogger builds the CLI logger; silent unless --debug is set.
func newLogger() *zap.Logger {
	if !Debug {
		return zap.NewNop()
	}
	logger, err := zap.NewDevelopment()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

// newClient builds a devtools client against the --url endpoint.
func newClient() (*devtools.Client, error) {
	if SocketURL == "" {
		return nil, errors.New("--url is required")
	}
	client := devtools.NewClient(uuid.NewString(), SocketURL,
		func() devtools.SyncWebSocket { return devtools.NewWebSocket() },
		devtools.WithLogger(newLogger()))
	return client, nil
}
