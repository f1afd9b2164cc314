package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"cdpdriver/internal/devtools"
)

var (
	listenEnable []string
	listenUntil  string
	listenFor    time.Duration
)

var listenCmd = &cobra.Command{
	Use:   "listen",
	Short: "Tail DevTools events",
	Long:  "Connects, enables the requested domains, and prints events as JSON lines until --until is observed or --for elapses.",
	Args:  cobra.NoArgs,
	RunE:  runListen,
}

func init() {
	listenCmd.Flags().StringSliceVar(&listenEnable, "enable", []string{"Page"}, "Domains to enable before listening")
	listenCmd.Flags().StringVar(&listenUntil, "until", "", "Stop once this event method is observed")
	listenCmd.Flags().DurationVar(&listenFor, "for", 30*time.Second, "How long to listen")
	rootCmd.AddCommand(listenCmd)
}

// eventPrinter writes every event as a JSON line and remembers whether the
// --until method has been seen.
type eventPrinter struct {
	devtools.BaseListener
	out   io.Writer
	until string
	seen  bool
}

func (p *eventPrinter) OnEvent(_ devtools.DevToolsClient, method string, params map[string]any) error {
	line, err := json.Marshal(map[string]any{"method": method, "params": params})
	if err != nil {
		return err
	}
	fmt.Fprintln(p.out, string(line))
	if p.until != "" && method == p.until {
		p.seen = true
	}
	return nil
}

func runListen(cmd *cobra.Command, args []string) error {
	client, err := newClient()
	if err != nil {
		return err
	}
	defer client.Close()

	printer := &eventPrinter{out: cmd.OutOrStdout(), until: listenUntil}
	client.AddListener(printer)

	if err := client.ConnectIfNecessary(); err != nil {
		return err
	}
	for _, domain := range listenEnable {
		if err := client.SendCommand(strings.TrimSpace(domain)+".enable", nil); err != nil {
			return err
		}
	}

	err = client.HandleEventsUntil(func() (bool, error) {
		return printer.seen, nil
	}, devtools.NewTimeout(listenFor))
	if devtools.IsCode(err, devtools.CodeTimeout) && listenUntil == "" {
		// Open-ended listens are expected to end on the deadline.
		return nil
	}
	return err
}
