package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var sendCmd = &cobra.Command{
	Use:   "send <method> [params-json]",
	Short: "Send one DevTools command and print its result",
	Long:  "Connects to the --url endpoint, sends a single command with optional JSON params, and prints the result object.",
	Args:  cobra.RangeArgs(1, 2),
	RunE:  runSend,
}

func init() {
	rootCmd.AddCommand(sendCmd)
}

func runSend(cmd *cobra.Command, args []string) error {
	params := map[string]any{}
	if len(args) == 2 {
		if err := json.Unmarshal([]byte(args[1]), &params); err != nil {
			return fmt.Errorf("params must be a JSON object: %w", err)
		}
	}

	client, err := newClient()
	if err != nil {
		return err
	}
	defer client.Close()

	if err := client.ConnectIfNecessary(); err != nil {
		return err
	}
	result, err := client.SendCommandAndGetResult(args[0], params)
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return nil
}
