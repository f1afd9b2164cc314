package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"cdpdriver/internal/emulation"
)

var (
	emulateWidth    int
	emulateHeight   int
	emulateScale    float64
	emulateMobile   bool
	emulateTouch    bool
	emulateNavigate string
)

var emulateCmd = &cobra.Command{
	Use:   "emulate",
	Short: "Apply device-metric overrides to a page",
	Long:  "Connects with a device-metrics override manager attached, optionally navigates, and leaves the overrides applied.",
	Args:  cobra.NoArgs,
	RunE:  runEmulate,
}

func init() {
	emulateCmd.Flags().IntVar(&emulateWidth, "width", 375, "Viewport width")
	emulateCmd.Flags().IntVar(&emulateHeight, "height", 667, "Viewport height")
	emulateCmd.Flags().Float64Var(&emulateScale, "scale", 2, "Device scale factor")
	emulateCmd.Flags().BoolVar(&emulateMobile, "mobile", true, "Emulate a mobile device")
	emulateCmd.Flags().BoolVar(&emulateTouch, "touch", false, "Enable touch emulation")
	emulateCmd.Flags().StringVar(&emulateNavigate, "navigate", "", "URL to navigate to after applying overrides")
	rootCmd.AddCommand(emulateCmd)
}

func runEmulate(cmd *cobra.Command, args []string) error {
	client, err := newClient()
	if err != nil {
		return err
	}
	defer client.Close()

	metrics := &emulation.DeviceMetrics{
		Width:             emulateWidth,
		Height:            emulateHeight,
		DeviceScaleFactor: emulateScale,
		Mobile:            emulateMobile,
		FontScaleFactor:   1,
		Touch:             emulateTouch,
	}
	manager := emulation.NewOverrideManager(client, metrics)

	// OnConnected applies the overrides before this returns.
	if err := client.ConnectIfNecessary(); err != nil {
		return err
	}
	if err := client.SendCommand("Page.enable", nil); err != nil {
		return err
	}
	if emulateNavigate != "" {
		if err := client.SendCommand("Page.navigate", map[string]any{"url": emulateNavigate}); err != nil {
			return err
		}
	}

	fmt.Fprintf(cmd.OutOrStdout(), "override applied: %dx%d scale=%g touch=%t\n",
		metrics.Width, metrics.Height, metrics.DeviceScaleFactor, manager.IsEmulatingTouch())
	return nil
}
