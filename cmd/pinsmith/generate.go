package main

import (
	"context"
	"fmt"
	"os"

	"github.com/robotpit/pinsmith"
	"github.com/robotpit/pinsmith/internal/firmware"
	"github.com/spf13/cobra"
)

func newGenerateCmd(a *app) *cobra.Command {
	generateCmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate the Arduino sketch of the project",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var code string
			err := a.edit(cmd.Context(), func(ctx context.Context, p *pinsmith.Project) error {
				code = p.Generate(ctx)
				return nil
			})
			if err != nil {
				return err
			}
			output, _ := cmd.Flags().GetString("output")
			return writeOutput(cmd, output, code)
		},
	}
	generateCmd.Flags().StringP("output", "o", "", "Write to file instead of stdout")
	return generateCmd
}

func newFirmwareCmd(a *app) *cobra.Command {
	firmwareCmd := &cobra.Command{
		Use:   "firmware",
		Short: "Generate the companion firmware used by \"pinsmith link\"",
		Long: `Renders a sketch that joins a WiFi network and accepts JSON commands over a
WebSocket, so that pins can be driven from "pinsmith link" without reflashing.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			ssid, _ := flags.GetString("ssid")
			password, _ := flags.GetString("password")
			port, _ := flags.GetInt("ws-port")
			output, _ := flags.GetString("output")

			code, err := firmware.Render(firmware.Options{
				SSID:     ssid,
				Password: password,
				Port:     port,
				Pins:     a.pins,
			})
			if err != nil {
				return err
			}
			return writeOutput(cmd, output, code)
		},
	}
	firmwareCmd.Flags().String("ssid", "", "WiFi network name")
	firmwareCmd.Flags().String("password", "", "WiFi password (empty for open networks)")
	firmwareCmd.Flags().Int("ws-port", firmware.DefaultPort, "WebSocket port of the firmware")
	firmwareCmd.Flags().StringP("output", "o", "", "Write to file instead of stdout")
	_ = firmwareCmd.MarkFlagRequired("ssid")
	return firmwareCmd
}

func writeOutput(cmd *cobra.Command, path, content string) error {
	if path == "" {
		_, err := fmt.Fprint(cmd.OutOrStdout(), content)
		return err
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %s\n", path)
	return nil
}
