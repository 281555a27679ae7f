package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/robotpit/pinsmith"
	"github.com/robotpit/pinsmith/internal/presentation/tui"
	"github.com/robotpit/pinsmith/pkg/domain"
	"github.com/spf13/cobra"
)

func newPinCmd(a *app) *cobra.Command {
	pinCmd := &cobra.Command{
		Use:   "pin",
		Short: "Inspect board pins and assign devices to them",
	}

	lsCmd := &cobra.Command{
		Use:   "ls",
		Short: "List the board's pins and the devices attached to them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.view(cmd.Context())
			if err != nil {
				return err
			}
			return a.render(cmd, tui.PinsMarkdown(p.Pins(), p.Snapshot()))
		},
	}

	showCmd := &cobra.Command{
		Use:   "show <pin>",
		Short: "Show a pin's capabilities, its device and the kinds it accepts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pin, err := parsePin(args[0])
			if err != nil {
				return err
			}
			p, err := a.view(cmd.Context())
			if err != nil {
				return err
			}
			capability, cfg, err := p.SelectPin(pin)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, capability)
			if cfg != nil {
				fmt.Fprintf(out, "device: %s (%s)\n", cfg.Kind, cfg.Label)
			} else {
				fmt.Fprintln(out, "device: none")
			}
			var kinds []string
			for _, def := range p.Catalog().CompatibleKinds(capability) {
				kinds = append(kinds, string(def.Kind))
			}
			fmt.Fprintf(out, "accepts: %s\n", strings.Join(kinds, ", "))
			return nil
		},
	}

	setCmd := &cobra.Command{
		Use:   "set <pin> <kind>",
		Short: "Attach a device kind to a pin",
		Example: `  pinsmith pin set 5 led --label Status
  pinsmith pin set 18 servo --extra min_angle=10 --extra max_angle=170`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			pin, err := parsePin(args[0])
			if err != nil {
				return err
			}
			label, _ := cmd.Flags().GetString("label")
			extra, _ := cmd.Flags().GetStringToString("extra")

			return a.edit(cmd.Context(), func(ctx context.Context, p *pinsmith.Project) error {
				cfg, err := p.ApplyConfig(ctx, pin, domain.DeviceKind(args[1]), label, extra)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "GPIO%d is now %s (%s)\n", cfg.Pin, cfg.Kind, cfg.Label)
				return nil
			})
		},
	}
	setCmd.Flags().String("label", "", "Display name used in the generated sketch (default GPIO<pin>)")
	setCmd.Flags().StringToString("extra", nil, "Pin settings of the kind, e.g. min_angle=10")

	rmCmd := &cobra.Command{
		Use:   "rm <pin>",
		Short: "Detach the device of a pin along with its sequence",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pin, err := parsePin(args[0])
			if err != nil {
				return err
			}
			return a.edit(cmd.Context(), func(ctx context.Context, p *pinsmith.Project) error {
				if err := p.RemovePin(ctx, pin); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "GPIO%d removed\n", pin)
				return nil
			})
		},
	}

	pinCmd.AddCommand(lsCmd, showCmd, setCmd, rmCmd)
	return pinCmd
}
