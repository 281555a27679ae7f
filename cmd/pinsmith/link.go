package main

import (
	"context"
	"fmt"
	"time"

	"github.com/robotpit/pinsmith/internal/link"
	"github.com/spf13/cobra"
)

func newLinkCmd(a *app) *cobra.Command {
	linkCmd := &cobra.Command{
		Use:   "link",
		Short: "Drive a board running the pinsmith firmware",
		Long: `Talks to a board flashed with "pinsmith firmware" over its WebSocket.
The board address is a host, host:port or ws:// URL.`,
	}
	linkCmd.PersistentFlags().StringP("board", "b", "", "Board address, e.g. 192.168.1.40")
	linkCmd.PersistentFlags().Duration("timeout", 5*time.Second, "Time allowed for each command")
	_ = linkCmd.MarkPersistentFlagRequired("board")

	// run dials the board, runs fn within the timeout and closes the link.
	run := func(cmd *cobra.Command, fn func(ctx context.Context, c *link.Client) error) error {
		addr, _ := cmd.Flags().GetString("board")
		timeout, _ := cmd.Flags().GetDuration("timeout")

		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()

		c, err := link.Dial(ctx, addr, link.WithLogger(a.logger))
		if err != nil {
			return err
		}
		defer c.Close()
		return fn(ctx, c)
	}

	pingCmd := &cobra.Command{
		Use:   "ping",
		Short: "Check the board is reachable and print its uptime",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, func(ctx context.Context, c *link.Client) error {
				uptime, err := c.Ping(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "firmware %s, up %s\n", c.Version(), uptime)
				return nil
			})
		},
	}

	digitalCmd := &cobra.Command{
		Use:   "digital <pin> <0|1>",
		Short: "Drive a pin low or high",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			pin, err := parsePin(args[0])
			if err != nil {
				return err
			}
			var high bool
			switch args[1] {
			case "1", "high", "on":
				high = true
			case "0", "low", "off":
			default:
				return fmt.Errorf("invalid level %q (want 0 or 1)", args[1])
			}
			return run(cmd, func(ctx context.Context, c *link.Client) error {
				return c.Digital(ctx, pin, high)
			})
		},
	}

	pwmCmd := &cobra.Command{
		Use:   "pwm <pin> <duty>",
		Short: "Write an 8-bit duty cycle (0-255) to a pin",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			pin, err := parsePin(args[0])
			if err != nil {
				return err
			}
			duty, err := parseIndex(args[1])
			if err != nil {
				return err
			}
			channel, _ := cmd.Flags().GetInt("channel")
			return run(cmd, func(ctx context.Context, c *link.Client) error {
				return c.PWM(ctx, pin, duty, channel)
			})
		},
	}
	pwmCmd.Flags().Int("channel", 0, "LEDC channel")

	readCmd := &cobra.Command{
		Use:   "read <pin>",
		Short: "Sample a pin",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pin, err := parsePin(args[0])
			if err != nil {
				return err
			}
			analog, _ := cmd.Flags().GetBool("analog")
			return run(cmd, func(ctx context.Context, c *link.Client) error {
				v, err := c.Read(ctx, pin, analog)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), v)
				return nil
			})
		},
	}
	readCmd.Flags().Bool("analog", false, "Read the raw ADC value")

	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Push the pin modes of the current project to the board",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.view(cmd.Context())
			if err != nil {
				return err
			}
			return run(cmd, func(ctx context.Context, c *link.Client) error {
				if err := c.ApplyConfig(ctx, p.Snapshot(), p.Catalog()); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Configured %d pins\n", len(p.Configs()))
				return nil
			})
		},
	}

	linkCmd.AddCommand(pingCmd, digitalCmd, pwmCmd, readCmd, configCmd)
	return linkCmd
}
