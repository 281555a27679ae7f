package main

import (
	"context"
	"fmt"
	"sort"

	"github.com/robotpit/pinsmith"
	"github.com/robotpit/pinsmith/pkg/domain"
	"github.com/spf13/cobra"
)

func newStepCmd(a *app) *cobra.Command {
	stepCmd := &cobra.Command{
		Use:   "step",
		Short: "Edit the action sequence of an output pin",
		Long: `Each output pin runs its action sequence once per pass of the main loop.
Steps are addressed by their zero-based index, as shown by "step ls".`,
	}

	lsCmd := &cobra.Command{
		Use:   "ls <pin>",
		Short: "List the steps of a pin",
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
			steps := p.Steps(pin)
			if len(steps) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "GPIO%d has no steps.\n", pin)
				return nil
			}
			for i, s := range steps {
				fmt.Fprintf(cmd.OutOrStdout(), "%d  %s%s\n", i, s.Type, formatParams(s.Params))
			}
			return nil
		},
	}

	addCmd := &cobra.Command{
		Use:   "add <pin> [action]",
		Short: "Append a step, optionally choosing its action and parameters",
		Example: `  pinsmith step add 5 blink --set interval=250
  pinsmith step add 18 angle --set angle=45`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			pin, err := parsePin(args[0])
			if err != nil {
				return err
			}
			set, _ := cmd.Flags().GetStringToString("set")

			return a.edit(cmd.Context(), func(ctx context.Context, p *pinsmith.Project) error {
				index, err := p.AddStep(ctx, pin)
				if err != nil {
					return err
				}
				if len(args) == 2 {
					if err := p.SetStepType(ctx, pin, index, domain.ActionID(args[1])); err != nil {
						return err
					}
				}
				for _, name := range sortedKeys(set) {
					if err := p.SetStepParamByName(ctx, pin, index, name, set[name]); err != nil {
						return err
					}
				}
				step := p.Steps(pin)[index]
				fmt.Fprintf(cmd.OutOrStdout(), "GPIO%d step %d: %s%s\n", pin, index, step.Type, formatParams(step.Params))
				return nil
			})
		},
	}
	addCmd.Flags().StringToString("set", nil, "Parameter values, e.g. interval=250")

	typeCmd := &cobra.Command{
		Use:   "type <pin> <index> <action>",
		Short: "Change the action of a step (its parameters are reset)",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			pin, index, err := pinAndIndex(args)
			if err != nil {
				return err
			}
			return a.edit(cmd.Context(), func(ctx context.Context, p *pinsmith.Project) error {
				return p.SetStepType(ctx, pin, index, domain.ActionID(args[2]))
			})
		},
	}

	paramCmd := &cobra.Command{
		Use:   "param <pin> <index> <name> <value>",
		Short: "Set one parameter of a step",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			pin, index, err := pinAndIndex(args)
			if err != nil {
				return err
			}
			return a.edit(cmd.Context(), func(ctx context.Context, p *pinsmith.Project) error {
				return p.SetStepParamByName(ctx, pin, index, args[2], args[3])
			})
		},
	}

	mvCmd := &cobra.Command{
		Use:   "mv <pin> <index> <up|down>",
		Short: "Swap a step with its neighbour",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			pin, index, err := pinAndIndex(args)
			if err != nil {
				return err
			}
			delta, err := parseDelta(args[2])
			if err != nil {
				return err
			}
			return a.edit(cmd.Context(), func(ctx context.Context, p *pinsmith.Project) error {
				moved, err := p.MoveStep(ctx, pin, index, delta)
				if err != nil {
					return err
				}
				if !moved {
					fmt.Fprintln(cmd.OutOrStdout(), "Nothing to move.")
				}
				return nil
			})
		},
	}

	rmCmd := &cobra.Command{
		Use:   "rm <pin> <index>",
		Short: "Delete a step",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			pin, index, err := pinAndIndex(args)
			if err != nil {
				return err
			}
			return a.edit(cmd.Context(), func(ctx context.Context, p *pinsmith.Project) error {
				return p.DeleteStep(ctx, pin, index)
			})
		},
	}

	stepCmd.AddCommand(lsCmd, addCmd, typeCmd, paramCmd, mvCmd, rmCmd)
	return stepCmd
}

func pinAndIndex(args []string) (int, int, error) {
	pin, err := parsePin(args[0])
	if err != nil {
		return 0, 0, err
	}
	index, err := parseIndex(args[1])
	if err != nil {
		return 0, 0, err
	}
	return pin, index, nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func formatParams(params map[string]string) string {
	s := ""
	for _, k := range sortedKeys(params) {
		s += fmt.Sprintf(" %s=%s", k, params[k])
	}
	return s
}
