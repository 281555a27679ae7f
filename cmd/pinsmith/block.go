package main

import (
	"context"
	"fmt"

	"github.com/robotpit/pinsmith"
	"github.com/robotpit/pinsmith/pkg/domain"
	"github.com/spf13/cobra"
)

func newBlockCmd(a *app) *cobra.Command {
	blockCmd := &cobra.Command{
		Use:   "block",
		Short: "Edit the block program of the main loop",
		Long: `The block program is a flat list of conditions, actions, loops and delays
emitted at the top of the main loop. Blocks are addressed by their zero-based index.`,
	}

	lsCmd := &cobra.Command{
		Use:   "ls",
		Short: "List the blocks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.view(cmd.Context())
			if err != nil {
				return err
			}
			blocks := p.Blocks()
			if len(blocks) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No blocks.")
				return nil
			}
			for i, b := range blocks {
				fmt.Fprintf(cmd.OutOrStdout(), "%d  %s\n", i, formatBlock(b))
			}
			return nil
		},
	}

	addCmd := &cobra.Command{
		Use:       "add <condition|action|loop|delay>",
		Short:     "Append a block with default parameters",
		Example:   `  pinsmith block add condition --set pin=34 --set operator=">" --set value=500`,
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"condition", "action", "loop", "delay"},
		RunE: func(cmd *cobra.Command, args []string) error {
			set, _ := cmd.Flags().GetStringToString("set")
			return a.edit(cmd.Context(), func(ctx context.Context, p *pinsmith.Project) error {
				if _, err := p.AddBlock(ctx, domain.BlockType(args[0])); err != nil {
					return err
				}
				index := len(p.Blocks()) - 1
				for _, name := range sortedKeys(set) {
					if err := p.SetBlockParam(ctx, index, name, set[name]); err != nil {
						return err
					}
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d  %s\n", index, formatBlock(p.Blocks()[index]))
				return nil
			})
		},
	}
	addCmd.Flags().StringToString("set", nil, "Parameter values, e.g. pin=34")

	setCmd := &cobra.Command{
		Use:   "set <index> <name> <value>",
		Short: "Set one parameter of a block (an empty pin clears it)",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := parseIndex(args[0])
			if err != nil {
				return err
			}
			return a.edit(cmd.Context(), func(ctx context.Context, p *pinsmith.Project) error {
				return p.SetBlockParam(ctx, index, args[1], args[2])
			})
		},
	}

	mvCmd := &cobra.Command{
		Use:   "mv <index> <up|down>",
		Short: "Swap a block with its neighbour",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := parseIndex(args[0])
			if err != nil {
				return err
			}
			delta, err := parseDelta(args[1])
			if err != nil {
				return err
			}
			return a.edit(cmd.Context(), func(ctx context.Context, p *pinsmith.Project) error {
				if !p.MoveBlock(ctx, index, delta) {
					fmt.Fprintln(cmd.OutOrStdout(), "Nothing to move.")
				}
				return nil
			})
		},
	}

	rmCmd := &cobra.Command{
		Use:   "rm <index>",
		Short: "Delete a block",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := parseIndex(args[0])
			if err != nil {
				return err
			}
			return a.edit(cmd.Context(), func(ctx context.Context, p *pinsmith.Project) error {
				return p.DeleteBlock(ctx, index)
			})
		},
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every block",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.edit(cmd.Context(), func(ctx context.Context, p *pinsmith.Project) error {
				if !p.ClearBlocks(ctx) {
					fmt.Fprintln(cmd.OutOrStdout(), "No blocks.")
				}
				return nil
			})
		},
	}

	blockCmd.AddCommand(lsCmd, addCmd, setCmd, mvCmd, rmCmd, clearCmd)
	return blockCmd
}

func formatBlock(b domain.Block) string {
	pin := func(p *int) string {
		if p == nil {
			return "-"
		}
		return fmt.Sprintf("GPIO%d", *p)
	}
	switch {
	case b.Condition != nil:
		return fmt.Sprintf("condition  %s %s %s", pin(b.Condition.Pin), b.Condition.Operator, b.Condition.Value)
	case b.Action != nil:
		action := string(b.Action.Action)
		if action == "" {
			action = "-"
		}
		return fmt.Sprintf("action     %s %s", pin(b.Action.Pin), action)
	case b.Loop != nil:
		return fmt.Sprintf("loop       %d times", b.Loop.Count)
	case b.Delay != nil:
		return fmt.Sprintf("delay      %d ms", b.Delay.Time)
	}
	return string(b.Type)
}
