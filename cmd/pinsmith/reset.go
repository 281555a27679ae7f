package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/robotpit/pinsmith"
	"github.com/spf13/cobra"
)

func newResetCmd(a *app) *cobra.Command {
	resetCmd := &cobra.Command{
		Use:   "reset",
		Short: "Remove every pin, sequence and block of the project",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			yes, _ := cmd.Flags().GetBool("yes")
			if !yes {
				if !isTerminal(cmd.InOrStdin()) {
					return errors.New("refusing to reset without --yes when stdin is not a terminal")
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Remove all pins, sequences and blocks of %q? [y/N] ", a.project)
				answer, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				answer = strings.ToLower(strings.TrimSpace(answer))
				if answer != "y" && answer != "yes" {
					fmt.Fprintln(cmd.OutOrStdout(), "Aborted.")
					return nil
				}
			}
			return a.edit(cmd.Context(), func(ctx context.Context, p *pinsmith.Project) error {
				p.RemoveAll(ctx)
				fmt.Fprintf(cmd.OutOrStdout(), "Project %q reset.\n", p.ID())
				return nil
			})
		},
	}
	resetCmd.Flags().BoolP("yes", "y", false, "Do not ask for confirmation")
	return resetCmd
}
