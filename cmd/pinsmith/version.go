package main

import (
	"fmt"

	"github.com/robotpit/pinsmith"
	"github.com/robotpit/pinsmith/internal/presentation/tui"
	"github.com/spf13/cobra"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number of pinsmith",
		Run: func(cmd *cobra.Command, args []string) {
			if isTerminal(cmd.OutOrStdout()) {
				tui.PrintBanner(cmd.OutOrStdout())
			}
			fmt.Fprintf(cmd.OutOrStdout(), "pinsmith version %s\n", pinsmith.Version)
		},
	}
}
