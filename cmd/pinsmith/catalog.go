package main

import (
	"encoding/json"
	"fmt"

	"github.com/robotpit/pinsmith/internal/presentation/tui"
	"github.com/spf13/cobra"
)

func newCatalogCmd(a *app) *cobra.Command {
	catalogCmd := &cobra.Command{
		Use:   "catalog",
		Short: "Show the device kinds, their actions and parameters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
				data, err := json.MarshalIndent(a.catalog.Kinds(), "", "  ")
				if err != nil {
					return fmt.Errorf("failed to marshal catalog: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(data))
				return nil
			}
			return a.render(cmd, tui.CatalogMarkdown(a.catalog))
		},
	}
	catalogCmd.Flags().Bool("json", false, "Print the catalog as JSON")
	return catalogCmd
}
