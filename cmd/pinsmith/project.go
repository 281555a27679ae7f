package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/robotpit/pinsmith"
	"github.com/robotpit/pinsmith/internal/presentation/graph"
	"github.com/robotpit/pinsmith/internal/presentation/tui"
	"github.com/robotpit/pinsmith/pkg/domain"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newProjectCmd(a *app) *cobra.Command {
	projectCmd := &cobra.Command{
		Use:   "project",
		Short: "Manage stored projects",
		Long:  `List, inspect, copy, export, import and remove the projects held by the configured store.`,
	}

	// target is the optional positional project, defaulting to --project.
	target := func(args []string) string {
		if len(args) > 0 {
			return args[0]
		}
		return a.project
	}

	lsCmd := &cobra.Command{
		Use:   "ls",
		Short: "List stored projects",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			projects, err := a.getStore().List(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to list projects: %w", err)
			}
			if len(projects) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No projects found.")
				return nil
			}
			for _, id := range projects {
				fmt.Fprintln(cmd.OutOrStdout(), id)
			}
			return nil
		},
	}

	inspectCmd := &cobra.Command{
		Use:   "inspect [project]",
		Short: "Summarise a stored project",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := target(args)
			snap, err := a.manager().Load(cmd.Context(), id)
			if err != nil {
				return err
			}
			if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
				data, err := json.MarshalIndent(snap, "", "  ")
				if err != nil {
					return fmt.Errorf("failed to marshal project: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(data))
				return nil
			}
			return a.render(cmd, tui.ProjectMarkdown(id, snap, a.catalog))
		},
	}
	inspectCmd.Flags().Bool("json", false, "Print the raw snapshot as JSON")

	rmCmd := &cobra.Command{
		Use:   "rm <project>...",
		Short: "Remove one or more projects",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m := a.manager()
			var errs []error
			for _, id := range args {
				if err := m.Delete(cmd.Context(), id); err != nil {
					errs = append(errs, fmt.Errorf("failed to remove %q: %w", id, err))
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed project %q\n", id)
			}
			return errors.Join(errs...)
		},
	}

	copyCmd := &cobra.Command{
		Use:   "copy <to>",
		Short: "Save the current project under another name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.edit(cmd.Context(), func(ctx context.Context, p *pinsmith.Project) error {
				if err := p.SaveAs(ctx, args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Copied %q to %q\n", p.ID(), args[0])
				return nil
			})
		},
	}

	exportCmd := &cobra.Command{
		Use:   "export [project]",
		Short: "Write a project as YAML or JSON",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := a.manager().Load(cmd.Context(), target(args))
			if err != nil {
				return err
			}
			format, _ := cmd.Flags().GetString("format")
			output, _ := cmd.Flags().GetString("output")
			if output != "" && !cmd.Flags().Changed("format") {
				format = formatOf(output)
			}
			data, err := encodeSnapshot(snap, format)
			if err != nil {
				return err
			}
			return writeOutput(cmd, output, string(data))
		},
	}
	exportCmd.Flags().String("format", "yaml", "Output format: yaml or json")
	exportCmd.Flags().StringP("output", "o", "", "Write to file instead of stdout (format follows the extension)")

	importCmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Load a YAML or JSON export into the store",
		Long: `Reads a file written by "project export" and stores it as the current project.
Pins the board cannot use with their device, and sequences of pins that are
not configured, are dropped.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", args[0], err)
			}
			snap, err := decodeSnapshot(data, formatOf(args[0]))
			if err != nil {
				return err
			}
			var dropped []int
			err = a.edit(cmd.Context(), func(ctx context.Context, p *pinsmith.Project) error {
				dropped, err = p.Import(ctx, snap)
				return err
			})
			if err != nil {
				return err
			}
			for _, pin := range dropped {
				fmt.Fprintf(cmd.ErrOrStderr(), "Skipped GPIO%d: not usable with its device on %s\n", pin, a.pins.Board)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %s as %q\n", args[0], a.project)
			return nil
		},
	}

	graphCmd := &cobra.Command{
		Use:   "graph [project]",
		Short: "Export the main loop as a Mermaid flowchart",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := a.manager().Load(cmd.Context(), target(args))
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(snap))
			return nil
		},
	}

	projectCmd.AddCommand(lsCmd, inspectCmd, rmCmd, copyCmd, exportCmd, importCmd, graphCmd)
	return projectCmd
}

func formatOf(path string) string {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return "json"
	}
	return "yaml"
}

func encodeSnapshot(snap *domain.Snapshot, format string) ([]byte, error) {
	switch format {
	case "json":
		data, err := json.MarshalIndent(snap, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to marshal project: %w", err)
		}
		return append(data, '\n'), nil
	case "yaml", "yml":
		data, err := yaml.Marshal(snap)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal project: %w", err)
		}
		return data, nil
	}
	return nil, fmt.Errorf("unknown format %q (want yaml or json)", format)
}

func decodeSnapshot(data []byte, format string) (*domain.Snapshot, error) {
	snap := &domain.Snapshot{}
	var err error
	if format == "json" {
		err = json.Unmarshal(data, snap)
	} else {
		err = yaml.Unmarshal(data, snap)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse project: %w", err)
	}
	return snap, nil
}
