package main

import (
	"github.com/spf13/cobra"
)

// DefaultProject is edited when --project is not given.
const DefaultProject = "default"

func newRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "pinsmith",
		Short: "Pinsmith configures microcontroller pins and generates Arduino sketches",
		Long: `Pinsmith lets you assign devices to the pins of an ESP32 board, describe what
they should do as per-pin action sequences or a block program, and generate the
matching Arduino sketch. Projects are persisted to memory, files or Redis.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.close()
		},
	}

	// Persistent flags (available to all commands)
	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "Config file (default ./pinsmith.yaml)")
	flags.String("dir", "", "Directory of the file store (overrides store.dir)")
	flags.String("store", "", "Store backend: memory, file or redis (overrides store.backend)")
	flags.StringP("project", "p", DefaultProject, "Project to operate on")
	flags.String("log-level", "", "Log level: debug, info, warn or error")
	flags.Bool("no-color", false, "Disable styled terminal output")

	rootCmd.AddCommand(
		newPinCmd(a),
		newStepCmd(a),
		newBlockCmd(a),
		newResetCmd(a),
		newGenerateCmd(a),
		newFirmwareCmd(a),
		newProjectCmd(a),
		newCatalogCmd(a),
		newServeCmd(a),
		newMCPCmd(a),
		newLinkCmd(a),
		newVersionCmd(),
	)
	return rootCmd
}
