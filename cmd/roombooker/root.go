package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newRootCmd(version string) *cobra.Command {
	root := &cobra.Command{
		Use:   "roombooker",
		Short: "Books Google Workspace meeting rooms on behalf of signed-in users",
		Long: `roombooker serves the JSON API used by the room booking extension.

Users sign in with Google; the service keeps their OAuth tokens, caches the
domain's room resources and books rooms on their primary calendar.

Configuration is read from ROOMBOOKER_* environment variables.`,
		Version:      version,
		SilenceUsage: true,
	}
	root.SetVersionTemplate(`{{printf "roombooker version %s\n" .Version}}`)

	root.AddCommand(newServeCmd(version))
	root.AddCommand(newMigrateCmd())
	root.AddCommand(newVersionCmd(version))
	return root
}

func newVersionCmd(version string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "roombooker version %s\n", version)
			return err
		},
	}
}
