package cli

import (
	"github.com/spf13/cobra"
)

// Execute runs the CLI.
func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcq-platform",
		Short: "MCQ test platform backend",
	}
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newCreateAdminCmd())
	return cmd
}
