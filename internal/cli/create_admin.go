package cli

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mcq-platform/backend/internal/auth"
	"github.com/mcq-platform/backend/internal/config"
)

func newCreateAdminCmd() *cobra.Command {
	var password string
	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Set the admin password (stored as a bcrypt hash)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.FromEnv()
			pw := password
			if pw == "" {
				fmt.Fprint(cmd.OutOrStdout(), "New admin password: ")
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil {
					return errors.New("failed to read password")
				}
				pw = strings.TrimRight(line, "\r\n")
			}
			if err := auth.WriteAdminSecret(cfg.AdminSecretFile, pw); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "admin secret written to %s\n", cfg.AdminSecretFile)
			return nil
		},
	}
	cmd.Flags().StringVar(&password, "password", os.Getenv("ADMIN_PASSWORD"), "admin password (prompts if empty)")
	return cmd
}
