package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rajasatyajit/ProtectLife/internal/auth"
)

func newKeygenCmd() *cobra.Command {
	var env string
	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate a moderator key",
		Long: `Generate a moderator key. The raw key is shown once; append the entry to
MODERATOR_KEY_HASHES (comma separated) to enable it.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, raw, entry, err := auth.GenerateModeratorKey(env)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Key ID:   %s\n", id)
			fmt.Fprintf(out, "Key:      %s\n", raw)
			fmt.Fprintf(out, "Entry:    %s\n", entry)
			return nil
		},
	}
	cmd.Flags().StringVar(&env, "env", "live", "environment tag embedded in the key")
	return cmd
}
