package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/staylong/rental-backend/internal/database"
)

func MigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create missing booking tables and indexes",
		RunE: func(cmd *cobra.Command, args []string) error {
			if printOnly, _ := cmd.Flags().GetBool("print"); printOnly {
				fmt.Fprint(cmd.OutOrStdout(), database.Schema())
				return nil
			}

			db, err := openDB(cmd)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := database.ApplySchema(cmd.Context(), db); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Schema applied.")
			return nil
		},
	}

	cmd.Flags().Bool("print", false, "Print the schema instead of applying it")

	return cmd
}
