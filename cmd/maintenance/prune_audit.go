package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/staylong/rental-backend/internal/services"
)

func PruneAuditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prune-audit",
		Short: "Delete admin audit entries older than a retention period",
		RunE: func(cmd *cobra.Command, args []string) error {
			olderThan, _ := cmd.Flags().GetDuration("older-than")
			if olderThan <= 0 {
				return fmt.Errorf("--older-than must be positive")
			}

			db, err := openDB(cmd)
			if err != nil {
				return err
			}
			defer db.Close()

			removed, err := services.NewAuditService(db).CleanupOldAuditLogs(cmd.Context(), olderThan)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d audit entries.\n", removed)
			return nil
		},
	}

	cmd.Flags().Duration("older-than", 90*24*time.Hour, "Retention period, e.g. 2160h")

	return cmd
}
