package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	// .env is optional; it keeps secrets off the command line
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:   "maintenance",
		Short: "Operational tasks for the rental backend",
	}
	rootCmd.PersistentFlags().String("database-url", "", "PostgreSQL connection string (overrides DATABASE_URL)")

	rootCmd.AddCommand(
		MigrateCmd(),
		SweepExpiredCmd(),
		QuoteCmd(),
		SecretsCmd(),
		PruneAuditCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
