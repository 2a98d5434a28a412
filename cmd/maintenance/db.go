package main

import (
	"errors"
	"os"

	"github.com/spf13/cobra"
	"github.com/staylong/rental-backend/internal/config"
	"github.com/staylong/rental-backend/internal/database"
)

// openDB connects with a small pool; maintenance tasks never need more
func openDB(cmd *cobra.Command) (*database.PostgresDB, error) {
	dbURL, _ := cmd.Flags().GetString("database-url")
	if dbURL == "" {
		dbURL = os.Getenv("DATABASE_URL")
	}
	if dbURL == "" {
		return nil, errors.New("DATABASE_URL is not set and --database-url was not provided")
	}

	return database.NewConnection(config.DatabaseConfig{
		URL:                dbURL,
		MaxConnections:     5,
		MaxIdleConnections: 2,
	})
}
