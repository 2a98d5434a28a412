package database

import (
	"context"
	_ "embed"
	"fmt"
)

//go:embed schema.sql
var schemaSQL string

// Schema returns the DDL for the booking tables
func Schema() string {
	return schemaSQL
}

// ApplySchema creates any missing tables and indexes
func ApplySchema(ctx context.Context, db DB) error {
	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}
