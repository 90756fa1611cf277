package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pressly/goose/v3"

	"github.com/iliyamo/table-reservation/internal/database/migrations"
)

// Migrate applies goose migrations in the given direction: "up", "down" or
// "status".
func Migrate(ctx context.Context, db *sql.DB, command string) error {
	if err := goose.SetDialect("mysql"); err != nil {
		return fmt.Errorf("goose dialect: %w", err)
	}
	switch command {
	case "", "up":
		return goose.UpContext(ctx, db, migrations.Dir)
	case "down":
		return goose.DownContext(ctx, db, migrations.Dir)
	case "status":
		return goose.StatusContext(ctx, db, migrations.Dir)
	default:
		return fmt.Errorf("unknown migrate command %q", command)
	}
}
