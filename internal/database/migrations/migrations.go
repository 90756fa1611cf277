// Package migrations holds the goose Go migrations for the MySQL schema.
// Importing the package registers them.
package migrations

import (
	"context"
	"database/sql"
)

// Dir is where goose looks for migration sources relative to the repository
// root.  The Go migrations are registered at init, so the directory only has
// to exist when running from a checkout.
const Dir = "internal/database/migrations"

// execAll runs each statement separately; the MySQL driver rejects
// multi-statement Exec calls by default.
func execAll(ctx context.Context, tx *sql.Tx, stmts ...string) error {
	for _, s := range stmts {
		if _, err := tx.ExecContext(ctx, s); err != nil {
			return err
		}
	}
	return nil
}
