package migrations

import (
	"context"
	"database/sql"

	"github.com/pressly/goose/v3"
)

func init() {
	goose.AddMigrationContext(upCreateStores, downCreateStores)
}

func upCreateStores(ctx context.Context, tx *sql.Tx) error {
	return execAll(ctx, tx,
		`CREATE TABLE IF NOT EXISTS stores (
			id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
			partner_id BIGINT UNSIGNED NOT NULL,
			name VARCHAR(128) NOT NULL,
			location VARCHAR(255) NOT NULL,
			description TEXT NOT NULL,
			rating DOUBLE NOT NULL DEFAULT 0,
			reviews INT NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
			UNIQUE KEY uq_stores_name (name),
			KEY idx_stores_rating (rating),
			CONSTRAINT fk_stores_partner FOREIGN KEY (partner_id) REFERENCES users(id)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	)
}

func downCreateStores(ctx context.Context, tx *sql.Tx) error {
	return execAll(ctx, tx, `DROP TABLE IF EXISTS stores`)
}
