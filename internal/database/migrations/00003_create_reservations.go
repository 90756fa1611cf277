package migrations

import (
	"context"
	"database/sql"

	"github.com/pressly/goose/v3"
)

func init() {
	goose.AddMigrationContext(upCreateReservations, downCreateReservations)
}

// A NULL confirmation_code does not collide under the unique key, so only
// issued codes are constrained per partner.  Reservations are never deleted,
// so both parents restrict.
func upCreateReservations(ctx context.Context, tx *sql.Tx) error {
	return execAll(ctx, tx,
		`CREATE TABLE IF NOT EXISTS reservations (
			id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
			user_id BIGINT UNSIGNED NOT NULL,
			store_id BIGINT UNSIGNED NOT NULL,
			partner_id BIGINT UNSIGNED NOT NULL,
			reservation_time DATETIME NOT NULL,
			status ENUM('PENDING','APPROVED','REJECTED','CANCELLED','COMPLETED','OVERDUE') NOT NULL DEFAULT 'PENDING',
			confirmation_code CHAR(12) NULL,
			reviewed TINYINT(1) NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			UNIQUE KEY uq_reservations_partner_code (partner_id, confirmation_code),
			KEY idx_reservations_status_time (status, reservation_time),
			KEY idx_reservations_store_time (store_id, reservation_time),
			KEY idx_reservations_user_time (user_id, reservation_time),
			CONSTRAINT fk_reservations_user FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE RESTRICT,
			CONSTRAINT fk_reservations_store FOREIGN KEY (store_id) REFERENCES stores(id) ON DELETE RESTRICT
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	)
}

func downCreateReservations(ctx context.Context, tx *sql.Tx) error {
	return execAll(ctx, tx, `DROP TABLE IF EXISTS reservations`)
}
