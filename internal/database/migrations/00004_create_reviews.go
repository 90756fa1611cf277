package migrations

import (
	"context"
	"database/sql"

	"github.com/pressly/goose/v3"
)

func init() {
	goose.AddMigrationContext(upCreateReviews, downCreateReviews)
}

// Reviews leave only through the review service, which adjusts the store
// aggregate in the same transaction.
func upCreateReviews(ctx context.Context, tx *sql.Tx) error {
	return execAll(ctx, tx,
		`CREATE TABLE IF NOT EXISTS reviews (
			id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
			user_id BIGINT UNSIGNED NOT NULL,
			store_id BIGINT UNSIGNED NOT NULL,
			reservation_id BIGINT UNSIGNED NOT NULL,
			rating TINYINT NOT NULL,
			comment TEXT NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
			-- one review per reservation
			UNIQUE KEY uq_reviews_reservation (reservation_id),
			KEY idx_reviews_store (store_id, rating),
			KEY idx_reviews_user (user_id),
			CONSTRAINT chk_reviews_rating CHECK (rating >= 1 AND rating <= 5),
			CONSTRAINT fk_reviews_user FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE RESTRICT,
			CONSTRAINT fk_reviews_store FOREIGN KEY (store_id) REFERENCES stores(id) ON DELETE RESTRICT,
			CONSTRAINT fk_reviews_reservation FOREIGN KEY (reservation_id) REFERENCES reservations(id) ON DELETE RESTRICT
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	)
}

func downCreateReviews(ctx context.Context, tx *sql.Tx) error {
	return execAll(ctx, tx, `DROP TABLE IF EXISTS reviews`)
}
