package migrations

import (
	"context"
	"database/sql"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
)

func TestReservationsMigrationCreatesPartnerCodeKey(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UNIQUE KEY uq_reservations_partner_code (partner_id, confirmation_code)")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	tx, err := db.Begin()
	require.NoError(t, err)
	require.NoError(t, upCreateReservations(context.Background(), tx))
	require.NoError(t, tx.Commit())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUsersDownDropsInDependencyOrder(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DROP TABLE IF EXISTS refresh_tokens")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("DROP TABLE IF EXISTS users")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	tx, err := db.Begin()
	require.NoError(t, err)
	require.NoError(t, downCreateUsers(context.Background(), tx))
	require.NoError(t, tx.Rollback())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserDeleteIsRestrictedByReservationsAndReviews(t *testing.T) {
	cases := []struct {
		name string
		up   func(context.Context, *sql.Tx) error
		want string
	}{
		{"reservations", upCreateReservations, `(?s)` +
			regexp.QuoteMeta("fk_reservations_user FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE RESTRICT")},
		{"reviews", upCreateReviews, `(?s)` +
			regexp.QuoteMeta("fk_reviews_user FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE RESTRICT") + `.*` +
			regexp.QuoteMeta("fk_reviews_store FOREIGN KEY (store_id) REFERENCES stores(id) ON DELETE RESTRICT") + `.*` +
			regexp.QuoteMeta("fk_reviews_reservation FOREIGN KEY (reservation_id) REFERENCES reservations(id) ON DELETE RESTRICT")},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			mock.ExpectBegin()
			mock.ExpectExec(tc.want).WillReturnResult(sqlmock.NewResult(0, 0))
			mock.ExpectCommit()

			tx, err := db.Begin()
			require.NoError(t, err)
			require.NoError(t, tc.up(context.Background(), tx))
			require.NoError(t, tx.Commit())
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}
