// Package repository defines error types that are reused across multiple
// repositories.  Absent rows are reported as sql.ErrNoRows; the sentinels
// below classify constraint violations so the service layer can map them
// onto its own error kinds.
package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

// ErrDuplicate is returned when an insert or update violates a unique key
// (MySQL error 1062): duplicate username, email, store name, review for a
// reservation, or confirmation code within a partner.
var ErrDuplicate = errors.New("duplicate")

// ErrConflict is returned when a delete or update cannot be performed
// because dependent rows still reference the record (MySQL error 1451),
// such as withdrawing a store that has reservations.
var ErrConflict = errors.New("conflict")

const (
	mysqlDuplicateEntry = 1062
	mysqlRowIsReferenced = 1451
)

// classify maps driver errors onto repository sentinels and passes anything
// else through unchanged.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		switch me.Number {
		case mysqlDuplicateEntry:
			return ErrDuplicate
		case mysqlRowIsReferenced:
			return ErrConflict
		}
	}
	return err
}

// Page is a one-based pagination request.
type Page struct {
	Page     int
	PageSize int
}

// Normalize applies the API defaults: page 1, 20 rows, at most 100.
func (p Page) Normalize() Page {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = 20
	}
	if p.PageSize > 100 {
		p.PageSize = 100
	}
	return p
}

// Offset is the row offset of the first item of the page.
func (p Page) Offset() int { return (p.Page - 1) * p.PageSize }
