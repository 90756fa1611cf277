// Package service holds the reservation lifecycle engine and the
// application services built around it.  Every operation takes the caller's
// identity explicitly and reports failures as one of the error kinds below,
// wrapped with context.
package service

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/iliyamo/table-reservation/internal/repository"
)

// Error kinds.  Callers test with errors.Is.
var (
	ErrNotFound        = errors.New("not found")
	ErrInvalidStatus   = errors.New("invalid status")
	ErrInvalidTime     = errors.New("invalid time")
	ErrAccessDenied    = errors.New("access denied")
	ErrAlreadyExists   = errors.New("already exists")
	ErrConflict        = errors.New("conflict")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrUnauthorized    = errors.New("unauthorized")
)

// Caller is the authenticated identity a request acts as.
type Caller struct {
	ID       uint64
	Username string
	Role     string
}

func kind(k error, format string, args ...any) error {
	return fmt.Errorf("%w: %s", k, fmt.Sprintf(format, args...))
}

// fromRepo maps repository errors onto error kinds.  what names the entity
// for NotFound and AlreadyExists messages.
func fromRepo(err error, what string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sql.ErrNoRows):
		return kind(ErrNotFound, "%s not found", what)
	case errors.Is(err, repository.ErrDuplicate):
		return kind(ErrAlreadyExists, "%s already exists", what)
	case errors.Is(err, repository.ErrConflict):
		return kind(ErrConflict, "%s is still referenced", what)
	}
	return err
}
