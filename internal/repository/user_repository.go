package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/table-reservation/internal/model"
)

const userColumns = "id,username,email,password_hash,role,created_at,updated_at"

type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

func scanUser(row interface{ Scan(...any) error }) (model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Role, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

// Create inserts a user and returns its ID.  Usernames and emails are
// normalized to lower case; a taken username or email yields ErrDuplicate.
func (r *UserRepo) Create(ctx context.Context, u model.User) (uint64, error) {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (username, email, password_hash, role) VALUES (?,?,?,?)",
		normalize(u.Username), normalize(u.Email), u.PasswordHash, u.Role)
	if err != nil {
		return 0, classify(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByUsername fetches a user by normalized username.
func (r *UserRepo) GetByUsername(ctx context.Context, username string) (model.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE username=? LIMIT 1", normalize(username)))
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id))
}

// ExistsByUsername reports whether the username is taken.
func (r *UserRepo) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	return r.exists(ctx, "SELECT EXISTS(SELECT 1 FROM users WHERE username=?)", normalize(username))
}

// ExistsByEmail reports whether the email is taken.
func (r *UserRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return r.exists(ctx, "SELECT EXISTS(SELECT 1 FROM users WHERE email=?)", normalize(email))
}

func (r *UserRepo) exists(ctx context.Context, q string, arg any) (bool, error) {
	var ok bool
	err := r.DB.QueryRowContext(ctx, q, arg).Scan(&ok)
	return ok, err
}

// UpdateCredentials replaces the email and password hash of a user.
func (r *UserRepo) UpdateCredentials(ctx context.Context, id uint64, email, passwordHash string) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE users SET email=?, password_hash=? WHERE id=?",
		normalize(email), passwordHash, id)
	if err != nil {
		return classify(err)
	}
	return requireAffected(res)
}

// UpdateRole sets the role of a user.
func (r *UserRepo) UpdateRole(ctx context.Context, id uint64, role string) error {
	res, err := r.DB.ExecContext(ctx, "UPDATE users SET role=? WHERE id=?", role, id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

// Delete removes a user.  Owned stores, reservations or reviews block the delete
// with ErrConflict.
func (r *UserRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM users WHERE id=?", id)
	if err != nil {
		return classify(err)
	}
	return requireAffected(res)
}

func normalize(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

// requireAffected turns a zero-row mutation into sql.ErrNoRows.
func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
