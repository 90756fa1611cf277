package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/iliyamo/table-reservation/internal/model"
	"github.com/iliyamo/table-reservation/internal/utils"
)

type UserRepository interface {
	Create(ctx context.Context, u model.User) (uint64, error)
	GetByUsername(ctx context.Context, username string) (model.User, error)
	GetByID(ctx context.Context, id uint64) (model.User, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	UpdateCredentials(ctx context.Context, id uint64, email, passwordHash string) error
	UpdateRole(ctx context.Context, id uint64, role string) error
	Delete(ctx context.Context, id uint64) error
}

// UserService covers registration, credential checks and self-service
// profile changes.  Token issuance stays with the auth handler.
type UserService struct {
	users      UserRepository
	bcryptCost int
}

func NewUserService(users UserRepository, bcryptCost int) *UserService {
	return &UserService{users: users, bcryptCost: bcryptCost}
}

func normalizeIdentity(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

var emailRule = validator.New()

func validEmail(s string) bool { return emailRule.Var(s, "required,email") == nil }

// Register creates a USER account.
func (s *UserService) Register(ctx context.Context, username, email, password string) (model.User, error) {
	username, email = normalizeIdentity(username), normalizeIdentity(email)
	if username == "" || password == "" || !validEmail(email) {
		return model.User{}, kind(ErrInvalidArgument, "username, valid email and password are required")
	}
	if taken, err := s.users.ExistsByUsername(ctx, username); err != nil {
		return model.User{}, err
	} else if taken {
		return model.User{}, kind(ErrAlreadyExists, "username %q is taken", username)
	}
	if taken, err := s.users.ExistsByEmail(ctx, email); err != nil {
		return model.User{}, err
	} else if taken {
		return model.User{}, kind(ErrAlreadyExists, "email %q is registered", email)
	}
	hash, err := utils.HashPassword(password, s.bcryptCost)
	if err != nil {
		return model.User{}, err
	}
	u := model.User{Username: username, Email: email, PasswordHash: hash, Role: model.RoleUser}
	id, err := s.users.Create(ctx, u)
	if err != nil {
		return model.User{}, fromRepo(err, "user")
	}
	u.ID = id
	return u, nil
}

// Authenticate checks a username and password pair.
func (s *UserService) Authenticate(ctx context.Context, username, password string) (model.User, error) {
	u, err := s.users.GetByUsername(ctx, normalizeIdentity(username))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.User{}, kind(ErrUnauthorized, "invalid credentials")
		}
		return model.User{}, err
	}
	if !utils.VerifyPassword(u.PasswordHash, password) {
		return model.User{}, kind(ErrUnauthorized, "invalid credentials")
	}
	return u, nil
}

// ByID loads a user; token refresh uses it to pick up role changes.
func (s *UserService) ByID(ctx context.Context, id uint64) (model.User, error) {
	u, err := s.users.GetByID(ctx, id)
	return u, fromRepo(err, "user")
}

// Detail returns the public profile of username.
func (s *UserService) Detail(ctx context.Context, username string) (model.User, error) {
	u, err := s.users.GetByUsername(ctx, normalizeIdentity(username))
	return u, fromRepo(err, "user")
}

// Update changes caller's email and, when newPassword is set, password.
func (s *UserService) Update(ctx context.Context, caller uint64, username, email, newPassword string) (model.User, error) {
	u, err := s.self(ctx, caller, username)
	if err != nil {
		return model.User{}, err
	}
	if email = normalizeIdentity(email); email != "" && email != u.Email {
		if !validEmail(email) {
			return model.User{}, kind(ErrInvalidArgument, "invalid email")
		}
		taken, err := s.users.ExistsByEmail(ctx, email)
		if err != nil {
			return model.User{}, err
		}
		if taken {
			return model.User{}, kind(ErrAlreadyExists, "email %q is registered", email)
		}
		u.Email = email
	}
	if newPassword != "" {
		if u.PasswordHash, err = utils.HashPassword(newPassword, s.bcryptCost); err != nil {
			return model.User{}, err
		}
	}
	if err := s.users.UpdateCredentials(ctx, u.ID, u.Email, u.PasswordHash); err != nil {
		return model.User{}, fromRepo(err, "user")
	}
	return u, nil
}

// Withdraw deletes caller's own account.  Accounts that own stores or have
// any reservation history cannot be withdrawn.
func (s *UserService) Withdraw(ctx context.Context, caller uint64, username string) error {
	u, err := s.self(ctx, caller, username)
	if err != nil {
		return err
	}
	return fromRepo(s.users.Delete(ctx, u.ID), "user")
}

// SetPartner upgrades caller to the PARTNER role.
func (s *UserService) SetPartner(ctx context.Context, caller uint64, username string) (model.User, error) {
	u, err := s.self(ctx, caller, username)
	if err != nil {
		return model.User{}, err
	}
	if u.Role == model.RolePartner {
		return model.User{}, kind(ErrConflict, "user %q is already a partner", u.Username)
	}
	if err := s.users.UpdateRole(ctx, u.ID, model.RolePartner); err != nil {
		return model.User{}, fromRepo(err, "user")
	}
	u.Role = model.RolePartner
	return u, nil
}

func (s *UserService) self(ctx context.Context, caller uint64, username string) (model.User, error) {
	u, err := s.users.GetByUsername(ctx, normalizeIdentity(username))
	if err != nil {
		return model.User{}, fromRepo(err, "user")
	}
	if u.ID != caller {
		return model.User{}, kind(ErrAccessDenied, "cannot act on another user")
	}
	return u, nil
}
