// Package services contains server-side business logic. This file implements
// UserService: registration, login, token verification and admin seeding.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/dmitrijs2005/fintrack/internal/common"
	"github.com/dmitrijs2005/fintrack/internal/server/auth"
	"github.com/dmitrijs2005/fintrack/internal/server/config"
	"github.com/dmitrijs2005/fintrack/internal/server/models"
	"github.com/dmitrijs2005/fintrack/internal/server/repositories/repomanager"
)

const minPasswordLength = 6

// AuthResult is returned by Register and Login.
type AuthResult struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

type UserService struct {
	db                          *sql.DB
	repomanager                 repomanager.RepositoryManager
	jwtSecret                   []byte
	accessTokenValidityDuration time.Duration
}

func NewUserService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config) *UserService {
	return &UserService{
		db:                          db,
		repomanager:                 m,
		jwtSecret:                   []byte(cfg.SecretKey),
		accessTokenValidityDuration: cfg.AccessTokenValidityDuration,
	}
}

func validateRegistration(email, password, name string) error {
	v := common.NewValidationError()
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		v.Add("email", "please include a valid email")
	}
	if len(password) < minPasswordLength {
		v.Add("password", fmt.Sprintf("please enter a password with %d or more characters", minPasswordLength))
	}
	if strings.TrimSpace(name) == "" {
		v.Add("name", "name is required")
	}
	return v.OrNil()
}

// Register creates a regular user account and returns a token for it.
func (s *UserService) Register(ctx context.Context, email, password, name string) (*AuthResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if err := validateRegistration(email, password, name); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, common.ErrorInternal
	}

	repo := s.repomanager.Users(s.db)
	u, err := repo.Create(ctx, &models.User{
		Email:        email,
		Name:         strings.TrimSpace(name),
		PasswordHash: hash,
		Role:         common.RoleUser,
	})
	if err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			v := common.NewValidationError()
			v.Add("email", "user already exists")
			return nil, v
		}
		return nil, fmt.Errorf("error creating user: %w", err)
	}

	return s.issue(u)
}

// Login verifies credentials. Unknown emails and wrong passwords are
// indistinguishable to the caller.
func (s *UserService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	repo := s.repomanager.Users(s.db)
	u, err := repo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthorized
		}
		return nil, common.ErrorInternal
	}

	ok, err := auth.CheckPassword(u.PasswordHash, password)
	if err != nil {
		return nil, common.ErrorInternal
	}
	if !ok {
		return nil, common.ErrorUnauthorized
	}

	return s.issue(u)
}

func (s *UserService) issue(u *models.User) (*AuthResult, error) {
	token, err := auth.GenerateToken(u.ID, u.Role, s.jwtSecret, s.accessTokenValidityDuration)
	if err != nil {
		return nil, common.ErrorInternal
	}
	return &AuthResult{Token: token, User: u}, nil
}

// Authenticate turns a bearer token into an Identity. The role is read from
// the database so a demoted admin loses access without waiting for expiry.
func (s *UserService) Authenticate(ctx context.Context, token string) (auth.Identity, error) {
	id, err := auth.ParseToken(token, s.jwtSecret)
	if err != nil {
		return auth.Identity{}, fmt.Errorf("%w: %w", common.ErrorUnauthorized, err)
	}

	u, err := s.repomanager.Users(s.db).GetByID(ctx, id.UserID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return auth.Identity{}, common.ErrorUnauthorized
		}
		return auth.Identity{}, fmt.Errorf("error loading user: %w", err)
	}

	return auth.Identity{UserID: u.ID, Role: u.Role}, nil
}

func (s *UserService) Profile(ctx context.Context, userID string) (*models.User, error) {
	return s.repomanager.Users(s.db).GetByID(ctx, userID)
}

// ListUsers is the read-only admin view of all accounts.
func (s *UserService) ListUsers(ctx context.Context, id auth.Identity) ([]*models.User, error) {
	if !id.IsAdmin() {
		return nil, common.ErrForbidden
	}
	return s.repomanager.Users(s.db).List(ctx)
}

// EnsureAdmin creates the operator account on first start. An existing
// account with that email is left untouched.
func (s *UserService) EnsureAdmin(ctx context.Context, email, password, name string) (bool, error) {
	if email == "" {
		return false, nil
	}

	repo := s.repomanager.Users(s.db)
	_, err := repo.GetByEmail(ctx, strings.ToLower(email))
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, common.ErrorNotFound) {
		return false, err
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return false, err
	}
	_, err = repo.Create(ctx, &models.User{
		Email:        strings.ToLower(email),
		Name:         name,
		PasswordHash: hash,
		Role:         common.RoleAdmin,
	})
	if err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
