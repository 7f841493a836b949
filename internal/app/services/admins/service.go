// Package admins handles login and the account hierarchy: the super admin
// creates developers, developers create assistants.
package admins

import (
	"context"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/taimoor511/certiqas-backend/internal/apperr"
	"github.com/taimoor511/certiqas-backend/internal/app/domain/user"
	"github.com/taimoor511/certiqas-backend/internal/app/policy"
	"github.com/taimoor511/certiqas-backend/internal/app/storage"
	"github.com/taimoor511/certiqas-backend/pkg/logger"
)

// Config holds token issuance settings.
type Config struct {
	JWTSecret string
	TokenTTL  time.Duration
}

// Session is a successful login.
type Session struct {
	Token string    `json:"token"`
	User  user.User `json:"user"`
}

// CreateInput describes a new account. DeveloperID is derived from the
// actor, never taken from the caller.
type CreateInput struct {
	Name        string
	Email       string
	Password    string
	CompanyName string
	Role        user.Role
}

// UpdateInput carries account changes. Empty fields are left untouched.
type UpdateInput struct {
	Name        string
	Email       string
	Password    string
	CompanyName string
}

// Service manages accounts and sessions.
type Service struct {
	users storage.UserStore
	cfg   Config
	log   *logger.Logger
}

// New creates the service.
func New(users storage.UserStore, cfg Config, log *logger.Logger) *Service {
	if cfg.TokenTTL == 0 {
		cfg.TokenTTL = 7 * 24 * time.Hour
	}
	if log == nil {
		log = logger.NewDefault("admins")
	}
	return &Service{users: users, cfg: cfg, log: log}
}

// Login verifies credentials and issues a signed session token.
func (s *Service) Login(ctx context.Context, email, password string) (Session, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return Session{}, apperr.Validation("email and password are required")
	}

	u, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		return Session{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return Session{}, apperr.Validation("incorrect password")
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"userId":      u.ID,
		"role":        string(u.Role),
		"developerId": u.DeveloperID,
		"email":       u.Email,
		"iat":         now.Unix(),
		"exp":         now.Add(s.cfg.TokenTTL).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return Session{}, apperr.Upstream(err, "sign session token")
	}

	s.log.WithField("email", u.Email).WithField("role", string(u.Role)).Info("login")
	return Session{Token: token, User: u}, nil
}

// Create adds an account one level below the actor in the hierarchy.
func (s *Service) Create(ctx context.Context, actor policy.Actor, input CreateInput) (user.User, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.Email = strings.TrimSpace(input.Email)
	if input.Name == "" || input.Email == "" || input.Password == "" {
		return user.User{}, apperr.Validation("name, email and password are required")
	}

	newUser := user.User{
		Name:        input.Name,
		Email:       input.Email,
		CompanyName: strings.TrimSpace(input.CompanyName),
	}

	switch actor.Role {
	case user.RoleSuperAdmin:
		if input.Role != user.RoleDeveloper {
			return user.User{}, apperr.Validation("super admin may only create developer accounts")
		}
		if newUser.CompanyName == "" {
			return user.User{}, apperr.Validation("companyName is required for developer accounts")
		}
		newUser.Role = user.RoleDeveloper

	case user.RoleDeveloper:
		if input.Role != "" && input.Role != user.RoleAssistant {
			return user.User{}, apperr.Validation("developer may only create assistant accounts")
		}
		newUser.Role = user.RoleAssistant
		newUser.DeveloperID = actor.UserID

	default:
		return user.User{}, apperr.Forbidden("role %q may not create accounts", actor.Role)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return user.User{}, apperr.Upstream(err, "hash password")
	}
	newUser.PasswordHash = string(hash)

	created, err := s.users.CreateUser(ctx, newUser)
	if err != nil {
		return user.User{}, err
	}
	s.log.WithField("email", created.Email).WithField("role", string(created.Role)).Info("account created")
	return created, nil
}

// List returns the accounts visible to the actor.
func (s *Service) List(ctx context.Context, actor policy.Actor) ([]user.User, error) {
	switch actor.Role {
	case user.RoleSuperAdmin:
		return s.users.ListUsers(ctx, storage.UserFilter{ExcludeRole: user.RoleSuperAdmin})
	case user.RoleDeveloper:
		return s.users.ListUsers(ctx, storage.UserFilter{
			Role:        user.RoleAssistant,
			DeveloperID: actor.UserID,
		})
	}
	return nil, apperr.Forbidden("role %q may not list accounts", actor.Role)
}

// Update modifies an account the actor controls.
func (s *Service) Update(ctx context.Context, actor policy.Actor, id string, input UpdateInput) (user.User, error) {
	target, err := s.users.GetUser(ctx, id)
	if err != nil {
		return user.User{}, err
	}
	if err := s.checkControl(actor, target); err != nil {
		return user.User{}, err
	}

	if name := strings.TrimSpace(input.Name); name != "" {
		target.Name = name
	}
	if email := strings.TrimSpace(input.Email); email != "" {
		target.Email = email
	}
	if company := strings.TrimSpace(input.CompanyName); company != "" {
		target.CompanyName = company
	}
	if input.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
		if err != nil {
			return user.User{}, apperr.Upstream(err, "hash password")
		}
		target.PasswordHash = string(hash)
	}

	return s.users.UpdateUser(ctx, target)
}

// Delete removes an account the actor controls.
func (s *Service) Delete(ctx context.Context, actor policy.Actor, id string) error {
	target, err := s.users.GetUser(ctx, id)
	if err != nil {
		return err
	}
	if err := s.checkControl(actor, target); err != nil {
		return err
	}
	return s.users.DeleteUser(ctx, id)
}

// checkControl enforces who may modify whom: never a super admin account,
// developers only their own assistants.
func (s *Service) checkControl(actor policy.Actor, target user.User) error {
	switch actor.Role {
	case user.RoleSuperAdmin:
		if target.Role == user.RoleSuperAdmin {
			return apperr.Forbidden("super admin accounts cannot be modified")
		}
		return nil
	case user.RoleDeveloper:
		if target.Role != user.RoleAssistant || target.DeveloperID != actor.UserID {
			return apperr.Forbidden("developers may only manage their own assistants")
		}
		return nil
	}
	return apperr.Forbidden("role %q may not manage accounts", actor.Role)
}
