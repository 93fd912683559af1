package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"regexp"
	"strings"

	"fintrack/internal/auth"
	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/storage"
)

const (
	minPasswordLen = 8
	// bcrypt rejects passwords longer than 72 bytes.
	maxPasswordLen = 72
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_.-]{3,32}$`)

type RegisterRequest struct {
	Username string
	Password string
	Email    string
}

// Session is what a successful register or login hands back to the client.
type Session struct {
	Token    string
	UserID   int64
	Username string
}

type AuthService struct {
	users  storage.UserStore
	tokens *auth.TokenIssuer
	hasher *auth.Hasher
	logger *log.Logger
}

func NewAuthService(users storage.UserStore, tokens *auth.TokenIssuer, hasher *auth.Hasher, logger *log.Logger) *AuthService {
	return &AuthService{
		users:  users,
		tokens: tokens,
		hasher: hasher,
		logger: orDefault(logger).WithComponent(log.ComponentAuth),
	}
}

func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (Session, error) {
	username := strings.TrimSpace(req.Username)
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if username == "" || email == "" || req.Password == "" {
		return Session{}, core.NewValidationError("All fields are required")
	}
	if !usernamePattern.MatchString(username) {
		return Session{}, core.NewValidationError("Username must be 3-32 letters, digits, '.', '_' or '-'")
	}
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		return Session{}, core.NewValidationError("Invalid email address")
	}
	if len(req.Password) < minPasswordLen {
		return Session{}, core.NewValidationError(fmt.Sprintf("Password must be at least %d characters", minPasswordLen))
	}
	if len(req.Password) > maxPasswordLen {
		return Session{}, core.NewValidationError(fmt.Sprintf("Password must be at most %d bytes", maxPasswordLen))
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return Session{}, err
	}

	id, err := s.users.CreateUser(ctx, core.User{Username: username, Email: email, PasswordHash: hash})
	if errors.Is(err, core.ErrConflict) {
		s.logger.InfoContext(ctx, "Registration conflict", log.FieldUsername, username)
		return Session{}, core.NewConflictError("Username or email already exists")
	}
	if err != nil {
		return Session{}, fmt.Errorf("create user: %w", err)
	}

	s.logger.InfoContext(ctx, "User registered", log.FieldUserID, id, log.FieldUsername, username)
	return s.session(id, username)
}

// Login verifies credentials. Unknown users and wrong passwords produce the
// same error.
func (s *AuthService) Login(ctx context.Context, username, password string) (Session, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return Session{}, core.NewValidationError("Username and password are required")
	}
	// No stored hash can match a password bcrypt would not accept.
	if len(password) > maxPasswordLen {
		s.logger.InfoContext(ctx, "Login failed", log.FieldUsername, username, "reason", "password too long")
		return Session{}, core.NewAuthError("Invalid credentials")
	}

	u, err := s.users.GetUserByUsername(ctx, username)
	if errors.Is(err, core.ErrNotFound) {
		s.logger.InfoContext(ctx, "Login failed", log.FieldUsername, username, "reason", "unknown user")
		return Session{}, core.NewAuthError("Invalid credentials")
	}
	if err != nil {
		return Session{}, fmt.Errorf("get user: %w", err)
	}

	if err := s.hasher.Compare(u.PasswordHash, password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			s.logger.InfoContext(ctx, "Login failed", log.FieldUsername, username, "reason", "bad password")
			return Session{}, core.NewAuthError("Invalid credentials")
		}
		return Session{}, err
	}

	return s.session(u.ID, u.Username)
}

func (s *AuthService) session(userID int64, username string) (Session, error) {
	token, err := s.tokens.Issue(userID, username)
	if err != nil {
		return Session{}, err
	}
	return Session{Token: token, UserID: userID, Username: username}, nil
}
