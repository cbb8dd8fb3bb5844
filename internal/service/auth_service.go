package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"teamhub/internal/access"
	"teamhub/internal/domain"
	"teamhub/internal/security"
)

const maxDisplayName = 100

// AuthService handles registration, login, and logout.
type AuthService struct {
	users    domain.UserRepository
	tokens   *security.TokenService
	hash     *security.PasswordHasher
	validate *validator.Validate
	log      *logrus.Entry
}

func NewAuthService(users domain.UserRepository, tokens *security.TokenService, hash *security.PasswordHasher, log *logrus.Entry) *AuthService {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &AuthService{
		users:    users,
		tokens:   tokens,
		hash:     hash,
		validate: validator.New(),
		log:      log.WithField("component", "auth"),
	}
}

type RegisterInput struct {
	Email       string
	DisplayName string
	Password    string
}

type LoginInput struct {
	Email    string
	Password string
}

type TokenResponse struct {
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	User        *domain.User `json:"user"`
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*domain.User, error) {
	email := normalizeEmail(in.Email)
	name := strings.TrimSpace(in.DisplayName)

	var issues []domain.Issue
	if err := s.validate.Var(email, "required,email"); err != nil {
		issues = append(issues, domain.Issue{Field: "email", Rule: "email", Message: "a valid email is required"})
	}
	if name == "" || len([]rune(name)) > maxDisplayName {
		issues = append(issues, domain.Issue{Field: "display_name", Rule: "len", Message: fmt.Sprintf("1 to %d characters", maxDisplayName)})
	}
	if len(in.Password) < security.MinPasswordLength {
		issues = append(issues, domain.Issue{Field: "password", Rule: "min", Message: fmt.Sprintf("at least %d characters", security.MinPasswordLength)})
	}
	if len(issues) > 0 {
		return nil, domain.Validation(domain.CodeValidation, "invalid registration", issues...)
	}

	existing, err := s.users.GetByEmail(ctx, email)
	switch {
	case err == nil && existing != nil:
		return nil, domain.Conflict(domain.CodeEmailTaken, "email already registered")
	case err != nil && !errors.Is(err, domain.ErrNotFound):
		return nil, fmt.Errorf("check email: %w", err)
	}

	hashed, err := s.hash.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &domain.User{
		Email:          email,
		DisplayName:    name,
		HashedPassword: hashed,
		Role:           access.RoleUser,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, asConflict(err, domain.CodeEmailTaken, "email already registered")
	}
	s.log.WithField("user_id", user.ID).Info("user registered")
	return user, nil
}

// Login checks the credentials and issues an access token. Logging in
// reactivates a deactivated account.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*TokenResponse, error) {
	invalid := domain.Unauthorized("incorrect email or password")
	invalid.Code = domain.CodeInvalidCredentials

	user, err := s.users.GetByEmail(ctx, normalizeEmail(in.Email))
	if errors.Is(err, domain.ErrNotFound) {
		return nil, invalid
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if !s.hash.Matches(in.Password, user.HashedPassword) {
		return nil, invalid
	}

	at := time.Now().UTC()
	if err := s.users.TouchLogin(ctx, user.ID, at); err != nil {
		return nil, fmt.Errorf("touch login: %w", err)
	}
	user.LastLoginAt = &at
	user.DeactivatedAt = nil

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, fmt.Errorf("create token: %w", err)
	}

	return &TokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
		User:        user,
	}, nil
}

// Logout has nothing to revoke for stateless tokens; clients drop the token.
func (s *AuthService) Logout(ctx context.Context, sess access.Session) error {
	s.log.WithField("user_id", sess.UserID).Debug("logout")
	return nil
}
