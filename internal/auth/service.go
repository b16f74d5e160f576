package auth

import (
	"context"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	appErr "github.com/algorithm-ninja/task-wizard/pkg/errors"
)

const defaultTokenTTL = 10 * time.Hour

// Credentials is the stored login material for one user.
type Credentials struct {
	UserID      string
	DisplayName string
	// TokenHash is the bcrypt hash of the user's login secret.
	TokenHash string
}

// CredentialSource resolves stored credentials by user id.
// Implementations return a UserNotFound error for unknown users.
type CredentialSource interface {
	CredentialsOf(ctx context.Context, userID string) (Credentials, error)
}

// UserToken is a successful login result.
type UserToken struct {
	Token  string `json:"token"`
	UserID string `json:"user_id"`
}

// Service implements the login operation: a long-lived login token is
// exchanged for a signed short-lived JWT.
type Service struct {
	secret   []byte
	users    CredentialSource
	tokenTTL time.Duration
}

// ServiceConfig wires a Service.
type ServiceConfig struct {
	Secret   []byte
	Users    CredentialSource
	TokenTTL time.Duration
}

func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Users == nil {
		return nil, appErr.New(appErr.InternalServerError).WithMessage("credential source is required")
	}
	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	return &Service{
		secret:   cfg.Secret,
		users:    cfg.Users,
		tokenTTL: ttl,
	}, nil
}

// Auth validates a login token of the form "<user-id>:<secret>" and issues
// a JWT for the user. Disabled when no signing secret is configured.
func (s *Service) Auth(ctx context.Context, loginToken string) (UserToken, error) {
	if len(s.secret) == 0 {
		return UserToken{}, appErr.New(appErr.AuthenticationDisabled)
	}

	userID, loginSecret, ok := strings.Cut(loginToken, ":")
	if !ok || userID == "" || loginSecret == "" {
		return UserToken{}, appErr.New(appErr.InvalidCredentials)
	}

	creds, err := s.users.CredentialsOf(ctx, userID)
	if err != nil {
		if appErr.GetCode(err) == appErr.UserNotFound {
			// Do not reveal whether the user exists.
			return UserToken{}, appErr.New(appErr.InvalidCredentials)
		}
		return UserToken{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(creds.TokenHash), []byte(loginSecret)) != nil {
		return UserToken{}, appErr.New(appErr.InvalidCredentials)
	}

	token, err := IssueToken(s.secret, creds.UserID, s.tokenTTL)
	if err != nil {
		return UserToken{}, err
	}
	return UserToken{Token: token, UserID: creds.UserID}, nil
}

// HashLoginSecret prepares a login secret for storage.
func HashLoginSecret(secret string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", appErr.Wrap(err, appErr.InternalServerError)
	}
	return string(hash), nil
}
