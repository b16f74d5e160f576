package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	appErr "github.com/algorithm-ninja/task-wizard/pkg/errors"
)

// Claims is the JWT payload: the authenticated user id plus the standard
// registered claims.
type Claims struct {
	User string `json:"user"`
	jwt.RegisteredClaims
}

// ParseToken verifies a signed token and returns its claims. Malformed or
// forged tokens are reported as recoverable InvalidToken errors, expired
// ones as TokenExpired.
func ParseToken(secret []byte, token string) (*Claims, error) {
	if len(secret) == 0 {
		return nil, appErr.New(appErr.AuthenticationDisabled)
	}
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, appErr.New(appErr.InvalidToken).WithMessage("unexpected signing method")
		}
		return secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, appErr.Wrap(err, appErr.TokenExpired)
		}
		return nil, appErr.Wrap(err, appErr.InvalidToken)
	}
	if !parsed.Valid || claims.User == "" {
		return nil, appErr.New(appErr.InvalidToken)
	}
	return claims, nil
}

// IssueToken signs a token for userID, valid for ttl.
func IssueToken(secret []byte, userID string, ttl time.Duration) (string, error) {
	if len(secret) == 0 {
		return "", appErr.New(appErr.AuthenticationDisabled)
	}
	if userID == "" {
		return "", appErr.ValidationError("user_id", "required")
	}
	now := time.Now()
	claims := Claims{
		User: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(secret)
	if err != nil {
		return "", appErr.Wrap(err, appErr.TokenGenerationFailed)
	}
	return signed, nil
}
