package auth

import (
	"context"
	"testing"
	"time"

	appErr "github.com/algorithm-ninja/task-wizard/pkg/errors"
)

func strPtr(s string) *string { return &s }

func TestAuthorizeAdmin(t *testing.T) {
	t.Parallel()

	open := Guard{SkipAuth: true}
	if err := open.AuthorizeAdmin(Anonymous()); err != nil {
		t.Fatalf("skip-auth admin: %v", err)
	}

	closed := Guard{Secret: []byte("s")}
	if err := closed.AuthorizeAdmin(Anonymous()); appErr.GetCode(err) != appErr.Forbidden {
		t.Fatalf("expected Forbidden, got %v", err)
	}
	if err := closed.AuthorizeAdmin(Identified("alice")); appErr.GetCode(err) != appErr.Forbidden {
		t.Fatalf("tokens must not grant admin, got %v", err)
	}
	if err := closed.AuthorizeAdmin(Operator()); err != nil {
		t.Fatalf("operator admin: %v", err)
	}
}

func TestAuthorizeUser(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		guard  Guard
		caller AuthContext
		target *string
		code   appErr.ErrorCode
	}{
		{"skip auth allows anyone", Guard{SkipAuth: true}, Anonymous(), strPtr("alice"), appErr.Success},
		{"nil target always allowed", Guard{Secret: []byte("s")}, Anonymous(), nil, appErr.Success},
		{"no secret means open", Guard{}, Anonymous(), strPtr("alice"), appErr.Success},
		{"matching identity", Guard{Secret: []byte("s")}, Identified("alice"), strPtr("alice"), appErr.Success},
		{"mismatched identity", Guard{Secret: []byte("s")}, Identified("bob"), strPtr("alice"), appErr.Forbidden},
		{"anonymous with secret", Guard{Secret: []byte("s")}, Anonymous(), strPtr("alice"), appErr.AuthenticationRequired},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			err := tc.guard.AuthorizeUser(tc.caller, tc.target)
			if tc.code == appErr.Success {
				if err != nil {
					t.Fatalf("expected nil, got %v", err)
				}
				return
			}
			if appErr.GetCode(err) != tc.code {
				t.Fatalf("expected code %d, got %v", tc.code, err)
			}
		})
	}
}

func TestTokenRoundTrip(t *testing.T) {
	t.Parallel()
	secret := []byte("contest-secret")

	token, err := IssueToken(secret, "alice", time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	claims, err := ParseToken(secret, token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.User != "alice" {
		t.Fatalf("user = %q, want alice", claims.User)
	}
}

func TestParseTokenRecoversFromGarbage(t *testing.T) {
	t.Parallel()
	secret := []byte("contest-secret")

	for _, token := range []string{"", "garbage", "a.b.c", "eyJhbGciOiJIUzI1NiJ9.e30."} {
		_, err := ParseToken(secret, token)
		if appErr.GetCode(err) != appErr.InvalidToken {
			t.Fatalf("ParseToken(%q): expected InvalidToken, got %v", token, err)
		}
	}
}

func TestParseTokenRejectsWrongSecret(t *testing.T) {
	t.Parallel()

	token, err := IssueToken([]byte("secret-a"), "alice", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := ParseToken([]byte("secret-b"), token); appErr.GetCode(err) != appErr.InvalidToken {
		t.Fatalf("expected InvalidToken, got %v", err)
	}
}

func TestParseTokenExpired(t *testing.T) {
	t.Parallel()
	secret := []byte("contest-secret")

	token, err := IssueToken(secret, "alice", -time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := ParseToken(secret, token); appErr.GetCode(err) != appErr.TokenExpired {
		t.Fatalf("expected TokenExpired, got %v", err)
	}
}

type fakeCredentialSource struct {
	creds map[string]Credentials
}

func (f *fakeCredentialSource) CredentialsOf(_ context.Context, userID string) (Credentials, error) {
	c, ok := f.creds[userID]
	if !ok {
		return Credentials{}, appErr.Newf(appErr.UserNotFound, "user %s not found", userID)
	}
	return c, nil
}

func newAuthService(t *testing.T, secret []byte) *Service {
	t.Helper()
	hash, err := HashLoginSecret("open-sesame")
	if err != nil {
		t.Fatal(err)
	}
	svc, err := NewService(ServiceConfig{
		Secret: secret,
		Users: &fakeCredentialSource{creds: map[string]Credentials{
			"alice": {UserID: "alice", DisplayName: "Alice", TokenHash: hash},
		}},
	})
	if err != nil {
		t.Fatal(err)
	}
	return svc
}

func TestAuthIssuesToken(t *testing.T) {
	t.Parallel()
	secret := []byte("contest-secret")
	svc := newAuthService(t, secret)

	got, err := svc.Auth(context.Background(), "alice:open-sesame")
	if err != nil {
		t.Fatalf("auth: %v", err)
	}
	if got.UserID != "alice" {
		t.Fatalf("user id = %q", got.UserID)
	}
	claims, err := ParseToken(secret, got.Token)
	if err != nil {
		t.Fatalf("parse issued token: %v", err)
	}
	if claims.User != "alice" {
		t.Fatalf("claims user = %q", claims.User)
	}
}

func TestAuthRejectsBadCredentials(t *testing.T) {
	t.Parallel()
	svc := newAuthService(t, []byte("contest-secret"))
	ctx := context.Background()

	for _, token := range []string{"alice:wrong", "mallory:open-sesame", "missing-colon", ""} {
		_, err := svc.Auth(ctx, token)
		if appErr.GetCode(err) != appErr.InvalidCredentials {
			t.Fatalf("Auth(%q): expected InvalidCredentials, got %v", token, err)
		}
	}
}

func TestAuthDisabledWithoutSecret(t *testing.T) {
	t.Parallel()
	svc := newAuthService(t, nil)

	_, err := svc.Auth(context.Background(), "alice:open-sesame")
	if appErr.GetCode(err) != appErr.AuthenticationDisabled {
		t.Fatalf("expected AuthenticationDisabled, got %v", err)
	}
}
