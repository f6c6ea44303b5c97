package authcore

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	authtest "github.com/apo9666/authcore/internal/test"
)

func newPasswordUser(t *testing.T, password string) *User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}
	return &User{ID: uuid.New(), Username: "alice", PasswordHash: string(hash)}
}

func TestLoginUseCase_Execute(t *testing.T) {
	tt := []struct {
		name        string
		user        *User
		findErr     error
		password    string
		createErr   error
		wantErr     ErrorCode
		wantMFAType TokenType
		wantAccess  bool
	}{
		{
			name:       "no factors enrolled issues access and refresh",
			user:       newPasswordUser(t, "correct-horse"),
			password:   "correct-horse",
			wantAccess: true,
		},
		{
			name:     "user not found",
			findErr:  errors.New("no rows"),
			password: "whatever",
			wantErr:  EUserNotFound,
		},
		{
			name:     "wrong password",
			user:     newPasswordUser(t, "correct-horse"),
			password: "wrong-password",
			wantErr:  EInvalidUsernameOrPassword,
		},
		{
			name: "totp enrolled issues mfa_verification instead of access",
			user: func() *User {
				u := newPasswordUser(t, "correct-horse")
				secret := "JBSWY3DPEHPK3PXP"
				u.OTPSecret = &secret
				return u
			}(),
			password:    "correct-horse",
			wantMFAType: TokenMFAVerification,
		},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			users := &authtest.UserRepository{
				FindUsernameFn: func(ctx context.Context, username string) (*User, error) {
					if tc.findErr != nil {
						return nil, tc.findErr
					}
					return tc.user, nil
				},
			}
			tokens := &authtest.TokenService{
				CreateTokenFn: func(ctx context.Context, claims Claims) (string, error) {
					if tc.createErr != nil {
						return "", tc.createErr
					}
					return "token-" + string(claims.TokenType), nil
				},
			}

			uc := newLoginUseCase(users, tokens)
			out, err := uc.execute(context.Background(), LoginInput{Username: "alice", Password: tc.password})

			if tc.wantErr != "" {
				if Code(err) != tc.wantErr {
					t.Fatalf("want error code %s, got %v", tc.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if tc.wantMFAType != "" {
				if out.MFAVerificationToken == "" {
					t.Fatal("expected an mfa_verification token")
				}
				if out.AccessToken != "" || out.RefreshToken != "" {
					t.Error("did not expect access/refresh tokens alongside mfa_verification")
				}
			}
			if tc.wantAccess {
				if out.AccessToken == "" || out.RefreshToken == "" {
					t.Fatal("expected both access and refresh tokens")
				}
				if out.MFAVerificationToken != "" {
					t.Error("did not expect an mfa_verification token")
				}
			}
		})
	}
}
