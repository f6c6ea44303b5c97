package authcore

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"

	authtest "github.com/apo9666/authcore/internal/test"
)

func TestStartTOTPRegistrationUseCase_Execute(t *testing.T) {
	userID := uuid.New()

	tt := []struct {
		name     string
		validate func(ctx context.Context, token string, requiredType TokenType) (Claims, error)
		findID   func(ctx context.Context, id uuid.UUID) (*User, error)
		authURL  func(ctx context.Context, username, issuer string) (string, string, error)
		wantErr  ErrorCode
	}{
		{
			name: "success stores the full auth URL and returns it",
			validate: func(ctx context.Context, token string, requiredType TokenType) (Claims, error) {
				if requiredType != TokenMFARegistration {
					t.Errorf("expected TokenMFARegistration, got %s", requiredType)
				}
				return Claims{Subject: userID.String()}, nil
			},
			findID: func(ctx context.Context, id uuid.UUID) (*User, error) {
				return &User{ID: id, Username: "alice"}, nil
			},
			authURL: func(ctx context.Context, username, issuer string) (string, string, error) {
				return "secret", "otpauth://totp/" + issuer + ":" + username + "?secret=secret&issuer=" + issuer, nil
			},
		},
		{
			name: "invalid mfa_registration token",
			validate: func(ctx context.Context, token string, requiredType TokenType) (Claims, error) {
				return Claims{}, errors.New("bad token")
			},
			wantErr: ETokenValidationFailed,
		},
		{
			name: "user not found",
			validate: func(ctx context.Context, token string, requiredType TokenType) (Claims, error) {
				return Claims{Subject: userID.String()}, nil
			},
			findID: func(ctx context.Context, id uuid.UUID) (*User, error) {
				return nil, nil
			},
			wantErr: EUserNotFound,
		},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			hsm := authtest.NewHSMStore()
			tokens := &authtest.TokenService{ValidateTokenFn: tc.validate}
			users := &authtest.UserRepository{FindIDFn: tc.findID}
			totp := &authtest.TOTPService{AuthURLFn: tc.authURL}

			uc := newStartTOTPRegistrationUseCase(users, tokens, totp, hsm)
			out, err := uc.execute(context.Background(), TOTPStartInput{MFARegistrationToken: "token"})

			if tc.wantErr != "" {
				if Code(err) != tc.wantErr {
					t.Fatalf("want error code %s, got %v", tc.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !strings.HasPrefix(out.AuthURL, "otpauth://totp/") {
				t.Errorf("unexpected auth URL: %s", out.AuthURL)
			}

			stored, ok, err := hsm.Get(context.Background(), userID, keyTOTPRegState)
			if err != nil || !ok {
				t.Fatalf("expected registration state to be stored, ok=%v err=%v", ok, err)
			}
			if stored != out.AuthURL {
				t.Errorf("stored state should be the full auth URL: got %s", stored)
			}
		})
	}
}
