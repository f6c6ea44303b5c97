package authcore

import (
	"context"
	"testing"

	"github.com/google/uuid"

	authtest "github.com/apo9666/authcore/internal/test"
)

func TestFinishTOTPRegistrationUseCase_Execute(t *testing.T) {
	userID := uuid.New()
	authURL := "otpauth://totp/TODO_ISSUER:alice?secret=JBSWY3DPEHPK3PXP&issuer=TODO_ISSUER"

	t.Run("success persists the secret and returns fresh tokens", func(t *testing.T) {
		hsm := authtest.NewHSMStore()
		if err := hsm.Set(context.Background(), userID, keyTOTPRegState, authURL); err != nil {
			t.Fatalf("failed to seed hsm state: %v", err)
		}

		var saved *User
		users := &authtest.UserRepository{
			FindIDFn: func(ctx context.Context, id uuid.UUID) (*User, error) {
				return &User{ID: id, Username: "alice"}, nil
			},
			SaveFn: func(ctx context.Context, user *User) error {
				saved = user
				return nil
			},
		}
		tokens := &authtest.TokenService{
			ValidateTokenFn: func(ctx context.Context, token string, requiredType TokenType) (Claims, error) {
				return Claims{Subject: userID.String()}, nil
			},
			CreateTokenFn: func(ctx context.Context, claims Claims) (string, error) {
				return "token-" + string(claims.TokenType), nil
			},
		}
		totp := &authtest.TOTPService{
			VerifyFn: func(ctx context.Context, secret, code string) (bool, error) {
				if secret != "JBSWY3DPEHPK3PXP" {
					t.Errorf("unexpected secret recovered from URL: %s", secret)
				}
				return code == "123456", nil
			},
		}

		uc := newFinishTOTPRegistrationUseCase(users, tokens, totp, hsm)
		out, err := uc.execute(context.Background(), TOTPFinishInput{MFARegistrationToken: "token", Code: "123456"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if out.AccessToken == "" || out.RefreshToken == "" {
			t.Fatal("expected both access and refresh tokens")
		}
		if saved == nil || saved.OTPSecret == nil || *saved.OTPSecret != "JBSWY3DPEHPK3PXP" {
			t.Fatal("expected the user's OTP secret to be persisted")
		}

		if v, _, _ := hsm.Get(context.Background(), userID, keyTOTPRegState); v != "" {
			t.Error("expected registration state to be cleared after finishing")
		}
	})

	t.Run("no registration in progress", func(t *testing.T) {
		hsm := authtest.NewHSMStore()
		users := &authtest.UserRepository{}
		tokens := &authtest.TokenService{
			ValidateTokenFn: func(ctx context.Context, token string, requiredType TokenType) (Claims, error) {
				return Claims{Subject: userID.String()}, nil
			},
		}
		totp := &authtest.TOTPService{}

		uc := newFinishTOTPRegistrationUseCase(users, tokens, totp, hsm)
		_, err := uc.execute(context.Background(), TOTPFinishInput{MFARegistrationToken: "token", Code: "123456"})
		if Code(err) != ETotpRegistrationNotFound {
			t.Fatalf("want ETotpRegistrationNotFound, got %v", err)
		}
	})

	t.Run("replay is rejected: state cleared even after a failed code", func(t *testing.T) {
		hsm := authtest.NewHSMStore()
		if err := hsm.Set(context.Background(), userID, keyTOTPRegState, authURL); err != nil {
			t.Fatalf("failed to seed hsm state: %v", err)
		}
		users := &authtest.UserRepository{
			FindIDFn: func(ctx context.Context, id uuid.UUID) (*User, error) {
				return &User{ID: id, Username: "alice"}, nil
			},
		}
		tokens := &authtest.TokenService{
			ValidateTokenFn: func(ctx context.Context, token string, requiredType TokenType) (Claims, error) {
				return Claims{Subject: userID.String()}, nil
			},
		}
		totp := &authtest.TOTPService{
			VerifyFn: func(ctx context.Context, secret, code string) (bool, error) {
				return false, nil
			},
		}

		uc := newFinishTOTPRegistrationUseCase(users, tokens, totp, hsm)
		if _, err := uc.execute(context.Background(), TOTPFinishInput{MFARegistrationToken: "token", Code: "000000"}); err == nil {
			t.Fatal("expected an error for a wrong code")
		}

		if v, _, _ := hsm.Get(context.Background(), userID, keyTOTPRegState); v != "" {
			t.Error("expected registration state to be cleared even though the code was wrong")
		}
	})
}
