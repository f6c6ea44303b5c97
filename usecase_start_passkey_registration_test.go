package authcore

import (
	"context"
	"testing"

	"github.com/google/uuid"

	authtest "github.com/apo9666/authcore/internal/test"
)

func TestStartPasskeyRegistrationUseCase_Execute(t *testing.T) {
	userID := uuid.New()
	existing := Passkey{ID: []byte("existing-credential")}

	hsm := authtest.NewHSMStore()
	users := &authtest.UserRepository{
		FindIDFn: func(ctx context.Context, id uuid.UUID) (*User, error) {
			return &User{ID: id, Username: "alice", Name: "Alice", Passkeys: []Passkey{existing}}, nil
		},
	}
	tokens := &authtest.TokenService{
		ValidateTokenFn: func(ctx context.Context, token string, requiredType TokenType) (Claims, error) {
			if requiredType != TokenMFARegistration {
				t.Errorf("expected TokenMFARegistration, got %s", requiredType)
			}
			return Claims{Subject: userID.String()}, nil
		},
	}
	engine := &authtest.WebAuthnEngine{
		StartPasskeyRegistrationFn: func(ctx context.Context, id uuid.UUID, username, displayName string, excludeCredentialIDs [][]byte) ([]byte, []byte, error) {
			if len(excludeCredentialIDs) != 1 || string(excludeCredentialIDs[0]) != "existing-credential" {
				t.Errorf("expected existing credential to be excluded, got %v", excludeCredentialIDs)
			}
			return []byte(`{"challenge":"abc"}`), []byte(`{"session":"state"}`), nil
		},
	}

	uc := newStartPasskeyRegistrationUseCase(users, tokens, engine, hsm)
	out, err := uc.execute(context.Background(), PasskeyRegistrationStartInput{MFARegistrationToken: "token"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Challenge != `{"challenge":"abc"}` {
		t.Errorf("unexpected challenge payload: %s", out.Challenge)
	}

	stored, ok, err := hsm.Get(context.Background(), userID, keyWebAuthnRegState)
	if err != nil || !ok {
		t.Fatalf("expected registration state to be stored, ok=%v err=%v", ok, err)
	}
	if stored != `{"session":"state"}` {
		t.Errorf("unexpected stored state: %s", stored)
	}
}
