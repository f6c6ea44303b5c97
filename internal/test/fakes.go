// Package test provides function-field fakes for authcore's five
// collaborator ports, for use in table-driven use case tests.
package test

import (
	"context"

	"github.com/google/uuid"

	auth "github.com/apo9666/authcore"
)

// UserRepository is a fake auth.UserRepository whose behavior is
// supplied per test case via function fields.
type UserRepository struct {
	SaveFn         func(ctx context.Context, user *auth.User) error
	FindUsernameFn func(ctx context.Context, username string) (*auth.User, error)
	FindIDFn       func(ctx context.Context, id uuid.UUID) (*auth.User, error)
}

func (r *UserRepository) Save(ctx context.Context, user *auth.User) error {
	return r.SaveFn(ctx, user)
}

func (r *UserRepository) FindUsername(ctx context.Context, username string) (*auth.User, error) {
	return r.FindUsernameFn(ctx, username)
}

func (r *UserRepository) FindID(ctx context.Context, id uuid.UUID) (*auth.User, error) {
	return r.FindIDFn(ctx, id)
}

// TokenService is a fake auth.TokenService.
type TokenService struct {
	CreateTokenFn   func(ctx context.Context, claims auth.Claims) (string, error)
	ValidateTokenFn func(ctx context.Context, token string, requiredType auth.TokenType) (auth.Claims, error)
	JWKSFn          func(ctx context.Context) (string, error)
}

func (s *TokenService) CreateToken(ctx context.Context, claims auth.Claims) (string, error) {
	return s.CreateTokenFn(ctx, claims)
}

func (s *TokenService) ValidateToken(ctx context.Context, token string, requiredType auth.TokenType) (auth.Claims, error) {
	return s.ValidateTokenFn(ctx, token, requiredType)
}

func (s *TokenService) JWKS(ctx context.Context) (string, error) {
	return s.JWKSFn(ctx)
}

// TOTPService is a fake auth.TOTPService.
type TOTPService struct {
	AuthURLFn func(ctx context.Context, username, issuer string) (string, string, error)
	VerifyFn  func(ctx context.Context, secret, code string) (bool, error)
}

func (s *TOTPService) AuthURL(ctx context.Context, username, issuer string) (string, string, error) {
	return s.AuthURLFn(ctx, username, issuer)
}

func (s *TOTPService) Verify(ctx context.Context, secret, code string) (bool, error) {
	return s.VerifyFn(ctx, secret, code)
}

// HSMStore is a fake auth.HSMStore backed by a plain map, since its
// contract (clear-then-set, get-then-clear) is simple enough to fake
// directly rather than through per-case function fields.
type HSMStore struct {
	values map[string]string
}

// NewHSMStore returns an empty fake HSMStore.
func NewHSMStore() *HSMStore {
	return &HSMStore{values: make(map[string]string)}
}

func (s *HSMStore) key(userID uuid.UUID, key string) string {
	return userID.String() + "/" + key
}

func (s *HSMStore) Get(ctx context.Context, userID uuid.UUID, key string) (string, bool, error) {
	v, ok := s.values[s.key(userID, key)]
	return v, ok, nil
}

func (s *HSMStore) Set(ctx context.Context, userID uuid.UUID, key, value string) error {
	s.values[s.key(userID, key)] = value
	return nil
}

// WebAuthnEngine is a fake auth.WebAuthnEngine.
type WebAuthnEngine struct {
	StartPasskeyRegistrationFn    func(ctx context.Context, userID uuid.UUID, username, displayName string, excludeCredentialIDs [][]byte) ([]byte, []byte, error)
	FinishPasskeyRegistrationFn   func(ctx context.Context, registerPKC []byte, regState []byte) (auth.Passkey, error)
	StartPasskeyAuthenticationFn  func(ctx context.Context, passkeys []auth.Passkey) ([]byte, []byte, error)
	FinishPasskeyAuthenticationFn func(ctx context.Context, pkc []byte, authState []byte, passkeys []auth.Passkey) ([]auth.Passkey, error)
}

func (e *WebAuthnEngine) StartPasskeyRegistration(ctx context.Context, userID uuid.UUID, username, displayName string, excludeCredentialIDs [][]byte) ([]byte, []byte, error) {
	return e.StartPasskeyRegistrationFn(ctx, userID, username, displayName, excludeCredentialIDs)
}

func (e *WebAuthnEngine) FinishPasskeyRegistration(ctx context.Context, registerPKC []byte, regState []byte) (auth.Passkey, error) {
	return e.FinishPasskeyRegistrationFn(ctx, registerPKC, regState)
}

func (e *WebAuthnEngine) StartPasskeyAuthentication(ctx context.Context, passkeys []auth.Passkey) ([]byte, []byte, error) {
	return e.StartPasskeyAuthenticationFn(ctx, passkeys)
}

func (e *WebAuthnEngine) FinishPasskeyAuthentication(ctx context.Context, pkc []byte, authState []byte, passkeys []auth.Passkey) ([]auth.Passkey, error) {
	return e.FinishPasskeyAuthenticationFn(ctx, pkc, authState, passkeys)
}
