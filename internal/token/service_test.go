package token

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/oklog/ulid"

	auth "github.com/apo9666/authcore"
)

// writeKeyPair generates a fresh Ed25519 key pair and writes it to dir
// under the given kid, in the <kid>_key.pem / <kid>_public.pem shape
// the service expects.
func writeKeyPair(t *testing.T, dir, kid string) {
	t.Helper()

	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("failed to generate key pair: %v", err)
	}

	privDER, err := x509.MarshalPKCS8PrivateKey(priv)
	if err != nil {
		t.Fatalf("failed to marshal private key: %v", err)
	}
	privPEM := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: privDER})
	if err := os.WriteFile(filepath.Join(dir, kid+"_key.pem"), privPEM, 0o600); err != nil {
		t.Fatalf("failed to write private key: %v", err)
	}

	pubDER, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		t.Fatalf("failed to marshal public key: %v", err)
	}
	pubPEM := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER})
	if err := os.WriteFile(filepath.Join(dir, kid+"_public.pem"), pubPEM, 0o600); err != nil {
		t.Fatalf("failed to write public key: %v", err)
	}
}

func TestService_CreateAndValidateToken(t *testing.T) {
	dir := t.TempDir()
	writeKeyPair(t, dir, "20240101")

	svc := New(WithLogger(log.NewNopLogger()), WithKeysDir(dir))
	ctx := context.Background()

	token, err := svc.CreateToken(ctx, auth.Claims{
		Subject:   "user-1",
		TokenType: auth.TokenAccess,
		ExpiresAt: time.Now().Add(time.Minute).Unix(),
	})
	if err != nil {
		t.Fatalf("failed to create token: %v", err)
	}

	claims, err := svc.ValidateToken(ctx, token, auth.TokenAccess)
	if err != nil {
		t.Fatalf("failed to validate token: %v", err)
	}
	if claims.Subject != "user-1" {
		t.Errorf("subject mismatch: want user-1 got %s", claims.Subject)
	}
	if claims.TokenType != auth.TokenAccess {
		t.Errorf("token type mismatch: want %s got %s", auth.TokenAccess, claims.TokenType)
	}
}

func TestService_CreateToken_AssignsUniqueULIDjti(t *testing.T) {
	dir := t.TempDir()
	writeKeyPair(t, dir, "20240101")

	svc := New(WithKeysDir(dir))
	ctx := context.Background()

	claimsIn := auth.Claims{Subject: "user-1", TokenType: auth.TokenAccess, ExpiresAt: time.Now().Add(time.Minute).Unix()}

	first, err := svc.CreateToken(ctx, claimsIn)
	if err != nil {
		t.Fatalf("failed to create token: %v", err)
	}
	second, err := svc.CreateToken(ctx, claimsIn)
	if err != nil {
		t.Fatalf("failed to create token: %v", err)
	}

	firstJTI, err := decodeJWTClaim(first, "jti")
	if err != nil {
		t.Fatalf("failed to decode jti: %v", err)
	}
	secondJTI, err := decodeJWTClaim(second, "jti")
	if err != nil {
		t.Fatalf("failed to decode jti: %v", err)
	}

	if firstJTI == secondJTI {
		t.Error("expected distinct jti values across tokens")
	}
	if _, err := ulid.ParseStrict(firstJTI); err != nil {
		t.Errorf("jti is not a valid ULID: %v", err)
	}
}

func TestService_ValidateToken_WrongType(t *testing.T) {
	dir := t.TempDir()
	writeKeyPair(t, dir, "20240101")

	svc := New(WithKeysDir(dir))
	ctx := context.Background()

	token, err := svc.CreateToken(ctx, auth.Claims{
		Subject:   "user-1",
		TokenType: auth.TokenMFARegistration,
		ExpiresAt: time.Now().Add(time.Minute).Unix(),
	})
	if err != nil {
		t.Fatalf("failed to create token: %v", err)
	}

	if _, err := svc.ValidateToken(ctx, token, auth.TokenAccess); err == nil {
		t.Error("expected validation to fail for mismatched token type")
	}
}

func TestService_ValidateToken_Expired(t *testing.T) {
	dir := t.TempDir()
	writeKeyPair(t, dir, "20240101")

	svc := New(WithKeysDir(dir))
	ctx := context.Background()

	token, err := svc.CreateToken(ctx, auth.Claims{
		Subject:   "user-1",
		TokenType: auth.TokenAccess,
		ExpiresAt: time.Now().Add(-time.Second).Unix(),
	})
	if err != nil {
		t.Fatalf("failed to create token: %v", err)
	}

	if _, err := svc.ValidateToken(ctx, token, auth.TokenAccess); err == nil {
		t.Error("expected validation to fail for expired token")
	}
}

func TestService_SignsWithHighestSortedKid(t *testing.T) {
	dir := t.TempDir()
	writeKeyPair(t, dir, "20240101")
	writeKeyPair(t, dir, "20240601")

	svc := New(WithKeysDir(dir))
	ctx := context.Background()

	token, err := svc.CreateToken(ctx, auth.Claims{
		Subject:   "user-1",
		TokenType: auth.TokenAccess,
		ExpiresAt: time.Now().Add(time.Minute).Unix(),
	})
	if err != nil {
		t.Fatalf("failed to create token: %v", err)
	}

	header, err := decodeJWTHeader(token)
	if err != nil {
		t.Fatalf("failed to decode token header: %v", err)
	}
	if header["kid"] != "20240601" {
		t.Errorf("expected kid 20240601 (higher sort order), got %v", header["kid"])
	}

	if _, err := svc.ValidateToken(ctx, token, auth.TokenAccess); err != nil {
		t.Errorf("token should validate against its own kid: %v", err)
	}
}

func TestService_JWKS(t *testing.T) {
	dir := t.TempDir()
	writeKeyPair(t, dir, "20240101")
	writeKeyPair(t, dir, "20240601")

	svc := New(WithKeysDir(dir))
	ctx := context.Background()

	doc, err := svc.JWKS(ctx)
	if err != nil {
		t.Fatalf("failed to fetch JWKS: %v", err)
	}

	var parsed jwkSetDoc
	if err := json.Unmarshal([]byte(doc), &parsed); err != nil {
		t.Fatalf("failed to parse JWKS: %v", err)
	}

	if len(parsed.Keys) != 2 {
		t.Fatalf("expected 2 keys, got %d", len(parsed.Keys))
	}
	for _, k := range parsed.Keys {
		if k.Kty != "OKP" {
			t.Errorf("expected kty OKP, got %s", k.Kty)
		}
		if k.Crv != "Ed25519" {
			t.Errorf("expected crv Ed25519, got %s", k.Crv)
		}
		if k.Kid == "" {
			t.Error("expected non-empty kid")
		}
	}
}

// decodeJWTClaim extracts a single claim from a compact JWT's payload
// without verifying its signature.
func decodeJWTClaim(token, claim string) (string, error) {
	parts := make([]string, 0, 3)
	start := 0
	for i, c := range token {
		if c == '.' {
			parts = append(parts, token[start:i])
			start = i + 1
		}
	}
	parts = append(parts, token[start:])

	b, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return "", err
	}

	var payload map[string]interface{}
	if err := json.Unmarshal(b, &payload); err != nil {
		return "", err
	}

	v, _ := payload[claim].(string)
	return v, nil
}

// decodeJWTHeader extracts the JOSE header of a compact JWT without
// verifying its signature, to assert which kid a token was signed with.
func decodeJWTHeader(token string) (map[string]interface{}, error) {
	parts := make([]string, 0, 3)
	start := 0
	for i, c := range token {
		if c == '.' {
			parts = append(parts, token[start:i])
			start = i + 1
		}
	}
	parts = append(parts, token[start:])

	b, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return nil, err
	}

	var header map[string]interface{}
	if err := json.Unmarshal(b, &header); err != nil {
		return nil, err
	}
	return header, nil
}
