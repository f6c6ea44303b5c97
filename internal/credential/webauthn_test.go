package credential

import (
	"testing"

	"github.com/google/uuid"

	auth "github.com/apo9666/authcore"
)

func TestNewWebAuthn_WiresConfig(t *testing.T) {
	w, err := NewWebAuthn(
		WithDisplayName("Example Corp"),
		WithDomain("example.com"),
		WithRequestOrigin("https://example.com"),
	)
	if err != nil {
		t.Fatalf("failed to construct engine: %v", err)
	}
	if w.lib == nil {
		t.Fatal("expected the underlying library to be configured")
	}
	if w.lib.Config.RPID != "example.com" {
		t.Errorf("unexpected RPID: %s", w.lib.Config.RPID)
	}
	if w.lib.Config.RPDisplayName != "Example Corp" {
		t.Errorf("unexpected RPDisplayName: %s", w.lib.Config.RPDisplayName)
	}
}

func TestNewWebAuthn_SatisfiesPort(t *testing.T) {
	var _ auth.WebAuthnEngine = (*WebAuthn)(nil)
}

func TestIdentity_ExposesWebAuthnUserFields(t *testing.T) {
	id := uuid.New()
	passkeys := []auth.Passkey{{ID: []byte("cred-1")}}

	u := &identity{id: id[:], name: "alice", displayName: "Alice", credentials: passkeys}

	if string(u.WebAuthnID()) != string(id[:]) {
		t.Error("unexpected WebAuthnID")
	}
	if u.WebAuthnName() != "alice" {
		t.Errorf("unexpected WebAuthnName: %s", u.WebAuthnName())
	}
	if u.WebAuthnDisplayName() != "Alice" {
		t.Errorf("unexpected WebAuthnDisplayName: %s", u.WebAuthnDisplayName())
	}
	if len(u.WebAuthnCredentials()) != 1 {
		t.Errorf("unexpected credential count: %d", len(u.WebAuthnCredentials()))
	}
	if u.WebAuthnIcon() != "" {
		t.Errorf("expected empty icon, got %s", u.WebAuthnIcon())
	}
}
