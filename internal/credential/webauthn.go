// Package credential adapts github.com/go-webauthn/webauthn to
// auth.WebAuthnEngine. The core never sees the library's types
// directly beyond the Passkey alias; challenges and session state
// cross the port as opaque JSON bytes.
package credential

import (
	"bytes"
	"context"
	"encoding/json"

	"github.com/go-kit/kit/log"
	"github.com/go-webauthn/webauthn/protocol"
	"github.com/go-webauthn/webauthn/webauthn"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	auth "github.com/apo9666/authcore"
)

// WebAuthn is a credential engine backed by go-webauthn/webauthn.
type WebAuthn struct {
	logger log.Logger
	// displayName is the relying party's display name.
	displayName string
	// domain is the relying party id.
	domain string
	// requestOrigin is the allowed origin for authentication requests.
	requestOrigin string
	// lib is the underlying WebAuthn library instance.
	lib *webauthn.WebAuthn
}

// ConfigOption configures a WebAuthn engine.
type ConfigOption func(*WebAuthn)

// WithLogger configures the engine's logger.
func WithLogger(logger log.Logger) ConfigOption {
	return func(w *WebAuthn) {
		w.logger = logger
	}
}

// WithDisplayName configures the relying party display name.
func WithDisplayName(s string) ConfigOption {
	return func(w *WebAuthn) {
		w.displayName = s
	}
}

// WithDomain configures the relying party id.
func WithDomain(s string) ConfigOption {
	return func(w *WebAuthn) {
		w.domain = s
	}
}

// WithRequestOrigin configures the allowed origin for authentication
// requests.
func WithRequestOrigin(s string) ConfigOption {
	return func(w *WebAuthn) {
		w.requestOrigin = s
	}
}

// NewWebAuthn returns an auth.WebAuthnEngine configured with a
// relying-party id, display name, and origin.
func NewWebAuthn(options ...ConfigOption) (*WebAuthn, error) {
	w := WebAuthn{logger: log.NewNopLogger()}
	for _, opt := range options {
		opt(&w)
	}

	lib, err := webauthn.New(&webauthn.Config{
		RPDisplayName: w.displayName,
		RPID:          w.domain,
		RPOrigins:     []string{w.requestOrigin},
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to configure webauthn engine")
	}
	w.lib = lib

	return &w, nil
}

var _ auth.WebAuthnEngine = (*WebAuthn)(nil)

// identity is a minimal webauthn.User adapter built from whatever
// subset of identity the current step has on hand: a full profile to
// start registration, or only the session's stored user id to finish
// it or to authenticate.
type identity struct {
	id          []byte
	name        string
	displayName string
	credentials []auth.Passkey
}

func (u *identity) WebAuthnID() []byte                     { return u.id }
func (u *identity) WebAuthnName() string                   { return u.name }
func (u *identity) WebAuthnDisplayName() string             { return u.displayName }
func (u *identity) WebAuthnCredentials() []webauthn.Credential { return u.credentials }
func (u *identity) WebAuthnIcon() string                   { return "" }

// StartPasskeyRegistration begins enrollment of a new credential.
func (w *WebAuthn) StartPasskeyRegistration(ctx context.Context, userID uuid.UUID, username, displayName string, excludeCredentialIDs [][]byte) ([]byte, []byte, error) {
	exclusions := make([]protocol.CredentialDescriptor, 0, len(excludeCredentialIDs))
	for _, id := range excludeCredentialIDs {
		exclusions = append(exclusions, protocol.CredentialDescriptor{
			Type:         protocol.PublicKeyCredentialType,
			CredentialID: id,
		})
	}

	user := &identity{id: userID[:], name: username, displayName: displayName}

	options, sessionData, err := w.lib.BeginRegistration(user, webauthn.WithExclusions(exclusions))
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to begin passkey registration")
	}

	optionsJSON, err := json.Marshal(options)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to marshal registration options")
	}

	stateJSON, err := json.Marshal(sessionData)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to marshal registration state")
	}

	return optionsJSON, stateJSON, nil
}

// FinishPasskeyRegistration finalizes enrollment from the client's
// attestation response and the stored registration state.
func (w *WebAuthn) FinishPasskeyRegistration(ctx context.Context, registerPKC []byte, regState []byte) (auth.Passkey, error) {
	var sessionData webauthn.SessionData
	if err := json.Unmarshal(regState, &sessionData); err != nil {
		return auth.Passkey{}, errors.Wrap(err, "failed to unmarshal registration state")
	}

	parsed, err := protocol.ParseCredentialCreationResponseBody(bytes.NewReader(registerPKC))
	if err != nil {
		return auth.Passkey{}, errors.Wrap(err, "failed to parse attestation response")
	}

	user := &identity{id: sessionData.UserID}

	credential, err := w.lib.CreateCredential(user, sessionData, parsed)
	if err != nil {
		return auth.Passkey{}, errors.Wrap(err, "failed to verify attestation")
	}

	return *credential, nil
}

// StartPasskeyAuthentication begins verification against a user's
// existing passkeys.
func (w *WebAuthn) StartPasskeyAuthentication(ctx context.Context, passkeys []auth.Passkey) ([]byte, []byte, error) {
	user := &identity{credentials: passkeys}

	options, sessionData, err := w.lib.BeginLogin(user)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to begin passkey authentication")
	}

	optionsJSON, err := json.Marshal(options)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to marshal authentication options")
	}

	stateJSON, err := json.Marshal(sessionData)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to marshal authentication state")
	}

	return optionsJSON, stateJSON, nil
}

// FinishPasskeyAuthentication verifies the client's assertion response
// and returns the passkey collection with the matching credential's
// counter and metadata updated. It is handed every registered passkey
// and relies on the engine's own credential-id matching to decide
// which one actually changed.
func (w *WebAuthn) FinishPasskeyAuthentication(ctx context.Context, pkc []byte, authState []byte, passkeys []auth.Passkey) ([]auth.Passkey, error) {
	var sessionData webauthn.SessionData
	if err := json.Unmarshal(authState, &sessionData); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal authentication state")
	}

	parsed, err := protocol.ParseCredentialRequestResponseBody(bytes.NewReader(pkc))
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse assertion response")
	}

	user := &identity{id: sessionData.UserID, credentials: passkeys}

	updatedCredential, err := w.lib.ValidateLogin(user, sessionData, parsed)
	if err != nil {
		return nil, errors.Wrap(err, "failed to verify assertion")
	}

	updated := make([]auth.Passkey, len(passkeys))
	copy(updated, passkeys)
	for i, pk := range updated {
		if bytes.Equal(pk.ID, updatedCredential.ID) {
			updated[i] = *updatedCredential
		}
	}

	return updated, nil
}
