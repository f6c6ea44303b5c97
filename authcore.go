// Package authcore defines the domain model and port interfaces for an
// authentication backend: password credentials, TOTP and WebAuthn
// passkey enrollment, and Ed25519-signed, kid-rotated JWTs.
package authcore

import (
	"context"

	"github.com/go-webauthn/webauthn/webauthn"
	"github.com/google/uuid"
)

// TokenType names the closed set of JWT token kinds the core issues.
// A token's type both certifies and constrains what it may be used for;
// validating a token always asserts the caller's required type against
// the token's own type.
type TokenType string

const (
	// TokenMFARegistration proves intent to enroll a second factor.
	// Issued by GetMFARegistration, TTL 180s.
	TokenMFARegistration TokenType = "mfa_registration"
	// TokenMFAVerification proves the password step of login has
	// completed and a second factor is still owed. TTL 300s.
	TokenMFAVerification TokenType = "mfa_verification"
	// TokenAccess authorizes general resource use. TTL 600s.
	TokenAccess TokenType = "access"
	// TokenRefresh mints new access tokens. TTL 7 days. Not consumed
	// by any use case in this package; issued alongside access tokens
	// for a caller-side refresh flow.
	TokenRefresh TokenType = "refresh"
)

// Transient state key names. Exactly three are ever used; HSMStore
// never sees any other key for a given user.
const (
	keyTOTPRegState      = "totp/reg/state"
	keyWebAuthnRegState  = "webauthn/reg/state"
	keyWebAuthnAuthState = "webauthn/auth/state"
)

// Passkey is a WebAuthn credential registered to a User. It is the
// opaque structure produced and consumed by the WebAuthn engine; the
// core never inspects its fields beyond what Credential.ID provides
// for the "distinct credential id" invariant.
type Passkey = webauthn.Credential

// User is uniquely identified by a 128-bit opaque id. Username is the
// case-sensitive lookup key and is unique at any instant; overwriting
// an existing username on signup is permitted, not rejected.
type User struct {
	// ID is a fresh random identifier assigned at signup.
	ID uuid.UUID
	// Name is the user's display name.
	Name string
	// Username is the unique, case-sensitive lookup key.
	Username string
	// PasswordHash is a bcrypt digest, cost 12.
	PasswordHash string
	// OTPSecret is the base32-encoded TOTP secret, nil until a TOTP
	// factor has been enrolled. A user has at most one; setting it is
	// idempotent and overwrites any prior value.
	OTPSecret *string
	// Passkeys is the ordered collection of registered WebAuthn
	// credentials. Every entry's credential id is distinct from every
	// other entry's.
	Passkeys []Passkey
}

// HasTOTP reports whether the user has completed TOTP enrollment.
func (u *User) HasTOTP() bool {
	return u.OTPSecret != nil && *u.OTPSecret != ""
}

// HasPasskey reports whether the user has registered at least one
// WebAuthn credential.
func (u *User) HasPasskey() bool {
	return len(u.Passkeys) > 0
}

// Clone returns a copy of the user with its own OTPSecret and its own
// Passkeys slice. Each Passkey is copied by value; byte slices inside a
// Passkey (such as its credential id and public key) share their
// backing arrays with the original.
func (u *User) Clone() *User {
	c := *u
	if u.OTPSecret != nil {
		secret := *u.OTPSecret
		c.OTPSecret = &secret
	}
	if u.Passkeys != nil {
		c.Passkeys = make([]Passkey, len(u.Passkeys))
		copy(c.Passkeys, u.Passkeys)
	}
	return &c
}

// Claims is the content of any issued token: the subject (a user id
// rendered as text), an expiration in epoch seconds, and the mandatory
// token type that names the step the token authorizes.
type Claims struct {
	Subject   string
	ExpiresAt int64
	TokenType TokenType
}

// UserRepository persists and looks up User records by username or id.
// Implementations guard concurrent access and always return
// deep-cloned copies; the repository is the single source of truth.
type UserRepository interface {
	// Save upserts a user, keyed by username.
	Save(ctx context.Context, user *User) error
	// FindUsername looks up a user by its unique username.
	FindUsername(ctx context.Context, username string) (*User, error)
	// FindID looks up a user by its id.
	FindID(ctx context.Context, id uuid.UUID) (*User, error)
}

// TokenService signs claims into JWTs, validates them by kid, and
// publishes the corresponding JWKS.
type TokenService interface {
	// CreateToken signs claims with the current highest-sorted signing
	// key and returns the compact JWT string.
	CreateToken(ctx context.Context, claims Claims) (string, error)
	// ValidateToken verifies signature and expiration, resolves the
	// signing key by the token's kid header, and asserts the token's
	// type matches requiredType.
	ValidateToken(ctx context.Context, token string, requiredType TokenType) (Claims, error)
	// JWKS serializes the cached public key set as JSON.
	JWKS(ctx context.Context) (string, error)
}

// TOTPService issues TOTP enrollment material and verifies submitted
// codes. Implementations use SHA-1, 6 digits, a 30-second step, and
// accept a one-step clock skew in either direction.
type TOTPService interface {
	// AuthURL generates a fresh secret and returns it alongside the
	// otpauth:// URL a client renders as a QR code.
	AuthURL(ctx context.Context, username, issuer string) (secret string, url string, err error)
	// Verify checks whether code is the current (or adjacent-step)
	// TOTP code for secret.
	Verify(ctx context.Context, secret, code string) (bool, error)
}

// HSMStore is a key-value mapping of (user id, key name) to a string,
// used to hold transient enrollment/authentication state across the
// start/finish halves of a flow. Safe for concurrent use.
type HSMStore interface {
	// Get returns the stored value and whether an entry is present.
	Get(ctx context.Context, userID uuid.UUID, key string) (value string, ok bool, err error)
	// Set stores a value, replacing any prior entry for the same key.
	Set(ctx context.Context, userID uuid.UUID, key, value string) error
}

// WebAuthnEngine is consumed as an opaque third-party capability. It
// is configured at startup with a relying-party id, origin, and
// default policies the core never interprets.
type WebAuthnEngine interface {
	// StartPasskeyRegistration begins enrollment of a new credential
	// for a user, returning client options to relay to the browser and
	// opaque registration state to hold until FinishPasskeyRegistration.
	StartPasskeyRegistration(ctx context.Context, userID uuid.UUID, username, displayName string, excludeCredentialIDs [][]byte) (clientOptions []byte, regState []byte, err error)
	// FinishPasskeyRegistration finalizes enrollment from the client's
	// attestation response and the previously stored registration
	// state, producing the passkey to persist.
	FinishPasskeyRegistration(ctx context.Context, registerPKC []byte, regState []byte) (Passkey, error)
	// StartPasskeyAuthentication begins verification against a user's
	// existing passkeys, returning a challenge and opaque
	// authentication state to hold until FinishPasskeyAuthentication.
	StartPasskeyAuthentication(ctx context.Context, passkeys []Passkey) (requestOptions []byte, authState []byte, err error)
	// FinishPasskeyAuthentication verifies the client's assertion
	// response against the stored authentication state and updates the
	// matching passkey's counter. It is handed every registered
	// passkey and returns the full, possibly-updated collection; the
	// engine's own credential-id matching decides which entry changed.
	FinishPasskeyAuthentication(ctx context.Context, pkc []byte, authState []byte, passkeys []Passkey) ([]Passkey, error)
}

// Component is the single entry point dispatching to the ten use
// cases that make up the auth core. Construction wires in all
// collaborators; every method forwards to one use case and returns its
// result without additional business logic.
type Component interface {
	// Signup creates a new user with a bcrypt-hashed password.
	Signup(ctx context.Context, in SignupInput) (SignupOutput, error)
	// Login verifies a password and issues either an mfa_verification
	// token (a factor is enrolled) or an access+refresh pair (none is).
	Login(ctx context.Context, in LoginInput) (LoginOutput, error)
	// GetMFARegistration exchanges a valid access token for an
	// mfa_registration token and the fixed enrollment menu.
	GetMFARegistration(ctx context.Context, in MFARegistrationInput) (MFARegistrationOutput, error)
	// StartTOTPRegistration issues a fresh TOTP secret and auth URL.
	StartTOTPRegistration(ctx context.Context, in TOTPStartInput) (TOTPStartOutput, error)
	// FinishTOTPRegistration verifies a submitted code and, on success,
	// persists the secret and returns a fresh access+refresh pair.
	FinishTOTPRegistration(ctx context.Context, in TOTPFinishInput) (TOTPFinishOutput, error)
	// StartPasskeyRegistration begins WebAuthn credential enrollment.
	StartPasskeyRegistration(ctx context.Context, in PasskeyRegistrationStartInput) (PasskeyRegistrationStartOutput, error)
	// FinishPasskeyRegistration finalizes WebAuthn credential
	// enrollment and appends the new passkey to the user.
	FinishPasskeyRegistration(ctx context.Context, in PasskeyRegistrationFinishInput) error
	// StartPasskeyAuthentication begins WebAuthn verification against
	// a user's existing passkeys.
	StartPasskeyAuthentication(ctx context.Context, in PasskeyAuthenticationStartInput) (PasskeyAuthenticationStartOutput, error)
	// FinishPasskeyAuthentication finalizes WebAuthn verification and
	// persists the updated passkey counters.
	FinishPasskeyAuthentication(ctx context.Context, in PasskeyAuthenticationFinishInput) error
	// JWKS publishes the current key set as JSON.
	JWKS(ctx context.Context) (string, error)
}
