package authcore

import "context"

// AuthComponent is the facade implementation of Component. It owns no
// state of its own beyond references to the ten use cases; each
// method forwards to exactly one of them.
type AuthComponent struct {
	signup                      *signupUseCase
	login                       *loginUseCase
	getMFARegistration          *getMFARegistrationUseCase
	startTOTPRegistration       *startTOTPRegistrationUseCase
	finishTOTPRegistration      *finishTOTPRegistrationUseCase
	startPasskeyRegistration    *startPasskeyRegistrationUseCase
	finishPasskeyRegistration   *finishPasskeyRegistrationUseCase
	startPasskeyAuthentication  *startPasskeyAuthenticationUseCase
	finishPasskeyAuthentication *finishPasskeyAuthenticationUseCase
	getJWKS                     *getJWKSUseCase
}

var _ Component = (*AuthComponent)(nil)

// NewComponent wires the ten use cases over the five collaborator
// capabilities and returns the facade. The core never names a concrete
// implementation of UserRepository, TokenService, TOTPService,
// HSMStore, or WebAuthnEngine; callers supply whichever satisfies the
// interface.
func NewComponent(
	users UserRepository,
	tokens TokenService,
	totp TOTPService,
	hsm HSMStore,
	webauthn WebAuthnEngine,
) *AuthComponent {
	return &AuthComponent{
		signup:                      newSignupUseCase(users),
		login:                       newLoginUseCase(users, tokens),
		getMFARegistration:          newGetMFARegistrationUseCase(tokens),
		startTOTPRegistration:       newStartTOTPRegistrationUseCase(users, tokens, totp, hsm),
		finishTOTPRegistration:      newFinishTOTPRegistrationUseCase(users, tokens, totp, hsm),
		startPasskeyRegistration:    newStartPasskeyRegistrationUseCase(users, tokens, webauthn, hsm),
		finishPasskeyRegistration:   newFinishPasskeyRegistrationUseCase(users, tokens, webauthn, hsm),
		startPasskeyAuthentication:  newStartPasskeyAuthenticationUseCase(users, tokens, webauthn, hsm),
		finishPasskeyAuthentication: newFinishPasskeyAuthenticationUseCase(users, tokens, webauthn, hsm),
		getJWKS:                     newGetJWKSUseCase(tokens),
	}
}

// Signup creates a new user.
func (c *AuthComponent) Signup(ctx context.Context, in SignupInput) (SignupOutput, error) {
	return c.signup.execute(ctx, in)
}

// Login verifies a password and starts the appropriate next step.
func (c *AuthComponent) Login(ctx context.Context, in LoginInput) (LoginOutput, error) {
	return c.login.execute(ctx, in)
}

// GetMFARegistration issues an mfa_registration token for an
// authenticated user.
func (c *AuthComponent) GetMFARegistration(ctx context.Context, in MFARegistrationInput) (MFARegistrationOutput, error) {
	return c.getMFARegistration.execute(ctx, in)
}

// StartTOTPRegistration issues a fresh TOTP secret and auth URL.
func (c *AuthComponent) StartTOTPRegistration(ctx context.Context, in TOTPStartInput) (TOTPStartOutput, error) {
	return c.startTOTPRegistration.execute(ctx, in)
}

// FinishTOTPRegistration verifies a TOTP code and completes enrollment.
func (c *AuthComponent) FinishTOTPRegistration(ctx context.Context, in TOTPFinishInput) (TOTPFinishOutput, error) {
	return c.finishTOTPRegistration.execute(ctx, in)
}

// StartPasskeyRegistration begins WebAuthn credential enrollment.
func (c *AuthComponent) StartPasskeyRegistration(ctx context.Context, in PasskeyRegistrationStartInput) (PasskeyRegistrationStartOutput, error) {
	return c.startPasskeyRegistration.execute(ctx, in)
}

// FinishPasskeyRegistration finalizes WebAuthn credential enrollment.
func (c *AuthComponent) FinishPasskeyRegistration(ctx context.Context, in PasskeyRegistrationFinishInput) error {
	return c.finishPasskeyRegistration.execute(ctx, in)
}

// StartPasskeyAuthentication begins WebAuthn verification.
func (c *AuthComponent) StartPasskeyAuthentication(ctx context.Context, in PasskeyAuthenticationStartInput) (PasskeyAuthenticationStartOutput, error) {
	return c.startPasskeyAuthentication.execute(ctx, in)
}

// FinishPasskeyAuthentication finalizes WebAuthn verification.
func (c *AuthComponent) FinishPasskeyAuthentication(ctx context.Context, in PasskeyAuthenticationFinishInput) error {
	return c.finishPasskeyAuthentication.execute(ctx, in)
}

// JWKS publishes the current key set as JSON.
func (c *AuthComponent) JWKS(ctx context.Context) (string, error) {
	return c.getJWKS.execute(ctx)
}
