package authcore

import (
	"context"

	"github.com/google/uuid"
)

// PasskeyAuthenticationFinishInput carries the bearer mfa_verification
// token and the browser's assertion response as raw JSON.
type PasskeyAuthenticationFinishInput struct {
	MFAVerificationToken string
	PublicKeyCredential  []byte
}

type finishPasskeyAuthenticationUseCase struct {
	users    UserRepository
	tokens   TokenService
	webauthn WebAuthnEngine
	hsm      HSMStore
}

func newFinishPasskeyAuthenticationUseCase(users UserRepository, tokens TokenService, webauthn WebAuthnEngine, hsm HSMStore) *finishPasskeyAuthenticationUseCase {
	return &finishPasskeyAuthenticationUseCase{users: users, tokens: tokens, webauthn: webauthn, hsm: hsm}
}

func (uc *finishPasskeyAuthenticationUseCase) execute(ctx context.Context, in PasskeyAuthenticationFinishInput) error {
	claims, err := uc.tokens.ValidateToken(ctx, in.MFAVerificationToken, TokenMFAVerification)
	if err != nil {
		return newErr(ETokenValidationFailed, err)
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return newErr(EFindUserError, err)
	}

	authState, ok, err := uc.hsm.Get(ctx, userID, keyWebAuthnAuthState)
	if err != nil {
		return newErr(EGetHsmStoreError, err)
	}
	if !ok || authState == "" {
		return newErr(EWebAuthnAuthenticationNotFound, nil)
	}
	if err := uc.hsm.Set(ctx, userID, keyWebAuthnAuthState, ""); err != nil {
		return newErr(ESetHsmStoreError, err)
	}

	user, err := uc.users.FindID(ctx, userID)
	if err != nil {
		return newErr(EFindUserError, err)
	}
	if user == nil {
		return newErr(EUserNotFound, nil)
	}

	updated, err := uc.webauthn.FinishPasskeyAuthentication(ctx, in.PublicKeyCredential, []byte(authState), user.Passkeys)
	if err != nil {
		return newErr(EWebauthnError, err)
	}

	user.Passkeys = updated
	if err := uc.users.Save(ctx, user); err != nil {
		return newErr(ESaveUserError, err)
	}

	return nil
}
