package authcore

import (
	"context"

	"github.com/google/uuid"
)

// PasskeyRegistrationFinishInput carries the bearer mfa_registration
// token (the same one used to start registration) and the browser's
// attestation response as raw JSON.
type PasskeyRegistrationFinishInput struct {
	MFARegistrationToken         string
	RegisterPublicKeyCredential []byte
}

type finishPasskeyRegistrationUseCase struct {
	users    UserRepository
	tokens   TokenService
	webauthn WebAuthnEngine
	hsm      HSMStore
}

func newFinishPasskeyRegistrationUseCase(users UserRepository, tokens TokenService, webauthn WebAuthnEngine, hsm HSMStore) *finishPasskeyRegistrationUseCase {
	return &finishPasskeyRegistrationUseCase{users: users, tokens: tokens, webauthn: webauthn, hsm: hsm}
}

func (uc *finishPasskeyRegistrationUseCase) execute(ctx context.Context, in PasskeyRegistrationFinishInput) error {
	claims, err := uc.tokens.ValidateToken(ctx, in.MFARegistrationToken, TokenMFARegistration)
	if err != nil {
		return newErr(ETokenValidationFailed, err)
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return newErr(EFindUserError, err)
	}

	regState, ok, err := uc.hsm.Get(ctx, userID, keyWebAuthnRegState)
	if err != nil {
		return newErr(EGetHsmStoreError, err)
	}
	if !ok || regState == "" {
		return newErr(EWebAuthnRegistrationNotFound, nil)
	}
	if err := uc.hsm.Set(ctx, userID, keyWebAuthnRegState, ""); err != nil {
		return newErr(ESetHsmStoreError, err)
	}

	passkey, err := uc.webauthn.FinishPasskeyRegistration(ctx, in.RegisterPublicKeyCredential, []byte(regState))
	if err != nil {
		return newErr(EWebauthnError, err)
	}

	user, err := uc.users.FindID(ctx, userID)
	if err != nil {
		return newErr(EFindUserError, err)
	}
	if user == nil {
		return newErr(EUserNotFound, nil)
	}

	user.Passkeys = append(user.Passkeys, passkey)
	if err := uc.users.Save(ctx, user); err != nil {
		return newErr(ESaveUserError, err)
	}

	return nil
}
