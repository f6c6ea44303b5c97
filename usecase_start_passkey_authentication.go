package authcore

import (
	"context"

	"github.com/google/uuid"
)

// PasskeyAuthenticationStartInput carries the bearer mfa_verification
// token issued by Login when a passkey factor is enrolled.
type PasskeyAuthenticationStartInput struct {
	MFAVerificationToken string
}

// PasskeyAuthenticationStartOutput carries the client options JSON a
// browser passes to navigator.credentials.get.
type PasskeyAuthenticationStartOutput struct {
	Challenge string
}

type startPasskeyAuthenticationUseCase struct {
	users    UserRepository
	tokens   TokenService
	webauthn WebAuthnEngine
	hsm      HSMStore
}

func newStartPasskeyAuthenticationUseCase(users UserRepository, tokens TokenService, webauthn WebAuthnEngine, hsm HSMStore) *startPasskeyAuthenticationUseCase {
	return &startPasskeyAuthenticationUseCase{users: users, tokens: tokens, webauthn: webauthn, hsm: hsm}
}

func (uc *startPasskeyAuthenticationUseCase) execute(ctx context.Context, in PasskeyAuthenticationStartInput) (PasskeyAuthenticationStartOutput, error) {
	claims, err := uc.tokens.ValidateToken(ctx, in.MFAVerificationToken, TokenMFAVerification)
	if err != nil {
		return PasskeyAuthenticationStartOutput{}, newErr(ETokenValidationFailed, err)
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return PasskeyAuthenticationStartOutput{}, newErr(EFindUserError, err)
	}

	user, err := uc.users.FindID(ctx, userID)
	if err != nil {
		return PasskeyAuthenticationStartOutput{}, newErr(EFindUserError, err)
	}
	if user == nil {
		return PasskeyAuthenticationStartOutput{}, newErr(EUserNotFound, nil)
	}

	requestOptions, authState, err := uc.webauthn.StartPasskeyAuthentication(ctx, user.Passkeys)
	if err != nil {
		return PasskeyAuthenticationStartOutput{}, newErr(EWebauthnError, err)
	}

	if err := uc.hsm.Set(ctx, userID, keyWebAuthnAuthState, ""); err != nil {
		return PasskeyAuthenticationStartOutput{}, newErr(ESetHsmStoreError, err)
	}
	if err := uc.hsm.Set(ctx, userID, keyWebAuthnAuthState, string(authState)); err != nil {
		return PasskeyAuthenticationStartOutput{}, newErr(ESetHsmStoreError, err)
	}

	return PasskeyAuthenticationStartOutput{Challenge: string(requestOptions)}, nil
}
