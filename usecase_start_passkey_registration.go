package authcore

import (
	"context"

	"github.com/google/uuid"
)

// PasskeyRegistrationStartInput carries the bearer mfa_registration
// token. The user id is derived from the validated claims rather than
// trusted from the caller, closing the gap the Rust original leaves
// open (see DESIGN.md, Open Question 5).
type PasskeyRegistrationStartInput struct {
	MFARegistrationToken string
}

// PasskeyRegistrationStartOutput carries the client options JSON a
// browser passes to navigator.credentials.create.
type PasskeyRegistrationStartOutput struct {
	Challenge string
}

type startPasskeyRegistrationUseCase struct {
	users    UserRepository
	tokens   TokenService
	webauthn WebAuthnEngine
	hsm      HSMStore
}

func newStartPasskeyRegistrationUseCase(users UserRepository, tokens TokenService, webauthn WebAuthnEngine, hsm HSMStore) *startPasskeyRegistrationUseCase {
	return &startPasskeyRegistrationUseCase{users: users, tokens: tokens, webauthn: webauthn, hsm: hsm}
}

func (uc *startPasskeyRegistrationUseCase) execute(ctx context.Context, in PasskeyRegistrationStartInput) (PasskeyRegistrationStartOutput, error) {
	claims, err := uc.tokens.ValidateToken(ctx, in.MFARegistrationToken, TokenMFARegistration)
	if err != nil {
		return PasskeyRegistrationStartOutput{}, newErr(ETokenValidationFailed, err)
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return PasskeyRegistrationStartOutput{}, newErr(EFindUserError, err)
	}

	user, err := uc.users.FindID(ctx, userID)
	if err != nil {
		return PasskeyRegistrationStartOutput{}, newErr(EFindUserError, err)
	}
	if user == nil {
		return PasskeyRegistrationStartOutput{}, newErr(EUserNotFound, nil)
	}

	excluded := make([][]byte, 0, len(user.Passkeys))
	for _, pk := range user.Passkeys {
		excluded = append(excluded, pk.ID)
	}

	clientOptions, regState, err := uc.webauthn.StartPasskeyRegistration(ctx, user.ID, user.Username, user.Name, excluded)
	if err != nil {
		return PasskeyRegistrationStartOutput{}, newErr(EWebauthnError, err)
	}

	// Clear, then set: a stale registration attempt can never be
	// resumed by a later finish call.
	if err := uc.hsm.Set(ctx, userID, keyWebAuthnRegState, ""); err != nil {
		return PasskeyRegistrationStartOutput{}, newErr(ESetHsmStoreError, err)
	}
	if err := uc.hsm.Set(ctx, userID, keyWebAuthnRegState, string(regState)); err != nil {
		return PasskeyRegistrationStartOutput{}, newErr(ESetHsmStoreError, err)
	}

	return PasskeyRegistrationStartOutput{Challenge: string(clientOptions)}, nil
}
