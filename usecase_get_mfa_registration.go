package authcore

import (
	"context"
	"time"
)

// mfaRegistrationMenu is the fixed set of factors a caller may enroll.
var mfaRegistrationMenu = []string{"totp", "webauthn"}

// MFARegistrationInput carries the bearer access token authorizing
// enrollment.
type MFARegistrationInput struct {
	AccessToken string
}

// MFARegistrationOutput is returned on success.
type MFARegistrationOutput struct {
	MFARegistrationToken string
	AllowedMethods       []string
	ExpiresIn            int
}

type getMFARegistrationUseCase struct {
	tokens TokenService
}

func newGetMFARegistrationUseCase(tokens TokenService) *getMFARegistrationUseCase {
	return &getMFARegistrationUseCase{tokens: tokens}
}

func (uc *getMFARegistrationUseCase) execute(ctx context.Context, in MFARegistrationInput) (MFARegistrationOutput, error) {
	claims, err := uc.tokens.ValidateToken(ctx, in.AccessToken, TokenAccess)
	if err != nil {
		return MFARegistrationOutput{}, newErr(ETokenValidationFailed, err)
	}

	token, err := uc.tokens.CreateToken(ctx, Claims{
		Subject:   claims.Subject,
		TokenType: TokenMFARegistration,
		ExpiresAt: time.Now().Add(mfaRegistrationTTL).Unix(),
	})
	if err != nil {
		return MFARegistrationOutput{}, newErr(EMFATokenCreationFailed, err)
	}

	return MFARegistrationOutput{
		MFARegistrationToken: token,
		AllowedMethods:       mfaRegistrationMenu,
		ExpiresIn:            int(mfaRegistrationTTL.Seconds()),
	}, nil
}
