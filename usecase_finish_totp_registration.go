package authcore

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// TOTPFinishInput carries the bearer mfa_registration token and the
// 6-digit code the client computed from the enrolled secret.
type TOTPFinishInput struct {
	MFARegistrationToken string
	Code                 string
}

// TOTPFinishOutput is returned on success.
type TOTPFinishOutput struct {
	AccessToken  string
	RefreshToken string
}

type finishTOTPRegistrationUseCase struct {
	users  UserRepository
	tokens TokenService
	totp   TOTPService
	hsm    HSMStore
}

func newFinishTOTPRegistrationUseCase(users UserRepository, tokens TokenService, totp TOTPService, hsm HSMStore) *finishTOTPRegistrationUseCase {
	return &finishTOTPRegistrationUseCase{users: users, tokens: tokens, totp: totp, hsm: hsm}
}

func (uc *finishTOTPRegistrationUseCase) execute(ctx context.Context, in TOTPFinishInput) (TOTPFinishOutput, error) {
	claims, err := uc.tokens.ValidateToken(ctx, in.MFARegistrationToken, TokenMFARegistration)
	if err != nil {
		return TOTPFinishOutput{}, newErr(ETokenValidationFailed, err)
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return TOTPFinishOutput{}, newErr(EFindUserError, err)
	}

	storedURL, ok, err := uc.hsm.Get(ctx, userID, keyTOTPRegState)
	if err != nil {
		return TOTPFinishOutput{}, newErr(EGetHsmStoreError, err)
	}
	// Clear unconditionally, before inspecting the value, so a stale
	// challenge can never be replayed regardless of what happens next.
	clearErr := uc.hsm.Set(ctx, userID, keyTOTPRegState, "")

	if !ok || storedURL == "" {
		return TOTPFinishOutput{}, newErr(ETotpRegistrationNotFound, nil)
	}
	if clearErr != nil {
		return TOTPFinishOutput{}, newErr(ESetHsmStoreError, clearErr)
	}

	secret, err := totpSecretFromURL(storedURL)
	if err != nil {
		return TOTPFinishOutput{}, newErr(ESerdeError, err)
	}

	ok, err = uc.totp.Verify(ctx, secret, in.Code)
	if err != nil {
		return TOTPFinishOutput{}, newErr(ETotpError, err)
	}
	if !ok {
		return TOTPFinishOutput{}, newErr(EMFATokenCreationFailed, nil)
	}

	user, err := uc.users.FindID(ctx, userID)
	if err != nil {
		return TOTPFinishOutput{}, newErr(EFindUserError, err)
	}
	if user == nil {
		return TOTPFinishOutput{}, newErr(EUserNotFound, nil)
	}

	user.OTPSecret = &secret
	if err := uc.users.Save(ctx, user); err != nil {
		return TOTPFinishOutput{}, newErr(ESaveUserError, err)
	}

	refreshToken, err := uc.tokens.CreateToken(ctx, Claims{
		Subject:   claims.Subject,
		TokenType: TokenRefresh,
		ExpiresAt: time.Now().Add(refreshTTL).Unix(),
	})
	if err != nil {
		return TOTPFinishOutput{}, newErr(ERefreshTokenCreationFailed, err)
	}

	accessToken, err := uc.tokens.CreateToken(ctx, Claims{
		Subject:   claims.Subject,
		TokenType: TokenAccess,
		ExpiresAt: time.Now().Add(accessTTL).Unix(),
	})
	if err != nil {
		return TOTPFinishOutput{}, newErr(EAccessTokenCreationFailed, err)
	}

	return TOTPFinishOutput{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}
