package authcore

import (
	"context"
	"time"

	"golang.org/x/crypto/bcrypt"
)

const (
	mfaVerificationTTL = 300 * time.Second
	accessTTL          = 600 * time.Second
	refreshTTL         = 7 * 24 * time.Hour
	mfaRegistrationTTL = 180 * time.Second
)

// LoginInput is the request to authenticate with a password.
type LoginInput struct {
	Username string
	Password string
}

// LoginOutput is returned on successful password verification. Exactly
// one of the two shapes is populated: MFAVerificationToken when a
// factor is enrolled, or AccessToken+RefreshToken when none is.
type LoginOutput struct {
	MFAVerificationToken string
	AllowedMethods       []string
	AccessToken          string
	RefreshToken         string
}

type loginUseCase struct {
	users  UserRepository
	tokens TokenService
}

func newLoginUseCase(users UserRepository, tokens TokenService) *loginUseCase {
	return &loginUseCase{users: users, tokens: tokens}
}

func (uc *loginUseCase) execute(ctx context.Context, in LoginInput) (LoginOutput, error) {
	user, err := uc.users.FindUsername(ctx, in.Username)
	if err != nil {
		return LoginOutput{}, newErr(EUserNotFound, err)
	}
	if user == nil {
		return LoginOutput{}, newErr(EUserNotFound, nil)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(in.Password)); err != nil {
		return LoginOutput{}, newErr(EInvalidUsernameOrPassword, err)
	}

	var methods []string
	if user.HasTOTP() {
		methods = append(methods, "otp")
	}
	if user.HasPasskey() {
		methods = append(methods, "passkey")
	}

	subject := user.ID.String()

	if len(methods) > 0 {
		token, err := uc.tokens.CreateToken(ctx, Claims{
			Subject:   subject,
			TokenType: TokenMFAVerification,
			ExpiresAt: time.Now().Add(mfaVerificationTTL).Unix(),
		})
		if err != nil {
			return LoginOutput{}, newErr(EMFATokenCreationFailed, err)
		}

		return LoginOutput{
			MFAVerificationToken: token,
			AllowedMethods:       methods,
		}, nil
	}

	refreshToken, err := uc.tokens.CreateToken(ctx, Claims{
		Subject:   subject,
		TokenType: TokenRefresh,
		ExpiresAt: time.Now().Add(refreshTTL).Unix(),
	})
	if err != nil {
		return LoginOutput{}, newErr(ERefreshTokenCreationFailed, err)
	}

	accessToken, err := uc.tokens.CreateToken(ctx, Claims{
		Subject:   subject,
		TokenType: TokenAccess,
		ExpiresAt: time.Now().Add(accessTTL).Unix(),
	})
	if err != nil {
		return LoginOutput{}, newErr(EAccessTokenCreationFailed, err)
	}

	return LoginOutput{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}
