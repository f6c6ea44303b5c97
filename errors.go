package authcore

import (
	"errors"
	"fmt"
)

// ErrorCode names one member of the closed AuthError taxonomy that
// flows out of every use case. Transport layers map any ErrorCode to a
// 400/401 response with a generic message and log the discriminant.
type ErrorCode string

const (
	EInvalidUsernameOrPassword      ErrorCode = "invalid_username_or_password"
	EUserNotFound                   ErrorCode = "user_not_found"
	EMFATokenCreationFailed         ErrorCode = "mfa_token_creation_failed"
	ERefreshTokenCreationFailed     ErrorCode = "refresh_token_creation_failed"
	EAccessTokenCreationFailed      ErrorCode = "access_token_creation_failed"
	ETokenValidationFailed          ErrorCode = "token_validation_failed"
	EWebAuthnRegistrationNotFound   ErrorCode = "webauthn_registration_not_found"
	EWebAuthnAuthenticationNotFound ErrorCode = "webauthn_authentication_not_found"
	ETotpRegistrationNotFound       ErrorCode = "totp_registration_not_found"
	EGetHsmStoreError               ErrorCode = "get_hsm_store_error"
	ESetHsmStoreError               ErrorCode = "set_hsm_store_error"
	EBcryptError                    ErrorCode = "bcrypt_error"
	ESerdeError                     ErrorCode = "serde_error"
	EFindUserError                  ErrorCode = "find_user_error"
	ESaveUserError                  ErrorCode = "save_user_error"
	ETotpError                      ErrorCode = "totp_error"
	EWebauthnError                  ErrorCode = "webauthn_error"
	EJwksFetchFailed                ErrorCode = "jwks_fetch_failed"
)

// AuthError is the one error type every use case returns on failure.
// It carries a closed discriminant (Code) plus, where one exists, the
// collaborator error that caused it. Transport layers should switch on
// Code, never on Error()'s text.
type AuthError struct {
	Code ErrorCode
	Err  error
}

func newErr(code ErrorCode, err error) *AuthError {
	return &AuthError{Code: code, Err: err}
}

// Error implements the error interface.
func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s", e.Code, e.Err)
	}
	return string(e.Code)
}

// Unwrap exposes the wrapped collaborator error to errors.Is/As.
func (e *AuthError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is match two *AuthError values by Code alone, so call
// sites can write errors.Is(err, authcore.ErrUserNotFound) without
// caring about the wrapped cause.
func (e *AuthError) Is(target error) bool {
	var t *AuthError
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// Sentinel AuthError values for use with errors.Is.
var (
	ErrInvalidUsernameOrPassword = &AuthError{Code: EInvalidUsernameOrPassword}
	ErrUserNotFound              = &AuthError{Code: EUserNotFound}
)

// Code extracts the ErrorCode from err if it is (or wraps) an
// *AuthError, and the zero value otherwise.
func Code(err error) ErrorCode {
	var ae *AuthError
	if errors.As(err, &ae) {
		return ae.Code
	}
	return ""
}
