package authcore

import (
	"context"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// SignupInput is the request to create a new user.
type SignupInput struct {
	Name     string
	Username string
	Password string
}

// SignupOutput is returned on successful signup.
type SignupOutput struct {
	UserID uuid.UUID
}

// bcryptCost is the password hashing cost used throughout the core.
const bcryptCost = 12

type signupUseCase struct {
	users UserRepository
}

func newSignupUseCase(users UserRepository) *signupUseCase {
	return &signupUseCase{users: users}
}

func (uc *signupUseCase) execute(ctx context.Context, in SignupInput) (SignupOutput, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcryptCost)
	if err != nil {
		return SignupOutput{}, newErr(EBcryptError, err)
	}

	user := &User{
		ID:           uuid.New(),
		Name:         in.Name,
		Username:     in.Username,
		PasswordHash: string(hash),
		Passkeys:     []Passkey{},
	}

	if err := uc.users.Save(ctx, user); err != nil {
		return SignupOutput{}, newErr(ESaveUserError, err)
	}

	return SignupOutput{UserID: user.ID}, nil
}
