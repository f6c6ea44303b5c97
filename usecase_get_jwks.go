package authcore

import "context"

type getJWKSUseCase struct {
	tokens TokenService
}

func newGetJWKSUseCase(tokens TokenService) *getJWKSUseCase {
	return &getJWKSUseCase{tokens: tokens}
}

func (uc *getJWKSUseCase) execute(ctx context.Context) (string, error) {
	jwks, err := uc.tokens.JWKS(ctx)
	if err != nil {
		return "", newErr(EJwksFetchFailed, err)
	}
	return jwks, nil
}
