// Package token implements auth.TokenService over a directory of
// Ed25519 PEM key pairs, signing and verifying JWTs and publishing the
// corresponding JWKS. The current signing key is the pair whose
// filename stem sorts highest in descending lexicographic order;
// rotation is driven by dropping a new, higher-sorting file pair into
// the directory.
package token

import (
	"context"
	"crypto/ed25519"
	"io"
	"math/rand"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid"
	"github.com/pkg/errors"

	auth "github.com/apo9666/authcore"
)

// DefaultCacheTTL is the lifetime of both the signing-key cache and
// the JWKS cache.
const DefaultCacheTTL = 10 * time.Minute

// claims is the wire shape of a signed token: the registered JWT
// fields plus the mandatory token_type the core's state machine keys
// on.
type claims struct {
	TokenType auth.TokenType `json:"token_type"`
	jwt.RegisteredClaims
}

// service is an implementation of auth.TokenService backed by a
// directory of PEM key pairs on disk.
type service struct {
	logger   log.Logger
	keysDir  string
	cacheTTL time.Duration
	entropy  io.Reader

	keyCache  keyCache
	jwksCache jwksCache
}

// Option configures a service.
type Option func(*service)

// WithLogger configures the service's logger.
func WithLogger(logger log.Logger) Option {
	return func(s *service) {
		s.logger = logger
	}
}

// WithKeysDir configures the directory service reads key pairs from.
func WithKeysDir(dir string) Option {
	return func(s *service) {
		s.keysDir = dir
	}
}

// WithCacheTTL overrides the default 10-minute cache lifetime for both
// the signing key and the JWKS.
func WithCacheTTL(ttl time.Duration) Option {
	return func(s *service) {
		s.cacheTTL = ttl
	}
}

// WithEntropy overrides the source used to generate each token's jti.
func WithEntropy(entropy io.Reader) Option {
	return func(s *service) {
		s.entropy = entropy
	}
}

// New returns an auth.TokenService reading Ed25519 key pairs from a
// directory.
func New(options ...Option) auth.TokenService {
	random := rand.New(rand.NewSource(time.Now().UnixNano()))
	s := &service{
		logger:   log.NewNopLogger(),
		cacheTTL: DefaultCacheTTL,
		entropy:  ulid.Monotonic(random, 0),
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

// CreateToken signs claims with the current highest-sorted signing key.
func (s *service) CreateToken(ctx context.Context, c auth.Claims) (string, error) {
	kid, priv, err := s.signingKey()
	if err != nil {
		return "", errors.Wrap(err, "failed to load signing key")
	}

	jti, err := ulid.New(ulid.Now(), s.entropy)
	if err != nil {
		return "", errors.Wrap(err, "failed to generate token id")
	}

	tc := claims{
		TokenType: c.TokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti.String(),
			Subject:   c.Subject,
			ExpiresAt: jwt.NewNumericDate(time.Unix(c.ExpiresAt, 0)),
		},
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodEdDSA, tc)
	tok.Header["kid"] = kid

	signed, err := tok.SignedString(priv)
	if err != nil {
		return "", errors.Wrap(err, "failed to sign token")
	}

	return signed, nil
}

// ValidateToken verifies signature and expiration, resolves the
// signing key by the token's kid header, and asserts the token's type
// matches requiredType.
func (s *service) ValidateToken(ctx context.Context, raw string, requiredType auth.TokenType) (auth.Claims, error) {
	var tc claims

	parser := jwt.NewParser(jwt.WithValidMethods([]string{"EdDSA"}))
	tok, err := parser.ParseWithClaims(raw, &tc, func(t *jwt.Token) (interface{}, error) {
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, errors.New("token missing kid header")
		}
		return s.publicKey(kid)
	})
	if err != nil {
		return auth.Claims{}, errors.Wrap(err, "token validation failed")
	}
	if !tok.Valid {
		return auth.Claims{}, errors.New("token is invalid")
	}

	if tc.TokenType != requiredType {
		return auth.Claims{}, errors.Errorf("token type %q does not satisfy required type %q", tc.TokenType, requiredType)
	}

	return auth.Claims{
		Subject:   tc.Subject,
		ExpiresAt: tc.ExpiresAt.Unix(),
		TokenType: tc.TokenType,
	}, nil
}

// JWKS serializes the cached public key set as JSON.
func (s *service) JWKS(ctx context.Context) (string, error) {
	return s.jwks()
}

func (s *service) publicKey(kid string) (ed25519.PublicKey, error) {
	keys, err := s.jwkSet()
	if err != nil {
		return nil, err
	}
	for _, k := range keys {
		if k.kid == kid {
			return k.pub, nil
		}
	}
	return nil, errors.Errorf("unknown kid %q", kid)
}
