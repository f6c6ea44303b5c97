// Package totp implements auth.TOTPService: RFC 6238 time-based
// one-time passwords, SHA-1, 6 digits, a 30-second step, and a ±1-step
// tolerance window.
package totp

import (
	"context"
	"crypto/rand"
	"encoding/base32"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"

	auth "github.com/apo9666/authcore"
)

// secretSize is the number of random bytes from which a TOTP secret is
// derived, before base32 encoding.
const secretSize = 21

const (
	period = 30
	skew   = 1
	digits = otp.DigitsSix
)

var base32NoPad = base32.StdEncoding.WithPadding(base32.NoPadding)

type service struct{}

// New returns an auth.TOTPService.
func New() auth.TOTPService {
	return &service{}
}

// AuthURL generates a fresh secret and the otpauth:// URL a client
// renders as a QR code to enroll it.
func (s *service) AuthURL(ctx context.Context, username, issuer string) (string, string, error) {
	raw := make([]byte, secretSize)
	if _, err := rand.Read(raw); err != nil {
		return "", "", errors.Wrap(err, "failed to generate TOTP secret")
	}

	secret := base32NoPad.EncodeToString(raw)
	authURL := fmt.Sprintf("otpauth://totp/%s:%s?secret=%s&issuer=%s", issuer, username, secret, issuer)

	return secret, authURL, nil
}

// Verify checks whether code is the current TOTP code for secret,
// tolerating a clock skew of one 30-second step in either direction.
func (s *service) Verify(ctx context.Context, secret, code string) (bool, error) {
	ok, err := totp.ValidateCustom(code, secret, time.Now(), totp.ValidateOpts{
		Period:    period,
		Skew:      skew,
		Digits:    digits,
		Algorithm: otp.AlgorithmSHA1,
	})
	if err != nil {
		return false, errors.Wrap(err, "failed to verify TOTP code")
	}
	return ok, nil
}
