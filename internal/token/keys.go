package token

import (
	"crypto/ed25519"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
)

const (
	privateKeySuffix = "_key.pem"
	publicKeySuffix  = "_public.pem"
)

// keyCache holds the current signing key, refreshed at most once per
// cacheTTL. Many readers share the cached value; a cache miss triggers
// one exclusive rebuild, never a retry loop.
type keyCache struct {
	mu       sync.RWMutex
	kid      string
	priv     ed25519.PrivateKey
	cachedAt time.Time
}

func (s *service) signingKey() (string, ed25519.PrivateKey, error) {
	s.keyCache.mu.RLock()
	if s.keyCache.kid != "" && time.Since(s.keyCache.cachedAt) < s.cacheTTL {
		kid, priv := s.keyCache.kid, s.keyCache.priv
		s.keyCache.mu.RUnlock()
		return kid, priv, nil
	}
	s.keyCache.mu.RUnlock()

	s.keyCache.mu.Lock()
	defer s.keyCache.mu.Unlock()

	// Another writer may have refreshed the cache while we waited for
	// the exclusive lock.
	if s.keyCache.kid != "" && time.Since(s.keyCache.cachedAt) < s.cacheTTL {
		return s.keyCache.kid, s.keyCache.priv, nil
	}

	kid, priv, err := s.loadSigningKey()
	if err != nil {
		return "", nil, err
	}

	s.keyCache.kid = kid
	s.keyCache.priv = priv
	s.keyCache.cachedAt = time.Now()

	return kid, priv, nil
}

func (s *service) loadSigningKey() (string, ed25519.PrivateKey, error) {
	entries, err := os.ReadDir(s.keysDir)
	if err != nil {
		return "", nil, errors.Wrap(err, "failed to read keys directory")
	}

	var stems []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.HasSuffix(e.Name(), privateKeySuffix) {
			stems = append(stems, strings.TrimSuffix(e.Name(), privateKeySuffix))
		}
	}
	if len(stems) == 0 {
		return "", nil, errors.New("no signing keys found")
	}

	sort.Sort(sort.Reverse(sort.StringSlice(stems)))
	kid := stems[0]

	raw, err := os.ReadFile(filepath.Join(s.keysDir, kid+privateKeySuffix))
	if err != nil {
		return "", nil, errors.Wrap(err, "failed to read signing key file")
	}

	block, _ := pem.Decode(raw)
	if block == nil {
		return "", nil, errors.New("failed to decode signing key PEM")
	}

	key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return "", nil, errors.Wrap(err, "failed to parse signing key")
	}

	priv, ok := key.(ed25519.PrivateKey)
	if !ok {
		return "", nil, errors.New("signing key is not Ed25519")
	}

	return kid, priv, nil
}

// jwksKey is one entry of the cached public key set.
type jwksKey struct {
	kid string
	pub ed25519.PublicKey
}

// jwksCache holds the current published key set, refreshed at most
// once per cacheTTL, independently of the signing-key cache above so a
// JWKS rebuild never blocks a concurrent signature.
type jwksCache struct {
	mu       sync.RWMutex
	keys     []jwksKey
	cachedAt time.Time
}

func (s *service) jwkSet() ([]jwksKey, error) {
	s.jwksCache.mu.RLock()
	if s.jwksCache.keys != nil && time.Since(s.jwksCache.cachedAt) < s.cacheTTL {
		keys := s.jwksCache.keys
		s.jwksCache.mu.RUnlock()
		return keys, nil
	}
	s.jwksCache.mu.RUnlock()

	s.jwksCache.mu.Lock()
	defer s.jwksCache.mu.Unlock()

	if s.jwksCache.keys != nil && time.Since(s.jwksCache.cachedAt) < s.cacheTTL {
		return s.jwksCache.keys, nil
	}

	keys, err := s.loadJWKSet()
	if err != nil {
		return nil, err
	}

	s.jwksCache.keys = keys
	s.jwksCache.cachedAt = time.Now()

	return keys, nil
}

func (s *service) loadJWKSet() ([]jwksKey, error) {
	entries, err := os.ReadDir(s.keysDir)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read keys directory")
	}

	var keys []jwksKey
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), publicKeySuffix) {
			continue
		}

		kid := strings.TrimSuffix(e.Name(), publicKeySuffix)

		raw, err := os.ReadFile(filepath.Join(s.keysDir, e.Name()))
		if err != nil {
			return nil, errors.Wrap(err, "failed to read public key file")
		}

		pub, err := rawEd25519PublicKey(raw)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to decode public key %q", kid)
		}

		keys = append(keys, jwksKey{kid: kid, pub: pub})
	}

	return keys, nil
}

// rawEd25519PublicKey extracts the 32-byte raw Ed25519 public key from
// a PEM-encoded SubjectPublicKeyInfo: strip the PEM delimiter lines,
// base64-decode the remaining content as DER, and take the last 32
// bytes. The SPKI DER for an Ed25519 key is a fixed 12-byte ASN.1
// prefix followed by the raw 32-byte key, so this is equivalent to
// parsing the ASN.1 but avoids depending on x509 recognizing the
// algorithm OID.
func rawEd25519PublicKey(pemBytes []byte) (ed25519.PublicKey, error) {
	var b64 strings.Builder
	for _, line := range strings.Split(string(pemBytes), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "-----") {
			continue
		}
		b64.WriteString(line)
	}

	der, err := base64.StdEncoding.DecodeString(b64.String())
	if err != nil {
		return nil, errors.Wrap(err, "invalid base64 in public key file")
	}

	if len(der) < ed25519.PublicKeySize {
		return nil, errors.New("public key DER too short")
	}

	return ed25519.PublicKey(der[len(der)-ed25519.PublicKeySize:]), nil
}
