package token

import (
	"encoding/base64"
	"encoding/json"

	"github.com/pkg/errors"
)

// jwk is one entry of a published JSON Web Key Set: an Ed25519 key
// encoded as an OKP (octet key pair) per RFC 8037.
type jwk struct {
	Kty string `json:"kty"`
	Crv string `json:"crv"`
	X   string `json:"x"`
	Kid string `json:"kid"`
}

// jwkSetDoc is the wire shape of a JWKS document.
type jwkSetDoc struct {
	Keys []jwk `json:"keys"`
}

func (s *service) jwks() (string, error) {
	keys, err := s.jwkSet()
	if err != nil {
		return "", errors.Wrap(err, "failed to build JWKS")
	}

	doc := jwkSetDoc{Keys: make([]jwk, 0, len(keys))}
	for _, k := range keys {
		doc.Keys = append(doc.Keys, jwk{
			Kty: "OKP",
			Crv: "Ed25519",
			X:   base64.RawURLEncoding.EncodeToString(k.pub),
			Kid: k.kid,
		})
	}

	b, err := json.Marshal(doc)
	if err != nil {
		return "", errors.Wrap(err, "failed to marshal JWKS")
	}

	return string(b), nil
}
