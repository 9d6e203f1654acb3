// Package credential issues and verifies signed identity credentials. A credential
// names one identity and expires after the issuer's max age.
package credential

import (
	"errors"
	"fmt"
	"time"

	"github.com/gorilla/securecookie"
)

const codecName = "novel-identity"

var ErrInvalid = errors.New("invalid credential")

type Issuer struct {
	codec *securecookie.SecureCookie
}

// NewIssuer signs with secret. Credentials older than maxAge no longer verify.
func NewIssuer(secret []byte, maxAge time.Duration) *Issuer {
	codec := securecookie.New(secret, nil)
	codec.MaxAge(int(maxAge.Seconds()))
	codec.SetSerializer(securecookie.JSONEncoder{})
	return &Issuer{codec: codec}
}

func (i *Issuer) Issue(identity string) (string, error) {
	if identity == "" {
		return "", errors.New("identity is required")
	}
	token, err := i.codec.Encode(codecName, identity)
	if err != nil {
		return "", fmt.Errorf("failed to issue credential: %w", err)
	}
	return token, nil
}

// Verify returns the identity the credential was issued for.
func (i *Issuer) Verify(token string) (string, error) {
	var identity string
	if err := i.codec.Decode(codecName, token, &identity); err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if identity == "" {
		return "", ErrInvalid
	}
	return identity, nil
}
