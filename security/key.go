package security

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

const SecretKeySize = 32

// SecretKey is a secp256k1 private scalar. It keys the payload codec and, in
// anonymous mode, determines the public store identity.
type SecretKey [SecretKeySize]byte

func GenerateSecretKey() (SecretKey, error) {
	priv, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return SecretKey{}, fmt.Errorf("security: generate secret key: %w", err)
	}
	return SecretKeyFromBytes(priv.Serialize())
}

func SecretKeyFromBytes(value []byte) (SecretKey, error) {
	if len(value) != SecretKeySize {
		return SecretKey{}, fmt.Errorf("security: secret key must be %d bytes, got %d", SecretKeySize, len(value))
	}
	var scalar secp256k1.ModNScalar
	if overflow := scalar.SetByteSlice(value); overflow {
		return SecretKey{}, fmt.Errorf("security: secret key is out of curve range")
	}
	if scalar.IsZero() {
		return SecretKey{}, fmt.Errorf("security: secret key is zero")
	}
	var key SecretKey
	copy(key[:], value)
	return key, nil
}

func ParseSecretKey(value string) (SecretKey, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return SecretKey{}, fmt.Errorf("security: secret key is required")
	}
	decoded, err := hex.DecodeString(trimmed)
	if err != nil {
		return SecretKey{}, fmt.Errorf("security: decode secret key hex: %w", err)
	}
	defer ClearBytes(decoded)
	return SecretKeyFromBytes(decoded)
}

func (k SecretKey) Hex() string {
	return hex.EncodeToString(k[:])
}

// PublicKeyHex returns the lowercase hex of the compressed SEC1 public key.
func (k SecretKey) PublicKeyHex() string {
	priv := secp256k1.PrivKeyFromBytes(k[:])
	defer priv.Zero()
	return hex.EncodeToString(priv.PubKey().SerializeCompressed())
}

func (k SecretKey) IsZero() bool {
	return k == SecretKey{}
}

// String never prints key material.
func (k SecretKey) String() string {
	return "security.SecretKey(redacted)"
}

func ClearBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
