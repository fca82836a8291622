package security

import (
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

const (
	codecKeyInfo = "vss-encryption-v1"

	// CiphertextOverhead is the number of bytes Encrypt adds to a plaintext.
	CiphertextOverhead = chacha20poly1305.NonceSizeX + chacha20poly1305.Overhead
)

var ErrDecryption = errors.New("security: decryption failed")

type Codec interface {
	Encrypt(key SecretKey, plaintext []byte) ([]byte, error)
	Decrypt(key SecretKey, ciphertext []byte) ([]byte, error)
}

type CodecOption func(*XChaChaCodec)

// WithRandom replaces the nonce source.
func WithRandom(reader io.Reader) CodecOption {
	return func(codec *XChaChaCodec) {
		if reader != nil {
			codec.random = reader
		}
	}
}

// XChaChaCodec seals payloads with XChaCha20-Poly1305 under a subkey derived
// from the secret key. Output layout is nonce || sealed.
type XChaChaCodec struct {
	random io.Reader
}

func NewXChaChaCodec(opts ...CodecOption) *XChaChaCodec {
	codec := &XChaChaCodec{random: rand.Reader}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(codec)
	}
	return codec
}

func (c *XChaChaCodec) Encrypt(key SecretKey, plaintext []byte) ([]byte, error) {
	if c == nil {
		return nil, fmt.Errorf("security: codec is nil")
	}
	aead, err := newAEAD(key)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, chacha20poly1305.NonceSizeX)
	if _, err := io.ReadFull(c.random, nonce); err != nil {
		return nil, fmt.Errorf("security: nonce generation failed: %w", err)
	}
	out := make([]byte, 0, CiphertextOverhead+len(plaintext))
	out = append(out, nonce...)
	return aead.Seal(out, nonce, plaintext, nil), nil
}

func (c *XChaChaCodec) Decrypt(key SecretKey, ciphertext []byte) ([]byte, error) {
	if c == nil {
		return nil, fmt.Errorf("security: codec is nil")
	}
	if len(ciphertext) < CiphertextOverhead {
		return nil, fmt.Errorf("%w: ciphertext too short", ErrDecryption)
	}
	aead, err := newAEAD(key)
	if err != nil {
		return nil, err
	}
	nonce := ciphertext[:chacha20poly1305.NonceSizeX]
	plaintext, err := aead.Open(nil, nonce, ciphertext[chacha20poly1305.NonceSizeX:], nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecryption, err)
	}
	return plaintext, nil
}

func newAEAD(key SecretKey) (cipher.AEAD, error) {
	subkey, err := deriveCodecKey(key)
	if err != nil {
		return nil, err
	}
	defer ClearBytes(subkey)
	aead, err := chacha20poly1305.NewX(subkey)
	if err != nil {
		return nil, fmt.Errorf("security: create aead: %w", err)
	}
	return aead, nil
}

func deriveCodecKey(key SecretKey) ([]byte, error) {
	reader := hkdf.New(sha256.New, key[:], nil, []byte(codecKeyInfo))
	subkey := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(reader, subkey); err != nil {
		return nil, fmt.Errorf("security: derive codec key: %w", err)
	}
	return subkey, nil
}

var _ Codec = (*XChaChaCodec)(nil)
