package core

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/goliatone/go-vss/security"
)

type KeyVersion struct {
	Key     string `json:"key"`
	Version uint32 `json:"version"`
}

// VersionedItem is the plaintext form of a stored value. Value holds any JSON
// document; Version is chosen by the caller and is expected to grow per key.
type VersionedItem struct {
	Key     string          `json:"key"`
	Value   json.RawMessage `json:"value"`
	Version uint32          `json:"version"`
}

type EncryptedItem struct {
	Key     string     `json:"key"`
	Value   Ciphertext `json:"value"`
	Version uint32     `json:"version"`
}

// NewVersionedItem marshals value into a VersionedItem.
func NewVersionedItem(key string, value any, version uint32) (VersionedItem, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return VersionedItem{}, WrapError(err, ErrorBadInput, "vss: marshal item value", map[string]any{"key": key})
	}
	return VersionedItem{Key: key, Value: raw, Version: version}, nil
}

// DecodeValue unmarshals the item value into target.
func (i VersionedItem) DecodeValue(target any) error {
	value := i.Value
	if value == nil {
		value = json.RawMessage("null")
	}
	if err := json.Unmarshal(value, target); err != nil {
		return WrapError(err, ErrorEncoding, "vss: decode item value", map[string]any{"key": i.Key})
	}
	return nil
}

// Equal compares items by key, version and canonical JSON value.
func (i VersionedItem) Equal(other VersionedItem) bool {
	if i.Key != other.Key || i.Version != other.Version {
		return false
	}
	left, lerr := canonicalJSON(i.Value)
	right, rerr := canonicalJSON(other.Value)
	if lerr != nil || rerr != nil {
		return bytes.Equal(i.Value, other.Value)
	}
	return bytes.Equal(left, right)
}

func (i VersionedItem) Encrypt(codec Codec, key SecretKey) (EncryptedItem, error) {
	if codec == nil {
		return EncryptedItem{}, NewError("vss: codec is required", ErrorInternal, nil)
	}
	plaintext, err := canonicalJSON(i.Value)
	if err != nil {
		return EncryptedItem{}, WrapError(err, ErrorBadInput, "vss: item value is not valid json", map[string]any{"key": i.Key})
	}
	ciphertext, err := codec.Encrypt(key, plaintext)
	if err != nil {
		return EncryptedItem{}, WrapError(err, ErrorInternal, "vss: encrypt item value", map[string]any{"key": i.Key})
	}
	return EncryptedItem{
		Key:     i.Key,
		Value:   ciphertext,
		Version: i.Version,
	}, nil
}

func (e EncryptedItem) Decrypt(codec Codec, key SecretKey) (VersionedItem, error) {
	if codec == nil {
		return VersionedItem{}, NewError("vss: codec is required", ErrorInternal, nil)
	}
	metadata := map[string]any{"key": e.Key, "version": e.Version}
	plaintext, err := codec.Decrypt(key, e.Value)
	if err != nil {
		if errors.Is(err, security.ErrDecryption) {
			return VersionedItem{}, WrapError(err, ErrorDecryption, "vss: decrypt item value", metadata)
		}
		return VersionedItem{}, WrapError(err, ErrorInternal, "vss: decrypt item value", metadata)
	}
	if !utf8.Valid(plaintext) {
		return VersionedItem{}, NewError("vss: decrypted value is not valid utf-8", ErrorEncoding, metadata)
	}
	if !json.Valid(plaintext) {
		return VersionedItem{}, NewError("vss: decrypted value is not valid json", ErrorEncoding, metadata)
	}
	return VersionedItem{
		Key:     e.Key,
		Value:   json.RawMessage(plaintext),
		Version: e.Version,
	}, nil
}

// canonicalJSON compacts value. A nil value is null, matching what
// json.Marshal writes for it.
func canonicalJSON(value json.RawMessage) ([]byte, error) {
	if value == nil {
		return []byte("null"), nil
	}
	if len(bytes.TrimSpace(value)) == 0 {
		return nil, fmt.Errorf("empty json value")
	}
	var out bytes.Buffer
	if err := json.Compact(&out, value); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

// Ciphertext marshals as a JSON array of byte values, the encoding the VSS
// server stores. Unmarshal also accepts a base64 string.
type Ciphertext []byte

func (c Ciphertext) MarshalJSON() ([]byte, error) {
	var out bytes.Buffer
	out.Grow(len(c)*4 + 2)
	out.WriteByte('[')
	for idx, b := range c {
		if idx > 0 {
			out.WriteByte(',')
		}
		fmt.Fprintf(&out, "%d", b)
	}
	out.WriteByte(']')
	return out.Bytes(), nil
}

func (c *Ciphertext) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	switch {
	case bytes.Equal(trimmed, []byte("null")):
		*c = nil
		return nil
	case len(trimmed) > 0 && trimmed[0] == '"':
		var encoded string
		if err := json.Unmarshal(trimmed, &encoded); err != nil {
			return err
		}
		decoded, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encoded))
		if err != nil {
			return fmt.Errorf("vss: decode ciphertext base64: %w", err)
		}
		*c = decoded
		return nil
	default:
		var values []byte
		if err := json.Unmarshal(trimmed, &values); err != nil {
			return fmt.Errorf("vss: decode ciphertext bytes: %w", err)
		}
		*c = values
		return nil
	}
}
