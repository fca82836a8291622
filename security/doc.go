// Package security holds the key material and payload codec used by the VSS
// client.
//
// A SecretKey is a secp256k1 scalar. Its compressed public key, hex encoded,
// is the anonymous store identity. Payloads are sealed with
// XChaCha20-Poly1305 under an HKDF-SHA256 subkey of the secret key; the
// ciphertext layout is a 24 byte random nonce followed by the sealed payload
// and its 16 byte tag.
package security
