// Package secretcfg decrypts the Fernet-wrapped wallet/privkey/passphrase
// fields in the daemon's YAML configuration (spec §6). No Fernet package
// appears anywhere in the retrieved example pack, so this reproduces the
// token layout directly against stdlib crypto/aes + crypto/cipher +
// crypto/hmac, matching the reference Fernet spec byte-for-byte: a version
// byte, an 8-byte big-endian timestamp, a 16-byte IV, AES-128-CBC
// ciphertext, and a trailing 32-byte HMAC-SHA256 signature, all base64url
// encoded end to end.
package secretcfg

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
)

const (
	fernetVersion  byte = 0x80
	timestampLen        = 8
	ivLen               = aes.BlockSize
	hmacLen             = sha256.Size
	minTokenLen         = 1 + timestampLen + ivLen + aes.BlockSize + hmacLen
)

// ErrBadKey is returned when the configured DB.fernet key does not decode to
// 32 raw bytes (spec §6: "the fernet key must be 44 bytes").
var ErrBadKey = errors.New("secretcfg: fernet key must decode to 32 bytes")

// ErrInvalidToken is returned when a ciphertext fails the version check,
// length check, or HMAC verification.
var ErrInvalidToken = errors.New("secretcfg: invalid fernet token")

// DecryptString decodes the base64url key and token and returns the
// decrypted plaintext as a string.
func DecryptString(key, token string) (string, error) {
	plain, err := Decrypt(key, token)
	if err != nil {
		return "", err
	}
	return string(plain), nil
}

// Decrypt verifies and decrypts a Fernet token using key (the 44-char
// base64url-encoded 32-byte Fernet key from DB.fernet).
func Decrypt(key, token string) ([]byte, error) {
	signingKey, encKey, err := splitKey(key)
	if err != nil {
		return nil, err
	}

	raw, err := base64.URLEncoding.DecodeString(padBase64(token))
	if err != nil {
		return nil, fmt.Errorf("%w: base64 decode: %v", ErrInvalidToken, err)
	}
	if len(raw) < minTokenLen {
		return nil, fmt.Errorf("%w: token too short", ErrInvalidToken)
	}
	if raw[0] != fernetVersion {
		return nil, fmt.Errorf("%w: bad version byte", ErrInvalidToken)
	}

	signed := raw[:len(raw)-hmacLen]
	wantMAC := raw[len(raw)-hmacLen:]

	mac := hmac.New(sha256.New, signingKey)
	mac.Write(signed)
	gotMAC := mac.Sum(nil)
	if subtle.ConstantTimeCompare(gotMAC, wantMAC) != 1 {
		return nil, fmt.Errorf("%w: hmac mismatch", ErrInvalidToken)
	}

	iv := raw[1+timestampLen : 1+timestampLen+ivLen]
	ciphertext := raw[1+timestampLen+ivLen : len(raw)-hmacLen]
	if len(ciphertext)%aes.BlockSize != 0 {
		return nil, fmt.Errorf("%w: ciphertext not block-aligned", ErrInvalidToken)
	}

	block, err := aes.NewCipher(encKey)
	if err != nil {
		return nil, fmt.Errorf("secretcfg: new cipher: %w", err)
	}
	plain := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plain, ciphertext)

	return unpad(plain)
}

// splitKey decodes a 44-char base64url Fernet key into its 16-byte signing
// half and 16-byte encryption half (reference Fernet spec: key[:16] signs,
// key[16:] encrypts).
func splitKey(key string) (signingKey, encKey []byte, err error) {
	raw, err := base64.URLEncoding.DecodeString(padBase64(key))
	if err != nil || len(raw) != 32 {
		return nil, nil, ErrBadKey
	}
	return raw[:16], raw[16:], nil
}

func padBase64(s string) string {
	if m := len(s) % 4; m != 0 {
		s += string(bytes.Repeat([]byte{'='}, 4-m))
	}
	return s
}

// unpad strips PKCS7 padding.
func unpad(b []byte) ([]byte, error) {
	if len(b) == 0 {
		return nil, fmt.Errorf("%w: empty plaintext", ErrInvalidToken)
	}
	n := int(b[len(b)-1])
	if n == 0 || n > len(b) {
		return nil, fmt.Errorf("%w: bad padding", ErrInvalidToken)
	}
	for _, p := range b[len(b)-n:] {
		if int(p) != n {
			return nil, fmt.Errorf("%w: bad padding", ErrInvalidToken)
		}
	}
	return b[:len(b)-n], nil
}
