// Package notecrypt encrypts note content on the caller's side before it is
// handed to the pipeline. The pipeline itself never decrypts and never sees
// a passphrase; this package exists so local tooling can produce the same
// ciphertext bundle the editor plugin emits.
package notecrypt

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"

	"golang.org/x/crypto/pbkdf2"

	"github.com/starford/sowilo/internal/apperr"
	"github.com/starford/sowilo/internal/checksum"
)

// Key derivation parameters, shared with the client-side decrypt contract.
const (
	Iterations = 120000
	keyLen     = 32
	saltLen    = 16
	ivLen      = 12
)

// Payload is the opaque bundle stored in an encrypted note's sidecar.
// All fields are base64-encoded.
type Payload struct {
	Ciphertext string `json:"ciphertext"`
	IV         string `json:"iv"`
	Salt       string `json:"salt"`
	Hash       string `json:"hash"`
}

// Encrypt derives an AES-256-GCM key from the passphrase via PBKDF2
// (SHA-256, fixed iteration count) with a random salt and seals the
// plaintext under a random IV. A failure to construct the primitives is
// reported as CryptoUnavailable; plaintext is never emitted on error.
func Encrypt(plaintext, passphrase string) (Payload, error) {
	salt := make([]byte, saltLen)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return Payload{}, fmt.Errorf("notecrypt: salt: %w: %w", err, apperr.ErrCryptoUnavailable)
	}
	iv := make([]byte, ivLen)
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return Payload{}, fmt.Errorf("notecrypt: iv: %w: %w", err, apperr.ErrCryptoUnavailable)
	}

	key := pbkdf2.Key([]byte(passphrase), salt, Iterations, keyLen, sha256.New)
	block, err := aes.NewCipher(key)
	if err != nil {
		return Payload{}, fmt.Errorf("notecrypt: cipher: %w: %w", err, apperr.ErrCryptoUnavailable)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return Payload{}, fmt.Errorf("notecrypt: gcm: %w: %w", err, apperr.ErrCryptoUnavailable)
	}

	sealed := gcm.Seal(nil, iv, []byte(plaintext), nil)
	p := Payload{
		Ciphertext: base64.StdEncoding.EncodeToString(sealed),
		IV:         base64.StdEncoding.EncodeToString(iv),
		Salt:       base64.StdEncoding.EncodeToString(salt),
	}
	p.Hash = checksum.SumEncrypted(p.Ciphertext, p.IV, p.Salt)
	return p, nil
}

// Decrypt reverses Encrypt. It exists for tests and local tooling only; the
// publish pipeline never calls it.
func Decrypt(p Payload, passphrase string) (string, error) {
	sealed, err := base64.StdEncoding.DecodeString(p.Ciphertext)
	if err != nil {
		return "", fmt.Errorf("notecrypt: decode ciphertext: %w", err)
	}
	iv, err := base64.StdEncoding.DecodeString(p.IV)
	if err != nil {
		return "", fmt.Errorf("notecrypt: decode iv: %w", err)
	}
	salt, err := base64.StdEncoding.DecodeString(p.Salt)
	if err != nil {
		return "", fmt.Errorf("notecrypt: decode salt: %w", err)
	}

	key := pbkdf2.Key([]byte(passphrase), salt, Iterations, keyLen, sha256.New)
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("notecrypt: cipher: %w: %w", err, apperr.ErrCryptoUnavailable)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("notecrypt: gcm: %w: %w", err, apperr.ErrCryptoUnavailable)
	}
	plain, err := gcm.Open(nil, iv, sealed, nil)
	if err != nil {
		// Deliberately generic: do not reveal which step failed.
		return "", fmt.Errorf("notecrypt: decrypt failed")
	}
	return string(plain), nil
}
