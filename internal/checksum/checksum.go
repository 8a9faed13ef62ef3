package checksum

import (
	"crypto/sha256"
	"encoding/hex"
)

// Sum returns the hex-encoded SHA-256 digest of data.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// SumEncrypted returns the digest of an encrypted note's opaque bundle.
// The fields are newline-joined so the digest depends on each field's
// content and position; identical ciphertext+iv+salt always hashes the same.
func SumEncrypted(ciphertext, iv, salt string) string {
	h := sha256.New()
	h.Write([]byte(ciphertext))
	h.Write([]byte{'\n'})
	h.Write([]byte(iv))
	h.Write([]byte{'\n'})
	h.Write([]byte(salt))
	return hex.EncodeToString(h.Sum(nil))
}
