// keys.go - Content-addressed key derivation.
//
// Every stored file is identified by two values: a public key, the SHA-256
// digest of its content, and a private key, an HMAC-SHA-256 of the public key
// under the server secret. The public key retrieves the file; the private key
// authorizes its deletion. Private keys are never persisted; they are
// recomputed on demand and compared against the caller-supplied value.
package server

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// keyHexLen is the length of both key kinds in hex characters (256 bits).
const keyHexLen = 64

// DerivePublicKey returns the SHA-256 digest of content as 64 lowercase hex
// characters. Identical content always yields the same key.
func DerivePublicKey(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// DerivePrivateKey returns the HMAC-SHA-256 of the public key string keyed
// with the server secret, as 64 lowercase hex characters. Without the secret,
// producing a valid private key for a given public key is computationally
// infeasible.
func DerivePrivateKey(publicKey, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(publicKey))
	return hex.EncodeToString(mac.Sum(nil))
}

// isHexKey reports whether s is exactly 64 hex characters. Anything else is
// treated as "not found" by the handlers, never as a distinct validation error.
func isHexKey(s string) bool {
	if len(s) != keyHexLen {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}
