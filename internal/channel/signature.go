package channel

import (
	"crypto/hmac"
	"crypto/sha1" //nolint:gosec // required for wire-format compatibility with the publisher
	"encoding/hex"
)

// Signature computes the HMAC-SHA1 digest used to authenticate a channel
// segment's body against its declared signature.
type Signature struct {
	key []byte
}

// NewSignature builds a Signature over key. An empty key is legal and
// produces a well-defined digest.
func NewSignature(key string) Signature {
	return Signature{key: []byte(key)}
}

// Key returns the configured key as a string.
func (s Signature) Key() string { return string(s.key) }

// Digest computes HMAC-SHA1(key, data) and renders it as 40 lowercase hex
// characters. It never errors.
func (s Signature) Digest(data string) string {
	mac := hmac.New(sha1.New, s.key)
	mac.Write([]byte(data))
	return hex.EncodeToString(mac.Sum(nil))
}
