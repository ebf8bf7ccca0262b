// Package idgen generates the random identifiers the push server hands
// out: outgoing message IDs and per-session correlation IDs.
package idgen

import (
	"crypto/rand"
	"fmt"

	"github.com/google/uuid"
)

// MessageID returns 16 cryptographically random bytes, matching the
// original implementation's outgoing-message identifier shape. This is a
// wire value, not a log-correlation id, so it cannot be switched to a
// structured UUID: it must stay unstructured raw bytes to match the
// original items.proto field it fills.
func MessageID() []byte {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		// crypto/rand.Read on a supported platform does not fail in
		// practice; panicking here mirrors the original's unwrap().
		panic(fmt.Sprintf("idgen: read random bytes: %v", err))
	}
	return b
}

// SessionID returns a time-ordered, log-friendly identifier for a new
// Session. Unlike MessageID, nothing on the wire constrains its shape, so
// it uses a real UUIDv7 rather than hand-rolled random hex.
func SessionID() string {
	id, err := uuid.NewV7()
	if err != nil {
		panic(fmt.Sprintf("idgen: generate session id: %v", err))
	}
	return id.String()
}
