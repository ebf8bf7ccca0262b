// Package channel implements the wire-level channel identifier format
// used by publishers and subscribers: parsing, HMAC-SHA1 signature
// verification, and the Channel value type itself.
package channel

import (
	"encoding/hex"
	"errors"
)

// Kind tags the semantic role of a Channel.
type Kind int

const (
	// Unknown channels carry no semantic tag; used for raw byte-derived
	// identifiers such as receiver IDs lifted out of protobuf payloads.
	Unknown Kind = iota
	// Private channels are addressed to a single authenticated user.
	Private
	// Public channels are addressed to a shared-context subscriber group.
	Public
)

func (k Kind) String() string {
	switch k {
	case Private:
		return "private"
	case Public:
		return "public"
	default:
		return "unknown"
	}
}

// Channel identifies one message destination. Equality is by both fields.
type Channel struct {
	Kind Kind
	ID   string
}

// NewPrivate builds a Private channel for id.
func NewPrivate(id string) Channel { return Channel{Kind: Private, ID: id} }

// NewPublic builds a Public channel for id.
func NewPublic(id string) Channel { return Channel{Kind: Public, ID: id} }

// NewUnknown builds an Unknown channel for id.
func NewUnknown(id string) Channel { return Channel{Kind: Unknown, ID: id} }

// String renders the canonical wire form of a Channel: its ID alone, the
// Kind is not part of the wire form at this layer.
func (c Channel) String() string { return c.ID }

// ErrEmptyBytes is returned by FromBytes when given a zero-length slice.
var ErrEmptyBytes = errors.New("channel: empty bytes")

// FromBytes hex-encodes b and wraps it as an Unknown channel. It fails only
// when b is empty.
func FromBytes(b []byte) (Channel, error) {
	if len(b) == 0 {
		return Channel{}, ErrEmptyBytes
	}
	return NewUnknown(hex.EncodeToString(b)), nil
}
