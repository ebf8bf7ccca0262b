package channel

import (
	"errors"
	"strings"
)

// ErrEmptyString is returned when Parse is given a zero-length input.
var ErrEmptyString = errors.New("channel: channel string is empty")

// ErrEmptyChannels exists for parity with the original implementation's
// error taxonomy. It is never constructed by Parse; its intended role in
// the original source is undocumented and preserved here unconstructed.
var ErrEmptyChannels = errors.New("channel: channel string format error")

// Parser decodes a channel-list wire string into an ordered list of
// Channel values, optionally enforcing a per-segment HMAC signature.
//
// A zero-value Parser has Verify == false, matching the original
// "insecure by default" Parser::default().
type Parser struct {
	Verify bool
	Signer Signature
}

// NewParser builds a Parser with verification enabled/disabled per verify,
// signing/checking against signer.
func NewParser(verify bool, signer Signature) *Parser {
	return &Parser{Verify: verify, Signer: signer}
}

// EnableVerify turns signature verification on.
func (p *Parser) EnableVerify() { p.Verify = true }

// DisableVerify turns signature verification off.
func (p *Parser) DisableVerify() { p.Verify = false }

// SetSignature replaces the Parser's signing key.
func (p *Parser) SetSignature(s Signature) { p.Signer = s }

// Status renders a human-readable description of the Parser's current
// verification mode.
func (p *Parser) Status() string {
	if p.Verify {
		return "enabled with key " + p.Signer.Key()
	}
	return "disabled"
}

// Parse decodes line into an ordered list of Channel values.
//
// An empty result is success, not an error: every segment may fail
// verification or be malformed without the call itself erroring.
func (p *Parser) Parse(line string) ([]Channel, error) {
	if len(line) == 0 {
		return nil, ErrEmptyString
	}

	// Shorthand: a 32-character line is always a single Private channel,
	// regardless of its contents (separators included), and never
	// consults the signature. Only the length of the whole line is
	// checked; a same-length segment inside a longer string does not
	// benefit from it.
	if len(line) == 32 {
		return []Channel{NewPrivate(line)}, nil
	}

	var channels []Channel

	for _, segment := range strings.Split(line, "/") {
		parts := strings.Split(segment, ".")
		if len(parts) != 2 {
			continue
		}
		body, sig := parts[0], parts[1]

		if p.Verify && p.Signer.Digest(body) != sig {
			continue
		}

		ids := strings.Split(body, ":")
		channels = append(channels, NewPrivate(ids[0]))
		if len(ids) > 1 {
			channels = append(channels, NewPublic(ids[1]))
		}
	}

	return channels, nil
}
