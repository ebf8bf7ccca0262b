// Package pushproto encodes and decodes the two Protocol Buffers
// envelopes that cross the wire between the back-end publisher, this
// server, and subscriber browsers: RequestBatch (ingress) and
// ResponseBatch (egress).
//
// Field numbers and wire types below match the original items.proto
// schema byte-for-byte. No protoc-generated bindings are used (no code
// generation runs in this build); instead the wire format is produced
// and consumed directly with google.golang.org/protobuf/encoding/protowire,
// the same low-level package protoc-gen-go's output builds on.
package pushproto

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// SenderType mirrors items.proto's SenderType enum.
type SenderType int32

const (
	SenderUnknown SenderType = 0
	SenderClient  SenderType = 1
	SenderBackend SenderType = 2
)

// Sender identifies the origin of an OutgoingMessage.
type Sender struct {
	Type SenderType
	ID   []byte
}

// Receiver is one addressee of an IncomingMessage.
type Receiver struct {
	ID        []byte
	IsPrivate bool
	Signature []byte
}

// IncomingMessage is one message submitted by the back-end for fan-out.
type IncomingMessage struct {
	Receivers []Receiver
	Sender    *Sender
	Body      string
	Expiry    uint32
	Type      string
}

// IncomingMessagesRequest wraps a batch of IncomingMessage.
type IncomingMessagesRequest struct {
	Messages []IncomingMessage
}

// RequestCommand is the decoded form of Request's oneof. IncomingMessages
// is set only when Kind is RequestIncomingMessages; the other kinds carry
// no decoded payload.
type RequestCommand struct {
	Kind              RequestKind
	IncomingMessages  *IncomingMessagesRequest
}

// RequestKind tags which oneof arm of Request was present on the wire.
type RequestKind int

const (
	RequestNone RequestKind = iota
	RequestIncomingMessages
	RequestChannelStats
	RequestServerStats
	RequestRegistration
)

// Request is one entry of a RequestBatch.
type Request struct {
	Command RequestCommand
}

// RequestBatch is the top-level ingress envelope (binary publish mode).
type RequestBatch struct {
	Requests []Request
}

// OutgoingMessage is one message delivered to subscribers.
type OutgoingMessage struct {
	ID      []byte
	Body    string
	Expiry  uint32
	Created uint32
	Sender  *Sender
}

// OutgoingMessagesResponse wraps a batch of OutgoingMessage.
type OutgoingMessagesResponse struct {
	Messages []OutgoingMessage
}

// Response is one entry of a ResponseBatch. This server only ever
// constructs the OutgoingMessages arm; the other oneof tags (2: channel
// stats, 3: server stats, 4: raw json) exist in the schema for parity but
// have no producer in the core.
type Response struct {
	OutgoingMessages *OutgoingMessagesResponse
}

// ResponseBatch is the top-level egress envelope delivered to subscribers.
type ResponseBatch struct {
	Responses []Response
}

// --- Marshal (egress: ResponseBatch) ---------------------------------

// Marshal encodes b to its Protocol Buffers wire form.
func (b *ResponseBatch) Marshal() []byte {
	var out []byte
	for _, resp := range b.Responses {
		encoded := resp.marshal()
		out = protowire.AppendTag(out, 1, protowire.BytesType)
		out = protowire.AppendBytes(out, encoded)
	}
	return out
}

func (r *Response) marshal() []byte {
	var out []byte
	if r.OutgoingMessages != nil {
		encoded := r.OutgoingMessages.marshal()
		out = protowire.AppendTag(out, 1, protowire.BytesType)
		out = protowire.AppendBytes(out, encoded)
	}
	return out
}

func (m *OutgoingMessagesResponse) marshal() []byte {
	var out []byte
	for _, msg := range m.Messages {
		encoded := msg.marshal()
		out = protowire.AppendTag(out, 1, protowire.BytesType)
		out = protowire.AppendBytes(out, encoded)
	}
	return out
}

func (m *OutgoingMessage) marshal() []byte {
	var out []byte
	if len(m.ID) > 0 {
		out = protowire.AppendTag(out, 1, protowire.BytesType)
		out = protowire.AppendBytes(out, m.ID)
	}
	if m.Body != "" {
		out = protowire.AppendTag(out, 2, protowire.BytesType)
		out = protowire.AppendString(out, m.Body)
	}
	if m.Expiry != 0 {
		out = protowire.AppendTag(out, 3, protowire.VarintType)
		out = protowire.AppendVarint(out, uint64(m.Expiry))
	}
	if m.Created != 0 {
		out = protowire.AppendTag(out, 4, protowire.Fixed32Type)
		out = protowire.AppendFixed32(out, m.Created)
	}
	if m.Sender != nil {
		out = protowire.AppendTag(out, 5, protowire.BytesType)
		out = protowire.AppendBytes(out, m.Sender.marshal())
	}
	return out
}

func (s *Sender) marshal() []byte {
	var out []byte
	if s.Type != SenderUnknown {
		out = protowire.AppendTag(out, 1, protowire.VarintType)
		out = protowire.AppendVarint(out, uint64(s.Type))
	}
	if len(s.ID) > 0 {
		out = protowire.AppendTag(out, 2, protowire.BytesType)
		out = protowire.AppendBytes(out, s.ID)
	}
	return out
}

// --- Unmarshal (ingress: RequestBatch) --------------------------------

// ErrTruncated indicates the input ended in the middle of a field.
var ErrTruncated = fmt.Errorf("pushproto: truncated message")

// Unmarshal decodes data into a RequestBatch.
func Unmarshal(data []byte) (*RequestBatch, error) {
	batch := &RequestBatch{}
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, ErrTruncated
		}
		data = data[n:]

		switch {
		case num == 1 && typ == protowire.BytesType:
			raw, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return nil, ErrTruncated
			}
			data = data[n:]
			req, err := unmarshalRequest(raw)
			if err != nil {
				return nil, err
			}
			batch.Requests = append(batch.Requests, req)
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return nil, ErrTruncated
			}
			data = data[n:]
		}
	}
	return batch, nil
}

func unmarshalRequest(data []byte) (Request, error) {
	var req Request
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return req, ErrTruncated
		}
		data = data[n:]

		if typ != protowire.BytesType {
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return req, ErrTruncated
			}
			data = data[n:]
			continue
		}

		raw, n := protowire.ConsumeBytes(data)
		if n < 0 {
			return req, ErrTruncated
		}
		data = data[n:]

		switch num {
		case 1:
			im, err := unmarshalIncomingMessagesRequest(raw)
			if err != nil {
				return req, err
			}
			req.Command = RequestCommand{Kind: RequestIncomingMessages, IncomingMessages: &im}
		case 2:
			req.Command = RequestCommand{Kind: RequestChannelStats}
		case 3:
			req.Command = RequestCommand{Kind: RequestServerStats}
		case 4:
			req.Command = RequestCommand{Kind: RequestRegistration}
		}
	}
	return req, nil
}

func unmarshalIncomingMessagesRequest(data []byte) (IncomingMessagesRequest, error) {
	var out IncomingMessagesRequest
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return out, ErrTruncated
		}
		data = data[n:]

		if num == 1 && typ == protowire.BytesType {
			raw, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return out, ErrTruncated
			}
			data = data[n:]
			msg, err := unmarshalIncomingMessage(raw)
			if err != nil {
				return out, err
			}
			out.Messages = append(out.Messages, msg)
			continue
		}

		n = protowire.ConsumeFieldValue(num, typ, data)
		if n < 0 {
			return out, ErrTruncated
		}
		data = data[n:]
	}
	return out, nil
}

func unmarshalIncomingMessage(data []byte) (IncomingMessage, error) {
	var out IncomingMessage
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return out, ErrTruncated
		}
		data = data[n:]

		switch {
		case num == 1 && typ == protowire.BytesType:
			raw, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return out, ErrTruncated
			}
			data = data[n:]
			rcv, err := unmarshalReceiver(raw)
			if err != nil {
				return out, err
			}
			out.Receivers = append(out.Receivers, rcv)
		case num == 2 && typ == protowire.BytesType:
			raw, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return out, ErrTruncated
			}
			data = data[n:]
			s, err := unmarshalSender(raw)
			if err != nil {
				return out, err
			}
			out.Sender = &s
		case num == 3 && typ == protowire.BytesType:
			raw, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return out, ErrTruncated
			}
			data = data[n:]
			out.Body = string(raw)
		case num == 4 && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return out, ErrTruncated
			}
			data = data[n:]
			out.Expiry = uint32(v)
		case num == 5 && typ == protowire.BytesType:
			raw, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return out, ErrTruncated
			}
			data = data[n:]
			out.Type = string(raw)
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return out, ErrTruncated
			}
			data = data[n:]
		}
	}
	return out, nil
}

func unmarshalReceiver(data []byte) (Receiver, error) {
	var out Receiver
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return out, ErrTruncated
		}
		data = data[n:]

		switch {
		case num == 1 && typ == protowire.BytesType:
			raw, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return out, ErrTruncated
			}
			data = data[n:]
			out.ID = append([]byte(nil), raw...)
		case num == 2 && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return out, ErrTruncated
			}
			data = data[n:]
			out.IsPrivate = v != 0
		case num == 3 && typ == protowire.BytesType:
			raw, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return out, ErrTruncated
			}
			data = data[n:]
			out.Signature = append([]byte(nil), raw...)
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return out, ErrTruncated
			}
			data = data[n:]
		}
	}
	return out, nil
}

func unmarshalSender(data []byte) (Sender, error) {
	var out Sender
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return out, ErrTruncated
		}
		data = data[n:]

		switch {
		case num == 1 && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return out, ErrTruncated
			}
			data = data[n:]
			out.Type = SenderType(v)
		case num == 2 && typ == protowire.BytesType:
			raw, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return out, ErrTruncated
			}
			data = data[n:]
			out.ID = append([]byte(nil), raw...)
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return out, ErrTruncated
			}
			data = data[n:]
		}
	}
	return out, nil
}
