package pushproto

import (
	"testing"

	"google.golang.org/protobuf/encoding/protowire"
)

func TestResponseBatchMarshalStartsWithResponseField(t *testing.T) {
	batch := &ResponseBatch{
		Responses: []Response{
			{
				OutgoingMessages: &OutgoingMessagesResponse{
					Messages: []OutgoingMessage{
						{
							ID:     []byte{1, 2, 3, 4},
							Body:   "hello",
							Expiry: 42,
							Sender: &Sender{Type: SenderBackend},
						},
					},
				},
			},
		},
	}

	data := batch.Marshal()
	if len(data) == 0 {
		t.Fatal("Marshal produced no bytes")
	}

	// Decode by hand using the same low-level wire helpers the encoder
	// uses, since ResponseBatch has no Unmarshal (only the publisher's
	// RequestBatch is ever decoded by this server).
	num, typ, n := protowire.ConsumeTag(data)
	if num != 1 || typ != protowire.BytesType || n < 0 {
		t.Fatalf("unexpected first field: num=%d typ=%v n=%d", num, typ, n)
	}
}

func TestRequestBatchUnmarshalIncomingMessages(t *testing.T) {
	receiver := Receiver{ID: []byte{0xAB, 0xCD}}
	var rcvBytes []byte
	rcvBytes = protowire.AppendTag(rcvBytes, 1, protowire.BytesType)
	rcvBytes = protowire.AppendBytes(rcvBytes, receiver.ID)

	var msgBytes []byte
	msgBytes = protowire.AppendTag(msgBytes, 1, protowire.BytesType)
	msgBytes = protowire.AppendBytes(msgBytes, rcvBytes)
	msgBytes = protowire.AppendTag(msgBytes, 3, protowire.BytesType)
	msgBytes = protowire.AppendString(msgBytes, "payload")
	msgBytes = protowire.AppendTag(msgBytes, 4, protowire.VarintType)
	msgBytes = protowire.AppendVarint(msgBytes, 99)

	var imrBytes []byte
	imrBytes = protowire.AppendTag(imrBytes, 1, protowire.BytesType)
	imrBytes = protowire.AppendBytes(imrBytes, msgBytes)

	var reqBytes []byte
	reqBytes = protowire.AppendTag(reqBytes, 1, protowire.BytesType)
	reqBytes = protowire.AppendBytes(reqBytes, imrBytes)

	var batchBytes []byte
	batchBytes = protowire.AppendTag(batchBytes, 1, protowire.BytesType)
	batchBytes = protowire.AppendBytes(batchBytes, reqBytes)

	batch, err := Unmarshal(batchBytes)
	if err != nil {
		t.Fatalf("Unmarshal error: %v", err)
	}
	if len(batch.Requests) != 1 {
		t.Fatalf("len(Requests) = %d, want 1", len(batch.Requests))
	}
	cmd := batch.Requests[0].Command
	if cmd.Kind != RequestIncomingMessages {
		t.Fatalf("Kind = %v, want RequestIncomingMessages", cmd.Kind)
	}
	if len(cmd.IncomingMessages.Messages) != 1 {
		t.Fatalf("len(Messages) = %d, want 1", len(cmd.IncomingMessages.Messages))
	}
	msg := cmd.IncomingMessages.Messages[0]
	if msg.Body != "payload" || msg.Expiry != 99 {
		t.Fatalf("unexpected message: %+v", msg)
	}
	if len(msg.Receivers) != 1 || string(msg.Receivers[0].ID) != string(receiver.ID) {
		t.Fatalf("unexpected receivers: %+v", msg.Receivers)
	}
}

func TestRequestBatchUnmarshalChannelStatsRoundTrips(t *testing.T) {
	var reqBytes []byte
	reqBytes = protowire.AppendTag(reqBytes, 2, protowire.BytesType)
	reqBytes = protowire.AppendBytes(reqBytes, nil)

	var batchBytes []byte
	batchBytes = protowire.AppendTag(batchBytes, 1, protowire.BytesType)
	batchBytes = protowire.AppendBytes(batchBytes, reqBytes)

	batch, err := Unmarshal(batchBytes)
	if err != nil {
		t.Fatalf("Unmarshal error: %v", err)
	}
	if batch.Requests[0].Command.Kind != RequestChannelStats {
		t.Fatalf("Kind = %v, want RequestChannelStats", batch.Requests[0].Command.Kind)
	}
}

func TestRequestBatchUnmarshalServerStatsRoundTrips(t *testing.T) {
	var reqBytes []byte
	reqBytes = protowire.AppendTag(reqBytes, 3, protowire.BytesType)
	reqBytes = protowire.AppendBytes(reqBytes, nil)

	var batchBytes []byte
	batchBytes = protowire.AppendTag(batchBytes, 1, protowire.BytesType)
	batchBytes = protowire.AppendBytes(batchBytes, reqBytes)

	batch, err := Unmarshal(batchBytes)
	if err != nil {
		t.Fatalf("Unmarshal error: %v", err)
	}
	if batch.Requests[0].Command.Kind != RequestServerStats {
		t.Fatalf("Kind = %v, want RequestServerStats", batch.Requests[0].Command.Kind)
	}
}

func TestUnmarshalTruncated(t *testing.T) {
	_, err := Unmarshal([]byte{0xFF})
	if err == nil {
		t.Fatal("expected error on truncated input")
	}
}
