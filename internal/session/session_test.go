package session

import (
	"context"
	"io"
	"net"
	"testing"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"

	"github.com/gromdron/bitrix-push-workspace/internal/broker"
	"github.com/gromdron/bitrix-push-workspace/internal/channel"
	"github.com/gromdron/bitrix-push-workspace/internal/pushproto"
)

func startBroker(t *testing.T) (*broker.Broker, context.Context) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	b := broker.New(nil, nil)
	go b.Run(ctx)
	return b, ctx
}

func TestSessionDeliversPublishedMessageAsBinaryFrame(t *testing.T) {
	b, ctx := startBroker(t)
	serverConn, clientConn := net.Pipe()
	defer clientConn.Close()

	ch := channel.NewPublic("room")
	sess := New(serverConn, []channel.Channel{ch}, 8, b, nil, nil)

	runDone := make(chan struct{})
	go func() {
		defer close(runDone)
		sess.Run(ctx)
	}()

	// Give Run's goroutine a chance to reach and complete its blocking
	// Subscribe call before this test publishes.
	time.Sleep(50 * time.Millisecond)

	batch := &pushproto.ResponseBatch{
		Responses: []pushproto.Response{{
			OutgoingMessages: &pushproto.OutgoingMessagesResponse{
				Messages: []pushproto.OutgoingMessage{{Body: "hi"}},
			},
		}},
	}
	b.Publish(ctx, []channel.Channel{ch}, batch)

	clientConn.SetReadDeadline(time.Now().Add(2 * time.Second))
	msg, op, err := wsutil.ReadServerData(clientConn)
	if err != nil {
		t.Fatalf("ReadServerData error: %v", err)
	}
	if op != ws.OpBinary {
		t.Fatalf("op = %v, want OpBinary", op)
	}
	if len(msg) == 0 {
		t.Fatal("empty binary frame")
	}
}

func TestSessionPingPong(t *testing.T) {
	_, ctx := startBroker(t)
	b2, _ := startBroker(t)
	serverConn, clientConn := net.Pipe()
	defer clientConn.Close()

	sess := New(serverConn, nil, 8, b2, nil, nil)
	go sess.Run(ctx)

	if err := wsutil.WriteClientMessage(clientConn, ws.OpPing, []byte("ping-payload")); err != nil {
		t.Fatalf("write ping: %v", err)
	}

	clientConn.SetReadDeadline(time.Now().Add(2 * time.Second))
	msg, op, err := wsutil.ReadServerData(clientConn)
	if err != nil {
		t.Fatalf("ReadServerData error: %v", err)
	}
	if op != ws.OpPong {
		t.Fatalf("op = %v, want OpPong", op)
	}
	if string(msg) != "ping-payload" {
		t.Fatalf("pong payload = %q, want %q", msg, "ping-payload")
	}
}

func TestSessionCloseStopsRun(t *testing.T) {
	_, ctx := startBroker(t)
	b2, _ := startBroker(t)
	serverConn, clientConn := net.Pipe()
	defer clientConn.Close()

	sess := New(serverConn, nil, 8, b2, nil, nil)
	runDone := make(chan struct{})
	go func() {
		defer close(runDone)
		sess.Run(ctx)
	}()

	if err := wsutil.WriteClientMessage(clientConn, ws.OpClose, nil); err != nil {
		t.Fatalf("write close: %v", err)
	}
	// net.Pipe has no buffering: drain the client side so the session's
	// echoed Close frame can be written and Run can return.
	go io.Copy(io.Discard, clientConn) //nolint:errcheck

	select {
	case <-runDone:
	case <-time.After(2 * time.Second):
		t.Fatal("session did not stop after receiving Close")
	}
}
