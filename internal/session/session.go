// Package session implements the per-WebSocket subscriber actor: it
// registers itself with the broker on connect, multiplexes inbound
// WebSocket frames against inbound broker deliveries, and tears down on
// disconnect. This mirrors the read/write-loop structure of this
// project's reference transport server, generalized from a raw
// broadcast hub to a per-session, per-channel-list subscriber.
package session

import (
	"context"
	"errors"
	"io"
	"net"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	"go.uber.org/zap"

	"github.com/gromdron/bitrix-push-workspace/internal/broker"
	"github.com/gromdron/bitrix-push-workspace/internal/channel"
	"github.com/gromdron/bitrix-push-workspace/internal/idgen"
	"github.com/gromdron/bitrix-push-workspace/internal/metrics"
	"github.com/gromdron/bitrix-push-workspace/internal/pushproto"
)

// Session is one subscriber's connection state: its identity, its
// parsed channel list (fixed at creation, never mutated), and the
// outbound mailbox the broker delivers into.
type Session struct {
	id       string
	channels []channel.Channel
	conn     net.Conn
	outbound chan *pushproto.ResponseBatch

	broker  *broker.Broker
	metrics *metrics.Registry
	logger  *zap.Logger
}

// New builds a Session for an already-upgraded connection. channels is
// the parsed, fixed-for-life subscription list for this socket.
func New(conn net.Conn, channels []channel.Channel, sendQueueSize int, b *broker.Broker, reg *metrics.Registry, logger *zap.Logger) *Session {
	if sendQueueSize <= 0 {
		sendQueueSize = 256
	}
	return &Session{
		id:       idgen.SessionID(),
		channels: channels,
		conn:     conn,
		outbound: make(chan *pushproto.ResponseBatch, sendQueueSize),
		broker:   b,
		metrics:  reg,
		logger:   logger,
	}
}

// ID returns the Session's log-correlation identifier.
func (s *Session) ID() string { return s.id }

// TrySend implements broker.Sink. It never blocks: if the outbound
// mailbox is full, the send fails and the broker reaps this Session
// from the channel it failed on.
func (s *Session) TrySend(batch *pushproto.ResponseBatch) bool {
	select {
	case s.outbound <- batch:
		return true
	default:
		return false
	}
}

// Run subscribes the Session to the broker (blocking until the broker
// has acknowledged the registration — invariant I3: no outbound frame is
// ever sent before this completes) and then runs the read/write loops
// until the connection closes or ctx is cancelled.
func (s *Session) Run(ctx context.Context) {
	defer s.conn.Close() //nolint:errcheck

	s.broker.Subscribe(ctx, s.channels, s)

	if s.metrics != nil {
		s.metrics.Connections.ActiveConnections.Inc()
		defer s.metrics.Connections.ActiveConnections.Dec()
	}

	connCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.writeLoop(connCtx)
	}()

	s.readLoop(connCtx)
	cancel()
	<-done

	if s.logger != nil {
		s.logger.Info("session stopped", zap.String("session_id", s.id))
	}
}

func (s *Session) readLoop(ctx context.Context) {
	reader := wsutil.NewReader(s.conn, ws.StateServerSide)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		head, err := reader.NextFrame()
		if err != nil {
			if !errors.Is(err, io.EOF) && s.logger != nil {
				s.logger.Debug("read frame error", zap.String("session_id", s.id), zap.Error(err))
			}
			return
		}

		switch head.OpCode {
		case ws.OpClose:
			reason, _ := io.ReadAll(io.LimitReader(reader, int64(head.Length)))
			_ = wsutil.WriteServerMessage(s.conn, ws.OpClose, reason)
			return
		case ws.OpPing:
			payload := make([]byte, head.Length)
			if _, err := io.ReadFull(reader, payload); err != nil {
				return
			}
			if err := wsutil.WriteServerMessage(s.conn, ws.OpPong, payload); err != nil {
				if s.logger != nil {
					s.logger.Debug("write pong error", zap.String("session_id", s.id), zap.Error(err))
				}
				return
			}
		case ws.OpText, ws.OpBinary:
			// No application-level upstream from subscribers is
			// supported: drain and drop.
			if _, err := io.CopyN(io.Discard, reader, int64(head.Length)); err != nil {
				return
			}
			if s.logger != nil {
				s.logger.Debug("dropping inbound application frame", zap.String("session_id", s.id))
			}
		default:
			if _, err := io.CopyN(io.Discard, reader, int64(head.Length)); err != nil {
				return
			}
		}
	}
}

func (s *Session) writeLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case batch, ok := <-s.outbound:
			if !ok {
				return
			}
			body := batch.Marshal()
			if err := wsutil.WriteServerMessage(s.conn, ws.OpBinary, body); err != nil {
				if s.logger != nil {
					s.logger.Debug("write message error", zap.String("session_id", s.id), zap.Error(err))
				}
				return
			}
		}
	}
}
