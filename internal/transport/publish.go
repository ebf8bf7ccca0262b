package transport

import (
	"fmt"
	"io"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/gromdron/bitrix-push-workspace/internal/channel"
	"github.com/gromdron/bitrix-push-workspace/internal/idgen"
	"github.com/gromdron/bitrix-push-workspace/internal/pushproto"
)

// handlePublish implements POST /bitrix/pub/: plain mode (CHANNEL_ID +
// raw body) or binary mode (?binaryMode=true, Protocol Buffers
// RequestBatch body), selected by the binaryMode query flag.
func (s *Server) handlePublish(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Server.MaxBodyBytes)

	if r.URL.Query().Has("binaryMode") {
		s.publishBinary(w, r)
		return
	}
	s.publishPlain(w, r)
}

func (s *Server) publishPlain(w http.ResponseWriter, r *http.Request) {
	channelIDs := r.URL.Query().Get("CHANNEL_ID")
	if channelIDs == "" {
		w.Header().Set("X-PUSH-ERR", "[EPR001] Channel ids is missed")
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	channels, err := s.parser.Parse(channelIDs)
	if err != nil {
		if s.metrics != nil {
			s.metrics.Transport.ParseErrors.Inc()
		}
		w.Header().Set("X-PUSH-ERR", "[EPR002] Channel ids parser error: "+err.Error())
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprintf(w, "request body too large or unreadable: %v", err)
		return
	}

	expiry, err := parseExpiryHeader(r.Header.Get("message-expiry"))
	if err != nil {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprintf(w, "invalid message-expiry header: %v", err)
		return
	}

	batch := &pushproto.ResponseBatch{
		Responses: []pushproto.Response{{
			OutgoingMessages: &pushproto.OutgoingMessagesResponse{
				Messages: []pushproto.OutgoingMessage{{
					ID:     idgen.MessageID(),
					Body:   string(body),
					Expiry: expiry,
					Sender: &pushproto.Sender{Type: pushproto.SenderBackend},
				}},
			},
		}},
	}

	s.broker.Publish(r.Context(), channels, batch)

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
}

func (s *Server) publishBinary(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprintf(w, "request body too large or unreadable: %v", err)
		return
	}

	reqBatch, err := pushproto.Unmarshal(body)
	if err != nil {
		s.logger.Error("binary publish body could not decode", zap.Error(err))
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, err.Error())
		return
	}

	for _, req := range reqBatch.Requests {
		s.processRequest(r, req)
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
}

func (s *Server) processRequest(r *http.Request, req pushproto.Request) {
	if req.Command.Kind == pushproto.RequestNone {
		s.logger.Warn("received empty command")
		return
	}

	switch req.Command.Kind {
	case pushproto.RequestIncomingMessages:
		for _, msg := range req.Command.IncomingMessages.Messages {
			s.publishIncomingMessage(r, msg)
		}
	case pushproto.RequestChannelStats:
		s.logger.Debug("received channel stats request")
	case pushproto.RequestServerStats:
		s.logger.Debug("received server stats request")
	default:
		s.logger.Error("received unrecognized publish command, ignoring", zap.Int("kind", int(req.Command.Kind)))
	}
}

func (s *Server) publishIncomingMessage(r *http.Request, msg pushproto.IncomingMessage) {
	var channels []channel.Channel
	for _, receiver := range msg.Receivers {
		ch, err := channel.FromBytes(receiver.ID)
		if err != nil {
			continue
		}
		channels = append(channels, ch)
	}
	if len(channels) == 0 {
		return
	}

	batch := &pushproto.ResponseBatch{
		Responses: []pushproto.Response{{
			OutgoingMessages: &pushproto.OutgoingMessagesResponse{
				Messages: []pushproto.OutgoingMessage{{
					ID:     idgen.MessageID(),
					Body:   msg.Body,
					Expiry: msg.Expiry,
					Sender: &pushproto.Sender{Type: pushproto.SenderBackend},
				}},
			},
		}},
	}

	s.broker.Publish(r.Context(), channels, batch)
}

// parseExpiryHeader parses the message-expiry header as a decimal
// uint32, defaulting to 0 when the header is absent. An invalid value is
// a request error (REDESIGN FLAG: the original crashed on this).
func parseExpiryHeader(raw string) (uint32, error) {
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0, err
	}
	return uint32(v), nil
}
