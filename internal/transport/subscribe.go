package transport

import (
	"fmt"
	"net/http"

	"github.com/gobwas/ws"
	"go.uber.org/zap"

	"github.com/gromdron/bitrix-push-workspace/internal/session"
)

// handleSubscribe implements GET /bitrix/subws/?CHANNEL_ID=...: parse
// the channel list, upgrade to WebSocket on success, and hand the
// connection to a new Session.
func (s *Server) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	channelIDs := r.URL.Query().Get("CHANNEL_ID")

	channels, err := s.parser.Parse(channelIDs)
	if err != nil {
		if s.metrics != nil {
			s.metrics.Transport.ParseErrors.Inc()
		}
		w.Header().Set("X-PUSH-ERR", "[ES001] Parse channels error: "+err.Error())
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, err.Error())
		return
	}

	conn, _, _, err := ws.UpgradeHTTP(r, w)
	if err != nil {
		if s.metrics != nil {
			s.metrics.Transport.UpgradeErrors.Inc()
		}
		s.logger.Debug("websocket upgrade failed", zap.Error(err))
		return
	}

	sess := session.New(conn, channels, s.cfg.WebSocket.SendChannelSize, s.broker, s.metrics, s.logger)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		sess.Run(s.sessionCtx)
	}()
}
