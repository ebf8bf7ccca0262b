// Package transport wires the HTTP surface: liveness, health, the
// publisher entry point (plain and binary modes), and the subscriber
// WebSocket upgrade. Prometheus metrics are served elsewhere, on their
// own listener. The upgrade and per-connection framing
// reuse this project's reference server's gobwas/ws read/write-loop
// pattern, generalized from a single broadcast hub into per-session
// subscriptions driven by the broker.
package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/gromdron/bitrix-push-workspace/internal/broker"
	"github.com/gromdron/bitrix-push-workspace/internal/channel"
	"github.com/gromdron/bitrix-push-workspace/internal/config"
	"github.com/gromdron/bitrix-push-workspace/internal/metrics"
)

// Server is the push server's single HTTP listener.
type Server struct {
	cfg     config.Config
	logger  *zap.Logger
	parser  *channel.Parser
	broker  *broker.Broker
	metrics *metrics.Registry

	httpServer *http.Server
	wg         sync.WaitGroup

	sessionCtx    context.Context
	cancelSession context.CancelFunc
}

// NewServer builds a Server. parser and broker must already be
// constructed; the broker's Run loop must already be started by the
// caller.
func NewServer(cfg config.Config, logger *zap.Logger, parser *channel.Parser, b *broker.Broker, reg *metrics.Registry) *Server {
	return &Server{cfg: cfg, logger: logger, parser: parser, broker: b, metrics: reg}
}

// Start builds the route table and begins listening. It returns once
// the listener is bound; serving happens on a background goroutine.
func (s *Server) Start(ctx context.Context) error {
	if s.httpServer != nil {
		return errors.New("transport already started")
	}

	s.sessionCtx, s.cancelSession = context.WithCancel(ctx)

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleLiveness)
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.HandleFunc(s.cfg.WebSocket.PublishPath, s.handlePublish)
	mux.HandleFunc(s.cfg.WebSocket.SubscribePath, s.handleSubscribe)

	addr := fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.General.Port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	s.logger.Info("transport listening", zap.String("addr", addr))

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("http server error", zap.Error(err))
		}
	}()

	return nil
}

// Stop gracefully shuts down the HTTP listener and cancels every
// in-flight subscriber session, then waits for them to unwind.
func (s *Server) Stop() {
	if s.httpServer == nil {
		return
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn("http server shutdown error", zap.Error(err))
	}
	s.cancelSession()
	s.wg.Wait()
}

func (s *Server) handleLiveness(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{"status":"healthy","timestamp":%q}`, time.Now().UTC().Format(time.RFC3339Nano))
}
