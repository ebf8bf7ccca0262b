// Package broker implements the process-wide pub/sub fan-out engine: a
// mapping from channel identifier to the set of currently-connected
// subscriber sinks, fed by Subscribe and Publish requests and routed
// through a single goroutine that owns the map exclusively (the actor /
// mailbox pattern used throughout this project's reference server).
package broker

import (
	"context"

	"go.uber.org/zap"

	"github.com/gromdron/bitrix-push-workspace/internal/channel"
	"github.com/gromdron/bitrix-push-workspace/internal/metrics"
	"github.com/gromdron/bitrix-push-workspace/internal/pushproto"
)

// Sink is an addressable handle the Broker delivers a ResponseBatch to.
// TrySend must never block; a false return is a liveness signal and
// causes the Broker to drop the sink from the channel it failed on.
type Sink interface {
	TrySend(batch *pushproto.ResponseBatch) bool
}

type subscribeCmd struct {
	channels []channel.Channel
	sink     Sink
	done     chan struct{}
}

type publishCmd struct {
	channels []channel.Channel
	msg      *pushproto.ResponseBatch
	done     chan struct{}
}

// Broker owns the channel -> subscriber-sinks map. Every method is safe
// to call concurrently: state is only ever touched from the Broker's own
// goroutine, started by Run.
type Broker struct {
	logger  *zap.Logger
	metrics *metrics.Registry

	subscribeCh chan subscribeCmd
	publishCh   chan publishCmd

	channels map[string][]Sink
}

// New builds a Broker. Call Run to start its mailbox loop.
func New(logger *zap.Logger, reg *metrics.Registry) *Broker {
	return &Broker{
		logger:      logger,
		metrics:     reg,
		subscribeCh: make(chan subscribeCmd, 256),
		publishCh:   make(chan publishCmd, 256),
		channels:    make(map[string][]Sink),
	}
}

// Run owns the channel map for as long as ctx is alive. It must be
// started as its own goroutine before any Subscribe/Publish call.
func (b *Broker) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case cmd := <-b.subscribeCh:
			b.handleSubscribe(cmd)
		case cmd := <-b.publishCh:
			b.handlePublish(cmd)
		}
	}
}

// Subscribe registers sink for every channel in channels. It blocks
// until the Broker's goroutine has applied the registration (so a
// caller that waits for Subscribe to return is guaranteed the broker
// will route the next Publish to this sink) — this is what lets a
// Session satisfy "never send a frame before the Subscribe is
// acknowledged".
//
// Subscribing the same sink to the same channel twice, or listing a
// channel twice, duplicates delivery; the Broker does not deduplicate.
func (b *Broker) Subscribe(ctx context.Context, channels []channel.Channel, sink Sink) {
	done := make(chan struct{})
	cmd := subscribeCmd{channels: channels, sink: sink, done: done}
	select {
	case b.subscribeCh <- cmd:
	case <-ctx.Done():
		return
	}
	select {
	case <-done:
	case <-ctx.Done():
	}
}

// Publish fans msg out to every sink currently registered on any of
// channels. It blocks until the Broker has completed the fan-out, but
// never waits on any individual sink: a slow or dead subscriber is
// observed as a non-blocking send failure and silently dropped.
func (b *Broker) Publish(ctx context.Context, channels []channel.Channel, msg *pushproto.ResponseBatch) {
	done := make(chan struct{})
	cmd := publishCmd{channels: channels, msg: msg, done: done}
	select {
	case b.publishCh <- cmd:
	case <-ctx.Done():
		return
	}
	select {
	case <-done:
	case <-ctx.Done():
	}
}

func (b *Broker) handleSubscribe(cmd subscribeCmd) {
	for _, ch := range cmd.channels {
		key := ch.String()
		b.channels[key] = append(b.channels[key], cmd.sink)
		if b.metrics != nil {
			b.metrics.Broker.ActiveSubscriptions.WithLabelValues(ch.Kind.String()).Inc()
		}
	}
	close(cmd.done)
}

func (b *Broker) handlePublish(cmd publishCmd) {
	for _, ch := range cmd.channels {
		b.fanOut(ch, cmd.msg)
	}
	if b.metrics != nil {
		b.metrics.Broker.MessagesPublished.Inc()
	}
	close(cmd.done)
}

// fanOut implements the take-send-reinsert algorithm for one (channel,
// msg) pair: the current sink list is taken (the map entry is emptied),
// each sink gets one non-blocking send attempt, successes are
// re-appended in their original relative order, failures are dropped.
func (b *Broker) fanOut(ch channel.Channel, msg *pushproto.ResponseBatch) {
	key := ch.String()
	sinks := b.channels[key]
	if len(sinks) == 0 {
		return
	}
	b.channels[key] = nil

	survivors := make([]Sink, 0, len(sinks))
	for _, sink := range sinks {
		if sink.TrySend(msg) {
			survivors = append(survivors, sink)
			if b.metrics != nil {
				b.metrics.Broker.MessagesDelivered.Inc()
			}
			continue
		}
		if b.logger != nil {
			b.logger.Debug("dropping unresponsive sink", zap.String("channel", key))
		}
		if b.metrics != nil {
			b.metrics.Broker.SinkSendFailures.Inc()
			b.metrics.Broker.ActiveSubscriptions.WithLabelValues(ch.Kind.String()).Dec()
		}
	}

	if len(survivors) > 0 {
		b.channels[key] = survivors
	}
}
