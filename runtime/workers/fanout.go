package workers

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Trabajadores202/work-flow-connect-80-89/contract"
	"github.com/Trabajadores202/work-flow-connect-80-89/domain/event"
	"github.com/Trabajadores202/work-flow-connect-80-89/observability"
)

// ParticipantResolver is the slice of the storage contract the fan-out
// loop needs: who belongs to a conversation.
type ParticipantResolver interface {
	GetConversationParticipants(conversationID string) ([]string, error)
}

// FanoutWorker consumes outbound events and delivers each one to every
// channel of every currently present recipient. Delivery to an absent
// participant is a silent no-op; durability for missed events is the
// recipient's reload on next connect.
//
// Each sink is served in its own goroutine bounded by sinkTimeout, so one
// slow or blocked recipient cannot delay the others or abort the loop.
type FanoutWorker struct {
	log          *slog.Logger
	registry     contract.Registry
	participants ParticipantResolver
	events       chan event.Outbound
	sinkTimeout  time.Duration
	metrics      *observability.Collector
}

func NewFanoutWorker(
	log *slog.Logger,
	registry contract.Registry,
	participants ParticipantResolver,
	bufferSize int,
	sinkTimeout time.Duration,
	metrics *observability.Collector,
) *FanoutWorker {
	return &FanoutWorker{
		log:          log,
		registry:     registry,
		participants: participants,
		events:       make(chan event.Outbound, bufferSize),
		sinkTimeout:  sinkTimeout,
		metrics:      metrics,
	}
}

// Notify enqueues an outbound event for asynchronous delivery. The queue
// is bounded; when full the event is dropped with a warning rather than
// blocking the caller, which may be a channel read loop.
func (w *FanoutWorker) Notify(e event.Outbound) {
	select {
	case w.events <- e:
	default:
		w.log.Warn("Outbound queue full, dropping event", "kind", e.Kind)
		w.metrics.DeliveryDropped()
	}
}

// NotifyPrincipal enqueues a direct event for one principal's channels.
// Used by the presence broadcaster and by REST-originated mutations that
// need a real-time push outside the event router path.
func (w *FanoutWorker) NotifyPrincipal(principalID string, kind event.Kind, payload any) {
	w.Notify(event.Outbound{Kind: kind, PrincipalID: principalID, Payload: payload})
}

func (w *FanoutWorker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping fan-out")
			return nil
		case evt := <-w.events:
			w.Fanout(ctx, evt)
		}
	}
}

// Fanout resolves the recipients of one event and delivers it. Direct
// events go to a single principal; conversation events go to every present
// participant. Per-channel order is preserved for a given sink because all
// deliveries of this worker are issued from this single loop and each sink
// serializes its own writes.
func (w *FanoutWorker) Fanout(ctx context.Context, evt event.Outbound) {
	var recipients []string
	switch {
	case evt.PrincipalID != "":
		recipients = []string{evt.PrincipalID}
	case evt.ConversationID != "":
		ids, err := w.participants.GetConversationParticipants(evt.ConversationID)
		if err != nil {
			w.log.Error("Participant resolution failed, dropping event",
				"conversation_id", evt.ConversationID, "kind", evt.Kind, "error", err)
			return
		}
		recipients = ids
	default:
		w.log.Warn("Outbound event without recipient", "kind", evt.Kind)
		return
	}

	var wg sync.WaitGroup
	for _, principalID := range recipients {
		for _, sink := range w.registry.ChannelsOf(principalID) {
			wg.Add(1)
			go func(sink contract.EventSink) {
				defer wg.Done()
				w.deliver(ctx, sink, evt)
			}(sink)
		}
	}
	wg.Wait()
}

func (w *FanoutWorker) deliver(ctx context.Context, sink contract.EventSink, evt event.Outbound) {
	deliveryCtx, cancel := context.WithTimeout(ctx, w.sinkTimeout)
	defer cancel()

	if err := sink.Consume(deliveryCtx, evt); err != nil {
		w.log.Debug(fmt.Sprintf("Sink delivery failed : %v", err), "kind", evt.Kind)
		w.metrics.DeliveryDropped()
		return
	}
	w.metrics.Delivered()
}
