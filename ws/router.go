package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/Trabajadores202/work-flow-connect-80-89/contract"
	"github.com/Trabajadores202/work-flow-connect-80-89/domain"
	"github.com/Trabajadores202/work-flow-connect-80-89/domain/event"
	apperrors "github.com/Trabajadores202/work-flow-connect-80-89/errors"
	"github.com/Trabajadores202/work-flow-connect-80-89/observability"
	"github.com/Trabajadores202/work-flow-connect-80-89/services"
)

const replyTimeout = 5 * time.Second

// Router decodes inbound envelopes, validates their payloads, and invokes
// the matching domain operation. A failed event produces a channel-local
// error event on the offending channel; the channel itself stays open.
type Router struct {
	log      *slog.Logger
	chat     services.IChatService
	validate *validator.Validate
	metrics  *observability.Collector
}

func NewRouter(log *slog.Logger, chat services.IChatService, metrics *observability.Collector) *Router {
	return &Router{
		log:      log,
		chat:     chat,
		validate: validator.New(),
		metrics:  metrics,
	}
}

// Handle processes one raw inbound frame on behalf of the channel's
// principal. The reply sink is the channel the frame arrived on.
func (r *Router) Handle(ctx context.Context, principal domain.Principal, raw []byte, reply contract.EventSink) {
	var envelope event.Envelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		r.reject(ctx, principal, reply, fmt.Errorf("%w: %v", apperrors.ErrValidation, err))
		return
	}

	if err := r.dispatch(ctx, principal, envelope); err != nil {
		r.reject(ctx, principal, reply, err)
		return
	}
	r.metrics.EventRouted(string(envelope.Type))
}

func (r *Router) dispatch(ctx context.Context, principal domain.Principal, envelope event.Envelope) error {
	switch envelope.Type {
	case event.KindSend:
		var p event.SendPayload
		if err := r.decode(envelope.Payload, &p); err != nil {
			return err
		}
		_, err := r.chat.Send(ctx, principal.ID, p.ConversationID, p.Body)
		return err

	case event.KindEdit:
		var p event.EditPayload
		if err := r.decode(envelope.Payload, &p); err != nil {
			return err
		}
		_, err := r.chat.Edit(ctx, principal.ID, p.MessageID, p.Body)
		return err

	case event.KindDelete:
		var p event.DeletePayload
		if err := r.decode(envelope.Payload, &p); err != nil {
			return err
		}
		_, err := r.chat.Delete(ctx, principal.ID, p.MessageID)
		return err

	case event.KindSendAttachment:
		var p event.SendAttachmentPayload
		if err := r.decode(envelope.Payload, &p); err != nil {
			return err
		}
		_, err := r.chat.SendAttachment(ctx, principal.ID, p)
		return err

	default:
		return fmt.Errorf("%w: %q", apperrors.ErrUnknownEvent, envelope.Type)
	}
}

// decode unmarshals and validates an inbound payload. Nothing reaches a
// domain operation without passing its validation tags.
func (r *Router) decode(raw json.RawMessage, payload any) error {
	if err := json.Unmarshal(raw, payload); err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrValidation, err)
	}
	if err := r.validate.Struct(payload); err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrValidation, err)
	}
	return nil
}

func (r *Router) reject(ctx context.Context, principal domain.Principal, reply contract.EventSink, err error) {
	r.metrics.EventRejected()
	r.log.Warn("Inbound event rejected", "principal_id", principal.ID, "error", err)

	ctx, cancel := context.WithTimeout(ctx, replyTimeout)
	defer cancel()
	errEvent := event.ChannelError(principal.ID, publicMessage(err))
	if consumeErr := reply.Consume(ctx, errEvent); consumeErr != nil {
		r.log.Warn("Error event delivery failed", "principal_id", principal.ID, "error", consumeErr)
	}
}

// publicMessage maps an operation failure to the text sent back to the
// client. Storage internals never leave the server.
func publicMessage(err error) string {
	switch {
	case errors.Is(err, apperrors.ErrStorageUnavailable):
		return apperrors.ErrStorageUnavailable.Error()
	case errors.Is(err, apperrors.ErrForbidden):
		return apperrors.ErrForbidden.Error()
	case errors.Is(err, apperrors.ErrMalformedAttachment):
		return apperrors.ErrMalformedAttachment.Error()
	case errors.Is(err, apperrors.ErrUnknownEvent),
		errors.Is(err, apperrors.ErrValidation):
		return err.Error()
	default:
		return "operation failed"
	}
}
