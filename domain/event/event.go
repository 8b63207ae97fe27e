// Package event defines the events exchanged over a live channel.
// Inbound payloads are validated before they reach any domain operation;
// outbound events are transient values, never persisted.
package event

import (
	"encoding/json"

	"github.com/Trabajadores202/work-flow-connect-80-89/domain"
)

// Kind identifies an event type on the wire.
type Kind string

const (
	// Inbound (client -> server)
	KindSend           Kind = "send"
	KindEdit           Kind = "edit"
	KindDelete         Kind = "delete"
	KindSendAttachment Kind = "send-attachment"

	// Outbound (server -> client)
	KindMessageCreated   Kind = "message-created"
	KindMessageUpdated   Kind = "message-updated"
	KindMessageDeleted   Kind = "message-deleted"
	KindPrincipalOnline  Kind = "principal-online"
	KindPrincipalOffline Kind = "principal-offline"
	KindError            Kind = "error"
)

// Envelope is the wire framing of every event: a type tag and an
// opaque payload decoded according to the tag.
type Envelope struct {
	Type    Kind            `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Outbound carries an event from a domain operation to the fan-out loop.
// Exactly one of ConversationID (fan out to present participants) or
// PrincipalID (direct delivery) is set.
type Outbound struct {
	Kind           Kind
	ConversationID string
	PrincipalID    string
	Payload        any
}

// Encode frames an outbound event for the wire.
func (o Outbound) Encode() ([]byte, error) {
	payload, err := json.Marshal(o.Payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Type: o.Kind, Payload: payload})
}

// Inbound payloads. Validation tags are enforced by the router before
// any storage call is made.

type SendPayload struct {
	ConversationID string `json:"conversationId" validate:"required"`
	Body           string `json:"body" validate:"required"`
}

type EditPayload struct {
	MessageID string `json:"messageId" validate:"required"`
	Body      string `json:"body" validate:"required"`
}

type DeletePayload struct {
	MessageID string `json:"messageId" validate:"required"`
}

type SendAttachmentPayload struct {
	ConversationID string `json:"conversationId" validate:"required"`
	Filename       string `json:"filename" validate:"required"`
	ContentType    string `json:"contentType,omitempty"`
	EncodedData    string `json:"encodedData" validate:"required"`
}

// Outbound payloads.

type MessageDeletedPayload struct {
	MessageID      string `json:"messageId"`
	ConversationID string `json:"conversationId"`
}

type PresencePayload struct {
	PrincipalID string `json:"principalId"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

// MessageCreated builds the fan-out event for a freshly persisted message.
func MessageCreated(m domain.Message) Outbound {
	return Outbound{Kind: KindMessageCreated, ConversationID: m.ConversationID, Payload: m}
}

// MessageUpdated builds the fan-out event for an edited message.
func MessageUpdated(m domain.Message) Outbound {
	return Outbound{Kind: KindMessageUpdated, ConversationID: m.ConversationID, Payload: m.Redacted()}
}

// MessageDeleted carries only the message id, never the retained body.
func MessageDeleted(m domain.Message) Outbound {
	return Outbound{
		Kind:           KindMessageDeleted,
		ConversationID: m.ConversationID,
		Payload:        MessageDeletedPayload{MessageID: m.ID, ConversationID: m.ConversationID},
	}
}

// ChannelError builds a channel-local error event. It is always addressed
// to a single principal and never fanned out.
func ChannelError(principalID, message string) Outbound {
	return Outbound{Kind: KindError, PrincipalID: principalID, Payload: ErrorPayload{Message: message}}
}
