//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"reflect"
	"time"

	"github.com/Trabajadores202/work-flow-connect-80-89/domain"
	"github.com/Trabajadores202/work-flow-connect-80-89/domain/event"
)

// EventSink is one live channel's delivery endpoint. Consume must not
// block longer than the context allows; a slow sink is the sink's problem,
// never the fan-out loop's.
type EventSink interface {
	Consume(ctx context.Context, e event.Outbound) error
}

// Registry is the single source of truth for "is this principal reachable
// now". A principal is present iff it owns at least one registered sink.
type Registry interface {
	Register(principalID string, sink EventSink)
	// Unregister reports whether the principal transitioned to absent,
	// i.e. the removed sink was its last one.
	Unregister(principalID string, sink EventSink) (lastGone bool)
	ChannelsOf(principalID string) []EventSink
	IsPresent(principalID string) bool
	AllPresent() []string
}

// Notifier accepts outbound events for asynchronous delivery. Notify fans
// out to the present participants of the event's conversation;
// NotifyPrincipal delivers to one principal's channels only.
type Notifier interface {
	Notify(e event.Outbound)
	NotifyPrincipal(principalID string, kind event.Kind, payload any)
}

// Store is the narrow contract towards the durable storage collaborator.
// The real-time core never owns entity lifecycles beyond what is listed here.
type Store interface {
	GetConversationParticipants(conversationID string) ([]string, error)
	IsParticipant(conversationID, principalID string) (bool, error)
	GetConversationsOf(principalID string) ([]domain.Conversation, error)
	TouchConversation(conversationID string, at time.Time) error

	CreateMessage(m domain.Message) error
	UpdateMessage(m domain.Message) error
	GetMessageByID(id string) (domain.Message, error)
	GetMessages(conversationID string) ([]domain.Message, error)

	SaveAttachment(data []byte, meta domain.Attachment) (string, error)
	GetAttachment(id string) (domain.Attachment, []byte, error)
}

// Verifier authenticates the opaque credential presented at channel-open
// time. The resulting principal is bound to the channel for its lifetime.
type Verifier interface {
	Verify(credential string) (domain.Principal, error)
}

// Worker is a supervised long-running loop.
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker,
// used for logging and supervision without forcing a naming method on the
// Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}
