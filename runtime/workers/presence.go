package workers

import (
	"log/slog"

	"github.com/Trabajadores202/work-flow-connect-80-89/contract"
	"github.com/Trabajadores202/work-flow-connect-80-89/domain"
	"github.com/Trabajadores202/work-flow-connect-80-89/domain/event"
)

// ConversationEnumerator is the slice of the storage contract the
// presence broadcaster needs: which conversations a principal belongs to.
type ConversationEnumerator interface {
	GetConversationsOf(principalID string) ([]domain.Conversation, error)
}

// PresenceBroadcaster tells the other participants of a principal's
// conversations that the principal became reachable or unreachable.
// Enumeration failures are logged and never prevent the channel open or
// close from completing.
type PresenceBroadcaster struct {
	log           *slog.Logger
	conversations ConversationEnumerator
	notifier      contract.Notifier
}

func NewPresenceBroadcaster(log *slog.Logger, conversations ConversationEnumerator, notifier contract.Notifier) *PresenceBroadcaster {
	return &PresenceBroadcaster{log: log, conversations: conversations, notifier: notifier}
}

// PrincipalOnline is called on every channel open.
func (b *PresenceBroadcaster) PrincipalOnline(principalID string) {
	b.broadcast(principalID, event.KindPrincipalOnline)
}

// PrincipalOffline is called only when the principal's last remaining
// channel closed, i.e. on the present-to-absent transition.
func (b *PresenceBroadcaster) PrincipalOffline(principalID string) {
	b.broadcast(principalID, event.KindPrincipalOffline)
}

func (b *PresenceBroadcaster) broadcast(principalID string, kind event.Kind) {
	conversations, err := b.conversations.GetConversationsOf(principalID)
	if err != nil {
		b.log.Error("Presence broadcast skipped, conversation enumeration failed",
			"principal_id", principalID, "error", err)
		return
	}

	// A peer sharing several conversations with the principal still gets
	// a single event.
	notified := make(map[string]struct{})
	payload := event.PresencePayload{PrincipalID: principalID}
	for _, conversation := range conversations {
		for _, participantID := range conversation.ParticipantIDs {
			if participantID == principalID {
				continue
			}
			if _, done := notified[participantID]; done {
				continue
			}
			notified[participantID] = struct{}{}
			b.notifier.NotifyPrincipal(participantID, kind, payload)
		}
	}
}
