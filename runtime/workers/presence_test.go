package workers

import (
	"fmt"
	"log/slog"
	"testing"

	"github.com/mama165/sdk-go/logs"
	"go.uber.org/mock/gomock"

	"github.com/Trabajadores202/work-flow-connect-80-89/domain"
	"github.com/Trabajadores202/work-flow-connect-80-89/domain/event"
	"github.com/Trabajadores202/work-flow-connect-80-89/mocks"
)

func TestPresenceBroadcaster_NotifiesOtherParticipantsOnce(t *testing.T) {
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockStore := mocks.NewMockStore(ctrl)
	mockNotifier := mocks.NewMockNotifier(ctrl)

	// Bob shares two conversations with Alice: one direct, one group with Carol.
	mockStore.EXPECT().GetConversationsOf("alice").Return([]domain.Conversation{
		{ID: "c1", ParticipantIDs: []string{"alice", "bob"}},
		{ID: "c2", IsGroup: true, ParticipantIDs: []string{"alice", "bob", "carol"}},
	}, nil).Times(1)

	payload := event.PresencePayload{PrincipalID: "alice"}
	// Bob gets one event despite the two shared conversations; Alice none.
	mockNotifier.EXPECT().NotifyPrincipal("bob", event.KindPrincipalOnline, payload).Times(1)
	mockNotifier.EXPECT().NotifyPrincipal("carol", event.KindPrincipalOnline, payload).Times(1)

	b := NewPresenceBroadcaster(log, mockStore, mockNotifier)
	b.PrincipalOnline("alice")
}

func TestPresenceBroadcaster_EnumerationFailureIsNonFatal(t *testing.T) {
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockStore := mocks.NewMockStore(ctrl)
	mockNotifier := mocks.NewMockNotifier(ctrl)

	mockStore.EXPECT().GetConversationsOf("alice").
		Return(nil, fmt.Errorf("storage offline")).Times(1)
	// No notification is attempted.

	b := NewPresenceBroadcaster(log, mockStore, mockNotifier)
	b.PrincipalOffline("alice")
}
