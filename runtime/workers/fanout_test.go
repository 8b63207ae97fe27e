package workers

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/Trabajadores202/work-flow-connect-80-89/contract"
	"github.com/Trabajadores202/work-flow-connect-80-89/domain"
	"github.com/Trabajadores202/work-flow-connect-80-89/domain/event"
	"github.com/Trabajadores202/work-flow-connect-80-89/mocks"
)

func TestFanoutWorker_DeliversToPresentParticipantsOnly(t *testing.T) {
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRegistry := mocks.NewMockRegistry(ctrl)
	mockStore := mocks.NewMockStore(ctrl)
	aliceSink := mocks.NewMockEventSink(ctrl)
	bobPhone := mocks.NewMockEventSink(ctrl)
	bobLaptop := mocks.NewMockEventSink(ctrl)

	worker := NewFanoutWorker(log, mockRegistry, mockStore, 16, time.Second, nil)

	msg := domain.Message{ID: "m1", ConversationID: "c1", AuthorID: "alice", Body: "hello"}
	evt := event.MessageCreated(msg)

	// Carol is a participant but has no open channel: silent no-op.
	mockStore.EXPECT().GetConversationParticipants("c1").
		Return([]string{"alice", "bob", "carol"}, nil).Times(1)
	mockRegistry.EXPECT().ChannelsOf("alice").
		Return([]contract.EventSink{aliceSink}).Times(1)
	mockRegistry.EXPECT().ChannelsOf("bob").
		Return([]contract.EventSink{bobPhone, bobLaptop}).Times(1)
	mockRegistry.EXPECT().ChannelsOf("carol").
		Return(nil).Times(1)

	aliceSink.EXPECT().Consume(gomock.Any(), evt).Return(nil).Times(1)
	bobPhone.EXPECT().Consume(gomock.Any(), evt).Return(nil).Times(1)
	bobLaptop.EXPECT().Consume(gomock.Any(), evt).Return(nil).Times(1)

	worker.Fanout(context.Background(), evt)
}

func TestFanoutWorker_DirectDeliverySkipsResolution(t *testing.T) {
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRegistry := mocks.NewMockRegistry(ctrl)
	mockStore := mocks.NewMockStore(ctrl)
	sink := mocks.NewMockEventSink(ctrl)

	worker := NewFanoutWorker(log, mockRegistry, mockStore, 16, time.Second, nil)

	mockRegistry.EXPECT().ChannelsOf("bob").Return([]contract.EventSink{sink}).Times(1)
	sink.EXPECT().Consume(gomock.Any(), gomock.Any()).Return(nil).Times(1)

	worker.Fanout(context.Background(), event.Outbound{
		Kind:        event.KindPrincipalOnline,
		PrincipalID: "bob",
		Payload:     event.PresencePayload{PrincipalID: "alice"},
	})
}

func TestFanoutWorker_SlowSinkDoesNotBlockOthers(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRegistry := mocks.NewMockRegistry(ctrl)
	mockStore := mocks.NewMockStore(ctrl)
	slowSink := mocks.NewMockEventSink(ctrl)
	fastSink := mocks.NewMockEventSink(ctrl)

	sinkTimeout := 20 * time.Millisecond
	worker := NewFanoutWorker(log, mockRegistry, mockStore, 16, sinkTimeout, nil)

	mockStore.EXPECT().GetConversationParticipants("c1").
		Return([]string{"slow", "fast"}, nil).Times(1)
	mockRegistry.EXPECT().ChannelsOf("slow").Return([]contract.EventSink{slowSink}).Times(1)
	mockRegistry.EXPECT().ChannelsOf("fast").Return([]contract.EventSink{fastSink}).Times(1)

	// The blocked sink waits for its per-delivery timeout to fire.
	slowSink.EXPECT().Consume(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, _ event.Outbound) error {
			<-ctx.Done()
			return ctx.Err()
		}).Times(1)

	fastDone := make(chan struct{})
	fastSink.EXPECT().Consume(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ event.Outbound) error {
			close(fastDone)
			return nil
		}).Times(1)

	start := time.Now()
	worker.Fanout(context.Background(), event.MessageCreated(domain.Message{ID: "m1", ConversationID: "c1"}))

	select {
	case <-fastDone:
	default:
		req.Fail("fast sink was never served")
	}
	// The whole fan-out is bounded by the sink timeout, not by the slow sink.
	req.Less(time.Since(start), time.Second)
}

func TestFanoutWorker_ResolutionFailureDropsEvent(t *testing.T) {
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRegistry := mocks.NewMockRegistry(ctrl)
	mockStore := mocks.NewMockStore(ctrl)

	worker := NewFanoutWorker(log, mockRegistry, mockStore, 16, time.Second, nil)

	mockStore.EXPECT().GetConversationParticipants("c1").
		Return(nil, context.DeadlineExceeded).Times(1)
	// No registry lookup, no delivery.

	worker.Fanout(context.Background(), event.MessageCreated(domain.Message{ID: "m1", ConversationID: "c1"}))
}
