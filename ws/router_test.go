package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Trabajadores202/work-flow-connect-80-89/domain"
	"github.com/Trabajadores202/work-flow-connect-80-89/domain/event"
	apperrors "github.com/Trabajadores202/work-flow-connect-80-89/errors"
)

type captureSink struct {
	events []event.Outbound
}

func (s *captureSink) Consume(_ context.Context, e event.Outbound) error {
	s.events = append(s.events, e)
	return nil
}

// fakeChat records the operations the router invoked and returns the
// configured error.
type fakeChat struct {
	sends   []event.SendPayload
	edits   []event.EditPayload
	deletes []event.DeletePayload
	err     error
}

func (f *fakeChat) Send(_ context.Context, authorID, conversationID, body string) (domain.Message, error) {
	f.sends = append(f.sends, event.SendPayload{ConversationID: conversationID, Body: body})
	return domain.Message{ConversationID: conversationID, AuthorID: authorID, Body: body}, f.err
}

func (f *fakeChat) Edit(_ context.Context, _, messageID, body string) (domain.Message, error) {
	f.edits = append(f.edits, event.EditPayload{MessageID: messageID, Body: body})
	return domain.Message{ID: messageID, Body: body}, f.err
}

func (f *fakeChat) Delete(_ context.Context, _, messageID string) (domain.Message, error) {
	f.deletes = append(f.deletes, event.DeletePayload{MessageID: messageID})
	return domain.Message{ID: messageID}, f.err
}

func (f *fakeChat) SendAttachment(_ context.Context, _ string, _ event.SendAttachmentPayload) (domain.Message, error) {
	return domain.Message{}, f.err
}

func (f *fakeChat) MarkRead(_ context.Context, _, messageID string) (domain.Message, error) {
	return domain.Message{ID: messageID}, f.err
}

func (f *fakeChat) ConversationsOf(string) ([]domain.Conversation, error) { return nil, f.err }

func (f *fakeChat) Messages(string, string) ([]domain.Message, error) { return nil, f.err }

func (f *fakeChat) Attachment(string, string) (domain.Attachment, []byte, error) {
	return domain.Attachment{}, nil, f.err
}

func frame(t *testing.T, kind event.Kind, payload any) []byte {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	data, err := json.Marshal(event.Envelope{Type: kind, Payload: raw})
	require.NoError(t, err)
	return data
}

var alice = domain.Principal{ID: "alice", Name: "Alice"}

func TestRouter_DispatchesSend(t *testing.T) {
	req := require.New(t)
	chat := &fakeChat{}
	sink := &captureSink{}
	router := NewRouter(slog.Default(), chat, nil)

	router.Handle(context.Background(), alice,
		frame(t, event.KindSend, event.SendPayload{ConversationID: "c1", Body: "hello"}), sink)

	req.Len(chat.sends, 1)
	req.Equal("c1", chat.sends[0].ConversationID)
	req.Equal("hello", chat.sends[0].Body)
	req.Empty(sink.events)
}

func TestRouter_DispatchesEditAndDelete(t *testing.T) {
	req := require.New(t)
	chat := &fakeChat{}
	sink := &captureSink{}
	router := NewRouter(slog.Default(), chat, nil)

	router.Handle(context.Background(), alice,
		frame(t, event.KindEdit, event.EditPayload{MessageID: "m1", Body: "fixed"}), sink)
	router.Handle(context.Background(), alice,
		frame(t, event.KindDelete, event.DeletePayload{MessageID: "m1"}), sink)

	req.Len(chat.edits, 1)
	req.Len(chat.deletes, 1)
	req.Empty(sink.events)
}

func TestRouter_UnknownKind(t *testing.T) {
	req := require.New(t)
	chat := &fakeChat{}
	sink := &captureSink{}
	router := NewRouter(slog.Default(), chat, nil)

	router.Handle(context.Background(), alice,
		frame(t, event.Kind("subscribe"), struct{}{}), sink)

	req.Empty(chat.sends)
	req.Len(sink.events, 1)
	req.Equal(event.KindError, sink.events[0].Kind)
	req.Equal("alice", sink.events[0].PrincipalID)
}

func TestRouter_ValidationStopsBeforeService(t *testing.T) {
	req := require.New(t)
	chat := &fakeChat{}
	sink := &captureSink{}
	router := NewRouter(slog.Default(), chat, nil)

	// Body is required for a send.
	router.Handle(context.Background(), alice,
		frame(t, event.KindSend, event.SendPayload{ConversationID: "c1"}), sink)

	req.Empty(chat.sends)
	req.Len(sink.events, 1)
	req.Equal(event.KindError, sink.events[0].Kind)
}

func TestRouter_MalformedFrame(t *testing.T) {
	req := require.New(t)
	chat := &fakeChat{}
	sink := &captureSink{}
	router := NewRouter(slog.Default(), chat, nil)

	router.Handle(context.Background(), alice, []byte("{not json"), sink)

	req.Empty(chat.sends)
	req.Len(sink.events, 1)
	req.Equal(event.KindError, sink.events[0].Kind)
}

func TestRouter_ServiceErrorsStayOnChannel(t *testing.T) {
	req := require.New(t)
	chat := &fakeChat{err: apperrors.ErrForbidden}
	sink := &captureSink{}
	router := NewRouter(slog.Default(), chat, nil)

	router.Handle(context.Background(), alice,
		frame(t, event.KindSend, event.SendPayload{ConversationID: "c1", Body: "hi"}), sink)

	req.Len(sink.events, 1)
	req.Equal(event.KindError, sink.events[0].Kind)
	payload, ok := sink.events[0].Payload.(event.ErrorPayload)
	req.True(ok)
	req.Equal(apperrors.ErrForbidden.Error(), payload.Message)
}
