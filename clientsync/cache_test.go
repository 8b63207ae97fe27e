package clientsync

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Trabajadores202/work-flow-connect-80-89/domain"
)

func seededCache(t *testing.T) *Cache {
	t.Helper()
	cache := NewCache("self")
	cache.ReplaceConversations([]domain.Conversation{
		{ID: "c1", ParticipantIDs: []string{"self", "peer"}},
	})
	return cache
}

func msg(id, body, author string) domain.Message {
	return domain.Message{
		ID:             id,
		ConversationID: "c1",
		AuthorID:       author,
		Body:           body,
		CreatedAt:      time.Now().UTC(),
	}
}

func TestCache_PendingConfirmedByCreatedEvent(t *testing.T) {
	req := require.New(t)
	cache := seededCache(t)

	provisional := cache.AddPending("c1", "hello")
	entries := cache.Messages("c1")
	req.Len(entries, 1)
	req.True(entries[0].Pending)

	// The authoritative event replaces the pending entry, no duplicate.
	cache.ApplyCreated(msg("srv-1", "hello", "self"))
	entries = cache.Messages("c1")
	req.Len(entries, 1)
	req.False(entries[0].Pending)
	req.Equal("srv-1", entries[0].ID)
	req.NotEqual(provisional, entries[0].ID)
}

func TestCache_CreatedFromPeerCountsUnread(t *testing.T) {
	req := require.New(t)
	cache := seededCache(t)

	cache.ApplyCreated(msg("m1", "hi", "peer"))
	cache.ApplyCreated(msg("m2", "you there?", "peer"))

	view, ok := cache.Conversation("c1")
	req.True(ok)
	req.Equal(2, view.Unread)
	req.Equal("m2", view.LastMessage.ID)

	// Opening the conversation clears the counter; further messages on
	// the active conversation stay read.
	cache.SetActive("c1")
	cache.ApplyCreated(msg("m3", "ping", "peer"))
	view, _ = cache.Conversation("c1")
	req.Equal(0, view.Unread)
}

func TestCache_DuplicateCreatedIgnored(t *testing.T) {
	req := require.New(t)
	cache := seededCache(t)

	cache.ApplyCreated(msg("m1", "hi", "peer"))
	cache.ApplyCreated(msg("m1", "hi", "peer"))
	req.Len(cache.Messages("c1"), 1)
}

func TestCache_UpdatedReplacesByID(t *testing.T) {
	req := require.New(t)
	cache := seededCache(t)

	cache.ApplyCreated(msg("m1", "first", "peer"))
	edited := msg("m1", "first, edited", "peer")
	edited.Edited = true
	cache.ApplyUpdated(edited)

	entries := cache.Messages("c1")
	req.Len(entries, 1)
	req.True(entries[0].Edited)
	req.Equal("first, edited", entries[0].Body)
}

func TestCache_DeletedRecomputesLastMessage(t *testing.T) {
	req := require.New(t)
	cache := seededCache(t)

	cache.ApplyCreated(msg("m1", "keep", "peer"))
	cache.ApplyCreated(msg("m2", "drop", "peer"))
	view, _ := cache.Conversation("c1")
	req.Equal("m2", view.LastMessage.ID)

	cache.ApplyDeleted("c1", "m2")
	req.Len(cache.Messages("c1"), 1)
	view, _ = cache.Conversation("c1")
	req.Equal("m1", view.LastMessage.ID)

	cache.ApplyDeleted("c1", "m1")
	view, _ = cache.Conversation("c1")
	req.Nil(view.LastMessage)
}

func msgAt(id, body, author string, at time.Time) domain.Message {
	m := msg(id, body, author)
	m.CreatedAt = at
	return m
}

func TestCache_OutOfOrderCreatedKeepsNewestLast(t *testing.T) {
	req := require.New(t)
	cache := seededCache(t)
	base := time.Now().UTC()

	// The newer message lands first; the straggler must not win the
	// last-message slot or rewind the activity clock.
	cache.ApplyCreated(msgAt("m-new", "newer", "peer", base.Add(2*time.Second)))
	cache.ApplyCreated(msgAt("m-old", "older", "peer", base.Add(time.Second)))

	view, ok := cache.Conversation("c1")
	req.True(ok)
	req.Equal("m-new", view.LastMessage.ID)
	req.Equal(base.Add(2*time.Second), view.LastActivityAt)
	req.Len(cache.Messages("c1"), 2)
}

func TestCache_DeleteRecomputesLastByCreatedAt(t *testing.T) {
	req := require.New(t)
	cache := seededCache(t)
	base := time.Now().UTC()

	// Arrival order disagrees with creation order.
	cache.ApplyCreated(msgAt("m1", "first", "peer", base.Add(time.Second)))
	cache.ApplyCreated(msgAt("m3", "third", "peer", base.Add(3*time.Second)))
	cache.ApplyCreated(msgAt("m2", "second", "peer", base.Add(2*time.Second)))

	view, _ := cache.Conversation("c1")
	req.Equal("m3", view.LastMessage.ID)

	cache.ApplyDeleted("c1", "m2")
	view, _ = cache.Conversation("c1")
	req.Equal("m3", view.LastMessage.ID)

	cache.ApplyDeleted("c1", "m3")
	view, _ = cache.Conversation("c1")
	req.Equal("m1", view.LastMessage.ID)
}

func TestCache_ResyncKeepsUnconfirmedPending(t *testing.T) {
	req := require.New(t)
	cache := seededCache(t)

	cache.AddPending("c1", "made it")
	cache.AddPending("c1", "lost in transit")

	// The server history confirms one of the two optimistic sends.
	cache.ReplaceMessages("c1", []domain.Message{
		msg("srv-1", "made it", "self"),
	})

	entries := cache.Messages("c1")
	req.Len(entries, 2)
	req.False(entries[0].Pending)
	req.True(entries[1].Pending)
	req.Equal("lost in transit", entries[1].Body)
}

func TestCache_PresenceIsAdvisory(t *testing.T) {
	req := require.New(t)
	cache := seededCache(t)

	req.False(cache.IsOnline("peer"))
	cache.ApplyPresence("peer", true)
	req.True(cache.IsOnline("peer"))
	cache.ApplyPresence("peer", false)
	req.False(cache.IsOnline("peer"))
}

func TestCache_ReplaceConversationsDropsVanished(t *testing.T) {
	req := require.New(t)
	cache := seededCache(t)
	cache.ApplyCreated(msg("m1", "hi", "peer"))

	cache.ReplaceConversations([]domain.Conversation{
		{ID: "c2", ParticipantIDs: []string{"self", "other"}},
	})

	_, ok := cache.Conversation("c1")
	req.False(ok)
	req.Empty(cache.Messages("c1"))
	_, ok = cache.Conversation("c2")
	req.True(ok)
}
