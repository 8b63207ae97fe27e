// Package clientsync implements the client-side synchronization engine: a
// local cache of conversations and messages kept consistent by the live
// event stream, with a REST fallback for when the channel is down.
package clientsync

import (
	"math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/Trabajadores202/work-flow-connect-80-89/domain"
)

// MessageView is a cached message. Pending entries are local optimistic
// sends awaiting their authoritative counterpart from the server.
type MessageView struct {
	domain.Message
	Pending bool
}

// ConversationView is a cached conversation with the client-side state
// the UI renders: unread counter and latest message.
type ConversationView struct {
	domain.Conversation
	Unread      int
	LastMessage *MessageView
}

// Cache holds everything the client knows. All methods are safe for
// concurrent use; the read loop and the UI share one instance.
type Cache struct {
	mu      sync.RWMutex
	selfID  string
	entropy *ulid.MonotonicEntropy

	conversations map[string]*ConversationView
	messages      map[string][]MessageView
	online        map[string]bool
	active        string
}

func NewCache(selfID string) *Cache {
	return &Cache{
		selfID:        selfID,
		entropy:       ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0),
		conversations: make(map[string]*ConversationView),
		messages:      make(map[string][]MessageView),
		online:        make(map[string]bool),
	}
}

// SetActive marks the conversation currently on screen; its incoming
// messages do not count as unread.
func (c *Cache) SetActive(conversationID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.active = conversationID
	if view, ok := c.conversations[conversationID]; ok {
		view.Unread = 0
	}
}

// ReplaceConversations installs an authoritative conversation list, e.g.
// after a reconnect. Message caches of vanished conversations are dropped.
func (c *Cache) ReplaceConversations(conversations []domain.Conversation) {
	c.mu.Lock()
	defer c.mu.Unlock()

	seen := make(map[string]struct{}, len(conversations))
	for _, conversation := range conversations {
		seen[conversation.ID] = struct{}{}
		if view, ok := c.conversations[conversation.ID]; ok {
			view.Conversation = conversation
			continue
		}
		c.conversations[conversation.ID] = &ConversationView{Conversation: conversation}
	}
	for id := range c.conversations {
		if _, ok := seen[id]; !ok {
			delete(c.conversations, id)
			delete(c.messages, id)
		}
	}
}

// ReplaceMessages installs an authoritative history for one conversation.
// Pending entries survive only if no authoritative row confirmed them.
func (c *Cache) ReplaceMessages(conversationID string, messages []domain.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()

	views := make([]MessageView, 0, len(messages))
	for _, m := range messages {
		views = append(views, MessageView{Message: m})
	}
	for _, old := range c.messages[conversationID] {
		if old.Pending && !confirmedBy(messages, old) {
			views = append(views, old)
		}
	}
	c.messages[conversationID] = views
	c.refreshLastMessage(conversationID)
}

// AddPending appends an optimistic local send and returns its provisional
// id. The entry is replaced when the authoritative event arrives.
func (c *Cache) AddPending(conversationID, body string) string {
	c.mu.Lock()
	defer c.mu.Unlock()

	view := MessageView{
		Message: domain.Message{
			ID:             ulid.MustNew(ulid.Timestamp(time.Now()), c.entropy).String(),
			ConversationID: conversationID,
			AuthorID:       c.selfID,
			Body:           body,
			CreatedAt:      time.Now().UTC(),
		},
		Pending: true,
	}
	c.messages[conversationID] = append(c.messages[conversationID], view)
	c.refreshLastMessage(conversationID)
	return view.ID
}

// ApplyCreated reconciles a message-created event. A pending entry with
// the same conversation, body, and self authorship is confirmed in place;
// anything else is appended. Messages from others bump the unread counter
// unless their conversation is on screen.
func (c *Cache) ApplyCreated(m domain.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entries := c.messages[m.ConversationID]
	confirmed := false
	for i, entry := range entries {
		if entry.Pending && entry.AuthorID == m.AuthorID && entry.Body == m.Body && m.AuthorID == c.selfID {
			entries[i] = MessageView{Message: m}
			confirmed = true
			break
		}
	}
	if !confirmed {
		if c.hasMessage(m.ConversationID, m.ID) {
			return
		}
		entries = append(entries, MessageView{Message: m})
	}
	c.messages[m.ConversationID] = entries

	if view, ok := c.conversations[m.ConversationID]; ok {
		// Events may arrive out of order; the activity clock only moves
		// forward.
		if m.CreatedAt.After(view.LastActivityAt) {
			view.LastActivityAt = m.CreatedAt
		}
		if m.AuthorID != c.selfID && c.active != m.ConversationID {
			view.Unread++
		}
	}
	c.refreshLastMessage(m.ConversationID)
}

// ApplyUpdated replaces the cached entry by id. Unknown ids are ignored;
// the next resync will bring the full row.
func (c *Cache) ApplyUpdated(m domain.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entries := c.messages[m.ConversationID]
	for i, entry := range entries {
		if entry.ID == m.ID {
			entries[i] = MessageView{Message: m}
			break
		}
	}
	c.refreshLastMessage(m.ConversationID)
}

// ApplyDeleted removes the entry and recomputes the conversation's last
// message from what remains locally.
func (c *Cache) ApplyDeleted(conversationID, messageID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entries := c.messages[conversationID]
	for i, entry := range entries {
		if entry.ID == messageID {
			c.messages[conversationID] = append(entries[:i], entries[i+1:]...)
			break
		}
	}
	c.refreshLastMessage(conversationID)
}

// ApplyPresence records a peer's reachability. Presence is advisory: it
// renders a dot, it never gates sending.
func (c *Cache) ApplyPresence(principalID string, isOnline bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if isOnline {
		c.online[principalID] = true
		return
	}
	delete(c.online, principalID)
}

func (c *Cache) IsOnline(principalID string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.online[principalID]
}

func (c *Cache) Conversations() []ConversationView {
	c.mu.RLock()
	defer c.mu.RUnlock()

	views := make([]ConversationView, 0, len(c.conversations))
	for _, view := range c.conversations {
		views = append(views, *view)
	}
	return views
}

func (c *Cache) Conversation(id string) (ConversationView, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	view, ok := c.conversations[id]
	if !ok {
		return ConversationView{}, false
	}
	return *view, true
}

func (c *Cache) Messages(conversationID string) []MessageView {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]MessageView(nil), c.messages[conversationID]...)
}

func (c *Cache) hasMessage(conversationID, messageID string) bool {
	for _, entry := range c.messages[conversationID] {
		if entry.ID == messageID {
			return true
		}
	}
	return false
}

// refreshLastMessage recomputes the latest visible message by CreatedAt,
// not by slice position: events may land out of order. Callers hold the
// lock.
func (c *Cache) refreshLastMessage(conversationID string) {
	view, ok := c.conversations[conversationID]
	if !ok {
		return
	}
	entries := c.messages[conversationID]
	if len(entries) == 0 {
		view.LastMessage = nil
		return
	}
	last := entries[0]
	for _, entry := range entries[1:] {
		if entry.CreatedAt.After(last.CreatedAt) {
			last = entry
		}
	}
	view.LastMessage = &last
}

func confirmedBy(messages []domain.Message, pending MessageView) bool {
	for _, m := range messages {
		if m.AuthorID == pending.AuthorID && m.Body == pending.Body {
			return true
		}
	}
	return false
}
