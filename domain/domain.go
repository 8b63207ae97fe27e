// Package domain contains core concepts of the messaging system.
// Entities here carry no transport, storage, or UI concerns.
package domain

import (
	"time"
)

// Principal is an authenticated user identity. It is created by the
// identity layer and only referenced by the real-time core.
type Principal struct {
	ID   string
	Name string
}

// Conversation groups participants exchanging messages. The real-time
// core reads and touches it but never owns its lifecycle.
type Conversation struct {
	ID             string    `json:"id"`
	Name           string    `json:"name,omitempty"`
	IsGroup        bool      `json:"isGroup"`
	ParticipantIDs []string  `json:"participantIds"`
	CreatedAt      time.Time `json:"createdAt"`
	LastActivityAt time.Time `json:"lastActivityAt"`
}

// HasParticipant reports whether the given principal belongs to the conversation.
func (c Conversation) HasParticipant(principalID string) bool {
	for _, id := range c.ParticipantIDs {
		if id == principalID {
			return true
		}
	}
	return false
}

// Message is a durable chat entry. Edit and delete are flag updates,
// the stored row is never physically removed.
type Message struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversationId"`
	AuthorID       string    `json:"authorId"`
	Body           string    `json:"body"`
	AttachmentID   string    `json:"attachmentId,omitempty"`
	Lang           string    `json:"lang,omitempty"`
	Edited         bool      `json:"edited"`
	Deleted        bool      `json:"deleted"`
	Read           bool      `json:"read"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// Redacted returns a copy safe for re-delivery to viewers: a logically
// deleted message keeps its stored body for audit but never leaves the
// server in plain form.
func (m Message) Redacted() Message {
	if m.Deleted {
		m.Body = ""
		m.AttachmentID = ""
	}
	return m
}

// Attachment describes a stored file referenced by a message. The
// conversation id binds access to the conversation's participants.
type Attachment struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversationId"`
	Filename       string    `json:"filename"`
	ContentType    string    `json:"contentType"`
	Size           int       `json:"size"`
	CreatedAt      time.Time `json:"createdAt"`
}

// User is the account-side projection of a principal, owned by the
// identity layer.
type User struct {
	ID           string
	Email        string
	Name         string
	PasswordHash string
	CreatedAt    time.Time
}
