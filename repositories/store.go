// Package repositories implements the durable storage contract on BadgerDB.
package repositories

import (
	"log/slog"

	"github.com/dgraph-io/badger/v4"
)

// Store aggregates the per-entity repositories into the single storage
// collaborator the real-time core consumes (contract.Store), plus the
// account and conversation lifecycle operations used by the REST surface.
type Store struct {
	MessageRepository
	ConversationRepository
	UserRepository
	AttachmentRepository
}

func NewStore(db *badger.DB, log *slog.Logger) *Store {
	return &Store{
		MessageRepository:      NewMessageRepository(db, log),
		ConversationRepository: NewConversationRepository(db),
		UserRepository:         NewUserRepository(db),
		AttachmentRepository:   NewAttachmentRepository(db),
	}
}
