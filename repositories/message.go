package repositories

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v4"

	"github.com/Trabajadores202/work-flow-connect-80-89/domain"
	apperrors "github.com/Trabajadores202/work-flow-connect-80-89/errors"
)

// MessageRepository persists messages in BadgerDB under two keys:
//
//   - "msgid:{id}" holds the authoritative JSON record, rewritten on every
//     edit/delete flag update;
//   - "msg:{conversation}:{timestamp_padded}:{id}" is an ordering key whose
//     value is just the message id. The 19-digit zero padding makes a
//     lexicographic prefix scan return messages in creation order, and the
//     trailing id disambiguates two messages created in the same nanosecond.
type MessageRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewMessageRepository(db *badger.DB, log *slog.Logger) MessageRepository {
	return MessageRepository{db: db, log: log}
}

func messagePrimaryKey(id string) []byte {
	return []byte("msgid:" + id)
}

func messageOrderKey(m domain.Message) []byte {
	return []byte(fmt.Sprintf("msg:%s:%019d:%s", m.ConversationID, m.CreatedAt.UnixNano(), m.ID))
}

// CreateMessage writes both the record and its ordering key in one
// transaction.
func (r MessageRepository) CreateMessage(m domain.Message) error {
	data, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return r.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(messagePrimaryKey(m.ID), data); err != nil {
			return err
		}
		return txn.Set(messageOrderKey(m), []byte(m.ID))
	})
}

// UpdateMessage rewrites the record only. The ordering key is derived from
// the immutable creation timestamp and never changes.
func (r MessageRepository) UpdateMessage(m domain.Message) error {
	data, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return r.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(messagePrimaryKey(m.ID)); err != nil {
			return mapKeyErr(err)
		}
		return txn.Set(messagePrimaryKey(m.ID), data)
	})
}

func (r MessageRepository) GetMessageByID(id string) (domain.Message, error) {
	var m domain.Message
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(messagePrimaryKey(id))
		if err != nil {
			return mapKeyErr(err)
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &m)
		})
	})
	return m, err
}

// GetMessages returns all messages of a conversation ordered by creation
// time, oldest first. Deleted rows are returned with their flags intact;
// redaction is the service layer's concern.
func (r MessageRepository) GetMessages(conversationID string) ([]domain.Message, error) {
	var messages []domain.Message
	err := r.db.View(func(txn *badger.Txn) error {
		prefix := []byte(fmt.Sprintf("msg:%s:", conversationID))
		options := badger.DefaultIteratorOptions
		it := txn.NewIterator(options)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var id string
			if err := it.Item().Value(func(val []byte) error {
				id = string(val)
				return nil
			}); err != nil {
				return err
			}

			item, err := txn.Get(messagePrimaryKey(id))
			if err != nil {
				// Ordering key without a record should not happen; skip and log.
				r.log.Warn("Dangling message ordering key", "message_id", id)
				continue
			}
			var m domain.Message
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &m)
			}); err != nil {
				return err
			}
			messages = append(messages, m)
		}
		return nil
	})
	return messages, err
}

func mapKeyErr(err error) error {
	if err == badger.ErrKeyNotFound {
		return apperrors.ErrNotFound
	}
	return err
}
