package repositories

import (
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/Trabajadores202/work-flow-connect-80-89/domain"
)

// ConversationRepository persists conversations under "conv:{id}" plus a
// membership index "member:{principal}:{conversation}" so enumerating a
// principal's conversations is a single prefix scan.
type ConversationRepository struct {
	db *badger.DB
}

func NewConversationRepository(db *badger.DB) ConversationRepository {
	return ConversationRepository{db: db}
}

func conversationKey(id string) []byte {
	return []byte("conv:" + id)
}

func memberKey(principalID, conversationID string) []byte {
	return []byte("member:" + principalID + ":" + conversationID)
}

func (r ConversationRepository) CreateConversation(c domain.Conversation) error {
	data, err := json.Marshal(c)
	if err != nil {
		return err
	}
	return r.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(conversationKey(c.ID), data); err != nil {
			return err
		}
		for _, participantID := range c.ParticipantIDs {
			if err := txn.Set(memberKey(participantID, c.ID), nil); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r ConversationRepository) GetConversation(id string) (domain.Conversation, error) {
	var c domain.Conversation
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(conversationKey(id))
		if err != nil {
			return mapKeyErr(err)
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &c)
		})
	})
	return c, err
}

func (r ConversationRepository) GetConversationParticipants(id string) ([]string, error) {
	c, err := r.GetConversation(id)
	if err != nil {
		return nil, err
	}
	return c.ParticipantIDs, nil
}

func (r ConversationRepository) IsParticipant(conversationID, principalID string) (bool, error) {
	c, err := r.GetConversation(conversationID)
	if err != nil {
		return false, err
	}
	return c.HasParticipant(principalID), nil
}

// GetConversationsOf scans the membership index and resolves each entry,
// most recently active first.
func (r ConversationRepository) GetConversationsOf(principalID string) ([]domain.Conversation, error) {
	var ids []string
	err := r.db.View(func(txn *badger.Txn) error {
		prefix := []byte("member:" + principalID + ":")
		options := badger.DefaultIteratorOptions
		options.PrefetchValues = false
		it := txn.NewIterator(options)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			key := string(it.Item().Key())
			ids = append(ids, strings.TrimPrefix(key, string(prefix)))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	conversations := make([]domain.Conversation, 0, len(ids))
	for _, id := range ids {
		c, err := r.GetConversation(id)
		if err != nil {
			return nil, err
		}
		conversations = append(conversations, c)
	}
	sortByActivity(conversations)
	return conversations, nil
}

// TouchConversation advances the last-activity timestamp. Older
// timestamps never rewind it.
func (r ConversationRepository) TouchConversation(id string, at time.Time) error {
	return r.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(conversationKey(id))
		if err != nil {
			return mapKeyErr(err)
		}
		var c domain.Conversation
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &c)
		}); err != nil {
			return err
		}
		if !at.After(c.LastActivityAt) {
			return nil
		}
		c.LastActivityAt = at
		data, err := json.Marshal(c)
		if err != nil {
			return err
		}
		return txn.Set(conversationKey(id), data)
	})
}

func sortByActivity(conversations []domain.Conversation) {
	sort.Slice(conversations, func(i, j int) bool {
		return conversations[i].LastActivityAt.After(conversations[j].LastActivityAt)
	})
}
