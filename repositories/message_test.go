package repositories

import (
	"log/slog"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/Trabajadores202/work-flow-connect-80-89/domain"
	apperrors "github.com/Trabajadores202/work-flow-connect-80-89/errors"
)

func openTestDB(t *testing.T) *badger.DB {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestMessageRepository_StoreAndFetchOrdered(t *testing.T) {
	req := require.New(t)
	db := openTestDB(t)
	repo := NewMessageRepository(db, slog.Default())

	convID := uuid.NewString()
	at := time.Now().UTC()
	bodies := []string{"first", "second", "third"}
	for i, body := range bodies {
		err := repo.CreateMessage(domain.Message{
			ID:             uuid.NewString(),
			ConversationID: convID,
			AuthorID:       "alice",
			Body:           body,
			CreatedAt:      at.Add(time.Duration(i) * time.Minute),
			UpdatedAt:      at.Add(time.Duration(i) * time.Minute),
		})
		req.NoError(err)
	}

	fetched, err := repo.GetMessages(convID)
	req.NoError(err)
	req.Len(fetched, len(bodies))
	for i, m := range fetched {
		req.Equal(bodies[i], m.Body)
	}
}

func TestMessageRepository_UpdateKeepsOrderAndRow(t *testing.T) {
	req := require.New(t)
	db := openTestDB(t)
	repo := NewMessageRepository(db, slog.Default())

	msg := domain.Message{
		ID:             uuid.NewString(),
		ConversationID: "c1",
		AuthorID:       "alice",
		Body:           "original",
		CreatedAt:      time.Now().UTC(),
	}
	req.NoError(repo.CreateMessage(msg))

	// Logical delete keeps the row and the stored body.
	msg.Deleted = true
	msg.UpdatedAt = time.Now().UTC()
	req.NoError(repo.UpdateMessage(msg))

	stored, err := repo.GetMessageByID(msg.ID)
	req.NoError(err)
	req.True(stored.Deleted)
	req.Equal("original", stored.Body)

	all, err := repo.GetMessages("c1")
	req.NoError(err)
	req.Len(all, 1)
}

func TestMessageRepository_UnknownID(t *testing.T) {
	req := require.New(t)
	db := openTestDB(t)
	repo := NewMessageRepository(db, slog.Default())

	_, err := repo.GetMessageByID(uuid.NewString())
	req.ErrorIs(err, apperrors.ErrNotFound)

	err = repo.UpdateMessage(domain.Message{ID: uuid.NewString(), ConversationID: "c1"})
	req.ErrorIs(err, apperrors.ErrNotFound)
}
