package repositories

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/Trabajadores202/work-flow-connect-80-89/domain"
)

func TestConversationRepository_MembershipAndEnumeration(t *testing.T) {
	req := require.New(t)
	db := openTestDB(t)
	repo := NewConversationRepository(db)

	now := time.Now().UTC()
	direct := domain.Conversation{
		ID:             uuid.NewString(),
		ParticipantIDs: []string{"alice", "bob"},
		CreatedAt:      now,
		LastActivityAt: now,
	}
	group := domain.Conversation{
		ID:             uuid.NewString(),
		Name:           "ops",
		IsGroup:        true,
		ParticipantIDs: []string{"alice", "bob", "carol"},
		CreatedAt:      now,
		LastActivityAt: now.Add(time.Minute),
	}
	req.NoError(repo.CreateConversation(direct))
	req.NoError(repo.CreateConversation(group))

	ok, err := repo.IsParticipant(direct.ID, "alice")
	req.NoError(err)
	req.True(ok)
	ok, err = repo.IsParticipant(direct.ID, "carol")
	req.NoError(err)
	req.False(ok)

	participants, err := repo.GetConversationParticipants(group.ID)
	req.NoError(err)
	req.ElementsMatch([]string{"alice", "bob", "carol"}, participants)

	// Most recently active first.
	conversations, err := repo.GetConversationsOf("alice")
	req.NoError(err)
	req.Len(conversations, 2)
	req.Equal(group.ID, conversations[0].ID)

	conversations, err = repo.GetConversationsOf("carol")
	req.NoError(err)
	req.Len(conversations, 1)
}

func TestConversationRepository_TouchNeverRewinds(t *testing.T) {
	req := require.New(t)
	db := openTestDB(t)
	repo := NewConversationRepository(db)

	now := time.Now().UTC()
	c := domain.Conversation{
		ID:             uuid.NewString(),
		ParticipantIDs: []string{"alice"},
		LastActivityAt: now,
	}
	req.NoError(repo.CreateConversation(c))

	req.NoError(repo.TouchConversation(c.ID, now.Add(time.Hour)))
	stored, err := repo.GetConversation(c.ID)
	req.NoError(err)
	req.Equal(now.Add(time.Hour), stored.LastActivityAt)

	// An older timestamp is ignored.
	req.NoError(repo.TouchConversation(c.ID, now))
	stored, err = repo.GetConversation(c.ID)
	req.NoError(err)
	req.Equal(now.Add(time.Hour), stored.LastActivityAt)
}
