package runtime

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/Trabajadores202/work-flow-connect-80-89/domain/event"
)

type nopSink struct {
	id int
}

func (s *nopSink) Consume(_ context.Context, _ event.Outbound) error { return nil }

func TestRegistry_Register_SinglePrincipal(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	principalID := uuid.NewString()
	sink := &nopSink{}

	// Given no channel is open
	req.False(registry.IsPresent(principalID))
	req.Empty(registry.ChannelsOf(principalID))

	// When a channel opens
	registry.Register(principalID, sink)

	// Then the principal is present through that channel
	req.True(registry.IsPresent(principalID))
	req.Len(registry.ChannelsOf(principalID), 1)
	req.Contains(registry.AllPresent(), principalID)
}

func TestRegistry_MultiDevice_PresenceTransitions(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	principalID := uuid.NewString()
	phone := &nopSink{id: 1}
	laptop := &nopSink{id: 2}

	registry.Register(principalID, phone)
	registry.Register(principalID, laptop)
	req.Len(registry.ChannelsOf(principalID), 2)

	// Closing one of two devices keeps the principal present
	lastGone := registry.Unregister(principalID, phone)
	req.False(lastGone)
	req.True(registry.IsPresent(principalID))

	// Closing the last device transitions to absent
	lastGone = registry.Unregister(principalID, laptop)
	req.True(lastGone)
	req.False(registry.IsPresent(principalID))
	req.Empty(registry.AllPresent())
}

func TestRegistry_Unregister_UnknownSink(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	principalID := uuid.NewString()

	// Unregistering an absent principal must not report a transition
	req.False(registry.Unregister(principalID, &nopSink{}))

	registry.Register(principalID, &nopSink{id: 1})
	req.False(registry.Unregister(principalID, &nopSink{id: 2}))
	req.True(registry.IsPresent(principalID))
}

func TestRegistry_ConcurrentMutations(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	principalID := uuid.NewString()

	const devices = 64
	sinks := make([]*nopSink, devices)
	for i := range sinks {
		sinks[i] = &nopSink{id: i}
	}

	var wg sync.WaitGroup
	for _, s := range sinks {
		wg.Add(1)
		go func() {
			defer wg.Done()
			registry.Register(principalID, s)
		}()
	}
	wg.Wait()
	req.Len(registry.ChannelsOf(principalID), devices)

	for _, s := range sinks {
		wg.Add(1)
		go func() {
			defer wg.Done()
			registry.Unregister(principalID, s)
		}()
	}
	wg.Wait()
	req.False(registry.IsPresent(principalID))
}
