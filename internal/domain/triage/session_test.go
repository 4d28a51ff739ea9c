package triage

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionStore_IsolatesQueues(t *testing.T) {
	st := NewSessionStore(SessionConfig{}, zerolog.Nop())
	ctx := context.Background()

	require.NoError(t, st.WithSession(ctx, "a", func(svc *Service) error {
		_, err := svc.Add(ctx, Candidate{Name: "only in a", AgeYears: 10})
		return err
	}))

	var sizeA, sizeB int
	require.NoError(t, st.WithSession(ctx, "a", func(svc *Service) error {
		q, err := svc.CurrentQueue(ctx)
		sizeA = len(q)
		return err
	}))
	require.NoError(t, st.WithSession(ctx, "b", func(svc *Service) error {
		q, err := svc.CurrentQueue(ctx)
		sizeB = len(q)
		return err
	}))

	assert.Equal(t, 1, sizeA)
	assert.Equal(t, 0, sizeB)
	assert.Equal(t, 2, st.Len())
}

func TestSessionStore_SerializesOperations(t *testing.T) {
	st := NewSessionStore(SessionConfig{}, zerolog.Nop())
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = st.WithSession(ctx, "shared", func(svc *Service) error {
				_, err := svc.Add(ctx, Candidate{Name: "p", AgeYears: 20})
				return err
			})
		}()
	}
	wg.Wait()

	require.NoError(t, st.WithSession(ctx, "shared", func(svc *Service) error {
		q, err := svc.CurrentQueue(ctx)
		require.Len(t, q, 100)
		seen := make(map[int]bool)
		for _, p := range q {
			assert.False(t, seen[p.ArrivalSeq()], "arrival %d handed out twice", p.ArrivalSeq())
			seen[p.ArrivalSeq()] = true
		}
		return err
	}))
}

func TestSessionStore_ExpiresIdleSessions(t *testing.T) {
	st := NewSessionStore(SessionConfig{TTL: time.Minute, MaxSessions: 2}, zerolog.Nop())
	now := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
	st.now = func() time.Time { return now }
	ctx := context.Background()
	noop := func(*Service) error { return nil }

	require.NoError(t, st.WithSession(ctx, "a", noop))
	require.NoError(t, st.WithSession(ctx, "b", noop))

	err := st.WithSession(ctx, "c", noop)
	assert.True(t, errors.Is(err, ErrTooManySessions))

	now = now.Add(2 * time.Minute)
	require.NoError(t, st.WithSession(ctx, "c", noop))
	assert.Equal(t, 1, st.Len())
	assert.Equal(t, 0, st.Sweep())
}

func TestSessionStore_CanceledContext(t *testing.T) {
	st := NewSessionStore(SessionConfig{}, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := st.WithSession(ctx, "a", func(*Service) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestSessionStore_UsesPublisherAndExample(t *testing.T) {
	st := NewSessionStore(SessionConfig{}, zerolog.Nop())
	pub := &recordingPublisher{}
	st.SetPublisher(pub)
	st.SetExample(&Dataset{Patients: []Candidate{{Name: "demo", AgeYears: 40, TriageLevel: 2}}})
	ctx := context.Background()

	require.NoError(t, st.WithSession(ctx, "s1", func(svc *Service) error {
		ps, err := svc.LoadExample(ctx)
		require.Len(t, ps, 1)
		return err
	}))

	require.Len(t, pub.events, 1)
	assert.Equal(t, "queue/s1", pub.events[0].Topic)
	assert.Equal(t, EventQueueLoaded, pub.events[0].Type)
}
