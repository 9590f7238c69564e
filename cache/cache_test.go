package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"evoting-backend/models"
)

func TestPollResultsRoundTrip(t *testing.T) {
	c := NewMockCache()
	ctx := context.Background()

	results := &models.PollResults{
		PollID:     1,
		Title:      "Cached Poll",
		IsActive:   true,
		TotalVotes: 5,
		Tally: []models.CandidateTally{
			{CandidateID: 10, Name: "A", Votes: 3},
			{CandidateID: 11, Name: "B", Votes: 2},
		},
	}

	require.NoError(t, c.SetPollResults(ctx, results))

	got, err := c.GetPollResults(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, results.Title, got.Title)
	assert.Equal(t, results.TotalVotes, got.TotalVotes)
	require.Len(t, got.Tally, 2)
	assert.Equal(t, results.Tally[0], got.Tally[0])
}

func TestGetPollResults_Miss(t *testing.T) {
	c := NewMockCache()

	_, err := c.GetPollResults(context.Background(), 99)
	assert.ErrorIs(t, err, ErrKeyNotFound)
}

func TestInvalidatePollResults(t *testing.T) {
	c := NewMockCache()
	ctx := context.Background()

	require.NoError(t, c.SetPollResults(ctx, &models.PollResults{PollID: 2}))
	c.InvalidatePollResults(ctx, 2)

	_, err := c.GetPollResults(ctx, 2)
	assert.ErrorIs(t, err, ErrKeyNotFound)

	// Invalidating an absent key is harmless
	c.InvalidatePollResults(ctx, 2)
}

func TestMockCacheHasNoClient(t *testing.T) {
	c := NewMockCache()

	_, err := c.Client()
	assert.ErrorIs(t, err, ErrRedisNotAvailable)
}

func TestWithLock_MutualExclusion(t *testing.T) {
	locks := NewLockService(NewMockCache())

	counter := 0
	var wg sync.WaitGroup
	const workers = 20
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			_ = locks.WithLock("test_lock", time.Second, func() error {
				counter++
				return nil
			})
		}()
	}
	wg.Wait()

	assert.Equal(t, workers, counter)
}

func TestWithLock_IndependentNames(t *testing.T) {
	locks := NewLockService(NewMockCache())

	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan struct{})

	go func() {
		_ = locks.WithLock("lock_a", time.Second, func() error {
			close(started)
			<-release
			return nil
		})
	}()

	<-started

	// A different lock name must not block
	go func() {
		_ = locks.WithLock("lock_b", time.Second, func() error {
			close(done)
			return nil
		})
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("independent lock blocked")
	}
	close(release)
}

func TestWithLock_PropagatesActionError(t *testing.T) {
	locks := NewLockService(NewMockCache())

	err := locks.WithLock("err_lock", time.Second, func() error {
		return ErrKeyNotFound
	})
	assert.ErrorIs(t, err, ErrKeyNotFound)
}
