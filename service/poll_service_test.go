package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"evoting-backend/models"
)

func TestGetPollResults_ZeroFill(t *testing.T) {
	env := newVoteTestEnv(t)
	ctx := context.Background()

	env.seedUser(t, "alice")
	pollID, candidates := env.seedPoll(t, "Tally Poll", true, "A", "B", "C")

	require.NoError(t, env.votes.CastVote(ctx, "alice", pollID, candidates[1]))

	results, err := env.polls.GetPollResults(ctx, pollID)
	require.NoError(t, err)

	assert.Equal(t, pollID, results.PollID)
	assert.Equal(t, int64(1), results.TotalVotes)
	require.Len(t, results.Tally, 3)
	assert.Equal(t, int64(0), results.Tally[0].Votes)
	assert.Equal(t, int64(1), results.Tally[1].Votes)
	assert.Equal(t, int64(0), results.Tally[2].Votes)

	// Tally order follows candidate insertion order
	assert.Equal(t, candidates[0], results.Tally[0].CandidateID)
	assert.Equal(t, candidates[1], results.Tally[1].CandidateID)
	assert.Equal(t, candidates[2], results.Tally[2].CandidateID)
}

func TestGetPollResults_NotFound(t *testing.T) {
	env := newVoteTestEnv(t)

	_, err := env.polls.GetPollResults(context.Background(), 9999)
	assert.ErrorIs(t, err, ErrPollNotFound)
}

func TestGetPollResults_CachedSnapshot(t *testing.T) {
	env := newVoteTestEnv(t)
	ctx := context.Background()

	pollID, _ := env.seedPoll(t, "Snapshot Poll", true, "A")

	first, err := env.polls.GetPollResults(ctx, pollID)
	require.NoError(t, err)

	// Cached snapshot is served back until invalidated
	cached, err := env.cache.GetPollResults(ctx, pollID)
	require.NoError(t, err)
	assert.Equal(t, first.PollID, cached.PollID)
	assert.Equal(t, first.TotalVotes, cached.TotalVotes)
}

func TestRemoveCandidate_DanglingVotesExcluded(t *testing.T) {
	env := newVoteTestEnv(t)
	ctx := context.Background()

	env.seedUser(t, "alice")
	env.seedUser(t, "bob")
	pollID, candidates := env.seedPoll(t, "Shrinking Poll", true, "Keep", "Drop")

	require.NoError(t, env.votes.CastVote(ctx, "alice", pollID, candidates[0]))
	require.NoError(t, env.votes.CastVote(ctx, "bob", pollID, candidates[1]))

	require.NoError(t, env.polls.RemoveCandidate(ctx, pollID, candidates[1]))

	// The removed candidate's vote row survives, but the tally only
	// covers candidates currently on the ballot
	var voteCount int64
	env.db.Model(&models.Vote{}).Where("poll_id = ?", pollID).Count(&voteCount)
	assert.Equal(t, int64(2), voteCount)

	results, err := env.polls.GetPollResults(ctx, pollID)
	require.NoError(t, err)
	require.Len(t, results.Tally, 1)
	assert.Equal(t, candidates[0], results.Tally[0].CandidateID)
	assert.Equal(t, int64(1), results.Tally[0].Votes)
	assert.Equal(t, int64(1), results.TotalVotes)
}

func TestUpdatePoll_PartialUpdate(t *testing.T) {
	env := newVoteTestEnv(t)
	ctx := context.Background()

	pollID, _ := env.seedPoll(t, "Before", true, "A")

	active := false
	updated, err := env.polls.UpdatePoll(ctx, pollID, &models.UpdatePollInput{IsActive: &active})
	require.NoError(t, err)

	// Only the provided field changes
	assert.Equal(t, "Before", updated.Title)
	assert.False(t, updated.IsActive)
}

// Deleting a poll announces one final update so the fan-out side can
// disconnect the poll's subscribers.
func TestDeletePoll_PublishesFinalUpdate(t *testing.T) {
	env := newVoteTestEnv(t)
	ctx := context.Background()

	pollID, _ := env.seedPoll(t, "Announce Delete", true, "A")

	require.NoError(t, env.polls.DeletePoll(ctx, pollID))

	assert.Equal(t, 1, env.publisher.count())
	assert.Contains(t, env.publisher.ids(), pollID)
}

func TestDeletePoll_Cascade(t *testing.T) {
	env := newVoteTestEnv(t)
	ctx := context.Background()

	env.seedUser(t, "alice")
	pollID, candidates := env.seedPoll(t, "Doomed", true, "A")
	require.NoError(t, env.votes.CastVote(ctx, "alice", pollID, candidates[0]))

	require.NoError(t, env.polls.DeletePoll(ctx, pollID))

	var count int64
	env.db.Model(&models.Poll{}).Where("id = ?", pollID).Count(&count)
	assert.Equal(t, int64(0), count)
	env.db.Model(&models.Candidate{}).Where("poll_id = ?", pollID).Count(&count)
	assert.Equal(t, int64(0), count)
	env.db.Model(&models.Vote{}).Where("poll_id = ?", pollID).Count(&count)
	assert.Equal(t, int64(0), count)

	// The freed username may vote in other polls still
	otherPoll, otherCandidates := env.seedPoll(t, "Next", true, "B")
	assert.NoError(t, env.votes.CastVote(ctx, "alice", otherPoll, otherCandidates[0]))
}
