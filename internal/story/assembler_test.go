package story

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kontribute/internal/keys"
	"kontribute/internal/shard"
	"kontribute/internal/storyservice"
	"kontribute/pkg/models"
)

// fakeActor is an in-memory replica keyed by sort key.
type fakeActor struct {
	stories   map[string][]models.Story
	proposals map[string]models.Result[models.Proposal]
	delay     func(sortKey string) time.Duration
	fail      error

	mu    sync.Mutex
	calls []string
}

func (f *fakeActor) wait(ctx context.Context, sk string) error {
	f.mu.Lock()
	f.calls = append(f.calls, sk)
	f.mu.Unlock()

	if f.delay != nil {
		select {
		case <-time.After(f.delay(sk)):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return f.fail
}

func (f *fakeActor) GetStory(ctx context.Context, sortKey string) ([]models.Story, error) {
	if err := f.wait(ctx, sortKey); err != nil {
		return nil, err
	}
	return f.stories[sortKey], nil
}

func (f *fakeActor) GetProposal(ctx context.Context, sortKey string) (models.Result[models.Proposal], error) {
	if err := f.wait(ctx, sortKey); err != nil {
		return models.Result[models.Proposal]{}, err
	}
	r, ok := f.proposals[sortKey]
	if !ok {
		return models.Err[models.Proposal]("not found"), nil
	}
	return r, nil
}

func clientFor(actors ...storyservice.Actor) *shard.Client[storyservice.Actor] {
	return shard.NewClient[storyservice.Actor](shard.ResolverFunc[storyservice.Actor](
		func(ctx context.Context, pk string) ([]storyservice.Actor, error) {
			return actors, nil
		}), shard.Options{})
}

const storyKey = "author_abc_story_the%20hollow%20tree"

func proposalKey(t *testing.T, i int) string {
	t.Helper()
	k, err := keys.ProposalKeyOf(storyKey, i)
	require.NoError(t, err)
	return k
}

func populated(t *testing.T, count int) *fakeActor {
	f := &fakeActor{
		stories: map[string][]models.Story{
			keys.EncodeComponent(storyKey): {{Title: "The%20Hollow%20Tree", GroupName: "Bonsai", Body: "%3Cp%3Eonce%3C%2Fp%3E", ProposalCount: count}},
		},
		proposals: map[string]models.Result[models.Proposal]{},
	}
	for i := 1; i <= count; i++ {
		f.proposals[proposalKey(t, i)] = models.OkContainer(models.Proposal{Title: string(rune('A' + i - 1))})
	}
	return f
}

func TestLoadAssemblesProposalsInOrder(t *testing.T) {
	full := populated(t, 3)
	empty := &fakeActor{}
	down := &fakeActor{fail: errors.New("unreachable")}

	var states []State
	a := NewAssembler(clientFor(down, empty, full), WithObserver(func(_ string, s State, _ int) {
		states = append(states, s)
	}))

	n, err := a.Load(context.Background(), storyKey)
	require.NoError(t, err)
	require.NotNil(t, n)

	assert.Equal(t, "The Hollow Tree", n.Story.Decoded().Title)
	require.Len(t, n.Proposals, 3)
	for i, p := range n.Proposals {
		assert.Equal(t, i+1, p.Index)
		assert.Equal(t, string(rune('A'+i)), p.Title)
		assert.False(t, p.Unresolved)
	}
	assert.Equal(t, []State{Fetching, FetchingProposals, FetchingProposals, FetchingProposals, Ready}, states)
}

func TestLoadParallelKeepsOrdinalOrder(t *testing.T) {
	full := populated(t, 3)
	first, second := proposalKey(t, 1), proposalKey(t, 2)
	// later proposals answer first
	full.delay = func(sk string) time.Duration {
		switch sk {
		case first:
			return 30 * time.Millisecond
		case second:
			return 15 * time.Millisecond
		}
		return 0
	}

	a := NewAssembler(clientFor(full), WithParallelProposals())
	n, err := a.Load(context.Background(), storyKey)
	require.NoError(t, err)
	require.Len(t, n.Proposals, 3)
	for i, p := range n.Proposals {
		assert.Equal(t, i+1, p.Index)
		assert.Equal(t, string(rune('A'+i)), p.Title)
	}
}

func TestLoadSequentialFetchOrder(t *testing.T) {
	full := populated(t, 4)
	a := NewAssembler(clientFor(full))

	_, err := a.Load(context.Background(), storyKey)
	require.NoError(t, err)

	want := []string{keys.EncodeComponent(storyKey)}
	for i := 1; i <= 4; i++ {
		want = append(want, proposalKey(t, i))
	}
	assert.Equal(t, want, full.calls)
}

func TestLoadUnresolvedPlaceholder(t *testing.T) {
	full := populated(t, 3)
	delete(full.proposals, proposalKey(t, 2))

	n, err := NewAssembler(clientFor(full)).Load(context.Background(), storyKey)
	require.NoError(t, err)
	require.Len(t, n.Proposals, 3)
	assert.Equal(t, models.UnresolvedProposal(2), n.Proposals[1])
	assert.False(t, n.Proposals[2].Unresolved)
}

func TestLoadStoryNotFound(t *testing.T) {
	var last State
	a := NewAssembler(clientFor(&fakeActor{}, &fakeActor{fail: errors.New("down")}),
		WithObserver(func(_ string, s State, _ int) { last = s }))

	n, err := a.Load(context.Background(), storyKey)
	assert.NoError(t, err)
	assert.Nil(t, n)
	assert.Equal(t, Ready, last)
}

func TestLoadProposalThreshold(t *testing.T) {
	for _, count := range []int{0, 1} {
		full := populated(t, count)
		n, err := NewAssembler(clientFor(full)).Load(context.Background(), storyKey)
		require.NoError(t, err)
		require.NotNil(t, n)
		assert.Empty(t, n.Proposals, "count %d", count)
		assert.Len(t, full.calls, 1, "only the story is fetched")
	}
}

func TestLoadMalformedKey(t *testing.T) {
	_, err := NewAssembler(clientFor()).Load(context.Background(), "nokey")
	assert.ErrorIs(t, err, keys.ErrMalformedKey)
}

func TestLoadCancelledDiscardsResult(t *testing.T) {
	full := populated(t, 3)
	ctx, cancel := context.WithCancel(context.Background())
	second := proposalKey(t, 2)
	full.delay = func(sk string) time.Duration {
		if sk == second {
			cancel()
		}
		return 0
	}

	var last State
	a := NewAssembler(clientFor(full), WithObserver(func(_ string, s State, _ int) { last = s }))
	n, err := a.Load(ctx, storyKey)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, n)
	assert.Equal(t, Failed, last)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "fetching_proposals", FetchingProposals.String())
	assert.Equal(t, "state(9)", State(9).String())
}
