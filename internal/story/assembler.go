// Package story assembles a story and its numbered continuation proposals
// from the partitioned story backend.
package story

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"kontribute/internal/keys"
	"kontribute/internal/reconcile"
	"kontribute/internal/shard"
	"kontribute/internal/storyservice"
	"kontribute/pkg/models"
)

type State int

const (
	Idle State = iota
	Fetching
	FetchingProposals
	Ready
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Fetching:
		return "fetching"
	case FetchingProposals:
		return "fetching_proposals"
	case Ready:
		return "ready"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Observer sees every state transition of a load. n is the proposal index
// for FetchingProposals and 0 otherwise.
type Observer func(storyKey string, s State, n int)

type Option func(*Assembler)

// WithParallelProposals fetches all proposals concurrently. The resulting
// order is still by ordinal index. An Observer then has to be safe for
// concurrent use.
func WithParallelProposals() Option {
	return func(a *Assembler) { a.parallel = true }
}

func WithObserver(o Observer) Option {
	return func(a *Assembler) { a.observe = o }
}

func WithLogger(l *zap.Logger) Option {
	return func(a *Assembler) { a.log = l }
}

type Assembler struct {
	client   *shard.Client[storyservice.Actor]
	parallel bool
	observe  Observer
	log      *zap.Logger
}

func NewAssembler(client *shard.Client[storyservice.Actor], opts ...Option) *Assembler {
	a := &Assembler{client: client}
	for _, o := range opts {
		o(a)
	}
	if a.log == nil {
		a.log = zap.NewNop()
	}
	a.log = a.log.Named("story")
	return a
}

// Load fetches the story under storyKey and, when it declares more than one
// proposal, every proposal 1..n.
//
// A story that no replica returns is not an error: Load returns (nil, nil).
// Proposals that cannot be resolved come back as placeholders. The only
// errors are a malformed key and ctx ending before the result is committed;
// in the latter case the partial result is dropped.
func (a *Assembler) Load(ctx context.Context, storyKey string) (*models.AssembledNarrative, error) {
	pk, err := keys.PartitionKeyOf(storyKey)
	if err != nil {
		a.transition(storyKey, Failed, 0)
		return nil, err
	}

	a.transition(storyKey, Fetching, 0)
	sortKey := keys.EncodeComponent(storyKey)
	outcomes := shard.Query(ctx, a.client, pk, func(ctx context.Context, act storyservice.Actor) ([]models.Story, error) {
		return act.GetStory(ctx, sortKey)
	})
	if err := ctx.Err(); err != nil {
		a.transition(storyKey, Failed, 0)
		return nil, err
	}

	stories, err := reconcile.FirstUsable(outcomes)
	if errors.Is(err, reconcile.ErrNotFound) {
		a.log.Debug("story not available", zap.String("key", storyKey), zap.String("partition", pk))
		a.transition(storyKey, Ready, 0)
		return nil, nil
	}
	st := stories[0]

	proposals := []models.Proposal{}
	if st.ProposalCount > 1 {
		if a.parallel {
			proposals, err = a.loadParallel(ctx, pk, storyKey, st.ProposalCount)
		} else {
			proposals, err = a.loadSequential(ctx, pk, storyKey, st.ProposalCount)
		}
		if err != nil {
			a.transition(storyKey, Failed, 0)
			return nil, err
		}
	}

	if err := ctx.Err(); err != nil {
		a.transition(storyKey, Failed, 0)
		return nil, err
	}
	a.transition(storyKey, Ready, 0)
	return &models.AssembledNarrative{Story: st, Proposals: proposals}, nil
}

func (a *Assembler) loadSequential(ctx context.Context, pk, storyKey string, n int) ([]models.Proposal, error) {
	out := make([]models.Proposal, 0, n)
	for i := 1; i <= n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		a.transition(storyKey, FetchingProposals, i)
		p, err := a.loadProposal(ctx, pk, storyKey, i)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func (a *Assembler) loadParallel(ctx context.Context, pk, storyKey string, n int) ([]models.Proposal, error) {
	out := make([]models.Proposal, n)
	g, gctx := errgroup.WithContext(ctx)
	for i := 1; i <= n; i++ {
		g.Go(func() error {
			a.transition(storyKey, FetchingProposals, i)
			p, err := a.loadProposal(gctx, pk, storyKey, i)
			if err != nil {
				return err
			}
			out[i-1] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (a *Assembler) loadProposal(ctx context.Context, pk, storyKey string, i int) (models.Proposal, error) {
	sk, err := keys.ProposalKeyOf(storyKey, i)
	if err != nil {
		return models.Proposal{}, err
	}
	outcomes := shard.Query(ctx, a.client, pk, func(ctx context.Context, act storyservice.Actor) (models.Result[models.Proposal], error) {
		return act.GetProposal(ctx, sk)
	})
	p, err := reconcile.FirstSuccessfulOk(outcomes)
	if err != nil {
		a.log.Debug("proposal unresolved", zap.String("key", sk), zap.Int("index", i))
		return models.UnresolvedProposal(i), nil
	}
	p.Index = i
	return p, nil
}

func (a *Assembler) transition(storyKey string, s State, n int) {
	if a.observe != nil {
		a.observe(storyKey, s, n)
	}
}
