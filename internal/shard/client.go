// Package shard fans a read out to every endpoint that may hold a partition
// and returns every settled outcome.
//
// One broken or stale endpoint must not hide the answer of another, so the
// client never stops at the first response and never fails as a whole.
// Outcomes come back in endpoint enumeration order, not completion order;
// reconciliation downstream depends on that order for tie-breaks.
package shard

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ErrEndpointPanic wraps a panic recovered from a query function.
var ErrEndpointPanic = errors.New("endpoint call panicked")

// Resolver enumerates the candidate endpoints for a partition key. The order
// must be deterministic for a given registry state.
type Resolver[E any] interface {
	Endpoints(ctx context.Context, partitionKey string) ([]E, error)
}

// ResolverFunc adapts a function to Resolver.
type ResolverFunc[E any] func(ctx context.Context, partitionKey string) ([]E, error)

func (f ResolverFunc[E]) Endpoints(ctx context.Context, partitionKey string) ([]E, error) {
	return f(ctx, partitionKey)
}

type Options struct {
	// MaxInFlight bounds concurrent calls within one fan-out; 0 means no bound.
	MaxInFlight int
	Logger      *zap.Logger
	Metrics     *Metrics
}

type Client[E any] struct {
	resolver Resolver[E]
	opts     Options
	log      *zap.Logger
}

func NewClient[E any](resolver Resolver[E], opts Options) *Client[E] {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Client[E]{resolver: resolver, opts: opts, log: log.Named("shard")}
}

// Query runs fn against every candidate endpoint of partitionKey concurrently
// and waits for all of them. The result has one outcome per endpoint in
// enumeration order. Query never fails: a resolver error comes back as a
// single rejected outcome and an empty candidate set as an empty slice.
// There are no retries at this layer.
func Query[E, T any](ctx context.Context, c *Client[E], partitionKey string, fn func(context.Context, E) (T, error)) []Outcome[T] {
	start := time.Now()

	endpoints, err := c.resolver.Endpoints(ctx, partitionKey)
	if err != nil {
		c.log.Debug("resolve failed", zap.String("partition", partitionKey), zap.Error(err))
		out := []Outcome[T]{Rejected[T](fmt.Errorf("resolve %s: %w", partitionKey, err))}
		c.opts.Metrics.observe(statuses(out), time.Since(start))
		return out
	}

	out := make([]Outcome[T], len(endpoints))
	var g errgroup.Group
	if c.opts.MaxInFlight > 0 {
		g.SetLimit(c.opts.MaxInFlight)
	}
	for i, ep := range endpoints {
		g.Go(func() error {
			out[i] = call(ctx, ep, fn)
			return nil
		})
	}
	_ = g.Wait()

	for i, o := range out {
		if !o.IsFulfilled() {
			c.log.Debug("endpoint rejected",
				zap.String("partition", partitionKey),
				zap.Int("endpoint", i),
				zap.Error(o.Err()),
			)
		}
	}
	c.opts.Metrics.observe(statuses(out), time.Since(start))
	return out
}

func call[E, T any](ctx context.Context, ep E, fn func(context.Context, E) (T, error)) (o Outcome[T]) {
	defer func() {
		if r := recover(); r != nil {
			o = Rejected[T](fmt.Errorf("%w: %v", ErrEndpointPanic, r))
		}
	}()

	if err := ctx.Err(); err != nil {
		return Rejected[T](err)
	}
	v, err := fn(ctx, ep)
	if err != nil {
		return Rejected[T](err)
	}
	return Fulfilled(v)
}

func statuses[T any](out []Outcome[T]) []string {
	s := make([]string, len(out))
	for i, o := range out {
		s[i] = o.Status()
	}
	return s
}
