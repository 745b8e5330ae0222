package shard

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type replica struct {
	name  string
	delay time.Duration
	err   error
	panic bool
}

func staticResolver(eps ...replica) Resolver[replica] {
	return ResolverFunc[replica](func(ctx context.Context, pk string) ([]replica, error) {
		return eps, nil
	})
}

func fetchName(ctx context.Context, r replica) (string, error) {
	if r.panic {
		panic("boom")
	}
	select {
	case <-time.After(r.delay):
	case <-ctx.Done():
		return "", ctx.Err()
	}
	if r.err != nil {
		return "", r.err
	}
	return r.name, nil
}

func TestQueryKeepsEnumerationOrder(t *testing.T) {
	c := NewClient(staticResolver(
		replica{name: "a", delay: 30 * time.Millisecond},
		replica{name: "b", delay: 1 * time.Millisecond},
		replica{name: "c", delay: 15 * time.Millisecond},
	), Options{})

	out := Query(context.Background(), c, "user_x", fetchName)
	require.Len(t, out, 3)
	for i, want := range []string{"a", "b", "c"} {
		assert.True(t, out[i].IsFulfilled())
		assert.Equal(t, want, out[i].Value())
	}
}

func TestQuerySettlesFailuresWithoutAborting(t *testing.T) {
	down := errors.New("connection refused")
	c := NewClient(staticResolver(
		replica{err: down},
		replica{panic: true},
		replica{name: "ok"},
	), Options{})

	out := Query(context.Background(), c, "user_x", fetchName)
	require.Len(t, out, 3)

	assert.False(t, out[0].IsFulfilled())
	assert.ErrorIs(t, out[0].Err(), down)
	assert.Equal(t, "rejected", out[0].Status())

	assert.False(t, out[1].IsFulfilled())
	assert.ErrorIs(t, out[1].Err(), ErrEndpointPanic)

	assert.True(t, out[2].IsFulfilled())
	assert.Equal(t, "ok", out[2].Value())
	assert.NoError(t, out[2].Err())
}

func TestQueryResolverFailure(t *testing.T) {
	boom := errors.New("index unavailable")
	c := NewClient[replica](ResolverFunc[replica](func(ctx context.Context, pk string) ([]replica, error) {
		return nil, boom
	}), Options{})

	out := Query(context.Background(), c, "user_x", fetchName)
	require.Len(t, out, 1)
	assert.ErrorIs(t, out[0].Err(), boom)
}

func TestQueryNoCandidates(t *testing.T) {
	c := NewClient(staticResolver(), Options{})
	out := Query(context.Background(), c, "user_x", fetchName)
	assert.Empty(t, out)
}

func TestQueryCancelledContext(t *testing.T) {
	c := NewClient(staticResolver(replica{name: "a", delay: time.Second}, replica{name: "b"}), Options{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out := Query(ctx, c, "user_x", fetchName)
	require.Len(t, out, 2)
	for _, o := range out {
		assert.ErrorIs(t, o.Err(), context.Canceled)
	}
}

func TestQueryMaxInFlight(t *testing.T) {
	var inFlight, peak int32
	eps := make([]replica, 6)
	for i := range eps {
		eps[i] = replica{name: "r", delay: 5 * time.Millisecond}
	}
	c := NewClient(staticResolver(eps...), Options{MaxInFlight: 2})

	out := Query(context.Background(), c, "user_x", func(ctx context.Context, r replica) (string, error) {
		n := atomic.AddInt32(&inFlight, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		defer atomic.AddInt32(&inFlight, -1)
		return fetchName(ctx, r)
	})
	assert.Len(t, out, 6)
	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(2))
}

func TestQueryRecordsMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	c := NewClient(staticResolver(replica{name: "a"}, replica{err: errors.New("x")}), Options{Metrics: m})

	Query(context.Background(), c, "user_x", fetchName)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.outcomes.WithLabelValues("fulfilled")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.outcomes.WithLabelValues("rejected")))
}
