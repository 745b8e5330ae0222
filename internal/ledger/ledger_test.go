package ledger

import (
	"context"
	"errors"
	"math"
	"net"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"kontribute/pkg/models"
)

func startLedger(t *testing.T, impl StoryActorServer) *Client {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	srv := NewServer(impl, nil)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	cc, err := Dial("passthrough:///bufnet", grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
		return lis.DialContext(ctx)
	}))
	require.NoError(t, err)
	t.Cleanup(func() { _ = cc.Close() })
	return NewClient(cc)
}

func seeded() *Memory {
	m := NewMemory()
	addr := "0xabc"
	m.Add(models.StoryRecord{Author: "alice", TotalVotes: 4, Story: models.StoryText{Title: "Bonsai", Story: "chapter one", Address: &addr}})
	m.Add(models.StoryRecord{Author: "bob", Story: models.StoryText{Title: "Ninja"}})
	m.Add(models.StoryRecord{Author: "alice", Story: models.StoryText{Title: "Bonsai II"}})
	return m
}

func TestGetOverGRPC(t *testing.T) {
	c := startLedger(t, seeded())

	rec, err := c.Get(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), rec.StoryID)
	assert.Equal(t, "alice", rec.Author)
	assert.Equal(t, uint64(4), rec.TotalVotes)
	require.NotNil(t, rec.Story.Address)
	assert.Equal(t, "0xabc", *rec.Story.Address)
}

func TestGetErrTag(t *testing.T) {
	c := startLedger(t, seeded())

	_, err := c.Get(context.Background(), 99)
	var remote *RemoteError
	require.ErrorAs(t, err, &remote)
	assert.Equal(t, "Get", remote.Method)
	assert.Contains(t, remote.Msg, "99")
}

func TestStoryIDs(t *testing.T) {
	m := NewMemory()
	for range StoryIDsPageSize + 2 {
		m.Add(models.StoryRecord{Author: "carol"})
	}
	c := startLedger(t, m)
	ctx := context.Background()

	first, err := c.GetStoryIDs(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, first, StoryIDsPageSize)
	assert.Equal(t, uint64(1), first[0])

	second, err := c.GetStoryIDs(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []uint64{11, 12}, second)

	for _, page := range []int{2, 7, 1 << 60, math.MaxInt} {
		past, err := c.GetStoryIDs(ctx, page)
		require.NoError(t, err)
		assert.Empty(t, past, "page %d", page)
	}
}

func TestUserStories(t *testing.T) {
	c := startLedger(t, seeded())
	ctx := context.Background()

	ids, err := c.GetUserStories(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, []uint64{1, 3}, ids)

	none, err := c.GetUserStories(ctx, "dave")
	require.NoError(t, err)
	assert.Empty(t, none)

	_, err = c.GetUserStories(ctx, "")
	var remote *RemoteError
	assert.ErrorAs(t, err, &remote)
}

type panicky struct{ *Memory }

func (panicky) Get(context.Context, *GetRequest) (*models.Result[models.StoryRecord], error) {
	panic("corrupt state")
}

func TestServerRecoversPanics(t *testing.T) {
	c := startLedger(t, panicky{NewMemory()})

	_, err := c.Get(context.Background(), 1)
	require.Error(t, err)
	assert.Equal(t, codes.Internal, status.Code(errors.Unwrap(err)))
}

func TestLoadSeed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.json")
	require.NoError(t, os.WriteFile(path, []byte(`[
		{"storyId": 7, "author": "alice", "totalVotes": 2, "story": {"title": "T", "story": "S"}},
		{"author": "bob", "story": {"title": "U", "story": "V"}}
	]`), 0o644))

	m := NewMemory()
	n, err := m.LoadSeed(path)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	res, err := m.Get(context.Background(), &GetRequest{StoryID: 8})
	require.NoError(t, err)
	rec, ok := res.Unwrap()
	require.True(t, ok)
	assert.Equal(t, "bob", rec.Author)
}
