package watch

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kontribute/internal/listing"
	"kontribute/pkg/models"
)

type recordingLoader struct {
	mu      sync.Mutex
	queries []listing.Query
	fail    bool
}

func (l *recordingLoader) Load(ctx context.Context, q listing.Query) (models.Page, error) {
	l.mu.Lock()
	l.queries = append(l.queries, q)
	l.mu.Unlock()
	if l.fail {
		return models.Page{}, errors.New("listing backend down")
	}
	return models.Page{
		Index:   q.Page,
		Entries: []models.ListingEntry{{TokenID: uint64(q.Page + 1), Price: 1}},
		HasNext: true,
		HasPrev: q.Page > 0,
	}, nil
}

func startWatch(t *testing.T, loader PageLoader, interval time.Duration) (*Hub, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	hub := NewHub()
	h := NewHandler(hub, loader, interval, nil)

	r := gin.New()
	r.GET("/ws/marketplace/:author", h.Serve)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return hub, "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/marketplace/"
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ws.Close() })
	return ws
}

func next(t *testing.T, ws *websocket.Conn) Message {
	t.Helper()
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))
	var m Message
	require.NoError(t, ws.ReadJSON(&m))
	return m
}

func TestWatchCursorControls(t *testing.T) {
	hub, base := startWatch(t, &recordingLoader{}, time.Hour)
	ws := dial(t, base+"alice?sort=2")

	m := next(t, ws)
	assert.Equal(t, "page", m.Type)
	assert.Equal(t, "alice", m.Author)
	assert.Equal(t, "2", m.Sort)
	require.NotNil(t, m.Page)
	assert.Equal(t, 0, m.Page.Index)

	require.NoError(t, ws.WriteJSON(control{Action: "next"}))
	m = next(t, ws)
	assert.Equal(t, 1, m.Page.Index)

	require.NoError(t, ws.WriteJSON(control{Action: "select", Sort: "3"}))
	m = next(t, ws)
	assert.Equal(t, "3", m.Sort)
	assert.Equal(t, 0, m.Page.Index, "changing rarity resets the page")

	require.NoError(t, ws.WriteJSON(control{Action: "select", Author: "bob", Sort: "3"}))
	m = next(t, ws)
	assert.Equal(t, "bob", m.Author)
	assert.Equal(t, 1, hub.Stats().ByAuthor["bob"])

	require.NoError(t, ws.WriteJSON(control{Action: "order", Order: "HtoL"}))
	m = next(t, ws)
	assert.Equal(t, "HtoL", m.Order)
}

func TestWatchRefreshesOnInterval(t *testing.T) {
	loader := &recordingLoader{}
	_, base := startWatch(t, loader, 20*time.Millisecond)
	ws := dial(t, base+"alice")

	for range 3 {
		m := next(t, ws)
		assert.Equal(t, "page", m.Type)
	}
}

func TestWatchReportsLoadErrors(t *testing.T) {
	_, base := startWatch(t, &recordingLoader{fail: true}, time.Hour)
	ws := dial(t, base+"alice")

	m := next(t, ws)
	assert.Equal(t, "error", m.Type)
	assert.Contains(t, m.Error, "backend down")
	assert.Nil(t, m.Page)
}

func TestWatchUnregistersOnClose(t *testing.T) {
	hub, base := startWatch(t, &recordingLoader{}, time.Hour)
	ws := dial(t, base+"alice")
	next(t, ws)
	assert.Equal(t, 1, hub.Stats().Watchers)

	require.NoError(t, ws.Close())
	assert.Eventually(t, func() bool { return hub.Stats().Watchers == 0 }, 2*time.Second, 10*time.Millisecond)
}
