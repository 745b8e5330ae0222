package watch

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"kontribute/internal/listing"
	"kontribute/pkg/models"
)

const (
	DefaultInterval = 3 * time.Second
	writeWait       = 5 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// PageLoader is satisfied by *listing.Pipeline.
type PageLoader interface {
	Load(ctx context.Context, q listing.Query) (models.Page, error)
}

// control is a client request to move its cursor.
//
//	{"action":"next"} {"action":"prev"} {"action":"refresh"}
//	{"action":"select","author":"a","sort":"3"}
//	{"action":"order","order":"LtoH"}
type control struct {
	Action string `json:"action"`
	Author string `json:"author"`
	Sort   string `json:"sort"`
	Order  string `json:"order"`
}

// Message is what the server pushes: a page, or an error for the current
// query.
type Message struct {
	Type   string       `json:"type"`
	Author string       `json:"author"`
	Sort   string       `json:"sort"`
	Order  string       `json:"order,omitempty"`
	Page   *models.Page `json:"page,omitempty"`
	Error  string       `json:"error,omitempty"`
}

type Handler struct {
	Hub      *Hub
	Loader   PageLoader
	Interval time.Duration
	log      *zap.Logger
}

func NewHandler(hub *Hub, loader PageLoader, interval time.Duration, log *zap.Logger) *Handler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{Hub: hub, Loader: loader, Interval: interval, log: log.Named("watch")}
}

// Serve handles GET .../:author?sort=&order= as a websocket.
func (h *Handler) Serve(c *gin.Context) {
	author := c.Param("author")
	if c.Request.URL.RawPath != "" {
		if d, err := url.PathUnescape(author); err == nil {
			author = d
		}
	}
	author = strings.TrimSpace(author)
	if author == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "author is required"})
		return
	}
	order, err := listing.ParseOrder(c.Query("order"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cur := listing.NewCursor(author)
	cur.Select(author, c.Query("sort"))
	cur.SetOrder(order)

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	h.Hub.add(ws, author)
	defer h.Hub.remove(ws)
	h.log.Debug("watcher connected", zap.String("author", author))

	// the connection's lifetime bounds every load; results that arrive
	// after it closes are dropped
	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	controls := make(chan control)
	go h.readControls(ctx, cancel, ws, controls)
	h.run(ctx, ws, cur, controls)
	h.log.Debug("watcher disconnected", zap.String("author", cur.Query().AuthorID))
}

func (h *Handler) readControls(ctx context.Context, cancel context.CancelFunc, ws *websocket.Conn, out chan<- control) {
	defer cancel()
	for {
		_, payload, err := ws.ReadMessage()
		if err != nil {
			return
		}
		var ctl control
		if err := json.Unmarshal(payload, &ctl); err != nil {
			h.log.Debug("ignoring malformed control", zap.Error(err))
			continue
		}
		select {
		case out <- ctl:
		case <-ctx.Done():
			return
		}
	}
}

func (h *Handler) run(ctx context.Context, ws *websocket.Conn, cur *listing.Cursor, controls <-chan control) {
	ticker := time.NewTicker(h.Interval)
	defer ticker.Stop()

	var last models.Page
	push := func() bool {
		q := cur.Query()
		page, err := h.Loader.Load(ctx, q)
		if ctx.Err() != nil {
			return false
		}
		msg := Message{Type: "page", Author: q.AuthorID, Sort: q.SortKey, Order: q.Order.String()}
		if err != nil {
			msg.Type = "error"
			msg.Error = err.Error()
		} else {
			last = page
			msg.Page = &page
		}
		_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
		return ws.WriteJSON(msg) == nil
	}

	if !push() {
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case ctl := <-controls:
			if h.apply(ws, cur, ctl, last) {
				ticker.Reset(h.Interval)
			}
		}
		if !push() {
			return
		}
	}
}

// apply moves the cursor and reports whether the query changed.
func (h *Handler) apply(ws *websocket.Conn, cur *listing.Cursor, ctl control, last models.Page) bool {
	switch ctl.Action {
	case "next":
		return cur.Next(last)
	case "prev":
		return cur.Prev()
	case "select":
		author := strings.TrimSpace(ctl.Author)
		if author == "" {
			author = cur.Query().AuthorID
		}
		if cur.Select(author, ctl.Sort) {
			h.Hub.retarget(ws, author)
			return true
		}
	case "order":
		o, err := listing.ParseOrder(ctl.Order)
		if err != nil {
			return false
		}
		return cur.SetOrder(o)
	}
	return false
}
