// Package gateway is the HTTP surface over story assembly, the marketplace
// listing and the ledger.
package gateway

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"kontribute/internal/keys"
	"kontribute/internal/ledger"
	"kontribute/internal/listing"
	"kontribute/pkg/models"
)

type StoryLoader interface {
	Load(ctx context.Context, storyKey string) (*models.AssembledNarrative, error)
}

type PageLoader interface {
	Load(ctx context.Context, q listing.Query) (models.Page, error)
}

type LedgerReader interface {
	Get(ctx context.Context, storyID uint64) (models.StoryRecord, error)
	GetStoryIDs(ctx context.Context, page int) ([]uint64, error)
	GetUserStories(ctx context.Context, principal string) ([]uint64, error)
}

type Handler struct {
	Stories  StoryLoader
	Listings PageLoader
	Ledger   LedgerReader
	log      *zap.Logger
}

func NewHandler(stories StoryLoader, listings PageLoader, ledger LedgerReader, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{Stories: stories, Listings: listings, Ledger: ledger, log: log.Named("gateway")}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/stories/:storyKey", h.getStory)                     // GET /stories/author_a_story_my%20slug
	rg.GET("/marketplace/:author", h.getMarketplace)             // GET /marketplace/a?page=0&sort=3&order=LtoH
	rg.GET("/ledger/stories", h.listLedgerStories)               // GET /ledger/stories?page=0
	rg.GET("/ledger/stories/:id", h.getLedgerStory)              // GET /ledger/stories/7
	rg.GET("/ledger/users/:principal/stories", h.getUserStories) // GET /ledger/users/p/stories
}

type storyView struct {
	Key       string            `json:"key"`
	Partition string            `json:"partition"`
	Story     models.Story      `json:"story"`
	Proposals []models.Proposal `json:"proposals"`
}

func (h *Handler) getStory(c *gin.Context) {
	key := escapedParam(c, "storyKey")
	pk, err := keys.PartitionKeyOf(key)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	n, err := h.Stories.Load(c.Request.Context(), key)
	if err != nil {
		if clientGone(c, err) {
			return
		}
		h.log.Error("story load failed", zap.String("key", key), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "story load failed"})
		return
	}
	if n == nil {
		c.JSON(http.StatusNotFound, gin.H{"status": "not_ready", "key": key})
		return
	}

	d := n.Decoded()
	c.JSON(http.StatusOK, storyView{Key: key, Partition: pk, Story: d.Story, Proposals: d.Proposals})
}

func (h *Handler) getMarketplace(c *gin.Context) {
	order, err := listing.ParseOrder(c.Query("order"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	pageNo, err := queryInt(c, "page")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "page must be a number"})
		return
	}
	q := listing.Query{
		AuthorID: strings.TrimSpace(decodedParam(c, "author")),
		Page:     pageNo,
		SortKey:  c.DefaultQuery("sort", listing.AllRarities),
		Order:    order,
	}

	page, err := h.Listings.Load(c.Request.Context(), q)
	switch {
	case err == nil:
	case errors.Is(err, listing.ErrInvalidPage), errors.Is(err, listing.ErrInvalidSortKey), errors.Is(err, listing.ErrMissingAuthor):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	case clientGone(c, err):
		return
	default:
		h.log.Warn("marketplace load failed", zap.String("author", q.AuthorID), zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "listing unavailable"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"author": q.AuthorID,
		"sort":   q.SortKey,
		"rarity": rarityLabel(q.SortKey),
		"order":  q.Order.String(),
		"page":   page,
	})
}

func (h *Handler) getLedgerStory(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "story id must be a number"})
		return
	}
	rec, err := h.Ledger.Get(c.Request.Context(), id)
	if err != nil {
		h.ledgerError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (h *Handler) listLedgerStories(c *gin.Context) {
	page, err := queryInt(c, "page")
	if err != nil || page < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "page must be >= 0"})
		return
	}
	ids, err := h.Ledger.GetStoryIDs(c.Request.Context(), page)
	if err != nil {
		h.ledgerError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"page": page, "ids": ids})
}

func (h *Handler) getUserStories(c *gin.Context) {
	principal := strings.TrimSpace(decodedParam(c, "principal"))
	ids, err := h.Ledger.GetUserStories(c.Request.Context(), principal)
	if err != nil {
		h.ledgerError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"principal": principal, "ids": ids})
}

func (h *Handler) ledgerError(c *gin.Context, err error) {
	var remote *ledger.RemoteError
	switch {
	case errors.As(err, &remote):
		c.JSON(http.StatusNotFound, gin.H{"error": remote.Msg})
	case errors.Is(err, ledger.ErrEmpty):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case clientGone(c, err):
	default:
		h.log.Warn("ledger call failed", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "ledger unavailable"})
	}
}

// clientGone reports whether err is the request's own cancellation. Such
// results are dropped without a response body.
func clientGone(c *gin.Context, err error) bool {
	if c.Request.Context().Err() == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		c.Abort()
		return true
	}
	return false
}

func rarityLabel(sortKey string) string {
	r, err := strconv.Atoi(sortKey)
	if err != nil {
		return ""
	}
	return listing.RarityName(r)
}

// queryInt reads an optional integer query parameter; absent means 0.
func queryInt(c *gin.Context, name string) (int, error) {
	s := strings.TrimSpace(c.Query(name))
	if s == "" {
		return 0, nil
	}
	return strconv.Atoi(s)
}

// escapedParam returns a path parameter exactly as the client escaped it.
// Story keys embed percent-encoded slugs, so the decoded form names another record.
func escapedParam(c *gin.Context, name string) string {
	v := c.Param(name)
	if c.Request.URL.RawPath != "" {
		return v
	}
	return (&url.URL{Path: v}).EscapedPath()
}

func decodedParam(c *gin.Context, name string) string {
	v := c.Param(name)
	if c.Request.URL.RawPath == "" {
		return v
	}
	if d, err := url.PathUnescape(v); err == nil {
		return d
	}
	return v
}
