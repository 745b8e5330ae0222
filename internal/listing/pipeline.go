package listing

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"kontribute/pkg/models"
)

var (
	ErrMissingAuthor  = errors.New("listing: author id required")
	ErrInvalidPage    = errors.New("listing: page must be >= 0")
	ErrInvalidSortKey = errors.New("listing: sort key must be a rarity number")
	ErrInvalidOrder   = errors.New("listing: unknown price order")
)

// AllRarities is the sort key that disables rarity filtering.
const AllRarities = "0"

var rarityNames = []string{"All", "Common", "Uncommon", "Rare", "Epic", "Legendary", "Artifact"}

// RarityName returns the display label for a rarity level.
func RarityName(r int) string {
	if r < 0 || r >= len(rarityNames) {
		return "Rarity " + strconv.Itoa(r)
	}
	return rarityNames[r]
}

// Order is the price ordering applied before pagination.
type Order int

const (
	SourceOrder Order = iota
	PriceAsc
	PriceDesc
)

func (o Order) String() string {
	switch o {
	case PriceAsc:
		return "LtoH"
	case PriceDesc:
		return "HtoL"
	default:
		return ""
	}
}

// ParseOrder accepts "", "LtoH"/"asc" and "HtoL"/"desc".
func ParseOrder(s string) (Order, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "source":
		return SourceOrder, nil
	case "ltoh", "asc":
		return PriceAsc, nil
	case "htol", "desc":
		return PriceDesc, nil
	}
	return SourceOrder, fmt.Errorf("%w: %q", ErrInvalidOrder, s)
}

// Query selects one page of an author's marketplace.
type Query struct {
	AuthorID string
	Page     int
	SortKey  string
	Order    Order
}

type Pipeline struct {
	Source Source
	log    *zap.Logger
}

func NewPipeline(src Source, log *zap.Logger) *Pipeline {
	if log == nil {
		log = zap.NewNop()
	}
	return &Pipeline{Source: src, log: log.Named("listing")}
}

// LoadPage is Load without a price order.
func (p *Pipeline) LoadPage(ctx context.Context, authorID string, page int, sortKey string) (models.Page, error) {
	return p.Load(ctx, Query{AuthorID: authorID, Page: page, SortKey: sortKey})
}

// Load fetches the author's listing, keeps entries that are for sale, narrows
// them to the requested rarity and returns the requested window of
// models.PageSize entries. A page past the end is empty, not an error.
func (p *Pipeline) Load(ctx context.Context, q Query) (models.Page, error) {
	if strings.TrimSpace(q.AuthorID) == "" {
		return models.Page{}, ErrMissingAuthor
	}
	if q.Page < 0 {
		return models.Page{}, ErrInvalidPage
	}
	rarity, filter, err := parseSortKey(q.SortKey)
	if err != nil {
		return models.Page{}, err
	}

	start := time.Now()
	var prices, rarities []models.ListingEntry

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		prices, err = p.Source.Prices(gctx, q.AuthorID)
		return err
	})
	if filter {
		g.Go(func() error {
			var err error
			rarities, err = p.Source.Rarities(gctx, q.AuthorID)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		p.log.Warn("listing fetch failed", zap.String("author", q.AuthorID), zap.Error(err))
		return models.Page{}, err
	}
	if err := ctx.Err(); err != nil {
		return models.Page{}, err
	}

	entries := ForSale(prices)
	if filter {
		entries = FilterRarity(entries, rarities, rarity)
	}
	SortByPrice(entries, q.Order)

	out := Paginate(entries, q.Page)
	p.log.Debug("listing page",
		zap.String("author", q.AuthorID),
		zap.Int("page", q.Page),
		zap.String("sort", q.SortKey),
		zap.Int("matched", len(entries)),
		zap.Int("returned", len(out.Entries)),
		zap.Duration("took", time.Since(start)),
	)
	return out, nil
}

func parseSortKey(s string) (int, bool, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == AllRarities {
		return 0, false, nil
	}
	r, err := strconv.Atoi(s)
	if err != nil || r < 0 {
		return 0, false, fmt.Errorf("%w: %q", ErrInvalidSortKey, s)
	}
	if r == 0 {
		return 0, false, nil
	}
	return r, true, nil
}

// ForSale keeps entries with a positive price, in source order.
func ForSale(entries []models.ListingEntry) []models.ListingEntry {
	out := make([]models.ListingEntry, 0, len(entries))
	for _, e := range entries {
		if e.ForSale() {
			out = append(out, e)
		}
	}
	return out
}

// FilterRarity keeps the for-sale entries whose token has the given rarity
// in the rarity listing. The for-sale order is preserved.
func FilterRarity(forSale, rarities []models.ListingEntry, rarity int) []models.ListingEntry {
	wanted := make(map[uint64]struct{}, len(rarities))
	for _, r := range rarities {
		if r.Rarity == rarity {
			wanted[r.TokenID] = struct{}{}
		}
	}
	out := make([]models.ListingEntry, 0, len(forSale))
	for _, e := range forSale {
		if _, ok := wanted[e.TokenID]; ok {
			e.Rarity = rarity
			out = append(out, e)
		}
	}
	return out
}

// SortByPrice orders entries in place. Equal prices keep their source order.
func SortByPrice(entries []models.ListingEntry, o Order) {
	switch o {
	case PriceAsc:
		slices.SortStableFunc(entries, func(a, b models.ListingEntry) int {
			return cmpUint(a.Price, b.Price)
		})
	case PriceDesc:
		slices.SortStableFunc(entries, func(a, b models.ListingEntry) int {
			return cmpUint(b.Price, a.Price)
		})
	}
}

func cmpUint(a, b uint64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// Paginate returns window [page*PageSize, (page+1)*PageSize) of entries.
func Paginate(entries []models.ListingEntry, page int) models.Page {
	out := models.Page{Index: page, Entries: []models.ListingEntry{}, HasPrev: page > 0}
	if page < 0 {
		out.HasPrev = false
		return out
	}
	if len(entries) == 0 || page > (len(entries)-1)/models.PageSize {
		return out
	}
	lo := page * models.PageSize
	hi := min(lo+models.PageSize, len(entries))
	out.Entries = append(out.Entries, entries[lo:hi]...)
	out.HasNext = len(out.Entries) == models.PageSize
	return out
}
