// Package listing builds the paginated marketplace view of one author's
// tokens.
package listing

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"kontribute/pkg/models"
)

// Source is implemented by each listing backend. Both calls return triples
// [tokenId, x, price]; for Rarities x is the rarity, for Prices it is unused.
type Source interface {
	Name() string
	Prices(ctx context.Context, authorID string) ([]models.ListingEntry, error)
	Rarities(ctx context.Context, authorID string) ([]models.ListingEntry, error)
}

// HTTPSource reads the public listing API:
//
//	GET {BaseURL}/api/v1/prices/{author}
//	GET {BaseURL}/api/v1/author/{author}
type HTTPSource struct {
	BaseURL string
	Client  *http.Client
	Logger  *zap.Logger
}

func NewHTTPSource(baseURL string, timeout time.Duration) *HTTPSource {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPSource{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client:  &http.Client{Timeout: timeout},
	}
}

func (s *HTTPSource) Name() string { return "nftpkg" }

func (s *HTTPSource) Prices(ctx context.Context, authorID string) ([]models.ListingEntry, error) {
	return s.fetch(ctx, "prices", authorID)
}

func (s *HTTPSource) Rarities(ctx context.Context, authorID string) ([]models.ListingEntry, error) {
	return s.fetch(ctx, "author", authorID)
}

func (s *HTTPSource) fetch(ctx context.Context, kind, authorID string) ([]models.ListingEntry, error) {
	u := s.BaseURL + "/api/v1/" + kind + "/" + url.PathEscape(authorID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("%s %s: build request: %w", s.Name(), kind, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: do request: %w", s.Name(), kind, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%s %s: status %d: %s", s.Name(), kind, resp.StatusCode, string(body))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s %s: read body: %w", s.Name(), kind, err)
	}
	entries, skipped, err := models.DecodeListing(body)
	if err != nil {
		return nil, fmt.Errorf("%s %s: decode json: %w", s.Name(), kind, err)
	}
	if skipped > 0 && s.Logger != nil {
		s.Logger.Warn("skipped malformed listing rows",
			zap.String("source", s.Name()), zap.String("kind", kind),
			zap.String("author", authorID), zap.Int("skipped", skipped))
	}
	return entries, nil
}
