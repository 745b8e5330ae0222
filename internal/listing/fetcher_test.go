package listing

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kontribute/pkg/models"
)

func listingServer(t *testing.T) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/api/v1/prices/:author", func(c *gin.Context) {
		if c.Param("author") == "missing" {
			c.JSON(http.StatusNotFound, gin.H{"error": "no such author"})
			return
		}
		c.Data(http.StatusOK, "application/json", []byte(`[[1,0,5],["2",3,"0"],[3,3,9.0],[4,1,2]]`))
	})
	r.GET("/api/v1/author/:author", func(c *gin.Context) {
		if c.Param("author") == "flagged" {
			c.Data(http.StatusOK, "application/json", []byte(`[[1,-1,0],[2,3.5,0],[3,3,0],[4,1,0]]`))
			return
		}
		c.Data(http.StatusOK, "application/json", []byte(`[[1,0,0],[2,3,0],[3,3,0],[4,1,0]]`))
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func TestHTTPSourceDecodesTriples(t *testing.T) {
	srv := listingServer(t)
	src := NewHTTPSource(srv.URL+"/", time.Second)

	prices, err := src.Prices(context.Background(), "authorX")
	require.NoError(t, err)
	assert.Equal(t, []models.ListingEntry{
		{TokenID: 1, Rarity: 0, Price: 5},
		{TokenID: 2, Rarity: 3, Price: 0},
		{TokenID: 3, Rarity: 3, Price: 9},
		{TokenID: 4, Rarity: 1, Price: 2},
	}, prices)

	rarities, err := src.Rarities(context.Background(), "authorX")
	require.NoError(t, err)
	assert.Len(t, rarities, 4)
}

func TestHTTPSourceStatusError(t *testing.T) {
	srv := listingServer(t)
	_, err := NewHTTPSource(srv.URL, time.Second).Prices(context.Background(), "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 404")
}

func TestHTTPSourceThroughPipeline(t *testing.T) {
	srv := listingServer(t)
	p := NewPipeline(NewHTTPSource(srv.URL, time.Second), nil)

	page, err := p.LoadPage(context.Background(), "authorX", 0, "3")
	require.NoError(t, err)
	require.Len(t, page.Entries, 1)
	assert.Equal(t, uint64(3), page.Entries[0].TokenID)
}

func TestHTTPSourceSkipsMalformedRows(t *testing.T) {
	srv := listingServer(t)
	src := NewHTTPSource(srv.URL, time.Second)

	rarities, err := src.Rarities(context.Background(), "flagged")
	require.NoError(t, err)
	assert.Equal(t, []models.ListingEntry{
		{TokenID: 1, Rarity: -1},
		{TokenID: 3, Rarity: 3},
		{TokenID: 4, Rarity: 1},
	}, rarities)

	page, err := NewPipeline(src, nil).LoadPage(context.Background(), "flagged", 0, "3")
	require.NoError(t, err)
	require.Len(t, page.Entries, 1)
	assert.Equal(t, uint64(3), page.Entries[0].TokenID)
}
