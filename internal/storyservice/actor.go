// Package storyservice talks to one story-service replica of the
// partitioned backend.
package storyservice

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"kontribute/pkg/models"
)

// Actor is one replica that may hold a partition.
type Actor interface {
	// GetStory returns zero or one stories. An empty slice means the replica
	// does not hold the record.
	GetStory(ctx context.Context, sortKey string) ([]models.Story, error)
	GetProposal(ctx context.Context, sortKey string) (models.Result[models.Proposal], error)
}

// HTTPActor reads one partition from a replica's JSON API:
//
//	GET {BaseURL}/partitions/{pk}/stories/{sk}
//	GET {BaseURL}/partitions/{pk}/proposals/{sk}
type HTTPActor struct {
	BaseURL   string
	Partition string
	Client    *http.Client
}

func NewHTTPActor(baseURL, partition string, client *http.Client) *HTTPActor {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &HTTPActor{
		BaseURL:   strings.TrimRight(baseURL, "/"),
		Partition: partition,
		Client:    client,
	}
}

func (a *HTTPActor) GetStory(ctx context.Context, sortKey string) ([]models.Story, error) {
	body, status, err := a.get(ctx, "stories", sortKey)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return []models.Story{}, nil
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("story-service %s: status %d: %s", a.BaseURL, status, string(body))
	}
	stories, err := decodeStories(body)
	if err != nil {
		return nil, fmt.Errorf("story-service %s: %w", a.BaseURL, err)
	}
	return stories, nil
}

func (a *HTTPActor) GetProposal(ctx context.Context, sortKey string) (models.Result[models.Proposal], error) {
	var res models.Result[models.Proposal]

	body, status, err := a.get(ctx, "proposals", sortKey)
	if err != nil {
		return res, err
	}
	if status == http.StatusNotFound {
		return models.Err[models.Proposal]("proposal not found"), nil
	}
	if status != http.StatusOK {
		return res, fmt.Errorf("story-service %s: status %d: %s", a.BaseURL, status, string(body))
	}
	if err := json.Unmarshal(body, &res); err != nil {
		return res, fmt.Errorf("story-service %s: decode proposal: %w", a.BaseURL, err)
	}
	return res, nil
}

func (a *HTTPActor) get(ctx context.Context, kind, sortKey string) ([]byte, int, error) {
	u := a.BaseURL + "/partitions/" + url.PathEscape(a.Partition) + "/" + kind + "/" + url.PathEscape(sortKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("story-service: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := a.Client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("story-service %s: request: %w", a.BaseURL, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("story-service %s: read body: %w", a.BaseURL, err)
	}
	return body, resp.StatusCode, nil
}

// decodeStories accepts an array of stories, a bare story object or null.
func decodeStories(body []byte) ([]models.Story, error) {
	raw := bytes.TrimSpace(body)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return []models.Story{}, nil
	}
	if raw[0] == '[' {
		var stories []models.Story
		if err := json.Unmarshal(raw, &stories); err != nil {
			return nil, fmt.Errorf("decode stories: %w", err)
		}
		return stories, nil
	}
	var s models.Story
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("decode story: %w", err)
	}
	return []models.Story{s}, nil
}
