package registry

import (
	"context"
	"net/http"
	"strings"

	"kontribute/internal/storyservice"
)

// Resolver turns registry rows into story-service actors. It satisfies
// shard.Resolver[storyservice.Actor].
type Resolver struct {
	Repo   *Repo
	Client *http.Client
}

func NewResolver(repo *Repo, client *http.Client) *Resolver {
	return &Resolver{Repo: repo, Client: client}
}

func (r *Resolver) Endpoints(ctx context.Context, partitionKey string) ([]storyservice.Actor, error) {
	eps, err := r.Repo.Candidates(ctx, partitionKey)
	if err != nil {
		return nil, err
	}
	actors := make([]storyservice.Actor, 0, len(eps))
	for _, ep := range eps {
		actors = append(actors, storyservice.NewHTTPActor(ep.BaseURL, partitionKey, r.Client))
	}
	return actors, nil
}

// Static resolves every partition to the same configured replicas, in the
// configured order.
type Static struct {
	BaseURLs []string
	Client   *http.Client
}

func (s Static) Endpoints(ctx context.Context, partitionKey string) ([]storyservice.Actor, error) {
	actors := make([]storyservice.Actor, 0, len(s.BaseURLs))
	for _, u := range s.BaseURLs {
		if u = strings.TrimSpace(u); u == "" {
			continue
		}
		actors = append(actors, storyservice.NewHTTPActor(u, partitionKey, s.Client))
	}
	return actors, nil
}
