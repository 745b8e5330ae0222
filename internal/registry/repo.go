package registry

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// Wildcard is the partition value of endpoints that serve every partition.
const Wildcard = "*"

// Endpoint is one candidate replica for a partition.
type Endpoint struct {
	Partition string `json:"partition"`
	Position  int    `json:"position"`
	BaseURL   string `json:"base_url"`
}

type Repo struct {
	DB *sql.DB
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{DB: db}
}

// Add inserts or repositions an endpoint.
func (r *Repo) Add(ctx context.Context, ep Endpoint) error {
	ep.Partition = strings.TrimSpace(ep.Partition)
	ep.BaseURL = strings.TrimRight(strings.TrimSpace(ep.BaseURL), "/")
	if ep.Partition == "" || ep.BaseURL == "" {
		return fmt.Errorf("add endpoint: partition and base_url required")
	}

	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO shard_endpoints (partition, position, base_url)
		VALUES (?, ?, ?)
		ON CONFLICT(partition, base_url) DO UPDATE SET
			position = excluded.position
	`, ep.Partition, ep.Position, ep.BaseURL)
	if err != nil {
		return fmt.Errorf("add endpoint: %w", err)
	}
	return nil
}

func (r *Repo) Remove(ctx context.Context, partition, baseURL string) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `
		DELETE FROM shard_endpoints
		WHERE partition = ? AND base_url = ?
	`, strings.TrimSpace(partition), strings.TrimRight(strings.TrimSpace(baseURL), "/"))
	if err != nil {
		return false, fmt.Errorf("remove endpoint: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// List returns the endpoints registered for partition, or every endpoint
// when partition is empty.
func (r *Repo) List(ctx context.Context, partition string) ([]Endpoint, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if partition == "" {
		rows, err = r.DB.QueryContext(ctx, `
			SELECT partition, position, base_url
			FROM shard_endpoints
			ORDER BY partition, position, base_url
		`)
	} else {
		rows, err = r.DB.QueryContext(ctx, `
			SELECT partition, position, base_url
			FROM shard_endpoints
			WHERE partition = ?
			ORDER BY position, base_url
		`, partition)
	}
	if err != nil {
		return nil, fmt.Errorf("list endpoints: %w", err)
	}
	return scanEndpoints(rows)
}

// Candidates returns the endpoints that may hold partitionKey: the ones
// registered for it first, then wildcard ones, each group by position. A
// URL registered both ways is returned once, in its specific slot.
func (r *Repo) Candidates(ctx context.Context, partitionKey string) ([]Endpoint, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT partition, position, base_url
		FROM shard_endpoints
		WHERE partition = ? OR partition = ?
		ORDER BY CASE WHEN partition = ? THEN 1 ELSE 0 END, position, base_url
	`, partitionKey, Wildcard, Wildcard)
	if err != nil {
		return nil, fmt.Errorf("candidate endpoints: %w", err)
	}
	all, err := scanEndpoints(rows)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(all))
	out := all[:0]
	for _, ep := range all {
		if _, dup := seen[ep.BaseURL]; dup {
			continue
		}
		seen[ep.BaseURL] = struct{}{}
		out = append(out, ep)
	}
	return out, nil
}

func scanEndpoints(rows *sql.Rows) ([]Endpoint, error) {
	defer rows.Close()

	var out []Endpoint
	for rows.Next() {
		var ep Endpoint
		if err := rows.Scan(&ep.Partition, &ep.Position, &ep.BaseURL); err != nil {
			return nil, fmt.Errorf("scan endpoint: %w", err)
		}
		out = append(out, ep)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return out, nil
}
