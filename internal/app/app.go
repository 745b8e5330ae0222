// Package app assembles the components the binaries share from the
// effective configuration.
package app

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"google.golang.org/grpc"

	"kontribute/internal/ledger"
	"kontribute/internal/listing"
	"kontribute/internal/registry"
	"kontribute/internal/shard"
	"kontribute/internal/story"
	"kontribute/internal/storyservice"
	"kontribute/pkg/database"
	"kontribute/pkg/utils"
)

// App holds the wired components. Close releases the registry database and
// the ledger connection.
type App struct {
	Config    utils.Config
	Registry  *registry.Repo
	Assembler *story.Assembler
	Pipeline  *listing.Pipeline
	Ledger    *ledger.Client

	db     *sql.DB
	ledger *grpc.ClientConn
}

// New wires everything from cfg. reg may be nil when metrics are not
// served.
func New(cfg utils.Config, log *zap.Logger, reg prometheus.Registerer) (*App, error) {
	if log == nil {
		log = zap.NewNop()
	}
	a := &App{Config: cfg}

	dbCfg := database.DefaultConfig()
	if cfg.Shards.RegistryPath != "" {
		dbCfg.Path = cfg.Shards.RegistryPath
	}
	db, err := database.Open(dbCfg)
	if err != nil {
		return nil, fmt.Errorf("open registry %s: %w", dbCfg.Path, err)
	}
	a.db = db
	a.Registry = registry.NewRepo(db)

	httpClient := &http.Client{Timeout: cfg.Shards.Timeout}
	var resolver shard.Resolver[storyservice.Actor] = registry.NewResolver(a.Registry, httpClient)
	if len(cfg.Shards.Endpoints) > 0 {
		resolver = registry.Static{BaseURLs: cfg.Shards.Endpoints, Client: httpClient}
		log.Info("using static shard endpoints", zap.Strings("endpoints", cfg.Shards.Endpoints))
	}

	client := shard.NewClient(resolver, shard.Options{
		MaxInFlight: cfg.Shards.MaxInFlight,
		Logger:      log,
		Metrics:     shard.NewMetrics(reg),
	})
	opts := []story.Option{story.WithLogger(log), story.WithObserver(func(key string, s story.State, n int) {
		log.Debug("story state", zap.String("key", key), zap.Stringer("state", s), zap.Int("proposal", n))
	})}
	if cfg.Shards.Parallel {
		opts = append(opts, story.WithParallelProposals())
	}
	a.Assembler = story.NewAssembler(client, opts...)

	src := listing.NewHTTPSource(cfg.Listing.BaseURL, cfg.Listing.Timeout)
	src.Logger = log.Named("listing")
	a.Pipeline = listing.NewPipeline(src, log)

	cc, err := ledger.Dial(cfg.Ledger.Addr)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	a.ledger = cc
	a.Ledger = ledger.NewClient(cc)
	return a, nil
}

func (a *App) Close() error {
	var errs []error
	if a.ledger != nil {
		errs = append(errs, a.ledger.Close())
	}
	if a.db != nil {
		errs = append(errs, a.db.Close())
	}
	return errors.Join(errs...)
}
