package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/nri-news/brief-cli/internal/dedupe"
	"github.com/nri-news/brief-cli/internal/fetcher"
	"github.com/nri-news/brief-cli/internal/normalize"
	"github.com/nri-news/brief-cli/internal/pipeline"
	"github.com/nri-news/brief-cli/internal/prompt"
	"github.com/nri-news/brief-cli/internal/registry"
	"github.com/nri-news/brief-cli/internal/runlog"
	"github.com/nri-news/brief-cli/internal/store"
	"github.com/nri-news/brief-cli/pkg/perplexity"
)

// env bundles the long-lived components a command needs.
type env struct {
	Regions    *registry.RegionSet
	Categories *registry.CategorySet
	Store      *store.Store
	RunLog     runlog.Store
	Pipeline   *pipeline.Pipeline
}

func (e *env) Close() {
	if e.RunLog != nil {
		_ = e.RunLog.Close()
	}
}

// initRegistries builds the region and category sets: the built-in defaults
// plus any extras from config.
func initRegistries() (*registry.RegionSet, *registry.CategorySet, error) {
	regions := registry.DefaultRegions()
	for _, rc := range cfg.Regions {
		err := regions.Register(registry.Region{
			Code:     rc.Code,
			Name:     rc.Name,
			Audience: rc.Audience,
			Timezone: rc.Timezone,
		})
		if err != nil {
			return nil, nil, eris.Wrapf(err, "register region %q", rc.Code)
		}
	}

	categories := registry.DefaultCategories()
	for _, c := range cfg.Categories {
		categories.Register(c)
	}

	return regions, categories, nil
}

// initRunLog opens the run outcome log and applies migrations.
func initRunLog(ctx context.Context) (runlog.Store, error) {
	log, err := runlog.Open(ctx, cfg.RunLog.Driver, cfg.RunLog.Path, cfg.RunLog.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if err := log.Migrate(ctx); err != nil {
		_ = log.Close()
		return nil, eris.Wrap(err, "migrate run log")
	}
	return log, nil
}

// initEnv wires the full pipeline.
func initEnv(ctx context.Context) (*env, error) {
	regions, categories, err := initRegistries()
	if err != nil {
		return nil, err
	}

	prompts, err := prompt.Load(cfg.Prompts.File, categories)
	if err != nil {
		return nil, err
	}

	runLog, err := initRunLog(ctx)
	if err != nil {
		return nil, err
	}

	client := perplexity.NewClient(cfg.Perplexity.Key,
		perplexity.WithBaseURL(cfg.Perplexity.BaseURL),
		perplexity.WithModel(cfg.Perplexity.Model),
	)

	st := store.New(cfg.Data.Dir)
	p := pipeline.New(
		cfg,
		fetcher.NewUpstream(client, cfg.Perplexity),
		normalize.New(categories),
		dedupe.New(cfg.Dedupe),
		st,
		runLog,
		prompts,
		regions,
	)

	return &env{
		Regions:    regions,
		Categories: categories,
		Store:      st,
		RunLog:     runLog,
		Pipeline:   p,
	}, nil
}
