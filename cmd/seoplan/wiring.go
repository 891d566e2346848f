package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"go.uber.org/zap"

	"github.com/dusk-indust/seoplan/internal/audit"
	"github.com/dusk-indust/seoplan/internal/config"
	"github.com/dusk-indust/seoplan/internal/generator"
	"github.com/dusk-indust/seoplan/internal/pipeline"
	"github.com/dusk-indust/seoplan/internal/planner"
	"github.com/dusk-indust/seoplan/internal/prompts"
	"github.com/dusk-indust/seoplan/internal/seo"
	"github.com/dusk-indust/seoplan/internal/store"
)

// errNoAPIKey is returned when a live generator is needed without a key.
var errNoAPIKey = fmt.Errorf("no API key: set %s or %s, or pass --offline", config.EnvAPIKey, config.EnvGeminiAPIKey)

// wireOptions selects the parts of the service a command needs.
type wireOptions struct {
	offline bool
	noStore bool
}

// service is a wired Planner and the resources to release with it.
type service struct {
	*planner.Planner
	closers []func() error
}

func (s *service) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		errs = append(errs, s.closers[i]())
	}
	return errors.Join(errs...)
}

// generators returns the text generator and, when grounding is enabled, the
// grounded generator for the authority stage.
func (c *cli) generators(ctx context.Context, offline bool) (generator.TextGenerator, generator.GroundedGenerator, error) {
	if offline {
		return generator.Offline{}, generator.Offline{}, nil
	}
	if c.cfg.APIKey == "" {
		return nil, nil, errNoAPIKey
	}
	gem, err := generator.NewGemini(ctx, generator.GeminiConfig{
		APIKey:      c.cfg.APIKey,
		Model:       c.cfg.Model,
		Temperature: c.cfg.Temperature,
		BaseURL:     c.cfg.BaseURL,
		Logger:      c.logger,
	})
	if err != nil {
		return nil, nil, err
	}
	if !c.cfg.Grounded {
		return gem, nil, nil
	}
	return gem, gem, nil
}

func (c *cli) prompts() (*prompts.Library, error) {
	if c.cfg.PromptsDir == "" {
		return prompts.Load()
	}
	return prompts.LoadFS(os.DirFS(c.cfg.PromptsDir), "*.tmpl")
}

func (c *cli) proxies() []string {
	if c.cfg.Proxies == nil {
		return audit.DefaultProxies
	}
	return c.cfg.Proxies
}

// wire builds the planner: SEO graph, orchestrator, report store and page
// auditor.
func (c *cli) wire(ctx context.Context, opts wireOptions) (*service, error) {
	gen, grounded, err := c.generators(ctx, opts.offline)
	if err != nil {
		return nil, err
	}
	lib, err := c.prompts()
	if err != nil {
		return nil, err
	}

	g, err := seo.NewGraph(seo.Options{
		Generator: gen,
		Grounded:  grounded,
		Policy:    c.cfg.Policy(),
		Prompts:   lib,
		Logger:    c.logger,
	})
	if err != nil {
		return nil, err
	}
	orch := pipeline.New(g,
		pipeline.WithLogger(c.logger),
		pipeline.WithStageTimeout(c.cfg.StageTimeout.Duration))

	svc := &service{closers: []func() error{func() error { orch.Close(); return nil }}}

	var st store.Store
	if !opts.noStore {
		db, err := store.OpenSQLite(ctx, c.cfg.DBPath)
		if err != nil {
			_ = svc.Close()
			return nil, err
		}
		st = db
		svc.closers = append(svc.closers, db.Close)
		c.logger.Debug("report store opened", zap.String("path", c.cfg.DBPath))
	}

	auditor, err := audit.NewAuditor(audit.Config{
		Generator:    gen,
		Fetcher:      audit.NewFetcher(c.cfg.HTTPTimeout.Duration, c.proxies(), c.logger),
		Policy:       c.cfg.Policy(),
		Prompts:      lib,
		MaxChars:     c.cfg.Audit.MaxChars,
		StageTimeout: c.cfg.StageTimeout.Duration,
		Logger:       c.logger,
	})
	if err != nil {
		_ = svc.Close()
		return nil, err
	}

	p, err := planner.New(planner.Config{
		Orchestrator: orch,
		Store:        st,
		Auditor:      auditor,
		Logger:       c.logger,
	})
	if err != nil {
		_ = svc.Close()
		return nil, err
	}
	svc.Planner = p
	return svc, nil
}

// printProgress writes progress events to w until the channel closes. The
// returned func waits for the printer to drain.
func printProgress(w io.Writer, events <-chan pipeline.ProgressEvent) (wait func()) {
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for ev := range events {
			fmt.Fprintln(w, pipeline.FormatProgress(ev))
		}
	}()
	return wg.Wait
}
