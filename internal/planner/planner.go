// Package planner ties the SEO pipeline to the report store. It is the
// service behind the CLI and the MCP tools: full runs, single stage reruns
// from stored outputs, and page audits.
package planner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/dusk-indust/seoplan/internal/audit"
	"github.com/dusk-indust/seoplan/internal/pipeline"
	"github.com/dusk-indust/seoplan/internal/seo"
	"github.com/dusk-indust/seoplan/internal/store"
)

var (
	// ErrNoStore is returned by operations that need persistence when the
	// planner was built without a store.
	ErrNoStore = errors.New("planner: no report store configured")

	// ErrNoAuditor is returned by Audit when auditing is not configured.
	ErrNoAuditor = errors.New("planner: page audit not configured")
)

// Decoder rehydrates a stored stage document into the value the stage's
// dependents expect.
type Decoder func(stage string, data json.RawMessage) (any, error)

// Config configures a Planner. Orchestrator is required.
type Config struct {
	Orchestrator *pipeline.Orchestrator
	Store        store.Store
	Auditor      *audit.Auditor
	Decode       Decoder
	Logger       *zap.Logger
}

// Planner runs reports and keeps them in the store.
type Planner struct {
	orch    *pipeline.Orchestrator
	store   store.Store
	auditor *audit.Auditor
	decode  Decoder
	logger  *zap.Logger
	now     func() time.Time
}

// New creates a Planner.
func New(cfg Config) (*Planner, error) {
	if cfg.Orchestrator == nil {
		return nil, errors.New("planner: an orchestrator is required")
	}
	if cfg.Decode == nil {
		cfg.Decode = seo.DecodeOutput
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Planner{
		orch:    cfg.Orchestrator,
		store:   cfg.Store,
		auditor: cfg.Auditor,
		decode:  cfg.Decode,
		logger:  cfg.Logger,
		now:     func() time.Time { return time.Now().UTC() },
	}, nil
}

// Graph returns the stage graph of the underlying orchestrator.
func (p *Planner) Graph() *pipeline.Graph { return p.orch.Graph() }

// Progress returns a channel of the orchestrator's progress events.
func (p *Planner) Progress() <-chan pipeline.ProgressEvent { return p.orch.Progress() }

// Run executes the whole graph for brief. When save is set and a store is
// configured the record is persisted before it is returned.
func (p *Planner) Run(ctx context.Context, brief string, save bool) (*store.Record, error) {
	rep, err := p.orch.Run(ctx, brief)
	if err != nil {
		return nil, err
	}
	rec, err := store.FromReport(rep)
	if err != nil {
		return nil, err
	}
	if save && p.store != nil {
		if err := p.store.Save(ctx, rec); err != nil {
			return nil, fmt.Errorf("planner: save run %s: %w", rec.ID, err)
		}
	}
	p.logger.Info("run finished",
		zap.String("run_id", rec.ID),
		zap.String("state", rec.State),
		zap.Bool("saved", save && p.store != nil))
	return rec, nil
}

// RerunStage runs one stage of a stored run again, feeding it the stored
// outputs of its dependencies, and stores the new stage document together
// with the recomputed run state. A stage error
// is recorded on the stage and also returned alongside the record.
func (p *Planner) RerunStage(ctx context.Context, runID, stage string) (*store.Record, error) {
	if p.store == nil {
		return nil, ErrNoStore
	}
	def, ok := p.orch.Graph().Stage(stage)
	if !ok {
		return nil, fmt.Errorf("%w: %q", pipeline.ErrUnknownStage, stage)
	}
	rec, err := p.store.Get(ctx, runID)
	if err != nil {
		return nil, err
	}

	deps := make(map[string]any, len(def.DependsOn))
	for _, dep := range def.DependsOn {
		doc, ok := rec.Stage(dep)
		if !ok || doc.Status != store.StatusCompleted {
			return nil, &pipeline.MissingDependencyOutput{Stage: stage, Dependency: dep}
		}
		v, err := p.decode(dep, doc.Data)
		if err != nil {
			return nil, fmt.Errorf("planner: decode stage %q of run %s: %w", dep, runID, err)
		}
		deps[dep] = v
	}

	out, runErr := p.orch.RunStage(ctx, stage, rec.Brief, deps)

	doc := store.StageDoc{Stage: stage, UpdatedAt: p.now()}
	if runErr != nil {
		doc.Status = store.StatusFailed
		doc.Error = runErr.Error()
	} else {
		data, err := json.Marshal(out)
		if err != nil {
			return nil, fmt.Errorf("planner: encode stage %q: %w", stage, err)
		}
		doc.Status = store.StatusCompleted
		doc.Data = data
	}
	rec.SetStage(doc)
	rec.State = StateOf(rec).String()
	rec.UpdatedAt = doc.UpdatedAt

	if err := p.store.PutStage(ctx, runID, doc, rec.State); err != nil {
		return nil, fmt.Errorf("planner: store stage %q of run %s: %w", stage, runID, err)
	}
	p.logger.Info("stage rerun",
		zap.String("run_id", runID),
		zap.String("stage", stage),
		zap.String("status", doc.Status),
		zap.String("state", rec.State))
	return rec, runErr
}

// Get returns a stored run.
func (p *Planner) Get(ctx context.Context, runID string) (*store.Record, error) {
	if p.store == nil {
		return nil, ErrNoStore
	}
	return p.store.Get(ctx, runID)
}

// List returns stored run summaries.
func (p *Planner) List(ctx context.Context) ([]store.Summary, error) {
	if p.store == nil {
		return nil, ErrNoStore
	}
	return p.store.List(ctx)
}

// Delete removes a stored run.
func (p *Planner) Delete(ctx context.Context, runID string) error {
	if p.store == nil {
		return ErrNoStore
	}
	return p.store.Delete(ctx, runID)
}

// Audit fetches and audits a page.
func (p *Planner) Audit(ctx context.Context, target, keyword string) (*audit.Result, error) {
	if p.auditor == nil {
		return nil, ErrNoAuditor
	}
	res, err := p.auditor.Audit(ctx, target, keyword)
	if err != nil {
		return nil, err
	}
	p.logger.Info("page audited",
		zap.String("url", target),
		zap.Float64("score", res.Audit.Score))
	return res, nil
}

// StateOf derives the run state from stored stage statuses: any stage left
// pending means the run was aborted, any failed or blocked stage means it
// partially failed.
func StateOf(rec *store.Record) pipeline.RunState {
	var pending, failed bool
	for _, d := range rec.Stages {
		switch d.Status {
		case store.StatusPending:
			pending = true
		case store.StatusFailed, store.StatusBlocked:
			failed = true
		}
	}
	switch {
	case pending:
		return pipeline.Aborted
	case failed:
		return pipeline.PartiallyFailed
	default:
		return pipeline.AllCompleted
	}
}
