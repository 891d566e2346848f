// Package pipeline runs a declarative stage dependency graph. Every stage
// whose dependencies have completed is started concurrently; dependents of a
// failed stage are never started while independent branches keep going.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Orchestrator executes runs over a fixed Graph. It is safe to call Run and
// RunStage concurrently; each run owns its own state.
type Orchestrator struct {
	graph        *Graph
	logger       *zap.Logger
	progress     *ProgressReporter
	stageTimeout time.Duration
	newID        func() string
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger. The default discards output.
func WithLogger(l *zap.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithStageTimeout bounds every producer invocation. Zero disables it.
func WithStageTimeout(d time.Duration) Option {
	return func(o *Orchestrator) { o.stageTimeout = d }
}

// WithProgress shares an existing ProgressReporter.
func WithProgress(pr *ProgressReporter) Option {
	return func(o *Orchestrator) {
		if pr != nil {
			o.progress = pr
		}
	}
}

// WithIDGenerator overrides run ID generation.
func WithIDGenerator(fn func() string) Option {
	return func(o *Orchestrator) {
		if fn != nil {
			o.newID = fn
		}
	}
}

// New creates an Orchestrator for g.
func New(g *Graph, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		graph:    g,
		logger:   zap.NewNop(),
		progress: NewProgressReporter(),
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Graph returns the stage graph.
func (o *Orchestrator) Graph() *Graph { return o.graph }

// Progress returns a channel that emits progress events.
func (o *Orchestrator) Progress() <-chan ProgressEvent {
	return o.progress.Subscribe()
}

// Close shuts down the progress reporter.
func (o *Orchestrator) Close() {
	o.progress.Close()
}

type completion struct {
	stage    string
	output   any
	err      error
	finished time.Time
}

// Run executes every stage of the graph for brief and returns the
// consolidated report. Stage failures are reported in the Report, not as an
// error; the only error is ErrEmptyBrief. After ctx is cancelled no new stage
// starts and the run ends Aborted if any stage was left unstarted.
func (o *Orchestrator) Run(ctx context.Context, brief string) (*Report, error) {
	if strings.TrimSpace(brief) == "" {
		return nil, ErrEmptyBrief
	}

	run := newRun(o.newID(), brief, o.graph)
	logger := o.logger.With(zap.String("run_id", run.ID))
	started := time.Now()
	logger.Info("run started", zap.Int("stages", o.graph.Len()))

	order := o.graph.Order()
	for _, name := range order {
		o.emit(run.ID, name, ProgressPending, "")
	}
	run.State = RunRunning

	done := make(chan completion, o.graph.Len())
	var g errgroup.Group
	running := 0

	launch := func() {
		for _, name := range order {
			if ctx.Err() != nil {
				return
			}
			res := run.Results[name]
			if res.Status != Pending || !run.ready(o.graph, name) {
				continue
			}

			def, _ := o.graph.Stage(name)
			in := run.input(o.graph, name)
			res.Status = Running
			res.StartedAt = time.Now()
			running++
			o.emit(run.ID, name, ProgressRunning, "")
			logger.Debug("stage started", zap.String("stage", name))

			g.Go(func() error {
				out, err := o.invoke(ctx, def, in)
				done <- completion{stage: def.Name, output: out, err: err, finished: time.Now()}
				return nil
			})
		}
	}

	launch()
	for running > 0 {
		c := <-done
		running--

		res := run.Results[c.stage]
		res.FinishedAt = c.finished
		if c.err != nil {
			res.Status = Failed
			res.Err = c.err
			o.emit(run.ID, c.stage, ProgressFailed, c.err.Error())
			logger.Warn("stage failed",
				zap.String("stage", c.stage),
				zap.Duration("duration", res.Duration()),
				zap.Error(c.err))
		} else {
			res.Status = Completed
			res.Output = c.output
			o.emit(run.ID, c.stage, ProgressComplete, "")
			logger.Debug("stage completed",
				zap.String("stage", c.stage),
				zap.Duration("duration", res.Duration()))
		}
		launch()
	}
	_ = g.Wait()

	rep := buildReport(o.graph, run, started, ctx.Err())
	for _, name := range rep.Blocked() {
		f, _ := rep.Failure(name)
		o.emit(run.ID, name, ProgressBlocked, f.Err.Error())
	}

	logger.Info("run finished",
		zap.String("state", rep.State.String()),
		zap.Int("failures", len(rep.Failures)),
		zap.Duration("duration", rep.FinishedAt.Sub(started)))
	return rep, nil
}

// RunStage runs one stage in isolation with the given dependency outputs.
// Only the stage's declared dependencies are passed to the producer; a
// missing one yields *MissingDependencyOutput.
func (o *Orchestrator) RunStage(ctx context.Context, name, brief string, deps map[string]any) (any, error) {
	def, ok := o.graph.Stage(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownStage, name)
	}

	in := Input{Brief: brief, Deps: make(map[string]any, len(def.DependsOn))}
	for _, dep := range def.DependsOn {
		v, ok := deps[dep]
		if !ok {
			return nil, &MissingDependencyOutput{Stage: name, Dependency: dep}
		}
		in.Deps[dep] = v
	}

	o.emit("", name, ProgressRunning, "")
	start := time.Now()
	out, err := o.invoke(ctx, def, in)
	if err != nil {
		o.emit("", name, ProgressFailed, err.Error())
		o.logger.Warn("stage failed",
			zap.String("stage", name),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err))
		return nil, err
	}
	o.emit("", name, ProgressComplete, "")
	o.logger.Debug("stage completed",
		zap.String("stage", name),
		zap.Duration("duration", time.Since(start)))
	return out, nil
}

// invoke calls the producer under the stage timeout. A producer that ignores
// its context is abandoned when the context ends; its result is discarded.
func (o *Orchestrator) invoke(ctx context.Context, def StageDef, in Input) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, failed(def.Name, err)
	}

	sctx, cancel := ctx, context.CancelFunc(func() {})
	if o.stageTimeout > 0 {
		sctx, cancel = context.WithTimeout(ctx, o.stageTimeout)
	}
	defer cancel()

	type outcome struct {
		out any
		err error
	}
	ch := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- outcome{err: fmt.Errorf("panic: %v", r)}
			}
		}()
		out, err := def.Produce(sctx, in)
		ch <- outcome{out: out, err: err}
	}()

	select {
	case oc := <-ch:
		if oc.err != nil {
			if o.timedOut(ctx, sctx) && errors.Is(oc.err, context.DeadlineExceeded) {
				return nil, failed(def.Name, fmt.Errorf("%w: %w", ErrStageTimeout, oc.err))
			}
			return nil, failed(def.Name, oc.err)
		}
		return oc.out, nil
	case <-sctx.Done():
		if o.timedOut(ctx, sctx) {
			return nil, failed(def.Name, fmt.Errorf("%w after %s", ErrStageTimeout, o.stageTimeout))
		}
		return nil, failed(def.Name, ctx.Err())
	}
}

func (o *Orchestrator) timedOut(parent, stage context.Context) bool {
	return o.stageTimeout > 0 && parent.Err() == nil && errors.Is(stage.Err(), context.DeadlineExceeded)
}

func (o *Orchestrator) emit(runID, stage string, status ProgressStatus, msg string) {
	o.progress.Emit(ProgressEvent{RunID: runID, Stage: stage, Status: status, Message: msg})
}
