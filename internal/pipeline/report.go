package pipeline

import (
	"errors"
	"time"
)

// Failure names a stage that did not complete and why. Err is a
// *GenerationFailed, a *Blocked, or a context error for stages left
// unstarted by an aborted run.
type Failure struct {
	Stage string
	Err   error
}

// Report is the consolidated result of a run.
type Report struct {
	RunID      string
	Brief      string
	State      RunState
	Outputs    map[string]any
	Results    []Result
	Failures   []Failure
	StartedAt  time.Time
	FinishedAt time.Time
}

// Output returns the output of a completed stage.
func (r *Report) Output(stage string) (any, bool) {
	v, ok := r.Outputs[stage]
	return v, ok
}

// Result returns the result recorded for stage.
func (r *Report) Result(stage string) (Result, bool) {
	for _, res := range r.Results {
		if res.Stage == stage {
			return res, true
		}
	}
	return Result{}, false
}

// Failure returns the failure recorded for stage.
func (r *Report) Failure(stage string) (Failure, bool) {
	for _, f := range r.Failures {
		if f.Stage == stage {
			return f, true
		}
	}
	return Failure{}, false
}

// Blocked returns the stages that never started because an ancestor failed.
func (r *Report) Blocked() []string {
	var out []string
	for _, f := range r.Failures {
		var b *Blocked
		if errors.As(f.Err, &b) {
			out = append(out, f.Stage)
		}
	}
	return out
}

// buildReport snapshots run in graph order.
func buildReport(g *Graph, run *Run, started time.Time, ctxErr error) *Report {
	rep := &Report{
		RunID:      run.ID,
		Brief:      run.Brief,
		Outputs:    make(map[string]any),
		StartedAt:  started,
		FinishedAt: time.Now(),
	}

	unstarted := false
	for _, name := range g.Order() {
		res := *run.Results[name]
		rep.Results = append(rep.Results, res)

		switch res.Status {
		case Completed:
			rep.Outputs[name] = res.Output
		case Failed:
			rep.Failures = append(rep.Failures, Failure{Stage: name, Err: res.Err})
		case Pending:
			unstarted = true
			if dep, ok := run.failedAncestor(g, name); ok {
				rep.Failures = append(rep.Failures, Failure{
					Stage: name,
					Err:   &Blocked{Stage: name, FailedDependency: dep},
				})
				continue
			}
			if ctxErr != nil {
				rep.Failures = append(rep.Failures, Failure{Stage: name, Err: ctxErr})
			}
		}
	}

	switch {
	case unstarted && ctxErr != nil:
		rep.State = Aborted
	case len(rep.Failures) > 0:
		rep.State = PartiallyFailed
	default:
		rep.State = AllCompleted
	}
	run.State = rep.State
	return rep
}
