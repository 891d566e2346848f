package pipeline

import "time"

// Status is the state of one stage within a run.
type Status int

const (
	Pending Status = iota
	Running
	Completed
	Failed
)

func (s Status) String() string {
	switch s {
	case Pending:
		return "pending"
	case Running:
		return "running"
	case Completed:
		return "completed"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether s is Completed or Failed.
func (s Status) Terminal() bool { return s == Completed || s == Failed }

// RunState is the overall state of a run.
type RunState int

const (
	RunPending RunState = iota
	RunRunning
	AllCompleted
	PartiallyFailed
	// Aborted means the context was cancelled before every stage could start.
	Aborted
)

func (s RunState) String() string {
	switch s {
	case RunPending:
		return "pending"
	case RunRunning:
		return "running"
	case AllCompleted:
		return "all-completed"
	case PartiallyFailed:
		return "partially-failed"
	case Aborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// ParseRunState is the inverse of RunState.String.
func ParseRunState(s string) (RunState, bool) {
	for st := RunPending; st <= Aborted; st++ {
		if st.String() == s {
			return st, true
		}
	}
	return RunPending, false
}

// Result is the outcome of one stage. Output is set only when Completed and
// Err only when Failed.
type Result struct {
	Stage      string
	Status     Status
	Output     any
	Err        error
	StartedAt  time.Time
	FinishedAt time.Time
}

// Duration returns how long the stage ran, or zero if it never finished.
func (r Result) Duration() time.Duration {
	if r.StartedAt.IsZero() || r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Run is the state of one orchestrator invocation. Results is mutated only
// by the scheduling loop that owns the run.
type Run struct {
	ID      string
	Brief   string
	State   RunState
	Results map[string]*Result
}

func newRun(id, brief string, g *Graph) *Run {
	r := &Run{
		ID:      id,
		Brief:   brief,
		State:   RunPending,
		Results: make(map[string]*Result, g.Len()),
	}
	for _, name := range g.Stages() {
		r.Results[name] = &Result{Stage: name, Status: Pending}
	}
	return r
}

// ready reports whether every dependency of name has completed.
func (r *Run) ready(g *Graph, name string) bool {
	for _, dep := range g.Dependencies(name) {
		if r.Results[dep].Status != Completed {
			return false
		}
	}
	return true
}

// input builds a fresh Input for name from completed dependency outputs.
func (r *Run) input(g *Graph, name string) Input {
	deps := g.Dependencies(name)
	in := Input{Brief: r.Brief, Deps: make(map[string]any, len(deps))}
	for _, dep := range deps {
		in.Deps[dep] = r.Results[dep].Output
	}
	return in
}

// failedAncestor returns the nearest failed ancestor of name, searching
// direct dependencies first.
func (r *Run) failedAncestor(g *Graph, name string) (string, bool) {
	seen := map[string]bool{}
	queue := g.Dependencies(name)
	for len(queue) > 0 {
		dep := queue[0]
		queue = queue[1:]
		if seen[dep] {
			continue
		}
		seen[dep] = true
		if r.Results[dep].Status == Failed {
			return dep, true
		}
		queue = append(queue, g.Dependencies(dep)...)
	}
	return "", false
}
