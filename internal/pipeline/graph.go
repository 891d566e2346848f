package pipeline

import (
	"context"
	"fmt"
	"slices"
)

// Input is what a producer receives: the brief plus the completed outputs of
// the stage's declared dependencies, keyed by stage name. Deps is a fresh map
// for every invocation.
type Input struct {
	Brief string
	Deps  map[string]any
}

// Dep returns the output of dependency name.
func (in Input) Dep(name string) (any, bool) {
	v, ok := in.Deps[name]
	return v, ok
}

// Producer generates one stage's output.
type Producer func(ctx context.Context, in Input) (any, error)

// StageDef declares a stage, its dependencies and its producer.
type StageDef struct {
	Name      string
	DependsOn []string
	Produce   Producer
}

// Graph is a validated, acyclic set of stage definitions.
type Graph struct {
	defs       []StageDef
	index      map[string]int
	order      []string
	dependents map[string][]string
}

// NewGraph validates defs and builds a Graph. Names must be unique and
// non-empty, every dependency must be declared, and the graph must be
// acyclic. Validation happens before any producer can run.
func NewGraph(defs ...StageDef) (*Graph, error) {
	g := &Graph{
		defs:       make([]StageDef, len(defs)),
		index:      make(map[string]int, len(defs)),
		dependents: make(map[string][]string, len(defs)),
	}

	for i, def := range defs {
		if def.Name == "" {
			return nil, fmt.Errorf("%w: stage %d has no name", ErrInvalidStage, i)
		}
		if def.Produce == nil {
			return nil, fmt.Errorf("%w: stage %q has no producer", ErrInvalidStage, def.Name)
		}
		if _, dup := g.index[def.Name]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateStage, def.Name)
		}
		def.DependsOn = slices.Clone(def.DependsOn)
		g.defs[i] = def
		g.index[def.Name] = i
	}

	for _, def := range g.defs {
		for _, dep := range def.DependsOn {
			if _, ok := g.index[dep]; !ok {
				return nil, fmt.Errorf("%w: stage %q depends on %q", ErrUnknownDependency, def.Name, dep)
			}
		}
	}

	if cycle := g.findCycle(); cycle != nil {
		return nil, &CyclicDependency{Cycle: cycle}
	}

	g.order = g.topoOrder()
	for _, name := range g.order {
		g.dependents[name] = g.collectDependents(name)
	}
	return g, nil
}

// Len returns the number of stages.
func (g *Graph) Len() int { return len(g.defs) }

// Stages returns stage names in declaration order.
func (g *Graph) Stages() []string {
	names := make([]string, len(g.defs))
	for i, def := range g.defs {
		names[i] = def.Name
	}
	return names
}

// Stage returns the definition of name.
func (g *Graph) Stage(name string) (StageDef, bool) {
	i, ok := g.index[name]
	if !ok {
		return StageDef{}, false
	}
	return g.defs[i], true
}

// Order returns a topological order. Among stages whose dependencies are
// satisfied, declaration order decides.
func (g *Graph) Order() []string {
	return slices.Clone(g.order)
}

// Dependencies returns the direct dependencies of name.
func (g *Graph) Dependencies(name string) []string {
	i, ok := g.index[name]
	if !ok {
		return nil
	}
	return slices.Clone(g.defs[i].DependsOn)
}

// Dependents returns every stage that depends on name directly or
// transitively, in topological order.
func (g *Graph) Dependents(name string) []string {
	return slices.Clone(g.dependents[name])
}

// ---------------------------------------------------------------------------
// Validation helpers
// ---------------------------------------------------------------------------

const (
	white = iota // unvisited
	gray         // on the DFS stack
	black        // done
)

// findCycle runs a colored DFS along dependency edges and returns the first
// cycle found, or nil.
func (g *Graph) findCycle() []string {
	colors := make([]int, len(g.defs))
	var stack []string

	var visit func(i int) []string
	visit = func(i int) []string {
		colors[i] = gray
		stack = append(stack, g.defs[i].Name)

		for _, dep := range g.defs[i].DependsOn {
			j := g.index[dep]
			switch colors[j] {
			case gray:
				start := slices.Index(stack, dep)
				cycle := slices.Clone(stack[start:])
				return append(cycle, dep)
			case white:
				if c := visit(j); c != nil {
					return c
				}
			}
		}

		stack = stack[:len(stack)-1]
		colors[i] = black
		return nil
	}

	for i := range g.defs {
		if colors[i] == white {
			if c := visit(i); c != nil {
				return c
			}
		}
	}
	return nil
}

func (g *Graph) topoOrder() []string {
	placed := make(map[string]bool, len(g.defs))
	order := make([]string, 0, len(g.defs))

	for len(order) < len(g.defs) {
		for _, def := range g.defs {
			if placed[def.Name] || !allIn(def.DependsOn, placed) {
				continue
			}
			placed[def.Name] = true
			order = append(order, def.Name)
			break
		}
	}
	return order
}

func (g *Graph) collectDependents(name string) []string {
	reached := map[string]bool{name: true}
	var out []string
	for _, candidate := range g.order {
		if candidate == name {
			continue
		}
		for _, dep := range g.defs[g.index[candidate]].DependsOn {
			if reached[dep] {
				reached[candidate] = true
				out = append(out, candidate)
				break
			}
		}
	}
	return out
}

func allIn(names []string, set map[string]bool) bool {
	for _, n := range names {
		if !set[n] {
			return false
		}
	}
	return true
}
