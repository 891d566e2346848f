package export

import (
	"fmt"
	"strings"

	"github.com/dusk-indust/seoplan/internal/pipeline"
	"github.com/dusk-indust/seoplan/internal/store"
)

var classDefs = []struct{ name, style string }{
	{store.StatusCompleted, "fill:#d4edda,stroke:#28a745"},
	{store.StatusFailed, "fill:#f8d7da,stroke:#dc3545"},
	{store.StatusBlocked, "fill:#fff3cd,stroke:#ffc107"},
	{store.StatusPending, "fill:#e2e3e5,stroke:#6c757d"},
}

// Mermaid produces a Mermaid graph TD diagram of g. Dependencies become
// arrows and statuses, keyed by stage name, become node classes.
func Mermaid(g *pipeline.Graph, statuses map[string]string) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	order := g.Order()
	for _, name := range order {
		label := name
		if st, ok := statuses[name]; ok {
			label = fmt.Sprintf("%s (%s)", name, st)
		}
		fmt.Fprintf(&sb, "  %s[\"%s\"]\n", nodeID(name), label)
	}
	for _, name := range order {
		for _, dep := range g.Dependencies(name) {
			fmt.Fprintf(&sb, "  %s --> %s\n", nodeID(dep), nodeID(name))
		}
	}

	if len(statuses) == 0 {
		return sb.String()
	}
	for _, cd := range classDefs {
		fmt.Fprintf(&sb, "  classDef %s %s\n", cd.name, cd.style)
	}
	for _, name := range order {
		if st, ok := statuses[name]; ok {
			fmt.Fprintf(&sb, "  class %s %s\n", nodeID(name), st)
		}
	}
	return sb.String()
}

// Statuses maps stage names to stored statuses.
func Statuses(rec *store.Record) map[string]string {
	out := make(map[string]string, len(rec.Stages))
	for _, d := range rec.Stages {
		out[d.Stage] = d.Status
	}
	return out
}

// nodeID keeps only characters Mermaid accepts in node IDs.
func nodeID(name string) string {
	return strings.Map(func(r rune) rune {
		if r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '_' {
			return r
		}
		return '_'
	}, name)
}
