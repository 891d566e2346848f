package export

import (
	"fmt"
	"strings"

	"github.com/dusk-indust/seoplan/internal/pipeline"
	"github.com/dusk-indust/seoplan/internal/store"
)

// Output formats accepted by Render.
const (
	FormatMarkdown = "md"
	FormatJSON     = "json"
	FormatMermaid  = "mermaid"
)

// Formats lists the accepted output formats.
var Formats = []string{FormatMarkdown, FormatJSON, FormatMermaid}

// Render renders rec in format. The Mermaid format needs g; the others
// ignore it.
func Render(rec *store.Record, g *pipeline.Graph, format string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", FormatMarkdown, "markdown":
		return Markdown(rec), nil
	case FormatJSON:
		data, err := JSON(rec)
		if err != nil {
			return "", err
		}
		return string(data) + "\n", nil
	case FormatMermaid:
		if g == nil {
			return "", fmt.Errorf("export: mermaid format needs a stage graph")
		}
		return Mermaid(g, Statuses(rec)), nil
	default:
		return "", fmt.Errorf("export: unknown format %q (want one of %s)", format, strings.Join(Formats, ", "))
	}
}
