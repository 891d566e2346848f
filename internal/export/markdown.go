package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dusk-indust/seoplan/internal/audit"
	"github.com/dusk-indust/seoplan/internal/seo"
	"github.com/dusk-indust/seoplan/internal/store"
)

var stageTitles = map[string]string{
	seo.Strategic:   "Profil stratégique",
	seo.Cluster:     "Clusters sémantiques",
	seo.Content:     "Plan de contenus",
	seo.Technical:   "Checklist technique",
	seo.Authority:   "Autorité et netlinking",
	seo.Snippet:     "Featured snippets",
	seo.Coordinator: "Feuille de route",
}

// Markdown renders a stored report. Known stages are rendered from their
// typed output; anything else falls back to a JSON block.
func Markdown(rec *store.Record) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Stratégie SEO\n\n")
	fmt.Fprintf(&b, "> %s\n\n", strings.ReplaceAll(strings.TrimSpace(rec.Brief), "\n", "\n> "))
	fmt.Fprintf(&b, "- Run: `%s`\n- État: %s\n", rec.ID, rec.State)
	if !rec.CreatedAt.IsZero() {
		fmt.Fprintf(&b, "- Créé le: %s\n", rec.CreatedAt.Format("2006-01-02 15:04 MST"))
	}
	b.WriteString("\n")

	for _, d := range rec.Stages {
		title := stageTitles[d.Stage]
		if title == "" {
			title = d.Stage
		}
		fmt.Fprintf(&b, "## %s\n\n", title)

		if d.Status != store.StatusCompleted {
			fmt.Fprintf(&b, "_Étape %s : %s_", d.Stage, d.Status)
			if d.Error != "" {
				fmt.Fprintf(&b, " (%s)", d.Error)
			}
			b.WriteString("\n\n")
			continue
		}
		writeStage(&b, d)
	}
	return b.String()
}

func writeStage(b *strings.Builder, d store.StageDoc) {
	out, err := seo.DecodeOutput(d.Stage, d.Data)
	if err != nil {
		writeJSON(b, d.Data)
		return
	}

	switch v := out.(type) {
	case *seo.StrategicProfile:
		writeStrategic(b, v)
	case *seo.ClusterPlan:
		for _, p := range v.Pillars {
			fmt.Fprintf(b, "### %s\n\nMot-clé : **%s** (%s)\n\n", p.Title, p.Keyword, p.Intent)
			if len(p.Clusters) == 0 {
				continue
			}
			table(b, []string{"Cluster", "Mot-clé", "Intention", "Volume", "Difficulté"}, len(p.Clusters), func(i int) []string {
				c := p.Clusters[i]
				return []string{c.Title, c.Keyword, c.Intent, num(c.Volume), num(c.Difficulty)}
			})
		}
	case *seo.ContentPlan:
		table(b, []string{"Titre", "Mot-clé", "Type", "Intention", "Cluster", "Priorité", "Mots"}, len(v.Items), func(i int) []string {
			c := v.Items[i]
			return []string{c.Title, c.Keyword, c.Type, c.Intent, c.Cluster, c.Priority, num(c.WordCount)}
		})
	case *seo.TechnicalChecklist:
		for _, c := range v.Checklist {
			fmt.Fprintf(b, "- [ ] **%s** %s (priorité %s, impact %s)\n", c.Category, c.Action, c.Priority, c.Impact)
		}
		if len(v.Schemas) > 0 {
			fmt.Fprintf(b, "\nSchémas recommandés : %s\n", strings.Join(v.Schemas, ", "))
		}
		b.WriteString("\n")
	case *seo.AuthorityPlan:
		writeAuthority(b, v)
	case *seo.SnippetPlan:
		for _, s := range v.Snippets {
			fmt.Fprintf(b, "### %s\n\n- Format : %s\n- Contenu cible : %s\n\n%s\n\n", s.Query, s.Format, s.TargetContent, s.Answer)
		}
	case *seo.CoordinatorPlan:
		writeCoordinator(b, v)
	default:
		writeJSON(b, d.Data)
	}
}

func writeStrategic(b *strings.Builder, v *seo.StrategicProfile) {
	fmt.Fprintf(b, "**Avatar** : %s\n\n", v.Avatar)
	fmt.Fprintf(b, "**Score de rentabilité** : %s/100\n\n", num(v.ProfitScore))
	if len(v.PainPoints) > 0 {
		b.WriteString("### Problèmes clients\n\n")
		for _, p := range v.PainPoints {
			fmt.Fprintf(b, "- %s → %s\n", p.Problem, p.Solution)
		}
		b.WriteString("\n")
	}
	list(b, "Termes métier", v.Vocabulary.TradeTerms)
	list(b, "Expressions clients", v.Vocabulary.CustomerPhrases)
	list(b, "Questions fréquentes", v.Vocabulary.FrequentQuestions)
	list(b, "Angles éditoriaux", v.Angles)
}

func writeAuthority(b *strings.Builder, v *seo.AuthorityPlan) {
	for _, s := range v.Strategies {
		fmt.Fprintf(b, "### %s\n\n%s\n\n- Effort : %s\n- Impact : %s\n", s.Tactic, s.Description, s.Effort, s.Impact)
		if len(s.Targets) > 0 {
			fmt.Fprintf(b, "- Cibles : %s\n", strings.Join(s.Targets, ", "))
		}
		b.WriteString("\n")
	}
	if len(v.Competitors) > 0 {
		b.WriteString("### Concurrents\n\n")
		table(b, []string{"Nom", "URL", "Forces", "Faiblesses"}, len(v.Competitors), func(i int) []string {
			c := v.Competitors[i]
			return []string{c.Name, c.URL, strings.Join(c.Strengths, ", "), strings.Join(c.Weaknesses, ", ")}
		})
	}
	if len(v.Sources) > 0 {
		b.WriteString("### Sources\n\n")
		for _, s := range v.Sources {
			title := s.Title
			if title == "" {
				title = s.URI
			}
			fmt.Fprintf(b, "- [%s](%s)\n", title, s.URI)
		}
		b.WriteString("\n")
	}
}

func writeCoordinator(b *strings.Builder, v *seo.CoordinatorPlan) {
	if v.Summary != "" {
		fmt.Fprintf(b, "%s\n\n", v.Summary)
	}
	if len(v.Priorities) > 0 {
		table(b, []string{"Action", "Étape", "Échéance"}, len(v.Priorities), func(i int) []string {
			p := v.Priorities[i]
			return []string{p.Action, p.Stage, p.Deadline}
		})
	}
	for _, m := range v.Roadmap {
		fmt.Fprintf(b, "### Mois %s\n\n", num(m.Month))
		for _, o := range m.Objectives {
			fmt.Fprintf(b, "- %s\n", o)
		}
		b.WriteString("\n")
	}
	list(b, "KPIs", v.KPIs)
}

// AuditMarkdown renders a page audit.
func AuditMarkdown(r *audit.Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Audit de contenu\n\n- URL : %s\n", r.URL)
	if r.Keyword != "" {
		fmt.Fprintf(&b, "- Mot-clé : %s\n", r.Keyword)
	}
	if r.Page != nil {
		fmt.Fprintf(&b, "- Titre : %s\n- Mots : %d\n", r.Page.Title, r.Page.WordCount)
	}
	if r.Audit == nil {
		return b.String()
	}
	fmt.Fprintf(&b, "- Score : %s/100\n\n%s\n\n", num(r.Audit.Score), r.Audit.Summary)
	list(&b, "Forces", r.Audit.Strengths)
	list(&b, "Faiblesses", r.Audit.Weaknesses)
	if len(r.Audit.Recommendations) > 0 {
		b.WriteString("## Recommandations\n\n")
		table(&b, []string{"Priorité", "Action", "Détail"}, len(r.Audit.Recommendations), func(i int) []string {
			rec := r.Audit.Recommendations[i]
			return []string{rec.Priority, rec.Action, rec.Detail}
		})
	}
	list(&b, "Mots-clés manquants", r.Audit.MissingKeywords)
	return b.String()
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func list(b *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "**%s**\n\n", title)
	for _, it := range items {
		fmt.Fprintf(b, "- %s\n", it)
	}
	b.WriteString("\n")
}

func table(b *strings.Builder, header []string, n int, row func(int) []string) {
	b.WriteString("| " + strings.Join(header, " | ") + " |\n")
	b.WriteString("|" + strings.Repeat(" --- |", len(header)) + "\n")
	for i := 0; i < n; i++ {
		cells := row(i)
		for j, c := range cells {
			cells[j] = cell(c)
		}
		b.WriteString("| " + strings.Join(cells, " | ") + " |\n")
	}
	b.WriteString("\n")
}

func cell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.Join(strings.Fields(s), " ")
}

func num(f float64) string {
	return fmt.Sprintf("%g", f)
}

func writeJSON(b *strings.Builder, data json.RawMessage) {
	var buf bytes.Buffer
	if err := json.Indent(&buf, data, "", "  "); err != nil {
		buf.Reset()
		buf.Write(data)
	}
	fmt.Fprintf(b, "```json\n%s\n```\n\n", buf.String())
}
