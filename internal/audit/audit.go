// Package audit fetches a web page, extracts its readable content and asks
// the text generator for a content audit.
package audit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/dusk-indust/seoplan/internal/generator"
	"github.com/dusk-indust/seoplan/internal/pipeline"
	"github.com/dusk-indust/seoplan/internal/prompts"
	"github.com/dusk-indust/seoplan/internal/response"
)

// Stage names.
const (
	PageStage  = "page"
	AuditStage = "audit"
)

// DefaultMaxChars bounds the page text sent to the model.
const DefaultMaxChars = 12000

// ContentAudit is the output of the audit stage.
type ContentAudit struct {
	Score           float64          `json:"score"`
	Summary         string           `json:"resume"`
	Strengths       []string         `json:"forces"`
	Weaknesses      []string         `json:"faiblesses"`
	Recommendations []Recommendation `json:"recommandations"`
	MissingKeywords []string         `json:"motsClesManquants"`
}

// Recommendation is one suggested change.
type Recommendation struct {
	Priority string `json:"priorite"`
	Action   string `json:"action"`
	Detail   string `json:"detail"`
}

var auditSchema = response.Object(
	response.Num("score").Require(),
	response.Str("resume"),
	response.Strs("forces"),
	response.Strs("faiblesses"),
	response.ArrOf("recommandations",
		response.Str("priorite").WithDefault("moyenne"),
		response.Str("action"),
		response.Str("detail"),
	),
	response.Strs("motsClesManquants"),
)

// NewPageStage returns the stage that fetches and extracts the page whose
// URL is the stage brief.
func NewPageStage(f *Fetcher, maxChars int) pipeline.StageDef {
	return pipeline.StageDef{
		Name: PageStage,
		Produce: func(ctx context.Context, in pipeline.Input) (any, error) {
			body, err := f.Fetch(ctx, in.Brief)
			if err != nil {
				return nil, err
			}
			page, err := Extract(body, maxChars)
			if err != nil {
				return nil, err
			}
			page.URL = in.Brief
			return page, nil
		},
	}
}

// NewStage returns the audit stage. It depends on the page stage and uses
// the stage brief as the target keyword, which may be empty.
func NewStage(gen generator.TextGenerator, policy response.Policy, lib *prompts.Library) pipeline.StageDef {
	return pipeline.StageDef{
		Name:      AuditStage,
		DependsOn: []string{PageStage},
		Produce: func(ctx context.Context, in pipeline.Input) (any, error) {
			dep, _ := in.Dep(PageStage)
			page, ok := dep.(*Page)
			if !ok {
				return nil, fmt.Errorf("audit: page output has type %T", dep)
			}

			system, user, err := lib.Render(AuditStage, prompts.Data{
				Brief: strings.TrimSpace(in.Brief),
				Extra: page.templateData(),
			})
			if err != nil {
				return nil, err
			}
			raw, err := gen.Generate(ctx, system, user)
			if err != nil {
				return nil, err
			}
			return response.Decode[ContentAudit](AuditStage, raw, auditSchema, policy)
		},
	}
}

func (p *Page) templateData() map[string]any {
	headings := make([]string, len(p.Headings))
	for i, h := range p.Headings {
		headings[i] = h.String()
	}
	return map[string]any{
		"url":         p.URL,
		"title":       p.Title,
		"description": p.Description,
		"headings":    headings,
		"text":        p.Text,
		"wordCount":   p.WordCount,
	}
}

// Result is a completed audit.
type Result struct {
	URL       string        `json:"url"`
	Keyword   string        `json:"keyword,omitempty"`
	Page      *Page         `json:"page"`
	Audit     *ContentAudit `json:"audit"`
	AuditedAt time.Time     `json:"auditedAt"`
}

// Config configures an Auditor.
type Config struct {
	Generator    generator.TextGenerator
	Fetcher      *Fetcher
	Policy       response.Policy
	Prompts      *prompts.Library
	MaxChars     int
	StageTimeout time.Duration
	Logger       *zap.Logger
}

// Auditor runs page audits.
type Auditor struct {
	orch *pipeline.Orchestrator
}

// NewAuditor wires the page and audit stages into an orchestrator.
func NewAuditor(cfg Config) (*Auditor, error) {
	if cfg.Generator == nil {
		return nil, fmt.Errorf("audit: a text generator is required")
	}
	if cfg.Fetcher == nil {
		cfg.Fetcher = NewFetcher(30*time.Second, DefaultProxies, cfg.Logger)
	}
	if cfg.MaxChars <= 0 {
		cfg.MaxChars = DefaultMaxChars
	}
	if cfg.Prompts == nil {
		lib, err := prompts.Load()
		if err != nil {
			return nil, err
		}
		cfg.Prompts = lib
	}

	g, err := pipeline.NewGraph(
		NewPageStage(cfg.Fetcher, cfg.MaxChars),
		NewStage(cfg.Generator, cfg.Policy, cfg.Prompts),
	)
	if err != nil {
		return nil, err
	}
	return &Auditor{
		orch: pipeline.New(g,
			pipeline.WithLogger(cfg.Logger),
			pipeline.WithStageTimeout(cfg.StageTimeout)),
	}, nil
}

// Audit fetches target and audits it for keyword.
func (a *Auditor) Audit(ctx context.Context, target, keyword string) (*Result, error) {
	out, err := a.orch.RunStage(ctx, PageStage, target, nil)
	if err != nil {
		return nil, err
	}
	page := out.(*Page)

	out, err = a.orch.RunStage(ctx, AuditStage, keyword, map[string]any{PageStage: page})
	if err != nil {
		return nil, err
	}
	return &Result{
		URL:       target,
		Keyword:   keyword,
		Page:      page,
		Audit:     out.(*ContentAudit),
		AuditedAt: time.Now().UTC(),
	}, nil
}
