// Package seo declares the SEO strategy stages: their dependency layout,
// prompts, response schemas and typed outputs.
package seo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/dusk-indust/seoplan/internal/generator"
	"github.com/dusk-indust/seoplan/internal/pipeline"
	"github.com/dusk-indust/seoplan/internal/prompts"
	"github.com/dusk-indust/seoplan/internal/response"
)

// Stage names.
const (
	Strategic   = "strategic"
	Cluster     = "cluster"
	Content     = "content"
	Technical   = "technical"
	Authority   = "authority"
	Snippet     = "snippet"
	Coordinator = "coordinator"
)

// Options configures the SEO stages.
type Options struct {
	// Generator serves every non-grounded stage.
	Generator generator.TextGenerator

	// Grounded serves the authority stage with web search. When nil, the
	// authority stage uses Generator and reports no sources.
	Grounded generator.GroundedGenerator

	Policy  response.Policy
	Prompts *prompts.Library
	Logger  *zap.Logger
}

type stageEntry struct {
	name     string
	deps     []string
	schema   response.Schema
	grounded bool
	decode   func(stage, raw string, policy response.Policy) (any, error)
}

var catalog = []stageEntry{
	{name: Strategic, schema: strategicSchema, decode: decoder[StrategicProfile](strategicSchema)},
	{name: Cluster, deps: []string{Strategic}, schema: clusterSchema, decode: decoder[ClusterPlan](clusterSchema)},
	{name: Content, deps: []string{Strategic, Cluster}, schema: contentSchema, decode: decoder[ContentPlan](contentSchema)},
	{name: Technical, deps: []string{Strategic, Cluster}, schema: technicalSchema, decode: decoder[TechnicalChecklist](technicalSchema)},
	{name: Authority, deps: []string{Strategic, Cluster}, schema: authoritySchema, grounded: true, decode: decoder[AuthorityPlan](authoritySchema)},
	{name: Snippet, deps: []string{Content}, schema: snippetSchema, decode: decoder[SnippetPlan](snippetSchema)},
	{name: Coordinator, deps: []string{Strategic, Cluster, Content, Technical, Authority, Snippet}, schema: coordinatorSchema, decode: decoder[CoordinatorPlan](coordinatorSchema)},
}

func decoder[T any](schema response.Schema) func(string, string, response.Policy) (any, error) {
	return func(stage, raw string, policy response.Policy) (any, error) {
		v, err := response.Decode[T](stage, raw, schema, policy)
		if err != nil {
			return nil, err
		}
		return v, nil
	}
}

// Stages returns the stage names in declaration order.
func Stages() []string {
	names := make([]string, len(catalog))
	for i, s := range catalog {
		names[i] = s.name
	}
	return names
}

func lookup(stage string) (stageEntry, bool) {
	for _, s := range catalog {
		if s.name == stage {
			return s, true
		}
	}
	return stageEntry{}, false
}

// NewGraph builds the SEO stage graph.
func NewGraph(opts Options) (*pipeline.Graph, error) {
	defs, err := Defs(opts)
	if err != nil {
		return nil, err
	}
	return pipeline.NewGraph(defs...)
}

// Defs returns the SEO stage definitions wired to opts.
func Defs(opts Options) ([]pipeline.StageDef, error) {
	if opts.Generator == nil {
		if opts.Grounded == nil {
			return nil, errors.New("seo: a text generator is required")
		}
		opts.Generator = opts.Grounded
	}
	if opts.Prompts == nil {
		lib, err := prompts.Load()
		if err != nil {
			return nil, err
		}
		opts.Prompts = lib
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	defs := make([]pipeline.StageDef, 0, len(catalog))
	for _, s := range catalog {
		if !opts.Prompts.Has(s.name) {
			return nil, fmt.Errorf("seo: no prompt templates for stage %q", s.name)
		}
		defs = append(defs, pipeline.StageDef{
			Name:      s.name,
			DependsOn: s.deps,
			Produce:   opts.producer(s),
		})
	}
	return defs, nil
}

func (o Options) producer(s stageEntry) pipeline.Producer {
	return func(ctx context.Context, in pipeline.Input) (any, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		system, user, err := o.Prompts.Render(s.name, prompts.Data{Brief: in.Brief, Deps: in.Deps})
		if err != nil {
			return nil, err
		}

		var (
			raw       string
			grounding *generator.GroundedText
		)
		if s.grounded && o.Grounded != nil {
			grounding, err = o.Grounded.GenerateGrounded(ctx, system, user)
			if grounding != nil {
				raw = grounding.Text
			}
		} else {
			raw, err = o.Generator.Generate(ctx, system, user)
		}
		if err != nil {
			return nil, err
		}

		out, err := s.decode(s.name, raw, o.Policy)
		if err != nil {
			return nil, err
		}
		if plan, ok := out.(*AuthorityPlan); ok && grounding != nil {
			if len(grounding.Citations) > 0 {
				plan.Sources = grounding.Citations
			}
			if len(grounding.SearchQueries) > 0 {
				plan.Queries = grounding.SearchQueries
			}
		}

		o.Logger.Debug("stage output decoded",
			zap.String("stage", s.name),
			zap.Int("raw_bytes", len(raw)),
			zap.Bool("grounded", grounding != nil))
		return out, nil
	}
}

// DecodeOutput rehydrates a stored stage document into its typed output.
// Missing fields are defaulted.
func DecodeOutput(stage string, data json.RawMessage) (any, error) {
	s, ok := lookup(stage)
	if !ok {
		return nil, fmt.Errorf("%w: %q", pipeline.ErrUnknownStage, stage)
	}
	return s.decode(stage, string(data), response.Lenient)
}
