package generator

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

// DefaultGeminiModel is used when GeminiConfig.Model is empty.
const DefaultGeminiModel = "gemini-2.5-flash"

// Compile-time interface check.
var _ GroundedGenerator = (*Gemini)(nil)

// contentModel is the subset of *genai.Models used by Gemini.
type contentModel interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiConfig configures a Gemini generator.
type GeminiConfig struct {
	APIKey          string
	Model           string
	Temperature     *float32
	MaxOutputTokens int32

	// BaseURL overrides the API endpoint (tests, proxies).
	BaseURL    string
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// Gemini implements GroundedGenerator on the Google GenAI SDK. Grounded calls
// enable the Google Search tool and report grounding chunks as citations.
type Gemini struct {
	models      contentModel
	model       string
	temperature *float32
	maxTokens   int32
	logger      *zap.Logger
}

// NewGemini creates a Gemini generator backed by the Gemini API.
func NewGemini(ctx context.Context, cfg GeminiConfig) (*Gemini, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("generator: gemini API key is required")
	}

	cc := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: cfg.HTTPClient,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, &TransportError{Op: "gemini: create client", Err: err}
	}
	return newGemini(client.Models, cfg), nil
}

func newGemini(models contentModel, cfg GeminiConfig) *Gemini {
	model := cfg.Model
	if model == "" {
		model = DefaultGeminiModel
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gemini{
		models:      models,
		model:       model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxOutputTokens,
		logger:      logger,
	}
}

// Model returns the model name used for requests.
func (g *Gemini) Model() string { return g.model }

// Generate requests a JSON response for the given prompts.
func (g *Gemini) Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	cfg := g.config(systemPrompt)
	cfg.ResponseMIMEType = "application/json"

	resp, err := g.call(ctx, "generate", userPrompt, cfg)
	if err != nil {
		return "", err
	}
	return resp.Text(), nil
}

// GenerateGrounded requests a response grounded with Google Search. The JSON
// response mime type cannot be combined with the search tool, so callers must
// tolerate fenced output.
func (g *Gemini) GenerateGrounded(ctx context.Context, systemPrompt, userPrompt string) (*GroundedText, error) {
	cfg := g.config(systemPrompt)
	cfg.Tools = []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}}

	resp, err := g.call(ctx, "generate grounded", userPrompt, cfg)
	if err != nil {
		return nil, err
	}

	out := groundedFromResponse(resp)
	g.logger.Debug("grounded response",
		zap.Int("citations", len(out.Citations)),
		zap.Strings("queries", out.SearchQueries))
	return out, nil
}

func (g *Gemini) config(systemPrompt string) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{
		Temperature: g.temperature,
	}
	if systemPrompt != "" {
		cfg.SystemInstruction = genai.NewContentFromText(systemPrompt, genai.RoleUser)
	}
	if g.maxTokens > 0 {
		cfg.MaxOutputTokens = g.maxTokens
	}
	return cfg
}

func (g *Gemini) call(ctx context.Context, op, userPrompt string, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	start := time.Now()
	resp, err := g.models.GenerateContent(ctx, g.model, genai.Text(userPrompt), cfg)
	if err != nil {
		g.logger.Warn("gemini call failed",
			zap.String("op", op),
			zap.String("model", g.model),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err))
		return nil, &TransportError{Op: "gemini: " + op, Err: err}
	}
	if resp == nil || len(resp.Candidates) == 0 {
		return nil, &TransportError{Op: "gemini: " + op, Err: errors.New("no candidates returned")}
	}

	g.logger.Debug("gemini call",
		zap.String("op", op),
		zap.String("model", g.model),
		zap.Duration("duration", time.Since(start)))
	return resp, nil
}

// groundedFromResponse collects text, web citations and search queries from
// the first candidate. Duplicate URIs are reported once.
func groundedFromResponse(resp *genai.GenerateContentResponse) *GroundedText {
	out := &GroundedText{Text: resp.Text()}
	if len(resp.Candidates) == 0 || resp.Candidates[0].GroundingMetadata == nil {
		return out
	}

	gm := resp.Candidates[0].GroundingMetadata
	seen := make(map[string]bool, len(gm.GroundingChunks))
	for _, chunk := range gm.GroundingChunks {
		if chunk == nil || chunk.Web == nil || chunk.Web.URI == "" || seen[chunk.Web.URI] {
			continue
		}
		seen[chunk.Web.URI] = true
		out.Citations = append(out.Citations, Citation{Title: chunk.Web.Title, URI: chunk.Web.URI})
	}
	out.SearchQueries = append(out.SearchQueries, gm.WebSearchQueries...)
	return out
}
