// internal/analyzer/analyzer.go
package analyzer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"mcp-food-log/internal/models"
)

type Provider string

const (
	ProviderOpenAI  Provider = "openai"
	ProviderGateway Provider = "gateway"
)

type Config struct {
	// APIKey is required; New fails without it.
	APIKey   string
	Provider Provider
	Model    string
	// BaseURL is the OpenAI base URL or the MCP proxy URL, depending on
	// Provider. Empty selects the provider default.
	BaseURL string
	// FreeText disables the strict output schema. The gateway provider
	// always runs in free-text mode.
	FreeText    bool
	HTTPTimeout time.Duration
	// MaxTokens caps the reply length. Zero leaves it to the provider.
	MaxTokens int
}

type Option func(*FoodAnalyzer)

// WithCompleter replaces the provider transport.
func WithCompleter(c ChatCompleter) Option {
	return func(a *FoodAnalyzer) {
		a.completer = c
	}
}

// WithJPEGQuality sets the quality used when a non-JPEG photo is
// re-encoded. Values outside 1..100 keep the default.
func WithJPEGQuality(quality int) Option {
	return func(a *FoodAnalyzer) {
		if quality >= 1 && quality <= 100 {
			a.quality = quality
		}
	}
}

// FoodAnalyzer turns a food photo into a NutritionRecord with one model
// call. It holds no per-call state: concurrent Analyze calls are safe but
// not coordinated, and callers that must not analyze the same capture twice
// have to serialize on their side.
type FoodAnalyzer struct {
	completer ChatCompleter
	model     string
	freeText  bool
	quality   int
	maxTokens int
}

func New(cfg Config, opts ...Option) (*FoodAnalyzer, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingCredential
	}

	if cfg.Provider == "" {
		cfg.Provider = ProviderOpenAI
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}

	a := &FoodAnalyzer{
		model:     cfg.Model,
		freeText:  cfg.FreeText,
		quality:   DefaultJPEGQuality,
		maxTokens: cfg.MaxTokens,
	}

	switch cfg.Provider {
	case ProviderOpenAI:
		a.completer = NewOpenAIClient(cfg.APIKey, cfg.BaseURL, cfg.HTTPTimeout)
	case ProviderGateway:
		a.completer = NewGatewayClient(cfg.BaseURL, cfg.APIKey, cfg.HTTPTimeout)
		a.freeText = true
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}

	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Analyze estimates the nutrition of the food in image. On any error no
// record is returned. Transport errors come back exactly as the
// ChatCompleter returned them.
func (a *FoodAnalyzer) Analyze(ctx context.Context, image []byte) (*models.NutritionRecord, error) {
	jpegData, err := encodeJPEG(image, a.quality)
	if err != nil {
		return nil, err
	}

	content, err := a.completer.Complete(ctx, a.buildRequest(jpegData))
	if err != nil {
		return nil, err
	}
	slog.Debug("AI response", "model", a.model, "content", content)

	out, err := parseNutrition(content)
	if err != nil {
		return nil, err
	}

	record, err := models.NewNutritionRecord(out.Name, out.Calories, out.Carbs, out.Fat, out.Protein, time.Now(), models.SourcePhoto)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return record, nil
}

func (a *FoodAnalyzer) buildRequest(jpegData []byte) *ChatRequest {
	req := &ChatRequest{
		Model:       a.model,
		Temperature: 0,
		MaxTokens:   a.maxTokens,
		Messages: []Message{
			{
				Role:  RoleSystem,
				Parts: []ContentPart{{Type: PartText, Text: systemPrompt}},
			},
			{
				Role: RoleUser,
				Parts: []ContentPart{
					{Type: PartText, Text: userPrompt},
					{Type: PartImageURL, ImageURL: imageDataURL(jpegData)},
				},
			},
		},
	}

	if a.freeText {
		req.Messages[0].Parts[0].Text = freeTextSystemPrompt
	} else {
		req.Schema = nutritionSchema()
	}
	return req
}
