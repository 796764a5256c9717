package generate

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// GeminiClient drafts notes with the Gemini API through the official SDK.
type GeminiClient struct {
	cli  *genai.Client
	opts Options
}

// NewGeminiClient builds a client. An empty apiKey lets the SDK read
// GEMINI_API_KEY or GOOGLE_API_KEY from the environment.
func NewGeminiClient(ctx context.Context, apiKey string, opts Options) (*GeminiClient, error) {
	if strings.TrimSpace(opts.Model) == "" {
		return nil, errors.New("gemini model is required")
	}
	cli, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("init gemini client: %w", err)
	}
	return &GeminiClient{cli: cli, opts: opts}, nil
}

// Name implements Generator.
func (g *GeminiClient) Name() string { return "gemini:" + g.opts.Model }

// Generate implements Generator.
func (g *GeminiClient) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.cli.Models.GenerateContent(ctx, g.opts.Model,
		[]*genai.Content{{Role: "user", Parts: []*genai.Part{{Text: prompt}}}},
		geminiConfig(g.opts),
	)
	if err != nil {
		return "", fmt.Errorf("calling gemini: %w", err)
	}
	text := responseText(resp)
	if strings.TrimSpace(text) == "" {
		return "", Permanent(errors.New("gemini returned no text"))
	}
	return text, nil
}

func geminiConfig(o Options) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(o.Temperature)),
		TopP:        genai.Ptr(float32(o.TopP)),
	}
	if o.TopK > 0 {
		cfg.TopK = genai.Ptr(float32(o.TopK))
	}
	if o.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(o.MaxTokens)
	}
	return cfg
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil {
			b.WriteString(part.Text)
		}
	}
	return b.String()
}
