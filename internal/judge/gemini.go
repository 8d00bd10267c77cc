package judge

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

const defaultGeminiModel = "gemini-2.5-flash"

// geminiProvider implements the Provider interface using the Google GenAI SDK.
type geminiProvider struct {
	client *genai.Client
	model  string
}

// newGeminiProvider creates a new Gemini provider.
func newGeminiProvider(ctx context.Context, cfg Config) (Provider, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultGeminiModel
	}

	return &geminiProvider{client: client, model: model}, nil
}

// Judge sends a judgment request to Gemini and returns the raw text.
func (p *geminiProvider) Judge(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	config := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: systemPrompt}},
		},
	}

	resp, err := p.client.Models.GenerateContent(ctx, p.model, genai.Text(userPrompt), config)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}

	var builder strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil {
				continue
			}
			text := strings.TrimSpace(part.Text)
			if text == "" {
				continue
			}
			if builder.Len() > 0 {
				builder.WriteString("\n")
			}
			builder.WriteString(text)
		}
	}

	output := strings.TrimSpace(builder.String())
	if output == "" {
		return "", fmt.Errorf("gemini API returned empty response")
	}

	return output, nil
}
