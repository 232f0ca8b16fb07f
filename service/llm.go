package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// DefaultGeminiModel is used when no model name is configured
const DefaultGeminiModel = "gemini-2.5-flash"

// TextGenerator produces raw model text for a prompt
type TextGenerator interface {
	Generate(ctx context.Context, apiKey, prompt string, maxTokens int32) (string, error)
}

// GeminiGenerator calls Gemini through the generative-ai-go client. A client
// is opened per call because the API key can change through saved settings.
type GeminiGenerator struct {
	model       string
	temperature float32
}

// NewGeminiGenerator creates a generator for the named model
func NewGeminiGenerator(model string) *GeminiGenerator {
	if model == "" {
		model = DefaultGeminiModel
	}
	return &GeminiGenerator{model: model, temperature: 0.7}
}

// Generate sends prompt and concatenates the text parts of every candidate
func (g *GeminiGenerator) Generate(ctx context.Context, apiKey, prompt string, maxTokens int32) (string, error) {
	if apiKey == "" {
		return "", errors.New("gemini api key not set")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return "", fmt.Errorf("failed to create gemini client: %w", err)
	}
	defer client.Close()

	model := client.GenerativeModel(g.model)
	model.SetTemperature(g.temperature)
	if maxTokens > 0 {
		model.SetMaxOutputTokens(maxTokens)
	}

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("gemini request failed: %w", err)
	}

	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != genai.BlockReasonUnspecified {
		return "", fmt.Errorf("API blocked prompt: %s", resp.PromptFeedback.BlockReason)
	}
	if len(resp.Candidates) == 0 {
		return "", fmt.Errorf("API returned no candidates")
	}

	var text strings.Builder
	for i, candidate := range resp.Candidates {
		if candidate.FinishReason != genai.FinishReasonStop && candidate.FinishReason != genai.FinishReasonUnspecified {
			log.Printf("Warning: Candidate %d finished with reason: %s", i, candidate.FinishReason)
		}
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if t, ok := part.(genai.Text); ok {
				text.WriteString(string(t))
			}
		}
	}

	if text.Len() == 0 {
		return "", fmt.Errorf("API returned empty content")
	}
	return text.String(), nil
}
