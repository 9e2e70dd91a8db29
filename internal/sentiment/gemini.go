package sentiment

import (
	"context"
	"encoding/json"
	"fmt"

	"google.golang.org/genai"
)

type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiScorer asks a Gemini model for the compound polarity of each excerpt.
type GeminiScorer struct {
	models    contentGenerator
	modelName string
}

func NewGeminiScorer(ctx context.Context, apiKey string, modelName string) (*GeminiScorer, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return &GeminiScorer{models: client.Models, modelName: modelName}, nil
}

type geminiRating struct {
	Compound *float64 `json:"compound"`
}

func (g *GeminiScorer) Compound(ctx context.Context, text string) (float64, error) {
	temperature := float32(0)

	contents := []*genai.Content{
		{
			Parts: []*genai.Part{{Text: buildPrompt(text)}},
			Role:  "user",
		},
	}

	resp, err := g.models.GenerateContent(ctx, g.modelName, contents, &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: systemInstruction}}},
		ResponseMIMEType:  "application/json",
		ResponseSchema:    getResponseSchema(),
		Temperature:       &temperature,
	})
	if err != nil {
		return 0, fmt.Errorf("gemini API call failed: %w", err)
	}

	respText := resp.Text()

	var rating geminiRating
	if err := json.Unmarshal([]byte(respText), &rating); err != nil {
		return 0, fmt.Errorf("failed to unmarshal gemini JSON response: %w. Raw text: %s", err, respText)
	}
	if rating.Compound == nil {
		return 0, fmt.Errorf("gemini response has no compound field. Raw text: %s", respText)
	}
	if *rating.Compound < -1 || *rating.Compound > 1 {
		return 0, fmt.Errorf("%w: gemini returned %v", ErrOutOfRange, *rating.Compound)
	}

	return *rating.Compound, nil
}
