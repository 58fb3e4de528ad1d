package services

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// GeminiClient generates panels and plans through Google's Gemini API.
type GeminiClient struct {
	client     *genai.Client
	imageModel string
	textModel  string
}

// NewGeminiClient creates a Gemini client for the given models.
func NewGeminiClient(ctx context.Context, apiKey, imageModel, textModel string) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required")
	}
	if imageModel == "" {
		imageModel = "gemini-2.5-flash-image"
	}
	if textModel == "" {
		textModel = "gemini-2.5-flash"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	return &GeminiClient{
		client:     client,
		imageModel: imageModel,
		textModel:  textModel,
	}, nil
}

// GeneratePanel implements ImageGenerator.
func (g *GeminiClient) GeneratePanel(ctx context.Context, systemPrompt string, parts []Part) (*Image, error) {
	config := &genai.GenerateContentConfig{
		SystemInstruction:  genai.NewContentFromText(systemPrompt, genai.RoleUser),
		ResponseModalities: []string{string(genai.ModalityText), string(genai.ModalityImage)},
	}

	result, err := g.client.Models.GenerateContent(ctx, g.imageModel, []*genai.Content{toGeminiContent(parts)}, config)
	if err != nil {
		return nil, fmt.Errorf("gemini generate: %w", err)
	}

	return firstInlineImage(result)
}

// PlanJSON implements Planner.
func (g *GeminiClient) PlanJSON(ctx context.Context, prompt string) (map[string]interface{}, error) {
	config := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	}

	result, err := g.client.Models.GenerateContent(ctx, g.textModel, genai.Text(prompt), config)
	if err != nil {
		return nil, fmt.Errorf("gemini plan: %w", err)
	}

	return decodeJSONObject(result.Text())
}

func toGeminiContent(parts []Part) *genai.Content {
	gparts := make([]*genai.Part, 0, len(parts)+1)
	for _, p := range parts {
		if p.Image != nil {
			gparts = append(gparts, genai.NewPartFromBytes(p.Image.Data, p.Image.MIMEType))
			continue
		}
		gparts = append(gparts, genai.NewPartFromText(p.Text))
	}
	// Gemini rejects an empty user turn.
	if len(gparts) == 0 {
		gparts = append(gparts, genai.NewPartFromText("Generate the banner panel described in the instructions."))
	}
	return genai.NewContentFromParts(gparts, genai.RoleUser)
}

func firstInlineImage(result *genai.GenerateContentResponse) (*Image, error) {
	if result == nil {
		return nil, ErrNoImageGenerated
	}
	for _, cand := range result.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part == nil || part.InlineData == nil || len(part.InlineData.Data) == 0 {
				continue
			}
			if !strings.HasPrefix(part.InlineData.MIMEType, "image/") {
				continue
			}
			return &Image{Data: part.InlineData.Data, MIMEType: part.InlineData.MIMEType}, nil
		}
	}

	if result.PromptFeedback != nil && result.PromptFeedback.BlockReason != "" {
		return nil, fmt.Errorf("%w: blocked (%s)", ErrNoImageGenerated, result.PromptFeedback.BlockReason)
	}
	return nil, ErrNoImageGenerated
}
