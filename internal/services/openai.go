package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/appnity/bannerstudio-backend/pkg/logger"
)

// OpenAIConfig configures the Responses API client.
type OpenAIConfig struct {
	APIKey     string
	BaseURL    string
	Model      string
	Timeout    time.Duration
	MaxRetries int
}

// DefaultOpenAIConfig mirrors the model the banner prompts were tuned on.
func DefaultOpenAIConfig(apiKey string) OpenAIConfig {
	return OpenAIConfig{
		APIKey:     apiKey,
		BaseURL:    "https://api.openai.com/v1",
		Model:      "gpt-4.1-mini",
		Timeout:    5 * time.Minute,
		MaxRetries: 2,
	}
}

// OpenAIClient talks to the Responses API with the image_generation tool.
type OpenAIClient struct {
	apiKey     string
	baseURL    string
	model      string
	maxRetries int
	httpClient *http.Client
}

func NewOpenAIClient(cfg OpenAIConfig) *OpenAIClient {
	return &OpenAIClient{
		apiKey:     cfg.APIKey,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		model:      cfg.Model,
		maxRetries: cfg.MaxRetries,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

type responsesContent struct {
	Type     string `json:"type"`
	Text     string `json:"text,omitempty"`
	ImageURL string `json:"image_url,omitempty"`
	Detail   string `json:"detail,omitempty"`
}

type responsesMessage struct {
	Role    string      `json:"role"`
	Content interface{} `json:"content"`
}

type responsesTool struct {
	Type string `json:"type"`
}

type responsesTextFormat struct {
	Format struct {
		Type string `json:"type"`
	} `json:"format"`
}

type responsesRequest struct {
	Model string               `json:"model"`
	Input interface{}          `json:"input"`
	Tools []responsesTool      `json:"tools,omitempty"`
	Text  *responsesTextFormat `json:"text,omitempty"`
}

type responsesOutput struct {
	Type    string             `json:"type"`
	Result  string             `json:"result,omitempty"`
	Content []responsesContent `json:"content,omitempty"`
}

type responsesResponse struct {
	Output []responsesOutput `json:"output"`
	Error  *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// GeneratePanel implements ImageGenerator.
func (c *OpenAIClient) GeneratePanel(ctx context.Context, systemPrompt string, parts []Part) (*Image, error) {
	content := make([]responsesContent, 0, len(parts))
	for _, p := range parts {
		if p.Image != nil {
			content = append(content, responsesContent{
				Type:     "input_image",
				ImageURL: DataURL(p.Image),
				Detail:   "high",
			})
			continue
		}
		content = append(content, responsesContent{Type: "input_text", Text: p.Text})
	}

	req := responsesRequest{
		Model: c.model,
		Input: []responsesMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: content},
		},
		Tools: []responsesTool{{Type: "image_generation"}},
	}

	resp, err := c.create(ctx, req)
	if err != nil {
		return nil, err
	}

	for _, out := range resp.Output {
		if out.Type != "image_generation_call" || out.Result == "" {
			continue
		}
		data, err := base64.StdEncoding.DecodeString(out.Result)
		if err != nil {
			return nil, fmt.Errorf("decode generated image: %w", err)
		}
		return &Image{Data: data, MIMEType: http.DetectContentType(data)}, nil
	}
	return nil, ErrNoImageGenerated
}

// PlanJSON implements Planner.
func (c *OpenAIClient) PlanJSON(ctx context.Context, prompt string) (map[string]interface{}, error) {
	format := &responsesTextFormat{}
	format.Format.Type = "json_object"

	resp, err := c.create(ctx, responsesRequest{
		Model: c.model,
		Input: prompt,
		Text:  format,
	})
	if err != nil {
		return nil, err
	}

	var text strings.Builder
	for _, out := range resp.Output {
		for _, part := range out.Content {
			if part.Type == "output_text" {
				text.WriteString(part.Text)
			}
		}
	}
	return decodeJSONObject(text.String())
}

func (c *OpenAIClient) create(ctx context.Context, reqBody responsesRequest) (*responsesResponse, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("OPEN_AI_API_KEY not configured")
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(1<<uint(attempt-1)) * time.Second
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		start := time.Now()
		result, retry, err := c.do(ctx, body)
		if err == nil {
			logger.Debug().Str("model", c.model).Dur("latency", time.Since(start)).Msg("OpenAI response received")
			return result, nil
		}
		lastErr = err
		if !retry {
			break
		}
		logger.Warn().Err(err).Int("attempt", attempt+1).Msg("OpenAI request failed, retrying")
	}
	return nil, lastErr
}

// do performs one request. The bool reports whether the failure is worth retrying.
func (c *OpenAIClient) do(ctx context.Context, body []byte) (*responsesResponse, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/responses", bytes.NewReader(body))
	if err != nil {
		return nil, false, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, ctx.Err() == nil, fmt.Errorf("openai request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, fmt.Errorf("read openai response: %w", err)
	}

	var parsed responsesResponse
	decodeErr := json.Unmarshal(data, &parsed)

	if resp.StatusCode != http.StatusOK {
		msg := strings.TrimSpace(string(data))
		if parsed.Error != nil && parsed.Error.Message != "" {
			msg = parsed.Error.Message
		}
		retry := resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
		return nil, retry, fmt.Errorf("openai api failed with status %d: %s", resp.StatusCode, msg)
	}
	if decodeErr != nil {
		return nil, false, fmt.Errorf("decode openai response: %w", decodeErr)
	}
	if parsed.Error != nil && parsed.Error.Message != "" {
		return nil, false, fmt.Errorf("openai api error: %s", parsed.Error.Message)
	}
	return &parsed, false, nil
}

// DataURL encodes img as a data: URL.
func DataURL(img *Image) string {
	mime := img.MIMEType
	if mime == "" {
		mime = "image/png"
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(img.Data)
}
