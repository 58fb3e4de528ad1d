package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrNoImageGenerated is returned when a provider answers without an image.
var ErrNoImageGenerated = errors.New("no image was generated")

// Image is raw image bytes plus their MIME type.
type Image struct {
	Data     []byte
	MIMEType string
}

// Part is one element of a multimodal user message: either text or an image.
type Part struct {
	Text  string
	Image *Image
}

func TextPart(text string) Part {
	return Part{Text: text}
}

func ImagePart(img *Image) Part {
	return Part{Image: img}
}

// ImageGenerator renders a single banner panel from a system prompt and a
// sequence of reference parts.
type ImageGenerator interface {
	GeneratePanel(ctx context.Context, systemPrompt string, parts []Part) (*Image, error)
}

// Planner asks a text model for a JSON object.
type Planner interface {
	PlanJSON(ctx context.Context, prompt string) (map[string]interface{}, error)
}

// PanelPlan says which elements a panel should include.
type PanelPlan struct {
	IncludeLogo         *bool    `json:"includeLogo,omitempty"`
	IncludeHeadshot     *bool    `json:"includeHeadshot,omitempty"`
	UseInspirationImage *bool    `json:"useInspirationImage,omitempty"`
	ContactValues       []string `json:"contactValues,omitempty"`
	DesignText          string   `json:"designText,omitempty"`
}

// DesignPlan is the planner's answer for both panels.
type DesignPlan struct {
	Top    PanelPlan `json:"top"`
	Bottom PanelPlan `json:"bottom"`
}

// DecodeDesignPlan converts a planner object into a DesignPlan. The object
// must contain "top" and "bottom" keys.
func DecodeDesignPlan(raw map[string]interface{}) (*DesignPlan, error) {
	if raw["top"] == nil || raw["bottom"] == nil {
		return nil, fmt.Errorf("plan must contain top and bottom objects")
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, err
	}
	var plan DesignPlan
	if err := json.Unmarshal(data, &plan); err != nil {
		return nil, fmt.Errorf("decode plan: %w", err)
	}
	return &plan, nil
}

// decodeJSONObject parses model output that should be a single JSON object,
// tolerating a surrounding ```json fence.
func decodeJSONObject(text string) (map[string]interface{}, error) {
	text = stripCodeFence(text)
	var out map[string]interface{}
	if err := json.Unmarshal([]byte(text), &out); err != nil {
		return nil, fmt.Errorf("model did not return a JSON object: %w", err)
	}
	return out, nil
}

func stripCodeFence(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}
