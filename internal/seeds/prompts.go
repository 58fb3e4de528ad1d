package seeds

import (
	_ "embed"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"

	"github.com/appnity/bannerstudio-backend/internal/models"
	"github.com/appnity/bannerstudio-backend/pkg/logger"
)

//go:embed prompts.yaml
var defaultPromptsYAML []byte

type promptSeed struct {
	Name           string `yaml:"name"`
	PanelPosition  string `yaml:"panelPosition"`
	IsDefault      bool   `yaml:"isDefault"`
	Description    string `yaml:"description"`
	PromptTemplate string `yaml:"promptTemplate"`
}

// ParsePromptSeeds decodes a YAML list of prompt templates.
func ParsePromptSeeds(data []byte) ([]models.PromptTemplate, error) {
	var seeds []promptSeed
	if err := yaml.Unmarshal(data, &seeds); err != nil {
		return nil, fmt.Errorf("decode prompt seeds: %w", err)
	}

	out := make([]models.PromptTemplate, 0, len(seeds))
	for _, s := range seeds {
		if !models.ValidPanelPosition(s.PanelPosition) {
			return nil, fmt.Errorf("prompt seed %q: invalid panel position %q", s.Name, s.PanelPosition)
		}
		p := models.PromptTemplate{
			Name:           s.Name,
			PanelPosition:  s.PanelPosition,
			PromptTemplate: s.PromptTemplate,
			Version:        1,
			IsActive:       true,
			IsDefault:      s.IsDefault,
		}
		if s.Description != "" {
			desc := s.Description
			p.Description = &desc
		}
		out = append(out, p)
	}
	return out, nil
}

// SeedPromptTemplates inserts the built-in templates that are not present
// yet, matched by name and panel. It returns how many were created.
func SeedPromptTemplates(db *gorm.DB) (int, error) {
	return seedPrompts(db, defaultPromptsYAML)
}

func seedPrompts(db *gorm.DB, data []byte) (int, error) {
	templates, err := ParsePromptSeeds(data)
	if err != nil {
		return 0, err
	}

	created := 0
	for _, t := range templates {
		var existing models.PromptTemplate
		err := db.Where("name = ? AND panel_position = ?", t.Name, t.PanelPosition).First(&existing).Error
		if err == nil {
			logger.Debug().Str("name", t.Name).Msg("Prompt template already exists")
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return created, err
		}

		// Never take the default flag from a template an admin already chose.
		if t.IsDefault {
			var defaults int64
			if err := db.Model(&models.PromptTemplate{}).
				Where("panel_position = ? AND is_default = ?", t.PanelPosition, true).
				Count(&defaults).Error; err != nil {
				return created, err
			}
			t.IsDefault = defaults == 0
		}

		t.ID = uuid.NewString()
		if err := db.Create(&t).Error; err != nil {
			return created, fmt.Errorf("create prompt template %q: %w", t.Name, err)
		}
		created++
		logger.Info().Str("name", t.Name).Str("panel", t.PanelPosition).Msg("Prompt template seeded")
	}
	return created, nil
}
