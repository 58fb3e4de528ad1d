package models

import (
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
)

const (
	PanelPositionTop    = "TOP"
	PanelPositionBottom = "BOTTOM"
)

// PromptTemplate is a reusable panel prompt with {variable} placeholders.
type PromptTemplate struct {
	ID        string    `gorm:"primaryKey;type:text" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	Name           string  `gorm:"size:100;not null" json:"name"`
	Description    *string `gorm:"type:text" json:"description"`
	PanelPosition  string  `gorm:"type:text;not null;index:idx_prompt_panel_default,priority:1" json:"panelPosition"`
	PromptTemplate string  `gorm:"type:text;not null" json:"promptTemplate"`
	Version        int     `gorm:"default:1;not null" json:"version"`
	IsActive       bool    `gorm:"not null;index:idx_prompt_panel_default,priority:3" json:"isActive"`
	IsDefault      bool    `gorm:"not null;index:idx_prompt_panel_default,priority:2" json:"isDefault"`
	CreatedBy      *string `json:"createdBy"`
}

func (PromptTemplate) TableName() string {
	return "prompt_templates"
}

// ValidPanelPosition reports whether p is TOP or BOTTOM.
func ValidPanelPosition(p string) bool {
	return p == PanelPositionTop || p == PanelPositionBottom
}

// BeforeSave enforces strict constraints on the model
func (p *PromptTemplate) BeforeSave(tx *gorm.DB) error {
	if !ValidPanelPosition(p.PanelPosition) {
		return errors.New("violation: panel position must be TOP or BOTTOM")
	}
	if strings.TrimSpace(p.PromptTemplate) == "" {
		return errors.New("violation: prompt template cannot be empty")
	}
	if p.Version < 1 {
		return errors.New("violation: version must be a positive integer")
	}
	return nil
}
