package models

import (
	"strings"
	"time"
)

// DesignIteration is a follow-up regeneration of one or both panels of a
// completed Design.
type DesignIteration struct {
	ID        string    `gorm:"primaryKey;type:text" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	InitialDesignID string `gorm:"type:text;not null;uniqueIndex:idx_design_iteration_number,priority:1" json:"initialDesignId"`
	IterationNumber int    `gorm:"not null;uniqueIndex:idx_design_iteration_number,priority:2" json:"iterationNumber"`

	TopPanelIterationNotes    *string `gorm:"type:text" json:"topPanelIterationNotes"`
	BottomPanelIterationNotes *string `gorm:"type:text" json:"bottomPanelIterationNotes"`

	// Snapshot of the design prompts at the time the iteration was requested.
	OriginalTopPanelPrompt              string  `gorm:"type:text" json:"originalTopPanelPrompt"`
	OriginalBottomPanelPrompt           string  `gorm:"type:text" json:"originalBottomPanelPrompt"`
	OriginalTopPanelPromptTemplateID    *string `gorm:"type:text" json:"originalTopPanelPromptTemplateId"`
	OriginalBottomPanelPromptTemplateID *string `gorm:"type:text" json:"originalBottomPanelPromptTemplateId"`

	Status       string  `gorm:"default:'PENDING';index;not null" json:"status"`
	ErrorMessage *string `gorm:"type:text" json:"errorMessage"`

	GeneratedTopPanelIterationImageURL    *string `gorm:"column:generated_top_panel_iteration_image_url" json:"generatedTopPanelIterationImageUrl"`
	GeneratedBottomPanelIterationImageURL *string `gorm:"column:generated_bottom_panel_iteration_image_url" json:"generatedBottomPanelIterationImageUrl"`
	GeneratedTopPanelIterationImageKey    *string `gorm:"column:generated_top_panel_iteration_image_key" json:"-"`
	GeneratedBottomPanelIterationImageKey *string `gorm:"column:generated_bottom_panel_iteration_image_key" json:"-"`
	Bucket                                *string `json:"bucket"`

	InitialDesign *Design `gorm:"foreignKey:InitialDesignID" json:"-"`
}

func (DesignIteration) TableName() string {
	return "design_iterations"
}

func (it *DesignIteration) RegeneratesTop() bool {
	return it.TopPanelIterationNotes != nil && strings.TrimSpace(*it.TopPanelIterationNotes) != ""
}

func (it *DesignIteration) RegeneratesBottom() bool {
	return it.BottomPanelIterationNotes != nil && strings.TrimSpace(*it.BottomPanelIterationNotes) != ""
}
