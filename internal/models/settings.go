package models

import "time"

// SystemSettings stores global configuration toggles
type SystemSettings struct {
	Key       string    `gorm:"primaryKey;type:text" json:"key"`
	Value     string    `json:"value"`
	UpdatedBy string    `json:"updatedBy"`
	UpdatedAt time.Time `json:"updatedAt"`
}

const (
	SettingGenerationEnabled = "generation_enabled"
	SettingIterationsEnabled = "iterations_enabled"
)
