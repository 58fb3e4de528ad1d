package models

import (
	"time"

	"gorm.io/datatypes"
)

// Design lifecycle. A record only moves forward:
// PENDING -> PROCESSING -> COMPLETED | FAILED.
const (
	StatusPending    = "PENDING"
	StatusProcessing = "PROCESSING"
	StatusCompleted  = "COMPLETED"
	StatusFailed     = "FAILED"
)

// Panel placement of an image input or contact.
const (
	PanelTop       = "top"
	PanelBottom    = "bottom"
	PanelTopBottom = "top_bottom"
)

// BucketLocal marks images written to the local filesystem store.
const BucketLocal = "local"

// The binding tags below apply when these types arrive in a request body.

type Preferences struct {
	Style  string   `json:"style" binding:"required"`
	Colors []string `json:"colors,omitempty" binding:"omitempty,dive,hexcolor6"`
}

type ImageInput struct {
	URL                     string `json:"url" binding:"required,imageurl"`
	ImageInstructionsForLLM string `json:"imageInstructionsForLlm" binding:"required"`
	Panel                   string `json:"panel" binding:"required,oneof=top bottom top_bottom"`
}

type Contact struct {
	Type  string `json:"type" binding:"required,oneof=phone email website facebook instagram twitter x tiktok snapchat"`
	Value string `json:"value" binding:"required"`
	Panel string `json:"panel" binding:"required,oneof=top bottom top_bottom"`
}

// OnPanel reports whether an input placed on `placement` belongs to panel.
func OnPanel(placement, panel string) bool {
	return placement == panel || placement == PanelTopBottom
}

// Design is the initial banner request together with its rendered prompts
// and generated panel images.
type Design struct {
	ID        string    `gorm:"primaryKey;type:text" json:"id"`
	CreatedAt time.Time `gorm:"index" json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	UserID       int64  `gorm:"index;not null" json:"userId"`
	BusinessName string `gorm:"size:100;not null" json:"businessName"`
	IndustryType string `gorm:"size:100;not null" json:"industryType"`
	DesignText   string `gorm:"type:text;not null" json:"designText"`
	BannerSize   string `gorm:"not null" json:"bannerSize"`

	Preferences datatypes.JSONType[Preferences] `json:"preferences"`
	ImageInputs datatypes.JSONSlice[ImageInput]  `json:"imageInputs"`
	Contacts    datatypes.JSONSlice[Contact]     `json:"contacts"`

	TopPanelPrompt              string  `gorm:"type:text" json:"topPanelPrompt"`
	BottomPanelPrompt           string  `gorm:"type:text" json:"bottomPanelPrompt"`
	TopPanelPromptTemplateID    *string `gorm:"type:text" json:"topPanelPromptTemplateId"`
	BottomPanelPromptTemplateID *string `gorm:"type:text" json:"bottomPanelPromptTemplateId"`

	Status       string  `gorm:"default:'PENDING';index;not null" json:"status"`
	ErrorMessage *string `gorm:"type:text" json:"errorMessage"`

	GeneratedTopPanelImageURL    *string `gorm:"column:generated_top_panel_image_url" json:"generatedTopPanelImageUrl"`
	GeneratedBottomPanelImageURL *string `gorm:"column:generated_bottom_panel_image_url" json:"generatedBottomPanelImageUrl"`
	GeneratedTopPanelImageKey    *string `gorm:"column:generated_top_panel_image_key" json:"-"`
	GeneratedBottomPanelImageKey *string `gorm:"column:generated_bottom_panel_image_key" json:"-"`
	Bucket                       *string `json:"bucket"`

	Iterations []DesignIteration `gorm:"foreignKey:InitialDesignID;constraint:OnDelete:CASCADE" json:"-"`
}

func (Design) TableName() string {
	return "designs"
}

// HasGeneratedPanels reports whether both panel images exist.
func (d *Design) HasGeneratedPanels() bool {
	return d.GeneratedTopPanelImageKey != nil && *d.GeneratedTopPanelImageKey != "" &&
		d.GeneratedBottomPanelImageKey != nil && *d.GeneratedBottomPanelImageKey != ""
}

// ImagesFor returns the image inputs that belong on panel.
func (d *Design) ImagesFor(panel string) []ImageInput {
	var out []ImageInput
	for _, img := range d.ImageInputs {
		if OnPanel(img.Panel, panel) {
			out = append(out, img)
		}
	}
	return out
}

// ContactsFor returns the contacts that belong on panel.
func (d *Design) ContactsFor(panel string) []Contact {
	var out []Contact
	for _, contact := range d.Contacts {
		if OnPanel(contact.Panel, panel) {
			out = append(out, contact)
		}
	}
	return out
}
