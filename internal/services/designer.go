package services

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/appnity/bannerstudio-backend/internal/models"
	apperrors "github.com/appnity/bannerstudio-backend/pkg/errors"
	"github.com/appnity/bannerstudio-backend/pkg/logger"
)

var (
	ErrDesignNotFound    = errors.New("design not found")
	ErrIterationNotFound = errors.New("design iteration not found")
	// ErrStatusConflict means the record was not in a state the transition accepts.
	ErrStatusConflict = errors.New("unexpected record status")
)

// Lead texts sent ahead of the reference images.
const (
	topReferenceText           = "This is the top panel image, pay particular attention to its design and make sure that your design is consistent with it."
	modifyExistingText         = "Please modify this existing design based on the iteration request."
	updatedTopReferenceText    = "This is the updated top panel image, ensure your bottom panel design is consistent with it."
	currentTopReferenceText    = "This is the current top panel image, ensure your bottom panel design remains consistent with it."
	imageInstructionsPrefix    = "Image instructions: "
	defaultGenerationTimeout   = 5 * time.Minute
	maxIterationNumberAttempts = 3
)

// ReferenceFetcher resolves an input image URL to bytes.
type ReferenceFetcher interface {
	Fetch(ctx context.Context, url string) (*Image, error)
}

// Designer runs the initial design and iteration workflows.
type Designer struct {
	DB        *gorm.DB
	Generator ImageGenerator
	Planner   Planner
	Store     ImageStore
	Fetcher   ReferenceFetcher
	Cache     *ViewCache
	Timeout   time.Duration
}

func NewDesigner(db *gorm.DB, generator ImageGenerator, planner Planner, store ImageStore, timeout time.Duration) *Designer {
	return &Designer{
		DB:        db,
		Generator: generator,
		Planner:   planner,
		Store:     store,
		Fetcher:   NewImageFetcher(store),
		Timeout:   timeout,
	}
}

func (d *Designer) log() *zerolog.Logger {
	l := logger.Component("designer")
	return &l
}

// NewDesign is the validated body of an initial design request.
type NewDesign struct {
	UserID         int64               `json:"userId" binding:"required,gt=0"`
	BusinessName   string              `json:"businessName" binding:"required,min=1,max=100"`
	IndustryType   string              `json:"industryType" binding:"required,min=1,max=100"`
	DesignText     string              `json:"designText" binding:"required,min=1,max=500"`
	BannerSize     string              `json:"bannerSize" binding:"required,bannersize"`
	Preferences    models.Preferences  `json:"preferences" binding:"required"`
	ImageInputs    []models.ImageInput `json:"imageInputs,omitempty" binding:"omitempty,dive"`
	Contacts       []models.Contact    `json:"contacts,omitempty" binding:"omitempty,max=8,dive"`
	TopPromptID    *string             `json:"topPanelPromptId,omitempty" binding:"omitempty,uuid"`
	BottomPromptID *string             `json:"bottomPanelPromptId,omitempty" binding:"omitempty,uuid"`
}

// NewIteration is the validated body of an iteration request.
type NewIteration struct {
	InitialDesignID string  `json:"initialDesignId" binding:"required,uuid"`
	TopNotes        *string `json:"topPanelIterationNotes,omitempty" binding:"omitempty,min=1,max=1000"`
	BottomNotes     *string `json:"bottomPanelIterationNotes,omitempty" binding:"omitempty,min=1,max=1000"`
}

// HasNotes reports whether at least one panel carries notes.
func (n NewIteration) HasNotes() bool {
	return n.TopNotes != nil || n.BottomNotes != nil
}

// ProcessResult is reported back to the caller once generation finishes,
// successfully or not.
type ProcessResult struct {
	Success           bool    `json:"success"`
	InitialDesignID   string  `json:"initialDesignId,omitempty"`
	DesignIterationID string  `json:"designIterationId,omitempty"`
	TopPanelURL       *string `json:"topPanelUrl,omitempty"`
	BottomPanelURL    *string `json:"bottomPanelUrl,omitempty"`
	TopPanelBase64    *string `json:"topPanelBase64,omitempty"`
	BottomPanelBase64 *string `json:"bottomPanelBase64,omitempty"`
	Error             string  `json:"error,omitempty"`
}

// generatedPanels holds the images produced by one run. A nil panel was not
// regenerated.
type generatedPanels struct {
	top    *Image
	bottom *Image
}

func encodePanel(img *Image) *string {
	if img == nil {
		return nil
	}
	s := base64.StdEncoding.EncodeToString(img.Data)
	return &s
}

func (p generatedPanels) result(res *ProcessResult) *ProcessResult {
	res.TopPanelBase64 = encodePanel(p.top)
	res.BottomPanelBase64 = encodePanel(p.bottom)
	return res
}

// ResolveTemplates picks the prompt templates for both panels. Explicit ids
// must name an active template for that panel; anything unresolved falls
// back to the panel's default template.
func (d *Designer) ResolveTemplates(ctx context.Context, topID, bottomID *string) (*models.PromptTemplate, *models.PromptTemplate, error) {
	var top, bottom *models.PromptTemplate

	var ids []string
	if topID != nil {
		ids = append(ids, *topID)
	}
	if bottomID != nil {
		ids = append(ids, *bottomID)
	}

	if len(ids) > 0 {
		var found []models.PromptTemplate
		if err := d.DB.WithContext(ctx).Where("id IN ? AND is_active = ?", ids, true).Find(&found).Error; err != nil {
			return nil, nil, apperrors.Wrap(500, "Failed to load prompt templates", err)
		}
		for i := range found {
			t := &found[i]
			switch {
			case topID != nil && t.ID == *topID && t.PanelPosition == models.PanelPositionTop:
				top = t
			case bottomID != nil && t.ID == *bottomID && t.PanelPosition == models.PanelPositionBottom:
				bottom = t
			}
		}
		if topID != nil && top == nil {
			return nil, nil, apperrors.BadRequest(fmt.Sprintf("Top panel prompt with ID %s not found or inactive", *topID))
		}
		if bottomID != nil && bottom == nil {
			return nil, nil, apperrors.BadRequest(fmt.Sprintf("Bottom panel prompt with ID %s not found or inactive", *bottomID))
		}
	}

	var err error
	if top == nil {
		if top, err = d.defaultTemplate(ctx, models.PanelPositionTop); err != nil {
			return nil, nil, err
		}
	}
	if bottom == nil {
		if bottom, err = d.defaultTemplate(ctx, models.PanelPositionBottom); err != nil {
			return nil, nil, err
		}
	}
	return top, bottom, nil
}

func (d *Designer) defaultTemplate(ctx context.Context, position string) (*models.PromptTemplate, error) {
	var t models.PromptTemplate
	err := d.DB.WithContext(ctx).
		Where("panel_position = ? AND is_default = ? AND is_active = ?", position, true, true).
		Order("updated_at DESC").
		First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.Internal("no default prompt template configured for panel " + position)
	}
	if err != nil {
		return nil, apperrors.Wrap(500, "Failed to load default prompt template", err)
	}
	return &t, nil
}

func newDesignRecord(in NewDesign) *models.Design {
	images := in.ImageInputs
	if images == nil {
		images = []models.ImageInput{}
	}
	contacts := in.Contacts
	if contacts == nil {
		contacts = []models.Contact{}
	}
	return &models.Design{
		ID:           uuid.NewString(),
		UserID:       in.UserID,
		BusinessName: in.BusinessName,
		IndustryType: in.IndustryType,
		DesignText:   in.DesignText,
		BannerSize:   in.BannerSize,
		Preferences:  datatypes.NewJSONType(in.Preferences),
		ImageInputs:  datatypes.JSONSlice[models.ImageInput](images),
		Contacts:     datatypes.JSONSlice[models.Contact](contacts),
		Status:       models.StatusPending,
	}
}

// CreateDesign renders both panel prompts from their templates and stores a
// PENDING design.
func (d *Designer) CreateDesign(ctx context.Context, in NewDesign) (*models.Design, error) {
	top, bottom, err := d.ResolveTemplates(ctx, in.TopPromptID, in.BottomPromptID)
	if err != nil {
		return nil, err
	}

	design := newDesignRecord(in)
	vars := DesignVariables(design)
	if err := d.renderAndCreate(ctx, design, top, bottom, vars, vars); err != nil {
		return nil, err
	}
	return design, nil
}

// PlannedDesign pairs the planner's raw answer with the design it shaped.
type PlannedDesign struct {
	Plan   map[string]interface{}
	Design *models.Design
}

// CreatePlannedDesign asks the planner which elements belong on each panel
// before rendering the prompts.
func (d *Designer) CreatePlannedDesign(ctx context.Context, in NewDesign) (*PlannedDesign, error) {
	if d.Planner == nil {
		return nil, apperrors.Internal("planner not configured")
	}

	prompt, err := BuildPlanPrompt(in)
	if err != nil {
		return nil, apperrors.Wrap(500, "First API call failed", err)
	}
	raw, err := d.Planner.PlanJSON(ctx, prompt)
	if err != nil {
		return nil, apperrors.Wrap(500, "First API call failed", err)
	}
	plan, err := DecodeDesignPlan(raw)
	if err != nil {
		return nil, apperrors.Wrap(500, "First API call failed", err)
	}

	top, bottom, err := d.ResolveTemplates(ctx, in.TopPromptID, in.BottomPromptID)
	if err != nil {
		return nil, err
	}

	design := newDesignRecord(in)
	topVars := PanelVariables(design, models.PanelTop, plan.Top)
	bottomVars := PanelVariables(design, models.PanelBottom, plan.Bottom)
	if err := d.renderAndCreate(ctx, design, top, bottom, topVars, bottomVars); err != nil {
		return nil, err
	}
	return &PlannedDesign{Plan: raw, Design: design}, nil
}

func (d *Designer) renderAndCreate(ctx context.Context, design *models.Design, top, bottom *models.PromptTemplate, topVars, bottomVars Vars) error {
	topPrompt, err := RenderTemplate(top.PromptTemplate, topVars)
	if err != nil {
		return apperrors.Wrap(400, "Top panel prompt: "+err.Error(), err)
	}
	bottomPrompt, err := RenderTemplate(bottom.PromptTemplate, bottomVars)
	if err != nil {
		return apperrors.Wrap(400, "Bottom panel prompt: "+err.Error(), err)
	}

	design.TopPanelPrompt = topPrompt
	design.BottomPanelPrompt = bottomPrompt
	design.TopPanelPromptTemplateID = &top.ID
	design.BottomPanelPromptTemplateID = &bottom.ID

	if err := d.DB.WithContext(ctx).Create(design).Error; err != nil {
		return apperrors.Wrap(500, "Failed to create design", err)
	}
	return nil
}

// BuildPlanPrompt asks for a per-panel element plan for the request.
func BuildPlanPrompt(in NewDesign) (string, error) {
	data, err := json.MarshalIndent(in, "", "  ")
	if err != nil {
		return "", err
	}
	return `You are an assistant that processes design inputs for a dual-poster vertical banner.
Your task is to analyze the raw input and return ONLY a valid JSON object for each poster (top and bottom)
specifying exactly which elements to include. Name the objects "top" and "bottom".

For each poster, return:
- includeLogo: true/false
- includeHeadshot: true/false (top only)
- contactValues: list of contact values (after applying the rules)
- useInspirationImage: true/false
- designText: (always included)

Rules:
- Logo: include if provided
- Headshot: include for top only, and only if present
- Contacts: include only if their position is 'top', 'bottom', or 'top_bottom', and match the current panel
- Inspiration images: use only on bottom poster, and only if they exist
- Do not invent any values

Here is the input JSON:
` + string(data) + `

Return only JSON, no extra text.`, nil
}

func (d *Designer) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	timeout := d.Timeout
	if timeout <= 0 {
		timeout = defaultGenerationTimeout
	}
	return context.WithTimeout(ctx, timeout)
}

// ProcessDesign generates both panels of a PENDING design. Failures are
// recorded on the design and reported in the result, never returned.
func (d *Designer) ProcessDesign(ctx context.Context, designID string) *ProcessResult {
	ctx, cancel := d.withTimeout(ctx)
	defer cancel()

	log := d.log().With().Str("design_id", designID).Logger()
	log.Info().Msg("Processing initial design")

	design, panels, err := d.generateDesign(ctx, designID)
	if err != nil {
		err = fmt.Errorf("initial design generation failed: %w", err)
		log.Error().Err(err).Msg("Initial design failed")
		if recordable(err) {
			d.markFailed(ctx, &models.Design{}, designID, err)
			d.invalidate(ctx, designID)
		}
		return &ProcessResult{Success: false, InitialDesignID: designID, Error: err.Error()}
	}

	log.Info().Msg("Initial design completed")
	d.invalidate(ctx, designID)
	return panels.result(&ProcessResult{
		Success:         true,
		InitialDesignID: designID,
		TopPanelURL:     design.GeneratedTopPanelImageURL,
		BottomPanelURL:  design.GeneratedBottomPanelImageURL,
	})
}

func (d *Designer) generateDesign(ctx context.Context, designID string) (*models.Design, generatedPanels, error) {
	if err := d.transition(ctx, &models.Design{}, designID, models.StatusProcessing, nil, models.StatusPending); err != nil {
		return nil, generatedPanels{}, err
	}

	var design models.Design
	if err := d.DB.WithContext(ctx).First(&design, "id = ?", designID).Error; err != nil {
		return nil, generatedPanels{}, fmt.Errorf("reload design: %w", err)
	}

	topRefs, err := d.referenceParts(ctx, design.ImagesFor(models.PanelTop))
	if err != nil {
		return nil, generatedPanels{}, err
	}
	bottomRefs, err := d.referenceParts(ctx, design.ImagesFor(models.PanelBottom))
	if err != nil {
		return nil, generatedPanels{}, err
	}

	topImage, err := d.Generator.GeneratePanel(ctx, design.TopPanelPrompt, topRefs)
	if err != nil {
		return nil, generatedPanels{}, fmt.Errorf("top panel: %w", err)
	}

	bottomParts := append([]Part{TextPart(topReferenceText), ImagePart(topImage)}, bottomRefs...)
	bottomImage, err := d.Generator.GeneratePanel(ctx, design.BottomPanelPrompt, bottomParts)
	if err != nil {
		return nil, generatedPanels{}, fmt.Errorf("bottom panel: %w", err)
	}

	topStored, err := d.Store.Save(ctx, models.PanelTop, topImage)
	if err != nil {
		return nil, generatedPanels{}, err
	}
	bottomStored, err := d.Store.Save(ctx, models.PanelBottom, bottomImage)
	if err != nil {
		return nil, generatedPanels{}, err
	}

	design.GeneratedTopPanelImageURL = &topStored.URL
	design.GeneratedBottomPanelImageURL = &bottomStored.URL
	design.GeneratedTopPanelImageKey = &topStored.Key
	design.GeneratedBottomPanelImageKey = &bottomStored.Key
	design.Bucket = &topStored.Bucket

	updates := map[string]interface{}{
		"generated_top_panel_image_url":    topStored.URL,
		"generated_bottom_panel_image_url": bottomStored.URL,
		"generated_top_panel_image_key":    topStored.Key,
		"generated_bottom_panel_image_key": bottomStored.Key,
		"bucket":                           topStored.Bucket,
		"error_message":                    nil,
	}
	if err := d.transition(ctx, &models.Design{}, designID, models.StatusCompleted, updates, models.StatusProcessing); err != nil {
		return nil, generatedPanels{}, err
	}
	design.Status = models.StatusCompleted
	return &design, generatedPanels{top: topImage, bottom: bottomImage}, nil
}

// referenceParts turns image inputs into an image part followed by its
// instructions, in input order.
func (d *Designer) referenceParts(ctx context.Context, inputs []models.ImageInput) ([]Part, error) {
	parts := make([]Part, 0, len(inputs)*2)
	for _, in := range inputs {
		img, err := d.Fetcher.Fetch(ctx, in.URL)
		if err != nil {
			return nil, fmt.Errorf("reference image %s: %w", in.URL, err)
		}
		parts = append(parts, ImagePart(img))
		if in.ImageInstructionsForLLM != "" {
			parts = append(parts, TextPart(imageInstructionsPrefix+in.ImageInstructionsForLLM))
		}
	}
	return parts, nil
}

// CreateIteration validates the parent design and stores a PENDING
// iteration numbered one past the current maximum.
func (d *Designer) CreateIteration(ctx context.Context, in NewIteration) (*models.DesignIteration, error) {
	var design models.Design
	err := d.DB.WithContext(ctx).First(&design, "id = ?", in.InitialDesignID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NotFound(fmt.Sprintf("Initial design with ID %s not found", in.InitialDesignID))
	}
	if err != nil {
		return nil, apperrors.Wrap(500, "Failed to load design", err)
	}
	if design.Status != models.StatusCompleted {
		return nil, apperrors.BadRequest(fmt.Sprintf("Cannot iterate on design with status '%s'.", design.Status))
	}
	if design.TopPanelPrompt == "" || design.BottomPanelPrompt == "" {
		return nil, apperrors.Internal("Initial design is missing required prompts.").WithDetails(map[string]string{
			"topPanelPrompt":    design.TopPanelPrompt,
			"bottomPanelPrompt": design.BottomPanelPrompt,
		})
	}

	iteration := &models.DesignIteration{
		InitialDesignID:                     design.ID,
		TopPanelIterationNotes:              in.TopNotes,
		BottomPanelIterationNotes:           in.BottomNotes,
		OriginalTopPanelPrompt:              design.TopPanelPrompt,
		OriginalBottomPanelPrompt:           design.BottomPanelPrompt,
		OriginalTopPanelPromptTemplateID:    design.TopPanelPromptTemplateID,
		OriginalBottomPanelPromptTemplateID: design.BottomPanelPromptTemplateID,
		Status:                              models.StatusPending,
	}

	// Concurrent requests can race for the same number; the unique index
	// rejects the loser, which then retries with a fresh maximum.
	for attempt := 1; ; attempt++ {
		iteration.ID = uuid.NewString()
		err = d.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var maxNumber int
			if err := tx.Model(&models.DesignIteration{}).
				Where("initial_design_id = ?", design.ID).
				Select("COALESCE(MAX(iteration_number), 0)").
				Scan(&maxNumber).Error; err != nil {
				return err
			}
			iteration.IterationNumber = maxNumber + 1
			return tx.Create(iteration).Error
		})
		if err == nil {
			break
		}
		if !errors.Is(err, gorm.ErrDuplicatedKey) || attempt >= maxIterationNumberAttempts {
			return nil, apperrors.Wrap(500, "Failed to create design iteration", err)
		}
	}

	d.invalidate(ctx, design.ID)
	return iteration, nil
}

// ProcessIteration regenerates the panels that carry notes. Failures are
// recorded on the iteration and reported in the result.
func (d *Designer) ProcessIteration(ctx context.Context, iterationID string) *ProcessResult {
	ctx, cancel := d.withTimeout(ctx)
	defer cancel()

	log := d.log().With().Str("iteration_id", iterationID).Logger()
	log.Info().Msg("Processing design iteration")

	iteration, panels, err := d.generateIteration(ctx, iterationID)
	if err != nil {
		err = fmt.Errorf("design iteration generation failed: %w", err)
		log.Error().Err(err).Msg("Design iteration failed")
		if recordable(err) {
			d.markFailed(ctx, &models.DesignIteration{}, iterationID, err)
		}
		res := &ProcessResult{Success: false, DesignIterationID: iterationID, Error: err.Error()}
		if iteration != nil {
			d.invalidate(ctx, iteration.InitialDesignID)
			res.InitialDesignID = iteration.InitialDesignID
		}
		return res
	}

	log.Info().
		Bool("top", iteration.GeneratedTopPanelIterationImageURL != nil).
		Bool("bottom", iteration.GeneratedBottomPanelIterationImageURL != nil).
		Msg("Design iteration completed")
	d.invalidate(ctx, iteration.InitialDesignID)
	return panels.result(&ProcessResult{
		Success:           true,
		DesignIterationID: iterationID,
		TopPanelURL:       iteration.GeneratedTopPanelIterationImageURL,
		BottomPanelURL:    iteration.GeneratedBottomPanelIterationImageURL,
	})
}

// generateIteration returns the loaded iteration alongside any error so the
// caller can still invalidate the parent's cached view.
func (d *Designer) generateIteration(ctx context.Context, iterationID string) (*models.DesignIteration, generatedPanels, error) {
	if err := d.transition(ctx, &models.DesignIteration{}, iterationID, models.StatusProcessing, nil, models.StatusPending); err != nil {
		return nil, generatedPanels{}, err
	}

	var iteration models.DesignIteration
	if err := d.DB.WithContext(ctx).Preload("InitialDesign").First(&iteration, "id = ?", iterationID).Error; err != nil {
		return nil, generatedPanels{}, fmt.Errorf("reload iteration: %w", err)
	}

	design := iteration.InitialDesign
	if design == nil || !design.HasGeneratedPanels() {
		return &iteration, generatedPanels{}, fmt.Errorf("initial design images not found")
	}

	regenTop, regenBottom := iteration.RegeneratesTop(), iteration.RegeneratesBottom()
	if !regenTop && !regenBottom {
		return &iteration, generatedPanels{}, fmt.Errorf("no iteration notes provided for any panel")
	}

	currentTop, err := d.Store.Load(ctx, *design.GeneratedTopPanelImageKey)
	if err != nil {
		return &iteration, generatedPanels{}, fmt.Errorf("load current top panel: %w", err)
	}

	updates := map[string]interface{}{"error_message": nil}
	var newTop, newBottom *Image

	if regenTop {
		refs, err := d.referenceParts(ctx, design.ImagesFor(models.PanelTop))
		if err != nil {
			return &iteration, generatedPanels{}, err
		}
		prompt := BuildIterationPrompt(iteration.OriginalTopPanelPrompt, *iteration.TopPanelIterationNotes)
		parts := append([]Part{TextPart(modifyExistingText), ImagePart(currentTop)}, refs...)

		newTop, err = d.Generator.GeneratePanel(ctx, prompt, parts)
		if err != nil {
			return &iteration, generatedPanels{}, fmt.Errorf("top panel: %w", err)
		}
		stored, err := d.Store.Save(ctx, models.PanelTop, newTop)
		if err != nil {
			return &iteration, generatedPanels{}, err
		}
		iteration.GeneratedTopPanelIterationImageURL = &stored.URL
		iteration.GeneratedTopPanelIterationImageKey = &stored.Key
		iteration.Bucket = &stored.Bucket
		updates["generated_top_panel_iteration_image_url"] = stored.URL
		updates["generated_top_panel_iteration_image_key"] = stored.Key
		updates["bucket"] = stored.Bucket
	}

	if regenBottom {
		currentBottom, err := d.Store.Load(ctx, *design.GeneratedBottomPanelImageKey)
		if err != nil {
			return &iteration, generatedPanels{}, fmt.Errorf("load current bottom panel: %w", err)
		}
		refs, err := d.referenceParts(ctx, design.ImagesFor(models.PanelBottom))
		if err != nil {
			return &iteration, generatedPanels{}, err
		}

		parts := []Part{TextPart(modifyExistingText), ImagePart(currentBottom)}
		if newTop != nil {
			parts = append(parts, TextPart(updatedTopReferenceText), ImagePart(newTop))
		} else {
			parts = append(parts, TextPart(currentTopReferenceText), ImagePart(currentTop))
		}
		parts = append(parts, refs...)

		prompt := BuildIterationPrompt(iteration.OriginalBottomPanelPrompt, *iteration.BottomPanelIterationNotes)
		newBottom, err = d.Generator.GeneratePanel(ctx, prompt, parts)
		if err != nil {
			return &iteration, generatedPanels{}, fmt.Errorf("bottom panel: %w", err)
		}
		stored, err := d.Store.Save(ctx, models.PanelBottom, newBottom)
		if err != nil {
			return &iteration, generatedPanels{}, err
		}
		iteration.GeneratedBottomPanelIterationImageURL = &stored.URL
		iteration.GeneratedBottomPanelIterationImageKey = &stored.Key
		iteration.Bucket = &stored.Bucket
		updates["generated_bottom_panel_iteration_image_url"] = stored.URL
		updates["generated_bottom_panel_iteration_image_key"] = stored.Key
		updates["bucket"] = stored.Bucket
	}

	if err := d.transition(ctx, &models.DesignIteration{}, iterationID, models.StatusCompleted, updates, models.StatusProcessing); err != nil {
		return &iteration, generatedPanels{}, err
	}
	iteration.Status = models.StatusCompleted
	return &iteration, generatedPanels{top: newTop, bottom: newBottom}, nil
}

// transition moves a record to status only if it is currently in one of
// from. Zero affected rows means the record is missing or in another state.
func (d *Designer) transition(ctx context.Context, model interface{}, id, status string, extra map[string]interface{}, from ...string) error {
	updates := map[string]interface{}{"status": status}
	for k, v := range extra {
		updates[k] = v
	}

	res := d.DB.WithContext(ctx).Model(model).
		Where("id = ? AND status IN ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("set status %s: %w", status, res.Error)
	}
	if res.RowsAffected > 0 {
		return nil
	}

	var current struct{ Status string }
	err := d.DB.WithContext(ctx).Model(model).Select("status").Where("id = ?", id).Take(&current).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		if _, ok := model.(*models.DesignIteration); ok {
			return ErrIterationNotFound
		}
		return ErrDesignNotFound
	}
	if err != nil {
		return err
	}
	return fmt.Errorf("%w: %s is %s, expected %s", ErrStatusConflict, id, current.Status, strings.Join(from, " or "))
}

// recordable reports whether a failure belongs on the record. Another
// worker's record or a missing one is left alone.
func recordable(err error) bool {
	return !errors.Is(err, ErrStatusConflict) && !errors.Is(err, ErrDesignNotFound) && !errors.Is(err, ErrIterationNotFound)
}

// markFailed records cause on a record that has not finished yet. It runs
// detached from ctx so an expired generation deadline still gets recorded.
func (d *Designer) markFailed(ctx context.Context, model interface{}, id string, cause error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	msg := cause.Error()
	err := d.DB.WithContext(ctx).Model(model).
		Where("id = ? AND status IN ?", id, []string{models.StatusPending, models.StatusProcessing}).
		Updates(map[string]interface{}{"status": models.StatusFailed, "error_message": msg}).Error
	if err != nil {
		d.log().Error().Err(err).Str("id", id).Msg("Failed to record generation failure")
	}
}

func (d *Designer) invalidate(ctx context.Context, designID string) {
	if d.Cache == nil {
		return
	}
	if err := d.Cache.Invalidate(context.WithoutCancel(ctx), designID); err != nil {
		d.log().Warn().Err(err).Str("design_id", designID).Msg("Failed to invalidate design cache")
	}
}
