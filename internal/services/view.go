package services

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/appnity/bannerstudio-backend/internal/models"
)

// IterationView is an iteration as the design endpoint reports it.
type IterationView struct {
	ID                           string    `json:"id"`
	IterationNumber              int       `json:"iterationNumber"`
	TopPanelIterationNotes       *string   `json:"topPanelIterationNotes"`
	BottomPanelIterationNotes    *string   `json:"bottomPanelIterationNotes"`
	Status                       string    `json:"status"`
	ErrorMessage                 *string   `json:"errorMessage"`
	GeneratedTopPanelImageURL    *string   `json:"generatedTopPanelImageUrl"`
	GeneratedBottomPanelImageURL *string   `json:"generatedBottomPanelImageUrl"`
	CreatedAt                    time.Time `json:"createdAt"`
	UpdatedAt                    time.Time `json:"updatedAt"`
	IsRequested                  bool      `json:"isRequested"`
}

// DesignView is a design with its iterations in number order.
type DesignView struct {
	ID                           string              `json:"id"`
	UserID                       int64               `json:"userId"`
	BusinessName                 string              `json:"businessName"`
	IndustryType                 string              `json:"industryType"`
	DesignText                   string              `json:"designText"`
	BannerSize                   string              `json:"bannerSize"`
	Preferences                  models.Preferences  `json:"preferences"`
	ImageInputs                  []models.ImageInput `json:"imageInputs"`
	Contacts                     []models.Contact    `json:"contacts"`
	TopPanelPrompt               string              `json:"topPanelPrompt"`
	BottomPanelPrompt            string              `json:"bottomPanelPrompt"`
	TopPanelPromptTemplateID     *string             `json:"topPanelPromptTemplateId"`
	BottomPanelPromptTemplateID  *string             `json:"bottomPanelPromptTemplateId"`
	Status                       string              `json:"status"`
	ErrorMessage                 *string             `json:"errorMessage"`
	GeneratedTopPanelImageURL    *string             `json:"generatedTopPanelImageUrl"`
	GeneratedBottomPanelImageURL *string             `json:"generatedBottomPanelImageUrl"`
	Bucket                       *string             `json:"bucket"`
	CreatedAt                    time.Time           `json:"createdAt"`
	UpdatedAt                    time.Time           `json:"updatedAt"`
	RequestedIterationID         *string             `json:"requestedIterationId,omitempty"`
	RequestedAsIteration         bool                `json:"requestedAsIteration,omitempty"`
	Iterations                   []IterationView     `json:"iterations"`
}

// ErrOrphanIteration is returned when an iteration's parent design is gone.
var ErrOrphanIteration = errors.New("iteration found but parent design missing")

// GetDesignView loads a design by its id, or by the id of one of its
// iterations, in which case that iteration is flagged as requested.
func (d *Designer) GetDesignView(ctx context.Context, id string) (*DesignView, error) {
	if d.Cache != nil {
		var cached DesignView
		if err := d.Cache.Get(ctx, id, &cached); err == nil {
			return &cached, nil
		}
	}

	db := d.DB.WithContext(ctx)

	designID, requestedIteration, err := d.resolveDesignID(ctx, id)
	if err != nil {
		return nil, err
	}

	// The version is read before the rows so an invalidation racing this
	// read makes the cache write below a no-op.
	var version int64
	if d.Cache != nil {
		if version, err = d.Cache.Version(ctx, designID); err != nil {
			d.log().Warn().Err(err).Str("design_id", designID).Msg("Failed to read design view version")
		}
	}

	var design models.Design
	err = db.First(&design, "id = ?", designID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		if requestedIteration != nil {
			return nil, ErrOrphanIteration
		}
		return nil, ErrDesignNotFound
	}
	if err != nil {
		return nil, err
	}

	var iterations []models.DesignIteration
	if err := db.Where("initial_design_id = ?", design.ID).Order("iteration_number ASC").Find(&iterations).Error; err != nil {
		return nil, err
	}

	view := newDesignView(&design, iterations, requestedIteration)
	if d.Cache != nil {
		if err := d.Cache.Set(ctx, id, design.ID, version, view); err != nil {
			d.log().Warn().Err(err).Str("design_id", design.ID).Msg("Failed to cache design view")
		}
	}
	return view, nil
}

// resolveDesignID maps id to its design. An iteration id also returns the
// iteration, which the view flags as requested.
func (d *Designer) resolveDesignID(ctx context.Context, id string) (string, *string, error) {
	db := d.DB.WithContext(ctx)

	var count int64
	if err := db.Model(&models.Design{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return "", nil, err
	}
	if count > 0 {
		return id, nil, nil
	}

	var iteration models.DesignIteration
	err := db.Select("id", "initial_design_id").First(&iteration, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil, ErrDesignNotFound
	}
	if err != nil {
		return "", nil, err
	}
	return iteration.InitialDesignID, &iteration.ID, nil
}

func newDesignView(design *models.Design, iterations []models.DesignIteration, requested *string) *DesignView {
	view := &DesignView{
		ID:                           design.ID,
		UserID:                       design.UserID,
		BusinessName:                 design.BusinessName,
		IndustryType:                 design.IndustryType,
		DesignText:                   design.DesignText,
		BannerSize:                   design.BannerSize,
		Preferences:                  design.Preferences.Data(),
		ImageInputs:                  design.ImageInputs,
		Contacts:                     design.Contacts,
		TopPanelPrompt:               design.TopPanelPrompt,
		BottomPanelPrompt:            design.BottomPanelPrompt,
		TopPanelPromptTemplateID:     design.TopPanelPromptTemplateID,
		BottomPanelPromptTemplateID:  design.BottomPanelPromptTemplateID,
		Status:                       design.Status,
		ErrorMessage:                 design.ErrorMessage,
		GeneratedTopPanelImageURL:    design.GeneratedTopPanelImageURL,
		GeneratedBottomPanelImageURL: design.GeneratedBottomPanelImageURL,
		Bucket:                       design.Bucket,
		CreatedAt:                    design.CreatedAt,
		UpdatedAt:                    design.UpdatedAt,
		Iterations:                   make([]IterationView, 0, len(iterations)),
	}
	if requested != nil {
		view.RequestedIterationID = requested
		view.RequestedAsIteration = true
	}

	for _, it := range iterations {
		view.Iterations = append(view.Iterations, IterationView{
			ID:                           it.ID,
			IterationNumber:              it.IterationNumber,
			TopPanelIterationNotes:       it.TopPanelIterationNotes,
			BottomPanelIterationNotes:    it.BottomPanelIterationNotes,
			Status:                       it.Status,
			ErrorMessage:                 it.ErrorMessage,
			GeneratedTopPanelImageURL:    it.GeneratedTopPanelIterationImageURL,
			GeneratedBottomPanelImageURL: it.GeneratedBottomPanelIterationImageURL,
			CreatedAt:                    it.CreatedAt,
			UpdatedAt:                    it.UpdatedAt,
			IsRequested:                  requested != nil && it.ID == *requested,
		})
	}
	return view
}

// ViewCache keeps rendered design views in Redis. Views can be requested by
// design id or iteration id, so each design tracks the keys it was cached
// under and Invalidate drops them all.
type ViewCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewViewCache(client *redis.Client, ttl time.Duration) *ViewCache {
	if client == nil {
		return nil
	}
	return &ViewCache{client: client, ttl: ttl}
}

func viewKey(id string) string {
	return "design:view:" + id
}

func aliasKey(designID string) string {
	return "design:view-keys:" + designID
}

func versionKey(designID string) string {
	return "design:view-version:" + designID
}

const versionTTL = 24 * time.Hour

func (c *ViewCache) Get(ctx context.Context, id string, dest interface{}) error {
	data, err := c.client.Get(ctx, viewKey(id)).Bytes()
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dest)
}

// Version returns the design's invalidation counter. Read it before loading
// the rows that go into Set.
func (c *ViewCache) Version(ctx context.Context, designID string) (int64, error) {
	v, err := c.client.Get(ctx, versionKey(designID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return v, err
}

// Set caches value under requestID and records it against designID. Nothing
// is written if the design was invalidated since version was read.
func (c *ViewCache) Set(ctx context.Context, requestID, designID string, version int64, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}

	err = c.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, versionKey(designID)).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if current != version {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, viewKey(requestID), data, c.ttl)
			pipe.SAdd(ctx, aliasKey(designID), viewKey(requestID))
			pipe.Expire(ctx, aliasKey(designID), c.ttl)
			return nil
		})
		return err
	}, versionKey(designID))
	if errors.Is(err, redis.TxFailedErr) {
		return nil
	}
	return err
}

// Invalidate drops every cached view of the design and bumps its version so
// in-flight reads do not write stale views back.
func (c *ViewCache) Invalidate(ctx context.Context, designID string) error {
	keys, err := c.client.SMembers(ctx, aliasKey(designID)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return err
	}
	keys = append(keys, aliasKey(designID), viewKey(designID))

	pipe := c.client.TxPipeline()
	pipe.Incr(ctx, versionKey(designID))
	pipe.Expire(ctx, versionKey(designID), versionTTL)
	pipe.Del(ctx, keys...)
	_, err = pipe.Exec(ctx)
	return err
}
