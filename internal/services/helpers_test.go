package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/appnity/bannerstudio-backend/internal/database"
	"github.com/appnity/bannerstudio-backend/internal/migrations"
	"github.com/appnity/bannerstudio-backend/internal/models"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Open("sqlite:file::memory:")
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(migrations.Models()...))
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })
	return db
}

type generateCall struct {
	SystemPrompt string
	Parts        []Part
}

// fakeGenerator returns "image-<n>" for the n-th call and fails the call
// numbered failOn.
type fakeGenerator struct {
	mu     sync.Mutex
	calls  []generateCall
	failOn int
	err    error
}

func (f *fakeGenerator) GeneratePanel(ctx context.Context, systemPrompt string, parts []Part) (*Image, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, generateCall{SystemPrompt: systemPrompt, Parts: parts})
	n := len(f.calls)
	if n == f.failOn {
		return nil, f.err
	}
	return &Image{Data: []byte(fmt.Sprintf("image-%d", n)), MIMEType: "image/png"}, nil
}

type fakePlanner struct {
	plan   map[string]interface{}
	err    error
	prompt string
}

func (f *fakePlanner) PlanJSON(ctx context.Context, prompt string) (map[string]interface{}, error) {
	f.prompt = prompt
	return f.plan, f.err
}

// memStore keeps images in memory under mem:// URLs.
type memStore struct {
	mu     sync.Mutex
	images map[string]*Image
	n      int
}

func newMemStore() *memStore {
	return &memStore{images: map[string]*Image{}}
}

func (s *memStore) put(key string, data string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.images[key] = &Image{Data: []byte(data), MIMEType: "image/png"}
	return "mem://" + key
}

func (s *memStore) Save(ctx context.Context, panel string, img *Image) (*StoredImage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	key := fmt.Sprintf("%s-panel-%d.png", panel, s.n)
	s.images[key] = img
	return &StoredImage{URL: "mem://" + key, Key: key, Bucket: "mem"}, nil
}

func (s *memStore) Load(ctx context.Context, key string) (*Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	img, ok := s.images[key]
	if !ok {
		return nil, ErrImageNotFound
	}
	return img, nil
}

func (s *memStore) KeyForURL(url string) (string, bool) {
	if !strings.HasPrefix(url, "mem://") {
		return "", false
	}
	return strings.TrimPrefix(url, "mem://"), true
}

type testEnv struct {
	db       *gorm.DB
	gen      *fakeGenerator
	store    *memStore
	designer *Designer
	top      *models.PromptTemplate
	bottom   *models.PromptTemplate
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := openTestDB(t)
	gen := &fakeGenerator{}
	store := newMemStore()

	env := &testEnv{
		db:       db,
		gen:      gen,
		store:    store,
		designer: NewDesigner(db, gen, &fakePlanner{}, store, 0),
	}
	env.top = env.addTemplate(t, "Default top", models.PanelPositionTop, "Top banner for {businessName} ({industryType}). {preferences}. Logo: {logoImageUrl?}", true)
	env.bottom = env.addTemplate(t, "Default bottom", models.PanelPositionBottom, "Bottom banner saying {designText}. Contacts: {contacts}", true)
	return env
}

func (e *testEnv) addTemplate(t *testing.T, name, position, body string, isDefault bool) *models.PromptTemplate {
	t.Helper()
	tpl := &models.PromptTemplate{
		ID:             uuid.NewString(),
		Name:           name,
		PanelPosition:  position,
		PromptTemplate: body,
		Version:        1,
		IsActive:       true,
		IsDefault:      isDefault,
	}
	require.NoError(t, e.db.Create(tpl).Error)
	return tpl
}

func sampleDesign(store *memStore) NewDesign {
	return NewDesign{
		UserID:       7,
		BusinessName: "Acme Realty",
		IndustryType: "Real estate",
		DesignText:   "Homes that fit",
		BannerSize:   "1800x600",
		Preferences:  models.Preferences{Style: "modern", Colors: []string{"#112233", "#AABBCC"}},
		ImageInputs: []models.ImageInput{
			{URL: store.put("logo.png", "logo"), ImageInstructionsForLLM: "Use as main logo", Panel: models.PanelTop},
			{URL: store.put("face.png", "face"), ImageInstructionsForLLM: "This is headshot image.", Panel: models.PanelTopBottom},
			{URL: store.put("mood.png", "mood"), ImageInstructionsForLLM: "This is extra inspiration image 1", Panel: models.PanelBottom},
		},
		Contacts: []models.Contact{
			{Type: "phone", Value: "555-0100", Panel: models.PanelTop},
			{Type: "email", Value: "hi@acme.test", Panel: models.PanelBottom},
		},
	}
}

// completedDesign creates and processes a design, resetting the generator's
// call log afterwards.
func (e *testEnv) completedDesign(t *testing.T) *models.Design {
	t.Helper()
	ctx := context.Background()
	design, err := e.designer.CreateDesign(ctx, sampleDesign(e.store))
	require.NoError(t, err)
	res := e.designer.ProcessDesign(ctx, design.ID)
	require.True(t, res.Success, res.Error)

	var reloaded models.Design
	require.NoError(t, e.db.First(&reloaded, "id = ?", design.ID).Error)
	e.gen.calls = nil
	return &reloaded
}
