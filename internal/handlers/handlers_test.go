package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/appnity/bannerstudio-backend/internal/database"
	"github.com/appnity/bannerstudio-backend/internal/middleware"
	"github.com/appnity/bannerstudio-backend/internal/migrations"
	"github.com/appnity/bannerstudio-backend/internal/models"
	"github.com/appnity/bannerstudio-backend/internal/services"
	"github.com/appnity/bannerstudio-backend/internal/validation"
)

func init() {
	gin.SetMode(gin.TestMode)
	validation.RegisterWithGin()
}

type stubGenerator struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (g *stubGenerator) GeneratePanel(ctx context.Context, systemPrompt string, parts []services.Part) (*services.Image, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	if g.err != nil {
		return nil, g.err
	}
	return &services.Image{Data: []byte(fmt.Sprintf("panel-%d", g.calls)), MIMEType: "image/png"}, nil
}

type stubPlanner struct {
	prompt string
}

func (p *stubPlanner) PlanJSON(ctx context.Context, prompt string) (map[string]interface{}, error) {
	p.prompt = prompt
	return map[string]interface{}{
		"top": map[string]interface{}{
			"includeLogo":     true,
			"includeHeadshot": false,
			"contactValues":   []interface{}{"555-0100"},
			"designText":      "Homes that fit",
		},
		"bottom": map[string]interface{}{
			"includeLogo":         false,
			"useInspirationImage": false,
			"contactValues":       []interface{}{},
			"designText":          "Homes that fit",
		},
	}, nil
}

type stubStore struct {
	mu     sync.Mutex
	images map[string]*services.Image
}

func (s *stubStore) Save(ctx context.Context, panel string, img *services.Image) (*services.StoredImage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := fmt.Sprintf("%s-panel-%s.png", panel, uuid.NewString())
	s.images[key] = img
	return &services.StoredImage{URL: "https://cdn.test/designs/" + key, Key: key, Bucket: "test"}, nil
}

func (s *stubStore) Load(ctx context.Context, key string) (*services.Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	img, ok := s.images[key]
	if !ok {
		return nil, services.ErrImageNotFound
	}
	return img, nil
}

func (s *stubStore) KeyForURL(url string) (string, bool) {
	key := strings.TrimPrefix(url, "https://cdn.test/designs/")
	return key, key != url
}

type testServer struct {
	db      *gorm.DB
	gen     *stubGenerator
	planner *stubPlanner
	router  *gin.Engine
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	db, err := database.Open("sqlite:file::memory:")
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(migrations.Models()...))
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	prev := database.DB
	database.DB = db
	t.Cleanup(func() { database.DB = prev })

	for _, tpl := range []models.PromptTemplate{
		{ID: uuid.NewString(), Name: "top", PanelPosition: models.PanelPositionTop, PromptTemplate: "Top for {businessName}", Version: 1, IsActive: true, IsDefault: true},
		{ID: uuid.NewString(), Name: "bottom", PanelPosition: models.PanelPositionBottom, PromptTemplate: "Bottom saying {designText}", Version: 1, IsActive: true, IsDefault: true},
	} {
		tpl := tpl
		require.NoError(t, db.Create(&tpl).Error)
	}

	ts := &testServer{
		db:      db,
		gen:     &stubGenerator{},
		planner: &stubPlanner{},
	}
	store := &stubStore{images: map[string]*services.Image{}}
	Setup(services.NewDesigner(db, ts.gen, ts.planner, store, 0), nil)
	t.Cleanup(func() { Setup(nil, nil) })

	r := gin.New()
	r.Use(middleware.ErrorHandlerMiddleware())
	api := r.Group("/api")
	api.POST("/generate-initial-design", GenerateInitialDesign)
	api.POST("/generate-initial-design-new", GenerateInitialDesignPlanned)
	api.POST("/generate-design-iteration", GenerateDesignIteration)
	api.GET("/design/:id", GetDesign)
	api.POST("/generate-json-plan", GenerateJSONPlan)
	api.GET("/prompts", ListPrompts)
	api.GET("/prompts/:id", GetPrompt)
	api.POST("/prompts", CreatePrompt)
	api.PATCH("/prompts/:id", UpdatePrompt)
	api.DELETE("/prompts/:id", DeletePrompt)
	api.GET("/admin/settings", GetSettings)
	api.PUT("/admin/settings", UpdateSetting)
	r.GET("/health", Health)
	ts.router = r
	return ts
}

type response struct {
	Success       bool                    `json:"success"`
	Error         string                  `json:"error"`
	Details       []validation.FieldError `json:"details"`
	Data          json.RawMessage         `json:"data"`
	FirstCall     map[string]interface{}  `json:"firstCall"`
	ResponseData  *services.ProcessResult `json:"responseData"`
	GeneratedJSON map[string]interface{}  `json:"generatedJson"`
}

func (ts *testServer) do(t *testing.T, method, path, contentType, body string) (int, response) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)

	var resp response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return w.Code, resp
}

func (ts *testServer) doJSON(t *testing.T, method, path string, body interface{}) (int, response) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	return ts.do(t, method, path, "application/json", buf.String())
}

func designBody() map[string]interface{} {
	return map[string]interface{}{
		"userId":       42,
		"businessName": "Acme Realty",
		"industryType": "Real estate",
		"designText":   "Homes that fit",
		"bannerSize":   "1800x600",
		"preferences":  map[string]interface{}{"style": "modern", "colors": []string{"#112233"}},
		"contacts": []map[string]interface{}{
			{"type": "phone", "value": "555-0100", "panel": "top"},
		},
	}
}

func decode(t *testing.T, raw json.RawMessage, dest interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(raw, dest))
}

// createCompleted generates a design inline and returns its id.
func (ts *testServer) createCompleted(t *testing.T) string {
	t.Helper()
	code, resp := ts.doJSON(t, http.MethodPost, "/api/generate-initial-design", designBody())
	require.Equal(t, http.StatusCreated, code)

	var result services.ProcessResult
	decode(t, resp.Data, &result)
	require.True(t, result.Success, result.Error)
	return result.InitialDesignID
}
