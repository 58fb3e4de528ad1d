package handlers

import (
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/appnity/bannerstudio-backend/internal/models"
)

func TestPromptCRUD(t *testing.T) {
	ts := newTestServer(t)

	code, resp := ts.doJSON(t, http.MethodPost, "/api/prompts", map[string]interface{}{
		"name":           "Seasonal top",
		"panelPosition":  "TOP",
		"promptTemplate": "Seasonal banner for {businessName}",
		"isDefault":      true,
	})
	require.Equal(t, http.StatusCreated, code)

	var created models.PromptTemplate
	decode(t, resp.Data, &created)
	assert.Equal(t, 1, created.Version)
	assert.True(t, created.IsActive)
	assert.True(t, created.IsDefault)

	var defaults int64
	ts.db.Model(&models.PromptTemplate{}).
		Where("panel_position = ? AND is_default = ?", models.PanelPositionTop, true).
		Count(&defaults)
	assert.EqualValues(t, 1, defaults, "creating a default clears the previous one")

	code, resp = ts.doJSON(t, http.MethodGet, "/api/prompts/"+created.ID, nil)
	require.Equal(t, http.StatusOK, code)

	code, resp = ts.doJSON(t, http.MethodPatch, "/api/prompts/"+created.ID, map[string]interface{}{
		"version":  2,
		"isActive": false,
	})
	require.Equal(t, http.StatusOK, code)
	var updated models.PromptTemplate
	decode(t, resp.Data, &updated)
	assert.Equal(t, 2, updated.Version)
	assert.False(t, updated.IsActive)
	assert.Equal(t, "Seasonal top", updated.Name)

	code, _ = ts.doJSON(t, http.MethodDelete, "/api/prompts/"+created.ID, nil)
	assert.Equal(t, http.StatusOK, code)

	code, resp = ts.doJSON(t, http.MethodGet, "/api/prompts/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "Prompt template not found", resp.Error)

	code, _ = ts.doJSON(t, http.MethodDelete, "/api/prompts/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestListPrompts_Filters(t *testing.T) {
	ts := newTestServer(t)

	code, resp := ts.doJSON(t, http.MethodGet, "/api/prompts?panelPosition=BOTTOM", nil)
	require.Equal(t, http.StatusOK, code)

	var page struct {
		Prompts []models.PromptTemplate `json:"prompts"`
		Total   int64                   `json:"total"`
		Limit   int                     `json:"limit"`
		Offset  int                     `json:"offset"`
	}
	decode(t, resp.Data, &page)
	assert.EqualValues(t, 1, page.Total)
	assert.Equal(t, 50, page.Limit)
	require.Len(t, page.Prompts, 1)
	assert.Equal(t, models.PanelPositionBottom, page.Prompts[0].PanelPosition)

	code, resp = ts.doJSON(t, http.MethodGet, "/api/prompts?search=TOP&limit=1", nil)
	require.Equal(t, http.StatusOK, code)
	decode(t, resp.Data, &page)
	assert.EqualValues(t, 1, page.Total)
	assert.Equal(t, 1, page.Limit)

	code, _ = ts.doJSON(t, http.MethodGet, "/api/prompts?panelPosition=MIDDLE", nil)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestPrompts_RejectsBadInput(t *testing.T) {
	ts := newTestServer(t)

	code, resp := ts.doJSON(t, http.MethodGet, "/api/prompts/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, code)
	require.Len(t, resp.Details, 1)
	assert.Equal(t, "id", resp.Details[0].Field)

	code, _ = ts.doJSON(t, http.MethodPost, "/api/prompts", map[string]interface{}{
		"name":           "Side",
		"panelPosition":  "SIDE",
		"promptTemplate": "x",
	})
	assert.Equal(t, http.StatusBadRequest, code)

	var existing models.PromptTemplate
	require.NoError(t, ts.db.First(&existing).Error)
	code, resp = ts.doJSON(t, http.MethodPatch, "/api/prompts/"+existing.ID, map[string]interface{}{})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "At least one field must be provided", resp.Error)
}

func TestUpdatePrompt_SeededDefault(t *testing.T) {
	ts := newTestServer(t)

	var seeded models.PromptTemplate
	require.NoError(t, ts.db.
		Where("panel_position = ? AND is_default = ?", models.PanelPositionTop, true).
		First(&seeded).Error)

	code, resp := ts.doJSON(t, http.MethodPatch, "/api/prompts/"+seeded.ID, map[string]interface{}{
		"name": "Renamed top",
	})
	require.Equal(t, http.StatusOK, code, resp.Error)

	var updated models.PromptTemplate
	decode(t, resp.Data, &updated)
	assert.Equal(t, "Renamed top", updated.Name)
	assert.True(t, updated.IsDefault)

	code, resp = ts.doJSON(t, http.MethodPost, "/api/prompts", map[string]interface{}{
		"name":           "Replacement top",
		"panelPosition":  "TOP",
		"promptTemplate": "Replacement for {businessName}",
		"isDefault":      true,
	})
	require.Equal(t, http.StatusCreated, code, resp.Error)

	require.NoError(t, ts.db.First(&seeded, "id = ?", seeded.ID).Error)
	assert.False(t, seeded.IsDefault)
}

func TestCreatePrompt_DescriptionLength(t *testing.T) {
	ts := newTestServer(t)

	body := func(name, description string) map[string]interface{} {
		return map[string]interface{}{
			"name":           name,
			"panelPosition":  "BOTTOM",
			"promptTemplate": "Bottom for {designText}",
			"description":    description,
		}
	}

	code, resp := ts.doJSON(t, http.MethodPost, "/api/prompts", body("Long notes", strings.Repeat("d", 1000)))
	assert.Equal(t, http.StatusCreated, code, resp.Error)

	code, resp = ts.doJSON(t, http.MethodPost, "/api/prompts", body("Too long", strings.Repeat("d", 1001)))
	assert.Equal(t, http.StatusBadRequest, code)
	require.Len(t, resp.Details, 1)
	assert.Equal(t, "description", resp.Details[0].Field)
}
