package services

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/appnity/bannerstudio-backend/internal/models"
)

func TestRenderTemplate(t *testing.T) {
	tests := []struct {
		name     string
		template string
		vars     Vars
		want     string
		wantErr  string
	}{
		{
			name:     "required and optional",
			template: "Hello {name}{suffix?}!",
			vars:     Vars{"name": "Acme"},
			want:     "Hello Acme!",
		},
		{
			name:     "empty value counts as present",
			template: "[{name}]",
			vars:     Vars{"name": ""},
			want:     "[]",
		},
		{
			name:     "non placeholders untouched",
			template: `{"json": true} { spaced } {a-b}`,
			vars:     Vars{},
			want:     `{"json": true} { spaced } {a-b}`,
		},
		{
			name:     "missing required",
			template: "{a} {b} {a}",
			vars:     Vars{},
			wantErr:  "missing required value for variable: a, b",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := RenderTemplate(tt.template, tt.vars)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrMissingVariable))
				assert.Equal(t, tt.wantErr, err.Error())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDesignVariables(t *testing.T) {
	d := &models.Design{
		BusinessName: "Acme",
		IndustryType: "Bakery",
		DesignText:   "Fresh daily",
		BannerSize:   "1800×600",
		Preferences:  datatypes.NewJSONType(models.Preferences{Style: "retro", Colors: []string{"#FF0000", "#00FF00"}}),
		ImageInputs: datatypes.JSONSlice[models.ImageInput]{
			{URL: "https://cdn.test/logo.png", ImageInstructionsForLLM: "Use as main logo", Panel: "top"},
			{URL: "https://cdn.test/other.png", ImageInstructionsForLLM: "Background texture", Panel: "bottom"},
			{URL: "https://cdn.test/insp2.png", ImageInstructionsForLLM: "This is extra inspiration image 2", Panel: "bottom"},
		},
		Contacts: datatypes.JSONSlice[models.Contact]{
			{Type: "website", Value: "acme.test", Panel: "top_bottom"},
		},
	}

	vars := DesignVariables(d)
	assert.Equal(t, "Style: retro, Colors: #FF0000, #00FF00", vars["preferences"])
	assert.Equal(t, "#FF0000, #00FF00", vars["colors"])
	assert.Equal(t, "retro", vars["style"])
	assert.Equal(t, "Website: acme.test", vars["contacts"])
	assert.Equal(t, "https://cdn.test/logo.png", vars["logoImageUrl"])
	assert.Equal(t, "https://cdn.test/insp2.png", vars["inspirationImage2Url"])
	_, ok := vars["headshotImageUrl"]
	assert.False(t, ok)
	_, ok = vars["inspirationImage1Url"]
	assert.False(t, ok)
}

func TestFormatPreferences(t *testing.T) {
	assert.Equal(t, "", FormatPreferences(models.Preferences{}))
	assert.Equal(t, "Style: flat", FormatPreferences(models.Preferences{Style: "flat"}))
	assert.Equal(t, "Colors: #000000", FormatPreferences(models.Preferences{Colors: []string{"#000000"}}))
}

func TestPanelVariables(t *testing.T) {
	d := &models.Design{
		Contacts: datatypes.JSONSlice[models.Contact]{
			{Type: "phone", Value: "1", Panel: "top"},
			{Type: "email", Value: "a@b.c", Panel: "bottom"},
			{Type: "x", Value: "@acme", Panel: "top_bottom"},
		},
	}
	yes := true

	vars := PanelVariables(d, models.PanelBottom, PanelPlan{IncludeLogo: &yes})
	assert.Equal(t, "Email: a@b.c (Position: bottom), X: @acme (Position: top_bottom)", vars["contacts"])
	assert.Equal(t, "true", vars["includeLogo"])
	_, ok := vars["includeHeadshot"]
	assert.False(t, ok)
}

func TestBuildIterationPrompt(t *testing.T) {
	assert.Equal(t, "just notes", BuildIterationPrompt("  ", "just notes"))
	assert.Equal(t,
		"Original\n\nITERATION REQUEST:\nMake it blue\n\nPlease modify the design according to the iteration request above while maintaining the overall design principles from the original prompt.",
		BuildIterationPrompt(" Original ", " Make it blue "),
	)
}
