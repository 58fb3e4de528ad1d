package handlers

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateJSONPlan(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		body        string
		wantCode    int
		wantPrompt  string
	}{
		{name: "raw text", contentType: "text/plain", body: "plan a bakery banner", wantCode: http.StatusOK, wantPrompt: "plan a bakery banner"},
		{name: "json prompt", contentType: "application/json", body: `{"prompt":"plan a gym banner"}`, wantCode: http.StatusOK, wantPrompt: "plan a gym banner"},
		{name: "empty body", contentType: "text/plain", body: "   ", wantCode: http.StatusBadRequest},
		{name: "json without prompt", contentType: "application/json", body: `{"other":1}`, wantCode: http.StatusBadRequest},
		{name: "malformed json", contentType: "application/json", body: `{"prompt":`, wantCode: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t)

			code, resp := ts.do(t, http.MethodPost, "/api/generate-json-plan", tt.contentType, tt.body)
			require.Equal(t, tt.wantCode, code)
			if tt.wantCode != http.StatusOK {
				assert.Equal(t, "Prompt missing or invalid", resp.Error)
				return
			}
			assert.True(t, resp.Success)
			assert.Contains(t, resp.GeneratedJSON, "top")
			assert.Equal(t, tt.wantPrompt, ts.planner.prompt)
		})
	}
}
