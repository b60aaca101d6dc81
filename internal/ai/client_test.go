package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/whatsapp-assistant/internal/httpclient"
)

var testSettings = Settings{
	Model:              "gemini-1.5-flash",
	Temperature:        0.2,
	SystemInstructions: "Eres un asistente personal.",
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *GeminiClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	config := httpclient.DefaultConfig()
	config.BaseURL = server.URL
	config.RetryCount = 0
	return NewGeminiClient(httpclient.NewClient(config), testSettings)
}

func TestGenerate(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/models/gemini-1.5-flash:generateContent", r.URL.Path)

		var request struct {
			Contents []struct {
				Role  string `json:"role"`
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"contents"`
			SystemInstruction struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"systemInstruction"`
			GenerationConfig struct {
				Temperature float64 `json:"temperature"`
			} `json:"generationConfig"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&request))

		require.Len(t, request.Contents, 1)
		assert.Equal(t, "user", request.Contents[0].Role)
		assert.Equal(t, "hola", request.Contents[0].Parts[0].Text)
		assert.Equal(t, testSettings.SystemInstructions, request.SystemInstruction.Parts[0].Text)
		assert.Equal(t, 0.2, request.GenerationConfig.Temperature)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"candidates": [
				{"content": {"parts": [{"text": "AGREGAR_TAREA "}, {"text": "Comprar pan"}]}}
			]
		}`))
	})

	reply, err := client.Generate(context.Background(), "hola")
	require.NoError(t, err)
	assert.Equal(t, "AGREGAR_TAREA Comprar pan", reply)
}

func TestGenerate_EmptyCandidates(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"candidates": []}`))
	})

	_, err := client.Generate(context.Background(), "hola")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty response")
}

func TestGenerate_UpstreamError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": {"code": 400}}`, http.StatusBadRequest)
	})

	_, err := client.Generate(context.Background(), "hola")
	require.Error(t, err)
	assert.True(t, httpclient.IsStatus(err, http.StatusBadRequest))
}

func TestLoadSettings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "assistant.yaml")
	content := `
assistant:
  model: "gemini-1.5-flash"
  temperature: 0.2
  system_instructions: |
    Eres un asistente personal.
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	settings, err := LoadSettings(path)
	require.NoError(t, err)
	assert.Equal(t, "gemini-1.5-flash", settings.Model)
	assert.Equal(t, 0.2, settings.Temperature)
	assert.Contains(t, settings.SystemInstructions, "asistente personal")
}

func TestLoadSettings_Missing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "assistant.yaml")
	require.NoError(t, os.WriteFile(path, []byte("assistant:\n  temperature: 0.2\n"), 0o644))

	_, err := LoadSettings(path)
	require.Error(t, err)
}
