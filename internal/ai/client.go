package ai

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/user/whatsapp-assistant/internal/httpclient"
)

// Client is the LLM oracle interface used by the assistant.
type Client interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// GeminiClient calls the Gemini generateContent endpoint.
type GeminiClient struct {
	httpClient *httpclient.Client
	settings   Settings
}

// NewClient builds the oracle from the configuration files: the HTTP client
// (base URL, API key header, timeout) from configs/api.yaml and the model
// settings from configs/assistant.yaml.
func NewClient(logger *zap.SugaredLogger) (Client, error) {
	configs, err := httpclient.LoadConfig("configs/api.yaml")
	if err != nil {
		return nil, fmt.Errorf("failed to load API configuration: %w", err)
	}

	clientConfig, err := configs.GetClientConfig("gemini")
	if err != nil {
		return nil, fmt.Errorf("failed to get Gemini client configuration: %w", err)
	}

	client, err := clientConfig.CreateClient(logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP client: %w", err)
	}

	settings, err := LoadSettings("configs/assistant.yaml")
	if err != nil {
		return nil, fmt.Errorf("failed to load assistant settings: %w", err)
	}

	return NewGeminiClient(client, settings), nil
}

// NewGeminiClient wires an oracle over an already-configured HTTP client.
func NewGeminiClient(client *httpclient.Client, settings Settings) *GeminiClient {
	return &GeminiClient{httpClient: client, settings: settings}
}

// Gemini generateContent wire types.
type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	Temperature float64 `json:"temperature"`
}

type geminiRequest struct {
	Contents          []geminiContent        `json:"contents"`
	SystemInstruction *geminiContent         `json:"systemInstruction,omitempty"`
	GenerationConfig  geminiGenerationConfig `json:"generationConfig"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []geminiPart `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// Generate sends the user prompt with the fixed system instructions and
// returns the model's text reply.
func (c *GeminiClient) Generate(ctx context.Context, prompt string) (string, error) {
	request := geminiRequest{
		Contents: []geminiContent{
			{Role: "user", Parts: []geminiPart{{Text: prompt}}},
		},
		SystemInstruction: &geminiContent{
			Parts: []geminiPart{{Text: c.settings.SystemInstructions}},
		},
		GenerationConfig: geminiGenerationConfig{Temperature: c.settings.Temperature},
	}

	var response geminiResponse
	path := fmt.Sprintf("models/%s:generateContent", c.settings.Model)
	if err := c.httpClient.Post(ctx, path, request, &response); err != nil {
		return "", fmt.Errorf("error calling Gemini API: %w", err)
	}

	if len(response.Candidates) == 0 || len(response.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("empty response from Gemini API")
	}

	var b strings.Builder
	for _, part := range response.Candidates[0].Content.Parts {
		b.WriteString(part.Text)
	}
	return b.String(), nil
}
