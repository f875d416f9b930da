package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"classquiz-service/config"
)

// GeminiClient calls the Gemini generateContent endpoint. Generation is
// pinned deterministic (temperature 0) and the model is asked for a strict
// JSON payload; clustering the same responses twice should give the same
// grouping.
type GeminiClient struct {
	httpClient *http.Client
	apiKey     string
	model      string
	baseURL    string
}

func NewGeminiClient(cfg *config.GeminiConfig) *GeminiClient {
	return &GeminiClient{
		httpClient: &http.Client{Timeout: time.Duration(cfg.TimeoutSec) * time.Second},
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		baseURL:    cfg.BaseURL,
	}
}

// SetHTTPClient swaps the underlying HTTP client. Used by tests.
func (c *GeminiClient) SetHTTPClient(httpClient *http.Client) {
	c.httpClient = httpClient
}

type part struct {
	Text string `json:"text"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generationConfig struct {
	Temperature      float64 `json:"temperature"`
	TopK             int     `json:"topK"`
	TopP             float64 `json:"topP"`
	MaxOutputTokens  int     `json:"maxOutputTokens"`
	ResponseMIMEType string  `json:"responseMimeType"`
}

type generateRequest struct {
	Contents          []content        `json:"contents"`
	SystemInstruction *content         `json:"systemInstruction,omitempty"`
	GenerationConfig  generationConfig `json:"generationConfig"`
}

type generateResponse struct {
	Candidates []struct {
		Content *struct {
			Parts []part `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// text digs out candidates[0].content.parts[0].text. Absence at any nesting
// level degrades to an empty string rather than an error.
func (r *generateResponse) text() string {
	if len(r.Candidates) == 0 || r.Candidates[0].Content == nil {
		return ""
	}
	parts := r.Candidates[0].Content.Parts
	if len(parts) == 0 {
		return ""
	}
	return parts[0].Text
}

// GenerateContent sends userContent as the primary message with
// systemInstruction as a system-level directive and returns the model's
// textual payload.
func (c *GeminiClient) GenerateContent(ctx context.Context, systemInstruction, userContent string) (string, error) {
	reqBody := generateRequest{
		Contents: []content{
			{Role: "user", Parts: []part{{Text: userContent}}},
		},
		SystemInstruction: &content{
			Role:  "user",
			Parts: []part{{Text: systemInstruction}},
		},
		GenerationConfig: generationConfig{
			Temperature:      0,
			TopK:             40,
			TopP:             0.95,
			MaxOutputTokens:  2048,
			ResponseMIMEType: "application/json",
		},
	}

	encoded, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	reqURL := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, c.model, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(encoded))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("gemini returned status %d: %s", resp.StatusCode, body)
	}

	var payload generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("failed to decode gemini response: %w", err)
	}

	return payload.text(), nil
}
