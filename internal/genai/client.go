// Package genai provides the client for the hosted generative model API
// used to interpret canvas snapshots.
package genai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// analysisPrompt is the fixed instruction sent with every canvas image.
const analysisPrompt = "Please analyze this image in detail. If it contains mathematical expressions, solve them step by step. If it contains diagrams or drawings, describe them thoroughly. If it contains word games or puzzles, provide the solution with explanation."

const defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// The upstream call is the only external I/O in the system; an unbounded
// wait would pin a handler goroutine per stuck request.
const defaultTimeout = 60 * time.Second

// Analyzer turns raw base64 image data into a textual interpretation.
type Analyzer interface {
	AnalyzeImage(ctx context.Context, base64Data string) (string, error)
}

// Client calls the Gemini generateContent REST endpoint.
type Client struct {
	APIKey     string
	Model      string
	BaseURL    string
	HTTPClient *http.Client
}

// NewClient creates a Client for the given API key and model.
func NewClient(apiKey, model string) *Client {
	return &Client{
		APIKey:  apiKey,
		Model:   model,
		BaseURL: defaultBaseURL,
		HTTPClient: &http.Client{
			Timeout: defaultTimeout,
		},
	}
}

type generateContentRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type generateContentResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Error *apiError `json:"error"`
}

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

// AnalyzeImage sends the image to the model with the fixed analysis prompt
// and returns the generated text verbatim. Network failures, quota errors
// and malformed-input errors all surface as a single error value; callers
// do not retry.
func (c *Client) AnalyzeImage(ctx context.Context, base64Data string) (string, error) {
	reqBody := generateContentRequest{
		Contents: []content{{
			Parts: []part{
				{Text: analysisPrompt},
				{InlineData: &inlineData{
					MimeType: "image/png",
					Data:     base64Data,
				}},
			},
		}},
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("encoding request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", c.BaseURL, c.Model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.APIKey)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling model API: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading model response: %w", err)
	}

	var parsed generateContentResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("decoding model response (status %d): %w", resp.StatusCode, err)
	}

	if resp.StatusCode != http.StatusOK {
		if parsed.Error != nil {
			return "", fmt.Errorf("model API error (%s): %s", parsed.Error.Status, parsed.Error.Message)
		}
		return "", fmt.Errorf("model API returned status %d", resp.StatusCode)
	}

	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("model API returned no candidates")
	}

	return parsed.Candidates[0].Content.Parts[0].Text, nil
}
