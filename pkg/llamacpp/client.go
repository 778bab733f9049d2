// Package llamacpp asks a llama.cpp server (OpenAI-compatible chat endpoint)
// about an image.
package llamacpp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultURL     = "http://localhost:8080"
	completionPath = "/v1/chat/completions"
	maxReplyTokens = 256
)

var (
	errNoChoices = errors.New("no choices in response")
	errNoText    = errors.New("no text content in response")
)

// Client talks to a llama.cpp server
type Client struct {
	baseURL    string
	httpClient *http.Client
}

type part struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type message struct {
	Role    string `json:"role"`
	Content []part `json:"content"`
}

type completionRequest struct {
	Model       string    `json:"model"`
	Messages    []message `json:"messages"`
	Temperature float64   `json:"temperature"`
	TopP        float64   `json:"top_p"`
	MaxTokens   int       `json:"max_tokens"`
	Stream      bool      `json:"stream"`
}

// reply content is either a plain string or a list of parts
type completionResponse struct {
	Choices []struct {
		Message struct {
			Content json.RawMessage `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// NewClient creates a client for serverURL, defaulting to localhost:8080
func NewClient(serverURL string) (*Client, error) {
	if serverURL == "" {
		serverURL = defaultURL
	}

	return &Client{
		baseURL:    strings.TrimSuffix(serverURL, "/"),
		httpClient: &http.Client{Timeout: 2 * time.Minute},
	}, nil
}

// Complete sends the prompt and an optional base64 JPEG
func (c *Client) Complete(ctx context.Context, model, prompt, imgB64 string) (string, error) {
	content := []part{{Type: "text", Text: prompt}}
	if imgB64 != "" {
		content = append(content, part{
			Type:     "image_url",
			ImageURL: &imageURL{URL: "data:image/jpeg;base64," + imgB64},
		})
	}

	body, err := json.Marshal(completionRequest{
		Model:       model,
		Messages:    []message{{Role: "user", Content: content}},
		Temperature: 0.9,
		TopP:        0.9,
		MaxTokens:   maxReplyTokens,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+completionPath, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("server returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	var reply completionResponse
	if err := json.Unmarshal(data, &reply); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	if len(reply.Choices) == 0 {
		return "", errNoChoices
	}
	return firstText(reply.Choices[0].Message.Content)
}

func firstText(raw json.RawMessage) (string, error) {
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		if text == "" {
			return "", errNoText
		}
		return text, nil
	}

	var parts []part
	if err := json.Unmarshal(raw, &parts); err != nil {
		return "", errNoText
	}
	for _, p := range parts {
		if p.Text != "" {
			return p.Text, nil
		}
	}
	return "", errNoText
}
