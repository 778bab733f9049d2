package speech

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

// API endpoints of the TTS service.
const (
	apiSynthesize = "/synthesize"
	apiVoices     = "/voices"
	apiHealth     = "/health"
)

// HTTP headers.
const (
	headerContentType = "Content-Type"
	headerAccept      = "Accept"
	contentTypeJSON   = "application/json"
	// ContentTypeWAV is the audio format engines return by default
	ContentTypeWAV = "audio/wav"
)

var errEmptyAudio = errors.New("received empty audio data")

// serviceError is the JSON error body of the TTS service
type serviceError struct {
	Detail    string `json:"detail"`
	ErrorCode string `json:"error_code,omitempty"`
}

// HTTPEngine talks to a standalone TTS HTTP service
type HTTPEngine struct {
	httpClient *http.Client
	baseURL    string
}

// NewHTTPEngine creates an engine for the service at baseURL (e.g. "http://localhost:8000")
func NewHTTPEngine(baseURL string, timeout time.Duration) *HTTPEngine {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPEngine{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Voices lists the voices offered by the service
func (e *HTTPEngine) Voices(ctx context.Context) ([]Voice, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.baseURL+apiVoices, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set(headerAccept, contentTypeJSON)

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to list voices at %s: %w", e.baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, parseErrorResponse(resp)
	}

	var voices []Voice
	if err := json.NewDecoder(resp.Body).Decode(&voices); err != nil {
		return nil, fmt.Errorf("failed to decode voice list: %w", err)
	}
	return voices, nil
}

// Synthesize sends the utterance to the service and returns the audio
func (e *HTTPEngine) Synthesize(ctx context.Context, u Utterance) (Clip, error) {
	if err := u.Validate(); err != nil {
		return Clip{}, err
	}

	body, err := json.Marshal(u)
	if err != nil {
		return Clip{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+apiSynthesize, bytes.NewReader(body))
	if err != nil {
		return Clip{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set(headerContentType, contentTypeJSON)
	req.Header.Set(headerAccept, ContentTypeWAV)

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return Clip{}, fmt.Errorf("failed to send request to TTS service at %s: %w", e.baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Clip{}, parseErrorResponse(resp)
	}

	contentType := resp.Header.Get(headerContentType)
	if !strings.HasPrefix(contentType, "audio/") {
		return Clip{}, fmt.Errorf("unexpected content type: expected audio, got %s", contentType)
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return Clip{}, fmt.Errorf("failed to read audio data: %w", err)
	}
	if len(audio) == 0 {
		return Clip{}, errEmptyAudio
	}

	return Clip{Text: u.Text, ContentType: contentType, Audio: audio}, nil
}

// HealthCheck verifies that the service is reachable
func (e *HTTPEngine) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.baseURL+apiHealth, http.NoBody)
	if err != nil {
		return fmt.Errorf("failed to create health check request: %w", err)
	}

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed for service at %s: %w", e.baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check failed with status: %s", resp.Status)
	}
	return nil
}

// parseErrorResponse decodes a structured error and falls back to the raw body
func parseErrorResponse(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)

	var se serviceError
	if err := json.Unmarshal(body, &se); err == nil && se.Detail != "" {
		if resp.StatusCode == http.StatusNotFound && se.ErrorCode == "unknown_voice" {
			return fmt.Errorf("%w: %s", ErrUnknownVoice, se.Detail)
		}
		return fmt.Errorf("TTS service error (%s): %s (code: %s)", resp.Status, se.Detail, se.ErrorCode)
	}

	return fmt.Errorf("TTS service returned non-OK status: %s, body: %s", resp.Status, string(body))
}
