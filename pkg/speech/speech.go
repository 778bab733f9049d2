// Package speech reads captions aloud through a pluggable text-to-speech engine.
package speech

import (
	"context"
	"errors"
	"fmt"
)

// Static errors.
var (
	ErrUnavailable  = errors.New("speech synthesis is not available")
	ErrUnknownVoice = errors.New("unknown voice")
	ErrEmptyText    = errors.New("text cannot be empty")
	ErrVolumeRange  = errors.New("volume must be between 0.0 and 1.0")
)

// Voice is a synthesizer voice. ID is stable across voice list refreshes.
type Voice struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Lang    string `json:"lang"`
	Default bool   `json:"default,omitempty"`
}

// Utterance is one piece of text to speak
type Utterance struct {
	Text    string  `json:"text"`
	VoiceID string  `json:"voice_id,omitempty"`
	Volume  float64 `json:"volume"`
}

// Validate checks the utterance before it is sent to an engine
func (u Utterance) Validate() error {
	if u.Text == "" {
		return ErrEmptyText
	}
	if u.Volume < 0 || u.Volume > 1 {
		return fmt.Errorf("%w: %v", ErrVolumeRange, u.Volume)
	}
	return nil
}

// Clip is synthesized audio for one utterance
type Clip struct {
	Text        string `json:"text"`
	ContentType string `json:"content_type"`
	Audio       []byte `json:"audio"`
}

// Engine converts text to audio
type Engine interface {
	Voices(ctx context.Context) ([]Voice, error)
	Synthesize(ctx context.Context, u Utterance) (Clip, error)
}

// Disabled is the engine used when no synthesizer is configured
type Disabled struct{}

// Voices always fails with ErrUnavailable
func (Disabled) Voices(context.Context) ([]Voice, error) {
	return nil, ErrUnavailable
}

// Synthesize always fails with ErrUnavailable
func (Disabled) Synthesize(context.Context, Utterance) (Clip, error) {
	return Clip{}, ErrUnavailable
}

// FindVoice looks a voice up by ID
func FindVoice(voices []Voice, id string) (Voice, error) {
	for _, v := range voices {
		if v.ID == id {
			return v, nil
		}
	}
	return Voice{}, fmt.Errorf("%w: %q", ErrUnknownVoice, id)
}

// DefaultVoice is the voice preselected after the list is populated: the
// first one offered.
func DefaultVoice(voices []Voice) (Voice, bool) {
	if len(voices) == 0 {
		return Voice{}, false
	}
	return voices[0], true
}
