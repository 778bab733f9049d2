// Package session holds the state of one meme editing session and the
// handlers that change it: loading an image, generating, resetting, volume,
// voice selection and reading the captions aloud.
package session

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"

	messagebus "github.com/vardius/message-bus"

	"github.com/menta2k/meme-generator/pkg/fit"
	"github.com/menta2k/meme-generator/pkg/loader"
	"github.com/menta2k/meme-generator/pkg/render"
	"github.com/menta2k/meme-generator/pkg/speech"
)

// ErrReadDisabled is returned by Read before a meme has been generated
var ErrReadDisabled = errors.New("nothing to read: generate a meme first")

// Config holds per-session settings
type Config struct {
	Width  int
	Height int
	Style  render.TextStyle
	// Volume is the initial slider level
	Volume int
}

// DefaultConfig returns a 400x400 surface at full volume
func DefaultConfig() Config {
	return Config{
		Width:  render.DefaultWidth,
		Height: render.DefaultHeight,
		Style:  render.DefaultTextStyle(),
		Volume: speech.MaxVolume,
	}
}

// State is a read-only view of the session
type State struct {
	ID           string      `json:"id"`
	ImageName    string      `json:"image_name,omitempty"`
	Fit          *fit.Result `json:"fit,omitempty"`
	Captions     Captions    `json:"captions"`
	Volume       int         `json:"volume"`
	VolumeIcon   string      `json:"volume_icon"`
	VoiceID      string      `json:"voice_id,omitempty"`
	ResetEnabled bool        `json:"reset_enabled"`
	ReadEnabled  bool        `json:"read_enabled"`
}

// Session is the application state behind one editor
type Session struct {
	mu sync.Mutex

	id      string
	surface *render.Surface
	engine  speech.Engine
	bus     messagebus.MessageBus

	imageName    string
	lastFit      *fit.Result
	captions     Captions
	volume       speech.Volume
	voices       []speech.Voice
	voiceID      string
	resetEnabled bool
	readEnabled  bool
}

// New creates a session. engine may be nil when speech is not configured and
// bus may be nil when nobody listens for events.
func New(id string, cfg Config, engine speech.Engine, bus messagebus.MessageBus) (*Session, error) {
	surface, err := render.NewSurface(cfg.Width, cfg.Height, cfg.Style)
	if err != nil {
		return nil, fmt.Errorf("failed to create drawing surface: %w", err)
	}
	if engine == nil {
		engine = speech.Disabled{}
	}
	return &Session{
		id:      id,
		surface: surface,
		engine:  engine,
		bus:     bus,
		volume:  speech.NewVolume(cfg.Volume),
	}, nil
}

// ID returns the session identifier
func (s *Session) ID() string {
	return s.id
}

// LoadImage draws a newly selected image letterboxed onto the surface
func (s *Session) LoadImage(src loader.Source) (fit.Result, error) {
	if src.Image == nil {
		return fit.Result{}, loader.ErrNoImage
	}

	s.mu.Lock()
	result, err := s.surface.Compose(src.Image)
	if err != nil {
		s.mu.Unlock()
		return fit.Result{}, fmt.Errorf("failed to draw %s: %w", src.Name, err)
	}
	s.imageName = src.Name
	s.lastFit = &result
	s.mu.Unlock()

	s.publish(TopicImageLoaded, s.id, src.Name, result)
	return result, nil
}

// Generate stores the captions, draws them and enables reset and read
func (s *Session) Generate(top, bottom string) {
	captions := Captions{Top: top, Bottom: bottom}

	s.mu.Lock()
	s.captions = captions
	s.surface.DrawCaptions(top, bottom)
	s.resetEnabled = true
	s.readEnabled = true
	s.mu.Unlock()

	s.publish(TopicMemeGenerated, s.id, captions)
}

// Reset clears the surface, forgets the loaded image and disables reset and
// read
func (s *Session) Reset() {
	s.mu.Lock()
	s.surface.Clear()
	s.imageName = ""
	s.lastFit = nil
	s.resetEnabled = false
	s.readEnabled = false
	s.mu.Unlock()

	s.publish(TopicMemeReset, s.id)
}

// SetVolume moves the volume slider and returns the indicator level
func (s *Session) SetVolume(value int) speech.Icon {
	v := speech.NewVolume(value)

	s.mu.Lock()
	s.volume = v
	s.mu.Unlock()

	icon := v.Icon()
	s.publish(TopicVolumeChanged, s.id, v, icon)
	return icon
}

// Voices refreshes the voice list and returns the dropdown entries. The
// first voice is preselected when nothing has been chosen yet.
func (s *Session) Voices(ctx context.Context) ([]speech.Option, error) {
	voices, err := s.engine.Voices(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list voices: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.voices = voices
	if _, err := speech.FindVoice(voices, s.voiceID); err != nil {
		s.voiceID = ""
		if v, ok := speech.DefaultVoice(voices); ok {
			s.voiceID = v.ID
		}
	}
	return speech.Options(voices, s.voiceID), nil
}

// SelectVoice chooses the voice used by Read
func (s *Session) SelectVoice(ctx context.Context, id string) error {
	s.mu.Lock()
	known := s.voices
	s.mu.Unlock()

	if len(known) == 0 {
		if _, err := s.Voices(ctx); err != nil {
			return err
		}
		s.mu.Lock()
		known = s.voices
		s.mu.Unlock()
	}

	if _, err := speech.FindVoice(known, id); err != nil {
		return err
	}

	s.mu.Lock()
	s.voiceID = id
	s.mu.Unlock()
	return nil
}

// Read synthesizes the top caption then the bottom caption, skipping empty ones
func (s *Session) Read(ctx context.Context) ([]speech.Clip, error) {
	s.mu.Lock()
	if !s.readEnabled {
		s.mu.Unlock()
		return nil, ErrReadDisabled
	}
	lines := s.captions.Lines()
	voiceID := s.voiceID
	gain := s.volume.Gain()
	s.mu.Unlock()

	clips := make([]speech.Clip, 0, len(lines))
	for _, line := range lines {
		clip, err := s.engine.Synthesize(ctx, speech.Utterance{Text: line, VoiceID: voiceID, Volume: gain})
		if err != nil {
			return nil, fmt.Errorf("failed to read %q: %w", line, err)
		}
		clips = append(clips, clip)
	}
	return clips, nil
}

// Snapshot returns a copy of the surface
func (s *Session) Snapshot() image.Image {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.surface.Image()
}

// State returns the current state
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	return State{
		ID:           s.id,
		ImageName:    s.imageName,
		Fit:          s.lastFit,
		Captions:     s.captions,
		Volume:       int(s.volume),
		VolumeIcon:   s.volume.Icon().Path(),
		VoiceID:      s.voiceID,
		ResetEnabled: s.resetEnabled,
		ReadEnabled:  s.readEnabled,
	}
}

func (s *Session) publish(topic string, args ...interface{}) {
	if s.bus != nil {
		s.bus.Publish(topic, args...)
	}
}
