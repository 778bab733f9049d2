package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/menta2k/meme-generator/pkg/render"
)

// Speech backends
const (
	SpeechNone = "none"
	SpeechHTTP = "http"
	SpeechNATS = "nats"
)

// Suggestion backends
const (
	SuggestNone     = "none"
	SuggestOllama   = "ollama"
	SuggestLlamaCpp = "llamacpp"
)

// Config holds the application configuration
type Config struct {
	Canvas   CanvasConfig   `json:"canvas" toml:"canvas"`
	Captions CaptionsConfig `json:"captions" toml:"captions"`
	Loader   LoaderConfig   `json:"loader" toml:"loader"`
	Output   OutputConfig   `json:"output" toml:"output"`
	Speech   SpeechConfig   `json:"speech" toml:"speech"`
	Suggest  SuggestConfig  `json:"suggest" toml:"suggest"`
	Server   ServerConfig   `json:"server" toml:"server"`
	Logging  LoggingConfig  `json:"logging" toml:"logging"`
}

// CanvasConfig holds the drawing surface size
type CanvasConfig struct {
	Width  int `json:"width" toml:"width"`
	Height int `json:"height" toml:"height"`
}

// CaptionsConfig holds the caption text style
type CaptionsConfig struct {
	FontSize      float64 `json:"font_size" toml:"font_size"`
	Color         string  `json:"color" toml:"color"`
	MarginDivisor float64 `json:"margin_divisor" toml:"margin_divisor"`
}

// LoaderConfig holds image loading limits
type LoaderConfig struct {
	SupportedFormats []string `json:"supported_formats" toml:"supported_formats"`
	MaxBytes         int64    `json:"max_bytes" toml:"max_bytes"`
	TimeoutSeconds   int      `json:"timeout_seconds" toml:"timeout_seconds"`
	AutoOrient       bool     `json:"auto_orient" toml:"auto_orient"`
}

// OutputConfig holds configuration for output generation
type OutputConfig struct {
	DefaultFormat string `json:"default_format" toml:"default_format"`
	Quality       int    `json:"quality" toml:"quality"`
	Lossless      bool   `json:"lossless" toml:"lossless"`
	OutputDir     string `json:"output_dir" toml:"output_dir"`
	Suffix        string `json:"suffix" toml:"suffix"`
}

// SpeechConfig selects and configures the text-to-speech engine
type SpeechConfig struct {
	Backend        string `json:"backend" toml:"backend"`
	URL            string `json:"url" toml:"url"`
	Subject        string `json:"subject" toml:"subject"`
	TimeoutSeconds int    `json:"timeout_seconds" toml:"timeout_seconds"`
	DefaultVolume  int    `json:"default_volume" toml:"default_volume"`
	// BridgeURL, when set, makes the server answer speech requests on
	// this NATS server under Subject using its own engine
	BridgeURL string `json:"bridge_url,omitempty" toml:"bridge_url,omitempty"`
}

// SuggestConfig selects the vision model used for caption suggestions
type SuggestConfig struct {
	Backend string `json:"backend" toml:"backend"`
	URL     string `json:"url" toml:"url"`
	Model   string `json:"model" toml:"model"`
	Prompt  string `json:"prompt,omitempty" toml:"prompt,omitempty"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Addr               string `json:"addr" toml:"addr"`
	SessionIdleMinutes int    `json:"session_idle_minutes" toml:"session_idle_minutes"`
}

// LoggingConfig holds where log files go
type LoggingConfig struct {
	Dir  string `json:"dir" toml:"dir"`
	File string `json:"file" toml:"file"`
}

// Default returns a configuration with default values
func Default() *Config {
	return &Config{
		Canvas: CanvasConfig{
			Width:  render.DefaultWidth,
			Height: render.DefaultHeight,
		},
		Captions: CaptionsConfig{
			FontSize:      30,
			Color:         "#ffffff",
			MarginDivisor: 11,
		},
		Loader: LoaderConfig{
			SupportedFormats: []string{"jpeg", "png", "gif", "webp", "bmp", "tiff"},
			MaxBytes:         50 << 20,
			TimeoutSeconds:   30,
			AutoOrient:       true,
		},
		Output: OutputConfig{
			DefaultFormat: "png",
			Quality:       90,
			OutputDir:     "./output",
			Suffix:        "_meme",
		},
		Speech: SpeechConfig{
			Backend:        SpeechNone,
			URL:            "http://localhost:5002",
			Subject:        "tts",
			TimeoutSeconds: 30,
			DefaultVolume:  100,
		},
		Suggest: SuggestConfig{
			Backend: SuggestNone,
			URL:     "http://localhost:11434",
			Model:   "llava",
		},
		Server: ServerConfig{
			Addr:               ":8080",
			SessionIdleMinutes: 60,
		},
		Logging: LoggingConfig{
			Dir:  filepath.Join(os.TempDir(), "meme-generator"),
			File: "meme-generator.log",
		},
	}
}

// LoadFromFile loads configuration from a TOML or JSON file. Values missing
// from the file keep their defaults.
func LoadFromFile(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Default()
	if isJSON(filename) {
		err = json.Unmarshal(data, config)
	} else {
		err = toml.Unmarshal(data, config)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveToFile saves configuration as TOML, or JSON for a .json file
func (c *Config) SaveToFile(filename string) error {
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	var (
		data []byte
		err  error
	)
	if isJSON(filename) {
		data, err = json.MarshalIndent(c, "", "  ")
	} else {
		data, err = toml.Marshal(c)
	}
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Canvas.Width < 1 || c.Canvas.Height < 1 {
		return fmt.Errorf("canvas.width and canvas.height must be positive")
	}

	if c.Captions.FontSize <= 0 {
		return fmt.Errorf("captions.font_size must be positive")
	}

	if c.Captions.MarginDivisor <= 0 {
		return fmt.Errorf("captions.margin_divisor must be positive")
	}

	if _, err := render.ParseColor(c.Captions.Color); err != nil {
		return fmt.Errorf("captions.color: %w", err)
	}

	if len(c.Loader.SupportedFormats) == 0 {
		return fmt.Errorf("loader.supported_formats cannot be empty")
	}

	if c.Loader.MaxBytes < 1 {
		return fmt.Errorf("loader.max_bytes must be positive")
	}

	if _, err := render.ParseFormat(c.Output.DefaultFormat); err != nil {
		return fmt.Errorf("output.default_format: %w", err)
	}

	if c.Output.Quality < 1 || c.Output.Quality > 100 {
		return fmt.Errorf("output.quality must be between 1 and 100")
	}

	switch c.Speech.Backend {
	case SpeechNone, "":
	case SpeechHTTP, SpeechNATS:
		if c.Speech.URL == "" {
			return fmt.Errorf("speech.url is required for backend %q", c.Speech.Backend)
		}
	default:
		return fmt.Errorf("speech.backend must be one of none, http, nats")
	}

	if c.Speech.Backend == SpeechNATS && c.Speech.Subject == "" {
		return fmt.Errorf("speech.subject is required for backend nats")
	}

	if c.Speech.BridgeURL != "" && c.Speech.Backend != SpeechHTTP {
		return fmt.Errorf("speech.bridge_url requires the http backend")
	}

	if c.Speech.DefaultVolume < 0 || c.Speech.DefaultVolume > 100 {
		return fmt.Errorf("speech.default_volume must be between 0 and 100")
	}

	switch c.Suggest.Backend {
	case SuggestNone, "":
	case SuggestOllama, SuggestLlamaCpp:
		if c.Suggest.URL == "" || c.Suggest.Model == "" {
			return fmt.Errorf("suggest.url and suggest.model are required for backend %q", c.Suggest.Backend)
		}
	default:
		return fmt.Errorf("suggest.backend must be one of none, ollama, llamacpp")
	}

	if c.Server.SessionIdleMinutes < 0 {
		return fmt.Errorf("server.session_idle_minutes cannot be negative")
	}

	return nil
}

// TextStyle converts the captions section to a render style
func (c *Config) TextStyle() (render.TextStyle, error) {
	col, err := render.ParseColor(c.Captions.Color)
	if err != nil {
		return render.TextStyle{}, err
	}
	return render.TextStyle{
		FontSize:      c.Captions.FontSize,
		Color:         col,
		MarginDivisor: c.Captions.MarginDivisor,
	}, nil
}

// SpeechTimeout returns the speech timeout as a duration
func (c *Config) SpeechTimeout() time.Duration {
	return time.Duration(c.Speech.TimeoutSeconds) * time.Second
}

// LoaderTimeout returns the download timeout as a duration
func (c *Config) LoaderTimeout() time.Duration {
	return time.Duration(c.Loader.TimeoutSeconds) * time.Second
}

// SessionIdle returns how long an unused server session is kept
func (c *Config) SessionIdle() time.Duration {
	return time.Duration(c.Server.SessionIdleMinutes) * time.Minute
}

// GetConfigPath returns the default configuration file path
func GetConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./config.toml"
	}
	return filepath.Join(home, ".config", "meme-generator", "config.toml")
}

func isJSON(filename string) bool {
	return strings.EqualFold(filepath.Ext(filename), ".json")
}
