// Package app builds the engines and settings shared by the command line
// tool and the server from a loaded configuration.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/book-expert/logger"
	"github.com/nats-io/nats.go"

	"github.com/menta2k/meme-generator/internal/config"
	"github.com/menta2k/meme-generator/pkg/client"
	"github.com/menta2k/meme-generator/pkg/llamacpp"
	"github.com/menta2k/meme-generator/pkg/loader"
	"github.com/menta2k/meme-generator/pkg/ollama"
	"github.com/menta2k/meme-generator/pkg/render"
	"github.com/menta2k/meme-generator/pkg/session"
	"github.com/menta2k/meme-generator/pkg/speech"
	"github.com/menta2k/meme-generator/pkg/suggest"
)

const (
	clientName    = "meme-generator"
	healthTimeout = 5 * time.Second
)

// Backends holds the optional speech and suggestion engines
type Backends struct {
	Speech    speech.Engine
	Suggester *suggest.Suggester
	Bridge    *speech.Worker

	conns []*nats.Conn
}

// Open connects the backends selected in cfg. Disabled backends are left as
// speech.Disabled and a nil Suggester.
func Open(cfg *config.Config, log *logger.Logger) (*Backends, error) {
	b := &Backends{Speech: speech.Disabled{}}

	switch cfg.Speech.Backend {
	case config.SpeechHTTP:
		engine := speech.NewHTTPEngine(cfg.Speech.URL, cfg.SpeechTimeout())
		if log != nil {
			ctx, cancel := context.WithTimeout(context.Background(), healthTimeout)
			if err := engine.HealthCheck(ctx); err != nil {
				log.Warn("Speech service not reachable yet: %v", err)
			}
			cancel()
		}
		b.Speech = engine
	case config.SpeechNATS:
		conn, err := b.connect(cfg.Speech.URL)
		if err != nil {
			return nil, err
		}
		b.Speech = speech.NewNatsEngine(conn, cfg.Speech.Subject, cfg.SpeechTimeout())
	}

	if cfg.Speech.BridgeURL != "" {
		conn, err := b.connect(cfg.Speech.BridgeURL)
		if err != nil {
			b.Close()
			return nil, err
		}
		b.Bridge = speech.NewWorker(conn, cfg.Speech.Subject, b.Speech, log)
		if err := b.Bridge.Start(); err != nil {
			b.Close()
			return nil, fmt.Errorf("failed to start speech bridge: %w", err)
		}
	}

	if cfg.Suggest.Backend != config.SuggestNone && cfg.Suggest.Backend != "" {
		vc, err := NewVisionClient(cfg.Suggest.Backend, cfg.Suggest.URL)
		if err != nil {
			b.Close()
			return nil, err
		}
		b.Suggester = suggest.New(vc, cfg.Suggest.Model).WithPrompt(cfg.Suggest.Prompt)
	}

	return b, nil
}

// Close stops the bridge and drains NATS connections
func (b *Backends) Close() {
	if b.Bridge != nil {
		_ = b.Bridge.Stop()
	}
	for _, conn := range b.conns {
		_ = conn.Drain()
	}
	b.conns = nil
}

func (b *Backends) connect(url string) (*nats.Conn, error) {
	conn, err := nats.Connect(url, nats.Name(clientName))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", url, err)
	}
	b.conns = append(b.conns, conn)
	return conn, nil
}

// NewVisionClient creates the client for an ollama or llamacpp backend
func NewVisionClient(backend, url string) (client.VisionClient, error) {
	switch backend {
	case config.SuggestOllama:
		c, err := ollama.NewClient(url)
		if err != nil {
			return nil, fmt.Errorf("failed to create Ollama client: %w", err)
		}
		return c, nil
	case config.SuggestLlamaCpp:
		c, err := llamacpp.NewClient(url)
		if err != nil {
			return nil, fmt.Errorf("failed to create llama.cpp client: %w", err)
		}
		return c, nil
	default:
		return nil, fmt.Errorf("unknown suggestion backend: %s (use 'ollama' or 'llamacpp')", backend)
	}
}

// SessionConfig maps the canvas, captions and speech sections
func SessionConfig(cfg *config.Config) (session.Config, error) {
	style, err := cfg.TextStyle()
	if err != nil {
		return session.Config{}, err
	}
	return session.Config{
		Width:  cfg.Canvas.Width,
		Height: cfg.Canvas.Height,
		Style:  style,
		Volume: cfg.Speech.DefaultVolume,
	}, nil
}

// LoaderConfig maps the loader section
func LoaderConfig(cfg *config.Config) loader.Config {
	return loader.Config{
		SupportedFormats: cfg.Loader.SupportedFormats,
		MaxBytes:         cfg.Loader.MaxBytes,
		Timeout:          cfg.LoaderTimeout(),
		AutoOrient:       cfg.Loader.AutoOrient,
	}
}

// OutputOptions maps the output section
func OutputOptions(cfg *config.Config) (render.Options, error) {
	format, err := render.ParseFormat(cfg.Output.DefaultFormat)
	if err != nil {
		return render.Options{}, err
	}
	return render.Options{
		Format:   format,
		Quality:  cfg.Output.Quality,
		Lossless: cfg.Output.Lossless,
	}, nil
}
