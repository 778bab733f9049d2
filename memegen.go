// Package memegen composes memes: an image letterboxed onto a fixed canvas
// with a caption near the top and bottom edges.
//
// Basic usage:
//
//	gen := memegen.New()
//	img, result, err := gen.GenerateFile("cat.jpg", "output/cat_meme.png", "TOP TEXT", "BOTTOM TEXT")
//	if err != nil {
//		log.Fatal(err)
//	}
//	fmt.Printf("drawn at %.0fx%.0f, offset (%.0f, %.0f)\n", result.Width, result.Height, result.OffsetX, result.OffsetY)
//
// The package consists of these components:
//
//  1. Fit (pkg/fit): computes the letterboxed size and position of an image
//  2. Render (pkg/render): draws onto the canvas and encodes PNG, JPEG or WebP
//  3. Loader (pkg/loader): reads images from files, readers and URLs
//  4. Session (pkg/session): the interactive editor state used by the server
//  5. Speech (pkg/speech): text-to-speech engines for reading captions aloud
//  6. Suggest (pkg/suggest): caption suggestions from a vision model
package memegen

import (
	"fmt"
	"image"

	"github.com/menta2k/meme-generator/pkg/fit"
	"github.com/menta2k/meme-generator/pkg/loader"
	"github.com/menta2k/meme-generator/pkg/render"
)

// Version of the meme generator library
const Version = "1.0.0"

// Config holds the canvas and output settings of a Generator
type Config struct {
	Width  int
	Height int
	Style  render.TextStyle
	Output render.Options
	Loader loader.Config
}

// DefaultConfig returns a 400x400 canvas with white 30px captions, saved as PNG
func DefaultConfig() Config {
	return Config{
		Width:  render.DefaultWidth,
		Height: render.DefaultHeight,
		Style:  render.DefaultTextStyle(),
		Output: render.DefaultOptions(),
		Loader: loader.DefaultConfig(),
	}
}

// Generator makes one-off memes. It keeps no per-meme state and is safe for
// concurrent use.
type Generator struct {
	config Config
	loader *loader.Loader
}

// New creates a Generator with default configuration
func New() *Generator {
	return NewWithConfig(DefaultConfig())
}

// NewWithConfig creates a Generator with custom configuration
func NewWithConfig(config Config) *Generator {
	return &Generator{
		config: config,
		loader: loader.NewWithConfig(config.Loader),
	}
}

// Generate letterboxes img onto a fresh canvas and draws the captions. Empty
// captions are skipped.
func (g *Generator) Generate(img image.Image, top, bottom string) (image.Image, fit.Result, error) {
	if img == nil {
		return nil, fit.Result{}, loader.ErrNoImage
	}

	surface, err := render.NewSurface(g.config.Width, g.config.Height, g.config.Style)
	if err != nil {
		return nil, fit.Result{}, err
	}

	result, err := surface.Compose(img)
	if err != nil {
		return nil, fit.Result{}, err
	}
	surface.DrawCaptions(top, bottom)

	return surface.Image(), result, nil
}

// GenerateFile loads inputPath, generates the meme and saves it to
// outputPath in the configured output format
func (g *Generator) GenerateFile(inputPath, outputPath, top, bottom string) (image.Image, fit.Result, error) {
	src, err := g.loader.Load(inputPath)
	if err != nil {
		return nil, fit.Result{}, fmt.Errorf("failed to load image: %w", err)
	}

	img, result, err := g.Generate(src.Image, top, bottom)
	if err != nil {
		return nil, fit.Result{}, fmt.Errorf("failed to generate meme: %w", err)
	}

	if err := render.Save(img, outputPath, g.config.Output); err != nil {
		return nil, fit.Result{}, fmt.Errorf("failed to save meme: %w", err)
	}

	return img, result, nil
}

// Fit is a shortcut for fit.Fit on the generator's canvas
func (g *Generator) Fit(contentWidth, contentHeight float64) (fit.Result, error) {
	return fit.Fit(float64(g.config.Width), float64(g.config.Height), contentWidth, contentHeight)
}

// GetVersion returns the library version
func GetVersion() string {
	return Version
}
