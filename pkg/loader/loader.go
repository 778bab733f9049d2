// Package loader decodes user supplied images from files, readers and URLs.
package loader

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"

	"github.com/menta2k/meme-generator/pkg/fit"
)

var (
	// ErrNoImage is returned when no image data was supplied
	ErrNoImage = errors.New("no image supplied")
	// ErrUnsupportedFormat is returned for formats outside Config.SupportedFormats
	ErrUnsupportedFormat = errors.New("unsupported image format")
	// ErrTooLarge is returned when the input exceeds Config.MaxBytes
	ErrTooLarge = errors.New("image exceeds size limit")
)

// Config holds configuration for the loader
type Config struct {
	SupportedFormats []string
	// MaxBytes limits the encoded input size, 0 means unlimited
	MaxBytes int64
	// Timeout bounds URL downloads
	Timeout time.Duration
	// AutoOrient applies EXIF orientation when decoding
	AutoOrient bool
}

// DefaultConfig returns the loader defaults
func DefaultConfig() Config {
	return Config{
		SupportedFormats: []string{"jpeg", "png", "gif", "webp", "bmp", "tiff"},
		MaxBytes:         50 << 20,
		Timeout:          30 * time.Second,
		AutoOrient:       true,
	}
}

// Source is a decoded image together with the name it was selected under
type Source struct {
	Name   string
	Format string
	Image  image.Image
}

// Dimensions returns the decoded width and height
func (s Source) Dimensions() (float64, float64) {
	b := s.Image.Bounds()
	return float64(b.Dx()), float64(b.Dy())
}

// ImageInfo contains basic image metadata
type ImageInfo struct {
	Width       int             `json:"width"`
	Height      int             `json:"height"`
	AspectRatio float64         `json:"aspect_ratio"`
	Orientation fit.Orientation `json:"orientation"`
}

// Loader decodes images
type Loader struct {
	config     Config
	httpClient *http.Client
}

// New creates a Loader with default configuration
func New() *Loader {
	return NewWithConfig(DefaultConfig())
}

// NewWithConfig creates a Loader with custom configuration
func NewWithConfig(config Config) *Loader {
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Loader{
		config:     config,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// MaxBytes returns the configured input size limit, 0 means unlimited
func (l *Loader) MaxBytes() int64 {
	return l.config.MaxBytes
}

// Load loads an image from a file path
func (l *Loader) Load(path string) (Source, error) {
	if path == "" {
		return Source{}, ErrNoImage
	}
	f, err := os.Open(path)
	if err != nil {
		return Source{}, fmt.Errorf("failed to open image file: %w", err)
	}
	defer f.Close()

	return l.LoadFromReader(filepath.Base(path), f)
}

// LoadFromReader loads an image from r, name is kept as the source name
func (l *Loader) LoadFromReader(name string, r io.Reader) (Source, error) {
	if r == nil {
		return Source{}, ErrNoImage
	}

	limit := l.config.MaxBytes
	if limit > 0 {
		r = io.LimitReader(r, limit+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return Source{}, fmt.Errorf("failed to read image data: %w", err)
	}
	if limit > 0 && int64(len(data)) > limit {
		return Source{}, fmt.Errorf("%w: more than %d bytes", ErrTooLarge, limit)
	}

	return l.decode(name, data)
}

// LoadFromURL downloads and decodes an image
func (l *Loader) LoadFromURL(ctx context.Context, imageURL string) (Source, error) {
	parsedURL, err := url.Parse(imageURL)
	if err != nil {
		return Source{}, fmt.Errorf("invalid URL: %w", err)
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return Source{}, fmt.Errorf("unsupported URL scheme: %s (only http and https are supported)", parsedURL.Scheme)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return Source{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "Meme-Generator/1.0")

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return Source{}, fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Source{}, fmt.Errorf("failed to download image: HTTP %d", resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		return Source{}, fmt.Errorf("URL does not point to an image (Content-Type: %s)", contentType)
	}

	name := filepath.Base(parsedURL.Path)
	if name == "." || name == "/" {
		name = parsedURL.Host
	}
	return l.LoadFromReader(name, resp.Body)
}

// LoadSmart loads from a URL when source looks like one, otherwise from disk
func (l *Loader) LoadSmart(ctx context.Context, source string) (Source, error) {
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		return l.LoadFromURL(ctx, source)
	}
	return l.Load(source)
}

// Info returns basic information about an image
func Info(img image.Image) ImageInfo {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	info := ImageInfo{
		Width:       w,
		Height:      h,
		Orientation: fit.OrientationOf(float64(w), float64(h)),
	}
	if h > 0 {
		info.AspectRatio = float64(w) / float64(h)
	}
	return info
}

func (l *Loader) decode(name string, data []byte) (Source, error) {
	if len(data) == 0 {
		return Source{}, ErrNoImage
	}

	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err == nil {
		if !l.isFormatSupported(format) {
			return Source{}, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
		}
		var opts []imaging.DecodeOption
		if l.config.AutoOrient {
			opts = append(opts, imaging.AutoOrientation(true))
		}
		img, err := imaging.Decode(bytes.NewReader(data), opts...)
		if err == nil {
			return Source{Name: name, Format: format, Image: img}, nil
		}
		if format != "webp" {
			return Source{}, fmt.Errorf("failed to decode image: %w", err)
		}
	}

	// Fallback: libwebp handles files the pure Go decoder rejects
	if l.isFormatSupported("webp") {
		if img, werr := webp.Decode(bytes.NewReader(data)); werr == nil {
			return Source{Name: name, Format: "webp", Image: img}, nil
		}
	}

	return Source{}, fmt.Errorf("%w: cannot decode %s", ErrUnsupportedFormat, name)
}

func (l *Loader) isFormatSupported(format string) bool {
	for _, supported := range l.config.SupportedFormats {
		if strings.EqualFold(format, supported) || (strings.EqualFold(supported, "jpg") && format == "jpeg") {
			return true
		}
	}
	return false
}
