// Package suggest asks a vision model for a top and bottom caption that fit
// an image. Suggestions only fill the caption form; they are never drawn
// without going through Generate.
package suggest

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"regexp"
	"strings"

	"github.com/disintegration/imaging"

	"github.com/menta2k/meme-generator/pkg/client"
	"github.com/menta2k/meme-generator/pkg/types"
)

// DefaultPrompt asks for a JSON caption pair
const DefaultPrompt = `You write captions for meme images.

Look at the image and return JSON only:
{"top": "setup line", "bottom": "punchline"}

RULES
- Each caption is at most 8 words.
- Classic meme tone: short, punchy, no hashtags, no emoji.
- Either caption may be an empty string if the joke needs only one line.
- JSON only. No markdown, no code fences, no comments, no trailing commas.`

// MaxCaptionLength caps each suggested caption in runes
const MaxCaptionLength = 80

var (
	// ErrNoClient is returned when suggestions are not configured
	ErrNoClient = errors.New("caption suggestions are not configured")
	// ErrNoImage is returned when there is no image to describe
	ErrNoImage = errors.New("no image to suggest captions for")
)

var (
	reBlock    = regexp.MustCompile(`(?s)/\*.*?\*/`)
	reLine     = regexp.MustCompile(`(?m)^\s*//.*$`)
	reInline   = regexp.MustCompile(`(?m)//.*$`)
	reTrailing = regexp.MustCompile(`,(\s*[}\]])`)
	reSpaces   = regexp.MustCompile(`\s+`)
)

// Suggester turns model replies into caption suggestions
type Suggester struct {
	client  client.VisionClient
	model   string
	prompt  string
	prepare types.PrepareOptions
}

// DefaultPrepareOptions downsizes to 768px JPEG at quality 85
func DefaultPrepareOptions() types.PrepareOptions {
	return types.PrepareOptions{
		Format:  "jpg",
		MaxDim:  768,
		Quality: 85,
	}
}

// New creates a suggester for model using the default prompt
func New(c client.VisionClient, model string) *Suggester {
	return &Suggester{
		client:  c,
		model:   model,
		prompt:  DefaultPrompt,
		prepare: DefaultPrepareOptions(),
	}
}

// WithPrompt replaces the prompt
func (s *Suggester) WithPrompt(prompt string) *Suggester {
	if prompt != "" {
		s.prompt = prompt
	}
	return s
}

// Suggest asks the model for captions. A reply that cannot be parsed yields
// an empty suggestion with Fallback set rather than an error.
func (s *Suggester) Suggest(ctx context.Context, img image.Image) (types.Suggestion, error) {
	if s == nil || s.client == nil {
		return types.Suggestion{}, ErrNoClient
	}
	if img == nil {
		return types.Suggestion{}, ErrNoImage
	}

	imgB64, err := PrepareImage(img, s.prepare)
	if err != nil {
		return types.Suggestion{}, fmt.Errorf("failed to prepare image: %w", err)
	}

	raw, err := s.client.Complete(ctx, s.model, s.prompt, imgB64)
	if err != nil {
		return types.Suggestion{}, fmt.Errorf("vision model request failed: %w", err)
	}

	suggestion := parseSuggestion(raw)
	suggestion.Model = s.model
	return suggestion, nil
}

// PrepareImage shrinks img so its long side is at most opts.MaxDim and
// returns it base64 encoded
func PrepareImage(img image.Image, opts types.PrepareOptions) (string, error) {
	if opts.MaxDim > 0 {
		b := img.Bounds()
		w, h := b.Dx(), b.Dy()
		if w > opts.MaxDim || h > opts.MaxDim {
			if w >= h {
				img = imaging.Resize(img, opts.MaxDim, 0, imaging.Lanczos)
			} else {
				img = imaging.Resize(img, 0, opts.MaxDim, imaging.Lanczos)
			}
		}
	}

	format := imaging.JPEG
	var encOpts []imaging.EncodeOption
	switch strings.ToLower(opts.Format) {
	case "png":
		format = imaging.PNG
	default:
		if opts.Quality > 0 {
			encOpts = append(encOpts, imaging.JPEGQuality(opts.Quality))
		}
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, format, encOpts...); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

func parseSuggestion(raw string) types.Suggestion {
	raw = sanitizeModelJSON(raw)
	if !strings.HasPrefix(raw, "{") {
		return types.Suggestion{Fallback: true}
	}

	var reply struct {
		Top    string `json:"top"`
		Bottom string `json:"bottom"`
	}
	if err := json.Unmarshal([]byte(raw), &reply); err != nil {
		return types.Suggestion{Fallback: true}
	}

	suggestion := types.Suggestion{
		Top:    normalizeCaption(reply.Top),
		Bottom: normalizeCaption(reply.Bottom),
	}
	if suggestion.Empty() {
		suggestion.Fallback = true
	}
	return suggestion
}

// normalizeCaption collapses whitespace, upper-cases and truncates
func normalizeCaption(s string) string {
	s = reSpaces.ReplaceAllString(strings.TrimSpace(s), " ")
	s = strings.Trim(s, `"`)
	s = strings.ToUpper(s)
	if r := []rune(s); len(r) > MaxCaptionLength {
		s = strings.TrimSpace(string(r[:MaxCaptionLength]))
	}
	return s
}

// sanitizeModelJSON removes code fences, comments and trailing commas
func sanitizeModelJSON(raw string) string {
	raw = strings.TrimSpace(raw)

	// strip triple-backtick fences
	if strings.HasPrefix(raw, "```") {
		if i := strings.Index(raw, "\n"); i >= 0 {
			raw = raw[i+1:]
		}
		if j := strings.LastIndex(raw, "```"); j >= 0 {
			raw = raw[:j]
		}
	}
	raw = strings.TrimSpace(raw)
	raw = strings.Trim(raw, "`")

	raw = reBlock.ReplaceAllString(raw, "")
	raw = reLine.ReplaceAllString(raw, "")
	raw = reInline.ReplaceAllString(raw, "")
	raw = reTrailing.ReplaceAllString(raw, "$1")

	// keep only the outermost {...}
	if start := strings.Index(raw, "{"); start >= 0 {
		if end := strings.LastIndex(raw, "}"); end > start {
			raw = raw[start : end+1]
		}
	}
	return strings.TrimSpace(raw)
}
