package memegen

import (
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/menta2k/meme-generator/pkg/fit"
	"github.com/menta2k/meme-generator/pkg/loader"
	"github.com/menta2k/meme-generator/pkg/render"
)

// createTestImage creates a solid test image
func createTestImage(width, height int) image.Image {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetNRGBA(x, y, color.NRGBA{200, 50, 50, 255})
		}
	}
	return img
}

func TestNew(t *testing.T) {
	gen := New()
	require.NotNil(t, gen)
	assert.NotNil(t, gen.loader)
	assert.Equal(t, 400, gen.config.Width)
	assert.Equal(t, "1.0.0", GetVersion())
}

func TestGenerate(t *testing.T) {
	gen := New()

	tests := []struct {
		name   string
		w, h   int
		expect fit.Result
	}{
		{"portrait", 100, 200, fit.Result{Width: 200, Height: 400, OffsetX: 100}},
		{"landscape", 400, 100, fit.Result{Width: 400, Height: 100, OffsetY: 150}},
		{"square", 50, 50, fit.Result{Width: 400, Height: 400}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img, result, err := gen.Generate(createTestImage(tt.w, tt.h), "TOP", "BOTTOM")
			require.NoError(t, err)
			assert.Equal(t, image.Pt(400, 400), img.Bounds().Size())
			assert.InDelta(t, tt.expect.Width, result.Width, 1e-9)
			assert.InDelta(t, tt.expect.Height, result.Height, 1e-9)
			assert.InDelta(t, tt.expect.OffsetX, result.OffsetX, 1e-9)
			assert.InDelta(t, tt.expect.OffsetY, result.OffsetY, 1e-9)
		})
	}
}

func TestGenerateNilImage(t *testing.T) {
	_, _, err := New().Generate(nil, "a", "b")
	assert.ErrorIs(t, err, loader.ErrNoImage)
}

func TestGenerateFile(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.png")
	require.NoError(t, imaging.Save(createTestImage(300, 150), in))

	out := filepath.Join(dir, "out.png")
	_, result, err := New().GenerateFile(in, out, "HELLO", "")
	require.NoError(t, err)
	assert.InDelta(t, 200, result.Height, 1e-9)

	saved, err := imaging.Open(out)
	require.NoError(t, err)
	assert.Equal(t, image.Pt(400, 400), saved.Bounds().Size())
}

func TestGenerateFileUsesConfiguredFormat(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.png")
	require.NoError(t, imaging.Save(createTestImage(100, 100), in))

	cfg := DefaultConfig()
	cfg.Output = render.Options{Format: render.JPEG, Quality: 80}
	out := filepath.Join(dir, "out.png")
	_, _, err := NewWithConfig(cfg).GenerateFile(in, out, "TOP", "BOTTOM")
	require.NoError(t, err)

	f, err := os.Open(out)
	require.NoError(t, err)
	defer f.Close()
	_, format, err := image.DecodeConfig(f)
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
}

func TestGenerateFileMissing(t *testing.T) {
	_, _, err := New().GenerateFile(filepath.Join(t.TempDir(), "nope.png"), "out.png", "", "")
	assert.Error(t, err)
}

func TestCustomCanvas(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Width, cfg.Height = 800, 400
	gen := NewWithConfig(cfg)

	result, err := gen.Fit(400, 400)
	require.NoError(t, err)
	assert.InDelta(t, 400, result.Width, 1e-9)
	assert.InDelta(t, 200, result.OffsetX, 1e-9)
}

func ExampleGenerator_Fit() {
	result, err := New().Fit(100, 200)
	if err != nil {
		fmt.Println(err)
		return
	}
	fmt.Printf("%.0fx%.0f at (%.0f, %.0f)\n", result.Width, result.Height, result.OffsetX, result.OffsetY)
	// Output: 200x400 at (100, 0)
}
