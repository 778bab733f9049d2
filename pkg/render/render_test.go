package render

import (
	"bytes"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "golang.org/x/image/webp"
)

// createTestImage creates a solid red image
func createTestImage(width, height int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{255, 0, 0, 255})
		}
	}
	return img
}

func newTestSurface(t *testing.T, w, h int) *Surface {
	t.Helper()
	s, err := NewSurface(w, h, DefaultTextStyle())
	require.NoError(t, err)
	return s
}

func TestNewSurface(t *testing.T) {
	s := newTestSurface(t, 400, 300)
	w, h := s.Size()
	assert.Equal(t, 400, w)
	assert.Equal(t, 300, h)

	// starts transparent
	assert.Equal(t, uint8(0), s.Image().NRGBAAt(10, 10).A)

	_, err := NewSurface(0, 100, DefaultTextStyle())
	assert.ErrorIs(t, err, ErrInvalidSize)
}

func TestComposePortraitLetterbox(t *testing.T) {
	s := newTestSurface(t, 500, 500)

	result, err := s.Compose(createTestImage(100, 200))
	require.NoError(t, err)
	assert.InDelta(t, 250, result.Width, 1e-9)
	assert.InDelta(t, 125, result.OffsetX, 1e-9)

	img := s.Image()
	// borders on the left and right are black
	assert.Equal(t, color.NRGBA{0, 0, 0, 255}, img.NRGBAAt(10, 250))
	assert.Equal(t, color.NRGBA{0, 0, 0, 255}, img.NRGBAAt(490, 250))
	// the image covers the middle
	center := img.NRGBAAt(250, 250)
	assert.Greater(t, center.R, uint8(200))
	assert.Less(t, center.G, uint8(50))
}

func TestComposeLandscapeLetterbox(t *testing.T) {
	s := newTestSurface(t, 500, 500)

	result, err := s.Compose(createTestImage(200, 100))
	require.NoError(t, err)
	assert.InDelta(t, 125, result.OffsetY, 1e-9)

	img := s.Image()
	assert.Equal(t, color.NRGBA{0, 0, 0, 255}, img.NRGBAAt(250, 10))
	assert.Equal(t, color.NRGBA{0, 0, 0, 255}, img.NRGBAAt(250, 490))
	assert.Greater(t, img.NRGBAAt(250, 250).R, uint8(200))
}

func TestClearAfterCompose(t *testing.T) {
	s := newTestSurface(t, 100, 100)
	_, err := s.Compose(createTestImage(50, 50))
	require.NoError(t, err)

	s.Clear()
	assert.Equal(t, uint8(0), s.Image().NRGBAAt(50, 50).A)
}

func TestDrawCaptions(t *testing.T) {
	s := newTestSurface(t, 440, 440)
	s.Letterbox(Black)
	s.DrawCaptions("TOP TEXT", "BOTTOM TEXT")

	img := s.Image()
	_, ty, _, by := s.CaptionPositions()
	assert.InDelta(t, 40, ty, 1e-9)
	assert.InDelta(t, 400, by, 1e-9)

	assert.True(t, hasBrightPixel(img, int(ty)-15, int(ty)+15), "top caption not drawn")
	assert.True(t, hasBrightPixel(img, int(by)-15, int(by)+15), "bottom caption not drawn")
	assert.False(t, hasBrightPixel(img, 180, 260), "middle should stay black")
}

func TestDrawCaptionsSkipsEmpty(t *testing.T) {
	s := newTestSurface(t, 440, 440)
	s.Letterbox(Black)
	s.DrawCaptions("", "BOTTOM")

	img := s.Image()
	assert.False(t, hasBrightPixel(img, 25, 55))
	assert.True(t, hasBrightPixel(img, 385, 415))
}

func TestMeasureCaption(t *testing.T) {
	s := newTestSurface(t, 400, 400)
	short, _ := s.MeasureCaption("HI")
	long, h := s.MeasureCaption("HELLO THERE")
	assert.Greater(t, long, short)
	assert.Greater(t, h, 0.0)
}

func TestParseFormat(t *testing.T) {
	tests := map[string]Format{"png": PNG, ".PNG": PNG, "jpg": JPEG, "jpeg": JPEG, "webp": WebP}
	for in, want := range tests {
		got, err := ParseFormat(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}

	_, err := ParseFormat("bmp")
	assert.Error(t, err)
	assert.Equal(t, "image/webp", WebP.ContentType())
	assert.Equal(t, "image/jpeg", JPEG.ContentType())
	assert.Equal(t, "image/png", PNG.ContentType())
}

func TestEncodeFormats(t *testing.T) {
	img := createTestImage(40, 30)
	for _, f := range []Format{PNG, JPEG, WebP} {
		var buf bytes.Buffer
		require.NoError(t, Encode(&buf, img, Options{Format: f, Quality: 80}), f)
		assert.NotZero(t, buf.Len(), f)
	}

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, img, DefaultOptions()))
	decoded, err := imaging.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, 40, decoded.Bounds().Dx())
}

func TestSave(t *testing.T) {
	dir := t.TempDir()
	img := createTestImage(20, 20)

	for _, tc := range []struct {
		name   string
		opts   Options
		format string
	}{
		{"meme.png", Options{Format: PNG}, "png"},
		{"meme.jpg", Options{Format: JPEG, Quality: 85}, "jpeg"},
		{"meme.webp", Options{Format: WebP, Lossless: true}, "webp"},
		// extension and format disagree: the format wins
		{"jpeg_named.png", Options{Format: JPEG}, "jpeg"},
		{"no_extension", Options{Format: PNG}, "png"},
		{"png_named.webp", Options{Format: PNG}, "png"},
		{"webp_named.jpg", Options{Format: WebP}, "webp"},
	} {
		path := filepath.Join(dir, tc.name)
		require.NoError(t, Save(img, path, tc.opts), tc.name)

		f, err := os.Open(path)
		require.NoError(t, err, tc.name)
		cfg, format, err := image.DecodeConfig(f)
		f.Close()
		require.NoError(t, err, tc.name)
		assert.Equal(t, tc.format, format, tc.name)
		assert.Equal(t, 20, cfg.Width, tc.name)
	}
}

func TestSaveMissingDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "meme.png")
	assert.Error(t, Save(createTestImage(4, 4), path, DefaultOptions()))
}

func hasBrightPixel(img *image.NRGBA, y0, y1 int) bool {
	b := img.Bounds()
	for y := y0; y <= y1; y++ {
		if y < b.Min.Y || y >= b.Max.Y {
			continue
		}
		for x := b.Min.X; x < b.Max.X; x++ {
			if img.NRGBAAt(x, y).R > 200 {
				return true
			}
		}
	}
	return false
}

func BenchmarkCompose(b *testing.B) {
	s, err := NewSurface(DefaultWidth, DefaultHeight, DefaultTextStyle())
	if err != nil {
		b.Fatal(err)
	}
	img := createTestImage(1920, 1080)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = s.Compose(img)
	}
}

func TestParseColor(t *testing.T) {
	tests := []struct {
		in   string
		want color.NRGBA
	}{
		{"white", color.NRGBA{255, 255, 255, 255}},
		{"BLACK", color.NRGBA{0, 0, 0, 255}},
		{"#fff", color.NRGBA{255, 255, 255, 255}},
		{"#ff8000", color.NRGBA{255, 128, 0, 255}},
		{"00ff0080", color.NRGBA{0, 255, 0, 128}},
	}
	for _, tt := range tests {
		got, err := ParseColor(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	for _, bad := range []string{"", "#12", "#gggggg", "chartreuse"} {
		_, err := ParseColor(bad)
		assert.ErrorIs(t, err, ErrInvalidColor, bad)
	}
}
