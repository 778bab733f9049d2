package main

import (
	"context"
	"encoding/json"
	"image"
	"image/color"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/menta2k/meme-generator/internal/app"
	"github.com/menta2k/meme-generator/internal/config"
	"github.com/menta2k/meme-generator/pkg/speech"
)

func writeTestImage(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{20, 120, 200, 255})
		}
	}
	require.NoError(t, imaging.Save(img, path))
}

func baseOptions(t *testing.T) options {
	t.Helper()
	return options{
		outDir:     t.TempDir(),
		volume:     -1,
		configPath: filepath.Join(t.TempDir(), "none.toml"),
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	o := baseOptions(t)
	require.NoError(t, config.Default().SaveToFile(o.configPath))

	o.ext = "webp"
	o.width, o.height = 640, 360
	o.speechNATS = "nats://127.0.0.1:4222"
	o.volume = 0
	o.suggest = true

	cfg, err := loadConfig(o)
	require.NoError(t, err)
	assert.Equal(t, "webp", cfg.Output.DefaultFormat)
	assert.Equal(t, 640, cfg.Canvas.Width)
	assert.Equal(t, 360, cfg.Canvas.Height)
	assert.Equal(t, config.SpeechNATS, cfg.Speech.Backend)
	assert.Equal(t, 0, cfg.Speech.DefaultVolume)
	assert.Equal(t, config.SuggestOllama, cfg.Suggest.Backend)
}

func TestLoadConfigInvalid(t *testing.T) {
	o := baseOptions(t)
	require.NoError(t, config.Default().SaveToFile(o.configPath))
	o.ext = "gif"

	_, err := loadConfig(o)
	assert.Error(t, err)
}

func TestRunWritesMeme(t *testing.T) {
	o := baseOptions(t)
	require.NoError(t, config.Default().SaveToFile(o.configPath))

	in := filepath.Join(t.TempDir(), "wide.png")
	writeTestImage(t, in, 300, 150)
	o.in = in
	o.top, o.bottom = "TOP", "BOTTOM"

	cfg, err := loadConfig(o)
	require.NoError(t, err)
	backends, err := app.Open(cfg, nil)
	require.NoError(t, err)
	defer backends.Close()

	require.NoError(t, run(context.Background(), cfg, o, backends))

	out, err := imaging.Open(filepath.Join(o.outDir, "wide_meme.png"))
	require.NoError(t, err)
	assert.Equal(t, image.Pt(400, 400), out.Bounds().Size())
}

func TestRunDirectoryWithSpeech(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /voices", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode([]speech.Voice{{ID: "v1", Name: "One", Lang: "en"}})
	})
	mux.HandleFunc("POST /synthesize", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "audio/wav")
		_, _ = w.Write([]byte("RIFF"))
	})
	tts := httptest.NewServer(mux)
	defer tts.Close()

	o := baseOptions(t)
	require.NoError(t, config.Default().SaveToFile(o.configPath))

	dir := t.TempDir()
	writeTestImage(t, filepath.Join(dir, "a.png"), 100, 200)
	writeTestImage(t, filepath.Join(dir, "b.png"), 200, 100)
	o.in = dir
	o.bottom = "ONLY BOTTOM"
	o.speechURL = tts.URL

	cfg, err := loadConfig(o)
	require.NoError(t, err)
	backends, err := app.Open(cfg, nil)
	require.NoError(t, err)
	defer backends.Close()

	require.NoError(t, run(context.Background(), cfg, o, backends))

	for _, name := range []string{"a_meme.png", "b_meme.png", "001_bottom.wav", "002_bottom.wav"} {
		_, err := os.Stat(filepath.Join(o.outDir, name))
		assert.NoError(t, err, name)
	}
	_, err = os.Stat(filepath.Join(o.outDir, "001_top.wav"))
	assert.True(t, os.IsNotExist(err))
}
