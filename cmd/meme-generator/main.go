package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/menta2k/meme-generator/internal/app"
	"github.com/menta2k/meme-generator/internal/config"
	"github.com/menta2k/meme-generator/internal/utils"
	"github.com/menta2k/meme-generator/pkg/loader"
	"github.com/menta2k/meme-generator/pkg/render"
	"github.com/menta2k/meme-generator/pkg/session"
	"github.com/menta2k/meme-generator/pkg/speech"
)

type options struct {
	in, top, bottom string
	outDir, ext     string
	quality         int
	lossless        bool
	width, height   int

	suggest        bool
	suggestBackend string
	suggestURL     string
	model          string

	speechURL  string
	speechNATS string
	subject    string
	voice      string
	volume     int
	listVoices bool

	configPath string
}

func main() {
	var o options

	flag.StringVar(&o.in, "in", "", "input image path, directory or URL (jpg/png/gif/webp/bmp/tiff)")
	flag.StringVar(&o.top, "top", "", "top caption")
	flag.StringVar(&o.bottom, "bottom", "", "bottom caption")
	flag.StringVar(&o.outDir, "out", "", "output directory (default from config: ./output)")
	flag.StringVar(&o.ext, "ext", "", "output format: png|jpg|webp")
	flag.IntVar(&o.quality, "quality", 0, "JPEG/WebP output quality (1-100)")
	flag.BoolVar(&o.lossless, "lossless", false, "WebP output lossless mode")
	flag.IntVar(&o.width, "width", 0, "canvas width in pixels (default 400)")
	flag.IntVar(&o.height, "height", 0, "canvas height in pixels (default 400)")

	flag.BoolVar(&o.suggest, "suggest", false, "ask a vision model for captions when none are given")
	flag.StringVar(&o.suggestBackend, "backend", "", "suggestion backend: ollama or llamacpp")
	flag.StringVar(&o.suggestURL, "url", "", "suggestion server URL")
	flag.StringVar(&o.model, "model", "", "suggestion model name")

	flag.StringVar(&o.speechURL, "speech-url", "", "TTS HTTP service URL; reads the captions aloud into audio files")
	flag.StringVar(&o.speechNATS, "speech-nats", "", "NATS URL of a TTS worker; reads the captions aloud into audio files")
	flag.StringVar(&o.subject, "subject", "", "NATS subject prefix of the TTS worker")
	flag.StringVar(&o.voice, "voice", "", "voice ID used for reading (default: first voice)")
	flag.IntVar(&o.volume, "volume", -1, "reading volume 0-100")
	flag.BoolVar(&o.listVoices, "voices", false, "list available voices and exit")

	flag.StringVar(&o.configPath, "config", "", "config file (.toml or .json)")

	flag.Parse()

	cfg, err := loadConfig(o)
	if err != nil {
		log.Fatal(err)
	}

	if o.in == "" && !o.listVoices {
		log.Fatalf("usage: %s -in input.jpg|dir|URL [-top TEXT] [-bottom TEXT] [-out outdir] [-ext png|jpg|webp] [-suggest] [-speech-url URL|-speech-nats URL] [-voice ID] [-volume 0-100]", filepath.Base(os.Args[0]))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	backends, err := app.Open(cfg, nil)
	if err != nil {
		log.Fatal(err)
	}
	defer backends.Close()

	if o.listVoices {
		if err := printVoices(ctx, backends.Speech); err != nil {
			log.Fatal(err)
		}
		return
	}

	if err := run(ctx, cfg, o, backends); err != nil {
		log.Fatal(err)
	}
}

// loadConfig reads -config, falling back to the default config path, and
// applies flag overrides
func loadConfig(o options) (*config.Config, error) {
	cfg := config.Default()

	path := o.configPath
	if path == "" && utils.FileExists(config.GetConfigPath()) {
		path = config.GetConfigPath()
	}
	if path != "" {
		loaded, err := config.LoadFromFile(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if o.outDir != "" {
		cfg.Output.OutputDir = o.outDir
	}
	if o.ext != "" {
		cfg.Output.DefaultFormat = o.ext
	}
	if o.quality > 0 {
		cfg.Output.Quality = o.quality
	}
	if o.lossless {
		cfg.Output.Lossless = true
	}
	if o.width > 0 {
		cfg.Canvas.Width = o.width
	}
	if o.height > 0 {
		cfg.Canvas.Height = o.height
	}

	if o.suggestBackend != "" {
		cfg.Suggest.Backend = o.suggestBackend
	} else if o.suggest && (cfg.Suggest.Backend == config.SuggestNone || cfg.Suggest.Backend == "") {
		cfg.Suggest.Backend = config.SuggestOllama
	}
	if o.suggestURL != "" {
		cfg.Suggest.URL = o.suggestURL
	}
	if o.model != "" {
		cfg.Suggest.Model = o.model
	}

	switch {
	case o.speechURL != "":
		cfg.Speech.Backend = config.SpeechHTTP
		cfg.Speech.URL = o.speechURL
	case o.speechNATS != "":
		cfg.Speech.Backend = config.SpeechNATS
		cfg.Speech.URL = o.speechNATS
	}
	if o.subject != "" {
		cfg.Speech.Subject = o.subject
	}
	if o.volume >= 0 {
		cfg.Speech.DefaultVolume = o.volume
	}
	// the CLI never bridges
	cfg.Speech.BridgeURL = ""

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func printVoices(ctx context.Context, engine speech.Engine) error {
	s, err := session.New("cli", session.DefaultConfig(), engine, nil)
	if err != nil {
		return err
	}
	opts, err := s.Voices(ctx)
	if err != nil {
		return err
	}
	for _, opt := range opts {
		if opt.Value == speech.PlaceholderValue {
			continue
		}
		marker := " "
		if opt.Selected {
			marker = "*"
		}
		fmt.Printf("%s %-24s %s\n", marker, opt.Value, opt.Label)
	}
	return nil
}

func run(ctx context.Context, cfg *config.Config, o options, backends *app.Backends) error {
	inputs := []string{o.in}
	if utils.DirExists(o.in) {
		files, err := utils.ListImageFiles(o.in)
		if err != nil {
			return fmt.Errorf("failed to list %s: %w", o.in, err)
		}
		if len(files) == 0 {
			return fmt.Errorf("no images found in %s", o.in)
		}
		inputs = files
	}

	if err := utils.EnsureDir(cfg.Output.OutputDir); err != nil {
		return err
	}

	sessionCfg, err := app.SessionConfig(cfg)
	if err != nil {
		return err
	}
	outOpts, err := app.OutputOptions(cfg)
	if err != nil {
		return err
	}
	ld := loader.NewWithConfig(app.LoaderConfig(cfg))
	speak := cfg.Speech.Backend == config.SpeechHTTP || cfg.Speech.Backend == config.SpeechNATS

	failed := 0
	for i, in := range inputs {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := processOne(ctx, i+1, in, o, cfg, ld, sessionCfg, outOpts, backends, speak); err != nil {
			log.Printf("%s failed: %v", in, err)
			failed++
		}
	}

	if failed == len(inputs) {
		return fmt.Errorf("all %d inputs failed", failed)
	}
	return nil
}

func processOne(ctx context.Context, index int, in string, o options, cfg *config.Config,
	ld *loader.Loader, sessionCfg session.Config, outOpts render.Options, backends *app.Backends, speak bool) error {
	src, err := ld.LoadSmart(ctx, in)
	if err != nil {
		return err
	}

	s, err := session.New(fmt.Sprintf("cli-%03d", index), sessionCfg, backends.Speech, nil)
	if err != nil {
		return err
	}

	result, err := s.LoadImage(src)
	if err != nil {
		return err
	}
	info := loader.Info(src.Image)
	log.Printf("%s: %dx%d %s -> %.1fx%.1f at %.1f,%.1f",
		src.Name, info.Width, info.Height, info.Orientation, result.Width, result.Height, result.OffsetX, result.OffsetY)

	top, bottom := o.top, o.bottom
	if top == "" && bottom == "" && backends.Suggester != nil {
		suggestion, err := backends.Suggester.Suggest(ctx, src.Image)
		if err != nil {
			log.Printf("suggestion failed: %v", err)
		} else if suggestion.Fallback {
			log.Printf("model %s gave no usable captions", suggestion.Model)
		} else {
			top, bottom = suggestion.Top, suggestion.Bottom
			log.Printf("suggested: %q / %q", top, bottom)
		}
	}

	s.Generate(top, bottom)

	outPath := utils.GenerateOutputFilename(in, cfg.Output.OutputDir, cfg.Output.Suffix, string(outOpts.Format))
	if err := render.Save(s.Snapshot(), outPath, outOpts); err != nil {
		return err
	}
	logWritten(outPath)

	if !speak {
		return nil
	}
	return readAloud(ctx, s, index, o.voice, cfg.Output.OutputDir)
}

func readAloud(ctx context.Context, s *session.Session, index int, voice, outDir string) error {
	if _, err := s.Voices(ctx); err != nil {
		return err
	}
	if voice != "" {
		if err := s.SelectVoice(ctx, voice); err != nil {
			return err
		}
	}

	clips, err := s.Read(ctx)
	if err != nil {
		return err
	}

	captions := s.State().Captions
	positions := make([]string, 0, 2)
	if captions.Top != "" {
		positions = append(positions, "top")
	}
	if captions.Bottom != "" {
		positions = append(positions, "bottom")
	}

	for i, clip := range clips {
		path := utils.ClipFilename(outDir, index, positions[i], clip.ContentType)
		if err := os.WriteFile(path, clip.Audio, 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
		logWritten(path)
	}
	return nil
}

func logWritten(path string) {
	size := ""
	if info, err := os.Stat(path); err == nil {
		size = " (" + utils.FormatFileSize(info.Size()) + ")"
	}
	log.Printf("wrote %s%s", path, size)
}
