// main package for the meme-server
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/book-expert/logger"

	"github.com/menta2k/meme-generator/internal/app"
	"github.com/menta2k/meme-generator/internal/config"
	"github.com/menta2k/meme-generator/internal/server"
	"github.com/menta2k/meme-generator/internal/utils"
	"github.com/menta2k/meme-generator/pkg/loader"
	"github.com/menta2k/meme-generator/pkg/session"
)

const busQueueSize = 64

func setupLogger(logDir, name string) (*logger.Logger, error) {
	if err := utils.EnsureDir(logDir); err != nil {
		return nil, err
	}
	log, err := logger.New(logDir, name)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return log, nil
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" && utils.FileExists(config.GetConfigPath()) {
		path = config.GetConfigPath()
	}

	cfg := config.Default()
	if path != "" {
		loaded, err := config.LoadFromFile(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func run(ctx context.Context, configPath, addr string) error {
	bootstrapLog, err := setupLogger(os.TempDir(), "meme-server-bootstrap.log")
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to create bootstrap logger: %v\n", err)
		return err
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		bootstrapLog.Error("Failed to load configuration: %v", err)
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if addr != "" {
		cfg.Server.Addr = addr
	}
	bootstrapLog.Info("Configuration loaded successfully.")

	log, err := setupLogger(cfg.Logging.Dir, cfg.Logging.File)
	if err != nil {
		bootstrapLog.Error("Failed to create final logger: %v", err)
		return fmt.Errorf("failed to create final logger: %w", err)
	}
	defer func() {
		if closeErr := log.Close(); closeErr != nil {
			fmt.Fprintf(os.Stderr, "error closing logger: %v\n", closeErr)
		}
	}()

	backends, err := app.Open(cfg, log)
	if err != nil {
		log.Error("Failed to open backends: %v", err)
		return err
	}
	defer backends.Close()

	sessionCfg, err := app.SessionConfig(cfg)
	if err != nil {
		return err
	}
	output, err := app.OutputOptions(cfg)
	if err != nil {
		return err
	}

	bus := session.NewBus(busQueueSize)
	store := session.NewStore(sessionCfg, backends.Speech, bus, cfg.SessionIdle())
	srv := server.New(store, server.Options{
		Loader:    loader.NewWithConfig(app.LoaderConfig(cfg)),
		Suggester: backends.Suggester,
		Output:    output,
		Bus:       bus,
		Log:       log,
	})

	log.System("meme-server started on %s (speech: %s, suggest: %s)",
		cfg.Server.Addr, cfg.Speech.Backend, cfg.Suggest.Backend)

	if err := srv.ListenAndServe(ctx, cfg.Server.Addr); err != nil {
		log.Error("Server failed: %v", err)
		return err
	}

	log.System("meme-server stopped")
	return nil
}

func main() {
	configPath := flag.String("config", "", "Path to a TOML or JSON config file")
	addr := flag.String("addr", "", "Listen address (overrides server.addr)")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *configPath, *addr); err != nil {
		fmt.Fprintf(os.Stderr, "Service exited with error: %v\n", err)
		os.Exit(1)
	}
}
