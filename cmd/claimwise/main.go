package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"syscall"
	"time"

	"github.com/claimwise/cli/config"
	"github.com/claimwise/cli/internal/activity"
	"github.com/claimwise/cli/internal/api"
	"github.com/claimwise/cli/internal/auth"
	"github.com/claimwise/cli/internal/demo"
	"github.com/claimwise/cli/internal/documents"
	"github.com/claimwise/cli/internal/logging"
	"github.com/claimwise/cli/internal/notify"
	"github.com/claimwise/cli/internal/tui"
	"github.com/claimwise/cli/internal/voice"
)

func main() {
	var (
		migrateFlag = flag.Bool("migrate", false, "Run activity database migrations and exit")
		demoFlag    = flag.Bool("demo", false, "Run against a built-in demo backend")
		apiFlag     = flag.String("api", "", "Backend URL, overrides the config file")
		docFlag     = flag.String("doc", "", "Ask questions about this document id")
	)
	flag.Parse()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	// Run migrations if requested
	if *migrateFlag {
		if err := runMigrations(cfg.Activity.DatabaseURL); err != nil {
			fmt.Fprintf(os.Stderr, "Error running migrations: %v\n", err)
			os.Exit(1)
		}
		return
	}

	logger := logging.Discard()
	if cfg.Logging.File != "" {
		l, closer, err := logging.Init(cfg.Logging.Level, cfg.Logging.File)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: logging disabled: %v\n", err)
		} else {
			logger = l
			defer closer.Close()
		}
	}

	if err := run(cfg, logger, *demoFlag, *apiFlag, *docFlag); err != nil {
		logger.Error("exiting", "error", err)
		fmt.Fprintf(os.Stderr, "Error running app: %v\n", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger, demoMode bool, apiURL, fileID string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	session := auth.NewSession(cfg.Paths.TokenFile)
	if err := session.Init(); err != nil {
		logger.Warn("failed to read saved token", "error", err)
	}

	baseURL := cfg.API.BaseURL
	if apiURL != "" {
		baseURL = apiURL
	}
	if demoMode {
		url, shutdown, err := demo.NewServer(logger).Listen("127.0.0.1:0")
		if err != nil {
			return fmt.Errorf("start demo backend: %w", err)
		}
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = shutdown(sctx)
		}()
		baseURL = url
	}
	logger.Info("starting", "api", baseURL, "demo", demoMode)

	client := api.New(baseURL, session,
		api.WithLogger(logger),
		api.WithDefaults(cfg.API.Retries, cfg.API.RetryDelay, cfg.API.Timeout),
	)

	openCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	store := activity.Open(openCtx, cfg.Activity.DatabaseURL, logger)
	cancel()
	defer store.Close()

	deps := tui.Deps{
		Config:   cfg,
		Client:   client,
		Session:  session,
		Cache:    documents.NewCache(client, cfg.Cache.TTL),
		Notices:  notify.NewCenter(logger),
		Activity: store,
		Logger:   logger,
		FileID:   fileID,
	}

	// voice needs a local ffmpeg; without it the chat screen is text only
	if _, err := exec.LookPath(cfg.Voice.FFmpegPath); err == nil {
		deps.Device = voice.NewFFmpegDevice(cfg.Voice.FFmpegPath, cfg.Voice.InputFormat, cfg.Voice.InputDevice, logger)
		if _, err := exec.LookPath(cfg.Voice.PlayerPath); err == nil {
			deps.Player = voice.NewCommandPlayer(cfg.Voice.PlayerPath)
		} else {
			logger.Warn("audio player not found, voice answers are text only", "path", cfg.Voice.PlayerPath)
		}
	} else {
		logger.Warn("ffmpeg not found, voice input disabled", "path", cfg.Voice.FFmpegPath)
	}

	return tui.NewApp(deps).Run(ctx)
}

// runMigrations applies the activity schema
func runMigrations(dsn string) error {
	if dsn == "" {
		return fmt.Errorf("activity.database_url is not set (or set %s)", config.EnvDatabaseURL)
	}
	version, err := activity.Migrate(dsn)
	if err != nil {
		return err
	}
	fmt.Printf("Migrations completed successfully (version %d)\n", version)
	return nil
}
