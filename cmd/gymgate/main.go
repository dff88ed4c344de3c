// Package main is the entry point for the GymGate engine.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/gymgate/engine/internal/access"
	"github.com/gymgate/engine/internal/config"
	"github.com/gymgate/engine/internal/ipc"
	"github.com/gymgate/engine/internal/session"
	"github.com/gymgate/engine/internal/store"
	"github.com/gymgate/engine/internal/usagesync"
	"github.com/gymgate/engine/internal/wallet"
	"github.com/gymgate/engine/internal/watcher"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	configPath := flag.String("config", "", "path to configuration YAML file")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	if *showVersion {
		fmt.Printf("gymgate %s (commit=%s, built=%s)\n", version, commit, date)
		os.Exit(0)
	}

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if *debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, NoColor: true})

	// Resolve config path: --config flag > GYMGATE_CONFIG env > cwd.
	path := *configPath
	if path == "" {
		path = os.Getenv("GYMGATE_CONFIG")
	}
	if path == "" {
		if _, err := os.Stat("config.yaml"); err == nil {
			path = "config.yaml"
		}
	}
	if path == "" {
		log.Fatal().Msg("no config found. Use --config <path>, set GYMGATE_CONFIG, or place config.yaml in the working directory")
	}

	cfg, err := config.Load(path)
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}

	db, err := store.NewDB(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Msg("open database")
	}
	defer db.Close()

	// Wire the core: wallet ledger, access engine, session manager,
	// and the sync coordinator.
	w := wallet.New(db)
	engine := access.NewEngine(db)
	sessions := session.NewManager(cfg.Catalog(), w)

	var source usagesync.Source
	if cfg.UsageSourceURL != "" {
		source = usagesync.NewHTTPSource(cfg.UsageSourceURL)
	}
	coordinator := usagesync.NewCoordinator(db, w, engine, cfg.TrackedSet(), source)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Load schedules from the settings file and reload on change.
	if cfg.SchedulePath != "" {
		if err := engine.LoadScheduleFile(ctx, cfg.SchedulePath); err != nil {
			log.Warn().Err(err).Msg("initial schedule load failed")
		}
		fw, err := watcher.New(cfg.SchedulePath, func() {
			if err := engine.LoadScheduleFile(ctx, cfg.SchedulePath); err != nil {
				log.Warn().Err(err).Msg("schedule reload failed")
			}
		})
		if err != nil {
			log.Fatal().Err(err).Msg("create schedule watcher")
		}
		if err := fw.Start(); err != nil {
			log.Warn().Err(err).Msg("schedule watcher start failed")
		}
		defer fw.Stop()
	}

	// Interval sync ticks; the host can also push reports or trigger
	// foreground ticks through the API.
	if source != nil {
		go coordinator.Run(ctx, time.Duration(cfg.SyncIntervalSec)*time.Second)
	}

	handler := &ipc.Handler{
		Sessions:    sessions,
		Wallet:      w,
		Access:      engine,
		Coordinator: coordinator,
	}
	srv := ipc.NewServer(handler, cfg.ListenAddr)

	// Graceful shutdown on interrupt.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		log.Info().Msg("shutting down...")
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("server shutdown")
		}
	}()

	log.Info().Str("addr", cfg.ListenAddr).Msg("gymgate engine listening")

	if err := srv.Start(); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("server error")
	}
}
