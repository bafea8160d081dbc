package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"page-recorder/browser"
	"page-recorder/capture"
	"page-recorder/config"
)

// shutdownGrace is how long teardown may take after a signal before the process exits
const shutdownGrace = 15 * time.Second

// setupLogger renders colored status lines on a terminal and plain ones otherwise
func setupLogger() {
	log.Logger = zerolog.New(zerolog.ConsoleWriter{
		Out:        colorable.NewColorableStdout(),
		NoColor:    !isatty.IsTerminal(os.Stdout.Fd()) && !isatty.IsCygwinTerminal(os.Stdout.Fd()),
		TimeFormat: time.TimeOnly,
	}).With().Timestamp().Logger()
}

func main() {
	startTime := time.Now()
	setupLogger()

	cfg, err := config.Load(startTime)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	log.Info().Str("path", cfg.URLFile).Msg("reading URLs")
	urls := config.ReadURLs(cfg.URLFile)
	if len(urls) > 0 {
		log.Info().Int("count", len(urls)).Msg("found URLs to visit")
	}

	engine, err := browser.New(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create browser engine")
	}

	// Create context with cancel for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-signalChan
		log.Warn().Str("signal", sig.String()).Msg("shutting down gracefully")
		cancel()
		// Exit if teardown hangs
		time.Sleep(shutdownGrace)
		os.Exit(1)
	}()

	capture.NewOrchestrator(cfg, engine).Run(ctx, urls)

	log.Info().Dur("elapsed", time.Since(startTime)).Msg("done")
}
