// Package capture visits URLs in a browser session and stores a screenshot
// and a screen recording per page under the run's output directory.
package capture

import (
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"page-recorder/browser"
	"page-recorder/config"
)

// Orchestrator runs one capture session over a list of URLs
type Orchestrator struct {
	Config *config.Config
	Engine browser.Engine
	Out    io.Writer // receives the final directory listing
	Logger zerolog.Logger
}

// NewOrchestrator creates a new Orchestrator logging to the global logger
func NewOrchestrator(cfg *config.Config, engine browser.Engine) *Orchestrator {
	return &Orchestrator{
		Config: cfg,
		Engine: engine,
		Out:    os.Stdout,
		Logger: log.Logger,
	}
}

// Run visits every URL in order. Failures are logged per URL and never stop
// the batch. The session and browser are closed on every exit path and the
// output directory is listed afterwards.
func (o *Orchestrator) Run(ctx context.Context, urls []string) {
	if len(urls) == 0 {
		o.Logger.Error().Msg("no URLs provided")
		return
	}

	startTime := time.Now()
	o.Logger.Info().Int("urls", len(urls)).Str("engine", o.Config.Engine).Msg("starting capture run")

	defer o.listOutput()
	defer o.closeEngine()

	o.Logger.Info().Msg("launching browser")
	if err := o.Engine.Launch(ctx); err != nil {
		o.Logger.Error().Err(err).Msg("failed to launch browser")
		return
	}

	o.Logger.Info().Msg("creating browser context")
	session, err := o.Engine.NewSession(ctx, browser.SessionOptionsFromConfig(o.Config))
	if err != nil {
		o.Logger.Error().Err(err).Msg("failed to create browser context")
		return
	}
	defer o.closeSession(session)

	var summary Summary
	o.Logger.Info().Msg("looping through URLs")
	for _, url := range urls {
		if ctx.Err() != nil {
			o.Logger.Warn().Int("remaining", len(urls)-summary.Total()).Msg("run cancelled, skipping remaining URLs")
			break
		}
		summary.Add(o.visit(ctx, session, url))
	}

	o.Logger.Info().
		Object("summary", summary).
		Dur("elapsed", time.Since(startTime)).
		Msg("capture run completed")
}

// visit captures a single URL. The page is closed before its video is renamed.
func (o *Orchestrator) visit(ctx context.Context, session browser.Session, url string) Result {
	result := Result{URL: url}
	logger := o.Logger.With().Str("url", url).Logger()

	if !strings.HasPrefix(url, "http") {
		logger.Warn().Msg("skipping invalid URL")
		result.Outcome = OutcomeSkipped
		return result
	}

	logger.Info().Msg("visiting URL")
	page, err := session.NewPage(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("failed to open page")
		result.Outcome = OutcomeFailed
		result.Err = err
		return result
	}

	captured := func() bool {
		defer o.closePage(page, logger)
		return o.capturePage(ctx, page, &result, logger)
	}()
	if !captured {
		return result
	}

	o.storeVideo(page, &result, logger)
	return result
}

// capturePage navigates and takes the screenshot
func (o *Orchestrator) capturePage(ctx context.Context, page browser.Page, result *Result, logger zerolog.Logger) bool {
	if err := page.Goto(ctx, result.URL, o.Config.NavigationTimeout); err != nil {
		result.Err = err
		if errors.Is(err, browser.ErrNavigationTimeout) {
			logger.Error().Dur("timeout", o.Config.NavigationTimeout).Msg("timeout exceeded, skipping")
			result.Outcome = OutcomeTimedOut
		} else {
			logger.Error().Err(err).Msg("navigation failed, skipping")
			result.Outcome = OutcomeFailed
		}
		return false
	}

	result.Domain = ExtractDomain(result.URL)
	path := ArtifactPath(o.Config.OutputDir, o.Config.Timestamp, result.Domain, ".png")

	logger.Info().Str("path", path).Msg("taking screenshot")
	if err := page.Screenshot(ctx, path); err != nil {
		logger.Error().Err(err).Msg("failed to take screenshot")
		result.Outcome = OutcomeFailed
		result.Err = err
		return false
	}
	result.Screenshot = path
	return true
}

// storeVideo renames the page's recording next to its screenshot
func (o *Orchestrator) storeVideo(page browser.Page, result *Result, logger zerolog.Logger) {
	result.Outcome = OutcomeVideoMissing

	src, err := page.VideoPath()
	if err != nil {
		logger.Error().Err(err).Msg("failed to resolve video file")
		result.Err = err
		return
	}

	dst := ArtifactPath(o.Config.OutputDir, o.Config.Timestamp, result.Domain, ".webm")
	if !renameVideo(src, dst, logger) {
		logger.Error().Msg("failed to rename video file")
		result.Err = ErrVideoNotRenamed
		return
	}

	logger.Info().Str("path", dst).Msg("renamed video file")
	result.Outcome = OutcomeCaptured
	result.Video = dst
}

func (o *Orchestrator) closePage(page browser.Page, logger zerolog.Logger) {
	if err := page.Close(); err != nil {
		logger.Warn().Err(err).Msg("failed to close page")
	}
}

func (o *Orchestrator) closeSession(session browser.Session) {
	o.Logger.Info().Msg("closing browser context")
	if err := session.Close(); err != nil {
		o.Logger.Error().Err(err).Msg("failed to close browser context")
	}
}

func (o *Orchestrator) closeEngine() {
	o.Logger.Info().Msg("closing browser")
	if err := o.Engine.Close(); err != nil {
		o.Logger.Error().Err(err).Msg("failed to close browser")
	}
}

func (o *Orchestrator) listOutput() {
	if err := ListDir(o.Out, o.Config.OutputDir); err != nil {
		o.Logger.Error().Err(err).Msg("failed to list output directory")
	}
}
