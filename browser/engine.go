// Package browser wraps the headless browser engines used to visit pages,
// take screenshots and record videos.
package browser

import (
	"context"
	"errors"
	"fmt"
	"time"

	"page-recorder/config"
)

var (
	// ErrNavigationTimeout is returned by Page.Goto when the page did not load in time
	ErrNavigationTimeout = errors.New("navigation timeout exceeded")
	// ErrNoVideo is returned by Page.VideoPath when the page was not recorded
	ErrNoVideo = errors.New("no video recorded for page")
	// ErrUnknownEngine is returned by New for an unsupported engine name
	ErrUnknownEngine = errors.New("unknown browser engine")
)

// SessionOptions configures an isolated browsing session
type SessionOptions struct {
	VideoDir    string
	VideoWidth  int
	VideoHeight int
	UserAgent   string
	Locale      string
	Timezone    string
}

// Engine starts and stops a browser instance
type Engine interface {
	Launch(ctx context.Context) error
	NewSession(ctx context.Context, opts SessionOptions) (Session, error)
	Close() error
}

// Session is a browser context holding cookies, cache and video settings
type Session interface {
	NewPage(ctx context.Context) (Page, error)
	Close() error
}

// Page is a single tab within a session
type Page interface {
	// Goto navigates to url and waits at most timeout for the load event
	Goto(ctx context.Context, url string, timeout time.Duration) error
	// Screenshot writes a full-page PNG to path
	Screenshot(ctx context.Context, path string) error
	// VideoPath returns the engine-generated recording of the page.
	// The file is complete only after Close.
	VideoPath() (string, error)
	Close() error
}

// SessionOptionsFromConfig maps run configuration onto session options
func SessionOptionsFromConfig(cfg *config.Config) SessionOptions {
	return SessionOptions{
		VideoDir:    cfg.OutputDir,
		VideoWidth:  cfg.VideoSize.Width,
		VideoHeight: cfg.VideoSize.Height,
		UserAgent:   cfg.UserAgent,
		Locale:      cfg.Locale,
		Timezone:    cfg.Timezone,
	}
}

// New returns the engine selected by cfg.Engine
func New(cfg *config.Config) (Engine, error) {
	switch cfg.Engine {
	case config.EngineChromedp:
		return NewChromeEngine(ChromeOptions{
			ExecPath:       cfg.ChromePath,
			DockerFallback: cfg.DockerFallback,
		}), nil
	case config.EnginePlaywright:
		return NewPlaywrightEngine(PlaywrightOptions{
			ExecPath: cfg.ChromePath,
			Install:  cfg.PlaywrightInstall,
		}), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownEngine, cfg.Engine)
	}
}
