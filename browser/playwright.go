package browser

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/playwright-community/playwright-go"
	"github.com/rs/zerolog/log"
)

// PlaywrightOptions configures the Playwright driver and browser
type PlaywrightOptions struct {
	ExecPath string // Explicit Chromium binary, empty means Playwright's bundled one
	Install  bool   // Download the driver and Chromium before starting
}

// PlaywrightEngine drives Chromium through the Playwright driver
type PlaywrightEngine struct {
	opts    PlaywrightOptions
	pw      *playwright.Playwright
	browser playwright.Browser
}

// NewPlaywrightEngine creates a new PlaywrightEngine
func NewPlaywrightEngine(opts PlaywrightOptions) *PlaywrightEngine {
	return &PlaywrightEngine{opts: opts}
}

// launchOptions builds the Chromium launch options
func (e *PlaywrightEngine) launchOptions() playwright.BrowserTypeLaunchOptions {
	opts := playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(true),
		Args: []string{
			"--no-sandbox",
			"--disable-dev-shm-usage",
		},
	}
	if e.opts.ExecPath != "" {
		opts.ExecutablePath = playwright.String(e.opts.ExecPath)
	}
	return opts
}

func (e *PlaywrightEngine) Launch(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if e.opts.Install {
		log.Info().Msg("installing Playwright driver and Chromium")
		if err := playwright.Install(&playwright.RunOptions{Browsers: []string{"chromium"}}); err != nil {
			return fmt.Errorf("failed to install playwright: %w", err)
		}
	}

	pw, err := playwright.Run()
	if err != nil {
		return fmt.Errorf("failed to start playwright: %w", err)
	}

	browser, err := pw.Chromium.Launch(e.launchOptions())
	if err != nil {
		pw.Stop()
		return fmt.Errorf("failed to launch chromium: %w", err)
	}

	e.pw = pw
	e.browser = browser
	return nil
}

// contextOptions maps session options onto a Playwright browser context
func contextOptions(opts SessionOptions) playwright.BrowserNewContextOptions {
	return playwright.BrowserNewContextOptions{
		RecordVideo: &playwright.RecordVideo{
			Dir: opts.VideoDir,
			Size: &playwright.Size{
				Width:  opts.VideoWidth,
				Height: opts.VideoHeight,
			},
		},
		UserAgent:  playwright.String(opts.UserAgent),
		Locale:     playwright.String(opts.Locale),
		TimezoneId: playwright.String(opts.Timezone),
	}
}

func (e *PlaywrightEngine) NewSession(ctx context.Context, opts SessionOptions) (Session, error) {
	if e.browser == nil {
		return nil, errors.New("chromium is not running")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	bctx, err := e.browser.NewContext(contextOptions(opts))
	if err != nil {
		return nil, fmt.Errorf("failed to create browser context: %w", err)
	}
	return &playwrightSession{ctx: bctx}, nil
}

func (e *PlaywrightEngine) Close() error {
	var errs []error

	if e.browser != nil {
		if err := e.browser.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close chromium: %w", err))
		}
		e.browser = nil
	}
	if e.pw != nil {
		if err := e.pw.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop playwright: %w", err))
		}
		e.pw = nil
	}

	return errors.Join(errs...)
}

type playwrightSession struct {
	ctx playwright.BrowserContext
}

func (s *playwrightSession) NewPage(ctx context.Context) (Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	pg, err := s.ctx.NewPage()
	if err != nil {
		return nil, fmt.Errorf("failed to open page: %w", err)
	}
	return &playwrightPage{page: pg}, nil
}

func (s *playwrightSession) Close() error {
	if err := s.ctx.Close(); err != nil {
		return fmt.Errorf("failed to close browser context: %w", err)
	}
	return nil
}

type playwrightPage struct {
	page playwright.Page
}

func (p *playwrightPage) Goto(ctx context.Context, url string, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	_, err := p.page.Goto(url, playwright.PageGotoOptions{
		Timeout: playwright.Float(float64(timeout.Milliseconds())),
	})
	if err == nil {
		return nil
	}
	if errors.Is(err, playwright.ErrTimeout) {
		return fmt.Errorf("%w: %s after %v", ErrNavigationTimeout, url, timeout)
	}
	return fmt.Errorf("failed to navigate to %s: %w", url, err)
}

func (p *playwrightPage) Screenshot(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if _, err := p.page.Screenshot(playwright.PageScreenshotOptions{
		Path:     playwright.String(path),
		FullPage: playwright.Bool(true),
	}); err != nil {
		return fmt.Errorf("failed to capture screenshot: %w", err)
	}
	return nil
}

func (p *playwrightPage) VideoPath() (string, error) {
	video := p.page.Video()
	if video == nil {
		return "", ErrNoVideo
	}

	path, err := video.Path()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNoVideo, err)
	}
	return path, nil
}

func (p *playwrightPage) Close() error {
	if err := p.page.Close(); err != nil {
		return fmt.Errorf("failed to close page: %w", err)
	}
	return nil
}
