package browser

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/rs/zerolog/log"
)

const stopScreencastTimeout = 2 * time.Second

// ChromeOptions configures how Chrome is found and started
type ChromeOptions struct {
	ExecPath       string // Explicit binary, empty means discover
	DockerFallback bool
}

// ChromeEngine drives Chrome over the DevTools protocol
type ChromeEngine struct {
	opts ChromeOptions

	allocCtx      context.Context
	cancelAlloc   context.CancelFunc
	browserCtx    context.Context
	cancelBrowser context.CancelFunc
	docker        *dockerChrome
}

// NewChromeEngine creates a new ChromeEngine
func NewChromeEngine(opts ChromeOptions) *ChromeEngine {
	return &ChromeEngine{opts: opts}
}

// Launch starts Chrome. A local executable is preferred, then a Docker container,
// then chromedp's default lookup.
func (e *ChromeEngine) Launch(ctx context.Context) error {
	// The browser outlives run cancellation so teardown can still close it.
	base := context.WithoutCancel(ctx)

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.DisableGPU,
		chromedp.NoSandbox,
		chromedp.Headless,
	)

	if execPath, err := findChromeExecutable(e.opts.ExecPath); err == nil {
		log.Info().Str("path", execPath).Msg("using local Chrome executable")
		e.allocCtx, e.cancelAlloc = chromedp.NewExecAllocator(base, append(opts, chromedp.ExecPath(execPath))...)
	} else if e.opts.DockerFallback {
		log.Warn().Err(err).Msg("local Chrome not found, attempting Docker Chrome")
		if d, derr := startDockerChrome(ctx); derr == nil {
			log.Info().Str("url", d.URL()).Msg("using Docker Chrome")
			e.docker = d
			e.allocCtx, e.cancelAlloc = chromedp.NewRemoteAllocator(base, d.URL())
		} else {
			log.Warn().Err(derr).Msg("Docker Chrome failed, falling back to default Chrome settings")
			e.allocCtx, e.cancelAlloc = chromedp.NewExecAllocator(base, opts...)
		}
	} else {
		log.Warn().Err(err).Msg("falling back to default Chrome settings")
		e.allocCtx, e.cancelAlloc = chromedp.NewExecAllocator(base, opts...)
	}

	e.browserCtx, e.cancelBrowser = chromedp.NewContext(e.allocCtx, chromedp.WithLogf(log.Printf))

	// The first Run allocates the browser.
	if err := chromedp.Run(e.browserCtx); err != nil {
		e.Close()
		return fmt.Errorf("failed to launch chrome: %w", err)
	}
	return nil
}

// NewSession opens a fresh browser context
func (e *ChromeEngine) NewSession(ctx context.Context, opts SessionOptions) (Session, error) {
	if e.browserCtx == nil {
		return nil, errors.New("chrome is not running")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(opts.VideoDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create video directory: %w", err)
	}

	sctx, cancel := chromedp.NewContext(e.browserCtx, chromedp.WithNewBrowserContext())
	if err := chromedp.Run(sctx); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to create browser context: %w", err)
	}

	return &chromeSession{ctx: sctx, cancel: cancel, opts: opts}, nil
}

// Close shuts Chrome down and stops the Docker container if one was started
func (e *ChromeEngine) Close() error {
	var errs []error

	if e.browserCtx != nil {
		if err := chromedp.Cancel(e.browserCtx); err != nil && !errors.Is(err, context.Canceled) {
			errs = append(errs, fmt.Errorf("failed to close chrome: %w", err))
		}
		e.cancelBrowser()
		e.browserCtx = nil
	}
	if e.cancelAlloc != nil {
		e.cancelAlloc()
		e.cancelAlloc = nil
	}
	if e.docker != nil {
		if err := e.docker.Stop(context.Background()); err != nil {
			errs = append(errs, err)
		}
		e.docker = nil
	}

	return errors.Join(errs...)
}

type chromeSession struct {
	ctx    context.Context
	cancel context.CancelFunc
	opts   SessionOptions
}

// emulate applies the session's identity to a tab
func (s *chromeSession) emulate() chromedp.Tasks {
	return chromedp.Tasks{
		emulation.SetUserAgentOverride(s.opts.UserAgent).WithAcceptLanguage(s.opts.Locale),
		emulation.SetLocaleOverride().WithLocale(s.opts.Locale),
		emulation.SetTimezoneOverride(s.opts.Timezone),
	}
}

func (s *chromeSession) NewPage(ctx context.Context) (Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	pctx, cancel := chromedp.NewContext(s.ctx)
	if err := chromedp.Run(pctx, s.emulate()); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to open page: %w", err)
	}

	p := &chromePage{ctx: pctx, cancel: cancel}
	if err := p.startRecording(s.opts); err != nil {
		log.Warn().Err(err).Msg("page video disabled")
	}
	return p, nil
}

func (s *chromeSession) Close() error {
	err := chromedp.Cancel(s.ctx)
	s.cancel()
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("failed to close browser context: %w", err)
	}
	return nil
}

type chromePage struct {
	ctx    context.Context
	cancel context.CancelFunc
	closed bool

	rec    *recorder
	recErr error
}

// startRecording streams screencast frames of the tab into a recorder
func (p *chromePage) startRecording(opts SessionOptions) error {
	rec, err := startRecorder(opts.VideoDir, opts.VideoWidth, opts.VideoHeight)
	if err != nil {
		return err
	}

	chromedp.ListenTarget(p.ctx, func(ev interface{}) {
		frame, ok := ev.(*page.EventScreencastFrame)
		if !ok {
			return
		}
		go chromedp.Run(p.ctx, page.ScreencastFrameAck(frame.SessionID))

		data, err := base64.StdEncoding.DecodeString(frame.Data)
		if err != nil {
			return
		}
		rec.push(data)
	})

	err = chromedp.Run(p.ctx, page.StartScreencast().
		WithFormat(page.ScreencastFormatJpeg).
		WithQuality(80).
		WithMaxWidth(int64(opts.VideoWidth)).
		WithMaxHeight(int64(opts.VideoHeight)))
	if err != nil {
		rec.finish()
		return fmt.Errorf("failed to start screencast: %w", err)
	}

	p.rec = rec
	return nil
}

// run executes actions on the tab, aborting when ctx is done
func (p *chromePage) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithTimeout(p.ctx, timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	return chromedp.Run(runCtx, actions...)
}

func (p *chromePage) Goto(ctx context.Context, url string, timeout time.Duration) error {
	err := p.run(ctx, timeout, chromedp.Navigate(url))
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s after %v", ErrNavigationTimeout, url, timeout)
	}
	return fmt.Errorf("failed to navigate to %s: %w", url, err)
}

func (p *chromePage) Screenshot(ctx context.Context, path string) error {
	var buf []byte

	// Quality 100 makes chromedp capture PNG.
	if err := p.run(ctx, time.Minute, chromedp.FullScreenshot(&buf, 100)); err != nil {
		return fmt.Errorf("failed to capture screenshot: %w", err)
	}

	if err := os.WriteFile(path, buf, 0644); err != nil {
		return fmt.Errorf("failed to save screenshot: %w", err)
	}
	return nil
}

func (p *chromePage) VideoPath() (string, error) {
	if p.rec == nil {
		return "", ErrNoVideo
	}
	if p.recErr != nil {
		return "", fmt.Errorf("%w: %v", ErrNoVideo, p.recErr)
	}
	return p.rec.path, nil
}

// Close closes the tab and finalizes its video
func (p *chromePage) Close() error {
	if p.closed {
		return nil
	}
	p.closed = true

	if p.rec != nil {
		stopCtx, cancel := context.WithTimeout(p.ctx, stopScreencastTimeout)
		chromedp.Run(stopCtx, page.StopScreencast())
		cancel()
	}

	err := chromedp.Cancel(p.ctx)
	p.cancel()

	if p.rec != nil {
		if _, recErr := p.rec.finish(); recErr != nil {
			p.recErr = recErr
			log.Warn().Err(recErr).Msg("video recording failed")
		}
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("failed to close page: %w", err)
	}
	return nil
}
