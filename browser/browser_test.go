package browser

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"page-recorder/config"
)

func TestNew(t *testing.T) {
	cfg := config.Default(time.Now())
	cfg.ChromePath = "/opt/chrome"

	engine, err := New(cfg)
	require.NoError(t, err)
	chrome, ok := engine.(*ChromeEngine)
	require.True(t, ok)
	assert.Equal(t, "/opt/chrome", chrome.opts.ExecPath)
	assert.True(t, chrome.opts.DockerFallback)

	cfg.Engine = config.EnginePlaywright
	cfg.PlaywrightInstall = true
	engine, err = New(cfg)
	require.NoError(t, err)
	pw, ok := engine.(*PlaywrightEngine)
	require.True(t, ok)
	assert.True(t, pw.opts.Install)

	cfg.Engine = "lynx"
	_, err = New(cfg)
	assert.ErrorIs(t, err, ErrUnknownEngine)
}

func TestSessionOptionsFromConfig(t *testing.T) {
	cfg := config.Default(time.Now())
	opts := SessionOptionsFromConfig(cfg)

	assert.Equal(t, SessionOptions{
		VideoDir:    "clicks",
		VideoWidth:  640,
		VideoHeight: 480,
		UserAgent:   config.DefaultUserAgent,
		Locale:      "de-DE",
		Timezone:    "Europe/Berlin",
	}, opts)
}

func TestFindChromeExecutable_explicit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chrome")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"), 0755))

	got, err := findChromeExecutable(path)
	require.NoError(t, err)
	assert.Equal(t, path, got)

	_, err = findChromeExecutable(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestChromeCandidates(t *testing.T) {
	assert.Contains(t, chromeCandidates("linux"), "/usr/bin/chromium")
	assert.Len(t, chromeCandidates("darwin"), 3)
	assert.Nil(t, chromeCandidates("plan9"))
}

func TestFFmpegArgs(t *testing.T) {
	args := ffmpegArgs("clicks/abc.webm", 640, 480)

	assert.Equal(t, "clicks/abc.webm", args[len(args)-1])
	assert.Contains(t, strings.Join(args, " "), "-f image2pipe")
	assert.Contains(t, strings.Join(args, " "), "scale=640:480:force_original_aspect_ratio=decrease,pad=640:480")
	assert.Contains(t, args, "libvpx")
}

func TestContextOptions(t *testing.T) {
	opts := contextOptions(SessionOptions{
		VideoDir:    "clicks",
		VideoWidth:  640,
		VideoHeight: 480,
		UserAgent:   "agent",
		Locale:      "de-DE",
		Timezone:    "Europe/Berlin",
	})

	require.NotNil(t, opts.RecordVideo)
	assert.Equal(t, "clicks", opts.RecordVideo.Dir)
	require.NotNil(t, opts.RecordVideo.Size)
	assert.Equal(t, 640, opts.RecordVideo.Size.Width)
	assert.Equal(t, 480, opts.RecordVideo.Size.Height)
	assert.Equal(t, "agent", *opts.UserAgent)
	assert.Equal(t, "de-DE", *opts.Locale)
	assert.Equal(t, "Europe/Berlin", *opts.TimezoneId)
}

func TestPlaywrightLaunchOptions(t *testing.T) {
	e := NewPlaywrightEngine(PlaywrightOptions{})
	opts := e.launchOptions()
	assert.True(t, *opts.Headless)
	assert.Nil(t, opts.ExecutablePath)

	e = NewPlaywrightEngine(PlaywrightOptions{ExecPath: "/usr/bin/chromium"})
	assert.Equal(t, "/usr/bin/chromium", *e.launchOptions().ExecutablePath)
}

func TestEnginesNotLaunched(t *testing.T) {
	ctx := context.Background()

	_, err := NewChromeEngine(ChromeOptions{}).NewSession(ctx, SessionOptions{})
	assert.Error(t, err)
	assert.NoError(t, NewChromeEngine(ChromeOptions{}).Close())

	_, err = NewPlaywrightEngine(PlaywrightOptions{}).NewSession(ctx, SessionOptions{})
	assert.Error(t, err)
	assert.NoError(t, NewPlaywrightEngine(PlaywrightOptions{}).Close())
}

func TestChromePageVideoPath(t *testing.T) {
	p := &chromePage{}
	_, err := p.VideoPath()
	assert.ErrorIs(t, err, ErrNoVideo)

	p.rec = &recorder{path: "clicks/raw.webm"}
	got, err := p.VideoPath()
	require.NoError(t, err)
	assert.Equal(t, "clicks/raw.webm", got)

	p.recErr = errors.New("ffmpeg failed")
	_, err = p.VideoPath()
	assert.ErrorIs(t, err, ErrNoVideo)
}

func TestWaitForDebugger(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if r.URL.Path != "/json/version" || calls < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, `{"webSocketDebuggerUrl": "ws://localhost:9222/devtools/browser/1"}`)
	}))
	defer srv.Close()

	err := waitForDebugger(context.Background(), srv.URL, 5, time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestWaitForDebugger_givesUp(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{}`)
	}))
	defer srv.Close()

	err := waitForDebugger(context.Background(), srv.URL, 2, time.Millisecond)
	assert.ErrorContains(t, err, "did not become ready after 2 retries")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = waitForDebugger(ctx, srv.URL, 2, time.Second)
	assert.Error(t, err)
}
