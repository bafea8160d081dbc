package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Engines understood by the browser package
const (
	EngineChromedp   = "chromedp"
	EnginePlaywright = "playwright"
)

// Defaults for a capture run
const (
	DefaultURLFile           = "urls.txt"
	DefaultOutputDir         = "clicks"
	DefaultUserAgent         = "Mozilla/5.0 (Linux; Android 11; Redmi Note 8 Pro) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/112.0.0.0 Mobile Safari/537.36"
	DefaultLocale            = "de-DE"
	DefaultTimezone          = "Europe/Berlin"
	DefaultNavigationTimeout = 10000 * time.Millisecond

	// TimestampLayout is the UTC date-time prefix shared by every artifact of a run
	TimestampLayout = "20060102_150405"
)

// Viewport represents frame dimensions in pixels
type Viewport struct {
	Width  int
	Height int
}

// Config represents the configuration of a single capture run
type Config struct {
	URLFile           string
	OutputDir         string
	Timestamp         string // Fixed at process start, see RunTimestamp
	UserAgent         string
	Locale            string
	Timezone          string
	VideoSize         Viewport
	NavigationTimeout time.Duration
	Engine            string
	ChromePath        string // Explicit Chrome binary, empty means discover
	DockerFallback    bool   // Start browserless/chrome in Docker when no local Chrome exists
	PlaywrightInstall bool   // Download the Playwright driver and Chromium before launching
}

// RunTimestamp formats t as the run-wide artifact prefix
func RunTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// Default returns the configuration for a run started at now
func Default(now time.Time) *Config {
	return &Config{
		URLFile:           DefaultURLFile,
		OutputDir:         DefaultOutputDir,
		Timestamp:         RunTimestamp(now),
		UserAgent:         DefaultUserAgent,
		Locale:            DefaultLocale,
		Timezone:          DefaultTimezone,
		VideoSize:         Viewport{Width: 640, Height: 480},
		NavigationTimeout: DefaultNavigationTimeout,
		Engine:            EngineChromedp,
		DockerFallback:    true,
	}
}

// Load builds the run configuration from defaults and the environment.
// A .env file in the working directory is read first when present.
func Load(now time.Time) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("error reading .env file: %w", err)
	}

	config := Default(now)
	if err := applyEnv(config); err != nil {
		return nil, err
	}

	if err := validateConfig(config); err != nil {
		return nil, err
	}

	if err := ensureOutputDir(config.OutputDir); err != nil {
		return nil, fmt.Errorf("error creating output directory: %w", err)
	}

	return config, nil
}

// applyEnv overrides the engine knobs from the environment
func applyEnv(config *Config) error {
	if engine := strings.TrimSpace(os.Getenv("CAPTURE_ENGINE")); engine != "" {
		config.Engine = strings.ToLower(engine)
	}

	if path := strings.TrimSpace(os.Getenv("CHROME_PATH")); path != "" {
		config.ChromePath = path
	}

	if raw := strings.TrimSpace(os.Getenv("CAPTURE_DOCKER_FALLBACK")); raw != "" {
		enabled, err := strconv.ParseBool(raw)
		if err != nil {
			return fmt.Errorf("invalid CAPTURE_DOCKER_FALLBACK %q: %w", raw, err)
		}
		config.DockerFallback = enabled
	}

	if raw := strings.TrimSpace(os.Getenv("CAPTURE_PLAYWRIGHT_INSTALL")); raw != "" {
		enabled, err := strconv.ParseBool(raw)
		if err != nil {
			return fmt.Errorf("invalid CAPTURE_PLAYWRIGHT_INSTALL %q: %w", raw, err)
		}
		config.PlaywrightInstall = enabled
	}

	return nil
}

// validateConfig rejects configurations no engine can run with
func validateConfig(config *Config) error {
	switch config.Engine {
	case EngineChromedp, EnginePlaywright:
	default:
		return fmt.Errorf("unsupported engine: %s (supported: %s, %s)", config.Engine, EngineChromedp, EnginePlaywright)
	}

	if config.VideoSize.Width < 1 || config.VideoSize.Height < 1 {
		return fmt.Errorf("video size must be positive, got %dx%d", config.VideoSize.Width, config.VideoSize.Height)
	}

	if config.Locale == "" || config.Timezone == "" {
		return fmt.Errorf("locale and timezone are required")
	}

	if config.NavigationTimeout <= 0 {
		return fmt.Errorf("navigation timeout must be positive")
	}

	if config.OutputDir == "" {
		config.OutputDir = DefaultOutputDir
	}

	return nil
}

// ensureOutputDir ensures the output directory exists
func ensureOutputDir(dir string) error {
	return os.MkdirAll(dir, 0755)
}
