package config

import (
	"errors"
	"io/fs"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ReadURLs reads a comma-separated URL list from path.
// Failures are logged and degrade to an empty list.
func ReadURLs(path string) []string {
	return readURLs(path, log.Logger)
}

func readURLs(path string, logger zerolog.Logger) []string {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			logger.Error().Str("path", path).Msg("URL file not found")
		} else {
			logger.Error().Err(err).Str("path", path).Msg("error reading URL file")
		}
		return []string{}
	}

	content := strings.TrimSpace(string(data))
	if content == "" {
		logger.Error().Str("path", path).Msg("URL file is empty")
		return []string{}
	}

	urls := []string{}
	for _, url := range strings.Split(content, ",") {
		if url = strings.TrimSpace(url); url == "" {
			continue
		}
		urls = append(urls, url)
	}

	return urls
}
