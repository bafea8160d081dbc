package capture

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ExtractDomain returns the part of url after "//" and before the next "/".
// No URL parsing is done, so ports and query strings without a path are kept.
func ExtractDomain(url string) string {
	if idx := strings.LastIndex(url, "//"); idx >= 0 {
		url = url[idx+2:]
	}
	if idx := strings.Index(url, "/"); idx >= 0 {
		url = url[:idx]
	}
	return url
}

// ArtifactPath builds {dir}/{timestamp}-{domain}{ext}
func ArtifactPath(dir, timestamp, domain, ext string) string {
	return filepath.Join(dir, fmt.Sprintf("%s-%s%s", timestamp, sanitizeFilename(domain), ext))
}

// RenameVideo moves the engine-generated video at src to dst.
// It reports success and never returns an error.
func RenameVideo(src, dst string) bool {
	return renameVideo(src, dst, log.Logger)
}

func renameVideo(src, dst string, logger zerolog.Logger) bool {
	err := os.Rename(src, dst)
	if err == nil {
		return true
	}

	if _, statErr := os.Stat(src); errors.Is(statErr, fs.ErrNotExist) {
		logger.Error().Str("path", src).Msg("video file not found")
		return false
	}

	logger.Error().Err(err).Str("from", src).Str("to", dst).Msg("error renaming video file")
	return false
}
