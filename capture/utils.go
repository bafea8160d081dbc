package capture

import (
	"regexp"
	"strings"
)

var illegalFilenameChars = regexp.MustCompile(`[\\/:*?"<>|]`)

// sanitizeFilename replaces characters that are illegal in file names
func sanitizeFilename(filename string) string {
	sanitized := illegalFilenameChars.ReplaceAllString(filename, "_")
	sanitized = strings.ReplaceAll(sanitized, " ", "_")

	// Limit length to avoid issues with long filenames
	if len(sanitized) > 100 {
		sanitized = sanitized[:100]
	}

	return sanitized
}
