// Package utils provides utility functions for filename sanitization and UUID generation.
//
// Functions:
//   - SanitizeFilename: Returns a safe filename for storage.
//     Input: string (filename)
//     Output: string (sanitized filename)
//   - GenerateUUID: Returns a new UUID string.
//     Output: string (UUID)
//   - Stem, DownloadName: Derive user-facing names from a source name.
//   - OriginAllowed: Matches a request origin against CORS origin patterns.
//
// Used throughout the backend for safe file handling and unique IDs.
package utils

import (
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9._-]`)

func SanitizeFilename(name string) string {
	base := filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	safe := unsafeChars.ReplaceAllString(base, "_")
	safe = strings.TrimLeft(safe, ".")
	if safe == "" {
		safe = "file"
	}
	if len(safe) > 100 {
		safe = safe[:100]
	}
	return safe
}

func GenerateUUID() string {
	return uuid.New().String()
}

// Stem returns the sanitized source name without its extension, or
// "document" when nothing usable is left.
func Stem(source string) string {
	stem := strings.TrimSuffix(SanitizeFilename(source), filepath.Ext(source))
	if stem == "" || stem == "file" {
		return "document"
	}
	return stem
}

// DownloadName returns "<source stem>-<suffix><ext>", e.g. report-rotated.pdf.
func DownloadName(source, suffix, ext string) string {
	return Stem(source) + "-" + suffix + ext
}

// OriginAllowed reports whether origin matches one of the patterns, using the
// same rules as the CORS middleware: "*" allows everything and a pattern may
// hold one wildcard, as in "https://*.example.com". Matching ignores case.
func OriginAllowed(origin string, patterns []string) bool {
	origin = strings.ToLower(origin)
	for _, p := range patterns {
		p = strings.ToLower(p)
		if p == "*" || p == origin {
			return true
		}
		prefix, suffix, ok := strings.Cut(p, "*")
		if ok && len(origin) >= len(prefix)+len(suffix) &&
			strings.HasPrefix(origin, prefix) && strings.HasSuffix(origin, suffix) {
			return true
		}
	}
	return false
}
