// Package lyrics flattens embedded lyrics into plain display text.
package lyrics

import (
	"regexp"
	"strings"
)

// Regular expressions for line-structured (LRC-style) lyrics.
var (
	// Matches timestamps like [00:12.34] or [00:12:34] or [00:12].
	timestampRe = regexp.MustCompile(`\[(\d+):(\d+)(?:[.:](\d+))?\]`)

	// Matches metadata tags like [ar:Artist Name].
	metadataRe = regexp.MustCompile(`^\[([a-z]+):(.+)\]$`)
)

// Flatten turns embedded lyrics into plain text: LRC-style timestamps and
// metadata tags are stripped, blank lines collapse, and the surviving lines
// are newline-joined. Plain-text input passes through mostly untouched.
func Flatten(raw string) string {
	if raw == "" {
		return ""
	}

	var lines []string
	for _, line := range strings.Split(strings.ReplaceAll(raw, "\r\n", "\n"), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if metadataRe.MatchString(line) && !timestampRe.MatchString(line) {
			continue
		}
		line = strings.TrimSpace(timestampRe.ReplaceAllString(line, ""))
		if line == "" {
			continue
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

// IsLineStructured reports whether the lyrics carry LRC-style timestamps.
func IsLineStructured(raw string) bool {
	return timestampRe.MatchString(raw)
}
