// Package jsonscan extracts JSON literals from free-form model output.
//
// Completion services are asked to return pure JSON but routinely wrap it in
// prose or markdown fences. The scanners here locate the first balanced
// top-level array or object in the raw text so callers can unmarshal just
// that slice and keep a deterministic fallback for everything else.
package jsonscan

import (
	"errors"
	"strings"
)

// ErrNotFound is returned when the raw text contains no balanced literal of
// the requested kind.
var ErrNotFound = errors.New("jsonscan: no JSON literal found")

// FirstArray returns the first balanced top-level JSON array in raw.
func FirstArray(raw string) (string, error) {
	return first(raw, '[', ']')
}

// FirstObject returns the first balanced top-level JSON object in raw.
func FirstObject(raw string) (string, error) {
	return first(raw, '{', '}')
}

// first scans for the first balanced open..end span, tracking string
// literals so that brackets inside quoted values do not affect nesting.
func first(raw string, open, end byte) (string, error) {
	start := strings.IndexByte(raw, open)
	if start < 0 {
		return "", ErrNotFound
	}

	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(raw); i++ {
		c := raw[i]

		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			inString = true
		case open:
			depth++
		case end:
			depth--
			if depth == 0 {
				return raw[start : i+1], nil
			}
		}
	}

	return "", ErrNotFound
}
