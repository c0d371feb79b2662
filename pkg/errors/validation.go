package errors

import (
	"math"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

// ValidateCollapseDepth validates the initial auto-collapse depth.
func ValidateCollapseDepth(depth int) error {
	if depth < 0 {
		return New(ErrCodeInvalidOptions, "collapse depth must be >= 0, got %d", depth)
	}
	return nil
}

// ValidateDuration validates a transition duration.
func ValidateDuration(d time.Duration) error {
	if d <= 0 {
		return New(ErrCodeInvalidOptions, "transition duration must be > 0, got %s", d)
	}
	return nil
}

// ValidateScaleRange validates a zoom scale range.
//
// The rules follow the zoom behaviour of the viewer:
//   - Both bounds are finite
//   - 0 < min < 1, so the diagram can always be shrunk
//   - max >= 1, so the unzoomed view is reachable
func ValidateScaleRange(min, max float64) error {
	if math.IsNaN(min) || math.IsNaN(max) || math.IsInf(min, 0) || math.IsInf(max, 0) {
		return New(ErrCodeInvalidOptions, "zoom scale range must be finite")
	}
	if min <= 0 || min >= 1 {
		return New(ErrCodeInvalidOptions, "zoom scale minimum must be in (0, 1), got %g", min)
	}
	if max < 1 {
		return New(ErrCodeInvalidOptions, "zoom scale maximum must be >= 1, got %g", max)
	}
	return nil
}

// ValidateSize reports an EMPTY_VIEWPORT error when a container has no
// drawable area.
func ValidateSize(width, height float64) error {
	if math.IsNaN(width) || math.IsNaN(height) || width <= 0 || height <= 0 {
		return New(ErrCodeEmptyViewport, "container has no drawable area (%gx%g)", width, height)
	}
	return nil
}

// ValidateText validates display text such as labels and tooltip details.
// Text must be valid UTF-8 without control characters other than newline
// and tab.
func ValidateText(s string) error {
	if !utf8.ValidString(s) {
		return New(ErrCodeInvalidInput, "text is not valid UTF-8")
	}
	for _, r := range s {
		if r == '\n' || r == '\t' {
			continue
		}
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "text contains control character %U", r)
		}
	}
	return nil
}

// ValidateHref validates a node link target before it is emitted into
// generated markup. Relative references and http(s) URLs are accepted;
// other schemes such as javascript: are rejected.
func ValidateHref(href string) error {
	if href == "" {
		return New(ErrCodeInvalidInput, "href cannot be empty")
	}
	for _, r := range href {
		if unicode.IsControl(r) || unicode.IsSpace(r) {
			return New(ErrCodeInvalidInput, "href contains invalid characters")
		}
	}
	lower := strings.ToLower(href)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return nil
	}
	if i := strings.IndexAny(lower, ":/?#"); i >= 0 && lower[i] == ':' {
		return New(ErrCodeInvalidInput, "href scheme not allowed: %q", href[:i])
	}
	return nil
}
