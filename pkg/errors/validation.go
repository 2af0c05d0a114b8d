package errors

import (
	"math"
	"strings"
	"unicode"
)

// ValidateLayerName validates a layer name.
//
// Layer names appear in logs, cache keys and API responses, so they must be
// short printable strings:
//   - No empty names
//   - No control characters
//   - Maximum length of 128 characters
func ValidateLayerName(name string) error {
	if strings.TrimSpace(name) == "" {
		return New(ErrCodeInvalidLayer, "layer name cannot be empty")
	}

	if len(name) > 128 {
		return New(ErrCodeInvalidLayer, "layer name too long (max 128 characters)")
	}

	for _, r := range name {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidLayer, "layer name contains invalid control characters")
		}
	}

	return nil
}

// ValidateSource validates where a layer is read from: an http(s) URL or a
// local file path.
func ValidateSource(src string) error {
	if src == "" {
		return New(ErrCodeInvalidLayer, "layer source cannot be empty")
	}
	if IsRemote(src) {
		return ValidateURL(src)
	}
	return ValidatePath(src)
}

// IsRemote reports whether src names an http(s) resource.
func IsRemote(src string) bool {
	return strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://")
}

// ValidatePath validates a local file path.
//
// Validation rules:
//   - Path cannot be empty
//   - Maximum length of 500 characters
//   - No null bytes or control characters
func ValidatePath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidPath, "path cannot be empty")
	}

	const maxPathLength = 500
	if len(path) > maxPathLength {
		return New(ErrCodeInvalidPath, "path too long (max %d characters)", maxPathLength)
	}

	for _, r := range path {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "path contains invalid characters")
		}
	}

	return nil
}

// ValidateURL validates a URL string for safety.
// It ensures the URL has a safe scheme (http or https).
func ValidateURL(rawURL string) error {
	if rawURL == "" {
		return New(ErrCodeInvalidInput, "URL cannot be empty")
	}

	// Simple scheme validation without full URL parsing
	if !IsRemote(rawURL) {
		return New(ErrCodeInvalidInput, "URL must use http or https scheme")
	}

	return nil
}

// ValidatePriority validates a label priority. Priorities run from 0 (most
// important) to 1; negative values select the layer default.
func ValidatePriority(p float64) error {
	if math.IsNaN(p) || p > 1 {
		return New(ErrCodeInvalidInput, "priority must be in [0,1] or negative, got %v", p)
	}
	return nil
}

// ValidateExtent validates a map extent given as min and max corners.
func ValidateExtent(minX, minY, maxX, maxY float64) error {
	for _, v := range []float64{minX, minY, maxX, maxY} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return New(ErrCodeInvalidInput, "extent must be finite")
		}
	}
	if maxX <= minX || maxY <= minY {
		return New(ErrCodeInvalidInput, "extent is empty: [%v %v %v %v]", minX, minY, maxX, maxY)
	}
	return nil
}
