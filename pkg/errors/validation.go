package errors

import (
	"net/url"
	"slices"
	"strings"
	"unicode"
)

// maxFrameNameLength bounds frame and plugin names.
const maxFrameNameLength = 256

// ValidateFrameName validates a coordinate frame name.
//
// The validation rules are intentionally conservative:
//   - No empty names
//   - No control characters
//   - No leading or trailing whitespace
//   - Maximum length of 256 characters
func ValidateFrameName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidFrame, "frame name cannot be empty")
	}

	if len(name) > maxFrameNameLength {
		return New(ErrCodeInvalidFrame, "frame name too long (max %d characters)", maxFrameNameLength)
	}

	for _, r := range name {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidFrame, "frame name contains invalid control characters")
		}
	}

	if strings.TrimSpace(name) != name {
		return New(ErrCodeInvalidFrame, "frame name %q has surrounding whitespace", name)
	}

	return nil
}

// ValidateOptionalFrameName is like ValidateFrameName but accepts the empty
// string, which means "unset" for plugin data frames and the reference frame.
func ValidateOptionalFrameName(name string) error {
	if name == "" {
		return nil
	}
	return ValidateFrameName(name)
}

// ValidateURL validates a URL string and checks its scheme against allowed.
// An empty allowed list accepts any scheme.
func ValidateURL(rawURL string, allowed ...string) error {
	if rawURL == "" {
		return New(ErrCodeInvalidURL, "URL cannot be empty")
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return Wrap(ErrCodeInvalidURL, err, "invalid URL %q", rawURL)
	}
	if u.Scheme == "" {
		return New(ErrCodeInvalidURL, "URL %q has no scheme", rawURL)
	}
	if len(allowed) > 0 && !slices.Contains(allowed, u.Scheme) {
		return New(ErrCodeInvalidURL, "URL scheme %q not supported (want one of %s)", u.Scheme, strings.Join(allowed, ", "))
	}

	return nil
}
