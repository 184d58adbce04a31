package sheet

import (
	"fmt"
	"net/url"
	"strings"
)

// Resolve turns a user-provided sheet reference into a spreadsheet ID.
//
// A reference is either the ID itself, or an http(s) URL that carries the ID
// in its "id" query parameter. Anything else fails with ErrInvalidReference,
// which is fatal to the whole run.
func Resolve(ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", fmt.Errorf("%w: empty reference", ErrInvalidReference)
	}

	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		u, err := url.Parse(ref)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrInvalidReference, err)
		}
		id := u.Query().Get("id")
		if id == "" {
			return "", fmt.Errorf("%w: URL %q has no id parameter", ErrInvalidReference, ref)
		}
		if !validSpreadsheetID(id) {
			return "", fmt.Errorf("%w: id parameter %q contains invalid characters", ErrInvalidReference, id)
		}
		return id, nil
	}

	if !validSpreadsheetID(ref) {
		return "", fmt.Errorf("%w: %q", ErrInvalidReference, ref)
	}
	return ref, nil
}

// validSpreadsheetID reports whether s matches the spreadsheet-ID character
// class (letters, digits, dash, underscore).
func validSpreadsheetID(s string) bool {
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == '-' || r == '_':
		default:
			return false
		}
	}
	return true
}
