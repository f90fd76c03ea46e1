// Package storage uploads generated files and fetches them back by URL.
package storage

import (
	"context"
	"errors"
	"strings"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"
)

// Common errors
var (
	ErrNotFound       = errors.New("object not found")
	ErrUnsupportedURL = errors.New("unsupported object URL")
	ErrTooLarge       = errors.New("object too large")
)

// Content types used by the service.
const (
	ContentTypePDF = "application/pdf"
	ContentTypePNG = "image/png"
)

const maxFileNameLength = 100

// ObjectStore stores a named object and returns a URL it can be read from.
type ObjectStore interface {
	Upload(ctx context.Context, filename string, data []byte, contentType string) (string, error)
}

// Fetcher reads an object by URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Resolver is a store that can read back the URLs it produced.
type Resolver interface {
	Fetcher
	Owns(url string) bool
}

// SanitizeFileName folds name to lowercase ASCII: accents are dropped,
// other characters outside [a-z0-9._-] become '_'.
func SanitizeFileName(name string) string {
	var b strings.Builder
	for _, r := range norm.NFKD.String(name) {
		switch {
		case unicode.Is(unicode.Mn, r):
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r) || r == '.' || r == '_' || r == '-'):
			b.WriteRune(unicode.ToLower(r))
		default:
			b.WriteByte('_')
		}
	}
	s := b.String()
	if len(s) > maxFileNameLength {
		s = s[:maxFileNameLength]
	}
	if s == "" {
		s = "file"
	}
	return s
}

// ObjectName returns a unique object name for filename.
func ObjectName(filename string) string {
	return uuid.NewString() + "_" + SanitizeFileName(filename)
}
