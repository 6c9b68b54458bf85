// ABOUTME: Store interface and data types for the logo registry
// ABOUTME: Defines Logo, the LogoStore interface and filename/URL helpers

package store

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"regexp"
	"time"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// ErrInvalidURL is returned when a logo URL is not an absolute http(s) URL
var ErrInvalidURL = errors.New("invalid logo URL")

// DefaultLogoFilename is used when neither a name nor a URL path segment is available
const DefaultLogoFilename = "logo"

// Logo is a named logo URL
type Logo struct {
	Filename string    `json:"filename"`
	URL      string    `json:"url"`
	AddedAt  time.Time `json:"addedAt"`
}

// LogoStore persists the logo registry and the currently selected logo.
type LogoStore interface {
	// StoreLogo adds or replaces a logo. The filename comes from name when
	// given, else from the last segment of the URL path.
	StoreLogo(ctx context.Context, rawURL, name string) (*Logo, error)
	ListLogos(ctx context.Context) ([]*Logo, error)
	GetLogo(ctx context.Context, filename string) (*Logo, error)
	// DeleteLogo removes a logo and clears the current logo if it pointed at it.
	DeleteLogo(ctx context.Context, filename string) error
	SetCurrentLogo(ctx context.Context, rawURL string) error
	// CurrentLogo returns ErrNotFound when no logo is selected.
	CurrentLogo(ctx context.Context) (string, error)
	Ping(ctx context.Context) error
	Close() error
}

var unsafeFilenameChars = regexp.MustCompile(`[^a-zA-Z0-9._-]`)

// SanitizeFilename strips everything outside [a-zA-Z0-9._-].
func SanitizeFilename(name string) string {
	return unsafeFilenameChars.ReplaceAllString(name, "")
}

// ValidateLogoURL checks that rawURL is an absolute http or https URL.
func ValidateLogoURL(rawURL string) (*url.URL, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidURL, rawURL)
	}
	return u, nil
}

// LogoFilename derives the registry key for a logo.
func LogoFilename(rawURL, name string) (string, error) {
	u, err := ValidateLogoURL(rawURL)
	if err != nil {
		return "", err
	}

	if filename := SanitizeFilename(name); filename != "" {
		return filename, nil
	}
	base := path.Base(u.Path)
	if base == "/" || base == "." {
		return DefaultLogoFilename, nil
	}
	if filename := SanitizeFilename(base); filename != "" {
		return filename, nil
	}
	return DefaultLogoFilename, nil
}
