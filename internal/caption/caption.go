// Package caption generates and normalizes postcard captions
package caption

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/DMarby/postcard-poodle/internal/filter"
)

const (
	// MaxLength is the maximum caption length in characters
	MaxLength = 60
	// Ellipsis marks a truncated caption
	Ellipsis = "..."
	// Fallback is used when a provider returns an empty caption
	Fallback = "Wish you were here! 🐾"
)

// Provider generates a caption for a filter
type Provider interface {
	Generate(ctx context.Context, kind filter.Kind) (string, error)
}

// Errors
var (
	ErrMissingCredential = errors.New("caption provider API key is not configured")
)

// ProviderError is returned when the text generation request fails
type ProviderError struct {
	Err error
}

func (e *ProviderError) Error() string {
	return e.Err.Error()
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// Normalize trims a generated caption, substitutes the fallback for empty text,
// and truncates it to MaxLength characters
func Normalize(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return Fallback
	}

	return Clamp(text)
}

// Clamp truncates text longer than MaxLength characters, ending it with an ellipsis
func Clamp(text string) string {
	if utf8.RuneCountInString(text) <= MaxLength {
		return text
	}

	runes := []rune(text)
	return string(runes[:MaxLength-utf8.RuneCountInString(Ellipsis)]) + Ellipsis
}
