package platform

import (
	"net/url"
	"strings"
)

// Validation messages
const (
	ErrMsgEmptyURL      = "URL cannot be empty"
	ErrMsgMissingDomain = "Invalid URL format: missing domain"
	ErrMsgUnsupported   = "Unsupported platform or invalid URL format"
	WarnMsgSchemeAdded  = "Added https:// scheme to URL"
	errMsgInvalidFormat = "Invalid URL format: "
)

// ValidationResult describes whether a URL can be served and how it was read.
// Every field is always populated.
type ValidationResult struct {
	IsValid      bool              `json:"is_valid"`
	Platform     string            `json:"platform,omitempty"`
	ContentID    *string           `json:"content_id"`
	CanonicalURL string            `json:"canonical_url,omitempty"`
	OriginalURL  string            `json:"original_url"`
	Metadata     map[string]string `json:"metadata"`
	Error        string            `json:"error,omitempty"`
	Warnings     []string          `json:"warnings"`
}

// Validate checks a raw URL and classifies it. It never panics on malformed
// input.
func Validate(raw string) ValidationResult {
	result := ValidationResult{
		OriginalURL: raw,
		Metadata:    map[string]string{},
		Warnings:    []string{},
	}

	candidate := strings.TrimSpace(raw)
	if candidate == "" {
		result.Error = ErrMsgEmptyURL
		return result
	}

	if !HasScheme(candidate) {
		candidate = DefaultScheme + candidate
		result.Warnings = append(result.Warnings, WarnMsgSchemeAdded)
	}

	parsed, err := url.Parse(candidate)
	if err != nil {
		result.Error = errMsgInvalidFormat + err.Error()
		return result
	}
	if parsed.Host == "" {
		result.Error = ErrMsgMissingDomain
		return result
	}

	info, ok := Extract(candidate)
	if !ok {
		result.Error = ErrMsgUnsupported
		return result
	}

	result.IsValid = true
	result.Platform = info.Name
	result.ContentID = info.ContentID
	result.CanonicalURL = info.CanonicalURL
	for k, v := range info.Metadata {
		result.Metadata[k] = v
	}
	return result
}
