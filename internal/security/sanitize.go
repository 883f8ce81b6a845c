package security

import (
	"html"
	"regexp"
	"strings"
)

// InputKind selects the normalisation applied by SanitizeInput.
type InputKind string

const (
	KindText         InputKind = "text"
	KindEmail        InputKind = "email"
	KindPhone        InputKind = "phone"
	KindNumber       InputKind = "number"
	KindAlphanumeric InputKind = "alphanumeric"
)

var (
	controlChars     = regexp.MustCompile(`[\x00-\x1F\x7F]`)
	nonPhoneChars    = regexp.MustCompile(`[^\d\s\-+()]`)
	nonNumberChars   = regexp.MustCompile(`[^\d.,\-]`)
	nonAlphanumChars = regexp.MustCompile(`[^a-zA-Z0-9\s]`)
)

// SanitizeHTML escapes markup so the result is inert both as text content and
// as a quoted attribute value.
func SanitizeHTML(s string) string {
	if s == "" {
		return ""
	}
	return html.EscapeString(s)
}

// SanitizeValue escapes every string reachable from v, keys included, and
// keeps the shape of maps and slices. Other scalars are returned unchanged.
func SanitizeValue(v any) any {
	switch val := v.(type) {
	case nil:
		return nil
	case string:
		return SanitizeHTML(val)
	case []string:
		out := make([]string, len(val))
		for i, item := range val {
			out[i] = SanitizeHTML(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = SanitizeValue(item)
		}
		return out
	case map[string]string:
		out := make(map[string]string, len(val))
		for k, item := range val {
			out[SanitizeHTML(k)] = SanitizeHTML(item)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[SanitizeHTML(k)] = SanitizeValue(item)
		}
		return out
	default:
		return v
	}
}

// SanitizeInput trims user input, strips control characters and applies the
// kind-specific filter.
func SanitizeInput(input string, kind InputKind) string {
	if input == "" {
		return ""
	}

	sanitized := strings.TrimSpace(input)
	sanitized = controlChars.ReplaceAllString(sanitized, "")

	switch kind {
	case KindEmail:
		return strings.ToLower(sanitized)
	case KindPhone:
		return nonPhoneChars.ReplaceAllString(sanitized, "")
	case KindNumber:
		return nonNumberChars.ReplaceAllString(sanitized, "")
	case KindAlphanumeric:
		return nonAlphanumChars.ReplaceAllString(sanitized, "")
	default:
		return SanitizeHTML(sanitized)
	}
}
