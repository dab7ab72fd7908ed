package util

import (
	"regexp"
	"strings"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// IsValidEmail reports whether the address matches the accepted shape after
// trimming surrounding whitespace.
func IsValidEmail(email string) bool {
	return emailPattern.MatchString(strings.TrimSpace(email))
}

// NormalizeEmail trims and lower-cases an address for storage and comparison.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// IsValidStoreURL accepts anything that looks like a domain or a Shopify
// store handle: non-empty and containing either a dot or "myshopify".
func IsValidStoreURL(raw string) bool {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return false
	}
	lowered := strings.ToLower(trimmed)
	return strings.Contains(lowered, ".") || strings.Contains(lowered, "myshopify")
}

// NormalizeStoreURL strips a leading http/https scheme and trailing slashes,
// then lower-cases the result. Idempotent: normalizing an already-normalized
// URL returns it unchanged.
func NormalizeStoreURL(raw string) string {
	url := strings.TrimSpace(raw)
	lowered := strings.ToLower(url)
	if strings.HasPrefix(lowered, "https://") {
		url = url[len("https://"):]
	} else if strings.HasPrefix(lowered, "http://") {
		url = url[len("http://"):]
	}
	url = strings.TrimRight(url, "/")
	return strings.ToLower(url)
}
