package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsValidEmail(t *testing.T) {
	tests := []struct {
		name  string
		email string
		want  bool
	}{
		{"plain address", "a@b.co", true},
		{"trimmed before matching", "  user@example.com  ", true},
		{"subdomain", "user@mail.example.com", true},
		{"missing at", "userexample.com", false},
		{"missing tld dot", "user@example", false},
		{"inner whitespace", "us er@example.com", false},
		{"empty", "", false},
		{"only whitespace", "   ", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsValidEmail(tt.email))
		})
	}
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "user@example.com", NormalizeEmail("  User@Example.COM "))
}

func TestIsValidStoreURL(t *testing.T) {
	assert.True(t, IsValidStoreURL("example.com"))
	assert.True(t, IsValidStoreURL("foo.myshopify.com"))
	assert.True(t, IsValidStoreURL("myshopify-handle"))
	assert.False(t, IsValidStoreURL(""))
	assert.False(t, IsValidStoreURL("   "))
	assert.False(t, IsValidStoreURL("plainword"))
}

func TestNormalizeStoreURL(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"strips https scheme", "https://example.com", "example.com"},
		{"strips http scheme", "http://example.com", "example.com"},
		{"trailing slashes", "example.com///", "example.com"},
		{"lower-cases", "HTTPS://Foo.MyShopify.com/", "foo.myshopify.com"},
		{"already normalized", "foo.myshopify.com", "foo.myshopify.com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeStoreURL(tt.raw)
			assert.Equal(t, tt.want, got)
			// Normalization is idempotent.
			assert.Equal(t, got, NormalizeStoreURL(got))
		})
	}
}
