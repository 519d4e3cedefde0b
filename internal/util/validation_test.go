package util

import (
	"errors"
	"strings"
	"testing"
)

func TestParseUUIDv4(t *testing.T) {
	_, err := ParseUUIDv4("b0c9c2b0-1f3a-4d2d-9e3f-123456789abc")
	if err != nil {
		t.Fatalf("expected success parsing valid uuid: %v", err)
	}

	if _, err := ParseUUIDv4(""); !errors.Is(err, ErrInvalidUUID) {
		t.Fatalf("expected ErrInvalidUUID for empty string, got %v", err)
	}

	if _, err := ParseUUIDv4("6fa459ea-ee8a-11d2-90f6-000000000000"); !errors.Is(err, ErrInvalidUUID) {
		t.Fatalf("expected ErrInvalidUUID for non v4 uuid, got %v", err)
	}
}

func TestNormalizeEmail(t *testing.T) {
	addr, err := NormalizeEmail("User@example.com")
	if err != nil {
		t.Fatalf("expected valid email: %v", err)
	}
	if addr != "user@example.com" {
		t.Fatalf("expected lowercased email, got %q", addr)
	}

	for _, bad := range []string{"User <user@example.com>", "1234567890@", "nobody", "a@localhost", ""} {
		if _, err := NormalizeEmail(bad); !errors.Is(err, ErrInvalidEmail) {
			t.Fatalf("expected ErrInvalidEmail for %q, got %v", bad, err)
		}
	}
}

func TestDigitsOnlyAndDialable(t *testing.T) {
	if got := DigitsOnly("+1 (555) 123-4567"); got != "15551234567" {
		t.Fatalf("unexpected digits %q", got)
	}
	if got := Dialable("+1 (555) 123-4567"); got != "+15551234567" {
		t.Fatalf("unexpected dialable %q", got)
	}
	if got := DigitsOnly("call me"); got != "" {
		t.Fatalf("expected empty result, got %q", got)
	}
}

func TestEnsureMaxBytes(t *testing.T) {
	if err := EnsureMaxBytes("payload", []byte("hello"), 10); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := EnsureMaxBytes("payload", []byte("hello"), 3); err == nil {
		t.Fatalf("expected size error")
	}
}

func TestEnsureMaxRunes(t *testing.T) {
	if err := EnsureMaxRunes("identifier", "héllo", 5); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	err := EnsureMaxRunes("identifier", strings.Repeat("9", 6), 5)
	if err == nil || !strings.Contains(err.Error(), "identifier") {
		t.Fatalf("expected length error naming the field, got %v", err)
	}
}

func TestValidateHTTPURL(t *testing.T) {
	if _, err := ValidateHTTPURL("https://shop.example.com/"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := ValidateHTTPURL("ftp://example.com"); !errors.Is(err, ErrInvalidURL) {
		t.Fatalf("expected ErrInvalidURL for ftp scheme, got %v", err)
	}
	if _, err := ValidateHTTPURL("https://"); !errors.Is(err, ErrInvalidURL) {
		t.Fatalf("expected ErrInvalidURL for missing host, got %v", err)
	}
}
