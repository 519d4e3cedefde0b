package common

import "testing"

func TestTruncateRaw(t *testing.T) {
	if got := TruncateRaw("héllo world", 5); got != "héllo" {
		t.Fatalf("expected rune-aware truncation, got %q", got)
	}
	if got := TruncateRaw("short", 10); got != "short" {
		t.Fatalf("expected untouched string, got %q", got)
	}
	if got := TruncateRaw("anything", 0); got != "" {
		t.Fatalf("expected empty string for zero limit, got %q", got)
	}
}

func TestProviderResponseHTTPStatus(t *testing.T) {
	var nilResp *ProviderResponse
	if nilResp.HTTPStatus() != 0 {
		t.Fatalf("expected zero status for nil response")
	}
	code := 401
	resp := &ProviderResponse{Code: &code}
	if resp.HTTPStatus() != 401 {
		t.Fatalf("expected 401, got %d", resp.HTTPStatus())
	}
}
