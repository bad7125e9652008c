package hopheaders

import (
	"net/http"
	"testing"
)

func TestStripRemovesStandardHopByHop(t *testing.T) {
	h := http.Header{}
	h.Set("Connection", "close")
	h.Set("Keep-Alive", "timeout=5")
	h.Set("Content-Type", "video/mp4")

	Strip(h)

	if h.Get("Connection") != "" || h.Get("Keep-Alive") != "" {
		t.Fatalf("expected hop-by-hop headers removed, got %v", h)
	}
	if h.Get("Content-Type") != "video/mp4" {
		t.Fatalf("expected end-to-end header preserved, got %v", h)
	}
}

func TestStripRemovesHeadersNamedByConnectionToken(t *testing.T) {
	h := http.Header{}
	h.Set("Connection", "X-Custom-Token")
	h.Set("X-Custom-Token", "secret")

	Strip(h)

	if h.Get("X-Custom-Token") != "" {
		t.Fatalf("expected header named by Connection token to be removed")
	}
}
