package mimetype

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"nero/pkg/types"
)

func TestDetectFromPathExtension(t *testing.T) {
	d := New(nil)
	req := types.HTTPRequestRecord{Method: "GET", URI: "https://example.test/cover.jpg"}

	got := d.Detect(context.Background(), req)
	if got != "image/jpeg" {
		t.Fatalf("got %q, want image/jpeg", got)
	}
}

func TestDetectRejectsNonExtensionPath(t *testing.T) {
	d := New(nil)
	// "path" has no dot at all and no trailing server for the HEAD/content
	// tiers to succeed against, so overall detection should fail cleanly.
	req := types.HTTPRequestRecord{Method: "GET", URI: "https://example.test/no-extension-here"}

	got := d.Detect(context.Background(), req)
	if got != "" {
		t.Fatalf("expected no detection, got %q", got)
	}
}

func TestDetectFallsBackToHeadContentType(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.Header().Set("Content-Type", "video/mp4")
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	d := New(srv.Client())
	req := types.HTTPRequestRecord{Method: "GET", URI: srv.URL + "/stream"}

	got := d.Detect(context.Background(), req)
	if got != "video/mp4" {
		t.Fatalf("got %q, want video/mp4", got)
	}
}

func TestDetectFallsBackToContentSniff(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusOK) // no Content-Type header
			return
		}
		w.Write([]byte("<html><body>hi</body></html>"))
	}))
	defer srv.Close()

	d := New(srv.Client())
	req := types.HTTPRequestRecord{Method: "GET", URI: srv.URL + "/resource"}

	got := d.Detect(context.Background(), req)
	if got != "text/html" {
		t.Fatalf("got %q, want text/html", got)
	}
}

func TestMajorType(t *testing.T) {
	if MajorType("video/mp4") != "video" {
		t.Fatalf("expected video")
	}
	if MajorType("application/x-bittorrent") != "application" {
		t.Fatalf("expected application")
	}
}
