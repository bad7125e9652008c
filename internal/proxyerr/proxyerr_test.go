package proxyerr

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestStatusMapping(t *testing.T) {
	cases := []struct {
		err  *Error
		want int
	}{
		{NewNotFound(), http.StatusNotFound},
		{NewUpstreamHTTP(errors.New("boom")), http.StatusBadGateway},
		{NewRemoteServerStatus(503), http.StatusBadGateway},
		{NewTorrentSupportDisabled(), http.StatusBadRequest},
		{NewTorrentBackend(errors.New("boom")), http.StatusInternalServerError},
		{NewInvalidRequestType(), http.StatusBadRequest},
	}
	for _, c := range cases {
		if got := c.err.Status(); got != c.want {
			t.Errorf("%v: got status %d, want %d", c.err.Kind, got, c.want)
		}
	}
}

func TestWriteHTTPUsesKindStatus(t *testing.T) {
	rr := httptest.NewRecorder()
	WriteHTTP(rr, NewTorrentSupportDisabled())
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("got %d, want 400", rr.Code)
	}
}

func TestWriteHTTPFallsBackForUnknownError(t *testing.T) {
	rr := httptest.NewRecorder()
	WriteHTTP(rr, errors.New("plain error"))
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("got %d, want 500", rr.Code)
	}
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := NewUpstreamHTTP(cause)
	if !errors.Is(err, cause) {
		t.Fatalf("expected Unwrap to expose the cause")
	}
}
