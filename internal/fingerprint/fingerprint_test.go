package fingerprint

import (
	"net/http"
	"testing"

	"nero/pkg/types"
)

func req(headers http.Header) types.HTTPRequestRecord {
	return types.HTTPRequestRecord{
		Method:  "GET",
		URI:     "https://example.test/p.jpg",
		Headers: headers,
	}
}

func TestRequestCanonicalUnderHeaderReordering(t *testing.T) {
	a := req(http.Header{
		"Referer":    {"https://example.test/"},
		"User-Agent": {"nero/1.0"},
	})
	b := req(http.Header{
		"User-Agent": {"nero/1.0"},
		"Referer":    {"https://example.test/"},
	})

	if Request(a) != Request(b) {
		t.Fatalf("fingerprint changed under header reordering")
	}
}

func TestRequestSensitiveToHeaderValue(t *testing.T) {
	a := req(http.Header{"Referer": {"https://example.test/"}})
	b := req(http.Header{"Referer": {"https://example.test/other"}})

	if Request(a) == Request(b) {
		t.Fatalf("fingerprint did not change when a header value changed")
	}
}

func TestRequestSensitiveToMethodURIAndBody(t *testing.T) {
	base := types.HTTPRequestRecord{Method: "GET", URI: "https://x/a", Body: []byte("one")}
	byMethod := base
	byMethod.Method = "POST"
	byURI := base
	byURI.URI = "https://x/b"
	byBody := base
	byBody.Body = []byte("two")

	baseline := Request(base)
	if Request(byMethod) == baseline {
		t.Fatalf("method change did not affect fingerprint")
	}
	if Request(byURI) == baseline {
		t.Fatalf("URI change did not affect fingerprint")
	}
	if Request(byBody) == baseline {
		t.Fatalf("body change did not affect fingerprint")
	}
}

func TestTorrentSourceDomainSeparation(t *testing.T) {
	httpSrc := types.TorrentSource{HTTP: &types.HTTPRequestRecord{Method: "GET", URI: "https://x/a.torrent"}}
	magnetSrc := types.TorrentSource{Magnet: "magnet:?xt=urn:btih:deadbeef"}

	if TorrentSource(httpSrc) == TorrentSource(magnetSrc) {
		t.Fatalf("expected distinct fingerprints across domains")
	}
}

func TestTorrentSourceStableAcrossCalls(t *testing.T) {
	src := types.TorrentSource{Magnet: "magnet:?xt=urn:btih:deadbeef"}
	if TorrentSource(src) != TorrentSource(src) {
		t.Fatalf("fingerprint not stable across repeated calls")
	}
}
