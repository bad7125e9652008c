package wasmhost

import (
	"strconv"
	"testing"

	"github.com/Masterminds/semver/v3"

	"nero/pkg/types"
)

func TestSelectBindingPicksHighestApplicable(t *testing.T) {
	b, err := selectBinding(semver.MustParse("0.1.0-draft"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := b.protocol.(v0_1_0draftProtocol); !ok {
		t.Fatalf("expected v0_1_0draftProtocol binding")
	}
}

func TestSelectBindingRejectsTooOld(t *testing.T) {
	_, err := selectBinding(semver.MustParse("0.0.9"))
	if err == nil {
		t.Fatalf("expected an error for a version below every known minimum")
	}
}

func TestDecodeResultUnwrapsOk(t *testing.T) {
	payload, err := decodeResult([]byte(`{"ok":{"a":1}}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(payload) != `{"a":1}` {
		t.Fatalf("got %s", payload)
	}
}

func TestDecodeResultSurfacesErr(t *testing.T) {
	_, err := decodeResult([]byte(`{"err":"series not found"}`))
	if err == nil {
		t.Fatalf("expected an error")
	}
}

func TestResolveMediaResourceMagnet(t *testing.T) {
	call := &guestCall{captured: map[uint64]types.HTTPRequestRecord{}}
	got, err := call.resolveMediaResource(wireMediaResource{MagnetURI: "magnet:?xt=urn:btih:ABC"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.IsMagnet() {
		t.Fatalf("expected a magnet resource")
	}
}

func TestResolveMediaResourceHTTPRef(t *testing.T) {
	call := &guestCall{captured: map[uint64]types.HTTPRequestRecord{}}
	ref := call.addCaptured(types.HTTPRequestRecord{Method: "GET", URI: "https://example.test/cover.jpg"})

	got, err := call.resolveMediaResource(wireMediaResource{HTTPRequestRef: strconv.FormatUint(ref, 10)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.IsMagnet() || got.IsEmpty() {
		t.Fatalf("expected a resolved HTTP request resource, got %+v", got)
	}
	if got.HTTPRequest.URI != "https://example.test/cover.jpg" {
		t.Fatalf("unexpected resolved URI: %s", got.HTTPRequest.URI)
	}
}

func TestResolveMediaResourceDanglingRef(t *testing.T) {
	call := &guestCall{captured: map[uint64]types.HTTPRequestRecord{}}
	_, err := call.resolveMediaResource(wireMediaResource{HTTPRequestRef: "999"})
	if err == nil {
		t.Fatalf("expected an error for a ref with no captured request")
	}
}

func TestResolveMediaResourceEmpty(t *testing.T) {
	call := &guestCall{captured: map[uint64]types.HTTPRequestRecord{}}
	got, err := call.resolveMediaResource(wireMediaResource{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.IsEmpty() {
		t.Fatalf("expected an empty resource")
	}
}
