package torrentbackend

import "testing"

func TestParseByteRangeSuffix(t *testing.T) {
	start, end, ok := parseByteRange("bytes=-500", 1000)
	if !ok || start != 500 || end != 999 {
		t.Fatalf("got start=%d end=%d ok=%v", start, end, ok)
	}
}

func TestParseByteRangeExplicit(t *testing.T) {
	start, end, ok := parseByteRange("bytes=100-199", 1000)
	if !ok || start != 100 || end != 199 {
		t.Fatalf("got start=%d end=%d ok=%v", start, end, ok)
	}
}

func TestParseByteRangeOpenEnded(t *testing.T) {
	start, end, ok := parseByteRange("bytes=900-", 1000)
	if !ok || start != 900 || end != 999 {
		t.Fatalf("got start=%d end=%d ok=%v", start, end, ok)
	}
}

func TestParseByteRangeRejectsMultiRange(t *testing.T) {
	_, _, ok := parseByteRange("bytes=0-10,20-30", 1000)
	if ok {
		t.Fatalf("expected multi-range request to be rejected")
	}
}

func TestParseByteRangeRejectsOutOfBounds(t *testing.T) {
	_, _, ok := parseByteRange("bytes=2000-3000", 1000)
	if ok {
		t.Fatalf("expected start beyond size to be rejected")
	}
}

func TestParseInfoHashAcceptsValidHex(t *testing.T) {
	_, ok := parseInfoHash("0123456789abcdef0123456789abcdef01234567")
	if !ok {
		t.Fatalf("expected valid 40-char hex to parse")
	}
}

func TestParseInfoHashRejectsWrongLength(t *testing.T) {
	_, ok := parseInfoHash("deadbeef")
	if ok {
		t.Fatalf("expected short id to be rejected")
	}
}

func TestSanitizeMagnetUDPMode(t *testing.T) {
	b := &AnacrolixBackend{trackersMode: "udp"}
	got := b.sanitizeMagnet("magnet:?xt=urn:btih:ABC&tr=udp://a.example&tr=http://b.example")
	if got == "" {
		t.Fatalf("expected non-empty sanitized magnet")
	}
}
