// Package fingerprint computes stable 64-bit identifiers for HTTP
// request records and torrent sources, used as cache keys by the
// media proxy. The fingerprint is canonical with respect to header
// ordering and is not a security token — collisions are acceptable,
// they just make two distinct requests indistinguishable as cache
// entries.
package fingerprint

import (
	"sort"
	"strings"

	"github.com/cespare/xxhash/v2"

	"nero/pkg/types"
)

// Request folds a request's URI, method, sorted (lowercased name,
// value) header pairs, and body into a single 64-bit hash. Two
// requests differing only in header insertion order hash identically.
func Request(r types.HTTPRequestRecord) uint64 {
	d := xxhash.New()

	writeString(d, r.URI)
	writeString(d, r.Method)

	for _, pair := range sortedHeaders(r.Headers) {
		writeString(d, pair.name)
		writeString(d, pair.value)
	}

	if r.Body != nil {
		_, _ = d.Write(r.Body)
	}

	return d.Sum64()
}

type headerPair struct{ name, value string }

// sortedHeaders flattens a header multimap into (lowercase name,
// value) pairs sorted lexicographically by name, and by value among
// pairs with the same name, so the order does not depend on map
// iteration.
func sortedHeaders(h map[string][]string) []headerPair {
	pairs := make([]headerPair, 0, len(h))
	for name, values := range h {
		lower := strings.ToLower(name)
		for _, v := range values {
			pairs = append(pairs, headerPair{lower, v})
		}
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].name != pairs[j].name {
			return pairs[i].name < pairs[j].name
		}
		return pairs[i].value < pairs[j].value
	})
	return pairs
}

// domain tags for TorrentSource, per spec section 4.1.
const (
	domainHTTP   = 0
	domainMagnet = 1
)

// TorrentSource folds a domain byte (0 for HTTP, 1 for magnet) and
// either the inner request's fingerprint or the magnet string.
func TorrentSource(s types.TorrentSource) uint64 {
	d := xxhash.New()

	if s.IsMagnet() {
		_, _ = d.Write([]byte{domainMagnet})
		writeString(d, s.Magnet)
		return d.Sum64()
	}

	_, _ = d.Write([]byte{domainHTTP})
	writeUint64(d, Request(*s.HTTP))
	return d.Sum64()
}

func writeString(d *xxhash.Digest, s string) {
	_, _ = d.Write([]byte(s))
	_, _ = d.Write([]byte{0}) // separator so ("ab","c") != ("a","bc")
}

func writeUint64(d *xxhash.Digest, v uint64) {
	var buf [8]byte
	for i := range buf {
		buf[i] = byte(v >> (8 * i))
	}
	_, _ = d.Write(buf[:])
}
