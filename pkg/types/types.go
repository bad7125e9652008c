// Package types holds the data model shared across the gateway: the
// request/torrent references the extension host and media proxy pass
// around, and the host-facing catalog shapes (series, episode, video)
// the facade returns to the calling application.
package types

import (
	"net/http"
)

// HTTPRequestRecord is an immutable description of an outbound HTTP
// request. It is never executed eagerly — the extension host captures
// it from a guest's outgoing request, and the media proxy replays it
// later, either to fetch the upstream body or to fingerprint it as a
// cache key.
type HTTPRequestRecord struct {
	Method  string
	URI     string
	Headers http.Header
	Body    []byte // nil when the request has no body
}

// Clone returns a deep copy safe to mutate (e.g. stripping hop-by-hop
// headers before replay) without touching the cached original.
func (r HTTPRequestRecord) Clone() HTTPRequestRecord {
	headers := make(http.Header, len(r.Headers))
	for k, v := range r.Headers {
		vv := make([]string, len(v))
		copy(vv, v)
		headers[k] = vv
	}
	var body []byte
	if r.Body != nil {
		body = make([]byte, len(r.Body))
		copy(body, r.Body)
	}
	return HTTPRequestRecord{Method: r.Method, URI: r.URI, Headers: headers, Body: body}
}

// TorrentSource is a tagged reference to a torrent: either an
// HTTPRequestRecord pointing at a .torrent file, or a magnet URI.
// Exactly one of HTTP/Magnet is set.
type TorrentSource struct {
	HTTP   *HTTPRequestRecord
	Magnet string
}

// IsMagnet reports whether this source is a magnet URI rather than an
// HTTP request for a .torrent file.
func (s TorrentSource) IsMagnet() bool { return s.HTTP == nil }

// CachedRequest is what the media proxy's video cache stores
// under a fingerprint: either a plain HTTP request, or a torrent
// source plus the file indices selected for playback.
type CachedRequest struct {
	HTTP        *HTTPRequestRecord
	Torrent     *TorrentSource
	FileIndices []int
}

// IsTorrent reports whether this cached entry is a torrent request.
func (c CachedRequest) IsTorrent() bool { return c.Torrent != nil }

// CurrentVideo is the single active playback session the proxy
// tracks, so that starting a new torrent session can cancel the
// previous one.
type CurrentVideo struct {
	HTTP      *HTTPRequestRecord
	TorrentID string // non-empty when this is a torrent session
}

// IsTorrent reports whether the current video is a torrent session.
func (c CurrentVideo) IsTorrent() bool { return c.TorrentID != "" }

// TorrentFile describes one file inside a torrent, as listed by the
// torrent backend. Index is stable within one backend listing of a
// given source.
type TorrentFile struct {
	Index int
	Name  string // display name (base name)
	Path  string // path relative to the torrent root
}

// AddTorrentOptions restricts which files a torrent backend actually
// downloads when adding a torrent; a nil/empty FileIndices means "all
// files".
type AddTorrentOptions struct {
	FileIndices []int
}

// Torrent is what a torrent backend returns after adding a source: a
// backend-assigned ID plus the files it found.
type Torrent struct {
	ID    string
	Name  string
	Files []TorrentFile
}

// ParsedFilename is the best-effort metadata extracted from a torrent
// file's base name by a filenameparser.Parser.
type ParsedFilename struct {
	Title   string
	Year    string // empty when absent
	Season  string // empty when absent
	Episode string // empty when absent; kept as string per spec (parsed to int on use)
	Kind    string // content kind hint, e.g. "op", "ed", "pv"; empty when absent
}

// HasTitleAndEpisode reports whether this parse result carries enough
// information to participate in episode resolution.
func (p ParsedFilename) HasTitleAndEpisode() bool {
	return p.Title != "" && p.Episode != ""
}

// Page is a paged result envelope, mirroring the guest contract's
// page-of-series / page-of-episodes shape.
type Page[T any] struct {
	Items       []T
	HasNextPage bool
}

// Filter is a single selectable value within a FilterCategory.
type Filter struct {
	ID          string
	DisplayName string
}

// FilterCategory is one facet the guest's filters() operation
// advertises (e.g. "genre", "language").
type FilterCategory struct {
	ID          string
	DisplayName string
	Filters     []Filter
}

// SearchFilter is a caller-selected filter: a filter-category id plus
// the values chosen within it.
type SearchFilter struct {
	ID     string
	Values []string
}

// MediaResource is the guest's reference to remote media: either an
// outbound HTTP request record or a magnet URI. Exactly one is set.
type MediaResource struct {
	HTTPRequest *HTTPRequestRecord
	MagnetURI   string
}

// IsMagnet reports whether this resource is a magnet URI.
func (m MediaResource) IsMagnet() bool { return m.HTTPRequest == nil && m.MagnetURI != "" }

// IsEmpty reports whether no media resource was set at all (used for
// optional poster/thumbnail fields).
func (m MediaResource) IsEmpty() bool { return m.HTTPRequest == nil && m.MagnetURI == "" }

// Series is the guest's series shape before URL rewriting.
type Series struct {
	ID             string
	Title          string
	PosterResource MediaResource // zero value means "no poster"
	Synopsis       string
	Type           string
}

// Episode is the guest's episode shape before URL rewriting.
type Episode struct {
	ID                string
	Number            uint16
	Title             string
	ThumbnailResource MediaResource
	Description       string
}

// Resolution is a (width, height) pixel pair.
type Resolution struct {
	Width, Height uint16
}

// Video is the guest's video shape before URL rewriting.
type Video struct {
	MediaResource MediaResource
	Server        string
	Resolution    Resolution
}

// HostSeries is the facade's rewritten series: PosterURL is a local
// proxy URL, the upstream URI itself when the poster request carries
// no headers, or empty.
type HostSeries struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	PosterURL string `json:"posterUrl,omitempty"`
	Synopsis  string `json:"synopsis,omitempty"`
	Type      string `json:"type,omitempty"`
}

// HostEpisode is the facade's rewritten episode.
type HostEpisode struct {
	ID           string `json:"id"`
	Number       uint16 `json:"number"`
	Title        string `json:"title,omitempty"`
	ThumbnailURL string `json:"thumbnailUrl,omitempty"`
	Description  string `json:"description,omitempty"`
}

// HostVideo is the facade's rewritten video: URL is a local playback
// URL, or the upstream URI itself when the video request carries no
// headers; Server is a human-readable label.
type HostVideo struct {
	URL        string     `json:"url"`
	Server     string     `json:"server"`
	Resolution Resolution `json:"resolution"`
}

// HostFilter and HostFilterCategory are the facade's passthrough
// shapes for filters() (no media resources to rewrite).
type HostFilter struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
}

type HostFilterCategory struct {
	ID          string       `json:"id"`
	DisplayName string       `json:"displayName"`
	Filters     []HostFilter `json:"filters"`
}
