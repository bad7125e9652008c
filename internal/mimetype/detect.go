// Package mimetype detects the media type of an HTTP request record
// in three tiers — path extension, HEAD probe, content sniff — so the
// media proxy can pick a registration strategy before it has fetched
// any bytes.
package mimetype

import (
	"bytes"
	"context"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"

	"nero/pkg/types"
)

func init() {
	// Seed extensions the standard library's OS-dependent mime.types
	// lookup doesn't reliably carry in a minimal container, but that
	// this gateway's domain depends on recognizing.
	extra := map[string]string{
		".torrent": BitTorrentType,
		".mp4":     "video/mp4",
		".m4v":     "video/x-m4v",
		".mkv":     "video/x-matroska",
		".webm":    "video/webm",
		".avi":     "video/x-msvideo",
		".mov":     "video/quicktime",
		".flv":     "video/x-flv",
		".ts":      "video/mp2t",
		".jpg":     "image/jpeg",
		".jpeg":    "image/jpeg",
		".png":     "image/png",
		".webp":    "image/webp",
		".gif":     "image/gif",
	}
	for ext, mt := range extra {
		_ = mime.AddExtensionType(ext, mt)
	}
}

// Detector probes an HTTP request record for its media type using a
// shared HTTP client for the network-dependent tiers.
type Detector struct {
	Client *http.Client
}

// New builds a Detector backed by client. A nil client falls back to
// http.DefaultClient.
func New(client *http.Client) *Detector {
	if client == nil {
		client = http.DefaultClient
	}
	return &Detector{Client: client}
}

// Detect returns the best media type it can determine for req, trying
// path extension, then a HEAD probe, then a content sniff, in that
// order, returning the first tier that succeeds. It returns "" when
// all three tiers fail.
func (d *Detector) Detect(ctx context.Context, req types.HTTPRequestRecord) string {
	if mt := detectFromPath(req); mt != "" {
		return mt
	}
	if mt := d.detectFromHead(ctx, req); mt != "" {
		return mt
	}
	if mt := d.detectFromContent(ctx, req); mt != "" {
		return mt
	}
	return ""
}

// detectFromPath maps the URI path's last dot-segment through the
// standard library's extension table, rejecting anything that isn't a
// bare extension (no slash, not the whole path).
func detectFromPath(req types.HTTPRequestRecord) string {
	u, err := url.Parse(req.URI)
	if err != nil {
		return ""
	}
	path := u.Path

	idx := strings.LastIndexByte(path, '.')
	if idx < 0 {
		return ""
	}
	ext := path[idx:]
	if ext == path || strings.Contains(ext, "/") {
		return ""
	}

	mt := mime.TypeByExtension(ext)
	return stripParams(mt)
}

func (d *Detector) detectFromHead(ctx context.Context, req types.HTTPRequestRecord) string {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodHead, req.URI, nil)
	if err != nil {
		return ""
	}

	resp, err := d.Client.Do(httpReq)
	if err != nil {
		return ""
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return ""
	}

	return stripParams(resp.Header.Get("Content-Type"))
}

func (d *Detector) detectFromContent(ctx context.Context, req types.HTTPRequestRecord) string {
	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URI, body)
	if err != nil {
		return ""
	}
	for name, values := range req.Headers {
		for _, v := range values {
			httpReq.Header.Add(name, v)
		}
	}

	resp, err := d.Client.Do(httpReq)
	if err != nil {
		return ""
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return ""
	}

	chunk := make([]byte, 512)
	n, readErr := io.ReadFull(resp.Body, chunk)
	if n == 0 && readErr != nil {
		return ""
	}

	return stripParams(http.DetectContentType(chunk[:n]))
}

// stripParams drops a "; charset=..." style suffix, and reports "" for
// a blank or unparsable media type.
func stripParams(contentType string) string {
	if contentType == "" {
		return ""
	}
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ""
	}
	return mt
}

// MajorType returns the "type" half of a "type/subtype" media type.
func MajorType(mt string) string {
	if i := strings.IndexByte(mt, '/'); i >= 0 {
		return mt[:i]
	}
	return mt
}

const BitTorrentType = "application/x-bittorrent"
