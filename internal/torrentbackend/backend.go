// Package torrentbackend abstracts the torrent client the media proxy
// delegates to for its /torrent routes. The proxy owns a single
// optional Backend; when none is configured, its torrent routes answer
// with a TorrentSupportDisabled error instead of playing the source.
package torrentbackend

import (
	"context"
	"errors"
	"io"

	"nero/pkg/types"
)

// ErrInitializing and ErrMetadata mark stream-request failures the
// caller should retry after a short backoff rather than surface to
// the client — the backend is still fetching metadata or hasn't
// started serving pieces yet.
var (
	ErrInitializing = errors.New("torrentbackend: still initializing")
	ErrMetadata     = errors.New("torrentbackend: waiting for metadata")
)

// ErrNoPlayableFile means a torrent was added but contains no file the
// backend is willing to stream (e.g. no recognized video extension).
var ErrNoPlayableFile = errors.New("torrentbackend: no playable file in torrent")

// StreamRequest carries the caller's raw Range header, if any.
type StreamRequest struct {
	RangeHeader string
}

// StreamResponse is what a backend hands back for one stream request.
// Body must be closed by the caller once the response has been
// written out.
type StreamResponse struct {
	Body          io.ReadCloser
	StatusCode    int // http.StatusOK or http.StatusPartialContent
	ContentType   string
	ContentLength int64
	ContentRange  string // "bytes a-b/size"; empty unless StatusCode is 206
	FileName      string
}

// Backend is the pluggable torrent engine behind the proxy's /torrent
// routes: list a source's files without committing to download it,
// add a source and start downloading (optionally restricted to a
// subset of files), serve byte-range reads of one file, and cancel a
// previously added torrent.
type Backend interface {
	ListFiles(ctx context.Context, source types.TorrentSource) ([]types.TorrentFile, error)
	AddTorrent(ctx context.Context, source types.TorrentSource, opts *types.AddTorrentOptions) (types.Torrent, error)
	HandleStreamRequest(ctx context.Context, torrentID string, fileIndex int, req StreamRequest) (StreamResponse, error)
	CancelTorrent(ctx context.Context, torrentID string) error
}
