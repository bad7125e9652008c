// Package proxy implements the media proxy server: it caches the
// HTTP requests and torrent sources an extension's media references
// resolve to, and serves them back as plain local playback URLs,
// following the same cache-then-redirect shape as the teacher's
// register/stream split in internal/httpapi, generalized from
// torrent-only streaming to the three request kinds this gateway
// proxies (image, video, torrent).
package proxy

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"nero/internal/cache"
	"nero/internal/fingerprint"
	"nero/internal/mimetype"
	"nero/internal/torrentbackend"
	"nero/pkg/types"
)

// ErrUseTorrent is returned by RegisterVideoRequest when MIME
// detection reports the request is actually a .torrent file; callers
// must register it via RegisterTorrent instead.
var ErrUseTorrent = errors.New("proxy: use RegisterTorrent instead")

// Server is the media proxy's shared state: one per gateway process.
type Server struct {
	addr   string // host:port this server is reachable at, for URLs it hands back
	client *http.Client
	mime   *mimetype.Detector

	images *cache.Cache[types.HTTPRequestRecord]
	videos *cache.Cache[types.CachedRequest]

	backendMu sync.RWMutex
	backend   torrentbackend.Backend

	currentMu sync.RWMutex
	current   *types.CurrentVideo
}

// Config bundles Server's tunables.
type Config struct {
	Addr               string
	Client             *http.Client
	ImageCacheTTL      time.Duration
	ImageCacheCapacity int
	VideoCacheTTL      time.Duration
	VideoCacheCapacity int
}

// New builds a Server. Addr is the host:port this gateway listens on,
// used to build the absolute URLs registration returns.
func New(cfg Config) *Server {
	client := cfg.Client
	if client == nil {
		client = http.DefaultClient
	}
	return &Server{
		addr:   cfg.Addr,
		client: client,
		mime:   mimetype.New(client),
		images: cache.New[types.HTTPRequestRecord](cfg.ImageCacheTTL, cfg.ImageCacheCapacity),
		videos: cache.New[types.CachedRequest](cfg.VideoCacheTTL, cfg.VideoCacheCapacity),
	}
}

// SetTorrentBackend installs (or replaces) the torrent backend the
// proxy's /torrent routes delegate to.
func (s *Server) SetTorrentBackend(b torrentbackend.Backend) {
	s.backendMu.Lock()
	s.backend = b
	s.backendMu.Unlock()
}

// TorrentBackend returns the currently installed backend, or nil if
// torrent support is disabled.
func (s *Server) TorrentBackend() torrentbackend.Backend {
	s.backendMu.RLock()
	defer s.backendMu.RUnlock()
	return s.backend
}

// CurrentTorrentID returns the torrent id of the active playback
// session, if any, so the janitor can avoid evicting it.
func (s *Server) CurrentTorrentID() (id string, ok bool) {
	s.currentMu.RLock()
	defer s.currentMu.RUnlock()
	if s.current == nil || !s.current.IsTorrent() {
		return "", false
	}
	return s.current.TorrentID, true
}

// RegisterImageRequest implements the registration-side API's
// no-header shortcut, MIME rejection, and fingerprint-keyed caching.
func (s *Server) RegisterImageRequest(ctx context.Context, req types.HTTPRequestRecord) (string, error) {
	if len(req.Headers) == 0 {
		return req.URI, nil
	}

	if mt := s.mime.Detect(ctx, req); mt == mimetype.BitTorrentType {
		return "", fmt.Errorf("proxy: images cannot be torrents")
	}

	h := fingerprint.Request(req)
	s.images.Insert(key(h), req)
	return s.url("image", h), nil
}

// RegisterVideoRequest implements the registration-side API for plain
// (non-torrent) video requests. Callers whose MIME detection reports
// a torrent must call RegisterTorrent instead; this method reports
// that with ErrUseTorrent rather than attempting it itself.
func (s *Server) RegisterVideoRequest(ctx context.Context, req types.HTTPRequestRecord) (string, error) {
	if len(req.Headers) == 0 {
		return req.URI, nil
	}

	mt := s.mime.Detect(ctx, req)
	switch {
	case mimetype.MajorType(mt) == "video":
		h := fingerprint.Request(req)
		s.videos.Insert(key(h), types.CachedRequest{HTTP: &req})
		return s.url("video", h), nil
	case mt == mimetype.BitTorrentType:
		return "", ErrUseTorrent
	default:
		return "", fmt.Errorf("proxy: unsupported media type %q", mt)
	}
}

// RegisterTorrent inserts a torrent source and its selected file
// indices into the video cache, returning the /torrent/{h} URL that
// will later materialize the session's M3U playlist.
func (s *Server) RegisterTorrent(source types.TorrentSource, fileIndices []int) (string, error) {
	h := fingerprint.TorrentSource(source)
	s.videos.Insert(key(h), types.CachedRequest{Torrent: &source, FileIndices: fileIndices})
	return s.url("torrent", h), nil
}

func (s *Server) url(route string, h uint64) string {
	return fmt.Sprintf("http://%s/%s/%s", s.addr, route, key(h))
}

func key(h uint64) string {
	return strconv.FormatUint(h, 16)
}
