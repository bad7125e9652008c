package proxy

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"nero/internal/hopheaders"
	"nero/internal/middleware"
	"nero/internal/proxyerr"
	"nero/internal/torrentbackend"
	"nero/pkg/types"
)

const streamRetryBackoff = 200 * time.Millisecond

// Router wires the four media-proxy routes onto a fresh ServeMux, in
// the teacher's CORS + recover middleware wrapping.
func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /image/{h}", s.handleImage)
	mux.HandleFunc("GET /video/{h}", s.handleVideo)
	mux.HandleFunc("GET /torrent/{h}", s.handleTorrent)
	mux.HandleFunc("GET /torrent/{id}/stream/{idx}", s.handleTorrentStream)
	return middleware.Recover(mux)
}

func (s *Server) handleImage(w http.ResponseWriter, r *http.Request) {
	middleware.EnableCORS(w)

	h, ok := parseHash(r.PathValue("h"))
	if !ok {
		proxyerr.WriteHTTP(w, proxyerr.NewNotFound())
		return
	}

	req, ok := s.images.Get(key(h))
	if !ok {
		proxyerr.WriteHTTP(w, proxyerr.NewNotFound())
		return
	}

	s.replayUpstream(w, r, req)
}

func (s *Server) handleVideo(w http.ResponseWriter, r *http.Request) {
	middleware.EnableCORS(w)

	h, ok := parseHash(r.PathValue("h"))
	if !ok {
		proxyerr.WriteHTTP(w, proxyerr.NewNotFound())
		return
	}

	cached, ok := s.videos.Remove(key(h))
	if !ok || cached.HTTP == nil {
		proxyerr.WriteHTTP(w, proxyerr.NewNotFound())
		return
	}

	s.replayUpstream(w, r, *cached.HTTP)
}

// replayUpstream strips hop-by-hop headers from req and streams the
// upstream response back verbatim, in ~64KiB chunks.
func (s *Server) replayUpstream(w http.ResponseWriter, r *http.Request, rec types.HTTPRequestRecord) {
	rec = rec.Clone()
	hopheaders.Strip(rec.Headers)

	var body io.Reader
	if rec.Body != nil {
		body = bytes.NewReader(rec.Body)
	}

	upstream, err := http.NewRequestWithContext(r.Context(), rec.Method, rec.URI, body)
	if err != nil {
		proxyerr.WriteHTTP(w, proxyerr.NewUpstreamHTTP(err))
		return
	}
	upstream.Header = rec.Headers

	resp, err := s.client.Do(upstream)
	if err != nil {
		proxyerr.WriteHTTP(w, proxyerr.NewUpstreamHTTP(err))
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		proxyerr.WriteHTTP(w, proxyerr.NewRemoteServerStatus(resp.StatusCode))
		return
	}

	for name, values := range resp.Header {
		for _, v := range values {
			w.Header().Add(name, v)
		}
	}
	w.WriteHeader(resp.StatusCode)

	buf := make([]byte, 64*1024)
	if _, err := io.CopyBuffer(w, resp.Body, buf); err != nil {
		log.Printf("[proxy] streaming upstream body: %v", err)
	}
}

func (s *Server) handleTorrent(w http.ResponseWriter, r *http.Request) {
	middleware.EnableCORS(w)

	h, ok := parseHash(r.PathValue("h"))
	if !ok {
		proxyerr.WriteHTTP(w, proxyerr.NewNotFound())
		return
	}

	cached, ok := s.videos.Remove(key(h))
	if !ok {
		proxyerr.WriteHTTP(w, proxyerr.NewNotFound())
		return
	}
	if !cached.IsTorrent() {
		proxyerr.WriteHTTP(w, proxyerr.NewInvalidRequestType())
		return
	}

	backend := s.TorrentBackend()
	if backend == nil {
		proxyerr.WriteHTTP(w, proxyerr.NewTorrentSupportDisabled())
		return
	}

	s.cancelCurrentTorrent(r.Context(), backend)

	added, err := backend.AddTorrent(r.Context(), *cached.Torrent, &types.AddTorrentOptions{FileIndices: cached.FileIndices})
	if err != nil {
		proxyerr.WriteHTTP(w, proxyerr.NewTorrentBackend(err))
		return
	}

	s.currentMu.Lock()
	s.current = &types.CurrentVideo{TorrentID: added.ID}
	s.currentMu.Unlock()

	var m3u strings.Builder
	m3u.WriteString("#EXTM3U\n")
	for _, f := range added.Files {
		url := fmt.Sprintf("http://%s/torrent/%s/stream/%d", s.addr, added.ID, f.Index)
		fmt.Fprintf(&m3u, "#EXTINF:-1,%s\n%s\n", f.Name, url)
	}

	w.Header().Set("Content-Type", "application/x-mpegurl")
	_, _ = io.WriteString(w, m3u.String())
}

// cancelCurrentTorrent takes the current session (if any) and asks
// the backend to cancel it, best-effort: the caller is about to
// install a new current session regardless of whether this succeeds.
func (s *Server) cancelCurrentTorrent(ctx context.Context, backend torrentbackend.Backend) {
	s.currentMu.Lock()
	prev := s.current
	s.current = nil
	s.currentMu.Unlock()

	if prev != nil && prev.IsTorrent() {
		if err := backend.CancelTorrent(ctx, prev.TorrentID); err != nil {
			log.Printf("[proxy] cancel previous torrent %s: %v", prev.TorrentID, err)
		}
	}
}

func (s *Server) handleTorrentStream(w http.ResponseWriter, r *http.Request) {
	middleware.EnableCORS(w)

	backend := s.TorrentBackend()
	if backend == nil {
		proxyerr.WriteHTTP(w, proxyerr.NewTorrentSupportDisabled())
		return
	}

	torrentID := r.PathValue("id")
	fileIndex, err := strconv.Atoi(r.PathValue("idx"))
	if err != nil {
		proxyerr.WriteHTTP(w, proxyerr.NewInvalidRequestType())
		return
	}

	streamReq := torrentbackend.StreamRequest{RangeHeader: r.Header.Get("Range")}

	var resp torrentbackend.StreamResponse
	for {
		resp, err = backend.HandleStreamRequest(r.Context(), torrentID, fileIndex, streamReq)
		if err == nil {
			break
		}
		if errors.Is(err, torrentbackend.ErrInitializing) || errors.Is(err, torrentbackend.ErrMetadata) {
			select {
			case <-time.After(streamRetryBackoff):
				continue
			case <-r.Context().Done():
				return
			}
		}
		proxyerr.WriteHTTP(w, proxyerr.NewTorrentBackend(err))
		return
	}
	defer resp.Body.Close()

	w.Header().Set("Accept-Ranges", "bytes")
	if resp.ContentType != "" {
		w.Header().Set("Content-Type", resp.ContentType)
	}
	if resp.ContentRange != "" {
		w.Header().Set("Content-Range", resp.ContentRange)
	}
	w.Header().Set("Content-Length", strconv.FormatInt(resp.ContentLength, 10))
	w.WriteHeader(resp.StatusCode)

	buf := make([]byte, 64*1024)
	if _, err := io.CopyBuffer(w, resp.Body, buf); err != nil {
		log.Printf("[proxy] streaming torrent body: %v", err)
	}
}

func parseHash(s string) (uint64, bool) {
	h, err := strconv.ParseUint(s, 16, 64)
	return h, err == nil
}
