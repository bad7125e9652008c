package torrentbackend

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	atorrent "github.com/anacrolix/torrent"
	"github.com/anacrolix/torrent/metainfo"

	"nero/internal/hopheaders"
	"nero/pkg/types"
)

var videoExt = map[string]bool{
	".mp4": true, ".webm": true, ".m4v": true, ".mov": true, ".mkv": true, ".avi": true, ".flv": true, ".ts": true,
}

// AnacrolixBackend implements Backend on top of github.com/anacrolix/torrent.
// It runs a single client; torrent identity on the wire is the
// infohash's hex string, so HandleStreamRequest and CancelTorrent
// never need a side table to resolve an ID back to a handle.
type AnacrolixBackend struct {
	client       *atorrent.Client
	dataDir      string
	trackersMode string
	httpClient   *http.Client
	waitMetadata time.Duration

	touchMu sync.Mutex
	touch   map[metainfo.Hash]time.Time
}

// NewAnacrolixBackend starts a torrent client rooted at dataDir.
// trackersMode selects which bootstrap tracker tiers get attached to
// magnet links ("all", "http", "udp", or "none"); waitMetadata bounds
// how long ListFiles/AddTorrent wait for a torrent's metadata before
// giving up.
func NewAnacrolixBackend(dataDir, trackersMode string, waitMetadata time.Duration) (*AnacrolixBackend, error) {
	cfg := atorrent.NewDefaultClientConfig()
	cfg.DataDir = dataDir
	cfg.DisableUTP = true
	cfg.Seed = false
	cfg.NoUpload = false

	cl, err := atorrent.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("torrentbackend: starting client: %w", err)
	}
	return &AnacrolixBackend{
		client:       cl,
		dataDir:      dataDir,
		trackersMode: strings.ToLower(strings.TrimSpace(trackersMode)),
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		waitMetadata: waitMetadata,
		touch:        make(map[metainfo.Hash]time.Time),
	}, nil
}

// DataDir returns the directory the underlying client stores piece
// data in, so the janitor can measure disk usage against it.
func (b *AnacrolixBackend) DataDir() string { return b.dataDir }

// TorrentStatus summarizes one torrent currently held by the client,
// for the janitor's idle/capacity eviction sweep.
type TorrentStatus struct {
	ID        string
	Name      string
	Size      int64
	LastTouch time.Time
}

// Statuses lists every torrent the client currently holds, regardless
// of whether it's the active "current video" session.
func (b *AnacrolixBackend) Statuses() []TorrentStatus {
	var out []TorrentStatus
	for _, t := range b.client.Torrents() {
		var size int64
		for _, f := range t.Files() {
			size += f.Length()
		}
		out = append(out, TorrentStatus{
			ID:        t.InfoHash().HexString(),
			Name:      t.Name(),
			Size:      size,
			LastTouch: b.lastTouch(t.InfoHash()),
		})
	}
	return out
}

func (b *AnacrolixBackend) touchNow(ih metainfo.Hash) {
	b.touchMu.Lock()
	b.touch[ih] = time.Now()
	b.touchMu.Unlock()
}

// lastTouch returns the last time a torrent was added through
// AddTorrent or streamed from, or its zero value if neither has
// happened (e.g. it was only listed through ListFiles).
func (b *AnacrolixBackend) lastTouch(ih metainfo.Hash) time.Time {
	b.touchMu.Lock()
	defer b.touchMu.Unlock()
	return b.touch[ih]
}

func (b *AnacrolixBackend) clearTouch(ih metainfo.Hash) {
	b.touchMu.Lock()
	delete(b.touch, ih)
	b.touchMu.Unlock()
}

// DirSize sums the size of every regular file under root, for
// capacity-based eviction decisions against the client's data
// directory.
func DirSize(root string) int64 {
	var total int64
	_ = filepath.Walk(root, func(_ string, info os.FileInfo, err error) error {
		if err == nil && !info.IsDir() {
			total += info.Size()
		}
		return nil
	})
	return total
}

// Close shuts down the underlying torrent client. Not part of the
// Backend interface — cmd/gateway calls it directly on its concrete
// backend during shutdown.
func (b *AnacrolixBackend) Close() error {
	errs := b.client.Close()
	if len(errs) > 0 {
		return errs[0]
	}
	return nil
}

func (b *AnacrolixBackend) ListFiles(ctx context.Context, source types.TorrentSource) ([]types.TorrentFile, error) {
	t, err := b.resolve(ctx, source)
	if err != nil {
		return nil, err
	}
	if err := b.waitForInfo(ctx, t); err != nil {
		return nil, err
	}
	files := torrentFiles(t)
	if len(files) == 0 {
		return nil, ErrNoPlayableFile
	}
	return files, nil
}

func (b *AnacrolixBackend) AddTorrent(ctx context.Context, source types.TorrentSource, opts *types.AddTorrentOptions) (types.Torrent, error) {
	t, err := b.resolve(ctx, source)
	if err != nil {
		return types.Torrent{}, err
	}
	if err := b.waitForInfo(ctx, t); err != nil {
		return types.Torrent{}, err
	}

	if opts != nil && len(opts.FileIndices) > 0 {
		want := make(map[int]bool, len(opts.FileIndices))
		for _, i := range opts.FileIndices {
			want[i] = true
		}
		for i, f := range t.Files() {
			if want[i] {
				f.SetPriority(atorrent.PiecePriorityNormal)
			} else {
				f.SetPriority(atorrent.PiecePriorityNone)
			}
		}
	}

	files := torrentFiles(t)
	if len(files) == 0 {
		return types.Torrent{}, ErrNoPlayableFile
	}
	b.touchNow(t.InfoHash())

	return types.Torrent{
		ID:    t.InfoHash().HexString(),
		Name:  t.Name(),
		Files: files,
	}, nil
}

func (b *AnacrolixBackend) HandleStreamRequest(ctx context.Context, torrentID string, fileIndex int, req StreamRequest) (StreamResponse, error) {
	ih, ok := parseInfoHash(torrentID)
	if !ok {
		return StreamResponse{}, fmt.Errorf("torrentbackend: malformed torrent id %q", torrentID)
	}
	t, ok := b.client.Torrent(ih)
	if !ok {
		return StreamResponse{}, ErrInitializing
	}
	if t.Info() == nil {
		return StreamResponse{}, ErrMetadata
	}
	b.touchNow(ih)

	files := t.Files()
	if fileIndex < 0 || fileIndex >= len(files) {
		return StreamResponse{}, fmt.Errorf("torrentbackend: file index %d out of range (%d files)", fileIndex, len(files))
	}
	f := files[fileIndex]
	size := f.Length()

	start, end, hasRange := int64(0), size-1, false
	if req.RangeHeader != "" {
		s, e, ok := parseByteRange(req.RangeHeader, size)
		if !ok {
			return StreamResponse{}, fmt.Errorf("torrentbackend: invalid range %q", req.RangeHeader)
		}
		start, end, hasRange = s, e, true
	}

	reader := f.NewReader()
	reader.SetResponsive()
	reader.SetReadahead(4 << 20)
	if _, err := reader.Seek(start, io.SeekStart); err != nil {
		reader.Close()
		return StreamResponse{}, fmt.Errorf("torrentbackend: seek: %w", err)
	}

	name := filepath.Base(f.Path())
	contentType := mime.TypeByExtension(strings.ToLower(filepath.Ext(name)))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	length := end - start + 1
	resp := StreamResponse{
		Body:          &boundedReadCloser{r: reader, remaining: length},
		ContentType:   contentType,
		ContentLength: length,
		FileName:      name,
	}
	if hasRange {
		resp.StatusCode = http.StatusPartialContent
		resp.ContentRange = fmt.Sprintf("bytes %d-%d/%d", start, end, size)
	} else {
		resp.StatusCode = http.StatusOK
	}
	return resp, nil
}

func (b *AnacrolixBackend) CancelTorrent(ctx context.Context, torrentID string) error {
	ih, ok := parseInfoHash(torrentID)
	if !ok {
		return fmt.Errorf("torrentbackend: malformed torrent id %q", torrentID)
	}
	if t, ok := b.client.Torrent(ih); ok {
		t.Drop()
	}
	b.clearTouch(ih)
	return nil
}

// resolve adds source to the client (or returns the existing handle
// for it) without waiting for metadata.
func (b *AnacrolixBackend) resolve(ctx context.Context, source types.TorrentSource) (*atorrent.Torrent, error) {
	if source.IsMagnet() {
		uri := b.sanitizeMagnet(source.Magnet)
		if ih, ok := magnetHash(uri); ok {
			if t, ok := b.client.Torrent(ih); ok {
				return t, nil
			}
		}
		t, err := b.client.AddMagnet(uri)
		if err != nil {
			return nil, fmt.Errorf("torrentbackend: add magnet: %w", err)
		}
		if tiers := b.trackerTiers(); len(tiers) > 0 {
			t.AddTrackers(tiers)
		}
		return t, nil
	}

	data, err := b.fetchTorrentBytes(ctx, *source.HTTP)
	if err != nil {
		return nil, err
	}
	mi, err := metainfo.Load(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("torrentbackend: parse .torrent: %w", err)
	}
	if t, ok := b.client.Torrent(mi.HashInfoBytes()); ok {
		return t, nil
	}
	t, err := b.client.AddTorrent(mi)
	if err != nil {
		return nil, fmt.Errorf("torrentbackend: add torrent: %w", err)
	}
	if tiers := b.trackerTiers(); len(tiers) > 0 {
		t.AddTrackers(tiers)
	}
	return t, nil
}

func (b *AnacrolixBackend) fetchTorrentBytes(ctx context.Context, rec types.HTTPRequestRecord) ([]byte, error) {
	rec = rec.Clone()
	hopheaders.Strip(rec.Headers)

	var body io.Reader
	if rec.Body != nil {
		body = bytes.NewReader(rec.Body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, rec.Method, rec.URI, body)
	if err != nil {
		return nil, fmt.Errorf("torrentbackend: building torrent fetch request: %w", err)
	}
	httpReq.Header = rec.Headers

	resp, err := b.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("torrentbackend: fetching .torrent: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("torrentbackend: .torrent fetch returned status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return nil, fmt.Errorf("torrentbackend: reading .torrent body: %w", err)
	}
	if len(data) < 2 || data[0] != 'd' {
		return nil, fmt.Errorf("torrentbackend: response is not a bencoded .torrent file")
	}
	return data, nil
}

func (b *AnacrolixBackend) waitForInfo(ctx context.Context, t *atorrent.Torrent) error {
	deadline := b.waitMetadata
	if deadline <= 0 {
		deadline = 25 * time.Second
	}
	wctx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()
	select {
	case <-t.GotInfo():
		return nil
	case <-wctx.Done():
		return ErrMetadata
	}
}

func torrentFiles(t *atorrent.Torrent) []types.TorrentFile {
	var out []types.TorrentFile
	for i, f := range t.Files() {
		if !videoExt[strings.ToLower(filepath.Ext(f.Path()))] {
			continue
		}
		out = append(out, types.TorrentFile{
			Index: i,
			Name:  filepath.Base(f.Path()),
			Path:  f.Path(),
		})
	}
	return out
}

var extraHTTPTrackers = []string{
	"http://tracker.opentrackr.org:1337/announce",
	"https://tracker.opentrackr.org:443/announce",
	"https://opentracker.i2p.rocks:443/announce",
}
var extraUDPTrackers = []string{
	"udp://tracker.opentrackr.org:1337/announce",
	"udp://open.stealth.si:80/announce",
	"udp://tracker.torrent.eu.org:451/announce",
	"udp://exodus.desync.com:6969/announce",
}

func (b *AnacrolixBackend) trackerTiers() [][]string {
	var tiers [][]string
	switch b.trackersMode {
	case "none":
		return nil
	case "http":
		for _, s := range extraHTTPTrackers {
			tiers = append(tiers, []string{s})
		}
	case "udp", "":
		for _, s := range extraUDPTrackers {
			tiers = append(tiers, []string{s})
		}
	default: // "all"
		for _, s := range extraHTTPTrackers {
			tiers = append(tiers, []string{s})
		}
		for _, s := range extraUDPTrackers {
			tiers = append(tiers, []string{s})
		}
	}
	return tiers
}

// sanitizeMagnet drops tracker query params the configured trackers
// mode excludes, letting AddTrackers supply the bootstrap set instead.
func (b *AnacrolixBackend) sanitizeMagnet(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	q := u.Query()
	orig := q["tr"]
	q.Del("tr")
	for _, tr := range orig {
		trL := strings.ToLower(tr)
		keep := false
		switch b.trackersMode {
		case "none":
			keep = false
		case "udp", "":
			keep = strings.HasPrefix(trL, "udp://")
		default:
			keep = true
		}
		if keep {
			q.Add("tr", tr)
		}
	}
	u.RawQuery = q.Encode()
	return u.String()
}

func magnetHash(uri string) (metainfo.Hash, bool) {
	m, err := metainfo.ParseMagnetURI(uri)
	if err != nil || m.InfoHash == (metainfo.Hash{}) {
		return metainfo.Hash{}, false
	}
	return m.InfoHash, true
}

func parseInfoHash(id string) (metainfo.Hash, bool) {
	id = strings.TrimSpace(id)
	if len(id) != 40 {
		return metainfo.Hash{}, false
	}
	for _, r := range id {
		isHex := (r >= '0' && r <= '9') || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')
		if !isHex {
			return metainfo.Hash{}, false
		}
	}
	return metainfo.NewHashFromHex(strings.ToUpper(id)), true
}

func parseByteRange(h string, size int64) (start, end int64, ok bool) {
	h = strings.TrimSpace(strings.ToLower(h))
	if !strings.HasPrefix(h, "bytes=") {
		return 0, 0, false
	}
	spec := strings.TrimPrefix(h, "bytes=")
	if strings.Contains(spec, ",") {
		return 0, 0, false // multi-range requests unsupported
	}
	parts := strings.SplitN(strings.TrimSpace(spec), "-", 2)
	if parts[0] == "" {
		n, err := strconv.ParseInt(parts[1], 10, 64)
		if err != nil || n <= 0 {
			return 0, 0, false
		}
		if n > size {
			n = size
		}
		return size - n, size - 1, true
	}
	s, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil || s < 0 || s >= size {
		return 0, 0, false
	}
	e := size - 1
	if len(parts) == 2 && parts[1] != "" {
		e, err = strconv.ParseInt(parts[1], 10, 64)
		if err != nil || e < s {
			return 0, 0, false
		}
		if e >= size {
			e = size - 1
		}
	}
	return s, e, true
}

// boundedReadCloser caps reads to `remaining` bytes so a ranged read
// of an underlying torrent.Reader (which has no inherent end-of-range
// concept) stops exactly at the requested range's end.
type boundedReadCloser struct {
	r         io.ReadCloser
	remaining int64
}

func (b *boundedReadCloser) Read(p []byte) (int, error) {
	if b.remaining <= 0 {
		return 0, io.EOF
	}
	if int64(len(p)) > b.remaining {
		p = p[:b.remaining]
	}
	n, err := b.r.Read(p)
	b.remaining -= int64(n)
	return n, err
}

func (b *boundedReadCloser) Close() error { return b.r.Close() }
