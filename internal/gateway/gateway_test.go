package gateway

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"nero/internal/filenameparser"
	"nero/internal/proxy"
	"nero/internal/torrentbackend"
	"nero/pkg/types"
)

// fakeExtension is a minimal Extension for exercising the facade
// without a real wasm guest. videos is keyed by "seriesID/episodeID";
// searchID, when set, is the series every Search call reports a match
// for, regardless of the query text.
type fakeExtension struct {
	videos     map[string][]types.Video
	searchID   string
	closeCount int
}

func (e *fakeExtension) Filters(ctx context.Context) ([]types.FilterCategory, error) {
	return nil, nil
}

func (e *fakeExtension) Search(ctx context.Context, query string, page int, filters []types.SearchFilter) (types.Page[types.Series], error) {
	if e.searchID == "" {
		return types.Page[types.Series]{}, nil
	}
	return types.Page[types.Series]{Items: []types.Series{{ID: e.searchID}}}, nil
}

func (e *fakeExtension) GetSeriesInfo(ctx context.Context, seriesID string) (types.Series, error) {
	return types.Series{}, nil
}

func (e *fakeExtension) GetSeriesEpisodes(ctx context.Context, seriesID string, page int) (types.Page[types.Episode], error) {
	return types.Page[types.Episode]{}, nil
}

func (e *fakeExtension) GetSeriesVideos(ctx context.Context, seriesID, episodeID string) ([]types.Video, error) {
	return e.videos[seriesID+"/"+episodeID], nil
}

func (e *fakeExtension) Close(ctx context.Context) error {
	e.closeCount++
	return nil
}

// fakeTorrentBackend only ever needs to answer ListFiles for these
// tests; torrentPath never reaches AddTorrent/HandleStreamRequest/
// CancelTorrent.
type fakeTorrentBackend struct {
	files []types.TorrentFile
}

func (b *fakeTorrentBackend) ListFiles(ctx context.Context, source types.TorrentSource) ([]types.TorrentFile, error) {
	return b.files, nil
}

func (b *fakeTorrentBackend) AddTorrent(ctx context.Context, source types.TorrentSource, opts *types.AddTorrentOptions) (types.Torrent, error) {
	return types.Torrent{}, nil
}

func (b *fakeTorrentBackend) HandleStreamRequest(ctx context.Context, torrentID string, fileIndex int, req torrentbackend.StreamRequest) (torrentbackend.StreamResponse, error) {
	return torrentbackend.StreamResponse{}, nil
}

func (b *fakeTorrentBackend) CancelTorrent(ctx context.Context, torrentID string) error {
	return nil
}

func newTestFacade(t *testing.T) *Facade {
	t.Helper()
	proxySrv := proxy.New(proxy.Config{
		Addr:               "127.0.0.1:4001",
		ImageCacheCapacity: 64,
		VideoCacheCapacity: 64,
	})
	return New(proxySrv, filenameparser.New())
}

func TestGetSeriesVideosRegistersPlainHTTPVideo(t *testing.T) {
	ctx := context.Background()
	f := newTestFacade(t)

	ext := &fakeExtension{videos: map[string][]types.Video{
		"series1/ep1": {{
			MediaResource: types.MediaResource{HTTPRequest: &types.HTTPRequestRecord{
				Method:  "GET",
				URI:     "https://example.test/movie.mp4",
				Headers: http.Header{"Authorization": {"secret"}},
			}},
			Server: "cdn",
		}},
	}}
	if err := f.LoadExtension(ctx, ext); err != nil {
		t.Fatalf("LoadExtension: %v", err)
	}

	videos, err := f.GetSeriesVideos(ctx, "series1", "ep1", 1)
	if err != nil {
		t.Fatalf("GetSeriesVideos: %v", err)
	}
	if len(videos) != 1 {
		t.Fatalf("expected one video, got %d", len(videos))
	}
	if !strings.HasPrefix(videos[0].URL, "http://127.0.0.1:4001/video/") {
		t.Fatalf("expected a /video/ URL, got %s", videos[0].URL)
	}
}

func TestGetSeriesVideosMagnetDispatchesThroughTorrentPath(t *testing.T) {
	ctx := context.Background()
	f := newTestFacade(t)
	f.SetTorrentBackend(&fakeTorrentBackend{files: []types.TorrentFile{
		{Index: 0, Name: "Some Show - 05.mkv"},
	}})

	ext := &fakeExtension{
		searchID: "series1",
		videos: map[string][]types.Video{
			"series1/ep1": {{
				MediaResource: types.MediaResource{MagnetURI: "magnet:?xt=urn:btih:deadbeef"},
			}},
		},
	}
	if err := f.LoadExtension(ctx, ext); err != nil {
		t.Fatalf("LoadExtension: %v", err)
	}

	videos, err := f.GetSeriesVideos(ctx, "series1", "ep1", 5)
	if err != nil {
		t.Fatalf("GetSeriesVideos: %v", err)
	}
	if len(videos) != 1 {
		t.Fatalf("expected one video, got %d", len(videos))
	}
	if !strings.HasPrefix(videos[0].URL, "http://127.0.0.1:4001/torrent/") {
		t.Fatalf("expected a /torrent/ URL, got %s", videos[0].URL)
	}
}

func TestGetSeriesVideosFallsBackToTorrentPathOnErrUseTorrent(t *testing.T) {
	ctx := context.Background()
	f := newTestFacade(t)
	f.SetTorrentBackend(&fakeTorrentBackend{files: []types.TorrentFile{
		{Index: 0, Name: "Some Show - 05.mkv"},
	}})

	ext := &fakeExtension{
		searchID: "series1",
		videos: map[string][]types.Video{
			"series1/ep1": {{
				MediaResource: types.MediaResource{HTTPRequest: &types.HTTPRequestRecord{
					Method:  "GET",
					URI:     "https://example.test/release.torrent",
					Headers: http.Header{"Authorization": {"secret"}},
				}},
			}},
		},
	}
	if err := f.LoadExtension(ctx, ext); err != nil {
		t.Fatalf("LoadExtension: %v", err)
	}

	videos, err := f.GetSeriesVideos(ctx, "series1", "ep1", 5)
	if err != nil {
		t.Fatalf("GetSeriesVideos: %v", err)
	}
	if len(videos) != 1 {
		t.Fatalf("expected one video, got %d", len(videos))
	}
	if !strings.HasPrefix(videos[0].URL, "http://127.0.0.1:4001/torrent/") {
		t.Fatalf("expected the .torrent request to fall back to a /torrent/ URL, got %s", videos[0].URL)
	}
}

func TestLoadExtensionClosesPrevious(t *testing.T) {
	ctx := context.Background()
	f := newTestFacade(t)

	extA := &fakeExtension{}
	extB := &fakeExtension{}

	if err := f.LoadExtension(ctx, extA); err != nil {
		t.Fatalf("LoadExtension(extA): %v", err)
	}
	if err := f.LoadExtension(ctx, extB); err != nil {
		t.Fatalf("LoadExtension(extB): %v", err)
	}

	if extA.closeCount != 1 {
		t.Fatalf("expected the previous extension to be closed exactly once, got %d", extA.closeCount)
	}
	if extB.closeCount != 0 {
		t.Fatalf("expected the new extension to stay open, got %d closes", extB.closeCount)
	}
}

func TestFacadeOperationsFailBeforeExtensionLoaded(t *testing.T) {
	f := newTestFacade(t)

	if _, err := f.Filters(context.Background()); !errors.Is(err, ErrNotLoaded) {
		t.Fatalf("expected ErrNotLoaded, got %v", err)
	}
}
