// Package gateway is the facade the gateway's own HTTP API (not
// built here — out of this package's scope per the host application
// boundary) sits on top of: one extension slot behind a
// reader/writer lock, the shared media proxy, and an optional torrent
// backend. Every user-facing operation walks the extension's raw
// result and rewrites its MediaResource fields into local proxy URLs,
// switching into the torrent path when a video resource turns out to
// be a torrent.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"nero/internal/filenameparser"
	"nero/internal/proxy"
	"nero/internal/proxyerr"
	"nero/internal/resolver"
	"nero/internal/torrentbackend"
	"nero/pkg/types"
)

// ErrNotLoaded is returned by every facade operation when no
// extension has been loaded yet.
var ErrNotLoaded = errors.New("gateway: extension not loaded")

// Extension is the subset of a loaded wasm extension's surface the
// facade needs. *wasmhost.Extension satisfies this directly; defining
// it here (rather than depending on the wasmhost package) keeps the
// facade testable against a fake and doubles as resolver.Searcher.
type Extension interface {
	Filters(ctx context.Context) ([]types.FilterCategory, error)
	Search(ctx context.Context, query string, page int, filters []types.SearchFilter) (types.Page[types.Series], error)
	GetSeriesInfo(ctx context.Context, seriesID string) (types.Series, error)
	GetSeriesEpisodes(ctx context.Context, seriesID string, page int) (types.Page[types.Episode], error)
	GetSeriesVideos(ctx context.Context, seriesID, episodeID string) ([]types.Video, error)
	Close(ctx context.Context) error
}

// Facade holds the gateway's shared state: one active extension, the
// media proxy every MediaResource gets registered against, and an
// optional torrent backend.
type Facade struct {
	proxy    *proxy.Server
	resolver *resolver.Resolver

	backendMu sync.RWMutex
	backend   torrentbackend.Backend

	extMu sync.RWMutex
	ext   Extension
}

// New builds a Facade. The torrent backend may be installed later via
// SetTorrentBackend; until then, any video that resolves to a torrent
// source surfaces the proxy's TorrentSupportDisabled error.
func New(proxySrv *proxy.Server, parser filenameparser.Parser) *Facade {
	return &Facade{
		proxy:    proxySrv,
		resolver: resolver.New(parser),
	}
}

// SetTorrentBackend installs (or replaces) the torrent backend.
func (f *Facade) SetTorrentBackend(b torrentbackend.Backend) {
	f.backendMu.Lock()
	f.backend = b
	f.backendMu.Unlock()
	f.proxy.SetTorrentBackend(b)
}

func (f *Facade) torrentBackend() torrentbackend.Backend {
	f.backendMu.RLock()
	defer f.backendMu.RUnlock()
	return f.backend
}

// LoadExtension installs ext as the active extension, closing whatever
// was loaded before it. Replacing the extension is exclusive with
// every in-flight read (Filters/Search/...), matching spec's
// asynchronous reader/writer lock over the extension slot.
func (f *Facade) LoadExtension(ctx context.Context, ext Extension) error {
	f.extMu.Lock()
	defer f.extMu.Unlock()

	old := f.ext
	f.ext = ext
	if old != nil {
		return old.Close(ctx)
	}
	return nil
}

// withExtension runs fn with a read lock held over the extension slot
// for fn's entire duration, so a concurrent LoadExtension can't close
// out from under it mid-call.
func (f *Facade) withExtension(fn func(ext Extension) error) error {
	f.extMu.RLock()
	defer f.extMu.RUnlock()
	if f.ext == nil {
		return ErrNotLoaded
	}
	return fn(f.ext)
}

// Filters passes the extension's filter categories through unchanged
// — there are no MediaResource fields in this shape to rewrite.
func (f *Facade) Filters(ctx context.Context) ([]types.HostFilterCategory, error) {
	var out []types.HostFilterCategory
	err := f.withExtension(func(ext Extension) error {
		cats, err := ext.Filters(ctx)
		if err != nil {
			return err
		}
		out = hostFilterCategories(cats)
		return nil
	})
	return out, err
}

// Search runs the extension's search and rewrites every result
// series' poster into a local proxy URL.
func (f *Facade) Search(ctx context.Context, query string, page int, filters []types.SearchFilter) (types.Page[types.HostSeries], error) {
	var out types.Page[types.HostSeries]
	err := f.withExtension(func(ext Extension) error {
		page, err := ext.Search(ctx, query, page, filters)
		if err != nil {
			return err
		}
		out, err = f.hostSeriesPage(ctx, page)
		return err
	})
	return out, err
}

// GetSeriesInfo rewrites a single series' poster into a local proxy
// URL.
func (f *Facade) GetSeriesInfo(ctx context.Context, seriesID string) (types.HostSeries, error) {
	var out types.HostSeries
	err := f.withExtension(func(ext Extension) error {
		series, err := ext.GetSeriesInfo(ctx, seriesID)
		if err != nil {
			return err
		}
		out, err = f.hostSeries(ctx, series)
		return err
	})
	return out, err
}

// GetSeriesEpisodes rewrites every episode's thumbnail into a local
// proxy URL.
func (f *Facade) GetSeriesEpisodes(ctx context.Context, seriesID string, page int) (types.Page[types.HostEpisode], error) {
	var out types.Page[types.HostEpisode]
	err := f.withExtension(func(ext Extension) error {
		episodesPage, err := ext.GetSeriesEpisodes(ctx, seriesID, page)
		if err != nil {
			return err
		}
		items := make([]types.HostEpisode, 0, len(episodesPage.Items))
		for _, e := range episodesPage.Items {
			h, err := f.hostEpisode(ctx, e)
			if err != nil {
				return err
			}
			items = append(items, h)
		}
		out = types.Page[types.HostEpisode]{Items: items, HasNextPage: episodesPage.HasNextPage}
		return nil
	})
	return out, err
}

// GetSeriesVideos rewrites every video's MediaResource into a local
// playback URL, switching into the torrent path (list files, resolve
// the requested episode's file index, register the torrent) whenever
// a video's resource is a torrent rather than plain HTTP media.
// episodeNumber is the caller's own numeric episode identifier, used
// only for torrent file resolution — the extension's episodeID is
// opaque to this host.
func (f *Facade) GetSeriesVideos(ctx context.Context, seriesID, episodeID string, episodeNumber int) ([]types.HostVideo, error) {
	var out []types.HostVideo
	err := f.withExtension(func(ext Extension) error {
		videos, err := ext.GetSeriesVideos(ctx, seriesID, episodeID)
		if err != nil {
			return err
		}
		out = make([]types.HostVideo, 0, len(videos))
		for _, v := range videos {
			hv, err := f.hostVideo(ctx, v, ext, seriesID, episodeNumber)
			if err != nil {
				return err
			}
			out = append(out, hv)
		}
		return nil
	})
	return out, err
}

func hostFilterCategories(cats []types.FilterCategory) []types.HostFilterCategory {
	out := make([]types.HostFilterCategory, 0, len(cats))
	for _, c := range cats {
		filters := make([]types.HostFilter, 0, len(c.Filters))
		for _, fl := range c.Filters {
			filters = append(filters, types.HostFilter{ID: fl.ID, DisplayName: fl.DisplayName})
		}
		out = append(out, types.HostFilterCategory{ID: c.ID, DisplayName: c.DisplayName, Filters: filters})
	}
	return out
}

func (f *Facade) hostSeriesPage(ctx context.Context, page types.Page[types.Series]) (types.Page[types.HostSeries], error) {
	items := make([]types.HostSeries, 0, len(page.Items))
	for _, s := range page.Items {
		hs, err := f.hostSeries(ctx, s)
		if err != nil {
			return types.Page[types.HostSeries]{}, err
		}
		items = append(items, hs)
	}
	return types.Page[types.HostSeries]{Items: items, HasNextPage: page.HasNextPage}, nil
}

func (f *Facade) hostSeries(ctx context.Context, s types.Series) (types.HostSeries, error) {
	out := types.HostSeries{ID: s.ID, Title: s.Title, Synopsis: s.Synopsis, Type: s.Type}
	if s.PosterResource.IsEmpty() {
		return out, nil
	}
	url, err := f.registerImage(ctx, s.PosterResource)
	if err != nil {
		return types.HostSeries{}, err
	}
	out.PosterURL = url
	return out, nil
}

func (f *Facade) hostEpisode(ctx context.Context, e types.Episode) (types.HostEpisode, error) {
	out := types.HostEpisode{ID: e.ID, Number: e.Number, Title: e.Title, Description: e.Description}
	if e.ThumbnailResource.IsEmpty() {
		return out, nil
	}
	url, err := f.registerImage(ctx, e.ThumbnailResource)
	if err != nil {
		return types.HostEpisode{}, err
	}
	out.ThumbnailURL = url
	return out, nil
}

// registerImage rewrites a poster/thumbnail MediaResource. These are
// never torrents in practice (spec's register_image_request rejects
// bittorrent outright), so there is no torrent-path fallback here.
func (f *Facade) registerImage(ctx context.Context, res types.MediaResource) (string, error) {
	if res.IsMagnet() {
		return "", fmt.Errorf("gateway: image resource is a magnet URI, not an HTTP request")
	}
	return f.proxy.RegisterImageRequest(ctx, *res.HTTPRequest)
}

func (f *Facade) hostVideo(ctx context.Context, v types.Video, ext Extension, seriesID string, episodeNumber int) (types.HostVideo, error) {
	if v.MediaResource.IsMagnet() {
		url, err := f.torrentPath(ctx, types.TorrentSource{Magnet: v.MediaResource.MagnetURI}, ext, seriesID, episodeNumber)
		if err != nil {
			return types.HostVideo{}, err
		}
		return types.HostVideo{URL: url, Server: v.Server, Resolution: v.Resolution}, nil
	}

	url, err := f.proxy.RegisterVideoRequest(ctx, *v.MediaResource.HTTPRequest)
	if errors.Is(err, proxy.ErrUseTorrent) {
		url, err = f.torrentPath(ctx, types.TorrentSource{HTTP: v.MediaResource.HTTPRequest}, ext, seriesID, episodeNumber)
	}
	if err != nil {
		return types.HostVideo{}, err
	}
	return types.HostVideo{URL: url, Server: v.Server, Resolution: v.Resolution}, nil
}

// torrentPath lists source's files through the torrent backend,
// resolves which file index corresponds to (seriesID, episodeNumber)
// via the filename resolver, and registers the torrent with only that
// file index selected.
func (f *Facade) torrentPath(ctx context.Context, source types.TorrentSource, ext Extension, seriesID string, episodeNumber int) (string, error) {
	backend := f.torrentBackend()
	if backend == nil {
		return "", fmt.Errorf("gateway: %w", proxyerr.NewTorrentSupportDisabled())
	}

	files, err := backend.ListFiles(ctx, source)
	if err != nil {
		return "", fmt.Errorf("gateway: listing torrent files: %w", err)
	}

	index, ok, err := f.resolver.FindEpisode(ctx, ext, files, seriesID, episodeNumber)
	if err != nil {
		return "", fmt.Errorf("gateway: resolving episode file: %w", err)
	}
	if !ok {
		return "", fmt.Errorf("gateway: no file in torrent matches series %s episode %d", seriesID, episodeNumber)
	}

	return f.proxy.RegisterTorrent(source, []int{index})
}
