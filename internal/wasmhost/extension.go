package wasmhost

import (
	"context"
	"fmt"

	"github.com/Masterminds/semver/v3"
	"github.com/tetratelabs/wazero"

	"nero/pkg/types"
)

// Extension is a loaded, version-bound guest. It holds only the
// compiled component and its negotiated protocol — no guest state —
// so every operation below instantiates a disposable guest context.
type Extension struct {
	host     *Host
	compiled wazero.CompiledModule
	version  *semver.Version
	protocol protocol
	path     string
}

// Version returns the guest's declared `nero:extension` semantic
// version.
func (e *Extension) Version() *semver.Version { return e.version }

// Path returns the filesystem path the extension was loaded from.
func (e *Extension) Path() string { return e.path }

// Close releases the compiled module. Safe to call once the
// extension has been replaced or the gateway is shutting down.
func (e *Extension) Close(ctx context.Context) error {
	return e.compiled.Close(ctx)
}

func (e *Extension) Filters(ctx context.Context) ([]types.FilterCategory, error) {
	out, err := e.protocol.Filters(ctx, e)
	if err != nil {
		return nil, fmt.Errorf("wasmhost: filters: %w", err)
	}
	return out, nil
}

func (e *Extension) Search(ctx context.Context, query string, page int, filters []types.SearchFilter) (types.Page[types.Series], error) {
	out, err := e.protocol.Search(ctx, e, query, page, filters)
	if err != nil {
		return types.Page[types.Series]{}, fmt.Errorf("wasmhost: search: %w", err)
	}
	return out, nil
}

func (e *Extension) GetSeriesInfo(ctx context.Context, seriesID string) (types.Series, error) {
	out, err := e.protocol.GetSeriesInfo(ctx, e, seriesID)
	if err != nil {
		return types.Series{}, fmt.Errorf("wasmhost: get_series_info: %w", err)
	}
	return out, nil
}

func (e *Extension) GetSeriesEpisodes(ctx context.Context, seriesID string, page int) (types.Page[types.Episode], error) {
	out, err := e.protocol.GetSeriesEpisodes(ctx, e, seriesID, page)
	if err != nil {
		return types.Page[types.Episode]{}, fmt.Errorf("wasmhost: get_series_episodes: %w", err)
	}
	return out, nil
}

func (e *Extension) GetSeriesVideos(ctx context.Context, seriesID, episodeID string) ([]types.Video, error) {
	out, err := e.protocol.GetSeriesVideos(ctx, e, seriesID, episodeID)
	if err != nil {
		return nil, fmt.Errorf("wasmhost: get_series_videos: %w", err)
	}
	return out, nil
}
