package wasmhost

import (
	"context"
	"encoding/json"
	"fmt"

	"nero/pkg/types"
)

// v0_1_0draftProtocol speaks the JSON-over-linear-memory convention
// to any guest declaring `nero:extension@0.1.0-draft` or newer (until
// a later binding in contract.go's table claims a higher minimum
// version). Guest export names are the operation names verbatim.
type v0_1_0draftProtocol struct{}

func (v0_1_0draftProtocol) Filters(ctx context.Context, ext *Extension) ([]types.FilterCategory, error) {
	call, err := newGuestCall(ctx, ext)
	if err != nil {
		return nil, err
	}
	defer call.close(ctx)

	payload, err := call.invoke(ctx, "filters", []byte("null"))
	if err != nil {
		return nil, err
	}

	var wire []wireFilterCategory
	if err := json.Unmarshal(payload, &wire); err != nil {
		return nil, fmt.Errorf("decoding filters result: %w", err)
	}

	out := make([]types.FilterCategory, 0, len(wire))
	for _, w := range wire {
		out = append(out, w.toTypes())
	}
	return out, nil
}

func (v0_1_0draftProtocol) Search(ctx context.Context, ext *Extension, query string, page int, filters []types.SearchFilter) (types.Page[types.Series], error) {
	call, err := newGuestCall(ctx, ext)
	if err != nil {
		return types.Page[types.Series]{}, err
	}
	defer call.close(ctx)

	args, err := json.Marshal(struct {
		Query   string             `json:"query"`
		Page    int                `json:"page,omitempty"`
		Filters []wireSearchFilter `json:"filters"`
	}{Query: query, Page: page, Filters: searchFiltersToWire(filters)})
	if err != nil {
		return types.Page[types.Series]{}, fmt.Errorf("encoding search args: %w", err)
	}

	payload, err := call.invoke(ctx, "search", args)
	if err != nil {
		return types.Page[types.Series]{}, err
	}

	var wire wireSeriesPage
	if err := json.Unmarshal(payload, &wire); err != nil {
		return types.Page[types.Series]{}, fmt.Errorf("decoding search result: %w", err)
	}
	return call.seriesPageFromWire(wire)
}

func (v0_1_0draftProtocol) GetSeriesInfo(ctx context.Context, ext *Extension, seriesID string) (types.Series, error) {
	call, err := newGuestCall(ctx, ext)
	if err != nil {
		return types.Series{}, err
	}
	defer call.close(ctx)

	args, err := json.Marshal(struct {
		SeriesID string `json:"seriesId"`
	}{SeriesID: seriesID})
	if err != nil {
		return types.Series{}, fmt.Errorf("encoding get_series_info args: %w", err)
	}

	payload, err := call.invoke(ctx, "get_series_info", args)
	if err != nil {
		return types.Series{}, err
	}

	var wire wireSeries
	if err := json.Unmarshal(payload, &wire); err != nil {
		return types.Series{}, fmt.Errorf("decoding get_series_info result: %w", err)
	}
	return call.seriesFromWire(wire)
}

func (v0_1_0draftProtocol) GetSeriesEpisodes(ctx context.Context, ext *Extension, seriesID string, page int) (types.Page[types.Episode], error) {
	call, err := newGuestCall(ctx, ext)
	if err != nil {
		return types.Page[types.Episode]{}, err
	}
	defer call.close(ctx)

	args, err := json.Marshal(struct {
		SeriesID string `json:"seriesId"`
		Page     int    `json:"page,omitempty"`
	}{SeriesID: seriesID, Page: page})
	if err != nil {
		return types.Page[types.Episode]{}, fmt.Errorf("encoding get_series_episodes args: %w", err)
	}

	payload, err := call.invoke(ctx, "get_series_episodes", args)
	if err != nil {
		return types.Page[types.Episode]{}, err
	}

	var wire wireEpisodesPage
	if err := json.Unmarshal(payload, &wire); err != nil {
		return types.Page[types.Episode]{}, fmt.Errorf("decoding get_series_episodes result: %w", err)
	}
	return call.episodesPageFromWire(wire)
}

func (v0_1_0draftProtocol) GetSeriesVideos(ctx context.Context, ext *Extension, seriesID, episodeID string) ([]types.Video, error) {
	call, err := newGuestCall(ctx, ext)
	if err != nil {
		return nil, err
	}
	defer call.close(ctx)

	args, err := json.Marshal(struct {
		SeriesID  string `json:"seriesId"`
		EpisodeID string `json:"episodeId"`
	}{SeriesID: seriesID, EpisodeID: episodeID})
	if err != nil {
		return nil, fmt.Errorf("encoding get_series_videos args: %w", err)
	}

	payload, err := call.invoke(ctx, "get_series_videos", args)
	if err != nil {
		return nil, err
	}

	var wire []wireVideo
	if err := json.Unmarshal(payload, &wire); err != nil {
		return nil, fmt.Errorf("decoding get_series_videos result: %w", err)
	}

	out := make([]types.Video, 0, len(wire))
	for _, w := range wire {
		converted, err := call.videoFromWire(w)
		if err != nil {
			return nil, err
		}
		out = append(out, converted)
	}
	return out, nil
}
