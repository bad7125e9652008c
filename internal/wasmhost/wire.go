package wasmhost

import (
	"encoding/json"
	"fmt"

	"nero/pkg/types"
)

// guestResult is the Ok/Err envelope every guest export returns,
// mirroring spec.md §4.5's "unwraps a guest-side result (Ok payload
// vs. string error)".
type guestResult struct {
	Ok  json.RawMessage `json:"ok,omitempty"`
	Err *string         `json:"err,omitempty"`
}

func decodeResult(data []byte) (json.RawMessage, error) {
	var r guestResult
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decoding guest result envelope: %w", err)
	}
	if r.Err != nil {
		return nil, fmt.Errorf("guest error: %s", *r.Err)
	}
	return r.Ok, nil
}

// wireMediaResource is how a guest describes a reference to remote
// media: either the correlation ref returned by a prior
// nero_outbound_http call, or a bare magnet URI. Exactly one is set.
type wireMediaResource struct {
	HTTPRequestRef string `json:"httpRequestRef,omitempty"`
	MagnetURI      string `json:"magnetUri,omitempty"`
}

func (call *guestCall) resolveMediaResource(w wireMediaResource) (types.MediaResource, error) {
	if w.MagnetURI != "" {
		return types.MediaResource{MagnetURI: w.MagnetURI}, nil
	}
	if w.HTTPRequestRef == "" {
		return types.MediaResource{}, nil
	}
	rec, ok := call.lookupCaptured(w.HTTPRequestRef)
	if !ok {
		return types.MediaResource{}, fmt.Errorf("dangling outbound-http ref %q", w.HTTPRequestRef)
	}
	return types.MediaResource{HTTPRequest: &rec}, nil
}

type wireFilter struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
}

type wireFilterCategory struct {
	ID          string       `json:"id"`
	DisplayName string       `json:"displayName"`
	Filters     []wireFilter `json:"filters"`
}

func (w wireFilterCategory) toTypes() types.FilterCategory {
	out := types.FilterCategory{ID: w.ID, DisplayName: w.DisplayName}
	for _, f := range w.Filters {
		out.Filters = append(out.Filters, types.Filter{ID: f.ID, DisplayName: f.DisplayName})
	}
	return out
}

type wireSeries struct {
	ID             string            `json:"id"`
	Title          string            `json:"title"`
	PosterResource wireMediaResource `json:"posterResource"`
	Synopsis       string            `json:"synopsis,omitempty"`
	Type           string            `json:"type,omitempty"`
}

func (call *guestCall) seriesFromWire(w wireSeries) (types.Series, error) {
	poster, err := call.resolveMediaResource(w.PosterResource)
	if err != nil {
		return types.Series{}, err
	}
	return types.Series{
		ID:             w.ID,
		Title:          w.Title,
		PosterResource: poster,
		Synopsis:       w.Synopsis,
		Type:           w.Type,
	}, nil
}

type wireSeriesPage struct {
	Items       []wireSeries `json:"items"`
	HasNextPage bool         `json:"hasNextPage"`
}

func (call *guestCall) seriesPageFromWire(w wireSeriesPage) (types.Page[types.Series], error) {
	page := types.Page[types.Series]{HasNextPage: w.HasNextPage}
	for _, s := range w.Items {
		converted, err := call.seriesFromWire(s)
		if err != nil {
			return types.Page[types.Series]{}, err
		}
		page.Items = append(page.Items, converted)
	}
	return page, nil
}

type wireEpisode struct {
	ID                string            `json:"id"`
	Number            uint16            `json:"number"`
	Title             string            `json:"title,omitempty"`
	ThumbnailResource wireMediaResource `json:"thumbnailResource"`
	Description       string            `json:"description,omitempty"`
}

func (call *guestCall) episodeFromWire(w wireEpisode) (types.Episode, error) {
	thumb, err := call.resolveMediaResource(w.ThumbnailResource)
	if err != nil {
		return types.Episode{}, err
	}
	return types.Episode{
		ID:                w.ID,
		Number:            w.Number,
		Title:             w.Title,
		ThumbnailResource: thumb,
		Description:       w.Description,
	}, nil
}

type wireEpisodesPage struct {
	Items       []wireEpisode `json:"items"`
	HasNextPage bool          `json:"hasNextPage"`
}

func (call *guestCall) episodesPageFromWire(w wireEpisodesPage) (types.Page[types.Episode], error) {
	page := types.Page[types.Episode]{HasNextPage: w.HasNextPage}
	for _, e := range w.Items {
		converted, err := call.episodeFromWire(e)
		if err != nil {
			return types.Page[types.Episode]{}, err
		}
		page.Items = append(page.Items, converted)
	}
	return page, nil
}

type wireResolution struct {
	Width  uint16 `json:"width"`
	Height uint16 `json:"height"`
}

type wireVideo struct {
	MediaResource wireMediaResource `json:"mediaResource"`
	Server        string            `json:"server"`
	Resolution    wireResolution    `json:"resolution"`
}

func (call *guestCall) videoFromWire(w wireVideo) (types.Video, error) {
	resource, err := call.resolveMediaResource(w.MediaResource)
	if err != nil {
		return types.Video{}, err
	}
	return types.Video{
		MediaResource: resource,
		Server:        w.Server,
		Resolution:    types.Resolution{Width: w.Resolution.Width, Height: w.Resolution.Height},
	}, nil
}

// wireSearchFilter is the host->guest encoding of a caller-selected
// search filter.
type wireSearchFilter struct {
	ID     string   `json:"id"`
	Values []string `json:"values"`
}

func searchFiltersToWire(filters []types.SearchFilter) []wireSearchFilter {
	out := make([]wireSearchFilter, 0, len(filters))
	for _, f := range filters {
		out = append(out, wireSearchFilter{ID: f.ID, Values: f.Values})
	}
	return out
}

// wireHTTPRequest is what the guest passes to nero_outbound_http: the
// outgoing request it wants performed on its behalf, never executed
// by the host directly.
type wireHTTPRequest struct {
	Method  string              `json:"method"`
	URI     string              `json:"uri"`
	Headers map[string][]string `json:"headers,omitempty"`
	Body    []byte              `json:"body,omitempty"`
}

func (w wireHTTPRequest) toTypes() types.HTTPRequestRecord {
	headers := make(map[string][]string, len(w.Headers))
	for k, v := range w.Headers {
		headers[k] = v
	}
	return types.HTTPRequestRecord{
		Method:  w.Method,
		URI:     w.URI,
		Headers: headers,
		Body:    w.Body,
	}
}
