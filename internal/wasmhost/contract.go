package wasmhost

import (
	"context"
	"fmt"
	"sort"

	"github.com/Masterminds/semver/v3"

	"nero/pkg/types"
)

// protocol performs the five guest operations for one contract
// version. Adding a newer guest contract means adding a new protocol
// implementation and a new entry in bindingTable, in descending
// min-version order — existing protocol implementations never change
// to accommodate a new version.
type protocol interface {
	Filters(ctx context.Context, ext *Extension) ([]types.FilterCategory, error)
	Search(ctx context.Context, ext *Extension, query string, page int, filters []types.SearchFilter) (types.Page[types.Series], error)
	GetSeriesInfo(ctx context.Context, ext *Extension, seriesID string) (types.Series, error)
	GetSeriesEpisodes(ctx context.Context, ext *Extension, seriesID string, page int) (types.Page[types.Episode], error)
	GetSeriesVideos(ctx context.Context, ext *Extension, seriesID, episodeID string) ([]types.Video, error)
}

type contractBinding struct {
	minVersion *semver.Version
	protocol   protocol
}

// bindingTable lists every contract the host can speak to a guest,
// highest minimum-version first. selectBinding picks the first entry
// whose minVersion is <= the guest's declared version.
var bindingTable = []contractBinding{
	{minVersion: semver.MustParse("0.1.0-draft"), protocol: v0_1_0draftProtocol{}},
}

func init() {
	sort.SliceStable(bindingTable, func(i, j int) bool {
		return bindingTable[i].minVersion.GreaterThan(bindingTable[j].minVersion)
	})
}

func selectBinding(version *semver.Version) (contractBinding, error) {
	for _, b := range bindingTable {
		if version.Compare(b.minVersion) >= 0 {
			return b, nil
		}
	}
	return contractBinding{}, fmt.Errorf("wasmhost: unsupported extension version %s", version)
}
