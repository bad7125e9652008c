// Package resolver maps a caller-requested (series, episode) pair onto
// a torrent file index, when all the caller has is a filename-derived
// guess at what each file inside the torrent actually contains. It
// groups files by a parsed title/year/season key, and confirms each
// candidate group really is the requested series by searching the
// extension for alternative titles derived from the group and
// checking the result against the caller's series ID, rather than
// trusting the filename's title text directly.
package resolver

import (
	"context"
	"fmt"
	"strconv"

	"nero/internal/filenameparser"
	"nero/pkg/types"
)

// Searcher is the subset of the extension's surface the resolver
// needs: paginated search by free-text query and optional filters.
// The wasm extension host satisfies this directly.
type Searcher interface {
	Search(ctx context.Context, query string, page int, filters []types.SearchFilter) (types.Page[types.Series], error)
}

// Resolver finds which file within a torrent corresponds to a given
// episode of a given series.
type Resolver struct {
	parser filenameparser.Parser
}

// New builds a Resolver backed by parser.
func New(parser filenameparser.Parser) *Resolver {
	return &Resolver{parser: parser}
}

type parsedFile struct {
	index  int
	parsed types.ParsedFilename
}

// FindEpisode returns the index of the file within files that is
// episodeNumber of the series identified by seriesID, or ok=false if
// no file's group can be confirmed to belong to that series.
func (r *Resolver) FindEpisode(ctx context.Context, searcher Searcher, files []types.TorrentFile, seriesID string, episodeNumber int) (index int, ok bool, err error) {
	groups := r.groupEpisodes(files)

	for _, group := range groups {
		target, found, gerr := r.resolveGroup(ctx, searcher, group, seriesID, episodeNumber)
		if gerr != nil {
			return 0, false, gerr
		}
		if found {
			return target, true, nil
		}
	}
	return 0, false, nil
}

// groupEpisodes parses every file, keeps only the ones that look like
// actual episodes (title + episode number present, kind not an
// opening/ending/preview marker), and groups them by title+year+season.
func (r *Resolver) groupEpisodes(files []types.TorrentFile) [][]parsedFile {
	order := make([]string, 0, len(files))
	byKey := make(map[string][]parsedFile)

	for _, f := range files {
		parsed := r.parser.Parse(f.Name)
		if !parsed.HasTitleAndEpisode() {
			continue
		}
		if !filenameparser.IsEpisodeKind(parsed.Kind) {
			continue
		}

		key := titleKey(parsed)
		if _, seen := byKey[key]; !seen {
			order = append(order, key)
		}
		byKey[key] = append(byKey[key], parsedFile{index: f.Index, parsed: parsed})
	}

	groups := make([][]parsedFile, 0, len(order))
	for _, k := range order {
		groups = append(groups, byKey[k])
	}
	return groups
}

func titleKey(p types.ParsedFilename) string {
	key := p.Title
	if p.Year != "" {
		key += p.Year
	}
	if p.Season != "" {
		key += "S" + p.Season
	}
	return key
}

// resolveGroup confirms one title group really is seriesID by
// searching the extension for each alternative title derived from the
// group's representative file, then (only once confirmed) looks for
// the group member whose parsed episode number matches.
func (r *Resolver) resolveGroup(ctx context.Context, searcher Searcher, group []parsedFile, seriesID string, episodeNumber int) (int, bool, error) {
	if len(group) == 0 {
		return 0, false, nil
	}
	representative := group[0].parsed

	confirmed, err := r.confirmSeries(ctx, searcher, representative, seriesID)
	if err != nil {
		return 0, false, err
	}
	if !confirmed {
		return 0, false, nil
	}

	for _, f := range group {
		n, err := strconv.Atoi(f.parsed.Episode)
		if err != nil {
			continue
		}
		if n == episodeNumber {
			return f.index, true, nil
		}
	}
	return 0, false, nil
}

func (r *Resolver) confirmSeries(ctx context.Context, searcher Searcher, parsed types.ParsedFilename, seriesID string) (bool, error) {
	for _, title := range alternativeTitles(parsed) {
		found, err := searchAllPages(ctx, searcher, title, seriesID)
		if err != nil {
			return false, err
		}
		if found {
			return true, nil
		}
	}
	return false, nil
}

// searchAllPages pages through the extension's search results for
// query looking for seriesID, stopping as soon as it's found or the
// extension reports no further pages.
func searchAllPages(ctx context.Context, searcher Searcher, query, seriesID string) (bool, error) {
	for page := 1; ; page++ {
		result, err := searcher.Search(ctx, query, page, nil)
		if err != nil {
			return false, fmt.Errorf("resolver: search %q page %d: %w", query, page, err)
		}
		for _, s := range result.Items {
			if s.ID == seriesID {
				return true, nil
			}
		}
		if !result.HasNextPage {
			return false, nil
		}
	}
}

// alternativeTitles expands a parsed title into season-qualified
// variants ("Title 2", "Title 2nd Season", "Title Season 2") in
// addition to the bare title, since the extension's own catalog may
// title a season differently than the torrent's release name does.
func alternativeTitles(p types.ParsedFilename) []string {
	if p.Title == "" {
		return nil
	}
	titles := []string{p.Title}

	season, err := strconv.Atoi(p.Season)
	if err != nil || season <= 0 {
		return titles
	}

	postfix := "th"
	switch season {
	case 1:
		postfix = "st"
	case 2:
		postfix = "nd"
	case 3:
		postfix = "rd"
	}

	titles = append(titles,
		fmt.Sprintf("%s %d", p.Title, season),
		fmt.Sprintf("%s %d%s Season", p.Title, season, postfix),
		fmt.Sprintf("%s Season %d", p.Title, season),
	)
	return titles
}
