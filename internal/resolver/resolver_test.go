package resolver

import (
	"context"
	"testing"

	"nero/internal/filenameparser"
	"nero/pkg/types"
)

type fakeSearcher struct {
	pages map[string][]types.Page[types.Series]
	calls int
}

func (f *fakeSearcher) Search(ctx context.Context, query string, page int, filters []types.SearchFilter) (types.Page[types.Series], error) {
	f.calls++
	pages, ok := f.pages[query]
	if !ok || page < 1 || page > len(pages) {
		return types.Page[types.Series]{}, nil
	}
	return pages[page-1], nil
}

func TestFindEpisodeConfirmsViaAlternativeTitle(t *testing.T) {
	files := []types.TorrentFile{
		{Index: 0, Name: "[Group] My Show S02E01 [1080p].mkv"},
		{Index: 1, Name: "[Group] My Show S02E02 [1080p].mkv"},
	}

	searcher := &fakeSearcher{
		pages: map[string][]types.Page[types.Series]{
			"My Show 2nd Season": {
				{Items: []types.Series{{ID: "series-42", Title: "My Show Season 2"}}, HasNextPage: false},
			},
		},
	}

	r := New(filenameparser.New())
	idx, ok, err := r.FindEpisode(context.Background(), searcher, files, "series-42", 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok || idx != 1 {
		t.Fatalf("expected episode 2 to resolve to index 1, got idx=%d ok=%v", idx, ok)
	}
}

func TestFindEpisodeNoMatchingSeries(t *testing.T) {
	files := []types.TorrentFile{
		{Index: 0, Name: "Unrelated Show - 01.mkv"},
	}
	searcher := &fakeSearcher{pages: map[string][]types.Page[types.Series]{}}

	r := New(filenameparser.New())
	_, ok, err := r.FindEpisode(context.Background(), searcher, files, "series-42", 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatalf("expected no match")
	}
}

func TestFindEpisodeSkipsOpeningFiles(t *testing.T) {
	files := []types.TorrentFile{
		{Index: 0, Name: "[Group] My Show NCOP [1080p].mkv"},
		{Index: 1, Name: "[Group] My Show S01E01 [1080p].mkv"},
	}
	searcher := &fakeSearcher{
		pages: map[string][]types.Page[types.Series]{
			"My Show": {
				{Items: []types.Series{{ID: "series-1"}}, HasNextPage: false},
			},
		},
	}

	r := New(filenameparser.New())
	idx, ok, err := r.FindEpisode(context.Background(), searcher, files, "series-1", 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok || idx != 1 {
		t.Fatalf("expected episode 1 to resolve to index 1 (opening excluded), got idx=%d ok=%v", idx, ok)
	}
}
