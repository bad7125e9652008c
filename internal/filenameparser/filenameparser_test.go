package filenameparser

import "testing"

func TestParseSeasonEpisode(t *testing.T) {
	p := New()
	got := p.Parse("[Group] Some Show S02E07 [1080p].mkv")

	if got.Title == "" {
		t.Fatalf("expected non-empty title, got %+v", got)
	}
	if got.Season != "2" {
		t.Fatalf("expected season 2, got %q", got.Season)
	}
	if got.Episode != "7" {
		t.Fatalf("expected episode 7, got %q", got.Episode)
	}
}

func TestParseOpeningIsNotAnEpisode(t *testing.T) {
	p := New()
	got := p.Parse("[Group] Some Show NCOP01 [1080p].mkv")

	if IsEpisodeKind(got.Kind) {
		t.Fatalf("expected NCOP to be classified as a non-episode kind, got %q", got.Kind)
	}
}

func TestHasTitleAndEpisode(t *testing.T) {
	p := New()
	got := p.Parse("Another Show - 12.mkv")
	if !got.HasTitleAndEpisode() {
		t.Fatalf("expected title+episode to be present, got %+v", got)
	}
}
