// Package filenameparser extracts best-effort title/year/season/episode
// metadata from a torrent file's base name. A real implementation
// would wrap a dedicated anime-filename grammar; this package ships
// one conservative regex-based parser behind the Parser interface so
// the resolver has something to run against, and so the interface
// boundary stays swappable.
package filenameparser

import (
	"regexp"
	"strconv"
	"strings"

	"nero/pkg/types"
)

// Parser extracts metadata from a single filename. Implementations
// are expected to return the zero value (an empty ParsedFilename) on
// anything they can't confidently parse, rather than erroring.
type Parser interface {
	Parse(name string) types.ParsedFilename
}

var notEpisodeKinds = map[string]bool{
	"op": true, "opening": true, "ncop": true,
	"ed": true, "ending": true, "nced": true,
	"pv": true, "preview": true, "trailer": true, "cm": true,
}

// IsEpisodeKind reports whether kind (as returned in a ParsedFilename)
// denotes an actual episode rather than an opening/ending/preview/etc.
func IsEpisodeKind(kind string) bool {
	return !notEpisodeKinds[strings.ToLower(kind)]
}

var (
	yearRE    = regexp.MustCompile(`\((\d{4})\)|\[(\d{4})\]|\b(19|20)\d{2}\b`)
	seasonRE  = regexp.MustCompile(`(?i)\bS(\d{1,2})(?:\b|E\d)|\bSeason\s*(\d{1,2})\b`)
	episodeRE = regexp.MustCompile(`(?i)\bS\d{1,2}E(\d{1,3})\b|\bE(?:p(?:isode)?)?\.?\s*(\d{1,3})\b|[\s_\-](\d{1,3})(?:v\d)?(?:\s*\[|\s*\(|\.\w{2,4}$|\s|$)`)
	kindRE    = regexp.MustCompile(`(?i)\b(OP|Opening|NCOP|ED|Ending|NCED|PV|Preview|Trailer|CM)\d*\b`)
	bracketRE = regexp.MustCompile(`[\[\(][^\]\)]*[\]\)]`)
)

// RegexParser is the conservative built-in Parser.
type RegexParser struct{}

// New returns the default regex-based Parser.
func New() Parser { return RegexParser{} }

// Parse implements Parser. It strips the file extension and any
// bracketed release-group/quality tags first, then looks for a year,
// season, episode number and op/ed/preview "kind" marker, treating
// whatever precedes the first such marker as the title.
func (RegexParser) Parse(name string) types.ParsedFilename {
	base := strings.TrimSuffix(name, extOf(name))

	var result types.ParsedFilename

	if m := kindRE.FindString(base); m != "" {
		result.Kind = strings.ToLower(strings.TrimRight(m, "0123456789"))
	}

	if m := yearRE.FindStringSubmatch(base); m != nil {
		for _, g := range m[1:] {
			if g != "" {
				result.Year = g
				break
			}
		}
	}

	if m := seasonRE.FindStringSubmatch(base); m != nil {
		for _, g := range m[1:] {
			if g != "" {
				if n, err := strconv.Atoi(g); err == nil {
					result.Season = strconv.Itoa(n)
				}
				break
			}
		}
	}

	if m := episodeRE.FindStringSubmatch(base); m != nil {
		for _, g := range m[1:] {
			if g != "" {
				if n, err := strconv.Atoi(g); err == nil {
					result.Episode = strconv.Itoa(n)
				}
				break
			}
		}
	}

	title := bracketRE.ReplaceAllString(base, " ")
	if idx := episodeRE.FindStringIndex(title); idx != nil {
		title = title[:idx[0]]
	}
	title = strings.NewReplacer(".", " ", "_", " ").Replace(title)
	result.Title = strings.TrimSpace(collapseSpaces(title))

	return result
}

func extOf(name string) string {
	if i := strings.LastIndexByte(name, '.'); i >= 0 && i > strings.LastIndexByte(name, '/') {
		return name[i:]
	}
	return ""
}

var spaceRunRE = regexp.MustCompile(`\s+`)

func collapseSpaces(s string) string {
	return spaceRunRE.ReplaceAllString(s, " ")
}
