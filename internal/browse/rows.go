// Package browse composes the home page: themed rows fetched concurrently and
// delivered as each one resolves.
package browse

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// RowKind selects which service call fills a row.
type RowKind string

const (
	KindTrending RowKind = "trending"
	KindPopular  RowKind = "popular"
	KindGenre    RowKind = "genre"
)

// RowSpec declares one row of the home page.
type RowSpec struct {
	ID    string  `json:"id"`
	Title string  `json:"title"`
	Kind  RowKind `json:"kind"`
	Tag   string  `json:"tag,omitempty"`
}

// Titles the home page has always shown for the stock genres.
var genreTitles = map[string]string{
	"action":  "Action Movies",
	"comedy":  "Comedies",
	"horror":  "Horror",
	"romance": "Romance",
}

// GenreTitle returns the display title for a genre tag.
func GenreTitle(tag string) string {
	tag = strings.ToLower(strings.TrimSpace(tag))
	if title, ok := genreTitles[tag]; ok {
		return title
	}
	return cases.Title(language.Und).String(tag)
}

// DefaultRows returns Trending Now and Popular Movies followed by one row per genre.
func DefaultRows(genres []string) []RowSpec {
	rows := []RowSpec{
		{ID: "trending", Title: "Trending Now", Kind: KindTrending},
		{ID: "popular", Title: "Popular Movies", Kind: KindPopular},
	}
	for _, g := range genres {
		tag := strings.ToLower(strings.TrimSpace(g))
		if tag == "" {
			continue
		}
		rows = append(rows, RowSpec{ID: tag, Title: GenreTitle(tag), Kind: KindGenre, Tag: tag})
	}
	return rows
}
