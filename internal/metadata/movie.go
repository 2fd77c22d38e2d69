package metadata

import (
	"math"
	"strconv"
	"strings"

	"github.com/marquee/marquee/internal/metadata/omdb"
)

// Movie is a single widening record used for both search summaries and full
// details. ID is the only stable identity; every other field is best-effort and
// empty when the provider had nothing (including its "N/A" sentinel).
type Movie struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Poster   string `json:"poster,omitempty"`
	Year     string `json:"year,omitempty"`
	Type     string `json:"type,omitempty"`
	Released string `json:"released,omitempty"`
	Runtime  string `json:"runtime,omitempty"`
	Genre    string `json:"genre,omitempty"`
	Director string `json:"director,omitempty"`
	Cast     string `json:"cast,omitempty"`
	Plot     string `json:"plot,omitempty"`
	Rating   string `json:"rating,omitempty"`
}

// HasPlot reports whether the record already carries detail-level data.
func (m Movie) HasPlot() bool {
	return m.Plot != ""
}

// HasPoster reports whether a real poster URL is available.
func (m Movie) HasPoster() bool {
	return m.Poster != ""
}

// PosterURL returns the poster or placeholder when there is none.
func (m Movie) PosterURL(placeholder string) string {
	if m.HasPoster() {
		return m.Poster
	}
	return placeholder
}

// MatchPercentage derives the "% match" badge as rating × 10, clamped to
// [0,100]. ok is false when the rating is absent or not a number.
func (m Movie) MatchPercentage() (pct int, ok bool) {
	if m.Rating == "" {
		return 0, false
	}
	rating, err := strconv.ParseFloat(m.Rating, 64)
	if err != nil || math.IsNaN(rating) {
		return 0, false
	}
	pct = int(math.Round(rating * 10))
	return min(max(pct, 0), 100), true
}

// field strips the provider's not-available sentinel.
func field(s string) string {
	s = strings.TrimSpace(s)
	if s == omdb.NotAvailable {
		return ""
	}
	return s
}

func movieFromSearch(r omdb.SearchResult) Movie {
	return Movie{
		ID:     strings.TrimSpace(r.ImdbID),
		Title:  field(r.Title),
		Poster: field(r.Poster),
		Year:   field(r.Year),
		Type:   field(r.Type),
	}
}

func movieFromDetail(r *omdb.Response) Movie {
	return Movie{
		ID:       strings.TrimSpace(r.ImdbID),
		Title:    field(r.Title),
		Poster:   field(r.Poster),
		Year:     field(r.Year),
		Type:     field(r.Type),
		Released: field(r.Released),
		Runtime:  field(r.Runtime),
		Genre:    field(r.Genre),
		Director: field(r.Director),
		Cast:     field(r.Actors),
		Plot:     field(r.Plot),
		Rating:   field(r.ImdbRating),
	}
}
