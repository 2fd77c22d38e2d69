package metadata

import (
	"testing"

	"github.com/marquee/marquee/internal/metadata/omdb"
)

func TestMovie_MatchPercentage(t *testing.T) {
	tests := []struct {
		rating string
		want   int
		wantOK bool
	}{
		{"8.8", 88, true},
		{"9.3", 93, true},
		{"0", 0, true},
		{"10", 100, true},
		{"7.25", 73, true},
		{"12.5", 100, true}, // malformed provider data is clamped
		{"-1", 0, true},
		{"", 0, false},
		{"abc", 0, false},
		{"NaN", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.rating, func(t *testing.T) {
			got, ok := Movie{Rating: tt.rating}.MatchPercentage()
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("MatchPercentage(%q) = (%d, %v), want (%d, %v)", tt.rating, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestMovie_PosterURL(t *testing.T) {
	const placeholder = "/placeholder.svg"

	withPoster := Movie{Poster: "https://img/x.jpg"}
	if got := withPoster.PosterURL(placeholder); got != "https://img/x.jpg" {
		t.Errorf("PosterURL() = %q", got)
	}

	noPoster := movieFromSearch(omdb.SearchResult{ImdbID: "tt1", Title: "X", Poster: "N/A"})
	if noPoster.HasPoster() {
		t.Error("N/A poster should not count as a poster")
	}
	if got := noPoster.PosterURL(placeholder); got != placeholder {
		t.Errorf("PosterURL() = %q, want placeholder", got)
	}
}

func TestMovieFromDetail_StripsSentinels(t *testing.T) {
	m := movieFromDetail(&omdb.Response{
		ImdbID:     " tt1 ",
		Title:      "Title",
		Year:       "N/A",
		Runtime:    "N/A",
		Genre:      "Drama",
		Director:   "N/A",
		Actors:     "N/A",
		Plot:       "N/A",
		ImdbRating: "N/A",
	})

	if m.ID != "tt1" {
		t.Errorf("ID = %q, want trimmed", m.ID)
	}
	if m.Year != "" || m.Runtime != "" || m.Director != "" || m.Cast != "" || m.Rating != "" {
		t.Errorf("sentinels not stripped: %+v", m)
	}
	if m.HasPlot() {
		t.Error("N/A plot must count as absent so a detail fetch is triggered")
	}
	if m.Genre != "Drama" {
		t.Errorf("Genre = %q", m.Genre)
	}
}
