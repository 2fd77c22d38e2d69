// Package mock provides an offline stand-in for the OMDb provider. It answers
// from a small canned library so the server and CLI work without a network or
// an API key.
package mock

import (
	"context"
	"fmt"
	"strings"

	"github.com/marquee/marquee/internal/metadata/omdb"
)

// OMDBClient is an in-memory implementation of the OMDb provider surface.
type OMDBClient struct {
	library []omdb.Response
}

// NewOMDBClient creates a mock client over the canned library.
func NewOMDBClient() *OMDBClient {
	lib := make([]omdb.Response, len(library))
	copy(lib, library)
	return &OMDBClient{library: lib}
}

func (c *OMDBClient) Name() string {
	return "omdb-mock"
}

func (c *OMDBClient) IsConfigured() bool {
	return true
}

// Search matches query case-insensitively against title, genre and year.
// Like the real provider, no match is reported as not found.
func (c *OMDBClient) Search(ctx context.Context, query string) ([]omdb.SearchResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	q := strings.ToLower(strings.TrimSpace(query))
	var results []omdb.SearchResult
	for _, r := range c.library {
		haystack := strings.ToLower(r.Title + " " + r.Genre + " " + r.Year)
		if q != "" && strings.Contains(haystack, q) {
			results = append(results, omdb.SearchResult{
				Title:  r.Title,
				Year:   r.Year,
				ImdbID: r.ImdbID,
				Type:   r.Type,
				Poster: r.Poster,
			})
		}
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("%w: %q", omdb.ErrNotFound, query)
	}
	return results, nil
}

func (c *OMDBClient) GetByID(ctx context.Context, imdbID string) (*omdb.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for _, r := range c.library {
		if r.ImdbID == imdbID {
			out := r
			return &out, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", omdb.ErrNotFound, imdbID)
}

func (c *OMDBClient) GetByTitle(ctx context.Context, title string) (*omdb.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for _, r := range c.library {
		if strings.EqualFold(r.Title, strings.TrimSpace(title)) {
			out := r
			return &out, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", omdb.ErrNotFound, title)
}

var library = []omdb.Response{
	{
		Title:      "Inception",
		Year:       "2010",
		Genre:      "Action, Adventure, Sci-Fi",
		Plot:       "A thief who steals corporate secrets through dream-sharing technology is given the task of planting an idea into the mind of a C.E.O.",
		Poster:     omdb.NotAvailable,
		ImdbRating: "8.8",
		ImdbID:     "tt1375666",
		Type:       "movie",
		Response:   "True",
	},
	{
		Title:      "The Matrix",
		Year:       "1999",
		Genre:      "Action, Sci-Fi",
		Plot:       "A computer hacker learns about the true nature of his reality and his role in the war against its controllers.",
		Poster:     omdb.NotAvailable,
		ImdbRating: "8.7",
		ImdbID:     "tt0133093",
		Type:       "movie",
		Response:   "True",
	},
	{
		Title:      "Guardians of the Galaxy Vol. 3",
		Year:       "2023",
		Genre:      "Action, Adventure, Comedy",
		Plot:       "Still reeling from the loss of Gamora, Peter Quill rallies his team to defend the universe and one of their own.",
		Poster:     omdb.NotAvailable,
		ImdbRating: "7.9",
		ImdbID:     "tt6791350",
		Type:       "movie",
		Response:   "True",
	},
	{
		Title:      "Oppenheimer",
		Year:       "2023",
		Genre:      "Biography, Drama, History",
		Plot:       "The story of J. Robert Oppenheimer's role in the development of the atomic bomb during World War II.",
		Poster:     omdb.NotAvailable,
		ImdbRating: "8.3",
		ImdbID:     "tt15398776",
		Type:       "movie",
		Response:   "True",
	},
	{
		Title:      "The Avengers",
		Year:       "2012",
		Genre:      "Action, Sci-Fi",
		Plot:       "Earth's mightiest heroes must come together to stop the mischievous Loki and his alien army from enslaving humanity.",
		Poster:     omdb.NotAvailable,
		ImdbRating: "8.0",
		ImdbID:     "tt0848228",
		Type:       "movie",
		Response:   "True",
	},
	{
		Title:      "Superbad",
		Year:       "2007",
		Genre:      "Comedy",
		Plot:       "Two co-dependent high school seniors are forced to deal with separation anxiety after their plan to stage a booze-soaked party goes awry.",
		Poster:     omdb.NotAvailable,
		ImdbRating: "7.6",
		ImdbID:     "tt0829482",
		Type:       "movie",
		Response:   "True",
	},
	{
		Title:      "Hereditary",
		Year:       "2018",
		Genre:      "Drama, Horror, Mystery",
		Plot:       "A grieving family is haunted by tragic and disturbing occurrences.",
		Poster:     omdb.NotAvailable,
		ImdbRating: "7.3",
		ImdbID:     "tt7784604",
		Type:       "movie",
		Response:   "True",
	},
	{
		Title:      "Pride & Prejudice",
		Year:       "2005",
		Genre:      "Drama, Romance",
		Plot:       "Sparks fly when spirited Elizabeth Bennet meets single, rich, and proud Mr. Darcy.",
		Poster:     omdb.NotAvailable,
		ImdbRating: "7.8",
		ImdbID:     "tt0414387",
		Type:       "movie",
		Response:   "True",
	},
}
