package metadata

import (
	"context"

	"github.com/marquee/marquee/internal/metadata/mock"
	"github.com/marquee/marquee/internal/metadata/omdb"
)

// Provider defines the metadata provider operations the service needs.
type Provider interface {
	Name() string
	IsConfigured() bool
	Search(ctx context.Context, query string) ([]omdb.SearchResult, error)
	GetByID(ctx context.Context, imdbID string) (*omdb.Response, error)
	GetByTitle(ctx context.Context, title string) (*omdb.Response, error)
}

var (
	_ Provider = (*omdb.Client)(nil)
	_ Provider = (*mock.OMDBClient)(nil)
)
