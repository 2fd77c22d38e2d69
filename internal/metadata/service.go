package metadata

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/marquee/marquee/internal/cache"
	"github.com/marquee/marquee/internal/config"
	"github.com/marquee/marquee/internal/metadata/mock"
	"github.com/marquee/marquee/internal/metadata/omdb"
	"github.com/marquee/marquee/internal/metrics"
)

// ServiceConfig holds the keywords and probe title used by the service.
type ServiceConfig struct {
	ProbeTitle      string
	TrendingKeyword string
	PopularKeyword  string
}

// DefaultServiceConfig returns the keywords the home page has always used.
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		ProbeTitle:      "inception",
		TrendingKeyword: "2023",
		PopularKeyword:  "marvel",
	}
}

// Service is the gateway between pages and the metadata provider. None of its
// methods return errors: transport failures and logical failures are logged and
// collapsed into "no data", which callers see as an empty slice, an absent
// detail or, for themed rows, the fallback catalog.
type Service struct {
	provider Provider
	cfg      ServiceConfig
	logger   zerolog.Logger
}

// NewService creates a metadata service backed by the OMDb client, or by the
// canned offline library when omdb.offline is set.
func NewService(cfg *config.Config, respCache *cache.Cache, logger zerolog.Logger) *Service {
	var provider Provider = omdb.NewClient(cfg.OMDB, respCache, logger)
	if cfg.OMDB.Offline {
		provider = mock.NewOMDBClient()
	}
	return NewServiceWithProvider(provider, ServiceConfig{
		ProbeTitle:      cfg.OMDB.ProbeTitle,
		TrendingKeyword: cfg.Browse.TrendingKeyword,
		PopularKeyword:  cfg.Browse.PopularKeyword,
	}, logger)
}

// NewServiceWithProvider creates a metadata service with a custom provider (for testing/mocking).
func NewServiceWithProvider(provider Provider, cfg ServiceConfig, logger zerolog.Logger) *Service {
	def := DefaultServiceConfig()
	if cfg.ProbeTitle == "" {
		cfg.ProbeTitle = def.ProbeTitle
	}
	if cfg.TrendingKeyword == "" {
		cfg.TrendingKeyword = def.TrendingKeyword
	}
	if cfg.PopularKeyword == "" {
		cfg.PopularKeyword = def.PopularKeyword
	}
	return &Service{
		provider: provider,
		cfg:      cfg,
		logger:   logger.With().Str("component", "metadata").Logger(),
	}
}

// SearchByTitle returns the provider's matches for query in provider order.
// A blank query returns nothing without touching the provider. No matches and
// failures both yield an empty result; search never substitutes the fallback.
func (s *Service) SearchByTitle(ctx context.Context, query string) []Movie {
	query = strings.TrimSpace(query)
	if query == "" {
		return []Movie{}
	}

	movies, err := s.search(ctx, query)
	if err != nil {
		s.logger.Info().Err(err).Str("query", query).Msg("No results found for search query")
		return []Movie{}
	}
	if len(movies) == 0 {
		s.logger.Info().Str("query", query).Msg("No results found for search query")
	}
	return movies
}

// FetchDetail returns the full record for id, or false when the provider has
// nothing for it or cannot be reached.
func (s *Service) FetchDetail(ctx context.Context, id string) (*Movie, bool) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, false
	}

	resp, err := s.provider.GetByID(ctx, id)
	if err != nil {
		s.logger.Info().Err(err).Str("imdbId", id).Msg("No details found for movie")
		return nil, false
	}

	movie := movieFromDetail(resp)
	if movie.ID == "" {
		movie.ID = id
	}
	return &movie, true
}

// EnsureDetail returns m unchanged when it already has a plot. Otherwise it
// performs exactly one detail fetch and returns the detail if one was found.
func (s *Service) EnsureDetail(ctx context.Context, m Movie) Movie {
	if m.HasPlot() {
		return m
	}
	if detail, ok := s.FetchDetail(ctx, m.ID); ok {
		return *detail
	}
	return m
}

// FetchByCategory fills a themed row from a keyword search. Unlike search, an
// empty result is treated like an outage: the row shows the fallback catalog.
func (s *Service) FetchByCategory(ctx context.Context, tag string) []Movie {
	return s.fetchRow(ctx, "genre", tag)
}

// FetchTrending fills the "Trending Now" row.
func (s *Service) FetchTrending(ctx context.Context) []Movie {
	return s.fetchRow(ctx, "trending", s.cfg.TrendingKeyword)
}

// FetchPopular fills the "Popular Movies" row.
func (s *Service) FetchPopular(ctx context.Context) []Movie {
	return s.fetchRow(ctx, "popular", s.cfg.PopularKeyword)
}

// CheckAvailability probes the provider once and reports whether it answered
// with a logically successful response. It only drives the "source unavailable"
// banner and never gates other calls.
func (s *Service) CheckAvailability(ctx context.Context) bool {
	if !s.provider.IsConfigured() {
		metrics.SetAvailable(false)
		return false
	}

	_, err := s.provider.GetByTitle(ctx, s.cfg.ProbeTitle)
	ok := err == nil
	if !ok {
		s.logger.Warn().Err(err).Str("provider", s.provider.Name()).Msg("Metadata provider unavailable")
	}
	metrics.SetAvailable(ok)
	return ok
}

func (s *Service) fetchRow(ctx context.Context, row, keyword string) []Movie {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return s.fallback(row, keyword, nil)
	}

	movies, err := s.search(ctx, keyword)
	if err != nil || len(movies) == 0 {
		return s.fallback(row, keyword, err)
	}
	return movies
}

func (s *Service) fallback(row, keyword string, err error) []Movie {
	s.logger.Info().Err(err).Str("row", row).Str("keyword", keyword).Msg("Using fallback catalog")
	metrics.FallbackServed.WithLabelValues(row).Inc()
	return FallbackCatalog()
}

func (s *Service) search(ctx context.Context, query string) ([]Movie, error) {
	results, err := s.provider.Search(ctx, query)
	if err != nil {
		return nil, err
	}

	movies := make([]Movie, 0, len(results))
	for _, r := range results {
		if strings.TrimSpace(r.ImdbID) == "" {
			continue
		}
		movies = append(movies, movieFromSearch(r))
	}
	return movies, nil
}
