package omdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"

	"github.com/marquee/marquee/internal/cache"
	"github.com/marquee/marquee/internal/config"
	"github.com/marquee/marquee/internal/metrics"
	"github.com/marquee/marquee/internal/tracing"
)

var (
	ErrAPIKeyMissing = errors.New("OMDb API key is not configured")
	ErrNotFound      = errors.New("not found on OMDb")
	ErrAPIError      = errors.New("OMDb API error")
)

// maxBodySize bounds a single provider payload.
const maxBodySize = 4 << 20

// Client is an OMDb API client.
type Client struct {
	httpClient *http.Client
	config     config.OMDBConfig
	cache      *cache.Cache
	logger     zerolog.Logger
}

// NewClient creates a new OMDb client. respCache may be nil to disable caching.
func NewClient(cfg config.OMDBConfig, respCache *cache.Cache, logger zerolog.Logger) *Client {
	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		config:     cfg,
		cache:      respCache,
		logger:     logger.With().Str("component", "omdb").Logger(),
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return "omdb"
}

// IsConfigured returns true if the API key is set.
func (c *Client) IsConfigured() bool {
	return c.config.APIKey != ""
}

// Search runs a movie title search.
func (c *Client) Search(ctx context.Context, query string) ([]SearchResult, error) {
	params := url.Values{}
	params.Set("s", query)
	params.Set("type", "movie")

	var resp SearchResponse
	if err := c.get(ctx, "search", params, true, &resp); err != nil {
		return nil, err
	}
	return resp.Search, nil
}

// GetByID fetches the full record for an IMDb ID.
func (c *Client) GetByID(ctx context.Context, imdbID string) (*Response, error) {
	if imdbID == "" {
		return nil, ErrNotFound
	}

	params := url.Values{}
	params.Set("i", imdbID)
	params.Set("plot", "full")

	var resp Response
	if err := c.get(ctx, "detail", params, true, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetByTitle looks up a single title. It bypasses the response cache so the
// result reflects current reachability.
func (c *Client) GetByTitle(ctx context.Context, title string) (*Response, error) {
	params := url.Values{}
	params.Set("t", title)

	var resp Response
	if err := c.get(ctx, "probe", params, false, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Test verifies connectivity to the OMDb API.
func (c *Client) Test(ctx context.Context) error {
	title := c.config.ProbeTitle
	if title == "" {
		title = "inception"
	}
	_, err := c.GetByTitle(ctx, title)
	return err
}

// get performs one provider request. Transport failures, non-200 statuses and
// Response:"False" payloads all come back as errors; only logically successful
// payloads are cached.
func (c *Client) get(ctx context.Context, op string, params url.Values, useCache bool, out any) (err error) {
	if !c.IsConfigured() {
		return ErrAPIKeyMissing
	}

	cacheKey := op + "?" + params.Encode()

	ctx, span := tracing.StartSpan(ctx, "omdb."+op, attribute.String("omdb.params", params.Encode()))
	defer func() {
		tracing.RecordError(span, err)
		span.End()
	}()

	if useCache && c.cache != nil {
		if body, ok := c.cache.Get(ctx, cacheKey); ok {
			span.SetAttributes(attribute.Bool("cache.hit", true))
			c.logger.Debug().Str("key", cacheKey).Msg("Provider cache hit")
			return json.Unmarshal(body, out)
		}
	}

	start := time.Now()
	body, err := c.fetch(ctx, params)
	if err != nil {
		outcome := "transport_error"
		switch {
		case errors.Is(err, ErrNotFound):
			outcome = "not_found"
		case errors.Is(err, ErrAPIError):
			outcome = "api_error"
		}
		metrics.ObserveProvider(op, outcome, start)
		return err
	}
	metrics.ObserveProvider(op, "ok", start)

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	if useCache && c.cache != nil {
		c.cache.Set(ctx, cacheKey, body)
	}
	return nil
}

// fetch returns the raw body of a logically successful response.
func (c *Client) fetch(ctx context.Context, params url.Values) ([]byte, error) {
	q := url.Values{}
	for k, v := range params {
		q[k] = v
	}
	q.Set("apikey", c.config.APIKey)

	reqURL := fmt.Sprintf("%s?%s", strings.TrimRight(c.config.BaseURL, "?"), q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	c.logger.Debug().Str("params", params.Encode()).Msg("Fetching from OMDb")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error().Err(err).Str("params", params.Encode()).Msg("HTTP request failed")
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Error().Int("status", resp.StatusCode).Str("params", params.Encode()).Msg("OMDb returned non-OK status")
		return nil, fmt.Errorf("%w: status %d", ErrAPIError, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var st status
	if err := json.Unmarshal(body, &st); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if st.Response == "False" {
		if isNotFound(st.Error) {
			c.logger.Debug().Str("error", st.Error).Str("params", params.Encode()).Msg("OMDb found nothing")
			return nil, fmt.Errorf("%w: %s", ErrNotFound, st.Error)
		}
		c.logger.Warn().Str("error", st.Error).Str("params", params.Encode()).Msg("OMDb API returned error")
		return nil, fmt.Errorf("%w: %s", ErrAPIError, st.Error)
	}

	return body, nil
}

func isNotFound(msg string) bool {
	switch msg {
	case "Movie not found!", "Incorrect IMDb ID.", "Series not found!":
		return true
	}
	return false
}
