package browse

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/marquee/marquee/internal/metadata"
)

// Fetcher is the part of the metadata service the home page needs.
type Fetcher interface {
	FetchTrending(ctx context.Context) []metadata.Movie
	FetchPopular(ctx context.Context) []metadata.Movie
	FetchByCategory(ctx context.Context, tag string) []metadata.Movie
	CheckAvailability(ctx context.Context) bool
}

var _ Fetcher = (*metadata.Service)(nil)

// Row is a resolved row. Index is its position in the declared layout.
type Row struct {
	RowSpec
	Index  int              `json:"index"`
	Movies []metadata.Movie `json:"movies"`
}

// Home is the composed home page.
type Home struct {
	Featured  *metadata.Movie `json:"featured,omitempty"`
	Rows      []Row           `json:"rows"`
	Available bool            `json:"available"`
}

// Loader fetches rows concurrently.
type Loader struct {
	fetcher Fetcher
	rows    []RowSpec
	logger  zerolog.Logger
}

// NewLoader creates a loader for rows.
func NewLoader(fetcher Fetcher, rows []RowSpec, logger zerolog.Logger) *Loader {
	return &Loader{
		fetcher: fetcher,
		rows:    rows,
		logger:  logger.With().Str("component", "browse").Logger(),
	}
}

// Rows returns the declared layout.
func (l *Loader) Rows() []RowSpec {
	out := make([]RowSpec, len(l.rows))
	copy(out, l.rows)
	return out
}

// Stream starts every row fetch at once and calls emit for each row as soon
// as it resolves, in completion order. There is no barrier between rows.
// emit calls are serialized. Stream returns when every row has been emitted.
func (l *Loader) Stream(ctx context.Context, emit func(Row)) error {
	var (
		g  errgroup.Group
		mu sync.Mutex
	)

	for i, spec := range l.rows {
		g.Go(func() error {
			row := Row{RowSpec: spec, Index: i, Movies: l.fetch(ctx, spec)}

			mu.Lock()
			defer mu.Unlock()
			emit(row)
			return nil
		})
	}
	return g.Wait()
}

// Load fetches every row and returns them in declared order.
func (l *Loader) Load(ctx context.Context) []Row {
	rows := make([]Row, len(l.rows))
	l.Stream(ctx, func(r Row) {
		rows[r.Index] = r
	})
	return rows
}

// Home loads every row and the availability banner flag concurrently. The
// featured movie is the first entry of the first trending row.
func (l *Loader) Home(ctx context.Context) Home {
	var (
		g         errgroup.Group
		rows      []Row
		available bool
	)

	g.Go(func() error {
		rows = l.Load(ctx)
		return nil
	})
	g.Go(func() error {
		available = l.fetcher.CheckAvailability(ctx)
		return nil
	})
	g.Wait()

	home := Home{Rows: rows, Available: available}
	for _, r := range rows {
		if r.Kind == KindTrending && len(r.Movies) > 0 {
			featured := r.Movies[0]
			home.Featured = &featured
			break
		}
	}
	return home
}

// StreamInto streams rows into view. Rows that resolve after the view was
// disposed or reloaded are dropped. It returns the number of rows applied.
func (l *Loader) StreamInto(ctx context.Context, view *View, apply func(Row)) int {
	gen := view.Begin()
	applied := 0
	l.Stream(ctx, func(r Row) {
		if view.Apply(gen, func() { apply(r) }) {
			applied++
			return
		}
		l.logger.Debug().Str("row", r.ID).Msg("Discarding stale row")
	})
	return applied
}

func (l *Loader) fetch(ctx context.Context, spec RowSpec) []metadata.Movie {
	switch spec.Kind {
	case KindTrending:
		return l.fetcher.FetchTrending(ctx)
	case KindPopular:
		return l.fetcher.FetchPopular(ctx)
	default:
		return l.fetcher.FetchByCategory(ctx, spec.Tag)
	}
}
