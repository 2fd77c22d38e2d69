package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/marquee/marquee/internal/browse"
	"github.com/marquee/marquee/internal/metadata"
)

const unavailableBanner = "Data source unavailable: showing fallback titles where needed."

func newCatalogCommands(ctx *commandContext) []*cobra.Command {
	return []*cobra.Command{
		newSearchCommand(ctx),
		newMovieCommand(ctx),
		newCategoryCommand(ctx),
		newHomeCommand(ctx),
		newCheckCommand(ctx),
	}
}

func newSearchCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "search <title>",
		Short: "Search movies by title",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, format, err := catalogSetup(ctx)
			if err != nil {
				return err
			}
			cfg, _ := ctx.ensureConfig()

			query := strings.Join(args, " ")
			movies := metadata.NewMovieResponses(svc.SearchByTitle(cmd.Context(), query), cfg.OMDB.PlaceholderImage)
			payload := map[string]any{"query": query, "results": movies}
			return emit(cmd, format, payload, func(out io.Writer, colorize bool) error {
				return renderMovies(out, movies, colorize)
			})
		},
	}
}

func newMovieCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:     "movie <imdb-id>",
		Aliases: []string{"detail"},
		Short:   "Show full details for a movie",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, format, err := catalogSetup(ctx)
			if err != nil {
				return err
			}
			cfg, _ := ctx.ensureConfig()

			movie, ok := svc.FetchDetail(cmd.Context(), args[0])
			if !ok {
				return fmt.Errorf("movie %s not found", args[0])
			}
			resp := metadata.NewMovieResponse(*movie, cfg.OMDB.PlaceholderImage)
			return emit(cmd, format, resp, func(out io.Writer, colorize bool) error {
				return renderMovieDetail(out, resp, colorize)
			})
		},
	}
}

func newCategoryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "category <tag>",
		Short: "Show a themed row; falls back to the fixed catalog when empty",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, format, err := catalogSetup(ctx)
			if err != nil {
				return err
			}
			cfg, _ := ctx.ensureConfig()

			tag := args[0]
			movies := metadata.NewMovieResponses(svc.FetchByCategory(cmd.Context(), tag), cfg.OMDB.PlaceholderImage)
			payload := map[string]any{"tag": tag, "title": browse.GenreTitle(tag), "movies": movies}
			return emit(cmd, format, payload, func(out io.Writer, colorize bool) error {
				fmt.Fprintln(out, browse.GenreTitle(tag))
				return renderMovies(out, movies, colorize)
			})
		},
	}
}

func newHomeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "home",
		Short: "Show the home page rows, printing each as it loads",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, format, err := catalogSetup(ctx)
			if err != nil {
				return err
			}
			cfg, _ := ctx.ensureConfig()
			loader := browse.NewLoader(svc, browse.DefaultRows(cfg.Browse.Genres), ctx.logger().Logger)
			placeholder := cfg.OMDB.PlaceholderImage

			if format != "table" {
				resp := browse.NewHomeResponse(loader.Home(cmd.Context()), placeholder)
				return emit(cmd, format, resp, nil)
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			if !svc.CheckAvailability(cmd.Context()) {
				fmt.Fprintln(out, unavailableBanner)
			}

			var view browse.View
			defer view.Dispose()
			loader.StreamInto(cmd.Context(), &view, func(r browse.Row) {
				fmt.Fprintf(out, "\n%s\n", r.Title)
				_ = renderMovies(out, metadata.NewMovieResponses(r.Movies, placeholder), colorize)
			})
			return nil
		},
	}
}

func newCheckCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Probe the metadata provider",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, format, err := catalogSetup(ctx)
			if err != nil {
				return err
			}

			available := svc.CheckAvailability(cmd.Context())
			payload := map[string]bool{"available": available}
			return emit(cmd, format, payload, func(out io.Writer, colorize bool) error {
				fmt.Fprintf(out, "Provider available: %s\n", yesNo(available))
				if !available {
					fmt.Fprintln(out, unavailableBanner)
				}
				return nil
			})
		},
	}
}

func catalogSetup(ctx *commandContext) (*metadata.Service, string, error) {
	format, err := ctx.outputFormat()
	if err != nil {
		return nil, "", err
	}
	svc, _, err := ctx.metadataService()
	if err != nil {
		return nil, "", err
	}
	return svc, format, nil
}
