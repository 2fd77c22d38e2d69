package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/marquee/marquee/internal/metadata"
)

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

func renderTable(headers []string, rows [][]string, aligns []columnAlignment, colorize bool) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	if colorize {
		tw.SetStyle(table.StyleColoredDark)
	}

	header := make(table.Row, columns)
	for i := 0; i < columns; i++ {
		header[i] = headers[i]
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := 0; i < columns; i++ {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	columnConfigs := make([]table.ColumnConfig, 0, columns)
	for i := 0; i < columns; i++ {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		columnConfigs = append(columnConfigs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.SetColumnConfigs(columnConfigs)

	return tw.Render()
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// writeJSON encodes v as indented JSON to the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// writeYAML encodes v as YAML to the command's stdout.
func writeYAML(cmd *cobra.Command, v any) error {
	enc := yaml.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

// emit writes v in the selected structured format, or calls table for the
// human view.
func emit(cmd *cobra.Command, format string, v any, table func(out io.Writer, colorize bool) error) error {
	switch format {
	case "json":
		return writeJSON(cmd, v)
	case "yaml":
		return writeYAML(cmd, v)
	default:
		out := cmd.OutOrStdout()
		return table(out, shouldColorize(out))
	}
}

func movieRows(movies []metadata.MovieResponse) [][]string {
	rows := make([][]string, 0, len(movies))
	for i, m := range movies {
		match := ""
		if m.MatchPercentage != nil {
			match = fmt.Sprintf("%d%%", *m.MatchPercentage)
		}
		rows = append(rows, []string{
			fmt.Sprintf("%d", i+1),
			m.ID,
			m.Title,
			m.Year,
			match,
		})
	}
	return rows
}

func renderMovies(out io.Writer, movies []metadata.MovieResponse, colorize bool) error {
	if len(movies) == 0 {
		_, err := fmt.Fprintln(out, "No movies found.")
		return err
	}
	_, err := fmt.Fprintln(out, renderTable(
		[]string{"#", "IMDb ID", "Title", "Year", "Match"},
		movieRows(movies),
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignRight},
		colorize,
	))
	return err
}

func renderMovieDetail(out io.Writer, m metadata.MovieResponse, colorize bool) error {
	match := "-"
	if m.MatchPercentage != nil {
		match = fmt.Sprintf("%d%% match", *m.MatchPercentage)
	}
	rows := [][]string{
		{"Title", m.Title},
		{"IMDb ID", m.ID},
		{"Year", m.Year},
		{"Released", m.Released},
		{"Runtime", m.Runtime},
		{"Genre", m.Genre},
		{"Director", m.Director},
		{"Cast", m.Cast},
		{"Rating", m.Rating},
		{"Match", match},
		{"Poster", m.PosterURL},
		{"Plot", m.Plot},
	}
	_, err := fmt.Fprintln(out, renderTable([]string{"Field", "Value"}, rows, nil, colorize))
	return err
}
