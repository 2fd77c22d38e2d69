// Package web holds static assets served next to the API.
package web

import (
	_ "embed"
)

// PlaceholderPath is where the poster placeholder is served.
const PlaceholderPath = "/placeholder.svg"

//go:embed placeholder.svg
var placeholderSVG []byte

// Placeholder returns the poster shown for movies without artwork.
func Placeholder() []byte {
	return placeholderSVG
}
