package omdb

// NotAvailable is the provider's placeholder for a missing field.
const NotAvailable = "N/A"

// Response represents the OMDb title/ID lookup response.
type Response struct {
	Title      string   `json:"Title"`
	Year       string   `json:"Year"`
	Rated      string   `json:"Rated,omitempty"`
	Released   string   `json:"Released,omitempty"`
	Runtime    string   `json:"Runtime,omitempty"`
	Genre      string   `json:"Genre,omitempty"`
	Director   string   `json:"Director,omitempty"`
	Writer     string   `json:"Writer,omitempty"`
	Actors     string   `json:"Actors,omitempty"`
	Plot       string   `json:"Plot,omitempty"`
	Awards     string   `json:"Awards,omitempty"`
	Poster     string   `json:"Poster"`
	Ratings    []Rating `json:"Ratings,omitempty"`
	Metascore  string   `json:"Metascore,omitempty"`
	ImdbRating string   `json:"imdbRating,omitempty"`
	ImdbVotes  string   `json:"imdbVotes,omitempty"`
	ImdbID     string   `json:"imdbID"`
	Type       string   `json:"Type"`
	Response   string   `json:"Response"`
	Error      string   `json:"Error,omitempty"`
}

// Rating represents a single rating from a source.
type Rating struct {
	Source string `json:"Source"`
	Value  string `json:"Value"`
}

// SearchResult is one entry in the Search array.
type SearchResult struct {
	Title  string `json:"Title"`
	Year   string `json:"Year"`
	ImdbID string `json:"imdbID"`
	Type   string `json:"Type"`
	Poster string `json:"Poster"`
}

// SearchResponse represents the OMDb search response.
type SearchResponse struct {
	Search       []SearchResult `json:"Search"`
	TotalResults string         `json:"totalResults,omitempty"`
	Response     string         `json:"Response"`
	Error        string         `json:"Error,omitempty"`
}

// status is decoded first to detect logical failures before the full payload.
type status struct {
	Response string `json:"Response"`
	Error    string `json:"Error"`
}
