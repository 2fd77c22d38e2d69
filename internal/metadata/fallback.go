package metadata

// fallbackCatalog is shown whenever a category row cannot be filled from the
// provider. It has no posters.
var fallbackCatalog = [...]Movie{
	{
		ID:     "tt1375666",
		Title:  "Inception",
		Year:   "2010",
		Type:   "movie",
		Plot:   "A thief who steals corporate secrets through the use of dream-sharing technology is given the inverse task of planting an idea into the mind of a C.E.O.",
		Rating: "8.8",
	},
	{
		ID:     "tt0111161",
		Title:  "The Shawshank Redemption",
		Year:   "1994",
		Type:   "movie",
		Plot:   "Two imprisoned men bond over a number of years, finding solace and eventual redemption through acts of common decency.",
		Rating: "9.3",
	},
	{
		ID:     "tt0468569",
		Title:  "The Dark Knight",
		Year:   "2008",
		Type:   "movie",
		Plot:   "When the menace known as the Joker wreaks havoc and chaos on the people of Gotham, Batman must accept one of the greatest psychological and physical tests of his ability to fight injustice.",
		Rating: "9.0",
	},
	{
		ID:     "tt0110912",
		Title:  "Pulp Fiction",
		Year:   "1994",
		Type:   "movie",
		Plot:   "The lives of two mob hitmen, a boxer, a gangster and his wife, and a pair of diner bandits intertwine in four tales of violence and redemption.",
		Rating: "8.9",
	},
	{
		ID:     "tt0167260",
		Title:  "The Lord of the Rings: The Return of the King",
		Year:   "2003",
		Type:   "movie",
		Plot:   "Gandalf and Aragorn lead the World of Men against Sauron's army to draw his gaze from Frodo and Sam as they approach Mount Doom with the One Ring.",
		Rating: "8.9",
	},
}

// FallbackCatalog returns a copy of the fixed fallback movies in their fixed order.
func FallbackCatalog() []Movie {
	out := make([]Movie, len(fallbackCatalog))
	copy(out, fallbackCatalog[:])
	return out
}
