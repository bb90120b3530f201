package domain

// GameSummary is one listed game as returned by the remote API.
type GameSummary struct {
	ID              int64
	Slug            string
	Name            string
	Released        *string
	BackgroundImage *string
	Rating          *float64
	RatingTop       int
	ReviewsCount    int
	Metacritic      *int
	Playtime        int
	Platforms       []PlatformRef
	Genres          []GenreRef
	Screenshots     []ScreenshotRef
}

type PlatformRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

type GenreRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

type ScreenshotRef struct {
	ID    int64  `json:"id"`
	Image string `json:"image"`
}

// GamePage is one page of the cursor-style pagination envelope.
type GamePage struct {
	Count    int
	Next     *string
	Previous *string
	Results  []GameSummary
}

// GameDetail extends a summary with fields only the detail endpoint returns.
type GameDetail struct {
	GameSummary
	DescriptionRaw string
	Website        string
	Developers     []string
	Publishers     []string
}
