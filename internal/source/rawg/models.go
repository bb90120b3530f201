package rawg

// gamesResponse is the RAWG pagination envelope for game listings.
type gamesResponse struct {
	Count    int            `json:"count"`
	Next     *string        `json:"next"`
	Previous *string        `json:"previous"`
	Results  []gameResponse `json:"results"`
}

type gameResponse struct {
	ID               int64                `json:"id"`
	Slug             string               `json:"slug"`
	Name             string               `json:"name"`
	Released         *string              `json:"released"`
	BackgroundImage  *string              `json:"background_image"`
	Rating           *float64             `json:"rating"`
	RatingTop        *int                 `json:"rating_top"`
	ReviewsCount     *int                 `json:"reviews_count"`
	Metacritic       *int                 `json:"metacritic"`
	Playtime         *int                 `json:"playtime"`
	Platforms        []platformWrapper    `json:"platforms"`
	Genres           []namedRef           `json:"genres"`
	ShortScreenshots []screenshotResponse `json:"short_screenshots"`
}

type gameDetailResponse struct {
	gameResponse
	DescriptionRaw *string    `json:"description_raw"`
	Website        *string    `json:"website"`
	Developers     []namedRef `json:"developers"`
	Publishers     []namedRef `json:"publishers"`
}

// platformWrapper matches RAWG's {"platform": {...}} nesting.
type platformWrapper struct {
	Platform *namedRef `json:"platform"`
}

type namedRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

type screenshotResponse struct {
	ID    int64  `json:"id"`
	Image string `json:"image"`
}

type platformsResponse struct {
	Count   int        `json:"count"`
	Next    *string    `json:"next"`
	Results []namedRef `json:"results"`
}
