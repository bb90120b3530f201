package rawg

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"gamedex/internal/domain"
)

const (
	SourceID       = "rawg"
	defaultBaseURL = "https://api.rawg.io/api"
	defaultPage    = 20
)

// Fetcher is the subset of the fetch client the source needs.
type Fetcher interface {
	GetJSON(ctx context.Context, rawURL string, v any) error
}

// Config holds RAWG source configuration.
type Config struct {
	BaseURL  string
	APIKey   string
	PageSize int
}

// Source reads game listings from the RAWG API.
type Source struct {
	client   Fetcher
	baseURL  string
	apiKey   string
	pageSize int
	logger   *slog.Logger
}

func New(cfg Config, client Fetcher, logger *slog.Logger) *Source {
	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = defaultPage
	}
	return &Source{
		client:   client,
		baseURL:  baseURL,
		apiKey:   cfg.APIKey,
		pageSize: pageSize,
		logger:   logger.With("source", SourceID),
	}
}

// ListGames fetches one page of games. A "discover" filter switches to the
// curated main list, which is what the trending view is built from.
func (s *Source) ListGames(ctx context.Context, page int, params domain.ListingParams) (*domain.GamePage, error) {
	if page < 1 {
		page = 1
	}

	path := "/games"
	if params.Filters["discover"] == "true" {
		path = "/games/lists/main"
	}

	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("page_size", strconv.Itoa(s.pageSize))
	if params.Ordering != "" {
		q.Set("ordering", params.Ordering)
	}
	if params.Search != "" {
		q.Set("search", params.Search)
	}
	for _, k := range slices.Sorted(maps.Keys(params.Filters)) {
		if v := params.Filters[k]; v != "" {
			q.Set(k, v)
		}
	}

	var resp gamesResponse
	if err := s.client.GetJSON(ctx, s.buildURL(path, q), &resp); err != nil {
		return nil, fmt.Errorf("list games page %d: %w", page, err)
	}

	s.logger.Debug("fetched page",
		"path", path,
		"page", page,
		"games", len(resp.Results),
		"count", resp.Count,
	)

	games := make([]domain.GameSummary, 0, len(resp.Results))
	for _, g := range resp.Results {
		games = append(games, transformGame(g))
	}

	return &domain.GamePage{
		Count:    resp.Count,
		Next:     resp.Next,
		Previous: resp.Previous,
		Results:  games,
	}, nil
}

// GetGame fetches the detail record for a slug.
func (s *Source) GetGame(ctx context.Context, slug string) (*domain.GameDetail, error) {
	if slug == "" {
		return nil, fmt.Errorf("get game: empty slug")
	}

	var resp gameDetailResponse
	if err := s.client.GetJSON(ctx, s.buildURL("/games/"+url.PathEscape(slug), url.Values{}), &resp); err != nil {
		return nil, fmt.Errorf("get game %s: %w", slug, err)
	}

	detail := &domain.GameDetail{
		GameSummary:    transformGame(resp.gameResponse),
		DescriptionRaw: deref(resp.DescriptionRaw),
		Website:        deref(resp.Website),
	}
	for _, d := range resp.Developers {
		detail.Developers = append(detail.Developers, d.Name)
	}
	for _, p := range resp.Publishers {
		detail.Publishers = append(detail.Publishers, p.Name)
	}
	return detail, nil
}

// ListPlatforms returns the first page of platforms, enough for a platform picker.
func (s *Source) ListPlatforms(ctx context.Context) ([]domain.PlatformRef, error) {
	q := url.Values{}
	q.Set("page_size", "50")

	var resp platformsResponse
	if err := s.client.GetJSON(ctx, s.buildURL("/platforms", q), &resp); err != nil {
		return nil, fmt.Errorf("list platforms: %w", err)
	}

	platforms := make([]domain.PlatformRef, 0, len(resp.Results))
	for _, p := range resp.Results {
		platforms = append(platforms, domain.PlatformRef{ID: p.ID, Name: p.Name, Slug: p.Slug})
	}
	return platforms, nil
}

func (s *Source) buildURL(path string, q url.Values) string {
	if s.apiKey != "" {
		q.Set("key", s.apiKey)
	}
	if len(q) == 0 {
		return s.baseURL + path
	}
	return s.baseURL + path + "?" + q.Encode()
}

func transformGame(g gameResponse) domain.GameSummary {
	game := domain.GameSummary{
		ID:              g.ID,
		Slug:            g.Slug,
		Name:            g.Name,
		Released:        g.Released,
		BackgroundImage: g.BackgroundImage,
		Rating:          g.Rating,
		RatingTop:       derefInt(g.RatingTop),
		ReviewsCount:    derefInt(g.ReviewsCount),
		Metacritic:      g.Metacritic,
		Playtime:        derefInt(g.Playtime),
	}

	for _, p := range g.Platforms {
		if p.Platform == nil {
			continue
		}
		game.Platforms = append(game.Platforms, domain.PlatformRef{
			ID:   p.Platform.ID,
			Name: p.Platform.Name,
			Slug: p.Platform.Slug,
		})
	}
	for _, genre := range g.Genres {
		game.Genres = append(game.Genres, domain.GenreRef{ID: genre.ID, Name: genre.Name, Slug: genre.Slug})
	}
	for _, shot := range g.ShortScreenshots {
		game.Screenshots = append(game.Screenshots, domain.ScreenshotRef{ID: shot.ID, Image: shot.Image})
	}

	return game
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func derefInt(i *int) int {
	if i == nil {
		return 0
	}
	return *i
}
