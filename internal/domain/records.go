package domain

import "time"

// FavoriteRecord is a denormalized snapshot of a game the user marked as favorite.
// SourceGameID is nil for entries saved before the source id was recorded.
type FavoriteRecord struct {
	ID              string
	SourceGameID    *int64
	Slug            string
	Name            string
	Released        *string
	BackgroundImage *string
	Rating          float64
	ReviewsCount    int
	Metacritic      *int
	Platforms       []PlatformRef
	CreatedAt       time.Time
}

// Matches reports whether the record is a snapshot of game.
func (f FavoriteRecord) Matches(game GameSummary) bool {
	if f.SourceGameID != nil {
		return *f.SourceGameID == game.ID
	}
	return f.Slug != "" && f.Slug == game.Slug
}

type SavedSearchRecord struct {
	ID        string
	Query     string
	CreatedAt time.Time
}

type UserProfile struct {
	UserID      string    `json:"user_id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name"`
	PhotoURL    string    `json:"photo_url"`
	UpdatedAt   time.Time `json:"updated_at"`
}
