package domain

import "time"

type ChangeAction string

const (
	ActionFavoriteAdded   ChangeAction = "favorite_added"
	ActionFavoriteRemoved ChangeAction = "favorite_removed"
	ActionSearchSaved     ChangeAction = "search_saved"
	ActionSearchDeleted   ChangeAction = "search_deleted"
)

// ChangeEvent announces a mutation of the local store.
type ChangeEvent struct {
	Action    ChangeAction       `json:"action"`
	Favorite  *FavoriteRecord    `json:"favorite,omitempty"`
	Search    *SavedSearchRecord `json:"search,omitempty"`
	Timestamp time.Time          `json:"timestamp"`
}
