package domain

import "maps"

// ListingParams drives a listing fetch. Filters are passed through to the API as-is.
type ListingParams struct {
	Ordering string
	Search   string
	Filters  map[string]string
}

func (p ListingParams) Clone() ListingParams {
	p.Filters = maps.Clone(p.Filters)
	return p
}

// PageCursor tracks pagination for one listing context.
type PageCursor struct {
	Page        int
	CanLoadMore bool
	Ordering    string
	Search      string
	Filters     map[string]string
}

func (c PageCursor) Params() ListingParams {
	return ListingParams{
		Ordering: c.Ordering,
		Search:   c.Search,
		Filters:  maps.Clone(c.Filters),
	}
}

type ListingStatus string

const (
	StatusIdle    ListingStatus = "idle"
	StatusLoading ListingStatus = "loading"
	StatusLoaded  ListingStatus = "loaded"
	StatusFailed  ListingStatus = "failed"
)

// ListingState is the merged result set of one listing context.
type ListingState struct {
	Context      string
	Games        []GameSummary
	Cursor       PageCursor
	Status       ListingStatus
	ErrorMessage string
}

// Clone returns a copy that shares no slices or maps with s.
func (s ListingState) Clone() ListingState {
	out := s
	if s.Games != nil {
		out.Games = make([]GameSummary, len(s.Games))
		copy(out.Games, s.Games)
	}
	out.Cursor.Filters = maps.Clone(s.Cursor.Filters)
	return out
}
