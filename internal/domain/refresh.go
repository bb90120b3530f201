package domain

import "time"

// RefreshStats holds statistics about a background refresh run.
type RefreshStats struct {
	Contexts   int
	Fetched    int
	Failed     int
	Prefetched int
	Errors     int
	Duration   time.Duration
}
