package clock

import "time"

// System implements service.Clock using the system clock.
type System struct{}

func (System) Now() time.Time {
	return time.Now()
}
