package activities

import "time"

const (
	// DefaultWeeklyWindow is the default lookback for weekly views.
	DefaultWeeklyWindow = 7 * 24 * time.Hour
	// DefaultProgressWindow is the default lookback for exercise progress queries.
	DefaultProgressWindow = 30 * 24 * time.Hour
)

// Window is a resolved [From, To] date range scoping analytical queries.
type Window struct {
	From time.Time `json:"start"`
	To   time.Time `json:"end"`
}

// ResolveWindow fills in the missing window boundaries: an absent start
// defaults to now minus the given span, an absent end to now. Each
// explicit value overrides only its own side. An inverted window is
// left as-is and simply matches nothing.
func ResolveWindow(from, to *time.Time, defaultSpan time.Duration, now time.Time) Window {
	w := Window{
		From: now.Add(-defaultSpan),
		To:   now,
	}
	if from != nil {
		w.From = *from
	}
	if to != nil {
		w.To = *to
	}
	return w
}
