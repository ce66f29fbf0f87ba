package trip

import "time"

// Trip lifecycle statuses. At most one trip is live at a time; SetStatus
// enforces that when promoting.
const (
	StatusDraft     = "draft"
	StatusLive      = "live"
	StatusPaused    = "paused"
	StatusCompleted = "completed"
)

type Trip struct {
	ID         string     `json:"id"`
	Title      string     `json:"title"`
	Status     string     `json:"status"`
	StartTime  *time.Time `json:"start_time"`
	EndTime    *time.Time `json:"end_time"`
	RouteColor string     `json:"route_color"`
	CreatedAt  time.Time  `json:"created_at"`
}

// Active reports whether the trip is still collecting positions, which makes
// "now" the valid end-bound for route queries.
func (t Trip) Active() bool {
	return t.Status == StatusLive || t.Status == StatusPaused
}

func ValidStatus(status string) bool {
	switch status {
	case StatusDraft, StatusLive, StatusPaused, StatusCompleted:
		return true
	}
	return false
}
