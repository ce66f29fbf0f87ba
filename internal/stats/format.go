package stats

import "fmt"

// FormatDuration renders elapsed seconds as the largest useful units:
// days and hours, hours and minutes, bare minutes, or bare seconds.
// Minutes are dropped once a trip spans days.
func FormatDuration(seconds int64) string {
	if seconds < 0 {
		seconds = 0
	}
	if seconds < 60 {
		return plural(seconds, "second")
	}

	days := seconds / 86400
	hours := (seconds % 86400) / 3600
	minutes := (seconds % 3600) / 60

	var out string
	if days > 0 {
		out = plural(days, "day")
	}
	if hours > 0 {
		if out != "" {
			out += ", "
		}
		out += plural(hours, "hour")
	}
	if minutes > 0 && days == 0 {
		if out != "" {
			out += ", "
		}
		out += plural(minutes, "minute")
	}
	return out
}

func plural(n int64, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
