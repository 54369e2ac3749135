package transform

import (
	"fmt"
	"time"
)

// UV index bands
const (
	UVLow      = "LOW"
	UVModerate = "MODERATE"
	UVHigh     = "HIGH"
	UVVeryHigh = "VERY HIGH"
	UVExtreme  = "EXTREME"
)

// UVIndexCategory buckets a UV index. Each band includes its upper bound.
func UVIndexCategory(index int) string {
	switch {
	case index <= 2:
		return UVLow
	case index <= 5:
		return UVModerate
	case index <= 7:
		return UVHigh
	case index <= 10:
		return UVVeryHigh
	default:
		return UVExtreme
	}
}

// WindierPeriod returns "day" when the day wind is at least as strong as the night wind
func WindierPeriod(daySpeed, nightSpeed float64) string {
	if daySpeed >= nightSpeed {
		return "day"
	}
	return "night"
}

// FormatDuration renders d as HH:MM:SS, the text form Postgres uses for intervals
func FormatDuration(d time.Duration) string {
	sign := ""
	if d < 0 {
		sign = "-"
		d = -d
	}
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second
	return fmt.Sprintf("%s%02d:%02d:%02d", sign, h, m, s)
}
