// Package timefmt converts between GTFS-style "H:MM:SS" clock strings and
// seconds-since-midnight, the time representation used throughout the index
// and the RAPTOR engine.
package timefmt

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseClock parses an "H:MM:SS" (or "HH:MM:SS") string into seconds since
// midnight. Hours are not clamped to 0-23: GTFS feeds commonly encode
// post-midnight service as hours >= 24 so that a trip started "yesterday"
// still sorts and compares correctly within the same service day.
func ParseClock(s string) (int32, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return 0, fmt.Errorf("timefmt: %q is not H:MM:SS", s)
	}

	h, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("timefmt: bad hour in %q: %w", s, err)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("timefmt: bad minute in %q: %w", s, err)
	}
	sec, err := strconv.Atoi(parts[2])
	if err != nil {
		return 0, fmt.Errorf("timefmt: bad second in %q: %w", s, err)
	}
	if h < 0 || m < 0 || m > 59 || sec < 0 || sec > 59 {
		return 0, fmt.Errorf("timefmt: %q out of range", s)
	}

	return int32(h*3600 + m*60 + sec), nil
}

// FormatSeconds renders seconds-since-midnight as "HH:MM:SS". Values past
// 24h keep counting rather than wrapping, matching ParseClock's post-midnight
// convention.
func FormatSeconds(secs int32) string {
	h := secs / 3600
	m := (secs % 3600) / 60
	s := secs % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

// FormatDuration renders a duration in seconds as "X min Y s", the form the CLI
// report writer uses for walk and ride durations.
func FormatDuration(secs int32) string {
	return fmt.Sprintf("%d min %d s", secs/60, secs%60)
}
