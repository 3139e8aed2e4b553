// Package timing provides parsers for the time strings the results API emits.
//
// The upstream service represents lap and qualifying times as "m:ss.fff"
// strings and pit stop durations as either plain seconds ("23.456") or the
// same "m:ss.fff" form for long stops. Source data is frequently malformed
// (empty strings, truncated sessions), so parsers report invalid input
// through an ok flag instead of an error: callers map it to a NULL column
// and move on rather than aborting a batch.
package timing

import (
	"strconv"
	"strings"
)

const (
	millisPerSecond = 1000
	secondsPerMin   = 60
	lapTimeParts    = 2
)

// ParseLapTime converts a "minutes:seconds.fraction" time string to integer
// milliseconds, e.g. "1:15.096" -> 75096.
//
// Returns (0, false) when the string does not split into exactly two segments
// on ":" or either segment fails numeric parsing. Fractions are rounded to
// the nearest millisecond.
func ParseLapTime(value string) (int64, bool) {
	parts := strings.Split(value, ":")
	if len(parts) != lapTimeParts {
		return 0, false
	}

	minutes, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, false
	}

	seconds, err := strconv.ParseFloat(parts[1], 64)
	if err != nil {
		return 0, false
	}

	total := (float64(minutes)*secondsPerMin + seconds) * millisPerSecond

	return int64(total + 0.5), true
}

// ParseStopDuration converts a pit stop duration to integer milliseconds.
//
// Short stops come through as plain seconds ("23.456" -> 23456); stops under
// a red flag or penalty hold use the lap-time form ("1:03.200" -> 63200).
// Returns (0, false) for anything else.
func ParseStopDuration(value string) (int64, bool) {
	if strings.Contains(value, ":") {
		return ParseLapTime(value)
	}

	seconds, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, false
	}

	return int64(seconds*millisPerSecond + 0.5), true
}
