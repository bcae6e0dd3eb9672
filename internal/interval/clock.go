// Package interval provides time-of-day arithmetic on the minute axis of a single day.
//
// Times of day travel as "HH:MM" strings at the edges and as minute offsets from
// midnight inside the engine. The minute axis is not bounded at 24:00: adding past
// midnight yields hours above 23 rather than wrapping.
package interval

import (
	"fmt"
	"strconv"
	"strings"
)

// MinutesPerDay is the length of a calendar day on the minute axis.
const MinutesPerDay = 24 * 60

// ToMinutes converts "HH:MM" into minutes since midnight.
func ToMinutes(hhmm string) (int, error) {
	parts := strings.Split(strings.TrimSpace(hhmm), ":")
	if len(parts) < 2 {
		return 0, fmt.Errorf("invalid time format: %q", hhmm)
	}

	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 {
		return 0, fmt.Errorf("invalid hour in %q", hhmm)
	}

	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("invalid minute in %q", hhmm)
	}

	return hour*60 + minute, nil
}

// ParseClock is ToMinutes restricted to a wall-clock reading between 00:00 and
// 23:59. Use it for times supplied by callers.
func ParseClock(hhmm string) (int, error) {
	m, err := ToMinutes(hhmm)
	if err != nil {
		return 0, err
	}
	if m >= MinutesPerDay {
		return 0, fmt.Errorf("time of day out of range: %q", hhmm)
	}
	return m, nil
}

// MustMinutes is ToMinutes for literals known to be valid.
func MustMinutes(hhmm string) int {
	m, err := ToMinutes(hhmm)
	if err != nil {
		panic(err)
	}
	return m
}

// FormatMinutes renders a minute offset as "HH:MM". Offsets past midnight keep
// counting hours ("24:30"), they are never wrapped.
func FormatMinutes(minutes int) string {
	if minutes < 0 {
		minutes = 0
	}
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// AddMinutes returns the time of day duration minutes after hhmm.
func AddMinutes(hhmm string, duration int) (string, error) {
	start, err := ToMinutes(hhmm)
	if err != nil {
		return "", err
	}
	return FormatMinutes(start + duration), nil
}

// Overlaps reports whether [s1,e1) and [s2,e2) intersect. Touching intervals do not.
func Overlaps(s1, e1, s2, e2 int) bool {
	return s1 < e2 && s2 < e1
}

// CeilToStep rounds minute up to the next point of the grid origin + k*step.
// Values at or before origin are returned unchanged.
func CeilToStep(minute, origin, step int) int {
	if step <= 0 || minute <= origin {
		return minute
	}
	offset := minute - origin
	if rem := offset % step; rem != 0 {
		offset += step - rem
	}
	return origin + offset
}
