package model

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"salonbook/internal/interval"
)

// DefaultSchedulableRole is the only role the engine books appointments for.
const DefaultSchedulableRole = "Stylist"

// StaffMember is a salon employee as seen by the scheduling engine.
type StaffMember struct {
	ID                   string         `json:"id"`
	Name                 string         `json:"name"`
	BranchID             string         `json:"branch_id,omitempty"`
	Role                 string         `json:"role"`
	Active               bool           `json:"active"`
	EmergencyUnavailable bool           `json:"emergency_unavailable"`
	Specializations      []string       `json:"specializations"`
	WorkingDays          []time.Weekday `json:"working_days"`
	Hours                WorkingHours   `json:"working_hours"`
}

// WorksOn reports whether day is one of the member's working days.
func (s *StaffMember) WorksOn(day time.Weekday) bool {
	for _, d := range s.WorkingDays {
		if d == day {
			return true
		}
	}
	return false
}

// CanPerform reports whether the member is specialised in serviceID.
func (s *StaffMember) CanPerform(serviceID string) bool {
	for _, id := range s.Specializations {
		if id == serviceID {
			return true
		}
	}
	return false
}

// QualifiedFor combines specialization, role and active checks. Working days and
// emergency unavailability depend on the date and are checked separately.
func (s *StaffMember) QualifiedFor(serviceID, role string) bool {
	if role == "" {
		role = DefaultSchedulableRole
	}
	return s.Active && s.Role == role && s.CanPerform(serviceID)
}

// WorkingDayNames returns working days as lower-case English names.
func (s *StaffMember) WorkingDayNames() []string {
	names := make([]string, 0, len(s.WorkingDays))
	for _, d := range s.WorkingDays {
		names = append(names, strings.ToLower(d.String()))
	}
	return names
}

// Window is a [Start, End) range of minutes since midnight.
type Window struct {
	Start int
	End   int
}

// Duration returns the window length in minutes.
func (w Window) Duration() int {
	return w.End - w.Start
}

// Contains reports whether [start, end) lies inside the window.
func (w Window) Contains(start, end int) bool {
	return start >= w.Start && end <= w.End
}

// NewWindow parses a "HH:MM" pair.
func NewWindow(start, end string) (Window, error) {
	s, err := interval.ToMinutes(start)
	if err != nil {
		return Window{}, fmt.Errorf("start: %w", err)
	}
	e, err := interval.ToMinutes(end)
	if err != nil {
		return Window{}, fmt.Errorf("end: %w", err)
	}
	if e <= s {
		return Window{}, fmt.Errorf("end %s must be after start %s", end, start)
	}
	return Window{Start: s, End: e}, nil
}

type windowJSON struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// MarshalJSON renders the window as {"start":"HH:MM","end":"HH:MM"}.
func (w Window) MarshalJSON() ([]byte, error) {
	return json.Marshal(windowJSON{Start: interval.FormatMinutes(w.Start), End: interval.FormatMinutes(w.End)})
}

// UnmarshalJSON parses {"start":"HH:MM","end":"HH:MM"}.
func (w *Window) UnmarshalJSON(data []byte) error {
	var raw windowJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := NewWindow(raw.Start, raw.End)
	if err != nil {
		return err
	}
	*w = parsed
	return nil
}

// HoursKind tags which variant of WorkingHours is populated.
type HoursKind int

const (
	HoursUnset HoursKind = iota
	HoursFlat
	HoursWeekly
)

// WorkingHours is either one window used on every working day or a window per weekday.
type WorkingHours struct {
	Kind   HoursKind
	Flat   Window
	Weekly map[time.Weekday]Window
}

// FlatHours builds the single-window variant.
func FlatHours(w Window) WorkingHours {
	return WorkingHours{Kind: HoursFlat, Flat: w}
}

// WeeklyHours builds the per-weekday variant.
func WeeklyHours(days map[time.Weekday]Window) WorkingHours {
	return WorkingHours{Kind: HoursWeekly, Weekly: days}
}

// For resolves the effective window for a weekday.
func (h WorkingHours) For(day time.Weekday) (Window, bool) {
	switch h.Kind {
	case HoursFlat:
		return h.Flat, true
	case HoursWeekly:
		w, ok := h.Weekly[day]
		return w, ok
	default:
		return Window{}, false
	}
}

// MarshalJSON writes the flat variant as a window object and the weekly variant as
// a map keyed by lower-case weekday name.
func (h WorkingHours) MarshalJSON() ([]byte, error) {
	switch h.Kind {
	case HoursFlat:
		return json.Marshal(h.Flat)
	case HoursWeekly:
		out := make(map[string]Window, len(h.Weekly))
		for d, w := range h.Weekly {
			out[strings.ToLower(d.String())] = w
		}
		return json.Marshal(out)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON accepts both stored shapes. This is the only place the shape is sniffed.
func (h *WorkingHours) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*h = WorkingHours{}
		return nil
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return fmt.Errorf("working hours: %w", err)
	}

	if _, ok := fields["start"]; ok {
		var w Window
		if err := json.Unmarshal(data, &w); err != nil {
			return fmt.Errorf("working hours: %w", err)
		}
		*h = FlatHours(w)
		return nil
	}

	weekly := make(map[time.Weekday]Window, len(fields))
	for name, raw := range fields {
		day, err := ParseWeekday(name)
		if err != nil {
			return fmt.Errorf("working hours: %w", err)
		}
		var w Window
		if err := json.Unmarshal(raw, &w); err != nil {
			return fmt.Errorf("working hours %s: %w", name, err)
		}
		weekly[day] = w
	}
	*h = WeeklyHours(weekly)
	return nil
}

var weekdayNames = map[string]time.Weekday{
	"sunday": time.Sunday, "sun": time.Sunday,
	"monday": time.Monday, "mon": time.Monday,
	"tuesday": time.Tuesday, "tue": time.Tuesday,
	"wednesday": time.Wednesday, "wed": time.Wednesday,
	"thursday": time.Thursday, "thu": time.Thursday,
	"friday": time.Friday, "fri": time.Friday,
	"saturday": time.Saturday, "sat": time.Saturday,
}

// ParseWeekday accepts full or three-letter English weekday names in any case.
func ParseWeekday(name string) (time.Weekday, error) {
	d, ok := weekdayNames[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return 0, fmt.Errorf("unknown weekday %q", name)
	}
	return d, nil
}

// ParseWeekdays parses a list of weekday names, dropping duplicates.
func ParseWeekdays(names []string) ([]time.Weekday, error) {
	seen := make(map[time.Weekday]bool, len(names))
	days := make([]time.Weekday, 0, len(names))
	for _, n := range names {
		d, err := ParseWeekday(n)
		if err != nil {
			return nil, err
		}
		if seen[d] {
			continue
		}
		seen[d] = true
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool { return days[i] < days[j] })
	return days, nil
}
