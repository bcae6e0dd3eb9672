package slots

import (
	"context"
	"fmt"
	"time"

	"salonbook/internal/interval"
	"salonbook/internal/model"
)

// Reasons reported for blocked slots.
const (
	ReasonBreak        = "Break time"
	ReasonBooked       = "Already booked"
	ReasonOutsideHours = "Outside working hours"
	ReasonNoStylist    = "No stylist available"
)

type block struct {
	from, to int
	reason   string
}

// dayPlan is one staff member's working window and exclusions for a single day.
type dayPlan struct {
	staff  *model.StaffMember
	window model.Window
	breaks []block
	leave  []block
	booked []block
}

// loadPlan reads breaks, leave and active appointments for staff on day. Any read
// error aborts the plan.
func loadPlan(ctx context.Context, store Store, staff *model.StaffMember, day time.Time, window model.Window) (*dayPlan, error) {
	p := &dayPlan{staff: staff, window: window}

	breaks, err := store.ListBreaks(ctx, staff.ID, day.Weekday())
	if err != nil {
		return nil, fmt.Errorf("list breaks for %s: %w", staff.ID, err)
	}
	for i := range breaks {
		if breaks[i].AppliesOn(day.Weekday()) {
			p.breaks = append(p.breaks, block{from: breaks[i].Start, to: breaks[i].End, reason: ReasonBreak})
		}
	}

	leave, err := store.ListLeave(ctx, staff.ID, day)
	if err != nil {
		return nil, fmt.Errorf("list leave for %s: %w", staff.ID, err)
	}
	for i := range leave {
		if from, to, ok := leave[i].BlockedRange(day); ok {
			p.leave = append(p.leave, block{from: from, to: to, reason: leave[i].Reason()})
		}
	}

	appts, err := store.ListActiveAppointments(ctx, staff.ID, day)
	if err != nil {
		return nil, fmt.Errorf("list appointments for %s: %w", staff.ID, err)
	}
	for i := range appts {
		if !appts[i].Status.IsActive() {
			continue
		}
		p.booked = append(p.booked, block{from: appts[i].Start, to: appts[i].End(), reason: ReasonBooked})
	}

	return p, nil
}

// blockedBy returns the reason [start,end) is unavailable, checking breaks, then
// leave, then appointments. An empty string means the range is free.
func (p *dayPlan) blockedBy(start, end int) string {
	for _, group := range [][]block{p.breaks, p.leave, p.booked} {
		for _, b := range group {
			if interval.Overlaps(start, end, b.from, b.to) {
				return b.reason
			}
		}
	}
	return ""
}
