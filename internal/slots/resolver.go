package slots

import (
	"context"
	"fmt"
	"time"

	"salonbook/internal/metrics"
	"salonbook/internal/model"

	"github.com/rs/zerolog"
)

// Messages for days that are ruled out before any slot is generated.
const (
	MsgStaffUnavailable = "Stylist is unavailable"
	MsgNotWorkingDay    = "Not a working day"
	MsgNoWorkingHours   = "No working hours for this day"
)

// Resolver generates one staff member's slot grid for a day.
type Resolver struct {
	store  Store
	opts   Options
	logger *zerolog.Logger
}

// NewResolver creates a resolver reading from store.
func NewResolver(store Store, opts Options, logger *zerolog.Logger) *Resolver {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Resolver{store: store, opts: opts.withDefaults(), logger: logger}
}

// Options returns the effective options.
func (r *Resolver) Options() Options {
	return r.opts
}

// Resolve returns candidate slots for a service of duration minutes, in ascending
// order. Candidates that would run past the end of the working window are not
// proposed. On a read failure the result is OutcomeFailed with no slots.
func (r *Resolver) Resolve(ctx context.Context, staff *model.StaffMember, date time.Time, duration int) Result {
	res := r.resolve(ctx, staff, date, duration)
	metrics.IncAvailability("by_staff", string(res.Outcome))
	return res
}

func (r *Resolver) resolve(ctx context.Context, staff *model.StaffMember, date time.Time, duration int) Result {
	if duration <= 0 {
		return failedResult(fmt.Errorf("invalid service duration %d", duration))
	}

	day := r.opts.Day(date)

	if r.opts.EmergencyBlocks(staff, day) {
		return emptyResult(MsgStaffUnavailable)
	}
	if !staff.WorksOn(day.Weekday()) {
		return emptyResult(MsgNotWorkingDay)
	}
	window, ok := staff.Hours.For(day.Weekday())
	if !ok {
		return emptyResult(MsgNoWorkingHours)
	}

	plan, err := loadPlan(ctx, r.store, staff, day, window)
	if err != nil {
		metrics.IncReadFailure("fail_closed")
		r.logger.Error().Err(err).
			Str("staff_id", staff.ID).
			Str("date", day.Format("2006-01-02")).
			Msg("slot generation aborted on read failure")
		return failedResult(err)
	}

	earliest, isToday := r.opts.earliestStart(day, window.Start)
	need := duration + r.opts.BufferMinutes

	var out []model.TimeSlot
	for start := window.Start; start+need <= window.End; start += r.opts.IntervalMinutes {
		if isToday && start < earliest {
			continue
		}
		reason := plan.blockedBy(start, start+need)
		out = append(out, model.NewTimeSlot(start, reason == "", reason))
	}

	return slotsResult(out)
}
