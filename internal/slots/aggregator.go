package slots

import (
	"context"
	"fmt"
	"time"

	"salonbook/internal/metrics"
	"salonbook/internal/model"

	"github.com/rs/zerolog"
)

// MsgNoQualifiedStaff is returned when nobody in the pool can take the service that day.
const MsgNoQualifiedStaff = "No stylists available for this service on the selected date"

// Consolidated is the merged grid for a "no preference" request.
type Consolidated struct {
	Result
	QualifiedStaff int
}

// Aggregator merges the availability of several staff members into one grid.
type Aggregator struct {
	store  Store
	opts   Options
	logger *zerolog.Logger
}

// NewAggregator creates an aggregator reading from store.
func NewAggregator(store Store, opts Options, logger *zerolog.Logger) *Aggregator {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Aggregator{store: store, opts: opts.withDefaults(), logger: logger}
}

// FilterQualified keeps staff of the configured role who can perform serviceID and
// work on date. Unqualified members are dropped from the pool entirely.
func (o Options) FilterQualified(pool []model.StaffMember, serviceID string, date time.Time) []model.StaffMember {
	o = o.withDefaults()
	day := date.Weekday()

	out := make([]model.StaffMember, 0, len(pool))
	for i := range pool {
		s := &pool[i]
		if !s.QualifiedFor(serviceID, o.Role) || !s.WorksOn(day) || o.EmergencyBlocks(s, date) {
			continue
		}
		if _, ok := s.Hours.For(day); !ok {
			continue
		}
		out = append(out, *s)
	}
	return out
}

// Aggregate computes one slot grid across pool. A slot is available when at least
// one qualified member is free for the whole service inside their own hours.
func (a *Aggregator) Aggregate(ctx context.Context, service *model.Service, date time.Time, pool []model.StaffMember) Consolidated {
	res := a.aggregate(ctx, service, date, pool)
	metrics.IncAvailability("consolidated", string(res.Outcome))
	return res
}

func (a *Aggregator) aggregate(ctx context.Context, service *model.Service, date time.Time, pool []model.StaffMember) Consolidated {
	if service.Duration <= 0 {
		return Consolidated{Result: failedResult(fmt.Errorf("invalid service duration %d", service.Duration))}
	}

	day := a.opts.Day(date)

	qualified := a.opts.FilterQualified(pool, service.ID, day)
	if len(qualified) == 0 {
		return Consolidated{Result: emptyResult(MsgNoQualifiedStaff)}
	}

	plans := make([]*dayPlan, 0, len(qualified))
	global := model.Window{}
	for i := range qualified {
		staff := &qualified[i]
		window, _ := staff.Hours.For(day.Weekday())

		plan, err := loadPlan(ctx, a.store, staff, day, window)
		if err != nil {
			metrics.IncReadFailure("fail_closed")
			a.logger.Error().Err(err).
				Str("service_id", service.ID).
				Str("staff_id", staff.ID).
				Str("date", day.Format("2006-01-02")).
				Msg("consolidated availability aborted on read failure")
			return Consolidated{Result: failedResult(err), QualifiedStaff: len(qualified)}
		}
		plans = append(plans, plan)

		if i == 0 || window.Start < global.Start {
			global.Start = window.Start
		}
		if i == 0 || window.End > global.End {
			global.End = window.End
		}
	}

	need := service.Duration + a.opts.BufferMinutes
	earliest, isToday := a.opts.earliestStart(day, global.Start)

	var out []model.TimeSlot
	for start := global.Start; start+need <= global.End; start += a.opts.IntervalMinutes {
		if isToday && start < earliest {
			continue
		}

		count := 0
		covered := false
		for _, p := range plans {
			if !p.window.Contains(start, start+need) {
				continue
			}
			covered = true
			if p.blockedBy(start, start+need) == "" {
				count++
			}
		}

		reason := ""
		switch {
		case count > 0:
		case !covered:
			reason = ReasonOutsideHours
		default:
			reason = ReasonNoStylist
		}

		slot := model.NewTimeSlot(start, count > 0, reason)
		n := count
		slot.AvailableStaffCount = &n
		out = append(out, slot)
	}

	return Consolidated{Result: slotsResult(out), QualifiedStaff: len(qualified)}
}
