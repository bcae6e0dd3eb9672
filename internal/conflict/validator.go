package conflict

import (
	"context"
	"errors"
	"fmt"
	"time"

	"salonbook/internal/interval"
	"salonbook/internal/metrics"
	"salonbook/internal/model"

	"github.com/rs/zerolog"
)

// Type classifies why a candidate was rejected.
type Type string

const (
	None                    Type = ""
	StylistBusy             Type = "stylist_busy"
	CustomerStylistConflict Type = "customer_stylist_conflict"
	InvalidCandidate        Type = "invalid_candidate"
)

// Human-readable rejection reasons.
const (
	ReasonStylistBusy     = "Already booked"
	ReasonCustomerStylist = "Customer already has an appointment with this stylist at this time"
)

// Reader is the read side the validator checks candidates against.
type Reader interface {
	ListActiveAppointments(ctx context.Context, staffID string, date time.Time) ([]model.Appointment, error)
	ListActiveCustomerAppointments(ctx context.Context, customerID, staffID string, date time.Time) ([]model.Appointment, error)
}

// Candidate is a proposed appointment.
type Candidate struct {
	StaffID    string    `json:"staff_id"`
	CustomerID string    `json:"customer_id"`
	ServiceID  string    `json:"service_id,omitempty"`
	Date       time.Time `json:"date"`
	Start      int       `json:"-"`
	Duration   int       `json:"duration"`
}

// End returns the minute the candidate finishes.
func (c Candidate) End() int {
	return c.Start + c.Duration
}

// Appointment converts the candidate into a pending appointment.
func (c Candidate) Appointment() model.Appointment {
	return model.Appointment{
		StaffID:    c.StaffID,
		CustomerID: c.CustomerID,
		ServiceID:  c.ServiceID,
		Date:       model.DateOnly(c.Date),
		Start:      c.Start,
		Duration:   c.Duration,
		Status:     model.StatusPending,
	}
}

func (c Candidate) check() error {
	switch {
	case c.StaffID == "":
		return errors.New("staff id is required")
	case c.CustomerID == "":
		return errors.New("customer id is required")
	case c.Date.IsZero():
		return errors.New("date is required")
	case c.Duration <= 0:
		return fmt.Errorf("invalid duration %d", c.Duration)
	case c.Start < 0:
		return fmt.Errorf("invalid start %d", c.Start)
	}
	return nil
}

// Verdict is the outcome of validating one candidate. Degraded is set when a read
// failed and the candidate was let through anyway.
type Verdict struct {
	Valid        bool               `json:"valid"`
	Reason       string             `json:"reason,omitempty"`
	ConflictType Type               `json:"conflict_type,omitempty"`
	Conflicting  *model.Appointment `json:"conflicting_appointment,omitempty"`
	Degraded     bool               `json:"degraded,omitempty"`
	Err          error              `json:"-"`
}

func valid() Verdict {
	return Verdict{Valid: true}
}

func rejected(t Type, reason string, with *model.Appointment) Verdict {
	return Verdict{Reason: reason, ConflictType: t, Conflicting: with}
}

// Validator checks candidates against existing active appointments. Read
// failures fail open: the candidate is treated as free and the error is logged.
type Validator struct {
	reader Reader
	logger *zerolog.Logger
}

// NewValidator creates a validator.
func NewValidator(reader Reader, logger *zerolog.Logger) *Validator {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Validator{reader: reader, logger: logger}
}

// Validate runs the staff-busy check and then the customer/staff duplicate check.
// excludeID skips one existing appointment, for edit flows.
func (v *Validator) Validate(ctx context.Context, c Candidate, excludeID string) Verdict {
	verdict := v.validate(ctx, c, excludeID)
	metrics.IncVerdict(string(verdict.ConflictType))
	return verdict
}

func (v *Validator) validate(ctx context.Context, c Candidate, excludeID string) Verdict {
	if err := c.check(); err != nil {
		return Verdict{Reason: err.Error(), ConflictType: InvalidCandidate, Err: err}
	}

	degraded := false
	var readErr error

	busy, err := v.reader.ListActiveAppointments(ctx, c.StaffID, c.Date)
	if err != nil {
		v.failOpen(err, c, "staff appointments")
		degraded, readErr = true, err
	} else if hit := firstOverlap(c, busy, excludeID); hit != nil {
		return rejected(StylistBusy, ReasonStylistBusy, hit)
	}

	mine, err := v.reader.ListActiveCustomerAppointments(ctx, c.CustomerID, c.StaffID, c.Date)
	if err != nil {
		v.failOpen(err, c, "customer appointments")
		degraded, readErr = true, errors.Join(readErr, err)
	} else if hit := firstOverlap(c, mine, excludeID); hit != nil {
		return rejected(CustomerStylistConflict, ReasonCustomerStylist, hit)
	}

	out := valid()
	out.Degraded = degraded
	out.Err = readErr
	return out
}

func (v *Validator) failOpen(err error, c Candidate, what string) {
	metrics.IncReadFailure("fail_open")
	v.logger.Warn().Err(err).
		Str("staff_id", c.StaffID).
		Str("customer_id", c.CustomerID).
		Str("date", c.Date.Format("2006-01-02")).
		Str("start", interval.FormatMinutes(c.Start)).
		Msgf("could not read %s, allowing booking", what)
}

func firstOverlap(c Candidate, existing []model.Appointment, excludeID string) *model.Appointment {
	for i := range existing {
		a := &existing[i]
		if excludeID != "" && a.ID == excludeID {
			continue
		}
		if !a.Status.IsActive() || !model.SameDay(c.Date, a.Date) {
			continue
		}
		if interval.Overlaps(c.Start, c.End(), a.Start, a.End()) {
			hit := *a
			return &hit
		}
	}
	return nil
}

// AreConcurrentAppointments reports whether a and b overlap with different staff.
// It never blocks a booking.
func AreConcurrentAppointments(a, b *model.Appointment) bool {
	if a == nil || b == nil || a.StaffID == b.StaffID {
		return false
	}
	return a.OverlapsWith(b)
}
