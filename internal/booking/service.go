package booking

import (
	"context"
	"errors"
	"fmt"

	"salonbook/internal/conflict"
	"salonbook/internal/db"
	"salonbook/internal/events"
	"salonbook/internal/metrics"
	"salonbook/internal/model"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ErrNotActive is returned when rescheduling or cancelling a finished appointment.
var ErrNotActive = errors.New("appointment is not active")

// Store is the write side of the booking path.
type Store interface {
	InsertAppointments(ctx context.Context, as []*model.Appointment) error
	GetAppointment(ctx context.Context, id string) (*model.Appointment, error)
	UpdateAppointmentSlot(ctx context.Context, a *model.Appointment) error
	UpdateAppointmentStatus(ctx context.Context, id string, status model.AppointmentStatus) error
}

// EventPublisher receives appointment lifecycle events.
type EventPublisher interface {
	PublishJSON(eventType string, payload any) error
}

// RejectedError carries the verdict that stopped a booking.
type RejectedError struct {
	Index   int
	Verdict conflict.Verdict
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("candidate %d rejected: %s", e.Index, e.Verdict.Reason)
}

// AppointmentEvent is the payload of appointment events.
type AppointmentEvent struct {
	ID         string `json:"id"`
	StaffID    string `json:"staff_id"`
	CustomerID string `json:"customer_id"`
	ServiceID  string `json:"service_id,omitempty"`
	Date       string `json:"date"`
	StartTime  string `json:"start_time"`
	EndTime    string `json:"end_time"`
	Status     string `json:"status"`
	Degraded   bool   `json:"degraded,omitempty"`
}

func newAppointmentEvent(a *model.Appointment, degraded bool) AppointmentEvent {
	return AppointmentEvent{
		ID:         a.ID,
		StaffID:    a.StaffID,
		CustomerID: a.CustomerID,
		ServiceID:  a.ServiceID,
		Date:       a.Date.Format("2006-01-02"),
		StartTime:  a.StartTime(),
		EndTime:    a.EndTime(),
		Status:     string(a.Status),
		Degraded:   degraded,
	}
}

// Service validates and persists appointments. The validator is advisory; the
// store's transactional overlap check is what prevents double booking.
type Service struct {
	validator *conflict.Validator
	store     Store
	events    EventPublisher
	logger    *zerolog.Logger
	newID     func() string
}

func NewService(validator *conflict.Validator, store Store, publisher EventPublisher, logger *zerolog.Logger) *Service {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Service{
		validator: validator,
		store:     store,
		events:    publisher,
		logger:    logger,
		newID:     uuid.NewString,
	}
}

// Book validates candidates as a batch and stores all of them, or none. A
// rejected candidate yields a *RejectedError; a slot taken between validation
// and insert yields db.ErrSlotTaken.
func (s *Service) Book(ctx context.Context, candidates []conflict.Candidate) ([]model.Appointment, conflict.BatchResult, error) {
	if len(candidates) == 0 {
		return nil, conflict.BatchResult{FailedIndex: -1}, errors.New("no appointments to book")
	}

	batch := s.validator.ValidateBatch(ctx, candidates, "")
	if failed, ok := batch.Failure(); ok {
		return nil, batch, &RejectedError{Index: batch.FailedIndex, Verdict: failed}
	}

	pending := make([]*model.Appointment, 0, len(candidates))
	for _, c := range candidates {
		a := c.Appointment()
		a.ID = s.newID()
		pending = append(pending, &a)
	}

	if err := s.store.InsertAppointments(ctx, pending); err != nil {
		if errors.Is(err, db.ErrSlotTaken) {
			s.logger.Info().
				Str("staff_id", candidates[0].StaffID).
				Str("customer_id", candidates[0].CustomerID).
				Msg("slot taken between validation and insert")
		}
		return nil, batch, fmt.Errorf("store appointments: %w", err)
	}

	degraded := batch.Degraded()
	out := make([]model.Appointment, 0, len(pending))
	for _, a := range pending {
		metrics.IncAppointmentCreated()
		s.publish(events.AppointmentCreated, newAppointmentEvent(a, degraded))
		out = append(out, *a)
	}

	s.logger.Info().
		Int("count", len(out)).
		Str("customer_id", candidates[0].CustomerID).
		Bool("degraded", degraded).
		Msg("appointments booked")
	return out, batch, nil
}

// Reschedule moves appointment id to the slot described by c. Staff, customer,
// service and duration default to the current values when c leaves them empty.
func (s *Service) Reschedule(ctx context.Context, id string, c conflict.Candidate) (*model.Appointment, conflict.Verdict, error) {
	current, err := s.store.GetAppointment(ctx, id)
	if err != nil {
		return nil, conflict.Verdict{}, err
	}
	if !current.Status.IsActive() {
		return nil, conflict.Verdict{}, ErrNotActive
	}

	if c.StaffID == "" {
		c.StaffID = current.StaffID
	}
	if c.CustomerID == "" {
		c.CustomerID = current.CustomerID
	}
	if c.ServiceID == "" {
		c.ServiceID = current.ServiceID
	}
	if c.Duration == 0 {
		c.Duration = current.Duration
	}
	if c.Date.IsZero() {
		c.Date = current.Date
	}

	verdict := s.validator.Validate(ctx, c, id)
	if !verdict.Valid {
		return nil, verdict, &RejectedError{Index: 0, Verdict: verdict}
	}

	moved := *current
	moved.StaffID = c.StaffID
	moved.Date = model.DateOnly(c.Date)
	moved.Start = c.Start
	moved.Duration = c.Duration
	if err := s.store.UpdateAppointmentSlot(ctx, &moved); err != nil {
		return nil, verdict, fmt.Errorf("update appointment %s: %w", id, err)
	}

	s.publish(events.AppointmentRescheduled, newAppointmentEvent(&moved, verdict.Degraded))
	s.logger.Info().
		Str("appointment_id", id).
		Str("staff_id", moved.StaffID).
		Str("start", moved.StartTime()).
		Msg("appointment rescheduled")
	return &moved, verdict, nil
}

// Cancel marks an active appointment cancelled, which frees its slot.
func (s *Service) Cancel(ctx context.Context, id string) (*model.Appointment, error) {
	current, err := s.store.GetAppointment(ctx, id)
	if err != nil {
		return nil, err
	}
	if !current.Status.IsActive() {
		return nil, ErrNotActive
	}
	if err := s.store.UpdateAppointmentStatus(ctx, id, model.StatusCancelled); err != nil {
		return nil, fmt.Errorf("cancel appointment %s: %w", id, err)
	}
	current.Status = model.StatusCancelled

	s.publish(events.AppointmentCancelled, newAppointmentEvent(current, false))
	s.logger.Info().Str("appointment_id", id).Msg("appointment cancelled")
	return current, nil
}

func (s *Service) publish(eventType string, payload AppointmentEvent) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishJSON(eventType, payload); err != nil {
		s.logger.Warn().Err(err).Str("event_type", eventType).Msg("publish event failed")
	}
}
