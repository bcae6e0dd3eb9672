package model

import (
	"time"

	"salonbook/internal/interval"
)

// AppointmentStatus is the lifecycle state of an appointment.
type AppointmentStatus string

const (
	StatusPending    AppointmentStatus = "Pending"
	StatusInProgress AppointmentStatus = "InProgress"
	StatusCompleted  AppointmentStatus = "Completed"
	StatusCancelled  AppointmentStatus = "Cancelled"
	StatusNoShow     AppointmentStatus = "NoShow"
)

// ActiveStatuses are the statuses that block new bookings.
var ActiveStatuses = []AppointmentStatus{StatusPending, StatusInProgress}

// IsActive reports whether the status blocks the staff member's time.
func (s AppointmentStatus) IsActive() bool {
	return s == StatusPending || s == StatusInProgress
}

// Valid reports whether s is a known status.
func (s AppointmentStatus) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted, StatusCancelled, StatusNoShow:
		return true
	}
	return false
}

// Appointment is a booked service with one staff member.
type Appointment struct {
	ID         string            `json:"id"`
	StaffID    string            `json:"staff_id"`
	CustomerID string            `json:"customer_id"`
	ServiceID  string            `json:"service_id,omitempty"`
	Date       time.Time         `json:"date"`
	Start      int               `json:"-"`
	Duration   int               `json:"duration"`
	Status     AppointmentStatus `json:"status"`
	CreatedAt  time.Time         `json:"created_at,omitempty"`
	UpdatedAt  time.Time         `json:"updated_at,omitempty"`
}

// End returns the minute the appointment finishes.
func (a *Appointment) End() int {
	return a.Start + a.Duration
}

// StartTime renders Start as "HH:MM".
func (a *Appointment) StartTime() string {
	return interval.FormatMinutes(a.Start)
}

// EndTime renders End as "HH:MM".
func (a *Appointment) EndTime() string {
	return interval.FormatMinutes(a.End())
}

// OverlapsWith reports whether both appointments are on the same day and their
// half-open intervals intersect.
func (a *Appointment) OverlapsWith(other *Appointment) bool {
	if !SameDay(a.Date, other.Date) {
		return false
	}
	return interval.Overlaps(a.Start, a.End(), other.Start, other.End())
}
