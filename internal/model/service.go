package model

import (
	"time"

	"salonbook/internal/interval"
)

// Service is a bookable salon service.
type Service struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Category string  `json:"category"`
	Duration int     `json:"duration"` // minutes
	Price    float64 `json:"price"`
	Active   bool    `json:"active"`
}

// TimeSlot is a candidate booking start. AvailableStaffCount is only set by the
// consolidated view.
type TimeSlot struct {
	Start               int    `json:"-"`
	Time                string `json:"time"`
	Available           bool   `json:"available"`
	Reason              string `json:"reason,omitempty"`
	AvailableStaffCount *int   `json:"available_stylist_count,omitempty"`
}

// NewTimeSlot builds a slot at minute start.
func NewTimeSlot(start int, available bool, reason string) TimeSlot {
	return TimeSlot{
		Start:     start,
		Time:      interval.FormatMinutes(start),
		Available: available,
		Reason:    reason,
	}
}

// StartOn returns the slot start as an instant on date.
func (s TimeSlot) StartOn(date time.Time) time.Time {
	return DateOnly(date).Add(time.Duration(s.Start) * time.Minute)
}
