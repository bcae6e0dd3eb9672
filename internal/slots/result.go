package slots

import (
	"sort"

	"salonbook/internal/model"
)

// Outcome separates "no slots" from "could not determine slots".
type Outcome string

const (
	// OutcomeSlots means the grid was computed; it may still contain no available slot.
	OutcomeSlots Outcome = "slots"
	// OutcomeEmpty means a precondition ruled the day out; Message says which.
	OutcomeEmpty Outcome = "empty"
	// OutcomeFailed means a read failed. Slot generation fails closed: Slots is empty.
	OutcomeFailed Outcome = "failed"
)

// Result is the outcome of a slot computation.
type Result struct {
	Outcome Outcome
	Slots   []model.TimeSlot
	Message string
	Err     error
}

func slotsResult(slots []model.TimeSlot) Result {
	if slots == nil {
		slots = []model.TimeSlot{}
	}
	return Result{Outcome: OutcomeSlots, Slots: slots}
}

func emptyResult(msg string) Result {
	return Result{Outcome: OutcomeEmpty, Slots: []model.TimeSlot{}, Message: msg}
}

func failedResult(err error) Result {
	return Result{Outcome: OutcomeFailed, Slots: []model.TimeSlot{}, Message: "could not determine availability", Err: err}
}

// Failed reports whether the computation could not complete.
func (r Result) Failed() bool {
	return r.Outcome == OutcomeFailed
}

// AvailableCount returns the number of available slots.
func (r Result) AvailableCount() int {
	return CountAvailable(r.Slots)
}

// CountAvailable returns the number of available slots.
func CountAvailable(slots []model.TimeSlot) int {
	n := 0
	for _, s := range slots {
		if s.Available {
			n++
		}
	}
	return n
}

// AvailableOnly returns only available slots.
func AvailableOnly(slots []model.TimeSlot) []model.TimeSlot {
	available := make([]model.TimeSlot, 0, len(slots))
	for _, s := range slots {
		if s.Available {
			available = append(available, s)
		}
	}
	return available
}

// FindConsecutive groups available slots whose starts are step minutes apart.
func FindConsecutive(slots []model.TimeSlot, step int) [][]model.TimeSlot {
	available := AvailableOnly(slots)
	if len(available) == 0 {
		return nil
	}

	sort.Slice(available, func(i, j int) bool {
		return available[i].Start < available[j].Start
	})

	var groups [][]model.TimeSlot
	current := []model.TimeSlot{available[0]}

	for i := 1; i < len(available); i++ {
		if available[i].Start == current[len(current)-1].Start+step {
			current = append(current, available[i])
		} else {
			groups = append(groups, current)
			current = []model.TimeSlot{available[i]}
		}
	}
	groups = append(groups, current)

	return groups
}
