package conflict

import (
	"context"

	"salonbook/internal/interval"
	"salonbook/internal/model"
)

// BatchResult holds per-candidate verdicts up to and including the first failure.
// FailedIndex is -1 when every candidate passed.
type BatchResult struct {
	Valid       bool      `json:"valid"`
	FailedIndex int       `json:"failed_index"`
	Results     []Verdict `json:"results"`
}

// Failure returns the failing verdict, if any.
func (b BatchResult) Failure() (Verdict, bool) {
	if b.FailedIndex < 0 || b.FailedIndex >= len(b.Results) {
		return Verdict{}, false
	}
	return b.Results[b.FailedIndex], true
}

// Degraded reports whether any verdict was let through on a read failure.
func (b BatchResult) Degraded() bool {
	for _, r := range b.Results {
		if r.Degraded {
			return true
		}
	}
	return false
}

// ValidateBatch validates candidates in order and stops at the first failure,
// leaving later candidates unvalidated. Each candidate is also checked against
// the earlier candidates of the same batch for the same staff member.
func (v *Validator) ValidateBatch(ctx context.Context, candidates []Candidate, excludeID string) BatchResult {
	out := BatchResult{Valid: true, FailedIndex: -1, Results: make([]Verdict, 0, len(candidates))}

	for i, c := range candidates {
		verdict := v.Validate(ctx, c, excludeID)
		if verdict.Valid {
			if hit := overlapsEarlier(c, candidates[:i]); hit != nil {
				verdict = rejected(StylistBusy, ReasonStylistBusy, hit)
			}
		}

		out.Results = append(out.Results, verdict)
		if !verdict.Valid {
			out.Valid = false
			out.FailedIndex = i
			break
		}
	}

	return out
}

func overlapsEarlier(c Candidate, earlier []Candidate) *model.Appointment {
	for _, e := range earlier {
		if e.StaffID != c.StaffID || !model.SameDay(c.Date, e.Date) {
			continue
		}
		if interval.Overlaps(c.Start, c.End(), e.Start, e.End()) {
			a := e.Appointment()
			return &a
		}
	}
	return nil
}
