package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"salonbook/internal/booking"
	"salonbook/internal/conflict"
	"salonbook/internal/db"
	"salonbook/internal/interval"
	"salonbook/internal/metrics"
	"salonbook/internal/model"
)

const maxBatchSize = 20

// CandidateRequest describes one proposed appointment.
type CandidateRequest struct {
	StaffID    string `json:"staff_id"`
	CustomerID string `json:"customer_id"`
	ServiceID  string `json:"service_id,omitempty"`
	Date       string `json:"date"`       // YYYY-MM-DD
	StartTime  string `json:"start_time"` // HH:MM
	Duration   int    `json:"duration,omitempty"`
}

// ValidateRequest is the body of POST /appointments/validate.
type ValidateRequest struct {
	CandidateRequest
	ExcludeAppointmentID string `json:"exclude_appointment_id,omitempty"`
}

// BatchRequest is the body of POST /appointments/validate-batch and POST /appointments.
type BatchRequest struct {
	Appointments         []CandidateRequest `json:"appointments"`
	ExcludeAppointmentID string             `json:"exclude_appointment_id,omitempty"`
}

// RescheduleRequest is the body of POST /appointments/{id}/reschedule.
type RescheduleRequest struct {
	StaffID   string `json:"staff_id,omitempty"`
	Date      string `json:"date,omitempty"`
	StartTime string `json:"start_time"`
}

// AppointmentResponse renders an appointment with wall-clock times.
type AppointmentResponse struct {
	ID         string `json:"id"`
	StaffID    string `json:"staff_id"`
	CustomerID string `json:"customer_id"`
	ServiceID  string `json:"service_id,omitempty"`
	Date       string `json:"date"`
	StartTime  string `json:"start_time"`
	EndTime    string `json:"end_time"`
	Status     string `json:"status"`
}

// VerdictResponse renders a validation verdict.
type VerdictResponse struct {
	Valid                  bool                 `json:"valid"`
	Reason                 string               `json:"reason,omitempty"`
	ConflictType           string               `json:"conflict_type,omitempty"`
	ConflictingAppointment *AppointmentResponse `json:"conflicting_appointment,omitempty"`
	Degraded               bool                 `json:"degraded,omitempty"`
}

// BatchResponse renders a batch verdict. FailedIndex is -1 when all passed.
type BatchResponse struct {
	Valid       bool              `json:"valid"`
	FailedIndex int               `json:"failed_index"`
	Results     []VerdictResponse `json:"results"`
}

// BookResponse is returned by POST /appointments.
type BookResponse struct {
	Appointments []AppointmentResponse `json:"appointments"`
	Degraded     bool                  `json:"degraded,omitempty"`
}

func newAppointmentResponse(a *model.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:         a.ID,
		StaffID:    a.StaffID,
		CustomerID: a.CustomerID,
		ServiceID:  a.ServiceID,
		Date:       a.Date.Format(dateLayout),
		StartTime:  a.StartTime(),
		EndTime:    a.EndTime(),
		Status:     string(a.Status),
	}
}

func newVerdictResponse(v conflict.Verdict) VerdictResponse {
	out := VerdictResponse{
		Valid:        v.Valid,
		Reason:       v.Reason,
		ConflictType: string(v.ConflictType),
		Degraded:     v.Degraded,
	}
	if v.Conflicting != nil {
		a := newAppointmentResponse(v.Conflicting)
		out.ConflictingAppointment = &a
	}
	return out
}

func newBatchResponse(b conflict.BatchResult) BatchResponse {
	out := BatchResponse{Valid: b.Valid, FailedIndex: b.FailedIndex, Results: make([]VerdictResponse, 0, len(b.Results))}
	for _, v := range b.Results {
		out.Results = append(out.Results, newVerdictResponse(v))
	}
	return out
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed; use POST")
		return false
	}
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

// candidate converts a request into a validator candidate. A missing duration is
// taken from the service. The returned status is the HTTP code to use on error.
func (s *HTTPServer) candidate(r *http.Request, req CandidateRequest, notPast bool) (conflict.Candidate, int, error) {
	if req.StaffID == "" || req.CustomerID == "" || req.StartTime == "" {
		return conflict.Candidate{}, http.StatusBadRequest, errors.New("staff_id, customer_id, date and start_time are required")
	}
	date, err := s.parseDate(req.Date, notPast)
	if err != nil {
		return conflict.Candidate{}, http.StatusBadRequest, err
	}
	start, err := interval.ParseClock(req.StartTime)
	if err != nil {
		return conflict.Candidate{}, http.StatusBadRequest, errors.New("invalid start_time format; expected HH:MM")
	}

	duration := req.Duration
	if duration == 0 {
		if req.ServiceID == "" {
			return conflict.Candidate{}, http.StatusBadRequest, errors.New("duration or service_id is required")
		}
		svc, status, err := s.activeService(r.Context(), req.ServiceID)
		if err != nil {
			return conflict.Candidate{}, status, err
		}
		duration = svc.Duration
	}
	if duration < 0 {
		return conflict.Candidate{}, http.StatusBadRequest, errors.New("duration must be positive")
	}

	return conflict.Candidate{
		StaffID:    req.StaffID,
		CustomerID: req.CustomerID,
		ServiceID:  req.ServiceID,
		Date:       date,
		Start:      start,
		Duration:   duration,
	}, http.StatusOK, nil
}

func (s *HTTPServer) candidates(w http.ResponseWriter, r *http.Request, reqs []CandidateRequest, notPast bool) ([]conflict.Candidate, bool) {
	if len(reqs) == 0 {
		writeError(w, http.StatusBadRequest, "appointments must not be empty")
		return nil, false
	}
	if len(reqs) > maxBatchSize {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("at most %d appointments per request", maxBatchSize))
		return nil, false
	}
	out := make([]conflict.Candidate, 0, len(reqs))
	for i, req := range reqs {
		c, status, err := s.candidate(r, req, notPast)
		if err != nil {
			writeError(w, status, fmt.Sprintf("appointments[%d]: %s", i, err))
			return nil, false
		}
		out = append(out, c)
	}
	return out, true
}

// handleValidate checks one candidate.
// POST /appointments/validate
func (s *HTTPServer) handleValidate(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("appointments_validate")

	var req ValidateRequest
	if !decodeBody(w, r, &req) {
		return
	}
	c, status, err := s.candidate(r, req.CandidateRequest, false)
	if err != nil {
		writeError(w, status, err.Error())
		return
	}

	verdict := s.deps.Validator.Validate(r.Context(), c, req.ExcludeAppointmentID)
	writeJSON(w, http.StatusOK, newVerdictResponse(verdict))
}

// handleValidateBatch checks candidates in order and stops at the first failure.
// POST /appointments/validate-batch
func (s *HTTPServer) handleValidateBatch(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("appointments_validate_batch")

	var req BatchRequest
	if !decodeBody(w, r, &req) {
		return
	}
	cs, ok := s.candidates(w, r, req.Appointments, false)
	if !ok {
		return
	}

	result := s.deps.Validator.ValidateBatch(r.Context(), cs, req.ExcludeAppointmentID)
	writeJSON(w, http.StatusOK, newBatchResponse(result))
}

// handleBook validates and stores a batch of appointments.
// POST /appointments
func (s *HTTPServer) handleBook(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("appointments_create")

	var req BatchRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.ExcludeAppointmentID != "" {
		writeError(w, http.StatusBadRequest, "exclude_appointment_id is not allowed when booking")
		return
	}
	cs, ok := s.candidates(w, r, req.Appointments, true)
	if !ok {
		return
	}

	booked, batch, err := s.deps.Booking.Book(r.Context(), cs)
	if err != nil {
		var rejected *booking.RejectedError
		if errors.As(err, &rejected) {
			writeJSON(w, http.StatusConflict, newBatchResponse(batch))
			return
		}
		s.writeBookingError(w, err)
		return
	}

	resp := BookResponse{Appointments: make([]AppointmentResponse, 0, len(booked)), Degraded: batch.Degraded()}
	for i := range booked {
		resp.Appointments = append(resp.Appointments, newAppointmentResponse(&booked[i]))
	}
	writeJSON(w, http.StatusCreated, resp)
}

// handleReschedule moves an appointment to a new slot.
// POST /appointments/{id}/reschedule
func (s *HTTPServer) handleReschedule(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("appointments_reschedule")

	var req RescheduleRequest
	if !decodeBody(w, r, &req) {
		return
	}
	start, err := interval.ParseClock(req.StartTime)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid start_time format; expected HH:MM")
		return
	}
	c := conflict.Candidate{StaffID: req.StaffID, Start: start}
	if req.Date != "" {
		if c.Date, err = s.parseDate(req.Date, true); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	moved, verdict, err := s.deps.Booking.Reschedule(r.Context(), r.PathValue("id"), c)
	if err != nil {
		var rejected *booking.RejectedError
		if errors.As(err, &rejected) {
			writeJSON(w, http.StatusConflict, newVerdictResponse(verdict))
			return
		}
		s.writeBookingError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newAppointmentResponse(moved))
}

// handleCancel cancels an active appointment.
// POST /appointments/{id}/cancel
func (s *HTTPServer) handleCancel(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("appointments_cancel")

	cancelled, err := s.deps.Booking.Cancel(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeBookingError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newAppointmentResponse(cancelled))
}

func (s *HTTPServer) writeBookingError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, db.ErrSlotTaken):
		writeError(w, http.StatusConflict, "slot is no longer available")
	case errors.Is(err, db.ErrNotFound):
		writeError(w, http.StatusNotFound, "appointment not found")
	case errors.Is(err, booking.ErrNotActive):
		writeError(w, http.StatusConflict, err.Error())
	default:
		s.logger.Error().Err(err).Msg("booking failed")
		writeError(w, http.StatusInternalServerError, "could not store appointment")
	}
}
