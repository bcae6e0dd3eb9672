package api

import (
	"net/http"
	"sort"
	"time"

	"salonbook/internal/interval"
	"salonbook/internal/metrics"
	"salonbook/internal/model"
	"salonbook/internal/slots"
)

// WorkingHoursResponse is a staff member's window for the requested date.
type WorkingHoursResponse struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// StaffAvailability is one staff member in the by-staff view.
type StaffAvailability struct {
	StaffID        string               `json:"stylist_id"`
	Name           string               `json:"name"`
	WorkingHours   WorkingHoursResponse `json:"working_hours"`
	Skills         []string             `json:"skills"`
	AvailableCount int                  `json:"available_count"`
	Slots          []model.TimeSlot     `json:"slots"`
}

// ByStaffResponse is the response for GET /availability/by-staff.
type ByStaffResponse struct {
	ServiceID string              `json:"service_id"`
	Date      string              `json:"date"`
	Stylists  []StaffAvailability `json:"stylists"`
	Message   string              `json:"message,omitempty"`
}

// ConsolidatedResponse is the response for GET /availability/consolidated.
type ConsolidatedResponse struct {
	ServiceID         string           `json:"service_id"`
	Date              string           `json:"date"`
	Slots             []model.TimeSlot `json:"slots"`
	QualifiedStylists int              `json:"qualified_stylists"`
	Message           string           `json:"message,omitempty"`
}

type availabilityQuery struct {
	service  *model.Service
	date     time.Time
	branchID string
}

// parseAvailabilityQuery validates the shared query parameters and writes the
// error response itself when they are unusable.
func (s *HTTPServer) parseAvailabilityQuery(w http.ResponseWriter, r *http.Request) (*availabilityQuery, bool) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed; use GET")
		return nil, false
	}

	q := r.URL.Query()
	serviceID := q.Get("service_id")
	if serviceID == "" || q.Get("date") == "" {
		writeError(w, http.StatusBadRequest, "service_id and date are required")
		return nil, false
	}
	date, err := s.parseDate(q.Get("date"), true)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return nil, false
	}

	svc, status, err := s.activeService(r.Context(), serviceID)
	if err != nil {
		writeError(w, status, err.Error())
		return nil, false
	}

	return &availabilityQuery{service: svc, date: date, branchID: q.Get("branch_id")}, true
}

func (s *HTTPServer) loadStaff(w http.ResponseWriter, r *http.Request, branchID string) ([]model.StaffMember, bool) {
	staff, err := s.deps.Catalog.ListStaff(r.Context(), branchID)
	if err != nil {
		s.logger.Error().Err(err).Str("branch_id", branchID).Msg("staff lookup failed")
		writeError(w, http.StatusServiceUnavailable, "could not load staff")
		return nil, false
	}
	return staff, true
}

// handleAvailabilityByStaff returns slots per qualified staff member.
// GET /availability/by-staff?service_id=&date=&branch_id=
func (s *HTTPServer) handleAvailabilityByStaff(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("availability_by_staff")

	query, ok := s.parseAvailabilityQuery(w, r)
	if !ok {
		return
	}
	staff, ok := s.loadStaff(w, r, query.branchID)
	if !ok {
		return
	}

	weekday := query.date.Weekday()
	qualified := s.opts.FilterQualified(staff, query.service.ID, query.date)

	out := make([]StaffAvailability, 0, len(qualified))
	for i := range qualified {
		member := &qualified[i]
		res := s.deps.Resolver.Resolve(r.Context(), member, query.date, query.service.Duration)
		if res.Failed() {
			writeError(w, http.StatusServiceUnavailable, res.Message)
			return
		}
		if res.AvailableCount() == 0 {
			continue
		}

		window, _ := member.Hours.For(weekday)
		out = append(out, StaffAvailability{
			StaffID: member.ID,
			Name:    member.Name,
			WorkingHours: WorkingHoursResponse{
				Start: interval.FormatMinutes(window.Start),
				End:   interval.FormatMinutes(window.End),
			},
			Skills:         member.Specializations,
			AvailableCount: res.AvailableCount(),
			Slots:          res.Slots,
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].AvailableCount != out[j].AvailableCount {
			return out[i].AvailableCount > out[j].AvailableCount
		}
		return out[i].Name < out[j].Name
	})

	resp := ByStaffResponse{
		ServiceID: query.service.ID,
		Date:      query.date.Format(dateLayout),
		Stylists:  out,
	}
	if len(out) == 0 {
		resp.Message = slots.MsgNoQualifiedStaff
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleAvailabilityConsolidated returns one merged grid for "any stylist".
// GET /availability/consolidated?service_id=&date=&branch_id=
func (s *HTTPServer) handleAvailabilityConsolidated(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("availability_consolidated")

	query, ok := s.parseAvailabilityQuery(w, r)
	if !ok {
		return
	}
	staff, ok := s.loadStaff(w, r, query.branchID)
	if !ok {
		return
	}

	res := s.deps.Aggregator.Aggregate(r.Context(), query.service, query.date, staff)
	if res.Failed() {
		writeError(w, http.StatusServiceUnavailable, res.Message)
		return
	}

	writeJSON(w, http.StatusOK, ConsolidatedResponse{
		ServiceID:         query.service.ID,
		Date:              query.date.Format(dateLayout),
		Slots:             res.Slots,
		QualifiedStylists: res.QualifiedStaff,
		Message:           res.Message,
	})
}
