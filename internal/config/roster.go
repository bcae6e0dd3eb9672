package config

import (
	"fmt"
	"os"
	"time"

	"salonbook/internal/model"

	"gopkg.in/yaml.v3"
)

// DefaultRosterPath is used when roster_path is not configured.
const DefaultRosterPath = "configs/roster.yaml"

// LeaveTimeLayout is the layout of leave start/end values. A bare date is also accepted.
const LeaveTimeLayout = "2006-01-02 15:04"

// ServiceConfig represents a bookable service.
type ServiceConfig struct {
	ID              string  `yaml:"id"`
	Name            string  `yaml:"name"`
	Category        string  `yaml:"category"`
	DurationMinutes int     `yaml:"duration_minutes"`
	Price           float64 `yaml:"price"`
	IsActive        bool    `yaml:"is_active"`
}

// HoursConfig is a "HH:MM" start/end pair.
type HoursConfig struct {
	Start string `yaml:"start"`
	End   string `yaml:"end"`
}

// BreakConfig is a daily break. An empty weekday means every day.
type BreakConfig struct {
	ID      string `yaml:"id,omitempty"`
	Start   string `yaml:"start"`
	End     string `yaml:"end"`
	Weekday string `yaml:"weekday,omitempty"`
}

// StaffConfig represents one staff member. Exactly one of WorkingHours and
// WeeklyHours must be set.
type StaffConfig struct {
	ID                   string                 `yaml:"id"`
	Name                 string                 `yaml:"name"`
	BranchID             string                 `yaml:"branch_id"`
	Role                 string                 `yaml:"role"`
	IsActive             bool                   `yaml:"is_active"`
	EmergencyUnavailable bool                   `yaml:"emergency_unavailable"`
	Specializations      []string               `yaml:"specializations"`
	WorkingDays          []string               `yaml:"working_days"`
	WorkingHours         *HoursConfig           `yaml:"working_hours,omitempty"`
	WeeklyHours          map[string]HoursConfig `yaml:"weekly_hours,omitempty"`
	Breaks               []BreakConfig          `yaml:"breaks,omitempty"`
}

// LeaveConfig represents a leave record.
type LeaveConfig struct {
	ID      string `yaml:"id"`
	StaffID string `yaml:"staff_id"`
	Start   string `yaml:"start"`
	End     string `yaml:"end"`
	Type    string `yaml:"type"`
	Note    string `yaml:"note,omitempty"`
}

// RosterConfig is the root of roster.yaml.
type RosterConfig struct {
	Services []ServiceConfig `yaml:"services"`
	Staff    []StaffConfig   `yaml:"staff"`
	Leave    []LeaveConfig   `yaml:"leave"`
}

// LoadRosterConfig loads and validates the roster from a YAML file.
func LoadRosterConfig(path string) (*RosterConfig, error) {
	if path == "" {
		path = DefaultRosterPath
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read roster config: %w", err)
	}
	return ParseRosterConfig(data)
}

// ParseRosterConfig decodes and validates roster YAML.
func ParseRosterConfig(data []byte) (*RosterConfig, error) {
	var cfg RosterConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse roster config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate roster config: %w", err)
	}

	return &cfg, nil
}

// Validate checks the roster for errors.
func (c *RosterConfig) Validate() error {
	if len(c.Services) == 0 {
		return fmt.Errorf("no services defined")
	}

	services := make(map[string]bool)
	for i, s := range c.Services {
		if s.ID == "" {
			return fmt.Errorf("service[%d]: id is required", i)
		}
		if services[s.ID] {
			return fmt.Errorf("service[%d]: duplicate id '%s'", i, s.ID)
		}
		services[s.ID] = true

		if s.Name == "" {
			return fmt.Errorf("service[%d]: name is required", i)
		}
		if s.DurationMinutes <= 0 {
			return fmt.Errorf("service[%d]: duration_minutes must be positive", i)
		}
		if s.Price < 0 {
			return fmt.Errorf("service[%d]: price cannot be negative", i)
		}
	}

	staff := make(map[string]bool)
	for i := range c.Staff {
		st := &c.Staff[i]
		prefix := fmt.Sprintf("staff[%d]", i)

		if st.ID == "" {
			return fmt.Errorf("%s: id is required", prefix)
		}
		if staff[st.ID] {
			return fmt.Errorf("%s: duplicate id '%s'", prefix, st.ID)
		}
		staff[st.ID] = true

		if st.Name == "" {
			return fmt.Errorf("%s: name is required", prefix)
		}
		for _, svc := range st.Specializations {
			if !services[svc] {
				return fmt.Errorf("%s: unknown service '%s' in specializations", prefix, svc)
			}
		}
		if _, err := model.ParseWeekdays(st.WorkingDays); err != nil {
			return fmt.Errorf("%s.working_days: %w", prefix, err)
		}
		if _, err := st.hours(); err != nil {
			return fmt.Errorf("%s: %w", prefix, err)
		}
		for j, b := range st.Breaks {
			if _, err := b.toModel(st.ID, j); err != nil {
				return fmt.Errorf("%s.breaks[%d]: %w", prefix, j, err)
			}
		}
	}

	leave := make(map[string]bool)
	for i, l := range c.Leave {
		if l.ID == "" {
			return fmt.Errorf("leave[%d]: id is required", i)
		}
		if leave[l.ID] {
			return fmt.Errorf("leave[%d]: duplicate id '%s'", i, l.ID)
		}
		leave[l.ID] = true

		if !staff[l.StaffID] {
			return fmt.Errorf("leave[%d]: unknown staff '%s'", i, l.StaffID)
		}
		if _, err := l.toModel(time.UTC); err != nil {
			return fmt.Errorf("leave[%d]: %w", i, err)
		}
	}

	return nil
}

func (h HoursConfig) window() (model.Window, error) {
	if h.Start == "" || h.End == "" {
		return model.Window{}, fmt.Errorf("start and end are required")
	}
	return model.NewWindow(h.Start, h.End)
}

func (s *StaffConfig) hours() (model.WorkingHours, error) {
	switch {
	case s.WorkingHours != nil && len(s.WeeklyHours) > 0:
		return model.WorkingHours{}, fmt.Errorf("working_hours and weekly_hours are mutually exclusive")
	case s.WorkingHours != nil:
		w, err := s.WorkingHours.window()
		if err != nil {
			return model.WorkingHours{}, fmt.Errorf("working_hours: %w", err)
		}
		return model.FlatHours(w), nil
	case len(s.WeeklyHours) > 0:
		weekly := make(map[time.Weekday]model.Window, len(s.WeeklyHours))
		for name, h := range s.WeeklyHours {
			day, err := model.ParseWeekday(name)
			if err != nil {
				return model.WorkingHours{}, fmt.Errorf("weekly_hours: %w", err)
			}
			w, err := h.window()
			if err != nil {
				return model.WorkingHours{}, fmt.Errorf("weekly_hours.%s: %w", name, err)
			}
			weekly[day] = w
		}
		return model.WeeklyHours(weekly), nil
	default:
		return model.WorkingHours{}, fmt.Errorf("working_hours or weekly_hours is required")
	}
}

func (b BreakConfig) toModel(staffID string, idx int) (model.Break, error) {
	w, err := HoursConfig{Start: b.Start, End: b.End}.window()
	if err != nil {
		return model.Break{}, err
	}

	id := b.ID
	if id == "" {
		id = fmt.Sprintf("%s-break-%d", staffID, idx)
	}

	out := model.Break{ID: id, StaffID: staffID, Start: w.Start, End: w.End, Recurring: b.Weekday == ""}
	if b.Weekday != "" {
		day, err := model.ParseWeekday(b.Weekday)
		if err != nil {
			return model.Break{}, err
		}
		out.Weekday = day
	}
	return out, nil
}

func parseLeaveTime(value string, loc *time.Location) (time.Time, error) {
	if t, err := time.ParseInLocation(LeaveTimeLayout, value, loc); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation("2006-01-02", value, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time '%s', expected YYYY-MM-DD or YYYY-MM-DD HH:MM", value)
	}
	return t, nil
}

func (l LeaveConfig) toModel(loc *time.Location) (model.LeaveRecord, error) {
	start, err := parseLeaveTime(l.Start, loc)
	if err != nil {
		return model.LeaveRecord{}, fmt.Errorf("start: %w", err)
	}
	end, err := parseLeaveTime(l.End, loc)
	if err != nil {
		return model.LeaveRecord{}, fmt.Errorf("end: %w", err)
	}
	// A bare end date covers that whole day.
	if len(l.End) == len("2006-01-02") {
		end = end.AddDate(0, 0, 1)
	}
	if !end.After(start) {
		return model.LeaveRecord{}, fmt.Errorf("end must be after start")
	}

	typ := model.LeaveType(l.Type)
	switch typ {
	case model.LeaveHoliday, model.LeaveHalfDay, model.LeaveEmergency:
	case "":
		typ = model.LeaveHoliday
	default:
		return model.LeaveRecord{}, fmt.Errorf("unknown leave type '%s'", l.Type)
	}

	return model.LeaveRecord{ID: l.ID, StaffID: l.StaffID, Start: start, End: end, Type: typ, Note: l.Note}, nil
}

// ServiceModels converts services for the data store.
func (c *RosterConfig) ServiceModels() []model.Service {
	out := make([]model.Service, 0, len(c.Services))
	for _, s := range c.Services {
		out = append(out, model.Service{
			ID:       s.ID,
			Name:     s.Name,
			Category: s.Category,
			Duration: s.DurationMinutes,
			Price:    s.Price,
			Active:   s.IsActive,
		})
	}
	return out
}

// StaffModels converts staff members and their breaks for the data store.
func (c *RosterConfig) StaffModels() ([]model.StaffMember, []model.Break, error) {
	staff := make([]model.StaffMember, 0, len(c.Staff))
	var breaks []model.Break

	for i := range c.Staff {
		st := &c.Staff[i]
		days, err := model.ParseWeekdays(st.WorkingDays)
		if err != nil {
			return nil, nil, fmt.Errorf("staff %s: %w", st.ID, err)
		}
		hours, err := st.hours()
		if err != nil {
			return nil, nil, fmt.Errorf("staff %s: %w", st.ID, err)
		}
		role := st.Role
		if role == "" {
			role = model.DefaultSchedulableRole
		}

		staff = append(staff, model.StaffMember{
			ID:                   st.ID,
			Name:                 st.Name,
			BranchID:             st.BranchID,
			Role:                 role,
			Active:               st.IsActive,
			EmergencyUnavailable: st.EmergencyUnavailable,
			Specializations:      append([]string(nil), st.Specializations...),
			WorkingDays:          days,
			Hours:                hours,
		})

		for j, b := range st.Breaks {
			br, err := b.toModel(st.ID, j)
			if err != nil {
				return nil, nil, fmt.Errorf("staff %s break %d: %w", st.ID, j, err)
			}
			breaks = append(breaks, br)
		}
	}

	return staff, breaks, nil
}

// LeaveModels converts leave records, interpreting times in loc.
func (c *RosterConfig) LeaveModels(loc *time.Location) ([]model.LeaveRecord, error) {
	out := make([]model.LeaveRecord, 0, len(c.Leave))
	for _, l := range c.Leave {
		rec, err := l.toModel(loc)
		if err != nil {
			return nil, fmt.Errorf("leave %s: %w", l.ID, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

// String returns a summary of the roster.
func (c *RosterConfig) String() string {
	active := 0
	for _, s := range c.Staff {
		if s.IsActive {
			active++
		}
	}
	return fmt.Sprintf("RosterConfig: %d services, %d staff (%d active), %d leave records",
		len(c.Services), len(c.Staff), active, len(c.Leave))
}
