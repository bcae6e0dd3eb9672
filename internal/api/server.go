package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"salonbook/internal/booking"
	"salonbook/internal/conflict"
	"salonbook/internal/db"
	"salonbook/internal/model"
	"salonbook/internal/slots"

	"github.com/rs/zerolog"
)

const dateLayout = "2006-01-02"

// Catalog provides services and the staff roster.
type Catalog interface {
	GetService(ctx context.Context, id string) (*model.Service, error)
	ListStaff(ctx context.Context, branchID string) ([]model.StaffMember, error)
}

// ReadinessCheck reports whether a dependency can serve traffic.
type ReadinessCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// Config holds listener and rate limit settings.
type Config struct {
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	RateLimit    RateLimitConfig
}

// Deps are the components the handlers call into.
type Deps struct {
	Catalog    Catalog
	Resolver   *slots.Resolver
	Aggregator *slots.Aggregator
	Validator  *conflict.Validator
	Booking    *booking.Service
	Ready      []ReadinessCheck
}

// HTTPServer exposes availability and booking over JSON/HTTP.
type HTTPServer struct {
	deps   Deps
	opts   slots.Options
	logger *zerolog.Logger
	server *http.Server
}

func NewHTTPServer(cfg Config, deps Deps, logger *zerolog.Logger) *HTTPServer {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	s := &HTTPServer{
		deps:   deps,
		opts:   deps.Resolver.Options(),
		logger: logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/availability/by-staff", s.handleAvailabilityByStaff)
	mux.HandleFunc("/availability/consolidated", s.handleAvailabilityConsolidated)
	mux.HandleFunc("/appointments/validate", s.handleValidate)
	mux.HandleFunc("/appointments/validate-batch", s.handleValidateBatch)
	mux.HandleFunc("/appointments", s.handleBook)
	mux.HandleFunc("POST /appointments/{id}/reschedule", s.handleReschedule)
	mux.HandleFunc("POST /appointments/{id}/cancel", s.handleCancel)
	mux.Handle("/healthz", HealthHandler())
	mux.Handle("/readyz", ReadyHandler(deps.Ready))

	var handler http.Handler = mux
	handler = rateLimit(cfg.RateLimit, handler)
	handler = logRequests(logger, handler)
	handler = requestID(handler)

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return s
}

// Handler returns the fully wrapped handler.
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

// Start serves until ctx is done, then shuts down gracefully.
func (s *HTTPServer) Start(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(ctxShutdown)
	}()

	s.logger.Info().Str("addr", s.server.Addr).Msg("HTTP API listening")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// HealthHandler answers liveness checks.
func HealthHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
}

// ReadyHandler answers readiness checks by running every check with a short timeout.
func ReadyHandler(checks []ReadinessCheck) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctxPing, cancel := context.WithTimeout(r.Context(), time.Second)
		defer cancel()
		for _, c := range checks {
			if err := c.Check(ctxPing); err != nil {
				http.Error(w, c.Name+" not ready", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// parseDate reads a YYYY-MM-DD date in the engine's location. When notPast is
// set, dates before today are rejected.
func (s *HTTPServer) parseDate(raw string, notPast bool) (time.Time, error) {
	if raw == "" {
		return time.Time{}, errors.New("date is required")
	}
	date, err := time.ParseInLocation(dateLayout, raw, s.opts.Location)
	if err != nil {
		return time.Time{}, errors.New("invalid date format; expected YYYY-MM-DD")
	}
	if notPast && date.Before(s.opts.Today()) {
		return time.Time{}, errors.New("date must not be in the past")
	}
	return date, nil
}

// activeService loads serviceID and treats inactive services as missing.
func (s *HTTPServer) activeService(ctx context.Context, serviceID string) (*model.Service, int, error) {
	svc, err := s.deps.Catalog.GetService(ctx, serviceID)
	if errors.Is(err, db.ErrNotFound) || (err == nil && !svc.Active) {
		return nil, http.StatusNotFound, errors.New("service not found")
	}
	if err != nil {
		s.logger.Error().Err(err).Str("service_id", serviceID).Msg("service lookup failed")
		return nil, http.StatusServiceUnavailable, errors.New("could not load service")
	}
	return svc, http.StatusOK, nil
}
