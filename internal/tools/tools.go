// Package tools binds the hospital services to the tool registry: the
// database for appointments, records and parking, the maps service for
// directions, the model for symptom analysis and the web search service.
//
// Identity-scoped tools read the patient from the caller attached to the
// context (registry.UserContextID); they never accept it as an argument.
package tools

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/concierge/internal/adapters/maps"
	"github.com/aretw0/concierge/internal/adapters/search"
	"github.com/aretw0/concierge/internal/adapters/sqlite"
	"github.com/aretw0/concierge/internal/logging"
	"github.com/aretw0/concierge/pkg/ports"
	"github.com/aretw0/concierge/pkg/registry"
)

// Tool names.
const (
	SearchDoctors               = "search_doctors"
	SearchDepartments           = "search_departments"
	SearchAvailableAppointments = "search_available_appointments"
	GetUpcomingAppointments     = "get_upcoming_appointments"
	BookAppointment             = "book_appointment"
	UpdateAppointment           = "update_appointment"
	CancelAppointment           = "cancel_appointment"
	SubmitDoctorReview          = "submit_doctor_review"

	SearchMedicalRecords     = "search_medical_records"
	GetMedicalExpenses       = "get_medical_expenses"
	GetPatientMedicalHistory = "get_patient_medical_history"
	SymptomAnalysis          = "symptom_analysis"

	GetRouteToHospital      = "get_route_to_hospital"
	GetEstimatedArrivalTime = "get_estimated_arrival_time"

	GetParkingAvailability   = "get_parking_availability"
	ReserveParkingSpot       = "reserve_parking_spot"
	CancelParkingReservation = "cancel_parking_reservation"

	WebSearch = "web_search"
)

// Navigator is the maps service as the direction tools use it.
type Navigator interface {
	Directions(ctx context.Context, req maps.RouteRequest) ([]maps.Leg, error)
	NearbyRoads(ctx context.Context, limit int) ([]string, error)
	Destination() string
}

// Searcher is the web search service.
type Searcher interface {
	Search(ctx context.Context, query string, maxResults int) ([]search.Result, error)
}

// Services are the collaborators the tools call. Hospital is required; a nil
// Maps, Search or Model leaves its tools registered but failing with an
// external-service error, so the agents' tool sets stay stable.
type Services struct {
	Hospital *sqlite.Store
	Maps     Navigator
	Search   Searcher
	Model    ports.Model
	Logger   *slog.Logger
}

type binder struct {
	Services
}

// Register adds every hospital tool to reg.
func Register(reg *registry.Registry, s Services) error {
	if s.Hospital == nil {
		return errors.New("tools: hospital store is required")
	}
	if s.Logger == nil {
		s.Logger = logging.NewNop()
	}
	b := &binder{Services: s}

	var errs []error
	for _, group := range [][]registry.Tool{
		b.appointmentTools(),
		b.recordTools(),
		b.parkingTools(),
		b.directionTools(),
		b.advisorTools(),
	} {
		for _, t := range group {
			if err := reg.Register(t); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// now is the hospital clock; every relative date is resolved against it.
func (b *binder) now() time.Time { return b.Hospital.Now() }

func (b *binder) loc() *time.Location { return b.Hospital.Location() }

func (b *binder) parseTime(field, value string) (time.Time, error) {
	return ParseTime(field, value, b.now(), b.loc())
}

func (b *binder) optionalTime(field, value string) (time.Time, error) {
	return optionalTime(field, value, b.now(), b.loc())
}

func (b *binder) dateRange(from, to string) (sqlite.DateRange, error) {
	start, err := b.optionalTime("start_date", from)
	if err != nil {
		return sqlite.DateRange{}, err
	}
	end, err := b.optionalTime("end_date", to)
	if err != nil {
		return sqlite.DateRange{}, err
	}
	return sqlite.DateRange{From: start, To: end}, nil
}

func unavailable(service string) error {
	return fmt.Errorf("%s service is not configured", service)
}
