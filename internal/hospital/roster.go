// Package hospital assembles the hospital-support assistant: the router, the
// appointment, AI doctor, direction and parking specialists, and the tools
// each of them is bound with.
package hospital

import (
	"fmt"

	"github.com/aretw0/concierge/internal/adapters/maps"
	"github.com/aretw0/concierge/internal/tools"
	"github.com/aretw0/concierge/pkg/domain"
	"github.com/aretw0/concierge/pkg/registry"
	"github.com/aretw0/concierge/pkg/specialist"
)

// Transfer tool names, one per specialist.
const (
	ToAppointment = "to_appointment_assistant"
	ToAIDoctor    = "to_ai_doctor_assistant"
	ToDirection   = "to_direction_assistant"
	ToParking     = "to_parking_assistant"
)

// Router is the host assistant. It answers record and billing questions and
// searches the web itself.
func Router() specialist.Config {
	return specialist.Config{
		ID:        domain.Router,
		Name:      "Hospital Support Assistant",
		Prompt:    routerPrompt,
		SafeTools: []string{tools.SearchMedicalRecords, tools.GetMedicalExpenses, tools.WebSearch},
	}
}

// Specialists lists the delegates in routing order.
func Specialists() []specialist.Config {
	return []specialist.Config{
		{
			ID:     domain.Appointment,
			Name:   "Medical Appointment Assistant",
			Prompt: appointmentPrompt,
			SafeTools: []string{
				tools.SearchDoctors,
				tools.SearchDepartments,
				tools.SearchAvailableAppointments,
				tools.GetUpcomingAppointments,
			},
			SensitiveTools: []string{
				tools.BookAppointment,
				tools.UpdateAppointment,
				tools.CancelAppointment,
				tools.SubmitDoctorReview,
			},
			Transfer: &specialist.TransferSpec{
				Tool:        ToAppointment,
				Description: "Transfers work to a specialized assistant to handle medical appointments.",
				RequestHelp: "Any followup questions the appointment assistant should clarify before proceeding.",
			},
		},
		{
			ID:     domain.AIDoctor,
			Name:   "AI Doctor Assistant",
			Prompt: aiDoctorPrompt,
			SafeTools: []string{
				tools.SymptomAnalysis,
				tools.GetPatientMedicalHistory,
				tools.SearchMedicalRecords,
			},
			Transfer: &specialist.TransferSpec{
				Tool:        ToAIDoctor,
				Description: "Transfers work to a specialized AI doctor assistant.",
				RequestHelp: "Any additional medical-related questions from the user.",
				Fields: []specialist.Field{{
					Name:        "symptoms",
					Description: "The symptoms described by the user, e.g. 'Headache and fever for the past 2 days'.",
					Required:    true,
				}},
			},
		},
		{
			ID:        domain.Direction,
			Name:      "Direction Assistant",
			Prompt:    directionPrompt,
			SafeTools: []string{tools.GetEstimatedArrivalTime, tools.GetRouteToHospital},
			Transfer: &specialist.TransferSpec{
				Tool:        ToDirection,
				Description: "Transfers work to a specialized assistant to handle directions.",
				RequestHelp: "User's specific needs regarding directions, e.g. 'I need directions for tomorrow's appointment.'",
				Fields: []specialist.Field{{
					Name:        "destination",
					Description: "The user's destination, typically the hospital.",
					Default:     maps.HospitalAddress,
				}},
			},
		},
		{
			ID:             domain.Parking,
			Name:           "Parking Assistant",
			Prompt:         parkingPrompt,
			SafeTools:      []string{tools.GetParkingAvailability},
			SensitiveTools: []string{tools.ReserveParkingSpot, tools.CancelParkingReservation},
			Transfer: &specialist.TransferSpec{
				Tool:        ToParking,
				Description: "Transfers work to a specialized assistant to handle parking matters.",
				RequestHelp: "User's specific needs regarding parking, e.g. 'I need to reserve a spot for tomorrow's appointment.'",
			},
		},
	}
}

// NewRoster registers the hospital tools against svc and builds the roster.
func NewRoster(svc tools.Services) (*specialist.Roster, error) {
	reg := registry.NewRegistry()
	if err := tools.Register(reg, svc); err != nil {
		return nil, fmt.Errorf("registering hospital tools: %w", err)
	}
	return specialist.NewRoster(reg, Router(), Specialists()...)
}
