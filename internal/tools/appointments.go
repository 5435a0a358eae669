package tools

import (
	"context"
	"fmt"

	"github.com/aretw0/concierge/internal/adapters/sqlite"
	"github.com/aretw0/concierge/pkg/domain"
	"github.com/aretw0/concierge/pkg/registry"
)

type doctorSearch struct {
	Department      string `json:"department"`
	Name            string `json:"name"`
	Specialty       string `json:"specialty"`
	IncludeInactive bool   `json:"include_inactive"`
}

type departmentSearch struct {
	Name            string `json:"name"`
	IncludeInactive bool   `json:"include_inactive"`
}

type slotSearch struct {
	Department string `json:"department"`
	DoctorID   int    `json:"doctor_id"`
	StartDate  string `json:"start_date"`
	EndDate    string `json:"end_date"`
}

type bookingArgs struct {
	DoctorID        int    `json:"doctor_id"`
	ScheduledTime   string `json:"scheduled_time"`
	AppointmentType string `json:"appointment_type"`
	Symptoms        string `json:"symptoms"`
}

type updateArgs struct {
	AppointmentID int    `json:"appointment_id"`
	NewTime       string `json:"new_time"`
	NewDoctorID   int    `json:"new_doctor_id"`
}

type cancelArgs struct {
	AppointmentID int    `json:"appointment_id"`
	Reason        string `json:"reason"`
}

type reviewArgs struct {
	DoctorID int    `json:"doctor_id"`
	Rating   int    `json:"rating"`
	Comment  string `json:"comment"`
}

const dateHelp = "YYYY-MM-DD HH:MM or a phrase such as 'tomorrow at 10am'"

func (b *binder) appointmentTools() []registry.Tool {
	return []registry.Tool{
		{
			Name:        SearchDoctors,
			Description: "Search for doctors by department, name or specialty.",
			Parameters: registry.Object(map[string]any{
				"department":       registry.String("Department name, partial match"),
				"name":             registry.String("Doctor name, partial match"),
				"specialty":        registry.String("Specialty, partial match"),
				"include_inactive": registry.Boolean("Also list doctors who no longer take appointments"),
			}),
			Fn: registry.Typed(func(ctx context.Context, in doctorSearch) (any, error) {
				return b.Hospital.SearchDoctors(ctx, sqlite.DoctorQuery{
					Department:      in.Department,
					Name:            in.Name,
					Specialty:       in.Specialty,
					IncludeInactive: in.IncludeInactive,
				})
			}),
		},
		{
			Name:        SearchDepartments,
			Description: "Search hospital departments by name.",
			Parameters: registry.Object(map[string]any{
				"name":             registry.String("Department name, partial match"),
				"include_inactive": registry.Boolean("Also list closed departments"),
			}),
			Fn: registry.Typed(func(ctx context.Context, in departmentSearch) (any, error) {
				return b.Hospital.SearchDepartments(ctx, in.Name, in.IncludeInactive)
			}),
		},
		{
			Name:        SearchAvailableAppointments,
			Description: "List free 30-minute appointment slots. Defaults to the next 7 days.",
			Parameters: registry.Object(map[string]any{
				"department": registry.String("Department name, partial match"),
				"doctor_id":  registry.Integer("Restrict to one doctor"),
				"start_date": registry.String("First day to search, " + dateHelp),
				"end_date":   registry.String("Last moment to search, " + dateHelp),
			}),
			Fn: registry.Typed(func(ctx context.Context, in slotSearch) (any, error) {
				start, err := b.optionalTime("start_date", in.StartDate)
				if err != nil {
					return nil, err
				}
				end, err := b.optionalTime("end_date", in.EndDate)
				if err != nil {
					return nil, err
				}
				return b.Hospital.SearchAvailableAppointments(ctx, sqlite.SlotQuery{
					Department: in.Department,
					DoctorID:   in.DoctorID,
					Start:      start,
					End:        end,
				})
			}),
		},
		{
			Name:        GetUpcomingAppointments,
			Description: "List the current patient's scheduled appointments.",
			Fn: func(ctx context.Context, _ map[string]any) (any, error) {
				patient, err := registry.UserContextID(ctx)
				if err != nil {
					return nil, err
				}
				return b.Hospital.UpcomingAppointments(ctx, patient)
			},
		},
		{
			Name:        BookAppointment,
			Description: "Book an appointment for the current patient with a doctor at a given time.",
			Capability:  domain.Sensitive,
			Parameters: registry.Object(map[string]any{
				"doctor_id":        registry.Integer("Doctor to see"),
				"scheduled_time":   registry.String("Start of the appointment, " + dateHelp),
				"appointment_type": registry.Enum("Kind of visit", "consultation", "follow_up", "checkup", "procedure"),
				"symptoms":         registry.String("Reason for the visit"),
			}, "doctor_id", "scheduled_time"),
			Fn: registry.Typed(func(ctx context.Context, in bookingArgs) (any, error) {
				patient, err := registry.UserContextID(ctx)
				if err != nil {
					return nil, err
				}
				at, err := b.parseTime("scheduled_time", in.ScheduledTime)
				if err != nil {
					return nil, err
				}
				if in.AppointmentType == "" {
					in.AppointmentType = "consultation"
				}
				id, err := b.Hospital.BookAppointment(ctx, patient, sqlite.Booking{
					DoctorID:        in.DoctorID,
					ScheduledTime:   at,
					AppointmentType: in.AppointmentType,
					Symptoms:        in.Symptoms,
				})
				if err != nil {
					return nil, err
				}
				return fmt.Sprintf("Appointment successfully booked! Appointment ID: %d", id), nil
			}),
		},
		{
			Name:        UpdateAppointment,
			Description: "Move a scheduled appointment to another time and/or doctor.",
			Capability:  domain.Sensitive,
			Parameters: registry.Object(map[string]any{
				"appointment_id": registry.Integer("Appointment to change"),
				"new_time":       registry.String("New start time, " + dateHelp),
				"new_doctor_id":  registry.Integer("New doctor"),
			}, "appointment_id"),
			Fn: registry.Typed(func(ctx context.Context, in updateArgs) (any, error) {
				patient, err := registry.UserContextID(ctx)
				if err != nil {
					return nil, err
				}
				at, err := b.optionalTime("new_time", in.NewTime)
				if err != nil {
					return nil, err
				}
				if err := b.Hospital.UpdateAppointment(ctx, patient, sqlite.AppointmentChange{
					AppointmentID: in.AppointmentID,
					NewTime:       at,
					NewDoctorID:   in.NewDoctorID,
				}); err != nil {
					return nil, err
				}
				return "Appointment successfully updated", nil
			}),
		},
		{
			Name:        CancelAppointment,
			Description: "Cancel a scheduled appointment. Only possible at least 24 hours ahead.",
			Capability:  domain.Sensitive,
			Parameters: registry.Object(map[string]any{
				"appointment_id": registry.Integer("Appointment to cancel"),
				"reason":         registry.String("Why the patient cancels"),
			}, "appointment_id", "reason"),
			Fn: registry.Typed(func(ctx context.Context, in cancelArgs) (any, error) {
				patient, err := registry.UserContextID(ctx)
				if err != nil {
					return nil, err
				}
				if err := b.Hospital.CancelAppointment(ctx, patient, in.AppointmentID, in.Reason); err != nil {
					return nil, err
				}
				return "Appointment successfully cancelled", nil
			}),
		},
		{
			Name:        SubmitDoctorReview,
			Description: "Rate a doctor the patient has seen, from 1 to 5.",
			Capability:  domain.Sensitive,
			Parameters: registry.Object(map[string]any{
				"doctor_id": registry.Integer("Doctor to review"),
				"rating":    registry.Integer("Rating from 1 (poor) to 5 (excellent)"),
				"comment":   registry.String("Free-text review"),
			}, "doctor_id", "rating"),
			Fn: registry.Typed(func(ctx context.Context, in reviewArgs) (any, error) {
				patient, err := registry.UserContextID(ctx)
				if err != nil {
					return nil, err
				}
				if err := b.Hospital.SubmitDoctorReview(ctx, patient, in.DoctorID, in.Rating, in.Comment); err != nil {
					return nil, err
				}
				return "Review submitted successfully", nil
			}),
		},
	}
}
