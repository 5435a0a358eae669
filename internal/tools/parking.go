package tools

import (
	"context"

	"github.com/aretw0/concierge/internal/adapters/sqlite"
	"github.com/aretw0/concierge/pkg/domain"
	"github.com/aretw0/concierge/pkg/registry"
)

var parkingTypes = []string{sqlite.ParkingStandard, sqlite.ParkingDisabled, sqlite.ParkingVIP, sqlite.ParkingEmergency}

type availabilityArgs struct {
	ArrivalTime   string `json:"arrival_time"`
	ParkingType   string `json:"parking_type"`
	DurationHours int    `json:"duration_hours"`
}

type reserveArgs struct {
	AreaID        int    `json:"area_id"`
	ArrivalTime   string `json:"arrival_time"`
	DurationHours int    `json:"duration_hours"`
	ParkingType   string `json:"parking_type"`
}

type releaseArgs struct {
	ReservationID int `json:"reservation_id"`
}

func (b *binder) parkingTools() []registry.Tool {
	return []registry.Tool{
		{
			Name:        GetParkingAvailability,
			Description: "Show free parking spaces per area for an arrival time and duration.",
			Parameters: registry.Object(map[string]any{
				"arrival_time":   registry.String("Expected arrival, " + dateHelp + " (default: now)"),
				"parking_type":   registry.Enum("Restrict to one kind of space", parkingTypes...),
				"duration_hours": registry.Integer("How long the car stays (default: 2)"),
			}),
			Fn: registry.Typed(func(ctx context.Context, in availabilityArgs) (any, error) {
				at, err := b.optionalTime("arrival_time", in.ArrivalTime)
				if err != nil {
					return nil, err
				}
				return b.Hospital.ParkingAvailability(ctx, sqlite.ParkingQuery{
					ArrivalTime:   at,
					DurationHours: in.DurationHours,
					ParkingType:   in.ParkingType,
				})
			}),
		},
		{
			Name:        ReserveParkingSpot,
			Description: "Reserve a parking spot in an area for the current patient.",
			Capability:  domain.Sensitive,
			Parameters: registry.Object(map[string]any{
				"area_id":        registry.Integer("Parking area, from get_parking_availability"),
				"arrival_time":   registry.String("Expected arrival, " + dateHelp),
				"duration_hours": registry.Integer("Hours to reserve"),
				"parking_type":   registry.Enum("Kind of space (default: standard)", parkingTypes...),
			}, "area_id", "arrival_time", "duration_hours"),
			Fn: registry.Typed(func(ctx context.Context, in reserveArgs) (any, error) {
				patient, err := registry.UserContextID(ctx)
				if err != nil {
					return nil, err
				}
				at, err := b.parseTime("arrival_time", in.ArrivalTime)
				if err != nil {
					return nil, err
				}
				return b.Hospital.ReserveParkingSpot(ctx, patient, sqlite.ParkingRequest{
					AreaID:        in.AreaID,
					ArrivalTime:   at,
					DurationHours: in.DurationHours,
					ParkingType:   in.ParkingType,
				})
			}),
		},
		{
			Name:        CancelParkingReservation,
			Description: "Cancel a parking reservation at least 2 hours before arrival.",
			Capability:  domain.Sensitive,
			Parameters: registry.Object(map[string]any{
				"reservation_id": registry.Integer("Reservation to cancel"),
			}, "reservation_id"),
			Fn: registry.Typed(func(ctx context.Context, in releaseArgs) (any, error) {
				patient, err := registry.UserContextID(ctx)
				if err != nil {
					return nil, err
				}
				return b.Hospital.CancelParkingReservation(ctx, patient, in.ReservationID)
			}),
		},
	}
}
