package tools

import (
	"context"
	"time"

	"github.com/aretw0/concierge/internal/adapters/maps"
	"github.com/aretw0/concierge/pkg/domain"
	"github.com/aretw0/concierge/pkg/registry"
)

// HospitalName labels the traffic report.
const HospitalName = "Northwestern Memorial Hospital"

type routeArgs struct {
	StartAddress string `json:"start_address"`
	Mode         string `json:"mode"`
	ArrivalTime  string `json:"arrival_time"`
}

type etaArgs struct {
	StartAddress  string `json:"start_address"`
	DepartureTime string `json:"departure_time"`
	Mode          string `json:"mode"`
}

// Route is one way to the hospital.
type Route struct {
	Type string `json:"type"`
	// Minutes.
	Duration          int      `json:"duration"`
	DurationInTraffic *int     `json:"duration_in_traffic"`
	DistanceKM        float64  `json:"distance"`
	Steps             []string `json:"steps"`
	ArrivalTime       string   `json:"arrival_time"`
	DepartureTime     string   `json:"departure_time"`
}

// RoadStatus describes one road near the hospital.
type RoadStatus struct {
	Name            string `json:"name"`
	Status          string `json:"status"`
	CongestionLevel string `json:"congestion_level"`
}

// Traffic is the situation around the hospital.
type Traffic struct {
	HospitalName  string       `json:"hospital_name,omitempty"`
	Timestamp     string       `json:"timestamp,omitempty"`
	OverallStatus string       `json:"overall_status,omitempty"`
	NearbyRoads   []RoadStatus `json:"nearby_roads,omitempty"`
	Error         string       `json:"error,omitempty"`
}

// RoutePlan answers get_route_to_hospital.
type RoutePlan struct {
	StartAddress      string   `json:"start_address"`
	Destination       string   `json:"destination"`
	Routes            []Route  `json:"routes"`
	TrafficConditions *Traffic `json:"traffic_conditions"`
}

// Arrival answers get_estimated_arrival_time.
type Arrival struct {
	DepartureTime    string  `json:"departure_time"`
	EstimatedArrival string  `json:"estimated_arrival"`
	DurationMinutes  int     `json:"duration_minutes"`
	DistanceKM       float64 `json:"distance_km"`
	TrafficCondition string  `json:"traffic_condition"`
}

func (b *binder) directionTools() []registry.Tool {
	return []registry.Tool{
		{
			Name:        GetRouteToHospital,
			Description: "Plan routes from an address to the hospital, with step-by-step directions.",
			Parameters: registry.Object(map[string]any{
				"start_address": registry.String("Where the patient starts"),
				"mode":          registry.Enum("Transportation mode (default: driving)", maps.Modes...),
				"arrival_time":  registry.String("Desired arrival, " + dateHelp),
			}, "start_address"),
			Fn: registry.Typed(b.routeToHospital),
		},
		{
			Name:        GetEstimatedArrivalTime,
			Description: "Estimate when the patient reaches the hospital, accounting for traffic.",
			Parameters: registry.Object(map[string]any{
				"start_address":  registry.String("Where the patient starts"),
				"departure_time": registry.String("When the patient leaves, " + dateHelp + " (default: now)"),
				"mode":           registry.Enum("Transportation mode (default: driving)", maps.Modes...),
			}, "start_address"),
			Fn: registry.Typed(b.estimatedArrival),
		},
	}
}

func (b *binder) routeToHospital(ctx context.Context, in routeArgs) (any, error) {
	if b.Maps == nil {
		return nil, unavailable("maps")
	}
	if in.Mode == "" {
		in.Mode = maps.Driving
	}
	arrive, err := b.optionalTime("arrival_time", in.ArrivalTime)
	if err != nil {
		return nil, err
	}

	now := b.now()
	legs, err := b.Maps.Directions(ctx, maps.RouteRequest{
		Origin:       in.StartAddress,
		Mode:         in.Mode,
		ArrivalTime:  arrive,
		Alternatives: true,
	})
	if err != nil {
		return nil, err
	}
	if len(legs) == 0 {
		return nil, domain.Validation("No routes found")
	}

	plan := &RoutePlan{
		StartAddress: in.StartAddress,
		Destination:  b.Maps.Destination(),
		Routes:       make([]Route, 0, len(legs)),
	}
	for _, leg := range legs {
		r := Route{
			Type:       in.Mode,
			Duration:   int(leg.Duration / time.Minute),
			DistanceKM: float64(leg.DistanceMeters) / 1000,
			Steps:      leg.Steps,
		}
		if leg.DurationInTraffic > 0 {
			m := int(leg.DurationInTraffic / time.Minute)
			r.DurationInTraffic = &m
		}
		if arrive.IsZero() {
			r.DepartureTime = now.Format(displayLayout)
			r.ArrivalTime = now.Add(leg.Duration).Format(displayLayout)
		} else {
			r.DepartureTime = arrive.Add(-leg.Duration).Format(displayLayout)
			r.ArrivalTime = arrive.Format(displayLayout)
		}
		plan.Routes = append(plan.Routes, r)
	}
	if in.Mode == maps.Driving {
		plan.TrafficConditions = b.traffic(ctx, now)
	}
	return plan, nil
}

// traffic never fails the route lookup; a failure is reported inline.
func (b *binder) traffic(ctx context.Context, now time.Time) *Traffic {
	roads, err := b.Maps.NearbyRoads(ctx, 5)
	if err != nil {
		b.Logger.Warn("traffic lookup failed", "err", err)
		return &Traffic{Error: "Failed to get traffic conditions: " + domain.UserMessage(err)}
	}
	t := &Traffic{
		HospitalName:  HospitalName,
		Timestamp:     now.Format(displayLayout),
		OverallStatus: "Normal",
		NearbyRoads:   make([]RoadStatus, 0, len(roads)),
	}
	for _, name := range roads {
		t.NearbyRoads = append(t.NearbyRoads, RoadStatus{Name: name, Status: "Normal", CongestionLevel: "Light"})
	}
	return t
}

func (b *binder) estimatedArrival(ctx context.Context, in etaArgs) (any, error) {
	if b.Maps == nil {
		return nil, unavailable("maps")
	}
	if in.Mode == "" {
		in.Mode = maps.Driving
	}
	depart, err := b.optionalTime("departure_time", in.DepartureTime)
	if err != nil {
		return nil, err
	}
	if depart.IsZero() {
		depart = b.now()
	}

	legs, err := b.Maps.Directions(ctx, maps.RouteRequest{
		Origin:        in.StartAddress,
		Mode:          in.Mode,
		DepartureTime: depart,
	})
	if err != nil {
		return nil, err
	}
	if len(legs) == 0 {
		return nil, domain.Validation("Unable to calculate arrival time")
	}

	leg := legs[0]
	d := leg.Duration
	if leg.DurationInTraffic > 0 {
		d = leg.DurationInTraffic
	}
	condition := "Normal"
	if d > leg.Duration {
		condition = "Heavy"
	}
	return &Arrival{
		DepartureTime:    depart.Format(displayLayout),
		EstimatedArrival: depart.Add(d).Format(displayLayout),
		DurationMinutes:  int(d / time.Minute),
		DistanceKM:       float64(leg.DistanceMeters) / 1000,
		TrafficCondition: condition,
	}, nil
}
