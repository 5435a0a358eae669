package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/aretw0/concierge/pkg/domain"
)

// overlapping matches confirmed reservations intersecting [?, ?).
const overlapping = `pr.status = 'confirmed'
	AND pr.reservation_time < ?
	AND datetime(pr.reservation_time, '+' || pr.duration_hours || ' hours') > ?`

// ParkingQuery selects the window and type to check.
type ParkingQuery struct {
	ArrivalTime   time.Time // default: now
	DurationHours int       // default: 2
	ParkingType   string    // empty: every type
}

// ParkingAvailability aggregates free spaces per area for a time window.
func (s *Store) ParkingAvailability(ctx context.Context, q ParkingQuery) (*ParkingAvailability, error) {
	if q.ArrivalTime.IsZero() {
		q.ArrivalTime = s.Now()
	}
	if q.DurationHours <= 0 {
		q.DurationHours = 2
	}
	from := s.format(q.ArrivalTime)
	to := s.format(q.ArrivalTime.Add(time.Duration(q.DurationHours) * time.Hour))

	query := `
		SELECT p.area_id, p.name, p.level, p.total_spaces, p.parking_type, p.hourly_rate,
			(SELECT COUNT(*) FROM parking_spots ps WHERE ps.area_id = p.area_id AND ps.status = 'available'),
			(SELECT COUNT(*) FROM parking_reservations pr WHERE pr.area_id = p.area_id AND ` + overlapping + `)
		FROM parking_facilities p
		WHERE 1=1`
	args := []any{to, from}
	if q.ParkingType != "" {
		query += " AND p.parking_type = ?"
		args = append(args, q.ParkingType)
	}
	query += " ORDER BY p.area_id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, dbErr(err)
	}
	defer rows.Close()

	out := &ParkingAvailability{
		Timestamp: s.Now().Format(time.RFC3339),
		Areas:     []ParkingArea{},
	}
	for rows.Next() {
		var a ParkingArea
		var available int
		if err := rows.Scan(&a.AreaID, &a.Name, &a.Level, &a.TotalSpaces, &a.ParkingType, &a.HourlyRate,
			&available, &a.ReservedSpaces); err != nil {
			return nil, dbErr(err)
		}
		a.AvailableSpaces = max(available-a.ReservedSpaces, 0)
		if a.TotalSpaces > 0 {
			a.OccupancyPercentage = math.Round((1-float64(a.AvailableSpaces)/float64(a.TotalSpaces))*1000) / 10
		}
		out.Areas = append(out.Areas, a)
		out.TotalAvailable += a.AvailableSpaces
		out.TotalCapacity += a.TotalSpaces
	}
	if err := rows.Err(); err != nil {
		return nil, dbErr(err)
	}
	return out, nil
}

// ParkingRequest reserves a spot in an area.
type ParkingRequest struct {
	AreaID        int
	ArrivalTime   time.Time
	DurationHours int
	ParkingType   string // default: standard
}

// ReserveParkingSpot books the first free spot of the requested type.
func (s *Store) ReserveParkingSpot(ctx context.Context, patientID string, r ParkingRequest) (*ParkingReservation, error) {
	if r.DurationHours <= 0 {
		return nil, domain.Validation("duration_hours must be at least 1")
	}
	if !r.ArrivalTime.After(s.Now()) {
		return nil, domain.Validation("Arrival time must be in the future")
	}
	if r.ParkingType == "" {
		r.ParkingType = ParkingStandard
	}
	from := s.format(r.ArrivalTime)
	to := s.format(r.ArrivalTime.Add(time.Duration(r.DurationHours) * time.Hour))

	var res *ParkingReservation
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var spotID int
		var spotNumber string
		var rate float64
		err := tx.QueryRowContext(ctx, `
			SELECT ps.spot_id, ps.spot_number, p.hourly_rate
			FROM parking_spots ps
			JOIN parking_facilities p ON ps.area_id = p.area_id
			WHERE ps.area_id = ? AND ps.type = ? AND ps.status = 'available'
			AND NOT EXISTS (
				SELECT 1 FROM parking_reservations pr WHERE pr.spot_id = ps.spot_id AND `+overlapping+`
			)
			ORDER BY ps.spot_number
			LIMIT 1`, r.AreaID, r.ParkingType, to, from).Scan(&spotID, &spotNumber, &rate)
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Validation("No available parking spots for the selected criteria")
		}
		if err != nil {
			return dbErr(err)
		}

		cost := rate * float64(r.DurationHours)
		result, err := tx.ExecContext(ctx, `
			INSERT INTO parking_reservations (
				area_id, spot_id, patient_id, reservation_time, duration_hours, total_cost, status, created_at
			) VALUES (?, ?, ?, ?, ?, ?, 'confirmed', ?)`,
			r.AreaID, spotID, patientID, from, r.DurationHours, cost, s.format(s.Now()))
		if err != nil {
			return dbErr(err)
		}
		id, err := result.LastInsertId()
		if err != nil {
			return dbErr(err)
		}
		res = newReservation(id, spotNumber, r, cost)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("parking reserved", "reservation_id", res.ReservationID, "spot", res.SpotNumber)
	return res, nil
}

func newReservation(id int64, spot string, r ParkingRequest, cost float64) *ParkingReservation {
	// Spot numbers encode level then zone, e.g. "1A03".
	level, zone := "", ""
	if len(spot) >= 2 {
		level, zone = spot[:1], spot[1:2]
	}
	return &ParkingReservation{
		ReservationID: id,
		SpotNumber:    spot,
		ArrivalTime:   r.ArrivalTime.Format(time.RFC3339),
		DurationHours: r.DurationHours,
		TotalCost:     cost,
		QRCode:        fmt.Sprintf("PARKING-%d-%s", id, spot),
		Instructions: []string{
			fmt.Sprintf("Your reserved spot is %s", spot),
			"Please arrive within 30 minutes of your reserved time",
			"Scan QR code at parking entrance",
			"Park only in your assigned spot",
			fmt.Sprintf("Maximum parking duration: %d hours", r.DurationHours),
			"Contact parking office for extensions: 555-0123",
		},
		NavigationInfo: NavigationInfo{
			Level: level,
			Zone:  zone,
			Directions: []string{
				"Enter through main parking entrance",
				fmt.Sprintf("Follow signs to Level %s", level),
				fmt.Sprintf("Your spot is in Zone %s", zone),
			},
		},
	}
}

// CancelParkingReservation cancels a confirmed reservation at least 2 hours ahead.
func (s *Store) CancelParkingReservation(ctx context.Context, patientID string, reservationID int) (*ParkingCancellation, error) {
	var out *ParkingCancellation
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var at, status string
		var cost float64
		err := tx.QueryRowContext(ctx, `
			SELECT reservation_time, status, total_cost FROM parking_reservations
			WHERE reservation_id = ? AND patient_id = ?`, reservationID, patientID).Scan(&at, &status, &cost)
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Unauthorized("Reservation not found or unauthorized")
		}
		if err != nil {
			return dbErr(err)
		}

		when, err := s.parse(at)
		if err != nil {
			return dbErr(err)
		}
		if when.Before(s.Now().Add(2 * time.Hour)) {
			return domain.Validation("Cancellations must be made at least 2 hours in advance")
		}
		if status != "confirmed" {
			return domain.Validation("Cannot cancel reservation with status: %s", status)
		}

		if _, err := tx.ExecContext(ctx, `
			UPDATE parking_reservations SET status = 'cancelled', cancelled_at = ?
			WHERE reservation_id = ?`, s.format(s.Now()), reservationID); err != nil {
			return dbErr(err)
		}
		out = &ParkingCancellation{
			Status:       "cancelled",
			RefundAmount: cost,
			Message:      "Reservation cancelled successfully. Refund will be processed.",
		}
		return nil
	})
	return out, err
}
