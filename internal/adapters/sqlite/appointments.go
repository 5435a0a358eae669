package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aretw0/concierge/pkg/domain"
)

const appointmentColumns = `a.appointment_id, a.patient_id, a.doctor_id, a.department_id,
	a.scheduled_time, a.end_time, a.appointment_type, a.status, a.notes, a.symptoms,
	a.created_at, a.last_updated, a.cancelled_reason, d.name, dep.name`

const appointmentJoins = `FROM appointments a
	JOIN doctors d ON a.doctor_id = d.doctor_id
	JOIN departments dep ON a.department_id = dep.department_id`

func scanAppointments(rows *sql.Rows) ([]Appointment, error) {
	defer rows.Close()
	out := []Appointment{}
	for rows.Next() {
		var a Appointment
		if err := rows.Scan(&a.ID, &a.PatientID, &a.DoctorID, &a.DepartmentID,
			&a.ScheduledTime, &a.EndTime, &a.AppointmentType, &a.Status, &a.Notes, &a.Symptoms,
			&a.CreatedAt, &a.LastUpdated, &a.CancelledReason, &a.DoctorName, &a.DepartmentName); err != nil {
			return nil, dbErr(err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, dbErr(err)
	}
	return out, nil
}

// SearchDepartments lists departments whose name contains name.
func (s *Store) SearchDepartments(ctx context.Context, name string, includeInactive bool) ([]Department, error) {
	query := `SELECT department_id, name, description, location, contact_number, working_hours, is_active
		FROM departments WHERE 1=1`
	var args []any
	if name != "" {
		query += " AND name LIKE ?"
		args = append(args, "%"+name+"%")
	}
	if !includeInactive {
		query += " AND is_active = 1"
	}
	query += " ORDER BY department_id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, dbErr(err)
	}
	defer rows.Close()

	out := []Department{}
	for rows.Next() {
		var d Department
		if err := rows.Scan(&d.ID, &d.Name, &d.Description, &d.Location, &d.ContactNumber, &d.WorkingHours, &d.IsActive); err != nil {
			return nil, dbErr(err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, dbErr(err)
	}
	return out, nil
}

// DoctorQuery filters doctors. Text fields match by substring.
type DoctorQuery struct {
	Department      string
	Name            string
	Specialty       string
	DoctorID        int
	IncludeInactive bool
}

// SearchDoctors lists doctors matching q.
func (s *Store) SearchDoctors(ctx context.Context, q DoctorQuery) ([]Doctor, error) {
	return s.searchDoctors(ctx, s.db, q)
}

func (s *Store) searchDoctors(ctx context.Context, db querier, q DoctorQuery) ([]Doctor, error) {
	query := `SELECT d.doctor_id, d.name, d.department_id, d.title, d.specialty, d.working_days,
			d.working_hours, d.max_daily_appointments, d.email, d.contact_number, d.is_active, dep.name
		FROM doctors d
		JOIN departments dep ON d.department_id = dep.department_id
		WHERE 1=1`
	var args []any
	if q.Department != "" {
		query += " AND dep.name LIKE ?"
		args = append(args, "%"+q.Department+"%")
	}
	if q.Name != "" {
		query += " AND d.name LIKE ?"
		args = append(args, "%"+q.Name+"%")
	}
	if q.Specialty != "" {
		query += " AND d.specialty LIKE ?"
		args = append(args, "%"+q.Specialty+"%")
	}
	if q.DoctorID != 0 {
		query += " AND d.doctor_id = ?"
		args = append(args, q.DoctorID)
	}
	if !q.IncludeInactive {
		query += " AND d.is_active = 1"
	}
	query += " ORDER BY d.doctor_id"

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, dbErr(err)
	}
	defer rows.Close()

	out := []Doctor{}
	for rows.Next() {
		var d Doctor
		if err := rows.Scan(&d.ID, &d.Name, &d.DepartmentID, &d.Title, &d.Specialty, &d.WorkingDays,
			&d.WorkingHours, &d.MaxDailyAppointments, &d.Email, &d.ContactNumber, &d.IsActive, &d.DepartmentName); err != nil {
			return nil, dbErr(err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, dbErr(err)
	}
	return out, nil
}

// SlotQuery selects the doctors and date range to search for free slots.
type SlotQuery struct {
	Department string
	DoctorID   int
	Start      time.Time // default: now
	End        time.Time // default: Start + 7 days
	Limit      int       // default: 50
}

// SearchAvailableAppointments lists free future slots inside each doctor's working hours.
func (s *Store) SearchAvailableAppointments(ctx context.Context, q SlotQuery) ([]Slot, error) {
	now := s.Now()
	if q.Start.IsZero() || q.Start.Before(now) {
		q.Start = now
	}
	if q.End.IsZero() {
		q.End = q.Start.AddDate(0, 0, 7)
	}
	if q.Limit <= 0 {
		q.Limit = 50
	}
	if q.End.Before(q.Start) {
		return nil, domain.Validation("end_date must not be before start_date")
	}

	doctors, err := s.SearchDoctors(ctx, DoctorQuery{Department: q.Department, DoctorID: q.DoctorID})
	if err != nil {
		return nil, err
	}

	out := []Slot{}
	for _, doc := range doctors {
		sched, err := parseSchedule(doc)
		if err != nil {
			s.logger.Warn("skipping doctor with malformed schedule", "doctor_id", doc.ID, "err", err)
			continue
		}
		for day := startOfDay(q.Start.In(s.loc)); !day.After(q.End); day = day.AddDate(0, 0, 1) {
			free, err := s.freeSlots(ctx, s.db, doc.ID, sched, day)
			if err != nil {
				return nil, err
			}
			for _, start := range free {
				if start.Before(now) {
					continue
				}
				end := start.Add(AppointmentDuration)
				out = append(out, Slot{
					DoctorID:   doc.ID,
					DoctorName: doc.Name,
					Specialty:  doc.Specialty,
					Department: doc.DepartmentName,
					Date:       start.Format(DateLayout),
					StartTime:  start.Format("15:04"),
					EndTime:    end.Format("15:04"),
				})
				if len(out) >= q.Limit {
					return out, nil
				}
			}
		}
	}
	return out, nil
}

// freeSlots returns the start of every unbooked slot of doctorID on day.
func (s *Store) freeSlots(ctx context.Context, db querier, doctorID int, sched schedule, day time.Time) ([]time.Time, error) {
	if !sched.worksOn(day) {
		return nil, nil
	}

	rows, err := db.QueryContext(ctx, `
		SELECT scheduled_time, end_time FROM appointments
		WHERE doctor_id = ? AND date(scheduled_time) = date(?) AND status = 'scheduled'
		ORDER BY scheduled_time`, doctorID, s.format(day))
	if err != nil {
		return nil, dbErr(err)
	}
	defer rows.Close()

	type span struct{ start, end time.Time }
	var booked []span
	for rows.Next() {
		var start, end string
		if err := rows.Scan(&start, &end); err != nil {
			return nil, dbErr(err)
		}
		st, err1 := s.parse(start)
		en, err2 := s.parse(end)
		if err := errors.Join(err1, err2); err != nil {
			return nil, dbErr(err)
		}
		booked = append(booked, span{st, en})
	}
	if err := rows.Err(); err != nil {
		return nil, dbErr(err)
	}

	var free []time.Time
	dayEnd := day.Add(sched.end)
	for cur := day.Add(sched.start); !cur.Add(AppointmentDuration).After(dayEnd); cur = cur.Add(AppointmentDuration) {
		slotEnd := cur.Add(AppointmentDuration)
		taken := false
		for _, b := range booked {
			if cur.Before(b.end) && slotEnd.After(b.start) {
				taken = true
				break
			}
		}
		if !taken {
			free = append(free, cur)
		}
	}
	return free, nil
}

// checkSlot explains why doctorID cannot see a patient at `at`, or returns
// "" when the slot is bookable. excludeID ignores an appointment being moved.
func (s *Store) checkSlot(ctx context.Context, db querier, doctorID int, at time.Time, excludeID int) (string, error) {
	doctors, err := s.searchDoctors(ctx, db, DoctorQuery{DoctorID: doctorID, IncludeInactive: true})
	if err != nil {
		return "", err
	}
	if len(doctors) == 0 {
		return "Doctor not found", nil
	}
	doc := doctors[0]
	at = at.In(s.loc)

	if !at.After(s.Now()) {
		return "Appointment time must be in the future", nil
	}

	sched, err := parseSchedule(doc)
	if err != nil {
		return "", dbErr(err)
	}
	if !sched.worksOn(at) {
		return "Doctor is not available on this day", nil
	}
	day := startOfDay(at)
	if at.Before(day.Add(sched.start)) || at.Add(AppointmentDuration).After(day.Add(sched.end)) {
		return "Appointment time is outside working hours", nil
	}

	var daily int
	if err := db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM appointments
		WHERE doctor_id = ? AND date(scheduled_time) = date(?) AND status = 'scheduled'
		AND appointment_id != ?`, doctorID, s.format(at), excludeID).Scan(&daily); err != nil {
		return "", dbErr(err)
	}
	if daily >= doc.MaxDailyAppointments {
		return "Doctor's schedule is full for this day", nil
	}

	var overlapping int
	if err := db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM appointments
		WHERE doctor_id = ? AND scheduled_time < ? AND end_time > ? AND status = 'scheduled'
		AND appointment_id != ?`,
		doctorID, s.format(at.Add(AppointmentDuration)), s.format(at), excludeID).Scan(&overlapping); err != nil {
		return "", dbErr(err)
	}
	if overlapping > 0 {
		return "Time slot is already booked", nil
	}
	return "", nil
}

// Booking is a new appointment request.
type Booking struct {
	DoctorID        int
	ScheduledTime   time.Time
	AppointmentType string
	Symptoms        string
}

// BookAppointment validates and books a 30-minute appointment for patientID.
func (s *Store) BookAppointment(ctx context.Context, patientID string, b Booking) (int64, error) {
	var id int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		reason, err := s.checkSlot(ctx, tx, b.DoctorID, b.ScheduledTime, 0)
		if err != nil {
			return err
		}
		if reason != "" {
			return domain.Validation("Cannot book appointment: %s", reason)
		}

		var departmentID int
		if err := tx.QueryRowContext(ctx, `SELECT department_id FROM doctors WHERE doctor_id = ?`, b.DoctorID).Scan(&departmentID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return domain.Validation("Doctor not found.")
			}
			return dbErr(err)
		}

		now := s.format(s.Now())
		res, err := tx.ExecContext(ctx, `
			INSERT INTO appointments (
				patient_id, doctor_id, department_id, scheduled_time, end_time,
				appointment_type, symptoms, created_at, last_updated
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			patientID, b.DoctorID, departmentID,
			s.format(b.ScheduledTime), s.format(b.ScheduledTime.Add(AppointmentDuration)),
			b.AppointmentType, b.Symptoms, now, now)
		if err != nil {
			return dbErr(err)
		}
		id, err = res.LastInsertId()
		return dbErr(err)
	})
	if err != nil {
		return 0, err
	}
	s.logger.Info("appointment booked", "appointment_id", id, "doctor_id", b.DoctorID)
	return id, nil
}

// AppointmentChange moves an appointment to a new time and/or doctor.
type AppointmentChange struct {
	AppointmentID int
	NewTime       time.Time // zero keeps the current time
	NewDoctorID   int       // zero keeps the current doctor
}

// UpdateAppointment applies c to a scheduled appointment owned by patientID.
func (s *Store) UpdateAppointment(ctx context.Context, patientID string, c AppointmentChange) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		var status, scheduled string
		var doctorID int
		err := tx.QueryRowContext(ctx, `
			SELECT status, scheduled_time, doctor_id FROM appointments
			WHERE appointment_id = ? AND patient_id = ?`, c.AppointmentID, patientID).Scan(&status, &scheduled, &doctorID)
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Unauthorized("Appointment not found or does not belong to current patient.")
		}
		if err != nil {
			return dbErr(err)
		}
		if status != StatusScheduled {
			return domain.Validation("Cannot modify completed or cancelled appointments.")
		}
		if c.NewTime.IsZero() && c.NewDoctorID == 0 {
			return domain.Validation("No changes requested")
		}

		var departmentID int
		if c.NewDoctorID != 0 {
			if err := tx.QueryRowContext(ctx, `SELECT department_id FROM doctors WHERE doctor_id = ?`, c.NewDoctorID).Scan(&departmentID); err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					return domain.Validation("Invalid doctor ID")
				}
				return dbErr(err)
			}
			doctorID = c.NewDoctorID
		}

		at := c.NewTime
		if at.IsZero() {
			if at, err = s.parse(scheduled); err != nil {
				return dbErr(err)
			}
		}
		reason, err := s.checkSlot(ctx, tx, doctorID, at, c.AppointmentID)
		if err != nil {
			return err
		}
		if reason != "" {
			return domain.Validation("Invalid new appointment time: %s", reason)
		}

		sets := []string{"scheduled_time = ?", "end_time = ?", "last_updated = ?"}
		args := []any{s.format(at), s.format(at.Add(AppointmentDuration)), s.format(s.Now())}
		if c.NewDoctorID != 0 {
			sets = append(sets, "doctor_id = ?", "department_id = ?")
			args = append(args, doctorID, departmentID)
		}
		args = append(args, c.AppointmentID, patientID)

		_, err = tx.ExecContext(ctx, fmt.Sprintf(
			`UPDATE appointments SET %s WHERE appointment_id = ? AND patient_id = ?`, strings.Join(sets, ", ")), args...)
		return dbErr(err)
	})
}

// CancelAppointment cancels a scheduled appointment at least 24 hours ahead.
func (s *Store) CancelAppointment(ctx context.Context, patientID string, appointmentID int, reason string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		var scheduled, status string
		err := tx.QueryRowContext(ctx, `
			SELECT scheduled_time, status FROM appointments
			WHERE appointment_id = ? AND patient_id = ?`, appointmentID, patientID).Scan(&scheduled, &status)
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Unauthorized("Appointment not found or does not belong to current patient.")
		}
		if err != nil {
			return dbErr(err)
		}
		if status != StatusScheduled {
			return domain.Validation("Cannot cancel completed or already cancelled appointments.")
		}

		at, err := s.parse(scheduled)
		if err != nil {
			return dbErr(err)
		}
		if at.Sub(s.Now()) < 24*time.Hour {
			return domain.Validation("Cannot cancel appointments less than 24 hours before scheduled time.")
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE appointments SET status = 'cancelled', cancelled_reason = ?, last_updated = ?
			WHERE appointment_id = ? AND patient_id = ?`, reason, s.format(s.Now()), appointmentID, patientID)
		return dbErr(err)
	})
}

// GetAppointment loads one appointment by id.
func (s *Store) GetAppointment(ctx context.Context, appointmentID int) (*Appointment, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+appointmentColumns+` `+appointmentJoins+`
		WHERE a.appointment_id = ?`, appointmentID)
	if err != nil {
		return nil, dbErr(err)
	}
	list, err := scanAppointments(rows)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, domain.Validation("Appointment %d not found", appointmentID)
	}
	return &list[0], nil
}

// UpcomingAppointments lists the scheduled future appointments of patientID.
func (s *Store) UpcomingAppointments(ctx context.Context, patientID string) ([]Appointment, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+appointmentColumns+` `+appointmentJoins+`
		WHERE a.patient_id = ? AND a.scheduled_time > ? AND a.status = 'scheduled'
		ORDER BY a.scheduled_time ASC`, patientID, s.format(s.Now()))
	if err != nil {
		return nil, dbErr(err)
	}
	return scanAppointments(rows)
}

// SubmitDoctorReview records a 1..5 rating for a doctor the patient has seen.
func (s *Store) SubmitDoctorReview(ctx context.Context, patientID string, doctorID, rating int, comment string) error {
	if rating < 1 || rating > 5 {
		return domain.Validation("Rating must be between 1 and 5")
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		var completed int
		if err := tx.QueryRowContext(ctx, `
			SELECT COUNT(*) FROM appointments
			WHERE patient_id = ? AND doctor_id = ? AND status = 'completed'`, patientID, doctorID).Scan(&completed); err != nil {
			return dbErr(err)
		}
		if completed == 0 {
			return domain.Validation("You can only review doctors you have had appointments with")
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO doctor_reviews (doctor_id, patient_id, rating, comment, created_at)
			VALUES (?, ?, ?, ?, ?)`, doctorID, patientID, rating, comment, s.format(s.Now()))
		return dbErr(err)
	})
}

// schedule is a doctor's weekly availability.
type schedule struct {
	days       map[time.Weekday]bool // nil means every day
	start, end time.Duration         // offsets from midnight
}

func parseSchedule(doc Doctor) (schedule, error) {
	sched := schedule{start: 9 * time.Hour, end: 17 * time.Hour}
	if strings.TrimSpace(doc.WorkingDays) != "" {
		sched.days = map[time.Weekday]bool{}
		for _, name := range strings.Split(doc.WorkingDays, ",") {
			wd, ok := weekdays[strings.ToLower(strings.TrimSpace(name))]
			if !ok {
				return sched, fmt.Errorf("doctor %d: unknown working day %q", doc.ID, name)
			}
			sched.days[wd] = true
		}
	}
	if strings.TrimSpace(doc.WorkingHours) != "" {
		from, to, ok := strings.Cut(doc.WorkingHours, "-")
		if !ok {
			return sched, fmt.Errorf("doctor %d: malformed working hours %q", doc.ID, doc.WorkingHours)
		}
		start, err1 := clockOffset(from)
		end, err2 := clockOffset(to)
		if err := errors.Join(err1, err2); err != nil {
			return sched, fmt.Errorf("doctor %d: %w", doc.ID, err)
		}
		sched.start, sched.end = start, end
	}
	return sched, nil
}

func (s schedule) worksOn(t time.Time) bool {
	return s.days == nil || s.days[t.Weekday()]
}

func clockOffset(hhmm string) (time.Duration, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(hhmm))
	if err != nil {
		return 0, err
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}
