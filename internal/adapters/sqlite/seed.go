package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// DemoPatientID is the seeded patient used by demos and the terminal chat.
const DemoPatientID = "p-1001"

const everyDay = "Monday,Tuesday,Wednesday,Thursday,Friday,Saturday,Sunday"
const weekdaysOnly = "Monday,Tuesday,Wednesday,Thursday,Friday"

// Seed inserts demo data, dated relative to the store clock. It is a no-op
// when departments already exist.
func (s *Store) Seed(ctx context.Context) error {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM departments`).Scan(&n); err != nil {
		return fmt.Errorf("failed to inspect database: %w", err)
	}
	if n > 0 {
		s.logger.Debug("database already seeded")
		return nil
	}

	now := s.Now()
	day := startOfDay(now)
	at := func(days, hour int) string { return s.format(day.AddDate(0, 0, days).Add(time.Duration(hour) * time.Hour)) }
	date := func(days int) string { return day.AddDate(0, 0, days).Format(DateLayout) }
	stamp := s.format(now)

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		exec := func(query string, rows ...[]any) error {
			for _, args := range rows {
				if _, err := tx.ExecContext(ctx, query, args...); err != nil {
					return fmt.Errorf("seed: %w", err)
				}
			}
			return nil
		}

		if err := exec(`INSERT INTO departments (department_id, name, description, location, contact_number, working_hours)
			VALUES (?, ?, ?, ?, ?, ?)`,
			[]any{1, "Cardiology", "Heart and vascular care", "Building A, Floor 3", "555-0101", "08:00-18:00"},
			[]any{2, "Neurology", "Brain, spine and nerve disorders", "Building A, Floor 4", "555-0102", "08:00-18:00"},
			[]any{3, "Orthopedics", "Bones, joints and sports injuries", "Building B, Floor 2", "555-0103", "08:00-17:00"},
			[]any{4, "Pediatrics", "Care for infants, children and teens", "Building C, Floor 1", "555-0104", "08:00-18:00"},
			[]any{5, "Internal Medicine", "Adult primary and chronic care", "Building B, Floor 1", "555-0105", "08:00-18:00"},
			[]any{6, "Emergency", "24/7 emergency care", "Building A, Ground Floor", "555-0911", "00:00-24:00"},
		); err != nil {
			return err
		}

		if err := exec(`INSERT INTO doctors (doctor_id, name, department_id, title, specialty, working_days,
				working_hours, max_daily_appointments, email, contact_number)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			[]any{1, "Dr. John Smith", 1, "Chief Physician", "Interventional Cardiology", everyDay, "09:00-17:00", 16, "j.smith@hospital.example", "555-1001"},
			[]any{2, "Dr. Emily Chen", 2, "Attending Physician", "Headache and Migraine", weekdaysOnly, "09:00-17:00", 12, "e.chen@hospital.example", "555-1002"},
			[]any{3, "Dr. Michael Brown", 3, "Associate Chief Physician", "Sports Medicine", "Monday,Wednesday,Friday", "08:00-16:00", 12, "m.brown@hospital.example", "555-1003"},
			[]any{4, "Dr. Sarah Johnson", 4, "Attending Physician", "General Pediatrics", weekdaysOnly, "09:00-17:00", 16, "s.johnson@hospital.example", "555-1004"},
			[]any{5, "Dr. David Lee", 5, "Resident Physician", "Diabetes Care", "Tuesday,Thursday", "10:00-18:00", 8, "d.lee@hospital.example", "555-1005"},
			[]any{6, "Dr. Laura Garcia", 6, "Attending Physician", "Emergency Medicine", everyDay, "08:00-20:00", 24, "l.garcia@hospital.example", "555-1006"},
		); err != nil {
			return err
		}

		if err := exec(`INSERT INTO patients (patient_id, name, birth_date, gender, phone, email, address,
				emergency_contact, blood_type, allergies, chronic_conditions, current_medications,
				family_history, past_surgeries, created_at, last_visit_date)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			[]any{DemoPatientID, "John Doe", "1980-05-14", "male", "555-0100", "john.doe@example.com",
				"400 N Michigan Ave, Chicago, IL 60611", "Jane Doe 555-0199", "O+", "Penicillin",
				"Hypertension", "Lisinopril 10mg daily", "Father: coronary artery disease", "Appendectomy (2004)",
				stamp, date(-30)},
			[]any{"p-1002", "Maria Lopez", "1992-11-02", "female", "555-0200", "maria.lopez@example.com",
				"1200 S Wabash Ave, Chicago, IL 60605", "Carlos Lopez 555-0299", "A-", "",
				"Migraine", "Sumatriptan as needed", "", "",
				stamp, date(-12)},
		); err != nil {
			return err
		}

		if err := exec(`INSERT INTO appointments (appointment_id, patient_id, doctor_id, department_id,
				scheduled_time, end_time, appointment_type, status, notes, symptoms, created_at, last_updated)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			[]any{1, DemoPatientID, 1, 1, at(-30, 10), s.format(day.AddDate(0, 0, -30).Add(10*time.Hour + AppointmentDuration)),
				"consultation", StatusCompleted, "Follow up in 3 months", "Chest discomfort when climbing stairs", stamp, stamp},
			[]any{2, DemoPatientID, 5, 5, at(-90, 11), s.format(day.AddDate(0, 0, -90).Add(11*time.Hour + AppointmentDuration)),
				"checkup", StatusCompleted, "", "Annual checkup", stamp, stamp},
			[]any{3, DemoPatientID, 1, 1, at(3, 14), s.format(day.AddDate(0, 0, 3).Add(14*time.Hour + AppointmentDuration)),
				"follow_up", StatusScheduled, "", "Blood pressure review", stamp, stamp},
			[]any{4, "p-1002", 2, 2, at(-12, 9), s.format(day.AddDate(0, 0, -12).Add(9*time.Hour + AppointmentDuration)),
				"consultation", StatusCompleted, "", "Recurring headaches", stamp, stamp},
		); err != nil {
			return err
		}

		if err := exec(`INSERT INTO medical_records (record_id, patient_id, doctor_id, visit_date, chief_complaint,
				diagnosis, treatment, prescriptions, lab_results, follow_up_notes, next_appointment, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			[]any{1, DemoPatientID, 1, date(-30), "Chest discomfort on exertion", "Stage 1 hypertension",
				"Lifestyle changes, medication", "Lisinopril 10mg daily",
				"Lipid panel: LDL 145 mg/dL, HDL 42 mg/dL. ECG: normal sinus rhythm.",
				"Recheck blood pressure in 3 months", date(3), stamp},
			[]any{2, DemoPatientID, 5, date(-90), "Annual checkup", "Prediabetes",
				"Diet counselling", "", "HbA1c 6.0%. Fasting glucose 108 mg/dL.",
				"Repeat HbA1c in 6 months", "", stamp},
			[]any{3, "p-1002", 2, date(-12), "Recurring headaches", "Migraine without aura",
				"Trigger diary, acute medication", "Sumatriptan 50mg as needed", "MRI: no abnormality.",
				"Return if frequency exceeds 4/month", "", stamp},
		); err != nil {
			return err
		}

		if err := exec(`INSERT INTO billing (record_id, patient_id, amount, insurance_coverage, patient_payment, status, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			[]any{1, DemoPatientID, 450.00, 360.00, 90.00, "paid", stamp},
			[]any{2, DemoPatientID, 220.00, 200.00, 20.00, "paid", stamp},
			[]any{3, "p-1002", 1250.00, 1000.00, 250.00, "pending", stamp},
		); err != nil {
			return err
		}

		if err := exec(`INSERT INTO parking_facilities (area_id, name, level, total_spaces, parking_type, hourly_rate)
			VALUES (?, ?, ?, ?, ?, ?)`,
			[]any{1, "Main Garage", "1", 10, ParkingStandard, 2.50},
			[]any{2, "Main Garage Accessible", "1", 4, ParkingDisabled, 1.00},
			[]any{3, "Premium Deck", "2", 4, ParkingVIP, 6.00},
			[]any{4, "Emergency Bay", "0", 2, ParkingEmergency, 0.00},
		); err != nil {
			return err
		}

		var spots [][]any
		addSpots := func(area int, prefix, typ string, count int, occupied ...int) {
			busy := map[int]bool{}
			for _, o := range occupied {
				busy[o] = true
			}
			for i := 1; i <= count; i++ {
				status := "available"
				if busy[i] {
					status = "occupied"
				}
				spots = append(spots, []any{area, fmt.Sprintf("%s%02d", prefix, i), typ, status})
			}
		}
		addSpots(1, "1A", ParkingStandard, 10, 9, 10)
		addSpots(2, "1B", ParkingDisabled, 4)
		addSpots(3, "2C", ParkingVIP, 4, 1)
		addSpots(4, "0E", ParkingEmergency, 2)
		return exec(`INSERT INTO parking_spots (area_id, spot_number, type, status) VALUES (?, ?, ?, ?)`, spots...)
	})
	if err != nil {
		return err
	}
	s.logger.Info("database seeded", "patient_id", DemoPatientID)
	return nil
}
