package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/aretw0/concierge/pkg/domain"
)

// DateRange bounds a search by visit date. Zero ends are open.
type DateRange struct {
	From time.Time
	To   time.Time
}

func (r DateRange) apply(query string, args []any, column string) (string, []any) {
	if !r.From.IsZero() {
		query += " AND " + column + " >= ?"
		args = append(args, r.From.Format(DateLayout))
	}
	if !r.To.IsZero() {
		query += " AND " + column + " <= ?"
		args = append(args, r.To.Format(DateLayout))
	}
	return query, args
}

// SearchMedicalRecords lists the records of patientID, newest first.
func (s *Store) SearchMedicalRecords(ctx context.Context, patientID string, r DateRange) ([]MedicalRecord, error) {
	query, args := r.apply(`
		SELECT m.record_id, m.patient_id, m.doctor_id, m.visit_date, m.chief_complaint, m.diagnosis,
			m.treatment, m.prescriptions, m.lab_results, m.follow_up_notes, m.next_appointment,
			m.created_at, d.name, dep.name
		FROM medical_records m
		JOIN doctors d ON m.doctor_id = d.doctor_id
		JOIN departments dep ON d.department_id = dep.department_id
		WHERE m.patient_id = ?`, []any{patientID}, "m.visit_date")
	query += " ORDER BY m.visit_date DESC, m.record_id DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, dbErr(err)
	}
	return scanRecords(rows)
}

func scanRecords(rows *sql.Rows) ([]MedicalRecord, error) {
	defer rows.Close()
	out := []MedicalRecord{}
	for rows.Next() {
		var m MedicalRecord
		if err := rows.Scan(&m.ID, &m.PatientID, &m.DoctorID, &m.VisitDate, &m.ChiefComplaint, &m.Diagnosis,
			&m.Treatment, &m.Prescriptions, &m.LabResults, &m.FollowUpNotes, &m.NextAppointment,
			&m.CreatedAt, &m.DoctorName, &m.DepartmentName); err != nil {
			return nil, dbErr(err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, dbErr(err)
	}
	return out, nil
}

// MedicalExpenses joins billing with medical records and totals the amounts.
func (s *Store) MedicalExpenses(ctx context.Context, patientID string, r DateRange) (*Expenses, error) {
	query, args := r.apply(`
		SELECT m.visit_date, m.treatment, m.prescriptions, d.name, dep.name,
			b.amount, b.insurance_coverage, b.patient_payment
		FROM medical_records m
		JOIN doctors d ON m.doctor_id = d.doctor_id
		JOIN departments dep ON d.department_id = dep.department_id
		JOIN billing b ON m.record_id = b.record_id
		WHERE m.patient_id = ?`, []any{patientID}, "m.visit_date")
	query += " ORDER BY m.visit_date DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, dbErr(err)
	}
	defer rows.Close()

	out := &Expenses{Expenses: []Expense{}}
	for rows.Next() {
		var e Expense
		if err := rows.Scan(&e.VisitDate, &e.Treatment, &e.Prescriptions, &e.DoctorName, &e.DepartmentName,
			&e.Amount, &e.InsuranceCoverage, &e.PatientPayment); err != nil {
			return nil, dbErr(err)
		}
		out.Expenses = append(out.Expenses, e)
		out.Summary.TotalAmount += e.Amount
		out.Summary.TotalInsurance += e.InsuranceCoverage
		out.Summary.TotalPatientPayment += e.PatientPayment
	}
	if err := rows.Err(); err != nil {
		return nil, dbErr(err)
	}
	return out, nil
}

// MedicalHistory returns the health background and every record of patientID.
func (s *Store) MedicalHistory(ctx context.Context, patientID string) (*MedicalHistory, error) {
	var h MedicalHistory
	err := s.db.QueryRowContext(ctx, `
		SELECT allergies, chronic_conditions, current_medications, family_history, past_surgeries
		FROM patients WHERE patient_id = ?`, patientID).Scan(
		&h.PatientInfo.Allergies, &h.PatientInfo.ChronicConditions, &h.PatientInfo.CurrentMedications,
		&h.PatientInfo.FamilyHistory, &h.PatientInfo.PastSurgeries)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.Validation("Patient not found")
	}
	if err != nil {
		return nil, dbErr(err)
	}

	records, err := s.SearchMedicalRecords(ctx, patientID, DateRange{})
	if err != nil {
		return nil, err
	}
	h.MedicalRecords = records
	return &h, nil
}

// GetPatient loads the basic profile of a patient.
func (s *Store) GetPatient(ctx context.Context, patientID string) (*Patient, error) {
	var p Patient
	err := s.db.QueryRowContext(ctx, `
		SELECT patient_id, name, birth_date, gender, phone, email, address, emergency_contact,
			blood_type, allergies, created_at, last_visit_date
		FROM patients WHERE patient_id = ?`, patientID).Scan(
		&p.ID, &p.Name, &p.BirthDate, &p.Gender, &p.Phone, &p.Email, &p.Address, &p.EmergencyContact,
		&p.BloodType, &p.Allergies, &p.CreatedAt, &p.LastVisitDate)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.Validation("Patient not found")
	}
	if err != nil {
		return nil, dbErr(err)
	}
	return &p, nil
}

// FetchUserContext snapshots a patient's profile with the five most recent
// appointments and records. An unknown patient yields an error entry, not a
// failure, so anonymous threads still start.
func (s *Store) FetchUserContext(ctx context.Context, patientID string) (map[string]any, error) {
	patient, err := s.GetPatient(ctx, patientID)
	if errors.Is(err, domain.ErrValidationFailure) {
		return map[string]any{"error": "Patient not found"}, nil
	}
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT `+appointmentColumns+` `+appointmentJoins+`
		WHERE a.patient_id = ? ORDER BY a.scheduled_time DESC LIMIT 5`, patientID)
	if err != nil {
		return nil, dbErr(err)
	}
	appointments, err := scanAppointments(rows)
	if err != nil {
		return nil, err
	}

	rows, err = s.db.QueryContext(ctx, `
		SELECT m.record_id, m.patient_id, m.doctor_id, m.visit_date, m.chief_complaint, m.diagnosis,
			m.treatment, m.prescriptions, m.lab_results, m.follow_up_notes, m.next_appointment,
			m.created_at, d.name, dep.name
		FROM medical_records m
		JOIN doctors d ON m.doctor_id = d.doctor_id
		JOIN departments dep ON d.department_id = dep.department_id
		WHERE m.patient_id = ? ORDER BY m.visit_date DESC LIMIT 5`, patientID)
	if err != nil {
		return nil, dbErr(err)
	}
	records, err := scanRecords(rows)
	if err != nil {
		return nil, err
	}

	// Round-trip through JSON so the snapshot holds only plain maps and
	// slices, the shape checkpoint stores persist.
	return toMap(map[string]any{
		"patient_info":        patient,
		"recent_appointments": appointments,
		"recent_records":      records,
	})
}

func toMap(v any) (map[string]any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}
