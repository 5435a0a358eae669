package sqlite

import "time"

// Appointment statuses.
const (
	StatusScheduled = "scheduled"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
	StatusNoShow    = "no_show"
)

// Parking types.
const (
	ParkingStandard  = "standard"
	ParkingDisabled  = "disabled"
	ParkingVIP       = "vip"
	ParkingEmergency = "emergency"
)

// AppointmentDuration is the length of every slot.
const AppointmentDuration = 30 * time.Minute

type Department struct {
	ID            int    `json:"department_id"`
	Name          string `json:"name"`
	Description   string `json:"description"`
	Location      string `json:"location"`
	ContactNumber string `json:"contact_number"`
	WorkingHours  string `json:"working_hours"`
	IsActive      bool   `json:"is_active"`
}

type Doctor struct {
	ID                   int    `json:"doctor_id"`
	Name                 string `json:"name"`
	DepartmentID         int    `json:"department_id"`
	Title                string `json:"title"`
	Specialty            string `json:"specialty"`
	WorkingDays          string `json:"working_days"`
	WorkingHours         string `json:"working_hours"`
	MaxDailyAppointments int    `json:"max_daily_appointments"`
	Email                string `json:"email"`
	ContactNumber        string `json:"contact_number"`
	IsActive             bool   `json:"is_active"`
	DepartmentName       string `json:"department_name"`
}

type Patient struct {
	ID               string `json:"patient_id"`
	Name             string `json:"name"`
	BirthDate        string `json:"birth_date"`
	Gender           string `json:"gender"`
	Phone            string `json:"phone"`
	Email            string `json:"email"`
	Address          string `json:"address"`
	EmergencyContact string `json:"emergency_contact"`
	BloodType        string `json:"blood_type"`
	Allergies        string `json:"allergies"`
	CreatedAt        string `json:"created_at"`
	LastVisitDate    string `json:"last_visit_date"`
}

type Appointment struct {
	ID              int    `json:"appointment_id"`
	PatientID       string `json:"patient_id"`
	DoctorID        int    `json:"doctor_id"`
	DepartmentID    int    `json:"department_id"`
	ScheduledTime   string `json:"scheduled_time"`
	EndTime         string `json:"end_time"`
	AppointmentType string `json:"appointment_type"`
	Status          string `json:"status"`
	Notes           string `json:"notes"`
	Symptoms        string `json:"symptoms"`
	CreatedAt       string `json:"created_at"`
	LastUpdated     string `json:"last_updated"`
	CancelledReason string `json:"cancelled_reason,omitempty"`
	DoctorName      string `json:"doctor_name"`
	DepartmentName  string `json:"department_name"`
}

// Slot is a bookable 30-minute window.
type Slot struct {
	DoctorID   int    `json:"doctor_id"`
	DoctorName string `json:"doctor_name"`
	Specialty  string `json:"specialty"`
	Department string `json:"department"`
	Date       string `json:"date"`
	StartTime  string `json:"start_time"`
	EndTime    string `json:"end_time"`
}

type MedicalRecord struct {
	ID              int    `json:"record_id"`
	PatientID       string `json:"patient_id"`
	DoctorID        int    `json:"doctor_id"`
	VisitDate       string `json:"visit_date"`
	ChiefComplaint  string `json:"chief_complaint"`
	Diagnosis       string `json:"diagnosis"`
	Treatment       string `json:"treatment"`
	Prescriptions   string `json:"prescriptions"`
	LabResults      string `json:"lab_results"`
	FollowUpNotes   string `json:"follow_up_notes"`
	NextAppointment string `json:"next_appointment"`
	CreatedAt       string `json:"created_at"`
	DoctorName      string `json:"doctor_name"`
	DepartmentName  string `json:"department_name,omitempty"`
}

type Expense struct {
	VisitDate         string  `json:"visit_date"`
	Treatment         string  `json:"treatment"`
	Prescriptions     string  `json:"prescriptions"`
	DoctorName        string  `json:"doctor_name"`
	DepartmentName    string  `json:"department_name"`
	Amount            float64 `json:"amount"`
	InsuranceCoverage float64 `json:"insurance_coverage"`
	PatientPayment    float64 `json:"patient_payment"`
}

type ExpenseSummary struct {
	TotalAmount         float64 `json:"total_amount"`
	TotalInsurance      float64 `json:"total_insurance"`
	TotalPatientPayment float64 `json:"total_patient_payment"`
}

type Expenses struct {
	Expenses []Expense      `json:"expenses"`
	Summary  ExpenseSummary `json:"summary"`
}

// HealthProfile is the background an AI doctor consults.
type HealthProfile struct {
	Allergies          string `json:"allergies"`
	ChronicConditions  string `json:"chronic_conditions"`
	CurrentMedications string `json:"current_medications"`
	FamilyHistory      string `json:"family_history"`
	PastSurgeries      string `json:"past_surgeries"`
}

type MedicalHistory struct {
	PatientInfo    HealthProfile   `json:"patient_info"`
	MedicalRecords []MedicalRecord `json:"medical_records"`
}

type ParkingArea struct {
	AreaID              int     `json:"area_id"`
	Name                string  `json:"name"`
	Level               string  `json:"level"`
	ParkingType         string  `json:"parking_type"`
	HourlyRate          float64 `json:"hourly_rate"`
	TotalSpaces         int     `json:"total_spaces"`
	AvailableSpaces     int     `json:"available_spaces"`
	ReservedSpaces      int     `json:"reserved_spaces"`
	OccupancyPercentage float64 `json:"occupancy_percentage"`
}

type ParkingAvailability struct {
	Timestamp      string        `json:"timestamp"`
	Areas          []ParkingArea `json:"areas"`
	TotalAvailable int           `json:"total_available"`
	TotalCapacity  int           `json:"total_capacity"`
}

type NavigationInfo struct {
	Level      string   `json:"level"`
	Zone       string   `json:"zone"`
	Directions []string `json:"directions"`
}

type ParkingReservation struct {
	ReservationID  int64          `json:"reservation_id"`
	SpotNumber     string         `json:"spot_number"`
	ArrivalTime    string         `json:"arrival_time"`
	DurationHours  int            `json:"duration_hours"`
	TotalCost      float64        `json:"total_cost"`
	QRCode         string         `json:"qr_code"`
	Instructions   []string       `json:"instructions"`
	NavigationInfo NavigationInfo `json:"navigation_info"`
}

type ParkingCancellation struct {
	Status       string  `json:"status"`
	RefundAmount float64 `json:"refund_amount"`
	Message      string  `json:"message"`
}
