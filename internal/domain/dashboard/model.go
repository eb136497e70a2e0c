package dashboard

import (
	"time"

	"github.com/google/uuid"

	"github.com/docbook/docbook/internal/platform/db"
)

// Counts holds the row count of every table shown on the admin dashboard.
type Counts struct {
	Patients     int `json:"patients"`
	Doctors      int `json:"doctors"`
	Appointments int `json:"appointments"`
	Payments     int `json:"payments"`
	Reviews      int `json:"reviews"`
	Contacts     int `json:"contacts"`
}

type MethodRevenue struct {
	Method string  `json:"payment_method"`
	Total  float64 `json:"total"`
	Count  int     `json:"count"`
}

// DoctorStat names a doctor together with the figure it was ranked by.
type DoctorStat struct {
	DoctorID       uuid.UUID `json:"doctor_id"`
	Username       string    `json:"username"`
	Specialization string    `json:"specialization"`
	Appointments   int       `json:"appointments,omitempty"`
	AverageRating  float64   `json:"average_rating,omitempty"`
	Reviews        int       `json:"reviews,omitempty"`
}

type RecentAppointment struct {
	ID          uuid.UUID `json:"id"`
	PatientID   uuid.UUID `json:"patient_id"`
	PatientName string    `json:"patient_name"`
	DoctorID    uuid.UUID `json:"doctor_id"`
	DoctorName  string    `json:"doctor_name"`
	Date        db.Date   `json:"appointment_date"`
	TimeSlot    string    `json:"time_slot"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

type Stats struct {
	Counts               Counts              `json:"counts"`
	TotalRevenue         float64             `json:"total_revenue"`
	RevenueByMethod      []MethodRevenue     `json:"revenue_by_method"`
	TopDoctor            *DoctorStat         `json:"top_doctor"`
	TopRatedDoctor       *DoctorStat         `json:"top_rated_doctor"`
	RecentAppointments   []RecentAppointment `json:"recent_appointments"`
	AppointmentsByStatus map[string]int      `json:"appointments_by_status"`
}

// DoctorPayment is the completed-payment total collected by one doctor.
type DoctorPayment struct {
	DoctorID uuid.UUID `json:"doctor_id"`
	Username string    `json:"username"`
	Total    float64   `json:"total"`
	Count    int       `json:"count"`
}
