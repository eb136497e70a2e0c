package scheduling

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/docbook/docbook/internal/domain/billing"
	"github.com/docbook/docbook/internal/platform/db"
)

// Appointment statuses.
const (
	StatusPending   = "Pending"
	StatusConfirmed = "Confirmed"
	StatusCancelled = "Cancelled"
	StatusCompleted = "Completed"
)

var validStatuses = map[string]bool{
	StatusPending: true, StatusConfirmed: true, StatusCancelled: true, StatusCompleted: true,
}

// transitions lists the statuses each status may move to. Cancelled and
// Completed are terminal.
var transitions = map[string][]string{
	StatusPending:   {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusCompleted, StatusCancelled},
}

func canTransition(from, to string) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// NormalizeStatus maps the "Canceled" spelling and letter case onto the
// stored status names.
func NormalizeStatus(s string) string {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, "Canceled") {
		return StatusCancelled
	}
	for status := range validStatuses {
		if strings.EqualFold(s, status) {
			return status
		}
	}
	return s
}

// active reports whether an appointment in status holds its slot.
func active(status string) bool {
	return status == StatusPending || status == StatusConfirmed
}

// Slot maps to the slots table.
type Slot struct {
	ID          uuid.UUID `db:"id" json:"id"`
	DoctorID    uuid.UUID `db:"doctor_id" json:"doctor_id"`
	Date        db.Date   `db:"slot_date" json:"date"`
	Weekday     string    `db:"weekday" json:"day"`
	TimeSlot    string    `db:"time_slot" json:"time_slot"`
	IsAvailable bool      `db:"is_available" json:"is_available"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// SlotDay is one date of a slot batch.
type SlotDay struct {
	Day       string   `json:"day"`
	Times     []string `json:"times"`
	Available []bool   `json:"available,omitempty"`
}

// SlotBatch is a doctor's full schedule keyed by "YYYY-MM-DD".
type SlotBatch map[string]*SlotDay

// SlotBatchInput replaces a doctor's schedule. Date keys may use any layout
// in db.DateLayouts.
type SlotBatchInput struct {
	DoctorID uuid.UUID           `json:"doctor_id" validate:"required"`
	Slots    map[string]*SlotDay `json:"slots" validate:"required"`
}

// Appointment maps to the appointments table.
type Appointment struct {
	ID        uuid.UUID `db:"id" json:"id"`
	PatientID uuid.UUID `db:"patient_id" json:"patient_id"`
	DoctorID  uuid.UUID `db:"doctor_id" json:"doctor_id"`
	Date      db.Date   `db:"appointment_date" json:"appointment_date"`
	TimeSlot  string    `db:"time_slot" json:"time_slot"`
	Reason    *string   `db:"reason" json:"reason,omitempty"`
	Status    string    `db:"status" json:"status"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// AppointmentInput is the plain create body.
type AppointmentInput struct {
	PatientID       uuid.UUID `json:"patient_id" validate:"required"`
	DoctorID        uuid.UUID `json:"doctor_id" validate:"required"`
	AppointmentDate db.Date   `json:"appointment_date"`
	TimeSlot        string    `json:"time_slot" validate:"required,max=64"`
	Reason          *string   `json:"reason"`
}

func (in AppointmentInput) Appointment() *Appointment {
	return &Appointment{
		PatientID: in.PatientID,
		DoctorID:  in.DoctorID,
		Date:      in.AppointmentDate,
		TimeSlot:  strings.TrimSpace(in.TimeSlot),
		Reason:    in.Reason,
		Status:    StatusPending,
	}
}

// BookingInput is an appointment together with the payment made for it.
// Amount defaults to the doctor's consultation fee.
type BookingInput struct {
	AppointmentInput
	Amount         *float64 `json:"amount" validate:"omitempty,gte=0,lte=99999999.99"`
	PaymentMethod  string   `json:"payment_method" validate:"required,max=32"`
	PaymentStatus  string   `json:"payment_status"`
	TransactionID  *string  `json:"transaction_id" validate:"omitempty,max=128"`
	GatewayOrderID *string  `json:"gateway_order_id" validate:"omitempty,max=128"`
}

// AppointmentUpdate is the PUT body: the fixed set of mutable fields.
type AppointmentUpdate struct {
	AppointmentDate db.Date `json:"appointment_date"`
	TimeSlot        string  `json:"time_slot" validate:"required,max=64"`
	Reason          *string `json:"reason"`
	Status          string  `json:"status" validate:"required"`
}

func (u AppointmentUpdate) fields() map[string]interface{} {
	fields := map[string]interface{}{
		"appointment_date": u.AppointmentDate.String(),
		"time_slot":        u.TimeSlot,
		"status":           u.Status,
		"reason":           nil,
	}
	if u.Reason != nil {
		fields["reason"] = *u.Reason
	}
	return fields
}

// Booking is the result of POST /appointments/book.
type Booking struct {
	Appointment *Appointment     `json:"appointment"`
	Payment     *billing.Payment `json:"payment"`
}

var appointmentColumns = db.Columns{
	"appointment_date": {Column: "appointment_date", Kind: db.KindDate, NotNull: true},
	"time_slot":        {Column: "time_slot", Kind: db.KindString, NotNull: true, MaxLen: 64},
	"reason":           {Column: "reason", Kind: db.KindString},
	"status":           {Column: "status", Kind: db.KindString, NotNull: true},
}

var appointmentFilters = db.Columns{
	"patient_id":       {Column: "patient_id", Kind: db.KindUUID},
	"doctor_id":        {Column: "doctor_id", Kind: db.KindUUID},
	"status":           {Column: "status", Kind: db.KindString},
	"appointment_date": {Column: "appointment_date", Kind: db.KindDate},
}
