package billing

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/docbook/docbook/internal/platform/db"
)

// Payment methods.
const (
	MethodOnline       = "Online"
	MethodCash         = "Cash"
	MethodCOD          = "COD"
	MethodPayOnCounter = "Pay on Counter"
)

// Payment statuses.
const (
	StatusPending   = "Pending"
	StatusCompleted = "Completed"
	StatusFailed    = "Failed"
	StatusRefunded  = "Refunded"
)

var paymentMethods = []string{MethodOnline, MethodCash, MethodCOD, MethodPayOnCounter}

var paymentStatuses = []string{StatusPending, StatusCompleted, StatusFailed, StatusRefunded}

// canonical matches s case-insensitively against allowed values.
func canonical(s string, allowed []string) (string, bool) {
	s = strings.TrimSpace(s)
	for _, a := range allowed {
		if strings.EqualFold(s, a) {
			return a, true
		}
	}
	return "", false
}

// Payment maps to the payments table.
type Payment struct {
	ID             uuid.UUID  `db:"id" json:"id"`
	PatientID      uuid.UUID  `db:"patient_id" json:"patient_id"`
	DoctorID       uuid.UUID  `db:"doctor_id" json:"doctor_id"`
	AppointmentID  *uuid.UUID `db:"appointment_id" json:"appointment_id,omitempty"`
	Amount         float64    `db:"amount" json:"amount"`
	Method         string     `db:"payment_method" json:"payment_method"`
	Status         string     `db:"payment_status" json:"payment_status"`
	TransactionID  *string    `db:"transaction_id" json:"transaction_id,omitempty"`
	GatewayOrderID *string    `db:"gateway_order_id" json:"gateway_order_id,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`
}

// PaymentInput is the create and PUT body.
type PaymentInput struct {
	PatientID      uuid.UUID  `json:"patient_id" validate:"required"`
	DoctorID       uuid.UUID  `json:"doctor_id" validate:"required"`
	AppointmentID  *uuid.UUID `json:"appointment_id"`
	Amount         float64    `json:"amount" validate:"gte=0,lte=99999999.99"`
	Method         string     `json:"payment_method" validate:"required,max=32"`
	Status         string     `json:"payment_status"`
	TransactionID  *string    `json:"transaction_id" validate:"omitempty,max=128"`
	GatewayOrderID *string    `json:"gateway_order_id" validate:"omitempty,max=128"`
}

func (in PaymentInput) Payment() *Payment {
	return &Payment{
		PatientID:      in.PatientID,
		DoctorID:       in.DoctorID,
		AppointmentID:  in.AppointmentID,
		Amount:         in.Amount,
		Method:         in.Method,
		Status:         in.Status,
		TransactionID:  in.TransactionID,
		GatewayOrderID: in.GatewayOrderID,
	}
}

// Bucket is one group of a payment summary.
type Bucket struct {
	Key    string  `json:"key"`
	Count  int     `json:"count"`
	Amount float64 `json:"amount"`
}

type Summary struct {
	Count          int      `json:"count"`
	TotalAmount    float64  `json:"total_amount"`
	CompletedTotal float64  `json:"completed_total"`
	ByMethod       []Bucket `json:"by_method"`
	ByStatus       []Bucket `json:"by_status"`
}

type CheckoutInput struct {
	Amount  float64 `json:"amount" validate:"gt=0,lte=99999999.99"`
	Receipt string  `json:"receipt"`
}

type VerifyInput struct {
	OrderID   string `json:"razorpay_order_id" validate:"required"`
	PaymentID string `json:"razorpay_payment_id" validate:"required"`
	Signature string `json:"razorpay_signature" validate:"required"`
}

var paymentColumns = db.Columns{
	"appointment_id":   {Column: "appointment_id", Kind: db.KindUUID},
	"amount":           {Column: "amount", Kind: db.KindFloat, NotNull: true, Min: db.Bound(0), Max: db.Bound(db.MaxMoney)},
	"payment_method":   {Column: "payment_method", Kind: db.KindString, NotNull: true, MaxLen: 32},
	"payment_status":   {Column: "payment_status", Kind: db.KindString, NotNull: true},
	"transaction_id":   {Column: "transaction_id", Kind: db.KindString, MaxLen: 128},
	"gateway_order_id": {Column: "gateway_order_id", Kind: db.KindString, MaxLen: 128},
}

var paymentFilters = db.Columns{
	"patient_id":     {Column: "patient_id", Kind: db.KindUUID},
	"doctor_id":      {Column: "doctor_id", Kind: db.KindUUID},
	"appointment_id": {Column: "appointment_id", Kind: db.KindUUID},
	"payment_method": {Column: "payment_method", Kind: db.KindString},
	"payment_status": {Column: "payment_status", Kind: db.KindString},
}
