package review

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/docbook/docbook/internal/platform/db"
)

// Moderation states.
const (
	StatusPending  = "Pending"
	StatusApproved = "Approved"
	StatusCanceled = "Canceled"
)

var validStatuses = []string{StatusPending, StatusApproved, StatusCanceled}

func normalizeStatus(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, "Cancelled") {
		return StatusCanceled, true
	}
	for _, v := range validStatuses {
		if strings.EqualFold(s, v) {
			return v, true
		}
	}
	return "", false
}

// Review maps to the reviews table.
type Review struct {
	ID        uuid.UUID `db:"id" json:"id"`
	PatientID uuid.UUID `db:"patient_id" json:"patient_id"`
	DoctorID  uuid.UUID `db:"doctor_id" json:"doctor_id"`
	Rating    int       `db:"rating" json:"rating"`
	Comment   *string   `db:"comment" json:"comment,omitempty"`
	Status    string    `db:"status" json:"status"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

type ReviewInput struct {
	PatientID uuid.UUID `json:"patient_id" validate:"required"`
	DoctorID  uuid.UUID `json:"doctor_id" validate:"required"`
	Rating    int       `json:"rating" validate:"required,min=1,max=5"`
	Comment   *string   `json:"comment"`
}

type StatusInput struct {
	Status string `json:"status" validate:"required"`
}

// Rating summarises a doctor's approved reviews.
type Rating struct {
	DoctorID uuid.UUID `json:"doctor_id"`
	Average  float64   `json:"average"`
	Count    int       `json:"count"`
}

var reviewColumns = db.Columns{
	"rating":  {Column: "rating", Kind: db.KindInt, NotNull: true, Min: db.Bound(1), Max: db.Bound(5)},
	"comment": {Column: "comment", Kind: db.KindString},
	"status":  {Column: "status", Kind: db.KindString, NotNull: true},
}

var reviewFilters = db.Columns{
	"patient_id": {Column: "patient_id", Kind: db.KindUUID},
	"doctor_id":  {Column: "doctor_id", Kind: db.KindUUID},
	"status":     {Column: "status", Kind: db.KindString},
	"rating":     {Column: "rating", Kind: db.KindInt},
}
