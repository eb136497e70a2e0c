package scheduling

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type SlotRepository interface {
	Create(ctx context.Context, s *Slot) error
	GetByID(ctx context.Context, id uuid.UUID) (*Slot, error)
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteByDoctor(ctx context.Context, doctorID uuid.UUID) (int64, error)
	ListByDoctor(ctx context.Context, doctorID uuid.UUID, onlyAvailable bool) ([]*Slot, error)
	// MarkBooked flags the doctor's slots held by an active appointment.
	MarkBooked(ctx context.Context, doctorID uuid.UUID) error
	// Reserve flips an available slot to unavailable. It reports false when
	// no available slot matched.
	Reserve(ctx context.Context, doctorID uuid.UUID, date time.Time, timeSlot string) (bool, error)
	Release(ctx context.Context, doctorID uuid.UUID, date time.Time, timeSlot string) error
	Exists(ctx context.Context, doctorID uuid.UUID, date time.Time, timeSlot string) (bool, error)
}

type AppointmentRepository interface {
	Create(ctx context.Context, a *Appointment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	// GetForUpdate locks the row for the rest of the transaction.
	GetForUpdate(ctx context.Context, id uuid.UUID) (*Appointment, error)
	Patch(ctx context.Context, id uuid.UUID, set map[string]interface{}) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, filters map[string]string, excludeCancelled bool, limit, offset int) ([]*Appointment, int, error)
	// HasVisit reports whether the patient has a Confirmed or Completed
	// appointment with the doctor.
	HasVisit(ctx context.Context, patientID, doctorID uuid.UUID) (bool, error)
}
