package scheduling

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/docbook/docbook/internal/platform/apperr"
	"github.com/docbook/docbook/internal/platform/db"
)

// =========== Slot Repository ===========

type slotRepoPG struct{ pool db.Querier }

func NewSlotRepoPG(pool db.Querier) SlotRepository { return &slotRepoPG{pool: pool} }

func (r *slotRepoPG) conn(ctx context.Context) db.Querier { return db.Conn(ctx, r.pool) }

const slotCols = `id, doctor_id, slot_date, weekday, time_slot, is_available, created_at, updated_at`

func scanSlot(row pgx.Row) (*Slot, error) {
	var s Slot
	var date time.Time
	err := row.Scan(&s.ID, &s.DoctorID, &date, &s.Weekday, &s.TimeSlot, &s.IsAvailable, &s.CreatedAt, &s.UpdatedAt)
	if db.IsNoRows(err) {
		return nil, apperr.NotFound("slot not found")
	}
	s.Date = db.NewDate(date)
	return &s, err
}

func (r *slotRepoPG) Create(ctx context.Context, s *Slot) error {
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO slots (doctor_id, slot_date, weekday, time_slot, is_available)
		VALUES ($1,$2,$3,$4,$5)
		RETURNING id, created_at, updated_at`,
		s.DoctorID, s.Date.Time, s.Weekday, s.TimeSlot, s.IsAvailable,
	).Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
}

func (r *slotRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Slot, error) {
	return scanSlot(r.conn(ctx).QueryRow(ctx, `SELECT `+slotCols+` FROM slots WHERE id = $1`, id))
}

func (r *slotRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM slots WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("slot not found")
	}
	return nil
}

func (r *slotRepoPG) DeleteByDoctor(ctx context.Context, doctorID uuid.UUID) (int64, error) {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM slots WHERE doctor_id = $1`, doctorID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *slotRepoPG) ListByDoctor(ctx context.Context, doctorID uuid.UUID, onlyAvailable bool) ([]*Slot, error) {
	query := `SELECT ` + slotCols + ` FROM slots WHERE doctor_id = $1`
	if onlyAvailable {
		query += ` AND is_available`
	}
	rows, err := r.conn(ctx).Query(ctx, query+` ORDER BY slot_date, time_slot`, doctorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*Slot
	for rows.Next() {
		s, err := scanSlot(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, s)
	}
	return items, rows.Err()
}

func (r *slotRepoPG) MarkBooked(ctx context.Context, doctorID uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE slots s SET is_available = FALSE, updated_at = NOW()
		FROM appointments a
		WHERE s.doctor_id = $1
		  AND a.doctor_id = s.doctor_id
		  AND a.appointment_date = s.slot_date
		  AND a.time_slot = s.time_slot
		  AND a.status IN ('Pending', 'Confirmed')`, doctorID)
	return err
}

func (r *slotRepoPG) Reserve(ctx context.Context, doctorID uuid.UUID, date time.Time, timeSlot string) (bool, error) {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE slots SET is_available = FALSE, updated_at = NOW()
		WHERE doctor_id = $1 AND slot_date = $2 AND time_slot = $3 AND is_available`,
		doctorID, date, timeSlot)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *slotRepoPG) Release(ctx context.Context, doctorID uuid.UUID, date time.Time, timeSlot string) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE slots SET is_available = TRUE, updated_at = NOW()
		WHERE doctor_id = $1 AND slot_date = $2 AND time_slot = $3`,
		doctorID, date, timeSlot)
	return err
}

func (r *slotRepoPG) Exists(ctx context.Context, doctorID uuid.UUID, date time.Time, timeSlot string) (bool, error) {
	var exists bool
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM slots WHERE doctor_id = $1 AND slot_date = $2 AND time_slot = $3)`,
		doctorID, date, timeSlot).Scan(&exists)
	return exists, err
}

// =========== Appointment Repository ===========

type appointmentRepoPG struct{ pool db.Querier }

func NewAppointmentRepoPG(pool db.Querier) AppointmentRepository { return &appointmentRepoPG{pool: pool} }

func (r *appointmentRepoPG) conn(ctx context.Context) db.Querier { return db.Conn(ctx, r.pool) }

const appointmentCols = `id, patient_id, doctor_id, appointment_date, time_slot, reason, status, created_at, updated_at`

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	var date time.Time
	err := row.Scan(&a.ID, &a.PatientID, &a.DoctorID, &date, &a.TimeSlot, &a.Reason, &a.Status, &a.CreatedAt, &a.UpdatedAt)
	if db.IsNoRows(err) {
		return nil, apperr.NotFound("appointment not found")
	}
	a.Date = db.NewDate(date)
	return &a, err
}

func (r *appointmentRepoPG) Create(ctx context.Context, a *Appointment) error {
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO appointments (patient_id, doctor_id, appointment_date, time_slot, reason, status)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING id, created_at, updated_at`,
		a.PatientID, a.DoctorID, a.Date.Time, a.TimeSlot, a.Reason, a.Status,
	).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
	if db.IsUniqueViolation(err) {
		return errSlotTaken
	}
	return err
}

func (r *appointmentRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return scanAppointment(r.conn(ctx).QueryRow(ctx, `SELECT `+appointmentCols+` FROM appointments WHERE id = $1`, id))
}

func (r *appointmentRepoPG) GetForUpdate(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return scanAppointment(r.conn(ctx).QueryRow(ctx, `SELECT `+appointmentCols+` FROM appointments WHERE id = $1 FOR UPDATE`, id))
}

func (r *appointmentRepoPG) Patch(ctx context.Context, id uuid.UUID, set map[string]interface{}) error {
	sql, args, err := db.BuildUpdate("appointments", set, "id", id)
	if err != nil {
		return err
	}
	tag, err := r.conn(ctx).Exec(ctx, sql, args...)
	if db.IsUniqueViolation(err) {
		return errSlotTaken
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("appointment not found")
	}
	return nil
}

func (r *appointmentRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM appointments WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("appointment not found")
	}
	return nil
}

func (r *appointmentRepoPG) List(ctx context.Context, filters map[string]string, excludeCancelled bool, limit, offset int) ([]*Appointment, int, error) {
	where, args, err := appointmentFilters.Where(filters, 1)
	if err != nil {
		return nil, 0, apperr.Invalid("%v", err)
	}
	if excludeCancelled {
		where += ` AND status <> 'Cancelled'`
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM appointments WHERE 1=1`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	n := len(args)
	query := fmt.Sprintf(`SELECT %s FROM appointments WHERE 1=1%s
		ORDER BY appointment_date DESC, time_slot LIMIT $%d OFFSET $%d`, appointmentCols, where, n+1, n+2)
	rows, err := r.conn(ctx).Query(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, a)
	}
	return items, total, rows.Err()
}

func (r *appointmentRepoPG) HasVisit(ctx context.Context, patientID, doctorID uuid.UUID) (bool, error) {
	var ok bool
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM appointments
			WHERE patient_id = $1 AND doctor_id = $2 AND status IN ('Confirmed', 'Completed')
		)`, patientID, doctorID).Scan(&ok)
	return ok, err
}
