package dashboard

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/docbook/docbook/internal/platform/db"
)

type statsRepoPG struct{ pool db.Querier }

func NewStatsRepoPG(pool db.Querier) StatsRepository { return &statsRepoPG{pool: pool} }

func (r *statsRepoPG) conn(ctx context.Context) db.Querier { return db.Conn(ctx, r.pool) }

func (r *statsRepoPG) Counts(ctx context.Context) (Counts, error) {
	var c Counts
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM patients),
			(SELECT COUNT(*) FROM doctors),
			(SELECT COUNT(*) FROM appointments),
			(SELECT COUNT(*) FROM payments),
			(SELECT COUNT(*) FROM reviews),
			(SELECT COUNT(*) FROM contacts)`,
	).Scan(&c.Patients, &c.Doctors, &c.Appointments, &c.Payments, &c.Reviews, &c.Contacts)
	return c, err
}

// Revenue only counts Completed payments, whatever the method.
func (r *statsRepoPG) Revenue(ctx context.Context) (float64, []MethodRevenue, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT payment_method, COALESCE(SUM(amount), 0)::float8, COUNT(*)
		FROM payments WHERE payment_status = 'Completed'
		GROUP BY payment_method ORDER BY payment_method`)
	if err != nil {
		return 0, nil, err
	}
	defer rows.Close()

	var total float64
	var out []MethodRevenue
	for rows.Next() {
		var m MethodRevenue
		if err := rows.Scan(&m.Method, &m.Total, &m.Count); err != nil {
			return 0, nil, err
		}
		total += m.Total
		out = append(out, m)
	}
	return total, out, rows.Err()
}

func (r *statsRepoPG) TopDoctor(ctx context.Context) (*DoctorStat, error) {
	var d DoctorStat
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT d.id, d.username, d.specialization, COUNT(a.id)
		FROM doctors d JOIN appointments a ON a.doctor_id = d.id
		GROUP BY d.id ORDER BY COUNT(a.id) DESC, d.username LIMIT 1`,
	).Scan(&d.DoctorID, &d.Username, &d.Specialization, &d.Appointments)
	if db.IsNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *statsRepoPG) TopRatedDoctor(ctx context.Context) (*DoctorStat, error) {
	var d DoctorStat
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT d.id, d.username, d.specialization, AVG(rv.rating)::float8, COUNT(rv.id)
		FROM doctors d JOIN reviews rv ON rv.doctor_id = d.id AND rv.status = 'Approved'
		GROUP BY d.id ORDER BY AVG(rv.rating) DESC, COUNT(rv.id) DESC LIMIT 1`,
	).Scan(&d.DoctorID, &d.Username, &d.Specialization, &d.AverageRating, &d.Reviews)
	if db.IsNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *statsRepoPG) RecentAppointments(ctx context.Context, limit int) ([]RecentAppointment, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT a.id, a.patient_id, p.username, a.doctor_id, d.username,
		       a.appointment_date, a.time_slot, a.status, a.created_at
		FROM appointments a
		JOIN patients p ON p.id = a.patient_id
		JOIN doctors d ON d.id = a.doctor_id
		ORDER BY a.created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []RecentAppointment{}
	for rows.Next() {
		var a RecentAppointment
		var date time.Time
		if err := rows.Scan(&a.ID, &a.PatientID, &a.PatientName, &a.DoctorID, &a.DoctorName,
			&date, &a.TimeSlot, &a.Status, &a.CreatedAt); err != nil {
			return nil, err
		}
		a.Date = db.NewDate(date)
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *statsRepoPG) AppointmentsByStatus(ctx context.Context) (map[string]int, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT status, COUNT(*) FROM appointments GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		out[status] = n
	}
	return out, rows.Err()
}

// DoctorPayments totals Completed payments per doctor; a nil doctorID
// returns every doctor with at least one payment.
func (r *statsRepoPG) DoctorPayments(ctx context.Context, doctorID *uuid.UUID) ([]DoctorPayment, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT d.id, d.username, COALESCE(SUM(p.amount), 0)::float8, COUNT(p.id)
		FROM doctors d JOIN payments p ON p.doctor_id = d.id AND p.payment_status = 'Completed'
		WHERE $1::uuid IS NULL OR d.id = $1
		GROUP BY d.id ORDER BY 3 DESC`, doctorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []DoctorPayment{}
	for rows.Next() {
		var p DoctorPayment
		if err := rows.Scan(&p.DoctorID, &p.Username, &p.Total, &p.Count); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
