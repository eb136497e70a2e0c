package billing

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/docbook/docbook/internal/platform/apperr"
	"github.com/docbook/docbook/internal/platform/db"
)

type paymentRepoPG struct{ pool db.Querier }

func NewPaymentRepoPG(pool db.Querier) PaymentRepository { return &paymentRepoPG{pool: pool} }

func (r *paymentRepoPG) conn(ctx context.Context) db.Querier { return db.Conn(ctx, r.pool) }

const paymentCols = `id, patient_id, doctor_id, appointment_id, amount, payment_method, payment_status,
	transaction_id, gateway_order_id, created_at, updated_at`

func scanPayment(row pgx.Row) (*Payment, error) {
	var p Payment
	err := row.Scan(&p.ID, &p.PatientID, &p.DoctorID, &p.AppointmentID, &p.Amount, &p.Method, &p.Status,
		&p.TransactionID, &p.GatewayOrderID, &p.CreatedAt, &p.UpdatedAt)
	if db.IsNoRows(err) {
		return nil, apperr.NotFound("payment not found")
	}
	return &p, err
}

func (r *paymentRepoPG) Create(ctx context.Context, p *Payment) error {
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO payments (patient_id, doctor_id, appointment_id, amount, payment_method, payment_status,
			transaction_id, gateway_order_id)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		RETURNING id, created_at, updated_at`,
		p.PatientID, p.DoctorID, p.AppointmentID, p.Amount, p.Method, p.Status, p.TransactionID, p.GatewayOrderID,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
}

func (r *paymentRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Payment, error) {
	return scanPayment(r.conn(ctx).QueryRow(ctx, `SELECT `+paymentCols+` FROM payments WHERE id = $1`, id))
}

func (r *paymentRepoPG) Update(ctx context.Context, p *Payment) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE payments SET patient_id=$2, doctor_id=$3, appointment_id=$4, amount=$5, payment_method=$6,
			payment_status=$7, transaction_id=$8, gateway_order_id=$9, updated_at=NOW()
		WHERE id = $1`,
		p.ID, p.PatientID, p.DoctorID, p.AppointmentID, p.Amount, p.Method, p.Status, p.TransactionID, p.GatewayOrderID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("payment not found")
	}
	return nil
}

func (r *paymentRepoPG) Patch(ctx context.Context, id uuid.UUID, set map[string]interface{}) error {
	sql, args, err := db.BuildUpdate("payments", set, "id", id)
	if err != nil {
		return err
	}
	tag, err := r.conn(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("payment not found")
	}
	return nil
}

func (r *paymentRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM payments WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("payment not found")
	}
	return nil
}

func (r *paymentRepoPG) List(ctx context.Context, filters map[string]string, limit, offset int) ([]*Payment, int, error) {
	where, args, err := paymentFilters.Where(filters, 1)
	if err != nil {
		return nil, 0, apperr.Invalid("%v", err)
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM payments WHERE 1=1`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	n := len(args)
	query := fmt.Sprintf(`SELECT %s FROM payments WHERE 1=1%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		paymentCols, where, n+1, n+2)
	rows, err := r.conn(ctx).Query(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, p)
	}
	return items, total, rows.Err()
}

func (r *paymentRepoPG) buckets(ctx context.Context, column, where string, args []interface{}) ([]Bucket, error) {
	rows, err := r.conn(ctx).Query(ctx, fmt.Sprintf(`
		SELECT %[1]s, COUNT(*), COALESCE(SUM(amount), 0)
		FROM payments WHERE 1=1%[2]s
		GROUP BY %[1]s ORDER BY %[1]s`, column, where), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Bucket{}
	for rows.Next() {
		var b Bucket
		if err := rows.Scan(&b.Key, &b.Count, &b.Amount); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *paymentRepoPG) Summary(ctx context.Context, filters map[string]string) (*Summary, error) {
	where, args, err := paymentFilters.Where(filters, 1)
	if err != nil {
		return nil, apperr.Invalid("%v", err)
	}

	s := &Summary{}
	err = r.conn(ctx).QueryRow(ctx, `
		SELECT COUNT(*), COALESCE(SUM(amount), 0),
			COALESCE(SUM(amount) FILTER (WHERE payment_status = 'Completed'), 0)
		FROM payments WHERE 1=1`+where, args...,
	).Scan(&s.Count, &s.TotalAmount, &s.CompletedTotal)
	if err != nil {
		return nil, err
	}
	if s.ByMethod, err = r.buckets(ctx, "payment_method", where, args); err != nil {
		return nil, err
	}
	if s.ByStatus, err = r.buckets(ctx, "payment_status", where, args); err != nil {
		return nil, err
	}
	return s, nil
}
