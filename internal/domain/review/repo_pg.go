package review

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/docbook/docbook/internal/platform/apperr"
	"github.com/docbook/docbook/internal/platform/db"
)

type reviewRepoPG struct{ pool db.Querier }

func NewReviewRepoPG(pool db.Querier) ReviewRepository { return &reviewRepoPG{pool: pool} }

func (r *reviewRepoPG) conn(ctx context.Context) db.Querier { return db.Conn(ctx, r.pool) }

const reviewCols = `id, patient_id, doctor_id, rating, comment, status, created_at, updated_at`

func scanReview(row pgx.Row) (*Review, error) {
	var rv Review
	err := row.Scan(&rv.ID, &rv.PatientID, &rv.DoctorID, &rv.Rating, &rv.Comment, &rv.Status, &rv.CreatedAt, &rv.UpdatedAt)
	if db.IsNoRows(err) {
		return nil, apperr.NotFound("review not found")
	}
	return &rv, err
}

func (r *reviewRepoPG) Create(ctx context.Context, rv *Review) error {
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO reviews (patient_id, doctor_id, rating, comment, status)
		VALUES ($1,$2,$3,$4,$5)
		RETURNING id, created_at, updated_at`,
		rv.PatientID, rv.DoctorID, rv.Rating, rv.Comment, rv.Status,
	).Scan(&rv.ID, &rv.CreatedAt, &rv.UpdatedAt)
}

func (r *reviewRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Review, error) {
	return scanReview(r.conn(ctx).QueryRow(ctx, `SELECT `+reviewCols+` FROM reviews WHERE id = $1`, id))
}

func (r *reviewRepoPG) Patch(ctx context.Context, id uuid.UUID, set map[string]interface{}) error {
	sql, args, err := db.BuildUpdate("reviews", set, "id", id)
	if err != nil {
		return err
	}
	tag, err := r.conn(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("review not found")
	}
	return nil
}

func (r *reviewRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM reviews WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("review not found")
	}
	return nil
}

func (r *reviewRepoPG) List(ctx context.Context, filters map[string]string, limit, offset int) ([]*Review, int, error) {
	where, args, err := reviewFilters.Where(filters, 1)
	if err != nil {
		return nil, 0, apperr.Invalid("%v", err)
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM reviews WHERE 1=1`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	n := len(args)
	query := fmt.Sprintf(`SELECT %s FROM reviews WHERE 1=1%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		reviewCols, where, n+1, n+2)
	rows, err := r.conn(ctx).Query(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Review
	for rows.Next() {
		rv, err := scanReview(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, rv)
	}
	return items, total, rows.Err()
}

func (r *reviewRepoPG) Rating(ctx context.Context, doctorID uuid.UUID) (*Rating, error) {
	out := &Rating{DoctorID: doctorID}
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT COALESCE(AVG(rating), 0)::float8, COUNT(*)
		FROM reviews WHERE doctor_id = $1 AND status = 'Approved'`, doctorID,
	).Scan(&out.Average, &out.Count)
	return out, err
}
