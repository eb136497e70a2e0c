package identity

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/docbook/docbook/internal/platform/apperr"
	"github.com/docbook/docbook/internal/platform/db"
)

// =========== Patient Repository ===========

type patientRepoPG struct{ pool db.Querier }

func NewPatientRepoPG(pool db.Querier) PatientRepository { return &patientRepoPG{pool: pool} }

func (r *patientRepoPG) conn(ctx context.Context) db.Querier { return db.Conn(ctx, r.pool) }

const patientCols = `id, username, email, password_hash, phone, gender, age, is_admin, created_at, updated_at`

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(&p.ID, &p.Username, &p.Email, &p.PasswordHash, &p.Phone, &p.Gender, &p.Age,
		&p.IsAdmin, &p.CreatedAt, &p.UpdatedAt)
	if db.IsNoRows(err) {
		return nil, apperr.NotFound("patient not found")
	}
	return &p, err
}

func (r *patientRepoPG) Create(ctx context.Context, p *Patient) error {
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO patients (username, email, password_hash, phone, gender, age, is_admin)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING id, created_at, updated_at`,
		p.Username, p.Email, p.PasswordHash, p.Phone, p.Gender, p.Age, p.IsAdmin,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
}

func (r *patientRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return scanPatient(r.conn(ctx).QueryRow(ctx, `SELECT `+patientCols+` FROM patients WHERE id = $1`, id))
}

func (r *patientRepoPG) GetByEmail(ctx context.Context, email string) (*Patient, error) {
	return scanPatient(r.conn(ctx).QueryRow(ctx, `SELECT `+patientCols+` FROM patients WHERE LOWER(email) = LOWER($1)`, email))
}

func (r *patientRepoPG) Update(ctx context.Context, p *Patient) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE patients SET username=$2, email=$3, phone=$4, gender=$5, age=$6, updated_at=NOW()
		WHERE id = $1`,
		p.ID, p.Username, p.Email, p.Phone, p.Gender, p.Age)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("patient not found")
	}
	return nil
}

func (r *patientRepoPG) Patch(ctx context.Context, id uuid.UUID, set map[string]interface{}) error {
	sql, args, err := db.BuildUpdate("patients", set, "id", id)
	if err != nil {
		return err
	}
	tag, err := r.conn(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("patient not found")
	}
	return nil
}

func (r *patientRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM patients WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("patient not found")
	}
	return nil
}

func (r *patientRepoPG) List(ctx context.Context, filters map[string]string, limit, offset int) ([]*Patient, int, error) {
	where, args, err := patientFilters.Where(filters, 1)
	if err != nil {
		return nil, 0, apperr.Invalid("%v", err)
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM patients WHERE 1=1`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`SELECT `+patientCols+` FROM patients WHERE 1=1%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		where, len(args)+1, len(args)+2)
	rows, err := r.conn(ctx).Query(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Patient
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, p)
	}
	return items, total, rows.Err()
}

func (r *patientRepoPG) SetAdmin(ctx context.Context, email string, admin bool) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE patients SET is_admin = $2, updated_at = NOW() WHERE LOWER(email) = LOWER($1)`, email, admin)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("patient not found")
	}
	return nil
}

// =========== Doctor Repository ===========

type doctorRepoPG struct{ pool db.Querier }

func NewDoctorRepoPG(pool db.Querier) DoctorRepository { return &doctorRepoPG{pool: pool} }

func (r *doctorRepoPG) conn(ctx context.Context) db.Querier { return db.Conn(ctx, r.pool) }

const doctorCols = `id, username, email, password_hash, phone, gender, specialization, qualification,
	experience, clinic_name, clinic_address, city, consultation_fee, available_days, available_time,
	profile_image, about, status, is_verified, created_at, updated_at`

func scanDoctor(row pgx.Row) (*Doctor, error) {
	var d Doctor
	err := row.Scan(&d.ID, &d.Username, &d.Email, &d.PasswordHash, &d.Phone, &d.Gender,
		&d.Specialization, &d.Qualification, &d.Experience, &d.ClinicName, &d.ClinicAddress,
		&d.City, &d.ConsultationFee, &d.AvailableDays, &d.AvailableTime, &d.ProfileImage,
		&d.About, &d.Status, &d.IsVerified, &d.CreatedAt, &d.UpdatedAt)
	if db.IsNoRows(err) {
		return nil, apperr.NotFound("doctor not found")
	}
	return &d, err
}

func (r *doctorRepoPG) Create(ctx context.Context, d *Doctor) error {
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO doctors (username, email, password_hash, phone, gender, specialization,
			qualification, experience, clinic_name, clinic_address, city, consultation_fee,
			available_days, available_time, profile_image, about, status, is_verified)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)
		RETURNING id, created_at, updated_at`,
		d.Username, d.Email, d.PasswordHash, d.Phone, d.Gender, d.Specialization,
		d.Qualification, d.Experience, d.ClinicName, d.ClinicAddress, d.City, d.ConsultationFee,
		d.AvailableDays, d.AvailableTime, d.ProfileImage, d.About, d.Status, d.IsVerified,
	).Scan(&d.ID, &d.CreatedAt, &d.UpdatedAt)
}

func (r *doctorRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	return scanDoctor(r.conn(ctx).QueryRow(ctx, `SELECT `+doctorCols+` FROM doctors WHERE id = $1`, id))
}

func (r *doctorRepoPG) GetByEmail(ctx context.Context, email string) (*Doctor, error) {
	return scanDoctor(r.conn(ctx).QueryRow(ctx, `SELECT `+doctorCols+` FROM doctors WHERE LOWER(email) = LOWER($1)`, email))
}

func (r *doctorRepoPG) Update(ctx context.Context, d *Doctor) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE doctors SET username=$2, email=$3, phone=$4, gender=$5, specialization=$6,
			qualification=$7, experience=$8, clinic_name=$9, clinic_address=$10, city=$11,
			consultation_fee=$12, available_days=$13, available_time=$14, profile_image=$15,
			about=$16, updated_at=NOW()
		WHERE id = $1`,
		d.ID, d.Username, d.Email, d.Phone, d.Gender, d.Specialization,
		d.Qualification, d.Experience, d.ClinicName, d.ClinicAddress, d.City,
		d.ConsultationFee, d.AvailableDays, d.AvailableTime, d.ProfileImage, d.About)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("doctor not found")
	}
	return nil
}

func (r *doctorRepoPG) Patch(ctx context.Context, id uuid.UUID, set map[string]interface{}) error {
	sql, args, err := db.BuildUpdate("doctors", set, "id", id)
	if err != nil {
		return err
	}
	tag, err := r.conn(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("doctor not found")
	}
	return nil
}

func (r *doctorRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM doctors WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("doctor not found")
	}
	return nil
}

func (r *doctorRepoPG) List(ctx context.Context, filters map[string]string, limit, offset int) ([]*Doctor, int, error) {
	where, args, err := doctorFilters.Where(filters, 1)
	if err != nil {
		return nil, 0, apperr.Invalid("%v", err)
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM doctors WHERE 1=1`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`SELECT `+doctorCols+` FROM doctors WHERE 1=1%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		where, len(args)+1, len(args)+2)
	rows, err := r.conn(ctx).Query(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Doctor
	for rows.Next() {
		d, err := scanDoctor(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, d)
	}
	return items, total, rows.Err()
}
