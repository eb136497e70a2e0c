package identity

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/docbook/docbook/internal/platform/db"
)

// Doctor verification states.
const (
	StatusPending = "Pending"
	StatusAccept  = "Accept"
	StatusReject  = "Reject"
)

var validDoctorStatuses = map[string]bool{
	StatusPending: true, StatusAccept: true, StatusReject: true,
}

// Patient maps to the patients table.
type Patient struct {
	ID           uuid.UUID `db:"id" json:"id"`
	Username     string    `db:"username" json:"username"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Phone        *string   `db:"phone" json:"phone,omitempty"`
	Gender       *string   `db:"gender" json:"gender,omitempty"`
	Age          *int      `db:"age" json:"age,omitempty"`
	IsAdmin      bool      `db:"is_admin" json:"is_admin"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// Doctor maps to the doctors table.
type Doctor struct {
	ID              uuid.UUID `db:"id" json:"id"`
	Username        string    `db:"username" json:"username"`
	Email           string    `db:"email" json:"email"`
	PasswordHash    string    `db:"password_hash" json:"-"`
	Phone           *string   `db:"phone" json:"phone,omitempty"`
	Gender          *string   `db:"gender" json:"gender,omitempty"`
	Specialization  string    `db:"specialization" json:"specialization"`
	Qualification   *string   `db:"qualification" json:"qualification,omitempty"`
	Experience      *int      `db:"experience" json:"experience,omitempty"`
	ClinicName      *string   `db:"clinic_name" json:"clinic_name,omitempty"`
	ClinicAddress   *string   `db:"clinic_address" json:"clinic_address,omitempty"`
	City            *string   `db:"city" json:"city,omitempty"`
	ConsultationFee float64   `db:"consultation_fee" json:"consultation_fee"`
	AvailableDays   *string   `db:"available_days" json:"available_days,omitempty"`
	AvailableTime   *string   `db:"available_time" json:"available_time,omitempty"`
	ProfileImage    *string   `db:"profile_image" json:"profile_image,omitempty"`
	About           *string   `db:"about" json:"about,omitempty"`
	Status          string    `db:"status" json:"status"`
	IsVerified      bool      `db:"is_verified" json:"is_verified"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// PatientInput is the registration body.
type PatientInput struct {
	Username string  `json:"username" validate:"required,max=100"`
	Email    string  `json:"email" validate:"required,email,max=255"`
	Password string  `json:"password" validate:"required,min=6,max=72"`
	Phone    *string `json:"phone" validate:"omitempty,max=32"`
	Gender   *string `json:"gender" validate:"omitempty,max=16"`
	Age      *int    `json:"age" validate:"omitempty,min=0,max=150"`
}

func (in PatientInput) Patient() *Patient {
	return &Patient{
		Username: strings.TrimSpace(in.Username),
		Email:    NormalizeEmail(in.Email),
		Phone:    in.Phone,
		Gender:   in.Gender,
		Age:      in.Age,
	}
}

// PatientUpdate is the PUT body: every profile field is replaced.
type PatientUpdate struct {
	Username string  `json:"username" validate:"required,max=100"`
	Email    string  `json:"email" validate:"required,email,max=255"`
	Phone    *string `json:"phone" validate:"omitempty,max=32"`
	Gender   *string `json:"gender" validate:"omitempty,max=16"`
	Age      *int    `json:"age" validate:"omitempty,min=0,max=150"`
}

// DoctorInput is the self-registration body.
type DoctorInput struct {
	Username        string  `json:"username" validate:"required,max=100"`
	Email           string  `json:"email" validate:"required,email,max=255"`
	Password        string  `json:"password" validate:"required,min=6,max=72"`
	Phone           *string `json:"phone" validate:"omitempty,max=32"`
	Gender          *string `json:"gender" validate:"omitempty,max=16"`
	Specialization  string  `json:"specialization" validate:"required,max=120"`
	Qualification   *string `json:"qualification" validate:"omitempty,max=255"`
	Experience      *int    `json:"experience" validate:"omitempty,min=0"`
	ClinicName      *string `json:"clinic_name" validate:"omitempty,max=255"`
	ClinicAddress   *string `json:"clinic_address"`
	City            *string `json:"city" validate:"omitempty,max=120"`
	ConsultationFee float64 `json:"consultation_fee" validate:"gte=0,lte=99999999.99"`
	AvailableDays   *string `json:"available_days" validate:"omitempty,max=255"`
	AvailableTime   *string `json:"available_time" validate:"omitempty,max=255"`
	ProfileImage    *string `json:"profile_image"`
	About           *string `json:"about"`
}

func (in DoctorInput) Doctor() *Doctor {
	return &Doctor{
		Username:        strings.TrimSpace(in.Username),
		Email:           NormalizeEmail(in.Email),
		Phone:           in.Phone,
		Gender:          in.Gender,
		Specialization:  strings.TrimSpace(in.Specialization),
		Qualification:   in.Qualification,
		Experience:      in.Experience,
		ClinicName:      in.ClinicName,
		ClinicAddress:   in.ClinicAddress,
		City:            in.City,
		ConsultationFee: in.ConsultationFee,
		AvailableDays:   in.AvailableDays,
		AvailableTime:   in.AvailableTime,
		ProfileImage:    in.ProfileImage,
		About:           in.About,
	}
}

// DoctorUpdate is the PUT body. Verification fields are not part of it.
type DoctorUpdate struct {
	Username        string  `json:"username" validate:"required,max=100"`
	Email           string  `json:"email" validate:"required,email,max=255"`
	Phone           *string `json:"phone" validate:"omitempty,max=32"`
	Gender          *string `json:"gender" validate:"omitempty,max=16"`
	Specialization  string  `json:"specialization" validate:"required,max=120"`
	Qualification   *string `json:"qualification" validate:"omitempty,max=255"`
	Experience      *int    `json:"experience" validate:"omitempty,min=0"`
	ClinicName      *string `json:"clinic_name" validate:"omitempty,max=255"`
	ClinicAddress   *string `json:"clinic_address"`
	City            *string `json:"city" validate:"omitempty,max=120"`
	ConsultationFee float64 `json:"consultation_fee" validate:"gte=0,lte=99999999.99"`
	AvailableDays   *string `json:"available_days" validate:"omitempty,max=255"`
	AvailableTime   *string `json:"available_time" validate:"omitempty,max=255"`
	ProfileImage    *string `json:"profile_image"`
	About           *string `json:"about"`
}

// StatusInput is the body of PATCH /doctors/:id/status.
type StatusInput struct {
	Status string `json:"status" validate:"required"`
}

// Columns a PATCH may touch. Keys are JSON names.
var patientColumns = db.Columns{
	"username": {Column: "username", Kind: db.KindString, NotNull: true, MaxLen: 100},
	"email":    {Column: "email", Kind: db.KindString, NotNull: true, MaxLen: 255},
	"phone":    {Column: "phone", Kind: db.KindString, MaxLen: 32},
	"gender":   {Column: "gender", Kind: db.KindString, MaxLen: 16},
	"age":      {Column: "age", Kind: db.KindInt, Min: db.Bound(0), Max: db.Bound(150)},
}

var doctorColumns = db.Columns{
	"username":         {Column: "username", Kind: db.KindString, NotNull: true, MaxLen: 100},
	"email":            {Column: "email", Kind: db.KindString, NotNull: true, MaxLen: 255},
	"phone":            {Column: "phone", Kind: db.KindString, MaxLen: 32},
	"gender":           {Column: "gender", Kind: db.KindString, MaxLen: 16},
	"specialization":   {Column: "specialization", Kind: db.KindString, NotNull: true, MaxLen: 120},
	"qualification":    {Column: "qualification", Kind: db.KindString, MaxLen: 255},
	"experience":       {Column: "experience", Kind: db.KindInt, Min: db.Bound(0)},
	"clinic_name":      {Column: "clinic_name", Kind: db.KindString, MaxLen: 255},
	"clinic_address":   {Column: "clinic_address", Kind: db.KindString},
	"city":             {Column: "city", Kind: db.KindString, MaxLen: 120},
	"consultation_fee": {Column: "consultation_fee", Kind: db.KindFloat, NotNull: true, Min: db.Bound(0), Max: db.Bound(db.MaxMoney)},
	"available_days":   {Column: "available_days", Kind: db.KindString, MaxLen: 255},
	"available_time":   {Column: "available_time", Kind: db.KindString, MaxLen: 255},
	"profile_image":    {Column: "profile_image", Kind: db.KindString},
	"about":            {Column: "about", Kind: db.KindString},
	"status":           {Column: "status", Kind: db.KindString, NotNull: true},
}

// List filters. Query parameters outside these are ignored.
var patientFilters = db.Columns{
	"username": {Column: "username", Kind: db.KindString},
	"email":    {Column: "email", Kind: db.KindString},
	"gender":   {Column: "gender", Kind: db.KindString},
	"is_admin": {Column: "is_admin", Kind: db.KindBool},
}

var doctorFilters = db.Columns{
	"username":       {Column: "username", Kind: db.KindString},
	"specialization": {Column: "specialization", Kind: db.KindString},
	"city":           {Column: "city", Kind: db.KindString},
	"gender":         {Column: "gender", Kind: db.KindString},
	"status":         {Column: "status", Kind: db.KindString},
	"is_verified":    {Column: "is_verified", Kind: db.KindBool},
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
