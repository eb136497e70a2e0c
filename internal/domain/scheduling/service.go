package scheduling

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/docbook/docbook/internal/domain/billing"
	"github.com/docbook/docbook/internal/domain/identity"
	"github.com/docbook/docbook/internal/platform/apperr"
	"github.com/docbook/docbook/internal/platform/auth"
	"github.com/docbook/docbook/internal/platform/db"
	"github.com/docbook/docbook/internal/platform/notification"
)

var (
	errSlotTaken       = apperr.Conflict("time slot is already booked")
	errSlotUnavailable = apperr.Conflict("time slot is not available")
)

// Directory resolves the people named on an appointment.
type Directory interface {
	GetPatient(ctx context.Context, id uuid.UUID) (*identity.Patient, error)
	GetDoctor(ctx context.Context, id uuid.UUID) (*identity.Doctor, error)
}

// PaymentRecorder stores the payment taken at booking time.
type PaymentRecorder interface {
	Record(ctx context.Context, p *billing.Payment) error
}

type Service struct {
	slots        SlotRepository
	appointments AppointmentRepository
	payments     PaymentRecorder
	dir          Directory
	tx           db.TxManager
	notifier     *notification.Notifier
	logger       zerolog.Logger
}

func NewService(
	slots SlotRepository,
	appointments AppointmentRepository,
	payments PaymentRecorder,
	dir Directory,
	tx db.TxManager,
	notifier *notification.Notifier,
	logger zerolog.Logger,
) *Service {
	return &Service{
		slots:        slots,
		appointments: appointments,
		payments:     payments,
		dir:          dir,
		tx:           tx,
		notifier:     notifier,
		logger:       logger,
	}
}

// -- Slots --

type slotKey struct {
	date string
	time string
}

// SaveSlots replaces the doctor's whole schedule with in.Slots. Slots that
// an active appointment already holds come back unavailable.
func (s *Service) SaveSlots(ctx context.Context, in SlotBatchInput) (SlotBatch, []*Slot, error) {
	if in.DoctorID == uuid.Nil {
		return nil, nil, apperr.Invalid("doctor_id is required")
	}
	if _, err := s.dir.GetDoctor(ctx, in.DoctorID); err != nil {
		return nil, nil, err
	}

	var rows []*Slot
	seen := make(map[slotKey]bool)
	for key, day := range in.Slots {
		date, err := db.ParseDate(key)
		if err != nil {
			return nil, nil, apperr.Invalid("invalid slot date %q: use YYYY-MM-DD or DD-MM-YYYY", key)
		}
		if day == nil {
			continue
		}
		label := strings.TrimSpace(day.Day)
		if label == "" {
			label = date.Weekday().String()
		}
		for _, t := range day.Times {
			t = strings.TrimSpace(t)
			k := slotKey{date: date.Format(db.DateLayouts[0]), time: t}
			if t == "" || seen[k] {
				continue
			}
			seen[k] = true
			rows = append(rows, &Slot{
				DoctorID:    in.DoctorID,
				Date:        db.NewDate(date),
				Weekday:     label,
				TimeSlot:    t,
				IsAvailable: true,
			})
		}
	}

	var saved []*Slot
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := s.slots.DeleteByDoctor(ctx, in.DoctorID); err != nil {
			return err
		}
		for _, slot := range rows {
			if err := s.slots.Create(ctx, slot); err != nil {
				return err
			}
		}
		if err := s.slots.MarkBooked(ctx, in.DoctorID); err != nil {
			return err
		}
		var err error
		saved, err = s.slots.ListByDoctor(ctx, in.DoctorID, false)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	s.logger.Info().Str("doctor_id", in.DoctorID.String()).Int("slots", len(saved)).Msg("slot batch saved")
	return buildBatch(saved), saved, nil
}

func (s *Service) GetSlots(ctx context.Context, doctorID uuid.UUID, onlyAvailable bool) (SlotBatch, []*Slot, error) {
	rows, err := s.slots.ListByDoctor(ctx, doctorID, onlyAvailable)
	if err != nil {
		return nil, nil, err
	}
	return buildBatch(rows), rows, nil
}

func (s *Service) GetSlot(ctx context.Context, id uuid.UUID) (*Slot, error) {
	return s.slots.GetByID(ctx, id)
}

func (s *Service) DeleteSlot(ctx context.Context, id uuid.UUID) error {
	return s.slots.Delete(ctx, id)
}

// buildBatch groups rows by date, keeping times in chronological order.
func buildBatch(rows []*Slot) SlotBatch {
	sorted := make([]*Slot, len(rows))
	copy(sorted, rows)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].Date.Equal(sorted[j].Date.Time) {
			return sorted[i].Date.Before(sorted[j].Date.Time)
		}
		return sorted[i].TimeSlot < sorted[j].TimeSlot
	})

	batch := make(SlotBatch)
	for _, r := range sorted {
		key := r.Date.String()
		day, ok := batch[key]
		if !ok {
			day = &SlotDay{Day: r.Weekday, Times: []string{}, Available: []bool{}}
			batch[key] = day
		}
		day.Times = append(day.Times, r.TimeSlot)
		day.Available = append(day.Available, r.IsAvailable)
	}
	return batch
}

// -- Appointments --

// checkParties loads both parties so bookings cannot reference unknown
// accounts.
func (s *Service) checkParties(ctx context.Context, patientID, doctorID uuid.UUID) (*identity.Doctor, error) {
	if _, err := s.dir.GetPatient(ctx, patientID); err != nil {
		return nil, err
	}
	return s.dir.GetDoctor(ctx, doctorID)
}

func validateAppointment(a *Appointment) error {
	if a.PatientID == uuid.Nil || a.DoctorID == uuid.Nil {
		return apperr.Invalid("patient_id and doctor_id are required")
	}
	if a.Date.IsZero() {
		return apperr.Invalid("appointment_date is required")
	}
	if a.TimeSlot == "" {
		return apperr.Invalid("time_slot is required")
	}
	return nil
}

// reserveIfDefined takes the matching slot when the doctor published one.
// Without a published slot the active-appointment unique index still keeps
// the time exclusive.
func (s *Service) reserveIfDefined(ctx context.Context, doctorID uuid.UUID, date time.Time, timeSlot string) error {
	ok, err := s.slots.Reserve(ctx, doctorID, date, timeSlot)
	if err != nil || ok {
		return err
	}
	exists, err := s.slots.Exists(ctx, doctorID, date, timeSlot)
	if err != nil {
		return err
	}
	if exists {
		return errSlotTaken
	}
	return nil
}

// Create stores a Pending appointment without a payment.
func (s *Service) Create(ctx context.Context, in AppointmentInput) (*Appointment, error) {
	a := in.Appointment()
	if err := validateAppointment(a); err != nil {
		return nil, err
	}
	if _, err := s.checkParties(ctx, a.PatientID, a.DoctorID); err != nil {
		return nil, err
	}

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.reserveIfDefined(ctx, a.DoctorID, a.Date.Time, a.TimeSlot); err != nil {
			return err
		}
		return s.appointments.Create(ctx, a)
	})
	if err != nil {
		return nil, err
	}
	s.notify(ctx, notification.AppointmentBooked, a)
	return a, nil
}

// Book reserves the slot, creates the appointment and records its payment
// in one transaction. Any failure leaves nothing behind.
func (s *Service) Book(ctx context.Context, in BookingInput) (*Booking, error) {
	a := in.AppointmentInput.Appointment()
	if err := validateAppointment(a); err != nil {
		return nil, err
	}
	doctor, err := s.checkParties(ctx, a.PatientID, a.DoctorID)
	if err != nil {
		return nil, err
	}

	amount := doctor.ConsultationFee
	if in.Amount != nil {
		amount = *in.Amount
	}
	pay := &billing.Payment{
		PatientID:      a.PatientID,
		DoctorID:       a.DoctorID,
		Amount:         amount,
		Method:         in.PaymentMethod,
		Status:         in.PaymentStatus,
		TransactionID:  in.TransactionID,
		GatewayOrderID: in.GatewayOrderID,
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		ok, err := s.slots.Reserve(ctx, a.DoctorID, a.Date.Time, a.TimeSlot)
		if err != nil {
			return err
		}
		if !ok {
			return errSlotUnavailable
		}
		if err := s.appointments.Create(ctx, a); err != nil {
			return err
		}
		pay.AppointmentID = &a.ID
		return s.payments.Record(ctx, pay)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("appointment_id", a.ID.String()).
		Str("doctor_id", a.DoctorID.String()).
		Str("payment_method", pay.Method).
		Msg("appointment booked")
	s.notify(ctx, notification.AppointmentBooked, a)
	return &Booking{Appointment: a, Payment: pay}, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.appointments.GetByID(ctx, id)
}

// List hides Cancelled appointments unless a status filter is given.
func (s *Service) List(ctx context.Context, filters map[string]string, limit, offset int) ([]*Appointment, int, error) {
	st := filters["status"]
	if st != "" {
		norm := NormalizeStatus(st)
		if !validStatuses[norm] {
			return nil, 0, apperr.Invalid("invalid appointment status: %s", st)
		}
		scoped := make(map[string]string, len(filters))
		for k, v := range filters {
			scoped[k] = v
		}
		scoped["status"] = norm
		filters = scoped
	}
	return s.appointments.List(ctx, filters, st == "", limit, offset)
}

// HasVisit reports whether the patient has been seen, or is confirmed to
// be seen, by the doctor.
func (s *Service) HasVisit(ctx context.Context, patientID, doctorID uuid.UUID) (bool, error) {
	return s.appointments.HasVisit(ctx, patientID, doctorID)
}

// authorizeChange checks what p may change on a. Doctors and admins may
// edit anything; patients may only cancel or edit the reason.
func authorizeChange(p *auth.Principal, a *Appointment, set map[string]interface{}) error {
	if p == nil {
		return apperr.Unauthorized("authentication required")
	}
	if p.IsAdmin() || (p.HasRole(auth.RoleDoctor) && p.UserID == a.DoctorID) {
		return nil
	}
	if p.UserID != a.PatientID {
		return apperr.Forbidden("not allowed to modify this appointment")
	}
	for col, v := range set {
		switch {
		case col == "reason":
		case col == "status" && v == StatusCancelled:
		default:
			return apperr.Forbidden("patients may only cancel an appointment or edit its reason")
		}
	}
	return nil
}

// Patch applies allow-listed changes and status transitions. Moving an
// active appointment to another time swaps the slots it holds, and leaving
// the active states gives the slot back.
func (s *Service) Patch(ctx context.Context, id uuid.UUID, input map[string]interface{}, p *auth.Principal) (*Appointment, error) {
	set, err := appointmentColumns.Resolve(input)
	if err != nil {
		return nil, apperr.Invalid("%v", err)
	}
	if raw, ok := set["status"]; ok {
		st := NormalizeStatus(raw.(string))
		if !validStatuses[st] {
			return nil, apperr.Invalid("invalid appointment status: %s", raw)
		}
		set["status"] = st
	}
	if ts, ok := set["time_slot"].(string); ok && ts == "" {
		return nil, apperr.Invalid("time_slot must not be empty")
	}

	var before *Appointment
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		a, err := s.appointments.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := authorizeChange(p, a, set); err != nil {
			return err
		}
		before = a

		if transitions[a.Status] == nil {
			return apperr.Conflict("appointment is %s and can no longer change", a.Status)
		}
		newStatus := a.Status
		if st, ok := set["status"].(string); ok && st != a.Status {
			if !canTransition(a.Status, st) {
				return apperr.Conflict("cannot change appointment from %s to %s", a.Status, st)
			}
			newStatus = st
		}

		newDate, newTime := a.Date.Time, a.TimeSlot
		if d, ok := set["appointment_date"].(time.Time); ok {
			newDate = d
		}
		if t, ok := set["time_slot"].(string); ok {
			newTime = t
		}
		moved := !newDate.Equal(a.Date.Time) || newTime != a.TimeSlot

		if active(a.Status) && (moved || !active(newStatus)) {
			if err := s.slots.Release(ctx, a.DoctorID, a.Date.Time, a.TimeSlot); err != nil {
				return err
			}
		}
		if active(newStatus) && moved {
			if err := s.reserveIfDefined(ctx, a.DoctorID, newDate, newTime); err != nil {
				return err
			}
		}
		return s.appointments.Patch(ctx, id, set)
	})
	if err != nil {
		return nil, err
	}

	updated, err := s.appointments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if updated.Status != before.Status {
		s.logger.Info().
			Str("appointment_id", id.String()).
			Str("from", before.Status).
			Str("to", updated.Status).
			Msg("appointment status changed")
		switch updated.Status {
		case StatusConfirmed:
			s.notify(ctx, notification.AppointmentConfirmed, updated)
		case StatusCancelled:
			s.notify(ctx, notification.AppointmentCancelled, updated)
		}
	}
	return updated, nil
}

// Update replaces the mutable fields of an appointment.
func (s *Service) Update(ctx context.Context, id uuid.UUID, u AppointmentUpdate, p *auth.Principal) (*Appointment, error) {
	if u.AppointmentDate.IsZero() {
		return nil, apperr.Invalid("appointment_date is required")
	}
	return s.Patch(ctx, id, u.fields(), p)
}

// Delete removes the appointment and frees its slot if it held one.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.tx.WithinTx(ctx, func(ctx context.Context) error {
		a, err := s.appointments.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if active(a.Status) {
			if err := s.slots.Release(ctx, a.DoctorID, a.Date.Time, a.TimeSlot); err != nil {
				return err
			}
		}
		return s.appointments.Delete(ctx, id)
	})
}

// notify emails the patient about a. Failures are logged and never undo
// the change that triggered them.
func (s *Service) notify(ctx context.Context, templateID string, a *Appointment) {
	if s.notifier == nil {
		return
	}
	log := s.logger.With().Str("appointment_id", a.ID.String()).Str("template", templateID).Logger()

	patient, err := s.dir.GetPatient(ctx, a.PatientID)
	if err != nil {
		log.Error().Err(err).Msg("notification skipped: patient lookup failed")
		return
	}
	doctorName := ""
	if d, err := s.dir.GetDoctor(ctx, a.DoctorID); err == nil {
		doctorName = d.Username
	}

	err = s.notifier.Send(ctx, templateID, patient.Email, map[string]string{
		"patient_name": patient.Username,
		"doctor_name":  doctorName,
		"date":         a.Date.String(),
		"time":         a.TimeSlot,
	})
	if err != nil {
		log.Error().Err(err).Msg("appointment email failed")
	}
}
