package billing

import (
	"context"

	"github.com/google/uuid"

	"github.com/docbook/docbook/internal/platform/apperr"
	"github.com/docbook/docbook/internal/platform/payment"
)

type Service struct {
	payments PaymentRepository
	gateway  payment.Gateway
}

// NewService creates the payment service. gateway may be nil, which
// disables online checkout.
func NewService(payments PaymentRepository, gateway payment.Gateway) *Service {
	return &Service{payments: payments, gateway: gateway}
}

// normalize applies defaults and rejects values outside the enums.
func normalize(p *Payment) error {
	if p.PatientID == uuid.Nil || p.DoctorID == uuid.Nil {
		return apperr.Invalid("patient_id and doctor_id are required")
	}
	if p.Amount < 0 {
		return apperr.Invalid("amount must not be negative")
	}
	method, ok := canonical(p.Method, paymentMethods)
	if !ok {
		return apperr.Invalid("invalid payment_method: %q", p.Method)
	}
	p.Method = method
	if p.Status == "" {
		p.Status = StatusCompleted
	}
	status, ok := canonical(p.Status, paymentStatuses)
	if !ok {
		return apperr.Invalid("invalid payment_status: %q", p.Status)
	}
	p.Status = status
	return nil
}

// Record validates and stores p. It joins the caller's transaction when
// ctx carries one.
func (s *Service) Record(ctx context.Context, p *Payment) error {
	if err := normalize(p); err != nil {
		return err
	}
	return s.payments.Create(ctx, p)
}

func (s *Service) Create(ctx context.Context, in PaymentInput) (*Payment, error) {
	p := in.Payment()
	if err := s.Record(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Payment, error) {
	return s.payments.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, filters map[string]string, limit, offset int) ([]*Payment, int, error) {
	if err := normalizeFilters(filters); err != nil {
		return nil, 0, err
	}
	return s.payments.List(ctx, filters, limit, offset)
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, in PaymentInput) (*Payment, error) {
	existing, err := s.payments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	p := in.Payment()
	p.ID, p.CreatedAt = existing.ID, existing.CreatedAt
	if err := normalize(p); err != nil {
		return nil, err
	}
	if err := s.payments.Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) Patch(ctx context.Context, id uuid.UUID, input map[string]interface{}) (*Payment, error) {
	set, err := paymentColumns.Resolve(input)
	if err != nil {
		return nil, apperr.Invalid("%v", err)
	}
	if raw, ok := set["payment_method"]; ok {
		method, ok := canonical(raw.(string), paymentMethods)
		if !ok {
			return nil, apperr.Invalid("invalid payment_method: %q", raw)
		}
		set["payment_method"] = method
	}
	if raw, ok := set["payment_status"]; ok {
		status, ok := canonical(raw.(string), paymentStatuses)
		if !ok {
			return nil, apperr.Invalid("invalid payment_status: %q", raw)
		}
		set["payment_status"] = status
	}
	if amount, ok := set["amount"].(float64); ok && amount < 0 {
		return nil, apperr.Invalid("amount must not be negative")
	}
	if err := s.payments.Patch(ctx, id, set); err != nil {
		return nil, err
	}
	return s.payments.GetByID(ctx, id)
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.payments.Delete(ctx, id)
}

func (s *Service) Summary(ctx context.Context, filters map[string]string) (*Summary, error) {
	if err := normalizeFilters(filters); err != nil {
		return nil, err
	}
	return s.payments.Summary(ctx, filters)
}

func normalizeFilters(filters map[string]string) error {
	if m, ok := filters["payment_method"]; ok && m != "" {
		method, ok := canonical(m, paymentMethods)
		if !ok {
			return apperr.Invalid("invalid payment_method: %q", m)
		}
		filters["payment_method"] = method
	}
	if st, ok := filters["payment_status"]; ok && st != "" {
		status, ok := canonical(st, paymentStatuses)
		if !ok {
			return apperr.Invalid("invalid payment_status: %q", st)
		}
		filters["payment_status"] = status
	}
	return nil
}

// Checkout opens a gateway order the client completes in the browser.
func (s *Service) Checkout(ctx context.Context, in CheckoutInput) (*payment.Order, error) {
	if s.gateway == nil {
		return nil, apperr.Unavailable("online payments are not configured")
	}
	if in.Amount <= 0 {
		return nil, apperr.Invalid("amount must be positive")
	}
	receipt := in.Receipt
	if receipt == "" {
		receipt = "rcpt_" + uuid.NewString()[:8]
	}
	return s.gateway.CreateOrder(ctx, in.Amount, receipt)
}

// Verify checks the gateway signature and returns the transaction id the
// client passes on when booking.
func (s *Service) Verify(in VerifyInput) (string, error) {
	if s.gateway == nil {
		return "", apperr.Unavailable("online payments are not configured")
	}
	if !s.gateway.VerifySignature(in.OrderID, in.PaymentID, in.Signature) {
		return "", apperr.Invalid("payment signature mismatch")
	}
	return in.PaymentID, nil
}
