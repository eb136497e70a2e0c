package billing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/docbook/docbook/internal/platform/apperr"
	"github.com/docbook/docbook/internal/platform/payment"
)

// -- Mock Repository --

type mockPaymentRepo struct {
	payments map[uuid.UUID]*Payment
}

func newMockPaymentRepo() *mockPaymentRepo {
	return &mockPaymentRepo{payments: make(map[uuid.UUID]*Payment)}
}

func (m *mockPaymentRepo) Create(_ context.Context, p *Payment) error {
	p.ID = uuid.New()
	p.CreatedAt = time.Now()
	p.UpdatedAt = time.Now()
	m.payments[p.ID] = p
	return nil
}

func (m *mockPaymentRepo) GetByID(_ context.Context, id uuid.UUID) (*Payment, error) {
	p, ok := m.payments[id]
	if !ok {
		return nil, apperr.NotFound("payment not found")
	}
	return p, nil
}

func (m *mockPaymentRepo) Update(_ context.Context, p *Payment) error {
	if _, ok := m.payments[p.ID]; !ok {
		return apperr.NotFound("payment not found")
	}
	m.payments[p.ID] = p
	return nil
}

func (m *mockPaymentRepo) Patch(_ context.Context, id uuid.UUID, set map[string]interface{}) error {
	p, ok := m.payments[id]
	if !ok {
		return apperr.NotFound("payment not found")
	}
	for col, v := range set {
		switch col {
		case "amount":
			p.Amount = v.(float64)
		case "payment_method":
			p.Method = v.(string)
		case "payment_status":
			p.Status = v.(string)
		}
	}
	return nil
}

func (m *mockPaymentRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := m.payments[id]; !ok {
		return apperr.NotFound("payment not found")
	}
	delete(m.payments, id)
	return nil
}

func (m *mockPaymentRepo) matches(p *Payment, filters map[string]string) bool {
	if v, ok := filters["doctor_id"]; ok && v != p.DoctorID.String() {
		return false
	}
	if v, ok := filters["patient_id"]; ok && v != p.PatientID.String() {
		return false
	}
	if v, ok := filters["payment_method"]; ok && v != p.Method {
		return false
	}
	if v, ok := filters["payment_status"]; ok && v != p.Status {
		return false
	}
	return true
}

func (m *mockPaymentRepo) List(_ context.Context, filters map[string]string, limit, offset int) ([]*Payment, int, error) {
	var result []*Payment
	for _, p := range m.payments {
		if m.matches(p, filters) {
			result = append(result, p)
		}
	}
	total := len(result)
	if offset >= len(result) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(result) {
		end = len(result)
	}
	return result[offset:end], total, nil
}

func (m *mockPaymentRepo) Summary(_ context.Context, filters map[string]string) (*Summary, error) {
	s := &Summary{}
	byMethod := map[string]*Bucket{}
	for _, p := range m.payments {
		if !m.matches(p, filters) {
			continue
		}
		s.Count++
		s.TotalAmount += p.Amount
		if p.Status == StatusCompleted {
			s.CompletedTotal += p.Amount
		}
		b, ok := byMethod[p.Method]
		if !ok {
			b = &Bucket{Key: p.Method}
			byMethod[p.Method] = b
		}
		b.Count++
		b.Amount += p.Amount
	}
	for _, b := range byMethod {
		s.ByMethod = append(s.ByMethod, *b)
	}
	return s, nil
}

// -- Fake Gateway --

type fakeGateway struct {
	fail bool
}

func (g *fakeGateway) CreateOrder(_ context.Context, amount float64, receipt string) (*payment.Order, error) {
	if g.fail {
		return nil, errors.New("gateway down")
	}
	return &payment.Order{ID: "order_1", Amount: payment.ToMinorUnits(amount), Currency: "INR", Receipt: receipt, KeyID: "rzp_test"}, nil
}

func (g *fakeGateway) VerifySignature(orderID, paymentID, signature string) bool {
	return signature == orderID+"|"+paymentID
}

func newTestService() (*Service, *mockPaymentRepo) {
	repo := newMockPaymentRepo()
	return NewService(repo, &fakeGateway{}), repo
}

func validInput() PaymentInput {
	return PaymentInput{PatientID: uuid.New(), DoctorID: uuid.New(), Amount: 500, Method: "cash"}
}

func TestService_Create_Defaults(t *testing.T) {
	svc, _ := newTestService()
	p, err := svc.Create(context.Background(), validInput())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Status != StatusCompleted {
		t.Errorf("expected default status Completed, got %s", p.Status)
	}
	if p.Method != MethodCash {
		t.Errorf("expected canonical method Cash, got %s", p.Method)
	}
}

func TestService_Create_Validation(t *testing.T) {
	svc, repo := newTestService()
	cases := map[string]func(*PaymentInput){
		"unknown method": func(in *PaymentInput) { in.Method = "Barter" },
		"unknown status": func(in *PaymentInput) { in.Status = "Lost" },
		"negative":       func(in *PaymentInput) { in.Amount = -1 },
		"no doctor":      func(in *PaymentInput) { in.DoctorID = uuid.Nil },
	}
	for name, mutate := range cases {
		in := validInput()
		mutate(&in)
		if _, err := svc.Create(context.Background(), in); !errors.Is(err, apperr.ErrInvalid) {
			t.Errorf("%s: expected invalid, got %v", name, err)
		}
	}
	if len(repo.payments) != 0 {
		t.Errorf("nothing should be stored, got %d", len(repo.payments))
	}
}

func TestService_Create_PayOnCounter(t *testing.T) {
	svc, _ := newTestService()
	in := validInput()
	in.Method = "pay on counter"
	in.Status = "pending"
	p, err := svc.Create(context.Background(), in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Method != MethodPayOnCounter || p.Status != StatusPending {
		t.Errorf("unexpected payment: %s %s", p.Method, p.Status)
	}
}

func TestService_Patch(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	p, _ := svc.Create(ctx, validInput())

	got, err := svc.Patch(ctx, p.ID, map[string]interface{}{"payment_status": "refunded"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Status != StatusRefunded {
		t.Errorf("expected Refunded, got %s", got.Status)
	}
	if _, err := svc.Patch(ctx, p.ID, map[string]interface{}{"patient_id": uuid.NewString()}); !errors.Is(err, apperr.ErrInvalid) {
		t.Errorf("expected invalid for non-updatable column, got %v", err)
	}
	if _, err := svc.Patch(ctx, uuid.New(), map[string]interface{}{"amount": 10.0}); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestService_Summary(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	for _, in := range []PaymentInput{
		{PatientID: uuid.New(), DoctorID: uuid.New(), Amount: 100, Method: MethodCash},
		{PatientID: uuid.New(), DoctorID: uuid.New(), Amount: 250, Method: MethodOnline},
		{PatientID: uuid.New(), DoctorID: uuid.New(), Amount: 75, Method: MethodCOD, Status: StatusFailed},
	} {
		if _, err := svc.Create(ctx, in); err != nil {
			t.Fatal(err)
		}
	}
	s, err := svc.Summary(ctx, map[string]string{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Count != 3 || s.CompletedTotal != 350 || s.TotalAmount != 425 {
		t.Errorf("unexpected summary: %+v", s)
	}
	if _, err := svc.Summary(ctx, map[string]string{"payment_method": "gold"}); !errors.Is(err, apperr.ErrInvalid) {
		t.Errorf("expected invalid filter, got %v", err)
	}
}

func TestService_Checkout(t *testing.T) {
	svc, _ := newTestService()
	order, err := svc.Checkout(context.Background(), CheckoutInput{Amount: 499.5})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if order.Amount != 49950 || order.Receipt == "" {
		t.Errorf("unexpected order: %+v", order)
	}
}

func TestService_GatewayDisabled(t *testing.T) {
	svc := NewService(newMockPaymentRepo(), nil)
	if _, err := svc.Checkout(context.Background(), CheckoutInput{Amount: 10}); !errors.Is(err, apperr.ErrUnavailable) {
		t.Errorf("expected unavailable, got %v", err)
	}
	if _, err := svc.Verify(VerifyInput{OrderID: "o", PaymentID: "p", Signature: "s"}); !errors.Is(err, apperr.ErrUnavailable) {
		t.Errorf("expected unavailable, got %v", err)
	}
}

func TestService_Verify(t *testing.T) {
	svc, _ := newTestService()
	txID, err := svc.Verify(VerifyInput{OrderID: "order_1", PaymentID: "pay_1", Signature: "order_1|pay_1"})
	if err != nil || txID != "pay_1" {
		t.Fatalf("expected pay_1, got %q %v", txID, err)
	}
	if _, err := svc.Verify(VerifyInput{OrderID: "order_1", PaymentID: "pay_1", Signature: "forged"}); !errors.Is(err, apperr.ErrInvalid) {
		t.Errorf("expected invalid signature, got %v", err)
	}
}
