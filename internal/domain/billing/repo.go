package billing

import (
	"context"

	"github.com/google/uuid"
)

type PaymentRepository interface {
	Create(ctx context.Context, p *Payment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Payment, error)
	Update(ctx context.Context, p *Payment) error
	Patch(ctx context.Context, id uuid.UUID, set map[string]interface{}) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, filters map[string]string, limit, offset int) ([]*Payment, int, error)
	Summary(ctx context.Context, filters map[string]string) (*Summary, error)
}
