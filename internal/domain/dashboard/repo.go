package dashboard

import (
	"context"

	"github.com/google/uuid"
)

// StatsRepository runs the read-only aggregate queries behind the dashboard.
type StatsRepository interface {
	Counts(ctx context.Context) (Counts, error)
	Revenue(ctx context.Context) (float64, []MethodRevenue, error)
	TopDoctor(ctx context.Context) (*DoctorStat, error)
	TopRatedDoctor(ctx context.Context) (*DoctorStat, error)
	RecentAppointments(ctx context.Context, limit int) ([]RecentAppointment, error)
	AppointmentsByStatus(ctx context.Context) (map[string]int, error)
	DoctorPayments(ctx context.Context, doctorID *uuid.UUID) ([]DoctorPayment, error)
}
