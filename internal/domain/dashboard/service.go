package dashboard

import (
	"context"
	"fmt"
	"math"

	"github.com/google/uuid"
)

const recentLimit = 10

type Service struct {
	stats StatsRepository
}

func NewService(stats StatsRepository) *Service {
	return &Service{stats: stats}
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }

// Stats assembles the admin overview.
func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	var out Stats
	var err error

	if out.Counts, err = s.stats.Counts(ctx); err != nil {
		return nil, fmt.Errorf("counts: %w", err)
	}
	if out.TotalRevenue, out.RevenueByMethod, err = s.stats.Revenue(ctx); err != nil {
		return nil, fmt.Errorf("revenue: %w", err)
	}
	if out.TopDoctor, err = s.stats.TopDoctor(ctx); err != nil {
		return nil, fmt.Errorf("top doctor: %w", err)
	}
	if out.TopRatedDoctor, err = s.stats.TopRatedDoctor(ctx); err != nil {
		return nil, fmt.Errorf("top rated doctor: %w", err)
	}
	if out.RecentAppointments, err = s.stats.RecentAppointments(ctx, recentLimit); err != nil {
		return nil, fmt.Errorf("recent appointments: %w", err)
	}
	if out.AppointmentsByStatus, err = s.stats.AppointmentsByStatus(ctx); err != nil {
		return nil, fmt.Errorf("appointments by status: %w", err)
	}

	out.TotalRevenue = round2(out.TotalRevenue)
	if out.RevenueByMethod == nil {
		out.RevenueByMethod = []MethodRevenue{}
	}
	if out.RecentAppointments == nil {
		out.RecentAppointments = []RecentAppointment{}
	}
	if out.TopRatedDoctor != nil {
		out.TopRatedDoctor.AverageRating = round2(out.TopRatedDoctor.AverageRating)
	}
	return &out, nil
}

func (s *Service) DoctorPayments(ctx context.Context, doctorID *uuid.UUID) ([]DoctorPayment, error) {
	items, err := s.stats.DoctorPayments(ctx, doctorID)
	if err != nil {
		return nil, fmt.Errorf("doctor payments: %w", err)
	}
	if items == nil {
		items = []DoctorPayment{}
	}
	return items, nil
}
