package review

import (
	"context"
	"math"

	"github.com/google/uuid"

	"github.com/docbook/docbook/internal/platform/apperr"
)

// VisitChecker answers whether a patient was seen by a doctor.
type VisitChecker interface {
	HasVisit(ctx context.Context, patientID, doctorID uuid.UUID) (bool, error)
}

type Service struct {
	reviews ReviewRepository
	visits  VisitChecker
}

func NewService(reviews ReviewRepository, visits VisitChecker) *Service {
	return &Service{reviews: reviews, visits: visits}
}

// Create stores a Pending review. The patient must have a Confirmed or
// Completed appointment with the doctor.
func (s *Service) Create(ctx context.Context, in ReviewInput) (*Review, error) {
	if in.Rating < 1 || in.Rating > 5 {
		return nil, apperr.Invalid("rating must be between 1 and 5")
	}
	ok, err := s.visits.HasVisit(ctx, in.PatientID, in.DoctorID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.Conflict("reviews need a confirmed or completed appointment with this doctor")
	}
	rv := &Review{
		PatientID: in.PatientID,
		DoctorID:  in.DoctorID,
		Rating:    in.Rating,
		Comment:   in.Comment,
		Status:    StatusPending,
	}
	if err := s.reviews.Create(ctx, rv); err != nil {
		return nil, err
	}
	return rv, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Review, error) {
	return s.reviews.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, filters map[string]string, limit, offset int) ([]*Review, int, error) {
	if st, ok := filters["status"]; ok && st != "" {
		status, valid := normalizeStatus(st)
		if !valid {
			return nil, 0, apperr.Invalid("invalid review status: %s", st)
		}
		filters["status"] = status
	}
	return s.reviews.List(ctx, filters, limit, offset)
}

// Patch edits a review. Only moderators may pass canModerate and change
// status; any status may be set again, including re-approval.
func (s *Service) Patch(ctx context.Context, id uuid.UUID, input map[string]interface{}, canModerate bool) (*Review, error) {
	set, err := reviewColumns.Resolve(input)
	if err != nil {
		return nil, apperr.Invalid("%v", err)
	}
	if raw, ok := set["status"]; ok {
		if !canModerate {
			return nil, apperr.Forbidden("only an administrator can moderate reviews")
		}
		status, valid := normalizeStatus(raw.(string))
		if !valid {
			return nil, apperr.Invalid("invalid review status: %s", raw)
		}
		set["status"] = status
	}
	if r, ok := set["rating"].(int64); ok && (r < 1 || r > 5) {
		return nil, apperr.Invalid("rating must be between 1 and 5")
	}
	if err := s.reviews.Patch(ctx, id, set); err != nil {
		return nil, err
	}
	return s.reviews.GetByID(ctx, id)
}

func (s *Service) SetStatus(ctx context.Context, id uuid.UUID, status string) (*Review, error) {
	return s.Patch(ctx, id, map[string]interface{}{"status": status}, true)
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.reviews.Delete(ctx, id)
}

// DoctorRating averages Approved reviews only, rounded to two decimals.
func (s *Service) DoctorRating(ctx context.Context, doctorID uuid.UUID) (*Rating, error) {
	r, err := s.reviews.Rating(ctx, doctorID)
	if err != nil {
		return nil, err
	}
	r.Average = math.Round(r.Average*100) / 100
	return r, nil
}
