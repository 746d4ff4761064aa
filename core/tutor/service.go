package tutor

import (
	"context"
	"errors"
)

var (
	// errors
	ErrNotFound             = errors.New("tutor not found")
	ErrAvailabilityNotFound = errors.New("availability slot not found")
	ErrAvailabilityOverlap  = errors.New("availability slot overlaps an existing one")
)

type (
	Repository interface {
		GetTutorByID(ctx context.Context, id int) (Tutor, error)
		GetTutorByUserID(ctx context.Context, userID int) (Tutor, error)
		GetTutorInfo(ctx context.Context, id int) (Info, error)
		// FilterTutors applies Search on name and Subject on expertise.
		FilterTutors(ctx context.Context, filter QueryFilter) ([]Info, error)
		UpdateTutor(ctx context.Context, tut Tutor) (Tutor, error)
		// QueryRatingSignals gathers the raw counters behind a tutor rating.
		QueryRatingSignals(ctx context.Context, tutorID int) (RatingSignals, error)
		CountTutors(ctx context.Context) (int, error)

		QueryAvailability(ctx context.Context, tutorID int) ([]Availability, error)
		CreateAvailability(ctx context.Context, av Availability) (Availability, error)
		DeleteAvailability(ctx context.Context, tutorID, id int) error
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) GetByID(ctx context.Context, id int) (Tutor, error) {
	return svc.repo.GetTutorByID(ctx, id)
}

func (svc *Service) GetByUserID(ctx context.Context, userID int) (Tutor, error) {
	return svc.repo.GetTutorByUserID(ctx, userID)
}

func (svc *Service) GetInfo(ctx context.Context, id int) (Info, error) {
	return svc.repo.GetTutorInfo(ctx, id)
}

func (svc *Service) Filter(ctx context.Context, filter QueryFilter) ([]Info, error) {
	filter.Clean()
	return svc.repo.FilterTutors(ctx, filter)
}

func (svc *Service) Update(ctx context.Context, tut Tutor) (Tutor, error) {
	return svc.repo.UpdateTutor(ctx, tut)
}

// Rating derives the blended 0-5 rating of a tutor at read time.
func (svc *Service) Rating(ctx context.Context, tutorID int) (Rating, error) {
	sig, err := svc.repo.QueryRatingSignals(ctx, tutorID)
	if err != nil {
		return Rating{}, err
	}
	return ComputeRating(sig), nil
}

func (svc *Service) Count(ctx context.Context) (int, error) {
	return svc.repo.CountTutors(ctx)
}

func (svc *Service) Availability(ctx context.Context, tutorID int) ([]Availability, error) {
	return svc.repo.QueryAvailability(ctx, tutorID)
}

func (svc *Service) AddAvailability(ctx context.Context, tutorID int, na NewAvailability) (Availability, error) {
	existing, err := svc.repo.QueryAvailability(ctx, tutorID)
	if err != nil {
		return Availability{}, err
	}
	for _, av := range existing {
		if av.DayOfWeek == na.DayOfWeek && na.StartTime < av.EndTime && av.StartTime < na.EndTime {
			return Availability{}, ErrAvailabilityOverlap
		}
	}
	return svc.repo.CreateAvailability(ctx, Availability{
		TutorID:   tutorID,
		DayOfWeek: na.DayOfWeek,
		StartTime: na.StartTime,
		EndTime:   na.EndTime,
	})
}

func (svc *Service) RemoveAvailability(ctx context.Context, tutorID, id int) error {
	return svc.repo.DeleteAvailability(ctx, tutorID, id)
}
