package class

import (
	"context"
	"errors"
)

var (
	// errors
	ErrNotFound        = errors.New("class not found")
	ErrClassFull       = errors.New("class is already at full capacity")
	ErrAlreadyEnrolled = errors.New("student is already in this class")
)

type (
	Repository interface {
		CreateClass(ctx context.Context, cls Class) (Class, error)
		GetClassByID(ctx context.Context, id int) (Class, error)
		// QueryClasses returns non-deleted classes.
		QueryClasses(ctx context.Context) ([]Class, error)
		// TransferStudent moves a student to a new class: inserts the
		// enrollment row and adjusts both class counters in one transaction.
		// Fails with ErrClassFull / ErrAlreadyEnrolled.
		TransferStudent(ctx context.Context, studentID, newClassID int) error
		CountClasses(ctx context.Context) (int, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) Create(ctx context.Context, nc NewClass) (Class, error) {
	cls := Class{
		ClassName: nc.ClassName,
		Capacity:  30,
	}
	if nc.Level != "" {
		cls.Level.SetValid(nc.Level)
	}
	if nc.Capacity > 0 {
		cls.Capacity = nc.Capacity
	}
	return svc.repo.CreateClass(ctx, cls)
}

func (svc *Service) GetByID(ctx context.Context, id int) (Class, error) {
	return svc.repo.GetClassByID(ctx, id)
}

func (svc *Service) QueryAll(ctx context.Context) ([]Class, error) {
	return svc.repo.QueryClasses(ctx)
}

func (svc *Service) TransferStudent(ctx context.Context, studentID, newClassID int) error {
	return svc.repo.TransferStudent(ctx, studentID, newClassID)
}

func (svc *Service) Count(ctx context.Context) (int, error) {
	return svc.repo.CountClasses(ctx)
}
