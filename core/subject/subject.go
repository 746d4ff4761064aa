package subject

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("subject not found")

type Subject struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type (
	Repository interface {
		QuerySubjects(ctx context.Context) ([]Subject, error)
		GetSubjectByID(ctx context.Context, id int) (Subject, error)
		// EnsureSubjects returns the subjects for the given names, creating
		// the missing ones. Used when mapping tutor expertise.
		EnsureSubjects(ctx context.Context, names []string) ([]Subject, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) QueryAll(ctx context.Context) ([]Subject, error) {
	return svc.repo.QuerySubjects(ctx)
}

func (svc *Service) GetByID(ctx context.Context, id int) (Subject, error) {
	return svc.repo.GetSubjectByID(ctx, id)
}

func (svc *Service) Ensure(ctx context.Context, names []string) ([]Subject, error) {
	return svc.repo.EnsureSubjects(ctx, names)
}
