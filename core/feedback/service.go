package feedback

import (
	"context"
	"errors"
	"time"

	"github.com/volatiletech/null/v8"
)

var ErrNotFound = errors.New("feedback not found")

type (
	Repository interface {
		CreateFeedback(ctx context.Context, fb Feedback) (Feedback, error)
		GetFeedbackByID(ctx context.Context, id int) (Feedback, error)
		GetFeedbackInfo(ctx context.Context, id int) (Info, error)
		QueryByStudent(ctx context.Context, studentID int) ([]Info, error)
		// QueryApprovedByTutor is the tutor inbox: approved student feedback only.
		QueryApprovedByTutor(ctx context.Context, tutorID int) ([]Info, error)
		QueryPending(ctx context.Context) ([]Info, error)
		SetFeedbackApproved(ctx context.Context, id int, approved bool) error
		CountApprovedByTutorSince(ctx context.Context, tutorID int, since time.Time) (int, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Give records a student's feedback. Approval follows the moderation mode:
// auto ⇒ visible immediately, manual ⇒ waits for an admin.
func (svc *Service) Give(ctx context.Context, studentID int, nf NewFeedback, autoApprove bool) (Feedback, error) {
	fb := Feedback{
		StudentID:  null.IntFrom(studentID),
		Rating:     nf.Rating,
		IsApproved: autoApprove,
		CreatedAt:  time.Now().UTC(),
	}
	if nf.TutorID > 0 {
		fb.TutorID = null.IntFrom(nf.TutorID)
	}
	if nf.Comment != "" {
		fb.Comment.SetValid(nf.Comment)
	}
	return svc.repo.CreateFeedback(ctx, fb)
}

func (svc *Service) GetByID(ctx context.Context, id int) (Feedback, error) {
	return svc.repo.GetFeedbackByID(ctx, id)
}

func (svc *Service) GetInfo(ctx context.Context, id int) (Info, error) {
	return svc.repo.GetFeedbackInfo(ctx, id)
}

func (svc *Service) QueryByStudent(ctx context.Context, studentID int) ([]Info, error) {
	return svc.repo.QueryByStudent(ctx, studentID)
}

func (svc *Service) QueryApprovedByTutor(ctx context.Context, tutorID int) ([]Info, error) {
	return svc.repo.QueryApprovedByTutor(ctx, tutorID)
}

func (svc *Service) QueryPending(ctx context.Context) ([]Info, error) {
	return svc.repo.QueryPending(ctx)
}

// Moderate resolves a pending feedback either way.
func (svc *Service) Moderate(ctx context.Context, id int, approve bool) error {
	if _, err := svc.repo.GetFeedbackByID(ctx, id); err != nil {
		return err
	}
	return svc.repo.SetFeedbackApproved(ctx, id, approve)
}

func (svc *Service) CountApprovedByTutorSince(ctx context.Context, tutorID int, since time.Time) (int, error) {
	return svc.repo.CountApprovedByTutorSince(ctx, tutorID, since)
}
