package assignment

import (
	"context"
	"errors"
	"time"

	"github.com/volatiletech/null/v8"
)

var (
	// errors
	ErrNotFound           = errors.New("assignment not found")
	ErrSubmissionNotFound = errors.New("submission not found")
	ErrHasSubmissions     = errors.New("assignment already has submissions and cannot be deleted")
)

type (
	Repository interface {
		CreateAssignment(ctx context.Context, a Assignment) (Assignment, error)
		GetAssignmentByID(ctx context.Context, id int) (Assignment, error)
		GetAssignmentInfo(ctx context.Context, id int) (Info, error)
		QueryAssignmentsByTutor(ctx context.Context, tutorID int) ([]Info, error)
		QueryAssignmentsByClass(ctx context.Context, classID int) ([]Info, error)
		UpdateAssignment(ctx context.Context, a Assignment) (Assignment, error)
		// DeleteAssignment fails with ErrHasSubmissions when answers exist.
		DeleteAssignment(ctx context.Context, id int) error
		LinkSchedule(ctx context.Context, scheduleID, assignmentID int) error
		QueryByScheduleID(ctx context.Context, scheduleID int) ([]Assignment, error)

		// UpsertSubmission keeps one row per (assignment, student).
		UpsertSubmission(ctx context.Context, sub Submission) (Submission, error)
		GetSubmission(ctx context.Context, assignmentID, studentID int) (Submission, error)
		QuerySubmissions(ctx context.Context, assignmentID int) ([]SubmissionInfo, error)
		// GradeSubmission sets grade+feedback for one (assignment, student).
		GradeSubmission(ctx context.Context, assignmentID, studentID, grade int, feedback string) error
		CountUngradedByTutor(ctx context.Context, tutorID int) (int, error)
		SearchAssignments(ctx context.Context, tutorID int, keyword string) ([]Info, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) Create(ctx context.Context, tutorID int, na NewAssignment, fileURL string) (Assignment, error) {
	a := Assignment{
		ClassID:   na.ClassID,
		TutorID:   tutorID,
		Title:     na.Title,
		CreatedAt: time.Now().UTC(),
	}
	if na.SubjectID > 0 {
		a.SubjectID = null.IntFrom(na.SubjectID)
	}
	if na.Description != "" {
		a.Description.SetValid(na.Description)
	}
	if fileURL != "" {
		a.FileURL.SetValid(fileURL)
	}
	if na.DueDate != "" {
		due, err := time.Parse("2006-01-02T15:04", na.DueDate)
		if err != nil {
			return Assignment{}, err
		}
		a.DueDate = null.TimeFrom(due)
	}
	return svc.repo.CreateAssignment(ctx, a)
}

func (svc *Service) GetByID(ctx context.Context, id int) (Assignment, error) {
	return svc.repo.GetAssignmentByID(ctx, id)
}

func (svc *Service) GetInfo(ctx context.Context, id int) (Info, error) {
	return svc.repo.GetAssignmentInfo(ctx, id)
}

func (svc *Service) QueryByTutor(ctx context.Context, tutorID int) ([]Info, error) {
	return svc.repo.QueryAssignmentsByTutor(ctx, tutorID)
}

func (svc *Service) QueryByClass(ctx context.Context, classID int) ([]Info, error) {
	return svc.repo.QueryAssignmentsByClass(ctx, classID)
}

func (svc *Service) Update(ctx context.Context, a Assignment, ua UpdateAssignment) (Assignment, error) {
	if ua.Title != "" {
		a.Title = ua.Title
	}
	if ua.Description != "" {
		a.Description.SetValid(ua.Description)
	}
	if ua.DueDate != "" {
		due, err := time.Parse("2006-01-02T15:04", ua.DueDate)
		if err != nil {
			return Assignment{}, err
		}
		a.DueDate = null.TimeFrom(due)
	}
	return svc.repo.UpdateAssignment(ctx, a)
}

func (svc *Service) Delete(ctx context.Context, id int) error {
	return svc.repo.DeleteAssignment(ctx, id)
}

func (svc *Service) LinkSchedule(ctx context.Context, scheduleID, assignmentID int) error {
	return svc.repo.LinkSchedule(ctx, scheduleID, assignmentID)
}

func (svc *Service) QueryBySchedule(ctx context.Context, scheduleID int) ([]Assignment, error) {
	return svc.repo.QueryByScheduleID(ctx, scheduleID)
}

// Submit upserts a student's answer; resubmission replaces the file and
// timestamp but keeps the single row.
func (svc *Service) Submit(ctx context.Context, assignmentID, studentID int, fileURL string) (Submission, error) {
	if _, err := svc.repo.GetAssignmentByID(ctx, assignmentID); err != nil {
		return Submission{}, err
	}
	return svc.repo.UpsertSubmission(ctx, Submission{
		AssignmentID: assignmentID,
		StudentID:    studentID,
		FileURL:      fileURL,
		SubmittedAt:  time.Now().UTC(),
	})
}

func (svc *Service) GetSubmission(ctx context.Context, assignmentID, studentID int) (Submission, error) {
	return svc.repo.GetSubmission(ctx, assignmentID, studentID)
}

func (svc *Service) QuerySubmissions(ctx context.Context, assignmentID int) ([]SubmissionInfo, error) {
	return svc.repo.QuerySubmissions(ctx, assignmentID)
}

func (svc *Service) Grade(ctx context.Context, assignmentID int, gs GradeSubmission) error {
	if _, err := svc.repo.GetSubmission(ctx, assignmentID, gs.StudentID); err != nil {
		return err
	}
	return svc.repo.GradeSubmission(ctx, assignmentID, gs.StudentID, gs.Grade, gs.Feedback)
}

func (svc *Service) CountUngradedByTutor(ctx context.Context, tutorID int) (int, error) {
	return svc.repo.CountUngradedByTutor(ctx, tutorID)
}

func (svc *Service) Search(ctx context.Context, tutorID int, keyword string) ([]Info, error) {
	return svc.repo.SearchAssignments(ctx, tutorID, keyword)
}
