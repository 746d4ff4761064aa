package assignment

import (
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/rahmanfaisal0414/backend-bimbel/core"
)

type Assignment struct {
	ID          int         `json:"id"`
	ClassID     int         `json:"class_id"`
	SubjectID   null.Int    `json:"subject_id"`
	TutorID     int         `json:"tutor_id"`
	Title       string      `json:"title"`
	Description null.String `json:"description"`
	DueDate     null.Time   `json:"due_date"`
	FileURL     null.String `json:"file_url"`
	CreatedAt   time.Time   `json:"created_at"`
}

// Submission is one student's answer to an assignment; one row per
// (assignment, student), upserted on resubmission.
type Submission struct {
	ID           int         `json:"id"`
	AssignmentID int         `json:"assignment_id"`
	StudentID    int         `json:"student_id"`
	FileURL      string      `json:"file_url"`
	Grade        null.Int    `json:"grade"`
	Feedback     null.String `json:"feedback"`
	SubmittedAt  time.Time   `json:"submitted_at"`
}

// Info is an Assignment joined with context and submission counters.
type Info struct {
	Assignment
	ClassName      string      `json:"class_name"`
	SubjectName    null.String `json:"subject_name"`
	SubmittedCount int         `json:"submitted_count"`
	StudentCount   int         `json:"student_count"`
}

// SubmissionInfo is a Submission joined with the student identity.
type SubmissionInfo struct {
	Submission
	StudentName string `json:"student_name"`
	StudentCode string `json:"student_code"`
}

// NewAssignment contains what a tutor provides to create an assignment; the
// optional file travels as multipart form data.
type NewAssignment struct {
	ClassID     int    `json:"class_id" validate:"required"`
	SubjectID   int    `json:"subject_id"`
	Title       string `json:"title" validate:"required"`
	Description string `json:"description"`
	DueDate     string `json:"due_date" validate:"omitempty,datetime=2006-01-02T15:04"`
}

func (na *NewAssignment) Validate() error {
	na.Title = core.CleanString(na.Title)
	na.Description = core.CleanString(na.Description)
	return core.Validate.Struct(na)
}

// UpdateAssignment defines what a tutor may change on an existing assignment.
type UpdateAssignment struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	DueDate     string `json:"due_date" validate:"omitempty,datetime=2006-01-02T15:04"`
}

func (ua *UpdateAssignment) Validate() error {
	ua.Title = core.CleanString(ua.Title)
	ua.Description = core.CleanString(ua.Description)
	return core.Validate.Struct(ua)
}

// GradeSubmission carries a tutor's grade + feedback for one student.
type GradeSubmission struct {
	StudentID int    `json:"student_id" validate:"required"`
	Grade     int    `json:"grade" validate:"min=0,max=100"`
	Feedback  string `json:"feedback"`
}

func (gs *GradeSubmission) Validate() error {
	gs.Feedback = core.CleanString(gs.Feedback)
	return core.Validate.Struct(gs)
}
