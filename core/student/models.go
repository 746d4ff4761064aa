package student

import (
	"fmt"

	"github.com/volatiletech/null/v8"

	"github.com/rahmanfaisal0414/backend-bimbel/core"
)

type Student struct {
	ID            int         `json:"id"`
	UserID        int         `json:"user_id"`
	StudentCode   string      `json:"student_code"`
	FullName      string      `json:"full_name"`
	Phone         null.String `json:"phone"`
	Address       null.String `json:"address"`
	Gender        null.String `json:"gender"`
	Birthdate     null.Time   `json:"birthdate"`
	ParentContact null.String `json:"parent_contact"`
}

// CodeFor formats the display code assigned to a student row.
func CodeFor(id int) string { return fmt.Sprintf("S%03d", id) }

// Info is a Student joined with account state and current class.
type Info struct {
	Student
	Email     string      `json:"email"`
	IsActive  bool        `json:"is_active"`
	ClassID   null.Int    `json:"class_id"`
	ClassName null.String `json:"class_name"`
}

// Enrollment is one class-membership row; the latest row is the current class,
// older rows are kept as history.
type Enrollment struct {
	ID        int    `json:"id"`
	ClassID   int    `json:"class_id"`
	ClassName string `json:"class_name"`
}

// QueryFilter narrows the admin student listing.
type QueryFilter struct {
	Search  string `query:"search"`
	ClassID int    `query:"class_id"`
	Page    int    `query:"page"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	if qf.Page < 1 {
		qf.Page = 1
	}
}

// UpdateStudent defines what an admin may modify on a student profile.
type UpdateStudent struct {
	FullName      string `json:"full_name"`
	Phone         string `json:"phone"`
	Address       string `json:"address"`
	Gender        string `json:"gender" validate:"omitempty,oneof=male female"`
	Birthdate     string `json:"birthdate" validate:"omitempty,datetime=2006-01-02"`
	ParentContact string `json:"parent_contact"`
	ClassID       int    `json:"class_id"`
}

func (us *UpdateStudent) Validate() error {
	us.FullName = core.CleanString(us.FullName)
	return core.Validate.Struct(us)
}

// PerformanceRow is a graded submission of one student, used by the tutor
// performance views.
type PerformanceRow struct {
	AssignmentID    int         `json:"assignment_id"`
	AssignmentTitle string      `json:"assignment_title"`
	Grade           null.Int    `json:"grade"`
	Feedback        null.String `json:"feedback"`
	SubmittedAt     null.Time   `json:"submitted_at"`
	DueDate         null.Time   `json:"due_date"`
}

func (pr PerformanceRow) Late() bool {
	return pr.SubmittedAt.Valid && pr.DueDate.Valid && pr.SubmittedAt.Time.After(pr.DueDate.Time)
}
