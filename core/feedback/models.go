package feedback

import (
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/rahmanfaisal0414/backend-bimbel/core"
)

// Feedback references a student and/or a tutor; the nullable sides encode
// direction (student→tutor, student→admin, tutor→student).
type Feedback struct {
	ID         int         `json:"id"`
	StudentID  null.Int    `json:"student_id"`
	TutorID    null.Int    `json:"tutor_id"`
	Rating     int         `json:"rating"`
	Comment    null.String `json:"comment"`
	IsApproved bool        `json:"is_approved"`
	CreatedAt  time.Time   `json:"created_at"`
}

// Info is a Feedback joined with the names on both sides.
type Info struct {
	Feedback
	StudentName null.String `json:"student_name"`
	TutorName   null.String `json:"tutor_name"`
}

// NewFeedback contains what a student submits; a zero TutorID addresses the
// feedback to the center itself.
type NewFeedback struct {
	TutorID int    `json:"tutor_id"`
	Rating  int    `json:"rating" validate:"required,min=1,max=5"`
	Comment string `json:"comment"`
}

func (nf *NewFeedback) Validate() error {
	nf.Comment = core.CleanString(nf.Comment)
	return core.Validate.Struct(nf)
}
