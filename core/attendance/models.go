package attendance

import (
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/rahmanfaisal0414/backend-bimbel/core"
)

// Display statuses derived from the (marked, confirmed) pair and the
// confirmation deadline.
const (
	DisplayPresents            = "Presents"
	DisplayStudentMarked       = "Student Marked"
	DisplayPendingConfirmation = "Pending Confirmation"
	DisplayUnconfirmed         = "Unconfirmed"
	DisplayAwaitingMark        = "Awaiting Mark"
	DisplayAbsent              = "Absent"
)

// Attendance is one row per (student, schedule) pair. The two booleans are
// independent; Timestamp is stamped on tutor marking.
type Attendance struct {
	ID                 int       `json:"id"`
	StudentID          int       `json:"student_id"`
	ScheduleID         int       `json:"schedule_id"`
	MarkedByTutor      bool      `json:"marked_by_tutor"`
	ConfirmedByStudent bool      `json:"confirmed_by_student"`
	Timestamp          null.Time `json:"timestamp"`
}

// Mark is one entry of a tutor's bulk attendance submission.
type Mark struct {
	StudentID int  `json:"student_id" validate:"required"`
	Present   bool `json:"present"`
}

// BulkMark is the full sheet a tutor submits for one schedule.
type BulkMark struct {
	Marks []Mark `json:"marks" validate:"required,min=1,dive"`
}

func (bm BulkMark) Validate() error { return core.Validate.Struct(bm) }

// Info is an Attendance joined with its schedule context.
type Info struct {
	Attendance
	ScheduleDate  time.Time   `json:"schedule_date"`
	StartTime     time.Time   `json:"start_time"`
	EndTime       time.Time   `json:"end_time"`
	ClassName     string      `json:"class_name"`
	SubjectName   string      `json:"subject_name"`
	TutorName     string      `json:"tutor_name"`
	StudentName   string      `json:"student_name,omitempty"`
	DisplayStatus string      `json:"display_status"`
	Room          null.String `json:"room"`
}

// DisplayStatus derives the listing label from the boolean pair and the
// confirmation deadline (schedule end + window).
func DisplayStatus(att Attendance, scheduleEnd, now time.Time, window time.Duration) string {
	deadline := scheduleEnd.Add(window)
	pastDeadline := now.After(deadline)

	switch {
	case att.MarkedByTutor && att.ConfirmedByStudent:
		return DisplayPresents
	case att.ConfirmedByStudent:
		return DisplayStudentMarked
	case att.MarkedByTutor:
		if pastDeadline {
			return DisplayUnconfirmed
		}
		return DisplayPendingConfirmation
	default:
		if pastDeadline {
			return DisplayAbsent
		}
		return DisplayAwaitingMark
	}
}
