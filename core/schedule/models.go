package schedule

import (
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/rahmanfaisal0414/backend-bimbel/core"
)

// Derived display statuses.
const (
	StatusUpcoming    = "upcoming"
	StatusOnProgress  = "on_progress"
	StatusCompleted   = "completed"
	StatusCanceled    = "canceled"
	StatusRescheduled = "rescheduled"
)

// Reschedule request statuses.
const (
	ReschedulePending  = "Pending"
	RescheduleApproved = "Approved"
	RescheduleRejected = "Rejected"
)

// Session delivery modes; a set room means the session is held on premises.
const (
	ModeOnline  = "online"
	ModeOffline = "offline"
)

type Schedule struct {
	ID           int         `json:"id"`
	ClassID      int         `json:"class_id"`
	TutorID      int         `json:"tutor_id"`
	SubjectID    int         `json:"subject_id"`
	ScheduleDate time.Time   `json:"schedule_date"`
	StartTime    time.Time   `json:"start_time"`
	EndTime      time.Time   `json:"end_time"`
	Status       string      `json:"status"` // stored status; display status is derived
	Room         null.String `json:"room"`
}

// StartAt combines ScheduleDate and StartTime into one instant.
// Start/end are assumed to fall on the schedule date itself; sessions spanning
// midnight are not supported.
func (s Schedule) StartAt() time.Time { return at(s.ScheduleDate, s.StartTime) }

// EndAt combines ScheduleDate and EndTime into one instant.
func (s Schedule) EndAt() time.Time { return at(s.ScheduleDate, s.EndTime) }

func (s Schedule) Mode() string {
	if s.Room.Valid && s.Room.String != "" {
		return ModeOffline
	}
	return ModeOnline
}

func at(d, t time.Time) time.Time {
	return time.Date(d.Year(), d.Month(), d.Day(), t.Hour(), t.Minute(), t.Second(), 0, d.Location())
}

// Info is a Schedule joined with class, subject and tutor names, plus the
// derived display status.
type Info struct {
	Schedule
	ClassName     string `json:"class_name"`
	SubjectName   string `json:"subject_name"`
	TutorName     string `json:"tutor_name"`
	DerivedStatus string `json:"derived_status"`
	Mode          string `json:"mode"`
}

type RescheduleRequest struct {
	ID                 int       `json:"id"`
	ScheduleID         int       `json:"schedule_id"`
	RequestedByTutorID int       `json:"requested_by_tutor_id"`
	Reason             string    `json:"reason"`
	Status             string    `json:"status"`
	RequestedAt        time.Time `json:"requested_at"`
}

// NewReschedule contains information a tutor provides to request a schedule change.
type NewReschedule struct {
	Reason string `json:"reason" validate:"required"`
}

func (nr *NewReschedule) Validate() error {
	nr.Reason = core.CleanString(nr.Reason)
	return core.Validate.Struct(nr)
}

// NewSchedule contains information an admin provides to create a session.
type NewSchedule struct {
	ClassID      int    `json:"class_id" validate:"required"`
	TutorID      int    `json:"tutor_id" validate:"required"`
	SubjectID    int    `json:"subject_id" validate:"required"`
	ScheduleDate string `json:"schedule_date" validate:"required,datetime=2006-01-02"`
	StartTime    string `json:"start_time" validate:"required,timeofday"`
	EndTime      string `json:"end_time" validate:"required,timeofday,gtfield=StartTime"`
	Room         string `json:"room"`
}

func (ns *NewSchedule) Validate() error {
	ns.Room = core.CleanString(ns.Room)
	return core.Validate.Struct(ns)
}

// QueryFilter narrows schedule listings.
type QueryFilter struct {
	Status string `query:"status"`
	Date   string `query:"date"`
}
