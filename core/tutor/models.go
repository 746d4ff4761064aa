package tutor

import (
	"github.com/volatiletech/null/v8"

	"github.com/rahmanfaisal0414/backend-bimbel/core"
)

type Tutor struct {
	ID       int         `json:"id"`
	UserID   int         `json:"user_id"`
	FullName string      `json:"full_name"`
	Phone    null.String `json:"phone"`
	Address  null.String `json:"address"`
}

// Info is a Tutor joined with account state and expertise subjects.
type Info struct {
	Tutor
	Email     string   `json:"email"`
	IsActive  bool     `json:"is_active"`
	Expertise []string `json:"expertise"`
}

// QueryFilter narrows the admin tutor listing.
type QueryFilter struct {
	Search  string `query:"search"`
	Subject string `query:"subject"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Subject = core.CleanString(qf.Subject)
}

// Availability is a weekly recurring teaching slot.
type Availability struct {
	ID        int    `json:"id"`
	TutorID   int    `json:"tutor_id"`
	DayOfWeek int    `json:"day_of_week"` // 0=Sunday .. 6=Saturday
	StartTime string `json:"start_time"`  // HH:MM
	EndTime   string `json:"end_time"`    // HH:MM
}

// NewAvailability contains information needed to add an Availability slot.
type NewAvailability struct {
	DayOfWeek int    `json:"day_of_week" validate:"min=0,max=6"`
	StartTime string `json:"start_time" validate:"required,timeofday"`
	EndTime   string `json:"end_time" validate:"required,timeofday,gtfield=StartTime"`
}

func (na NewAvailability) Validate() error { return core.Validate.Struct(na) }
