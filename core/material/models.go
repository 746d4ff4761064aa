package material

import (
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/rahmanfaisal0414/backend-bimbel/core"
)

type Material struct {
	ID         int         `json:"id"`
	ClassID    int         `json:"class_id"`
	TutorID    int         `json:"tutor_id"`
	Title      string      `json:"title"`
	Subject    null.String `json:"subject"`
	Type       string      `json:"type"` // file extension, e.g. "pdf"
	FileURL    string      `json:"file_url"`
	IsApproved bool        `json:"is_approved"`
	UploadedAt time.Time   `json:"uploaded_at"`
}

// Info is a Material joined with its class name and schedule links.
type Info struct {
	Material
	ClassName   string `json:"class_name"`
	ScheduleIDs []int  `json:"schedule_ids,omitempty"`
}

// NewMaterial contains the metadata of an upload; the file itself travels as
// multipart form data.
type NewMaterial struct {
	ClassID int    `json:"class_id" validate:"required"`
	Title   string `json:"title" validate:"required"`
	Subject string `json:"subject"`
}

func (nm *NewMaterial) Validate() error {
	nm.Title = core.CleanString(nm.Title)
	nm.Subject = core.CleanString(nm.Subject)
	return core.Validate.Struct(nm)
}

// UpdateMaterial defines what a tutor may change on an existing material.
// Any edit sends the material back to moderation.
type UpdateMaterial struct {
	Title   string `json:"title"`
	Subject string `json:"subject"`
}

func (um *UpdateMaterial) Validate() error {
	um.Title = core.CleanString(um.Title)
	um.Subject = core.CleanString(um.Subject)
	return core.Validate.Struct(um)
}
