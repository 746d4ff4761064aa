package class

import (
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/rahmanfaisal0414/backend-bimbel/core"
)

type Class struct {
	ID                  int         `json:"id"`
	ClassName           string      `json:"class_name"`
	Level               null.String `json:"level"`
	Capacity            int         `json:"capacity"`
	CurrentStudentCount int         `json:"current_student_count"`
	IsDeleted           bool        `json:"-"`
	CreatedAt           time.Time   `json:"created_at"`
}

func (c Class) IsFull() bool { return c.CurrentStudentCount >= c.Capacity }

// NewClass contains information needed to create a new Class.
type NewClass struct {
	ClassName string `json:"class_name" validate:"required"`
	Level     string `json:"level"`
	Capacity  int    `json:"capacity" validate:"omitempty,min=1"`
}

func (nc *NewClass) Validate() error {
	nc.ClassName = core.CleanString(nc.ClassName)
	nc.Level = core.CleanString(nc.Level)
	return core.Validate.Struct(nc)
}
