package student

import (
	"context"
	"errors"

	"github.com/volatiletech/null/v8"
)

// PageSize is the admin listing page size.
const PageSize = 10

var ErrNotFound = errors.New("student not found")

type (
	Repository interface {
		GetStudentByID(ctx context.Context, id int) (Student, error)
		GetStudentByUserID(ctx context.Context, userID int) (Student, error)
		GetStudentInfo(ctx context.Context, id int) (Info, error)
		// FilterStudents applies QueryFilter.Search on name/code,
		// QueryFilter.ClassID on the current class and paginates by PageSize.
		FilterStudents(ctx context.Context, filter QueryFilter) ([]Info, int, error)
		QueryEnrollmentHistory(ctx context.Context, studentID int) ([]Enrollment, error)
		UpdateStudent(ctx context.Context, st Student) (Student, error)
		QuerySubmissionGrades(ctx context.Context, studentID int) ([]PerformanceRow, error)
		QueryClassmatesByClass(ctx context.Context, classID int) ([]Student, error)
		CountStudents(ctx context.Context) (int, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) GetByID(ctx context.Context, id int) (Student, error) {
	return svc.repo.GetStudentByID(ctx, id)
}

func (svc *Service) GetByUserID(ctx context.Context, userID int) (Student, error) {
	return svc.repo.GetStudentByUserID(ctx, userID)
}

func (svc *Service) GetInfo(ctx context.Context, id int) (Info, error) {
	return svc.repo.GetStudentInfo(ctx, id)
}

// Filter returns one page of matching students and the total match count.
func (svc *Service) Filter(ctx context.Context, filter QueryFilter) ([]Info, int, error) {
	filter.Clean()
	return svc.repo.FilterStudents(ctx, filter)
}

func (svc *Service) EnrollmentHistory(ctx context.Context, studentID int) ([]Enrollment, error) {
	return svc.repo.QueryEnrollmentHistory(ctx, studentID)
}

func (svc *Service) Update(ctx context.Context, st Student, us UpdateStudent) (Student, error) {
	if us.FullName != "" {
		st.FullName = us.FullName
	}
	if us.Phone != "" {
		st.Phone = null.StringFrom(us.Phone)
	}
	if us.Address != "" {
		st.Address = null.StringFrom(us.Address)
	}
	if us.Gender != "" {
		st.Gender = null.StringFrom(us.Gender)
	}
	if us.ParentContact != "" {
		st.ParentContact = null.StringFrom(us.ParentContact)
	}
	return svc.repo.UpdateStudent(ctx, st)
}

func (svc *Service) SubmissionGrades(ctx context.Context, studentID int) ([]PerformanceRow, error) {
	return svc.repo.QuerySubmissionGrades(ctx, studentID)
}

func (svc *Service) ClassmatesByClass(ctx context.Context, classID int) ([]Student, error) {
	return svc.repo.QueryClassmatesByClass(ctx, classID)
}

func (svc *Service) Count(ctx context.Context) (int, error) {
	return svc.repo.CountStudents(ctx)
}
