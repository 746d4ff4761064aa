package attendance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rahmanfaisal0414/backend-bimbel/core"

	"github.com/rahmanfaisal0414/backend-bimbel/core/schedule"
)

var (
	// errors
	ErrNotFound  = errors.New("attendance record not found")
	ErrNotMarked = errors.New("attendance has not been marked by the tutor yet")
)

type (
	Repository interface {
		GetAttendance(ctx context.Context, studentID, scheduleID int) (Attendance, error)
		GetAttendanceByID(ctx context.Context, id int) (Attendance, error)
		// EnsureRows creates missing attendance rows for every student
		// currently enrolled in the schedule's class, atomically.
		EnsureRows(ctx context.Context, scheduleID int) error
		// BulkMark upserts marked_by_tutor per (schedule, student) pair and
		// stamps the timestamp. Idempotent; backed by the unique index.
		BulkMark(ctx context.Context, scheduleID int, marks []Mark, now time.Time) error
		ConfirmAttendance(ctx context.Context, studentID, scheduleID int) error
		QueryBySchedule(ctx context.Context, scheduleID int) ([]Info, error)
		QueryByStudent(ctx context.Context, studentID int) ([]Info, error)
		// CountByStudent returns (present, total) over sessions that already
		// ended before `until`.
		CountByStudent(ctx context.Context, studentID int, until time.Time) (present, total int, err error)
		// AverageAttendancePct is the center-wide present/total ratio.
		AverageAttendancePct(ctx context.Context) (float64, error)
	}

	Service struct {
		repo     Repository
		schedSvc *schedule.Service
	}
)

func NewService(repo Repository, schedSvc *schedule.Service) *Service {
	return &Service{repo: repo, schedSvc: schedSvc}
}

func (svc *Service) Get(ctx context.Context, studentID, scheduleID int) (Attendance, error) {
	return svc.repo.GetAttendance(ctx, studentID, scheduleID)
}

func (svc *Service) GetByID(ctx context.Context, id int) (Attendance, error) {
	return svc.repo.GetAttendanceByID(ctx, id)
}

func (svc *Service) EnsureRows(ctx context.Context, scheduleID int) error {
	return svc.repo.EnsureRows(ctx, scheduleID)
}

// Mark records a tutor's bulk attendance sheet for a schedule. Re-running the
// same payload leaves the same stored booleans (upsert per pair).
func (svc *Service) Mark(ctx context.Context, scheduleID int, bm BulkMark) error {
	if _, err := svc.schedSvc.GetByID(ctx, scheduleID); err != nil {
		return err
	}
	return svc.repo.BulkMark(ctx, scheduleID, bm.Marks, time.Now().UTC())
}

// Confirm is the student side of the attendance handshake. It requires the
// tutor's mark and must happen no later than schedule end + the configured
// window; the boundary instant itself is still accepted. Confirming twice is
// a no-op.
func (svc *Service) Confirm(ctx context.Context, studentID, scheduleID int, now time.Time) error {
	att, err := svc.repo.GetAttendance(ctx, studentID, scheduleID)
	if err != nil {
		return err
	}
	if !att.MarkedByTutor {
		return core.NewBusinessError(ErrNotMarked.Error())
	}
	if att.ConfirmedByStudent {
		return nil
	}

	sched, err := svc.schedSvc.GetByID(ctx, scheduleID)
	if err != nil {
		return err
	}
	window := core.Conf.AttendanceConfirmWindow
	if now.After(sched.EndAt().Add(window)) {
		return core.NewBusinessError(fmt.Sprintf(
			"confirmation window has expired; attendance can only be confirmed within %d hours after the session ends",
			int(window/time.Hour),
		))
	}
	return svc.repo.ConfirmAttendance(ctx, studentID, scheduleID)
}

func (svc *Service) QueryBySchedule(ctx context.Context, scheduleID int) ([]Info, error) {
	return svc.deriveDisplay(svc.repo.QueryBySchedule(ctx, scheduleID))
}

func (svc *Service) QueryByStudent(ctx context.Context, studentID int) ([]Info, error) {
	return svc.deriveDisplay(svc.repo.QueryByStudent(ctx, studentID))
}

func (svc *Service) deriveDisplay(infos []Info, err error) ([]Info, error) {
	if err != nil {
		return nil, err
	}
	now := time.Now()
	window := core.Conf.AttendanceConfirmWindow
	for i := range infos {
		end := schedule.Schedule{ScheduleDate: infos[i].ScheduleDate, EndTime: infos[i].EndTime}.EndAt()
		infos[i].DisplayStatus = DisplayStatus(infos[i].Attendance, end, now, window)
	}
	return infos, nil
}

// Rate returns a student's attendance percentage over past sessions only.
func (svc *Service) Rate(ctx context.Context, studentID int) (float64, error) {
	present, total, err := svc.repo.CountByStudent(ctx, studentID, time.Now())
	if err != nil {
		return 0, err
	}
	if total == 0 {
		return 0, nil
	}
	return core.Round1(float64(present) / float64(total) * 100), nil
}

func (svc *Service) AveragePct(ctx context.Context) (float64, error) {
	return svc.repo.AverageAttendancePct(ctx)
}
