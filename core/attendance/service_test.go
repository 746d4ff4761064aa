package attendance

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/volatiletech/null/v8"

	"github.com/rahmanfaisal0414/backend-bimbel/core"
	"github.com/rahmanfaisal0414/backend-bimbel/core/schedule"
)

// in-memory fakes

type fakeAttendanceRepo struct {
	rows   map[[2]int]*Attendance // (studentID, scheduleID)
	nextID int
}

var _ Repository = (*fakeAttendanceRepo)(nil)

func newFakeAttendanceRepo() *fakeAttendanceRepo {
	return &fakeAttendanceRepo{rows: make(map[[2]int]*Attendance), nextID: 1}
}

func (r *fakeAttendanceRepo) GetAttendance(_ context.Context, studentID, scheduleID int) (Attendance, error) {
	if att, ok := r.rows[[2]int{studentID, scheduleID}]; ok {
		return *att, nil
	}
	return Attendance{}, ErrNotFound
}

func (r *fakeAttendanceRepo) GetAttendanceByID(_ context.Context, id int) (Attendance, error) {
	for _, att := range r.rows {
		if att.ID == id {
			return *att, nil
		}
	}
	return Attendance{}, ErrNotFound
}

func (r *fakeAttendanceRepo) EnsureRows(context.Context, int) error { return nil }

func (r *fakeAttendanceRepo) BulkMark(_ context.Context, scheduleID int, marks []Mark, now time.Time) error {
	for _, m := range marks {
		key := [2]int{m.StudentID, scheduleID}
		att, ok := r.rows[key]
		if !ok {
			att = &Attendance{ID: r.nextID, StudentID: m.StudentID, ScheduleID: scheduleID}
			r.nextID++
			r.rows[key] = att
		}
		att.MarkedByTutor = m.Present
		att.Timestamp = null.TimeFrom(now)
	}
	return nil
}

func (r *fakeAttendanceRepo) ConfirmAttendance(_ context.Context, studentID, scheduleID int) error {
	att, ok := r.rows[[2]int{studentID, scheduleID}]
	if !ok {
		return ErrNotFound
	}
	att.ConfirmedByStudent = true
	return nil
}

func (r *fakeAttendanceRepo) QueryBySchedule(context.Context, int) ([]Info, error) { return nil, nil }
func (r *fakeAttendanceRepo) QueryByStudent(context.Context, int) ([]Info, error)  { return nil, nil }
func (r *fakeAttendanceRepo) CountByStudent(context.Context, int, time.Time) (int, int, error) {
	return 0, 0, nil
}
func (r *fakeAttendanceRepo) AverageAttendancePct(context.Context) (float64, error) { return 0, nil }

type fakeScheduleRepo struct {
	schedules map[int]schedule.Schedule
}

var _ schedule.Repository = (*fakeScheduleRepo)(nil)

func (r *fakeScheduleRepo) CreateSchedule(_ context.Context, s schedule.Schedule) (schedule.Schedule, error) {
	return s, nil
}

func (r *fakeScheduleRepo) GetScheduleByID(_ context.Context, id int) (schedule.Schedule, error) {
	if s, ok := r.schedules[id]; ok {
		return s, nil
	}
	return schedule.Schedule{}, schedule.ErrNotFound
}

func (r *fakeScheduleRepo) GetScheduleInfo(context.Context, int) (schedule.Info, error) {
	return schedule.Info{}, schedule.ErrNotFound
}
func (r *fakeScheduleRepo) QuerySchedulesByTutor(context.Context, int) ([]schedule.Info, error) {
	return nil, nil
}
func (r *fakeScheduleRepo) QuerySchedulesByClass(context.Context, int) ([]schedule.Info, error) {
	return nil, nil
}
func (r *fakeScheduleRepo) QuerySchedulesByDate(context.Context, time.Time) ([]schedule.Info, error) {
	return nil, nil
}
func (r *fakeScheduleRepo) QuerySchedulesByTutorBetween(context.Context, int, time.Time, time.Time) ([]schedule.Info, error) {
	return nil, nil
}
func (r *fakeScheduleRepo) GetLatestReschedule(context.Context, int) (*schedule.RescheduleRequest, error) {
	return nil, nil
}
func (r *fakeScheduleRepo) CreateReschedule(_ context.Context, req schedule.RescheduleRequest) (schedule.RescheduleRequest, error) {
	return req, nil
}
func (r *fakeScheduleRepo) QueryApprovedReschedulesByTutor(context.Context, int, time.Time) ([]schedule.RescheduleRequest, error) {
	return nil, nil
}

func setup(t *testing.T, end time.Time) (*Service, *fakeAttendanceRepo) {
	t.Helper()
	schedRepo := &fakeScheduleRepo{schedules: map[int]schedule.Schedule{
		1: {
			ID:           1,
			ScheduleDate: time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, end.Location()),
			StartTime:    end.Add(-time.Hour),
			EndTime:      end,
			Status:       schedule.StatusUpcoming,
		},
	}}
	repo := newFakeAttendanceRepo()
	return NewService(repo, schedule.NewService(schedRepo)), repo
}

func Test_Service_Mark_idempotent(t *testing.T) {
	ctx := context.Background()
	end := time.Date(2021, time.April, 12, 10, 0, 0, 0, time.UTC)
	svc, repo := setup(t, end)

	bm := BulkMark{Marks: []Mark{
		{StudentID: 10, Present: true},
		{StudentID: 11, Present: false},
	}}
	assert.NoError(t, svc.Mark(ctx, 1, bm))
	assert.NoError(t, svc.Mark(ctx, 1, bm)) // re-run with identical payload

	assert.Len(t, repo.rows, 2)
	att10, err := svc.Get(ctx, 10, 1)
	assert.NoError(t, err)
	assert.True(t, att10.MarkedByTutor)
	assert.True(t, att10.Timestamp.Valid)

	att11, err := svc.Get(ctx, 11, 1)
	assert.NoError(t, err)
	assert.False(t, att11.MarkedByTutor)

	// flipping a mark overwrites, never duplicates
	assert.NoError(t, svc.Mark(ctx, 1, BulkMark{Marks: []Mark{{StudentID: 11, Present: true}}}))
	assert.Len(t, repo.rows, 2)
	att11, _ = svc.Get(ctx, 11, 1)
	assert.True(t, att11.MarkedByTutor)
}

func Test_Service_Mark_unknownSchedule(t *testing.T) {
	svc, _ := setup(t, time.Now())
	err := svc.Mark(context.Background(), 999, BulkMark{Marks: []Mark{{StudentID: 10, Present: true}}})
	assert.Equal(t, schedule.ErrNotFound, err)
}

func Test_Service_Confirm(t *testing.T) {
	ctx := context.Background()
	end := time.Date(2021, time.April, 12, 10, 0, 0, 0, time.UTC)
	window := 12 * time.Hour

	mark := func(svc *Service, present bool) {
		t.Helper()
		assert.NoError(t, svc.Mark(ctx, 1, BulkMark{Marks: []Mark{{StudentID: 10, Present: present}}}))
	}

	t.Run("unmarked always fails", func(t *testing.T) {
		svc, _ := setup(t, end)
		mark(svc, false)
		err := svc.Confirm(ctx, 10, 1, end.Add(time.Minute))
		var bErr *core.BusinessError
		assert.ErrorAs(t, err, &bErr)
		assert.Equal(t, ErrNotMarked.Error(), bErr.Msg)
	})

	t.Run("missing row is a 404", func(t *testing.T) {
		svc, _ := setup(t, end)
		assert.Equal(t, ErrNotFound, svc.Confirm(ctx, 10, 1, end))
	})

	t.Run("within window succeeds", func(t *testing.T) {
		svc, repo := setup(t, end)
		mark(svc, true)
		assert.NoError(t, svc.Confirm(ctx, 10, 1, end.Add(time.Hour)))
		att := repo.rows[[2]int{10, 1}]
		assert.True(t, att.ConfirmedByStudent)
	})

	t.Run("exactly at end+12h is allowed", func(t *testing.T) {
		svc, _ := setup(t, end)
		mark(svc, true)
		assert.NoError(t, svc.Confirm(ctx, 10, 1, end.Add(window)))
	})

	t.Run("one second past the boundary fails", func(t *testing.T) {
		svc, _ := setup(t, end)
		mark(svc, true)
		err := svc.Confirm(ctx, 10, 1, end.Add(window).Add(time.Second))
		var bErr *core.BusinessError
		assert.ErrorAs(t, err, &bErr)
		assert.Contains(t, bErr.Msg, "12 hours")
	})

	t.Run("confirming twice is a no-op", func(t *testing.T) {
		svc, _ := setup(t, end)
		mark(svc, true)
		assert.NoError(t, svc.Confirm(ctx, 10, 1, end.Add(time.Hour)))
		assert.NoError(t, svc.Confirm(ctx, 10, 1, end.Add(time.Hour)))
	})
}
