package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/rahmanfaisal0414/backend-bimbel/core/schedule"
)

type scheduleRepository struct {
	db *sqlx.DB
}

var _ schedule.Repository = (*scheduleRepository)(nil) // interface compliance check

func NewScheduleRepository(db *sqlx.DB) *scheduleRepository {
	return &scheduleRepository{db: db}
}

type scheduleRow struct {
	ID           int         `db:"id"`
	ClassID      int         `db:"class_id"`
	TutorID      int         `db:"tutor_id"`
	SubjectID    int         `db:"subject_id"`
	ScheduleDate time.Time   `db:"schedule_date"`
	StartTime    string      `db:"start_time"`
	EndTime      string      `db:"end_time"`
	Status       string      `db:"status"`
	Room         null.String `db:"room"`
}

func (r scheduleRow) unpack() (schedule.Schedule, error) {
	start, err := parseTimeOfDay(r.StartTime)
	if err != nil {
		return schedule.Schedule{}, errors.Wrap(err, "parsing start time")
	}
	end, err := parseTimeOfDay(r.EndTime)
	if err != nil {
		return schedule.Schedule{}, errors.Wrap(err, "parsing end time")
	}
	return schedule.Schedule{
		ID:           r.ID,
		ClassID:      r.ClassID,
		TutorID:      r.TutorID,
		SubjectID:    r.SubjectID,
		ScheduleDate: r.ScheduleDate,
		StartTime:    start,
		EndTime:      end,
		Status:       r.Status,
		Room:         r.Room,
	}, nil
}

// parseTimeOfDay reads a postgres TIME value ("15:04:05" or "15:04").
func parseTimeOfDay(s string) (time.Time, error) {
	if t, err := time.Parse("15:04:05", s); err == nil {
		return t, nil
	}
	return time.Parse("15:04", s)
}

func formatTimeOfDay(t time.Time) string { return t.Format("15:04:05") }

type scheduleInfoRow struct {
	scheduleRow
	ClassName   string `db:"class_name"`
	SubjectName string `db:"subject_name"`
	TutorName   string `db:"tutor_name"`
}

func (r scheduleInfoRow) unpack() (schedule.Info, error) {
	s, err := r.scheduleRow.unpack()
	if err != nil {
		return schedule.Info{}, err
	}
	return schedule.Info{
		Schedule:    s,
		ClassName:   r.ClassName,
		SubjectName: r.SubjectName,
		TutorName:   r.TutorName,
	}, nil
}

func unpackInfoRows(rows []scheduleInfoRow) ([]schedule.Info, error) {
	infos := make([]schedule.Info, 0, len(rows))
	for _, row := range rows {
		info, err := row.unpack()
		if err != nil {
			return nil, err
		}
		infos = append(infos, info)
	}
	return infos, nil
}

const selectSchedule = `
	SELECT id, class_id, tutor_id, subject_id, schedule_date, start_time::text, end_time::text, status, room
	FROM schedules`

const selectScheduleInfo = `
	SELECT sc.id, sc.class_id, sc.tutor_id, sc.subject_id, sc.schedule_date,
	       sc.start_time::text, sc.end_time::text, sc.status, sc.room,
	       c.class_name, s.name AS subject_name, t.full_name AS tutor_name
	FROM schedules sc
	JOIN classes c ON c.id = sc.class_id
	JOIN subjects s ON s.id = sc.subject_id
	JOIN tutors t ON t.id = sc.tutor_id`

const scheduleOrdering = ` ORDER BY sc.schedule_date, sc.start_time, sc.id`

func (repo scheduleRepository) CreateSchedule(ctx context.Context, s schedule.Schedule) (schedule.Schedule, error) {
	err := repo.db.QueryRowxContext(ctx, `
		INSERT INTO schedules (class_id, tutor_id, subject_id, schedule_date, start_time, end_time, status, room)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`,
		s.ClassID, s.TutorID, s.SubjectID, s.ScheduleDate,
		formatTimeOfDay(s.StartTime), formatTimeOfDay(s.EndTime), s.Status, s.Room,
	).Scan(&s.ID)
	if err != nil {
		return schedule.Schedule{}, errors.Wrap(err, "inserting schedule")
	}
	return s, nil
}

func (repo scheduleRepository) GetScheduleByID(ctx context.Context, id int) (schedule.Schedule, error) {
	var row scheduleRow
	if err := repo.db.GetContext(ctx, &row, selectSchedule+` WHERE id = $1`, id); err != nil {
		return schedule.Schedule{}, trapNoRowsErr(err, schedule.ErrNotFound, "finding schedule")
	}
	return row.unpack()
}

func (repo scheduleRepository) GetScheduleInfo(ctx context.Context, id int) (schedule.Info, error) {
	var row scheduleInfoRow
	if err := repo.db.GetContext(ctx, &row, selectScheduleInfo+` WHERE sc.id = $1`, id); err != nil {
		return schedule.Info{}, trapNoRowsErr(err, schedule.ErrNotFound, "finding schedule info")
	}
	return row.unpack()
}

func (repo scheduleRepository) QuerySchedulesByTutor(ctx context.Context, tutorID int) ([]schedule.Info, error) {
	var rows []scheduleInfoRow
	if err := repo.db.SelectContext(ctx, &rows, selectScheduleInfo+` WHERE sc.tutor_id = $1`+scheduleOrdering, tutorID); err != nil {
		return nil, errors.Wrap(err, "querying schedules by tutor")
	}
	return unpackInfoRows(rows)
}

func (repo scheduleRepository) QuerySchedulesByClass(ctx context.Context, classID int) ([]schedule.Info, error) {
	var rows []scheduleInfoRow
	if err := repo.db.SelectContext(ctx, &rows, selectScheduleInfo+` WHERE sc.class_id = $1`+scheduleOrdering, classID); err != nil {
		return nil, errors.Wrap(err, "querying schedules by class")
	}
	return unpackInfoRows(rows)
}

func (repo scheduleRepository) QuerySchedulesByDate(ctx context.Context, date time.Time) ([]schedule.Info, error) {
	var rows []scheduleInfoRow
	if err := repo.db.SelectContext(ctx, &rows, selectScheduleInfo+` WHERE sc.schedule_date = $1::date`+scheduleOrdering, date); err != nil {
		return nil, errors.Wrap(err, "querying schedules by date")
	}
	return unpackInfoRows(rows)
}

func (repo scheduleRepository) QuerySchedulesByTutorBetween(ctx context.Context, tutorID int, from, to time.Time) ([]schedule.Info, error) {
	var rows []scheduleInfoRow
	err := repo.db.SelectContext(ctx, &rows,
		selectScheduleInfo+` WHERE sc.tutor_id = $1 AND sc.schedule_date BETWEEN $2::date AND $3::date`+scheduleOrdering,
		tutorID, from, to)
	if err != nil {
		return nil, errors.Wrap(err, "querying schedules by tutor between")
	}
	return unpackInfoRows(rows)
}

// GetLatestReschedule returns nil when no request was ever filed.
func (repo scheduleRepository) GetLatestReschedule(ctx context.Context, scheduleID int) (*schedule.RescheduleRequest, error) {
	var req schedule.RescheduleRequest
	err := repo.db.QueryRowxContext(ctx, `
		SELECT id, schedule_id, requested_by_tutor_id, reason, status, requested_at
		FROM reschedule_requests
		WHERE schedule_id = $1
		ORDER BY requested_at DESC, id DESC
		LIMIT 1`, scheduleID,
	).Scan(&req.ID, &req.ScheduleID, &req.RequestedByTutorID, &req.Reason, &req.Status, &req.RequestedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, errors.Wrap(err, "finding latest reschedule")
	}
	return &req, nil
}

func (repo scheduleRepository) CreateReschedule(ctx context.Context, req schedule.RescheduleRequest) (schedule.RescheduleRequest, error) {
	err := repo.db.QueryRowxContext(ctx, `
		INSERT INTO reschedule_requests (schedule_id, requested_by_tutor_id, reason, status, requested_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`,
		req.ScheduleID, req.RequestedByTutorID, req.Reason, req.Status, req.RequestedAt,
	).Scan(&req.ID)
	if err != nil {
		return schedule.RescheduleRequest{}, errors.Wrap(err, "inserting reschedule request")
	}
	return req, nil
}

func (repo scheduleRepository) QueryApprovedReschedulesByTutor(ctx context.Context, tutorID int, since time.Time) ([]schedule.RescheduleRequest, error) {
	rows, err := repo.db.QueryxContext(ctx, `
		SELECT id, schedule_id, requested_by_tutor_id, reason, status, requested_at
		FROM reschedule_requests
		WHERE requested_by_tutor_id = $1 AND status = $2 AND requested_at >= $3
		ORDER BY requested_at DESC`, tutorID, schedule.RescheduleApproved, since)
	if err != nil {
		return nil, errors.Wrap(err, "querying approved reschedules")
	}
	defer func() { _ = rows.Close() }()

	var reqs []schedule.RescheduleRequest
	for rows.Next() {
		var req schedule.RescheduleRequest
		if err = rows.Scan(&req.ID, &req.ScheduleID, &req.RequestedByTutorID, &req.Reason, &req.Status, &req.RequestedAt); err != nil {
			return nil, errors.Wrap(err, "scanning reschedule request")
		}
		reqs = append(reqs, req)
	}
	return reqs, errors.Wrap(rows.Err(), "querying approved reschedules")
}
