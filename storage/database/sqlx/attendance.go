package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/rahmanfaisal0414/backend-bimbel/core"
	"github.com/rahmanfaisal0414/backend-bimbel/core/attendance"
)

type attendanceRepository struct {
	db *sqlx.DB
}

var _ attendance.Repository = (*attendanceRepository)(nil) // interface compliance check

func NewAttendanceRepository(db *sqlx.DB) *attendanceRepository {
	return &attendanceRepository{db: db}
}

type attendanceRow struct {
	ID                 int       `db:"id"`
	StudentID          int       `db:"student_id"`
	ScheduleID         int       `db:"schedule_id"`
	MarkedByTutor      bool      `db:"marked_by_tutor"`
	ConfirmedByStudent bool      `db:"confirmed_by_student"`
	Timestamp          null.Time `db:"timestamp"`
}

func (r attendanceRow) unpack() attendance.Attendance {
	return attendance.Attendance{
		ID:                 r.ID,
		StudentID:          r.StudentID,
		ScheduleID:         r.ScheduleID,
		MarkedByTutor:      r.MarkedByTutor,
		ConfirmedByStudent: r.ConfirmedByStudent,
		Timestamp:          r.Timestamp,
	}
}

type attendanceInfoRow struct {
	attendanceRow
	ScheduleDate time.Time   `db:"schedule_date"`
	StartTime    string      `db:"start_time"`
	EndTime      string      `db:"end_time"`
	ClassName    string      `db:"class_name"`
	SubjectName  string      `db:"subject_name"`
	TutorName    string      `db:"tutor_name"`
	StudentName  string      `db:"student_name"`
	Room         null.String `db:"room"`
}

func (r attendanceInfoRow) unpack() (attendance.Info, error) {
	start, err := parseTimeOfDay(r.StartTime)
	if err != nil {
		return attendance.Info{}, errors.Wrap(err, "parsing start time")
	}
	end, err := parseTimeOfDay(r.EndTime)
	if err != nil {
		return attendance.Info{}, errors.Wrap(err, "parsing end time")
	}
	return attendance.Info{
		Attendance:   r.attendanceRow.unpack(),
		ScheduleDate: r.ScheduleDate,
		StartTime:    start,
		EndTime:      end,
		ClassName:    r.ClassName,
		SubjectName:  r.SubjectName,
		TutorName:    r.TutorName,
		StudentName:  r.StudentName,
		Room:         r.Room,
	}, nil
}

const selectAttendance = `
	SELECT id, student_id, schedule_id, marked_by_tutor, confirmed_by_student, timestamp
	FROM attendance`

const selectAttendanceInfo = `
	SELECT a.id, a.student_id, a.schedule_id, a.marked_by_tutor, a.confirmed_by_student, a.timestamp,
	       sc.schedule_date, sc.start_time::text, sc.end_time::text, sc.room,
	       c.class_name, s.name AS subject_name, t.full_name AS tutor_name, st.full_name AS student_name
	FROM attendance a
	JOIN schedules sc ON sc.id = a.schedule_id
	JOIN classes c ON c.id = sc.class_id
	JOIN subjects s ON s.id = sc.subject_id
	JOIN tutors t ON t.id = sc.tutor_id
	JOIN students st ON st.id = a.student_id`

func (repo attendanceRepository) GetAttendance(ctx context.Context, studentID, scheduleID int) (attendance.Attendance, error) {
	var row attendanceRow
	err := repo.db.GetContext(ctx, &row, selectAttendance+` WHERE student_id = $1 AND schedule_id = $2`, studentID, scheduleID)
	if err != nil {
		return attendance.Attendance{}, trapNoRowsErr(err, attendance.ErrNotFound, "finding attendance")
	}
	return row.unpack(), nil
}

func (repo attendanceRepository) GetAttendanceByID(ctx context.Context, id int) (attendance.Attendance, error) {
	var row attendanceRow
	if err := repo.db.GetContext(ctx, &row, selectAttendance+` WHERE id = $1`, id); err != nil {
		return attendance.Attendance{}, trapNoRowsErr(err, attendance.ErrNotFound, "finding attendance by ID")
	}
	return row.unpack(), nil
}

// EnsureRows inserts a blank row for every current member of the schedule's
// class; existing rows are untouched.
func (repo attendanceRepository) EnsureRows(ctx context.Context, scheduleID int) error {
	_, err := repo.db.ExecContext(ctx, `
		INSERT INTO attendance (student_id, schedule_id)
		SELECT sc.student_id, $1
		FROM student_classes sc
		JOIN (
			SELECT student_id, MAX(enrolled_at) AS latest
			FROM student_classes GROUP BY student_id
		) cur ON cur.student_id = sc.student_id AND cur.latest = sc.enrolled_at
		WHERE sc.class_id = (SELECT class_id FROM schedules WHERE id = $1)
		ON CONFLICT (student_id, schedule_id) DO NOTHING`, scheduleID)
	return errors.Wrap(err, "ensuring attendance rows")
}

// BulkMark upserts the tutor's sheet; one row per (student, schedule) pair is
// kept by the unique index, re-marking overwrites the boolean and timestamp.
func (repo attendanceRepository) BulkMark(ctx context.Context, scheduleID int, marks []attendance.Mark, now time.Time) error {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning tx")
	}
	defer func() { _ = tx.Rollback() }()

	for _, mark := range marks {
		if _, err = tx.ExecContext(ctx, `
			INSERT INTO attendance (student_id, schedule_id, marked_by_tutor, timestamp)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (student_id, schedule_id)
			DO UPDATE SET marked_by_tutor = EXCLUDED.marked_by_tutor, timestamp = EXCLUDED.timestamp`,
			mark.StudentID, scheduleID, mark.Present, now); err != nil {
			return errors.Wrap(err, "upserting attendance mark")
		}
	}
	return errors.Wrap(tx.Commit(), "committing tx")
}

func (repo attendanceRepository) ConfirmAttendance(ctx context.Context, studentID, scheduleID int) error {
	res, err := repo.db.ExecContext(ctx, `
		UPDATE attendance SET confirmed_by_student = true
		WHERE student_id = $1 AND schedule_id = $2`, studentID, scheduleID)
	if err != nil {
		return errors.Wrap(err, "confirming attendance")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return attendance.ErrNotFound
	}
	return nil
}

func (repo attendanceRepository) QueryBySchedule(ctx context.Context, scheduleID int) ([]attendance.Info, error) {
	var rows []attendanceInfoRow
	err := repo.db.SelectContext(ctx, &rows, selectAttendanceInfo+` WHERE a.schedule_id = $1 ORDER BY st.full_name`, scheduleID)
	if err != nil {
		return nil, errors.Wrap(err, "querying attendance by schedule")
	}
	return unpackAttendanceRows(rows)
}

func (repo attendanceRepository) QueryByStudent(ctx context.Context, studentID int) ([]attendance.Info, error) {
	var rows []attendanceInfoRow
	err := repo.db.SelectContext(ctx, &rows,
		selectAttendanceInfo+` WHERE a.student_id = $1 ORDER BY sc.schedule_date DESC, sc.start_time DESC`, studentID)
	if err != nil {
		return nil, errors.Wrap(err, "querying attendance by student")
	}
	return unpackAttendanceRows(rows)
}

func unpackAttendanceRows(rows []attendanceInfoRow) ([]attendance.Info, error) {
	infos := make([]attendance.Info, 0, len(rows))
	for _, row := range rows {
		info, err := row.unpack()
		if err != nil {
			return nil, err
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// CountByStudent counts (present, total) over sessions that ended before `until`.
func (repo attendanceRepository) CountByStudent(ctx context.Context, studentID int, until time.Time) (int, int, error) {
	var present, total int
	err := repo.db.QueryRowxContext(ctx, `
		SELECT COUNT(*) FILTER (WHERE a.marked_by_tutor), COUNT(*)
		FROM attendance a
		JOIN schedules sc ON sc.id = a.schedule_id
		WHERE a.student_id = $1 AND (sc.schedule_date + sc.end_time) < $2`,
		studentID, until,
	).Scan(&present, &total)
	if err != nil {
		return 0, 0, errors.Wrap(err, "counting attendance")
	}
	return present, total, nil
}

func (repo attendanceRepository) AverageAttendancePct(ctx context.Context) (float64, error) {
	var present, total int
	err := repo.db.QueryRowxContext(ctx, `
		SELECT COUNT(*) FILTER (WHERE a.marked_by_tutor), COUNT(*)
		FROM attendance a
		JOIN schedules sc ON sc.id = a.schedule_id
		WHERE (sc.schedule_date + sc.end_time) < now()`,
	).Scan(&present, &total)
	if err != nil {
		return 0, errors.Wrap(err, "averaging attendance")
	}
	if total == 0 {
		return 0, nil
	}
	return core.Round1(float64(present) / float64(total) * 100), nil
}
