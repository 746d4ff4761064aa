package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/rahmanfaisal0414/backend-bimbel/core/assignment"
	"github.com/rahmanfaisal0414/backend-bimbel/core/student"
)

type assignmentRepository struct {
	db *sqlx.DB
}

var _ assignment.Repository = (*assignmentRepository)(nil) // interface compliance check

func NewAssignmentRepository(db *sqlx.DB) *assignmentRepository {
	return &assignmentRepository{db: db}
}

type assignmentRow struct {
	ID          int         `db:"id"`
	ClassID     int         `db:"class_id"`
	SubjectID   null.Int    `db:"subject_id"`
	TutorID     int         `db:"tutor_id"`
	Title       string      `db:"title"`
	Description null.String `db:"description"`
	DueDate     null.Time   `db:"due_date"`
	FileURL     null.String `db:"file_url"`
	CreatedAt   time.Time   `db:"created_at"`
}

func (r assignmentRow) unpack() assignment.Assignment {
	return assignment.Assignment{
		ID:          r.ID,
		ClassID:     r.ClassID,
		SubjectID:   r.SubjectID,
		TutorID:     r.TutorID,
		Title:       r.Title,
		Description: r.Description,
		DueDate:     r.DueDate,
		FileURL:     r.FileURL,
		CreatedAt:   r.CreatedAt,
	}
}

type assignmentInfoRow struct {
	assignmentRow
	ClassName      string      `db:"class_name"`
	SubjectName    null.String `db:"subject_name"`
	SubmittedCount int         `db:"submitted_count"`
	StudentCount   int         `db:"student_count"`
}

func (r assignmentInfoRow) unpack() assignment.Info {
	return assignment.Info{
		Assignment:     r.assignmentRow.unpack(),
		ClassName:      r.ClassName,
		SubjectName:    r.SubjectName,
		SubmittedCount: r.SubmittedCount,
		StudentCount:   r.StudentCount,
	}
}

type submissionRow struct {
	ID           int         `db:"id"`
	AssignmentID int         `db:"assignment_id"`
	StudentID    int         `db:"student_id"`
	FileURL      string      `db:"file_url"`
	Grade        null.Int    `db:"grade"`
	Feedback     null.String `db:"feedback"`
	SubmittedAt  time.Time   `db:"submitted_at"`
}

func (r submissionRow) unpack() assignment.Submission {
	return assignment.Submission{
		ID:           r.ID,
		AssignmentID: r.AssignmentID,
		StudentID:    r.StudentID,
		FileURL:      r.FileURL,
		Grade:        r.Grade,
		Feedback:     r.Feedback,
		SubmittedAt:  r.SubmittedAt,
	}
}

const selectAssignment = `
	SELECT id, class_id, subject_id, tutor_id, title, description, due_date, file_url, created_at
	FROM assignments`

// selectAssignmentInfo joins context plus the submitted / class-size counters.
const selectAssignmentInfo = `
	SELECT a.id, a.class_id, a.subject_id, a.tutor_id, a.title, a.description, a.due_date, a.file_url, a.created_at,
	       c.class_name, s.name AS subject_name,
	       (SELECT COUNT(*) FROM assignment_submissions sub WHERE sub.assignment_id = a.id) AS submitted_count,
	       c.current_student_count AS student_count
	FROM assignments a
	JOIN classes c ON c.id = a.class_id
	LEFT JOIN subjects s ON s.id = a.subject_id`

func (repo assignmentRepository) CreateAssignment(ctx context.Context, a assignment.Assignment) (assignment.Assignment, error) {
	err := repo.db.QueryRowxContext(ctx, `
		INSERT INTO assignments (class_id, subject_id, tutor_id, title, description, due_date, file_url, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`,
		a.ClassID, a.SubjectID, a.TutorID, a.Title, a.Description, a.DueDate, a.FileURL, a.CreatedAt,
	).Scan(&a.ID)
	if err != nil {
		return assignment.Assignment{}, errors.Wrap(err, "inserting assignment")
	}
	return a, nil
}

func (repo assignmentRepository) GetAssignmentByID(ctx context.Context, id int) (assignment.Assignment, error) {
	var row assignmentRow
	if err := repo.db.GetContext(ctx, &row, selectAssignment+` WHERE id = $1`, id); err != nil {
		return assignment.Assignment{}, trapNoRowsErr(err, assignment.ErrNotFound, "finding assignment")
	}
	return row.unpack(), nil
}

func (repo assignmentRepository) GetAssignmentInfo(ctx context.Context, id int) (assignment.Info, error) {
	var row assignmentInfoRow
	if err := repo.db.GetContext(ctx, &row, selectAssignmentInfo+` WHERE a.id = $1`, id); err != nil {
		return assignment.Info{}, trapNoRowsErr(err, assignment.ErrNotFound, "finding assignment info")
	}
	return row.unpack(), nil
}

func (repo assignmentRepository) QueryAssignmentsByTutor(ctx context.Context, tutorID int) ([]assignment.Info, error) {
	var rows []assignmentInfoRow
	err := repo.db.SelectContext(ctx, &rows, selectAssignmentInfo+` WHERE a.tutor_id = $1 ORDER BY a.created_at DESC`, tutorID)
	if err != nil {
		return nil, errors.Wrap(err, "querying assignments by tutor")
	}
	return unpackAssignmentInfoRows(rows), nil
}

func (repo assignmentRepository) QueryAssignmentsByClass(ctx context.Context, classID int) ([]assignment.Info, error) {
	var rows []assignmentInfoRow
	err := repo.db.SelectContext(ctx, &rows, selectAssignmentInfo+` WHERE a.class_id = $1 ORDER BY a.created_at DESC`, classID)
	if err != nil {
		return nil, errors.Wrap(err, "querying assignments by class")
	}
	return unpackAssignmentInfoRows(rows), nil
}

func unpackAssignmentInfoRows(rows []assignmentInfoRow) []assignment.Info {
	infos := make([]assignment.Info, 0, len(rows))
	for _, row := range rows {
		infos = append(infos, row.unpack())
	}
	return infos
}

func (repo assignmentRepository) UpdateAssignment(ctx context.Context, a assignment.Assignment) (assignment.Assignment, error) {
	res, err := repo.db.ExecContext(ctx, `
		UPDATE assignments SET title = $2, description = $3, due_date = $4 WHERE id = $1`,
		a.ID, a.Title, a.Description, a.DueDate)
	if err != nil {
		return assignment.Assignment{}, errors.Wrap(err, "updating assignment")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return assignment.Assignment{}, assignment.ErrNotFound
	}
	return a, nil
}

func (repo assignmentRepository) DeleteAssignment(ctx context.Context, id int) error {
	var hasSubs bool
	err := repo.db.GetContext(ctx, &hasSubs,
		`SELECT EXISTS(SELECT 1 FROM assignment_submissions WHERE assignment_id = $1)`, id)
	if err != nil {
		return errors.Wrap(err, "checking submissions")
	}
	if hasSubs {
		return assignment.ErrHasSubmissions
	}

	res, err := repo.db.ExecContext(ctx, `DELETE FROM assignments WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting assignment")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return assignment.ErrNotFound
	}
	return nil
}

func (repo assignmentRepository) LinkSchedule(ctx context.Context, scheduleID, assignmentID int) error {
	_, err := repo.db.ExecContext(ctx, `
		INSERT INTO schedule_assignments (schedule_id, assignment_id) VALUES ($1, $2)
		ON CONFLICT DO NOTHING`, scheduleID, assignmentID)
	return errors.Wrap(err, "linking schedule assignment")
}

func (repo assignmentRepository) QueryByScheduleID(ctx context.Context, scheduleID int) ([]assignment.Assignment, error) {
	var rows []assignmentRow
	err := repo.db.SelectContext(ctx, &rows, `
		SELECT a.id, a.class_id, a.subject_id, a.tutor_id, a.title, a.description, a.due_date, a.file_url, a.created_at
		FROM assignments a
		JOIN schedule_assignments sa ON sa.assignment_id = a.id
		WHERE sa.schedule_id = $1
		ORDER BY a.created_at DESC`, scheduleID)
	if err != nil {
		return nil, errors.Wrap(err, "querying assignments by schedule")
	}
	assignments := make([]assignment.Assignment, 0, len(rows))
	for _, row := range rows {
		assignments = append(assignments, row.unpack())
	}
	return assignments, nil
}

func (repo assignmentRepository) UpsertSubmission(ctx context.Context, sub assignment.Submission) (assignment.Submission, error) {
	err := repo.db.QueryRowxContext(ctx, `
		INSERT INTO assignment_submissions (assignment_id, student_id, file_url, submitted_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (assignment_id, student_id)
		DO UPDATE SET file_url = EXCLUDED.file_url, submitted_at = EXCLUDED.submitted_at
		RETURNING id`,
		sub.AssignmentID, sub.StudentID, sub.FileURL, sub.SubmittedAt,
	).Scan(&sub.ID)
	if err != nil {
		return assignment.Submission{}, errors.Wrap(err, "upserting submission")
	}
	return sub, nil
}

const selectSubmission = `
	SELECT id, assignment_id, student_id, file_url, grade, feedback, submitted_at
	FROM assignment_submissions`

func (repo assignmentRepository) GetSubmission(ctx context.Context, assignmentID, studentID int) (assignment.Submission, error) {
	var row submissionRow
	err := repo.db.GetContext(ctx, &row,
		selectSubmission+` WHERE assignment_id = $1 AND student_id = $2`, assignmentID, studentID)
	if err != nil {
		return assignment.Submission{}, trapNoRowsErr(err, assignment.ErrSubmissionNotFound, "finding submission")
	}
	return row.unpack(), nil
}

type submissionInfoRow struct {
	submissionRow
	StudentName string `db:"student_name"`
}

func (repo assignmentRepository) QuerySubmissions(ctx context.Context, assignmentID int) ([]assignment.SubmissionInfo, error) {
	var rows []submissionInfoRow
	err := repo.db.SelectContext(ctx, &rows, `
		SELECT sub.id, sub.assignment_id, sub.student_id, sub.file_url, sub.grade, sub.feedback, sub.submitted_at,
		       st.full_name AS student_name
		FROM assignment_submissions sub
		JOIN students st ON st.id = sub.student_id
		WHERE sub.assignment_id = $1
		ORDER BY sub.submitted_at`, assignmentID)
	if err != nil {
		return nil, errors.Wrap(err, "querying submissions")
	}
	infos := make([]assignment.SubmissionInfo, 0, len(rows))
	for _, row := range rows {
		infos = append(infos, assignment.SubmissionInfo{
			Submission:  row.submissionRow.unpack(),
			StudentName: row.StudentName,
			StudentCode: student.CodeFor(row.StudentID),
		})
	}
	return infos, nil
}

func (repo assignmentRepository) GradeSubmission(ctx context.Context, assignmentID, studentID, grade int, feedback string) error {
	res, err := repo.db.ExecContext(ctx, `
		UPDATE assignment_submissions
		SET grade = $3, feedback = $4
		WHERE assignment_id = $1 AND student_id = $2`,
		assignmentID, studentID, grade, null.NewString(feedback, feedback != ""))
	if err != nil {
		return errors.Wrap(err, "grading submission")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return assignment.ErrSubmissionNotFound
	}
	return nil
}

func (repo assignmentRepository) CountUngradedByTutor(ctx context.Context, tutorID int) (int, error) {
	var count int
	err := repo.db.GetContext(ctx, &count, `
		SELECT COUNT(*)
		FROM assignment_submissions sub
		JOIN assignments a ON a.id = sub.assignment_id
		WHERE a.tutor_id = $1 AND sub.grade IS NULL`, tutorID)
	if err != nil {
		return 0, errors.Wrap(err, "counting ungraded submissions")
	}
	return count, nil
}

func (repo assignmentRepository) SearchAssignments(ctx context.Context, tutorID int, keyword string) ([]assignment.Info, error) {
	var rows []assignmentInfoRow
	err := repo.db.SelectContext(ctx, &rows, selectAssignmentInfo+`
		WHERE a.tutor_id = $1 AND (a.title ILIKE $2 OR COALESCE(a.description, '') ILIKE $2)
		ORDER BY a.created_at DESC`, tutorID, "%"+keyword+"%")
	if err != nil {
		return nil, errors.Wrap(err, "searching assignments")
	}
	return unpackAssignmentInfoRows(rows), nil
}
