package sqlxrepos

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/rahmanfaisal0414/backend-bimbel/core/student"
)

type studentRepository struct {
	db *sqlx.DB
}

var _ student.Repository = (*studentRepository)(nil) // interface compliance check

func NewStudentRepository(db *sqlx.DB) *studentRepository {
	return &studentRepository{db: db}
}

type studentRow struct {
	ID            int         `db:"id"`
	UserID        int         `db:"user_id"`
	FullName      string      `db:"full_name"`
	Phone         null.String `db:"phone"`
	Address       null.String `db:"address"`
	Gender        null.String `db:"gender"`
	Birthdate     null.Time   `db:"birthdate"`
	ParentContact null.String `db:"parent_contact"`
}

func (r studentRow) unpack() student.Student {
	return student.Student{
		ID:            r.ID,
		UserID:        r.UserID,
		StudentCode:   student.CodeFor(r.ID),
		FullName:      r.FullName,
		Phone:         r.Phone,
		Address:       r.Address,
		Gender:        r.Gender,
		Birthdate:     r.Birthdate,
		ParentContact: r.ParentContact,
	}
}

type studentInfoRow struct {
	studentRow
	Email     string      `db:"email"`
	IsActive  bool        `db:"is_active"`
	ClassID   null.Int    `db:"current_class_id"`
	ClassName null.String `db:"current_class_name"`
}

func (r studentInfoRow) unpack() student.Info {
	return student.Info{
		Student:   r.studentRow.unpack(),
		Email:     r.Email,
		IsActive:  r.IsActive,
		ClassID:   r.ClassID,
		ClassName: r.ClassName,
	}
}

const selectStudent = `
	SELECT id, user_id, full_name, phone, address, gender, birthdate, parent_contact
	FROM students`

// selectStudentInfo joins account state and the latest enrollment (the current class).
const selectStudentInfo = `
	SELECT s.id, s.user_id, s.full_name, s.phone, s.address, s.gender, s.birthdate, s.parent_contact,
	       u.email, u.is_active,
	       cc.class_id AS current_class_id, cc.class_name AS current_class_name
	FROM students s
	JOIN users u ON u.id = s.user_id
	LEFT JOIN LATERAL (
		SELECT sc.class_id, c.class_name
		FROM student_classes sc
		JOIN classes c ON c.id = sc.class_id
		WHERE sc.student_id = s.id
		ORDER BY sc.enrolled_at DESC, sc.id DESC
		LIMIT 1
	) cc ON true`

func (repo studentRepository) GetStudentByID(ctx context.Context, id int) (student.Student, error) {
	var row studentRow
	if err := repo.db.GetContext(ctx, &row, selectStudent+` WHERE id = $1`, id); err != nil {
		return student.Student{}, trapNoRowsErr(err, student.ErrNotFound, "finding student")
	}
	return row.unpack(), nil
}

func (repo studentRepository) GetStudentByUserID(ctx context.Context, userID int) (student.Student, error) {
	var row studentRow
	if err := repo.db.GetContext(ctx, &row, selectStudent+` WHERE user_id = $1`, userID); err != nil {
		return student.Student{}, trapNoRowsErr(err, student.ErrNotFound, "finding student by user")
	}
	return row.unpack(), nil
}

func (repo studentRepository) GetStudentInfo(ctx context.Context, id int) (student.Info, error) {
	var row studentInfoRow
	if err := repo.db.GetContext(ctx, &row, selectStudentInfo+` WHERE s.id = $1`, id); err != nil {
		return student.Info{}, trapNoRowsErr(err, student.ErrNotFound, "finding student info")
	}
	return row.unpack(), nil
}

func (repo studentRepository) FilterStudents(ctx context.Context, filter student.QueryFilter) ([]student.Info, int, error) {
	where := ` WHERE true`
	var args []interface{}

	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		// search matches the name or the display code ("S012")
		where += fmt.Sprintf(` AND (s.full_name ILIKE $%d OR 'S' || LPAD(s.id::text, 3, '0') ILIKE $%d)`, len(args), len(args))
	}
	if filter.ClassID > 0 {
		args = append(args, filter.ClassID)
		where += fmt.Sprintf(` AND cc.class_id = $%d`, len(args))
	}

	var total int
	countQuery := `
		SELECT COUNT(*)
		FROM students s
		JOIN users u ON u.id = s.user_id
		LEFT JOIN LATERAL (
			SELECT sc.class_id
			FROM student_classes sc
			WHERE sc.student_id = s.id
			ORDER BY sc.enrolled_at DESC, sc.id DESC
			LIMIT 1
		) cc ON true` + where
	if err := repo.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, errors.Wrap(err, "counting students")
	}

	query := selectStudentInfo + where +
		fmt.Sprintf(` ORDER BY s.id LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	args = append(args, student.PageSize, (filter.Page-1)*student.PageSize)
	var rows []studentInfoRow
	if err := repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, errors.Wrap(err, "querying students")
	}

	infos := make([]student.Info, 0, len(rows))
	for _, row := range rows {
		infos = append(infos, row.unpack())
	}
	return infos, total, nil
}

func (repo studentRepository) QueryEnrollmentHistory(ctx context.Context, studentID int) ([]student.Enrollment, error) {
	var rows []student.Enrollment
	err := repo.db.SelectContext(ctx, &rows, `
		SELECT sc.id AS "id", sc.class_id AS "classid", c.class_name AS "classname"
		FROM student_classes sc
		JOIN classes c ON c.id = sc.class_id
		WHERE sc.student_id = $1
		ORDER BY sc.enrolled_at DESC, sc.id DESC`, studentID)
	if err != nil {
		return nil, errors.Wrap(err, "querying enrollment history")
	}
	return rows, nil
}

func (repo studentRepository) UpdateStudent(ctx context.Context, st student.Student) (student.Student, error) {
	res, err := repo.db.ExecContext(ctx, `
		UPDATE students
		SET full_name = $2, phone = $3, address = $4, gender = $5, birthdate = $6, parent_contact = $7
		WHERE id = $1`,
		st.ID, st.FullName, st.Phone, st.Address, st.Gender, st.Birthdate, st.ParentContact)
	if err != nil {
		return student.Student{}, errors.Wrap(err, "updating student")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return student.Student{}, student.ErrNotFound
	}

	// the account name follows the profile name
	if _, err = repo.db.ExecContext(ctx,
		`UPDATE users SET full_name = $2 WHERE id = $1`, st.UserID, st.FullName); err != nil {
		return student.Student{}, errors.Wrap(err, "syncing account name")
	}
	return st, nil
}

type performanceRow struct {
	AssignmentID    int         `db:"assignment_id"`
	AssignmentTitle string      `db:"assignment_title"`
	Grade           null.Int    `db:"grade"`
	Feedback        null.String `db:"feedback"`
	SubmittedAt     null.Time   `db:"submitted_at"`
	DueDate         null.Time   `db:"due_date"`
}

func (repo studentRepository) QuerySubmissionGrades(ctx context.Context, studentID int) ([]student.PerformanceRow, error) {
	var rows []performanceRow
	err := repo.db.SelectContext(ctx, &rows, `
		SELECT a.id AS assignment_id, a.title AS assignment_title,
		       sub.grade, sub.feedback, sub.submitted_at, a.due_date
		FROM assignment_submissions sub
		JOIN assignments a ON a.id = sub.assignment_id
		WHERE sub.student_id = $1
		ORDER BY sub.submitted_at DESC`, studentID)
	if err != nil {
		return nil, errors.Wrap(err, "querying submission grades")
	}
	perf := make([]student.PerformanceRow, 0, len(rows))
	for _, row := range rows {
		perf = append(perf, student.PerformanceRow{
			AssignmentID:    row.AssignmentID,
			AssignmentTitle: row.AssignmentTitle,
			Grade:           row.Grade,
			Feedback:        row.Feedback,
			SubmittedAt:     row.SubmittedAt,
			DueDate:         row.DueDate,
		})
	}
	return perf, nil
}

// QueryClassmatesByClass returns the current members of a class.
func (repo studentRepository) QueryClassmatesByClass(ctx context.Context, classID int) ([]student.Student, error) {
	var rows []studentRow
	err := repo.db.SelectContext(ctx, &rows, selectStudent+`
		WHERE id IN (
			SELECT sc.student_id
			FROM student_classes sc
			JOIN (
				SELECT student_id, MAX(enrolled_at) AS latest
				FROM student_classes GROUP BY student_id
			) cur ON cur.student_id = sc.student_id AND cur.latest = sc.enrolled_at
			WHERE sc.class_id = $1
		)
		ORDER BY full_name`, classID)
	if err != nil {
		return nil, errors.Wrap(err, "querying classmates")
	}
	students := make([]student.Student, 0, len(rows))
	for _, row := range rows {
		students = append(students, row.unpack())
	}
	return students, nil
}

func (repo studentRepository) CountStudents(ctx context.Context) (int, error) {
	var count int
	if err := repo.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM students`); err != nil {
		return 0, errors.Wrap(err, "counting students")
	}
	return count, nil
}
