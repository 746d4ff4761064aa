package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/rahmanfaisal0414/backend-bimbel/core/class"
)

type classRepository struct {
	db *sqlx.DB
}

var _ class.Repository = (*classRepository)(nil) // interface compliance check

func NewClassRepository(db *sqlx.DB) *classRepository {
	return &classRepository{db: db}
}

type classRow struct {
	ID                  int         `db:"id"`
	ClassName           string      `db:"class_name"`
	Level               null.String `db:"level"`
	Capacity            int         `db:"capacity"`
	CurrentStudentCount int         `db:"current_student_count"`
	IsDeleted           bool        `db:"is_deleted"`
	CreatedAt           time.Time   `db:"created_at"`
}

func (r classRow) unpack() class.Class {
	return class.Class{
		ID:                  r.ID,
		ClassName:           r.ClassName,
		Level:               r.Level,
		Capacity:            r.Capacity,
		CurrentStudentCount: r.CurrentStudentCount,
		IsDeleted:           r.IsDeleted,
		CreatedAt:           r.CreatedAt,
	}
}

func (repo classRepository) CreateClass(ctx context.Context, cls class.Class) (class.Class, error) {
	err := repo.db.QueryRowxContext(ctx, `
		INSERT INTO classes (class_name, level, capacity)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`,
		cls.ClassName, cls.Level, cls.Capacity,
	).Scan(&cls.ID, &cls.CreatedAt)
	if err != nil {
		return class.Class{}, errors.Wrap(err, "inserting class")
	}
	return cls, nil
}

const selectClass = `
	SELECT id, class_name, level, capacity, current_student_count, is_deleted, created_at
	FROM classes`

func (repo classRepository) GetClassByID(ctx context.Context, id int) (class.Class, error) {
	var row classRow
	if err := repo.db.GetContext(ctx, &row, selectClass+` WHERE id = $1 AND NOT is_deleted`, id); err != nil {
		return class.Class{}, trapNoRowsErr(err, class.ErrNotFound, "finding class")
	}
	return row.unpack(), nil
}

func (repo classRepository) QueryClasses(ctx context.Context) ([]class.Class, error) {
	var rows []classRow
	if err := repo.db.SelectContext(ctx, &rows, selectClass+` WHERE NOT is_deleted ORDER BY class_name`); err != nil {
		return nil, errors.Wrap(err, "querying classes")
	}
	classes := make([]class.Class, 0, len(rows))
	for _, row := range rows {
		classes = append(classes, row.unpack())
	}
	return classes, nil
}

// TransferStudent appends an enrollment row for the new class and adjusts both
// counters in one transaction.
func (repo classRepository) TransferStudent(ctx context.Context, studentID, newClassID int) error {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning tx")
	}
	defer func() { _ = tx.Rollback() }()

	var current null.Int
	err = tx.QueryRowxContext(ctx, `
		SELECT class_id FROM student_classes
		WHERE student_id = $1
		ORDER BY enrolled_at DESC, id DESC
		LIMIT 1`, studentID,
	).Scan(&current)
	if err != nil && err != sql.ErrNoRows {
		return errors.Wrap(err, "finding current class")
	}
	if current.Valid && int(current.Int) == newClassID {
		return class.ErrAlreadyEnrolled
	}

	if err = enrollStudent(ctx, tx, studentID, newClassID); err != nil {
		return err
	}
	if current.Valid {
		if _, err = tx.ExecContext(ctx, `
			UPDATE classes SET current_student_count = current_student_count - 1
			WHERE id = $1 AND current_student_count > 0`, current.Int); err != nil {
			return errors.Wrap(err, "releasing old class seat")
		}
	}
	return errors.Wrap(tx.Commit(), "committing tx")
}

func (repo classRepository) CountClasses(ctx context.Context) (int, error) {
	var count int
	if err := repo.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM classes WHERE NOT is_deleted`); err != nil {
		return 0, errors.Wrap(err, "counting classes")
	}
	return count, nil
}
