package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/rahmanfaisal0414/backend-bimbel/core/feedback"
)

type feedbackRepository struct {
	db *sqlx.DB
}

var _ feedback.Repository = (*feedbackRepository)(nil) // interface compliance check

func NewFeedbackRepository(db *sqlx.DB) *feedbackRepository {
	return &feedbackRepository{db: db}
}

type feedbackRow struct {
	ID         int         `db:"id"`
	StudentID  null.Int    `db:"student_id"`
	TutorID    null.Int    `db:"tutor_id"`
	Rating     int         `db:"rating"`
	Comment    null.String `db:"comment"`
	IsApproved bool        `db:"is_approved"`
	CreatedAt  time.Time   `db:"created_at"`
}

func (r feedbackRow) unpack() feedback.Feedback {
	return feedback.Feedback{
		ID:         r.ID,
		StudentID:  r.StudentID,
		TutorID:    r.TutorID,
		Rating:     r.Rating,
		Comment:    r.Comment,
		IsApproved: r.IsApproved,
		CreatedAt:  r.CreatedAt,
	}
}

type feedbackInfoRow struct {
	feedbackRow
	StudentName null.String `db:"student_name"`
	TutorName   null.String `db:"tutor_name"`
}

func (r feedbackInfoRow) unpack() feedback.Info {
	return feedback.Info{
		Feedback:    r.feedbackRow.unpack(),
		StudentName: r.StudentName,
		TutorName:   r.TutorName,
	}
}

const selectFeedback = `
	SELECT id, student_id, tutor_id, rating, comment, is_approved, created_at
	FROM feedbacks`

const selectFeedbackInfo = `
	SELECT f.id, f.student_id, f.tutor_id, f.rating, f.comment, f.is_approved, f.created_at,
	       st.full_name AS student_name, t.full_name AS tutor_name
	FROM feedbacks f
	LEFT JOIN students st ON st.id = f.student_id
	LEFT JOIN tutors t ON t.id = f.tutor_id`

func (repo feedbackRepository) CreateFeedback(ctx context.Context, fb feedback.Feedback) (feedback.Feedback, error) {
	err := repo.db.QueryRowxContext(ctx, `
		INSERT INTO feedbacks (student_id, tutor_id, rating, comment, is_approved, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`,
		fb.StudentID, fb.TutorID, fb.Rating, fb.Comment, fb.IsApproved, fb.CreatedAt,
	).Scan(&fb.ID)
	if err != nil {
		return feedback.Feedback{}, errors.Wrap(err, "inserting feedback")
	}
	return fb, nil
}

func (repo feedbackRepository) GetFeedbackByID(ctx context.Context, id int) (feedback.Feedback, error) {
	var row feedbackRow
	if err := repo.db.GetContext(ctx, &row, selectFeedback+` WHERE id = $1`, id); err != nil {
		return feedback.Feedback{}, trapNoRowsErr(err, feedback.ErrNotFound, "finding feedback")
	}
	return row.unpack(), nil
}

func (repo feedbackRepository) GetFeedbackInfo(ctx context.Context, id int) (feedback.Info, error) {
	var row feedbackInfoRow
	if err := repo.db.GetContext(ctx, &row, selectFeedbackInfo+` WHERE f.id = $1`, id); err != nil {
		return feedback.Info{}, trapNoRowsErr(err, feedback.ErrNotFound, "finding feedback info")
	}
	return row.unpack(), nil
}

func (repo feedbackRepository) QueryByStudent(ctx context.Context, studentID int) ([]feedback.Info, error) {
	var rows []feedbackInfoRow
	err := repo.db.SelectContext(ctx, &rows,
		selectFeedbackInfo+` WHERE f.student_id = $1 ORDER BY f.created_at DESC`, studentID)
	if err != nil {
		return nil, errors.Wrap(err, "querying feedback by student")
	}
	return unpackFeedbackInfoRows(rows), nil
}

func (repo feedbackRepository) QueryApprovedByTutor(ctx context.Context, tutorID int) ([]feedback.Info, error) {
	var rows []feedbackInfoRow
	err := repo.db.SelectContext(ctx, &rows,
		selectFeedbackInfo+` WHERE f.tutor_id = $1 AND f.is_approved ORDER BY f.created_at DESC`, tutorID)
	if err != nil {
		return nil, errors.Wrap(err, "querying approved feedback")
	}
	return unpackFeedbackInfoRows(rows), nil
}

func (repo feedbackRepository) QueryPending(ctx context.Context) ([]feedback.Info, error) {
	var rows []feedbackInfoRow
	err := repo.db.SelectContext(ctx, &rows,
		selectFeedbackInfo+` WHERE NOT f.is_approved ORDER BY f.created_at`)
	if err != nil {
		return nil, errors.Wrap(err, "querying pending feedback")
	}
	return unpackFeedbackInfoRows(rows), nil
}

func unpackFeedbackInfoRows(rows []feedbackInfoRow) []feedback.Info {
	infos := make([]feedback.Info, 0, len(rows))
	for _, row := range rows {
		infos = append(infos, row.unpack())
	}
	return infos
}

func (repo feedbackRepository) SetFeedbackApproved(ctx context.Context, id int, approved bool) error {
	res, err := repo.db.ExecContext(ctx, `UPDATE feedbacks SET is_approved = $2 WHERE id = $1`, id, approved)
	if err != nil {
		return errors.Wrap(err, "setting feedback approval")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return feedback.ErrNotFound
	}
	return nil
}

func (repo feedbackRepository) CountApprovedByTutorSince(ctx context.Context, tutorID int, since time.Time) (int, error) {
	var count int
	err := repo.db.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM feedbacks
		WHERE tutor_id = $1 AND is_approved AND created_at >= $2`, tutorID, since)
	if err != nil {
		return 0, errors.Wrap(err, "counting approved feedback")
	}
	return count, nil
}
