package sqlxrepos

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/rahmanfaisal0414/backend-bimbel/core/tutor"
)

type tutorRepository struct {
	db *sqlx.DB
}

var _ tutor.Repository = (*tutorRepository)(nil) // interface compliance check

func NewTutorRepository(db *sqlx.DB) *tutorRepository {
	return &tutorRepository{db: db}
}

type tutorRow struct {
	ID       int         `db:"id"`
	UserID   int         `db:"user_id"`
	FullName string      `db:"full_name"`
	Phone    null.String `db:"phone"`
	Address  null.String `db:"address"`
}

func (r tutorRow) unpack() tutor.Tutor {
	return tutor.Tutor{
		ID:       r.ID,
		UserID:   r.UserID,
		FullName: r.FullName,
		Phone:    r.Phone,
		Address:  r.Address,
	}
}

type tutorInfoRow struct {
	tutorRow
	Email     string         `db:"email"`
	IsActive  bool           `db:"is_active"`
	Expertise pq.StringArray `db:"expertise"`
}

func (r tutorInfoRow) unpack() tutor.Info {
	return tutor.Info{
		Tutor:     r.tutorRow.unpack(),
		Email:     r.Email,
		IsActive:  r.IsActive,
		Expertise: r.Expertise,
	}
}

const selectTutor = `
	SELECT id, user_id, full_name, phone, address
	FROM tutors`

const selectTutorInfo = `
	SELECT t.id, t.user_id, t.full_name, t.phone, t.address,
	       u.email, u.is_active,
	       COALESCE(ARRAY(
	           SELECT s.name FROM tutor_expertise te
	           JOIN subjects s ON s.id = te.subject_id
	           WHERE te.tutor_id = t.id
	           ORDER BY s.name
	       ), '{}') AS expertise
	FROM tutors t
	JOIN users u ON u.id = t.user_id`

func (repo tutorRepository) GetTutorByID(ctx context.Context, id int) (tutor.Tutor, error) {
	var row tutorRow
	if err := repo.db.GetContext(ctx, &row, selectTutor+` WHERE id = $1`, id); err != nil {
		return tutor.Tutor{}, trapNoRowsErr(err, tutor.ErrNotFound, "finding tutor")
	}
	return row.unpack(), nil
}

func (repo tutorRepository) GetTutorByUserID(ctx context.Context, userID int) (tutor.Tutor, error) {
	var row tutorRow
	if err := repo.db.GetContext(ctx, &row, selectTutor+` WHERE user_id = $1`, userID); err != nil {
		return tutor.Tutor{}, trapNoRowsErr(err, tutor.ErrNotFound, "finding tutor by user")
	}
	return row.unpack(), nil
}

func (repo tutorRepository) GetTutorInfo(ctx context.Context, id int) (tutor.Info, error) {
	var row tutorInfoRow
	if err := repo.db.GetContext(ctx, &row, selectTutorInfo+` WHERE t.id = $1`, id); err != nil {
		return tutor.Info{}, trapNoRowsErr(err, tutor.ErrNotFound, "finding tutor info")
	}
	return row.unpack(), nil
}

func (repo tutorRepository) FilterTutors(ctx context.Context, filter tutor.QueryFilter) ([]tutor.Info, error) {
	where := ` WHERE true`
	var args []interface{}

	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		where += fmt.Sprintf(` AND t.full_name ILIKE $%d`, len(args))
	}
	if filter.Subject != "" {
		args = append(args, filter.Subject)
		where += fmt.Sprintf(` AND EXISTS (
			SELECT 1 FROM tutor_expertise te
			JOIN subjects s ON s.id = te.subject_id
			WHERE te.tutor_id = t.id AND s.name ILIKE $%d
		)`, len(args))
	}

	var rows []tutorInfoRow
	if err := repo.db.SelectContext(ctx, &rows, selectTutorInfo+where+` ORDER BY t.full_name`, args...); err != nil {
		return nil, errors.Wrap(err, "querying tutors")
	}
	infos := make([]tutor.Info, 0, len(rows))
	for _, row := range rows {
		infos = append(infos, row.unpack())
	}
	return infos, nil
}

func (repo tutorRepository) UpdateTutor(ctx context.Context, tut tutor.Tutor) (tutor.Tutor, error) {
	res, err := repo.db.ExecContext(ctx, `
		UPDATE tutors SET full_name = $2, phone = $3, address = $4 WHERE id = $1`,
		tut.ID, tut.FullName, tut.Phone, tut.Address)
	if err != nil {
		return tutor.Tutor{}, errors.Wrap(err, "updating tutor")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return tutor.Tutor{}, tutor.ErrNotFound
	}
	if _, err = repo.db.ExecContext(ctx,
		`UPDATE users SET full_name = $2 WHERE id = $1`, tut.UserID, tut.FullName); err != nil {
		return tutor.Tutor{}, errors.Wrap(err, "syncing account name")
	}
	return tut, nil
}

type ratingSignalsRow struct {
	AttendedSessions  int           `db:"attended_sessions"`
	TotalSessions     int           `db:"total_sessions"`
	ApprovedMaterials int           `db:"approved_materials"`
	TotalMaterials    int           `db:"total_materials"`
	HasPhone          bool          `db:"has_phone"`
	HasAddress        bool          `db:"has_address"`
	HasExpertise      bool          `db:"has_expertise"`
	FeedbackCount     int           `db:"feedback_count"`
	StudentRatings    pq.Int64Array `db:"student_ratings"`
}

// QueryRatingSignals gathers every raw counter a tutor rating is derived
// from in a single round trip. "Attended" sessions are the completed,
// non-canceled ones.
func (repo tutorRepository) QueryRatingSignals(ctx context.Context, tutorID int) (tutor.RatingSignals, error) {
	var row ratingSignalsRow
	err := repo.db.GetContext(ctx, &row, `
		SELECT
			(SELECT COUNT(*) FROM schedules sc
			 WHERE sc.tutor_id = t.id
			   AND LOWER(sc.status) <> 'canceled'
			   AND (sc.schedule_date + sc.end_time) < now()) AS attended_sessions,
			(SELECT COUNT(*) FROM schedules sc
			 WHERE sc.tutor_id = t.id
			   AND (sc.schedule_date + sc.end_time) < now()) AS total_sessions,
			(SELECT COUNT(*) FROM materials m WHERE m.tutor_id = t.id AND m.is_approved) AS approved_materials,
			(SELECT COUNT(*) FROM materials m WHERE m.tutor_id = t.id) AS total_materials,
			COALESCE(t.phone, '') <> '' AS has_phone,
			COALESCE(t.address, '') <> '' AS has_address,
			EXISTS(SELECT 1 FROM tutor_expertise te WHERE te.tutor_id = t.id) AS has_expertise,
			(SELECT COUNT(*) FROM feedbacks f WHERE f.tutor_id = t.id AND f.is_approved) AS feedback_count,
			COALESCE(ARRAY(
				SELECT f.rating FROM feedbacks f
				WHERE f.tutor_id = t.id AND f.is_approved AND f.student_id IS NOT NULL
			), '{}') AS student_ratings
		FROM tutors t
		WHERE t.id = $1`, tutorID)
	if err != nil {
		return tutor.RatingSignals{}, trapNoRowsErr(err, tutor.ErrNotFound, "querying rating signals")
	}

	ratings := make([]int, 0, len(row.StudentRatings))
	for _, v := range row.StudentRatings {
		ratings = append(ratings, int(v))
	}
	return tutor.RatingSignals{
		AttendedSessions:  row.AttendedSessions,
		TotalSessions:     row.TotalSessions,
		ApprovedMaterials: row.ApprovedMaterials,
		TotalMaterials:    row.TotalMaterials,
		HasPhone:          row.HasPhone,
		HasAddress:        row.HasAddress,
		HasExpertise:      row.HasExpertise,
		FeedbackCount:     row.FeedbackCount,
		StudentRatings:    ratings,
	}, nil
}

func (repo tutorRepository) CountTutors(ctx context.Context) (int, error) {
	var count int
	if err := repo.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM tutors`); err != nil {
		return 0, errors.Wrap(err, "counting tutors")
	}
	return count, nil
}

type availabilityRow struct {
	ID        int    `db:"id"`
	TutorID   int    `db:"tutor_id"`
	DayOfWeek int    `db:"day_of_week"`
	StartTime string `db:"start_time"`
	EndTime   string `db:"end_time"`
}

func (repo tutorRepository) QueryAvailability(ctx context.Context, tutorID int) ([]tutor.Availability, error) {
	var rows []availabilityRow
	err := repo.db.SelectContext(ctx, &rows, `
		SELECT id, tutor_id, day_of_week, start_time, end_time
		FROM tutor_availability
		WHERE tutor_id = $1
		ORDER BY day_of_week, start_time`, tutorID)
	if err != nil {
		return nil, errors.Wrap(err, "querying availability")
	}
	avs := make([]tutor.Availability, 0, len(rows))
	for _, row := range rows {
		avs = append(avs, tutor.Availability{
			ID:        row.ID,
			TutorID:   row.TutorID,
			DayOfWeek: row.DayOfWeek,
			StartTime: row.StartTime,
			EndTime:   row.EndTime,
		})
	}
	return avs, nil
}

func (repo tutorRepository) CreateAvailability(ctx context.Context, av tutor.Availability) (tutor.Availability, error) {
	err := repo.db.QueryRowxContext(ctx, `
		INSERT INTO tutor_availability (tutor_id, day_of_week, start_time, end_time)
		VALUES ($1, $2, $3, $4)
		RETURNING id`,
		av.TutorID, av.DayOfWeek, av.StartTime, av.EndTime,
	).Scan(&av.ID)
	if err != nil {
		return tutor.Availability{}, errors.Wrap(err, "inserting availability")
	}
	return av, nil
}

func (repo tutorRepository) DeleteAvailability(ctx context.Context, tutorID, id int) error {
	res, err := repo.db.ExecContext(ctx,
		`DELETE FROM tutor_availability WHERE id = $1 AND tutor_id = $2`, id, tutorID)
	if err != nil {
		return errors.Wrap(err, "deleting availability")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return tutor.ErrAvailabilityNotFound
	}
	return nil
}
