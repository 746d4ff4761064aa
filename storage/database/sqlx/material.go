package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/rahmanfaisal0414/backend-bimbel/core/material"
)

type materialRepository struct {
	db *sqlx.DB
}

var _ material.Repository = (*materialRepository)(nil) // interface compliance check

func NewMaterialRepository(db *sqlx.DB) *materialRepository {
	return &materialRepository{db: db}
}

type materialRow struct {
	ID         int         `db:"id"`
	ClassID    int         `db:"class_id"`
	TutorID    int         `db:"tutor_id"`
	Title      string      `db:"title"`
	Subject    null.String `db:"subject"`
	Type       string      `db:"type"`
	FileURL    string      `db:"file_url"`
	IsApproved bool        `db:"is_approved"`
	UploadedAt time.Time   `db:"uploaded_at"`
}

func (r materialRow) unpack() material.Material {
	return material.Material{
		ID:         r.ID,
		ClassID:    r.ClassID,
		TutorID:    r.TutorID,
		Title:      r.Title,
		Subject:    r.Subject,
		Type:       r.Type,
		FileURL:    r.FileURL,
		IsApproved: r.IsApproved,
		UploadedAt: r.UploadedAt,
	}
}

type materialInfoRow struct {
	materialRow
	ClassName   string        `db:"class_name"`
	ScheduleIDs pq.Int64Array `db:"schedule_ids"`
}

func (r materialInfoRow) unpack() material.Info {
	ids := make([]int, 0, len(r.ScheduleIDs))
	for _, id := range r.ScheduleIDs {
		ids = append(ids, int(id))
	}
	return material.Info{
		Material:    r.materialRow.unpack(),
		ClassName:   r.ClassName,
		ScheduleIDs: ids,
	}
}

const selectMaterial = `
	SELECT id, class_id, tutor_id, title, subject, type, file_url, is_approved, uploaded_at
	FROM materials`

const selectMaterialInfo = `
	SELECT m.id, m.class_id, m.tutor_id, m.title, m.subject, m.type, m.file_url, m.is_approved, m.uploaded_at,
	       c.class_name,
	       COALESCE(ARRAY(
	           SELECT sm.schedule_id FROM schedule_materials sm
	           WHERE sm.material_id = m.id ORDER BY sm.schedule_id
	       ), '{}') AS schedule_ids
	FROM materials m
	JOIN classes c ON c.id = m.class_id`

func (repo materialRepository) CreateMaterial(ctx context.Context, m material.Material) (material.Material, error) {
	err := repo.db.QueryRowxContext(ctx, `
		INSERT INTO materials (class_id, tutor_id, title, subject, type, file_url, is_approved, uploaded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`,
		m.ClassID, m.TutorID, m.Title, m.Subject, m.Type, m.FileURL, m.IsApproved, m.UploadedAt,
	).Scan(&m.ID)
	if err != nil {
		return material.Material{}, errors.Wrap(err, "inserting material")
	}
	return m, nil
}

func (repo materialRepository) GetMaterialByID(ctx context.Context, id int) (material.Material, error) {
	var row materialRow
	if err := repo.db.GetContext(ctx, &row, selectMaterial+` WHERE id = $1`, id); err != nil {
		return material.Material{}, trapNoRowsErr(err, material.ErrNotFound, "finding material")
	}
	return row.unpack(), nil
}

func (repo materialRepository) GetMaterialInfo(ctx context.Context, id int) (material.Info, error) {
	var row materialInfoRow
	if err := repo.db.GetContext(ctx, &row, selectMaterialInfo+` WHERE m.id = $1`, id); err != nil {
		return material.Info{}, trapNoRowsErr(err, material.ErrNotFound, "finding material info")
	}
	return row.unpack(), nil
}

func (repo materialRepository) QueryMaterialsByTutor(ctx context.Context, tutorID int) ([]material.Info, error) {
	var rows []materialInfoRow
	err := repo.db.SelectContext(ctx, &rows, selectMaterialInfo+` WHERE m.tutor_id = $1 ORDER BY m.uploaded_at DESC`, tutorID)
	if err != nil {
		return nil, errors.Wrap(err, "querying materials by tutor")
	}
	return unpackMaterialInfoRows(rows), nil
}

func (repo materialRepository) QueryApprovedByClass(ctx context.Context, classID int) ([]material.Info, error) {
	var rows []materialInfoRow
	err := repo.db.SelectContext(ctx, &rows,
		selectMaterialInfo+` WHERE m.class_id = $1 AND m.is_approved ORDER BY m.uploaded_at DESC`, classID)
	if err != nil {
		return nil, errors.Wrap(err, "querying approved materials")
	}
	return unpackMaterialInfoRows(rows), nil
}

func unpackMaterialInfoRows(rows []materialInfoRow) []material.Info {
	infos := make([]material.Info, 0, len(rows))
	for _, row := range rows {
		infos = append(infos, row.unpack())
	}
	return infos
}

func (repo materialRepository) UpdateMaterial(ctx context.Context, m material.Material) (material.Material, error) {
	res, err := repo.db.ExecContext(ctx, `
		UPDATE materials SET title = $2, subject = $3, is_approved = $4 WHERE id = $1`,
		m.ID, m.Title, m.Subject, m.IsApproved)
	if err != nil {
		return material.Material{}, errors.Wrap(err, "updating material")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return material.Material{}, material.ErrNotFound
	}
	return m, nil
}

func (repo materialRepository) DeleteMaterial(ctx context.Context, id int) error {
	var linked bool
	err := repo.db.GetContext(ctx, &linked,
		`SELECT EXISTS(SELECT 1 FROM schedule_materials WHERE material_id = $1)`, id)
	if err != nil {
		return errors.Wrap(err, "checking material links")
	}
	if linked {
		return material.ErrLinked
	}

	res, err := repo.db.ExecContext(ctx, `DELETE FROM materials WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting material")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return material.ErrNotFound
	}
	return nil
}

func (repo materialRepository) SetMaterialApproved(ctx context.Context, id int, approved bool) error {
	res, err := repo.db.ExecContext(ctx, `UPDATE materials SET is_approved = $2 WHERE id = $1`, id, approved)
	if err != nil {
		return errors.Wrap(err, "setting material approval")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return material.ErrNotFound
	}
	return nil
}

func (repo materialRepository) QueryByScheduleID(ctx context.Context, scheduleID int) ([]material.Material, error) {
	var rows []materialRow
	err := repo.db.SelectContext(ctx, &rows, `
		SELECT m.id, m.class_id, m.tutor_id, m.title, m.subject, m.type, m.file_url, m.is_approved, m.uploaded_at
		FROM materials m
		JOIN schedule_materials sm ON sm.material_id = m.id
		WHERE sm.schedule_id = $1
		ORDER BY m.title`, scheduleID)
	if err != nil {
		return nil, errors.Wrap(err, "querying materials by schedule")
	}
	materials := make([]material.Material, 0, len(rows))
	for _, row := range rows {
		materials = append(materials, row.unpack())
	}
	return materials, nil
}

// ReplaceScheduleMaterials swaps the whole linked set in one transaction.
func (repo materialRepository) ReplaceScheduleMaterials(ctx context.Context, scheduleID int, materialIDs []int) error {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning tx")
	}
	defer func() { _ = tx.Rollback() }()

	if _, err = tx.ExecContext(ctx, `DELETE FROM schedule_materials WHERE schedule_id = $1`, scheduleID); err != nil {
		return errors.Wrap(err, "clearing schedule materials")
	}
	for _, id := range materialIDs {
		if _, err = tx.ExecContext(ctx, `
			INSERT INTO schedule_materials (schedule_id, material_id) VALUES ($1, $2)
			ON CONFLICT DO NOTHING`, scheduleID, id); err != nil {
			return errors.Wrap(err, "linking schedule material")
		}
	}
	return errors.Wrap(tx.Commit(), "committing tx")
}

func (repo materialRepository) SearchMaterials(ctx context.Context, tutorID int, keyword string) ([]material.Info, error) {
	var rows []materialInfoRow
	err := repo.db.SelectContext(ctx, &rows, selectMaterialInfo+`
		WHERE m.tutor_id = $1 AND (m.title ILIKE $2 OR COALESCE(m.subject, '') ILIKE $2)
		ORDER BY m.uploaded_at DESC`, tutorID, "%"+keyword+"%")
	if err != nil {
		return nil, errors.Wrap(err, "searching materials")
	}
	return unpackMaterialInfoRows(rows), nil
}
