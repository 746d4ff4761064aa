package sqlxrepos

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/rahmanfaisal0414/backend-bimbel/core/subject"
)

type subjectRepository struct {
	db *sqlx.DB
}

var _ subject.Repository = (*subjectRepository)(nil) // interface compliance check

func NewSubjectRepository(db *sqlx.DB) *subjectRepository {
	return &subjectRepository{db: db}
}

func (repo subjectRepository) QuerySubjects(ctx context.Context) ([]subject.Subject, error) {
	var subjects []subject.Subject
	if err := repo.db.SelectContext(ctx, &subjects, `SELECT id, name FROM subjects ORDER BY name`); err != nil {
		return nil, errors.Wrap(err, "querying subjects")
	}
	return subjects, nil
}

func (repo subjectRepository) GetSubjectByID(ctx context.Context, id int) (subject.Subject, error) {
	var sub subject.Subject
	if err := repo.db.GetContext(ctx, &sub, `SELECT id, name FROM subjects WHERE id = $1`, id); err != nil {
		return subject.Subject{}, trapNoRowsErr(err, subject.ErrNotFound, "finding subject")
	}
	return sub, nil
}

func (repo subjectRepository) EnsureSubjects(ctx context.Context, names []string) ([]subject.Subject, error) {
	subjects := make([]subject.Subject, 0, len(names))
	for _, name := range names {
		var sub subject.Subject
		err := repo.db.QueryRowxContext(ctx, `
			INSERT INTO subjects (name) VALUES ($1)
			ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
			RETURNING id, name`, name,
		).Scan(&sub.ID, &sub.Name)
		if err != nil {
			return nil, errors.Wrap(err, "ensuring subject")
		}
		subjects = append(subjects, sub)
	}
	return subjects, nil
}
