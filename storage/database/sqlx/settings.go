package sqlxrepos

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/rahmanfaisal0414/backend-bimbel/core/settings"
)

type settingsRepository struct {
	db *sqlx.DB
}

var _ settings.Repository = (*settingsRepository)(nil) // interface compliance check

func NewSettingsRepository(db *sqlx.DB) *settingsRepository {
	return &settingsRepository{db: db}
}

func (repo settingsRepository) GetSetting(ctx context.Context, key string) (string, error) {
	var val string
	if err := repo.db.GetContext(ctx, &val, `SELECT value FROM app_settings WHERE key = $1`, key); err != nil {
		return "", trapNoRowsErr(err, settings.ErrNotFound, "finding setting")
	}
	return val, nil
}

func (repo settingsRepository) UpsertSetting(ctx context.Context, key, value string) error {
	_, err := repo.db.ExecContext(ctx, `
		INSERT INTO app_settings (key, value) VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`, key, value)
	return errors.Wrap(err, "upserting setting")
}
