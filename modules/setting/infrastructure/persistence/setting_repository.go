package persistence

import (
	"context"
	"database/sql"

	"github.com/go-faster/errors"

	"github.com/hmis-dev/hmis-sdk/modules/setting/domain/setting"
	"github.com/hmis-dev/hmis-sdk/pkg/composables"
)

const (
	settingGetQuery    = `SELECT value FROM systemsetting WHERE name = $1`
	settingGetAllQuery = `SELECT name, value FROM systemsetting ORDER BY name`
	settingUpsertQuery = `
		INSERT INTO systemsetting (name, value) VALUES ($1, $2)
		ON CONFLICT (name) DO UPDATE SET value = EXCLUDED.value`
	settingDeleteQuery = `DELETE FROM systemsetting WHERE name = $1`
)

type PgSettingRepository struct{}

func NewSettingRepository() setting.Repository {
	return &PgSettingRepository{}
}

func (r *PgSettingRepository) Get(ctx context.Context, name string) (string, bool, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return "", false, errors.Wrap(err, "failed to get transaction")
	}
	var value string
	if err := tx.GetContext(ctx, &value, settingGetQuery, name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, errors.Wrapf(err, "failed to get setting %s", name)
	}
	return value, true, nil
}

func (r *PgSettingRepository) GetAll(ctx context.Context) (map[string]string, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get transaction")
	}
	var rows []struct {
		Name  string `db:"name"`
		Value string `db:"value"`
	}
	if err := tx.SelectContext(ctx, &rows, settingGetAllQuery); err != nil {
		return nil, errors.Wrap(err, "failed to get settings")
	}
	out := make(map[string]string, len(rows))
	for _, row := range rows {
		out[row.Name] = row.Value
	}
	return out, nil
}

func (r *PgSettingRepository) Save(ctx context.Context, name, value string) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to get transaction")
	}
	if _, err := tx.ExecContext(ctx, settingUpsertQuery, name, value); err != nil {
		return errors.Wrapf(err, "failed to save setting %s", name)
	}
	return nil
}

func (r *PgSettingRepository) Delete(ctx context.Context, name string) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to get transaction")
	}
	if _, err := tx.ExecContext(ctx, settingDeleteQuery, name); err != nil {
		return errors.Wrapf(err, "failed to delete setting %s", name)
	}
	return nil
}
