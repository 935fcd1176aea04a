package persistence_test

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hmis-dev/hmis-sdk/modules/setting/infrastructure/persistence"
	"github.com/hmis-dev/hmis-sdk/pkg/composables"
)

func setupTest(t *testing.T) (context.Context, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})
	return composables.WithDB(context.Background(), sqlx.NewDb(db, "postgres")), mock
}

func TestSettingRepository_Get(t *testing.T) {
	ctx, mock := setupTest(t)
	repo := persistence.NewSettingRepository()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT value FROM systemsetting WHERE name = $1`)).
		WithArgs("keyCalendar").
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow("ethiopian"))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT value FROM systemsetting WHERE name = $1`)).
		WithArgs("keyDateFormat").
		WillReturnRows(sqlmock.NewRows([]string{"value"}))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT value FROM systemsetting WHERE name = $1`)).
		WithArgs("keyUiLocale").
		WillReturnError(errors.New("connection reset"))

	v, ok, err := repo.Get(ctx, "keyCalendar")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "ethiopian", v)

	_, ok, err = repo.Get(ctx, "keyDateFormat")
	require.NoError(t, err)
	assert.False(t, ok)

	_, _, err = repo.Get(ctx, "keyUiLocale")
	require.ErrorContains(t, err, "connection reset")
}

func TestSettingRepository_GetAll(t *testing.T) {
	ctx, mock := setupTest(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT name, value FROM systemsetting`)).
		WillReturnRows(sqlmock.NewRows([]string{"name", "value"}).
			AddRow("keyCalendar", "thai").
			AddRow("keyDateFormat", "dd-MM-yyyy"))

	all, err := persistence.NewSettingRepository().GetAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"keyCalendar": "thai", "keyDateFormat": "dd-MM-yyyy"}, all)
}

func TestSettingRepository_SaveDelete(t *testing.T) {
	ctx, mock := setupTest(t)
	repo := persistence.NewSettingRepository()

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO systemsetting (name, value) VALUES ($1, $2)`)).
		WithArgs("keyCalendar", "coptic").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM systemsetting WHERE name = $1`)).
		WithArgs("keyCalendar").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Save(ctx, "keyCalendar", "coptic"))
	require.NoError(t, repo.Delete(ctx, "keyCalendar"))
}
