package persistence_test

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hmis-dev/hmis-sdk/modules/core/domain/aggregates/user"
	"github.com/hmis-dev/hmis-sdk/modules/core/domain/entities/sharing"
	"github.com/hmis-dev/hmis-sdk/modules/core/infrastructure/persistence"
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

func TestSharingLoader_UserAccesses(t *testing.T) {
	ctx, mock := setupTest(t)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM "programuseraccesses" eua`)).
		WillReturnRows(sqlmock.NewRows([]string{"owner_id", "useraccessid", "access", "userid", "uid"}).
			AddRow(1, 10, "rwrw----", 5, "alice").
			AddRow(1, 11, "--r-----", 6, "bob").
			AddRow(2, 12, "bad", 5, "alice"))

	got, err := persistence.NewSharingLoader().UserAccesses(ctx, persistence.ProgramUserAccess)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Len(t, got[1], 2)
	assert.Equal(t, sharing.UserAccess{ID: 10, Access: "rwrw----", UserID: 5, UserUID: "alice"}, got[1][0])
	assert.Equal(t, sharing.AccessDefault, got[2][0].Access)
}

func TestSharingLoader_UserAccessesFiltered(t *testing.T) {
	ctx, mock := setupTest(t)

	mock.ExpectQuery(regexp.QuoteMeta(`WHERE "eua"."datasetid" IN ($1, $2) ORDER BY owner_id`)).
		WithArgs(int64(3), int64(4)).
		WillReturnRows(sqlmock.NewRows([]string{"owner_id", "useraccessid", "access", "userid", "uid"}))

	got, err := persistence.NewSharingLoader().UserAccesses(ctx, persistence.DataSetUserAccess, 3, 4)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSharingLoader_UnsupportedTable(t *testing.T) {
	ctx, _ := setupTest(t)

	_, err := persistence.NewSharingLoader().UserAccesses(ctx, persistence.AclTable{})
	require.ErrorContains(t, err, "unsupported sharing table")
}

func TestSharingLoader_UserGroupAccesses(t *testing.T) {
	ctx, mock := setupTest(t)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM "programstageusergroupaccesses" ega`)).
		WillReturnRows(sqlmock.NewRows([]string{"owner_id", "usergroupaccessid", "access", "usergroupid", "uid"}).
			AddRow(7, 1, "--rw----", 30, "nurses").
			AddRow(8, 2, "--r-----", 30, "nurses"))
	mock.ExpectQuery(regexp.QuoteMeta(`FROM usergroupmembers ugm`)).
		WithArgs(int64(30)).
		WillReturnRows(sqlmock.NewRows([]string{"uid"}).AddRow("alice").AddRow("bob"))

	got, err := persistence.NewSharingLoader().UserGroupAccesses(ctx, persistence.ProgramStageUserGroupAccess, nil)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Same(t, got[7][0].Group, got[8][0].Group)
	assert.True(t, got[7][0].Group.HasMember("bob"))
	assert.Equal(t, "nurses", got[8][0].Group.UID)
}

func TestUserRepository_GetByUID(t *testing.T) {
	ctx, mock := setupTest(t)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM users u`)).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"userid", "uid", "username"}).AddRow(42, "u1", "admin"))
	mock.ExpectQuery(regexp.QuoteMeta(`FROM userrolemembers m`)).
		WithArgs(int64(42)).
		WillReturnRows(sqlmock.NewRows([]string{"uid", "name", "authority"}).
			AddRow("r1", "Superuser", "ALL").
			AddRow("r1", "Superuser", "F_EXPORT_DATA").
			AddRow("r2", "Guest", ""))
	mock.ExpectQuery(regexp.QuoteMeta(`FROM usergroupmembers ugm`)).
		WithArgs(int64(42)).
		WillReturnRows(sqlmock.NewRows([]string{"uid"}).AddRow("g1"))

	u, err := persistence.NewUserRepository().GetByUID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "admin", u.Username)
	require.Len(t, u.Roles, 2)
	assert.Equal(t, []string{"ALL", "F_EXPORT_DATA"}, u.Roles[0].Authorities)
	assert.Empty(t, u.Roles[1].Authorities)
	assert.True(t, u.IsSuper())
	assert.Equal(t, []string{"g1"}, u.Groups)
}

func TestUserRepository_GetByUIDNotFound(t *testing.T) {
	ctx, mock := setupTest(t)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM users u`)).
		WithArgs("nope").
		WillReturnRows(sqlmock.NewRows([]string{"userid", "uid", "username"}))

	_, err := persistence.NewUserRepository().GetByUID(ctx, "nope")
	require.ErrorIs(t, err, user.ErrUserNotFound)
}
