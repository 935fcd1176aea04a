package persistence

import (
	"context"
	"database/sql"

	"github.com/go-faster/errors"

	"github.com/hmis-dev/hmis-sdk/modules/core/domain/aggregates/user"
	"github.com/hmis-dev/hmis-sdk/pkg/composables"
)

const (
	userFindByUIDQuery = `
		SELECT u.userid, u.uid, u.username
		FROM users u
		WHERE u.uid = $1`

	userRolesQuery = `
		SELECT r.uid, r.name, COALESCE(a.authority, '') AS authority
		FROM userrolemembers m
		JOIN userrole r ON m.userroleid = r.userroleid
		LEFT JOIN userroleauthorities a ON a.userroleid = r.userroleid
		WHERE m.userid = $1
		ORDER BY r.uid, a.authority`

	userGroupsQuery = `
		SELECT ug.uid
		FROM usergroupmembers ugm
		JOIN usergroup ug ON ugm.usergroupid = ug.usergroupid
		WHERE ugm.userid = $1
		ORDER BY ug.uid`
)

type userRow struct {
	ID       int64  `db:"userid"`
	UID      string `db:"uid"`
	Username string `db:"username"`
}

type roleRow struct {
	UID       string `db:"uid"`
	Name      string `db:"name"`
	Authority string `db:"authority"`
}

type PgUserRepository struct{}

func NewUserRepository() user.Repository {
	return &PgUserRepository{}
}

func (g *PgUserRepository) GetByUID(ctx context.Context, uid string) (*user.User, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get transaction")
	}

	var row userRow
	if err := tx.GetContext(ctx, &row, userFindByUIDQuery, uid); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.Wrapf(user.ErrUserNotFound, "uid %s", uid)
		}
		return nil, errors.Wrap(err, "failed to get user")
	}

	var roleRows []roleRow
	if err := tx.SelectContext(ctx, &roleRows, userRolesQuery, row.ID); err != nil {
		return nil, errors.Wrap(err, "failed to get user roles")
	}

	var groups []string
	if err := tx.SelectContext(ctx, &groups, userGroupsQuery, row.ID); err != nil {
		return nil, errors.Wrap(err, "failed to get user groups")
	}

	return &user.User{
		ID:       row.ID,
		UID:      row.UID,
		Username: row.Username,
		Roles:    toDomainRoles(roleRows),
		Groups:   groups,
	}, nil
}

// toDomainRoles folds one row per (role, authority) into roles; rows arrive ordered by role.
func toDomainRoles(rows []roleRow) []user.Role {
	var roles []user.Role
	for _, r := range rows {
		if n := len(roles); n == 0 || roles[n-1].UID != r.UID {
			roles = append(roles, user.Role{UID: r.UID, Name: r.Name})
		}
		if r.Authority != "" {
			last := &roles[len(roles)-1]
			last.Authorities = append(last.Authorities, r.Authority)
		}
	}
	return roles
}
