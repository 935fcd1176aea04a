package persistence

import (
	"context"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/go-faster/errors"

	"github.com/hmis-dev/hmis-sdk/modules/core/domain/entities/sharing"
	"github.com/hmis-dev/hmis-sdk/modules/core/domain/entities/usergroup"
	"github.com/hmis-dev/hmis-sdk/pkg/composables"
	"github.com/hmis-dev/hmis-sdk/pkg/repo"
)

// AclTable names a sharing join table and the column referencing the owning entity.
// Only the predeclared values below are accepted by SharingLoader.
type AclTable struct {
	table  string
	column string
}

func (t AclTable) String() string { return t.table + "." + t.column }

var (
	ProgramUserAccess                = AclTable{"programuseraccesses", "programid"}
	ProgramStageUserAccess           = AclTable{"programstageuseraccesses", "programstageid"}
	TrackedEntityTypeUserAccess      = AclTable{"trackedentitytypeuseraccesses", "trackedentitytypeid"}
	CategoryOptionUserAccess         = AclTable{"dataelementcategoryoptionuseraccesses", "categoryoptionid"}
	DataSetUserAccess                = AclTable{"datasetuseraccesses", "datasetid"}
	ProgramUserGroupAccess           = AclTable{"programusergroupaccesses", "programid"}
	ProgramStageUserGroupAccess      = AclTable{"programstageusergroupaccesses", "programid"}
	TrackedEntityTypeUserGroupAccess = AclTable{"trackedentitytypeusergroupaccesses", "trackedentitytypeid"}
	CategoryOptionUserGroupAccess    = AclTable{"dataelementcategoryoptionusergroupaccesses", "categoryoptionid"}
	DataSetUserGroupAccess           = AclTable{"datasetusergroupaccesses", "datasetid"}
)

var aclTables = mapset.NewSet(
	ProgramUserAccess,
	ProgramStageUserAccess,
	TrackedEntityTypeUserAccess,
	CategoryOptionUserAccess,
	DataSetUserAccess,
	ProgramUserGroupAccess,
	ProgramStageUserGroupAccess,
	TrackedEntityTypeUserGroupAccess,
	CategoryOptionUserGroupAccess,
	DataSetUserGroupAccess,
)

const (
	userAccessQuery = `
		SELECT eua.${column_name} AS owner_id, ua.useraccessid, ua.access, ua.userid, u.uid
		FROM ${table_name} eua
		JOIN useraccess ua ON eua.useraccessid = ua.useraccessid
		JOIN users u ON ua.userid = u.userid`

	userGroupAccessQuery = `
		SELECT ega.${column_name} AS owner_id, ega.usergroupaccessid, uga.access, uga.usergroupid, ug.uid
		FROM ${table_name} ega
		JOIN usergroupaccess uga ON ega.usergroupaccessid = uga.usergroupaccessid
		JOIN usergroup ug ON uga.usergroupid = ug.usergroupid`

	ownerFilter = `WHERE ${alias}.${column_name} IN (:ids)`

	userGroupMembersQuery = `
		SELECT u.uid
		FROM usergroupmembers ugm
		JOIN users u ON ugm.userid = u.userid
		WHERE ugm.usergroupid = $1`
)

type userAccessRow struct {
	OwnerID int64  `db:"owner_id"`
	ID      int64  `db:"useraccessid"`
	Access  string `db:"access"`
	UserID  int64  `db:"userid"`
	UserUID string `db:"uid"`
}

type userGroupAccessRow struct {
	OwnerID  int64  `db:"owner_id"`
	ID       int64  `db:"usergroupaccessid"`
	Access   string `db:"access"`
	GroupID  int64  `db:"usergroupid"`
	GroupUID string `db:"uid"`
}

// MembersFunc resolves the user UIDs belonging to a user group.
type MembersFunc func(ctx context.Context, groupID int64) (mapset.Set[string], error)

// SharingLoader reads user and user group grants from the sharing join tables.
type SharingLoader struct{}

func NewSharingLoader() *SharingLoader {
	return &SharingLoader{}
}

// UserAccesses returns the user grants in t grouped by owning entity id.
// When ownerIDs is empty every grant in the table is returned.
func (l *SharingLoader) UserAccesses(ctx context.Context, t AclTable, ownerIDs ...int64) (map[int64][]sharing.UserAccess, error) {
	query, args, err := l.buildQuery(ctx, userAccessQuery, "eua", t, ownerIDs)
	if err != nil {
		return nil, err
	}
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get transaction")
	}
	var rows []userAccessRow
	if err := tx.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrapf(err, "failed to load user accesses from %s", t)
	}

	out := make(map[int64][]sharing.UserAccess)
	for _, r := range rows {
		out[r.OwnerID] = append(out[r.OwnerID], sharing.UserAccess{
			ID:      r.ID,
			Access:  sharing.ParseAccess(r.Access),
			UserID:  r.UserID,
			UserUID: r.UserUID,
		})
	}
	return out, nil
}

// UserGroupAccesses returns the user group grants in t grouped by owning entity id.
// Group members are resolved through members, or directly from the database when nil.
func (l *SharingLoader) UserGroupAccesses(
	ctx context.Context,
	t AclTable,
	members MembersFunc,
	ownerIDs ...int64,
) (map[int64][]sharing.UserGroupAccess, error) {
	if members == nil {
		members = l.GroupMembers
	}
	query, args, err := l.buildQuery(ctx, userGroupAccessQuery, "ega", t, ownerIDs)
	if err != nil {
		return nil, err
	}
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get transaction")
	}
	var rows []userGroupAccessRow
	if err := tx.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrapf(err, "failed to load user group accesses from %s", t)
	}

	groups := make(map[int64]*usergroup.UserGroup)
	out := make(map[int64][]sharing.UserGroupAccess)
	for _, r := range rows {
		group, ok := groups[r.GroupID]
		if !ok {
			m, err := members(ctx, r.GroupID)
			if err != nil {
				return nil, err
			}
			group = &usergroup.UserGroup{ID: r.GroupID, UID: r.GroupUID, Members: m}
			groups[r.GroupID] = group
		}
		out[r.OwnerID] = append(out[r.OwnerID], sharing.UserGroupAccess{
			ID:     r.ID,
			Access: sharing.ParseAccess(r.Access),
			Group:  group,
		})
	}
	return out, nil
}

// GroupMembers loads the UIDs of the users in a user group.
func (l *SharingLoader) GroupMembers(ctx context.Context, groupID int64) (mapset.Set[string], error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get transaction")
	}
	var uids []string
	if err := tx.SelectContext(ctx, &uids, userGroupMembersQuery, groupID); err != nil {
		return nil, errors.Wrapf(err, "failed to load members of user group %d", groupID)
	}
	return mapset.NewSet(uids...), nil
}

func (l *SharingLoader) buildQuery(
	ctx context.Context,
	base, alias string,
	t AclTable,
	ownerIDs []int64,
) (string, []any, error) {
	if !aclTables.Contains(t) {
		return "", nil, errors.Errorf("unsupported sharing table %s", t)
	}
	template := repo.Join(base, "ORDER BY owner_id")
	if len(ownerIDs) > 0 {
		template = repo.Join(base, ownerFilter, "ORDER BY owner_id")
	}
	query, err := repo.SubstituteIdentifiers(template, map[string]string{
		"table_name":  t.table,
		"column_name": t.column,
		"alias":       alias,
	})
	if err != nil {
		return "", nil, err
	}
	if len(ownerIDs) == 0 {
		return query, nil, nil
	}
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return "", nil, errors.Wrap(err, "failed to get transaction")
	}
	return repo.ExpandNamed(tx, query, map[string]any{"ids": ownerIDs})
}
