package persistence

import (
	"context"
	"database/sql"

	"github.com/go-faster/errors"

	"github.com/hmis-dev/hmis-sdk/modules/core/domain/entities/sharing"
	corePersistence "github.com/hmis-dev/hmis-sdk/modules/core/infrastructure/persistence"
	"github.com/hmis-dev/hmis-sdk/modules/datavalue/domain/datavalue"
	"github.com/hmis-dev/hmis-sdk/pkg/composables"
	"github.com/hmis-dev/hmis-sdk/pkg/repo"
)

const (
	selectCombosQuery = `
		SELECT coc.categoryoptioncomboid, coc.uid AS coc_uid, COALESCE(coc.name, '') AS coc_name,
		       co.categoryoptionid, co.uid AS co_uid, co.name AS co_name, co.publicaccess
		FROM categoryoptioncombo coc
		LEFT JOIN categoryoptioncombos_categoryoptions cc ON cc.categoryoptioncomboid = coc.categoryoptioncomboid
		LEFT JOIN dataelementcategoryoption co ON co.categoryoptionid = cc.categoryoptionid
		WHERE coc.uid IN (:uids)
		ORDER BY coc.categoryoptioncomboid, co.uid`

	selectDataSetQuery = `
		SELECT ds.datasetid, ds.uid, COALESCE(ds.name, '') AS name, ds.publicaccess
		FROM dataset ds
		WHERE ds.uid = $1`
)

type comboRow struct {
	ComboID      int64          `db:"categoryoptioncomboid"`
	ComboUID     string         `db:"coc_uid"`
	ComboName    string         `db:"coc_name"`
	OptionID     sql.NullInt64  `db:"categoryoptionid"`
	OptionUID    sql.NullString `db:"co_uid"`
	OptionName   sql.NullString `db:"co_name"`
	PublicAccess sql.NullString `db:"publicaccess"`
}

type dataSetRow struct {
	ID           int64          `db:"datasetid"`
	UID          string         `db:"uid"`
	Name         string         `db:"name"`
	PublicAccess sql.NullString `db:"publicaccess"`
}

type PgCategoryOptionComboRepository struct {
	sharing *corePersistence.SharingLoader
}

func NewCategoryOptionComboRepository(loader *corePersistence.SharingLoader) datavalue.CategoryOptionComboRepository {
	return &PgCategoryOptionComboRepository{sharing: loader}
}

func (r *PgCategoryOptionComboRepository) GetByUIDs(
	ctx context.Context,
	uids ...string,
) (map[string]*datavalue.CategoryOptionCombo, error) {
	out := make(map[string]*datavalue.CategoryOptionCombo, len(uids))
	if len(uids) == 0 {
		return out, nil
	}
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get transaction")
	}
	query, args, err := repo.ExpandNamed(tx, selectCombosQuery, map[string]any{"uids": uids})
	if err != nil {
		return nil, err
	}
	var rows []comboRow
	if err := tx.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "failed to load category option combos")
	}

	optionsByID := make(map[int64]*datavalue.CategoryOption)
	var optionIDs []int64
	for _, row := range rows {
		coc, ok := out[row.ComboUID]
		if !ok {
			coc = &datavalue.CategoryOptionCombo{ID: row.ComboID, UID: row.ComboUID, Name: row.ComboName}
			out[row.ComboUID] = coc
		}
		if !row.OptionID.Valid {
			continue
		}
		opt, ok := optionsByID[row.OptionID.Int64]
		if !ok {
			opt = &datavalue.CategoryOption{
				ID:   row.OptionID.Int64,
				UID:  row.OptionUID.String,
				Name: row.OptionName.String,
				Sharing: &sharing.Sharing{
					PublicAccess: sharing.ParseAccess(row.PublicAccess.String),
				},
			}
			optionsByID[opt.ID] = opt
			optionIDs = append(optionIDs, opt.ID)
		}
		coc.Options = append(coc.Options, opt)
	}
	if len(optionIDs) == 0 {
		return out, nil
	}

	users, err := r.sharing.UserAccesses(ctx, corePersistence.CategoryOptionUserAccess, optionIDs...)
	if err != nil {
		return nil, err
	}
	groups, err := r.sharing.UserGroupAccesses(ctx, corePersistence.CategoryOptionUserGroupAccess, nil, optionIDs...)
	if err != nil {
		return nil, err
	}
	for id, opt := range optionsByID {
		opt.Sharing.Users = users[id]
		opt.Sharing.UserGroups = groups[id]
	}
	return out, nil
}

type PgDataSetRepository struct {
	sharing *corePersistence.SharingLoader
}

func NewDataSetRepository(loader *corePersistence.SharingLoader) datavalue.DataSetRepository {
	return &PgDataSetRepository{sharing: loader}
}

func (r *PgDataSetRepository) GetByUID(ctx context.Context, uid string) (*datavalue.DataSet, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get transaction")
	}
	var row dataSetRow
	if err := tx.GetContext(ctx, &row, selectDataSetQuery, uid); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.Wrapf(datavalue.ErrDataSetNotFound, "uid %s", uid)
		}
		return nil, errors.Wrapf(err, "failed to load data set %s", uid)
	}
	users, err := r.sharing.UserAccesses(ctx, corePersistence.DataSetUserAccess, row.ID)
	if err != nil {
		return nil, err
	}
	groups, err := r.sharing.UserGroupAccesses(ctx, corePersistence.DataSetUserGroupAccess, nil, row.ID)
	if err != nil {
		return nil, err
	}
	return &datavalue.DataSet{
		ID:   row.ID,
		UID:  row.UID,
		Name: row.Name,
		Sharing: &sharing.Sharing{
			PublicAccess: sharing.ParseAccess(row.PublicAccess.String),
			Users:        users[row.ID],
			UserGroups:   groups[row.ID],
		},
	}, nil
}
