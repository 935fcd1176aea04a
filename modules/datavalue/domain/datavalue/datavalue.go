package datavalue

import (
	"context"

	"github.com/hmis-dev/hmis-sdk/modules/core/domain/entities/sharing"
	"github.com/hmis-dev/hmis-sdk/pkg/serrors"
)

var (
	ErrCategoryOptionComboNotFound = serrors.NewError(
		"CATEGORY_OPTION_COMBO_NOT_FOUND", "category option combo not found", "DataValue.ComboNotFound",
	)
	ErrDataSetNotFound = serrors.NewError("DATA_SET_NOT_FOUND", "data set not found", "DataValue.DataSetNotFound")
)

type CategoryOption struct {
	ID      int64
	UID     string
	Name    string
	Sharing *sharing.Sharing
}

func (o *CategoryOption) GetUID() string               { return o.UID }
func (o *CategoryOption) GetSharing() *sharing.Sharing { return o.Sharing }

type CategoryOptionCombo struct {
	ID      int64
	UID     string
	Name    string
	Options []*CategoryOption
}

type DataSet struct {
	ID      int64
	UID     string
	Name    string
	Sharing *sharing.Sharing
}

func (d *DataSet) GetUID() string               { return d.UID }
func (d *DataSet) GetSharing() *sharing.Sharing { return d.Sharing }

type DataValue struct {
	DataElement          string
	Period               string
	OrgUnit              string
	CategoryOptionCombo  *CategoryOptionCombo
	AttributeOptionCombo *CategoryOptionCombo
	Value                string
}

type DataElementOperand struct {
	DataElement          string
	CategoryOptionCombo  *CategoryOptionCombo
	AttributeOptionCombo *CategoryOptionCombo
}

type CategoryOptionComboRepository interface {
	// GetByUIDs returns the combos found, keyed by UID, with their options and option sharing.
	GetByUIDs(ctx context.Context, uids ...string) (map[string]*CategoryOptionCombo, error)
}

type DataSetRepository interface {
	GetByUID(ctx context.Context, uid string) (*DataSet, error)
}
