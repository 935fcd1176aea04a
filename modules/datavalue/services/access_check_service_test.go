package services_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hmis-dev/hmis-sdk/modules/core/domain/aggregates/user"
	"github.com/hmis-dev/hmis-sdk/modules/core/domain/entities/sharing"
	coreServices "github.com/hmis-dev/hmis-sdk/modules/core/services"
	"github.com/hmis-dev/hmis-sdk/modules/datavalue/domain/datavalue"
	"github.com/hmis-dev/hmis-sdk/modules/datavalue/services"
)

type fakeCombos map[string]*datavalue.CategoryOptionCombo

func (f fakeCombos) GetByUIDs(_ context.Context, uids ...string) (map[string]*datavalue.CategoryOptionCombo, error) {
	out := map[string]*datavalue.CategoryOptionCombo{}
	for _, uid := range uids {
		if c, ok := f[uid]; ok {
			out[uid] = c
		}
	}
	return out, nil
}

type fakeDataSets map[string]*datavalue.DataSet

func (f fakeDataSets) GetByUID(_ context.Context, uid string) (*datavalue.DataSet, error) {
	if ds, ok := f[uid]; ok {
		return ds, nil
	}
	return nil, fmt.Errorf("%w: %s", datavalue.ErrDataSetNotFound, uid)
}

func allowAll(context.Context, *user.User, string, string) error { return nil }

func newAccessCheckService() *services.AccessCheckService {
	combos := fakeCombos{
		"cocOpen":   combo("cocOpen", option("optOpen", sharing.NewAccess(false, false, true, true))),
		"aocClosed": combo("aocClosed", option("optClosed", sharing.NewAccess(false, false, true, false))),
	}
	dataSets := fakeDataSets{
		"dsANC": {UID: "dsANC", Sharing: &sharing.Sharing{PublicAccess: sharing.NewAccess(true, false, true, false)}},
	}
	manager := services.NewAggregateAccessManager(coreServices.NewAclService(), time.Hour, 10)
	return services.NewAccessCheckService(combos, dataSets, manager).WithAuthorizer(allowAll)
}

func TestAccessCheckService_Read(t *testing.T) {
	res, err := newAccessCheckService().CheckAccess(context.Background(), clerk, services.AccessCheck{
		Action:               services.ActionRead,
		DataSet:              "dsANC",
		CategoryOptionCombo:  "cocOpen",
		AttributeOptionCombo: "aocClosed",
	})
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	assert.Empty(t, res.Violations)
}

func TestAccessCheckService_Write(t *testing.T) {
	res, err := newAccessCheckService().CheckAccess(context.Background(), clerk, services.AccessCheck{
		Action:               services.ActionWrite,
		DataSet:              "dsANC",
		CategoryOptionCombo:  "cocOpen",
		AttributeOptionCombo: "aocClosed",
	})
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, []string{
		"User does not have write access for DataSet: dsANC",
		"User has no data write access for CategoryOption: optClosed",
	}, res.Violations)
}

func TestAccessCheckService_WriteAttributeComboOnly(t *testing.T) {
	res, err := newAccessCheckService().CheckAccess(context.Background(), clerk, services.AccessCheck{
		Action:               services.ActionWrite,
		AttributeOptionCombo: "aocClosed",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"User has no data write access for CategoryOption: optClosed"}, res.Violations)
}

func TestAccessCheckService_UnknownObjects(t *testing.T) {
	svc := newAccessCheckService()

	_, err := svc.CheckAccess(context.Background(), clerk, services.AccessCheck{Action: services.ActionRead, DataSet: "nope"})
	require.ErrorIs(t, err, datavalue.ErrDataSetNotFound)

	_, err = svc.CheckAccess(context.Background(), clerk, services.AccessCheck{
		Action:              services.ActionRead,
		CategoryOptionCombo: "nope",
	})
	require.ErrorIs(t, err, datavalue.ErrCategoryOptionComboNotFound)
}

func TestAccessCheckService_Unauthorized(t *testing.T) {
	denied := errors.New("denied")
	svc := newAccessCheckService().WithAuthorizer(func(context.Context, *user.User, string, string) error {
		return denied
	})
	_, err := svc.CheckAccess(context.Background(), clerk, services.AccessCheck{Action: services.ActionRead})
	require.ErrorIs(t, err, denied)
}
