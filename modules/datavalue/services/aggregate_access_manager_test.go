package services_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/hmis-dev/hmis-sdk/modules/core/domain/aggregates/user"
	"github.com/hmis-dev/hmis-sdk/modules/core/domain/entities/sharing"
	"github.com/hmis-dev/hmis-sdk/modules/core/domain/entities/usergroup"
	coreServices "github.com/hmis-dev/hmis-sdk/modules/core/services"
	"github.com/hmis-dev/hmis-sdk/modules/datavalue/domain/datavalue"
	"github.com/hmis-dev/hmis-sdk/modules/datavalue/services"
)

var (
	clerk = &user.User{ID: 1, UID: "clerk", Groups: []string{"nurses"}}
	admin = &user.User{ID: 2, UID: "admin", Roles: []user.Role{{UID: "su", Authorities: []string{user.AuthorityAll}}}}
)

func option(uid string, public sharing.Access, users ...sharing.UserAccess) *datavalue.CategoryOption {
	return &datavalue.CategoryOption{UID: uid, Sharing: &sharing.Sharing{PublicAccess: public, Users: users}}
}

func combo(uid string, opts ...*datavalue.CategoryOption) *datavalue.CategoryOptionCombo {
	return &datavalue.CategoryOptionCombo{UID: uid, Options: opts}
}

func newManager() *services.AggregateAccessManager {
	return services.NewAggregateAccessManager(coreServices.NewAclService(), time.Hour, 100)
}

// countingAcl records write checks so cache hits can be observed.
type countingAcl struct {
	*coreServices.AclService
	writes int
}

func (c *countingAcl) CanDataWrite(u *user.User, obj sharing.Shareable) bool {
	c.writes++
	return c.AclService.CanDataWrite(u, obj)
}

func TestAggregateAccessManager_CanReadDataValue(t *testing.T) {
	m := newManager()
	readable := option("optA", sharing.NewAccess(false, false, true, false))
	writable := option("optB", sharing.NewAccess(false, false, false, true))
	hidden := option("optC", sharing.AccessDefault)
	hidden2 := option("optD", sharing.AccessDefault)

	dv := &datavalue.DataValue{
		CategoryOptionCombo:  combo("coc", hidden2, readable, hidden),
		AttributeOptionCombo: combo("aoc", writable, hidden),
	}

	assert.Equal(t, []string{
		"User has no data read access for CategoryOption: optC",
		"User has no data read access for CategoryOption: optD",
	}, m.CanReadDataValue(clerk, dv))

	assert.Empty(t, m.CanReadDataValue(admin, dv))
	assert.Empty(t, m.CanReadDataValue(nil, dv))
	assert.Empty(t, m.CanReadDataValue(clerk, &datavalue.DataValue{}))
}

func TestAggregateAccessManager_DataSet(t *testing.T) {
	m := newManager()
	ds := &datavalue.DataSet{UID: "dsANC", Sharing: &sharing.Sharing{
		PublicAccess: sharing.AccessDefault,
		UserGroups: []sharing.UserGroupAccess{{
			Access: sharing.NewAccess(true, false, true, false),
			Group:  usergroup.New(30, "nurses"),
		}},
	}}

	assert.Empty(t, m.CanReadDataSet(clerk, ds))
	assert.Equal(t, []string{"User does not have write access for DataSet: dsANC"}, m.CanWriteDataSet(clerk, ds))

	outsider := &user.User{UID: "outsider"}
	assert.Equal(t, []string{"User does not have read access for DataSet: dsANC"}, m.CanReadDataSet(outsider, ds))

	assert.Empty(t, m.CanWriteDataSet(admin, ds))
	assert.Empty(t, m.CanWriteDataSet(nil, ds))
}

func TestAggregateAccessManager_OptionCombo(t *testing.T) {
	m := newManager()
	grant := sharing.UserAccess{UserUID: "clerk", Access: sharing.NewAccess(false, false, true, true)}
	coc := combo("coc",
		option("optA", sharing.AccessDefault, grant),
		option("optB", sharing.NewAccess(false, false, true, false)),
	)

	assert.Equal(t, []string{"User has no data write access for CategoryOption: optB"}, m.CanWriteOptionCombo(clerk, coc))
	assert.Empty(t, m.CanReadOptionCombo(clerk, coc))
	assert.Empty(t, m.CanWriteOptionCombo(admin, coc))
}

func TestAggregateAccessManager_CanWriteOperand(t *testing.T) {
	m := newManager()
	shared := option("optShared", sharing.AccessDefault)
	op := &datavalue.DataElementOperand{
		DataElement:          "deWeight",
		CategoryOptionCombo:  combo("coc", shared),
		AttributeOptionCombo: combo("aoc", shared, option("optOpen", sharing.NewAccess(false, false, true, true))),
	}
	assert.Equal(t, []string{"User has no data write access for CategoryOption: optShared"}, m.CanWriteOperand(clerk, op))

	op.AttributeOptionCombo = nil
	assert.Len(t, m.CanWriteOperand(clerk, op), 1)
}

func TestAggregateAccessManager_CanWriteOptionComboCached(t *testing.T) {
	acl := &countingAcl{AclService: coreServices.NewAclService()}
	m := services.NewAggregateAccessManager(acl, time.Hour, 100)
	coc := combo("coc", option("optA", sharing.AccessDefault), option("optB", sharing.AccessDefault))

	first := m.CanWriteOptionComboCached(clerk, coc)
	assert.Len(t, first, 2)
	assert.Equal(t, 2, acl.writes)

	first[0] = "mutated"
	second := m.CanWriteOptionComboCached(clerk, coc)
	assert.Equal(t, "User has no data write access for CategoryOption: optA", second[0])
	assert.Equal(t, 2, acl.writes)
	assert.NotNil(t, m.Cache().Get("clerk-coc"))

	other := &user.User{UID: "other"}
	m.CanWriteOptionComboCached(other, coc)
	assert.Equal(t, 4, acl.writes)

	assert.Empty(t, m.CanWriteOptionComboCached(nil, coc))
}
