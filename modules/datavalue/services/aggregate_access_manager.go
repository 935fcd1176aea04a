package services

import (
	"slices"
	"strings"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/jellydator/ttlcache/v3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/hmis-dev/hmis-sdk/modules/core/domain/aggregates/user"
	"github.com/hmis-dev/hmis-sdk/modules/core/domain/entities/sharing"
	"github.com/hmis-dev/hmis-sdk/modules/datavalue/domain/datavalue"
)

const (
	msgNoDataReadOption  = "User has no data read access for CategoryOption: "
	msgNoDataWriteOption = "User has no data write access for CategoryOption: "
	msgNoWriteDataSet    = "User does not have write access for DataSet: "
	msgNoReadDataSet     = "User does not have read access for DataSet: "
)

var violationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "datavalue_access_violations_total",
	Help: "Data value access violations reported by the aggregate access manager.",
}, []string{"check"})

// AccessChecker answers sharing questions for a single object.
type AccessChecker interface {
	CanDataRead(u *user.User, obj sharing.Shareable) bool
	CanDataWrite(u *user.User, obj sharing.Shareable) bool
}

// AggregateAccessManager reports why a user may not read or write aggregate data.
// Every check returns the violations found; an empty slice means access is granted.
type AggregateAccessManager struct {
	acl      AccessChecker
	cocCache *ttlcache.Cache[string, []string]
}

func NewAggregateAccessManager(acl AccessChecker, ttl time.Duration, capacity uint64) *AggregateAccessManager {
	return &AggregateAccessManager{
		acl: acl,
		cocCache: ttlcache.New[string, []string](
			ttlcache.WithTTL[string, []string](ttl),
			ttlcache.WithCapacity[string, []string](capacity),
			ttlcache.WithDisableTouchOnHit[string, []string](),
		),
	}
}

// Cache exposes the option combo write-check cache for metrics collection.
func (m *AggregateAccessManager) Cache() *ttlcache.Cache[string, []string] {
	return m.cocCache
}

func bypass(u *user.User) bool {
	return u == nil || u.IsSuper()
}

// options returns the distinct options of the given combos ordered by UID.
func options(combos ...*datavalue.CategoryOptionCombo) []*datavalue.CategoryOption {
	seen := mapset.NewThreadUnsafeSet[string]()
	var out []*datavalue.CategoryOption
	for _, coc := range combos {
		if coc == nil {
			continue
		}
		for _, o := range coc.Options {
			if o == nil || !seen.Add(o.UID) {
				continue
			}
			out = append(out, o)
		}
	}
	slices.SortFunc(out, func(a, b *datavalue.CategoryOption) int {
		return strings.Compare(a.UID, b.UID)
	})
	return out
}

func (m *AggregateAccessManager) checkOptions(
	check string,
	opts []*datavalue.CategoryOption,
	allowed func(*datavalue.CategoryOption) bool,
	msg string,
) []string {
	errs := []string{}
	for _, o := range opts {
		if !allowed(o) {
			errs = append(errs, msg+o.UID)
		}
	}
	if len(errs) > 0 {
		violationsTotal.WithLabelValues(check).Add(float64(len(errs)))
	}
	return errs
}

func (m *AggregateAccessManager) canRead(u *user.User) func(*datavalue.CategoryOption) bool {
	return func(o *datavalue.CategoryOption) bool { return m.acl.CanDataRead(u, o) }
}

func (m *AggregateAccessManager) canWrite(u *user.User) func(*datavalue.CategoryOption) bool {
	return func(o *datavalue.CategoryOption) bool { return m.acl.CanDataWrite(u, o) }
}

// CanReadDataValue checks data read access to every option of both combos of dv.
func (m *AggregateAccessManager) CanReadDataValue(u *user.User, dv *datavalue.DataValue) []string {
	if bypass(u) || dv == nil {
		return []string{}
	}
	opts := options(dv.CategoryOptionCombo, dv.AttributeOptionCombo)
	return m.checkOptions("read_data_value", opts, m.canRead(u), msgNoDataReadOption)
}

func (m *AggregateAccessManager) CanWriteDataSet(u *user.User, ds *datavalue.DataSet) []string {
	if bypass(u) {
		return []string{}
	}
	if ds == nil || !m.acl.CanDataWrite(u, ds) {
		violationsTotal.WithLabelValues("write_data_set").Inc()
		return []string{msgNoWriteDataSet + dataSetUID(ds)}
	}
	return []string{}
}

func (m *AggregateAccessManager) CanReadDataSet(u *user.User, ds *datavalue.DataSet) []string {
	if bypass(u) {
		return []string{}
	}
	if ds == nil || !m.acl.CanDataRead(u, ds) {
		violationsTotal.WithLabelValues("read_data_set").Inc()
		return []string{msgNoReadDataSet + dataSetUID(ds)}
	}
	return []string{}
}

func dataSetUID(ds *datavalue.DataSet) string {
	if ds == nil {
		return ""
	}
	return ds.UID
}

func (m *AggregateAccessManager) CanWriteOptionCombo(u *user.User, coc *datavalue.CategoryOptionCombo) []string {
	if bypass(u) {
		return []string{}
	}
	return m.checkOptions("write_option_combo", options(coc), m.canWrite(u), msgNoDataWriteOption)
}

// CanWriteOptionComboCached is CanWriteOptionCombo memoized per user and combo UID.
func (m *AggregateAccessManager) CanWriteOptionComboCached(u *user.User, coc *datavalue.CategoryOptionCombo) []string {
	if u == nil || coc == nil {
		return []string{}
	}
	key := u.UID + "-" + coc.UID
	loader := ttlcache.LoaderFunc[string, []string](
		func(c *ttlcache.Cache[string, []string], key string) *ttlcache.Item[string, []string] {
			return c.Set(key, m.CanWriteOptionCombo(u, coc), ttlcache.DefaultTTL)
		},
	)
	item := m.cocCache.Get(key, ttlcache.WithLoader[string, []string](loader))
	return slices.Clone(item.Value())
}

func (m *AggregateAccessManager) CanReadOptionCombo(u *user.User, coc *datavalue.CategoryOptionCombo) []string {
	if bypass(u) {
		return []string{}
	}
	return m.checkOptions("read_option_combo", options(coc), m.canRead(u), msgNoDataReadOption)
}

// CanWriteOperand checks data write access to every option of both combos of op.
func (m *AggregateAccessManager) CanWriteOperand(u *user.User, op *datavalue.DataElementOperand) []string {
	if bypass(u) || op == nil {
		return []string{}
	}
	opts := options(op.CategoryOptionCombo, op.AttributeOptionCombo)
	return m.checkOptions("write_operand", opts, m.canWrite(u), msgNoDataWriteOption)
}
