package services

import (
	"context"
	"fmt"

	"github.com/hmis-dev/hmis-sdk/modules/core/domain/aggregates/user"
	"github.com/hmis-dev/hmis-sdk/modules/datavalue/domain/datavalue"
	"github.com/hmis-dev/hmis-sdk/pkg/composables"
)

const (
	ActionRead  = "read"
	ActionWrite = "write"
)

// AccessCheck names the objects a data value read or write would touch.
type AccessCheck struct {
	Action               string
	DataElement          string
	DataSet              string
	CategoryOptionCombo  string
	AttributeOptionCombo string
}

type AccessCheckResult struct {
	Allowed    bool     `json:"allowed"`
	Violations []string `json:"violations"`
}

// AccessCheckService resolves the objects named in an AccessCheck and runs the
// matching AggregateAccessManager checks.
type AccessCheckService struct {
	combos    datavalue.CategoryOptionComboRepository
	dataSets  datavalue.DataSetRepository
	manager   *AggregateAccessManager
	authorize Authorizer
}

func NewAccessCheckService(
	combos datavalue.CategoryOptionComboRepository,
	dataSets datavalue.DataSetRepository,
	manager *AggregateAccessManager,
) *AccessCheckService {
	return &AccessCheckService{
		combos:    combos,
		dataSets:  dataSets,
		manager:   manager,
		authorize: defaultAuthorizer,
	}
}

// WithAuthorizer replaces the policy check guarding CheckAccess.
func (s *AccessCheckService) WithAuthorizer(fn Authorizer) *AccessCheckService {
	s.authorize = fn
	return s
}

func (s *AccessCheckService) CheckAccess(ctx context.Context, u *user.User, req AccessCheck) (*AccessCheckResult, error) {
	if err := s.authorize(ctx, u, AccessAuthzObject, "check"); err != nil {
		return nil, err
	}
	violations := []string{}

	if req.DataSet != "" {
		ds, err := s.dataSets.GetByUID(ctx, req.DataSet)
		if err != nil {
			return nil, err
		}
		if req.Action == ActionWrite {
			violations = append(violations, s.manager.CanWriteDataSet(u, ds)...)
		} else {
			violations = append(violations, s.manager.CanReadDataSet(u, ds)...)
		}
	}

	var uids []string
	for _, uid := range []string{req.CategoryOptionCombo, req.AttributeOptionCombo} {
		if uid != "" {
			uids = append(uids, uid)
		}
	}
	combos, err := s.combos.GetByUIDs(ctx, uids...)
	if err != nil {
		return nil, err
	}
	for _, uid := range uids {
		if _, ok := combos[uid]; !ok {
			return nil, fmt.Errorf("%w: %s", datavalue.ErrCategoryOptionComboNotFound, uid)
		}
	}
	coc := combos[req.CategoryOptionCombo]
	aoc := combos[req.AttributeOptionCombo]

	switch {
	case req.Action == ActionWrite && coc == nil && aoc != nil:
		violations = append(violations, s.manager.CanWriteOptionComboCached(u, aoc)...)
	case req.Action == ActionWrite:
		violations = append(violations, s.manager.CanWriteOperand(u, &datavalue.DataElementOperand{
			DataElement:          req.DataElement,
			CategoryOptionCombo:  coc,
			AttributeOptionCombo: aoc,
		})...)
	default:
		violations = append(violations, s.manager.CanReadDataValue(u, &datavalue.DataValue{
			DataElement:          req.DataElement,
			CategoryOptionCombo:  coc,
			AttributeOptionCombo: aoc,
		})...)
	}

	if len(violations) > 0 {
		composables.UseLogger(ctx).WithField("component", "datavalue").
			WithField("violations", len(violations)).
			Debug("data value access denied")
	}
	return &AccessCheckResult{Allowed: len(violations) == 0, Violations: violations}, nil
}
