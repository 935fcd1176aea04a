package event

import (
	"github.com/hmis-dev/hmis-sdk/modules/core/domain/entities/sharing"
	"github.com/hmis-dev/hmis-sdk/pkg/serrors"
)

var ErrProgramNotFound = serrors.NewError("PROGRAM_NOT_FOUND", "program not found", "Event.ProgramNotFound")

type ProgramType string

const (
	WithRegistration    ProgramType = "WITH_REGISTRATION"
	WithoutRegistration ProgramType = "WITHOUT_REGISTRATION"
)

type FeatureType string

const (
	FeatureNone         FeatureType = "NONE"
	FeaturePoint        FeatureType = "POINT"
	FeaturePolygon      FeatureType = "POLYGON"
	FeatureMultiPolygon FeatureType = "MULTI_POLYGON"
	FeatureSymbol       FeatureType = "SYMBOL"
)

// ParseFeatureType maps a stored feature type to a known value; unknown or empty values are FeatureNone.
func ParseFeatureType(s string) FeatureType {
	switch ft := FeatureType(s); ft {
	case FeaturePoint, FeaturePolygon, FeatureMultiPolygon, FeatureSymbol:
		return ft
	}
	return FeatureNone
}

type CategoryCombo struct {
	ID   int64
	UID  string
	Name string
}

type OrganisationUnit struct {
	ID  int64
	UID string
}

type TrackedEntityType struct {
	ID      int64
	UID     string
	Sharing *sharing.Sharing
}

func (t *TrackedEntityType) GetUID() string               { return t.UID }
func (t *TrackedEntityType) GetSharing() *sharing.Sharing { return t.Sharing }

type ProgramStage struct {
	ID          int64
	UID         string
	SortOrder   int
	FeatureType FeatureType
	Sharing     *sharing.Sharing
}

func (s *ProgramStage) GetUID() string               { return s.UID }
func (s *ProgramStage) GetSharing() *sharing.Sharing { return s.Sharing }

type Program struct {
	ID                int64
	UID               string
	Name              string
	Type              ProgramType
	CategoryCombo     *CategoryCombo
	TrackedEntityType *TrackedEntityType
	// Stages are ordered by sort order.
	Stages            []*ProgramStage
	OrganisationUnits []*OrganisationUnit
	Sharing           *sharing.Sharing
}

func (p *Program) GetUID() string               { return p.UID }
func (p *Program) GetSharing() *sharing.Sharing { return p.Sharing }

func (p *Program) IsRegistration() bool {
	return p.Type == WithRegistration
}

// Stage returns the stage with the given UID, or nil.
func (p *Program) Stage(uid string) *ProgramStage {
	for _, s := range p.Stages {
		if s.UID == uid {
			return s
		}
	}
	return nil
}

// ProgramsChanged asks holders of cached program metadata to reload it.
type ProgramsChanged struct{}
