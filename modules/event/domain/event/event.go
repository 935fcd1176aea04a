package event

import (
	"time"
)

type Event struct {
	ID              int64        `json:"-"`
	UID             string       `json:"event"`
	EnrollmentUID   string       `json:"enrollment,omitempty"`
	ProgramUID      string       `json:"program"`
	ProgramStageUID string       `json:"programStage"`
	OrgUnitUID      string       `json:"orgUnit,omitempty"`
	Status          string       `json:"status,omitempty"`
	OccurredAt      *time.Time   `json:"occurredAt,omitempty"`
	ScheduledAt     *time.Time   `json:"scheduledAt,omitempty"`
	CreatedAt       *time.Time   `json:"createdAt,omitempty"`
	UpdatedAt       *time.Time   `json:"updatedAt,omitempty"`
	Deleted         bool         `json:"deleted"`
	DataValues      []*DataValue `json:"dataValues"`
	Notes           []*Note      `json:"notes"`
}

type DataValue struct {
	DataElement       string     `json:"dataElement"`
	Value             string     `json:"value"`
	ProvidedElsewhere bool       `json:"providedElsewhere"`
	StoredBy          string     `json:"storedBy,omitempty"`
	CreatedAt         *time.Time `json:"createdAt,omitempty"`
	UpdatedAt         *time.Time `json:"updatedAt,omitempty"`
}

type Note struct {
	UID      string     `json:"note"`
	Value    string     `json:"value"`
	StoredBy string     `json:"storedBy,omitempty"`
	StoredAt *time.Time `json:"storedAt,omitempty"`
}

// AggregateContext carries the identity and readable metadata ids that scope an event query.
type AggregateContext struct {
	UserID             int64
	UserUID            string
	SuperUser          bool
	Programs           []int64
	ProgramStages      []int64
	TrackedEntityTypes []int64
	IncludeDeleted     bool
}
