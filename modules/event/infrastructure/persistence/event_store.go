package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"slices"
	"strings"
	"time"

	"github.com/go-faster/errors"

	"github.com/hmis-dev/hmis-sdk/modules/event/domain/event"
	"github.com/hmis-dev/hmis-sdk/pkg/composables"
	"github.com/hmis-dev/hmis-sdk/pkg/repo"
)

// DefaultPartitionSize bounds the number of ids bound into a single IN list.
const DefaultPartitionSize = 20000

const (
	selectEventsQuery = `
		SELECT psi.programstageinstanceid, psi.uid, COALESCE(psi.status, '') AS status,
		       psi.executiondate, psi.duedate, psi.created, psi.lastupdated, psi.deleted,
		       pi.uid AS enrollment_uid, p.uid AS program_uid, ps.uid AS program_stage_uid,
		       COALESCE(ou.uid, '') AS org_unit_uid
		FROM programstageinstance psi
		JOIN programinstance pi ON psi.programinstanceid = pi.programinstanceid
		JOIN program p ON pi.programid = p.programid
		JOIN programstage ps ON psi.programstageid = ps.programstageid
		LEFT JOIN organisationunit ou ON psi.organisationunitid = ou.organisationunitid`

	eventsOrderBy = `ORDER BY psi.programinstanceid, psi.programstageinstanceid`

	aclFilter = `
		CASE WHEN p.type = 'WITHOUT_REGISTRATION'
		     THEN psi.programstageid IN (:programStageIds) AND ${tet_filter}
		     ELSE true END
		AND pi.programid IN (:programIds)`

	aclFilterNoProgramStage = `
		CASE WHEN p.type = 'WITHOUT_REGISTRATION'
		     THEN ${tet_filter}
		     ELSE true END
		AND pi.programid IN (:programIds)`

	tetFilter = `p.trackedentitytypeid IN (:trackedEntityTypeIds)`

	selectDataValuesQuery = `
		SELECT psi.uid AS key, psi.eventdatavalues
		FROM programstageinstance psi
		WHERE psi.programstageinstanceid IN (:ids)`

	selectNotesQuery = `
		SELECT psi.uid AS key, tec.uid, COALESCE(tec.commenttext, '') AS commenttext,
		       COALESCE(tec.creator, '') AS creator, tec.created
		FROM trackedentitycomment tec
		JOIN programstageinstancecomments psic ON tec.trackedentitycommentid = psic.trackedentitycommentid
		JOIN programstageinstance psi ON psic.programstageinstanceid = psi.programstageinstanceid
		WHERE psic.programstageinstanceid IN (:ids)
		ORDER BY psi.uid, tec.created, tec.uid`

	selectEnrollmentIDsQuery = `
		SELECT pi.uid, pi.programinstanceid
		FROM programinstance pi
		WHERE pi.uid IN (:uids)`
)

type eventRow struct {
	ID              int64        `db:"programstageinstanceid"`
	UID             string       `db:"uid"`
	Status          string       `db:"status"`
	ExecutionDate   sql.NullTime `db:"executiondate"`
	DueDate         sql.NullTime `db:"duedate"`
	Created         sql.NullTime `db:"created"`
	LastUpdated     sql.NullTime `db:"lastupdated"`
	Deleted         bool         `db:"deleted"`
	EnrollmentUID   string       `db:"enrollment_uid"`
	ProgramUID      string       `db:"program_uid"`
	ProgramStageUID string       `db:"program_stage_uid"`
	OrgUnitUID      string       `db:"org_unit_uid"`
}

type dataValuesRow struct {
	Key        string `db:"key"`
	DataValues []byte `db:"eventdatavalues"`
}

type noteRow struct {
	Key     string       `db:"key"`
	UID     string       `db:"uid"`
	Text    string       `db:"commenttext"`
	Creator string       `db:"creator"`
	Created sql.NullTime `db:"created"`
}

type enrollmentRow struct {
	UID string `db:"uid"`
	ID  int64  `db:"programinstanceid"`
}

// storedDataValue is one entry of the eventdatavalues JSON object, keyed by data element UID.
type storedDataValue struct {
	Value             string     `json:"value"`
	ProvidedElsewhere bool       `json:"providedElsewhere"`
	StoredBy          string     `json:"storedBy"`
	Created           *storedTime `json:"created"`
	LastUpdated       *storedTime `json:"lastUpdated"`
}

// localTimestamp is the zone-less layout older rows carry; such values are read as UTC.
const localTimestamp = "2006-01-02T15:04:05.999999999"

type storedTime struct {
	time.Time
}

func (t *storedTime) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return errors.Wrap(err, "timestamp")
	}
	if s == "" {
		return nil
	}
	if v, err := time.Parse(time.RFC3339Nano, s); err == nil {
		t.Time = v
		return nil
	}
	v, err := time.ParseInLocation(localTimestamp, s, time.UTC)
	if err != nil {
		return errors.Wrapf(err, "timestamp %q", s)
	}
	t.Time = v
	return nil
}

func (t *storedTime) ptr() *time.Time {
	if t == nil || t.IsZero() {
		return nil
	}
	v := t.Time
	return &v
}

// EventStore reads events and their data values and notes in partitions.
type EventStore struct {
	partitionSize int
}

func NewEventStore(partitionSize int) *EventStore {
	if partitionSize <= 0 {
		partitionSize = DefaultPartitionSize
	}
	return &EventStore{partitionSize: partitionSize}
}

func nullTime(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

// GetEventsByEnrollmentIDs returns the events of the given enrollments visible under
// aggCtx, keyed by enrollment UID.
func (s *EventStore) GetEventsByEnrollmentIDs(
	ctx context.Context,
	enrollmentIDs []int64,
	aggCtx *event.AggregateContext,
) (map[string][]*event.Event, error) {
	out := make(map[string][]*event.Event)
	if !aggCtx.SuperUser && len(aggCtx.Programs) == 0 {
		return out, nil
	}
	for _, part := range repo.Partition(enrollmentIDs, s.partitionSize) {
		if err := s.eventsPartition(ctx, part, aggCtx, out); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func buildEventsQuery(aggCtx *event.AggregateContext) (string, map[string]any) {
	conditions := []string{"psi.programinstanceid IN (:ids)"}
	params := map[string]any{}
	if !aggCtx.IncludeDeleted {
		conditions = append(conditions, "psi.deleted = false")
	}
	if !aggCtx.SuperUser {
		filter := aclFilterNoProgramStage
		if len(aggCtx.ProgramStages) > 0 {
			filter = aclFilter
			params["programStageIds"] = aggCtx.ProgramStages
		}
		tet := "false"
		if len(aggCtx.TrackedEntityTypes) > 0 {
			tet = tetFilter
			params["trackedEntityTypeIds"] = aggCtx.TrackedEntityTypes
		}
		filter = strings.ReplaceAll(filter, "${tet_filter}", tet)
		params["programIds"] = aggCtx.Programs
		conditions = append(conditions, "("+strings.TrimSpace(filter)+")")
	}
	return repo.Join(selectEventsQuery, repo.JoinWhere(conditions...), eventsOrderBy), params
}

func (s *EventStore) eventsPartition(
	ctx context.Context,
	ids []int64,
	aggCtx *event.AggregateContext,
	out map[string][]*event.Event,
) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to get transaction")
	}
	template, params := buildEventsQuery(aggCtx)
	params["ids"] = ids
	query, args, err := repo.ExpandNamed(tx, template, params)
	if err != nil {
		return err
	}
	var rows []eventRow
	if err := tx.SelectContext(ctx, &rows, query, args...); err != nil {
		return errors.Wrap(err, "failed to load events")
	}
	for _, r := range rows {
		out[r.EnrollmentUID] = append(out[r.EnrollmentUID], &event.Event{
			ID:              r.ID,
			UID:             r.UID,
			EnrollmentUID:   r.EnrollmentUID,
			ProgramUID:      r.ProgramUID,
			ProgramStageUID: r.ProgramStageUID,
			OrgUnitUID:      r.OrgUnitUID,
			Status:          r.Status,
			OccurredAt:      nullTime(r.ExecutionDate),
			ScheduledAt:     nullTime(r.DueDate),
			CreatedAt:       nullTime(r.Created),
			UpdatedAt:       nullTime(r.LastUpdated),
			Deleted:         r.Deleted,
		})
	}
	return nil
}

// GetDataValues returns the data values of the given events keyed by event UID,
// ordered by data element UID.
func (s *EventStore) GetDataValues(ctx context.Context, eventIDs []int64) (map[string][]*event.DataValue, error) {
	out := make(map[string][]*event.DataValue)
	for _, part := range repo.Partition(eventIDs, s.partitionSize) {
		var rows []dataValuesRow
		if err := s.selectIDs(ctx, &rows, selectDataValuesQuery, part); err != nil {
			return nil, errors.Wrap(err, "failed to load event data values")
		}
		for _, r := range rows {
			values, err := decodeDataValues(r.DataValues)
			if err != nil {
				return nil, errors.Wrapf(err, "event %s", r.Key)
			}
			out[r.Key] = append(out[r.Key], values...)
		}
	}
	return out, nil
}

func decodeDataValues(raw []byte) ([]*event.DataValue, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var stored map[string]storedDataValue
	if err := json.Unmarshal(raw, &stored); err != nil {
		return nil, errors.Wrap(err, "decode eventdatavalues")
	}
	out := make([]*event.DataValue, 0, len(stored))
	for de, v := range stored {
		out = append(out, &event.DataValue{
			DataElement:       de,
			Value:             v.Value,
			ProvidedElsewhere: v.ProvidedElsewhere,
			StoredBy:          v.StoredBy,
			CreatedAt:         v.Created.ptr(),
			UpdatedAt:         v.LastUpdated.ptr(),
		})
	}
	slices.SortFunc(out, func(a, b *event.DataValue) int {
		return strings.Compare(a.DataElement, b.DataElement)
	})
	return out, nil
}

// GetNotes returns the notes of the given events keyed by event UID.
func (s *EventStore) GetNotes(ctx context.Context, eventIDs []int64) (map[string][]*event.Note, error) {
	out := make(map[string][]*event.Note)
	for _, part := range repo.Partition(eventIDs, s.partitionSize) {
		var rows []noteRow
		if err := s.selectIDs(ctx, &rows, selectNotesQuery, part); err != nil {
			return nil, errors.Wrap(err, "failed to load event notes")
		}
		for _, r := range rows {
			out[r.Key] = append(out[r.Key], &event.Note{
				UID:      r.UID,
				Value:    r.Text,
				StoredBy: r.Creator,
				StoredAt: nullTime(r.Created),
			})
		}
	}
	return out, nil
}

// ResolveEnrollmentIDs maps enrollment UIDs to database ids. Unknown UIDs are omitted.
func (s *EventStore) ResolveEnrollmentIDs(ctx context.Context, uids []string) (map[string]int64, error) {
	out := make(map[string]int64, len(uids))
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get transaction")
	}
	for _, part := range repo.Partition(uids, s.partitionSize) {
		query, args, err := repo.ExpandNamed(tx, selectEnrollmentIDsQuery, map[string]any{"uids": part})
		if err != nil {
			return nil, err
		}
		var rows []enrollmentRow
		if err := tx.SelectContext(ctx, &rows, query, args...); err != nil {
			return nil, errors.Wrap(err, "failed to resolve enrollments")
		}
		for _, r := range rows {
			out[r.UID] = r.ID
		}
	}
	return out, nil
}

func (s *EventStore) selectIDs(ctx context.Context, dest any, template string, ids []int64) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to get transaction")
	}
	query, args, err := repo.ExpandNamed(tx, template, map[string]any{"ids": ids})
	if err != nil {
		return err
	}
	return tx.SelectContext(ctx, dest, query, args...)
}
