package persistence_test

import (
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hmis-dev/hmis-sdk/modules/event/domain/event"
	"github.com/hmis-dev/hmis-sdk/modules/event/infrastructure/persistence"
)

var eventColumns = []string{
	"programstageinstanceid", "uid", "status", "executiondate", "duedate", "created",
	"lastupdated", "deleted", "enrollment_uid", "program_uid", "program_stage_uid", "org_unit_uid",
}

func TestEventStore_GetEventsByEnrollmentIDs_SuperUser(t *testing.T) {
	ctx, mock := setupTest(t)
	occurred := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta(
		`WHERE psi.programinstanceid IN ($1, $2) AND psi.deleted = false ORDER BY psi.programinstanceid`)).
		WithArgs(int64(1), int64(2)).
		WillReturnRows(sqlmock.NewRows(eventColumns).
			AddRow(100, "evtA0000001", "ACTIVE", occurred, nil, occurred, occurred, false,
				"enrA0000001", "prgTracker1", "stageBirth1", "ouClinic001").
			AddRow(101, "evtB0000001", "COMPLETED", nil, nil, nil, nil, false,
				"enrA0000001", "prgTracker1", "stageVisit1", "").
			AddRow(102, "evtC0000001", "ACTIVE", nil, nil, nil, nil, false,
				"enrB0000001", "prgTracker1", "stageBirth1", ""))

	got, err := persistence.NewEventStore(0).GetEventsByEnrollmentIDs(ctx, []int64{1, 2},
		&event.AggregateContext{SuperUser: true})
	require.NoError(t, err)
	require.Len(t, got["enrA0000001"], 2)
	require.Len(t, got["enrB0000001"], 1)
	first := got["enrA0000001"][0]
	assert.Equal(t, int64(100), first.ID)
	require.NotNil(t, first.OccurredAt)
	assert.True(t, occurred.Equal(*first.OccurredAt))
	assert.Nil(t, first.ScheduledAt)
}

func TestEventStore_GetEventsByEnrollmentIDs_AclFilter(t *testing.T) {
	ctx, mock := setupTest(t)

	mock.ExpectQuery(`psi\.programstageid IN \(\$2, \$3\) AND p\.trackedentitytypeid IN \(\$4\)(.|\n)*AND pi\.programid IN \(\$5\)`).
		WithArgs(int64(1), int64(11), int64(12), int64(50), int64(2)).
		WillReturnRows(sqlmock.NewRows(eventColumns))

	got, err := persistence.NewEventStore(10).GetEventsByEnrollmentIDs(ctx, []int64{1}, &event.AggregateContext{
		Programs:           []int64{2},
		ProgramStages:      []int64{11, 12},
		TrackedEntityTypes: []int64{50},
		IncludeDeleted:     true,
	})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestEventStore_GetEventsByEnrollmentIDs_NoReadableTrackedEntityTypes(t *testing.T) {
	ctx, mock := setupTest(t)

	mock.ExpectQuery(`THEN false\s+ELSE true END(.|\n)*AND pi\.programid IN \(\$2\)`).
		WithArgs(int64(1), int64(2)).
		WillReturnRows(sqlmock.NewRows(eventColumns))

	_, err := persistence.NewEventStore(10).GetEventsByEnrollmentIDs(ctx, []int64{1}, &event.AggregateContext{
		Programs: []int64{2},
	})
	require.NoError(t, err)
}

func TestEventStore_GetEventsByEnrollmentIDs_NoReadablePrograms(t *testing.T) {
	ctx, _ := setupTest(t)

	got, err := persistence.NewEventStore(10).GetEventsByEnrollmentIDs(ctx, []int64{1, 2}, &event.AggregateContext{})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestEventStore_GetEventsByEnrollmentIDs_Partitions(t *testing.T) {
	ctx, mock := setupTest(t)

	mock.ExpectQuery(regexp.QuoteMeta(`IN ($1, $2)`)).
		WithArgs(int64(1), int64(2)).
		WillReturnRows(sqlmock.NewRows(eventColumns).
			AddRow(100, "evtA0000001", "ACTIVE", nil, nil, nil, nil, false, "enrA0000001", "p", "s", ""))
	mock.ExpectQuery(regexp.QuoteMeta(`IN ($1)`)).
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows(eventColumns).
			AddRow(101, "evtB0000001", "ACTIVE", nil, nil, nil, nil, false, "enrC0000001", "p", "s", ""))

	got, err := persistence.NewEventStore(2).GetEventsByEnrollmentIDs(ctx, []int64{1, 2, 3},
		&event.AggregateContext{SuperUser: true})
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestEventStore_GetDataValues(t *testing.T) {
	ctx, mock := setupTest(t)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM programstageinstance psi WHERE psi.programstageinstanceid IN ($1, $2)`)).
		WithArgs(int64(100), int64(101)).
		WillReturnRows(sqlmock.NewRows([]string{"key", "eventdatavalues"}).
			AddRow("evtA0000001", []byte(`{
				"deWeight001": {"value": "3.4", "storedBy": "alice", "created": "2024-03-01T10:00:00Z"},
				"deHeight001": {"value": "51", "providedElsewhere": true}
			}`)).
			AddRow("evtB0000001", nil))

	got, err := persistence.NewEventStore(0).GetDataValues(ctx, []int64{100, 101})
	require.NoError(t, err)
	values := got["evtA0000001"]
	require.Len(t, values, 2)
	assert.Equal(t, "deHeight001", values[0].DataElement)
	assert.True(t, values[0].ProvidedElsewhere)
	assert.Equal(t, "deWeight001", values[1].DataElement)
	assert.Equal(t, "alice", values[1].StoredBy)
	require.NotNil(t, values[1].CreatedAt)
	assert.Empty(t, got["evtB0000001"])
}

func TestEventStore_GetDataValues_ZonelessTimestamps(t *testing.T) {
	ctx, mock := setupTest(t)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM programstageinstance psi`)).
		WillReturnRows(sqlmock.NewRows([]string{"key", "eventdatavalues"}).
			AddRow("evtA0000001", []byte(`{
				"deWeight001": {"value": "3.4", "created": "2019-08-30T12:07:27.412", "lastUpdated": "2019-08-30T12:07:27"}
			}`)))

	got, err := persistence.NewEventStore(0).GetDataValues(ctx, []int64{100})
	require.NoError(t, err)
	require.Len(t, got["evtA0000001"], 1)
	v := got["evtA0000001"][0]
	require.NotNil(t, v.CreatedAt)
	assert.Equal(t, time.Date(2019, 8, 30, 12, 7, 27, 412000000, time.UTC), *v.CreatedAt)
	require.NotNil(t, v.UpdatedAt)
	assert.Equal(t, time.Date(2019, 8, 30, 12, 7, 27, 0, time.UTC), *v.UpdatedAt)
}

func TestEventStore_GetDataValues_Malformed(t *testing.T) {
	ctx, mock := setupTest(t)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM programstageinstance psi`)).
		WillReturnRows(sqlmock.NewRows([]string{"key", "eventdatavalues"}).AddRow("evtA0000001", []byte(`[1,2]`)))

	_, err := persistence.NewEventStore(0).GetDataValues(ctx, []int64{100})
	require.ErrorContains(t, err, "evtA0000001")
}

func TestEventStore_GetNotes(t *testing.T) {
	ctx, mock := setupTest(t)
	stored := time.Date(2024, 3, 2, 8, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta(`WHERE psic.programstageinstanceid IN ($1)`)).
		WithArgs(int64(100)).
		WillReturnRows(sqlmock.NewRows([]string{"key", "uid", "commenttext", "creator", "created"}).
			AddRow("evtA0000001", "note0000001", "first visit", "alice", stored).
			AddRow("evtA0000001", "note0000002", "follow up", "", nil))

	got, err := persistence.NewEventStore(0).GetNotes(ctx, []int64{100})
	require.NoError(t, err)
	require.Len(t, got["evtA0000001"], 2)
	assert.Equal(t, "first visit", got["evtA0000001"][0].Value)
	assert.Equal(t, "alice", got["evtA0000001"][0].StoredBy)
	assert.Nil(t, got["evtA0000001"][1].StoredAt)
}

func TestEventStore_ResolveEnrollmentIDs(t *testing.T) {
	ctx, mock := setupTest(t)

	mock.ExpectQuery(regexp.QuoteMeta(`WHERE pi.uid IN ($1, $2)`)).
		WithArgs("enrA0000001", "enrMissing1").
		WillReturnRows(sqlmock.NewRows([]string{"uid", "programinstanceid"}).AddRow("enrA0000001", 1))

	got, err := persistence.NewEventStore(0).ResolveEnrollmentIDs(ctx, []string{"enrA0000001", "enrMissing1"})
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"enrA0000001": 1}, got)
}
