package services

import (
	"context"
	"fmt"
	"maps"
	"slices"

	mapset "github.com/deckarep/golang-set/v2"
	"golang.org/x/sync/errgroup"

	"github.com/hmis-dev/hmis-sdk/modules/core/domain/aggregates/user"
	"github.com/hmis-dev/hmis-sdk/modules/core/domain/entities/sharing"
	"github.com/hmis-dev/hmis-sdk/modules/event/domain/event"
	"github.com/hmis-dev/hmis-sdk/pkg/composables"
	"github.com/hmis-dev/hmis-sdk/pkg/eventbus"
)

type ProgramSupplier interface {
	Get(ctx context.Context) (map[string]*event.Program, error)
}

type EventStore interface {
	GetEventsByEnrollmentIDs(ctx context.Context, ids []int64, aggCtx *event.AggregateContext) (map[string][]*event.Event, error)
	GetDataValues(ctx context.Context, eventIDs []int64) (map[string][]*event.DataValue, error)
	GetNotes(ctx context.Context, eventIDs []int64) (map[string][]*event.Note, error)
	ResolveEnrollmentIDs(ctx context.Context, uids []string) (map[string]int64, error)
}

type AccessChecker interface {
	CanDataRead(u *user.User, obj sharing.Shareable) bool
	CanDataWrite(u *user.User, obj sharing.Shareable) bool
}

// Conflict describes why an event would be rejected by an import.
type Conflict struct {
	Index   int    `json:"index"`
	Event   string `json:"event,omitempty"`
	Message string `json:"message"`
}

type PreflightResult struct {
	Conflicts []Conflict `json:"conflicts"`
}

func (r *PreflightResult) OK() bool {
	return len(r.Conflicts) == 0
}

type EventService struct {
	programs  ProgramSupplier
	store     EventStore
	acl       AccessChecker
	publisher eventbus.EventBus
	authorize Authorizer
}

func NewEventService(
	programs ProgramSupplier,
	store EventStore,
	acl AccessChecker,
	publisher eventbus.EventBus,
) *EventService {
	return &EventService{
		programs:  programs,
		store:     store,
		acl:       acl,
		publisher: publisher,
		authorize: defaultAuthorizer,
	}
}

// WithAuthorizer replaces the policy check guarding the service operations.
func (s *EventService) WithAuthorizer(fn Authorizer) *EventService {
	s.authorize = fn
	return s
}

// BuildAggregateContext collects the ids of the programs, program stages and tracked
// entity types u can read data of. Superusers and a nil user are not filtered.
func (s *EventService) BuildAggregateContext(
	ctx context.Context,
	u *user.User,
	includeDeleted bool,
) (*event.AggregateContext, error) {
	aggCtx := &event.AggregateContext{IncludeDeleted: includeDeleted}
	if u == nil || u.IsSuper() {
		aggCtx.SuperUser = true
		if u != nil {
			aggCtx.UserID, aggCtx.UserUID = u.ID, u.UID
		}
		return aggCtx, nil
	}
	aggCtx.UserID, aggCtx.UserUID = u.ID, u.UID

	programs, err := s.programs.Get(ctx)
	if err != nil {
		return nil, err
	}
	programIDs := mapset.NewThreadUnsafeSet[int64]()
	stageIDs := mapset.NewThreadUnsafeSet[int64]()
	tetIDs := mapset.NewThreadUnsafeSet[int64]()
	for _, p := range programs {
		if s.acl.CanDataRead(u, p) {
			programIDs.Add(p.ID)
		}
		for _, st := range p.Stages {
			if s.acl.CanDataRead(u, st) {
				stageIDs.Add(st.ID)
			}
		}
		if tet := p.TrackedEntityType; tet != nil && s.acl.CanDataRead(u, tet) {
			tetIDs.Add(tet.ID)
		}
	}
	aggCtx.Programs = sortedIDs(programIDs)
	aggCtx.ProgramStages = sortedIDs(stageIDs)
	aggCtx.TrackedEntityTypes = sortedIDs(tetIDs)
	return aggCtx, nil
}

func sortedIDs(set mapset.Set[int64]) []int64 {
	out := set.ToSlice()
	slices.Sort(out)
	return out
}

// GetEventsByEnrollments returns the events u can read for the given enrollments,
// keyed by enrollment UID, with their data values and notes attached.
func (s *EventService) GetEventsByEnrollments(
	ctx context.Context,
	u *user.User,
	enrollmentUIDs []string,
	includeDeleted bool,
) (map[string][]*event.Event, error) {
	if err := s.authorize(ctx, u, EventsAuthzObject, "read"); err != nil {
		return nil, err
	}
	out := make(map[string][]*event.Event)
	if len(enrollmentUIDs) == 0 {
		return out, nil
	}
	resolved, err := s.store.ResolveEnrollmentIDs(ctx, enrollmentUIDs)
	if err != nil {
		return nil, err
	}
	if len(resolved) == 0 {
		return out, nil
	}
	ids := slices.Sorted(maps.Values(resolved))

	aggCtx, err := s.BuildAggregateContext(ctx, u, includeDeleted)
	if err != nil {
		return nil, err
	}
	events, err := s.store.GetEventsByEnrollmentIDs(ctx, ids, aggCtx)
	if err != nil {
		return nil, err
	}

	var eventIDs []int64
	for _, list := range events {
		for _, e := range list {
			eventIDs = append(eventIDs, e.ID)
		}
	}
	if len(eventIDs) == 0 {
		return events, nil
	}

	var (
		values map[string][]*event.DataValue
		notes  map[string][]*event.Note
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		values, err = s.store.GetDataValues(gctx, eventIDs)
		return err
	})
	g.Go(func() error {
		var err error
		notes, err = s.store.GetNotes(gctx, eventIDs)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, list := range events {
		for _, e := range list {
			e.DataValues = values[e.UID]
			if e.DataValues == nil {
				e.DataValues = []*event.DataValue{}
			}
			e.Notes = notes[e.UID]
			if e.Notes == nil {
				e.Notes = []*event.Note{}
			}
		}
	}
	composables.UseLogger(ctx).WithField("component", "event.service").
		WithField("enrollments", len(ids)).
		WithField("events", len(eventIDs)).
		Debug("events loaded")
	return events, nil
}

// PreflightImport checks the events against the program metadata and u's sharing
// grants without writing anything.
func (s *EventService) PreflightImport(ctx context.Context, u *user.User, events []*event.Event) (*PreflightResult, error) {
	if err := s.authorize(ctx, u, EventsAuthzObject, "import"); err != nil {
		return nil, err
	}
	programs, err := s.programs.Get(ctx)
	if err != nil {
		return nil, err
	}
	result := &PreflightResult{Conflicts: []Conflict{}}
	for i, e := range events {
		for _, msg := range s.checkEvent(u, programs, e) {
			result.Conflicts = append(result.Conflicts, Conflict{Index: i, Event: e.UID, Message: msg})
		}
	}
	return result, nil
}

func (s *EventService) checkEvent(u *user.User, programs map[string]*event.Program, e *event.Event) []string {
	program, ok := programs[e.ProgramUID]
	if !ok {
		return []string{fmt.Sprintf("Program: `%s`, does not point to a valid program", e.ProgramUID)}
	}
	var conflicts []string
	stage := program.Stage(e.ProgramStageUID)
	if stage == nil && e.ProgramStageUID == "" && !program.IsRegistration() && len(program.Stages) == 1 {
		stage = program.Stages[0]
	}
	if stage == nil {
		conflicts = append(conflicts, fmt.Sprintf(
			"ProgramStage: `%s`, does not point to a valid programStage of program `%s`", e.ProgramStageUID, program.UID))
	}
	if program.IsRegistration() && e.EnrollmentUID == "" {
		conflicts = append(conflicts, fmt.Sprintf("Enrollment is required for program `%s`", program.UID))
	}
	if !s.acl.CanDataWrite(u, program) {
		conflicts = append(conflicts, fmt.Sprintf(
			"User: `%s`, has no data write access to Program: `%s`", userUID(u), program.UID))
	}
	if stage != nil && !s.acl.CanDataWrite(u, stage) {
		conflicts = append(conflicts, fmt.Sprintf(
			"User: `%s`, has no data write access to ProgramStage: `%s`", userUID(u), stage.UID))
	}
	if tet := program.TrackedEntityType; program.IsRegistration() && tet != nil && !s.acl.CanDataRead(u, tet) {
		conflicts = append(conflicts, fmt.Sprintf(
			"User: `%s`, has no data read access to TrackedEntityType: `%s`", userUID(u), tet.UID))
	}
	return conflicts
}

// InvalidatePrograms announces that program metadata changed so cached copies are dropped.
func (s *EventService) InvalidatePrograms(ctx context.Context, u *user.User) error {
	if err := s.authorize(ctx, u, EventsAuthzObject, "invalidate"); err != nil {
		return err
	}
	s.publisher.Publish(&event.ProgramsChanged{})
	composables.UseLogger(ctx).WithField("component", "event.service").
		WithField("user", userUID(u)).Info("program cache invalidation requested")
	return nil
}

func userUID(u *user.User) string {
	if u == nil {
		return ""
	}
	return u.UID
}
