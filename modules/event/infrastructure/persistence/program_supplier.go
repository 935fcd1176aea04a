package persistence

import (
	"context"
	"database/sql"
	"sync"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/go-faster/errors"
	"github.com/jellydator/ttlcache/v3"

	"github.com/hmis-dev/hmis-sdk/modules/core/domain/entities/sharing"
	corePersistence "github.com/hmis-dev/hmis-sdk/modules/core/infrastructure/persistence"
	"github.com/hmis-dev/hmis-sdk/modules/event/domain/event"
	"github.com/hmis-dev/hmis-sdk/pkg/composables"
)

const programCacheKey = "000P"

const (
	selectProgramsQuery = `
		SELECT p.programid, p.uid, COALESCE(p.name, '') AS name, p.type, p.publicaccess,
		       tet.trackedentitytypeid, tet.uid AS tet_uid, tet.publicaccess AS tet_public_access,
		       c.categorycomboid AS catcombo_id, c.uid AS catcombo_uid, c.name AS catcombo_name,
		       ps.programstageid AS ps_id, ps.uid AS ps_uid, ps.featuretype AS ps_feature_type,
		       ps.sort_order, ps.publicaccess AS ps_public_access
		FROM program p
		LEFT JOIN categorycombo c ON p.categorycomboid = c.categorycomboid
		LEFT JOIN trackedentitytype tet ON p.trackedentitytypeid = tet.trackedentitytypeid
		LEFT JOIN programstage ps ON p.programid = ps.programid
		ORDER BY p.programid, ps.sort_order, ps.programstageid`

	selectProgramOrgUnitsQuery = `
		SELECT p.programid, o.organisationunitid, o.uid
		FROM program_organisationunits p
		JOIN organisationunit o ON p.organisationunitid = o.organisationunitid
		ORDER BY p.programid, o.organisationunitid`
)

type programRow struct {
	ID                   int64          `db:"programid"`
	UID                  string         `db:"uid"`
	Name                 string         `db:"name"`
	Type                 string         `db:"type"`
	PublicAccess         sql.NullString `db:"publicaccess"`
	TrackedEntityTypeID  sql.NullInt64  `db:"trackedentitytypeid"`
	TrackedEntityTypeUID sql.NullString `db:"tet_uid"`
	TrackedEntityTypeAcl sql.NullString `db:"tet_public_access"`
	CategoryComboID      sql.NullInt64  `db:"catcombo_id"`
	CategoryComboUID     sql.NullString `db:"catcombo_uid"`
	CategoryComboName    sql.NullString `db:"catcombo_name"`
	StageID              sql.NullInt64  `db:"ps_id"`
	StageUID             sql.NullString `db:"ps_uid"`
	StageFeatureType     sql.NullString `db:"ps_feature_type"`
	StageSortOrder       sql.NullInt64  `db:"sort_order"`
	StagePublicAccess    sql.NullString `db:"ps_public_access"`
}

type orgUnitRow struct {
	ProgramID int64  `db:"programid"`
	ID        int64  `db:"organisationunitid"`
	UID       string `db:"uid"`
}

// ProgramSupplier loads the full program hierarchy with sharing settings and keeps
// it in memory. User group members are cached separately.
type ProgramSupplier struct {
	sharing  *corePersistence.SharingLoader
	programs *ttlcache.Cache[string, map[string]*event.Program]
	groups   *ttlcache.Cache[int64, mapset.Set[string]]

	// gen counts invalidations; loads that overlap one are not cached.
	mu  sync.Mutex
	gen uint64
}

func NewProgramSupplier(loader *corePersistence.SharingLoader, programTTL, userGroupTTL time.Duration) *ProgramSupplier {
	return &ProgramSupplier{
		sharing: loader,
		programs: ttlcache.New[string, map[string]*event.Program](
			ttlcache.WithTTL[string, map[string]*event.Program](programTTL),
			ttlcache.WithDisableTouchOnHit[string, map[string]*event.Program](),
		),
		groups: ttlcache.New[int64, mapset.Set[string]](
			ttlcache.WithTTL[int64, mapset.Set[string]](userGroupTTL),
			ttlcache.WithDisableTouchOnHit[int64, mapset.Set[string]](),
		),
	}
}

func (s *ProgramSupplier) ProgramCache() *ttlcache.Cache[string, map[string]*event.Program] {
	return s.programs
}

func (s *ProgramSupplier) UserGroupCache() *ttlcache.Cache[int64, mapset.Set[string]] {
	return s.groups
}

// Start runs the expiry loops of both caches until Stop is called.
func (s *ProgramSupplier) Start() {
	go s.programs.Start()
	go s.groups.Start()
}

func (s *ProgramSupplier) Stop() {
	s.programs.Stop()
	s.groups.Stop()
}

// Invalidate drops the cached programs and user group members. Loads already
// running when it is called still return their result but do not cache it.
func (s *ProgramSupplier) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	s.programs.DeleteAll()
	s.groups.DeleteAll()
}

func (s *ProgramSupplier) generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen
}

// storeIfCurrent caches v under key unless Invalidate ran after gen was read.
func storeIfCurrent[K comparable, V any](s *ProgramSupplier, gen uint64, c *ttlcache.Cache[K, V], key K, v V) *ttlcache.Item[K, V] {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen {
		return nil
	}
	return c.Set(key, v, ttlcache.DefaultTTL)
}

// Get returns every program keyed by UID. The returned map is shared between
// callers and must not be modified.
func (s *ProgramSupplier) Get(ctx context.Context) (map[string]*event.Program, error) {
	var (
		loadErr  error
		uncached map[string]*event.Program
	)
	loader := ttlcache.LoaderFunc[string, map[string]*event.Program](
		func(c *ttlcache.Cache[string, map[string]*event.Program], key string) *ttlcache.Item[string, map[string]*event.Program] {
			gen := s.generation()
			programs, err := s.load(ctx)
			if err != nil {
				loadErr = err
				return nil
			}
			item := storeIfCurrent(s, gen, c, key, programs)
			if item == nil {
				uncached = programs
			}
			return item
		},
	)
	item := s.programs.Get(programCacheKey, ttlcache.WithLoader[string, map[string]*event.Program](loader))
	if item == nil {
		if uncached != nil {
			return uncached, nil
		}
		if loadErr == nil {
			loadErr = errors.New("programs could not be loaded")
		}
		return nil, loadErr
	}
	return item.Value(), nil
}

// GroupMembers returns the cached member UIDs of a user group, loading them on a miss.
func (s *ProgramSupplier) GroupMembers(ctx context.Context, groupID int64) (mapset.Set[string], error) {
	var (
		loadErr  error
		uncached mapset.Set[string]
	)
	loader := ttlcache.LoaderFunc[int64, mapset.Set[string]](
		func(c *ttlcache.Cache[int64, mapset.Set[string]], id int64) *ttlcache.Item[int64, mapset.Set[string]] {
			gen := s.generation()
			members, err := s.sharing.GroupMembers(ctx, id)
			if err != nil {
				loadErr = err
				return nil
			}
			item := storeIfCurrent(s, gen, c, id, members)
			if item == nil {
				uncached = members
			}
			return item
		},
	)
	item := s.groups.Get(groupID, ttlcache.WithLoader[int64, mapset.Set[string]](loader))
	if item == nil {
		if uncached != nil {
			return uncached, nil
		}
		if loadErr == nil {
			loadErr = errors.Errorf("members of user group %d could not be loaded", groupID)
		}
		return nil, loadErr
	}
	return item.Value(), nil
}

// snapshot makes the program query and the sharing queries see the same data.
var snapshot = &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true}

func (s *ProgramSupplier) load(ctx context.Context) (map[string]*event.Program, error) {
	var programs map[string]*event.Program
	err := composables.InTxOpts(ctx, snapshot, func(txCtx context.Context) error {
		var err error
		programs, err = s.loadHierarchy(txCtx)
		return err
	})
	if err != nil {
		return nil, err
	}
	composables.UseLogger(ctx).WithField("component", "event.programs").
		WithField("programs", len(programs)).Debug("program hierarchy loaded")
	return programs, nil
}

func (s *ProgramSupplier) loadHierarchy(ctx context.Context) (map[string]*event.Program, error) {
	programs, err := s.loadPrograms(ctx)
	if err != nil {
		return nil, err
	}
	orgUnits, err := s.loadOrgUnits(ctx)
	if err != nil {
		return nil, err
	}

	programUsers, err := s.sharing.UserAccesses(ctx, corePersistence.ProgramUserAccess)
	if err != nil {
		return nil, err
	}
	stageUsers, err := s.sharing.UserAccesses(ctx, corePersistence.ProgramStageUserAccess)
	if err != nil {
		return nil, err
	}
	tetUsers, err := s.sharing.UserAccesses(ctx, corePersistence.TrackedEntityTypeUserAccess)
	if err != nil {
		return nil, err
	}
	programGroups, err := s.sharing.UserGroupAccesses(ctx, corePersistence.ProgramUserGroupAccess, s.GroupMembers)
	if err != nil {
		return nil, err
	}
	stageGroups, err := s.sharing.UserGroupAccesses(ctx, corePersistence.ProgramStageUserGroupAccess, s.GroupMembers)
	if err != nil {
		return nil, err
	}
	tetGroups, err := s.sharing.UserGroupAccesses(ctx, corePersistence.TrackedEntityTypeUserGroupAccess, s.GroupMembers)
	if err != nil {
		return nil, err
	}

	for _, p := range programs {
		p.OrganisationUnits = orgUnits[p.ID]
		p.Sharing.Users = programUsers[p.ID]
		p.Sharing.UserGroups = programGroups[p.ID]
		if tet := p.TrackedEntityType; tet != nil {
			tet.Sharing.Users = tetUsers[tet.ID]
			tet.Sharing.UserGroups = tetGroups[tet.ID]
		}
		for _, st := range p.Stages {
			st.Sharing.Users = stageUsers[st.ID]
			st.Sharing.UserGroups = stageGroups[st.ID]
		}
	}
	return programs, nil
}

func (s *ProgramSupplier) loadPrograms(ctx context.Context) (map[string]*event.Program, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get transaction")
	}
	var rows []programRow
	if err := tx.SelectContext(ctx, &rows, selectProgramsQuery); err != nil {
		return nil, errors.Wrap(err, "failed to load programs")
	}

	out := make(map[string]*event.Program)
	tets := make(map[int64]*event.TrackedEntityType)
	var current *event.Program
	for _, r := range rows {
		if current == nil || current.ID != r.ID {
			current = &event.Program{
				ID:      r.ID,
				UID:     r.UID,
				Name:    r.Name,
				Type:    event.ProgramType(r.Type),
				Sharing: &sharing.Sharing{PublicAccess: sharing.ParseAccess(r.PublicAccess.String)},
			}
			if r.CategoryComboID.Valid {
				current.CategoryCombo = &event.CategoryCombo{
					ID:   r.CategoryComboID.Int64,
					UID:  r.CategoryComboUID.String,
					Name: r.CategoryComboName.String,
				}
			}
			if r.TrackedEntityTypeID.Valid {
				tet, ok := tets[r.TrackedEntityTypeID.Int64]
				if !ok {
					tet = &event.TrackedEntityType{
						ID:      r.TrackedEntityTypeID.Int64,
						UID:     r.TrackedEntityTypeUID.String,
						Sharing: &sharing.Sharing{PublicAccess: sharing.ParseAccess(r.TrackedEntityTypeAcl.String)},
					}
					tets[tet.ID] = tet
				}
				current.TrackedEntityType = tet
			}
			out[current.UID] = current
		}
		if r.StageID.Valid {
			current.Stages = append(current.Stages, &event.ProgramStage{
				ID:          r.StageID.Int64,
				UID:         r.StageUID.String,
				SortOrder:   int(r.StageSortOrder.Int64),
				FeatureType: event.ParseFeatureType(r.StageFeatureType.String),
				Sharing:     &sharing.Sharing{PublicAccess: sharing.ParseAccess(r.StagePublicAccess.String)},
			})
		}
	}
	return out, nil
}

func (s *ProgramSupplier) loadOrgUnits(ctx context.Context) (map[int64][]*event.OrganisationUnit, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get transaction")
	}
	var rows []orgUnitRow
	if err := tx.SelectContext(ctx, &rows, selectProgramOrgUnitsQuery); err != nil {
		return nil, errors.Wrap(err, "failed to load program organisation units")
	}
	out := make(map[int64][]*event.OrganisationUnit)
	for _, r := range rows {
		out[r.ProgramID] = append(out[r.ProgramID], &event.OrganisationUnit{ID: r.ID, UID: r.UID})
	}
	return out, nil
}
