package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-scheduling-api/internal/models"
	appErrors "github.com/noah-isme/sma-scheduling-api/pkg/errors"
)

// memDB is an in-memory stand-in for the scheduling tables. It enforces the
// same three unique constraints as the schema.
type memDB struct {
	mu          sync.Mutex
	seq         int
	schedules   map[string]models.ClassSchedule
	order       []string
	instructors map[string]*models.Instructor
	classrooms  map[string]*models.Classroom
	groups      map[string]*models.StudentGroup
	quarters    map[string]*models.Quarter
	slots       map[string]models.DayTimeBlockDetail

	// hiddenLookups makes the next N conflict lookups miss, as if a
	// concurrent writer committed right after them.
	hiddenLookups int
}

func newMemDB() *memDB {
	return &memDB{
		schedules:   map[string]models.ClassSchedule{},
		instructors: map[string]*models.Instructor{},
		classrooms:  map[string]*models.Classroom{},
		groups:      map[string]*models.StudentGroup{},
		quarters:    map[string]*models.Quarter{},
		slots:       map[string]models.DayTimeBlockDetail{},
	}
}

func intPtr(v int) *int { return &v }

func (m *memDB) addInstructor(id, first, last string, hours float64, limit *int) {
	m.instructors[id] = &models.Instructor{ID: id, FirstName: first, LastName: last, HourCount: hours, HourLimit: limit, Active: true}
}

func (m *memDB) addSlot(id string, dayID int, dayName, start, end string) {
	m.slots[id] = models.DayTimeBlockDetail{
		DayTimeBlock: models.DayTimeBlock{ID: id, DayID: dayID, TimeBlockID: "tb-" + start + "-" + end},
		DayName:      dayName,
		StartTime:    start,
		EndTime:      end,
	}
}

// missing mirrors Postgres for an absent id. Ids prefixed "malformed" fail
// the uuid cast with 22P02 the way a real lookup would.
func (m *memDB) missing(id string) error {
	if strings.HasPrefix(id, "malformed") {
		return &pq.Error{Code: "22P02", Message: fmt.Sprintf("invalid input syntax for type uuid: %q", id)}
	}
	return sql.ErrNoRows
}

func (m *memDB) hours(id string) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.instructors[id].HourCount
}

func (m *memDB) detail(s models.ClassSchedule) models.ClassScheduleDetail {
	slot := m.slots[s.DayTimeBlockID]
	return models.ClassScheduleDetail{ClassSchedule: s, DayID: slot.DayID, DayName: slot.DayName, StartTime: slot.StartTime, EndTime: slot.EndTime}
}

func resourceField(s models.ClassSchedule, dim models.ConflictType) string {
	switch dim {
	case models.ConflictInstructor:
		return s.InstructorID
	case models.ConflictClassroom:
		return s.ClassroomID
	default:
		return s.GroupID
	}
}

func (m *memDB) violation(row models.ClassSchedule) error {
	for _, id := range m.order {
		other := m.schedules[id]
		if other.ID == row.ID || other.DayTimeBlockID != row.DayTimeBlockID || other.QuarterID != row.QuarterID {
			continue
		}
		for _, dim := range conflictOrder {
			if resourceField(other, dim) == resourceField(row, dim) {
				return &pq.Error{Code: "23505", Constraint: "uq_schedule_conflict_" + string(dim)}
			}
		}
	}
	return nil
}

type memSchedules struct{ db *memDB }

func (r memSchedules) FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.ClassSchedule, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	row, ok := r.db.schedules[id]
	if !ok {
		return nil, r.db.missing(id)
	}
	return &row, nil
}

func (r memSchedules) FindDetail(ctx context.Context, id string) (*models.ClassScheduleDetail, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	row, ok := r.db.schedules[id]
	if !ok {
		return nil, r.db.missing(id)
	}
	detail := r.db.detail(row)
	return &detail, nil
}

func (r memSchedules) FindSlotConflict(ctx context.Context, exec sqlx.ExtContext, dim models.ConflictType, resourceID, slotID, quarterID, excludeID string) (*models.ClassScheduleDetail, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if r.db.hiddenLookups > 0 {
		r.db.hiddenLookups--
		return nil, sql.ErrNoRows
	}
	for _, id := range r.db.order {
		row := r.db.schedules[id]
		if row.ID == excludeID || row.DayTimeBlockID != slotID || row.QuarterID != quarterID {
			continue
		}
		if resourceField(row, dim) == resourceID {
			detail := r.db.detail(row)
			return &detail, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (r memSchedules) Create(ctx context.Context, exec sqlx.ExtContext, schedule *models.ClassSchedule) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	r.db.seq++
	schedule.ID = fmt.Sprintf("cs-%d", r.db.seq)
	schedule.CreatedAt = time.Now()
	schedule.UpdatedAt = schedule.CreatedAt
	if err := r.db.violation(*schedule); err != nil {
		return err
	}
	r.db.schedules[schedule.ID] = *schedule
	r.db.order = append(r.db.order, schedule.ID)
	return nil
}

func (r memSchedules) Update(ctx context.Context, exec sqlx.ExtContext, schedule *models.ClassSchedule) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if err := r.db.violation(*schedule); err != nil {
		return err
	}
	schedule.UpdatedAt = time.Now()
	r.db.schedules[schedule.ID] = *schedule
	return nil
}

func (r memSchedules) Delete(ctx context.Context, exec sqlx.ExtContext, id string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	delete(r.db.schedules, id)
	for i, existing := range r.db.order {
		if existing == id {
			r.db.order = append(r.db.order[:i], r.db.order[i+1:]...)
			break
		}
	}
	return nil
}

func (r memSchedules) List(ctx context.Context, filter models.ClassScheduleFilter) ([]models.ClassScheduleDetail, int, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var items []models.ClassScheduleDetail
	for _, id := range r.db.order {
		row := r.db.schedules[id]
		if filter.InstructorID != "" && row.InstructorID != filter.InstructorID {
			continue
		}
		if filter.Subject != "" && !strings.Contains(strings.ToLower(row.Subject), strings.ToLower(filter.Subject)) {
			continue
		}
		items = append(items, r.db.detail(row))
	}
	return items, len(items), nil
}

func (r memSchedules) ListByResource(ctx context.Context, dim models.ConflictType, resourceID, quarterID string) ([]models.ClassScheduleDetail, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var items []models.ClassScheduleDetail
	for _, id := range r.db.order {
		row := r.db.schedules[id]
		if resourceField(row, dim) != resourceID || (quarterID != "" && row.QuarterID != quarterID) {
			continue
		}
		items = append(items, r.db.detail(row))
	}
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].DayID != items[j].DayID {
			return items[i].DayID < items[j].DayID
		}
		return items[i].StartTime < items[j].StartTime
	})
	return items, nil
}

type memInstructors struct{ db *memDB }

func (r memInstructors) FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Instructor, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	instructor, ok := r.db.instructors[id]
	if !ok {
		return nil, r.db.missing(id)
	}
	copied := *instructor
	return &copied, nil
}

func (r memInstructors) FindByIDForUpdate(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Instructor, error) {
	return r.FindByID(ctx, exec, id)
}

func (r memInstructors) UpdateHourCount(ctx context.Context, exec sqlx.ExtContext, id string, hours float64) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	instructor, ok := r.db.instructors[id]
	if !ok {
		return sql.ErrNoRows
	}
	instructor.HourCount = hours
	return nil
}

type memClassrooms struct{ db *memDB }

func (r memClassrooms) FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Classroom, error) {
	classroom, ok := r.db.classrooms[id]
	if !ok {
		return nil, r.db.missing(id)
	}
	copied := *classroom
	return &copied, nil
}

type memGroups struct{ db *memDB }

func (r memGroups) FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.StudentGroup, error) {
	group, ok := r.db.groups[id]
	if !ok {
		return nil, r.db.missing(id)
	}
	copied := *group
	return &copied, nil
}

type memQuarters struct{ db *memDB }

func (r memQuarters) FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Quarter, error) {
	quarter, ok := r.db.quarters[id]
	if !ok {
		return nil, r.db.missing(id)
	}
	copied := *quarter
	return &copied, nil
}

type memSlots struct{ db *memDB }

func (r memSlots) FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.DayTimeBlockDetail, error) {
	slot, ok := r.db.slots[id]
	if !ok {
		return nil, r.db.missing(id)
	}
	return &slot, nil
}

// memCache is a CacheRepository backed by a map.
type memCache struct {
	mu      sync.Mutex
	entries map[string][]byte
}

func newMemCache() *memCache { return &memCache{entries: map[string][]byte{}} }

func (c *memCache) Get(ctx context.Context, key string, dest interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	raw, ok := c.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (c *memCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.entries[key] = raw
	return nil
}

func (c *memCache) Delete(ctx context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, key := range keys {
		delete(c.entries, key)
	}
	return nil
}

func (c *memCache) has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[key]
	return ok
}

type txProviderMock struct {
	db   *sqlx.DB
	mock sqlmock.Sqlmock
}

func newTxProviderMock(t *testing.T) (txProvider, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	sqlxdb := sqlx.NewDb(db, "sqlmock")
	t.Cleanup(func() { db.Close() })
	return &txProviderMock{db: sqlxdb, mock: mock}, mock
}

func (t *txProviderMock) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	return t.db.BeginTxx(ctx, opts)
}

type schedulingFixture struct {
	db        *memDB
	cache     *memCache
	mock      sqlmock.Sqlmock
	tx        txProvider
	metrics   *MetricsService
	checker   *ConflictChecker
	validator *ScheduleValidator
	tracker   *WorkloadTracker
	service   *ClassScheduleService
}

// newSchedulingFixture seeds a Monday 08:00-10:00 slot S1 in quarter Q1 with
// instructor I1 (limit 40), classroom C1 (30 seats) and group G1 (25 students).
func newSchedulingFixture(t *testing.T) *schedulingFixture {
	t.Helper()
	db := newMemDB()
	db.addSlot("S1", 1, "Monday", "08:00", "10:00")
	db.addSlot("S2", 1, "Monday", "10:00", "12:00")
	db.addSlot("S3", 2, "Tuesday", "08:00", "09:30")
	db.quarters["Q1"] = &models.Quarter{ID: "Q1", Name: "Q1 2024", StartDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), EndDate: time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC)}
	db.quarters["Q2"] = &models.Quarter{ID: "Q2", Name: "Q2 2024", StartDate: time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC), EndDate: time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC)}
	db.addInstructor("I1", "Ada", "Lovelace", 0, intPtr(40))
	db.addInstructor("I2", "Grace", "Hopper", 39, intPtr(40))
	db.addInstructor("I3", "Alan", "Turing", 0, nil)
	db.classrooms["C1"] = &models.Classroom{ID: "C1", RoomNumber: "101", Capacity: 30}
	db.classrooms["C2"] = &models.Classroom{ID: "C2", RoomNumber: "102", Capacity: 30}
	db.classrooms["C3"] = &models.Classroom{ID: "C3", RoomNumber: "Lab", Capacity: 20}
	db.groups["G1"] = &models.StudentGroup{ID: "G1", GroupNumber: 1, Capacity: 25, Active: true}
	db.groups["G2"] = &models.StudentGroup{ID: "G2", GroupNumber: 2, Capacity: 25, Active: true}

	tx, mock := newTxProviderMock(t)
	metrics := NewMetricsService()
	cache := newMemCache()
	cacheSvc := NewCacheService(cache, metrics, time.Minute, nil, true)

	checker := NewConflictChecker(memSchedules{db}, memInstructors{db}, memClassrooms{db}, memGroups{db}, nil)
	validator := NewScheduleValidator(ScheduleValidatorDeps{
		Checker:     checker,
		Quarters:    memQuarters{db},
		Slots:       memSlots{db},
		Groups:      memGroups{db},
		Instructors: memInstructors{db},
		Classrooms:  memClassrooms{db},
		Schedules:   memSchedules{db},
	}, metrics, nil)
	tracker := NewWorkloadTracker(memInstructors{db}, cacheSvc, nil)
	service := NewClassScheduleService(memSchedules{db}, validator, checker, tracker, tx, nil, metrics, nil, ClassScheduleServiceConfig{WriteTimeout: time.Second})

	return &schedulingFixture{db: db, cache: cache, mock: mock, tx: tx, metrics: metrics, checker: checker, validator: validator, tracker: tracker, service: service}
}

// serviceWith builds a schedule service over the fixture's stores with a
// different workload step and write timeout.
func (f *schedulingFixture) serviceWith(workload workloadAdjuster, timeout time.Duration) *ClassScheduleService {
	return NewClassScheduleService(memSchedules{f.db}, f.validator, f.checker, workload, f.tx, nil, f.metrics, nil, ClassScheduleServiceConfig{WriteTimeout: timeout})
}

// faultyWorkload fails or stalls the workload step of a write, then defers to
// the real tracker. It records every invalidation it is asked for.
type faultyWorkload struct {
	*WorkloadTracker
	fail        error
	stall       bool
	invalidated []string
}

func (w *faultyWorkload) step(ctx context.Context) error {
	if w.stall {
		<-ctx.Done()
		return ctx.Err()
	}
	return w.fail
}

func (w *faultyWorkload) OnCreate(ctx context.Context, exec sqlx.ExtContext, instructorID string, hours float64) error {
	if err := w.step(ctx); err != nil {
		return err
	}
	return w.WorkloadTracker.OnCreate(ctx, exec, instructorID, hours)
}

func (w *faultyWorkload) OnDelete(ctx context.Context, exec sqlx.ExtContext, instructorID string, hours float64) error {
	if err := w.step(ctx); err != nil {
		return err
	}
	return w.WorkloadTracker.OnDelete(ctx, exec, instructorID, hours)
}

func (w *faultyWorkload) OnReassign(ctx context.Context, exec sqlx.ExtContext, oldInstructorID, newInstructorID string, oldHours, newHours float64) error {
	if err := w.step(ctx); err != nil {
		return err
	}
	return w.WorkloadTracker.OnReassign(ctx, exec, oldInstructorID, newInstructorID, oldHours, newHours)
}

func (w *faultyWorkload) Invalidate(ctx context.Context, instructorIDs ...string) {
	w.invalidated = append(w.invalidated, instructorIDs...)
	w.WorkloadTracker.Invalidate(ctx, instructorIDs...)
}
