package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/hall-pass/internal/auth"
	"github.com/iliyamo/hall-pass/internal/fault"
	"github.com/iliyamo/hall-pass/internal/model"
	"github.com/iliyamo/hall-pass/internal/queue"
	"github.com/iliyamo/hall-pass/internal/repository"
)

// memStore is an in-memory stand-in for the repositories, mirroring
// their error contracts: conditional transitions fail with
// fault.ErrInvalidTransition, the open-pass rule with
// fault.ErrConflict.
type memStore struct {
	mu        sync.Mutex
	nextID    uint64
	passes    map[uint64]*model.Pass
	profiles  map[uint64]*model.Profile
	locations map[uint64]*model.Location
	schools   map[uint64]*model.School
}

func newMemStore() *memStore {
	return &memStore{
		nextID:    1,
		passes:    map[uint64]*model.Pass{},
		profiles:  map[uint64]*model.Profile{},
		locations: map[uint64]*model.Location{},
		schools:   map[uint64]*model.School{},
	}
}

func (m *memStore) CreateExclusive(_ context.Context, p *model.Pass) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.passes {
		if existing.StudentID == p.StudentID && existing.Status.Open() {
			return fault.ErrConflict
		}
	}
	p.ID = m.nextID
	m.nextID++
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	cp := *p
	m.passes[p.ID] = &cp
	return nil
}

func (m *memStore) GetByID(_ context.Context, id uint64) (*model.Pass, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.passes[id]
	if !ok {
		return nil, fault.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memStore) detail(p *model.Pass) *repository.PassDetail {
	d := &repository.PassDetail{Pass: *p}
	if prof, ok := m.profiles[p.StudentID]; ok {
		d.StudentName = prof.FullName()
	}
	if loc, ok := m.locations[p.LocationID]; ok {
		d.LocationName = loc.Name
	}
	if p.ApproverID != nil {
		if prof, ok := m.profiles[*p.ApproverID]; ok {
			name := prof.FullName()
			d.ApproverName = &name
		}
	}
	return d
}

func (m *memStore) GetDetail(_ context.Context, id uint64) (*repository.PassDetail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.passes[id]
	if !ok {
		return nil, fault.ErrNotFound
	}
	return m.detail(p), nil
}

func (m *memStore) Approve(_ context.Context, id, approverID uint64, at time.Time, notes *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.passes[id]
	if !ok || p.Status != model.StatusPending {
		return fault.ErrInvalidTransition
	}
	p.Status = model.StatusApproved
	p.ApproverID = &approverID
	p.ApprovedAt = &at
	p.ApprovalNotes = notes
	return nil
}

func (m *memStore) Deny(_ context.Context, id, approverID uint64, at time.Time, notes *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.passes[id]
	if !ok || p.Status != model.StatusPending {
		return fault.ErrInvalidTransition
	}
	p.Status = model.StatusDenied
	p.ApproverID = &approverID
	p.ApprovedAt = &at
	p.ApprovalNotes = notes
	return nil
}

func (m *memStore) Activate(_ context.Context, id uint64, at time.Time, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.passes[id]
	if !ok || p.Status != model.StatusApproved {
		return fault.ErrInvalidTransition
	}
	p.Status = model.StatusActive
	p.ActualStartTime = &at
	p.VerificationCode = &code
	return nil
}

func (m *memStore) Complete(_ context.Context, id uint64, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.passes[id]
	if !ok || p.Status != model.StatusActive {
		return fault.ErrInvalidTransition
	}
	p.Status = model.StatusCompleted
	p.ActualEndTime = &at
	if p.ActualStartTime != nil {
		mins := int(at.Sub(*p.ActualStartTime).Minutes())
		if mins < 0 {
			mins = 0
		}
		p.DurationMinutes = &mins
	}
	return nil
}

func (m *memStore) Expire(_ context.Context, id uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.passes[id]
	if !ok || (p.Status != model.StatusApproved && p.Status != model.StatusActive) {
		return fault.ErrInvalidTransition
	}
	p.Status = model.StatusExpired
	return nil
}

func (m *memStore) ListOverdueIDs(_ context.Context, now time.Time) ([]uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []uint64
	for id, p := range m.passes {
		if p.Status != model.StatusApproved && p.Status != model.StatusActive {
			continue
		}
		if p.RequestedEndTime == nil {
			continue
		}
		grace := 0
		if s, ok := m.schools[p.SchoolID]; ok {
			grace = s.GracePeriodMinutes
		}
		if p.RequestedEndTime.Add(time.Duration(grace) * time.Minute).Before(now) {
			out = append(out, id)
		}
	}
	return out, nil
}

func (m *memStore) ListByStudent(_ context.Context, studentID uint64, status *model.PassStatus) ([]repository.PassDetail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []repository.PassDetail
	for _, p := range m.passes {
		if p.StudentID != studentID {
			continue
		}
		if status != nil && p.Status != *status {
			continue
		}
		out = append(out, *m.detail(p))
	}
	return out, nil
}

func (m *memStore) ListBySchool(_ context.Context, schoolID uint64, status *model.PassStatus, _ string) ([]repository.PassDetail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []repository.PassDetail
	for _, p := range m.passes {
		if p.SchoolID != schoolID {
			continue
		}
		if status != nil && p.Status != *status {
			continue
		}
		out = append(out, *m.detail(p))
	}
	return out, nil
}

func (m *memStore) ListPendingBySchool(_ context.Context, schoolID uint64) ([]repository.PassDetail, error) {
	pending := model.StatusPending
	return m.ListBySchool(context.Background(), schoolID, &pending, "")
}

func (m *memStore) ActiveForStudent(_ context.Context, studentID uint64) (*repository.PassDetail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.passes {
		if p.StudentID == studentID && p.Status == model.StatusActive {
			return m.detail(p), nil
		}
	}
	return nil, fault.ErrNotFound
}

func (m *memStore) GetStudent(_ context.Context, userID uint64) (*model.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[userID]
	if !ok {
		return nil, fault.ErrNotFound
	}
	if p.Role != model.RoleStudent {
		return nil, fault.ErrValidation
	}
	cp := *p
	return &cp, nil
}

type memLocations struct{ m *memStore }

func (l memLocations) GetByID(_ context.Context, id uint64) (*model.Location, error) {
	l.m.mu.Lock()
	defer l.m.mu.Unlock()
	loc, ok := l.m.locations[id]
	if !ok {
		return nil, fault.ErrNotFound
	}
	cp := *loc
	return &cp, nil
}

type memSchools struct{ m *memStore }

func (s memSchools) GetByID(_ context.Context, id uint64) (*model.School, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	sc, ok := s.m.schools[id]
	if !ok {
		return nil, fault.ErrNotFound
	}
	cp := *sc
	return &cp, nil
}

// --- fixture ---

var testNow = time.Date(2026, time.March, 10, 15, 0, 0, 0, time.UTC)

type fixture struct {
	store  *memStore
	svc    *PassService
	events []queue.PassCompletedEvent

	student  auth.Principal
	student2 auth.Principal
	teacher  auth.Principal
	admin    auth.Principal
	outsider auth.Principal // teacher from another school
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := newMemStore()
	f := &fixture{store: store}

	store.schools[1] = &model.School{ID: 1, Name: "Northside High", DefaultPassDuration: 15, GracePeriodMinutes: 5, Timezone: "UTC"}
	store.schools[2] = &model.School{ID: 2, Name: "Lakeview High", DefaultPassDuration: 10, GracePeriodMinutes: 0, Timezone: "UTC"}

	store.locations[100] = &model.Location{ID: 100, SchoolID: 1, Name: "Library", DefaultDuration: 20, RequiresApproval: true, IsActive: true}
	store.locations[101] = &model.Location{ID: 101, SchoolID: 1, Name: "Restroom", DefaultDuration: 5, RequiresApproval: false, IsActive: true}
	store.locations[102] = &model.Location{ID: 102, SchoolID: 1, Name: "Front Office", DefaultDuration: 10, RequiresApproval: true, IsActive: true, IsSummonsOnly: true}
	store.locations[103] = &model.Location{ID: 103, SchoolID: 1, Name: "Old Gym", DefaultDuration: 10, RequiresApproval: true, IsActive: false}
	store.locations[200] = &model.Location{ID: 200, SchoolID: 2, Name: "Nurse", DefaultDuration: 10, RequiresApproval: true, IsActive: true}

	store.profiles[1] = &model.Profile{UserID: 1, SchoolID: 1, Role: model.RoleStudent, FirstName: "Maya", LastName: "Chen"}
	store.profiles[2] = &model.Profile{UserID: 2, SchoolID: 1, Role: model.RoleStudent, FirstName: "Omar", LastName: "Diaz"}
	store.profiles[10] = &model.Profile{UserID: 10, SchoolID: 1, Role: model.RoleTeacher, FirstName: "Dana", LastName: "Okafor"}
	store.profiles[11] = &model.Profile{UserID: 11, SchoolID: 1, Role: model.RoleAdministrator, FirstName: "Priya", LastName: "Nair"}
	store.profiles[20] = &model.Profile{UserID: 20, SchoolID: 2, Role: model.RoleTeacher, FirstName: "Eli", LastName: "Park"}
	store.profiles[21] = &model.Profile{UserID: 21, SchoolID: 2, Role: model.RoleStudent, FirstName: "Ana", LastName: "Silva"}

	publish := func(_ context.Context, ev queue.PassCompletedEvent) error {
		f.events = append(f.events, ev)
		return nil
	}
	svc := NewPassService(store, memLocations{store}, store, memSchools{store}, publish)
	svc.Now = func() time.Time { return testNow }
	f.svc = svc

	f.student = auth.Principal{ID: 1, Role: model.RoleStudent, SchoolID: 1, FirstName: "Maya", LastName: "Chen"}
	f.student2 = auth.Principal{ID: 2, Role: model.RoleStudent, SchoolID: 1, FirstName: "Omar", LastName: "Diaz"}
	f.teacher = auth.Principal{ID: 10, Role: model.RoleTeacher, SchoolID: 1, FirstName: "Dana", LastName: "Okafor"}
	f.admin = auth.Principal{ID: 11, Role: model.RoleAdministrator, SchoolID: 1, FirstName: "Priya", LastName: "Nair"}
	f.outsider = auth.Principal{ID: 20, Role: model.RoleTeacher, SchoolID: 2, FirstName: "Eli", LastName: "Park"}
	return f
}

func ctx() context.Context { return context.Background() }

// --- RequestPass ---

func TestRequestPassPending(t *testing.T) {
	f := newFixture(t)

	d, err := f.svc.RequestPass(ctx(), f.student, RequestPassInput{LocationID: 100})
	require.NoError(t, err)

	assert.Equal(t, model.StatusPending, d.Status)
	assert.Equal(t, "Maya Chen", d.StudentName)
	assert.Equal(t, "Library", d.LocationName)
	require.NotNil(t, d.DurationMinutes)
	assert.Equal(t, 20, *d.DurationMinutes) // location default wins
	require.NotNil(t, d.RequestedStartTime)
	require.NotNil(t, d.RequestedEndTime)
	assert.Equal(t, testNow.Add(20*time.Minute), *d.RequestedEndTime)
	assert.Nil(t, d.ApproverID)
	assert.Nil(t, d.VerificationCode)
}

func TestRequestPassAutoApproved(t *testing.T) {
	f := newFixture(t)

	d, err := f.svc.RequestPass(ctx(), f.student, RequestPassInput{LocationID: 101})
	require.NoError(t, err)

	assert.Equal(t, model.StatusApproved, d.Status)
	require.NotNil(t, d.ApprovalNotes)
	assert.Equal(t, "Auto-approved based on location settings", *d.ApprovalNotes)
	require.NotNil(t, d.ApprovedAt)
	assert.Nil(t, d.ApproverID) // auto-approval has no human approver
}

func TestRequestPassOpenPassConflict(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.RequestPass(ctx(), f.student, RequestPassInput{LocationID: 100})
	require.NoError(t, err)

	_, err = f.svc.RequestPass(ctx(), f.student, RequestPassInput{LocationID: 101})
	assert.ErrorIs(t, err, fault.ErrConflict)

	// A different student is unaffected.
	_, err = f.svc.RequestPass(ctx(), f.student2, RequestPassInput{LocationID: 100})
	assert.NoError(t, err)
}

func TestRequestPassLocationPolicy(t *testing.T) {
	f := newFixture(t)

	// Summons-only location without the summons flag.
	_, err := f.svc.RequestPass(ctx(), f.student, RequestPassInput{LocationID: 102})
	assert.ErrorIs(t, err, fault.ErrValidation)

	// Same location with the flag set.
	d, err := f.svc.RequestPass(ctx(), f.student, RequestPassInput{LocationID: 102, IsSummons: true})
	require.NoError(t, err)
	assert.True(t, d.IsSummons)
}

func TestRequestPassInactiveLocation(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.RequestPass(ctx(), f.student, RequestPassInput{LocationID: 103})
	assert.ErrorIs(t, err, fault.ErrValidation)
}

func TestRequestPassCrossSchoolLocation(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.RequestPass(ctx(), f.student, RequestPassInput{LocationID: 200})
	assert.ErrorIs(t, err, fault.ErrValidation)
}

func TestRequestPassUnknownLocation(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.RequestPass(ctx(), f.student, RequestPassInput{LocationID: 999})
	assert.ErrorIs(t, err, fault.ErrNotFound)
}

// --- IssuePass ---

func TestIssuePass(t *testing.T) {
	f := newFixture(t)

	dur := 25
	d, err := f.svc.IssuePass(ctx(), f.teacher, IssuePassInput{StudentID: 1, LocationID: 100, DurationMinutes: &dur})
	require.NoError(t, err)

	assert.Equal(t, model.StatusApproved, d.Status)
	require.NotNil(t, d.ApproverID)
	assert.Equal(t, uint64(10), *d.ApproverID)
	require.NotNil(t, d.ApprovedAt)
	require.NotNil(t, d.ApprovalNotes)
	assert.Equal(t, "Issued by teacher Dana Okafor", *d.ApprovalNotes)
	require.NotNil(t, d.DurationMinutes)
	assert.Equal(t, 25, *d.DurationMinutes)
	assert.Equal(t, testNow.Add(25*time.Minute), *d.RequestedEndTime)
}

func TestIssuePassCrossSchoolStudentHidden(t *testing.T) {
	f := newFixture(t)
	// Student 21 exists but in another school; existence must not leak.
	_, err := f.svc.IssuePass(ctx(), f.teacher, IssuePassInput{StudentID: 21, LocationID: 100})
	assert.ErrorIs(t, err, fault.ErrNotFound)
}

func TestIssuePassTargetNotStudent(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.IssuePass(ctx(), f.admin, IssuePassInput{StudentID: 10, LocationID: 100})
	assert.ErrorIs(t, err, fault.ErrValidation)
}

func TestIssuePassHonorsOpenPassRule(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.RequestPass(ctx(), f.student, RequestPassInput{LocationID: 100})
	require.NoError(t, err)

	_, err = f.svc.IssuePass(ctx(), f.teacher, IssuePassInput{StudentID: 1, LocationID: 101})
	assert.ErrorIs(t, err, fault.ErrConflict)
}

// --- Approve / Deny ---

func TestApprovePass(t *testing.T) {
	f := newFixture(t)
	d, err := f.svc.RequestPass(ctx(), f.student, RequestPassInput{LocationID: 100})
	require.NoError(t, err)

	approved, err := f.svc.ApprovePass(ctx(), f.teacher, d.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, model.StatusApproved, approved.Status)
	require.NotNil(t, approved.ApproverID)
	assert.Equal(t, uint64(10), *approved.ApproverID)
	require.NotNil(t, approved.ApprovedAt)
	assert.Equal(t, testNow, approved.ApprovedAt.UTC())
	require.NotNil(t, approved.ApprovalNotes)
	assert.Equal(t, "Processed by Dana Okafor", *approved.ApprovalNotes)
}

func TestApprovePassTwiceFailsLoudly(t *testing.T) {
	f := newFixture(t)
	d, err := f.svc.RequestPass(ctx(), f.student, RequestPassInput{LocationID: 100})
	require.NoError(t, err)

	_, err = f.svc.ApprovePass(ctx(), f.teacher, d.ID, nil)
	require.NoError(t, err)
	_, err = f.svc.ApprovePass(ctx(), f.teacher, d.ID, nil)
	assert.ErrorIs(t, err, fault.ErrInvalidTransition)
}

func TestApprovePassCrossSchoolForbidden(t *testing.T) {
	f := newFixture(t)
	d, err := f.svc.RequestPass(ctx(), f.student, RequestPassInput{LocationID: 100})
	require.NoError(t, err)

	_, err = f.svc.ApprovePass(ctx(), f.outsider, d.ID, nil)
	assert.ErrorIs(t, err, fault.ErrForbidden)
}

func TestApprovePassNotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.ApprovePass(ctx(), f.teacher, 404, nil)
	assert.ErrorIs(t, err, fault.ErrNotFound)
}

func TestDenyPass(t *testing.T) {
	f := newFixture(t)
	d, err := f.svc.RequestPass(ctx(), f.student, RequestPassInput{LocationID: 100})
	require.NoError(t, err)

	notes := "hall is closed this period"
	denied, err := f.svc.DenyPass(ctx(), f.teacher, d.ID, &notes)
	require.NoError(t, err)
	assert.Equal(t, model.StatusDenied, denied.Status)
	assert.Equal(t, &notes, denied.ApprovalNotes)

	// Denied is terminal; the student may open a new pass.
	_, err = f.svc.RequestPass(ctx(), f.student, RequestPassInput{LocationID: 101})
	assert.NoError(t, err)
}

// --- Activate / Complete ---

func TestActivateAndComplete(t *testing.T) {
	f := newFixture(t)
	d, err := f.svc.RequestPass(ctx(), f.student, RequestPassInput{LocationID: 101}) // auto-approved
	require.NoError(t, err)

	active, err := f.svc.ActivatePass(ctx(), f.student, d.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusActive, active.Status)
	require.NotNil(t, active.ActualStartTime)
	require.NotNil(t, active.VerificationCode)
	assert.Len(t, *active.VerificationCode, 8)

	// The student returns 7 minutes later.
	f.svc.Now = func() time.Time { return testNow.Add(7 * time.Minute) }
	done, err := f.svc.CompletePass(ctx(), f.student, d.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, done.Status)
	require.NotNil(t, done.ActualEndTime)
	require.NotNil(t, done.DurationMinutes)
	assert.Equal(t, 7, *done.DurationMinutes) // observed, not requested

	require.Len(t, f.events, 1)
	assert.Equal(t, d.ID, f.events[0].PassID)
	assert.Equal(t, "Maya Chen", f.events[0].StudentName)
	assert.Equal(t, 7, f.events[0].DurationMinutes)
}

func TestActivateRequiresOwnership(t *testing.T) {
	f := newFixture(t)
	d, err := f.svc.RequestPass(ctx(), f.student, RequestPassInput{LocationID: 101})
	require.NoError(t, err)

	_, err = f.svc.ActivatePass(ctx(), f.student2, d.ID)
	assert.ErrorIs(t, err, fault.ErrForbidden)
}

func TestActivatePendingPassRejected(t *testing.T) {
	f := newFixture(t)
	d, err := f.svc.RequestPass(ctx(), f.student, RequestPassInput{LocationID: 100})
	require.NoError(t, err)

	_, err = f.svc.ActivatePass(ctx(), f.student, d.ID)
	assert.ErrorIs(t, err, fault.ErrInvalidTransition)
}

func TestActivateTwiceRejected(t *testing.T) {
	f := newFixture(t)
	d, err := f.svc.RequestPass(ctx(), f.student, RequestPassInput{LocationID: 101})
	require.NoError(t, err)

	first, err := f.svc.ActivatePass(ctx(), f.student, d.ID)
	require.NoError(t, err)
	code := *first.VerificationCode

	_, err = f.svc.ActivatePass(ctx(), f.student, d.ID)
	assert.ErrorIs(t, err, fault.ErrInvalidTransition)

	// The code from the first activation is untouched.
	got, err := f.svc.GetPass(ctx(), f.student, d.ID)
	require.NoError(t, err)
	assert.Equal(t, code, *got.VerificationCode)
}

func TestCompleteByStaff(t *testing.T) {
	f := newFixture(t)
	d, err := f.svc.RequestPass(ctx(), f.student, RequestPassInput{LocationID: 101})
	require.NoError(t, err)
	_, err = f.svc.ActivatePass(ctx(), f.student, d.ID)
	require.NoError(t, err)

	// Staff from another school cannot close it.
	_, err = f.svc.CompletePass(ctx(), f.outsider, d.ID)
	assert.ErrorIs(t, err, fault.ErrForbidden)

	// Same-school teacher can.
	done, err := f.svc.CompletePass(ctx(), f.teacher, d.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, done.Status)
}

func TestCompleteOtherStudentsPassForbidden(t *testing.T) {
	f := newFixture(t)
	d, err := f.svc.RequestPass(ctx(), f.student, RequestPassInput{LocationID: 101})
	require.NoError(t, err)
	_, err = f.svc.ActivatePass(ctx(), f.student, d.ID)
	require.NoError(t, err)

	_, err = f.svc.CompletePass(ctx(), f.student2, d.ID)
	assert.ErrorIs(t, err, fault.ErrForbidden)
}

// --- Expiry ---

func TestExpirePassRespectsGracePeriod(t *testing.T) {
	f := newFixture(t)
	d, err := f.svc.RequestPass(ctx(), f.student, RequestPassInput{LocationID: 101}) // 5 min duration
	require.NoError(t, err)

	// End + grace is 15:10; at 15:08 expiry is premature.
	f.svc.Now = func() time.Time { return testNow.Add(8 * time.Minute) }
	err = f.svc.ExpirePass(ctx(), d.ID)
	assert.ErrorIs(t, err, fault.ErrInvalidTransition)

	f.svc.Now = func() time.Time { return testNow.Add(11 * time.Minute) }
	require.NoError(t, f.svc.ExpirePass(ctx(), d.ID))

	got, err := f.svc.GetPass(ctx(), f.student, d.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusExpired, got.Status)
}

func TestExpirePassTerminalRejected(t *testing.T) {
	f := newFixture(t)
	d, err := f.svc.RequestPass(ctx(), f.student, RequestPassInput{LocationID: 100})
	require.NoError(t, err)
	_, err = f.svc.DenyPass(ctx(), f.teacher, d.ID, nil)
	require.NoError(t, err)

	err = f.svc.ExpirePass(ctx(), d.ID)
	assert.ErrorIs(t, err, fault.ErrInvalidTransition)
}

func TestExpireOverdueSweep(t *testing.T) {
	f := newFixture(t)

	// Overdue: 5 min duration + 5 min grace, swept an hour later.
	overdue, err := f.svc.RequestPass(ctx(), f.student, RequestPassInput{LocationID: 101})
	require.NoError(t, err)

	// Fresh: created at sweep time, not overdue.
	f.svc.Now = func() time.Time { return testNow.Add(time.Hour) }
	fresh, err := f.svc.RequestPass(ctx(), f.student2, RequestPassInput{LocationID: 101})
	require.NoError(t, err)

	n, err := f.svc.ExpireOverdue(ctx())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := f.svc.GetPass(ctx(), f.student, overdue.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusExpired, got.Status)

	got, err = f.svc.GetPass(ctx(), f.student2, fresh.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusApproved, got.Status)
}

// --- Visibility ---

func TestGetPassVisibility(t *testing.T) {
	f := newFixture(t)
	d, err := f.svc.RequestPass(ctx(), f.student, RequestPassInput{LocationID: 100})
	require.NoError(t, err)

	// Owner and same-school staff see it.
	_, err = f.svc.GetPass(ctx(), f.student, d.ID)
	assert.NoError(t, err)
	_, err = f.svc.GetPass(ctx(), f.teacher, d.ID)
	assert.NoError(t, err)
	_, err = f.svc.GetPass(ctx(), f.admin, d.ID)
	assert.NoError(t, err)

	// Another student and out-of-school staff do not.
	_, err = f.svc.GetPass(ctx(), f.student2, d.ID)
	assert.ErrorIs(t, err, fault.ErrForbidden)
	_, err = f.svc.GetPass(ctx(), f.outsider, d.ID)
	assert.ErrorIs(t, err, fault.ErrForbidden)
}

func TestStudentDashboard(t *testing.T) {
	f := newFixture(t)
	d, err := f.svc.RequestPass(ctx(), f.student, RequestPassInput{LocationID: 101})
	require.NoError(t, err)
	_, err = f.svc.ActivatePass(ctx(), f.student, d.ID)
	require.NoError(t, err)

	dash, err := f.svc.Dashboard(ctx(), f.student)
	require.NoError(t, err)
	assert.Equal(t, 1, dash.TotalPasses)
	require.NotNil(t, dash.ActivePass)
	assert.Equal(t, d.ID, dash.ActivePass.ID)
	require.Len(t, dash.RecentPasses, 1)
}

func TestStudentDashboardNoActivePass(t *testing.T) {
	f := newFixture(t)
	dash, err := f.svc.Dashboard(ctx(), f.student)
	require.NoError(t, err)
	assert.Nil(t, dash.ActivePass)
	assert.Equal(t, 0, dash.TotalPasses)
}
