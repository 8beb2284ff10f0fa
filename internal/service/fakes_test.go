package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/Freeeeeet/studio_manager/internal/model"
	"github.com/Freeeeeet/studio_manager/internal/realtime"
	"github.com/Freeeeeet/studio_manager/internal/repository"
	"github.com/Freeeeeet/studio_manager/internal/schedule"
	"github.com/Freeeeeet/studio_manager/internal/session"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// In-memory stores mirroring the PostgreSQL repositories closely enough
// for the services' rules to be exercised.

var testLogger = zap.NewNop()

func ownerSession(studioID uuid.UUID) *session.Session {
	return &session.Session{ID: uuid.NewString(), UserID: uuid.New(), Role: model.RoleOwner, ProfileID: uuid.New(), StudioID: studioID, Name: "Olga"}
}

func teacherSession(studioID, teacherID uuid.UUID) *session.Session {
	return &session.Session{ID: uuid.NewString(), UserID: uuid.New(), Role: model.RoleTeacher, ProfileID: teacherID, StudioID: studioID, Name: "Tara"}
}

func parentSession(studioID, parentID uuid.UUID) *session.Session {
	return &session.Session{ID: uuid.NewString(), UserID: uuid.New(), Role: model.RoleParent, ProfileID: parentID, StudioID: studioID, Name: "Pat"}
}

func mustDate(s string) time.Time {
	d, err := time.Parse(time.DateOnly, s)
	if err != nil {
		panic(err)
	}
	return d
}

// users

type fakeUserStore struct {
	mu       sync.Mutex
	users    map[string]*model.User // by email
	profiles map[uuid.UUID]*model.Profile
	codes    map[string]uuid.UUID

	// studios receives the teacher row of a teacher sign-up when set.
	studios *fakeStudioStore
	// registerErr is returned by Register, as when a concurrent sign-up
	// took the email after the lookup.
	registerErr error
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{
		users:    make(map[string]*model.User),
		profiles: make(map[uuid.UUID]*model.Profile),
		codes:    make(map[string]uuid.UUID),
	}
}

func (f *fakeUserStore) Register(_ context.Context, user *model.User, profile *model.Profile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.registerErr != nil {
		return f.registerErr
	}
	if _, taken := f.users[user.Email]; taken {
		return repository.ErrEmailTaken
	}
	user.ID = uuid.New()
	profile.ID = uuid.New()
	profile.UserID = user.ID
	if profile.Role == model.RoleOwner && profile.StudioID == nil {
		id := uuid.New()
		profile.StudioID = &id
	}
	f.users[user.Email] = user
	f.profiles[user.ID] = profile
	if profile.Role == model.RoleTeacher && f.studios != nil {
		f.studios.teachers = append(f.studios.teachers, model.Teacher{
			ID: profile.ID, StudioID: *profile.StudioID, Name: profile.Name, Email: profile.Email,
		})
	}
	return nil
}

func (f *fakeUserStore) GetByEmail(_ context.Context, email string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.users[email], nil
}

func (f *fakeUserStore) FindProfile(_ context.Context, userID uuid.UUID) (*model.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.profiles[userID], nil
}

func (f *fakeUserStore) SetTelegramLinkCode(_ context.Context, userID uuid.UUID, code string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.codes[code] = userID
	return nil
}

func (f *fakeUserStore) LinkTelegram(_ context.Context, code string, chatID int64) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, ok := f.codes[code]
	if !ok {
		return nil, nil
	}
	delete(f.codes, code)
	for _, u := range f.users {
		if u.ID == id {
			u.TelegramChatID = &chatID
			return u, nil
		}
	}
	return nil, nil
}

func (f *fakeUserStore) GetByTelegramChatID(_ context.Context, chatID int64) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.TelegramChatID != nil && *u.TelegramChatID == chatID {
			return u, nil
		}
	}
	return nil, nil
}

func (f *fakeUserStore) TelegramChats(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	want := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	out := make(map[uuid.UUID]int64)
	for _, u := range f.users {
		if want[u.ID] && u.TelegramChatID != nil {
			out[u.ID] = *u.TelegramChatID
		}
	}
	return out, nil
}

// sessions

type fakeSessionStore struct {
	mu       sync.Mutex
	sessions map[string]*session.Session
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{sessions: make(map[string]*session.Session)}
}

func (f *fakeSessionStore) Save(_ context.Context, sess *session.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions[sess.ID] = sess
	return nil
}

func (f *fakeSessionStore) Get(_ context.Context, id string) (*session.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[id]
	if !ok {
		return nil, session.ErrNotFound
	}
	return s, nil
}

func (f *fakeSessionStore) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.sessions, id)
	return nil
}

// studios

type fakeStudioStore struct {
	studios   map[uuid.UUID]*model.Studio
	teachers  []model.Teacher
	parents   []model.Parent
	locations []model.Location
	inUse     map[uuid.UUID]bool // locations referenced by classes

	teacherReads int
}

func newFakeStudioStore(studioID uuid.UUID) *fakeStudioStore {
	return &fakeStudioStore{
		studios: map[uuid.UUID]*model.Studio{studioID: {ID: studioID, Name: model.DefaultStudioName}},
	}
}

func (f *fakeStudioStore) List(context.Context) ([]model.Studio, error) {
	var out []model.Studio
	for _, s := range f.studios {
		out = append(out, *s)
	}
	return out, nil
}

func (f *fakeStudioStore) GetByID(_ context.Context, id uuid.UUID) (*model.Studio, error) {
	s, ok := f.studios[id]
	if !ok {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (f *fakeStudioStore) Update(_ context.Context, s *model.Studio) error {
	if _, ok := f.studios[s.ID]; !ok {
		return errors.New("studio not found")
	}
	cp := *s
	f.studios[s.ID] = &cp
	return nil
}

func (f *fakeStudioStore) ListTeachers(_ context.Context, studioID uuid.UUID) ([]model.Teacher, error) {
	f.teacherReads++
	var out []model.Teacher
	for _, t := range f.teachers {
		if t.StudioID == studioID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeStudioStore) ListParents(_ context.Context, studioID uuid.UUID) ([]model.Parent, error) {
	var out []model.Parent
	for _, p := range f.parents {
		if p.StudioID == studioID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeStudioStore) GetParent(_ context.Context, id uuid.UUID) (*model.Parent, error) {
	for _, p := range f.parents {
		if p.ID == id {
			cp := p
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeStudioStore) ListLocations(_ context.Context, studioID uuid.UUID) ([]model.Location, error) {
	var out []model.Location
	for _, l := range f.locations {
		if l.StudioID == studioID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (f *fakeStudioStore) CreateLocation(_ context.Context, l *model.Location) error {
	l.ID = uuid.New()
	f.locations = append(f.locations, *l)
	return nil
}

func (f *fakeStudioStore) DeleteLocation(_ context.Context, studioID, id uuid.UUID) (bool, error) {
	if f.inUse[id] {
		return false, repository.ErrInUse
	}
	for i, l := range f.locations {
		if l.ID == id && l.StudioID == studioID {
			f.locations = append(f.locations[:i], f.locations[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

// students

type fakeStudentStore struct {
	students map[uuid.UUID]*model.Student
}

func newFakeStudentStore() *fakeStudentStore {
	return &fakeStudentStore{students: make(map[uuid.UUID]*model.Student)}
}

func (f *fakeStudentStore) add(studioID, parentID uuid.UUID, name string) uuid.UUID {
	s := &model.Student{ID: uuid.New(), StudioID: studioID, ParentID: parentID, Name: name}
	f.students[s.ID] = s
	return s.ID
}

func (f *fakeStudentStore) Create(_ context.Context, s *model.Student) error {
	s.ID = uuid.New()
	cp := *s
	f.students[s.ID] = &cp
	return nil
}

func (f *fakeStudentStore) ListByStudio(_ context.Context, studioID uuid.UUID) ([]model.Student, error) {
	var out []model.Student
	for _, s := range f.students {
		if s.StudioID == studioID {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (f *fakeStudentStore) ListByParent(_ context.Context, parentID uuid.UUID) ([]model.Student, error) {
	var out []model.Student
	for _, s := range f.students {
		if s.ParentID == parentID {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (f *fakeStudentStore) CountInStudio(_ context.Context, studioID uuid.UUID, ids []uuid.UUID) (int, error) {
	n := 0
	for _, id := range ids {
		if s, ok := f.students[id]; ok && s.StudioID == studioID {
			n++
		}
	}
	return n, nil
}

// classes

type fakeClassStore struct {
	students   *fakeStudentStore
	teachers   map[uuid.UUID]string
	locations  map[uuid.UUID]string
	classes    map[uuid.UUID]*model.Class
	instances  map[uuid.UUID]*model.ClassInstance
	exceptions map[uuid.UUID][]time.Time
}

func newFakeClassStore(students *fakeStudentStore) *fakeClassStore {
	return &fakeClassStore{
		students:   students,
		teachers:   make(map[uuid.UUID]string),
		locations:  make(map[uuid.UUID]string),
		classes:    make(map[uuid.UUID]*model.Class),
		instances:  make(map[uuid.UUID]*model.ClassInstance),
		exceptions: make(map[uuid.UUID][]time.Time),
	}
}

func (f *fakeClassStore) instancesOf(classID uuid.UUID) []*model.ClassInstance {
	var out []*model.ClassInstance
	for _, inst := range f.instances {
		if inst.ClassID == classID {
			out = append(out, inst)
		}
	}
	sort.Slice(out, func(a, b int) bool { return out[a].Date.Before(out[b].Date) })
	return out
}

func (f *fakeClassStore) insert(classID uuid.UUID, dates []time.Time) int64 {
	have := make(map[time.Time]bool)
	for _, inst := range f.instancesOf(classID) {
		have[inst.Date] = true
	}
	var n int64
	for _, d := range dates {
		if have[d] {
			continue
		}
		id := uuid.New()
		f.instances[id] = &model.ClassInstance{ID: id, ClassID: classID, Date: d}
		n++
	}
	return n
}

func (f *fakeClassStore) Create(_ context.Context, c *model.Class, dates []time.Time) error {
	c.ID = uuid.New()
	cp := *c
	f.classes[c.ID] = &cp
	f.insert(c.ID, dates)
	return nil
}

func (f *fakeClassStore) GetByID(_ context.Context, id uuid.UUID) (*model.Class, error) {
	c, ok := f.classes[id]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (f *fakeClassStore) ListByStudio(_ context.Context, studioID uuid.UUID) ([]model.Class, error) {
	var out []model.Class
	for _, c := range f.classes {
		if c.StudioID == studioID {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (f *fakeClassStore) ListRecurring(_ context.Context, since time.Time) ([]model.Class, error) {
	var out []model.Class
	for _, c := range f.classes {
		if c.IsRecurring && !c.EndDate.Before(since) {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (f *fakeClassStore) ListInstances(_ context.Context, filter repository.InstanceFilter) ([]model.ResolvedInstance, error) {
	var out []model.ResolvedInstance
	for _, inst := range f.instances {
		c := f.classes[inst.ClassID]
		if c.StudioID != filter.StudioID || inst.Date.Before(filter.From) || inst.Date.After(filter.To) {
			continue
		}
		if filter.ClassID != nil && c.ID != *filter.ClassID {
			continue
		}
		r := inst.Resolve(c)
		if filter.TeacherID != nil && r.TeacherID != *filter.TeacherID {
			continue
		}
		r.TeacherName = f.teachers[r.TeacherID]
		r.LocationName = f.locations[r.LocationID]
		out = append(out, r)
	}
	sort.Slice(out, func(a, b int) bool {
		if !out[a].Date.Equal(out[b].Date) {
			return out[a].Date.Before(out[b].Date)
		}
		return out[a].StartTime < out[b].StartTime
	})
	return out, nil
}

func (f *fakeClassStore) GetInstance(_ context.Context, id uuid.UUID) (*model.ClassInstance, error) {
	inst, ok := f.instances[id]
	if !ok {
		return nil, nil
	}
	cp := *inst
	return &cp, nil
}

func (f *fakeClassStore) instanceOn(classID uuid.UUID, d time.Time) *model.ClassInstance {
	for _, inst := range f.instancesOf(classID) {
		if inst.Date.Equal(d) {
			return inst
		}
	}
	return nil
}

func (f *fakeClassStore) InstanceDates(_ context.Context, classID uuid.UUID) ([]time.Time, error) {
	var out []time.Time
	for _, inst := range f.instancesOf(classID) {
		out = append(out, inst.Date)
	}
	return out, nil
}

func (f *fakeClassStore) ExceptionDates(_ context.Context, classID uuid.UUID) ([]time.Time, error) {
	return f.exceptions[classID], nil
}

func (f *fakeClassStore) EditInstances(_ context.Context, plan schedule.Plan, ch model.ClassChanges) (int64, error) {
	var n int64
	for _, inst := range f.instancesOf(plan.ClassID) {
		if !plan.Selects(inst.Date) {
			continue
		}
		if ch.Name != nil {
			inst.Name = ch.Name
		}
		if ch.TeacherID != nil {
			inst.TeacherID = ch.TeacherID
		}
		if ch.LocationID != nil {
			inst.LocationID = ch.LocationID
		}
		if ch.StartTime != nil {
			inst.StartTime = ch.StartTime
		}
		if ch.EndTime != nil {
			inst.EndTime = ch.EndTime
		}
		n++
	}
	if ch.StudentIDs != nil {
		f.classes[plan.ClassID].StudentIDs = *ch.StudentIDs
	}
	return n, nil
}

func (f *fakeClassStore) EditTemplate(_ context.Context, c *model.Class, ch model.ClassChanges, diff schedule.Diff) (int64, error) {
	cp := *c
	f.classes[c.ID] = &cp
	f.sync(c.ID, diff)

	var n int64
	for _, inst := range f.instancesOf(c.ID) {
		if ch.Name != nil {
			inst.Name = nil
		}
		if ch.TeacherID != nil {
			inst.TeacherID = nil
		}
		if ch.LocationID != nil {
			inst.LocationID = nil
		}
		if ch.StartTime != nil || ch.EndTime != nil {
			inst.StartTime, inst.EndTime = nil, nil
		}
		n++
	}
	return n, nil
}

func (f *fakeClassStore) sync(classID uuid.UUID, diff schedule.Diff) (created, deleted int64) {
	drop := make(map[time.Time]bool)
	for _, d := range diff.Delete {
		drop[d] = true
	}
	for id, inst := range f.instances {
		if inst.ClassID == classID && drop[inst.Date] {
			delete(f.instances, id)
			deleted++
		}
	}
	return f.insert(classID, diff.Create), deleted
}

func (f *fakeClassStore) DeleteInstances(_ context.Context, plan schedule.Plan, opts repository.DeleteOptions) (int64, error) {
	var n int64
	for _, inst := range f.instancesOf(plan.ClassID) {
		if opts.WholeClass || plan.Selects(inst.Date) {
			if !opts.WholeClass && plan.Scope != schedule.ScopeFuture {
				f.exceptions[plan.ClassID] = append(f.exceptions[plan.ClassID], inst.Date)
			}
			delete(f.instances, inst.ID)
			n++
		}
	}
	switch {
	case opts.WholeClass:
		delete(f.classes, plan.ClassID)
	case plan.Scope == schedule.ScopeFuture:
		f.classes[plan.ClassID].EndDate = plan.TruncatedEnd()
	}
	return n, nil
}

func (f *fakeClassStore) SyncInstances(_ context.Context, classID uuid.UUID, diff schedule.Diff) (int64, int64, error) {
	created, deleted := f.sync(classID, diff)
	return created, deleted, nil
}

func (f *fakeClassStore) EnrolledChildren(_ context.Context, parentID uuid.UUID) (map[uuid.UUID][]string, error) {
	out := make(map[uuid.UUID][]string)
	for _, c := range f.classes {
		for _, sid := range c.StudentIDs {
			if s, ok := f.students.students[sid]; ok && s.ParentID == parentID {
				out[c.ID] = append(out[c.ID], s.Name)
			}
		}
	}
	return out, nil
}

// attendance

type fakeAttendanceStore struct {
	classes     *fakeClassStore
	enrollments map[uuid.UUID][]model.InstanceEnrollment // by instance
	records     map[uuid.UUID]model.AttendanceRecord   // by enrollment

	ensureCalls int
}

func newFakeAttendanceStore(classes *fakeClassStore) *fakeAttendanceStore {
	return &fakeAttendanceStore{
		classes:     classes,
		enrollments: make(map[uuid.UUID][]model.InstanceEnrollment),
		records:     make(map[uuid.UUID]model.AttendanceRecord),
	}
}

func (f *fakeAttendanceStore) EnsureEnrollments(_ context.Context, instanceID, classID uuid.UUID) (int64, error) {
	f.ensureCalls++
	if len(f.enrollments[instanceID]) > 0 {
		return 0, nil
	}
	for _, sid := range f.classes.classes[classID].StudentIDs {
		f.enrollments[instanceID] = append(f.enrollments[instanceID], model.InstanceEnrollment{
			ID: uuid.New(), ClassInstanceID: instanceID, StudentID: sid,
		})
	}
	return int64(len(f.enrollments[instanceID])), nil
}

func (f *fakeAttendanceStore) Roster(_ context.Context, instanceID uuid.UUID) ([]model.RosterEntry, error) {
	var out []model.RosterEntry
	for _, e := range f.enrollments[instanceID] {
		s := f.classes.students.students[e.StudentID]
		entry := model.RosterEntry{EnrollmentID: e.ID, StudentID: s.ID, StudentName: s.Name, ParentID: s.ParentID}
		if rec, ok := f.records[e.ID]; ok {
			entry.Attendance = &rec
		}
		out = append(out, entry)
	}
	sort.Slice(out, func(a, b int) bool { return out[a].StudentName < out[b].StudentName })
	return out, nil
}

func (f *fakeAttendanceStore) SaveMarks(_ context.Context, instanceID uuid.UUID, marks []model.AttendanceMark) error {
	owned := make(map[uuid.UUID]bool)
	for _, e := range f.enrollments[instanceID] {
		owned[e.ID] = true
	}
	for _, m := range marks {
		if !owned[m.EnrollmentID] {
			return errors.New("enrollment does not belong to the class instance")
		}
	}
	for _, m := range marks {
		f.records[m.EnrollmentID] = model.AttendanceRecord{
			InstanceEnrollmentID: m.EnrollmentID, Status: m.Status, Notes: m.Notes, UpdatedAt: time.Now(),
		}
	}
	return nil
}

// conversations

type fakeConversationStore struct {
	conversations map[uuid.UUID]*model.Conversation
	unread        map[uuid.UUID]map[uuid.UUID]int // conversation -> user -> count
	messages      map[uuid.UUID][]model.Message
	contacts      []model.Participant
	markReadErr   error
}

func newFakeConversationStore() *fakeConversationStore {
	return &fakeConversationStore{
		conversations: make(map[uuid.UUID]*model.Conversation),
		unread:        make(map[uuid.UUID]map[uuid.UUID]int),
		messages:      make(map[uuid.UUID][]model.Message),
	}
}

func (f *fakeConversationStore) ListForUser(_ context.Context, userID uuid.UUID) ([]model.Conversation, error) {
	var out []model.Conversation
	for id, c := range f.conversations {
		count, ok := f.unread[id][userID]
		if !ok {
			continue
		}
		cp := *c
		cp.UnreadCount = count
		out = append(out, cp)
	}
	return out, nil
}

func (f *fakeConversationStore) ParticipantIDs(_ context.Context, convID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	for id := range f.unread[convID] {
		ids = append(ids, id)
	}
	return ids, nil
}

func (f *fakeConversationStore) Messages(_ context.Context, convID uuid.UUID) ([]model.Message, error) {
	return f.messages[convID], nil
}

func (f *fakeConversationStore) Send(_ context.Context, m *model.Message) error {
	m.ID = uuid.New()
	m.CreatedAt = time.Now()
	f.messages[m.ConversationID] = append(f.messages[m.ConversationID], *m)

	c := f.conversations[m.ConversationID]
	content, at := m.Content, m.CreatedAt
	c.LastMessage, c.LastMessageAt = &content, &at
	for uid := range f.unread[m.ConversationID] {
		if uid != m.SenderID {
			f.unread[m.ConversationID][uid]++
		}
	}
	return nil
}

func (f *fakeConversationStore) MarkRead(_ context.Context, convID, userID uuid.UUID) error {
	if f.markReadErr != nil {
		return f.markReadErr
	}
	f.unread[convID][userID] = 0
	return nil
}

func (f *fakeConversationStore) Create(_ context.Context, createdBy uuid.UUID, participants []uuid.UUID) (uuid.UUID, error) {
	id := uuid.New()
	f.conversations[id] = &model.Conversation{ID: id, CreatedBy: createdBy, CreatedAt: time.Now()}
	f.unread[id] = make(map[uuid.UUID]int)
	for _, p := range participants {
		f.unread[id][p] = 0
	}
	return id, nil
}

func (f *fakeConversationStore) Contacts(context.Context, uuid.UUID) ([]model.Participant, error) {
	return f.contacts, nil
}

// invoices

type fakeInvoiceStore struct {
	invoices    map[uuid.UUID]*model.Invoice
	enrollments map[uuid.UUID][]model.PlanEnrollment // by parent
}

func newFakeInvoiceStore() *fakeInvoiceStore {
	return &fakeInvoiceStore{
		invoices:    make(map[uuid.UUID]*model.Invoice),
		enrollments: make(map[uuid.UUID][]model.PlanEnrollment),
	}
}

func (f *fakeInvoiceStore) Create(_ context.Context, inv *model.Invoice) error {
	inv.ID = uuid.New()
	inv.CreatedAt = time.Now()
	cp := *inv
	f.invoices[inv.ID] = &cp
	return nil
}

func (f *fakeInvoiceStore) List(_ context.Context, studioID uuid.UUID, filter model.InvoiceFilter) ([]model.Invoice, error) {
	var out []model.Invoice
	for _, inv := range f.invoices {
		if inv.StudioID != studioID || (filter.Status != nil && inv.Status != *filter.Status) {
			continue
		}
		out = append(out, *inv)
	}
	return out, nil
}

func (f *fakeInvoiceStore) GetByID(_ context.Context, id uuid.UUID) (*model.Invoice, error) {
	inv, ok := f.invoices[id]
	if !ok {
		return nil, nil
	}
	cp := *inv
	return &cp, nil
}

func (f *fakeInvoiceStore) StatusCounts(_ context.Context, studioID uuid.UUID) (map[model.InvoiceStatus]int, error) {
	counts := make(map[model.InvoiceStatus]int)
	for _, s := range model.InvoiceStatuses {
		counts[s] = 0
	}
	for _, inv := range f.invoices {
		if inv.StudioID == studioID {
			counts[inv.Status]++
		}
	}
	return counts, nil
}

func (f *fakeInvoiceStore) UpdateStatus(_ context.Context, id uuid.UUID, status model.InvoiceStatus) error {
	f.invoices[id].Status = status
	return nil
}

func (f *fakeInvoiceStore) MarkOverdue(_ context.Context, today time.Time) (int64, error) {
	var n int64
	for _, inv := range f.invoices {
		if inv.Status == model.InvoiceSent && inv.DueDate.Before(today) {
			inv.Status = model.InvoiceOverdue
			n++
		}
	}
	return n, nil
}

func (f *fakeInvoiceStore) PlanEnrollments(_ context.Context, parentID uuid.UUID) ([]model.PlanEnrollment, error) {
	return f.enrollments[parentID], nil
}

// channels

type fakeChannelStore struct {
	classes  *fakeClassStore
	channels []model.Channel
	posts    []model.ChannelPost
}

func (f *fakeChannelStore) Create(_ context.Context, ch *model.Channel) error {
	ch.ID = uuid.New()
	f.channels = append(f.channels, *ch)
	return nil
}

func (f *fakeChannelStore) ListVisible(ctx context.Context, a repository.ChannelAudience) ([]model.Channel, error) {
	children, _ := f.classes.EnrolledChildren(ctx, a.ProfileID)
	var out []model.Channel
	for _, ch := range f.channels {
		c := f.classes.classes[ch.ClassID]
		if c.StudioID != a.StudioID {
			continue
		}
		switch a.Role {
		case model.RoleTeacher:
			if c.TeacherID != a.ProfileID {
				continue
			}
		case model.RoleParent:
			if _, ok := children[c.ID]; !ok {
				continue
			}
		}
		out = append(out, ch)
	}
	return out, nil
}

func (f *fakeChannelStore) ListPosts(_ context.Context, channelID uuid.UUID) ([]model.ChannelPost, error) {
	var out []model.ChannelPost
	for _, p := range f.posts {
		if p.ChannelID == channelID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeChannelStore) CreatePost(_ context.Context, p *model.ChannelPost) error {
	p.ID = uuid.New()
	f.posts = append(f.posts, *p)
	return nil
}

// realtime and notifications

type fakePublisher struct {
	mu     sync.Mutex
	topics []string
}

func (f *fakePublisher) Publish(_ context.Context, topic string, _ realtime.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.topics = append(f.topics, topic)
	return nil
}

type fakeSubscriber struct {
	topics []string
}

func (f *fakeSubscriber) Subscribe(_ context.Context, topic string) (*realtime.Subscription, error) {
	f.topics = append(f.topics, topic)
	return nil, nil
}

type sentNotification struct {
	chatID int64
	text   string
}

type fakeNotifier struct {
	sent []sentNotification
}

func (f *fakeNotifier) Notify(_ context.Context, chatID int64, text string) error {
	f.sent = append(f.sent, sentNotification{chatID: chatID, text: text})
	return nil
}
