package service

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/noah-isme/storyninja-api/internal/models"
	"github.com/noah-isme/storyninja-api/internal/repository"
	"github.com/noah-isme/storyninja-api/pkg/jobs"
)

type fakeUsers struct {
	mu      sync.Mutex
	items   map[string]*models.User
	seq     int
	deleted []string
	findErr error
}

func newFakeUsers(users ...models.User) *fakeUsers {
	f := &fakeUsers{items: make(map[string]*models.User)}
	for i := range users {
		u := users[i]
		f.items[u.ID] = &u
	}
	return f
}

func (f *fakeUsers) FindByID(ctx context.Context, id string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.findErr != nil {
		return nil, f.findErr
	}
	if u, ok := f.items[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeUsers) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.items {
		if strings.EqualFold(u.Email, email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeUsers) FindByIDs(ctx context.Context, ids []string) ([]models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.User
	for _, id := range ids {
		if u, ok := f.items[id]; ok {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (f *fakeUsers) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	_, err := f.FindByEmail(ctx, email)
	return err == nil, nil
}

func (f *fakeUsers) List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.User
	for _, u := range f.items {
		out = append(out, *u)
	}
	return out, len(out), nil
}

func (f *fakeUsers) Create(ctx context.Context, user *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.items {
		if strings.EqualFold(u.Email, user.Email) {
			return fmt.Errorf("create user: %w", repository.ErrDuplicate)
		}
	}
	if user.ID == "" {
		f.seq++
		user.ID = fmt.Sprintf("user-%d", f.seq)
	}
	cp := *user
	f.items[user.ID] = &cp
	return nil
}

func (f *fakeUsers) Update(ctx context.Context, user *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *user
	f.items[user.ID] = &cp
	return nil
}

func (f *fakeUsers) UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.items[id]
	if !ok {
		return sql.ErrNoRows
	}
	u.PasswordHash = &passwordHash
	return nil
}

func (f *fakeUsers) SetVerified(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.items[id]
	if !ok {
		return sql.ErrNoRows
	}
	u.Verified = true
	return nil
}

func (f *fakeUsers) ReplaceClasses(ctx context.Context, userID string, role models.MemberRole, classIDs []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.items[userID]
	if !ok {
		return sql.ErrNoRows
	}
	u.AssignedClasses = append([]string(nil), classIDs...)
	return nil
}

func (f *fakeUsers) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.items[id]; !ok {
		return sql.ErrNoRows
	}
	delete(f.items, id)
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeUsers) AddGold(ctx context.Context, id string, amount int) (int, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.items[id]
	if !ok {
		return 0, 0, sql.ErrNoRows
	}
	u.NinjaGold += amount
	u.NinjaLevel = models.LevelForGold(u.NinjaGold)
	return u.NinjaGold, u.NinjaLevel, nil
}

func (f *fakeUsers) gold(id string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.items[id].NinjaGold
}

type fakeSessions struct {
	tokens map[string]string
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{tokens: make(map[string]string)}
}

func (f *fakeSessions) Upsert(ctx context.Context, userID, token string) error {
	f.tokens[userID] = token
	return nil
}

func (f *fakeSessions) InsertIfAbsent(ctx context.Context, userID, token string) (bool, error) {
	if _, ok := f.tokens[userID]; ok {
		return false, nil
	}
	f.tokens[userID] = token
	return true, nil
}

func (f *fakeSessions) Find(ctx context.Context, userID string) (*models.Session, error) {
	token, ok := f.tokens[userID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &models.Session{UserID: userID, Token: token}, nil
}

type fakeSubscriptions struct {
	sub *models.Subscription
	err error
}

func (f *fakeSubscriptions) FindByEmail(ctx context.Context, email string) (*models.Subscription, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.sub == nil {
		return nil, sql.ErrNoRows
	}
	return f.sub, nil
}

type fakeSchools struct {
	items map[string]*models.School
}

func (f *fakeSchools) FindByID(ctx context.Context, id string) (*models.School, error) {
	if s, ok := f.items[id]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

type fakeGrades struct {
	items   map[string]*models.Grade
	classes map[string]int
	seq     int
}

func newFakeGrades() *fakeGrades {
	return &fakeGrades{items: make(map[string]*models.Grade), classes: make(map[string]int)}
}

func (f *fakeGrades) List(ctx context.Context, filter models.GradeFilter) ([]models.Grade, int, error) {
	var out []models.Grade
	for _, g := range f.items {
		if filter.SchoolID == "" || g.SchoolID == filter.SchoolID {
			out = append(out, *g)
		}
	}
	return out, len(out), nil
}

func (f *fakeGrades) FindByID(ctx context.Context, id string) (*models.Grade, error) {
	if g, ok := f.items[id]; ok {
		cp := *g
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeGrades) ExistsByNumber(ctx context.Context, schoolID string, gradeNumber int, excludeID string) (bool, error) {
	for _, g := range f.items {
		if g.SchoolID == schoolID && g.GradeNumber == gradeNumber && g.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeGrades) Create(ctx context.Context, grade *models.Grade) error {
	f.seq++
	grade.ID = fmt.Sprintf("grade-%d", f.seq)
	cp := *grade
	f.items[grade.ID] = &cp
	return nil
}

func (f *fakeGrades) Update(ctx context.Context, grade *models.Grade) error {
	cp := *grade
	f.items[grade.ID] = &cp
	return nil
}

func (f *fakeGrades) Delete(ctx context.Context, id string) (bool, error) {
	if f.classes[id] > 0 {
		return false, nil
	}
	delete(f.items, id)
	return true, nil
}

type fakeClasses struct {
	items   map[string]*models.Class
	members map[string]map[string]models.MemberRole
	users   *fakeUsers
	seq     int
}

func newFakeClasses(users *fakeUsers) *fakeClasses {
	return &fakeClasses{items: make(map[string]*models.Class), members: make(map[string]map[string]models.MemberRole), users: users}
}

func (f *fakeClasses) add(class models.Class) {
	f.items[class.ID] = &class
}

func (f *fakeClasses) join(classID, userID string, role models.MemberRole) {
	if f.members[classID] == nil {
		f.members[classID] = make(map[string]models.MemberRole)
	}
	f.members[classID][userID] = role
}

func (f *fakeClasses) List(ctx context.Context, filter models.ClassFilter) ([]models.Class, int, error) {
	var out []models.Class
	for _, c := range f.items {
		if filter.GradeID == "" || c.GradeID == filter.GradeID {
			out = append(out, *c)
		}
	}
	return out, len(out), nil
}

func (f *fakeClasses) FindByID(ctx context.Context, id string) (*models.Class, error) {
	if c, ok := f.items[id]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeClasses) FindByIDs(ctx context.Context, ids []string) ([]models.Class, error) {
	var out []models.Class
	for _, id := range ids {
		if c, ok := f.items[id]; ok {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (f *fakeClasses) Members(ctx context.Context, classID string) ([]models.ClassMember, error) {
	var out []models.ClassMember
	for userID, role := range f.members[classID] {
		member := models.ClassMember{ID: userID, ClassID: classID, MemberRole: role}
		if f.users != nil {
			if u, err := f.users.FindByID(ctx, userID); err == nil {
				member.Name = u.Name
			}
		}
		out = append(out, member)
	}
	return out, nil
}

func (f *fakeClasses) ExistsByName(ctx context.Context, gradeID, name, excludeID string) (bool, error) {
	for _, c := range f.items {
		if c.GradeID == gradeID && strings.EqualFold(c.ClassName, name) && c.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeClasses) Create(ctx context.Context, class *models.Class) error {
	f.seq++
	class.ID = fmt.Sprintf("class-%d", f.seq)
	cp := *class
	f.items[class.ID] = &cp
	return nil
}

func (f *fakeClasses) Update(ctx context.Context, class *models.Class) error {
	cp := *class
	f.items[class.ID] = &cp
	return nil
}

func (f *fakeClasses) Delete(ctx context.Context, id string) error {
	if _, ok := f.items[id]; !ok {
		return sql.ErrNoRows
	}
	delete(f.items, id)
	delete(f.members, id)
	return nil
}

func (f *fakeClasses) ReplaceMembers(ctx context.Context, classID string, role models.MemberRole, userIDs []string) error {
	for userID, r := range f.members[classID] {
		if r == role {
			delete(f.members[classID], userID)
		}
	}
	for _, userID := range userIDs {
		f.join(classID, userID, role)
	}
	return nil
}

func (f *fakeClasses) IsMember(ctx context.Context, classID, userID string, role models.MemberRole) (bool, error) {
	r, ok := f.members[classID][userID]
	return ok && r == role, nil
}

func (f *fakeClasses) ListForMember(ctx context.Context, userID string, role models.MemberRole) ([]models.Class, error) {
	var out []models.Class
	for classID, members := range f.members {
		if members[userID] == role {
			out = append(out, *f.items[classID])
		}
	}
	return out, nil
}

func (f *fakeClasses) StudentsForTeacher(ctx context.Context, teacherID, classID string) ([]models.ClassMember, error) {
	var out []models.ClassMember
	for id, members := range f.members {
		if members[teacherID] != models.MemberTeacher || (classID != "" && id != classID) {
			continue
		}
		for userID, role := range members {
			if role == models.MemberStudent {
				out = append(out, models.ClassMember{ID: userID, ClassID: id, MemberRole: role})
			}
		}
	}
	return out, nil
}

type fakeStories struct {
	mu       sync.Mutex
	items    map[string]*models.Story
	reads    map[string]int
	credited map[string]int
	seq      int
}

func newFakeStories(stories ...models.Story) *fakeStories {
	f := &fakeStories{items: make(map[string]*models.Story), reads: make(map[string]int), credited: make(map[string]int)}
	for i := range stories {
		s := stories[i]
		f.items[s.ID] = &s
	}
	return f
}

func (f *fakeStories) List(ctx context.Context, filter models.StoryFilter) ([]models.Story, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Story
	for _, s := range f.items {
		if filter.PublishedOnly && s.Status != models.StoryPublished {
			continue
		}
		if filter.Status != nil && s.Status != *filter.Status {
			continue
		}
		out = append(out, *s)
	}
	return out, len(out), nil
}

func (f *fakeStories) FindByID(ctx context.Context, id string) (*models.Story, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.items[id]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeStories) Create(ctx context.Context, story *models.Story) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	story.ID = fmt.Sprintf("story-%d", f.seq)
	cp := *story
	f.items[story.ID] = &cp
	return nil
}

func (f *fakeStories) Update(ctx context.Context, story *models.Story) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *story
	f.items[story.ID] = &cp
	return nil
}

func (f *fakeStories) IncrementReadCount(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads[id]++
	f.items[id].ReadCount++
	return nil
}

func (f *fakeStories) CountByAuthor(ctx context.Context, authorID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, s := range f.items {
		if s.AuthorID == authorID {
			count++
		}
	}
	return count, nil
}

func (f *fakeStories) UpdateStatus(ctx context.Context, id string, expected *models.StoryStatus, status models.StoryStatus) (*models.Story, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.items[id]
	if !ok {
		return nil, false, sql.ErrNoRows
	}
	if expected != nil && s.Status != *expected {
		return nil, false, repository.ErrStatusChanged
	}
	published := status == models.StoryPublished && s.Status != models.StoryPublished
	if published {
		f.credited[s.AuthorID]++
	}
	s.Status = status
	s.IsPublished = status == models.StoryPublished
	cp := *s
	return &cp, published, nil
}

func (f *fakeStories) Delete(ctx context.Context, id string) (*models.Story, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.items[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	delete(f.items, id)
	return s, nil
}

func (f *fakeStories) MutateDiscussion(ctx context.Context, id string, fn func(story *models.Story) error) (*models.Story, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.items[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	working := *s
	if err := fn(&working); err != nil {
		return nil, err
	}
	working.LikeCount = len(working.Likes)
	f.items[id] = &working
	cp := working
	return &cp, nil
}

type fakeObjects struct {
	deleted []string
	err     error
}

func (f *fakeObjects) Delete(ctx context.Context, publicID string) error {
	f.deleted = append(f.deleted, publicID)
	return f.err
}

type fakeProgress struct {
	rows map[string]*models.ReadingProgress
}

func newFakeProgress() *fakeProgress {
	return &fakeProgress{rows: make(map[string]*models.ReadingProgress)}
}

func (f *fakeProgress) Get(ctx context.Context, userID, storyID string) (*models.ReadingProgress, error) {
	if p, ok := f.rows[userID+"/"+storyID]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeProgress) ListForUser(ctx context.Context, userID string, storyIDs []string) ([]models.ReadingProgress, error) {
	var out []models.ReadingProgress
	for _, storyID := range storyIDs {
		if p, ok := f.rows[userID+"/"+storyID]; ok {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (f *fakeProgress) Save(ctx context.Context, progress *models.ReadingProgress) (bool, error) {
	key := progress.UserID + "/" + progress.StoryID
	existing, ok := f.rows[key]
	completed := ok && existing.Completed
	newly := false
	if progress.Progress >= 100 && !completed {
		completed = true
		newly = true
	}
	progress.Completed = completed
	cp := *progress
	f.rows[key] = &cp
	return newly, nil
}

type fakeAssignedBooks struct {
	books []models.AssignedBook
}

func (f *fakeAssignedBooks) ListForReader(ctx context.Context, userID string) ([]models.AssignedBook, error) {
	return f.books, nil
}

type fakeAssignmentRepo struct {
	items map[string]*models.BookAssignment
	keys  map[string]bool
	seq   int
}

func newFakeAssignmentRepo() *fakeAssignmentRepo {
	return &fakeAssignmentRepo{items: make(map[string]*models.BookAssignment), keys: make(map[string]bool)}
}

func (f *fakeAssignmentRepo) Create(ctx context.Context, a *models.BookAssignment) error {
	student := ""
	if a.StudentID != nil {
		student = *a.StudentID
	}
	key := a.ClassID + "/" + a.StoryID + "/" + student
	if f.keys[key] {
		return fmt.Errorf("create assignment: %w", repository.ErrDuplicate)
	}
	f.keys[key] = true
	f.seq++
	a.ID = fmt.Sprintf("assignment-%d", f.seq)
	cp := *a
	f.items[a.ID] = &cp
	return nil
}

func (f *fakeAssignmentRepo) FindByID(ctx context.Context, id string) (*models.BookAssignment, error) {
	if a, ok := f.items[id]; ok {
		cp := *a
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeAssignmentRepo) ListByTeacher(ctx context.Context, teacherID string) ([]models.BookAssignment, error) {
	var out []models.BookAssignment
	for _, a := range f.items {
		if a.TeacherID == teacherID {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (f *fakeAssignmentRepo) Delete(ctx context.Context, id string) error {
	if _, ok := f.items[id]; !ok {
		return sql.ErrNoRows
	}
	delete(f.items, id)
	return nil
}

type fakeQuizzes struct {
	items    map[string]*models.Quiz
	attempts []models.QuizAttempt
	rewarded map[string]bool
	seq      int
}

func newFakeQuizzes() *fakeQuizzes {
	return &fakeQuizzes{items: make(map[string]*models.Quiz), rewarded: make(map[string]bool)}
}

func (f *fakeQuizzes) ListByTeacher(ctx context.Context, teacherID string, page, size int) ([]models.Quiz, int, error) {
	var out []models.Quiz
	for _, q := range f.items {
		if q.TeacherID == teacherID {
			out = append(out, *q)
		}
	}
	return out, len(out), nil
}

func (f *fakeQuizzes) FindByID(ctx context.Context, id string) (*models.Quiz, error) {
	if q, ok := f.items[id]; ok {
		cp := *q
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeQuizzes) Create(ctx context.Context, quiz *models.Quiz) error {
	f.seq++
	quiz.ID = fmt.Sprintf("quiz-%d", f.seq)
	cp := *quiz
	f.items[quiz.ID] = &cp
	return nil
}

func (f *fakeQuizzes) Update(ctx context.Context, quiz *models.Quiz) error {
	cp := *quiz
	f.items[quiz.ID] = &cp
	return nil
}

func (f *fakeQuizzes) Delete(ctx context.Context, id string) error {
	delete(f.items, id)
	return nil
}

func (f *fakeQuizzes) CreateAttempt(ctx context.Context, attempt *models.QuizAttempt) (bool, error) {
	attempt.ID = fmt.Sprintf("attempt-%d", len(f.attempts)+1)
	f.attempts = append(f.attempts, *attempt)
	key := attempt.QuizID + "/" + attempt.UserID
	if !attempt.Perfect() || f.rewarded[key] {
		return false, nil
	}
	f.rewarded[key] = true
	return true, nil
}

type dispatched struct {
	jobType  string
	userID   string
	sourceID string
}

type fakeRewards struct {
	calls []dispatched
}

func (f *fakeRewards) Dispatch(jobType, userID, sourceID string) {
	f.calls = append(f.calls, dispatched{jobType: jobType, userID: userID, sourceID: sourceID})
}

type fakeQueue struct {
	handlers map[string]jobs.Handler
	enqueued []jobs.Job
	err      error
}

func newFakeQueue() *fakeQueue {
	return &fakeQueue{handlers: make(map[string]jobs.Handler)}
}

func (f *fakeQueue) Register(jobType string, handler jobs.Handler) {
	f.handlers[jobType] = handler
}

func (f *fakeQueue) Enqueue(job jobs.Job) error {
	if f.err != nil {
		return f.err
	}
	f.enqueued = append(f.enqueued, job)
	return nil
}

// drain runs every enqueued job synchronously.
func (f *fakeQueue) drain(ctx context.Context) error {
	pending := f.enqueued
	f.enqueued = nil
	for _, job := range pending {
		if err := f.handlers[job.Type](ctx, job); err != nil {
			return err
		}
	}
	return nil
}

type fakeAudit struct {
	logs []models.AuditLog
}

func (f *fakeAudit) Create(ctx context.Context, log *models.AuditLog) error {
	f.logs = append(f.logs, *log)
	return nil
}

type fakeMailer struct {
	sent []string
}

func (f *fakeMailer) Send(ctx context.Context, user *models.User) error {
	f.sent = append(f.sent, user.ID)
	return nil
}

func (f *fakeMailer) Confirm(ctx context.Context, token string) (string, error) {
	return "", nil
}
