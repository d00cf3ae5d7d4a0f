package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/m11312045/pneumatic-app/internal/grading"
	"github.com/m11312045/pneumatic-app/internal/models"
	"github.com/m11312045/pneumatic-app/internal/repositories"
	"github.com/stretchr/testify/mock"
	"gorm.io/gorm"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func newQuestion(variant models.QuestionVariant, difficulty int) *models.Question {
	q := &models.Question{
		ID:       uuid.NewString(),
		Variant:  variant,
		IsActive: true,
	}
	if difficulty > 0 {
		d := difficulty
		q.Difficulty = &d
	}
	return q
}

// ===== IN-MEMORY REPOSITORY =====

// memStore is a Repository backed by maps. WithTransaction snapshots the
// maps and restores them when fn fails. GetByIDForUpdate holds a per-attempt
// lock until the owning transaction ends.
type memStore struct {
	mu        sync.Mutex
	students  map[string]models.Student
	questions map[string]models.Question
	attempts  map[string]models.Attempt
	items     map[string]models.AttemptItem

	rowLocks map[string]*sync.Mutex
	txs      map[*gorm.DB]*memTx

	// afterLock runs once, right after the next row lock is taken.
	afterLock func(attemptID string)

	failCreateItems error
	failFinalize    error
	applyCalls      int
}

func newMemStore() *memStore {
	return &memStore{
		students:  map[string]models.Student{},
		questions: map[string]models.Question{},
		attempts:  map[string]models.Attempt{},
		items:     map[string]models.AttemptItem{},
		rowLocks:  map[string]*sync.Mutex{},
		txs:       map[*gorm.DB]*memTx{},
	}
}

type memSnapshot struct {
	students  map[string]models.Student
	questions map[string]models.Question
	attempts  map[string]models.Attempt
	items     map[string]models.AttemptItem
}

type memTx struct {
	snapshot memSnapshot
	locked   []string
}

func (m *memStore) Question() repositories.QuestionRepository       { return memQuestions{m} }
func (m *memStore) Student() repositories.StudentRepository         { return memStudents{m} }
func (m *memStore) Attempt() repositories.AttemptRepository         { return memAttempts{m} }
func (m *memStore) AttemptItem() repositories.AttemptItemRepository { return memItems{m} }

func (m *memStore) WithTransaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	tx := &gorm.DB{}
	state := &memTx{}
	m.mu.Lock()
	state.snapshot = m.snapshotLocked()
	m.txs[tx] = state
	m.mu.Unlock()

	err := fn(tx)

	m.mu.Lock()
	if err != nil {
		m.students, m.questions = state.snapshot.students, state.snapshot.questions
		m.attempts, m.items = state.snapshot.attempts, state.snapshot.items
	}
	delete(m.txs, tx)
	m.mu.Unlock()

	for _, id := range state.locked {
		m.rowLock(id).Unlock()
	}
	return err
}

func (m *memStore) snapshotLocked() memSnapshot {
	return memSnapshot{
		students:  copyMap(m.students),
		questions: copyMap(m.questions),
		attempts:  copyMap(m.attempts),
		items:     copyMap(m.items),
	}
}

func (m *memStore) rowLock(id string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.rowLocks[id]
	if !ok {
		l = &sync.Mutex{}
		m.rowLocks[id] = l
	}
	return l
}

// lockRow blocks until tx owns the attempt's row lock. Services lock before
// they write, so the rollback snapshot is retaken once the first lock is held.
func (m *memStore) lockRow(tx *gorm.DB, id string) error {
	m.mu.Lock()
	state, ok := m.txs[tx]
	m.mu.Unlock()
	if !ok {
		return errors.New("row lock requested outside a transaction")
	}

	m.rowLock(id).Lock()

	m.mu.Lock()
	state.locked = append(state.locked, id)
	if len(state.locked) == 1 {
		state.snapshot = m.snapshotLocked()
	}
	hook := m.afterLock
	m.afterLock = nil
	m.mu.Unlock()

	if hook != nil {
		hook(id)
	}
	return nil
}

func copyMap[V any](src map[string]V) map[string]V {
	dst := make(map[string]V, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

func (m *memStore) addStudent(no, name string) *models.Student {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := models.Student{ID: uuid.NewString(), StudentNo: no, Name: name}
	m.students[s.ID] = s
	return &s
}

func (m *memStore) addQuestions(questions ...*models.Question) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, q := range questions {
		m.questions[q.ID] = *q
	}
}

func (m *memStore) attempt(id string) (models.Attempt, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.attempts[id]
	return a, ok
}

func (m *memStore) itemsOf(attemptID string) []models.AttemptItem {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.itemsOfLocked(attemptID)
}

func (m *memStore) itemsOfLocked(attemptID string) []models.AttemptItem {
	var out []models.AttemptItem
	for _, item := range m.items {
		if item.AttemptID == attemptID {
			if q, ok := m.questions[item.QuestionID]; ok {
				q := q
				item.Question = &q
			}
			out = append(out, item)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out
}

func (m *memStore) withDetailsLocked(a models.Attempt) *models.Attempt {
	if s, ok := m.students[a.StudentID]; ok {
		s := s
		a.Student = &s
	}
	a.Items = m.itemsOfLocked(a.ID)
	return &a
}

type memQuestions struct{ m *memStore }

func (r memQuestions) GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.Question, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	q, ok := r.m.questions[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &q, nil
}

func (r memQuestions) List(ctx context.Context, tx *gorm.DB, filters repositories.QuestionFilters) ([]*models.Question, int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []*models.Question
	for _, q := range r.m.questions {
		q := q
		if filters.ActiveOnly && !q.IsActive {
			continue
		}
		if filters.Variant != nil && q.Variant != *filters.Variant {
			continue
		}
		if filters.Difficulty != nil && q.DifficultyLevel() != *filters.Difficulty {
			continue
		}
		out = append(out, &q)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	total := int64(len(out))
	if filters.Offset > 0 {
		out = out[min(filters.Offset, len(out)):]
	}
	if filters.Limit > 0 && len(out) > filters.Limit {
		out = out[:filters.Limit]
	}
	return out, total, nil
}

func (r memQuestions) ListActive(ctx context.Context, tx *gorm.DB) ([]*models.Question, error) {
	out, _, err := r.List(ctx, tx, repositories.QuestionFilters{ActiveOnly: true})
	return out, err
}

type memStudents struct{ m *memStore }

func (r memStudents) GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.Student, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	s, ok := r.m.students[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &s, nil
}

func (r memStudents) ExistsByID(ctx context.Context, tx *gorm.DB, id string) (bool, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	_, ok := r.m.students[id]
	return ok, nil
}

func (r memStudents) FindOrCreate(ctx context.Context, tx *gorm.DB, studentNo, name string) (*models.Student, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, s := range r.m.students {
		if s.StudentNo == studentNo && s.Name == name {
			s := s
			return &s, nil
		}
	}
	s := models.Student{ID: uuid.NewString(), StudentNo: studentNo, Name: name}
	r.m.students[s.ID] = s
	return &s, nil
}

type memAttempts struct{ m *memStore }

func (r memAttempts) Create(ctx context.Context, tx *gorm.DB, attempt *models.Attempt) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.students[attempt.StudentID]; !ok {
		return errors.New("violates foreign key constraint attempts_student_id_fkey")
	}
	if attempt.ID == "" {
		attempt.ID = uuid.NewString()
	}
	stored := *attempt
	stored.Items = nil
	r.m.attempts[attempt.ID] = stored
	return nil
}

func (r memAttempts) GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.Attempt, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	a, ok := r.m.attempts[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &a, nil
}

func (r memAttempts) GetByIDForUpdate(ctx context.Context, tx *gorm.DB, id string) (*models.Attempt, error) {
	if err := r.m.lockRow(tx, id); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, tx, id)
}

func (r memAttempts) GetByIDWithItems(ctx context.Context, tx *gorm.DB, id string) (*models.Attempt, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	a, ok := r.m.attempts[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return r.m.withDetailsLocked(a), nil
}

func (r memAttempts) Finalize(ctx context.Context, tx *gorm.DB, id string, totalScore float64, submittedAt time.Time) (bool, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.m.failFinalize != nil {
		return false, r.m.failFinalize
	}
	a, ok := r.m.attempts[id]
	if !ok || a.Status != models.AttemptStatusInProgress {
		return false, nil
	}
	a.Status = models.AttemptStatusSubmitted
	a.TotalScore = totalScore
	a.SubmittedAt = &submittedAt
	r.m.attempts[id] = a
	return true, nil
}

func (r memAttempts) Cancel(ctx context.Context, tx *gorm.DB, id string) (bool, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	a, ok := r.m.attempts[id]
	if !ok || a.Status != models.AttemptStatusInProgress {
		return false, nil
	}
	a.Status = models.AttemptStatusCancelled
	r.m.attempts[id] = a
	return true, nil
}

func (r memAttempts) ListWithDetails(ctx context.Context, tx *gorm.DB, filters repositories.AttemptFilters) ([]*models.Attempt, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []*models.Attempt
	for _, a := range r.m.attempts {
		if filters.Status != "" && a.Status != filters.Status {
			continue
		}
		if filters.StudentID != nil && a.StudentID != *filters.StudentID {
			continue
		}
		at := a.RecencyAt()
		if filters.DateFrom != nil && at.Before(*filters.DateFrom) {
			continue
		}
		if filters.DateTo != nil && !at.Before(*filters.DateTo) {
			continue
		}
		out = append(out, r.m.withDetailsLocked(a))
	}
	sort.SliceStable(out, func(i, j int) bool {
		ri, rj := out[i].RecencyAt(), out[j].RecencyAt()
		if ri.Equal(rj) {
			return out[i].ID < out[j].ID
		}
		return ri.After(rj)
	})
	if filters.Limit > 0 && len(out) > filters.Limit {
		out = out[:filters.Limit]
	}
	return out, nil
}

func (r memAttempts) GetByStudent(ctx context.Context, tx *gorm.DB, studentID string, filters repositories.AttemptFilters) ([]*models.Attempt, error) {
	filters.StudentID = &studentID
	return r.ListWithDetails(ctx, tx, filters)
}

type memItems struct{ m *memStore }

func (r memItems) CreateBatch(ctx context.Context, tx *gorm.DB, items []*models.AttemptItem) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.m.failCreateItems != nil {
		return r.m.failCreateItems
	}
	for _, item := range items {
		for _, existing := range r.m.items {
			if existing.AttemptID == item.AttemptID && existing.Seq == item.Seq {
				return errors.New("duplicate key value violates unique constraint idx_attempt_items_attempt_seq")
			}
		}
		if item.ID == "" {
			item.ID = uuid.NewString()
		}
		stored := *item
		stored.Question = nil
		r.m.items[item.ID] = stored
	}
	return nil
}

func (r memItems) GetByAttempt(ctx context.Context, tx *gorm.DB, attemptID string) ([]*models.AttemptItem, error) {
	items := r.m.itemsOf(attemptID)
	out := make([]*models.AttemptItem, len(items))
	for i := range items {
		out[i] = &items[i]
	}
	return out, nil
}

func (r memItems) GetByAttemptAndSeq(ctx context.Context, tx *gorm.DB, attemptID string, seq int) (*models.AttemptItem, error) {
	for _, item := range r.m.itemsOf(attemptID) {
		if item.Seq == seq {
			item := item
			return &item, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r memItems) ApplyOutcome(ctx context.Context, tx *gorm.DB, attemptID string, seq int, outcome *repositories.ItemOutcome) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	r.m.applyCalls++
	if a, ok := r.m.attempts[attemptID]; !ok || a.Status != models.AttemptStatusInProgress {
		return repositories.ErrNotFound
	}
	for id, item := range r.m.items {
		if item.AttemptID != attemptID || item.Seq != seq {
			continue
		}
		url := outcome.AnswerImageURL
		pass := outcome.MatchPass
		answeredAt := outcome.AnsweredAt
		item.AnswerImageURL = &url
		item.DetectedLabels = pq.StringArray(outcome.DetectedLabels)
		item.MatchPass = &pass
		item.Score = outcome.Score
		item.Feedback = outcome.Feedback
		item.AnsweredAt = &answeredAt
		item.AIProvider = outcome.AIProvider
		item.AIModel = outcome.AIModel
		item.AIResult = outcome.AIResult
		r.m.items[id] = item
		return nil
	}
	return repositories.ErrNotFound
}

func (r memItems) CountAnswered(ctx context.Context, tx *gorm.DB, attemptID string) (int64, error) {
	var n int64
	for _, item := range r.m.itemsOf(attemptID) {
		if item.IsAnswered() {
			n++
		}
	}
	return n, nil
}

// ===== MOCKS =====

type MockObjectStore struct {
	mock.Mock
}

func (m *MockObjectStore) Put(ctx context.Context, path string, r io.Reader, size int64, contentType string) (string, error) {
	args := m.Called(ctx, path, r, size, contentType)
	return args.String(0), args.Error(1)
}

func (m *MockObjectStore) Delete(ctx context.Context, path string) error {
	args := m.Called(ctx, path)
	return args.Error(0)
}

func (m *MockObjectStore) URL(path string) string {
	args := m.Called(path)
	return args.String(0)
}

type MockGrader struct {
	mock.Mock
}

func (m *MockGrader) Grade(ctx context.Context, req grading.Request) (*models.AnalysisResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AnalysisResult), args.Error(1)
}

func (m *MockGrader) Name() string {
	return "mock"
}
