package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/m11312045/pneumatic-app/internal/events"
	"github.com/m11312045/pneumatic-app/internal/metrics"
	"github.com/m11312045/pneumatic-app/internal/models"
	"github.com/m11312045/pneumatic-app/internal/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 5, 12, 9, 30, 0, 0, time.UTC)

type attemptFixture struct {
	store     *memStore
	publisher *events.MockEventPublisher
	service   *attemptService
	student   *models.Student
	questions []*models.Question
}

func newAttemptFixture(t *testing.T) *attemptFixture {
	t.Helper()
	store := newMemStore()
	publisher := events.NewMockEventPublisher(testLogger())
	svc := NewAttemptService(store, publisher, metrics.New(), testLogger()).(*attemptService)
	svc.now = fixedClock(testNow)

	questions := []*models.Question{
		newQuestion(models.VariantCopy, 1),
		newQuestion(models.VariantText, 2),
		newQuestion(models.VariantAdvanced, 3),
	}
	store.addQuestions(questions...)

	return &attemptFixture{
		store:     store,
		publisher: publisher,
		service:   svc,
		student:   store.addStudent("B1102", "Lin"),
		questions: questions,
	}
}

func sampleOutcome(score float64) *repositories.ItemOutcome {
	return &repositories.ItemOutcome{
		AnswerImageURL: "https://cdn.example.com/a.jpg",
		DetectedLabels: []string{"Shuttle valve"},
		MatchPass:      score > 0,
		Score:          score,
		AnsweredAt:     testNow,
		AIProvider:     "GEMINI",
	}
}

func TestAttemptService_Open(t *testing.T) {
	f := newAttemptFixture(t)

	attempt, err := f.service.Open(context.Background(), f.student.ID, f.questions)
	require.NoError(t, err)

	assert.NotEmpty(t, attempt.ID)
	assert.Equal(t, models.AttemptStatusInProgress, attempt.Status)
	assert.Equal(t, 1, attempt.CopyCount)
	assert.Equal(t, 1, attempt.TextCount)
	assert.Equal(t, 1, attempt.AdvancedCount)
	assert.Equal(t, testNow, attempt.StartedAt)
	assert.Zero(t, attempt.TotalScore)
	assert.Nil(t, attempt.SubmittedAt)

	items := f.store.itemsOf(attempt.ID)
	require.Len(t, items, 3)
	for i, item := range items {
		assert.Equal(t, i+1, item.Seq)
		assert.Equal(t, f.questions[i].ID, item.QuestionID)
		assert.False(t, item.IsAnswered())
	}

	require.Len(t, attempt.Items, 3)
	assert.Equal(t, f.questions[2].ID, attempt.Items[2].Question.ID)

	started := f.publisher.EventsOfType(events.EventAttemptStarted)
	require.Len(t, started, 1)
}

func TestAttemptService_OpenPreconditions(t *testing.T) {
	f := newAttemptFixture(t)

	_, err := f.service.Open(context.Background(), f.student.ID, nil)
	assert.ErrorIs(t, err, ErrNoQuestionsSelected)
	assert.True(t, IsPreconditionFailed(err))

	_, err = f.service.Open(context.Background(), "missing-student", f.questions)
	assert.ErrorIs(t, err, ErrStudentNotFound)
	assert.True(t, IsNotFound(err))

	assert.Empty(t, f.store.attempts)
	assert.Empty(t, f.publisher.GetPublishedEvents())
}

func TestAttemptService_OpenIsAtomic(t *testing.T) {
	f := newAttemptFixture(t)
	f.store.failCreateItems = errors.New("connection reset")

	attempt, err := f.service.Open(context.Background(), f.student.ID, f.questions)
	require.Error(t, err)
	assert.Nil(t, attempt)

	assert.Empty(t, f.store.attempts, "no attempt without items")
	assert.Empty(t, f.store.items)
	assert.Empty(t, f.publisher.EventsOfType(events.EventAttemptStarted))
}

func TestAttemptService_FinalizeTwiceKeepsFirstTotal(t *testing.T) {
	f := newAttemptFixture(t)
	attempt, err := f.service.Open(context.Background(), f.student.ID, f.questions)
	require.NoError(t, err)

	first, err := f.service.Finalize(context.Background(), attempt.ID, 80)
	require.NoError(t, err)
	assert.True(t, first.Applied)
	assert.Equal(t, models.AttemptStatusSubmitted, first.Attempt.Status)

	f.service.now = fixedClock(testNow.Add(time.Minute))
	second, err := f.service.Finalize(context.Background(), attempt.ID, 40)
	require.NoError(t, err)
	assert.False(t, second.Applied)

	stored, _ := f.store.attempt(attempt.ID)
	assert.Equal(t, models.AttemptStatusSubmitted, stored.Status)
	assert.Equal(t, 80.0, stored.TotalScore)
	require.NotNil(t, stored.SubmittedAt)
	assert.Equal(t, testNow, *stored.SubmittedAt)

	assert.Len(t, f.publisher.EventsOfType(events.EventAttemptSubmitted), 1)
}

func TestAttemptService_FinalizeErrors(t *testing.T) {
	f := newAttemptFixture(t)
	attempt, err := f.service.Open(context.Background(), f.student.ID, f.questions)
	require.NoError(t, err)
	require.NoError(t, f.service.Cancel(context.Background(), attempt.ID))

	_, err = f.service.Finalize(context.Background(), attempt.ID, 50)
	assert.ErrorIs(t, err, ErrAttemptCancelled)
	assert.True(t, IsPreconditionFailed(err))

	_, err = f.service.Finalize(context.Background(), "missing", 50)
	assert.ErrorIs(t, err, ErrAttemptNotFound)

	_, err = f.service.Finalize(context.Background(), attempt.ID, -1)
	assert.True(t, IsValidation(err))
}

func TestAttemptService_RecordAnswer(t *testing.T) {
	f := newAttemptFixture(t)
	attempt, err := f.service.Open(context.Background(), f.student.ID, f.questions)
	require.NoError(t, err)

	require.NoError(t, f.service.RecordAnswer(context.Background(), attempt.ID, 2, sampleOutcome(33.33)))

	items := f.store.itemsOf(attempt.ID)
	assert.False(t, items[0].IsAnswered())
	assert.True(t, items[1].IsAnswered())
	assert.Equal(t, 33.33, items[1].Score)
	assert.True(t, items[1].IsCorrect())
	require.NotNil(t, items[1].AnswerImageURL)
	assert.Equal(t, "https://cdn.example.com/a.jpg", *items[1].AnswerImageURL)

	// last write wins
	require.NoError(t, f.service.RecordAnswer(context.Background(), attempt.ID, 2, sampleOutcome(0)))
	items = f.store.itemsOf(attempt.ID)
	assert.Zero(t, items[1].Score)
	assert.False(t, items[1].IsCorrect())
}

func TestAttemptService_RecordAnswerNotFound(t *testing.T) {
	f := newAttemptFixture(t)
	attempt, err := f.service.Open(context.Background(), f.student.ID, f.questions)
	require.NoError(t, err)
	before := f.store.itemsOf(attempt.ID)

	err = f.service.RecordAnswer(context.Background(), attempt.ID, 4, sampleOutcome(10))
	assert.ErrorIs(t, err, ErrAttemptItemNotFound)
	assert.True(t, IsNotFound(err))
	assert.Equal(t, before, f.store.itemsOf(attempt.ID))

	calls := f.store.applyCalls
	err = f.service.RecordAnswer(context.Background(), "missing", 1, sampleOutcome(10))
	assert.ErrorIs(t, err, ErrAttemptNotFound)
	assert.Equal(t, calls, f.store.applyCalls)
}

func TestAttemptService_RecordAnswerOnTerminalAttempt(t *testing.T) {
	f := newAttemptFixture(t)
	attempt, err := f.service.Open(context.Background(), f.student.ID, f.questions)
	require.NoError(t, err)
	_, err = f.service.Finalize(context.Background(), attempt.ID, 0)
	require.NoError(t, err)

	err = f.service.RecordAnswer(context.Background(), attempt.ID, 1, sampleOutcome(10))
	assert.ErrorIs(t, err, ErrAttemptNotActive)
	assert.False(t, f.store.itemsOf(attempt.ID)[0].IsAnswered())
}

func TestAttemptService_Cancel(t *testing.T) {
	f := newAttemptFixture(t)
	attempt, err := f.service.Open(context.Background(), f.student.ID, f.questions)
	require.NoError(t, err)

	require.NoError(t, f.service.Cancel(context.Background(), attempt.ID))
	require.NoError(t, f.service.Cancel(context.Background(), attempt.ID))

	stored, _ := f.store.attempt(attempt.ID)
	assert.Equal(t, models.AttemptStatusCancelled, stored.Status)
	assert.Len(t, f.publisher.EventsOfType(events.EventAttemptCancelled), 1)

	submitted, err := f.service.Open(context.Background(), f.student.ID, f.questions)
	require.NoError(t, err)
	_, err = f.service.Finalize(context.Background(), submitted.ID, 10)
	require.NoError(t, err)
	assert.ErrorIs(t, f.service.Cancel(context.Background(), submitted.ID), ErrAttemptSubmitted)

	assert.ErrorIs(t, f.service.Cancel(context.Background(), "missing"), ErrAttemptNotFound)
}

func TestAttemptService_Get(t *testing.T) {
	f := newAttemptFixture(t)
	opened, err := f.service.Open(context.Background(), f.student.ID, f.questions)
	require.NoError(t, err)

	attempt, err := f.service.Get(context.Background(), opened.ID)
	require.NoError(t, err)
	require.Len(t, attempt.Items, 3)
	assert.Equal(t, 1, attempt.Items[0].Seq)
	require.NotNil(t, attempt.Items[0].Question)
	assert.Equal(t, models.VariantCopy, attempt.Items[0].Question.Variant)
	require.NotNil(t, attempt.Student)
	assert.Equal(t, "B1102", attempt.Student.StudentNo)

	_, err = f.service.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrAttemptNotFound)
}
