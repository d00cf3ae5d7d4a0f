package services

import (
	"context"
	"math/rand"
	"testing"

	"github.com/m11312045/pneumatic-app/internal/events"
	"github.com/m11312045/pneumatic-app/internal/metrics"
	"github.com/m11312045/pneumatic-app/internal/models"
	"github.com/m11312045/pneumatic-app/internal/validator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newQuizFixture(t *testing.T, catalog []*models.Question, shuffle bool) (*memStore, QuizService, *models.Student) {
	t.Helper()
	store := newMemStore()
	store.addQuestions(catalog...)
	student := store.addStudent("B1102", "Lin")

	publisher := events.NewMockEventPublisher(testLogger())
	attempts := NewAttemptService(store, publisher, metrics.New(), testLogger())
	svc := NewQuizService(
		NewCatalogService(store, nil, 0, validator.New(), testLogger()),
		NewSampler(rand.NewSource(11)),
		attempts,
		QuizConfig{Plan: DefaultSamplingPlan(), ShuffleCombined: shuffle},
		metrics.New(),
		validator.New(),
		testLogger(),
	)
	return store, svc, student
}

func TestQuizService_StartQuiz(t *testing.T) {
	store, svc, student := newQuizFixture(t, buildCatalog(5, 3, 7), false)

	session, err := svc.StartQuiz(context.Background(), &StartQuizRequest{StudentID: student.ID})
	require.NoError(t, err)

	require.Len(t, session.Questions, 10)
	assert.False(t, session.Shortage.HasShortage())
	assert.Empty(t, session.Warnings)
	assert.Equal(t, 10, session.Attempt.QuestionCount())
	assert.Equal(t, 7, session.Attempt.AdvancedCount)

	items := store.itemsOf(session.Attempt.ID)
	require.Len(t, items, 10)
	for i, item := range items {
		assert.Equal(t, session.Questions[i].ID, item.QuestionID, "seq follows presentation order")
	}
	for _, q := range session.Questions[:3] {
		assert.True(t, q.Variant.IsBasic())
	}
}

func TestQuizService_StartQuizShuffledKeepsCounts(t *testing.T) {
	store, svc, student := newQuizFixture(t, buildCatalog(5, 3, 7), true)

	session, err := svc.StartQuiz(context.Background(), &StartQuizRequest{StudentID: student.ID})
	require.NoError(t, err)

	assert.Equal(t, 3, session.Attempt.CopyCount+session.Attempt.TextCount)
	assert.Equal(t, 7, session.Attempt.AdvancedCount)
	items := store.itemsOf(session.Attempt.ID)
	for i, item := range items {
		assert.Equal(t, session.Questions[i].ID, item.QuestionID)
	}
}

func TestQuizService_StartQuizShortage(t *testing.T) {
	_, svc, student := newQuizFixture(t, buildCatalog(1, 0, 4), false)

	session, err := svc.StartQuiz(context.Background(), &StartQuizRequest{StudentID: student.ID})
	require.NoError(t, err)

	assert.Len(t, session.Questions, 5)
	assert.True(t, session.Shortage.HasShortage())
	assert.NotEmpty(t, session.Warnings)
}

func TestQuizService_StartQuizErrors(t *testing.T) {
	_, empty, student := newQuizFixture(t, nil, false)
	_, err := empty.StartQuiz(context.Background(), &StartQuizRequest{StudentID: student.ID})
	assert.ErrorIs(t, err, ErrEmptyCatalog)

	_, svc, _ := newQuizFixture(t, buildCatalog(5, 3, 7), false)
	_, err = svc.StartQuiz(context.Background(), &StartQuizRequest{StudentID: "not-a-uuid"})
	assert.True(t, IsValidation(err))

	_, err = svc.StartQuiz(context.Background(), &StartQuizRequest{StudentID: "6f1c1a9e-3b7a-4d8e-9a51-7d0f1f2e3c4b"})
	assert.ErrorIs(t, err, ErrStudentNotFound)
}
