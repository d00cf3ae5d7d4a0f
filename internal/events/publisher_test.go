package events

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/m11312045/pneumatic-app/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestChannelEventPublisher_RoundTrip(t *testing.T) {
	publisher := NewChannelEventPublisher(PublisherConfig{
		TopicName: "quiz-events",
		Logger:    testLogger(),
	})
	defer publisher.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	messages, err := publisher.Subscribe(ctx)
	require.NoError(t, err)

	submittedAt := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	event := NewAttemptSubmittedEvent("attempt-1", "student-1", submittedAt, 87.5)
	require.NoError(t, publisher.PublishQuizEvent(ctx, event))

	select {
	case msg := <-messages:
		msg.Ack()
		assert.Equal(t, event.ID, msg.UUID)
		assert.Equal(t, string(EventAttemptSubmitted), msg.Metadata.Get("event_type"))
		assert.Equal(t, "pneumatic-quiz", msg.Metadata.Get("source"))

		decoded, err := DecodeQuizEvent(msg)
		require.NoError(t, err)
		assert.Equal(t, EventAttemptSubmitted, decoded.Type)

		data, ok := decoded.Data.(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, "attempt-1", data["attempt_id"])
		assert.Equal(t, 87.5, data["total_score"])
	case <-ctx.Done():
		t.Fatal("timed out waiting for published event")
	}
}

func TestMockEventPublisher(t *testing.T) {
	publisher := NewMockEventPublisher(testLogger())

	attempt := &models.Attempt{ID: "a-1", StudentID: "s-1", CopyCount: 2, TextCount: 1, AdvancedCount: 7}
	require.NoError(t, publisher.PublishQuizEvent(context.Background(), NewAttemptStartedEvent(attempt)))
	require.NoError(t, publisher.PublishQuizEvent(context.Background(), NewAttemptCancelledEvent("a-1", time.Now())))

	started := publisher.EventsOfType(EventAttemptStarted)
	require.Len(t, started, 1)
	payload, ok := started[0].Data.(AttemptStartedEvent)
	require.True(t, ok)
	assert.Equal(t, 10, payload.QuestionCount)

	publisher.ClearEvents()
	assert.Empty(t, publisher.GetPublishedEvents())
}

func TestGenerateEventID_Unique(t *testing.T) {
	assert.NotEqual(t, GenerateEventID(), GenerateEventID())
}
