package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/m11312045/pneumatic-app/internal/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// dryRunDB builds statements without a server and records their SQL.
func dryRunDB(t *testing.T) (*gorm.DB, *[]string) {
	t.Helper()
	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN: "host=localhost user=quiz dbname=quiz sslmode=disable",
	}), &gorm.Config{
		DryRun:                 true,
		SkipDefaultTransaction: true,
		DisableAutomaticPing:   true,
		Logger:                 logger.Discard,
	})
	require.NoError(t, err)

	var statements []string
	capture := func(d *gorm.DB) {
		statements = append(statements, d.Statement.SQL.String())
	}
	require.NoError(t, db.Callback().Query().After("gorm:query").Register("test:capture_query", capture))
	require.NoError(t, db.Callback().Update().After("gorm:update").Register("test:capture_update", capture))
	return db, &statements
}

func TestAttemptPostgreSQL_GetByIDForUpdateLocksRow(t *testing.T) {
	db, statements := dryRunDB(t)
	repo := NewAttemptPostgreSQL(db)

	_, err := repo.GetByIDForUpdate(context.Background(), db, "7b0c3c1e-2f55-4a8e-9b7e-0d5d1f0c6a11")
	require.NoError(t, err)

	require.Len(t, *statements, 1)
	assert.Contains(t, (*statements)[0], `FROM "attempts"`)
	assert.Contains(t, (*statements)[0], "FOR UPDATE")
}

func TestAttemptItemPostgreSQL_ApplyOutcomeRequiresInProgressAttempt(t *testing.T) {
	db, statements := dryRunDB(t)
	repo := NewAttemptItemPostgreSQL(db)

	err := repo.ApplyOutcome(context.Background(), nil, "7b0c3c1e-2f55-4a8e-9b7e-0d5d1f0c6a11", 1, &repositories.ItemOutcome{
		AnswerImageURL: "https://cdn.example.com/a.jpg",
		Score:          10,
		AnsweredAt:     time.Date(2025, 5, 12, 9, 30, 0, 0, time.UTC),
		AIProvider:     "GEMINI",
	})
	// a dry run affects no rows
	assert.ErrorIs(t, err, repositories.ErrNotFound)

	require.Len(t, *statements, 1)
	sql := (*statements)[0]
	assert.Contains(t, sql, `UPDATE "attempt_items"`)
	assert.Contains(t, sql, "attempt_id = $")
	assert.Contains(t, sql, "EXISTS (SELECT 1 FROM attempts WHERE attempts.id = attempt_items.attempt_id AND attempts.status = $")
}
