package postgres

import (
	"context"

	"github.com/m11312045/pneumatic-app/internal/repositories"
	"gorm.io/gorm"
)

type repository struct {
	db          *gorm.DB
	question    repositories.QuestionRepository
	student     repositories.StudentRepository
	attempt     repositories.AttemptRepository
	attemptItem repositories.AttemptItemRepository
}

// NewRepository wires the gorm-backed repositories around one connection.
func NewRepository(db *gorm.DB) repositories.Repository {
	return &repository{
		db:          db,
		question:    NewQuestionPostgreSQL(db),
		student:     NewStudentPostgreSQL(db),
		attempt:     NewAttemptPostgreSQL(db),
		attemptItem: NewAttemptItemPostgreSQL(db),
	}
}

func (r *repository) Question() repositories.QuestionRepository       { return r.question }
func (r *repository) Student() repositories.StudentRepository         { return r.student }
func (r *repository) Attempt() repositories.AttemptRepository         { return r.attempt }
func (r *repository) AttemptItem() repositories.AttemptItemRepository { return r.attemptItem }

func (r *repository) WithTransaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}
