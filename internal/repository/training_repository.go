package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/astba/training-api/internal/models"
)

const trainingColumns = "id, title, description, document_url, levels, created_at, updated_at"

// TrainingRepository reads curriculum definitions. The scheduling engine
// never mutates trainings.
type TrainingRepository struct {
	db *sqlx.DB
}

// NewTrainingRepository creates a new training repository.
func NewTrainingRepository(db *sqlx.DB) *TrainingRepository {
	return &TrainingRepository{db: db}
}

// FindByID loads a training by id.
func (r *TrainingRepository) FindByID(ctx context.Context, id string) (*models.Training, error) {
	query := fmt.Sprintf("SELECT %s FROM trainings WHERE id = $1", trainingColumns)
	var training models.Training
	if err := r.db.GetContext(ctx, &training, query, id); err != nil {
		return nil, err
	}
	return &training, nil
}

// List returns all trainings ordered by title.
func (r *TrainingRepository) List(ctx context.Context) ([]models.Training, error) {
	query := fmt.Sprintf("SELECT %s FROM trainings ORDER BY title ASC", trainingColumns)
	var trainings []models.Training
	if err := r.db.SelectContext(ctx, &trainings, query); err != nil {
		return nil, fmt.Errorf("list trainings: %w", err)
	}
	return trainings, nil
}
