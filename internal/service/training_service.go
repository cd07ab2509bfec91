package service

import (
	"context"
	"database/sql"

	"github.com/astba/training-api/internal/models"
	appErrors "github.com/astba/training-api/pkg/errors"
)

type trainingRepository interface {
	FindByID(ctx context.Context, id string) (*models.Training, error)
	List(ctx context.Context) ([]models.Training, error)
}

// TrainingService is the read-only view over the curriculum store.
type TrainingService struct {
	repo trainingRepository
}

// NewTrainingService instantiates TrainingService.
func NewTrainingService(repo trainingRepository) *TrainingService {
	return &TrainingService{repo: repo}
}

// Get loads a training by id.
func (s *TrainingService) Get(ctx context.Context, id string) (*models.Training, error) {
	training, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "training not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load training")
	}
	return training, nil
}

// List returns all trainings.
func (s *TrainingService) List(ctx context.Context) ([]models.Training, error) {
	trainings, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list trainings")
	}
	return trainings, nil
}
