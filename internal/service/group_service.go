package service

import (
	"context"
	"database/sql"

	"github.com/astba/training-api/internal/models"
	appErrors "github.com/astba/training-api/pkg/errors"
)

type groupRepository interface {
	FindByID(ctx context.Context, id string) (*models.Group, error)
	ListByTraining(ctx context.Context, trainingID string) ([]models.Group, error)
	List(ctx context.Context) ([]models.Group, error)
}

// GroupService is the read-only view over the roster store.
type GroupService struct {
	repo groupRepository
}

// NewGroupService instantiates GroupService.
func NewGroupService(repo groupRepository) *GroupService {
	return &GroupService{repo: repo}
}

// Get loads a group by id.
func (s *GroupService) Get(ctx context.Context, id string) (*models.Group, error) {
	group, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "group not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load group")
	}
	return group, nil
}

// List returns groups, optionally scoped to one training.
func (s *GroupService) List(ctx context.Context, trainingID string) ([]models.Group, error) {
	var groups []models.Group
	var err error
	if trainingID != "" {
		groups, err = s.repo.ListByTraining(ctx, trainingID)
	} else {
		groups, err = s.repo.List(ctx)
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list groups")
	}
	return groups, nil
}
